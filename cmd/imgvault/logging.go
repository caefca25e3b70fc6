package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"imgvault/internal/config"
)

const (
	logLevelEnvKey  = "IMGVAULT_LOG_LEVEL"
	logFormatEnvKey = "IMGVAULT_LOG_FORMAT"
)

type levelSource int

const (
	levelFromDefault levelSource = iota
	levelFromFlag
	levelFromEnv
	levelFromConfig
)

// loggerSettings holds the raw logging inputs from flags and config.
type loggerSettings struct {
	FlagLevel   string
	ConfigLevel string
	FlagFormat  string
}

// setupCLILogger installs the default slog logger on stderr. A bad flag is
// an error. A bad env or config level falls back to info and returns a
// warning for the caller to print.
func setupCLILogger(settings loggerSettings) (string, error) {
	format, err := resolveLogFormat(settings.FlagFormat, os.Getenv(logFormatEnvKey))
	if err != nil {
		return "", err
	}

	envLevel := os.Getenv(logLevelEnvKey)
	raw, source := pickLogLevel(settings.FlagLevel, envLevel, settings.ConfigLevel)

	var warning string
	level, err := parseLogLevel(raw)
	if err != nil {
		switch source {
		case levelFromFlag:
			return "", fmt.Errorf("invalid --log-level %q", settings.FlagLevel)
		case levelFromEnv:
			warning = fmt.Sprintf("warning: invalid %s=%q; defaulting to %s", logLevelEnvKey, envLevel, config.DefaultLogLevel)
		case levelFromConfig:
			warning = fmt.Sprintf("warning: invalid log_level=%q; defaulting to %s", settings.ConfigLevel, config.DefaultLogLevel)
		}
		level = slog.LevelInfo
	}

	slog.SetDefault(newLogger(os.Stderr, level, format))
	return warning, nil
}

func pickLogLevel(flagLevel, envLevel, configLevel string) (string, levelSource) {
	switch {
	case strings.TrimSpace(flagLevel) != "":
		return flagLevel, levelFromFlag
	case strings.TrimSpace(envLevel) != "":
		return envLevel, levelFromEnv
	case strings.TrimSpace(configLevel) != "":
		return configLevel, levelFromConfig
	default:
		return "", levelFromDefault
	}
}

// parseLogLevel accepts slog level names, "warning" and numeric levels.
// An empty value selects info.
func parseLogLevel(raw string) (slog.Level, error) {
	value := strings.ToLower(strings.TrimSpace(raw))
	switch value {
	case "":
		return slog.LevelInfo, nil
	case "warning":
		return slog.LevelWarn, nil
	}

	if numeric, err := strconv.Atoi(value); err == nil {
		return slog.Level(numeric), nil
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(value)); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid log level %q", raw)
	}
	return level, nil
}

// resolveLogFormat picks text or json, the flag winning over the env.
func resolveLogFormat(flagFormat, envFormat string) (string, error) {
	value := strings.TrimSpace(flagFormat)
	if value == "" {
		value = strings.TrimSpace(envFormat)
	}
	switch strings.ToLower(value) {
	case "", "text":
		return "text", nil
	case "json":
		return "json", nil
	default:
		return "", fmt.Errorf("invalid log format %q (want text or json)", value)
	}
}

func newLogger(w io.Writer, level slog.Level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}
	if format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
