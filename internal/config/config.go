package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"imgvault/internal/models"
)

const (
	DefaultAPIURL        = "http://127.0.0.1:7480"
	DefaultDBFileName    = ".imgvault.db"
	DefaultUploadDirName = "uploads"
	DefaultLogLevel      = "info"
	ConfigFileName       = ".imgvault.toml"

	BackendLocal = "local"
	BackendMinio = "minio"

	DefaultUploadMaxBytes          int64 = models.DefaultMaxUploadBytes
	DefaultUploadMultipartMemory   int64 = 8 * 1024 * 1024
	DefaultUploadRatePerMinute           = 60
	DefaultUploadBurst                   = 10
	DefaultSessionTTL                    = 7 * 24 * time.Hour
	DefaultMinioBucket                   = "imgvault"

	configDirEnvKey          = "IMGVAULT_CONFIG_DIR"
	trustProjectConfigEnvKey = "IMGVAULT_TRUST_PROJECT_CONFIG"
)

// StorageConfig selects and configures the blob backend.
type StorageConfig struct {
	Backend        string `toml:"backend"`
	UploadDir      string `toml:"upload_dir"`
	MinioEndpoint  string `toml:"minio_endpoint"`
	MinioAccessKey string `toml:"minio_access_key"`
	MinioSecretKey string `toml:"minio_secret_key"`
	MinioBucket    string `toml:"minio_bucket"`
	MinioPrefix    string `toml:"minio_prefix"`
	MinioUseSSL    bool   `toml:"minio_use_ssl"`
}

// UploadConfig bounds what the upload endpoint accepts.
type UploadConfig struct {
	MaxBytes           int64    `toml:"max_bytes"`
	MultipartMaxMemory int64    `toml:"multipart_max_memory"`
	AllowedTypes       []string `toml:"allowed_types"`
	RatePerMinute      int      `toml:"rate_per_minute"`
	Burst              int      `toml:"burst"`
}

// AuthConfig holds session and browser access settings.
type AuthConfig struct {
	SessionTTL string `toml:"session_ttl"`
	CORSOrigin string `toml:"cors_origin"`
}

// Config defines runtime configuration for imgvault.
type Config struct {
	APIURL                   string        `toml:"api_url"`
	DBPath                   string        `toml:"db_path"`
	LogLevel                 string        `toml:"log_level"`
	Storage                  StorageConfig `toml:"storage"`
	Uploads                  UploadConfig  `toml:"uploads"`
	Auth                     AuthConfig    `toml:"auth"`
	TrustedProjectConfigPath string        `toml:"-"`
}

// Default returns default configuration values.
func Default() Config {
	return Config{
		APIURL:   DefaultAPIURL,
		DBPath:   "",
		LogLevel: DefaultLogLevel,
		Storage: StorageConfig{
			Backend:     BackendLocal,
			MinioBucket: DefaultMinioBucket,
		},
		Uploads: UploadConfig{
			MaxBytes:           DefaultUploadMaxBytes,
			MultipartMaxMemory: DefaultUploadMultipartMemory,
			RatePerMinute:      DefaultUploadRatePerMinute,
			Burst:              DefaultUploadBurst,
		},
		Auth: AuthConfig{
			SessionTTL: DefaultSessionTTL.String(),
		},
	}
}

func loadFile(path string, cfg *Config) error {
	_, err := loadFileIfExists(path, cfg)
	return err
}

func loadFileIfExists(path string, cfg *Config) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	if info.IsDir() {
		return false, nil
	}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return false, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return true, nil
}

func overrideConfigPath() (string, bool) {
	dir := strings.TrimSpace(os.Getenv(configDirEnvKey))
	if dir == "" {
		return "", false
	}
	return filepath.Join(dir, ConfigFileName), true
}

func trustProjectConfig() bool {
	raw := strings.TrimSpace(os.Getenv(trustProjectConfigEnvKey))
	if raw == "" {
		return false
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		return false
	}
	return value
}

var allowedKeys = []string{
	"api_url",
	"db_path",
	"log_level",
	"storage.backend",
	"storage.upload_dir",
	"storage.minio_endpoint",
	"storage.minio_access_key",
	"storage.minio_secret_key",
	"storage.minio_bucket",
	"storage.minio_prefix",
	"storage.minio_use_ssl",
	"uploads.max_bytes",
	"uploads.multipart_max_memory",
	"uploads.allowed_types",
	"uploads.rate_per_minute",
	"uploads.burst",
	"auth.session_ttl",
	"auth.cors_origin",
}

// AllowedKeys returns the set of valid config keys.
func AllowedKeys() []string {
	return allowedKeys
}

// IsAllowedKey checks if a key is a valid config key.
func IsAllowedKey(key string) bool {
	for _, k := range allowedKeys {
		if k == key {
			return true
		}
	}
	return false
}

// Get returns the value of a config key. The MinIO secret is masked.
func (c *Config) Get(key string) (string, error) {
	switch key {
	case "api_url":
		return c.APIURL, nil
	case "db_path":
		return c.DBPath, nil
	case "log_level":
		return c.LogLevel, nil
	case "storage.backend":
		return c.Storage.Backend, nil
	case "storage.upload_dir":
		return c.Storage.UploadDir, nil
	case "storage.minio_endpoint":
		return c.Storage.MinioEndpoint, nil
	case "storage.minio_access_key":
		return c.Storage.MinioAccessKey, nil
	case "storage.minio_secret_key":
		if c.Storage.MinioSecretKey == "" {
			return "", nil
		}
		return "********", nil
	case "storage.minio_bucket":
		return c.Storage.MinioBucket, nil
	case "storage.minio_prefix":
		return c.Storage.MinioPrefix, nil
	case "storage.minio_use_ssl":
		return strconv.FormatBool(c.Storage.MinioUseSSL), nil
	case "uploads.max_bytes":
		return strconv.FormatInt(c.Uploads.MaxBytes, 10), nil
	case "uploads.multipart_max_memory":
		return strconv.FormatInt(c.Uploads.MultipartMaxMemory, 10), nil
	case "uploads.allowed_types":
		return strings.Join(c.Uploads.AllowedTypes, ","), nil
	case "uploads.rate_per_minute":
		return strconv.Itoa(c.Uploads.RatePerMinute), nil
	case "uploads.burst":
		return strconv.Itoa(c.Uploads.Burst), nil
	case "auth.session_ttl":
		return c.Auth.SessionTTL, nil
	case "auth.cors_origin":
		return c.Auth.CORSOrigin, nil
	default:
		return "", fmt.Errorf("unknown key: %s", key)
	}
}

// SessionTTLDuration parses auth.session_ttl, falling back to the default.
func (c *Config) SessionTTLDuration() time.Duration {
	parsed, err := time.ParseDuration(strings.TrimSpace(c.Auth.SessionTTL))
	if err != nil || parsed <= 0 {
		return DefaultSessionTTL
	}
	return parsed
}

// AllowedExtensions converts uploads.allowed_types to extensions.
// An empty result means every supported type is allowed.
func (c *Config) AllowedExtensions() []models.Extension {
	out := make([]models.Extension, 0, len(c.Uploads.AllowedTypes))
	for _, raw := range c.Uploads.AllowedTypes {
		ext, err := models.ParseExtension(raw)
		if err != nil {
			continue
		}
		out = append(out, ext)
	}
	return out
}

// GlobalPath returns the path to the global config file.
func GlobalPath() (string, error) {
	if path, ok := overrideConfigPath(); ok {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ConfigFileName), nil
}

// ProjectPath returns the path to the project config file.
func ProjectPath() (string, error) {
	if path, ok := overrideConfigPath(); ok {
		return path, nil
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	return filepath.Join(cwd, ConfigFileName), nil
}

// SetKey reads the TOML file at path, sets key=value, and writes it back.
func SetKey(path, key, value string) error {
	if !IsAllowedKey(key) {
		return fmt.Errorf("unknown key: %s", key)
	}

	data := make(map[string]any)
	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, &data); err != nil {
			return fmt.Errorf("parse %s: %w", path, err)
		}
	}

	parsedValue, err := parseSetValue(key, value)
	if err != nil {
		return err
	}
	if err := setNestedKey(data, strings.Split(key, "."), parsedValue); err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(data)
}

// Load reads config from trusted files and applies env overrides.
func Load() (*Config, error) {
	cfg := Default()

	if overridePath, ok := overrideConfigPath(); ok {
		if err := loadFile(overridePath, &cfg); err != nil {
			return nil, err
		}
	} else {
		if home, err := os.UserHomeDir(); err == nil {
			if err := loadFile(filepath.Join(home, ConfigFileName), &cfg); err != nil {
				return nil, err
			}
		}

		if trustProjectConfig() {
			if cwd, err := os.Getwd(); err == nil {
				projectPath := filepath.Join(cwd, ConfigFileName)
				info, statErr := os.Stat(projectPath)
				switch {
				case statErr == nil && !info.IsDir():
					if err := loadFile(projectPath, &cfg); err != nil {
						return nil, err
					}
					cfg.TrustedProjectConfigPath = projectPath
				case statErr != nil && !os.IsNotExist(statErr):
					return nil, statErr
				}
			}
		}
	}

	if cwd, err := os.Getwd(); err == nil {
		if cfg.DBPath == "" {
			cfg.DBPath = filepath.Join(cwd, DefaultDBFileName)
		}
		if cfg.Storage.UploadDir == "" {
			cfg.Storage.UploadDir = filepath.Join(cwd, DefaultUploadDirName)
		}
	}

	if apiURL := os.Getenv("IMGVAULT_API_URL"); apiURL != "" {
		cfg.APIURL = apiURL
	}
	if dbPath := os.Getenv("IMGVAULT_DB"); dbPath != "" {
		cfg.DBPath = dbPath
	}
	if uploadDir := os.Getenv("IMGVAULT_UPLOAD_DIR"); uploadDir != "" {
		cfg.Storage.UploadDir = uploadDir
	}
	if level := strings.TrimSpace(os.Getenv("IMGVAULT_LOG_LEVEL")); level != "" {
		cfg.LogLevel = level
	}
	if secret := os.Getenv("IMGVAULT_MINIO_SECRET_KEY"); secret != "" {
		cfg.Storage.MinioSecretKey = secret
	}

	cfg.normalize()

	return &cfg, nil
}

// Validate reports configuration that cannot start a server.
func (c *Config) Validate() error {
	switch c.Storage.Backend {
	case BackendLocal:
		if strings.TrimSpace(c.Storage.UploadDir) == "" {
			return fmt.Errorf("storage.upload_dir is required for the local backend")
		}
	case BackendMinio:
		if strings.TrimSpace(c.Storage.MinioEndpoint) == "" {
			return fmt.Errorf("storage.minio_endpoint is required for the minio backend")
		}
		if strings.TrimSpace(c.Storage.MinioBucket) == "" {
			return fmt.Errorf("storage.minio_bucket is required for the minio backend")
		}
	default:
		return fmt.Errorf("unknown storage.backend %q (expected %s or %s)", c.Storage.Backend, BackendLocal, BackendMinio)
	}
	return nil
}

func parseSetValue(key, value string) (any, error) {
	value = strings.TrimSpace(value)
	switch key {
	case "uploads.max_bytes", "uploads.multipart_max_memory":
		parsed, err := strconv.ParseInt(value, 10, 64)
		if err != nil || parsed <= 0 {
			return nil, fmt.Errorf("%s must be a positive integer", key)
		}
		return parsed, nil
	case "uploads.rate_per_minute", "uploads.burst":
		parsed, err := strconv.Atoi(value)
		if err != nil || parsed < 0 {
			return nil, fmt.Errorf("%s must be a non-negative integer", key)
		}
		return parsed, nil
	case "storage.minio_use_ssl":
		parsed, err := strconv.ParseBool(value)
		if err != nil {
			return nil, fmt.Errorf("%s must be true or false", key)
		}
		return parsed, nil
	case "storage.backend":
		if value != BackendLocal && value != BackendMinio {
			return nil, fmt.Errorf("%s must be %s or %s", key, BackendLocal, BackendMinio)
		}
		return value, nil
	case "uploads.allowed_types":
		parts := splitCSV(value)
		for _, part := range parts {
			if _, err := models.ParseExtension(part); err != nil {
				return nil, fmt.Errorf("%s: %w", key, err)
			}
		}
		return parts, nil
	case "auth.session_ttl":
		parsed, err := time.ParseDuration(value)
		if err != nil || parsed <= 0 {
			return nil, fmt.Errorf("%s must be a positive duration", key)
		}
		return parsed.String(), nil
	default:
		return value, nil
	}
}

func setNestedKey(data map[string]any, parts []string, value any) error {
	if len(parts) == 0 {
		return fmt.Errorf("invalid config key")
	}
	if len(parts) == 1 {
		data[parts[0]] = value
		return nil
	}
	childRaw, ok := data[parts[0]]
	if !ok {
		child := map[string]any{}
		data[parts[0]] = child
		return setNestedKey(child, parts[1:], value)
	}
	child, ok := childRaw.(map[string]any)
	if !ok {
		return fmt.Errorf("cannot set nested key %q", strings.Join(parts, "."))
	}
	return setNestedKey(child, parts[1:], value)
}

func splitCSV(value string) []string {
	value = strings.TrimSpace(value)
	if value == "" {
		return []string{}
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		out = append(out, part)
	}
	return out
}

func (c *Config) normalize() {
	if strings.TrimSpace(c.LogLevel) == "" {
		c.LogLevel = DefaultLogLevel
	}
	c.Storage.Backend = strings.ToLower(strings.TrimSpace(c.Storage.Backend))
	if c.Storage.Backend == "" {
		c.Storage.Backend = BackendLocal
	}
	if strings.TrimSpace(c.Storage.MinioBucket) == "" {
		c.Storage.MinioBucket = DefaultMinioBucket
	}
	if c.Uploads.MaxBytes <= 0 {
		c.Uploads.MaxBytes = DefaultUploadMaxBytes
	}
	if c.Uploads.MultipartMaxMemory <= 0 {
		c.Uploads.MultipartMaxMemory = DefaultUploadMultipartMemory
	}
	if c.Uploads.RatePerMinute < 0 {
		c.Uploads.RatePerMinute = DefaultUploadRatePerMinute
	}
	if c.Uploads.Burst <= 0 {
		c.Uploads.Burst = DefaultUploadBurst
	}
	if strings.TrimSpace(c.Auth.SessionTTL) == "" {
		c.Auth.SessionTTL = DefaultSessionTTL.String()
	}
	c.Uploads.AllowedTypes = normalizeConfiguredTypes(c.Uploads.AllowedTypes)
}

func normalizeConfiguredTypes(rawValues []string) []string {
	if len(rawValues) == 0 {
		return nil
	}
	out := make([]string, 0, len(rawValues))
	seen := map[models.Extension]struct{}{}
	for _, raw := range rawValues {
		ext, err := models.ParseExtension(raw)
		if err != nil {
			continue
		}
		if _, ok := seen[ext]; ok {
			continue
		}
		seen[ext] = struct{}{}
		out = append(out, string(ext))
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
