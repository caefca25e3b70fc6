package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"imgvault/internal/api"
	"imgvault/internal/config"
)

// version is set at build time via -ldflags.
var version = "dev"

const (
	exitFailure = 1
	// exitPartial reports a bulk delete that applied only some items.
	exitPartial = 2
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitFailure
	}
	if cfg.TrustedProjectConfigPath != "" {
		fmt.Fprintf(os.Stderr, "warning: using trusted project config from %s\n", cfg.TrustedProjectConfigPath)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err = newRootCmd(cfg).ExecuteContext(ctx)
	if err == nil {
		return 0
	}
	for _, line := range formatCLIError(err) {
		fmt.Fprintln(os.Stderr, line)
	}
	return exitCode(err)
}

func exitCode(err error) int {
	var bulkErr *api.BulkError
	if errors.As(err, &bulkErr) {
		return exitPartial
	}
	return exitFailure
}
