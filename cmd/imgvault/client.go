package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/url"
	"os"
	"os/exec"
	"strings"
	"time"

	"imgvault/internal/api"
	"imgvault/internal/config"
)

const (
	probeTimeout       = 500 * time.Millisecond
	serverStartTimeout = 3 * time.Second
	serverPollInterval = 100 * time.Millisecond
)

// withClient runs fn against the configured API. When the API URL is a
// loopback address and nothing answers there, a local server is started
// for the duration of the call.
func withClient(cfg *config.Config, fn func(*api.Client) error) error {
	client := api.NewClient(cfg.APIURL)

	local, err := ensureServer(cfg, client)
	if err != nil {
		return err
	}
	if local != nil {
		defer local.stop()
	}
	return fn(client)
}

// localServer is an `imgvault srv` child process.
type localServer struct {
	cmd *exec.Cmd
}

func (l *localServer) stop() {
	_ = l.cmd.Process.Kill()
	_ = l.cmd.Wait()
}

func ensureServer(cfg *config.Config, client *api.Client) (*localServer, error) {
	ctx, cancel := context.WithTimeout(context.Background(), probeTimeout)
	err := client.Ping(ctx)
	cancel()
	if err == nil {
		return nil, nil
	}
	if !isLoopbackURL(cfg.APIURL) {
		return nil, fmt.Errorf("imgvault server at %s is unreachable: %w", cfg.APIURL, err)
	}

	local, err := spawnLocalServer(cfg)
	if err != nil {
		return nil, err
	}
	if err := waitForServer(client, serverStartTimeout); err != nil {
		local.stop()
		return nil, err
	}
	return local, nil
}

func spawnLocalServer(cfg *config.Config) (*localServer, error) {
	exe, err := os.Executable()
	if err != nil {
		return nil, err
	}

	cmd := exec.Command(exe, "srv")
	cmd.Env = append(os.Environ(),
		"IMGVAULT_DB="+cfg.DBPath,
		"IMGVAULT_API_URL="+cfg.APIURL,
		"IMGVAULT_UPLOAD_DIR="+cfg.Storage.UploadDir,
	)
	cmd.Stdout = io.Discard
	cmd.Stderr = io.Discard
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start local server: %w", err)
	}
	return &localServer{cmd: cmd}, nil
}

func waitForServer(client *api.Client, timeout time.Duration) error {
	ticker := time.NewTicker(serverPollInterval)
	defer ticker.Stop()
	deadline := time.After(timeout)

	for {
		ctx, cancel := context.WithTimeout(context.Background(), 2*serverPollInterval)
		err := client.Ping(ctx)
		cancel()
		if err == nil {
			return nil
		}
		var opErr *net.OpError
		if !errors.As(err, &opErr) {
			// Something that is not an imgvault server holds the port.
			return err
		}

		select {
		case <-deadline:
			return errors.New("server did not start in time")
		case <-ticker.C:
		}
	}
}

func isLoopbackURL(raw string) bool {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return false
	}
	host := u.Hostname()
	if strings.EqualFold(host, "localhost") {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
