package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"imgvault/internal/media"
	"imgvault/internal/metrics"
	"imgvault/internal/store"
)

const (
	allowRemoteEnvKey       = "IMGVAULT_ALLOW_REMOTE"
	readHeaderTimeout       = 5 * time.Second
	readTimeout             = 60 * time.Second
	writeTimeout            = 60 * time.Second
	idleTimeout             = 60 * time.Second
	shutdownTimeout         = 10 * time.Second
	sessionPurgeInterval    = time.Hour
	defaultMultipartMemory  = 8 << 20 // 8 MiB
	multipartFieldsOverhead = 1 << 20 // 1 MiB
)

// Options configures a Server. Zero values select defaults.
type Options struct {
	Logger          *slog.Logger
	Metrics         metrics.Recorder
	Gatherer        prometheus.Gatherer
	SessionTTL      time.Duration
	CORSOrigin      string
	MultipartMemory int64
	// UploadsPerMinute and UploadBurst bound uploads per owner; zero
	// UploadsPerMinute disables the limit.
	UploadsPerMinute int
	UploadBurst      int
}

// Server wraps HTTP handlers for the imgvault API.
type Server struct {
	addr            string
	media           *media.Service
	auth            *AuthService
	logger          *slog.Logger
	metrics         metrics.Recorder
	gatherer        prometheus.Gatherer
	corsOrigin      string
	multipartMemory int64
	loginLimiter    *loginRateLimiter
	uploadLimiter   *uploadRateLimiter
}

// New creates a new server instance.
func New(addr string, mediaService *media.Service, users store.UserStore, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	recorder := opts.Metrics
	if recorder == nil {
		recorder = metrics.Nop{}
	}
	multipartMemory := opts.MultipartMemory
	if multipartMemory <= 0 {
		multipartMemory = defaultMultipartMemory
	}

	return &Server{
		addr:            addr,
		media:           mediaService,
		auth:            NewAuthService(users, opts.SessionTTL),
		logger:          logger,
		metrics:         recorder,
		gatherer:        opts.Gatherer,
		corsOrigin:      strings.TrimSpace(opts.CORSOrigin),
		multipartMemory: multipartMemory,
		loginLimiter:    newLoginRateLimiter(loginMaxFailures, loginWindow, loginBlockFor),
		uploadLimiter:   newUploadRateLimiter(opts.UploadsPerMinute, opts.UploadBurst),
	}
}

// Handler returns the full middleware-wrapped handler.
func (s *Server) Handler() http.Handler {
	return s.withRecovery(s.withRequestLogging(s.withCORS(s.routes())))
}

// ListenAndServe starts the HTTP server and shuts it down when ctx is done.
func (s *Server) ListenAndServe(ctx context.Context) error {
	s.log().Info("starting server", "addr", s.addr)
	server := &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: readHeaderTimeout,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
	}

	go s.purgeSessions(ctx)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.log().Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) purgeSessions(ctx context.Context) {
	ticker := time.NewTicker(sessionPurgeInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			purged, err := s.auth.PurgeExpiredSessions(ctx, now.UTC())
			if err != nil {
				s.log().Warn("purge expired sessions", "error", err)
				continue
			}
			if purged > 0 {
				s.log().Debug("purged expired sessions", "count", purged)
			}
		}
	}
}

// ListenAddr converts a base API URL into a listen address.
func ListenAddr(apiURL string) (string, error) {
	if apiURL == "" {
		return "", fmt.Errorf("api url is required")
	}
	if u, err := url.Parse(apiURL); err == nil && u.Host != "" {
		host := u.Hostname()
		if !isAllowedListenHost(host) {
			return "", fmt.Errorf("remote listen host %q requires %s=true", host, allowRemoteEnvKey)
		}
		return u.Host, nil
	}

	host, _, err := net.SplitHostPort(apiURL)
	if err == nil && !isAllowedListenHost(host) {
		return "", fmt.Errorf("remote listen host %q requires %s=true", host, allowRemoteEnvKey)
	}

	return apiURL, nil
}

func isAllowedListenHost(host string) bool {
	if host == "" {
		return true
	}
	if strings.EqualFold(strings.TrimSpace(os.Getenv(allowRemoteEnvKey)), "true") {
		return true
	}
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

func (s *Server) log() *slog.Logger {
	if s != nil && s.logger != nil {
		return s.logger
	}
	return slog.Default()
}
