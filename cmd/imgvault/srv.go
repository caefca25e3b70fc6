package main

import (
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"imgvault/internal/config"
	"imgvault/internal/metrics"
	"imgvault/internal/server"
)

func newSrvCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "srv",
		Short: "Run the imgvault API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := slog.Default().With("component", "server")

			addr, err := server.ListenAddr(cfg.APIURL)
			if err != nil {
				return err
			}

			registry := prometheus.NewRegistry()
			registry.MustRegister(
				collectors.NewGoCollector(),
				collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
			)
			recorder := metrics.NewCollector(registry)

			backend, err := openLocalBackend(cmd.Context(), cfg, logger, recorder)
			if err != nil {
				return err
			}
			defer backend.Close()
			logger.Info("storage ready", "backend", cfg.Storage.Backend, "db", cfg.DBPath)

			srv := server.New(addr, backend.media, backend.store, server.Options{
				Logger:           logger,
				Metrics:          recorder,
				Gatherer:         registry,
				SessionTTL:       cfg.SessionTTLDuration(),
				CORSOrigin:       cfg.Auth.CORSOrigin,
				MultipartMemory:  cfg.Uploads.MultipartMaxMemory,
				UploadsPerMinute: cfg.Uploads.RatePerMinute,
				UploadBurst:      cfg.Uploads.Burst,
			})
			return srv.ListenAndServe(cmd.Context())
		},
	}
}
