package main

import (
	"context"
	"fmt"
	"log/slog"

	"imgvault/internal/blobstore"
	"imgvault/internal/config"
	"imgvault/internal/media"
	"imgvault/internal/metrics"
	"imgvault/internal/store"
)

// localBackend is the store pair used by commands that work on the
// database and blob storage directly instead of through the API.
type localBackend struct {
	store *store.Store
	blobs blobstore.BlobStore
	media *media.Service
}

func (b *localBackend) Close() error {
	if b == nil || b.store == nil {
		return nil
	}
	return b.store.Close()
}

func openLocalBackend(ctx context.Context, cfg *config.Config, logger *slog.Logger, recorder metrics.Recorder) (*localBackend, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config not initialized")
	}
	if cfg.DBPath == "" {
		return nil, fmt.Errorf("db path is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	blobs, err := openBlobStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	logger.Debug("opening database", "path", cfg.DBPath)
	st, err := store.Open(cfg.DBPath)
	if err != nil {
		return nil, err
	}

	svc := media.NewService(st, blobs, media.Options{
		Logger:            logger,
		Metrics:           recorder,
		MaxUploadBytes:    cfg.Uploads.MaxBytes,
		AllowedExtensions: cfg.AllowedExtensions(),
	})
	return &localBackend{store: st, blobs: blobs, media: svc}, nil
}

func openBlobStore(ctx context.Context, cfg *config.Config) (blobstore.BlobStore, error) {
	switch cfg.Storage.Backend {
	case config.BackendMinio:
		return blobstore.NewMinioStore(ctx, blobstore.MinioConfig{
			Endpoint:  cfg.Storage.MinioEndpoint,
			AccessKey: cfg.Storage.MinioAccessKey,
			SecretKey: cfg.Storage.MinioSecretKey,
			Bucket:    cfg.Storage.MinioBucket,
			Prefix:    cfg.Storage.MinioPrefix,
			UseSSL:    cfg.Storage.MinioUseSSL,
		})
	default:
		return blobstore.NewLocalStore(cfg.Storage.UploadDir)
	}
}
