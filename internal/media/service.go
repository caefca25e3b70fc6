// Package media keeps image blobs and their metadata records consistent.
package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"imgvault/internal/blobstore"
	"imgvault/internal/metrics"
	"imgvault/internal/models"
	"imgvault/internal/store"
)

// Upload states, logged as the "state" attribute.
const (
	stateValidating      = "validating"
	stateWritingBlob     = "writing_blob"
	stateWritingMetadata = "writing_metadata"
	stateCommitted       = "committed"
	stateRejected        = "rejected"
	stateRolledBack      = "rolled_back"
)

// Options configures a Service. Zero values select defaults.
type Options struct {
	Logger            *slog.Logger
	Metrics           metrics.Recorder
	MaxUploadBytes    int64
	AllowedExtensions []models.Extension
	// NewID generates image ids. Defaults to random (version 4) UUIDs.
	NewID func() string
	Now   func() time.Time
}

// Service coordinates the blob store and the metadata store. It holds no
// mutable state of its own and is safe for concurrent use.
type Service struct {
	images    store.ImageStore
	blobs     blobstore.BlobStore
	validator *Validator
	logger    *slog.Logger
	metrics   metrics.Recorder
	newID     func() string
	now       func() time.Time
}

// UploadInput describes one upload request.
type UploadInput struct {
	Meta    FileMeta
	Content io.Reader
	Caption string
	// Albums lists owned albums the image joins in the same transaction.
	Albums []string
}

// NewService constructs a Service.
func NewService(images store.ImageStore, blobs blobstore.BlobStore, opts Options) *Service {
	svc := &Service{
		images:    images,
		blobs:     blobs,
		validator: NewValidator(opts.MaxUploadBytes, opts.AllowedExtensions),
		logger:    opts.Logger,
		metrics:   opts.Metrics,
		newID:     opts.NewID,
		now:       opts.Now,
	}
	if svc.metrics == nil {
		svc.metrics = metrics.Nop{}
	}
	if svc.newID == nil {
		svc.newID = uuid.NewString
	}
	if svc.now == nil {
		svc.now = time.Now
	}
	return svc
}

// MaxUploadBytes returns the configured upload size ceiling.
func (s *Service) MaxUploadBytes() int64 {
	return s.validator.MaxBytes()
}

func (s *Service) log() *slog.Logger {
	if s != nil && s.logger != nil {
		return s.logger
	}
	return slog.Default()
}

func (s *Service) configured() error {
	if s == nil || s.images == nil || s.blobs == nil {
		return storeFailure("media service", fmt.Errorf("media service is not configured"))
	}
	return nil
}

// Upload validates the file, writes the blob, then inserts the record. A
// failed insert deletes the blob again before the error is returned.
func (s *Service) Upload(ctx context.Context, ownerID string, in UploadInput) (models.Image, error) {
	var zero models.Image
	if err := s.configured(); err != nil {
		return zero, err
	}
	started := s.now()
	logger := s.log().With("owner_id", ownerID, "filename", in.Meta.Filename)

	logger.Debug("upload", "state", stateValidating)
	accepted, err := s.validator.Validate(in.Meta, in.Content)
	if err != nil {
		return zero, s.rejectUpload(logger, started, err)
	}

	caption := strings.TrimSpace(in.Caption)
	if err := models.ValidateCaption(caption); err != nil {
		return zero, s.rejectUpload(logger, started, fmt.Errorf("%w: %v", ErrInvalidInput, err))
	}
	albums, err := s.resolveAlbums(ctx, ownerID, in.Albums)
	if err != nil {
		return zero, s.rejectUpload(logger, started, err)
	}

	id := s.newID()
	logger = logger.With("image_id", id)
	logger.Debug("upload", "state", stateWritingBlob, "extension", accepted.Extension)
	size, err := s.blobs.Put(ctx, id, string(accepted.Extension), accepted.Content)
	if err != nil {
		switch {
		case errors.Is(err, blobstore.ErrExists):
			// The existing blob belongs to someone else's record; leave it alone.
			logger.Error("upload id collision", "err", err)
			s.metrics.RecordUpload(metrics.UploadFailed, 0, s.now().Sub(started))
			return zero, &ConflictError{ID: id, Err: err}
		case isValidationError(err):
			return zero, s.rejectUpload(logger, started, err)
		default:
			logger.Error("upload blob write failed", "err", err)
			s.metrics.RecordUpload(metrics.UploadFailed, 0, s.now().Sub(started))
			return zero, storeFailure("write blob", err)
		}
	}

	image := models.Image{
		ID:         id,
		Extension:  accepted.Extension,
		Caption:    caption,
		MimeType:   accepted.MimeType,
		SizeBytes:  size,
		UploadedAt: s.now().UTC(),
		OwnerID:    ownerID,
	}
	logger.Debug("upload", "state", stateWritingMetadata)
	if err := s.images.InsertImage(ctx, &image, albums); err != nil {
		s.compensate(ctx, logger, image)
		s.metrics.RecordUpload(metrics.UploadRolledBack, size, s.now().Sub(started))
		logger.Warn("upload", "state", stateRolledBack, "err", err)
		switch {
		case errors.Is(err, store.ErrConflict):
			return zero, &ConflictError{ID: id, Err: err}
		case errors.Is(err, store.ErrNotFound):
			return zero, fmt.Errorf("album: %w", ErrNotFound)
		default:
			return zero, storeFailure("insert image", err)
		}
	}

	s.metrics.RecordUpload(metrics.UploadCommitted, size, s.now().Sub(started))
	logger.Info("upload", "state", stateCommitted, "size_bytes", size, "extension", image.Extension)
	return image, nil
}

func (s *Service) rejectUpload(logger *slog.Logger, started time.Time, err error) error {
	reason, ok := RejectionReason(err)
	if ok {
		s.metrics.RecordRejection(string(reason))
	}
	s.metrics.RecordUpload(metrics.UploadRejected, 0, s.now().Sub(started))
	logger.Debug("upload", "state", stateRejected, "reason", reason, "err", err)
	return err
}

// compensate removes a blob whose record could not be written. It runs
// even when ctx is already canceled.
func (s *Service) compensate(ctx context.Context, logger *slog.Logger, image models.Image) {
	if err := s.blobs.Delete(context.WithoutCancel(ctx), image.ID, string(image.Extension)); err != nil {
		s.metrics.RecordCompensationFailure()
		logger.Error("upload compensation failed; blob left orphaned", "blob", image.BlobName(), "err", err)
	}
}

func (s *Service) resolveAlbums(ctx context.Context, ownerID string, raw []string) ([]string, error) {
	seen := make(map[string]struct{}, len(raw))
	albums := make([]string, 0, len(raw))
	for _, value := range raw {
		if strings.TrimSpace(value) == "" {
			continue
		}
		name, err := models.NormalizeAlbumName(value)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		exists, err := s.images.AlbumExists(ctx, name, ownerID)
		if err != nil {
			return nil, storeFailure("lookup album", err)
		}
		if !exists {
			return nil, fmt.Errorf("album %q: %w", name, ErrNotFound)
		}
		albums = append(albums, name)
	}
	return albums, nil
}

// GetImage returns an owned image. A record whose blob is missing is
// reported as ErrNotFound.
func (s *Service) GetImage(ctx context.Context, ownerID, id string) (models.Image, error) {
	var zero models.Image
	if err := s.configured(); err != nil {
		return zero, err
	}
	image, err := s.lookupImage(ctx, ownerID, id)
	if err != nil {
		return zero, err
	}
	exists, err := s.blobs.Exists(ctx, image.ID, string(image.Extension))
	if err != nil {
		return zero, storeFailure("stat blob", err)
	}
	if !exists {
		s.log().Warn("image record without blob", "image_id", image.ID, "owner_id", ownerID)
		return zero, fmt.Errorf("image %s: %w", id, ErrNotFound)
	}
	return *image, nil
}

// OpenImage returns an owned image and a reader over its blob.
func (s *Service) OpenImage(ctx context.Context, ownerID, id string) (models.Image, io.ReadCloser, error) {
	var zero models.Image
	if err := s.configured(); err != nil {
		return zero, nil, err
	}
	image, err := s.lookupImage(ctx, ownerID, id)
	if err != nil {
		return zero, nil, err
	}
	rc, err := s.blobs.Open(ctx, image.ID, string(image.Extension))
	if err != nil {
		if errors.Is(err, blobstore.ErrNotFound) {
			s.log().Warn("image record without blob", "image_id", image.ID, "owner_id", ownerID)
			return zero, nil, fmt.Errorf("image %s: %w", id, ErrNotFound)
		}
		return zero, nil, storeFailure("open blob", err)
	}
	return *image, rc, nil
}

// ListImages returns every image of the owner, newest first.
func (s *Service) ListImages(ctx context.Context, ownerID string) ([]models.Image, error) {
	if err := s.configured(); err != nil {
		return nil, err
	}
	images, err := s.images.ListImagesForOwner(ctx, ownerID)
	if err != nil {
		return nil, storeFailure("list images", err)
	}
	return images, nil
}

// UpdateCaption replaces the caption of an owned image. Blobs and
// memberships are not touched.
func (s *Service) UpdateCaption(ctx context.Context, ownerID, id, caption string) (models.Image, error) {
	var zero models.Image
	if err := s.configured(); err != nil {
		return zero, err
	}
	caption = strings.TrimSpace(caption)
	if err := models.ValidateCaption(caption); err != nil {
		return zero, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	updated, err := s.images.UpdateImageCaption(ctx, id, ownerID, caption)
	if err != nil {
		return zero, storeFailure("update caption", err)
	}
	if !updated {
		return zero, fmt.Errorf("image %s: %w", id, ErrNotFound)
	}
	image, err := s.lookupImage(ctx, ownerID, id)
	if err != nil {
		return zero, err
	}
	return *image, nil
}

// ImageAlbums returns the names of albums an owned image belongs to.
func (s *Service) ImageAlbums(ctx context.Context, ownerID, id string) ([]string, error) {
	if err := s.configured(); err != nil {
		return nil, err
	}
	if _, err := s.lookupImage(ctx, ownerID, id); err != nil {
		return nil, err
	}
	names, err := s.images.ListAlbumNamesForImage(ctx, id, ownerID)
	if err != nil {
		return nil, storeFailure("list image albums", err)
	}
	return names, nil
}

func (s *Service) lookupImage(ctx context.Context, ownerID, id string) (*models.Image, error) {
	image, err := s.images.GetImage(ctx, id, ownerID)
	if err != nil {
		return nil, storeFailure("get image", err)
	}
	if image == nil {
		return nil, fmt.Errorf("image %s: %w", id, ErrNotFound)
	}
	return image, nil
}

func isValidationError(err error) bool {
	_, ok := RejectionReason(err)
	return ok
}
