package media

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"imgvault/internal/metrics"
	"imgvault/internal/models"
	"imgvault/internal/store"
)

// BulkResult summarizes a bulk or cascading delete. Every item is
// attempted; there is no early exit on the first failure.
type BulkResult struct {
	Requested int `json:"requested" yaml:"requested"`
	Deleted   int `json:"deleted" yaml:"deleted"`
	Missing   int `json:"missing" yaml:"missing"`
	Failed    int `json:"failed" yaml:"failed"`
	// Detached counts album memberships removed without deleting images.
	Detached int `json:"detached,omitempty" yaml:"detached,omitempty"`
}

// OK reports whether every requested item was applied.
func (r BulkResult) OK() bool {
	return r.Failed == 0
}

func (r BulkResult) err(op string) error {
	if r.OK() {
		return nil
	}
	return storeFailure(op, fmt.Errorf("%w: %d of %d items failed", ErrBulkIncomplete, r.Failed, r.Requested))
}

// DeleteImage removes an owned image: the record and memberships first,
// then the blob. Deleting an absent id returns ErrNotFound.
func (s *Service) DeleteImage(ctx context.Context, ownerID, id string) error {
	if err := s.configured(); err != nil {
		return err
	}
	image, err := s.lookupImage(ctx, ownerID, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			s.metrics.RecordDelete(metrics.DeleteMissing, 1)
		}
		return err
	}
	deleted, err := s.deleteImage(ctx, *image)
	if err != nil {
		s.metrics.RecordDelete(metrics.DeleteFailed, 1)
		return err
	}
	if !deleted {
		s.metrics.RecordDelete(metrics.DeleteMissing, 1)
		return fmt.Errorf("image %s: %w", id, ErrNotFound)
	}
	s.metrics.RecordDelete(metrics.DeleteDeleted, 1)
	return nil
}

// DeleteImages removes each listed owned image. Absent ids count as
// missing. Partial progress is kept when an item fails.
func (s *Service) DeleteImages(ctx context.Context, ownerID string, ids []string) (BulkResult, error) {
	var result BulkResult
	if err := s.configured(); err != nil {
		return result, err
	}
	seen := make(map[string]struct{}, len(ids))
	for _, raw := range ids {
		id := strings.TrimSpace(raw)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		result.Requested++

		image, err := s.images.GetImage(ctx, id, ownerID)
		if err != nil {
			result.Failed++
			s.log().Error("bulk delete lookup failed", "image_id", id, "owner_id", ownerID, "err", err)
			continue
		}
		if image == nil {
			result.Missing++
			continue
		}
		s.applyDelete(ctx, *image, &result)
	}
	s.recordBulk(result)
	return result, result.err("delete images")
}

// DeleteAlbum removes an owned album and its memberships. With fromStorage
// the member images are deleted too; otherwise they stay retrievable. When
// a member image fails to delete the album is kept so the call can be
// repeated.
func (s *Service) DeleteAlbum(ctx context.Context, ownerID, name string, fromStorage bool) (BulkResult, error) {
	var result BulkResult
	if err := s.configured(); err != nil {
		return result, err
	}
	name = strings.TrimSpace(name)
	if err := s.ensureAlbum(ctx, ownerID, name); err != nil {
		return result, err
	}

	if fromStorage {
		if err := s.deleteMembers(ctx, ownerID, name, &result); err != nil {
			return result, err
		}
		s.recordBulk(result)
		if !result.OK() {
			s.log().Warn("album kept after incomplete delete", "album", name, "owner_id", ownerID, "failed", result.Failed)
			return result, result.err("delete album")
		}
	} else {
		members, err := s.images.ListMembersOfAlbum(ctx, name, ownerID)
		if err != nil {
			return result, storeFailure("list album images", err)
		}
		result.Detached = len(members)
	}

	deleted, err := s.images.DeleteAlbumRecord(ctx, name, ownerID)
	if err != nil {
		return result, storeFailure("delete album", err)
	}
	if !deleted {
		return result, fmt.Errorf("album %q: %w", name, ErrNotFound)
	}
	s.log().Info("album deleted", "album", name, "owner_id", ownerID, "from_storage", fromStorage, "images_deleted", result.Deleted)
	return result, nil
}

// ClearAlbum empties an owned album but keeps the album itself. With
// fromStorage the member images are deleted; otherwise only detached.
func (s *Service) ClearAlbum(ctx context.Context, ownerID, name string, fromStorage bool) (BulkResult, error) {
	var result BulkResult
	if err := s.configured(); err != nil {
		return result, err
	}
	name = strings.TrimSpace(name)
	if err := s.ensureAlbum(ctx, ownerID, name); err != nil {
		return result, err
	}

	if !fromStorage {
		removed, err := s.images.RemoveMembershipsForAlbum(ctx, name, ownerID)
		if err != nil {
			return result, storeFailure("clear album", err)
		}
		result.Detached = int(removed)
		return result, nil
	}

	if err := s.deleteMembers(ctx, ownerID, name, &result); err != nil {
		return result, err
	}
	s.recordBulk(result)
	return result, result.err("clear album")
}

// DeleteUser removes everything the owner has: images (blob and record),
// then albums, sessions and the user row. The user row is kept when any
// image fails to delete.
func (s *Service) DeleteUser(ctx context.Context, ownerID string) (BulkResult, error) {
	var result BulkResult
	if err := s.configured(); err != nil {
		return result, err
	}
	images, err := s.images.ListImagesForOwner(ctx, ownerID)
	if err != nil {
		return result, storeFailure("list images", err)
	}
	for _, image := range images {
		result.Requested++
		s.applyDelete(ctx, image, &result)
	}
	s.recordBulk(result)
	if !result.OK() {
		s.log().Warn("user kept after incomplete delete", "owner_id", ownerID, "failed", result.Failed)
		return result, result.err("delete user")
	}

	deleted, err := s.images.DeleteUserRecord(ctx, ownerID)
	if err != nil {
		if errors.Is(err, store.ErrUserHasImages) {
			// An upload landed while the cascade was running.
			return result, storeFailure("delete user", fmt.Errorf("%w: %v", ErrBulkIncomplete, err))
		}
		return result, storeFailure("delete user", err)
	}
	if !deleted {
		return result, fmt.Errorf("user %s: %w", ownerID, ErrNotFound)
	}
	s.log().Info("user deleted", "owner_id", ownerID, "images_deleted", result.Deleted)
	return result, nil
}

func (s *Service) deleteMembers(ctx context.Context, ownerID, name string, result *BulkResult) error {
	members, err := s.images.ListMembersOfAlbum(ctx, name, ownerID)
	if err != nil {
		return storeFailure("list album images", err)
	}
	for _, image := range members {
		result.Requested++
		s.applyDelete(ctx, image, result)
	}
	return nil
}

func (s *Service) applyDelete(ctx context.Context, image models.Image, result *BulkResult) {
	deleted, err := s.deleteImage(ctx, image)
	switch {
	case err != nil:
		result.Failed++
	case !deleted:
		result.Missing++
	default:
		result.Deleted++
	}
}

// deleteImage removes the record (with memberships) and then the blob. A
// record with no blob is detectable later; an orphan blob is not, so the
// record goes first.
func (s *Service) deleteImage(ctx context.Context, image models.Image) (bool, error) {
	logger := s.log().With("image_id", image.ID, "owner_id", image.OwnerID)
	deleted, err := s.images.DeleteImageRecord(ctx, image.ID, image.OwnerID)
	if err != nil {
		logger.Error("delete image record failed", "err", err)
		return false, storeFailure("delete image record", err)
	}
	if !deleted {
		return false, nil
	}
	if err := s.blobs.Delete(ctx, image.ID, string(image.Extension)); err != nil {
		logger.Error("delete blob failed; blob left orphaned", "blob", image.BlobName(), "err", err)
		return true, storeFailure("delete blob", err)
	}
	logger.Debug("image deleted")
	return true, nil
}

func (s *Service) recordBulk(result BulkResult) {
	s.metrics.RecordDelete(metrics.DeleteDeleted, result.Deleted)
	s.metrics.RecordDelete(metrics.DeleteMissing, result.Missing)
	s.metrics.RecordDelete(metrics.DeleteFailed, result.Failed)
}
