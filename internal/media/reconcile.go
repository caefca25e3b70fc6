package media

import (
	"context"
	"time"

	"imgvault/internal/blobstore"
	"imgvault/internal/models"
)

// DefaultOrphanMinAge protects blobs of uploads that are still between the
// blob write and the record insert.
const DefaultOrphanMinAge = time.Hour

// Reconcile finding kinds, used as metric labels.
const (
	kindOrphanBlob     = "orphan_blob"
	kindDanglingRecord = "dangling_record"
)

// ReconcileOptions controls one sweep.
type ReconcileOptions struct {
	// Apply deletes what the sweep finds. Without it the sweep only reports.
	Apply bool
	// MinAge skips orphan blobs younger than this.
	MinAge time.Duration
}

// ReconcileResult reports one sweep.
type ReconcileResult struct {
	OrphanBlobs     []string `json:"orphan_blobs" yaml:"orphan_blobs"`
	DanglingRecords []string `json:"dangling_records" yaml:"dangling_records"`
	SkippedYoung    int      `json:"skipped_young" yaml:"skipped_young"`
	DeletedBlobs    int      `json:"deleted_blobs" yaml:"deleted_blobs"`
	DeletedRecords  int      `json:"deleted_records" yaml:"deleted_records"`
	FailedCount     int      `json:"failed_count" yaml:"failed_count"`
	ReclaimedBytes  int64    `json:"reclaimed_bytes" yaml:"reclaimed_bytes"`
	DryRun          bool     `json:"dry_run" yaml:"dry_run"`
}

// Reconcile finds blobs without a record and records without a blob. With
// opts.Apply it deletes both, re-checking each item first.
func (s *Service) Reconcile(ctx context.Context, opts ReconcileOptions) (ReconcileResult, error) {
	result := ReconcileResult{
		DryRun:          !opts.Apply,
		OrphanBlobs:     make([]string, 0),
		DanglingRecords: make([]string, 0),
	}
	if err := s.configured(); err != nil {
		return result, err
	}
	minAge := opts.MinAge
	if minAge < 0 {
		minAge = 0
	}

	// Records are listed before blobs so that an upload finishing mid-sweep
	// shows up as a young blob, never as a dangling record.
	refs, err := s.images.ListImageRefs(ctx)
	if err != nil {
		return result, storeFailure("list image refs", err)
	}
	blobs, err := s.blobs.List(ctx)
	if err != nil {
		return result, storeFailure("list blobs", err)
	}

	recorded := make(map[string]struct{}, len(refs))
	for _, ref := range refs {
		recorded[ref.ID+"."+string(ref.Extension)] = struct{}{}
	}
	stored := make(map[string]struct{}, len(blobs))
	for _, blob := range blobs {
		stored[blob.Name()] = struct{}{}
	}

	cutoff := s.now().Add(-minAge)
	var orphans []blobstore.BlobInfo
	for _, blob := range blobs {
		if _, ok := recorded[blob.Name()]; ok {
			continue
		}
		if blob.ModTime.After(cutoff) {
			result.SkippedYoung++
			continue
		}
		orphans = append(orphans, blob)
		result.OrphanBlobs = append(result.OrphanBlobs, blob.Name())
	}
	var dangling []models.ImageRef
	for _, ref := range refs {
		if _, ok := stored[ref.ID+"."+string(ref.Extension)]; ok {
			continue
		}
		dangling = append(dangling, ref)
		result.DanglingRecords = append(result.DanglingRecords, ref.ID+"."+string(ref.Extension))
	}
	s.metrics.RecordReconcile(kindOrphanBlob, len(orphans))
	s.metrics.RecordReconcile(kindDanglingRecord, len(dangling))

	if !opts.Apply {
		for _, blob := range orphans {
			result.ReclaimedBytes += blob.SizeBytes
		}
		return result, nil
	}

	for _, blob := range orphans {
		exists, err := s.images.ImageRecordExists(ctx, blob.ID)
		if err != nil {
			result.FailedCount++
			s.log().Error("reconcile record check failed", "blob", blob.Name(), "err", err)
			continue
		}
		if exists {
			continue
		}
		if err := s.blobs.Delete(ctx, blob.ID, blob.Ext); err != nil {
			result.FailedCount++
			s.log().Error("reconcile blob delete failed", "blob", blob.Name(), "err", err)
			continue
		}
		result.DeletedBlobs++
		result.ReclaimedBytes += blob.SizeBytes
		s.log().Info("reconcile removed orphan blob", "blob", blob.Name(), "size_bytes", blob.SizeBytes)
	}

	for _, ref := range dangling {
		exists, err := s.blobs.Exists(ctx, ref.ID, string(ref.Extension))
		if err != nil {
			result.FailedCount++
			s.log().Error("reconcile blob check failed", "image_id", ref.ID, "err", err)
			continue
		}
		if exists {
			continue
		}
		deleted, err := s.images.DeleteImageRecord(ctx, ref.ID, ref.OwnerID)
		if err != nil {
			result.FailedCount++
			s.log().Error("reconcile record delete failed", "image_id", ref.ID, "err", err)
			continue
		}
		if deleted {
			result.DeletedRecords++
			s.log().Info("reconcile removed dangling record", "image_id", ref.ID, "owner_id", ref.OwnerID)
		}
	}
	s.metrics.RecordReconcile("deleted_"+kindOrphanBlob, result.DeletedBlobs)
	s.metrics.RecordReconcile("deleted_"+kindDanglingRecord, result.DeletedRecords)

	return result, nil
}
