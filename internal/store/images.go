package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"imgvault/internal/models"
)

const imageColumns = `id, extension, image_caption, image_type, image_size, image_upload_date, user_id`

// InsertImage persists one image record and its initial album memberships
// in a single transaction. A duplicate id returns ErrConflict; a missing
// album returns ErrNotFound.
func (s *Store) InsertImage(ctx context.Context, image *models.Image, albums []string) (err error) {
	if image == nil {
		return fmt.Errorf("image is required")
	}
	ownerID, err := requireOwner(image.OwnerID)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO images (`+imageColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		image.ID,
		string(image.Extension),
		nullIfEmpty(image.Caption),
		image.MimeType,
		image.SizeBytes,
		dbFormatTime(image.UploadedAt),
		ownerID,
	)
	if err != nil {
		if isUniqueConstraint(err) {
			return fmt.Errorf("image %s: %w", image.ID, ErrConflict)
		}
		return err
	}

	for _, album := range albums {
		var added bool
		added, err = addMembershipTx(ctx, tx, album, ownerID, image.ID, image.UploadedAt)
		if err != nil {
			return err
		}
		if !added {
			err = fmt.Errorf("album %q: %w", album, ErrNotFound)
			return err
		}
	}

	return tx.Commit()
}

// GetImage returns one image owned by ownerID, or nil when absent.
func (s *Store) GetImage(ctx context.Context, id, ownerID string) (*models.Image, error) {
	ownerID, err := requireOwner(ownerID)
	if err != nil {
		return nil, err
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, nil
	}
	row := s.db.QueryRowContext(ctx, `
		SELECT `+imageColumns+`
		FROM images
		WHERE id = ? AND user_id = ?
		LIMIT 1
	`, id, ownerID)
	return scanImage(row)
}

// ListImagesForOwner returns all images of one owner, newest first.
func (s *Store) ListImagesForOwner(ctx context.Context, ownerID string) ([]models.Image, error) {
	ownerID, err := requireOwner(ownerID)
	if err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+imageColumns+`
		FROM images
		WHERE user_id = ?
		ORDER BY image_upload_date DESC, id ASC
	`, ownerID)
	if err != nil {
		return nil, err
	}
	return collectImages(rows)
}

// ListImageRefs returns id, extension and owner for every stored image.
// It is not owner-scoped and exists for maintenance sweeps.
func (s *Store) ListImageRefs(ctx context.Context) ([]models.ImageRef, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, extension, user_id
		FROM images
		ORDER BY id ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	refs := make([]models.ImageRef, 0)
	for rows.Next() {
		var ref models.ImageRef
		var ext string
		if err := rows.Scan(&ref.ID, &ext, &ref.OwnerID); err != nil {
			return nil, err
		}
		ref.Extension = models.Extension(ext)
		refs = append(refs, ref)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return refs, nil
}

// ImageRecordExists reports whether any owner has an image with this id.
// It is not owner-scoped and exists for maintenance sweeps.
func (s *Store) ImageRecordExists(ctx context.Context, id string) (bool, error) {
	var exists int
	err := s.db.QueryRowContext(ctx, "SELECT 1 FROM images WHERE id = ? LIMIT 1", strings.TrimSpace(id)).Scan(&exists)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// UpdateImageCaption replaces the caption of one owned image.
// It reports false when no such image exists under ownerID.
func (s *Store) UpdateImageCaption(ctx context.Context, id, ownerID, caption string) (bool, error) {
	ownerID, err := requireOwner(ownerID)
	if err != nil {
		return false, err
	}
	result, err := s.db.ExecContext(ctx, `
		UPDATE images
		SET image_caption = ?
		WHERE id = ? AND user_id = ?
	`, nullIfEmpty(caption), strings.TrimSpace(id), ownerID)
	if err != nil {
		return false, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// DeleteImageRecord removes one owned image row together with its album
// memberships. It reports false when no such image exists under ownerID.
func (s *Store) DeleteImageRecord(ctx context.Context, id, ownerID string) (deleted bool, err error) {
	ownerID, err = requireOwner(ownerID)
	if err != nil {
		return false, err
	}
	id = strings.TrimSpace(id)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `
		DELETE FROM album_images
		WHERE image_id = ? AND user_id = ?
	`, id, ownerID); err != nil {
		return false, err
	}

	result, err := tx.ExecContext(ctx, `
		DELETE FROM images
		WHERE id = ? AND user_id = ?
	`, id, ownerID)
	if err != nil {
		return false, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}

	if err = tx.Commit(); err != nil {
		return false, err
	}
	return affected > 0, nil
}

func collectImages(rows *sql.Rows) ([]models.Image, error) {
	defer rows.Close()

	images := make([]models.Image, 0)
	for rows.Next() {
		image, err := scanImage(rows)
		if err != nil {
			return nil, err
		}
		if image == nil {
			continue
		}
		images = append(images, *image)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return images, nil
}

func scanImage(scanner interface {
	Scan(dest ...any) error
}) (*models.Image, error) {
	var image models.Image
	var ext string
	var caption sql.NullString
	var uploadedAt string
	if err := scanner.Scan(&image.ID, &ext, &caption, &image.MimeType, &image.SizeBytes, &uploadedAt, &image.OwnerID); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	image.Extension = models.Extension(ext)
	if caption.Valid {
		image.Caption = caption.String
	}
	parsed, err := dbParseTime(uploadedAt)
	if err != nil {
		return nil, err
	}
	image.UploadedAt = parsed
	return &image, nil
}
