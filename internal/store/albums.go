package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"imgvault/internal/models"
)

// InsertAlbum creates an album. A duplicate name for the same owner returns ErrConflict.
func (s *Store) InsertAlbum(ctx context.Context, album *models.Album) error {
	if album == nil {
		return fmt.Errorf("album is required")
	}
	ownerID, err := requireOwner(album.OwnerID)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO albums (album_name, user_id, description, created_at)
		VALUES (?, ?, ?, ?)
	`, album.Name, ownerID, nullIfEmpty(album.Description), dbFormatTime(album.CreatedAt))
	if err != nil {
		if isUniqueConstraint(err) {
			return fmt.Errorf("album %q: %w", album.Name, ErrConflict)
		}
		if isForeignKeyConstraint(err) {
			return fmt.Errorf("owner %s: %w", ownerID, ErrNotFound)
		}
		return err
	}
	return nil
}

// GetAlbum returns one owned album with its member count, or nil when absent.
func (s *Store) GetAlbum(ctx context.Context, name, ownerID string) (*models.Album, error) {
	ownerID, err := requireOwner(ownerID)
	if err != nil {
		return nil, err
	}
	row := s.db.QueryRowContext(ctx, `
		SELECT a.album_name, a.user_id, a.description, a.created_at,
		       (SELECT COUNT(*) FROM album_images ai WHERE ai.album_name = a.album_name AND ai.user_id = a.user_id)
		FROM albums a
		WHERE a.album_name = ? AND a.user_id = ?
		LIMIT 1
	`, strings.TrimSpace(name), ownerID)
	return scanAlbum(row)
}

// AlbumExists reports whether ownerID has an album with this name.
func (s *Store) AlbumExists(ctx context.Context, name, ownerID string) (bool, error) {
	ownerID, err := requireOwner(ownerID)
	if err != nil {
		return false, err
	}
	var exists int
	err = s.db.QueryRowContext(ctx, "SELECT 1 FROM albums WHERE album_name = ? AND user_id = ? LIMIT 1", strings.TrimSpace(name), ownerID).Scan(&exists)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// ListAlbumsForOwner returns all albums of one owner sorted by name.
func (s *Store) ListAlbumsForOwner(ctx context.Context, ownerID string) ([]models.Album, error) {
	ownerID, err := requireOwner(ownerID)
	if err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT a.album_name, a.user_id, a.description, a.created_at, COUNT(ai.image_id)
		FROM albums a
		LEFT JOIN album_images ai ON ai.album_name = a.album_name AND ai.user_id = a.user_id
		WHERE a.user_id = ?
		GROUP BY a.album_name, a.user_id
		ORDER BY a.album_name ASC
	`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	albums := make([]models.Album, 0)
	for rows.Next() {
		album, err := scanAlbum(rows)
		if err != nil {
			return nil, err
		}
		if album == nil {
			continue
		}
		albums = append(albums, *album)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return albums, nil
}

// DeleteAlbumRecord removes one owned album and all of its memberships.
// Member images are untouched. It reports false when the album is absent.
func (s *Store) DeleteAlbumRecord(ctx context.Context, name, ownerID string) (deleted bool, err error) {
	ownerID, err = requireOwner(ownerID)
	if err != nil {
		return false, err
	}
	name = strings.TrimSpace(name)

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
		WHERE album_name = ? AND user_id = ?
	`, name, ownerID); err != nil {
		return false, err
	}
	result, err := tx.ExecContext(ctx, `
		DELETE FROM albums
		WHERE album_name = ? AND user_id = ?
	`, name, ownerID)
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

// AddMembership attaches an owned image to an owned album. Re-adding an
// existing member is a no-op. It reports false when either side is absent.
func (s *Store) AddMembership(ctx context.Context, albumName, ownerID, imageID string, now time.Time) (added bool, err error) {
	ownerID, err = requireOwner(ownerID)
	if err != nil {
		return false, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	added, err = addMembershipTx(ctx, tx, albumName, ownerID, imageID, now)
	if err != nil {
		return false, err
	}
	if err = tx.Commit(); err != nil {
		return false, err
	}
	return added, nil
}

// RemoveMembership detaches one image from one album. It reports false when
// the image was not a member.
func (s *Store) RemoveMembership(ctx context.Context, albumName, ownerID, imageID string) (bool, error) {
	ownerID, err := requireOwner(ownerID)
	if err != nil {
		return false, err
	}
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM album_images
		WHERE album_name = ? AND user_id = ? AND image_id = ?
	`, strings.TrimSpace(albumName), ownerID, strings.TrimSpace(imageID))
	if err != nil {
		return false, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// ListMembersOfAlbum returns the images attached to one owned album.
func (s *Store) ListMembersOfAlbum(ctx context.Context, albumName, ownerID string) ([]models.Image, error) {
	ownerID, err := requireOwner(ownerID)
	if err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT i.id, i.extension, i.image_caption, i.image_type, i.image_size, i.image_upload_date, i.user_id
		FROM album_images ai
		JOIN images i ON i.id = ai.image_id AND i.user_id = ai.user_id
		WHERE ai.album_name = ? AND ai.user_id = ?
		ORDER BY ai.added_at ASC, i.id ASC
	`, strings.TrimSpace(albumName), ownerID)
	if err != nil {
		return nil, err
	}
	return collectImages(rows)
}

// RemoveMembershipsForAlbum detaches every image from one owned album and
// returns the number of memberships removed.
func (s *Store) RemoveMembershipsForAlbum(ctx context.Context, albumName, ownerID string) (int64, error) {
	ownerID, err := requireOwner(ownerID)
	if err != nil {
		return 0, err
	}
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM album_images
		WHERE album_name = ? AND user_id = ?
	`, strings.TrimSpace(albumName), ownerID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// RemoveMembershipsForImage detaches one owned image from every album.
func (s *Store) RemoveMembershipsForImage(ctx context.Context, imageID, ownerID string) (int64, error) {
	ownerID, err := requireOwner(ownerID)
	if err != nil {
		return 0, err
	}
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM album_images
		WHERE image_id = ? AND user_id = ?
	`, strings.TrimSpace(imageID), ownerID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// ListAlbumNamesForImage returns the names of albums one owned image belongs to.
func (s *Store) ListAlbumNamesForImage(ctx context.Context, imageID, ownerID string) ([]string, error) {
	ownerID, err := requireOwner(ownerID)
	if err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT album_name
		FROM album_images
		WHERE image_id = ? AND user_id = ?
		ORDER BY album_name ASC
	`, strings.TrimSpace(imageID), ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	names := make([]string, 0)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return names, nil
}

// addMembershipTx checks both endpoints belong to ownerID before inserting.
func addMembershipTx(ctx context.Context, tx *sql.Tx, albumName, ownerID, imageID string, now time.Time) (bool, error) {
	albumName = strings.TrimSpace(albumName)
	imageID = strings.TrimSpace(imageID)

	var found int
	err := tx.QueryRowContext(ctx, `
		SELECT
		  (SELECT COUNT(*) FROM albums WHERE album_name = ? AND user_id = ?) +
		  (SELECT COUNT(*) FROM images WHERE id = ? AND user_id = ?)
	`, albumName, ownerID, imageID, ownerID).Scan(&found)
	if err != nil {
		return false, err
	}
	if found != 2 {
		return false, nil
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT OR IGNORE INTO album_images (album_name, user_id, image_id, added_at)
		VALUES (?, ?, ?, ?)
	`, albumName, ownerID, imageID, dbFormatTime(now)); err != nil {
		return false, err
	}
	return true, nil
}

func scanAlbum(scanner interface {
	Scan(dest ...any) error
}) (*models.Album, error) {
	var album models.Album
	var description sql.NullString
	var createdAt string
	if err := scanner.Scan(&album.Name, &album.OwnerID, &description, &createdAt, &album.ImageCount); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	if description.Valid {
		album.Description = description.String
	}
	parsed, err := dbParseTime(createdAt)
	if err != nil {
		return nil, err
	}
	album.CreatedAt = parsed
	return &album, nil
}
