package media

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"imgvault/internal/models"
	"imgvault/internal/store"
)

// CreateAlbum creates an album in the owner's namespace.
func (s *Service) CreateAlbum(ctx context.Context, ownerID, name, description string) (models.Album, error) {
	var zero models.Album
	if err := s.configured(); err != nil {
		return zero, err
	}
	name, err := models.NormalizeAlbumName(name)
	if err != nil {
		return zero, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	album := models.Album{
		Name:        name,
		Description: strings.TrimSpace(description),
		OwnerID:     ownerID,
		CreatedAt:   s.now().UTC(),
	}
	if err := s.images.InsertAlbum(ctx, &album); err != nil {
		if errors.Is(err, store.ErrConflict) {
			return zero, fmt.Errorf("album %q: %w", name, ErrAlbumExists)
		}
		return zero, storeFailure("insert album", err)
	}
	return album, nil
}

// GetAlbum returns one owned album.
func (s *Service) GetAlbum(ctx context.Context, ownerID, name string) (models.Album, error) {
	var zero models.Album
	if err := s.configured(); err != nil {
		return zero, err
	}
	album, err := s.images.GetAlbum(ctx, strings.TrimSpace(name), ownerID)
	if err != nil {
		return zero, storeFailure("get album", err)
	}
	if album == nil {
		return zero, fmt.Errorf("album %q: %w", name, ErrNotFound)
	}
	return *album, nil
}

// ListAlbums returns the owner's albums sorted by name.
func (s *Service) ListAlbums(ctx context.Context, ownerID string) ([]models.Album, error) {
	if err := s.configured(); err != nil {
		return nil, err
	}
	albums, err := s.images.ListAlbumsForOwner(ctx, ownerID)
	if err != nil {
		return nil, storeFailure("list albums", err)
	}
	return albums, nil
}

// ListAlbumImages returns the images attached to an owned album.
func (s *Service) ListAlbumImages(ctx context.Context, ownerID, name string) ([]models.Image, error) {
	if err := s.configured(); err != nil {
		return nil, err
	}
	if err := s.ensureAlbum(ctx, ownerID, name); err != nil {
		return nil, err
	}
	images, err := s.images.ListMembersOfAlbum(ctx, strings.TrimSpace(name), ownerID)
	if err != nil {
		return nil, storeFailure("list album images", err)
	}
	return images, nil
}

// AddToAlbum attaches an owned image to an owned album.
func (s *Service) AddToAlbum(ctx context.Context, ownerID, name, imageID string) error {
	if err := s.configured(); err != nil {
		return err
	}
	added, err := s.images.AddMembership(ctx, strings.TrimSpace(name), ownerID, imageID, s.now().UTC())
	if err != nil {
		return storeFailure("add membership", err)
	}
	if !added {
		return fmt.Errorf("album %q or image %s: %w", name, imageID, ErrNotFound)
	}
	return nil
}

// RemoveFromAlbum detaches an image from an album. The image itself stays.
func (s *Service) RemoveFromAlbum(ctx context.Context, ownerID, name, imageID string) error {
	if err := s.configured(); err != nil {
		return err
	}
	removed, err := s.images.RemoveMembership(ctx, strings.TrimSpace(name), ownerID, imageID)
	if err != nil {
		return storeFailure("remove membership", err)
	}
	if !removed {
		return fmt.Errorf("image %s in album %q: %w", imageID, name, ErrNotFound)
	}
	return nil
}

func (s *Service) ensureAlbum(ctx context.Context, ownerID, name string) error {
	exists, err := s.images.AlbumExists(ctx, strings.TrimSpace(name), ownerID)
	if err != nil {
		return storeFailure("lookup album", err)
	}
	if !exists {
		return fmt.Errorf("album %q: %w", name, ErrNotFound)
	}
	return nil
}
