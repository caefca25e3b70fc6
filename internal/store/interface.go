package store

import (
	"context"
	"time"

	"imgvault/internal/models"
)

// ImageStore abstracts image and album metadata storage backends.
type ImageStore interface {
	InsertImage(ctx context.Context, image *models.Image, albums []string) error
	GetImage(ctx context.Context, id, ownerID string) (*models.Image, error)
	ListImagesForOwner(ctx context.Context, ownerID string) ([]models.Image, error)
	ListImageRefs(ctx context.Context) ([]models.ImageRef, error)
	ImageRecordExists(ctx context.Context, id string) (bool, error)
	UpdateImageCaption(ctx context.Context, id, ownerID, caption string) (bool, error)
	DeleteImageRecord(ctx context.Context, id, ownerID string) (bool, error)

	InsertAlbum(ctx context.Context, album *models.Album) error
	GetAlbum(ctx context.Context, name, ownerID string) (*models.Album, error)
	AlbumExists(ctx context.Context, name, ownerID string) (bool, error)
	ListAlbumsForOwner(ctx context.Context, ownerID string) ([]models.Album, error)
	DeleteAlbumRecord(ctx context.Context, name, ownerID string) (bool, error)

	AddMembership(ctx context.Context, albumName, ownerID, imageID string, now time.Time) (bool, error)
	RemoveMembership(ctx context.Context, albumName, ownerID, imageID string) (bool, error)
	ListMembersOfAlbum(ctx context.Context, albumName, ownerID string) ([]models.Image, error)
	RemoveMembershipsForAlbum(ctx context.Context, albumName, ownerID string) (int64, error)
	RemoveMembershipsForImage(ctx context.Context, imageID, ownerID string) (int64, error)
	ListAlbumNamesForImage(ctx context.Context, imageID, ownerID string) ([]string, error)

	DeleteUserRecord(ctx context.Context, userID string) (bool, error)
}

// UserStore abstracts user and session persistence.
type UserStore interface {
	CreateUser(ctx context.Context, email, username, passwordHash string, now time.Time) (*AuthUser, error)
	GetUserByEmail(ctx context.Context, email string) (*AuthUser, error)
	GetUserByID(ctx context.Context, id string) (*AuthUser, error)
	ListUsers(ctx context.Context) ([]AuthUser, error)
	CreateSession(ctx context.Context, userID, tokenHash string, expiresAt, createdAt time.Time) error
	GetUserBySessionTokenHash(ctx context.Context, tokenHash string, now time.Time) (*AuthUser, error)
	RevokeSessionByTokenHash(ctx context.Context, tokenHash string, revokedAt time.Time) error
	DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error)
}

var (
	_ ImageStore = (*Store)(nil)
	_ UserStore  = (*Store)(nil)
)
