package blobstore

import (
	"context"
	"errors"
	"io"
	"time"
)

var (
	// ErrExists is returned by Put when a blob already occupies the target name.
	ErrExists = errors.New("blob already exists")
	// ErrNotFound is returned by Open when no blob is stored under the name.
	ErrNotFound = errors.New("blob not found")
)

// BlobInfo describes one stored blob.
type BlobInfo struct {
	ID        string
	Ext       string
	SizeBytes int64
	ModTime   time.Time
}

// Name returns the stored file name (id.ext).
func (b BlobInfo) Name() string {
	return b.ID + "." + b.Ext
}

// BlobStore is the byte-storage abstraction used by the media service.
// Blobs are addressed by generated id and extension.
type BlobStore interface {
	Put(ctx context.Context, id, ext string, r io.Reader) (int64, error)
	Open(ctx context.Context, id, ext string) (io.ReadCloser, error)
	Exists(ctx context.Context, id, ext string) (bool, error)
	Delete(ctx context.Context, id, ext string) error
	List(ctx context.Context) ([]BlobInfo, error)
}
