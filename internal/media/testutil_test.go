package media

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"imgvault/internal/blobstore"
	"imgvault/internal/models"
	"imgvault/internal/store"
)

type testEnv struct {
	svc   *Service
	store *store.Store
	blobs *blobstore.LocalStore
	alice string
	bob   string
}

func newTestEnv(t *testing.T, opts Options) *testEnv {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	blobs, err := blobstore.NewLocalStore(filepath.Join(t.TempDir(), "uploads"))
	if err != nil {
		t.Fatalf("new local store: %v", err)
	}
	return newTestEnvWith(t, st, st, blobs, opts)
}

func newTestEnvWith(t *testing.T, st *store.Store, images store.ImageStore, blobs *blobstore.LocalStore, opts Options) *testEnv {
	t.Helper()
	return newTestEnvWithBlobs(t, st, images, blobs, blobs, opts)
}

func newTestEnvWithBlobs(t *testing.T, st *store.Store, images store.ImageStore, local *blobstore.LocalStore, blobs blobstore.BlobStore, opts Options) *testEnv {
	t.Helper()
	ctx := context.Background()
	alice, err := st.CreateUser(ctx, "alice@example.com", "alice", "hash", time.Now())
	if err != nil {
		t.Fatalf("create alice: %v", err)
	}
	bob, err := st.CreateUser(ctx, "bob@example.com", "bob", "hash", time.Now())
	if err != nil {
		t.Fatalf("create bob: %v", err)
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &testEnv{
		svc:   NewService(images, blobs, opts),
		store: st,
		blobs: local,
		alice: alice.ID,
		bob:   bob.ID,
	}
}

func testPNG(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, testPicture()); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func testJPEG(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, testPicture(), nil); err != nil {
		t.Fatalf("encode jpeg: %v", err)
	}
	return buf.Bytes()
}

func testGIF(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := gif.Encode(&buf, testPicture(), nil); err != nil {
		t.Fatalf("encode gif: %v", err)
	}
	return buf.Bytes()
}

func testPicture() image.Image {
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for x := 0; x < 4; x++ {
		for y := 0; y < 4; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 60), G: uint8(y * 60), B: 128, A: 255})
		}
	}
	return img
}

func uploadInput(name string, data []byte) UploadInput {
	return UploadInput{
		Meta:    FileMeta{Filename: name, DeclaredSize: int64(len(data))},
		Content: bytes.NewReader(data),
	}
}

func (e *testEnv) upload(t *testing.T, ownerID string, in UploadInput) models.Image {
	t.Helper()
	img, err := e.svc.Upload(context.Background(), ownerID, in)
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	return img
}

func (e *testEnv) blobExists(t *testing.T, img models.Image) bool {
	t.Helper()
	exists, err := e.blobs.Exists(context.Background(), img.ID, string(img.Extension))
	if err != nil {
		t.Fatalf("blob exists: %v", err)
	}
	return exists
}

func (e *testEnv) blobCount(t *testing.T) int {
	t.Helper()
	blobs, err := e.blobs.List(context.Background())
	if err != nil {
		t.Fatalf("list blobs: %v", err)
	}
	return len(blobs)
}

func (e *testEnv) recordCount(t *testing.T) int {
	t.Helper()
	refs, err := e.store.ListImageRefs(context.Background())
	if err != nil {
		t.Fatalf("list refs: %v", err)
	}
	return len(refs)
}
