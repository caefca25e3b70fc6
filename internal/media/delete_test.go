package media

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"imgvault/internal/blobstore"
	"imgvault/internal/models"
	"imgvault/internal/store"
)

func TestDeleteImageThenRepeat(t *testing.T) {
	env := newTestEnv(t, Options{})
	ctx := context.Background()
	if _, err := env.svc.CreateAlbum(ctx, env.alice, "trip", ""); err != nil {
		t.Fatalf("create album: %v", err)
	}
	in := uploadInput("cat.png", testPNG(t))
	in.Albums = []string{"trip"}
	x := env.upload(t, env.alice, in)

	if err := env.svc.DeleteImage(ctx, env.alice, x.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := env.svc.GetImage(ctx, env.alice, x.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
	if env.blobExists(t, x) {
		t.Fatal("expected blob removed")
	}
	album, err := env.svc.GetAlbum(ctx, env.alice, "trip")
	if err != nil {
		t.Fatalf("get album: %v", err)
	}
	if album.ImageCount != 0 {
		t.Fatalf("expected membership removed, album has %d images", album.ImageCount)
	}

	if err := env.svc.DeleteImage(ctx, env.alice, x.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on repeat delete, got %v", err)
	}
	if err := env.svc.DeleteImage(ctx, env.alice, "never-existed"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown id, got %v", err)
	}
}

func TestDeleteImagesProcessesEveryItem(t *testing.T) {
	st, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	local, err := blobstore.NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatalf("new local store: %v", err)
	}
	ids := []string{"img-a", "img-b", "img-c"}
	next := 0
	newID := func() string {
		id := ids[next]
		next++
		return id
	}
	blobs := failingDeleteBlobs{LocalStore: local, fail: map[string]bool{"img-a": true}}
	env := newTestEnvWithBlobs(t, st, st, local, blobs, Options{NewID: newID})
	ctx := context.Background()

	var uploaded []models.Image
	for range ids {
		uploaded = append(uploaded, env.upload(t, env.alice, uploadInput("x.png", testPNG(t))))
	}

	result, err := env.svc.DeleteImages(ctx, env.alice, []string{"img-a", "img-b", "missing", "img-c", "img-b"})
	if !errors.Is(err, ErrBulkIncomplete) {
		t.Fatalf("expected ErrBulkIncomplete, got %v", err)
	}
	var failure *StoreFailure
	if !errors.As(err, &failure) {
		t.Fatalf("expected StoreFailure, got %T", err)
	}
	want := BulkResult{Requested: 4, Deleted: 2, Missing: 1, Failed: 1}
	if result != want {
		t.Fatalf("expected %#v, got %#v", want, result)
	}

	for _, img := range uploaded[1:] {
		if env.blobExists(t, img) {
			t.Fatalf("expected %s blob deleted despite earlier failure", img.ID)
		}
		if _, err := env.svc.GetImage(ctx, env.alice, img.ID); !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected %s gone, got %v", img.ID, err)
		}
	}
	// The failing item lost its record before its blob; reconcile picks it up.
	if _, err := env.svc.GetImage(ctx, env.alice, "img-a"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected record of failed item to be gone, got %v", err)
	}
	if !env.blobExists(t, uploaded[0]) {
		t.Fatal("expected failed blob delete to leave the blob")
	}
}

func TestDeleteImagesAllSucceed(t *testing.T) {
	env := newTestEnv(t, Options{})
	a := env.upload(t, env.alice, uploadInput("a.png", testPNG(t)))
	b := env.upload(t, env.alice, uploadInput("b.gif", testGIF(t)))
	other := env.upload(t, env.bob, uploadInput("c.png", testPNG(t)))

	result, err := env.svc.DeleteImages(context.Background(), env.alice, []string{a.ID, b.ID, other.ID})
	if err != nil {
		t.Fatalf("delete images: %v", err)
	}
	if result.Deleted != 2 || result.Missing != 1 || !result.OK() {
		t.Fatalf("unexpected result: %#v", result)
	}
	if !env.blobExists(t, other) {
		t.Fatal("bulk delete must not touch other owners' images")
	}
}

func TestDeleteAlbumFromStorageFlag(t *testing.T) {
	for _, fromStorage := range []bool{false, true} {
		name := "detach"
		if fromStorage {
			name = "from_storage"
		}
		t.Run(name, func(t *testing.T) {
			env := newTestEnv(t, Options{})
			ctx := context.Background()
			if _, err := env.svc.CreateAlbum(ctx, env.alice, "trip", "summer"); err != nil {
				t.Fatalf("create album: %v", err)
			}
			var members []models.Image
			for i := 0; i < 2; i++ {
				in := uploadInput("x.png", testPNG(t))
				in.Albums = []string{"trip"}
				members = append(members, env.upload(t, env.alice, in))
			}
			outsider := env.upload(t, env.alice, uploadInput("y.png", testPNG(t)))

			result, err := env.svc.DeleteAlbum(ctx, env.alice, "trip", fromStorage)
			if err != nil {
				t.Fatalf("delete album: %v", err)
			}
			if _, err := env.svc.GetAlbum(ctx, env.alice, "trip"); !errors.Is(err, ErrNotFound) {
				t.Fatalf("expected album gone, got %v", err)
			}

			for _, img := range members {
				_, getErr := env.svc.GetImage(ctx, env.alice, img.ID)
				if fromStorage {
					if !errors.Is(getErr, ErrNotFound) || env.blobExists(t, img) {
						t.Fatalf("expected member %s destroyed, err=%v", img.ID, getErr)
					}
				} else {
					if getErr != nil || !env.blobExists(t, img) {
						t.Fatalf("expected member %s retrievable, err=%v", img.ID, getErr)
					}
					albums, err := env.svc.ImageAlbums(ctx, env.alice, img.ID)
					if err != nil || len(albums) != 0 {
						t.Fatalf("expected no memberships left, got %v err=%v", albums, err)
					}
				}
			}
			if fromStorage && result.Deleted != 2 {
				t.Fatalf("expected 2 deleted, got %#v", result)
			}
			if !fromStorage && result.Detached != 2 {
				t.Fatalf("expected 2 detached, got %#v", result)
			}
			if _, err := env.svc.GetImage(ctx, env.alice, outsider.ID); err != nil {
				t.Fatalf("non-member image must survive: %v", err)
			}
		})
	}
}

func TestDeleteAlbumNotFound(t *testing.T) {
	env := newTestEnv(t, Options{})
	ctx := context.Background()
	if _, err := env.svc.CreateAlbum(ctx, env.alice, "trip", ""); err != nil {
		t.Fatalf("create album: %v", err)
	}
	if _, err := env.svc.DeleteAlbum(ctx, env.bob, "trip", true); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for other owner, got %v", err)
	}
	if _, err := env.svc.GetAlbum(ctx, env.alice, "trip"); err != nil {
		t.Fatalf("album must survive foreign delete: %v", err)
	}
}

func TestClearAlbum(t *testing.T) {
	env := newTestEnv(t, Options{})
	ctx := context.Background()
	if _, err := env.svc.CreateAlbum(ctx, env.alice, "trip", ""); err != nil {
		t.Fatalf("create album: %v", err)
	}
	in := uploadInput("x.png", testPNG(t))
	in.Albums = []string{"trip"}
	kept := env.upload(t, env.alice, in)

	result, err := env.svc.ClearAlbum(ctx, env.alice, "trip", false)
	if err != nil {
		t.Fatalf("clear album: %v", err)
	}
	if result.Detached != 1 {
		t.Fatalf("expected 1 detached, got %#v", result)
	}
	if _, err := env.svc.GetImage(ctx, env.alice, kept.ID); err != nil {
		t.Fatalf("detached image must survive: %v", err)
	}

	if err := env.svc.AddToAlbum(ctx, env.alice, "trip", kept.ID); err != nil {
		t.Fatalf("re-add: %v", err)
	}
	result, err = env.svc.ClearAlbum(ctx, env.alice, "trip", true)
	if err != nil {
		t.Fatalf("clear album from storage: %v", err)
	}
	if result.Deleted != 1 {
		t.Fatalf("expected 1 deleted, got %#v", result)
	}
	if env.blobExists(t, kept) {
		t.Fatal("expected blob deleted")
	}
	album, err := env.svc.GetAlbum(ctx, env.alice, "trip")
	if err != nil {
		t.Fatalf("album should remain after clear: %v", err)
	}
	if album.ImageCount != 0 {
		t.Fatalf("expected empty album, got %d", album.ImageCount)
	}
}

func TestAlbumMembershipOps(t *testing.T) {
	env := newTestEnv(t, Options{})
	ctx := context.Background()
	if _, err := env.svc.CreateAlbum(ctx, env.alice, "trip", ""); err != nil {
		t.Fatalf("create album: %v", err)
	}
	if _, err := env.svc.CreateAlbum(ctx, env.alice, " trip ", ""); !errors.Is(err, ErrAlbumExists) {
		t.Fatalf("expected ErrAlbumExists, got %v", err)
	}
	if _, err := env.svc.CreateAlbum(ctx, env.bob, "trip", ""); err != nil {
		t.Fatalf("same name for another owner should work: %v", err)
	}
	if _, err := env.svc.CreateAlbum(ctx, env.alice, "  ", ""); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}

	mine := env.upload(t, env.alice, uploadInput("a.png", testPNG(t)))
	theirs := env.upload(t, env.bob, uploadInput("b.png", testPNG(t)))

	if err := env.svc.AddToAlbum(ctx, env.alice, "trip", mine.ID); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := env.svc.AddToAlbum(ctx, env.alice, "trip", theirs.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for foreign image, got %v", err)
	}
	members, err := env.svc.ListAlbumImages(ctx, env.alice, "trip")
	if err != nil {
		t.Fatalf("list album images: %v", err)
	}
	if len(members) != 1 || members[0].ID != mine.ID {
		t.Fatalf("unexpected members: %#v", members)
	}
	if err := env.svc.RemoveFromAlbum(ctx, env.alice, "trip", mine.ID); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if err := env.svc.RemoveFromAlbum(ctx, env.alice, "trip", mine.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second remove, got %v", err)
	}
	if _, err := env.svc.ListAlbumImages(ctx, env.alice, "nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for missing album, got %v", err)
	}
}

func TestDeleteUserCascade(t *testing.T) {
	env := newTestEnv(t, Options{})
	ctx := context.Background()
	if _, err := env.svc.CreateAlbum(ctx, env.alice, "trip", ""); err != nil {
		t.Fatalf("create album: %v", err)
	}
	in := uploadInput("x.png", testPNG(t))
	in.Albums = []string{"trip"}
	a := env.upload(t, env.alice, in)
	b := env.upload(t, env.alice, uploadInput("y.jpg", testJPEG(t)))
	keep := env.upload(t, env.bob, uploadInput("z.png", testPNG(t)))

	result, err := env.svc.DeleteUser(ctx, env.alice)
	if err != nil {
		t.Fatalf("delete user: %v", err)
	}
	if result.Deleted != 2 || !result.OK() {
		t.Fatalf("unexpected result: %#v", result)
	}
	for _, img := range []models.Image{a, b} {
		if env.blobExists(t, img) {
			t.Fatalf("expected %s blob removed", img.ID)
		}
	}
	user, err := env.store.GetUserByID(ctx, env.alice)
	if err != nil || user != nil {
		t.Fatalf("expected user removed: %v %v", user, err)
	}
	if _, err := env.svc.GetImage(ctx, env.bob, keep.ID); err != nil {
		t.Fatalf("other users must be untouched: %v", err)
	}
}

func TestDeleteUserKeepsUserOnFailure(t *testing.T) {
	st, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	local, err := blobstore.NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatalf("new local store: %v", err)
	}
	ids := []string{"u-1", "u-2"}
	next := 0
	blobs := failingDeleteBlobs{LocalStore: local, fail: map[string]bool{"u-1": true}}
	env := newTestEnvWithBlobs(t, st, st, local, blobs, Options{NewID: func() string {
		id := ids[next]
		next++
		return id
	}})
	ctx := context.Background()
	env.upload(t, env.alice, uploadInput("x.png", testPNG(t)))
	env.upload(t, env.alice, uploadInput("y.png", testPNG(t)))

	result, err := env.svc.DeleteUser(ctx, env.alice)
	if !errors.Is(err, ErrBulkIncomplete) {
		t.Fatalf("expected ErrBulkIncomplete, got %v", err)
	}
	if result.Requested != 2 || result.Deleted != 1 || result.Failed != 1 {
		t.Fatalf("unexpected result: %#v", result)
	}
	user, err := st.GetUserByID(ctx, env.alice)
	if err != nil || user == nil {
		t.Fatalf("expected user kept, got %v err=%v", user, err)
	}
}
