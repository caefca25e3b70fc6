package server

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"imgvault/internal/api"
	"imgvault/internal/media"
	"imgvault/internal/models"
)

func TestUploadImageCommitsBlobAndRecord(t *testing.T) {
	ts := newTestServer(t)
	token := ts.login(t, "up@example.com")
	ts.createAlbum(t, token, "trip")
	data := testPNG(t)

	img := ts.mustUpload(t, token, uploadForm{
		filename: "holiday.jpg",
		data:     data,
		caption:  "beach",
		albums:   []string{"trip", "trip", " "},
	})
	if img.Extension != models.ExtPNG {
		t.Fatalf("expected png detected from content, got %q", img.Extension)
	}
	if img.SizeBytes != int64(len(data)) {
		t.Fatalf("expected size %d, got %d", len(data), img.SizeBytes)
	}
	if img.Caption != "beach" {
		t.Fatalf("unexpected caption %q", img.Caption)
	}
	if n := ts.blobCount(t); n != 1 {
		t.Fatalf("expected one blob, got %d", n)
	}

	w := ts.do(t, http.MethodGet, "/api/images/"+img.ID, token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get image: %d %s", w.Code, w.Body.String())
	}
	var resp api.ImageResponse
	decodeBody(t, w, &resp)
	if resp.ID != img.ID {
		t.Fatalf("unexpected image id %q", resp.ID)
	}
	if len(resp.Albums) != 1 || resp.Albums[0] != "trip" {
		t.Fatalf("unexpected albums %v", resp.Albums)
	}
}

func TestUploadRejectsUnsupportedType(t *testing.T) {
	ts := newTestServer(t)
	token := ts.login(t, "txt@example.com")

	w := ts.upload(t, token, uploadForm{filename: "notes.png", data: []byte("just some text, not an image")})
	expectError(t, w, http.StatusUnsupportedMediaType, ErrCodeUnsupportedType)
	if n := ts.blobCount(t); n != 0 {
		t.Fatalf("expected no blobs after rejection, got %d", n)
	}
}

func TestUploadRejectsOversizedContent(t *testing.T) {
	ts := newTestServerWith(t, media.Options{MaxUploadBytes: 32}, Options{})
	token := ts.login(t, "big@example.com")

	w := ts.upload(t, token, uploadForm{filename: "big.png", data: testPNG(t)})
	expectError(t, w, http.StatusPreconditionFailed, ErrCodeUploadTooLarge)
	if n := ts.blobCount(t); n != 0 {
		t.Fatalf("expected no blobs after rejection, got %d", n)
	}
}

func TestUploadBodyCutByTransportCeiling(t *testing.T) {
	ts := newTestServerWith(t, media.Options{MaxUploadBytes: 32}, Options{})
	token := ts.login(t, "cut@example.com")

	padding := bytes.Repeat([]byte{0}, int(multipartFieldsOverhead)+1024)
	data := append(testPNG(t), padding...)
	w := ts.upload(t, token, uploadForm{filename: "huge.png", data: data})
	expectError(t, w, http.StatusPreconditionFailed, ErrCodeUploadTooLarge)
}

func TestUploadIntoUnknownAlbum(t *testing.T) {
	ts := newTestServer(t)
	token := ts.login(t, "noalbum@example.com")

	w := ts.upload(t, token, uploadForm{filename: "a.png", data: testPNG(t), albums: []string{"missing"}})
	expectError(t, w, http.StatusNotFound, ErrCodeAlbumNotFound)
	if n := ts.blobCount(t); n != 0 {
		t.Fatalf("expected no blobs, got %d", n)
	}
}

func TestUploadRequiresMultipartAndFile(t *testing.T) {
	ts := newTestServer(t)
	token := ts.login(t, "form@example.com")

	req := httptest.NewRequest(http.MethodPost, "/api/images", strings.NewReader(`{"caption":"x"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	ts.handler.ServeHTTP(w, req)
	expectError(t, w, http.StatusBadRequest, ErrCodeInvalidMultipart)

	w = ts.upload(t, token, uploadForm{caption: "no file"})
	expectError(t, w, http.StatusBadRequest, ErrCodeMissingRequired)
}

func TestUploadRateLimited(t *testing.T) {
	ts := newTestServerWith(t, media.Options{}, Options{UploadsPerMinute: 1, UploadBurst: 1})
	token := ts.login(t, "rate@example.com")

	ts.mustUpload(t, token, uploadForm{filename: "a.png", data: testPNG(t)})
	w := ts.upload(t, token, uploadForm{filename: "b.png", data: testPNG(t)})
	expectError(t, w, http.StatusTooManyRequests, ErrCodeResourceExhausted)
	if w.Header().Get("Retry-After") == "" {
		t.Fatal("expected Retry-After header")
	}
}

func TestImageContentStreamsBlob(t *testing.T) {
	ts := newTestServer(t)
	token := ts.login(t, "view@example.com")
	data := testPNG(t)
	img := ts.mustUpload(t, token, uploadForm{filename: "a.png", data: data})

	w := ts.do(t, http.MethodGet, "/api/images/"+img.ID+"/content", token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("content: %d %s", w.Code, w.Body.String())
	}
	if got := w.Header().Get("Content-Type"); got != "image/png" {
		t.Fatalf("unexpected content type %q", got)
	}
	if !bytes.Equal(w.Body.Bytes(), data) {
		t.Fatal("content does not match upload")
	}
}

func TestImagesAreOwnerScoped(t *testing.T) {
	ts := newTestServer(t)
	alice := ts.login(t, "alice@example.com")
	bob := ts.login(t, "bob@example.com")
	img := ts.mustUpload(t, alice, uploadForm{filename: "a.png", data: testPNG(t)})

	for _, tc := range []struct {
		method string
		path   string
		body   any
	}{
		{http.MethodGet, "/api/images/" + img.ID, nil},
		{http.MethodGet, "/api/images/" + img.ID + "/content", nil},
		{http.MethodPut, "/api/images/" + img.ID, api.CaptionUpdateRequest{Caption: ptr("mine now")}},
		{http.MethodDelete, "/api/images/" + img.ID, nil},
	} {
		w := ts.do(t, tc.method, tc.path, bob, tc.body)
		expectError(t, w, http.StatusNotFound, ErrCodeImageNotFound)
	}

	w := ts.do(t, http.MethodGet, "/api/images", bob, nil)
	var listed []models.Image
	decodeBody(t, w, &listed)
	if len(listed) != 0 {
		t.Fatalf("expected bob to see no images, got %d", len(listed))
	}

	w = ts.do(t, http.MethodGet, "/api/images", alice, nil)
	decodeBody(t, w, &listed)
	if len(listed) != 1 || listed[0].ID != img.ID {
		t.Fatalf("unexpected alice listing %+v", listed)
	}
}

func TestUpdateCaption(t *testing.T) {
	ts := newTestServer(t)
	token := ts.login(t, "cap@example.com")
	img := ts.mustUpload(t, token, uploadForm{filename: "a.png", data: testPNG(t), caption: "old"})

	w := ts.do(t, http.MethodPut, "/api/images/"+img.ID, token, api.CaptionUpdateRequest{Caption: ptr("new")})
	if w.Code != http.StatusOK {
		t.Fatalf("update caption: %d %s", w.Code, w.Body.String())
	}
	var updated models.Image
	decodeBody(t, w, &updated)
	if updated.Caption != "new" {
		t.Fatalf("unexpected caption %q", updated.Caption)
	}

	w = ts.do(t, http.MethodPut, "/api/images/"+img.ID, token, map[string]string{})
	expectError(t, w, http.StatusBadRequest, ErrCodeMissingRequired)
}

func TestInvalidImageID(t *testing.T) {
	ts := newTestServer(t)
	token := ts.login(t, "bad@example.com")

	w := ts.do(t, http.MethodGet, "/api/images/not-a-uuid", token, nil)
	expectError(t, w, http.StatusBadRequest, ErrCodeInvalidID)
}

func TestDeleteImageRemovesBlobAndRecord(t *testing.T) {
	ts := newTestServer(t)
	token := ts.login(t, "del@example.com")
	img := ts.mustUpload(t, token, uploadForm{filename: "a.png", data: testPNG(t)})

	w := ts.do(t, http.MethodDelete, "/api/images/"+img.ID, token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("delete: %d %s", w.Code, w.Body.String())
	}
	if n := ts.blobCount(t); n != 0 {
		t.Fatalf("expected blob removed, got %d", n)
	}

	w = ts.do(t, http.MethodGet, "/api/images/"+img.ID, token, nil)
	expectError(t, w, http.StatusNotFound, ErrCodeImageNotFound)

	w = ts.do(t, http.MethodDelete, "/api/images/"+img.ID, token, nil)
	expectError(t, w, http.StatusNotFound, ErrCodeImageNotFound)
}

func TestBulkDeleteCountsMissing(t *testing.T) {
	ts := newTestServer(t)
	alice := ts.login(t, "bulk@example.com")
	bob := ts.login(t, "other@example.com")
	a := ts.mustUpload(t, alice, uploadForm{filename: "a.png", data: testPNG(t)})
	b := ts.mustUpload(t, alice, uploadForm{filename: "b.png", data: testPNG(t)})
	foreign := ts.mustUpload(t, bob, uploadForm{filename: "c.png", data: testPNG(t)})

	w := ts.do(t, http.MethodPost, "/api/images/delete", alice, api.BulkDeleteRequest{
		IDs: []string{a.ID, b.ID, foreign.ID, a.ID},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("bulk delete: %d %s", w.Code, w.Body.String())
	}
	var resp api.BulkDeleteResponse
	decodeBody(t, w, &resp)
	if resp.Deleted != 2 || resp.Missing != 1 || resp.Failed != 0 || !resp.Complete {
		t.Fatalf("unexpected bulk result %+v", resp)
	}
	if n := ts.blobCount(t); n != 1 {
		t.Fatalf("expected only bob's blob to remain, got %d", n)
	}
}

func TestBulkDeleteRejectsInvalidIDs(t *testing.T) {
	ts := newTestServer(t)
	token := ts.login(t, "bulkbad@example.com")

	w := ts.do(t, http.MethodPost, "/api/images/delete", token, api.BulkDeleteRequest{IDs: []string{"nope"}})
	expectError(t, w, http.StatusBadRequest, ErrCodeInvalidID)
}

func ptr[T any](v T) *T {
	return &v
}
