package server

import (
	"bytes"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"imgvault/internal/api"
	"imgvault/internal/blobstore"
	"imgvault/internal/media"
	"imgvault/internal/metrics"
	"imgvault/internal/models"
	"imgvault/internal/store"
)

type testServer struct {
	srv      *Server
	handler  http.Handler
	store    *store.Store
	blobs    *blobstore.LocalStore
	registry *prometheus.Registry
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	return newTestServerWith(t, media.Options{}, Options{})
}

func newTestServerWith(t *testing.T, mediaOpts media.Options, opts Options) *testServer {
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

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	if mediaOpts.Logger == nil {
		mediaOpts.Logger = logger
	}
	if mediaOpts.Metrics == nil {
		mediaOpts.Metrics = collector
	}
	if opts.Logger == nil {
		opts.Logger = logger
	}
	if opts.Metrics == nil {
		opts.Metrics = collector
	}
	if opts.Gatherer == nil {
		opts.Gatherer = registry
	}

	svc := media.NewService(st, blobs, mediaOpts)
	srv := New("127.0.0.1:0", svc, st, opts)
	return &testServer{
		srv:      srv,
		handler:  srv.Handler(),
		store:    st,
		blobs:    blobs,
		registry: registry,
	}
}

func (ts *testServer) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(payload)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	ts.handler.ServeHTTP(w, req)
	return w
}

// login registers email and returns a bearer token for it.
func (ts *testServer) login(t *testing.T, email string) string {
	t.Helper()
	w := ts.do(t, http.MethodPost, "/api/register", "", api.RegisterRequest{
		Email:    email,
		Username: "user",
		Password: "correct-horse",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("register %s: %d %s", email, w.Code, w.Body.String())
	}
	w = ts.do(t, http.MethodPost, "/api/login", "", api.LoginRequest{Email: email, Password: "correct-horse"})
	if w.Code != http.StatusOK {
		t.Fatalf("login %s: %d %s", email, w.Code, w.Body.String())
	}
	var resp api.LoginResponse
	decodeBody(t, w, &resp)
	if resp.Token == "" {
		t.Fatal("expected token")
	}
	return resp.Token
}

func (ts *testServer) createAlbum(t *testing.T, token, name string) models.Album {
	t.Helper()
	w := ts.do(t, http.MethodPost, "/api/albums", token, api.AlbumCreateRequest{Name: name})
	if w.Code != http.StatusOK {
		t.Fatalf("create album %s: %d %s", name, w.Code, w.Body.String())
	}
	var album models.Album
	decodeBody(t, w, &album)
	return album
}

type uploadForm struct {
	filename string
	data     []byte
	caption  string
	albums   []string
}

func (ts *testServer) upload(t *testing.T, token string, form uploadForm) *httptest.ResponseRecorder {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if form.caption != "" {
		if err := mw.WriteField("caption", form.caption); err != nil {
			t.Fatalf("write caption: %v", err)
		}
	}
	for _, album := range form.albums {
		if err := mw.WriteField("album", album); err != nil {
			t.Fatalf("write album: %v", err)
		}
	}
	if form.data != nil {
		part, err := mw.CreateFormFile("image", form.filename)
		if err != nil {
			t.Fatalf("create form file: %v", err)
		}
		if _, err := part.Write(form.data); err != nil {
			t.Fatalf("write form file: %v", err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/images", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	ts.handler.ServeHTTP(w, req)
	return w
}

func (ts *testServer) mustUpload(t *testing.T, token string, form uploadForm) models.Image {
	t.Helper()
	w := ts.upload(t, token, form)
	if w.Code != http.StatusOK {
		t.Fatalf("upload: %d %s", w.Code, w.Body.String())
	}
	var img models.Image
	decodeBody(t, w, &img)
	return img
}

func (ts *testServer) blobCount(t *testing.T) int {
	t.Helper()
	blobs, err := ts.blobs.List(t.Context())
	if err != nil {
		t.Fatalf("list blobs: %v", err)
	}
	return len(blobs)
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder, dst any) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), dst); err != nil {
		t.Fatalf("decode body %q: %v", w.Body.String(), err)
	}
}

func expectError(t *testing.T, w *httptest.ResponseRecorder, status, errCode int) {
	t.Helper()
	if w.Code != status {
		t.Fatalf("expected status %d, got %d: %s", status, w.Code, w.Body.String())
	}
	var resp api.ErrorResponse
	decodeBody(t, w, &resp)
	if errCode != 0 && resp.ErrorCode != errCode {
		t.Fatalf("expected error_code %d, got %d (%s)", errCode, resp.ErrorCode, resp.Error)
	}
}

func testPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for x := 0; x < 8; x++ {
		for y := 0; y < 8; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 30), G: uint8(y * 30), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}
