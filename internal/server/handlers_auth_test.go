package server

import (
	"net/http"
	"testing"

	"imgvault/internal/api"
	"imgvault/internal/models"
)

func TestRegisterLoginMeLogout(t *testing.T) {
	ts := newTestServer(t)
	token := ts.login(t, "Alice@Example.com")

	w := ts.do(t, http.MethodGet, "/api/users/me", token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("me: %d %s", w.Code, w.Body.String())
	}
	var me models.User
	decodeBody(t, w, &me)
	if me.Email != "alice@example.com" {
		t.Fatalf("expected normalized email, got %q", me.Email)
	}
	if me.ID == "" {
		t.Fatal("expected user id")
	}

	w = ts.do(t, http.MethodPost, "/api/logout", token, nil)
	if w.Code != http.StatusNoContent {
		t.Fatalf("logout: %d %s", w.Code, w.Body.String())
	}

	w = ts.do(t, http.MethodGet, "/api/users/me", token, nil)
	expectError(t, w, http.StatusUnauthorized, ErrCodeUnauthorized)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	ts := newTestServer(t)
	req := api.RegisterRequest{Email: "dup@example.com", Username: "dup", Password: "correct-horse"}

	if w := ts.do(t, http.MethodPost, "/api/register", "", req); w.Code != http.StatusOK {
		t.Fatalf("first register: %d %s", w.Code, w.Body.String())
	}
	w := ts.do(t, http.MethodPost, "/api/register", "", req)
	expectError(t, w, http.StatusConflict, ErrCodeEmailTaken)
}

func TestRegisterRejectsInvalidAccounts(t *testing.T) {
	ts := newTestServer(t)
	cases := []api.RegisterRequest{
		{Email: "not-an-email", Username: "bob", Password: "correct-horse"},
		{Email: "bob@example.com", Username: "", Password: "correct-horse"},
		{Email: "bob@example.com", Username: "bob", Password: "short"},
	}
	for _, req := range cases {
		w := ts.do(t, http.MethodPost, "/api/register", "", req)
		expectError(t, w, http.StatusBadRequest, 0)
	}
}

func TestLoginInvalidCredentials(t *testing.T) {
	ts := newTestServer(t)
	ts.login(t, "carol@example.com")

	w := ts.do(t, http.MethodPost, "/api/login", "", api.LoginRequest{Email: "carol@example.com", Password: "wrong-password"})
	expectError(t, w, http.StatusUnauthorized, ErrCodeUnauthorized)

	w = ts.do(t, http.MethodPost, "/api/login", "", api.LoginRequest{Email: "nobody@example.com", Password: "whatever-pass"})
	expectError(t, w, http.StatusUnauthorized, ErrCodeUnauthorized)
}

func TestLoginRateLimitedAfterRepeatedFailures(t *testing.T) {
	ts := newTestServer(t)
	ts.login(t, "dave@example.com")

	bad := api.LoginRequest{Email: "dave@example.com", Password: "wrong-password"}
	for i := 0; i < loginMaxFailures; i++ {
		w := ts.do(t, http.MethodPost, "/api/login", "", bad)
		expectError(t, w, http.StatusUnauthorized, ErrCodeUnauthorized)
	}

	w := ts.do(t, http.MethodPost, "/api/login", "", api.LoginRequest{Email: "dave@example.com", Password: "correct-horse"})
	expectError(t, w, http.StatusTooManyRequests, ErrCodeResourceExhausted)
}

func TestLoginSuccessResetsFailures(t *testing.T) {
	ts := newTestServer(t)
	ts.login(t, "erin@example.com")

	bad := api.LoginRequest{Email: "erin@example.com", Password: "wrong-password"}
	good := api.LoginRequest{Email: "erin@example.com", Password: "correct-horse"}
	for i := 0; i < loginMaxFailures-1; i++ {
		ts.do(t, http.MethodPost, "/api/login", "", bad)
	}
	if w := ts.do(t, http.MethodPost, "/api/login", "", good); w.Code != http.StatusOK {
		t.Fatalf("login: %d %s", w.Code, w.Body.String())
	}
	for i := 0; i < loginMaxFailures-1; i++ {
		ts.do(t, http.MethodPost, "/api/login", "", bad)
	}
	if w := ts.do(t, http.MethodPost, "/api/login", "", good); w.Code != http.StatusOK {
		t.Fatalf("expected limiter reset after success, got %d", w.Code)
	}
}

func TestLoginSetsSessionCookie(t *testing.T) {
	ts := newTestServer(t)
	ts.login(t, "frank@example.com")

	w := ts.do(t, http.MethodPost, "/api/login", "", api.LoginRequest{Email: "frank@example.com", Password: "correct-horse"})
	if w.Code != http.StatusOK {
		t.Fatalf("login: %d", w.Code)
	}
	var found bool
	for _, cookie := range w.Result().Cookies() {
		if cookie.Name == sessionCookieName && cookie.Value != "" && cookie.HttpOnly {
			found = true
		}
	}
	if !found {
		t.Fatal("expected http-only session cookie")
	}
}

func TestDeleteAccountRemovesImagesAndSessions(t *testing.T) {
	ts := newTestServer(t)
	token := ts.login(t, "gone@example.com")
	ts.createAlbum(t, token, "trip")
	ts.mustUpload(t, token, uploadForm{filename: "a.png", data: testPNG(t), albums: []string{"trip"}})
	ts.mustUpload(t, token, uploadForm{filename: "b.png", data: testPNG(t)})

	w := ts.do(t, http.MethodDelete, "/api/users/me", token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("delete account: %d %s", w.Code, w.Body.String())
	}
	var resp api.BulkDeleteResponse
	decodeBody(t, w, &resp)
	if resp.Deleted != 2 || !resp.Complete {
		t.Fatalf("unexpected delete result: %+v", resp)
	}
	if n := ts.blobCount(t); n != 0 {
		t.Fatalf("expected no blobs left, got %d", n)
	}

	w = ts.do(t, http.MethodGet, "/api/users/me", token, nil)
	expectError(t, w, http.StatusUnauthorized, ErrCodeUnauthorized)

	w = ts.do(t, http.MethodPost, "/api/login", "", api.LoginRequest{Email: "gone@example.com", Password: "correct-horse"})
	expectError(t, w, http.StatusUnauthorized, ErrCodeUnauthorized)
}
