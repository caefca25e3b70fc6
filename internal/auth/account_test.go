package auth

import (
	"errors"
	"testing"
)

func TestNormalizeUsername(t *testing.T) {
	tests := []struct {
		raw  string
		want string
		err  error
	}{
		{raw: "Admin.User", want: "admin.user"},
		{raw: "  a-user  ", want: "a-user"},
		{raw: "bad space", err: ErrInvalidUsername},
		{raw: "-leading", err: ErrInvalidUsername},
		{raw: "   ", err: ErrUsernameRequired},
	}
	for _, tt := range tests {
		got, err := NormalizeUsername(tt.raw)
		if !errors.Is(err, tt.err) {
			t.Fatalf("NormalizeUsername(%q) error=%v want %v", tt.raw, err, tt.err)
		}
		if got != tt.want {
			t.Fatalf("NormalizeUsername(%q)=%q want %q", tt.raw, got, tt.want)
		}
	}
}

func TestNormalizeEmail(t *testing.T) {
	got, err := NormalizeEmail("  Alice@Example.COM ")
	if err != nil {
		t.Fatalf("normalize email: %v", err)
	}
	if got != "alice@example.com" {
		t.Fatalf("expected lowercase email, got %q", got)
	}
	if _, err := NormalizeEmail(""); !errors.Is(err, ErrEmailRequired) {
		t.Fatalf("expected ErrEmailRequired, got %v", err)
	}
	for _, raw := range []string{"not-an-email", "Alice <alice@example.com>"} {
		if _, err := NormalizeEmail(raw); !errors.Is(err, ErrInvalidEmail) {
			t.Fatalf("%q: expected ErrInvalidEmail, got %v", raw, err)
		}
	}
}

func TestNewAccountDefaultsUsername(t *testing.T) {
	account, err := NewAccount("Carol.Smith@Example.com", "", "correct-horse")
	if err != nil {
		t.Fatalf("new account: %v", err)
	}
	if account.Email != "carol.smith@example.com" || account.Username != "carol.smith" {
		t.Fatalf("unexpected account %+v", account)
	}
	if !VerifyPassword(account.PasswordHash, "correct-horse") {
		t.Fatal("hash does not verify")
	}

	if _, err := NewAccount("carol@example.com", "carol", "short"); !errors.Is(err, ErrPasswordTooShort) {
		t.Fatalf("expected ErrPasswordTooShort, got %v", err)
	}
}
