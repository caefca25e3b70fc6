package auth

import (
	"errors"
	"net/mail"
	"regexp"
	"strings"
)

const (
	maxUsernameLength = 32
	maxEmailLength    = 254
)

var (
	ErrEmailRequired    = errors.New("email is required")
	ErrInvalidEmail     = errors.New("invalid email")
	ErrUsernameRequired = errors.New("username is required")
	ErrInvalidUsername  = errors.New("invalid username")
)

var usernamePattern = regexp.MustCompile(`^[a-z0-9](?:[a-z0-9._-]*[a-z0-9])?$`)

// Account is a validated registration: canonical email and username plus the
// bcrypt hash of the password.
type Account struct {
	Email        string
	Username     string
	PasswordHash string
}

// NewAccount normalizes the identity fields and hashes the password. An empty
// username falls back to the local part of the email.
func NewAccount(email, username, password string) (Account, error) {
	normalizedEmail, err := NormalizeEmail(email)
	if err != nil {
		return Account{}, err
	}
	if strings.TrimSpace(username) == "" {
		username = DefaultUsername(normalizedEmail)
	}
	normalizedUsername, err := NormalizeUsername(username)
	if err != nil {
		return Account{}, err
	}
	hash, err := HashPassword(password)
	if err != nil {
		return Account{}, err
	}
	return Account{Email: normalizedEmail, Username: normalizedUsername, PasswordHash: hash}, nil
}

// DefaultUsername is the local part of an address, lowercased.
func DefaultUsername(email string) string {
	local, _, _ := strings.Cut(strings.TrimSpace(email), "@")
	return strings.ToLower(local)
}

func NormalizeUsername(raw string) (string, error) {
	username := strings.ToLower(strings.TrimSpace(raw))
	if username == "" {
		return "", ErrUsernameRequired
	}
	if len(username) > maxUsernameLength || !usernamePattern.MatchString(username) {
		return "", ErrInvalidUsername
	}
	return username, nil
}

// NormalizeEmail lowercases a bare address. Display-name forms such as
// "Alice <a@b.c>" are rejected.
func NormalizeEmail(raw string) (string, error) {
	email := strings.ToLower(strings.TrimSpace(raw))
	if email == "" {
		return "", ErrEmailRequired
	}
	if len(email) > maxEmailLength {
		return "", ErrInvalidEmail
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Name != "" || addr.Address != email {
		return "", ErrInvalidEmail
	}
	return email, nil
}
