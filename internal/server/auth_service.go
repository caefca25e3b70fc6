package server

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	internalauth "imgvault/internal/auth"
	"imgvault/internal/store"
)

const (
	sessionCookieName = "imgvault_session"
	authTypeBearer    = "bearer"
	authTypeSession   = "session"
)

var (
	defaultSessionTTL     = 7 * 24 * time.Hour
	errInvalidCredentials = errors.New("invalid credentials")
	errInvalidAccount     = errors.New("invalid account details")
)

// AuthService encapsulates account and session operations backed by the store.
type AuthService struct {
	store      store.UserStore
	sessionTTL time.Duration
}

type authLoginResult struct {
	User      *store.AuthUser
	Token     string
	ExpiresAt time.Time
}

func NewAuthService(userStore store.UserStore, sessionTTL time.Duration) *AuthService {
	if userStore == nil {
		return nil
	}
	if sessionTTL <= 0 {
		sessionTTL = defaultSessionTTL
	}
	return &AuthService{store: userStore, sessionTTL: sessionTTL}
}

// Register validates and creates an account. A taken email wraps store.ErrConflict.
func (a *AuthService) Register(ctx context.Context, email, username, password string, now time.Time) (*store.AuthUser, error) {
	if !a.ready() {
		return nil, fmt.Errorf("auth store is required")
	}
	// Self-registration must name a username; only admins get the default.
	if strings.TrimSpace(username) == "" {
		return nil, fmt.Errorf("%w: %v", errInvalidAccount, internalauth.ErrUsernameRequired)
	}
	account, err := internalauth.NewAccount(email, username, password)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errInvalidAccount, err)
	}
	return a.store.CreateUser(ctx, account.Email, account.Username, account.PasswordHash, now)
}

func (a *AuthService) ready() bool { return a != nil && a.store != nil }

// Login checks the password and opens a session. Unknown emails and wrong
// passwords both come back as errInvalidCredentials.
func (a *AuthService) Login(ctx context.Context, email, password string, now time.Time) (*authLoginResult, error) {
	if !a.ready() {
		return nil, fmt.Errorf("auth store is required")
	}
	normalized, err := internalauth.NormalizeEmail(email)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errInvalidAccount, err)
	}
	if strings.TrimSpace(password) == "" {
		return nil, fmt.Errorf("%w: password is required", errInvalidAccount)
	}

	user, err := a.store.GetUserByEmail(ctx, normalized)
	if err != nil {
		return nil, err
	}
	if user == nil || !internalauth.VerifyPassword(user.PasswordHash, password) {
		return nil, errInvalidCredentials
	}

	token, hash, err := mintSessionToken()
	if err != nil {
		return nil, err
	}
	result := &authLoginResult{User: user, Token: token, ExpiresAt: now.Add(a.sessionTTL)}
	if err := a.store.CreateSession(ctx, user.ID, hash, result.ExpiresAt, now); err != nil {
		return nil, err
	}
	return result, nil
}

// AuthenticateSessionToken returns nil, nil for blank, unknown, revoked or
// expired tokens.
func (a *AuthService) AuthenticateSessionToken(ctx context.Context, token string, now time.Time) (*store.AuthUser, error) {
	token = strings.TrimSpace(token)
	if !a.ready() || token == "" {
		return nil, nil
	}
	return a.store.GetUserBySessionTokenHash(ctx, hashSessionToken(token), now)
}

func (a *AuthService) RevokeSessionToken(ctx context.Context, token string, now time.Time) error {
	token = strings.TrimSpace(token)
	if !a.ready() || token == "" {
		return nil
	}
	return a.store.RevokeSessionByTokenHash(ctx, hashSessionToken(token), now)
}

func (a *AuthService) PurgeExpiredSessions(ctx context.Context, now time.Time) (int64, error) {
	if !a.ready() {
		return 0, nil
	}
	return a.store.DeleteExpiredSessions(ctx, now)
}

// Tokens are 256 random bits; the store only ever sees their SHA-256.
func hashSessionToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func mintSessionToken() (token, hash string, err error) {
	var buf [32]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return "", "", fmt.Errorf("session token: %w", err)
	}
	token = base64.RawURLEncoding.EncodeToString(buf[:])
	return token, hashSessionToken(token), nil
}
