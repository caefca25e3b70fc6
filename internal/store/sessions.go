package store

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// CreateSession records a bearer session. Only the token hash is stored.
func (s *Store) CreateSession(ctx context.Context, userID, tokenHash string, expiresAt, createdAt time.Time) error {
	userID, tokenHash = strings.TrimSpace(userID), strings.TrimSpace(tokenHash)
	if userID == "" || tokenHash == "" {
		return fmt.Errorf("session needs a user id and a token hash")
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (id, user_id, token_hash, expires_at, revoked_at, created_at) VALUES (?, ?, ?, ?, NULL, ?)`,
		newSessionID(), userID, tokenHash, dbFormatTime(expiresAt), dbFormatTime(createdAt))
	return err
}

// GetUserBySessionTokenHash resolves a live session to its user. Revoked and
// expired sessions resolve to nil, nil.
func (s *Store) GetUserBySessionTokenHash(ctx context.Context, tokenHash string, now time.Time) (*AuthUser, error) {
	tokenHash = strings.TrimSpace(tokenHash)
	if tokenHash == "" {
		return nil, nil
	}
	row := s.db.QueryRowContext(ctx, selectAuthUser+`
		JOIN sessions s ON s.user_id = u.id
		WHERE s.token_hash = ? AND s.revoked_at IS NULL AND s.expires_at > ?
		LIMIT 1`, tokenHash, dbFormatTime(now))
	return scanAuthUser(row)
}

// RevokeSessionByTokenHash is idempotent; unknown or already revoked hashes
// are not an error.
func (s *Store) RevokeSessionByTokenHash(ctx context.Context, tokenHash string, revokedAt time.Time) error {
	if tokenHash = strings.TrimSpace(tokenHash); tokenHash == "" {
		return nil
	}
	_, err := s.db.ExecContext(ctx,
		`UPDATE sessions SET revoked_at = ? WHERE token_hash = ? AND revoked_at IS NULL`,
		dbFormatTime(revokedAt), tokenHash)
	return err
}

// DeleteExpiredSessions prunes expired and revoked sessions and reports how
// many rows went.
func (s *Store) DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM sessions WHERE expires_at <= ? OR revoked_at IS NOT NULL`, dbFormatTime(now))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
