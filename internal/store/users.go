package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"imgvault/internal/models"
)

// AuthUser is a users row, password hash included. It never leaves the server.
type AuthUser struct {
	ID           string
	Email        string
	Username     string
	PasswordHash string
	CreatedAt    time.Time
}

func (u AuthUser) Model() models.User {
	return models.User{ID: u.ID, Email: u.Email, Username: u.Username, CreatedAt: u.CreatedAt}
}

const selectAuthUser = `SELECT u.id, u.email, u.username, u.password_hash, u.created_at FROM users u`

type rowScanner interface {
	Scan(dest ...any) error
}

// CreateUser inserts a user under a fresh id. A taken email wraps ErrConflict.
func (s *Store) CreateUser(ctx context.Context, email, username, passwordHash string, now time.Time) (*AuthUser, error) {
	user := AuthUser{
		ID:           newUserID(),
		Email:        strings.ToLower(strings.TrimSpace(email)),
		Username:     strings.TrimSpace(username),
		PasswordHash: passwordHash,
		CreatedAt:    now.UTC(),
	}
	switch {
	case user.Email == "":
		return nil, fmt.Errorf("email is required")
	case user.Username == "":
		return nil, fmt.Errorf("username is required")
	case strings.TrimSpace(user.PasswordHash) == "":
		return nil, fmt.Errorf("password hash is required")
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (id, email, username, password_hash, created_at) VALUES (?, ?, ?, ?, ?)`,
		user.ID, user.Email, user.Username, user.PasswordHash, dbFormatTime(user.CreatedAt))
	if isUniqueConstraint(err) {
		return nil, fmt.Errorf("email %s: %w", user.Email, ErrConflict)
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetUserByEmail returns nil, nil when no user has the address.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (*AuthUser, error) {
	return s.getUser(ctx, "u.email = ?", strings.ToLower(strings.TrimSpace(email)))
}

// GetUserByID returns nil, nil for unknown ids.
func (s *Store) GetUserByID(ctx context.Context, id string) (*AuthUser, error) {
	return s.getUser(ctx, "u.id = ?", strings.TrimSpace(id))
}

func (s *Store) getUser(ctx context.Context, where, key string) (*AuthUser, error) {
	if key == "" {
		return nil, nil
	}
	return scanAuthUser(s.db.QueryRowContext(ctx, selectAuthUser+" WHERE "+where+" LIMIT 1", key))
}

func (s *Store) ListUsers(ctx context.Context) ([]AuthUser, error) {
	rows, err := s.db.QueryContext(ctx, selectAuthUser+" ORDER BY u.email")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]AuthUser, 0)
	for rows.Next() {
		user, err := scanAuthUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *user)
	}
	return users, rows.Err()
}

// DeleteUserRecord removes a user with its sessions, albums and memberships.
// Images have to go first: while any remain it returns ErrUserHasImages and
// changes nothing.
func (s *Store) DeleteUserRecord(ctx context.Context, userID string) (deleted bool, err error) {
	if userID, err = requireOwner(userID); err != nil {
		return false, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var images int
	if err = tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM images WHERE user_id = ?`, userID).Scan(&images); err != nil {
		return false, err
	}
	if images > 0 {
		err = fmt.Errorf("%d images remain: %w", images, ErrUserHasImages)
		return false, err
	}

	var affected int64
	for _, stmt := range []string{
		`DELETE FROM sessions WHERE user_id = ?`,
		`DELETE FROM album_images WHERE user_id = ?`,
		`DELETE FROM albums WHERE user_id = ?`,
		`DELETE FROM users WHERE id = ?`,
	} {
		var res sql.Result
		if res, err = tx.ExecContext(ctx, stmt, userID); err != nil {
			return false, err
		}
		if affected, err = res.RowsAffected(); err != nil {
			return false, err
		}
	}
	if err = tx.Commit(); err != nil {
		return false, err
	}
	return affected > 0, nil
}

// scanAuthUser maps sql.ErrNoRows to nil, nil.
func scanAuthUser(row rowScanner) (*AuthUser, error) {
	var (
		user      AuthUser
		createdAt string
	)
	err := row.Scan(&user.ID, &user.Email, &user.Username, &user.PasswordHash, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if user.CreatedAt, err = dbParseTime(createdAt); err != nil {
		return nil, fmt.Errorf("user %s created_at: %w", user.ID, err)
	}
	return &user, nil
}
