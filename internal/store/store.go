package store

import (
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// connectionPragmas are passed in the DSN and run on every new connection.
var connectionPragmas = []string{
	"journal_mode(WAL)",
	"synchronous(NORMAL)",
	"foreign_keys(1)",
	"busy_timeout(5000)",
}

const (
	// One connection: writers queue on the pool instead of hitting SQLITE_BUSY.
	maxOpenConns    = 1
	connMaxIdleTime = 10 * time.Minute
)

var (
	// ErrConflict reports a uniqueness violation (duplicate id, album name or email).
	ErrConflict = errors.New("conflict")
	// ErrNotFound reports a missing owner-scoped parent row inside a write.
	ErrNotFound = errors.New("not found")
	// ErrUserHasImages is returned when deleting a user that still owns images.
	ErrUserHasImages = errors.New("user still owns images")
	errOwnerRequired = errors.New("owner id is required")
)

// Store is the owner-scoped metadata store backed by SQLite.
type Store struct {
	db *sql.DB
}

// Open connects to the database file at path and brings the schema up to date.
func Open(path string) (*Store, error) {
	db, err := OpenRaw(path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(maxOpenConns)
	db.SetMaxIdleConns(maxOpenConns)
	db.SetConnMaxIdleTime(connMaxIdleTime)

	if err := runMigrations(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate %s: %w", path, err)
	}
	return &Store{db: db}, nil
}

// OpenRaw returns a handle that has not been migrated. Used by migrate --inspect.
func OpenRaw(path string) (*sql.DB, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("db path is required")
	}
	q := url.Values{}
	for _, p := range connectionPragmas {
		q.Add("_pragma", p)
	}
	dsn := url.URL{Scheme: "file", Path: path, RawQuery: q.Encode()}
	return sql.Open("sqlite", dsn.String())
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

type constraintKind int

const (
	constraintNone constraintKind = iota
	constraintUnique
	constraintForeignKey
)

// classifyConstraint matches SQLite constraint failures by message text.
func classifyConstraint(err error) constraintKind {
	if err == nil {
		return constraintNone
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "unique constraint failed"),
		strings.Contains(msg, "primary key constraint failed"):
		return constraintUnique
	case strings.Contains(msg, "foreign key constraint failed"):
		return constraintForeignKey
	}
	return constraintNone
}

func isUniqueConstraint(err error) bool { return classifyConstraint(err) == constraintUnique }

func isForeignKeyConstraint(err error) bool { return classifyConstraint(err) == constraintForeignKey }

// nullIfEmpty stores absent captions and descriptions as NULL.
func nullIfEmpty(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func dbFormatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func dbParseTime(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339Nano, value)
}

func requireOwner(ownerID string) (string, error) {
	if ownerID = strings.TrimSpace(ownerID); ownerID == "" {
		return "", errOwnerRequired
	}
	return ownerID, nil
}
