package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"database/sql"

	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrAccountExists signals the username is already taken.
	ErrAccountExists = errors.New("account already exists")
	// ErrInvalidCredentials indicates a login failure.
	ErrInvalidCredentials = errors.New("invalid username or password")
	// ErrNoEditItem indicates the session has no stashed item to edit.
	ErrNoEditItem = errors.New("no edit item for session")
)

// Flavor selects the SQL dialect for placeholder rewriting.
type Flavor int

const (
	SQLite Flavor = iota
	Postgres
)

// Store provides local persistence for state the knowledge base server does
// not hold: custom category names, edit handoffs, and dashboard accounts.
// It runs on an embedded SQLite file by default and on Postgres when a
// shared deployment needs it.
type Store struct {
	db     *sql.DB
	flavor Flavor
}

// New sets up a Store using the provided database handle.
func New(db *sql.DB, flavor Flavor) *Store {
	return &Store{db: db, flavor: flavor}
}

// Migrate creates the tables if they do not exist. Timestamps are stored as
// RFC 3339 text so the schema works unchanged on both backends.
func (s *Store) Migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS custom_categories (
			name TEXT PRIMARY KEY,
			created_at TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS edit_items (
			session TEXT PRIMARY KEY,
			item_id INTEGER NOT NULL,
			payload TEXT NOT NULL,
			updated_at TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS accounts (
			username TEXT PRIMARY KEY,
			password_hash TEXT NOT NULL,
			created_at TEXT NOT NULL
		)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

// rebind rewrites ? placeholders to $1..$N for Postgres. Queries in this
// package are written with ? so SQLite can run them as-is.
func (s *Store) rebind(query string) string {
	if s.flavor != Postgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
