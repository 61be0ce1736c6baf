package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// Comparing against a fixed hash keeps login timing flat for unknown users.
var dummyPasswordHash = []byte("$2a$10$CwTycUXWue0Thq9StjUM0uJ8n4VWeNseyX2fA9DE.D7su7J6iYGTC")

// CreateAccount registers a dashboard login.
func (s *Store) CreateAccount(ctx context.Context, username, password string) error {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return fmt.Errorf("username and password are required")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	_, err = s.db.ExecContext(ctx, s.rebind(`
		INSERT INTO accounts (username, password_hash, created_at)
		VALUES (?, ?, ?)
	`), username, hash, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		if isUniqueViolation(err) {
			return ErrAccountExists
		}
		return fmt.Errorf("insert account: %w", err)
	}
	return nil
}

// Authenticate validates a username and password pair.
func (s *Store) Authenticate(ctx context.Context, username, password string) error {
	var hash []byte
	err := s.db.QueryRowContext(ctx, s.rebind(`
		SELECT password_hash FROM accounts WHERE username = ?
	`), username).Scan(&hash)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			_ = bcrypt.CompareHashAndPassword(dummyPasswordHash, []byte(password))
			return ErrInvalidCredentials
		}
		return fmt.Errorf("lookup account: %w", err)
	}

	if bcrypt.CompareHashAndPassword(hash, []byte(password)) != nil {
		return ErrInvalidCredentials
	}
	return nil
}

// HasAccounts reports whether any login exists, used to decide whether the
// fallback admin account needs seeding.
func (s *Store) HasAccounts(ctx context.Context) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM accounts`).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("count accounts: %w", err)
	}
	return count > 0, nil
}
