package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// RecordCategory remembers a custom category name locally. Recording the
// same name twice is not an error; the first record wins.
func (s *Store) RecordCategory(ctx context.Context, name string) error {
	_, err := s.db.ExecContext(ctx, s.rebind(`
		INSERT INTO custom_categories (name, created_at)
		VALUES (?, ?)
	`), name, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		if isUniqueViolation(err) {
			return nil
		}
		return fmt.Errorf("record category: %w", err)
	}
	return nil
}

// HasCategory reports whether a custom category was recorded before.
func (s *Store) HasCategory(ctx context.Context, name string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, s.rebind(`
		SELECT 1 FROM custom_categories WHERE name = ?
	`), name).Scan(&one)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("lookup category: %w", err)
	}
	return true, nil
}

// ListCustomCategories returns all recorded names in insertion order.
func (s *Store) ListCustomCategories(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT name FROM custom_categories ORDER BY created_at, name
	`)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// ForgetCategory drops a recorded custom category.
func (s *Store) ForgetCategory(ctx context.Context, name string) error {
	_, err := s.db.ExecContext(ctx, s.rebind(`
		DELETE FROM custom_categories WHERE name = ?
	`), name)
	if err != nil {
		return fmt.Errorf("forget category: %w", err)
	}
	return nil
}
