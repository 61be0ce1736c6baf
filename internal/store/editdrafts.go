package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"kbadmin/internal/upstream"
)

// StashEditItem saves the item a session is about to edit, replacing any
// earlier stash for the same session. The payload is the full item as JSON
// so editing survives a page reload.
func (s *Store) StashEditItem(ctx context.Context, session string, item upstream.Item) error {
	payload, err := json.Marshal(item)
	if err != nil {
		return fmt.Errorf("encode edit item: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if tx != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err := tx.ExecContext(ctx, s.rebind(`
		DELETE FROM edit_items WHERE session = ?
	`), session); err != nil {
		return fmt.Errorf("clear edit item: %w", err)
	}
	if _, err := tx.ExecContext(ctx, s.rebind(`
		INSERT INTO edit_items (session, item_id, payload, updated_at)
		VALUES (?, ?, ?, ?)
	`), session, item.ID, payload, time.Now().UTC().Format(time.RFC3339)); err != nil {
		return fmt.Errorf("insert edit item: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	tx = nil
	return nil
}

// EditItem returns the stashed item for a session without consuming it.
func (s *Store) EditItem(ctx context.Context, session string) (upstream.Item, error) {
	var payload []byte
	err := s.db.QueryRowContext(ctx, s.rebind(`
		SELECT payload FROM edit_items WHERE session = ?
	`), session).Scan(&payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return upstream.Item{}, ErrNoEditItem
		}
		return upstream.Item{}, fmt.Errorf("load edit item: %w", err)
	}

	var item upstream.Item
	if err := json.Unmarshal(payload, &item); err != nil {
		return upstream.Item{}, fmt.Errorf("decode edit item: %w", err)
	}
	return item, nil
}

// ClearEditItem drops the session's stash once editing is done or abandoned.
func (s *Store) ClearEditItem(ctx context.Context, session string) error {
	_, err := s.db.ExecContext(ctx, s.rebind(`
		DELETE FROM edit_items WHERE session = ?
	`), session)
	if err != nil {
		return fmt.Errorf("clear edit item: %w", err)
	}
	return nil
}
