package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// CursorKey is the meta key holding the last fetched message identity.
const CursorKey = "LastFetchedMessageId"

// SetCursor persists the fetch resume point.
func (s *Store) SetCursor(ctx context.Context, messageID uint64) error {
	return s.setMeta(ctx, CursorKey, strconv.FormatUint(messageID, 10))
}

// GetCursor returns the persisted resume point. ok is false on first run or
// when the stored value is not a valid message identity.
func (s *Store) GetCursor(ctx context.Context) (id uint64, ok bool, err error) {
	raw, found, err := s.getMeta(ctx, CursorKey)
	if err != nil || !found {
		return 0, false, err
	}
	id, parseErr := strconv.ParseUint(strings.TrimSpace(raw), 10, 64)
	if parseErr != nil {
		return 0, false, nil
	}
	return id, true, nil
}

// ResetCursor forgets the resume point so the next fetch starts from the
// most recent window again.
func (s *Store) ResetCursor(ctx context.Context) error {
	if _, err := s.exec(ctx, `DELETE FROM meta WHERE key = ?`, CursorKey); err != nil {
		return fmt.Errorf("reset cursor: %w", err)
	}
	return nil
}

func (s *Store) setMeta(ctx context.Context, key, value string) error {
	if _, err := s.exec(ctx,
		`INSERT INTO meta (key, value) VALUES (?, ?)
         ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, value,
	); err != nil {
		return fmt.Errorf("set meta %s: %w", key, err)
	}
	return nil
}

func (s *Store) getMeta(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM meta WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get meta %s: %w", key, err)
	}
	return value, true, nil
}
