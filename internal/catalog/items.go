package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// createdAtLayout is fixed width so text ordering matches time ordering.
const createdAtLayout = "2006-01-02T15:04:05.000000000Z"

const itemColumns = "file_name, message_id, file_path, trigger_text, volume_percent, priority, is_english, is_adopted, created_at"

// Upsert inserts item when its file name is not catalogued yet. An existing
// row is left untouched and inserted is false.
func (s *Store) Upsert(ctx context.Context, item Item) (bool, error) {
	if item.FileName == "" {
		return false, errors.New("upsert: file name is empty")
	}
	if strings.TrimSpace(item.Trigger) == "" {
		return false, fmt.Errorf("upsert %s: %w", item.FileName, ErrEmptyTrigger)
	}
	item.normalizeForInsert()

	res, err := s.exec(
		ctx,
		`INSERT INTO items (`+itemColumns+`)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
         ON CONFLICT(file_name) DO NOTHING`,
		item.FileName,
		int64(item.MessageID),
		item.FilePath,
		item.Trigger,
		item.VolumePercent,
		item.Priority,
		boolToInt(item.IsEnglish),
		boolToInt(item.IsAdopted),
		item.CreatedAt.Format(createdAtLayout),
	)
	if err != nil {
		return false, fmt.Errorf("upsert %s: %w", item.FileName, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("upsert %s: rows affected: %w", item.FileName, err)
	}
	return affected > 0, nil
}

// GetAll returns every item, newest first.
func (s *Store) GetAll(ctx context.Context) ([]Item, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+itemColumns+` FROM items ORDER BY created_at DESC, message_id DESC, file_name ASC`)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	defer rows.Close()

	var items []Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// Get fetches one item by file name. A missing row returns nil without error.
func (s *Store) Get(ctx context.Context, fileName string) (*Item, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+itemColumns+` FROM items WHERE file_name = ?`, fileName)
	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get item: %w", err)
	}
	return &item, nil
}

// Update rewrites the curated fields of an existing item after normalizing
// them. The normalized values are written back into item.
func (s *Store) Update(ctx context.Context, item *Item) error {
	if item == nil {
		return errors.New("item is nil")
	}
	if strings.TrimSpace(item.Trigger) == "" {
		return fmt.Errorf("update %s: %w", item.FileName, ErrEmptyTrigger)
	}
	item.normalizeForEdit()

	res, err := s.exec(
		ctx,
		`UPDATE items
         SET trigger_text = ?, volume_percent = ?, priority = ?, is_english = ?, is_adopted = ?
         WHERE file_name = ?`,
		item.Trigger,
		item.VolumePercent,
		item.Priority,
		boolToInt(item.IsEnglish),
		boolToInt(item.IsAdopted),
		item.FileName,
	)
	if err != nil {
		return fmt.Errorf("update %s: %w", item.FileName, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update %s: rows affected: %w", item.FileName, err)
	}
	if affected == 0 {
		return fmt.Errorf("update %s: %w", item.FileName, ErrNotFound)
	}
	return nil
}

// Count returns the total and adopted row counts.
func (s *Store) Count(ctx context.Context) (total, adopted int, err error) {
	row := s.db.QueryRowContext(ctx, `SELECT COUNT(1), COALESCE(SUM(is_adopted), 0) FROM items`)
	if err := row.Scan(&total, &adopted); err != nil {
		return 0, 0, fmt.Errorf("count items: %w", err)
	}
	return total, adopted, nil
}

func scanItem(scanner interface{ Scan(dest ...any) error }) (Item, error) {
	var (
		item       Item
		messageID  int64
		isEnglish  int
		isAdopted  int
		createdRaw string
	)
	if err := scanner.Scan(
		&item.FileName,
		&messageID,
		&item.FilePath,
		&item.Trigger,
		&item.VolumePercent,
		&item.Priority,
		&isEnglish,
		&isAdopted,
		&createdRaw,
	); err != nil {
		return Item{}, err
	}
	item.MessageID = uint64(messageID)
	item.IsEnglish = isEnglish != 0
	item.IsAdopted = isAdopted != 0
	created, err := time.Parse(time.RFC3339Nano, createdRaw)
	if err != nil {
		return Item{}, fmt.Errorf("parse created_at %q: %w", createdRaw, err)
	}
	item.CreatedAt = created.UTC()
	return item, nil
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}
