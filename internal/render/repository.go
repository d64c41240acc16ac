package render

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// Repository persists the render queue and engine settings.
type Repository interface {
	Enqueue(ctx context.Context, item QueueItem) (bool, error)
	ListQueue(ctx context.Context) ([]QueueItem, error)
	GetQueueItem(ctx context.Context, id string) (*QueueItem, error)

	GetSetting(ctx context.Context, key string) (string, error)
	SetSetting(ctx context.Context, key, value string) error
}

type SQLiteRepository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// Enqueue appends the item unless an entry with the same canonical JSON
// already exists. Returns false for a silently ignored duplicate.
func (r *SQLiteRepository) Enqueue(ctx context.Context, item QueueItem) (bool, error) {
	payload, err := json.Marshal(item)
	if err != nil {
		return false, fmt.Errorf("failed to encode queue item: %w", err)
	}

	res, err := r.db.ExecContext(ctx, `
		INSERT INTO render_queue (id, variant_title, fingerprint, payload, duration_s, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(fingerprint) DO NOTHING
	`, item.ID, item.VariantTitle, item.Fingerprint(), string(payload),
		item.DurationS, item.CreatedAt.Format(time.RFC3339))
	if err != nil {
		return false, err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *SQLiteRepository) ListQueue(ctx context.Context) ([]QueueItem, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT payload FROM render_queue ORDER BY created_at ASC, id ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []QueueItem
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		var item QueueItem
		if err := json.Unmarshal([]byte(payload), &item); err != nil {
			return nil, fmt.Errorf("failed to decode queue item: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (r *SQLiteRepository) GetQueueItem(ctx context.Context, id string) (*QueueItem, error) {
	var payload string
	err := r.db.QueryRowContext(ctx, "SELECT payload FROM render_queue WHERE id = ?", id).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var item QueueItem
	if err := json.Unmarshal([]byte(payload), &item); err != nil {
		return nil, fmt.Errorf("failed to decode queue item: %w", err)
	}
	return &item, nil
}

func (r *SQLiteRepository) GetSetting(ctx context.Context, key string) (string, error) {
	var value string
	err := r.db.QueryRowContext(ctx, "SELECT value FROM settings WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return value, err
}

func (r *SQLiteRepository) SetSetting(ctx context.Context, key, value string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO settings (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	return err
}
