package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/vietddude/datafeed/internal/core/domain"
	"github.com/vietddude/datafeed/internal/infra/storage"
)

// CursorRepo implements storage.CursorRepository using PostgreSQL.
type CursorRepo struct {
	db *DB
}

var _ storage.CursorRepository = (*CursorRepo)(nil)

// NewCursorRepo creates a new PostgreSQL cursor repository.
func NewCursorRepo(db *DB) *CursorRepo {
	return &CursorRepo{db: db}
}

const (
	getCursorQuery = `SELECT feed_id, ack_id, updated_at FROM datafeed_cursors WHERE cursor_key = $1`

	upsertCursorQuery = `INSERT INTO datafeed_cursors (cursor_key, feed_id, ack_id, updated_at)
VALUES ($1, $2, $3, $4)
ON CONFLICT (cursor_key) DO UPDATE
SET feed_id = EXCLUDED.feed_id, ack_id = EXCLUDED.ack_id, updated_at = EXCLUDED.updated_at`

	deleteCursorQuery = `DELETE FROM datafeed_cursors WHERE cursor_key = $1`

	listCursorsQuery = `SELECT cursor_key, feed_id, ack_id, updated_at FROM datafeed_cursors ORDER BY cursor_key`
)

// Get retrieves a cursor by key.
func (r *CursorRepo) Get(ctx context.Context, key string) (*domain.Cursor, error) {
	var c domain.Cursor
	err := r.db.GetContext(ctx, &c, getCursorQuery, key)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrCursorNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get cursor: %w", err)
	}
	return &c, nil
}

// Save saves a cursor to the database.
func (r *CursorRepo) Save(ctx context.Context, key string, cursor domain.Cursor) error {
	_, err := r.db.ExecContext(ctx, upsertCursorQuery, key, cursor.FeedID, cursor.AckID, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("failed to save cursor: %w", err)
	}
	return nil
}

// Delete removes a cursor.
func (r *CursorRepo) Delete(ctx context.Context, key string) error {
	if _, err := r.db.ExecContext(ctx, deleteCursorQuery, key); err != nil {
		return fmt.Errorf("failed to delete cursor: %w", err)
	}
	return nil
}

// List returns every stored cursor.
func (r *CursorRepo) List(ctx context.Context) ([]storage.KeyedCursor, error) {
	var out []storage.KeyedCursor
	if err := r.db.SelectContext(ctx, &out, listCursorsQuery); err != nil {
		return nil, fmt.Errorf("failed to list cursors: %w", err)
	}
	return out, nil
}
