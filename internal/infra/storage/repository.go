package storage

import (
	"context"
	"errors"

	"github.com/vietddude/datafeed/internal/core/domain"
)

var (
	// ErrCursorNotFound is returned when no cursor is stored under a key
	ErrCursorNotFound = errors.New("cursor not found")
)

// CursorRepository persists datafeed read positions so a restarted process resumes the
// same feed instead of creating a new one.
type CursorRepository interface {
	// Get retrieves the cursor stored under key, or ErrCursorNotFound
	Get(ctx context.Context, key string) (*domain.Cursor, error)

	// Save stores cursor under key
	Save(ctx context.Context, key string, cursor domain.Cursor) error

	// Delete removes the cursor stored under key
	Delete(ctx context.Context, key string) error
}

// KeyedCursor is a cursor together with the key it is stored under.
type KeyedCursor struct {
	Key string `db:"cursor_key"`
	domain.Cursor
}

// CursorLister is implemented by stores that can enumerate their cursors.
type CursorLister interface {
	List(ctx context.Context) ([]KeyedCursor, error)
}
