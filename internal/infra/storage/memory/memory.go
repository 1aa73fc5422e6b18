package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/vietddude/datafeed/internal/core/domain"
	"github.com/vietddude/datafeed/internal/infra/storage"
)

// CursorRepo is an in-process cursor store. Cursors do not survive a restart.
type CursorRepo struct {
	mu      sync.RWMutex
	cursors map[string]domain.Cursor
}

var _ storage.CursorRepository = (*CursorRepo)(nil)

func NewCursorRepo() *CursorRepo {
	return &CursorRepo{
		cursors: make(map[string]domain.Cursor),
	}
}

func (r *CursorRepo) Get(ctx context.Context, key string) (*domain.Cursor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.cursors[key]
	if !ok {
		return nil, storage.ErrCursorNotFound
	}
	return &c, nil
}

func (r *CursorRepo) Save(ctx context.Context, key string, cursor domain.Cursor) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cursor.UpdatedAt = time.Now().Unix()
	r.cursors[key] = cursor
	return nil
}

func (r *CursorRepo) Delete(ctx context.Context, key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.cursors, key)
	return nil
}

// List returns the stored cursors ordered by key.
func (r *CursorRepo) List(ctx context.Context) ([]storage.KeyedCursor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]storage.KeyedCursor, 0, len(r.cursors))
	for k, c := range r.cursors {
		out = append(out, storage.KeyedCursor{Key: k, Cursor: c})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}
