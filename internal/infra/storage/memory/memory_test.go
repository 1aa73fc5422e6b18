package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/vietddude/datafeed/internal/core/domain"
	"github.com/vietddude/datafeed/internal/infra/storage"
)

func TestCursorRepo_RoundTrip(t *testing.T) {
	repo := NewCursorRepo()
	ctx := context.Background()

	if _, err := repo.Get(ctx, "bot"); !errors.Is(err, storage.ErrCursorNotFound) {
		t.Fatalf("expected ErrCursorNotFound, got %v", err)
	}

	if err := repo.Save(ctx, "bot", domain.Cursor{FeedID: "feed-1", AckID: "ack-1"}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	c, err := repo.Get(ctx, "bot")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if c.FeedID != "feed-1" || c.AckID != "ack-1" {
		t.Errorf("unexpected cursor: %+v", c)
	}
	if c.UpdatedAt == 0 {
		t.Error("expected UpdatedAt to be set")
	}

	if err := repo.Delete(ctx, "bot"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := repo.Get(ctx, "bot"); !errors.Is(err, storage.ErrCursorNotFound) {
		t.Errorf("expected cursor to be gone, got %v", err)
	}
}

func TestCursorRepo_List(t *testing.T) {
	repo := NewCursorRepo()
	ctx := context.Background()

	_ = repo.Save(ctx, "b", domain.Cursor{FeedID: "feed-b"})
	_ = repo.Save(ctx, "a", domain.Cursor{FeedID: "feed-a"})

	list, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(list) != 2 || list[0].Key != "a" || list[1].FeedID != "feed-b" {
		t.Errorf("unexpected list: %+v", list)
	}
}
