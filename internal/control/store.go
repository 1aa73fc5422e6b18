package control

import (
	"context"
	"fmt"
	"log/slog"

	redisclient "github.com/vietddude/datafeed/internal/infra/redis"
	"github.com/vietddude/datafeed/internal/infra/storage"
	"github.com/vietddude/datafeed/internal/infra/storage/memory"
	"github.com/vietddude/datafeed/internal/infra/storage/postgres"
)

// OpenCursorStore opens the cursor store selected by cfg.Datafeed.Store. The returned
// closer is nil for stores holding no connection.
func OpenCursorStore(ctx context.Context, cfg Config) (storage.CursorRepository, func() error, error) {
	switch cfg.Datafeed.Store {
	case "redis":
		rc, err := redisclient.NewClient(cfg.Redis)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to init redis: %w", err)
		}
		slog.Info("Using Redis cursor store")
		return rc, rc.Close, nil

	case "postgres":
		db, err := postgres.NewDB(ctx, cfg.Database)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to init db: %w", err)
		}
		if err := db.Migrate(ctx); err != nil {
			_ = db.Close()
			return nil, nil, fmt.Errorf("failed to migrate db: %w", err)
		}
		slog.Info("Using PostgreSQL cursor store")
		return postgres.NewCursorRepo(db), db.Close, nil

	default:
		slog.Info("Using Memory cursor store")
		return memory.NewCursorRepo(), nil, nil
	}
}
