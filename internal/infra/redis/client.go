package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/vietddude/datafeed/internal/core/domain"
	"github.com/vietddude/datafeed/internal/infra/storage"
)

// Client wraps Redis operations for datafeed cursor persistence.
type Client struct {
	rdb    *redis.Client
	prefix string
}

var _ storage.CursorRepository = (*Client)(nil)

// Config holds Redis connection configuration.
type Config struct {
	URL       string `yaml:"url"`
	Password  string `yaml:"password"`
	KeyPrefix string `yaml:"key_prefix"`
}

// NewClient creates a new Redis client.
func NewClient(cfg Config) (*Client, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}
	if cfg.Password != "" {
		opts.Password = cfg.Password
	}

	rdb := redis.NewClient(opts)

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return newClient(rdb, cfg.KeyPrefix), nil
}

func newClient(rdb *redis.Client, prefix string) *Client {
	if prefix == "" {
		prefix = "datafeed"
	}
	return &Client{rdb: rdb, prefix: prefix}
}

// Close closes the Redis connection.
func (c *Client) Close() error {
	return c.rdb.Close()
}

// Key helpers
func cursorKey(prefix, key string) string {
	return fmt.Sprintf("%s:cursor:%s", prefix, key)
}

const (
	fieldFeedID    = "feed_id"
	fieldAckID     = "ack_id"
	fieldUpdatedAt = "updated_at"
)

// Get retrieves the cursor stored under key.
func (c *Client) Get(ctx context.Context, key string) (*domain.Cursor, error) {
	fields, err := c.rdb.HGetAll(ctx, cursorKey(c.prefix, key)).Result()
	if err != nil {
		return nil, fmt.Errorf("hgetall failed: %w", err)
	}
	return cursorFromFields(fields)
}

// Save stores cursor under key.
func (c *Client) Save(ctx context.Context, key string, cursor domain.Cursor) error {
	err := c.rdb.HSet(ctx, cursorKey(c.prefix, key),
		fieldFeedID, cursor.FeedID,
		fieldAckID, cursor.AckID,
		fieldUpdatedAt, strconv.FormatInt(time.Now().Unix(), 10),
	).Err()
	if err != nil {
		return fmt.Errorf("hset failed: %w", err)
	}
	return nil
}

// Delete removes the cursor stored under key.
func (c *Client) Delete(ctx context.Context, key string) error {
	if err := c.rdb.Del(ctx, cursorKey(c.prefix, key)).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("del failed: %w", err)
	}
	return nil
}

// cursorFromFields decodes a cursor hash. A missing key reads as an empty hash.
func cursorFromFields(fields map[string]string) (*domain.Cursor, error) {
	if len(fields) == 0 {
		return nil, storage.ErrCursorNotFound
	}

	c := &domain.Cursor{
		FeedID: fields[fieldFeedID],
		AckID:  fields[fieldAckID],
	}
	if v, ok := fields[fieldUpdatedAt]; ok && v != "" {
		ts, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", fieldUpdatedAt, err)
		}
		c.UpdatedAt = ts
	}
	return c, nil
}
