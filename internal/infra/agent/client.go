// Package agent is the HTTP client for the agent datafeed API.
package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/vietddude/datafeed/internal/core/domain"
)

const (
	datafeedsPath = "/agent/v5/datafeeds"
	traceHeader   = "X-Trace-Id"
)

// Endpoints yields the agent base URL calls are sent to.
type Endpoints interface {
	Current() string
}

// TokenSource provides the session tokens sent with every call.
type TokenSource interface {
	SessionToken() string
	KeyManagerToken() string
}

// Client reads the datafeed of one bot. All calls of a feed go to the current endpoint
// until it is rotated.
type Client struct {
	endpoints  Endpoints
	tokens     TokenSource
	errors     *ErrorHandler
	httpClient *http.Client
	log        *slog.Logger
}

// NewClient creates a datafeed client. refresher may be nil to leave 401 handling
// entirely to the caller.
func NewClient(
	endpoints Endpoints,
	tokens TokenSource,
	refresher Refresher,
	timeout time.Duration,
	log *slog.Logger,
) *Client {
	if log == nil {
		log = slog.Default()
	}
	log = log.With("component", "agent_client")
	return &Client{
		endpoints: endpoints,
		tokens:    tokens,
		errors:    NewErrorHandler(refresher, log),
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		log: log,
	}
}

type feed struct {
	ID string `json:"id"`
}

type readRequest struct {
	AckID string `json:"ackId"`
}

type readResponse struct {
	Events []*domain.Event `json:"events"`
	AckID  string          `json:"ackId"`
}

// Read returns the events after cursor. A zero cursor reuses the bot's existing feed or
// creates one.
func (c *Client) Read(ctx context.Context, cursor domain.Cursor) (domain.Batch, error) {
	if cursor.FeedID == "" {
		id, err := c.openFeed(ctx)
		if err != nil {
			return domain.Batch{}, err
		}
		cursor = domain.Cursor{FeedID: id}
	}

	var resp readResponse
	path := fmt.Sprintf("%s/%s/read", datafeedsPath, cursor.FeedID)
	if err := c.do(ctx, http.MethodPost, path, readRequest{AckID: cursor.AckID}, &resp); err != nil {
		return domain.Batch{}, err
	}

	return domain.Batch{
		Events: resp.Events,
		Cursor: domain.Cursor{FeedID: cursor.FeedID, AckID: resp.AckID},
	}, nil
}

// ListFeeds returns the ids of the bot's active feeds.
func (c *Client) ListFeeds(ctx context.Context) ([]string, error) {
	var feeds []feed
	if err := c.do(ctx, http.MethodGet, datafeedsPath, nil, &feeds); err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(feeds))
	for _, f := range feeds {
		ids = append(ids, f.ID)
	}
	return ids, nil
}

// CreateFeed creates a new feed and returns its id.
func (c *Client) CreateFeed(ctx context.Context) (string, error) {
	var f feed
	if err := c.do(ctx, http.MethodPost, datafeedsPath, struct{}{}, &f); err != nil {
		return "", err
	}
	return f.ID, nil
}

// DeleteFeed deletes a feed.
func (c *Client) DeleteFeed(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, datafeedsPath+"/"+id, nil, nil)
}

func (c *Client) openFeed(ctx context.Context) (string, error) {
	ids, err := c.ListFeeds(ctx)
	if err != nil {
		return "", err
	}
	if len(ids) > 0 {
		c.log.Info("Reusing datafeed", "feed_id", ids[0])
		return ids[0], nil
	}

	id, err := c.CreateFeed(ctx)
	if err != nil {
		return "", err
	}
	c.log.Info("Created datafeed", "feed_id", id)
	return id, nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	url := strings.TrimRight(c.endpoints.Current(), "/") + path
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set(traceHeader, uuid.NewString())
	if c.tokens != nil {
		req.Header.Set("sessionToken", c.tokens.SessionToken())
		req.Header.Set("keyManagerToken", c.tokens.KeyManagerToken())
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return c.errors.HandleTransport(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return c.errors.HandleResponse(ctx, resp)
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil && err != io.EOF {
		return c.errors.HandleTransport(fmt.Errorf("parse response: %w", err))
	}
	return nil
}
