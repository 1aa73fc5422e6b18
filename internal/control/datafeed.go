package control

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/vietddude/datafeed/internal/core/config"
	"github.com/vietddude/datafeed/internal/core/domain"
	"github.com/vietddude/datafeed/internal/feed/dispatch"
	"github.com/vietddude/datafeed/internal/feed/health"
	"github.com/vietddude/datafeed/internal/feed/listener"
	"github.com/vietddude/datafeed/internal/feed/loop"
	"github.com/vietddude/datafeed/internal/feed/metrics"
	"github.com/vietddude/datafeed/internal/feed/recovery"
	"github.com/vietddude/datafeed/internal/infra/agent"
	"github.com/vietddude/datafeed/internal/infra/auth"
	redisclient "github.com/vietddude/datafeed/internal/infra/redis"
	"github.com/vietddude/datafeed/internal/infra/routing"
	"github.com/vietddude/datafeed/internal/infra/storage"
	"github.com/vietddude/datafeed/internal/infra/storage/postgres"
)

// Config holds the application configuration.
type Config struct {
	Port     int // health server port, disabled when <= 0
	Username string
	Agent    config.AgentConfig
	Auth     auth.Config
	Datafeed config.DatafeedConfig
	Redis    redisclient.Config
	Database postgres.Config
}

// FromAppConfig maps the loaded file configuration.
func FromAppConfig(cfg *config.AppConfig) Config {
	return Config{
		Port:     cfg.Server.Port,
		Username: cfg.Bot.Username,
		Agent:    cfg.Agent,
		Auth:     cfg.Auth,
		Datafeed: cfg.Datafeed,
		Redis:    cfg.Redis,
		Database: cfg.Database,
	}
}

// Datafeed owns one datafeed loop and everything it needs: the session, the agent
// client, the listener registry, the cursor store and the health server.
type Datafeed struct {
	cfg          Config
	registry     *listener.Registry
	session      *auth.Session
	client       *agent.Client
	rotator      *routing.EndpointRotator
	cursors      storage.CursorRepository
	loop         *loop.Loop
	healthServer *health.Server
	closers      []func() error
	log          *slog.Logger
}

// NewDatafeed creates a Datafeed with all dependencies initialized. The loop is created
// but not started.
func NewDatafeed(ctx context.Context, cfg Config) (*Datafeed, error) {
	log := slog.Default().With("component", "datafeed")

	if cfg.Agent.LoadBalancing.NonSticky() {
		log.Warn("DF used with agent load balancing configured with stickiness false. DF calls will still be sticky.")
	}

	rotator, err := routing.NewEndpointRotator(
		cfg.Agent.URLs,
		routing.ParseStrategy(cfg.Agent.LoadBalancing.Mode),
	)
	if err != nil {
		return nil, err
	}

	d := &Datafeed{
		cfg:      cfg,
		registry: listener.NewRegistry(),
		rotator:  rotator,
		log:      log,
	}

	// 1. Session and agent client. Without an auth endpoint the agent is expected to
	// authenticate the bot by other means and 401s fail the loop.
	var (
		tokens    agent.TokenSource
		refresher agent.Refresher
		executor  *recovery.Executor
	)
	if cfg.Auth.URL != "" {
		d.session = auth.NewSession(cfg.Auth, cfg.Username, slog.Default())
		tokens, refresher = d.session, d.session
		executor = recovery.NewExecutor(rotator, d.session, slog.Default())
	} else {
		executor = recovery.NewExecutor(rotator, nil, slog.Default())
	}
	d.client = agent.NewClient(rotator, tokens, refresher, cfg.Agent.Timeout, slog.Default())

	// 2. Cursor store
	if err := d.initStore(ctx); err != nil {
		_ = d.close()
		return nil, err
	}

	// 3. Recovery policy
	var opts []recovery.Option
	var resetOn func(domain.ErrorKind) bool
	if cfg.Datafeed.RecreateOnBadRequest {
		opts = append(opts, recovery.WithRule(recovery.Rule{
			Name:   "recreate_on_bad_request",
			Match:  recovery.Kinds(domain.ErrorKindBadRequest),
			Action: recovery.ActionRetrySameEndpoint,
		}))
		resetOn = func(k domain.ErrorKind) bool { return k == domain.ErrorKindBadRequest }
	}

	// 4. Loop
	retryCfg := cfg.Datafeed.Retry
	d.loop, err = loop.New(loop.Config{
		Name:       cfg.Username,
		Identity:   cfg.Username,
		Fetcher:    d.client,
		Dispatcher: dispatch.NewDispatcher(d.registry, slog.Default()),
		Policy:     recovery.NewPolicy(opts...),
		Executor:   executor,
		Backoff: recovery.BackoffConfig{
			InitialInterval: retryCfg.InitialInterval,
			MaxInterval:     retryCfg.MaxInterval,
			MaxAttempts:     uint64(retryCfg.MaxAttempts),
			JitterPercent:   uint64(retryCfg.JitterPercent),
		},
		Cursors:       d.cursors,
		CursorKey:     cfg.Datafeed.CursorKey,
		ResetCursorOn: resetOn,
		Logger:        slog.Default(),
	})
	if err != nil {
		_ = d.close()
		return nil, fmt.Errorf("failed to create datafeed loop: %w", err)
	}

	// 5. Health server
	if cfg.Port > 0 {
		d.healthServer = health.NewServer(d, cfg.Port)
	}

	return d, nil
}

func (d *Datafeed) initStore(ctx context.Context) error {
	cursors, closer, err := OpenCursorStore(ctx, d.cfg)
	if err != nil {
		return err
	}
	d.cursors = cursors
	if closer != nil {
		d.closers = append(d.closers, closer)
	}
	return nil
}

// Subscribe registers l for the events of every following batch.
func (d *Datafeed) Subscribe(l listener.Listener) {
	d.registry.Subscribe(l)
	metrics.Listeners.Set(float64(d.registry.Len()))
}

// Unsubscribe removes the first registration of l.
func (d *Datafeed) Unsubscribe(l listener.Listener) bool {
	removed := d.registry.Unsubscribe(l)
	metrics.Listeners.Set(float64(d.registry.Len()))
	return removed
}

// Authenticate opens the bot session. It is a no-op without an auth endpoint.
func (d *Datafeed) Authenticate(ctx context.Context) error {
	if d.session == nil {
		return nil
	}
	if err := d.session.Refresh(ctx); err != nil {
		return fmt.Errorf("failed to authenticate: %w", err)
	}
	return nil
}

// Start authenticates the bot and starts the loop and the health server.
func (d *Datafeed) Start(ctx context.Context) error {
	if err := d.Authenticate(ctx); err != nil {
		return err
	}

	if err := d.loop.Start(ctx); err != nil {
		return err
	}

	if d.healthServer != nil {
		go func() {
			d.log.Info("Starting health server", "port", d.cfg.Port)
			if err := d.healthServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				d.log.Error("Health server failed", "error", err)
			}
		}()
	}
	return nil
}

// Stop stops the loop, waits for it to finish and releases the store.
func (d *Datafeed) Stop(ctx context.Context) error {
	d.log.Info("Stopping datafeed...")
	d.loop.Stop()

	var errs []error
	if err := d.loop.Wait(ctx); err != nil && ctx.Err() != nil {
		errs = append(errs, fmt.Errorf("datafeed loop did not stop: %w", err))
	}
	if d.healthServer != nil {
		if err := d.healthServer.Stop(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if err := d.close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Close releases the store of a Datafeed that was never started.
func (d *Datafeed) Close() error {
	return d.close()
}

func (d *Datafeed) close() error {
	var errs []error
	for i := len(d.closers) - 1; i >= 0; i-- {
		if err := d.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	d.closers = nil
	return errors.Join(errs...)
}

// Done is closed once the loop has stopped.
func (d *Datafeed) Done() <-chan struct{} {
	return d.loop.Done()
}

// Err returns the cause the loop terminated with, nil after a requested stop.
func (d *Datafeed) Err() error {
	return d.loop.Err()
}

// State returns the loop state.
func (d *Datafeed) State() loop.State {
	return d.loop.State()
}

// Cursor returns the last dispatched position.
func (d *Datafeed) Cursor() domain.Cursor {
	return d.loop.Cursor()
}

// Listeners returns the number of registrations.
func (d *Datafeed) Listeners() int {
	return d.registry.Len()
}

// StoredCursors returns the persisted read positions. Stores that cannot enumerate
// their keys report the configured key only.
func (d *Datafeed) StoredCursors(ctx context.Context) ([]storage.KeyedCursor, error) {
	if lister, ok := d.cursors.(storage.CursorLister); ok {
		return lister.List(ctx)
	}
	c, err := d.cursors.Get(ctx, d.cfg.Datafeed.CursorKey)
	if errors.Is(err, storage.ErrCursorNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return []storage.KeyedCursor{{Key: d.cfg.Datafeed.CursorKey, Cursor: *c}}, nil
}

// ResetCursor forgets the stored position so the next run starts on a fresh feed. With
// deleteFeed the feed it pointed to is also deleted on the agent, which needs a session.
// It must not be called while the loop is running.
func (d *Datafeed) ResetCursor(ctx context.Context, deleteFeed bool) (domain.Cursor, error) {
	key := d.cfg.Datafeed.CursorKey
	c, err := d.cursors.Get(ctx, key)
	if errors.Is(err, storage.ErrCursorNotFound) {
		return domain.Cursor{}, nil
	}
	if err != nil {
		return domain.Cursor{}, fmt.Errorf("failed to load cursor: %w", err)
	}

	if deleteFeed && c.FeedID != "" {
		if err := d.Authenticate(ctx); err != nil {
			return *c, err
		}
		if err := d.client.DeleteFeed(ctx, c.FeedID); err != nil {
			return *c, fmt.Errorf("failed to delete feed %s: %w", c.FeedID, err)
		}
		d.log.Info("Deleted datafeed", "feed_id", c.FeedID)
	}

	if err := d.cursors.Delete(ctx, key); err != nil {
		return *c, fmt.Errorf("failed to delete cursor: %w", err)
	}
	return *c, nil
}
