// Package loop implements the datafeed poll loop: read a batch, hand it to the
// dispatcher, and on failure consult the recovery policy, until stopped.
package loop

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"

	"github.com/vietddude/datafeed/internal/core/domain"
	"github.com/vietddude/datafeed/internal/feed/dispatch"
	"github.com/vietddude/datafeed/internal/feed/metrics"
	"github.com/vietddude/datafeed/internal/feed/recovery"
	"github.com/vietddude/datafeed/internal/infra/storage"
)

var (
	// ErrAlreadyStarted is returned by Start on a loop that is not in the created state.
	ErrAlreadyStarted = errors.New("datafeed loop already started")

	// ErrRetriesExhausted wraps the last failure once the backoff gives up.
	ErrRetriesExhausted = errors.New("datafeed retries exhausted")
)

// Fetcher reads the next batch of events after cursor. Reads must be safe to repeat
// after an endpoint rotation.
type Fetcher interface {
	Read(ctx context.Context, cursor domain.Cursor) (domain.Batch, error)
}

// Dispatcher delivers a batch to listeners.
type Dispatcher interface {
	DispatchBatch(ctx context.Context, events []*domain.Event, identity string) dispatch.Stats
}

// TerminalError is the cause a loop stopped with.
type TerminalError struct {
	Kind domain.ErrorKind
	Err  error
}

func (e *TerminalError) Error() string {
	return fmt.Sprintf("datafeed loop terminated (%s): %v", e.Kind, e.Err)
}

func (e *TerminalError) Unwrap() error {
	return e.Err
}

// Config holds loop configuration
type Config struct {
	Name       string // metrics label, defaults to a random id
	Identity   string // username passed to listener acceptance checks
	Fetcher    Fetcher
	Dispatcher Dispatcher
	Policy     *recovery.Policy
	Executor   *recovery.Executor
	Backoff    recovery.BackoffConfig

	// Cursors persists the read position under CursorKey. Optional.
	Cursors   storage.CursorRepository
	CursorKey string

	// ResetCursorOn reports the error kinds after which the current feed is abandoned
	// and a new one is created on the next read. Optional.
	ResetCursorOn func(domain.ErrorKind) bool

	Logger *slog.Logger
}

// Loop is a single datafeed consumer. It runs on one goroutine; only Start, Stop and the
// accessors are safe to call from elsewhere.
type Loop struct {
	cfg Config
	log *slog.Logger

	mu     sync.Mutex
	state  State
	err    error
	cursor domain.Cursor
	cancel context.CancelFunc
	done   chan struct{}
}

// New creates a loop in the created state.
func New(cfg Config) (*Loop, error) {
	if cfg.Fetcher == nil {
		return nil, errors.New("fetcher is required")
	}
	if cfg.Dispatcher == nil {
		return nil, errors.New("dispatcher is required")
	}
	if cfg.Name == "" {
		cfg.Name = uuid.NewString()
	}
	if cfg.Policy == nil {
		cfg.Policy = recovery.NewPolicy()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Executor == nil {
		cfg.Executor = recovery.NewExecutor(nil, nil, cfg.Logger)
	}
	if cfg.Backoff == (recovery.BackoffConfig{}) {
		cfg.Backoff = recovery.DefaultBackoff()
	}

	l := &Loop{
		cfg:   cfg,
		log:   cfg.Logger.With("component", "datafeed_loop", "loop", cfg.Name),
		state: StateCreated,
		done:  make(chan struct{}),
	}
	metrics.LoopState.WithLabelValues(cfg.Name).Set(float64(StateCreated))
	return l, nil
}

// Start launches the loop on its own goroutine. It can be called once.
func (l *Loop) Start(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.state != StateCreated {
		return ErrAlreadyStarted
	}

	runCtx, cancel := context.WithCancel(ctx)
	l.cancel = cancel
	if err := l.setStateLocked(StateRunning); err != nil {
		cancel()
		return err
	}

	l.log.Info("Datafeed loop started", "identity", l.cfg.Identity)
	go l.run(runCtx)
	return nil
}

// Stop asks the loop to finish. A batch being dispatched is delivered completely first;
// a blocked read, backoff or recovery call is interrupted. Stop does not wait, use Wait.
func (l *Loop) Stop() {
	l.mu.Lock()
	defer l.mu.Unlock()

	switch l.state {
	case StateCreated:
		_ = l.setStateLocked(StateStopped)
		close(l.done)
	case StateRunning:
		_ = l.setStateLocked(StateStopping)
		l.cancel()
	}
}

// Wait blocks until the loop stops or ctx is done and returns the terminal cause.
func (l *Loop) Wait(ctx context.Context) error {
	select {
	case <-l.done:
		return l.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Done is closed once the loop reaches the stopped state.
func (l *Loop) Done() <-chan struct{} {
	return l.done
}

// Err returns the *TerminalError the loop stopped with, or nil after a requested stop.
func (l *Loop) Err() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.err
}

// State returns the current state.
func (l *Loop) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// Cursor returns the position after the last dispatched batch.
func (l *Loop) Cursor() domain.Cursor {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.cursor
}

func (l *Loop) setStateLocked(to State) error {
	if !CanTransition(l.state, to) {
		l.log.Error("Rejected loop state change", "from", l.state, "to", to)
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, l.state, to)
	}
	l.log.Debug("Loop state changed", "from", l.state, "to", to)
	l.state = to
	metrics.LoopState.WithLabelValues(l.cfg.Name).Set(float64(to))
	return nil
}

func (l *Loop) finish(cause error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.cancel()
	l.err = cause
	_ = l.setStateLocked(StateStopped)
	close(l.done)

	if cause != nil {
		l.log.Error("Datafeed loop stopped", "error", cause)
		return
	}
	l.log.Info("Datafeed loop stopped")
}

func (l *Loop) run(ctx context.Context) {
	var cause error
	defer func() { l.finish(cause) }()

	cursor := l.loadCursor(ctx)
	backoff := l.cfg.Backoff.New()

	for {
		if ctx.Err() != nil {
			return
		}

		batch, err := l.fetch(ctx, cursor)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			cursor, cause = l.recover(ctx, err, cursor, backoff)
			if cause != nil {
				return
			}
			continue
		}

		// Listeners see a context that survives Stop so the batch is delivered whole.
		stats := l.cfg.Dispatcher.DispatchBatch(context.WithoutCancel(ctx), batch.Events, l.cfg.Identity)
		if stats.Events > 0 {
			l.log.Debug("Dispatched batch",
				"events", stats.Events,
				"skipped", stats.Skipped,
				"invocations", stats.Invocations,
				"failures", stats.Failures,
			)
		}

		cursor = batch.Cursor
		l.commit(ctx, cursor)
		backoff = l.cfg.Backoff.New()
	}
}

func (l *Loop) fetch(ctx context.Context, cursor domain.Cursor) (domain.Batch, error) {
	start := time.Now()
	batch, err := l.cfg.Fetcher.Read(ctx, cursor)
	metrics.FetchLatency.WithLabelValues(l.cfg.Name).Observe(time.Since(start).Seconds())

	if err != nil {
		metrics.FetchesTotal.WithLabelValues(l.cfg.Name, "failure").Inc()
		return batch, err
	}
	metrics.FetchesTotal.WithLabelValues(l.cfg.Name, "success").Inc()
	return batch, nil
}

// recover runs the recovery policy for a failed read. It returns the cursor to continue
// from, or a *TerminalError when the loop must stop.
func (l *Loop) recover(
	ctx context.Context,
	err error,
	cursor domain.Cursor,
	backoff retry.Backoff,
) (domain.Cursor, error) {
	kind := kindOf(err)
	action := l.cfg.Policy.Decide(kind)
	metrics.FetchErrorsTotal.WithLabelValues(l.cfg.Name, kind.String()).Inc()
	l.log.Warn("Datafeed read failed", "kind", kind, "action", action, "error", err)

	if action == recovery.ActionFail {
		return cursor, &TerminalError{Kind: kind, Err: err}
	}

	if xerr := l.cfg.Executor.Execute(ctx, action, err); xerr != nil {
		if ctx.Err() != nil {
			return cursor, nil
		}
		metrics.RecoveryActionsTotal.WithLabelValues(l.cfg.Name, action.String(), "failure").Inc()

		var ae *recovery.ActionError
		if errors.As(xerr, &ae) && ae.Fatal() {
			return cursor, &TerminalError{Kind: kind, Err: xerr}
		}
		l.log.Error("Recovery action failed", "action", action, "error", xerr)
	} else {
		metrics.RecoveryActionsTotal.WithLabelValues(l.cfg.Name, action.String(), "success").Inc()
	}

	if l.cfg.ResetCursorOn != nil && l.cfg.ResetCursorOn(kind) {
		l.log.Info("Abandoning datafeed, a new one will be created", "feed_id", cursor.FeedID)
		cursor = domain.Cursor{}
	}

	delay, stop := backoff.Next()
	if stop {
		return cursor, &TerminalError{Kind: kind, Err: fmt.Errorf("%w: %w", ErrRetriesExhausted, err)}
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
	return cursor, nil
}

func (l *Loop) loadCursor(ctx context.Context) domain.Cursor {
	if l.cfg.Cursors == nil {
		return domain.Cursor{}
	}

	c, err := l.cfg.Cursors.Get(ctx, l.cfg.CursorKey)
	if err != nil {
		if !errors.Is(err, storage.ErrCursorNotFound) {
			l.log.Warn("Failed to load datafeed cursor, starting a new feed", "error", err)
		}
		return domain.Cursor{}
	}

	l.log.Info("Resuming datafeed", "feed_id", c.FeedID)
	l.mu.Lock()
	l.cursor = *c
	l.mu.Unlock()
	return *c
}

// commit records the cursor after a dispatched batch. Persisting is best effort: on
// failure the feed is still read from memory and a restart replays at most the batches
// since the last stored position.
func (l *Loop) commit(ctx context.Context, cursor domain.Cursor) {
	l.mu.Lock()
	l.cursor = cursor
	l.mu.Unlock()

	if l.cfg.Cursors == nil {
		return
	}

	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := l.cfg.Cursors.Save(saveCtx, l.cfg.CursorKey, cursor); err != nil {
		l.log.Warn("Failed to persist datafeed cursor", "error", err)
	}
}

// kindOf extracts the classified kind from a read error.
func kindOf(err error) domain.ErrorKind {
	var k interface{ Kind() domain.ErrorKind }
	if errors.As(err, &k) {
		return k.Kind()
	}
	return domain.ErrorKindUnknown
}
