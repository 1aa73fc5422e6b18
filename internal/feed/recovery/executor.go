package recovery

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// ErrRecoveryFailed marks errors returned when a recovery action itself failed.
var ErrRecoveryFailed = errors.New("recovery action failed")

// Rotator switches the datafeed to another backend endpoint.
type Rotator interface {
	Rotate(ctx context.Context) (string, error)
}

// Refresher re-authenticates the session used for datafeed calls.
type Refresher interface {
	Refresh(ctx context.Context) error
}

// ActionError is returned by Execute when the action could not be carried out.
type ActionError struct {
	Action Action
	Err    error
}

func (e *ActionError) Error() string {
	return fmt.Sprintf("%s: %s: %v", ErrRecoveryFailed, e.Action, e.Err)
}

func (e *ActionError) Unwrap() []error {
	return []error{ErrRecoveryFailed, e.Err}
}

// Fatal reports whether the failure must stop the loop. A rejected session refresh
// cannot be fixed by retrying; a failed rotation only ends the current attempt.
func (e *ActionError) Fatal() bool {
	return e.Action != ActionRotateEndpointAndRetry
}

// refreshOutcome is implemented by errors whose call-site handler already refreshed the
// session when it saw the 401.
type refreshOutcome interface {
	RefreshOutcome() (attempted bool, err error)
}

// Executor performs recovery actions against the external collaborators. It runs on the
// loop's worker, so actions never overlap.
type Executor struct {
	rotator   Rotator
	refresher Refresher
	log       *slog.Logger
}

// NewExecutor creates an executor. Either collaborator may be nil, in which case the
// corresponding action fails.
func NewExecutor(rotator Rotator, refresher Refresher, log *slog.Logger) *Executor {
	if log == nil {
		log = slog.Default()
	}
	return &Executor{
		rotator:   rotator,
		refresher: refresher,
		log:       log.With("component", "recovery"),
	}
}

// Execute carries out action for the failure cause.
func (x *Executor) Execute(ctx context.Context, action Action, cause error) error {
	switch action {
	case ActionRetrySameEndpoint:
		return nil

	case ActionRotateEndpointAndRetry:
		if x.rotator == nil {
			return &ActionError{Action: action, Err: errors.New("no endpoint rotator configured")}
		}
		endpoint, err := x.rotator.Rotate(ctx)
		if err != nil {
			return &ActionError{Action: action, Err: err}
		}
		x.log.Info("Rotated datafeed endpoint", "endpoint", endpoint, "cause", cause)
		return nil

	case ActionRefreshAuthAndRetry:
		// The 401 may already have triggered a refresh where it was classified. Reuse that
		// outcome instead of refreshing twice for one failure.
		var eager refreshOutcome
		if errors.As(cause, &eager) {
			if attempted, err := eager.RefreshOutcome(); attempted {
				if err != nil {
					return &ActionError{Action: action, Err: err}
				}
				x.log.Debug("Session already refreshed by call-site handler")
				return nil
			}
		}
		if x.refresher == nil {
			return &ActionError{Action: action, Err: errors.New("no session refresher configured")}
		}
		x.log.Info("Re-authenticate and try again")
		if err := x.refresher.Refresh(ctx); err != nil {
			return &ActionError{Action: action, Err: err}
		}
		return nil

	default:
		return &ActionError{Action: action, Err: cause}
	}
}
