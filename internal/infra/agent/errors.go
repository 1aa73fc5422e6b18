package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/vietddude/datafeed/internal/core/domain"
)

// Refresher re-authenticates the session used by the client.
type Refresher interface {
	Refresh(ctx context.Context) error
}

// APIError is a failed agent call, classified by ErrorKind.
type APIError struct {
	StatusCode int    // 0 for transport failures
	Reason     string // status reason phrase
	Message    string // message of the structured error body
	Err        error  // underlying transport error

	kind       domain.ErrorKind
	refreshed  bool
	refreshErr error
}

func (e *APIError) Error() string {
	switch {
	case e.Err != nil:
		return fmt.Sprintf("agent call failed (%s): %v", e.kind, e.Err)
	case e.Message != "":
		return fmt.Sprintf("agent call failed (%s, %d): %s", e.kind, e.StatusCode, e.Message)
	default:
		return fmt.Sprintf("agent call failed (%s, %d): %s", e.kind, e.StatusCode, e.Reason)
	}
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// Kind returns the classified error kind.
func (e *APIError) Kind() domain.ErrorKind {
	return e.kind
}

// RefreshOutcome reports whether the session was already refreshed when this 401 was
// handled, and how that refresh ended.
func (e *APIError) RefreshOutcome() (attempted bool, err error) {
	return e.refreshed, e.refreshErr
}

// Classify maps an HTTP status to an error kind.
func Classify(status int) domain.ErrorKind {
	switch {
	case status >= 500 && status <= 599:
		return domain.ErrorKindServerError
	case status == http.StatusBadRequest:
		return domain.ErrorKindBadRequest
	case status == http.StatusUnauthorized:
		return domain.ErrorKindUnauthorized
	case status == http.StatusForbidden:
		return domain.ErrorKindForbidden
	default:
		return domain.ErrorKindUnknown
	}
}

// KindOf returns the kind of an agent error, ErrorKindUnknown for anything else.
func KindOf(err error) domain.ErrorKind {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.kind
	}
	return domain.ErrorKindUnknown
}

// clientError is the structured error body returned by the agent.
type clientError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// ErrorHandler turns failed responses into *APIError. When it has a refresher it
// re-authenticates as soon as it sees a 401, and records the outcome on the error so the
// loop's recovery does not refresh a second time.
type ErrorHandler struct {
	refresher Refresher
	log       *slog.Logger
}

// NewErrorHandler creates an error handler. refresher may be nil.
func NewErrorHandler(refresher Refresher, log *slog.Logger) *ErrorHandler {
	if log == nil {
		log = slog.Default()
	}
	return &ErrorHandler{refresher: refresher, log: log}
}

// HandleResponse classifies a non-2xx response. The body is read but not closed.
func (h *ErrorHandler) HandleResponse(ctx context.Context, resp *http.Response) *APIError {
	apiErr := &APIError{
		StatusCode: resp.StatusCode,
		Reason:     http.StatusText(resp.StatusCode),
		kind:       Classify(resp.StatusCode),
	}

	if apiErr.kind == domain.ErrorKindServerError {
		h.log.Error(apiErr.Reason, "status", resp.StatusCode)
		return apiErr
	}

	var body clientError
	if data, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10)); err == nil && len(data) > 0 {
		if err := json.Unmarshal(data, &body); err == nil {
			apiErr.Message = body.Message
		}
	}

	switch apiErr.kind {
	case domain.ErrorKindBadRequest:
		h.log.Error("Client error occurred", "message", apiErr.Message)
	case domain.ErrorKindUnauthorized:
		h.log.Error("User unauthorized, refreshing tokens")
		if h.refresher != nil {
			apiErr.refreshed = true
			apiErr.refreshErr = h.refresher.Refresh(ctx)
			if apiErr.refreshErr != nil {
				h.log.Error("Token refresh failed", "error", apiErr.refreshErr)
			}
		}
	case domain.ErrorKindForbidden:
		h.log.Error("Forbidden: caller lacks necessary entitlement", "message", apiErr.Message)
	}
	return apiErr
}

// HandleTransport wraps an error raised before any response was received.
func (h *ErrorHandler) HandleTransport(err error) *APIError {
	return &APIError{Err: err, kind: domain.ErrorKindUnknown}
}
