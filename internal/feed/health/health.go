// Package health exposes the datafeed loop state and Prometheus metrics over HTTP.
package health

import (
	"github.com/vietddude/datafeed/internal/core/domain"
	"github.com/vietddude/datafeed/internal/feed/loop"
)

// SystemStatus represents the overall health state of the consumer.
type SystemStatus string

const (
	StatusHealthy  SystemStatus = "healthy"
	StatusStarting SystemStatus = "starting"
	StatusCritical SystemStatus = "critical"
)

// Source is what the server reports on; implemented by the control layer.
type Source interface {
	State() loop.State
	Err() error
	Cursor() domain.Cursor
	Listeners() int
}

// Report contains the full health report.
type Report struct {
	Status    SystemStatus `json:"status"`
	LoopState string       `json:"loop_state"`
	FeedID    string       `json:"feed_id,omitempty"`
	Listeners int          `json:"listeners"`
	Error     string       `json:"error,omitempty"`
}

// StatusOf maps a loop state to a health status. A stopped loop is critical whatever
// the reason, so a supervisor can restart the process.
func StatusOf(s loop.State) SystemStatus {
	switch s {
	case loop.StateRunning:
		return StatusHealthy
	case loop.StateCreated:
		return StatusStarting
	default:
		return StatusCritical
	}
}

// BuildReport snapshots src.
func BuildReport(src Source) Report {
	state := src.State()
	r := Report{
		Status:    StatusOf(state),
		LoopState: state.String(),
		FeedID:    src.Cursor().FeedID,
		Listeners: src.Listeners(),
	}
	if err := src.Err(); err != nil {
		r.Error = err.Error()
	}
	return r
}
