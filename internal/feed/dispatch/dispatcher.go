// Package dispatch fans datafeed events out to subscribed listeners.
package dispatch

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/vietddude/datafeed/internal/core/domain"
	"github.com/vietddude/datafeed/internal/feed/listener"
	"github.com/vietddude/datafeed/internal/feed/metrics"
)

// Stats summarises one DispatchBatch call.
type Stats struct {
	Events      int // events in the batch
	Skipped     int // nil, untyped or unrecognized events
	Invocations int // handler calls made
	Failures    int // handler calls that returned an error or panicked
}

// Dispatcher delivers events to the listeners of a registry.
type Dispatcher struct {
	registry *listener.Registry
	log      *slog.Logger
}

// NewDispatcher creates a dispatcher reading listeners from registry.
func NewDispatcher(registry *listener.Registry, log *slog.Logger) *Dispatcher {
	if log == nil {
		log = slog.Default()
	}
	return &Dispatcher{
		registry: registry,
		log:      log.With("component", "dispatcher"),
	}
}

// DispatchBatch delivers events in order. For every event the listeners are taken from a
// single registry snapshot, in subscription order. A failing listener never prevents
// delivery to the listeners after it or to the rest of the batch.
func (d *Dispatcher) DispatchBatch(ctx context.Context, events []*domain.Event, identity string) Stats {
	stats := Stats{Events: len(events)}

	for _, event := range events {
		if event == nil || event.Type == "" {
			stats.Skipped++
			metrics.EventsSkippedTotal.WithLabelValues("untyped").Inc()
			continue
		}

		eventType, handle, ok := route(event.Type)
		if !ok {
			d.log.Warn("Received event with unknown type", "type", event.Type, "id", event.ID)
			stats.Skipped++
			metrics.EventsSkippedTotal.WithLabelValues("unknown_type").Inc()
			continue
		}
		metrics.EventsReceivedTotal.WithLabelValues(string(eventType)).Inc()

		for _, l := range d.registry.Snapshot() {
			invoked, err := d.invoke(ctx, l, handle, event, identity)
			if invoked {
				stats.Invocations++
			}
			if err != nil {
				stats.Failures++
				metrics.ListenerFailuresTotal.WithLabelValues(string(eventType)).Inc()
				d.log.Error("Listener failed to handle event",
					"type", eventType,
					"id", event.ID,
					"listener", fmt.Sprintf("%T", l),
					"error", err,
				)
			}
		}
	}

	return stats
}

// invoke runs the acceptance check and the handler for one listener, turning a panic in
// either into an error.
func (d *Dispatcher) invoke(
	ctx context.Context,
	l listener.Listener,
	handle handlerFunc,
	event *domain.Event,
	identity string,
) (invoked bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("listener panic: %v", r)
		}
	}()

	if !l.Accepts(event, identity) {
		return false, nil
	}
	invoked = true
	return invoked, handle(l, ctx, event)
}
