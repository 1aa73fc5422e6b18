package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// FetchesTotal tracks datafeed reads by result (success, failure)
	FetchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "datafeed_fetches_total",
			Help: "Total number of datafeed read calls",
		},
		[]string{"loop", "result"},
	)

	// FetchErrorsTotal tracks failed reads per classified error kind
	FetchErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "datafeed_fetch_errors_total",
			Help: "Total number of failed datafeed reads by error kind",
		},
		[]string{"loop", "kind"},
	)

	// FetchLatency tracks datafeed read latency
	FetchLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "datafeed_fetch_latency_seconds",
			Help:    "Datafeed read latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"loop"},
	)

	// RecoveryActionsTotal tracks the recovery actions taken after failed reads
	RecoveryActionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "datafeed_recovery_actions_total",
			Help: "Total number of recovery actions by action and outcome",
		},
		[]string{"loop", "action", "outcome"},
	)

	// EventsReceivedTotal tracks events handed to the dispatcher
	EventsReceivedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "datafeed_events_received_total",
			Help: "Total number of events received per type",
		},
		[]string{"type"},
	)

	// EventsSkippedTotal tracks events that were not dispatched
	EventsSkippedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "datafeed_events_skipped_total",
			Help: "Total number of events skipped by reason",
		},
		[]string{"reason"},
	)

	// ListenerFailuresTotal tracks listener handlers that returned an error or panicked
	ListenerFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "datafeed_listener_failures_total",
			Help: "Total number of failed listener invocations per event type",
		},
		[]string{"type"},
	)

	// LoopState exposes the current loop state (0 created, 1 running, 2 stopping, 3 stopped)
	LoopState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "datafeed_loop_state",
			Help: "Current state of the datafeed loop",
		},
		[]string{"loop"},
	)

	// Listeners tracks the number of subscribed listeners
	Listeners = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "datafeed_listeners",
			Help: "Number of subscribed datafeed listeners",
		},
	)
)
