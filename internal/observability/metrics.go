package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "svh_requests_total",
			Help: "Total number of requests",
		},
		[]string{"route", "code", "method"},
	)

	SeatsAvailable = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "svh_seats_available",
			Help: "Seats currently in the available pool",
		},
	)

	HoldsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "svh_holds_total",
			Help: "Hold lifecycle outcomes",
		},
		[]string{"outcome"},
	)

	TransitionConflicts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "svh_hold_transition_conflicts_total",
			Help: "Hold transitions that lost the compare-and-swap",
		},
		[]string{"target"},
	)

	EventsDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "svh_events_dropped_total",
			Help: "Hold events dropped because the dispatch buffer was full",
		},
	)

	EventPublishErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "svh_event_publish_errors_total",
			Help: "Hold events the sink failed to publish",
		},
	)

	OutboxLag = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "svh_outbox_lag_seconds",
			Help: "Age of the oldest outbox record relayed in the last batch",
		},
	)

	RateLimitExceeded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "svh_rate_limit_exceeded_total",
			Help: "Total rate limit exceeded",
		},
	)
)

const (
	OutcomeCreated   = "created"
	OutcomeReserved  = "reserved"
	OutcomeCancelled = "cancelled"
	OutcomeExpired   = "expired"
)
