package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Intake metrics
	EventsAccepted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "bridge_collector_events_accepted_total",
			Help: "Total number of raw events accepted and stored",
		},
	)

	EventsDuplicate = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "bridge_collector_events_duplicate_total",
			Help: "Total number of envelopes skipped as already-seen duplicates",
		},
	)

	EventsRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bridge_collector_events_rejected_total",
			Help: "Total number of envelopes rejected at intake",
		},
		[]string{"reason"},
	)

	IntakeBatches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bridge_collector_intake_batches_total",
			Help: "Total number of intake requests received",
		},
		[]string{"source", "status"},
	)

	// Normalization worker metrics
	EventsNormalized = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "bridge_collector_events_normalized_total",
			Help: "Total number of raw events normalized into canonical events",
		},
	)

	EventsRetried = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "bridge_collector_events_retried_total",
			Help: "Total number of normalization attempts scheduled for retry",
		},
	)

	EventsDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bridge_collector_events_dropped_total",
			Help: "Total number of raw events terminally dropped",
		},
		[]string{"reason"},
	)

	NormalizationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "bridge_collector_normalization_duration_seconds",
			Help:    "Duration of one normalization worker pass in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	WorkerRuns = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "bridge_collector_worker_runs_total",
			Help: "Total number of worker invocations",
		},
	)

	// Rate limiting metrics
	RateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bridge_collector_rate_limit_hits_total",
			Help: "Total number of rate limit hits",
		},
		[]string{"script_id"},
	)

	// DLQ metrics
	DLQPublished = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "bridge_collector_dlq_published_total",
			Help: "Total number of dropped events mirrored to the DLQ stream",
		},
	)
)
