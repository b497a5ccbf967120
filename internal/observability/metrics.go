// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Polling metrics
	FramesPolled    prometheus.Counter
	PollErrors      prometheus.Counter
	ReadingsDropped prometheus.Counter
	PollLatency     prometheus.Histogram

	// Core decision metrics
	DeathsLatched        prometheus.Counter
	TradesConfirmed      prometheus.Counter
	OverheatsDetected    prometheus.Counter
	FallbackDiffs        prometheus.Counter
	InvariantViolations  prometheus.Counter
	RoundBoundaryResets  prometheus.Counter
	NotificationFailures prometheus.Counter

	// State metrics
	Analyzing prometheus.Gauge
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "overheat_punisher"
	}

	return &Metrics{
		FramesPolled: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_polled_total",
			Help:      "Total frames polled from the sensor",
		}),
		PollErrors: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "poll_errors_total",
			Help:      "Total frame poll failures",
		}),
		ReadingsDropped: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "readings_dropped_total",
			Help:      "Total frames dropped as unreadable by the HUD reader",
		}),
		PollLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "poll_latency_seconds",
			Help:      "Time spent processing one polled frame",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 12),
		}),
		DeathsLatched: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "deaths_latched_total",
			Help:      "Total monitored-player deaths latched for analysis",
		}),
		TradesConfirmed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "trades_confirmed_total",
			Help:      "Total deaths resolved as traded within the window",
		}),
		OverheatsDetected: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "overheats_detected_total",
			Help:      "Total overheat verdicts emitted",
		}),
		FallbackDiffs: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fallback_diffs_total",
			Help:      "Total death differentials reconstructed via the degraded fallback path",
		}),
		InvariantViolations: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "invariant_violations_total",
			Help:      "Total classification cycles aborted on a state invariant violation",
		}),
		RoundBoundaryResets: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "round_boundary_resets_total",
			Help:      "Total pending deaths discarded on a round-phase transition",
		}),
		NotificationFailures: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notification_failures_total",
			Help:      "Total overheat notifications that returned an error",
		}),
		Analyzing: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "analyzing",
			Help:      "1 while a death is latched and awaiting classification",
		}),
	}
}
