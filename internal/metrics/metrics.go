// Package metrics exposes Prometheus collectors for the lead routing
// pipeline. Collectors are registered on the default registry and served
// through promhttp on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	AssignmentsCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "leaddesk_assignments_created_total",
		Help: "Assignment rows created, by reason (initial or escalation).",
	}, []string{"reason"})

	AssignmentsResolved = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "leaddesk_assignments_resolved_total",
		Help: "Assignment rows leaving the assigned state, by terminal status.",
	}, []string{"status"})

	EscalationsExhausted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "leaddesk_escalations_exhausted_total",
		Help: "Expirations where no eligible broker remained for the prospect.",
	})

	TimeToAccept = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "leaddesk_time_to_accept_seconds",
		Help:    "Latency between assignment creation and broker accept.",
		Buckets: []float64{15, 30, 60, 120, 300, 600, 1800},
	})

	SweepDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "leaddesk_sweep_duration_seconds",
		Help:    "Wall time of a single expiration sweep pass.",
		Buckets: prometheus.DefBuckets,
	})

	SweepBatchSize = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "leaddesk_sweep_batch_size",
		Help:    "Overdue rows picked up per sweep pass.",
		Buckets: []float64{0, 1, 5, 10, 25, 50},
	})
)
