package syncer

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	runsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "drive_mirror_sync_runs_total",
		Help: "Finished sync runs by kind and final state.",
	}, []string{"kind", "state"})

	scopeDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "drive_mirror_sync_scope_duration_seconds",
		Help:    "Time spent reconciling one scope.",
		Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
	}, []string{"kind"})

	changesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "drive_mirror_sync_changes_total",
		Help: "Rows changed by reconciliation.",
	}, []string{"kind", "op"})

	scopeFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "drive_mirror_sync_scope_failures_total",
		Help: "Failed scope reconciliations by error kind.",
	}, []string{"kind", "error_kind"})
)
