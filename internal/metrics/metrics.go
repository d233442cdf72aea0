// Package metrics defines Prometheus metrics for the sync core.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the sync subsystem.
type Metrics struct {
	// Sync run metrics
	SyncRunsTotal     *prometheus.CounterVec
	ItemsProcessed    prometheus.Counter
	ItemsFailed       prometheus.Counter
	SyncRunDuration   prometheus.Histogram

	// Queue metrics
	QueueDepth            prometheus.Gauge
	OperationsEnqueued    prometheus.Counter
	OperationRetriesTotal prometheus.Counter

	// Conflict metrics
	ConflictsDetected *prometheus.CounterVec
	ConflictsResolved *prometheus.CounterVec

	// Data usage: total estimated bytes transferred by sync operations.
	// Readers observe eventually-consistent values.
	BandwidthBytes prometheus.Counter
}

// New creates the metric set registered against reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		SyncRunsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "karatapp_sync_runs_total",
			Help: "Total sync runs by operation and result",
		}, []string{"operation", "result"}),
		ItemsProcessed: factory.NewCounter(prometheus.CounterOpts{
			Name: "karatapp_sync_items_processed_total",
			Help: "Total items successfully processed by sync runs",
		}),
		ItemsFailed: factory.NewCounter(prometheus.CounterOpts{
			Name: "karatapp_sync_items_failed_total",
			Help: "Total per-item failures during sync runs",
		}),
		SyncRunDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "karatapp_sync_run_duration_seconds",
			Help:    "Duration of sync runs",
			Buckets: prometheus.DefBuckets,
		}),
		QueueDepth: factory.NewGauge(prometheus.GaugeOpts{
			Name: "karatapp_offline_queue_depth",
			Help: "Current number of operations in the offline queue",
		}),
		OperationsEnqueued: factory.NewCounter(prometheus.CounterOpts{
			Name: "karatapp_offline_operations_enqueued_total",
			Help: "Total operations added to the offline queue",
		}),
		OperationRetriesTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "karatapp_offline_operation_retries_total",
			Help: "Total failed attempts recorded against queued operations",
		}),
		ConflictsDetected: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "karatapp_conflicts_detected_total",
			Help: "Total conflicts detected by type",
		}, []string{"type"}),
		ConflictsResolved: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "karatapp_conflicts_resolved_total",
			Help: "Total conflicts resolved by resolution",
		}, []string{"resolution"}),
		BandwidthBytes: factory.NewCounter(prometheus.CounterOpts{
			Name: "karatapp_sync_bandwidth_bytes_total",
			Help: "Estimated bytes transferred by sync operations",
		}),
	}
}
