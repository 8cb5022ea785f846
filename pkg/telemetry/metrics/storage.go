package metrics

import (
	"mercator-hq/bidguard/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// StorageMetrics tracks ledger and audit persistence.
type StorageMetrics struct {
	ledgerOpsTotal   *prometheus.CounterVec
	ledgerOpDuration *prometheus.HistogramVec
	auditWritesTotal *prometheus.CounterVec
}

// NewStorageMetrics creates and registers storage metrics.
func NewStorageMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *StorageMetrics {
	sm := &StorageMetrics{
		ledgerOpsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: "ledger",
				Name:      "operations_total",
				Help:      "Total number of ledger operations",
			},
			[]string{"op", "status"},
		),
		ledgerOpDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: "ledger",
				Name:      "operation_duration_seconds",
				Help:      "Duration of ledger operations in seconds",
				Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 12), // 0.5ms to ~1s
			},
			[]string{"op"},
		),
		auditWritesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: "audit",
				Name:      "writes_total",
				Help:      "Total number of audit entry writes",
			},
			[]string{"sink", "status"},
		),
	}

	registry.MustRegister(sm.ledgerOpsTotal, sm.ledgerOpDuration, sm.auditWritesTotal)
	return sm
}
