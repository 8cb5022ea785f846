package metrics

import (
	"mercator-hq/bidguard/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// RiskMetrics tracks bid-level risk and outcome metrics.
type RiskMetrics struct {
	assessmentsTotal *prometheus.CounterVec
	scores           prometheus.Histogram
	flagsTotal       *prometheus.CounterVec
	bidsTotal        *prometheus.CounterVec
	bidDuration      prometheus.Histogram
}

// NewRiskMetrics creates and registers risk metrics.
func NewRiskMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *RiskMetrics {
	rm := &RiskMetrics{
		assessmentsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: "risk",
				Name:      "assessments_total",
				Help:      "Total number of risk assessments by level",
			},
			[]string{"level"},
		),
		scores: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: "risk",
				Name:      "scores",
				Help:      "Distribution of bid risk scores",
				Buckets:   []float64{10, 25, 45, 70, 100},
			},
		),
		flagsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: "risk",
				Name:      "flags_total",
				Help:      "Total number of risk flags raised",
			},
			[]string{"flag"},
		),
		bidsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: "bid",
				Name:      "runs_total",
				Help:      "Total number of bid evaluations by outcome",
			},
			[]string{"outcome"},
		),
		bidDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: "bid",
				Name:      "run_duration_seconds",
				Help:      "Duration of bid evaluations in seconds",
				Buckets:   prometheus.ExponentialBuckets(0.001, 4, 8), // 1ms to ~16s
			},
		),
	}

	registry.MustRegister(rm.assessmentsTotal, rm.scores, rm.flagsTotal, rm.bidsTotal, rm.bidDuration)
	return rm
}
