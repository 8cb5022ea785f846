package metrics

import (
	"mercator-hq/bidguard/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// PolicyMetrics tracks metrics related to policy evaluation.
//
// Metrics:
//   - bidguard_policy_decisions_total: decisions by category, result, and event type
//   - bidguard_policy_hard_stops_total: strict-mode hard-stops by category
//   - bidguard_policy_learns_total: audited list mutations by target list
type PolicyMetrics struct {
	decisionsTotal *prometheus.CounterVec
	hardStopsTotal *prometheus.CounterVec
	learnsTotal    *prometheus.CounterVec
}

// NewPolicyMetrics creates and registers policy metrics with the provided registry.
func NewPolicyMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *PolicyMetrics {
	pm := &PolicyMetrics{
		decisionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: "policy",
				Name:      "decisions_total",
				Help:      "Total number of policy decisions",
			},
			[]string{"category", "decision", "event_type"},
		),
		hardStopsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: "policy",
				Name:      "hard_stops_total",
				Help:      "Total number of strict-mode hard-stops",
			},
			[]string{"category"},
		),
		learnsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: "policy",
				Name:      "learns_total",
				Help:      "Total number of audited policy list changes",
			},
			[]string{"list"},
		),
	}

	registry.MustRegister(pm.decisionsTotal, pm.hardStopsTotal, pm.learnsTotal)
	return pm
}
