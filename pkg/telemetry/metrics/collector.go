package metrics

import (
	"time"

	"mercator-hq/bidguard/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// Collector owns the Prometheus registry and every metric recorded by the
// engine. A nil *Collector, or one built from a disabled configuration,
// accepts every call and records nothing, so components can take an
// optional collector without nil checks.
type Collector struct {
	config   *config.MetricsConfig
	registry *prometheus.Registry

	policyMetrics  *PolicyMetrics
	ratingMetrics  *RatingMetrics
	riskMetrics    *RiskMetrics
	storageMetrics *StorageMetrics
}

// NewCollector creates a new metrics collector with the specified
// configuration and Prometheus registry. If registry is nil, a private
// registry is created.
//
// Example:
//
//	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, nil)
//	collector.RecordDecision("Manufacturer", "Blocked", "Check")
func NewCollector(cfg *config.MetricsConfig, registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	if cfg.Namespace == "" {
		cfg.Namespace = config.DefaultMetricsNamespace
	}

	return &Collector{
		config:         cfg,
		registry:       registry,
		policyMetrics:  NewPolicyMetrics(cfg, registry),
		ratingMetrics:  NewRatingMetrics(cfg, registry),
		riskMetrics:    NewRiskMetrics(cfg, registry),
		storageMetrics: NewStorageMetrics(cfg, registry),
	}
}

func (c *Collector) enabled() bool {
	return c != nil && c.config.Enabled
}

// Registry returns the underlying registry.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// RecordDecision records a policy decision.
//
// Parameters:
//   - category: entity category ("Manufacturer", "Supplier", "Subcontractor")
//   - decision: "Allowed", "Blocked", or "Rejected"
//   - eventType: "Check" or "Bypass"
func (c *Collector) RecordDecision(category, decision, eventType string) {
	if !c.enabled() {
		return
	}
	c.policyMetrics.decisionsTotal.WithLabelValues(category, decision, eventType).Inc()
}

// RecordHardStop records a strict-mode hard-stop.
func (c *Collector) RecordHardStop(category string) {
	if !c.enabled() {
		return
	}
	c.policyMetrics.hardStopsTotal.WithLabelValues(category).Inc()
}

// RecordLearn records an audited list mutation.
//
// Parameters:
//   - list: "denylist" or "allowlist"
func (c *Collector) RecordLearn(list string) {
	if !c.enabled() {
		return
	}
	c.policyMetrics.learnsTotal.WithLabelValues(list).Inc()
}

// RecordRating records a transaction score and whether it fell below the
// configured floor.
func (c *Collector) RecordRating(category string, score float64, belowFloor bool) {
	if !c.enabled() {
		return
	}
	c.ratingMetrics.scores.WithLabelValues(category).Observe(score)
	if belowFloor {
		c.ratingMetrics.belowFloorTotal.WithLabelValues(category).Inc()
	}
}

// RecordTrustChange records a trust term change.
//
// Parameters:
//   - direction: "violation" or "restore"
func (c *Collector) RecordTrustChange(direction string) {
	if !c.enabled() {
		return
	}
	c.ratingMetrics.trustChangesTotal.WithLabelValues(direction).Inc()
}

// RecordRisk records a bid risk assessment.
func (c *Collector) RecordRisk(level string, score float64, flags []string) {
	if !c.enabled() {
		return
	}
	c.riskMetrics.assessmentsTotal.WithLabelValues(level).Inc()
	c.riskMetrics.scores.Observe(score)
	for _, f := range flags {
		c.riskMetrics.flagsTotal.WithLabelValues(f).Inc()
	}
}

// RecordBid records the outcome of a bid run.
//
// Parameters:
//   - outcome: "completed", "halted", or "failed"
func (c *Collector) RecordBid(outcome string, duration time.Duration) {
	if !c.enabled() {
		return
	}
	c.riskMetrics.bidsTotal.WithLabelValues(outcome).Inc()
	c.riskMetrics.bidDuration.Observe(duration.Seconds())
}

// RecordLedgerOp records a ledger load, save, or flush.
//
// Parameters:
//   - op: "load", "save", or "flush"
//   - status: "success" or "error"
func (c *Collector) RecordLedgerOp(op, status string, duration time.Duration) {
	if !c.enabled() {
		return
	}
	c.storageMetrics.ledgerOpsTotal.WithLabelValues(op, status).Inc()
	c.storageMetrics.ledgerOpDuration.WithLabelValues(op).Observe(duration.Seconds())
}

// RecordAuditWrite records an audit append.
//
// Parameters:
//   - sink: "file", "sqlite", or "memory"
//   - status: "success" or "error"
func (c *Collector) RecordAuditWrite(sink, status string) {
	if !c.enabled() {
		return
	}
	c.storageMetrics.auditWritesTotal.WithLabelValues(sink, status).Inc()
}
