package metrics

import (
	"mercator-hq/bidguard/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// RatingMetrics tracks metrics related to entity rating.
//
// Metrics:
//   - bidguard_rating_scores: distribution of transaction scores
//   - bidguard_rating_below_floor_total: ratings under the score floor
//   - bidguard_rating_trust_changes_total: trust term changes by direction
type RatingMetrics struct {
	scores            *prometheus.HistogramVec
	belowFloorTotal   *prometheus.CounterVec
	trustChangesTotal *prometheus.CounterVec
}

// NewRatingMetrics creates and registers rating metrics.
func NewRatingMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *RatingMetrics {
	rm := &RatingMetrics{
		scores: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: "rating",
				Name:      "scores",
				Help:      "Distribution of transaction scores",
				Buckets:   prometheus.LinearBuckets(10, 10, 10), // 10..100
			},
			[]string{"category"},
		),
		belowFloorTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: "rating",
				Name:      "below_floor_total",
				Help:      "Total number of ratings below the score floor",
			},
			[]string{"category"},
		),
		trustChangesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: "rating",
				Name:      "trust_changes_total",
				Help:      "Total number of trust term changes",
			},
			[]string{"direction"},
		),
	}

	registry.MustRegister(rm.scores, rm.belowFloorTotal, rm.trustChangesTotal)
	return rm
}
