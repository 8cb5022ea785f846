package rating

import (
	"math"
	"time"

	"mercator-hq/bidguard/pkg/config"
)

// Timeliness scores a reply latency with the configured step function.
func Timeliness(cfg config.TimelinessConfig, latency time.Duration) float64 {
	switch {
	case latency <= cfg.FullMarksWithin:
		return 100
	case latency <= cfg.FirstBreakpoint:
		return cfg.FirstStepScore
	case latency <= cfg.SecondBreakpoint:
		return cfg.SecondStepScore
	default:
		return cfg.FloorScore
	}
}

// Variance is the relative deviation of quoted from baseline.
// baseline must be positive.
func Variance(quoted, baseline float64) float64 {
	return (quoted - baseline) / baseline
}

// Fairness scores a quote against its baseline. Quotes at or under the
// baseline earn a bonus; quotes over it are penalized more steeply.
func Fairness(cfg config.FairnessConfig, quoted, baseline float64) float64 {
	v := Variance(quoted, baseline)
	if v <= 0 {
		return clamp(100 + math.Abs(v)*100*cfg.UnderBonusMultiplier)
	}
	return clamp(100 - v*100*cfg.OverPenaltyMultiplier)
}

// Trust returns the trust subscore for a transaction and the bounded
// alignment delta that produced it.
func Trust(trustTerm, alignmentDelta, maxDelta float64) (score, delta float64) {
	delta = math.Max(-maxDelta, math.Min(maxDelta, alignmentDelta))
	return clamp(trustTerm + delta), delta
}

// Combine weights the subscores into a final score rounded to two decimals.
func Combine(w config.RatingWeights, timeliness, fairness, trust float64) float64 {
	return round2(clamp(w.Timeliness*timeliness + w.Fairness*fairness + w.Trust*trust))
}

func clamp(v float64) float64 {
	return math.Max(0, math.Min(100, v))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
