package risk

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"regexp"
	"strings"

	"mercator-hq/bidguard/pkg/audit"
	"mercator-hq/bidguard/pkg/config"
	"mercator-hq/bidguard/pkg/telemetry/metrics"
	"mercator-hq/bidguard/pkg/telemetry/tracing"
)

// Options configures an Assessor.
type Options struct {
	Config config.RiskConfig

	// ScoreFloor is the rating below which an entity counts as low rated.
	ScoreFloor float64

	Logger  *slog.Logger
	Metrics *metrics.Collector
	Tracer  *tracing.Tracer
}

// Assessor turns a bid context into a risk profile. It is safe for
// concurrent use.
type Assessor struct {
	cfg      config.RiskConfig
	floor    float64
	keywords []keyword
	logger   *slog.Logger
	metrics  *metrics.Collector
	tracer   *tracing.Tracer
}

type keyword struct {
	term string
	re   *regexp.Regexp
}

// NewAssessor creates an Assessor. Vague keywords are compiled once.
func NewAssessor(opts Options) (*Assessor, error) {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	a := &Assessor{
		cfg:     opts.Config,
		floor:   opts.ScoreFloor,
		logger:  opts.Logger.With("component", "risk.assessor"),
		metrics: opts.Metrics,
		tracer:  opts.Tracer,
	}
	for _, kw := range opts.Config.VagueKeywords {
		term := strings.TrimSpace(kw)
		if term == "" {
			continue
		}
		re, err := wholeWord(term)
		if err != nil {
			return nil, fmt.Errorf("vague keyword %q: %w", term, err)
		}
		a.keywords = append(a.keywords, keyword{term: term, re: re})
	}
	return a, nil
}

// wholeWord matches term case-insensitively where it is not part of a
// longer word.
func wholeWord(term string) (*regexp.Regexp, error) {
	return regexp.Compile(`(?i)(?:^|[^\p{L}\p{N}_])` + regexp.QuoteMeta(term) + `(?:$|[^\p{L}\p{N}_])`)
}

// Assess scores bc. The score is the sum of the contributions, capped
// at 100. A margin below the survival margin is always the largest
// single contribution and raises the reconsider flag.
func (a *Assessor) Assess(ctx context.Context, bc BidContext) (*Profile, error) {
	_, span := a.tracer.Start(ctx, "risk.Assess")
	defer span.End()

	if !(bc.FinalBid > 0) || math.IsInf(bc.FinalBid, 0) {
		err := &InvalidInputError{Field: "final_bid", Message: "must be positive"}
		tracing.RecordError(span, err)
		return nil, err
	}
	if bc.CostTotal < 0 || math.IsNaN(bc.CostTotal) {
		err := &InvalidInputError{Field: "cost_total", Message: "must not be negative"}
		tracing.RecordError(span, err)
		return nil, err
	}

	c := a.cfg.Contributions
	p := &Profile{
		Margin: (bc.FinalBid - bc.CostTotal) / bc.FinalBid,
		Flags:  []string{},
	}

	for _, kw := range a.keywords {
		if kw.re.MatchString(bc.ScopeText) {
			p.VagueTerms = append(p.VagueTerms, kw.term)
		}
	}
	if len(p.VagueTerms) > 0 {
		p.add(ContribVagueScope, c.VagueScope, "scope mentions "+strings.Join(p.VagueTerms, ", "))
	}

	var lowRated []string
	for _, e := range bc.Entities {
		if e.Score < a.floor {
			lowRated = append(lowRated, e.Name)
		}
	}
	if len(lowRated) > 0 {
		pts := math.Min(c.LowRatedCap, float64(len(lowRated))*c.LowRatedEntity)
		p.add(ContribLowRatedEntities, pts, strings.Join(lowRated, ", "))
	}

	violations, overrides := countAudit(bc.AuditEntries)
	if violations > 0 {
		pts := math.Min(c.PolicyViolationCap, float64(violations)*c.PolicyViolation)
		p.add(ContribPolicyViolations, pts, fmt.Sprintf("%d blocked or rejected", violations))
	}
	if overrides > 0 {
		pts := math.Min(c.OverrideCap, float64(overrides)*c.Override)
		p.add(ContribOverrideActivity, pts, fmt.Sprintf("%d overrides", overrides))
	}

	if p.Margin < a.cfg.SurvivalMargin {
		p.add(ContribMarginErosion, c.MarginErosion,
			fmt.Sprintf("margin %.1f%% below %.1f%%", p.Margin*100, a.cfg.SurvivalMargin*100))
		p.Flags = append(p.Flags, FlagMarginErosion, FlagReconsider)
	}

	p.Score = math.Min(100, p.Score)
	p.Level = a.level(p.Score)

	a.metrics.RecordRisk(string(p.Level), p.Score, p.Flags)
	tracing.SetRiskAttributes(span, string(p.Level), p.Score)
	a.logger.DebugContext(ctx, "bid risk assessed",
		"score", p.Score,
		"level", p.Level,
		"margin", p.Margin,
		"flags", p.Flags,
	)
	return p, nil
}

func (p *Profile) add(name string, points float64, detail string) {
	p.Contributions = append(p.Contributions, Contribution{Name: name, Points: points, Detail: detail})
	p.Score += points
}

func (a *Assessor) level(score float64) Level {
	b := a.cfg.Bands
	switch {
	case score >= b.Critical:
		return LevelCritical
	case score >= b.High:
		return LevelHigh
	case score >= b.Moderate:
		return LevelModerate
	default:
		return LevelLow
	}
}

// countAudit counts Blocked or Rejected checks and applied overrides.
func countAudit(entries []audit.Entry) (violations, overrides int) {
	for _, e := range entries {
		switch e.EventType {
		case audit.EventCheck:
			if e.Result == audit.ResultBlocked || e.Result == audit.ResultRejected {
				violations++
			}
		case audit.EventBypass:
			overrides++
		}
	}
	return violations, overrides
}
