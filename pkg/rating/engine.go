package rating

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"mercator-hq/bidguard/pkg/audit"
	"mercator-hq/bidguard/pkg/config"
	"mercator-hq/bidguard/pkg/ledger"
	"mercator-hq/bidguard/pkg/telemetry/metrics"
	"mercator-hq/bidguard/pkg/telemetry/tracing"
)

// Ledger is the part of a ledger session the engine writes through.
type Ledger interface {
	Update(name, category string, fn func(*ledger.Entity) error) (*ledger.Entity, error)
	Entity(name string) (*ledger.Entity, bool)
}

// Input is one transaction to rate.
type Input struct {
	Entity        string
	Category      string
	ReplyLatency  time.Duration
	QuotedPrice   float64
	BaselinePrice float64

	// AlignmentDelta adjusts trust for this transaction, bounded by the
	// configured maximum. It changes the persisted trust term only when
	// ConfirmedViolation is set and the delta is negative.
	AlignmentDelta     float64
	ConfirmedViolation bool

	BidID string
}

// Result is the outcome of rating one transaction.
type Result struct {
	Entity             string                   `json:"entity"`
	Category           string                   `json:"category"`
	Score              float64                  `json:"score"`
	Breakdown          ledger.Breakdown         `json:"breakdown"`
	FellBelowThreshold bool                     `json:"fell_below_threshold"`
	TrustTerm          float64                  `json:"trust_term"`
	TrustEvent         *ledger.TrustEvent       `json:"trust_event,omitempty"`
	Transactions       int                      `json:"lifetime_transaction_count"`
	Record             ledger.TransactionRecord `json:"record"`
}

// ThresholdObserver is notified when a rating falls below the score floor.
type ThresholdObserver interface {
	BelowThreshold(ctx context.Context, res *Result) error
}

// ObserverFunc adapts a function to ThresholdObserver.
type ObserverFunc func(ctx context.Context, res *Result) error

// BelowThreshold calls f.
func (f ObserverFunc) BelowThreshold(ctx context.Context, res *Result) error {
	return f(ctx, res)
}

// Options configures an Engine.
type Options struct {
	Config    config.RatingConfig
	Ledger    Ledger
	Audit     audit.Sink
	Observers []ThresholdObserver

	Logger  *slog.Logger
	Metrics *metrics.Collector
	Tracer  *tracing.Tracer
	Now     func() time.Time
}

// Engine rates transactions and maintains entity trust. It is the only
// writer of entity records.
type Engine struct {
	cfg       config.RatingConfig
	ledger    Ledger
	sink      audit.Sink
	observers []ThresholdObserver
	logger    *slog.Logger
	metrics   *metrics.Collector
	tracer    *tracing.Tracer
	now       func() time.Time
}

// NewEngine creates an Engine.
func NewEngine(opts Options) (*Engine, error) {
	if opts.Ledger == nil {
		return nil, errors.New("rating engine requires a ledger")
	}
	if opts.Audit == nil {
		return nil, errors.New("rating engine requires an audit sink")
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Engine{
		cfg:       opts.Config,
		ledger:    opts.Ledger,
		sink:      opts.Audit,
		observers: opts.Observers,
		logger:    opts.Logger.With("component", "rating.engine"),
		metrics:   opts.Metrics,
		tracer:    opts.Tracer,
		now:       opts.Now,
	}, nil
}

// Observe registers an additional threshold observer. It must not be
// called concurrently with Rate.
func (e *Engine) Observe(o ThresholdObserver) {
	e.observers = append(e.observers, o)
}

// Rate scores one transaction and records it against the entity.
func (e *Engine) Rate(ctx context.Context, in Input) (*Result, error) {
	ctx, span := e.tracer.Start(ctx, "rating.Rate")
	defer span.End()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := validateInput(in); err != nil {
		tracing.RecordError(span, err)
		return nil, err
	}
	name := strings.TrimSpace(in.Entity)
	tracing.SetEntityAttributes(span, name, in.Category)

	timeliness := Timeliness(e.cfg.Timeliness, in.ReplyLatency)
	fairness := Fairness(e.cfg.Fairness, in.QuotedPrice, in.BaselinePrice)
	variance := Variance(in.QuotedPrice, in.BaselinePrice)
	now := e.now().UTC()

	res := &Result{Entity: name, Category: in.Category}
	_, err := e.ledger.Update(name, in.Category, func(ent *ledger.Entity) error {
		trust, delta := Trust(ent.TrustTerm, in.AlignmentDelta, e.cfg.MaxAlignmentDelta)

		if in.ConfirmedViolation && delta < 0 {
			ev := ledger.TrustEvent{
				Timestamp: now,
				Kind:      ledger.TrustViolation,
				Delta:     delta,
				Before:    ent.TrustTerm,
				After:     trust,
				Reason:    "confirmed violation",
				BidID:     in.BidID,
			}
			if err := e.auditTrust(ctx, ent, ev); err != nil {
				return err
			}
			ent.TrustTerm = trust
			ent.TrustEvents = append(ent.TrustEvents, ev)
			res.TrustEvent = &ev
		}

		score := Combine(e.cfg.Weights, timeliness, fairness, trust)
		rec := ledger.TransactionRecord{
			Timestamp:      now,
			ReplyLatency:   in.ReplyLatency,
			QuotedPrice:    in.QuotedPrice,
			BaselinePrice:  in.BaselinePrice,
			ResultingScore: score,
			Breakdown:      ledger.Breakdown{Timeliness: timeliness, Fairness: fairness, Trust: trust},
			BidID:          in.BidID,
		}

		ent.History = append(ent.History, rec)
		ent.LifetimeTransactionCount++
		ent.CurrentScore = score
		n := float64(ent.LifetimeTransactionCount)
		ent.AvgLatency += (in.ReplyLatency.Hours() - ent.AvgLatency) / n
		ent.AvgVariance += (variance - ent.AvgVariance) / n

		res.Category = ent.Category
		res.Score = score
		res.Breakdown = rec.Breakdown
		res.TrustTerm = ent.TrustTerm
		res.Transactions = ent.LifetimeTransactionCount
		res.Record = rec
		return nil
	})
	if err != nil {
		tracing.RecordError(span, err)
		return nil, fmt.Errorf("rate %q: %w", name, err)
	}

	res.FellBelowThreshold = res.Score < e.cfg.ScoreFloor
	e.metrics.RecordRating(res.Category, res.Score, res.FellBelowThreshold)
	if res.TrustEvent != nil {
		e.metrics.RecordTrustChange(string(ledger.TrustViolation))
	}
	tracing.SetScoreAttributes(span, res.Score, res.FellBelowThreshold)

	e.logger.DebugContext(ctx, "transaction rated",
		"entity", name,
		"score", res.Score,
		"timeliness", timeliness,
		"fairness", fairness,
		"trust", res.Breakdown.Trust,
	)

	if res.FellBelowThreshold {
		e.logger.InfoContext(ctx, "entity fell below score floor",
			"entity", name,
			"score", res.Score,
			"floor", e.cfg.ScoreFloor,
		)
		for _, o := range e.observers {
			if err := o.BelowThreshold(ctx, res); err != nil {
				e.logger.ErrorContext(ctx, "threshold observer failed",
					"entity", name,
					"error", err,
				)
			}
		}
	}

	return res, nil
}

// RestoreTrust raises an entity's trust term by amount, capped at 100.
// It is the only way trust increases, and every restoration is audited.
func (e *Engine) RestoreTrust(ctx context.Context, entity string, amount float64, reason, actor string) (*ledger.TrustEvent, error) {
	name := strings.TrimSpace(entity)
	reason = strings.TrimSpace(reason)
	switch {
	case name == "":
		return nil, &InvalidInputError{Field: "entity", Message: "is required"}
	case reason == "":
		return nil, &InvalidInputError{Entity: name, Field: "reason", Message: "is required"}
	case !(amount > 0) || math.IsInf(amount, 0):
		return nil, &InvalidInputError{Entity: name, Field: "amount", Message: "must be a positive number"}
	}

	current, ok := e.ledger.Entity(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownEntity, name)
	}

	var out ledger.TrustEvent
	_, err := e.ledger.Update(name, current.Category, func(ent *ledger.Entity) error {
		ev := ledger.TrustEvent{
			Timestamp: e.now().UTC(),
			Kind:      ledger.TrustRestoration,
			Before:    ent.TrustTerm,
			After:     math.Min(100, ent.TrustTerm+amount),
			Reason:    reason,
			Actor:     actor,
		}
		ev.Delta = ev.After - ev.Before
		if err := e.auditTrust(ctx, ent, ev); err != nil {
			return err
		}
		ent.TrustTerm = ev.After
		ent.TrustEvents = append(ent.TrustEvents, ev)
		out = ev
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("restore trust for %q: %w", name, err)
	}

	e.metrics.RecordTrustChange("restore")
	e.logger.InfoContext(ctx, "trust restored",
		"entity", name,
		"before", out.Before,
		"after", out.After,
		"actor", actor,
	)
	return &out, nil
}

func (e *Engine) auditTrust(ctx context.Context, ent *ledger.Entity, ev ledger.TrustEvent) error {
	result := audit.ResultAllowed
	if ev.Kind == ledger.TrustViolation {
		result = audit.ResultBlocked
	}
	entry := &audit.Entry{
		Timestamp: ev.Timestamp,
		EventType: audit.EventTrust,
		Category:  ent.Category,
		Entity:    ent.Name,
		Result:    result,
		Reason:    fmt.Sprintf("trust %s %.2f -> %.2f: %s", ev.Kind, ev.Before, ev.After, ev.Reason),
		BidID:     ev.BidID,
		Actor:     ev.Actor,
	}
	if err := e.sink.Record(ctx, entry); err != nil {
		return fmt.Errorf("audit trust change: %w", err)
	}
	return nil
}

func validateInput(in Input) error {
	name := strings.TrimSpace(in.Entity)
	invalid := func(field, msg string) error {
		return &InvalidInputError{Entity: name, Field: field, Message: msg}
	}
	switch {
	case name == "":
		return invalid("entity", "is required")
	case !(in.BaselinePrice > 0) || math.IsInf(in.BaselinePrice, 0):
		return invalid("baseline_price", "must be positive")
	case !(in.QuotedPrice >= 0) || math.IsInf(in.QuotedPrice, 0):
		return invalid("quoted_price", "must not be negative")
	case in.ReplyLatency < 0:
		return invalid("reply_latency", "must not be negative")
	case math.IsNaN(in.AlignmentDelta):
		return invalid("alignment_delta", "must be a number")
	}
	return nil
}
