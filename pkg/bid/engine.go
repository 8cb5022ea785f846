package bid

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"mercator-hq/bidguard/pkg/audit"
	"mercator-hq/bidguard/pkg/config"
	"mercator-hq/bidguard/pkg/ledger"
	"mercator-hq/bidguard/pkg/policy"
	"mercator-hq/bidguard/pkg/rating"
	"mercator-hq/bidguard/pkg/risk"
	"mercator-hq/bidguard/pkg/telemetry/logging"
	"mercator-hq/bidguard/pkg/telemetry/metrics"
	"mercator-hq/bidguard/pkg/telemetry/tracing"
)

// FinalCategory is the category written on Final audit entries.
const FinalCategory = "Bid"

// AutoDenylistActor is the actor recorded on automatic denylist entries.
const AutoDenylistActor = "auto_denylist"

// SessionOpener opens a ledger session. *ledger.Store satisfies it.
type SessionOpener interface {
	Open(ctx context.Context) (*ledger.Session, error)
}

// Options configures an Engine.
type Options struct {
	Rating config.RatingConfig

	Ledger   SessionOpener
	Policy   *policy.Evaluator
	Audit    audit.Sink
	Assessor *risk.Assessor

	Logger  *slog.Logger
	Metrics *metrics.Collector
	Tracer  *tracing.Tracer
	Now     func() time.Time
}

// Engine runs bids. Runs must not overlap, since each one owns a ledger
// session for its duration.
type Engine struct {
	rating   config.RatingConfig
	ledger   SessionOpener
	policy   *policy.Evaluator
	sink     audit.Sink
	assessor *risk.Assessor
	logger   *slog.Logger
	metrics  *metrics.Collector
	tracer   *tracing.Tracer
	now      func() time.Time
}

// NewEngine creates an Engine.
func NewEngine(opts Options) (*Engine, error) {
	switch {
	case opts.Ledger == nil:
		return nil, errors.New("bid engine requires a ledger")
	case opts.Policy == nil:
		return nil, errors.New("bid engine requires a policy evaluator")
	case opts.Audit == nil:
		return nil, errors.New("bid engine requires an audit sink")
	case opts.Assessor == nil:
		return nil, errors.New("bid engine requires a risk assessor")
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Engine{
		rating:   opts.Rating,
		ledger:   opts.Ledger,
		policy:   opts.Policy,
		sink:     opts.Audit,
		assessor: opts.Assessor,
		logger:   opts.Logger.With("component", "bid.engine"),
		metrics:  opts.Metrics,
		tracer:   opts.Tracer,
		now:      opts.Now,
	}, nil
}

// Run evaluates b in a session of its own. The session is saved when Run
// returns, even if the bid failed.
func (e *Engine) Run(ctx context.Context, b *Bid) (out *Outcome, err error) {
	if err := Validate(b); err != nil {
		return nil, err
	}
	sess, err := e.ledger.Open(ctx)
	if err != nil {
		return nil, fmt.Errorf("open ledger: %w", err)
	}
	defer func() {
		if cerr := sess.Close(context.WithoutCancel(ctx)); cerr != nil {
			e.logger.ErrorContext(ctx, "failed to save ledger", "error", cerr)
			err = errors.Join(err, fmt.Errorf("save ledger: %w", cerr))
		}
	}()
	return e.RunInSession(ctx, sess, b)
}

// RunInSession evaluates b against an open session owned by the caller.
//
// Participants are checked in order. A strict-mode hard-stop halts the
// bid: a Final Rejected entry is written and the *policy.HardStopError is
// returned with an Outcome whose Halted field is set. Otherwise the
// allowed participants are rated, the risk of the bid is assessed from
// its audit window, and a Final Allowed entry records the risk level.
//
// Audit entries already written are kept whatever the outcome.
func (e *Engine) RunInSession(ctx context.Context, sess *ledger.Session, b *Bid) (out *Outcome, err error) {
	start := e.now()
	ctx, span := e.tracer.Start(ctx, "bid.Run")
	defer span.End()

	if err := Validate(b); err != nil {
		tracing.RecordError(span, err)
		return nil, err
	}
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	ctx = logging.WithBidID(ctx, b.ID)
	span.SetAttributes(
		attribute.String(tracing.AttrBidID, b.ID),
		attribute.Int(tracing.AttrParticipants, len(b.Participants)),
	)

	out = &Outcome{BidID: b.ID}
	defer func() {
		out.Duration = e.now().Sub(start)
		e.metrics.RecordBid(bidStatus(out, err), out.Duration)
		if err != nil {
			tracing.RecordError(span, err)
		}
	}()

	e.logger.InfoContext(ctx, "bid started", "participants", len(b.Participants))

	var inputs []rating.Input
	for _, p := range b.Participants {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		category, _ := policy.ParseCategory(p.Category)

		d, err := e.policy.Evaluate(ctx, policy.Request{
			Entity:       p.Name,
			Category:     category,
			BypassReason: p.BypassReason,
			AuthorizedBy: p.AuthorizedBy,
			BidID:        b.ID,
		})
		var hardStop *policy.HardStopError
		if errors.As(err, &hardStop) {
			out.Decisions = append(out.Decisions, d)
			return out, e.halt(ctx, out, hardStop)
		}
		if err != nil {
			return out, fmt.Errorf("evaluate %q: %w", p.Name, err)
		}
		out.Decisions = append(out.Decisions, d)

		if d.Allowed() {
			inputs = append(inputs, rating.Input{
				Entity:             p.Name,
				Category:           string(category),
				ReplyLatency:       p.ReplyLatency,
				QuotedPrice:        p.QuotedPrice,
				BaselinePrice:      p.BaselinePrice,
				AlignmentDelta:     p.AlignmentDelta,
				ConfirmedViolation: p.ConfirmedViolation,
				BidID:              b.ID,
			})
		}
	}

	rater, err := rating.NewEngine(rating.Options{
		Config:  e.rating,
		Ledger:  sess,
		Audit:   e.sink,
		Logger:  e.logger,
		Metrics: e.metrics,
		Tracer:  e.tracer,
		Now:     e.now,
	})
	if err != nil {
		return out, err
	}
	if e.rating.AutoDenylistBelowFloor {
		rater.Observe(e.autoDenylist(sess))
	}

	var summaries []risk.EntitySummary
	for _, o := range rater.RateAll(ctx, inputs, e.rating.Workers) {
		pr := ParticipantRating{Name: o.Input.Entity, Result: o.Result}
		if o.Err != nil {
			pr.Error = o.Err.Error()
			e.logger.WarnContext(ctx, "participant not rated", "entity", o.Input.Entity, "error", o.Err)
		} else {
			summaries = append(summaries, risk.EntitySummary{
				Name:     o.Result.Entity,
				Category: o.Result.Category,
				Score:    o.Result.Score,
			})
		}
		out.Ratings = append(out.Ratings, pr)
	}
	if err := ctx.Err(); err != nil {
		return out, err
	}

	window, err := e.sink.Query(ctx, audit.Filter{BidID: b.ID})
	if err != nil {
		return out, fmt.Errorf("query audit window: %w", err)
	}

	profile, err := e.assessor.Assess(ctx, risk.BidContext{
		ScopeText:    b.ScopeText,
		CostTotal:    b.Totals.MaterialLabor,
		FinalBid:     b.Totals.FinalBid,
		Entities:     summaries,
		AuditEntries: window,
	})
	if err != nil {
		return out, fmt.Errorf("assess risk: %w", err)
	}
	out.Risk = profile

	final := &audit.Entry{
		Timestamp: e.now(),
		EventType: audit.EventFinal,
		Category:  FinalCategory,
		Entity:    b.ID,
		Result:    audit.ResultAllowed,
		Reason:    fmt.Sprintf("risk %s (%s)", profile.Level, strconv.FormatFloat(profile.Score, 'f', -1, 64)),
		BidID:     b.ID,
	}
	if err := e.sink.Record(ctx, final); err != nil {
		return out, fmt.Errorf("audit bid result: %w", err)
	}

	e.logger.InfoContext(ctx, "bid completed",
		"risk_level", profile.Level,
		"risk_score", profile.Score,
		"flags", profile.Flags,
	)
	return out, nil
}

func (e *Engine) halt(ctx context.Context, out *Outcome, hs *policy.HardStopError) error {
	out.Halted = true
	out.HaltReason = hs.HaltReason()

	final := &audit.Entry{
		Timestamp: e.now(),
		EventType: audit.EventFinal,
		Category:  FinalCategory,
		Entity:    out.BidID,
		Result:    audit.ResultRejected,
		Reason:    "bid halted: " + out.HaltReason,
		BidID:     out.BidID,
	}
	if err := e.sink.Record(ctx, final); err != nil {
		return errors.Join(hs, fmt.Errorf("audit bid halt: %w", err))
	}

	e.logger.WarnContext(ctx, "bid halted", "reason", out.HaltReason)
	return hs
}

// autoDenylist learns a denylist entry for every entity that falls below
// the score floor.
func (e *Engine) autoDenylist(journal policy.Journal) rating.ThresholdObserver {
	return rating.ObserverFunc(func(ctx context.Context, res *rating.Result) error {
		category, err := policy.ParseCategory(res.Category)
		if err != nil {
			return err
		}
		return e.policy.Learn(ctx, journal, policy.LearnRequest{
			Entity:   res.Entity,
			Category: category,
			List:     policy.Denylist,
			Reason:   fmt.Sprintf("score %.2f below floor %.2f", res.Score, e.rating.ScoreFloor),
			Actor:    AutoDenylistActor,
			BidID:    res.Record.BidID,
		})
	})
}

func bidStatus(out *Outcome, err error) string {
	switch {
	case out != nil && out.Halted:
		return "halted"
	case err != nil:
		return "failed"
	default:
		return "completed"
	}
}
