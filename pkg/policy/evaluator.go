package policy

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"mercator-hq/bidguard/pkg/audit"
	"mercator-hq/bidguard/pkg/config"
	"mercator-hq/bidguard/pkg/ledger"
	"mercator-hq/bidguard/pkg/override"
	"mercator-hq/bidguard/pkg/telemetry/logging"
	"mercator-hq/bidguard/pkg/telemetry/metrics"
	"mercator-hq/bidguard/pkg/telemetry/tracing"
)

const hardStopSuffix = " (hard-stop)"

// Request asks whether an entity may take part in a bid.
type Request struct {
	Entity   string
	Category Category

	// BypassReason requests a manual bypass. It only applies when bypass
	// is enabled globally and for the category.
	BypassReason string
	AuthorizedBy string

	BidID string
}

// Decision is the outcome of a policy check.
type Decision struct {
	Entity    string          `json:"entity"`
	Category  Category        `json:"category"`
	Result    audit.Result    `json:"result"`
	Reason    string          `json:"reason"`
	EventType audit.EventType `json:"event_type"`
	HardStop  bool            `json:"hard_stop"`

	// Override is the record written for a bypass or emergency allowance.
	Override *override.Record `json:"override,omitempty"`
}

// Allowed reports whether the entity may participate.
func (d Decision) Allowed() bool {
	return d.Result == audit.ResultAllowed
}

// Journal persists list changes. A ledger session satisfies it.
type Journal interface {
	AppendLearn(ev ledger.LearnEvent) error
}

// Options configures an Evaluator.
type Options struct {
	Config    config.EthicsConfig
	List      *List
	Audit     audit.Sink
	Overrides override.Store

	Logger  *slog.Logger
	Metrics *metrics.Collector
	Tracer  *tracing.Tracer
	Now     func() time.Time
}

// Evaluator applies the ethics configuration and the policy lists to
// individual entities. Every decision it returns has exactly one audit
// entry behind it.
type Evaluator struct {
	cfg       config.EthicsConfig
	list      *List
	sink      audit.Sink
	overrides override.Store
	logger    *slog.Logger
	metrics   *metrics.Collector
	tracer    *tracing.Tracer
	now       func() time.Time
}

// NewEvaluator creates an Evaluator.
func NewEvaluator(opts Options) (*Evaluator, error) {
	if opts.Audit == nil {
		return nil, errors.New("policy evaluator requires an audit sink")
	}
	if opts.Overrides == nil {
		return nil, errors.New("policy evaluator requires an override store")
	}
	if opts.List == nil {
		opts.List = NewList(Mode(opts.Config.Mode), opts.Config.StrictMode)
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	return &Evaluator{
		cfg:       opts.Config,
		list:      opts.List,
		sink:      opts.Audit,
		overrides: opts.Overrides,
		logger:    opts.Logger.With("component", "policy.evaluator"),
		metrics:   opts.Metrics,
		tracer:    opts.Tracer,
		now:       opts.Now,
	}, nil
}

// List returns the evaluator's list.
func (e *Evaluator) List() *List {
	return e.list
}

// Evaluate decides whether req.Entity may participate.
//
// The checks run in a fixed order: disabled, emergency mode, manual
// bypass, then the list for the configured mode. A Blocked or Rejected
// result in strict mode is returned together with a *HardStopError.
//
// The decision is audited before Evaluate returns. If the audit write
// fails, Evaluate returns the error and no decision.
func (e *Evaluator) Evaluate(ctx context.Context, req Request) (Decision, error) {
	ctx, span := e.tracer.Start(ctx, "policy.Evaluate")
	defer span.End()

	name := strings.TrimSpace(req.Entity)
	if name == "" {
		return Decision{}, fmt.Errorf("%w: entity is required", ErrInvalidRequest)
	}
	if !req.Category.Valid() {
		return Decision{}, fmt.Errorf("%w: unknown category %q", ErrInvalidRequest, req.Category)
	}
	if err := checkLengths(name, req.BypassReason, req.AuthorizedBy, req.BidID); err != nil {
		return Decision{}, err
	}
	tracing.SetEntityAttributes(span, name, string(req.Category))
	ctx = logging.WithEntity(ctx, name)

	d := Decision{Entity: name, Category: req.Category, EventType: audit.EventCheck}

	switch {
	case !e.cfg.Enabled:
		d.Result = audit.ResultAllowed
		d.Reason = "disabled"

	case e.cfg.EmergencyMode.Active:
		d.Result = audit.ResultAllowed
		d.EventType = audit.EventBypass
		d.Reason = "emergency override: " + e.cfg.EmergencyMode.Reason
		d.Override = &override.Record{
			Entity:       name,
			Category:     string(req.Category),
			Reason:       d.Reason,
			AuthorizedBy: "emergency_mode",
			BidID:        req.BidID,
			Kind:         override.KindEmergency,
		}

	case e.bypassApplies(req):
		d.Result = audit.ResultAllowed
		d.EventType = audit.EventBypass
		d.Reason = strings.TrimSpace(req.BypassReason)
		d.Override = &override.Record{
			Entity:       name,
			Category:     string(req.Category),
			Reason:       d.Reason,
			AuthorizedBy: strings.TrimSpace(req.AuthorizedBy),
			BidID:        req.BidID,
			Kind:         override.KindBypass,
		}

	default:
		d.Result, d.Reason = e.checkList(name, req.Category)
		if d.Result != audit.ResultAllowed && e.list.Strict() {
			d.HardStop = true
			d.Reason += hardStopSuffix
		}
	}

	if err := checkLengths(d.Reason); err != nil {
		return Decision{}, err
	}
	if d.Override != nil {
		d.Override.Timestamp = e.now()
		if err := e.overrides.Record(ctx, d.Override); err != nil {
			e.logger.ErrorContext(ctx, "failed to record override, refusing allowance",
				"error", err,
			)
			tracing.RecordError(span, err)
			return Decision{}, fmt.Errorf("record override: %w", err)
		}
	}

	actor := ""
	if d.Override != nil {
		actor = d.Override.AuthorizedBy
	}
	entry := &audit.Entry{
		Timestamp: e.now(),
		EventType: d.EventType,
		Category:  string(d.Category),
		Entity:    name,
		Result:    d.Result,
		Reason:    d.Reason,
		BidID:     req.BidID,
		Actor:     actor,
	}
	if err := e.sink.Record(ctx, entry); err != nil {
		e.logger.ErrorContext(ctx, "failed to audit policy decision",
			"result", d.Result,
			"error", err,
		)
		tracing.RecordError(span, err)
		return Decision{}, fmt.Errorf("audit policy decision: %w", err)
	}

	e.metrics.RecordDecision(string(d.Category), string(d.Result), string(d.EventType))
	tracing.SetDecisionAttributes(span, string(d.Result), string(d.EventType), d.HardStop)

	logArgs := []any{
		"category", d.Category,
		"result", d.Result,
		"event_type", d.EventType,
		"reason", d.Reason,
	}
	switch {
	case d.HardStop:
		e.metrics.RecordHardStop(string(d.Category))
		e.logger.WarnContext(ctx, "policy hard-stop", logArgs...)
		return d, &HardStopError{
			Entity:   name,
			Category: d.Category,
			Result:   d.Result,
			Reason:   strings.TrimSuffix(d.Reason, hardStopSuffix),
		}
	case d.EventType == audit.EventBypass:
		e.logger.WarnContext(ctx, "policy override applied", logArgs...)
	case d.Result != audit.ResultAllowed:
		e.logger.InfoContext(ctx, "entity excluded by policy", logArgs...)
	default:
		e.logger.DebugContext(ctx, "entity allowed", logArgs...)
	}
	return d, nil
}

// checkLengths rejects text that the audit log would refuse, before any
// override is recorded for it.
func checkLengths(fields ...string) error {
	for _, f := range fields {
		if len(f) > audit.MaxFieldLength {
			return fmt.Errorf("%w: field of %d bytes exceeds %d", ErrInvalidRequest, len(f), audit.MaxFieldLength)
		}
	}
	return nil
}

func (e *Evaluator) bypassApplies(req Request) bool {
	if !e.cfg.Bypass.Enabled || strings.TrimSpace(req.BypassReason) == "" {
		return false
	}
	c := e.cfg.Bypass.Categories
	switch req.Category {
	case Manufacturer:
		return c.Manufacturer
	case Supplier:
		return c.Supplier
	case Subcontractor:
		return c.Subcontractor
	}
	return false
}

func (e *Evaluator) checkList(name string, category Category) (audit.Result, string) {
	if e.list.Mode() == ModeAllowlist {
		if e.list.Contains(Allowlist, name, category) {
			return audit.ResultAllowed, "on allowlist"
		}
		return audit.ResultRejected, "not on allowlist"
	}
	if e.list.Contains(Denylist, name, category) {
		return audit.ResultBlocked, "on denylist"
	}
	return audit.ResultAllowed, "not on denylist"
}
