package policy

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"mercator-hq/bidguard/pkg/audit"
	"mercator-hq/bidguard/pkg/ledger"
	"mercator-hq/bidguard/pkg/telemetry/logging"
)

// LearnRequest describes an explicit list change.
type LearnRequest struct {
	Entity   string
	Category Category
	List     ListKind

	// Remove takes the entity off List instead of adding it.
	Remove bool

	Reason string
	Actor  string
	BidID  string
}

// Learn changes the lists. Adding a name to one list removes it from the
// other. The change is audited first, then appended to journal, then
// applied in memory; a failure at any step leaves the in-memory lists
// unchanged.
func (e *Evaluator) Learn(ctx context.Context, journal Journal, req LearnRequest) error {
	name := strings.TrimSpace(req.Entity)
	reason := strings.TrimSpace(req.Reason)
	switch {
	case name == "":
		return fmt.Errorf("%w: entity is required", ErrInvalidRequest)
	case reason == "":
		return ErrReasonRequired
	case req.List != Denylist && req.List != Allowlist:
		return fmt.Errorf("%w: unknown list %q", ErrInvalidRequest, req.List)
	case journal == nil:
		return errors.New("a journal is required to persist list changes")
	}
	category := req.Category
	if category == "" {
		category = Supplier
	}
	ctx = logging.WithEntity(ctx, name)
	if req.Actor != "" {
		ctx = logging.WithActor(ctx, req.Actor)
	}

	action := ledger.LearnAdd
	result := audit.ResultAllowed
	verb := "added to"
	if req.Remove {
		action = ledger.LearnRemove
		verb = "removed from"
	} else if req.List == Denylist {
		result = audit.ResultBlocked
	}

	auditReason := fmt.Sprintf("%s %s: %s", verb, req.List, reason)
	if err := checkLengths(name, auditReason, req.Actor, req.BidID); err != nil {
		return err
	}

	now := e.now()
	entry := &audit.Entry{
		Timestamp: now,
		EventType: audit.EventLearn,
		Category:  string(category),
		Entity:    name,
		Result:    result,
		Reason:    auditReason,
		BidID:     req.BidID,
		Actor:     req.Actor,
	}
	if err := e.sink.Record(ctx, entry); err != nil {
		return fmt.Errorf("audit list change: %w", err)
	}

	ev := ledger.LearnEvent{
		Timestamp: now.UTC(),
		Entity:    name,
		Category:  string(category),
		List:      string(req.List),
		Action:    action,
		Reason:    reason,
		Actor:     req.Actor,
	}
	if err := journal.AppendLearn(ev); err != nil {
		e.logger.ErrorContext(ctx, "list change audited but not persisted",
			"list", req.List,
			"error", err,
		)
		return fmt.Errorf("persist list change: %w", err)
	}

	if req.Remove {
		e.list.Remove(req.List, name)
	} else {
		e.list.Add(req.List, name)
	}

	e.metrics.RecordLearn(string(req.List))
	e.logger.InfoContext(ctx, "policy list changed",
		"list", req.List,
		"action", action,
	)
	return nil
}
