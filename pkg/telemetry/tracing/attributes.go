package tracing

import (
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Attribute keys use the "bidguard.*" namespace.
const (
	AttrBidID        = "bidguard.bid.id"
	AttrEntity       = "bidguard.entity"
	AttrCategory     = "bidguard.category"
	AttrDecision     = "bidguard.policy.decision"
	AttrEventType    = "bidguard.policy.event_type"
	AttrHardStop     = "bidguard.policy.hard_stop"
	AttrScore        = "bidguard.rating.score"
	AttrBelowFloor   = "bidguard.rating.below_floor"
	AttrRiskLevel    = "bidguard.risk.level"
	AttrRiskScore    = "bidguard.risk.score"
	AttrLedgerOp     = "bidguard.ledger.op"
	AttrParticipants = "bidguard.bid.participants"
)

// SetEntityAttributes sets the entity and category on a span.
func SetEntityAttributes(span trace.Span, entity, category string) {
	span.SetAttributes(
		attribute.String(AttrEntity, entity),
		attribute.String(AttrCategory, category),
	)
}

// SetDecisionAttributes records a policy outcome on a span.
func SetDecisionAttributes(span trace.Span, decision, eventType string, hardStop bool) {
	span.SetAttributes(
		attribute.String(AttrDecision, decision),
		attribute.String(AttrEventType, eventType),
		attribute.Bool(AttrHardStop, hardStop),
	)
}

// SetScoreAttributes records a rating outcome on a span.
func SetScoreAttributes(span trace.Span, score float64, belowFloor bool) {
	span.SetAttributes(
		attribute.Float64(AttrScore, score),
		attribute.Bool(AttrBelowFloor, belowFloor),
	)
}

// SetRiskAttributes records a risk outcome on a span.
func SetRiskAttributes(span trace.Span, level string, score float64) {
	span.SetAttributes(
		attribute.String(AttrRiskLevel, level),
		attribute.Float64(AttrRiskScore, score),
	)
}

// RecordError marks a span as failed. A nil error is ignored.
func RecordError(span trace.Span, err error) {
	if err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
