package logging

import (
	"context"
	"log/slog"
)

// Context keys for common log fields.
type contextKey string

const (
	// BidIDKey is the context key for the bid being evaluated.
	BidIDKey contextKey = "bid_id"

	// EntityKey is the context key for the entity under evaluation.
	EntityKey contextKey = "entity"

	// ActorKey is the context key for the operator who authorized an action.
	ActorKey contextKey = "actor"
)

// WithBidID adds a bid ID to the context.
func WithBidID(ctx context.Context, bidID string) context.Context {
	return context.WithValue(ctx, BidIDKey, bidID)
}

// GetBidID retrieves the bid ID from the context.
func GetBidID(ctx context.Context) string {
	if bidID, ok := ctx.Value(BidIDKey).(string); ok {
		return bidID
	}
	return ""
}

// WithEntity adds an entity name to the context.
func WithEntity(ctx context.Context, entity string) context.Context {
	return context.WithValue(ctx, EntityKey, entity)
}

// GetEntity retrieves the entity name from the context.
func GetEntity(ctx context.Context) string {
	if entity, ok := ctx.Value(EntityKey).(string); ok {
		return entity
	}
	return ""
}

// WithActor adds an actor to the context.
func WithActor(ctx context.Context, actor string) context.Context {
	return context.WithValue(ctx, ActorKey, actor)
}

// GetActor retrieves the actor from the context.
func GetActor(ctx context.Context) string {
	if actor, ok := ctx.Value(ActorKey).(string); ok {
		return actor
	}
	return ""
}

// extractContextFields extracts common fields from context for logging.
// Returns a slice of key-value pairs suitable for logger.With().
func extractContextFields(ctx context.Context) []any {
	if ctx == nil {
		return nil
	}

	var fields []any
	if bidID := GetBidID(ctx); bidID != "" {
		fields = append(fields, "bid_id", bidID)
	}
	if entity := GetEntity(ctx); entity != "" {
		fields = append(fields, "entity", entity)
	}
	if actor := GetActor(ctx); actor != "" {
		fields = append(fields, "actor", actor)
	}
	return fields
}

// contextHandler adds the context fields to every record it handles.
type contextHandler struct {
	slog.Handler
}

func (h contextHandler) Handle(ctx context.Context, r slog.Record) error {
	if fields := extractContextFields(ctx); len(fields) > 0 {
		r.Add(fields...)
	}
	return h.Handler.Handle(ctx, r)
}

func (h contextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return contextHandler{h.Handler.WithAttrs(attrs)}
}

func (h contextHandler) WithGroup(name string) slog.Handler {
	return contextHandler{h.Handler.WithGroup(name)}
}
