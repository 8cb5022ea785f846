package audit

import (
	"context"
	"errors"
	"log/slog"
)

// Tee records to a primary sink and mirrors each recorded entry into any
// number of secondaries. Only the primary's write decides success; a
// failing secondary is logged and skipped. Queries go to the primary.
type Tee struct {
	primary     Sink
	secondaries []Sink
	logger      *slog.Logger
}

// NewTee creates a Tee.
func NewTee(primary Sink, secondaries ...Sink) *Tee {
	return &Tee{
		primary:     primary,
		secondaries: secondaries,
		logger:      slog.Default().With("component", "audit.tee"),
	}
}

// Record writes to the primary and then to each secondary.
func (t *Tee) Record(ctx context.Context, entry *Entry) error {
	if err := t.primary.Record(ctx, entry); err != nil {
		return err
	}
	for _, s := range t.secondaries {
		mirror := *entry
		if err := s.Record(ctx, &mirror); err != nil {
			t.logger.WarnContext(ctx, "failed to mirror audit entry",
				"seq", entry.Seq,
				"error", err,
			)
		}
	}
	return nil
}

// Query reads from the primary.
func (t *Tee) Query(ctx context.Context, filter Filter) ([]Entry, error) {
	return t.primary.Query(ctx, filter)
}

// Close closes every sink and joins their errors.
func (t *Tee) Close() error {
	errs := []error{t.primary.Close()}
	for _, s := range t.secondaries {
		errs = append(errs, s.Close())
	}
	return errors.Join(errs...)
}
