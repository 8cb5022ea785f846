package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// Flusher is anything that can re-encrypt its state on demand.
type Flusher interface {
	Flush(ctx context.Context) error
}

// FlushScheduler re-encrypts a long-lived session on a cron schedule.
type FlushScheduler struct {
	target   Flusher
	schedule string
	cron     *cron.Cron
	mu       sync.Mutex
	logger   *slog.Logger
	running  bool
}

// NewFlushScheduler creates a scheduler. An empty schedule makes Start a
// no-op.
func NewFlushScheduler(target Flusher, schedule string) *FlushScheduler {
	return &FlushScheduler{
		target:   target,
		schedule: schedule,
		cron:     cron.New(),
		logger:   slog.Default().With("component", "ledger.flush"),
	}
}

// Start begins flushing on the configured schedule. The scheduler stops
// when ctx is cancelled.
//
// Common cron expressions:
//   - "*/5 * * * *"  - Every 5 minutes
//   - "0 * * * *"    - Hourly
func (f *FlushScheduler) Start(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.schedule == "" {
		f.logger.Debug("flush schedule not configured, skipping scheduler")
		return nil
	}
	if f.running {
		return nil
	}

	if _, err := cron.ParseStandard(f.schedule); err != nil {
		return fmt.Errorf("invalid cron schedule %q: %w", f.schedule, err)
	}
	if _, err := f.cron.AddFunc(f.schedule, func() { f.flush(ctx) }); err != nil {
		return fmt.Errorf("failed to schedule ledger flush: %w", err)
	}

	f.cron.Start()
	f.running = true
	f.logger.Info("ledger flush scheduler started", "schedule", f.schedule)

	go func() {
		<-ctx.Done()
		f.Stop()
	}()
	return nil
}

func (f *FlushScheduler) flush(ctx context.Context) {
	if err := f.target.Flush(ctx); err != nil {
		f.logger.Error("scheduled ledger flush failed", "error", err)
		return
	}
	f.logger.Debug("scheduled ledger flush completed")
}

// Stop stops the scheduler and waits for a running flush to finish.
func (f *FlushScheduler) Stop() {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.running {
		<-f.cron.Stop().Done()
		f.running = false
		f.logger.Info("ledger flush scheduler stopped")
	}
}

// IsRunning reports whether the scheduler is running.
func (f *FlushScheduler) IsRunning() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.running
}

// NextRun returns the next scheduled flush, or nil when none is scheduled.
func (f *FlushScheduler) NextRun() *time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()

	entries := f.cron.Entries()
	if len(entries) == 0 {
		return nil
	}
	next := entries[0].Next
	return &next
}
