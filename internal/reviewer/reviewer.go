// Package reviewer sweeps the unresolved review queue.
//
// Signals are created when a classified email cannot be applied
// automatically (ambiguous or unmatched). The reviewer never resolves
// ambiguity on its own: the only signals it closes are those whose
// source message has since been recorded on an application through a
// manual update, which makes the signal moot. Everything else stays in
// the queue, and the sweep keeps the unresolved-count gauge current so
// the backlog is visible.
package reviewer

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/OPKYEI/FunctionalJobAutomation/internal/domain"
	"github.com/OPKYEI/FunctionalJobAutomation/internal/ledger"
)

// SignalStore provides access to the review queue.
type SignalStore interface {
	ListSignals(ctx context.Context, unresolvedOnly bool, limit int) ([]domain.Signal, error)
	ResolveSignal(ctx context.Context, id uuid.UUID) error
}

// Ledger is the read side used to detect already-handled signals.
type Ledger interface {
	Get(ctx context.Context, jobID string) (*domain.Application, error)
}

// MetricsSink receives the unresolved-signal gauge.
type MetricsSink interface {
	UnresolvedSignalsUpdate(count int)
}

// Config holds reviewer configuration.
type Config struct {
	// Interval is how often the sweep runs. Default: 10 minutes.
	Interval time.Duration

	// BatchSize is the maximum number of signals examined per sweep.
	// Default: 200.
	BatchSize int

	// StaleAfter is the age past which an unresolved signal counts as
	// stale backlog in the sweep summary. Default: 24 hours.
	StaleAfter time.Duration
}

// DefaultConfig returns the default reviewer configuration.
func DefaultConfig() Config {
	return Config{
		Interval:   10 * time.Minute,
		BatchSize:  200,
		StaleAfter: 24 * time.Hour,
	}
}

// Reviewer runs the periodic sweep.
type Reviewer struct {
	config  Config
	signals SignalStore
	ledger  Ledger
	metrics MetricsSink
	clock   func() time.Time
}

// New creates a Reviewer.
func New(config Config, signals SignalStore, ledger Ledger) *Reviewer {
	if config.Interval <= 0 {
		config.Interval = DefaultConfig().Interval
	}
	if config.BatchSize <= 0 {
		config.BatchSize = DefaultConfig().BatchSize
	}
	if config.StaleAfter <= 0 {
		config.StaleAfter = DefaultConfig().StaleAfter
	}
	return &Reviewer{
		config:  config,
		signals: signals,
		ledger:  ledger,
		clock:   time.Now,
	}
}

// WithMetrics attaches a metrics sink.
func (r *Reviewer) WithMetrics(sink MetricsSink) *Reviewer {
	r.metrics = sink
	return r
}

// WithClock overrides the time source. Used by tests.
func (r *Reviewer) WithClock(clock func() time.Time) *Reviewer {
	r.clock = clock
	return r
}

// Run starts the sweep loop. It blocks until ctx is cancelled.
func (r *Reviewer) Run(ctx context.Context) {
	ticker := time.NewTicker(r.config.Interval)
	defer ticker.Stop()

	log.Printf("reviewer: started (interval=%s, batch=%d)",
		r.config.Interval, r.config.BatchSize)

	// Run immediately on startup, then on ticker
	r.RunOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			log.Println("reviewer: stopped")
			return
		case <-ticker.C:
			r.RunOnce(ctx)
		}
	}
}

// RunOnce executes a single sweep.
func (r *Reviewer) RunOnce(ctx context.Context) {
	signals, err := r.signals.ListSignals(ctx, true, r.config.BatchSize)
	if err != nil {
		// DB error: log and abort sweep. Will retry next interval.
		log.Printf("reviewer: failed to list signals: %v", err)
		return
	}

	resolved := 0
	remaining := 0
	stale := 0
	staleBefore := r.clock().Add(-r.config.StaleAfter)

	for _, sig := range signals {
		if ctx.Err() != nil {
			log.Printf("reviewer: sweep interrupted, examined %d/%d signals", resolved+remaining, len(signals))
			return
		}

		handled, err := r.handledElsewhere(ctx, sig)
		if err != nil {
			log.Printf("reviewer: failed to check signal=%s message=%s: %v",
				sig.ID, sig.MessageID, err)
			remaining++
			continue
		}
		if !handled {
			remaining++
			if sig.RecordedAt.Before(staleBefore) {
				stale++
			}
			continue
		}

		if err := r.signals.ResolveSignal(ctx, sig.ID); err != nil {
			log.Printf("reviewer: failed to resolve signal=%s message=%s: %v",
				sig.ID, sig.MessageID, err)
			remaining++
			continue
		}

		log.Printf("reviewer: resolved signal=%s message=%s reason=%s (recorded on an application)",
			sig.ID, sig.MessageID, sig.Reason)
		resolved++
	}

	if resolved > 0 {
		log.Printf("reviewer: sweep complete, resolved=%d, remaining=%d", resolved, remaining)
	}
	if stale > 0 {
		log.Printf("reviewer: %d unresolved signals older than %s need manual review", stale, r.config.StaleAfter)
	}
	if r.metrics != nil {
		r.metrics.UnresolvedSignalsUpdate(remaining)
	}
}

// handledElsewhere reports whether any application the signal pointed at
// already carries the signal's source message in its history.
func (r *Reviewer) handledElsewhere(ctx context.Context, sig domain.Signal) (bool, error) {
	jobIDs := make([]string, 0, len(sig.Candidates)+1)
	jobIDs = append(jobIDs, sig.Candidates...)
	if sig.JobIDHint != "" {
		jobIDs = append(jobIDs, sig.JobIDHint)
	}

	for _, jobID := range jobIDs {
		app, err := r.ledger.Get(ctx, jobID)
		if errors.Is(err, ledger.ErrNotFound) {
			continue
		}
		if err != nil {
			return false, err
		}
		if app.HasSource(sig.MessageID) {
			return true, nil
		}
	}
	return false, nil
}
