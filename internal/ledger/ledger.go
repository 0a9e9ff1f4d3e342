// Package ledger enforces the status state machine over durable
// application records. Every write goes through Apply or Override; both
// serialize per job id so concurrent updates to the same record cannot
// interleave.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/OPKYEI/FunctionalJobAutomation/internal/domain"
)

// ErrNotFound is returned when the job id has no ledger record. The
// ledger never creates records from emails; new rows come only from the
// submission bot.
var ErrNotFound = errors.New("ledger: application not found")

// ErrDuplicate is returned when creating a record whose job id already
// exists.
var ErrDuplicate = errors.New("ledger: application already exists")

// Store is the durable backend. AppendStatus must write the history
// entry and the new current status atomically.
type Store interface {
	GetApplication(ctx context.Context, jobID string) (*domain.Application, error)
	ListApplications(ctx context.Context) ([]domain.Application, error)
	AppendStatus(ctx context.Context, jobID string, entry domain.StatusEntry, current domain.Status) error
	SetNotes(ctx context.Context, jobID, notes string) error
	Stats(ctx context.Context) (domain.Stats, error)
}

type Outcome string

const (
	// OutcomeApplied: the candidate became the new current status.
	OutcomeApplied Outcome = "applied"
	// OutcomeRecorded: the candidate was appended to history as an
	// observed signal; current status did not change.
	OutcomeRecorded Outcome = "recorded"
	// OutcomeDuplicate: the source message id was already in the
	// record's history; nothing was written.
	OutcomeDuplicate Outcome = "duplicate"
)

// ApplyResult reports what one update did to a record.
type ApplyResult struct {
	Outcome Outcome
	From    domain.Status
	To      domain.Status
}

// Ledger guards a Store with the state-machine rules.
type Ledger struct {
	store Store
	clock func() time.Time

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func New(store Store) *Ledger {
	return &Ledger{
		store: store,
		clock: time.Now,
		locks: make(map[string]*sync.Mutex),
	}
}

// WithClock overrides the time source. Used by tests.
func (l *Ledger) WithClock(clock func() time.Time) *Ledger {
	l.clock = clock
	return l
}

func (l *Ledger) lockFor(jobID string) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()
	m, ok := l.locks[jobID]
	if !ok {
		m = &sync.Mutex{}
		l.locks[jobID] = m
	}
	return m
}

// Apply records a classified status for a job. Duplicate message ids are
// no-ops. Regressions and updates against terminal records are appended
// to history without changing current status.
func (l *Ledger) Apply(ctx context.Context, jobID string, candidate domain.Status, messageID string) (ApplyResult, error) {
	if !candidate.Valid() {
		return ApplyResult{}, fmt.Errorf("ledger: invalid status %q", candidate)
	}
	if messageID == "" {
		return ApplyResult{}, errors.New("ledger: empty source message id")
	}

	lock := l.lockFor(jobID)
	lock.Lock()
	defer lock.Unlock()

	app, err := l.store.GetApplication(ctx, jobID)
	if err != nil {
		return ApplyResult{}, err
	}
	if app.HasSource(messageID) {
		return ApplyResult{Outcome: OutcomeDuplicate, From: app.CurrentStatus, To: app.CurrentStatus}, nil
	}

	transition := domain.Evaluate(app.CurrentStatus, candidate)
	promoted := transition == domain.TransitionPromote

	entry := domain.StatusEntry{
		ID:         uuid.New(),
		Status:     candidate,
		Source:     messageID,
		Promoted:   promoted,
		RecordedAt: l.clock(),
	}
	current := app.CurrentStatus
	if promoted {
		current = candidate
	}
	if err := l.store.AppendStatus(ctx, jobID, entry, current); err != nil {
		if errors.Is(err, ErrDuplicate) {
			// Lost a race with another writer of the same message id.
			return ApplyResult{Outcome: OutcomeDuplicate, From: app.CurrentStatus, To: app.CurrentStatus}, nil
		}
		return ApplyResult{}, err
	}

	result := ApplyResult{From: app.CurrentStatus, To: current}
	if promoted {
		result.Outcome = OutcomeApplied
	} else {
		result.Outcome = OutcomeRecorded
	}
	return result, nil
}

// Override sets a status by operator command. It bypasses the state
// machine entirely: any valid status may be set regardless of the
// current one, including moving off a terminal status.
func (l *Ledger) Override(ctx context.Context, jobID string, status domain.Status, notes string) (ApplyResult, error) {
	if !status.Valid() {
		return ApplyResult{}, fmt.Errorf("ledger: invalid status %q", status)
	}

	lock := l.lockFor(jobID)
	lock.Lock()
	defer lock.Unlock()

	app, err := l.store.GetApplication(ctx, jobID)
	if err != nil {
		return ApplyResult{}, err
	}

	entry := domain.StatusEntry{
		ID:         uuid.New(),
		Status:     status,
		Source:     domain.SourceManual,
		Promoted:   true,
		RecordedAt: l.clock(),
	}
	if err := l.store.AppendStatus(ctx, jobID, entry, status); err != nil {
		return ApplyResult{}, err
	}
	if notes != "" {
		if err := l.store.SetNotes(ctx, jobID, notes); err != nil {
			return ApplyResult{}, err
		}
	}
	return ApplyResult{Outcome: OutcomeApplied, From: app.CurrentStatus, To: status}, nil
}

// Get returns one record with its full history.
func (l *Ledger) Get(ctx context.Context, jobID string) (*domain.Application, error) {
	return l.store.GetApplication(ctx, jobID)
}

// List returns a snapshot of all records.
func (l *Ledger) List(ctx context.Context) ([]domain.Application, error) {
	return l.store.ListApplications(ctx)
}

// Filter narrows a List call. Zero values match everything. Company is a
// case-insensitive substring match.
type Filter struct {
	Status  domain.Status
	Company string
}

// ListFiltered returns the records matching the filter.
func (l *Ledger) ListFiltered(ctx context.Context, f Filter) ([]domain.Application, error) {
	apps, err := l.store.ListApplications(ctx)
	if err != nil {
		return nil, err
	}
	if f.Status == "" && f.Company == "" {
		return apps, nil
	}

	company := strings.ToLower(f.Company)
	filtered := apps[:0]
	for _, app := range apps {
		if f.Status != "" && app.CurrentStatus != f.Status {
			continue
		}
		if company != "" && !strings.Contains(strings.ToLower(app.Company), company) {
			continue
		}
		filtered = append(filtered, app)
	}
	return filtered, nil
}

// Stats returns summary numbers over the whole ledger.
func (l *Ledger) Stats(ctx context.Context) (domain.Stats, error) {
	return l.store.Stats(ctx)
}
