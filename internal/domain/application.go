package domain

import (
	"time"

	"github.com/google/uuid"
)

// SourceManual marks history entries written by operator override rather
// than a mailbox message.
const SourceManual = "manual"

// Application is one submitted job application. JobID is assigned by the
// submission bot and never changes.
type Application struct {
	JobID    string
	Company  string
	Title    string
	Location string

	AppliedAt     time.Time
	CurrentStatus Status
	Notes         string

	History []StatusEntry

	CreatedAt time.Time
	UpdatedAt time.Time
}

// StatusEntry is one append-only history row. Source is either a mailbox
// message id or SourceManual. Promoted reports whether the entry changed
// CurrentStatus or was recorded as an observed signal only.
type StatusEntry struct {
	ID         uuid.UUID
	Status     Status
	Source     string
	Promoted   bool
	RecordedAt time.Time
}

// HasSource reports whether any history entry was produced by the given
// source message id. This is the sole deduplication key for applies.
func (a *Application) HasSource(source string) bool {
	for _, e := range a.History {
		if e.Source == source {
			return true
		}
	}
	return false
}
