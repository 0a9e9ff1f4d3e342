package domain

import "time"

// StatusEvent is emitted on the event bus after a ledger transition has
// been durably committed. Consumers (notifier, analytics) must treat it
// as informational: the ledger is already the source of truth.
type StatusEvent struct {
	JobID    string
	Company  string
	Title    string
	From     Status
	To       Status
	Promoted bool
	Source   string

	ReceivedAt time.Time
	AppliedAt  time.Time
}
