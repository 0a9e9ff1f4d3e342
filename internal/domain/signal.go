package domain

import (
	"time"

	"github.com/google/uuid"
)

type SignalReason string

const (
	SignalAmbiguous SignalReason = "ambiguous"
	SignalUnmatched SignalReason = "unmatched"
)

// Signal records a classified email that could not be applied
// automatically. Signals are never auto-resolved: they stay visible to
// the operator until handled with a manual update.
type Signal struct {
	ID         uuid.UUID
	MessageID  string
	Reason     SignalReason
	Status     Status
	JobIDHint  string
	Company    string
	Subject    string
	Candidates []string
	ReceivedAt time.Time
	RecordedAt time.Time
	Resolved   bool
}
