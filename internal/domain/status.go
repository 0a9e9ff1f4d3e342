package domain

import "fmt"

type Status string

const (
	StatusApplied            Status = "applied"
	StatusAcknowledged       Status = "acknowledged"
	StatusViewed             Status = "viewed"
	StatusInterviewScheduled Status = "interview_scheduled"
	StatusOffer              Status = "offer"
	StatusRejected           Status = "rejected"
	StatusWithdrawn          Status = "withdrawn"
	StatusClosed             Status = "closed"
)

// statusRank defines the progress order used for the regression check.
// Absorbing states share a rank: none of them outranks another.
var statusRank = map[Status]int{
	StatusApplied:            0,
	StatusAcknowledged:       1,
	StatusViewed:             2,
	StatusInterviewScheduled: 3,
	StatusOffer:              4,
	StatusRejected:           4,
	StatusWithdrawn:          4,
	StatusClosed:             5,
}

// ParseStatus validates a status string from CLI or API input.
func ParseStatus(s string) (Status, error) {
	st := Status(s)
	if _, ok := statusRank[st]; !ok {
		return "", fmt.Errorf("unknown status %q", s)
	}
	return st, nil
}

func (s Status) Valid() bool {
	_, ok := statusRank[s]
	return ok
}

func (s Status) Rank() int {
	return statusRank[s]
}

// Absorbing statuses may be applied from any non-terminal state
// regardless of progress order.
func (s Status) Absorbing() bool {
	return s == StatusOffer || s == StatusRejected || s == StatusWithdrawn
}

// Terminal statuses admit no further automatic transitions.
func (s Status) Terminal() bool {
	return s.Absorbing() || s == StatusClosed
}

// Transition is the decision for a candidate status against the current one.
type Transition int

const (
	// TransitionPromote: candidate becomes the new current status.
	TransitionPromote Transition = iota
	// TransitionSignal: candidate is recorded in history only; current
	// status is already equal or further along.
	TransitionSignal
	// TransitionBlocked: current status is terminal; candidate is recorded
	// in history only.
	TransitionBlocked
)

// Evaluate applies the state-machine rules: absorbing candidates promote
// from any non-terminal state, otherwise the candidate must strictly
// outrank the current status. Regressions never overwrite current status
// but are preserved as observed signals.
func Evaluate(current, candidate Status) Transition {
	if current.Terminal() {
		return TransitionBlocked
	}
	if candidate.Absorbing() {
		return TransitionPromote
	}
	if candidate.Rank() > current.Rank() {
		return TransitionPromote
	}
	return TransitionSignal
}
