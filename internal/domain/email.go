package domain

import "time"

// EmailMessage is a normalized mailbox message. It is transient: only
// MessageID outlives the cycle that fetched it, as the dedup key in
// status history.
type EmailMessage struct {
	MessageID  string
	Sender     string
	SenderName string
	Subject    string
	BodyText   string
	ReceivedAt time.Time

	// UID is the connector-internal identifier used for optional
	// processed-mail tagging.
	UID uint32
}

// Watermark marks the boundary of already-processed mail for one
// mailbox folder. It advances only after a cycle's updates are durably
// committed.
type Watermark struct {
	Mailbox       string
	Folder        string
	LastReceived  time.Time
	LastMessageID string
}

// Zero reports whether no scan has ever completed for this mailbox.
func (w Watermark) Zero() bool {
	return w.LastReceived.IsZero()
}

// Covers reports whether a message is at or behind the watermark and can
// be skipped without touching the ledger.
func (w Watermark) Covers(m EmailMessage) bool {
	if w.Zero() {
		return false
	}
	if m.ReceivedAt.Before(w.LastReceived) {
		return true
	}
	return m.ReceivedAt.Equal(w.LastReceived) && m.MessageID == w.LastMessageID
}
