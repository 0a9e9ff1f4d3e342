package connector

import (
	"context"
	"time"

	"github.com/OPKYEI/FunctionalJobAutomation/internal/domain"
)

// Mailbox opens one session per scan cycle.
type Mailbox interface {
	Open(ctx context.Context) (Session, error)
}

// Session is an authenticated connection to one mail folder.
type Session interface {
	// Fetch returns messages received on or after since, oldest first.
	Fetch(ctx context.Context, since time.Time) ([]domain.EmailMessage, error)
	// MarkProcessed tags messages as handled, when tagging is enabled.
	MarkProcessed(ctx context.Context, uids ...uint32) error
	Close() error
}
