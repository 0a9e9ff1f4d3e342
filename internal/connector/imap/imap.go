// Package imap fetches mailbox messages over IMAP and normalizes them
// for classification.
package imap

import (
	"context"
	"crypto/tls"
	"fmt"
	"log"
	"net"
	"sort"
	"strings"
	"time"

	goimap "github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
	_ "github.com/emersion/go-message/charset"

	"github.com/OPKYEI/FunctionalJobAutomation/internal/connector"
	"github.com/OPKYEI/FunctionalJobAutomation/internal/domain"
)

// Connector dials an IMAP server on demand. One Session is opened per
// scan cycle and closed when the cycle ends.
type Connector struct {
	host     string
	username string
	password string
	folder   string
	useTLS   bool
	timeout  time.Duration

	// markFlag, when non-empty, is added as a keyword to fetched
	// messages so other clients can see they were handled.
	markFlag string
}

// Config carries the mailbox connection settings.
type Config struct {
	Host     string
	Username string
	Password string
	Folder   string
	TLS      bool
	Timeout  time.Duration
	MarkFlag string
}

func New(cfg Config) *Connector {
	folder := cfg.Folder
	if folder == "" {
		folder = "INBOX"
	}
	return &Connector{
		host:     cfg.Host,
		username: cfg.Username,
		password: cfg.Password,
		folder:   folder,
		useTLS:   cfg.TLS,
		timeout:  cfg.Timeout,
		markFlag: cfg.MarkFlag,
	}
}

// Session is one authenticated IMAP connection with the folder selected.
type Session struct {
	client   *client.Client
	folder   string
	markFlag string
}

// Open dials, authenticates, and selects the configured folder.
// Dial failures are transient; authentication and folder-selection
// failures are fatal.
func (c *Connector) Open(ctx context.Context) (connector.Session, error) {
	dialer := &net.Dialer{Timeout: c.timeout}

	var cl *client.Client
	var err error
	if c.useTLS {
		cl, err = client.DialWithDialerTLS(dialer, c.host, &tls.Config{})
	} else {
		cl, err = client.DialWithDialer(dialer, c.host)
	}
	if err != nil {
		return nil, connector.NewTransient("dial "+c.host, err)
	}

	if err := cl.Login(c.username, c.password); err != nil {
		cl.Logout()
		return nil, connector.NewFatal("login", err)
	}

	if _, err := cl.Select(c.folder, false); err != nil {
		cl.Logout()
		return nil, connector.NewFatal("select "+c.folder, err)
	}

	return &Session{client: cl, folder: c.folder, markFlag: c.markFlag}, nil
}

// Fetch returns messages received on or after since, oldest first.
// IMAP SINCE is date-granular, so the boundary day is always refetched;
// the ledger's message-id dedup absorbs the replays.
func (s *Session) Fetch(ctx context.Context, since time.Time) ([]domain.EmailMessage, error) {
	criteria := goimap.NewSearchCriteria()
	criteria.Since = since.Truncate(24 * time.Hour)

	uids, err := s.client.UidSearch(criteria)
	if err != nil {
		return nil, connector.NewTransient("search", err)
	}
	if len(uids) == 0 {
		return nil, nil
	}

	seqset := new(goimap.SeqSet)
	seqset.AddNum(uids...)

	section := &goimap.BodySectionName{Peek: true}
	items := []goimap.FetchItem{goimap.FetchEnvelope, goimap.FetchUid, section.FetchItem()}

	messages := make(chan *goimap.Message, len(uids))
	done := make(chan error, 1)
	go func() {
		done <- s.client.UidFetch(seqset, items, messages)
	}()

	var result []domain.EmailMessage
	for msg := range messages {
		select {
		case <-ctx.Done():
			<-done
			return nil, ctx.Err()
		default:
		}
		em, ok := normalize(msg, section)
		if !ok {
			log.Printf("imap: skipping message uid=%d without envelope", msg.Uid)
			continue
		}
		result = append(result, em)
	}
	if err := <-done; err != nil {
		return nil, connector.NewTransient("fetch", err)
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].ReceivedAt.Equal(result[j].ReceivedAt) {
			return result[i].UID < result[j].UID
		}
		return result[i].ReceivedAt.Before(result[j].ReceivedAt)
	})
	return result, nil
}

// MarkProcessed adds the configured keyword flag to the given messages.
// A no-op when flag tagging is disabled.
func (s *Session) MarkProcessed(ctx context.Context, uids ...uint32) error {
	if s.markFlag == "" || len(uids) == 0 {
		return nil
	}
	seqset := new(goimap.SeqSet)
	seqset.AddNum(uids...)
	item := goimap.FormatFlagsOp(goimap.AddFlags, true)
	if err := s.client.UidStore(seqset, item, []interface{}{s.markFlag}, nil); err != nil {
		return connector.NewTransient("store flags", err)
	}
	return nil
}

func (s *Session) Close() error {
	return s.client.Logout()
}

func normalize(msg *goimap.Message, section *goimap.BodySectionName) (domain.EmailMessage, bool) {
	if msg.Envelope == nil {
		return domain.EmailMessage{}, false
	}
	em := domain.EmailMessage{
		MessageID:  msg.Envelope.MessageId,
		Subject:    msg.Envelope.Subject,
		ReceivedAt: msg.Envelope.Date,
		UID:        msg.Uid,
	}
	if len(msg.Envelope.From) > 0 {
		from := msg.Envelope.From[0]
		em.Sender = from.Address()
		em.SenderName = from.PersonalName
	}
	if em.MessageID == "" {
		// Some servers omit Message-ID; synthesize a stable stand-in so
		// dedup still works.
		em.MessageID = fmt.Sprintf("<uid-%d-%d@%s>", msg.Uid, em.ReceivedAt.Unix(), strings.ToLower(em.Sender))
	}
	if body := msg.GetBody(section); body != nil {
		em.BodyText = extractText(body)
	}
	return em, true
}

// Compile-time interface assertion
var _ connector.Mailbox = (*Connector)(nil)
