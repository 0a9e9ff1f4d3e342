package scanner

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/OPKYEI/FunctionalJobAutomation/internal/classifier"
	"github.com/OPKYEI/FunctionalJobAutomation/internal/connector"
	"github.com/OPKYEI/FunctionalJobAutomation/internal/domain"
	"github.com/OPKYEI/FunctionalJobAutomation/internal/ledger"
	"github.com/OPKYEI/FunctionalJobAutomation/internal/testutil"
)

// memStore backs the ledger, watermarks, and signals in memory, the way
// the postgres store backs all three in production.
type memStore struct {
	mu         sync.Mutex
	apps       map[string]*domain.Application
	watermarks map[string]domain.Watermark
	sigs       []domain.Signal

	failSource string
	failSave   bool
}

func newMemStore(apps ...domain.Application) *memStore {
	s := &memStore{
		apps:       make(map[string]*domain.Application),
		watermarks: make(map[string]domain.Watermark),
	}
	for i := range apps {
		a := apps[i]
		s.apps[a.JobID] = &a
	}
	return s
}

func (s *memStore) GetApplication(_ context.Context, jobID string) (*domain.Application, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.apps[jobID]
	if !ok {
		return nil, ledger.ErrNotFound
	}
	cp := *a
	cp.History = append([]domain.StatusEntry(nil), a.History...)
	return &cp, nil
}

func (s *memStore) ListApplications(_ context.Context) ([]domain.Application, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Application, 0, len(s.apps))
	for _, a := range s.apps {
		out = append(out, *a)
	}
	return out, nil
}

func (s *memStore) AppendStatus(_ context.Context, jobID string, entry domain.StatusEntry, current domain.Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failSource != "" && entry.Source == s.failSource {
		return errors.New("append failed")
	}
	a, ok := s.apps[jobID]
	if !ok {
		return ledger.ErrNotFound
	}
	a.History = append(a.History, entry)
	a.CurrentStatus = current
	return nil
}

func (s *memStore) SetNotes(_ context.Context, jobID, notes string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a, ok := s.apps[jobID]; ok {
		a.Notes = notes
	}
	return nil
}

func (s *memStore) Stats(ctx context.Context) (domain.Stats, error) {
	apps, err := s.ListApplications(ctx)
	if err != nil {
		return domain.Stats{}, err
	}
	return domain.ComputeStats(apps), nil
}

func (s *memStore) GetWatermark(_ context.Context, mailbox, folder string) (domain.Watermark, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if wm, ok := s.watermarks[mailbox+"/"+folder]; ok {
		return wm, nil
	}
	return domain.Watermark{Mailbox: mailbox, Folder: folder}, nil
}

func (s *memStore) SaveWatermark(_ context.Context, wm domain.Watermark) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failSave {
		return errors.New("save failed")
	}
	s.watermarks[wm.Mailbox+"/"+wm.Folder] = wm
	return nil
}

func (s *memStore) InsertSignal(_ context.Context, sig domain.Signal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.sigs {
		if existing.MessageID == sig.MessageID {
			return nil
		}
	}
	s.sigs = append(s.sigs, sig)
	return nil
}

type fakeSession struct {
	messages []domain.EmailMessage
	fetchErr error
	marked   []uint32
	closed   bool
}

func (s *fakeSession) Fetch(_ context.Context, since time.Time) ([]domain.EmailMessage, error) {
	if s.fetchErr != nil {
		return nil, s.fetchErr
	}
	var out []domain.EmailMessage
	for _, m := range s.messages {
		if !m.ReceivedAt.Before(since) {
			out = append(out, m)
		}
	}
	return out, nil
}

func (s *fakeSession) MarkProcessed(_ context.Context, uids ...uint32) error {
	s.marked = append(s.marked, uids...)
	return nil
}

func (s *fakeSession) Close() error {
	s.closed = true
	return nil
}

type fakeMailbox struct {
	session *fakeSession
	openErr error
	opens   int
}

func (m *fakeMailbox) Open(_ context.Context) (connector.Session, error) {
	m.opens++
	if m.openErr != nil {
		return nil, m.openErr
	}
	return m.session, nil
}

type captureEmitter struct {
	mu     sync.Mutex
	events []domain.StatusEvent
}

func (e *captureEmitter) Emit(_ context.Context, event domain.StatusEvent) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.events = append(e.events, event)
	return nil
}

var scanBase = time.Date(2026, 3, 20, 9, 0, 0, 0, time.UTC)

func mail(uid uint32, subject, body string, received time.Time) domain.EmailMessage {
	return domain.EmailMessage{
		MessageID:  fmt.Sprintf("<%d@mail.test>", uid),
		Sender:     "jobs@acme.com",
		SenderName: "Acme",
		Subject:    subject,
		BodyText:   body,
		ReceivedAt: received,
		UID:        uid,
	}
}

func appRecord(jobID, company string, status domain.Status) domain.Application {
	return domain.Application{
		JobID:         jobID,
		Company:       company,
		Title:         "Engineer",
		CurrentStatus: status,
		AppliedAt:     scanBase.Add(-10 * 24 * time.Hour),
	}
}

func newTestScanner(store *memStore, session *fakeSession) (*Scanner, *captureEmitter) {
	emitter := &captureEmitter{}
	clock := testutil.NewFakeClock(scanBase.Add(time.Hour))
	s := New(
		Config{Mailbox: "me@mail.test", Folder: "INBOX", Host: "imap.mail.test:993", Interval: time.Minute, Lookback: 72 * time.Hour},
		&fakeMailbox{session: session},
		classifier.New(0.0),
		ledger.New(store).WithClock(clock.Now),
		store,
		store,
		emitter,
	).WithClock(clock.Now)
	return s, emitter
}

func TestCycleAppliesViewedUpdate(t *testing.T) {
	store := newMemStore(appRecord("42", "Acme", domain.StatusApplied))
	session := &fakeSession{messages: []domain.EmailMessage{
		mail(1, "Your application was viewed", "Your application for job 42 was viewed by the hiring team.", scanBase),
	}}
	s, emitter := newTestScanner(store, session)

	report, err := s.RunOnce(testutil.TestContext(t))
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if report.Applied != 1 {
		t.Fatalf("report = %+v, want one applied", report)
	}

	app, _ := store.GetApplication(context.Background(), "42")
	if app.CurrentStatus != domain.StatusViewed {
		t.Fatalf("current = %q, want viewed", app.CurrentStatus)
	}
	if len(app.History) != 1 {
		t.Fatalf("history length = %d, want 1", len(app.History))
	}

	if len(emitter.events) != 1 || emitter.events[0].To != domain.StatusViewed {
		t.Fatalf("events = %+v, want one viewed event", emitter.events)
	}
	if len(session.marked) != 1 || session.marked[0] != 1 {
		t.Fatalf("marked = %v, want uid 1", session.marked)
	}
	if !session.closed {
		t.Fatal("session not closed")
	}

	wm, _ := store.GetWatermark(context.Background(), "me@mail.test", "INBOX")
	if !wm.LastReceived.Equal(scanBase) || wm.LastMessageID != "<1@mail.test>" {
		t.Fatalf("watermark = %+v", wm)
	}
}

func TestCycleRecordsStaleSignalWithoutRegression(t *testing.T) {
	store := newMemStore(appRecord("42", "Acme", domain.StatusViewed))
	session := &fakeSession{messages: []domain.EmailMessage{
		mail(1, "Thank you for applying", "We have received your application for job 42.", scanBase),
	}}
	s, emitter := newTestScanner(store, session)

	report, err := s.RunOnce(testutil.TestContext(t))
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if report.Recorded != 1 || report.Applied != 0 {
		t.Fatalf("report = %+v, want one recorded", report)
	}

	app, _ := store.GetApplication(context.Background(), "42")
	if app.CurrentStatus != domain.StatusViewed {
		t.Fatalf("current = %q, stale signal must not regress", app.CurrentStatus)
	}
	if len(app.History) != 1 || app.History[0].Promoted {
		t.Fatalf("history = %+v, want one unpromoted entry", app.History)
	}
	if len(emitter.events) != 0 {
		t.Fatalf("events = %+v, regressions must not notify", emitter.events)
	}
}

func TestCycleAppliesLateRejection(t *testing.T) {
	store := newMemStore(appRecord("42", "Acme", domain.StatusInterviewScheduled))
	session := &fakeSession{messages: []domain.EmailMessage{
		mail(1, "Update on your application", "We regret to inform you that we will not proceed with job 42.", scanBase),
	}}
	s, _ := newTestScanner(store, session)

	if _, err := s.RunOnce(testutil.TestContext(t)); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}

	app, _ := store.GetApplication(context.Background(), "42")
	if app.CurrentStatus != domain.StatusRejected {
		t.Fatalf("current = %q, want rejected", app.CurrentStatus)
	}
}

func TestUnchangedMailboxIsStable(t *testing.T) {
	store := newMemStore(appRecord("42", "Acme", domain.StatusApplied))
	session := &fakeSession{messages: []domain.EmailMessage{
		mail(1, "Your application was viewed", "Job 42 was viewed.", scanBase),
	}}
	s, _ := newTestScanner(store, session)
	ctx := testutil.TestContext(t)

	if _, err := s.RunOnce(ctx); err != nil {
		t.Fatalf("first cycle: %v", err)
	}
	statsBefore, _ := store.Stats(ctx)
	wmBefore, _ := store.GetWatermark(ctx, "me@mail.test", "INBOX")

	report, err := s.RunOnce(ctx)
	if err != nil {
		t.Fatalf("second cycle: %v", err)
	}
	if report.Applied != 0 || report.Recorded != 0 || report.Duplicates != 0 {
		t.Fatalf("second cycle report = %+v, want no ledger activity", report)
	}

	statsAfter, _ := store.Stats(ctx)
	if statsBefore.Total != statsAfter.Total || statsBefore.Responded != statsAfter.Responded {
		t.Fatalf("stats changed: before=%+v after=%+v", statsBefore, statsAfter)
	}
	wmAfter, _ := store.GetWatermark(ctx, "me@mail.test", "INBOX")
	if wmAfter != wmBefore {
		t.Fatalf("watermark moved without new mail: before=%+v after=%+v", wmBefore, wmAfter)
	}
}

func TestDedupUnderRestart(t *testing.T) {
	messages := []domain.EmailMessage{
		mail(1, "Your application was viewed", "Job 42 was viewed.", scanBase),
		mail(2, "Interview invitation", "We would like to invite you to interview for job 42.", scanBase.Add(time.Hour)),
	}
	ctx := context.Background()

	// Crash before the watermark persists: the cycle errors out, but the
	// ledger writes are already durable.
	store := newMemStore(appRecord("42", "Acme", domain.StatusApplied))
	store.failSave = true
	s, _ := newTestScanner(store, &fakeSession{messages: messages})
	if _, err := s.RunOnce(ctx); err == nil {
		t.Fatal("expected watermark save failure")
	}

	// Restart: a fresh scanner reprocesses from the last persisted
	// watermark (none). Idempotency absorbs the replayed tail.
	store.failSave = false
	restarted, _ := newTestScanner(store, &fakeSession{messages: messages})
	report, err := restarted.RunOnce(ctx)
	if err != nil {
		t.Fatalf("RunOnce after restart: %v", err)
	}
	if report.Duplicates != 2 {
		t.Fatalf("report = %+v, want both messages deduplicated", report)
	}

	app, _ := store.GetApplication(ctx, "42")
	if app.CurrentStatus != domain.StatusInterviewScheduled {
		t.Fatalf("current = %q, want interview_scheduled", app.CurrentStatus)
	}
	if len(app.History) != 2 {
		t.Fatalf("history length = %d, want exactly 2", len(app.History))
	}
}

func TestAmbiguousEmailBecomesSignal(t *testing.T) {
	store := newMemStore(
		appRecord("1", "Acme", domain.StatusApplied),
		appRecord("2", "Acme", domain.StatusApplied),
	)
	session := &fakeSession{messages: []domain.EmailMessage{
		mail(1, "Thank you for applying to Acme", "We have received your application.", scanBase),
	}}
	s, _ := newTestScanner(store, session)

	report, err := s.RunOnce(testutil.TestContext(t))
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if report.Ambiguous != 1 {
		t.Fatalf("report = %+v, want one ambiguous", report)
	}

	for _, id := range []string{"1", "2"} {
		app, _ := store.GetApplication(context.Background(), id)
		if app.CurrentStatus != domain.StatusApplied {
			t.Fatalf("job %s status = %q, ambiguity must not change it", id, app.CurrentStatus)
		}
	}
	if len(store.sigs) != 1 || store.sigs[0].Reason != domain.SignalAmbiguous {
		t.Fatalf("signals = %+v, want one ambiguous signal", store.sigs)
	}
	if len(store.sigs[0].Candidates) != 2 {
		t.Fatalf("candidates = %v", store.sigs[0].Candidates)
	}
}

func TestUnmatchedEmailBecomesSignal(t *testing.T) {
	store := newMemStore(appRecord("1", "Acme", domain.StatusApplied))
	session := &fakeSession{messages: []domain.EmailMessage{
		{
			MessageID:  "<x@hooli.com>",
			Sender:     "jobs@hooli.com",
			Subject:    "Thank you for applying",
			BodyText:   "We have received your application. Thank you for your interest in Hooli.",
			ReceivedAt: scanBase,
			UID:        9,
		},
	}}
	s, _ := newTestScanner(store, session)

	report, err := s.RunOnce(testutil.TestContext(t))
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if report.Unmatched != 1 {
		t.Fatalf("report = %+v, want one unmatched", report)
	}
	if len(store.sigs) != 1 || store.sigs[0].Reason != domain.SignalUnmatched {
		t.Fatalf("signals = %+v", store.sigs)
	}
	// Unmatched mail never creates a ledger record.
	apps, _ := store.ListApplications(context.Background())
	if len(apps) != 1 {
		t.Fatalf("records = %d, want 1", len(apps))
	}
}

func TestIrrelevantMailAdvancesWatermark(t *testing.T) {
	store := newMemStore(appRecord("42", "Acme", domain.StatusApplied))
	session := &fakeSession{messages: []domain.EmailMessage{
		mail(1, "Lunch on Friday?", "Want to grab lunch?", scanBase),
	}}
	s, _ := newTestScanner(store, session)

	report, err := s.RunOnce(testutil.TestContext(t))
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if report.Irrelevant != 1 {
		t.Fatalf("report = %+v", report)
	}

	wm, _ := store.GetWatermark(context.Background(), "me@mail.test", "INBOX")
	if !wm.LastReceived.Equal(scanBase) {
		t.Fatalf("watermark = %+v, must advance past irrelevant mail", wm)
	}
	if len(session.marked) != 0 {
		t.Fatalf("marked = %v, irrelevant mail must not be tagged", session.marked)
	}
}

func TestOneBadMessageDoesNotHaltTheCycle(t *testing.T) {
	store := newMemStore(
		appRecord("42", "Acme", domain.StatusApplied),
		appRecord("7", "Globex", domain.StatusApplied),
	)
	store.failSource = "<1@mail.test>"
	session := &fakeSession{messages: []domain.EmailMessage{
		mail(1, "Your application was viewed", "Job 42 was viewed.", scanBase),
		mail(2, "Interview invitation", "Please book a time to interview for job 7 at Globex.", scanBase.Add(time.Hour)),
	}}
	s, _ := newTestScanner(store, session)

	report, err := s.RunOnce(testutil.TestContext(t))
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if report.Errors != 1 || report.Applied != 1 {
		t.Fatalf("report = %+v, want one error and one applied", report)
	}

	// The second message still landed.
	app, _ := store.GetApplication(context.Background(), "7")
	if app.CurrentStatus != domain.StatusInterviewScheduled {
		t.Fatalf("job 7 status = %q", app.CurrentStatus)
	}

	// The watermark must not pass the failed message, so the next cycle
	// retries it.
	wm, _ := store.GetWatermark(context.Background(), "me@mail.test", "INBOX")
	if !wm.Zero() {
		t.Fatalf("watermark = %+v, must not advance past a failed message", wm)
	}
}

func TestOverlappingCycleIsSkipped(t *testing.T) {
	store := newMemStore()
	s, _ := newTestScanner(store, &fakeSession{})

	s.cycleMu.Lock()
	defer s.cycleMu.Unlock()

	if _, err := s.RunOnce(context.Background()); !errors.Is(err, ErrCycleInProgress) {
		t.Fatalf("err = %v, want ErrCycleInProgress", err)
	}
}

type recordingBreaker struct {
	allowErr  error
	failures  int
	successes int
}

func (b *recordingBreaker) Allow(string) error   { return b.allowErr }
func (b *recordingBreaker) RecordSuccess(string) { b.successes++ }
func (b *recordingBreaker) RecordFailure(string) { b.failures++ }

func TestBreakerGuardsTheMailboxHost(t *testing.T) {
	store := newMemStore()
	ctx := testutil.TestContext(t)

	t.Run("open circuit short-circuits the cycle", func(t *testing.T) {
		s, _ := newTestScanner(store, &fakeSession{})
		breaker := &recordingBreaker{allowErr: errors.New("circuit breaker is open")}
		mailbox := &fakeMailbox{session: &fakeSession{}}
		s.mailbox = mailbox
		s.WithBreaker(breaker)

		if _, err := s.RunOnce(ctx); err == nil {
			t.Fatal("expected error while circuit is open")
		}
		if mailbox.opens != 0 {
			t.Fatal("mailbox must not be dialed while the circuit is open")
		}
	})

	t.Run("transient open failure is recorded", func(t *testing.T) {
		s, _ := newTestScanner(store, &fakeSession{})
		breaker := &recordingBreaker{}
		s.mailbox = &fakeMailbox{openErr: connector.NewTransient("dial", errors.New("refused"))}
		s.WithBreaker(breaker)

		if _, err := s.RunOnce(ctx); err == nil {
			t.Fatal("expected open error")
		}
		if breaker.failures != 1 {
			t.Fatalf("failures = %d, want 1", breaker.failures)
		}
	})

	t.Run("transient fetch failure is recorded", func(t *testing.T) {
		s, _ := newTestScanner(store, &fakeSession{fetchErr: connector.NewTransient("search", errors.New("reset by peer"))})
		breaker := &recordingBreaker{}
		s.WithBreaker(breaker)

		if _, err := s.RunOnce(ctx); err == nil {
			t.Fatal("expected fetch error")
		}
		if breaker.failures != 1 {
			t.Fatalf("failures = %d, want 1", breaker.failures)
		}
		if breaker.successes != 0 {
			t.Fatalf("successes = %d, a failed fetch must not reset the breaker", breaker.successes)
		}
	})

	t.Run("fatal fetch failure does not trip the breaker", func(t *testing.T) {
		s, _ := newTestScanner(store, &fakeSession{fetchErr: connector.NewFatal("select", errors.New("no such folder"))})
		breaker := &recordingBreaker{}
		s.WithBreaker(breaker)

		if _, err := s.RunOnce(ctx); err == nil {
			t.Fatal("expected fetch error")
		}
		if breaker.failures != 0 {
			t.Fatalf("failures = %d, fatal errors are not retry candidates", breaker.failures)
		}
	})

	t.Run("successful fetch resets the breaker", func(t *testing.T) {
		s, _ := newTestScanner(store, &fakeSession{})
		breaker := &recordingBreaker{}
		s.WithBreaker(breaker)

		if _, err := s.RunOnce(ctx); err != nil {
			t.Fatalf("RunOnce: %v", err)
		}
		if breaker.successes != 1 {
			t.Fatalf("successes = %d, want 1", breaker.successes)
		}
	})
}

func TestRunStopsOnFatalConnectorError(t *testing.T) {
	store := newMemStore()
	s, _ := newTestScanner(store, &fakeSession{})
	s.mailbox = &fakeMailbox{openErr: connector.NewFatal("login", errors.New("bad credentials"))}

	err := s.Run(testutil.TestContext(t))
	if !connector.IsFatal(err) {
		t.Fatalf("err = %v, want fatal connector error", err)
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	store := newMemStore()
	s, _ := newTestScanner(store, &fakeSession{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("err = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop after cancel")
	}
}

func TestFirstRunUsesLookbackWindow(t *testing.T) {
	store := newMemStore(appRecord("42", "Acme", domain.StatusApplied))
	old := mail(1, "Your application was viewed", "Job 42 was viewed.", scanBase.Add(-30*24*time.Hour))
	recent := mail(2, "Interview invitation", "Book a time for job 42.", scanBase)
	session := &fakeSession{messages: []domain.EmailMessage{old, recent}}
	s, _ := newTestScanner(store, session)

	report, err := s.RunOnce(testutil.TestContext(t))
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	// Lookback is 72h: the month-old message is outside the window.
	if report.Fetched != 1 || report.Applied != 1 {
		t.Fatalf("report = %+v, want only the recent message", report)
	}
}
