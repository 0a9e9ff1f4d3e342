// Package scanner drives the scan-classify-match-update cycle against a
// mailbox. One cycle fetches mail since the persisted watermark, applies
// every classified update to the ledger, then advances the watermark.
// Per-message failures are isolated: one bad email never halts a cycle,
// and one failed cycle never halts the schedule loop.
package scanner

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/OPKYEI/FunctionalJobAutomation/internal/connector"
	"github.com/OPKYEI/FunctionalJobAutomation/internal/domain"
	"github.com/OPKYEI/FunctionalJobAutomation/internal/ledger"
	"github.com/OPKYEI/FunctionalJobAutomation/internal/matcher"
	"github.com/OPKYEI/FunctionalJobAutomation/internal/metrics"
)

// ErrCycleInProgress is returned when a cycle is requested while the
// previous one is still running. The caller skips, it does not queue.
var ErrCycleInProgress = errors.New("scanner: cycle already in progress")

type Classifier interface {
	Classify(m domain.EmailMessage) (domain.Classification, bool)
}

type Ledger interface {
	Apply(ctx context.Context, jobID string, candidate domain.Status, messageID string) (ledger.ApplyResult, error)
	List(ctx context.Context) ([]domain.Application, error)
}

type WatermarkStore interface {
	GetWatermark(ctx context.Context, mailbox, folder string) (domain.Watermark, error)
	SaveWatermark(ctx context.Context, wm domain.Watermark) error
}

type SignalStore interface {
	InsertSignal(ctx context.Context, sig domain.Signal) error
}

type EventEmitter interface {
	Emit(ctx context.Context, event domain.StatusEvent) error
}

// Breaker guards the mailbox host against repeated connection failures.
type Breaker interface {
	Allow(key string) error
	RecordSuccess(key string)
	RecordFailure(key string)
}

type Config struct {
	Mailbox  string
	Folder   string
	Host     string
	Interval time.Duration
	Lookback time.Duration
}

// CycleReport summarizes one completed cycle.
type CycleReport struct {
	Fetched    int
	Applied    int
	Recorded   int
	Duplicates int
	Ambiguous  int
	Unmatched  int
	Irrelevant int
	Errors     int
	Watermark  domain.Watermark
}

type Scanner struct {
	config     Config
	mailbox    connector.Mailbox
	classifier Classifier
	ledger     Ledger
	watermarks WatermarkStore
	signals    SignalStore
	emitter    EventEmitter
	breaker    Breaker
	sink       metrics.Sink
	clock      func() time.Time

	cycleMu sync.Mutex
}

func New(config Config, mailbox connector.Mailbox, classifier Classifier, led Ledger, watermarks WatermarkStore, signals SignalStore, emitter EventEmitter) *Scanner {
	return &Scanner{
		config:     config,
		mailbox:    mailbox,
		classifier: classifier,
		ledger:     led,
		watermarks: watermarks,
		signals:    signals,
		emitter:    emitter,
		sink:       metrics.NewNoopSink(),
		clock:      time.Now,
	}
}

// WithBreaker guards Open calls with a circuit breaker keyed by host.
func (s *Scanner) WithBreaker(b Breaker) *Scanner {
	s.breaker = b
	return s
}

func (s *Scanner) WithMetrics(sink metrics.Sink) *Scanner {
	s.sink = sink
	return s
}

// WithClock overrides the time source. Used by tests.
func (s *Scanner) WithClock(clock func() time.Time) *Scanner {
	s.clock = clock
	return s
}

// Run executes cycles on the configured interval until ctx is canceled.
// The first cycle starts immediately. Cycle failures are logged and the
// loop continues, except fatal connector errors, which stop the loop.
func (s *Scanner) Run(ctx context.Context) error {
	log.Printf("scanner: started, mailbox=%s folder=%s interval=%s", s.config.Mailbox, s.config.Folder, s.config.Interval)

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	for {
		if _, err := s.RunOnce(ctx); err != nil {
			if connector.IsFatal(err) {
				log.Printf("scanner: fatal connector error, stopping: %v", err)
				return err
			}
			if ctx.Err() != nil {
				log.Println("scanner: stopped")
				return ctx.Err()
			}
			log.Printf("scanner: cycle error: %v", err)
		}

		select {
		case <-ctx.Done():
			log.Println("scanner: stopped")
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// RunOnce executes a single cycle. Returns ErrCycleInProgress when an
// overlapping invocation is still running.
func (s *Scanner) RunOnce(ctx context.Context) (CycleReport, error) {
	if !s.cycleMu.TryLock() {
		log.Println("scanner: cycle still running, skipping")
		return CycleReport{}, ErrCycleInProgress
	}
	defer s.cycleMu.Unlock()

	s.sink.CycleStarted()
	started := s.clock()

	report, err := s.cycle(ctx)

	duration := s.clock().Sub(started)
	s.sink.CycleCompleted(duration, report.Fetched, err)
	if err != nil {
		return report, err
	}

	log.Printf("scanner: cycle done in %s: fetched=%d applied=%d recorded=%d dup=%d ambiguous=%d unmatched=%d irrelevant=%d errors=%d",
		duration.Round(time.Millisecond), report.Fetched, report.Applied, report.Recorded,
		report.Duplicates, report.Ambiguous, report.Unmatched, report.Irrelevant, report.Errors)
	return report, nil
}

func (s *Scanner) cycle(ctx context.Context) (CycleReport, error) {
	var report CycleReport

	wm, err := s.watermarks.GetWatermark(ctx, s.config.Mailbox, s.config.Folder)
	if err != nil {
		return report, fmt.Errorf("load watermark: %w", err)
	}
	report.Watermark = wm

	since := wm.LastReceived
	if wm.Zero() {
		since = s.clock().Add(-s.config.Lookback)
		log.Printf("scanner: no watermark, first-run lookback to %s", since.Format(time.RFC3339))
	}

	if s.breaker != nil {
		if err := s.breaker.Allow(s.config.Host); err != nil {
			return report, fmt.Errorf("host %s: %w", s.config.Host, err)
		}
	}

	session, err := s.mailbox.Open(ctx)
	if err != nil {
		if s.breaker != nil && !connector.IsFatal(err) {
			s.breaker.RecordFailure(s.config.Host)
		}
		return report, err
	}
	defer session.Close()

	messages, err := session.Fetch(ctx, since)
	if err != nil {
		if s.breaker != nil && !connector.IsFatal(err) {
			s.breaker.RecordFailure(s.config.Host)
		}
		return report, err
	}
	if s.breaker != nil {
		s.breaker.RecordSuccess(s.config.Host)
	}
	report.Fetched = len(messages)

	snapshot, err := s.ledger.List(ctx)
	if err != nil {
		return report, fmt.Errorf("ledger snapshot: %w", err)
	}

	next := wm
	advancing := true
	var handled []uint32

	for i := range messages {
		// Stop signal is honored between messages, never mid-write.
		if ctx.Err() != nil {
			break
		}
		msg := messages[i]
		if next.Covers(msg) {
			continue
		}

		ok, err := s.processMessage(ctx, msg, snapshot, &report)
		if err != nil {
			report.Errors++
			log.Printf("scanner: message %s: %v", msg.MessageID, err)
			// The watermark must not pass an unprocessed message.
			advancing = false
		} else if ok {
			handled = append(handled, msg.UID)
		}

		if advancing {
			next.LastReceived = msg.ReceivedAt
			next.LastMessageID = msg.MessageID
		}
	}

	if err := session.MarkProcessed(ctx, handled...); err != nil {
		log.Printf("scanner: mark processed: %v", err)
	}

	if next != wm {
		if err := s.watermarks.SaveWatermark(ctx, next); err != nil {
			return report, fmt.Errorf("save watermark: %w", err)
		}
		report.Watermark = next
	}
	return report, nil
}

// processMessage runs one message through classify-match-apply. The
// bool reports whether the message produced a ledger write or review
// signal and should be tagged as handled.
func (s *Scanner) processMessage(ctx context.Context, msg domain.EmailMessage, snapshot []domain.Application, report *CycleReport) (bool, error) {
	cls, relevant := s.classifier.Classify(msg)
	if !relevant {
		report.Irrelevant++
		s.sink.MessageOutcome(metrics.OutcomeIrrelevant)
		return false, nil
	}

	res := matcher.Match(snapshot, cls, msg)
	switch res.Outcome {
	case matcher.OutcomeAmbiguous:
		report.Ambiguous++
		s.sink.MessageOutcome(metrics.OutcomeAmbiguous)
		log.Printf("scanner: ambiguous match for %s: candidates=%v", msg.MessageID, res.Candidates)
		return true, s.recordSignal(ctx, msg, cls, domain.SignalAmbiguous, res.Candidates)

	case matcher.OutcomeUnmatched:
		report.Unmatched++
		s.sink.MessageOutcome(metrics.OutcomeUnmatched)
		return true, s.recordSignal(ctx, msg, cls, domain.SignalUnmatched, nil)
	}

	app := res.Application
	applied, err := s.ledger.Apply(ctx, app.JobID, cls.Status, msg.MessageID)
	if err != nil {
		return false, fmt.Errorf("apply job=%s: %w", app.JobID, err)
	}

	switch applied.Outcome {
	case ledger.OutcomeApplied:
		report.Applied++
		s.sink.MessageOutcome(metrics.OutcomeApplied)
		app.CurrentStatus = applied.To
		s.emitEvent(ctx, app, applied, msg)
	case ledger.OutcomeRecorded:
		report.Recorded++
		s.sink.MessageOutcome(metrics.OutcomeRecorded)
	case ledger.OutcomeDuplicate:
		report.Duplicates++
		s.sink.MessageOutcome(metrics.OutcomeDuplicate)
	}
	return true, nil
}

func (s *Scanner) recordSignal(ctx context.Context, msg domain.EmailMessage, cls domain.Classification, reason domain.SignalReason, candidates []string) error {
	sig := domain.Signal{
		ID:         uuid.New(),
		MessageID:  msg.MessageID,
		Reason:     reason,
		Status:     cls.Status,
		JobIDHint:  cls.Reference.JobID,
		Company:    cls.Reference.Company,
		Subject:    msg.Subject,
		Candidates: candidates,
		ReceivedAt: msg.ReceivedAt,
		RecordedAt: s.clock(),
	}
	if err := s.signals.InsertSignal(ctx, sig); err != nil {
		return fmt.Errorf("record signal: %w", err)
	}
	return nil
}

func (s *Scanner) emitEvent(ctx context.Context, app *domain.Application, res ledger.ApplyResult, msg domain.EmailMessage) {
	if s.emitter == nil {
		return
	}
	event := domain.StatusEvent{
		JobID:      app.JobID,
		Company:    app.Company,
		Title:      app.Title,
		From:       res.From,
		To:         res.To,
		Promoted:   true,
		Source:     msg.MessageID,
		ReceivedAt: msg.ReceivedAt,
		AppliedAt:  app.AppliedAt,
	}
	if err := s.emitter.Emit(ctx, event); err != nil {
		s.sink.EmitError()
		log.Printf("scanner: emit event job=%s: %v", app.JobID, err)
	}
}
