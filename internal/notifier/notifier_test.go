package notifier

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/OPKYEI/FunctionalJobAutomation/internal/domain"
)

type fakeSender struct {
	mu       sync.Mutex
	results  []WebhookResult
	requests []WebhookRequest
}

func (s *fakeSender) Send(_ context.Context, req WebhookRequest) WebhookResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = append(s.requests, req)
	idx := len(s.requests) - 1
	if idx >= len(s.results) {
		idx = len(s.results) - 1
	}
	return s.results[idx]
}

func (s *fakeSender) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.requests)
}

type fakeAnalytics struct {
	mu     sync.Mutex
	events []domain.StatusEvent
}

func (a *fakeAnalytics) Record(_ context.Context, event domain.StatusEvent) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.events = append(a.events, event)
}

func event() domain.StatusEvent {
	return domain.StatusEvent{
		JobID:      "job-42",
		Company:    "Acme",
		Title:      "Engineer",
		From:       domain.StatusApplied,
		To:         domain.StatusViewed,
		Promoted:   true,
		Source:     "<m1@mail.test>",
		ReceivedAt: time.Date(2026, 3, 20, 9, 0, 0, 0, time.UTC),
	}
}

func fastNotifier(config Config, sender WebhookSender) *Notifier {
	n := New(config, sender)
	n.backoff = []time.Duration{0, time.Millisecond, time.Millisecond, time.Millisecond}
	return n
}

func TestNotifySuccessFirstAttempt(t *testing.T) {
	sender := &fakeSender{results: []WebhookResult{{StatusCode: 200}}}
	n := fastNotifier(Config{WebhookURL: "http://dash.test/hook", Secret: "s"}, sender)

	if err := n.Notify(context.Background(), event()); err != nil {
		t.Fatalf("Notify: %v", err)
	}
	if sender.calls() != 1 {
		t.Fatalf("calls = %d, want 1", sender.calls())
	}

	req := sender.requests[0]
	if req.Payload.JobID != "job-42" || req.Payload.To != "viewed" {
		t.Fatalf("payload = %+v", req.Payload)
	}
	if req.AttemptID == "" {
		t.Fatal("attempt id must be set")
	}
}

func TestNotifyRetriesRetryableFailures(t *testing.T) {
	sender := &fakeSender{results: []WebhookResult{
		{StatusCode: 500},
		{Error: errors.New("connection refused")},
		{StatusCode: 200},
	}}
	n := fastNotifier(Config{WebhookURL: "http://dash.test/hook"}, sender)

	if err := n.Notify(context.Background(), event()); err != nil {
		t.Fatalf("Notify: %v", err)
	}
	if sender.calls() != 3 {
		t.Fatalf("calls = %d, want 3", sender.calls())
	}
}

func TestNotifyAbandonsNonRetryableStatus(t *testing.T) {
	sender := &fakeSender{results: []WebhookResult{{StatusCode: 400}}}
	n := fastNotifier(Config{WebhookURL: "http://dash.test/hook"}, sender)

	if err := n.Notify(context.Background(), event()); err != nil {
		t.Fatalf("Notify: %v", err)
	}
	if sender.calls() != 1 {
		t.Fatalf("calls = %d, non-retryable must not retry", sender.calls())
	}
}

func TestNotifyGivesUpAfterMaxAttempts(t *testing.T) {
	sender := &fakeSender{results: []WebhookResult{{StatusCode: 503, Error: nil}}}
	n := fastNotifier(Config{WebhookURL: "http://dash.test/hook"}, sender)

	if err := n.Notify(context.Background(), event()); err != nil {
		// A 503 without a transport error yields no error value.
		t.Fatalf("Notify: %v", err)
	}
	if sender.calls() != maxAttempts {
		t.Fatalf("calls = %d, want %d", sender.calls(), maxAttempts)
	}
}

func TestNotifyWritesAnalyticsBeforeDelivery(t *testing.T) {
	sender := &fakeSender{results: []WebhookResult{{StatusCode: 400}}}
	analytics := &fakeAnalytics{}
	n := fastNotifier(Config{WebhookURL: "http://dash.test/hook"}, sender).WithAnalytics(analytics)

	if err := n.Notify(context.Background(), event()); err != nil {
		t.Fatalf("Notify: %v", err)
	}
	if len(analytics.events) != 1 {
		t.Fatalf("analytics events = %d, must record regardless of delivery outcome", len(analytics.events))
	}
}

func TestNotifyWithoutWebhookOnlyRecordsAnalytics(t *testing.T) {
	sender := &fakeSender{results: []WebhookResult{{StatusCode: 200}}}
	analytics := &fakeAnalytics{}
	n := fastNotifier(Config{}, sender).WithAnalytics(analytics)

	if err := n.Notify(context.Background(), event()); err != nil {
		t.Fatalf("Notify: %v", err)
	}
	if sender.calls() != 0 {
		t.Fatal("no webhook configured: sender must not be called")
	}
	if len(analytics.events) != 1 {
		t.Fatal("analytics must still record the event")
	}
}

func TestRunDrainsBufferedEventsOnShutdown(t *testing.T) {
	sender := &fakeSender{results: []WebhookResult{{StatusCode: 200}}}
	n := fastNotifier(Config{WebhookURL: "http://dash.test/hook", DrainTimeout: 2 * time.Second}, sender)

	ch := make(chan domain.StatusEvent, 4)
	ch <- event()
	ch <- event()
	ch <- event()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan struct{})
	go func() {
		n.Run(ctx, ch)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("Run did not return after drain")
	}
	if sender.calls() != 3 {
		t.Fatalf("calls = %d, want all buffered events drained", sender.calls())
	}
}
