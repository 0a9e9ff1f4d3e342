// Package notifier consumes status events from the bus and delivers
// them to the configured dashboard webhook, with retries and a
// best-effort analytics side channel.
package notifier

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/OPKYEI/FunctionalJobAutomation/internal/domain"
	"github.com/OPKYEI/FunctionalJobAutomation/internal/metrics"
)

var defaultBackoff = []time.Duration{
	0,
	15 * time.Second,
	time.Minute,
	5 * time.Minute,
}

const maxAttempts = 4

type WebhookSender interface {
	Send(ctx context.Context, req WebhookRequest) WebhookResult
}

type AnalyticsSink interface {
	Record(ctx context.Context, event domain.StatusEvent)
}

type WebhookRequest struct {
	URL       string
	Secret    string
	Timeout   time.Duration
	Payload   WebhookPayload
	AttemptID string
}

type WebhookPayload struct {
	JobID      string `json:"job_id"`
	Company    string `json:"company"`
	Title      string `json:"title"`
	From       string `json:"from_status"`
	To         string `json:"to_status"`
	Source     string `json:"source_message_id"`
	ReceivedAt string `json:"received_at"`
}

type WebhookResult struct {
	StatusCode int
	Error      error
	Duration   time.Duration
}

func (r WebhookResult) IsSuccess() bool {
	return r.Error == nil && r.StatusCode >= 200 && r.StatusCode < 300
}

func (r WebhookResult) IsRetryable() bool {
	if r.Error != nil {
		return true
	}
	if r.StatusCode == 429 {
		return true
	}
	return r.StatusCode >= 500
}

type Config struct {
	// WebhookURL may be empty: events are still counted in analytics,
	// only the webhook delivery is skipped.
	WebhookURL   string
	Secret       string
	Timeout      time.Duration
	DrainTimeout time.Duration
}

type Notifier struct {
	config    Config
	sender    WebhookSender
	analytics AnalyticsSink // optional, nil = disabled
	sink      metrics.Sink
	backoff   []time.Duration
}

func New(config Config, sender WebhookSender) *Notifier {
	if config.DrainTimeout == 0 {
		config.DrainTimeout = 30 * time.Second
	}
	return &Notifier{
		config:  config,
		sender:  sender,
		sink:    metrics.NewNoopSink(),
		backoff: defaultBackoff,
	}
}

func (n *Notifier) WithAnalytics(sink AnalyticsSink) *Notifier {
	n.analytics = sink
	return n
}

func (n *Notifier) WithMetrics(sink metrics.Sink) *Notifier {
	n.sink = sink
	return n
}

// Run processes events from the channel until context is cancelled.
// After cancellation, it drains remaining buffered events with a timeout.
func (n *Notifier) Run(ctx context.Context, ch <-chan domain.StatusEvent) {
	for {
		select {
		case <-ctx.Done():
			n.drain(ch)
			return
		case event := <-ch:
			if err := n.Notify(ctx, event); err != nil {
				log.Printf("notifier: error: %v", err)
			}
		}
	}
}

// drain processes remaining events in the channel buffer after shutdown.
// Uses a background context since the main context is already cancelled.
func (n *Notifier) drain(ch <-chan domain.StatusEvent) {
	drainCtx, cancel := context.WithTimeout(context.Background(), n.config.DrainTimeout)
	defer cancel()

	count := 0
	for {
		select {
		case <-drainCtx.Done():
			if count > 0 {
				log.Printf("notifier: drain timeout, processed %d events", count)
			}
			return
		case event, ok := <-ch:
			if !ok {
				log.Printf("notifier: drain complete, processed %d events", count)
				return
			}
			if err := n.Notify(drainCtx, event); err != nil {
				log.Printf("notifier: drain error: %v", err)
			}
			count++
		default:
			if count > 0 {
				log.Printf("notifier: drain complete, processed %d events", count)
			}
			return
		}
	}
}

// Notify delivers one status event. Analytics is written first so the
// counters reflect every transition even when delivery fails.
func (n *Notifier) Notify(ctx context.Context, event domain.StatusEvent) error {
	n.sink.EventsInFlightIncr()
	defer n.sink.EventsInFlightDecr()

	if n.analytics != nil {
		n.analytics.Record(ctx, event)
	}

	if n.config.WebhookURL == "" {
		return nil
	}

	req := WebhookRequest{
		URL:     n.config.WebhookURL,
		Secret:  n.config.Secret,
		Timeout: n.config.Timeout,
		Payload: WebhookPayload{
			JobID:      event.JobID,
			Company:    event.Company,
			Title:      event.Title,
			From:       string(event.From),
			To:         string(event.To),
			Source:     event.Source,
			ReceivedAt: event.ReceivedAt.UTC().Format(time.RFC3339),
		},
	}

	var lastResult WebhookResult

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if attempt > 1 {
			idx := attempt - 1
			if idx >= len(n.backoff) {
				idx = len(n.backoff) - 1
			}
			backoff := n.backoff[idx]

			log.Printf("notifier: job=%s attempt=%d backoff=%s", event.JobID, attempt, backoff)

			timer := time.NewTimer(backoff)
			select {
			case <-ctx.Done():
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				return ctx.Err()
			case <-timer.C:
			}
		}

		req.AttemptID = uuid.New().String()

		result := n.sender.Send(ctx, req)
		lastResult = result

		n.sink.NotifyAttemptCompleted(metrics.ClassifyStatus(result.StatusCode, result.Error), result.Duration)

		if result.IsSuccess() {
			log.Printf("notifier: job=%s %s->%s delivered attempt=%d", event.JobID, event.From, event.To, attempt)
			n.sink.NotifyOutcome(metrics.OutcomeSuccess)
			return nil
		}

		if !result.IsRetryable() {
			log.Printf("notifier: job=%s non-retryable status=%d", event.JobID, result.StatusCode)
			n.sink.NotifyOutcome(metrics.OutcomeAbandoned)
			return nil
		}

		log.Printf("notifier: job=%s attempt=%d failed status=%d err=%v", event.JobID, attempt, result.StatusCode, result.Error)
	}

	log.Printf("notifier: job=%s failed status=%d err=%v", event.JobID, lastResult.StatusCode, lastResult.Error)
	n.sink.NotifyOutcome(metrics.OutcomeFailed)
	return lastResult.Error
}
