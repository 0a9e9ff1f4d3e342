// Package analytics keeps rolling transition counters in Redis so a
// dashboard can chart pipeline activity without querying the ledger.
// Writes are best-effort: a failed increment never blocks delivery.
package analytics

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/OPKYEI/FunctionalJobAutomation/internal/domain"
)

// DefaultRetention is how long a counter bucket survives after its last
// increment.
const DefaultRetention = 90 * 24 * time.Hour

type RedisSink struct {
	client    *redis.Client
	window    time.Duration
	retention time.Duration
}

func NewRedisSink(client *redis.Client) *RedisSink {
	return &RedisSink{
		client:    client,
		window:    time.Hour,
		retention: DefaultRetention,
	}
}

// WithWindow sets the bucket granularity. Supported: 1m, 5m, 1h.
func (s *RedisSink) WithWindow(window time.Duration) *RedisSink {
	s.window = window
	return s
}

func (s *RedisSink) WithRetention(retention time.Duration) *RedisSink {
	s.retention = retention
	return s
}

// Record counts one promoted transition. Two keys are incremented: a
// per-status bucket for the transition target, and a per-company bucket
// so activity can be broken down by employer.
func (s *RedisSink) Record(ctx context.Context, event domain.StatusEvent) {
	bucket := truncateToBucket(event.ReceivedAt, s.window)

	statusKey := fmt.Sprintf("transitions:s:%s:%s", event.To, bucket)
	companyKey := fmt.Sprintf("transitions:c:%s:%s", event.Company, bucket)

	pipe := s.client.Pipeline()
	pipe.Incr(ctx, statusKey)
	pipe.Expire(ctx, statusKey, s.retention)
	pipe.Incr(ctx, companyKey)
	pipe.Expire(ctx, companyKey, s.retention)

	if _, err := pipe.Exec(ctx); err != nil {
		log.Printf("analytics: redis pipeline failed for job=%s: %v", event.JobID, err)
	}
}

func truncateToBucket(t time.Time, window time.Duration) string {
	t = t.UTC()
	switch window {
	case time.Minute:
		return t.Format("200601021504")
	case 5 * time.Minute:
		minute := (t.Minute() / 5) * 5
		return t.Format("2006010215") + fmt.Sprintf("%02d", minute)
	case time.Hour:
		return t.Format("2006010215")
	default:
		return t.Format("200601021504")
	}
}
