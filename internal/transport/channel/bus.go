// Package channel is the in-process transport between the scanner and
// the notifier.
package channel

import (
	"context"
	"errors"
	"time"

	"github.com/OPKYEI/FunctionalJobAutomation/internal/domain"
)

// ErrBufferFull is returned when an emit cannot complete within the
// emit timeout because the notifier is not keeping up.
var ErrBufferFull = errors.New("event bus buffer full")

// DefaultEmitTimeout bounds how long Emit blocks on a full buffer.
const DefaultEmitTimeout = 5 * time.Second

// MetricsSink receives bus utilization metrics.
// All methods must be non-blocking and fire-and-forget.
type MetricsSink interface {
	BufferSizeUpdate(size int)
	EmitError()
}

type Option func(*EventBus)

func WithEmitTimeout(d time.Duration) Option {
	return func(b *EventBus) {
		b.emitTimeout = d
	}
}

func WithMetrics(sink MetricsSink) Option {
	return func(b *EventBus) {
		b.metrics = sink
	}
}

type EventBus struct {
	ch          chan domain.StatusEvent
	emitTimeout time.Duration
	metrics     MetricsSink // optional, nil = disabled
}

func NewEventBus(buffer int, opts ...Option) *EventBus {
	b := &EventBus{
		ch:          make(chan domain.StatusEvent, buffer),
		emitTimeout: DefaultEmitTimeout,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Emit delivers an event to the bus. It blocks up to the emit timeout
// when the buffer is full, then fails with ErrBufferFull rather than
// stalling a scan cycle indefinitely.
func (b *EventBus) Emit(ctx context.Context, event domain.StatusEvent) error {
	timer := time.NewTimer(b.emitTimeout)
	defer timer.Stop()

	select {
	case b.ch <- event:
		if b.metrics != nil {
			b.metrics.BufferSizeUpdate(len(b.ch))
		}
		return nil
	case <-timer.C:
		if b.metrics != nil {
			b.metrics.EmitError()
		}
		return ErrBufferFull
	case <-ctx.Done():
		if b.metrics != nil {
			b.metrics.EmitError()
		}
		return ctx.Err()
	}
}

func (b *EventBus) Channel() <-chan domain.StatusEvent {
	return b.ch
}
