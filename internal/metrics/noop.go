package metrics

import "time"

// NoopSink is a no-op implementation of Sink.
// Used when metrics are disabled to avoid nil checks.
type NoopSink struct{}

// NewNoopSink returns a no-op metrics sink.
func NewNoopSink() *NoopSink {
	return &NoopSink{}
}

func (n *NoopSink) CycleStarted()                                                 {}
func (n *NoopSink) CycleCompleted(duration time.Duration, fetched int, err error) {}
func (n *NoopSink) MessageOutcome(outcome string)                                 {}
func (n *NoopSink) NotifyAttemptCompleted(statusClass string, d time.Duration)    {}
func (n *NoopSink) NotifyOutcome(outcome string)                                  {}
func (n *NoopSink) EventsInFlightIncr()                                           {}
func (n *NoopSink) EventsInFlightDecr()                                           {}
func (n *NoopSink) BufferSizeUpdate(size int)                                     {}
func (n *NoopSink) EmitError()                                                    {}
func (n *NoopSink) UnresolvedSignalsUpdate(count int)                             {}
func (n *NoopSink) LeaderStatusChanged(isLeader bool)                             {}
func (n *NoopSink) LeaderAcquired()                                               {}
func (n *NoopSink) LeaderLost(reason string)                                      {}

var _ Sink = (*NoopSink)(nil)
