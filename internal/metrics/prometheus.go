package metrics

import (
	"log"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusSink implements Sink using Prometheus client library.
// All methods are non-blocking and fire-and-forget.
// Registration errors are logged but never propagated.
type PrometheusSink struct {
	// Scan cycle metrics
	cyclesTotal      prometheus.Counter
	cycleErrorsTotal prometheus.Counter
	messagesTotal    prometheus.Counter
	cycleDuration    prometheus.Histogram
	messageOutcomes  *prometheus.CounterVec

	// Notifier metrics
	notifyAttemptsTotal *prometheus.CounterVec
	notifyOutcomesTotal *prometheus.CounterVec
	webhookDuration     prometheus.Histogram
	eventsInFlight      prometheus.Gauge

	// EventBus metrics
	bufferSize      prometheus.Gauge
	emitErrorsTotal prometheus.Counter

	// Review queue metrics
	unresolvedSignals prometheus.Gauge

	// Leader election metrics
	leaderStatus        prometheus.Gauge
	leaderAcquiredTotal prometheus.Counter
	leaderLostTotal     *prometheus.CounterVec
}

// NewPrometheusSink creates a new Prometheus metrics sink.
// If registration fails, it logs a warning and returns a functional sink.
func NewPrometheusSink(reg prometheus.Registerer) *PrometheusSink {
	s := &PrometheusSink{}
	s.initScanMetrics(reg)
	s.initNotifierMetrics(reg)
	s.initEventBusMetrics(reg)
	s.initLeaderMetrics(reg)
	return s
}

func (s *PrometheusSink) initScanMetrics(reg prometheus.Registerer) {
	s.cyclesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "jobtracker_scan_cycles_total",
		Help: "Total number of scan cycles started.",
	})
	s.cycleErrorsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "jobtracker_scan_cycle_errors_total",
		Help: "Total number of scan cycles that failed.",
	})
	s.messagesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "jobtracker_scan_messages_fetched_total",
		Help: "Total number of mailbox messages fetched.",
	})
	s.cycleDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "jobtracker_scan_cycle_duration_seconds",
		Help:    "Duration of each scan cycle in seconds.",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
	})
	s.messageOutcomes = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "jobtracker_scan_message_outcomes_total",
		Help: "Per-message processing outcomes.",
	}, []string{"outcome"})

	s.register(reg, s.cyclesTotal, "jobtracker_scan_cycles_total")
	s.register(reg, s.cycleErrorsTotal, "jobtracker_scan_cycle_errors_total")
	s.register(reg, s.messagesTotal, "jobtracker_scan_messages_fetched_total")
	s.register(reg, s.cycleDuration, "jobtracker_scan_cycle_duration_seconds")
	s.register(reg, s.messageOutcomes, "jobtracker_scan_message_outcomes_total")
}

func (s *PrometheusSink) initNotifierMetrics(reg prometheus.Registerer) {
	s.notifyAttemptsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "jobtracker_notify_attempts_total",
		Help: "Total number of webhook notification attempts.",
	}, []string{"status_class"})

	s.notifyOutcomesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "jobtracker_notify_outcomes_total",
		Help: "Total number of final notification outcomes per event.",
	}, []string{"outcome"})

	s.webhookDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "jobtracker_notify_webhook_duration_seconds",
		Help:    "Webhook request latency in seconds.",
		Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
	})

	s.eventsInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "jobtracker_notify_events_in_flight",
		Help: "Number of status events currently being delivered.",
	})

	s.register(reg, s.notifyAttemptsTotal, "jobtracker_notify_attempts_total")
	s.register(reg, s.notifyOutcomesTotal, "jobtracker_notify_outcomes_total")
	s.register(reg, s.webhookDuration, "jobtracker_notify_webhook_duration_seconds")
	s.register(reg, s.eventsInFlight, "jobtracker_notify_events_in_flight")
}

func (s *PrometheusSink) initEventBusMetrics(reg prometheus.Registerer) {
	s.bufferSize = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "jobtracker_eventbus_buffer_size",
		Help: "Current number of events in the event bus buffer.",
	})
	s.emitErrorsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "jobtracker_eventbus_emit_errors_total",
		Help: "Total number of emit errors (buffer full).",
	})
	s.unresolvedSignals = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "jobtracker_review_unresolved_signals",
		Help: "Number of review signals awaiting manual resolution.",
	})

	s.register(reg, s.bufferSize, "jobtracker_eventbus_buffer_size")
	s.register(reg, s.emitErrorsTotal, "jobtracker_eventbus_emit_errors_total")
	s.register(reg, s.unresolvedSignals, "jobtracker_review_unresolved_signals")
}

func (s *PrometheusSink) initLeaderMetrics(reg prometheus.Registerer) {
	s.leaderStatus = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "jobtracker_leader_status",
		Help: "1 if this instance is the leader, 0 otherwise.",
	})
	s.leaderAcquiredTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "jobtracker_leader_acquired_total",
		Help: "Total number of times leadership was acquired.",
	})
	s.leaderLostTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "jobtracker_leader_lost_total",
		Help: "Total number of times leadership was lost, by reason.",
	}, []string{"reason"})

	s.register(reg, s.leaderStatus, "jobtracker_leader_status")
	s.register(reg, s.leaderAcquiredTotal, "jobtracker_leader_acquired_total")
	s.register(reg, s.leaderLostTotal, "jobtracker_leader_lost_total")
}

// register attempts to register a collector, logging any errors without propagating them.
func (s *PrometheusSink) register(reg prometheus.Registerer, c prometheus.Collector, name string) {
	if err := reg.Register(c); err != nil {
		log.Printf("metrics: failed to register %s: %v", name, err)
	}
}

// Scan cycle metrics implementation

func (s *PrometheusSink) CycleStarted() {
	s.cyclesTotal.Inc()
}

func (s *PrometheusSink) CycleCompleted(duration time.Duration, fetched int, err error) {
	s.cycleDuration.Observe(duration.Seconds())
	s.messagesTotal.Add(float64(fetched))
	if err != nil {
		s.cycleErrorsTotal.Inc()
	}
}

func (s *PrometheusSink) MessageOutcome(outcome string) {
	s.messageOutcomes.WithLabelValues(outcome).Inc()
}

// Notifier metrics implementation

func (s *PrometheusSink) NotifyAttemptCompleted(statusClass string, duration time.Duration) {
	s.notifyAttemptsTotal.WithLabelValues(statusClass).Inc()
	s.webhookDuration.Observe(duration.Seconds())
}

func (s *PrometheusSink) NotifyOutcome(outcome string) {
	s.notifyOutcomesTotal.WithLabelValues(outcome).Inc()
}

func (s *PrometheusSink) EventsInFlightIncr() {
	s.eventsInFlight.Inc()
}

func (s *PrometheusSink) EventsInFlightDecr() {
	s.eventsInFlight.Dec()
}

// EventBus metrics implementation

func (s *PrometheusSink) BufferSizeUpdate(size int) {
	s.bufferSize.Set(float64(size))
}

func (s *PrometheusSink) EmitError() {
	s.emitErrorsTotal.Inc()
}

// Review queue metrics implementation

func (s *PrometheusSink) UnresolvedSignalsUpdate(count int) {
	s.unresolvedSignals.Set(float64(count))
}

// Leader election metrics implementation

func (s *PrometheusSink) LeaderStatusChanged(isLeader bool) {
	if isLeader {
		s.leaderStatus.Set(1)
	} else {
		s.leaderStatus.Set(0)
	}
}

func (s *PrometheusSink) LeaderAcquired() {
	s.leaderAcquiredTotal.Inc()
}

func (s *PrometheusSink) LeaderLost(reason string) {
	s.leaderLostTotal.WithLabelValues(reason).Inc()
}

var _ Sink = (*PrometheusSink)(nil)
