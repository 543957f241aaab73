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
	// Scheduler metrics
	timersFiredTotal      prometheus.Counter
	scheduleReplacesTotal prometheus.Counter
	scheduledTasks        prometheus.Gauge

	// Dispatcher metrics
	occurrencesTotal      *prometheus.CounterVec
	candidatesTotal       prometheus.Counter
	candidateResultsTotal *prometheus.CounterVec
	outcomeDuration       prometheus.Histogram
	outcomeErrorsTotal    *prometheus.CounterVec
	occurrencesInFlight   prometheus.Gauge

	// Queue metrics
	bufferSize      prometheus.Gauge
	emitErrorsTotal prometheus.Counter
}

// NewPrometheusSink creates a new Prometheus metrics sink.
// If registration fails, it logs a warning and returns a functional sink.
// Metrics that fail to register will be replaced with no-op collectors.
func NewPrometheusSink(reg prometheus.Registerer) *PrometheusSink {
	s := &PrometheusSink{}
	s.initSchedulerMetrics(reg)
	s.initDispatcherMetrics(reg)
	s.initQueueMetrics(reg)
	return s
}

func (s *PrometheusSink) initSchedulerMetrics(reg prometheus.Registerer) {
	s.timersFiredTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "vtftk_scheduler_timers_fired_total",
		Help: "Total number of timer occurrences emitted.",
	})
	s.scheduleReplacesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "vtftk_scheduler_schedule_replaces_total",
		Help: "Total number of wholesale schedule replacements.",
	})
	s.scheduledTasks = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "vtftk_scheduler_tasks",
		Help: "Number of timer tasks currently scheduled.",
	})

	s.register(reg, s.timersFiredTotal, "vtftk_scheduler_timers_fired_total")
	s.register(reg, s.scheduleReplacesTotal, "vtftk_scheduler_schedule_replaces_total")
	s.register(reg, s.scheduledTasks, "vtftk_scheduler_tasks")
}

func (s *PrometheusSink) initDispatcherMetrics(reg prometheus.Registerer) {
	s.occurrencesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "vtftk_dispatcher_occurrences_total",
		Help: "Total number of occurrences received, by kind.",
	}, []string{"kind"})

	s.candidatesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "vtftk_dispatcher_candidates_total",
		Help: "Total number of automation candidates matched.",
	})

	s.candidateResultsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "vtftk_dispatcher_candidate_results_total",
		Help: "Total number of per-candidate results.",
	}, []string{"result"})

	s.outcomeDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "vtftk_dispatcher_outcome_duration_seconds",
		Help:    "Outcome resolution latency in seconds (includes configured delay).",
		Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30},
	})

	s.outcomeErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "vtftk_dispatcher_outcome_errors_total",
		Help: "Total number of failed outcome resolutions, by outcome type.",
	}, []string{"type"})

	s.occurrencesInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "vtftk_dispatcher_occurrences_in_flight",
		Help: "Number of occurrences currently being processed.",
	})

	s.register(reg, s.occurrencesTotal, "vtftk_dispatcher_occurrences_total")
	s.register(reg, s.candidatesTotal, "vtftk_dispatcher_candidates_total")
	s.register(reg, s.candidateResultsTotal, "vtftk_dispatcher_candidate_results_total")
	s.register(reg, s.outcomeDuration, "vtftk_dispatcher_outcome_duration_seconds")
	s.register(reg, s.outcomeErrorsTotal, "vtftk_dispatcher_outcome_errors_total")
	s.register(reg, s.occurrencesInFlight, "vtftk_dispatcher_occurrences_in_flight")
}

func (s *PrometheusSink) initQueueMetrics(reg prometheus.Registerer) {
	s.bufferSize = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "vtftk_queue_buffer_size",
		Help: "Current number of occurrences in the dispatch queue buffer.",
	})
	s.emitErrorsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "vtftk_queue_emit_errors_total",
		Help: "Total number of emit errors (buffer full).",
	})

	s.register(reg, s.bufferSize, "vtftk_queue_buffer_size")
	s.register(reg, s.emitErrorsTotal, "vtftk_queue_emit_errors_total")
}

// register attempts to register a collector, logging any errors without propagating them.
func (s *PrometheusSink) register(reg prometheus.Registerer, c prometheus.Collector, name string) {
	if err := reg.Register(c); err != nil {
		log.Printf("metrics: failed to register %s: %v", name, err)
	}
}

// Scheduler metrics implementation

func (s *PrometheusSink) TimerFired() {
	s.timersFiredTotal.Inc()
}

func (s *PrometheusSink) ScheduleReplaced(taskCount int) {
	s.scheduleReplacesTotal.Inc()
	s.scheduledTasks.Set(float64(taskCount))
}

// Dispatcher metrics implementation

func (s *PrometheusSink) OccurrenceReceived(kind string) {
	s.occurrencesTotal.WithLabelValues(kind).Inc()
}

func (s *PrometheusSink) CandidatesMatched(count int) {
	s.candidatesTotal.Add(float64(count))
}

func (s *PrometheusSink) CandidateResult(result string) {
	s.candidateResultsTotal.WithLabelValues(result).Inc()
}

func (s *PrometheusSink) OutcomeCompleted(outcomeType string, duration time.Duration, err error) {
	s.outcomeDuration.Observe(duration.Seconds())
	if err != nil {
		s.outcomeErrorsTotal.WithLabelValues(outcomeType).Inc()
	}
}

func (s *PrometheusSink) OccurrencesInFlightIncr() {
	s.occurrencesInFlight.Inc()
}

func (s *PrometheusSink) OccurrencesInFlightDecr() {
	s.occurrencesInFlight.Dec()
}

// Queue metrics implementation

func (s *PrometheusSink) BufferSizeUpdate(size int) {
	s.bufferSize.Set(float64(size))
}

func (s *PrometheusSink) EmitError() {
	s.emitErrorsTotal.Inc()
}
