package prometheus

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/Swind/go-forkjoin/core"
	prom "github.com/prometheus/client_golang/prometheus"
)

// ExporterOptions controls collector configuration.
type ExporterOptions struct {
	DurationBuckets []float64
}

// MetricsExporter adapts core.Metrics to Prometheus collectors.
type MetricsExporter struct {
	stealsTotal          *prom.CounterVec
	stealLevel           *prom.HistogramVec
	mailboxHandoffsTotal *prom.CounterVec
	dispatcherEvents     *prom.CounterVec
	taskPanicTotal       *prom.CounterVec
	runDurationSeconds   *prom.HistogramVec
}

var _ core.Metrics = (*MetricsExporter)(nil)

// NewMetricsExporter creates and registers Prometheus collectors for core.Metrics.
func NewMetricsExporter(namespace string, reg prom.Registerer, opts ExporterOptions) (*MetricsExporter, error) {
	if namespace == "" {
		namespace = "forkjoin"
	}
	if reg == nil {
		reg = prom.DefaultRegisterer
	}
	buckets := opts.DurationBuckets
	if len(buckets) == 0 {
		buckets = prom.ExponentialBuckets(1e-4, 4, 10)
	}

	stealsVec := prom.NewCounterVec(prom.CounterOpts{
		Namespace: namespace,
		Name:      "steals_total",
		Help:      "Total number of successful steals per thief and victim worker.",
	}, []string{"scheduler", "thief", "victim"})
	levelVec := prom.NewHistogramVec(prom.HistogramOpts{
		Namespace: namespace,
		Name:      "steal_level",
		Help:      "Tree level of stolen tasks.",
		Buckets:   prom.LinearBuckets(0, 2, 12),
	}, []string{"scheduler"})
	handoffVec := prom.NewCounterVec(prom.CounterOpts{
		Namespace: namespace,
		Name:      "mailbox_handoffs_total",
		Help:      "Total number of tasks migrated by the dispatcher.",
	}, []string{"scheduler", "from", "to"})
	eventVec := prom.NewCounterVec(prom.CounterOpts{
		Namespace: namespace,
		Name:      "dispatcher_events_total",
		Help:      "Total number of dispatcher decisions by event.",
	}, []string{"scheduler", "event"})
	panicVec := prom.NewCounterVec(prom.CounterOpts{
		Namespace: namespace,
		Name:      "task_panic_total",
		Help:      "Total number of task panics.",
	}, []string{"scheduler", "worker"})
	durationVec := prom.NewHistogramVec(prom.HistogramOpts{
		Namespace: namespace,
		Name:      "run_duration_seconds",
		Help:      "Duration of complete root task trees in seconds.",
		Buckets:   buckets,
	}, []string{"scheduler"})

	var err error
	if stealsVec, err = registerCollector(reg, stealsVec); err != nil {
		return nil, err
	}
	if levelVec, err = registerCollector(reg, levelVec); err != nil {
		return nil, err
	}
	if handoffVec, err = registerCollector(reg, handoffVec); err != nil {
		return nil, err
	}
	if eventVec, err = registerCollector(reg, eventVec); err != nil {
		return nil, err
	}
	if panicVec, err = registerCollector(reg, panicVec); err != nil {
		return nil, err
	}
	if durationVec, err = registerCollector(reg, durationVec); err != nil {
		return nil, err
	}

	return &MetricsExporter{
		stealsTotal:          stealsVec,
		stealLevel:           levelVec,
		mailboxHandoffsTotal: handoffVec,
		dispatcherEvents:     eventVec,
		taskPanicTotal:       panicVec,
		runDurationSeconds:   durationVec,
	}, nil
}

// RecordSteal records a successful steal.
func (m *MetricsExporter) RecordSteal(schedulerID string, thief, victim, level int) {
	if m == nil {
		return
	}
	id := normalizeLabel(schedulerID, "unknown")
	m.stealsTotal.WithLabelValues(id, workerLabel(thief), workerLabel(victim)).Inc()
	m.stealLevel.WithLabelValues(id).Observe(float64(level))
}

// RecordMailboxHandoff records a task migrated by the dispatcher.
func (m *MetricsExporter) RecordMailboxHandoff(schedulerID string, from, to, level int) {
	if m == nil {
		return
	}
	m.mailboxHandoffsTotal.WithLabelValues(normalizeLabel(schedulerID, "unknown"), workerLabel(from), workerLabel(to)).Inc()
}

// RecordDispatcherEvent records a dispatcher decision.
func (m *MetricsExporter) RecordDispatcherEvent(schedulerID string, event core.DispatcherEvent) {
	if m == nil {
		return
	}
	m.dispatcherEvents.WithLabelValues(normalizeLabel(schedulerID, "unknown"), normalizeLabel(string(event), "unknown")).Inc()
}

// RecordTaskPanic records task panic events.
func (m *MetricsExporter) RecordTaskPanic(schedulerID string, workerID int, panicInfo any) {
	if m == nil {
		return
	}
	m.taskPanicTotal.WithLabelValues(normalizeLabel(schedulerID, "unknown"), workerLabel(workerID)).Inc()
}

// RecordRunDuration records how long a root task tree took.
func (m *MetricsExporter) RecordRunDuration(schedulerID string, duration time.Duration) {
	if m == nil {
		return
	}
	m.runDurationSeconds.WithLabelValues(normalizeLabel(schedulerID, "unknown")).Observe(duration.Seconds())
}

func normalizeLabel(v string, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

func workerLabel(id int) string {
	if id < 0 {
		return "none"
	}
	return strconv.Itoa(id)
}

func registerCollector[T prom.Collector](reg prom.Registerer, collector T) (T, error) {
	err := reg.Register(collector)
	if err == nil {
		return collector, nil
	}

	var alreadyRegisteredErr prom.AlreadyRegisteredError
	if errors.As(err, &alreadyRegisteredErr) {
		existing, ok := alreadyRegisteredErr.ExistingCollector.(T)
		if !ok {
			return collector, fmt.Errorf("collector type mismatch for %T", collector)
		}
		return existing, nil
	}

	return collector, err
}
