package prometheus

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/Swind/go-forkjoin/core"
	prom "github.com/prometheus/client_golang/prometheus"
)

// SchedulerSnapshotProvider provides current scheduler stats snapshots.
// *core.Scheduler satisfies it for every task type.
type SchedulerSnapshotProvider interface {
	Stats() core.SchedulerStats
}

// SnapshotPoller periodically exports scheduler Stats() snapshots into Prometheus gauges.
type SnapshotPoller struct {
	interval time.Duration

	schedulersMu sync.RWMutex
	schedulers   map[string]SchedulerSnapshotProvider

	schedulerWorkers *prom.GaugeVec
	schedulerRunning *prom.GaugeVec
	schedulerInRun   *prom.GaugeVec
	schedulerRuns    *prom.GaugeVec

	workerLoad          *prom.GaugeVec
	workerPending       *prom.GaugeVec
	workerExecuted      *prom.GaugeVec
	workerStolen        *prom.GaugeVec
	workerStealAttempts *prom.GaugeVec
	workerMailed        *prom.GaugeVec
	workerChainHeight   *prom.GaugeVec

	dispatcherEvents *prom.GaugeVec

	stateMu sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewSnapshotPoller creates a snapshot poller and registers its collectors.
func NewSnapshotPoller(reg prom.Registerer, interval time.Duration) (*SnapshotPoller, error) {
	if reg == nil {
		reg = prom.DefaultRegisterer
	}
	if interval <= 0 {
		interval = time.Second
	}

	gauge := func(name, help string, labels ...string) *prom.GaugeVec {
		return prom.NewGaugeVec(prom.GaugeOpts{
			Namespace: "forkjoin",
			Name:      name,
			Help:      help,
		}, labels)
	}
	workerLabels := []string{"scheduler", "worker", "node"}

	p := &SnapshotPoller{
		interval:   interval,
		schedulers: make(map[string]SchedulerSnapshotProvider),

		schedulerWorkers: gauge("scheduler_workers", "Worker count per scheduler.", "scheduler"),
		schedulerRunning: gauge("scheduler_running", "Scheduler running state (1=running, 0=stopped).", "scheduler"),
		schedulerInRun:   gauge("scheduler_in_run", "Whether a root tree is executing (1=yes, 0=no).", "scheduler"),
		schedulerRuns:    gauge("scheduler_runs_total", "Completed runs snapshot.", "scheduler"),

		workerLoad:          gauge("worker_load", "Weighted queued work per worker.", workerLabels...),
		workerPending:       gauge("worker_pending", "Published tasks in the worker's deque chain.", workerLabels...),
		workerExecuted:      gauge("worker_executed_total", "Executed tasks snapshot.", workerLabels...),
		workerStolen:        gauge("worker_stolen_total", "Successful steals snapshot.", workerLabels...),
		workerStealAttempts: gauge("worker_steal_attempts_total", "Steal attempts snapshot.", workerLabels...),
		workerMailed:        gauge("worker_mailed_total", "Tasks received through the mailbox snapshot.", workerLabels...),
		workerChainHeight:   gauge("worker_chain_height", "Allocated deque nodes per worker.", workerLabels...),

		dispatcherEvents: gauge("dispatcher_events", "Dispatcher decision counts snapshot.", "scheduler", "event"),
	}

	for _, vec := range []**prom.GaugeVec{
		&p.schedulerWorkers, &p.schedulerRunning, &p.schedulerInRun, &p.schedulerRuns,
		&p.workerLoad, &p.workerPending, &p.workerExecuted, &p.workerStolen,
		&p.workerStealAttempts, &p.workerMailed, &p.workerChainHeight,
		&p.dispatcherEvents,
	} {
		registered, err := registerCollector(reg, *vec)
		if err != nil {
			return nil, err
		}
		*vec = registered
	}
	return p, nil
}

// AddScheduler adds or replaces a scheduler snapshot provider by name.
func (p *SnapshotPoller) AddScheduler(name string, provider SchedulerSnapshotProvider) {
	if p == nil || provider == nil {
		return
	}
	name = normalizeLabel(name, "scheduler")
	p.schedulersMu.Lock()
	p.schedulers[name] = provider
	p.schedulersMu.Unlock()
}

// Start begins periodic polling; repeated calls are no-ops.
func (p *SnapshotPoller) Start(ctx context.Context) {
	if p == nil {
		return
	}

	p.stateMu.Lock()
	if p.running {
		p.stateMu.Unlock()
		return
	}
	pollCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.done = make(chan struct{})
	p.running = true
	p.stateMu.Unlock()

	go p.loop(pollCtx)
}

// Stop stops periodic polling; repeated calls are safe.
func (p *SnapshotPoller) Stop() {
	if p == nil {
		return
	}

	p.stateMu.Lock()
	if !p.running {
		p.stateMu.Unlock()
		return
	}
	cancel := p.cancel
	done := p.done
	p.stateMu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}

	p.stateMu.Lock()
	p.running = false
	p.cancel = nil
	p.done = nil
	p.stateMu.Unlock()
}

func (p *SnapshotPoller) loop(ctx context.Context) {
	defer close(p.done)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.collectOnce()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.collectOnce()
		}
	}
}

func (p *SnapshotPoller) collectOnce() {
	p.schedulersMu.RLock()
	defer p.schedulersMu.RUnlock()

	for name, provider := range p.schedulers {
		stats := provider.Stats()
		p.schedulerWorkers.WithLabelValues(name).Set(float64(stats.Workers))
		p.schedulerRunning.WithLabelValues(name).Set(boolGauge(stats.Running))
		p.schedulerInRun.WithLabelValues(name).Set(boolGauge(stats.InRun))
		p.schedulerRuns.WithLabelValues(name).Set(float64(stats.Runs))

		for _, w := range stats.WorkerSet {
			labels := []string{name, strconv.Itoa(w.ID), strconv.Itoa(w.Node)}
			p.workerLoad.WithLabelValues(labels...).Set(float64(w.Load))
			p.workerPending.WithLabelValues(labels...).Set(float64(w.Pending))
			p.workerExecuted.WithLabelValues(labels...).Set(float64(w.Executed))
			p.workerStolen.WithLabelValues(labels...).Set(float64(w.Stolen))
			p.workerStealAttempts.WithLabelValues(labels...).Set(float64(w.StealAttempts))
			p.workerMailed.WithLabelValues(labels...).Set(float64(w.Mailed))
			p.workerChainHeight.WithLabelValues(labels...).Set(float64(w.ChainHeight))
		}

		d := stats.Dispatcher
		if !d.Enabled {
			continue
		}
		for event, v := range map[core.DispatcherEvent]uint64{
			core.EventSession:        d.Sessions,
			core.EventRampUpMail:     d.RampUpMails,
			core.EventRampUpTimeout:  d.RampUpTimeouts,
			core.EventBalanceMail:    d.BalanceMails,
			core.EventNoIdleWorker:   d.NoIdleWorker,
			core.EventNoLoadedWorker: d.NoLoadedWorker,
			core.EventStealMiss:      d.StealMisses,
		} {
			p.dispatcherEvents.WithLabelValues(name, string(event)).Set(float64(v))
		}
	}
}

func boolGauge(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
