package core

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

var (
	// ErrNotStarted is returned by Run before Start.
	ErrNotStarted = errors.New("forkjoin: scheduler not started")
	// ErrStopped is returned once Stop was called.
	ErrStopped = errors.New("forkjoin: scheduler stopped")
)

const (
	stateCreated int32 = iota
	stateRunning
	stateStopping
	stateStopped
)

// engine is the part of the scheduler shared by workers and the
// dispatcher. It only depends on the task value type.
type engine[T any] struct {
	id    string
	cfg   SchedulerConfig
	topo  *Topology
	graph *VictimGraph
	model loadModel
	pin   bool
	exec  func(t *T, f *Frame[T])

	workers    []*worker[T]
	dispatcher *dispatcher[T]

	logger       Logger
	panicHandler PanicHandler
	metrics      Metrics

	// halted stops the background loops; it is set once the dispatcher is
	// gone so no task can be mailed to an exited worker.
	halted atomic.Bool
	inRun  atomic.Bool
}

// Scheduler runs fork-join task trees of T on a fixed set of pinned
// workers. Create it with NewScheduler, bring workers up with Start, then
// call Run once per root task.
type Scheduler[T any, P Task[T]] struct {
	eng     *engine[T]
	history *runHistory

	state  atomic.Int32
	lifeMu sync.Mutex
	cancel context.CancelFunc
	group  *errgroup.Group

	// runMu serializes Run; the caller of Run acts as the master worker.
	runMu sync.Mutex
	runs  atomic.Uint64
}

// NewScheduler builds the topology, the victim graph and the workers. A
// nil cfg means DefaultSchedulerConfig. Workers are started by Start.
func NewScheduler[T any, P Task[T]](cfg *SchedulerConfig) (*Scheduler[T, P], error) {
	if cfg == nil {
		cfg = DefaultSchedulerConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	c := cfg.normalized()

	topo, pin, err := placement(&c)
	if err != nil {
		return nil, err
	}

	eng := &engine[T]{
		id:           uuid.NewString(),
		cfg:          c,
		topo:         topo,
		graph:        BuildVictimGraph(topo),
		model:        newLoadModel(c.Degree, c.Height),
		pin:          pin,
		exec:         func(t *T, f *Frame[T]) { P(t).Execute(f) },
		logger:       c.Logger,
		panicHandler: c.PanicHandler,
		metrics:      c.Metrics,
	}
	for _, desc := range eng.graph.Workers {
		eng.workers = append(eng.workers, newWorker(eng, desc))
	}
	for _, w := range eng.workers {
		for _, id := range eng.graph.Peers(w.id, c.MaxVictims) {
			w.victims = append(w.victims, eng.workers[id])
		}
		w.stealAllowed.Store(true)
	}
	if c.Dispatcher && len(topo.Nodes()) > 1 {
		eng.dispatcher = newDispatcher(eng)
	}

	return &Scheduler[T, P]{
		eng:     eng,
		history: newRunHistory(c.HistorySize),
	}, nil
}

// placement resolves the topology the workers are laid out on and whether
// they are pinned.
func placement(c *SchedulerConfig) (*Topology, bool, error) {
	topo := c.Topology
	if topo == nil {
		var err error
		if topo, err = DiscoverTopology(c.NUMA); err != nil {
			return nil, false, fmt.Errorf("discover topology: %w", err)
		}
	}
	if !c.NUMA {
		topo = topo.Flatten()
	}

	n, pin := c.Workers, c.Pin
	if n == 0 {
		n = len(topo.Contexts)
	}
	if n > len(topo.Contexts) {
		c.Logger.Warn("more workers than hardware contexts, running unpinned",
			F("workers", n), F("contexts", len(topo.Contexts)))
		topo = NewSyntheticTopology(1, n, 1)
		pin = false
	}
	topo, err := topo.Select(n)
	if err != nil {
		return nil, false, err
	}
	return topo, pin, nil
}

// ID returns the scheduler's unique ID.
func (s *Scheduler[T, P]) ID() string { return s.eng.id }

// Workers returns the number of workers including the master.
func (s *Scheduler[T, P]) Workers() int { return len(s.eng.workers) }

// Topology returns the topology the workers are placed on.
func (s *Scheduler[T, P]) Topology() *Topology { return s.eng.topo }

// VictimGraph returns the worker placement and victim assignment.
func (s *Scheduler[T, P]) VictimGraph() *VictimGraph { return s.eng.graph }

// Start brings up every worker except the master and, on multi-node
// topologies, the dispatcher. Cancelling ctx stops the scheduler like
// Stop, minus the wait. Repeated calls are no-ops.
func (s *Scheduler[T, P]) Start(ctx context.Context) error {
	s.lifeMu.Lock()
	defer s.lifeMu.Unlock()

	switch s.state.Load() {
	case stateRunning:
		return nil
	case stateStopping, stateStopped:
		return ErrStopped
	}

	eng := s.eng
	runCtx, cancel := context.WithCancel(ctx)
	g, gctx := errgroup.WithContext(runCtx)

	pinErrs := make([]error, len(eng.workers))
	var ready sync.WaitGroup
	for _, w := range eng.workers[1:] {
		ready.Add(1)
		g.Go(func() error {
			w.run(&ready, &pinErrs[w.id])
			return nil
		})
	}

	dispatcherDone := make(chan struct{})
	if d := eng.dispatcher; d != nil {
		g.Go(func() error {
			defer close(dispatcherDone)
			d.run(gctx)
			return nil
		})
	} else {
		close(dispatcherDone)
	}
	g.Go(func() error {
		<-gctx.Done()
		<-dispatcherDone
		eng.halted.Store(true)
		return nil
	})
	ready.Wait()

	s.cancel = cancel
	s.group = g
	if err := errors.Join(pinErrs...); err != nil && eng.cfg.StrictPinning {
		s.shutdown()
		return fmt.Errorf("pin workers: %w", err)
	}

	s.state.Store(stateRunning)
	eng.logger.Info("scheduler started",
		F("scheduler", eng.id),
		F("workers", len(eng.workers)),
		F("topology", eng.topo.String()),
		F("dispatcher", eng.dispatcher != nil),
		F("pinned", eng.pin))
	return nil
}

// run is the body of a non-master worker goroutine. The goroutine keeps
// its OS thread locked until it exits, so a pinned thread is discarded
// instead of returning to the runtime's pool.
func (w *worker[T]) run(ready *sync.WaitGroup, pinErr *error) {
	runtime.LockOSThread()
	if w.eng.pin {
		if _, err := pinThread(w.desc.CPU); err != nil {
			*pinErr = fmt.Errorf("worker %d on cpu %d: %w", w.id, w.desc.CPU, err)
			w.eng.logger.Warn("failed to pin worker", F("worker", w.id), F("cpu", w.desc.CPU), F("error", err))
		}
	}
	ready.Done()
	w.stealLoop()
}

// Run executes root and every task it spawns, and returns the root after
// the whole tree completed. The calling goroutine becomes the master
// worker for the duration of the call; concurrent calls are serialized.
func (s *Scheduler[T, P]) Run(root T) (T, error) {
	s.runMu.Lock()
	defer s.runMu.Unlock()

	switch s.state.Load() {
	case stateCreated:
		return root, ErrNotStarted
	case stateStopping, stateStopped:
		return root, ErrStopped
	}

	eng := s.eng
	m := eng.workers[0]
	var sess *session
	defer func() {
		if r := recover(); r != nil {
			if ie, ok := r.(*InvariantError); ok {
				s.fail(sess, ie)
			}
			panic(r)
		}
	}()

	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	if eng.pin {
		restore, err := pinThread(m.desc.CPU)
		if err != nil {
			eng.logger.Warn("failed to pin master", F("cpu", m.desc.CPU), F("error", err))
		} else {
			defer restore()
		}
	}

	before := eng.totals()
	record := RunRecord{ID: uuid.NewString(), StartedAt: time.Now()}
	eng.inRun.Store(true)
	if eng.dispatcher != nil {
		sess = eng.dispatcher.begin()
	}

	head := m.chain.head
	rs := head.putAllocate()
	if rs == nil {
		fatalf("run: master chain is not empty")
	}
	rs.task = root
	head.putCommit(0)
	m.load.Add(eng.model.weight(0))

	m.assigned.Store(true)
	m.drain(head)
	m.assigned.Store(false)

	if sess != nil {
		eng.dispatcher.end(sess)
	}
	eng.inRun.Store(false)

	after := eng.totals()
	record.FinishedAt = time.Now()
	record.Duration = record.FinishedAt.Sub(record.StartedAt)
	record.Steals = after.Stolen - before.Stolen
	record.Mailed = after.Mailed - before.Mailed
	record.Panics = after.Panics - before.Panics
	s.history.add(record)
	s.runs.Add(1)
	eng.metrics.RecordRunDuration(eng.id, record.Duration)
	eng.logger.Debug("run complete",
		F("scheduler", eng.id), F("run", record.ID),
		F("duration", record.Duration), F("steals", record.Steals))

	return rs.task, nil
}

// fail takes the scheduler out of service after a broken contract on the
// master. The master chain is left mid-run, so later calls get ErrStopped;
// Stop still reaps the workers and releases the arenas.
func (s *Scheduler[T, P]) fail(sess *session, ie *InvariantError) {
	eng := s.eng
	eng.workers[0].assigned.Store(false)
	if sess != nil {
		eng.dispatcher.end(sess)
	}
	eng.inRun.Store(false)
	s.state.Store(stateStopping)
	s.cancel()
	eng.logger.Error("scheduler failed", F("scheduler", eng.id), F("error", ie.Error()))
}

// Stop halts the workers after their current task, waits for a Run in
// progress to finish and releases the arenas. Repeated calls are safe.
func (s *Scheduler[T, P]) Stop() {
	s.lifeMu.Lock()
	defer s.lifeMu.Unlock()

	switch s.state.Load() {
	case stateCreated:
		s.state.Store(stateStopped)
		return
	case stateStopped:
		return
	}
	s.shutdown()
	s.eng.logger.Info("scheduler stopped", F("scheduler", s.eng.id), F("runs", s.runs.Load()))
}

func (s *Scheduler[T, P]) shutdown() {
	s.state.Store(stateStopping)
	s.cancel()
	_ = s.group.Wait()

	s.runMu.Lock()
	for _, w := range s.eng.workers {
		w.chain.release()
	}
	s.state.Store(stateStopped)
	s.runMu.Unlock()
}

// IsRunning reports whether the workers are up.
func (s *Scheduler[T, P]) IsRunning() bool {
	return s.state.Load() == stateRunning
}

// RecentRuns returns up to limit completed runs, newest first.
func (s *Scheduler[T, P]) RecentRuns(limit int) []RunRecord {
	return s.history.recent(limit)
}

// Stats returns a racy snapshot of every worker and the dispatcher.
func (s *Scheduler[T, P]) Stats() SchedulerStats {
	eng := s.eng
	st := SchedulerStats{
		ID:        eng.id,
		Workers:   len(eng.workers),
		Nodes:     len(eng.topo.Nodes()),
		Running:   s.IsRunning(),
		InRun:     eng.inRun.Load(),
		Runs:      s.runs.Load(),
		WorkerSet: make([]WorkerStats, 0, len(eng.workers)),
	}
	if eng.dispatcher != nil {
		st.Dispatcher = eng.dispatcher.stats()
	}
	for _, w := range eng.workers {
		st.WorkerSet = append(st.WorkerSet, w.stats())
	}
	return st
}

// totals sums the per-worker counters used in run records.
func (e *engine[T]) totals() WorkerStats {
	var t WorkerStats
	for _, w := range e.workers {
		t.Stolen += w.stolen.Load()
		t.Mailed += w.mailed.Load()
		t.Panics += w.panics.Load()
		t.Executed += w.executed.Load()
	}
	return t
}
