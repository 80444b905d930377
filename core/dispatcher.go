package core

import (
	"context"
	"runtime"
	"slices"
	"sync/atomic"
	"time"
)

// session is one root run as seen by the dispatcher.
type session struct {
	done     atomic.Bool
	finished chan struct{}
}

func newSession() *session {
	return &session{finished: make(chan struct{})}
}

// dispatcher spreads a run across NUMA nodes. At the start of a run it
// hands shallow tasks of the master's chain to the workers of every
// node, releasing a node's thieves once all its workers got one; after
// that it moves work from the most loaded worker to idle ones until no
// worker is idle.
type dispatcher[T any] struct {
	eng    *engine[T]
	master *worker[T]
	// order is the node visiting order: every other node first, the
	// master's node last.
	order  []int
	byNode map[int][]*worker[T]

	sessions chan *session
	exited   chan struct{}

	sessionCount   atomic.Uint64
	rampUpMails    atomic.Uint64
	rampUpTimeouts atomic.Uint64
	balanceMails   atomic.Uint64
	noIdleWorker   atomic.Uint64
	noLoadedWorker atomic.Uint64
	stealMisses    atomic.Uint64
}

func newDispatcher[T any](eng *engine[T]) *dispatcher[T] {
	d := &dispatcher[T]{
		eng:      eng,
		master:   eng.workers[0],
		byNode:   make(map[int][]*worker[T]),
		sessions: make(chan *session),
		exited:   make(chan struct{}),
	}
	for _, w := range eng.workers {
		d.byNode[w.desc.Node] = append(d.byNode[w.desc.Node], w)
	}
	for node := range d.byNode {
		if node != d.master.desc.Node {
			d.order = append(d.order, node)
		}
	}
	slices.Sort(d.order)
	d.order = append(d.order, d.master.desc.Node)
	return d
}

func (d *dispatcher[T]) run(ctx context.Context) {
	defer close(d.exited)
	for {
		select {
		case <-ctx.Done():
			return
		case sess := <-d.sessions:
			d.serve(ctx, sess)
			close(sess.finished)
		}
	}
}

// begin gates every thief and hands the session to the dispatcher.
func (d *dispatcher[T]) begin() *session {
	for _, w := range d.eng.workers {
		w.stealAllowed.Store(false)
	}
	sess := newSession()
	select {
	case d.sessions <- sess:
	case <-d.exited:
		d.releaseAll()
		close(sess.finished)
	}
	return sess
}

// end marks the run complete and waits for the dispatcher to let go.
func (d *dispatcher[T]) end(sess *session) {
	sess.done.Store(true)
	select {
	case <-sess.finished:
	case <-d.exited:
	}
}

func (d *dispatcher[T]) serve(ctx context.Context, sess *session) {
	d.record(EventSession)
	defer d.releaseAll()

	began := time.Now()
	if !d.rampUp(ctx, sess) {
		return
	}
	d.eng.logger.Debug("dispatcher ramp-up complete",
		F("scheduler", d.eng.id), F("elapsed", time.Since(began)))
	d.balance(ctx, sess)
}

func (d *dispatcher[T]) rampUp(ctx context.Context, sess *session) bool {
	maxLevel := int32(d.eng.cfg.RampUpLevel)
	shallow := func(level int32) bool { return level <= maxLevel }
	limit := deadlineAfter(d.eng.cfg.RampUpTimeout)

	for _, node := range d.order {
		for _, w := range d.byNode[node] {
			if w == d.master {
				continue
			}
			for w.mailbox.empty() && !w.assigned.Load() {
				if ctx.Err() != nil || sess.done.Load() {
					return false
				}
				if limit.passed() {
					d.record(EventRampUpTimeout)
					return false
				}
				if d.migrate(d.master, w, shallow, EventRampUpMail) {
					break
				}
				runtime.Gosched()
			}
		}
		d.release(node)
	}
	return true
}

func (d *dispatcher[T]) balance(ctx context.Context, sess *session) {
	interval := d.eng.cfg.BalanceInterval
	for ctx.Err() == nil && !sess.done.Load() {
		anyIdle := false
		for _, node := range d.order {
			idle := d.idleWorker(node)
			loaded := d.loadedWorker(node)
			switch {
			case idle == nil && loaded == nil:
				continue
			case idle == nil:
				d.record(EventNoIdleWorker)
				continue
			case loaded == nil:
				anyIdle = true
				d.record(EventNoLoadedWorker)
				continue
			}
			anyIdle = true
			floor := d.eng.model.levelFloor(loaded.load.Load() - idle.load.Load())
			fits := func(level int32) bool { return level >= floor }
			if !d.migrate(loaded, idle, fits, EventBalanceMail) {
				d.record(EventStealMiss)
			}
		}
		if !anyIdle {
			return
		}
		time.Sleep(interval)
	}
}

// idleWorker returns an unassigned worker of node with an empty mailbox.
func (d *dispatcher[T]) idleWorker(node int) *worker[T] {
	for _, w := range d.byNode[node] {
		if w != d.master && !w.assigned.Load() && w.mailbox.empty() {
			return w
		}
	}
	return nil
}

// loadedWorker returns the assigned worker with the largest queued load,
// preferring node and falling back to any node.
func (d *dispatcher[T]) loadedWorker(node int) *worker[T] {
	if w := mostLoaded(d.byNode[node]); w != nil {
		return w
	}
	return mostLoaded(d.eng.workers)
}

func mostLoaded[T any](ws []*worker[T]) *worker[T] {
	var best *worker[T]
	var bestLoad int64
	for _, w := range ws {
		if !w.assigned.Load() {
			continue
		}
		if l := w.load.Load(); l > bestLoad {
			best, bestLoad = w, l
		}
	}
	return best
}

// migrate steals one task from src's chain, shallowest acceptable node
// first, and parks it in dst's mailbox. dst reports back to the origin
// node after executing it.
func (d *dispatcher[T]) migrate(src, dst *worker[T], accept func(level int32) bool, ev DispatcherEvent) bool {
	for n := src.chain.head; n != nil; n = n.next.Load() {
		if n.size() == 0 || !accept(n.level.Load()) {
			continue
		}
		s, _ := n.steal()
		if s == nil {
			continue
		}
		w := d.eng.model.weight(s.level)
		src.load.Add(-w)
		dst.load.Add(w)
		if !dst.mailbox.put(s, n) {
			fatalf("dispatcher: mailbox of worker %d written twice", dst.id)
		}
		d.eng.metrics.RecordMailboxHandoff(d.eng.id, src.id, dst.id, int(s.level))
		d.record(ev)
		return true
	}
	return false
}

func (d *dispatcher[T]) release(node int) {
	for _, w := range d.byNode[node] {
		w.stealAllowed.Store(true)
	}
}

func (d *dispatcher[T]) releaseAll() {
	for _, w := range d.eng.workers {
		w.stealAllowed.Store(true)
	}
}

func (d *dispatcher[T]) record(ev DispatcherEvent) {
	switch ev {
	case EventSession:
		d.sessionCount.Add(1)
	case EventRampUpMail:
		d.rampUpMails.Add(1)
	case EventRampUpTimeout:
		d.rampUpTimeouts.Add(1)
	case EventBalanceMail:
		d.balanceMails.Add(1)
	case EventNoIdleWorker:
		d.noIdleWorker.Add(1)
	case EventNoLoadedWorker:
		d.noLoadedWorker.Add(1)
	case EventStealMiss:
		d.stealMisses.Add(1)
	}
	d.eng.metrics.RecordDispatcherEvent(d.eng.id, ev)
}

func (d *dispatcher[T]) stats() DispatcherStats {
	return DispatcherStats{
		Enabled:        true,
		Sessions:       d.sessionCount.Load(),
		RampUpMails:    d.rampUpMails.Load(),
		RampUpTimeouts: d.rampUpTimeouts.Load(),
		BalanceMails:   d.balanceMails.Load(),
		NoIdleWorker:   d.noIdleWorker.Load(),
		NoLoadedWorker: d.noLoadedWorker.Load(),
		StealMisses:    d.stealMisses.Load(),
	}
}

type deadline time.Time

func deadlineAfter(timeout time.Duration) deadline { return deadline(time.Now().Add(timeout)) }

func (d deadline) passed() bool { return time.Now().After(time.Time(d)) }
