package prometheus

import (
	"context"
	"testing"
	"time"

	"github.com/Swind/go-forkjoin/core"
	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

type schedulerStub struct {
	stats core.SchedulerStats
}

func (s schedulerStub) Stats() core.SchedulerStats { return s.stats }

func TestSnapshotPoller_CollectsSchedulerStats(t *testing.T) {
	reg := prom.NewRegistry()
	poller, err := NewSnapshotPoller(reg, 10*time.Millisecond)
	if err != nil {
		t.Fatalf("NewSnapshotPoller failed: %v", err)
	}

	poller.AddScheduler("sched-a", schedulerStub{stats: core.SchedulerStats{
		Workers: 2,
		Running: true,
		Runs:    5,
		Dispatcher: core.DispatcherStats{
			Enabled:      true,
			Sessions:     5,
			BalanceMails: 9,
		},
		WorkerSet: []core.WorkerStats{
			{ID: 0, Node: 0, Load: 64, Executed: 100, ChainHeight: 16},
			{ID: 1, Node: 1, Stolen: 7, StealAttempts: 30, Mailed: 2},
		},
	}})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	poller.Start(ctx)
	defer poller.Stop()

	assertEventually(t, 2*time.Second, func() bool {
		load := testutil.ToFloat64(poller.workerLoad.WithLabelValues("sched-a", "0", "0"))
		stolen := testutil.ToFloat64(poller.workerStolen.WithLabelValues("sched-a", "1", "1"))
		return load == 64 && stolen == 7
	})

	if got := testutil.ToFloat64(poller.schedulerRunning.WithLabelValues("sched-a")); got != 1 {
		t.Fatalf("scheduler running gauge = %v, want 1", got)
	}
	if got := testutil.ToFloat64(poller.schedulerRuns.WithLabelValues("sched-a")); got != 5 {
		t.Fatalf("scheduler runs gauge = %v, want 5", got)
	}
	if got := testutil.ToFloat64(poller.workerMailed.WithLabelValues("sched-a", "1", "1")); got != 2 {
		t.Fatalf("worker mailed gauge = %v, want 2", got)
	}
	if got := testutil.ToFloat64(poller.dispatcherEvents.WithLabelValues("sched-a", "balance_mail")); got != 9 {
		t.Fatalf("balance mail gauge = %v, want 9", got)
	}
}

func TestSnapshotPoller_SkipsDisabledDispatcher(t *testing.T) {
	reg := prom.NewRegistry()
	poller, err := NewSnapshotPoller(reg, time.Hour)
	if err != nil {
		t.Fatalf("NewSnapshotPoller failed: %v", err)
	}
	poller.AddScheduler("sched-b", schedulerStub{stats: core.SchedulerStats{Workers: 1}})
	poller.collectOnce()

	if got := testutil.CollectAndCount(poller.dispatcherEvents); got != 0 {
		t.Fatalf("dispatcher series = %d, want 0", got)
	}
	if got := testutil.ToFloat64(poller.schedulerWorkers.WithLabelValues("sched-b")); got != 1 {
		t.Fatalf("scheduler workers gauge = %v, want 1", got)
	}
}

func TestSnapshotPoller_StartStop_Idempotent(t *testing.T) {
	reg := prom.NewRegistry()
	poller, err := NewSnapshotPoller(reg, 20*time.Millisecond)
	if err != nil {
		t.Fatalf("NewSnapshotPoller failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	poller.Start(ctx)
	poller.Start(ctx)
	poller.Stop()
	poller.Stop()
}

func assertEventually(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met within timeout")
}
