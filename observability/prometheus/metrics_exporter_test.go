package prometheus

import (
	"context"
	"testing"
	"time"

	"github.com/Swind/go-forkjoin/core"
	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
)

func TestMetricsExporter_RecordMethods(t *testing.T) {
	reg := prom.NewRegistry()
	exporter, err := NewMetricsExporter("forkjoin", reg, ExporterOptions{})
	if err != nil {
		t.Fatalf("NewMetricsExporter failed: %v", err)
	}

	exporter.RecordSteal("sched-a", 1, 0, 3)
	exporter.RecordSteal("sched-a", 1, 0, 4)
	exporter.RecordMailboxHandoff("sched-a", 0, 2, 1)
	exporter.RecordDispatcherEvent("sched-a", core.EventRampUpMail)
	exporter.RecordTaskPanic("sched-a", 2, "panic")
	exporter.RecordRunDuration("sched-a", 250*time.Millisecond)

	if got := testutil.ToFloat64(exporter.stealsTotal.WithLabelValues("sched-a", "1", "0")); got != 2 {
		t.Fatalf("steals total = %v, want 2", got)
	}
	if got := testutil.ToFloat64(exporter.mailboxHandoffsTotal.WithLabelValues("sched-a", "0", "2")); got != 1 {
		t.Fatalf("handoffs total = %v, want 1", got)
	}
	if got := testutil.ToFloat64(exporter.dispatcherEvents.WithLabelValues("sched-a", "ramp_up_mail")); got != 1 {
		t.Fatalf("dispatcher events = %v, want 1", got)
	}
	if got := testutil.ToFloat64(exporter.taskPanicTotal.WithLabelValues("sched-a", "2")); got != 1 {
		t.Fatalf("panic total = %v, want 1", got)
	}

	histCount, err := histogramSampleCount(exporter.runDurationSeconds.WithLabelValues("sched-a"))
	if err != nil {
		t.Fatalf("histogramSampleCount failed: %v", err)
	}
	if histCount != 1 {
		t.Fatalf("duration sample count = %d, want 1", histCount)
	}
	levelCount, err := histogramSampleCount(exporter.stealLevel.WithLabelValues("sched-a"))
	if err != nil {
		t.Fatalf("histogramSampleCount failed: %v", err)
	}
	if levelCount != 2 {
		t.Fatalf("steal level sample count = %d, want 2", levelCount)
	}
}

func TestMetricsExporter_AlreadyRegisteredReuse(t *testing.T) {
	reg := prom.NewRegistry()
	first, err := NewMetricsExporter("forkjoin", reg, ExporterOptions{})
	if err != nil {
		t.Fatalf("first NewMetricsExporter failed: %v", err)
	}
	second, err := NewMetricsExporter("forkjoin", reg, ExporterOptions{})
	if err != nil {
		t.Fatalf("second NewMetricsExporter failed: %v", err)
	}

	first.RecordTaskPanic("sched-a", 0, nil)
	second.RecordTaskPanic("sched-a", 0, nil)

	got := testutil.ToFloat64(first.taskPanicTotal.WithLabelValues("sched-a", "0"))
	if got != 2 {
		t.Fatalf("shared panic counter = %v, want 2", got)
	}
}

func TestMetricsExporter_NilReceiver(t *testing.T) {
	var exporter *MetricsExporter
	exporter.RecordSteal("sched-a", 0, 1, 0)
	exporter.RecordRunDuration("sched-a", time.Second)
}

// fanout spawns a small binary tree.
type fanout struct {
	Depth int
}

func (t *fanout) Execute(f *core.Frame[fanout]) {
	if t.Depth == 0 {
		return
	}
	f.Fork(fanout{Depth: t.Depth - 1})
	f.Fork(fanout{Depth: t.Depth - 1})
	f.Wait()
}

func TestMetricsExporter_WiredIntoScheduler(t *testing.T) {
	reg := prom.NewRegistry()
	exporter, err := NewMetricsExporter("", reg, ExporterOptions{})
	if err != nil {
		t.Fatalf("NewMetricsExporter failed: %v", err)
	}

	cfg := core.DefaultSchedulerConfig()
	cfg.Workers = 2
	cfg.NUMA = false
	cfg.Pin = false
	cfg.Topology = core.NewSyntheticTopology(1, 2, 1)
	cfg.Logger = core.NewNoOpLogger()
	cfg.Metrics = exporter

	sched, err := core.NewScheduler[fanout](cfg)
	if err != nil {
		t.Fatalf("NewScheduler failed: %v", err)
	}
	if err := sched.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer sched.Stop()
	if _, err := sched.Run(fanout{Depth: 12}); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	count, err := histogramSampleCount(exporter.runDurationSeconds.WithLabelValues(sched.ID()))
	if err != nil {
		t.Fatalf("histogramSampleCount failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("run duration sample count = %d, want 1", count)
	}
}

func histogramSampleCount(observer prom.Observer) (uint64, error) {
	collector, ok := observer.(prom.Collector)
	if !ok {
		return 0, nil
	}

	metricCh := make(chan prom.Metric, 1)
	collector.Collect(metricCh)
	close(metricCh)
	for metric := range metricCh {
		msg := &dto.Metric{}
		if err := metric.Write(msg); err != nil {
			return 0, err
		}
		if msg.Histogram != nil {
			return msg.Histogram.GetSampleCount(), nil
		}
	}
	return 0, nil
}
