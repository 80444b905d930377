package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/urfave/cli/v2"

	"github.com/Swind/go-forkjoin/core"
	fjprom "github.com/Swind/go-forkjoin/observability/prometheus"
)

var metricsAddrFlag = cli.StringFlag{
	Name:    "metrics-addr",
	Usage:   "serve Prometheus metrics on this address, disabled if empty",
	EnvVars: []string{"FORKJOIN_METRICS_ADDR"},
}

// observer serves the exporter and the snapshot poller over HTTP.
type observer struct {
	logger core.Logger
	poller *fjprom.SnapshotPoller
	server *http.Server
}

// startMetrics wires a Prometheus exporter into cfg when --metrics-addr is
// set. The returned observer is safe to use when metrics are disabled.
func startMetrics(c *cli.Context, cfg *core.SchedulerConfig) (*observer, error) {
	addr := c.String(metricsAddrFlag.Name)
	if addr == "" {
		return &observer{}, nil
	}

	reg := prom.NewRegistry()
	exporter, err := fjprom.NewMetricsExporter("forkjoin", reg, fjprom.ExporterOptions{})
	if err != nil {
		return nil, err
	}
	poller, err := fjprom.NewSnapshotPoller(reg, time.Second)
	if err != nil {
		return nil, err
	}
	cfg.Metrics = exporter

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	o := &observer{
		logger: cfg.Logger,
		poller: poller,
		server: &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second},
	}
	go func() {
		if err := o.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			o.logger.Error("metrics server failed", core.F("addr", addr), core.F("error", err))
		}
	}()
	poller.Start(c.Context)
	return o, nil
}

func (o *observer) watch(s fjprom.SchedulerSnapshotProvider) {
	if o.poller != nil {
		o.poller.AddScheduler("bench", s)
	}
}

func (o *observer) stop() {
	if o.server == nil {
		return
	}
	o.poller.Stop()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_ = o.server.Shutdown(ctx)
}
