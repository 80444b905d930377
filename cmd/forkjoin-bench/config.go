package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"

	"github.com/Swind/go-forkjoin/core"
	fjzerolog "github.com/Swind/go-forkjoin/logging/zerolog"
)

var (
	configFlag = cli.StringFlag{
		Name:    "config",
		Usage:   "YAML scheduler config; flags given explicitly override it",
		EnvVars: []string{"FORKJOIN_CONFIG"},
	}
	workersFlag = cli.IntFlag{
		Name:    "workers",
		Aliases: []string{"w"},
		Usage:   "number of workers, 0 for every hardware context",
		EnvVars: []string{"FORKJOIN_WORKERS"},
	}
	numaFlag = cli.BoolFlag{
		Name:    "numa",
		Usage:   "place workers by NUMA node and run the dispatcher",
		Value:   true,
		EnvVars: []string{"FORKJOIN_NUMA"},
	}
	pinFlag = cli.BoolFlag{
		Name:    "pin",
		Usage:   "pin every worker thread to its hardware context",
		Value:   true,
		EnvVars: []string{"FORKJOIN_PIN"},
	}
	dispatcherFlag = cli.BoolFlag{
		Name:    "dispatcher",
		Usage:   "balance across NUMA nodes",
		Value:   true,
		EnvVars: []string{"FORKJOIN_DISPATCHER"},
	}
	syntheticFlag = cli.StringFlag{
		Name:  "synthetic",
		Usage: "use a synthetic topology instead of discovery, as sockets:cores:threads",
	}
	logLevelFlag = cli.StringFlag{
		Name:    "log-level",
		Usage:   "zerolog level for scheduler lifecycle logs",
		Value:   "info",
		EnvVars: []string{"FORKJOIN_LOG_LEVEL"},
	}
)

var schedulerFlags = []cli.Flag{
	&configFlag,
	&workersFlag,
	&numaFlag,
	&pinFlag,
	&dispatcherFlag,
	&syntheticFlag,
	&logLevelFlag,
	&metricsAddrFlag,
}

// schedulerConfig builds the config from the config file and the global
// flags. Only flags set on the command line override the file.
func schedulerConfig(c *cli.Context) (*core.SchedulerConfig, error) {
	cfg := core.DefaultSchedulerConfig()
	if path := c.String(configFlag.Name); path != "" {
		loaded, err := core.LoadSchedulerConfig(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	if c.IsSet(workersFlag.Name) {
		cfg.Workers = c.Int(workersFlag.Name)
	}
	if c.IsSet(numaFlag.Name) {
		cfg.NUMA = c.Bool(numaFlag.Name)
	}
	if c.IsSet(pinFlag.Name) {
		cfg.Pin = c.Bool(pinFlag.Name)
	}
	if c.IsSet(dispatcherFlag.Name) {
		cfg.Dispatcher = c.Bool(dispatcherFlag.Name)
	}
	if layout := c.String(syntheticFlag.Name); layout != "" {
		var sockets, cores, threads int
		if _, err := fmt.Sscanf(layout, "%d:%d:%d", &sockets, &cores, &threads); err != nil {
			return nil, fmt.Errorf("invalid synthetic topology %q: %w", layout, err)
		}
		cfg.Topology = core.NewSyntheticTopology(sockets, cores, threads)
	}

	level, err := zerolog.ParseLevel(c.String(logLevelFlag.Name))
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}
	cfg.Logger = fjzerolog.New(os.Stderr, level)
	return cfg, cfg.Validate()
}
