package core

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/pbnjay/memory"
	"gopkg.in/yaml.v3"
)

// =============================================================================
// SchedulerConfig: Configuration for Scheduler
// =============================================================================

// SchedulerConfig holds the tuning knobs and pluggable handlers of a
// Scheduler. Handlers left nil are replaced by defaults.
type SchedulerConfig struct {
	// Workers is the number of workers, one per hardware context. 0 uses
	// every context of the topology. Asking for more workers than there
	// are contexts oversubscribes a flat synthetic topology without
	// pinning.
	Workers int `yaml:"workers"`

	// Degree is the expected fan-out of a task. It is rounded up to a power
	// of two and used as the capacity of every deque node.
	Degree int `yaml:"degree"`

	// Height is the expected tree height; chains are pre-allocated to it
	// and load weights are derived from it.
	Height int `yaml:"height"`

	// NUMA enables node-aware placement and the dispatcher.
	NUMA bool `yaml:"numa"`

	// StealQuota is the number of successful steals from one chain node
	// before a thief moves one node deeper.
	StealQuota int `yaml:"steal_quota"`

	// MaxVictims bounds the cached victim list of each worker (0 = all
	// workers of the node).
	MaxVictims int `yaml:"max_victims"`

	// Pin binds every worker thread to its hardware context.
	Pin bool `yaml:"pin"`

	// StrictPinning turns pinning failures into Start errors instead of
	// warnings.
	StrictPinning bool `yaml:"strict_pinning"`

	// Dispatcher enables cross-node load balancing on multi-node
	// topologies.
	Dispatcher bool `yaml:"dispatcher"`

	// RampUpLevel is the deepest level the dispatcher hands out during
	// ramp-up.
	RampUpLevel int `yaml:"ramp_up_level"`

	// RampUpTimeout bounds ramp-up; afterwards every node may steal.
	RampUpTimeout time.Duration `yaml:"ramp_up_timeout"`

	// BalanceInterval is the dispatcher's pause between balancing rounds.
	BalanceInterval time.Duration `yaml:"balance_interval"`

	// ArenaPageBytes is the page size of the per-worker arenas.
	ArenaPageBytes int `yaml:"arena_page_bytes"`

	// HistorySize is the number of completed runs kept for RecentRuns.
	HistorySize int `yaml:"history_size"`

	// Topology overrides discovery, e.g. with NewSyntheticTopology.
	Topology *Topology `yaml:"-"`

	// Logger defaults to DefaultLogger.
	Logger Logger `yaml:"-"`

	// PanicHandler is called when a task panics. Defaults to DefaultPanicHandler.
	PanicHandler PanicHandler `yaml:"-"`

	// Metrics receives scheduler events. Defaults to NilMetrics.
	Metrics Metrics `yaml:"-"`
}

// DefaultSchedulerConfig returns a config for a binary fork-join tree on
// all hardware contexts.
func DefaultSchedulerConfig() *SchedulerConfig {
	return &SchedulerConfig{
		Workers:         0,
		Degree:          2,
		Height:          16,
		NUMA:            true,
		StealQuota:      4,
		MaxVictims:      0,
		Pin:             true,
		Dispatcher:      true,
		RampUpLevel:     6,
		RampUpTimeout:   10 * time.Millisecond,
		BalanceInterval: 100 * time.Microsecond,
		ArenaPageBytes:  defaultArenaPageBytes,
		HistorySize:     defaultRunHistoryCapacity,
		Logger:          NewDefaultLogger(),
		PanicHandler:    &DefaultPanicHandler{},
		Metrics:         &NilMetrics{},
	}
}

// LoadSchedulerConfig reads a YAML file on top of DefaultSchedulerConfig.
func LoadSchedulerConfig(path string) (*SchedulerConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scheduler config: %w", err)
	}
	return ParseSchedulerConfig(raw)
}

// ParseSchedulerConfig decodes YAML on top of DefaultSchedulerConfig.
// Durations are written as strings such as "10ms".
func ParseSchedulerConfig(raw []byte) (*SchedulerConfig, error) {
	cfg := DefaultSchedulerConfig()
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("parse scheduler config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

var (
	errInvalidWorkers = errors.New("workers must not be negative")
	errInvalidDegree  = errors.New("degree must be at least 2")
	errInvalidHeight  = errors.New("height must be at least 1")
	errInvalidQuota   = errors.New("steal_quota must be at least 1")
)

// Validate checks the numeric knobs.
func (c *SchedulerConfig) Validate() error {
	var errs []error
	if c.Workers < 0 {
		errs = append(errs, errInvalidWorkers)
	}
	if c.Degree < 2 {
		errs = append(errs, errInvalidDegree)
	}
	if c.Height < 1 {
		errs = append(errs, errInvalidHeight)
	}
	if c.StealQuota < 1 {
		errs = append(errs, errInvalidQuota)
	}
	if c.MaxVictims < 0 {
		errs = append(errs, fmt.Errorf("max_victims %d must not be negative", c.MaxVictims))
	}
	if c.ArenaPageBytes < 0 {
		errs = append(errs, fmt.Errorf("arena_page_bytes %d must not be negative", c.ArenaPageBytes))
	} else if total := memory.TotalMemory(); total > 0 && uint64(c.ArenaPageBytes) > total/8 {
		errs = append(errs, fmt.Errorf("arena_page_bytes %d exceeds an eighth of physical memory", c.ArenaPageBytes))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid scheduler config: %w", errors.Join(errs...))
	}
	return nil
}

// normalized returns a copy with defaults filled in and Degree rounded up
// to a power of two.
func (c *SchedulerConfig) normalized() SchedulerConfig {
	out := *c
	out.Degree = ceilPowerOfTwo(out.Degree)
	if out.RampUpLevel < 1 {
		out.RampUpLevel = 1
	}
	if out.RampUpTimeout <= 0 {
		out.RampUpTimeout = 10 * time.Millisecond
	}
	if out.BalanceInterval <= 0 {
		out.BalanceInterval = 100 * time.Microsecond
	}
	if out.ArenaPageBytes == 0 {
		out.ArenaPageBytes = defaultArenaPageBytes
	}
	if out.Logger == nil {
		out.Logger = NewDefaultLogger()
	}
	if out.PanicHandler == nil {
		out.PanicHandler = &DefaultPanicHandler{}
	}
	if out.Metrics == nil {
		out.Metrics = &NilMetrics{}
	}
	return out
}
