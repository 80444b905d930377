package forkjoin

import "github.com/Swind/go-forkjoin/core"

// Re-export commonly used types from core package for convenience.
// This allows users to import only the forkjoin package for most use cases.

// Task is the constraint implemented by *T for a task value type T.
type Task[T any] = core.Task[T]

// Frame is the fork/join handle passed to Execute.
type Frame[T any] = core.Frame[T]

// Scheduler runs task trees of T.
type Scheduler[T any, P core.Task[T]] = core.Scheduler[T, P]

// Config holds the scheduler knobs.
type Config = core.SchedulerConfig

// Topology describes the hardware contexts workers are placed on.
type Topology = core.Topology

// SchedulerStats is a snapshot of a scheduler.
type SchedulerStats = core.SchedulerStats

// RunRecord describes one completed run.
type RunRecord = core.RunRecord

var (
	DefaultConfig        = core.DefaultSchedulerConfig
	LoadConfig           = core.LoadSchedulerConfig
	NewSyntheticTopology = core.NewSyntheticTopology
	DiscoverTopology     = core.DiscoverTopology

	ErrNotStarted = core.ErrNotStarted
	ErrStopped    = core.ErrStopped
)
