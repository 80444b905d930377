package core

import "time"

// RunRecord captures one completed Run.
type RunRecord struct {
	ID         string
	StartedAt  time.Time
	FinishedAt time.Time
	Duration   time.Duration
	Steals     uint64
	Mailed     uint64
	Panics     uint64
}

// WorkerStats is a racy snapshot of one worker.
type WorkerStats struct {
	ID            int
	CPU           int
	Node          int
	Socket        int
	Core          int
	HWThread      int
	Victim        int
	Victims       int
	Load          int64
	Pending       int64
	ChainHeight   int
	Assigned      bool
	StealAllowed  bool
	Executed      uint64
	Stolen        uint64
	StealAttempts uint64
	Mailed        uint64
	Panics        uint64
}

// DispatcherStats counts dispatcher decisions since start.
type DispatcherStats struct {
	Enabled        bool
	Sessions       uint64
	RampUpMails    uint64
	RampUpTimeouts uint64
	BalanceMails   uint64
	NoIdleWorker   uint64
	NoLoadedWorker uint64
	StealMisses    uint64
}

// SchedulerStats represents runtime observability state for a scheduler.
type SchedulerStats struct {
	ID         string
	Workers    int
	Nodes      int
	Running    bool
	InRun      bool
	Runs       uint64
	Dispatcher DispatcherStats
	WorkerSet  []WorkerStats
}
