package core

//go:generate mockgen -source interfaces.go -destination interfaces_mocks.go -package core

import (
	"fmt"
	"time"
)

// =============================================================================
// PanicHandler: Interface for handling task panics
// =============================================================================

// PanicHandler is called when a task panics during Execute. The panic is
// recovered, the frame's children are still joined and the run goes on.
// Invariant violations are never passed here.
//
// Implementations should be thread-safe as they may be called concurrently.
type PanicHandler interface {
	// HandlePanic is called when a task panics.
	//
	// Parameters:
	// - schedulerID: The ID of the scheduler running the task
	// - workerID: The ID of the worker executing the task
	// - level: The tree level of the task (root = 0)
	// - panicInfo: The panic value recovered from the task
	// - stackTrace: The stack trace at the time of panic
	HandlePanic(schedulerID string, workerID int, level int, panicInfo any, stackTrace []byte)
}

// DefaultPanicHandler provides a basic panic handler that logs to stdout.
type DefaultPanicHandler struct{}

// HandlePanic prints panic information to stdout.
func (h *DefaultPanicHandler) HandlePanic(schedulerID string, workerID int, level int, panicInfo any, stackTrace []byte) {
	fmt.Printf("[Worker %d @ %s] Panic in level %d task: %v\nStack trace:\n%s",
		workerID, schedulerID, level, panicInfo, stackTrace)
}

// =============================================================================
// Metrics: Interface for observability and monitoring
// =============================================================================

// DispatcherEvent names a dispatcher decision.
type DispatcherEvent string

const (
	EventSession        DispatcherEvent = "session"
	EventRampUpMail     DispatcherEvent = "ramp_up_mail"
	EventRampUpTimeout  DispatcherEvent = "ramp_up_timeout"
	EventBalanceMail    DispatcherEvent = "balance_mail"
	EventNoIdleWorker   DispatcherEvent = "no_idle_worker"
	EventNoLoadedWorker DispatcherEvent = "no_loaded_worker"
	EventStealMiss      DispatcherEvent = "steal_miss"
)

// Metrics receives scheduler events. Steal events are reported from the
// workers' hot loops, so implementations must be non-blocking and cheap.
type Metrics interface {
	// RecordSteal records a successful steal by thief from victim.
	RecordSteal(schedulerID string, thief, victim, level int)

	// RecordMailboxHandoff records a task migrated by the dispatcher.
	RecordMailboxHandoff(schedulerID string, from, to, level int)

	// RecordDispatcherEvent records a dispatcher decision.
	RecordDispatcherEvent(schedulerID string, event DispatcherEvent)

	// RecordTaskPanic records that a task panicked during execution.
	RecordTaskPanic(schedulerID string, workerID int, panicInfo any)

	// RecordRunDuration records how long a root task tree took.
	RecordRunDuration(schedulerID string, duration time.Duration)
}

// NilMetrics provides a no-op metrics implementation that does nothing.
// This is the default when no metrics interface is provided.
type NilMetrics struct{}

func (m *NilMetrics) RecordSteal(schedulerID string, thief, victim, level int)        {}
func (m *NilMetrics) RecordMailboxHandoff(schedulerID string, from, to, level int)    {}
func (m *NilMetrics) RecordDispatcherEvent(schedulerID string, event DispatcherEvent) {}
func (m *NilMetrics) RecordTaskPanic(schedulerID string, workerID int, panicInfo any) {}
func (m *NilMetrics) RecordRunDuration(schedulerID string, duration time.Duration)    {}
