package forkjoin

import (
	"context"

	"github.com/Swind/go-forkjoin/core"
)

// New creates a scheduler for task type T. The pointer type is inferred:
//
//	sched, err := forkjoin.New[Fib](cfg)
func New[T any, P core.Task[T]](cfg *Config) (*Scheduler[T, P], error) {
	return core.NewScheduler[T, P](cfg)
}

// Run starts a scheduler, runs root to completion and stops it again.
// Use New for repeated runs: bringing workers up costs far more than a
// small tree.
func Run[T any, P core.Task[T]](ctx context.Context, cfg *Config, root T) (T, error) {
	sched, err := core.NewScheduler[T, P](cfg)
	if err != nil {
		return root, err
	}
	if err := sched.Start(ctx); err != nil {
		return root, err
	}
	defer sched.Stop()
	return sched.Run(root)
}
