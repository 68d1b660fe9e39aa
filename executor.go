package uplink

import (
	"context"

	"github.com/mongodb/grip/recovery"
	"github.com/pkg/errors"
)

// Executor hands work to the host's designated execution context.
// Tasks must be short and must not perform I/O. Implementations pass
// each task a context marked with WithPrimaryContext.
type Executor interface {
	Run(task func(ctx context.Context)) error
}

// ExecutorFunc adapts a function to the Executor interface.
type ExecutorFunc func(task func(ctx context.Context)) error

func (f ExecutorFunc) Run(task func(ctx context.Context)) error { return f(task) }

type primaryContextKey struct{}

// WithPrimaryContext marks ctx as belonging to the host's primary
// execution context.
func WithPrimaryContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, primaryContextKey{}, true)
}

// IsPrimaryContext reports whether ctx was marked by
// WithPrimaryContext.
func IsPrimaryContext(ctx context.Context) bool {
	marked, _ := ctx.Value(primaryContextKey{}).(bool)
	return marked
}

// LoopExecutor is a single goroutine that runs submitted tasks in
// order. Hosts without their own task loop can use it as their
// primary execution context.
type LoopExecutor struct {
	ctx   context.Context
	tasks chan func(context.Context)
}

// NewLoopExecutor starts the loop. It runs until ctx is canceled.
func NewLoopExecutor(ctx context.Context, buffer int) *LoopExecutor {
	e := &LoopExecutor{
		ctx:   WithPrimaryContext(ctx),
		tasks: make(chan func(context.Context), buffer),
	}
	go e.loop()
	return e
}

func (e *LoopExecutor) loop() {
	for {
		select {
		case <-e.ctx.Done():
			return
		case task := <-e.tasks:
			e.runTask(task)
		}
	}
}

func (e *LoopExecutor) runTask(task func(context.Context)) {
	defer recovery.LogStackTraceAndContinue("primary executor task")
	task(e.ctx)
}

// Run queues task for the loop. It returns an error once the loop's
// context is canceled.
func (e *LoopExecutor) Run(task func(ctx context.Context)) error {
	if task == nil {
		return errors.New("cannot run a nil task")
	}

	select {
	case <-e.ctx.Done():
		return errors.Wrap(e.ctx.Err(), "primary executor is closed")
	case e.tasks <- task:
		return nil
	}
}
