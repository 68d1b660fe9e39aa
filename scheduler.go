package uplink

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/evergreen-ci/birch"
	"github.com/mongodb/grip"
	"github.com/mongodb/grip/message"
	"github.com/mongodb/grip/recovery"
	"github.com/pkg/errors"
	"k8s.io/utils/clock"
)

// The collection endpoint expects this cadence from every submitter;
// changing either value gets the submitter rejected.
const (
	InitialDelay = 5 * time.Minute
	Period       = 30 * time.Minute
)

// SchedulerState is the lifecycle position of a scheduler.
type SchedulerState int32

const (
	StateIdle SchedulerState = iota
	StateArmed
	StateFiring
	StateCancelled
)

func (s SchedulerState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateArmed:
		return "armed"
	case StateFiring:
		return "firing"
	case StateCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

type schedulerOptions struct {
	clock    clock.Clock
	executor Executor
	// active reports whether the leader's host component is still
	// running; once it returns false the scheduler stops for good.
	active func() bool
	// collect runs on the primary execution context and must not
	// block.
	collect func(ctx context.Context) *birch.Document
	// submit runs on a worker goroutine.
	submit func(ctx context.Context, doc *birch.Document) error

	logFailures bool
	stats       *stats
}

// scheduler fires once after InitialDelay and then every Period
// until the host component goes inactive or its context is canceled.
type scheduler struct {
	opts  schedulerOptions
	state atomic.Int32
	fires atomic.Int64
}

func newScheduler(opts schedulerOptions) *scheduler {
	if opts.clock == nil {
		opts.clock = clock.RealClock{}
	}
	return &scheduler{opts: opts}
}

func (s *scheduler) State() SchedulerState { return SchedulerState(s.state.Load()) }

// Fires returns the number of times the scheduler has fired.
func (s *scheduler) Fires() int64 { return s.fires.Load() }

// start arms the timer and runs the scheduling loop in the
// background. It has no effect unless the scheduler is idle.
func (s *scheduler) start(ctx context.Context) {
	if !s.state.CompareAndSwap(int32(StateIdle), int32(StateArmed)) {
		return
	}

	next := s.opts.clock.Now().Add(InitialDelay)
	timer := s.opts.clock.NewTimer(InitialDelay)
	go s.run(ctx, timer, next)
}

// run fires at a fixed rate: each deadline is one Period after the
// previous deadline, not after the previous fire. Deadlines missed
// while a cycle ran are skipped.
func (s *scheduler) run(ctx context.Context, timer clock.Timer, next time.Time) {
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			s.state.Store(int32(StateCancelled))
			return
		case <-timer.C():
			if !s.fire(ctx) {
				s.state.Store(int32(StateCancelled))
				return
			}
			now := s.opts.clock.Now()
			next = nextDeadline(next, now)
			timer.Reset(next.Sub(now))
			s.state.Store(int32(StateArmed))
		}
	}
}

func nextDeadline(prev, now time.Time) time.Time {
	next := prev.Add(Period)
	for !next.After(now) {
		next = next.Add(Period)
	}
	return next
}

// fire performs one cycle and reports whether the scheduler should
// stay armed.
func (s *scheduler) fire(ctx context.Context) bool {
	if s.opts.active != nil && !s.opts.active() {
		return false
	}

	s.state.Store(int32(StateFiring))
	s.fires.Add(1)
	s.opts.stats.cycle()

	err := s.opts.executor.Run(func(primary context.Context) {
		doc := s.opts.collect(primary)
		go s.dispatch(ctx, doc)
	})

	grip.WarningWhen(s.opts.logFailures && err != nil, message.WrapError(err, message.Fields{
		"op": "handing collection to the primary executor",
	}))

	return true
}

func (s *scheduler) dispatch(ctx context.Context, doc *birch.Document) {
	defer recovery.LogStackTraceAndContinue("submitting report")

	err := s.opts.submit(ctx, doc)
	if err == nil {
		return
	}

	if errors.Is(err, ErrNotOnWorkerThread) {
		grip.Critical(message.WrapError(err, message.Fields{
			"op": "submitting report",
		}))
		return
	}

	grip.WarningWhen(s.opts.logFailures, message.WrapError(err, message.Fields{
		"op": "submitting report",
	}))
}
