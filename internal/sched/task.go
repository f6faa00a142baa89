// Package sched implements the per-CPU ready queue, Task state machine,
// and stackful/stackless executors of spec.md §4.9.
package sched

import (
	"eonixcore/internal/ksync"
	"eonixcore/internal/taskctx"
)

// State is one of the Task state-machine states of spec.md §4.9.
type State int

const (
	// StateReady means the task sits on some hart's ready queue,
	// waiting to be picked.
	StateReady State = iota
	// StateRunning means the task is currently executing on a hart.
	StateRunning
	// StateParked means a stackful task called Task.Park and is off
	// every ready queue until woken.
	StateParked
	// StateSleeping is StateParked's stackless-executor counterpart: the
	// task's Future returned not-done and is off every ready queue
	// until its Waker fires.
	StateSleeping
	// StateDead means the task has completed and its result has been
	// delivered to its JoinHandle.
	StateDead
)

func (s State) String() string {
	switch s {
	case StateReady:
		return "ready"
	case StateRunning:
		return "running"
	case StateParked:
		return "parked"
	case StateSleeping:
		return "sleeping"
	case StateDead:
		return "dead"
	default:
		return "state(?)"
	}
}

// Task is one schedulable unit: an id, its current state, which CPU it
// is bound to, and the Executor that knows how to run it one step.
type Task struct {
	id    uint64
	home  int
	rt    *Runtime
	exec  executor
	mu       ksync.Spin
	state    State
	onRQ     bool
	done     chan any
	yielding bool
}

// ID returns the task's unique identifier.
func (t *Task) ID() uint64 { return t.id }

// Home returns the index of the hart this task is bound to.
func (t *Task) Home() int { return t.home }

// State returns the task's current state.
func (t *Task) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

func (t *Task) setState(s State) {
	t.mu.Lock()
	t.state = s
	t.mu.Unlock()
}

// Park transitions a running stackful task to StateParked and switches
// back to the scheduler, per spec.md §4.9: "it may sleep on futures by
// calling Task::park, which reverse-switches to the scheduler context
// and parks." self must be the TaskContext the calling goroutine is
// bound to (the one the stackful Executor created for this task). Park
// returns once some later Runtime.wake(t) causes the scheduler to resume it.
func (t *Task) Park(self *taskctx.TaskContext) {
	t.setState(StateParked)
	taskctx.Switch(self, t.rt.schedulerCtx(t.home))
	t.setState(StateRunning)
}

// Yield voluntarily relinquishes the hart back to the scheduler without
// parking: the task is requeued at the back of its ready queue rather
// than left off every queue, per spec.md §4.9: "Executor yields:
// RUNNING -> READY (requeue) or PARKED (leave off the rq)." self must be
// the TaskContext the calling goroutine is bound to.
func (t *Task) Yield(self *taskctx.TaskContext) {
	t.mu.Lock()
	t.yielding = true
	t.mu.Unlock()
	taskctx.Switch(self, t.rt.schedulerCtx(t.home))
	t.setState(StateRunning)
}

// consumeYield reports and clears whether the task's most recent
// suspension was a voluntary Yield rather than a Park, so the stackful
// executor can tell the two outcomes apart after Switch returns.
func (t *Task) consumeYield() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	y := t.yielding
	t.yielding = false
	return y
}
