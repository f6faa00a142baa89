package sched

import (
	"context"
	"runtime"
	"sync/atomic"

	"eonixcore/internal/ksync"
	"eonixcore/internal/percpu"
	"eonixcore/internal/taskctx"
)

// readyQueue is one hart's FIFO of runnable tasks, per spec.md §4.9:
// "Each CPU owns a ready queue (FIFO of Task)."
type readyQueue struct {
	lock ksync.Spin
	q    []*Task
}

func (rq *readyQueue) push(t *Task) {
	rq.lock.Lock()
	rq.q = append(rq.q, t)
	rq.lock.Unlock()
}

func (rq *readyQueue) pop() *Task {
	rq.lock.Lock()
	defer rq.lock.Unlock()
	if len(rq.q) == 0 {
		return nil
	}
	t := rq.q[0]
	rq.q = rq.q[1:]
	return t
}

// Runtime owns one ready queue and one scheduler TaskContext per hart,
// the per-hart current-task slot read by Current, and round-robins new
// Spawns across harts.
type Runtime struct {
	nharts  int
	rqs     []*readyQueue
	schedCtxs []*taskctx.TaskContext
	current *percpu.Var[*Task]
	nextID  atomic.Uint64
	nextHome atomic.Uint64
}

// NewRuntime constructs a Runtime serving nharts harts.
func NewRuntime(nharts int) *Runtime {
	rt := &Runtime{
		nharts:    nharts,
		rqs:       make([]*readyQueue, nharts),
		schedCtxs: make([]*taskctx.TaskContext, nharts),
		current:   percpu.NewVar[*Task](nharts, func() *Task { return nil }),
	}
	for i := range rt.rqs {
		rt.rqs[i] = &readyQueue{}
		rt.schedCtxs[i] = taskctx.New()
	}
	return rt
}

func (rt *Runtime) schedulerCtx(home int) *taskctx.TaskContext { return rt.schedCtxs[home] }

// JoinHandle is returned by Spawn; Join parks the caller until the
// task's body has returned, per spec.md §6.
type JoinHandle struct {
	done chan any
}

// Join blocks until the spawned task completes and returns its result.
func (h *JoinHandle) Join(ctx context.Context) (any, error) {
	select {
	case v := <-h.done:
		return v, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Spawn creates a stackful task running body and places it READY on a
// round-robin-chosen hart's queue, per spec.md §4.9's "new -> RUNNING
// (conceptual initial state before first schedule)" -- materialized
// here as landing directly in StateReady, since nothing runs a task
// before the scheduler picks it up.
func (rt *Runtime) Spawn(body func(self *taskctx.TaskContext, task *Task) any) *JoinHandle {
	home := int(rt.nextHome.Add(1)-1) % rt.nharts

	t := &Task{id: rt.nextID.Add(1), home: home, rt: rt, state: StateReady, done: make(chan any, 1)}
	t.exec = newStackfulExecutor(func(self *taskctx.TaskContext) any {
		return body(self, t)
	}, rt.schedCtxs[home], t)

	t.onRQ = true
	rt.rqs[home].push(t)
	return &JoinHandle{done: t.done}
}

// SpawnStackless creates a stackless task polling fut in place, placed
// READY on a round-robin-chosen hart's queue.
func (rt *Runtime) SpawnStackless(fut Future) *JoinHandle {
	home := int(rt.nextHome.Add(1)-1) % rt.nharts

	t := &Task{id: rt.nextID.Add(1), home: home, rt: rt, state: StateReady, done: make(chan any, 1)}
	ex := &stacklessExecutor{fut: fut}
	ex.wake = func() { rt.wake(t) }
	t.exec = ex

	t.onRQ = true
	rt.rqs[home].push(t)
	return &JoinHandle{done: t.done}
}

// wake moves t from StateParked/StateSleeping back to StateReady and
// re-enqueues it on its home CPU, per spec.md §4.9: "Waker.wake: SLEEPING
// -> RUNNING, then enqueue on home CPU's rq." (RUNNING is only entered
// once the scheduler actually picks it back up; READY is the accurate
// intermediate state here.)
func (rt *Runtime) wake(t *Task) {
	t.mu.Lock()
	if t.onRQ {
		t.mu.Unlock()
		return
	}
	t.state = StateReady
	t.onRQ = true
	t.mu.Unlock()
	rt.rqs[t.home].push(t)
}

// Current returns the task currently running on h, or nil if the
// scheduler itself is running (between tasks).
func (rt *Runtime) Current(h *percpu.Hart) *Task {
	h.PreemptDisable()
	defer h.PreemptEnable()
	return rt.current.Get(h)
}

// runOnce pops and runs one task from h's ready queue, if any, returning
// whether a task was actually run.
func (rt *Runtime) runOnce(h *percpu.Hart) bool {
	home := h.ID
	t := rt.rqs[home].pop()
	if t == nil {
		return false
	}

	t.mu.Lock()
	t.onRQ = false
	t.state = StateRunning
	t.mu.Unlock()

	h.PreemptDisable()
	rt.current.Set(h, t)
	h.PreemptEnable()

	out, result := t.exec.progress(rt.schedCtxs[home])

	h.PreemptDisable()
	rt.current.Set(h, nil)
	h.PreemptEnable()

	switch out {
	case outcomeYielded:
		t.mu.Lock()
		t.state = StateReady
		t.onRQ = true
		t.mu.Unlock()
		rt.rqs[home].push(t)
	case outcomeParked:
		// Task.Park already set StateParked before switching back; it
		// stays off the rq until rt.wake is called on it.
	case outcomeSleeping:
		t.mu.Lock()
		// A Waker fired during Poll has already requeued the task as
		// StateReady; leave that in place.
		if !t.onRQ {
			t.state = StateSleeping
		}
		t.mu.Unlock()
	case outcomeDone:
		t.mu.Lock()
		t.state = StateDead
		t.mu.Unlock()
		t.done <- result
	}
	return true
}

// Enter drives h's ready queue forever, per spec.md §6: "Runtime::enter()
// never returns; drives the local ready queue forever." ctx provides the
// only way to stop it, for tests and graceful simulated shutdown.
func (rt *Runtime) Enter(ctx context.Context, h *percpu.Hart) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		if !rt.runOnce(h) {
			runtime.Gosched()
		}
	}
}
