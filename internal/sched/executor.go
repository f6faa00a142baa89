package sched

import "eonixcore/internal/taskctx"

// outcome is what an Executor's Progress step tells the scheduler to do
// with the task next.
type outcome int

const (
	outcomeYielded  outcome = iota // ran a step, wants to stay READY
	outcomeParked                  // stackful task off the rq until Park's Switch returns
	outcomeSleeping                // stackless task off the rq until its Waker fires
	outcomeDone                    // task body finished
)

// executor is the per-task strategy for running one scheduling step,
// per spec.md §4.9's stackful/stackless split.
type executor interface {
	// progress runs the task for one scheduling quantum from the
	// scheduler goroutine bound to schedCtx, returning what the
	// scheduler should do with the task next and, if outcomeDone, the
	// task's result.
	progress(schedCtx *taskctx.TaskContext) (outcome, any)
}

// Future is the stackless executor's pollable unit of work: a task body
// with no owned stack, polled in place on the scheduler's own goroutine.
// wake, if the future returns done=false, is the task's Waker -- calling
// it later is what moves the task from StateSleeping back to StateReady.
type Future interface {
	Poll(wake func()) (done bool, result any)
}

// stackfulExecutor owns a goroutine (a "kernel stack") created via
// taskctx.Call. progress switches into it and blocks until the task
// parks or finishes, per spec.md §4.9: "progress() calls
// TaskContext::switch(scheduler_ctx, task_ctx) ... full blocking
// semantics."
type stackfulExecutor struct {
	ctx    *taskctx.TaskContext
	task   *Task
	result any
	done   bool
}

func newStackfulExecutor(body func(self *taskctx.TaskContext) any, schedCtx *taskctx.TaskContext, t *Task) *stackfulExecutor {
	ex := &stackfulExecutor{task: t}
	ex.ctx = taskctx.Call(func(self *taskctx.TaskContext, arg any) {
		ex.result = body(self)
		ex.done = true
	}, nil, schedCtx)
	return ex
}

// progress switches into the task's goroutine and blocks until it parks,
// yields, or finishes. Which of park/yield happened is read back off the
// task itself (consumeYield), since the goroutine side has already
// returned control by the time Switch comes back.
func (ex *stackfulExecutor) progress(schedCtx *taskctx.TaskContext) (outcome, any) {
	taskctx.Switch(schedCtx, ex.ctx)
	if ex.done {
		return outcomeDone, ex.result
	}
	if ex.task.consumeYield() {
		return outcomeYielded, nil
	}
	return outcomeParked, nil
}

// stacklessExecutor has no owned goroutine: progress polls fut directly
// on the scheduler's own call stack, per spec.md §4.9: "polls the task's
// Future in place ... using a Waker cloned from the task. On
// Poll::Pending, the executor returns and the scheduler picks another
// task."
type stacklessExecutor struct {
	fut  Future
	wake func()
}

func (ex *stacklessExecutor) progress(_ *taskctx.TaskContext) (outcome, any) {
	done, result := ex.fut.Poll(ex.wake)
	if done {
		return outcomeDone, result
	}
	return outcomeSleeping, nil
}
