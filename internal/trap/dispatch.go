package trap

import (
	"eonixcore/internal/diag"
	"eonixcore/internal/percpu"
	"eonixcore/internal/taskctx"
)

// captured is the per-CPU "captured_trap_context = target; handler =
// captured_trap_handler" slot of spec.md §4.8 step 2.
type captured struct {
	target   *TrapContext
	capturer *taskctx.TaskContext
}

// Dispatcher owns the per-CPU captured-trap slot and the normal
// TRAP_HANDLER dispatch function for every hart it serves.
type Dispatcher struct {
	handler  func(h *percpu.Hart, tc *TrapContext)
	captured *percpu.Var[*captured]
}

// NewDispatcher returns a Dispatcher for nharts, invoking handler for
// any trap that is not a captured-trap return.
func NewDispatcher(nharts int, handler func(h *percpu.Hart, tc *TrapContext)) *Dispatcher {
	return &Dispatcher{
		handler:  handler,
		captured: percpu.NewVar(nharts, func() *captured { return nil }),
	}
}

// CapturedTrapReturn implements spec.md §4.8's steps 1-3: it installs
// target as h's captured trap frame, then switches from capturerCtx into
// a freshly spawned goroutine that runs enterUser(target) -- standing in
// for "falls into the standard trap-return epilogue, restoring registers
// from *sp and executing the arch's return-from-trap." Switch does not
// return to the caller until the user task later traps and this
// Dispatcher routes it back via Trap.
func (d *Dispatcher) CapturedTrapReturn(h *percpu.Hart, capturerCtx *taskctx.TaskContext, target *TrapContext, enterUser func(self *taskctx.TaskContext, tc *TrapContext)) {
	h.PreemptDisable()
	d.captured.Set(h, &captured{target: target, capturer: capturerCtx})
	h.PreemptEnable()

	toCtx := taskctx.Call(func(self *taskctx.TaskContext, arg any) {
		enterUser(self, target)
	}, nil, capturerCtx)

	taskctx.Switch(capturerCtx, toCtx)
}

// Trap is the trap-entry path of spec.md §4.8 steps 3-5: classify tc's
// cause (the caller has already done so via a Classify* helper and
// called tc.SetTrapType), then either perform the captured-trap return
// back to the waiting kernel caller -- if a captured slot is installed
// for h -- or invoke the ordinary per-CPU dispatch handler. self is the
// TaskContext of the goroutine currently executing the trapping code
// (the one enterUser is running on), needed as the "from" side of the
// captured-trap-return Switch.
func (d *Dispatcher) Trap(h *percpu.Hart, self *taskctx.TaskContext, tc *TrapContext) {
	h.PreemptDisable()
	c := d.captured.Get(h)
	if c != nil {
		d.captured.Set(h, nil)
	}
	h.PreemptEnable()

	if c != nil {
		diag.Assert(c.target == tc, "trap: captured-trap return target mismatch")
		taskctx.Switch(self, c.capturer)
		return
	}
	d.handler(h, tc)
}
