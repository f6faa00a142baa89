// Package percpu implements the statically-reserved, per-hart mutable
// state of spec.md §4.6: Go has no linker-section support to place a
// `#[percpu]` static once per hart, so per spec.md §9's own guidance we
// emulate it with an array indexed by current_cpu(), with wrappers that
// assert preemption is disabled.
//
// Unlike a real kernel's implicit "current hart" register, a hosted Go
// program has no architectural analogue of %gs/tp/r21 to smuggle hart
// identity through. Rather than fake one with goroutine-local-storage
// hacks, every accessor here takes an explicit *Hart -- the caller (which
// is, by construction, running on behalf of exactly one hart at a time)
// already has one in scope. This choice is recorded in DESIGN.md.
package percpu

import (
	"sync/atomic"

	"eonixcore/internal/diag"
)

// Hart is one simulated hardware thread: its identity, preemption nesting
// count, and local interrupt-enable flag. It implements ksync.Preemptible
// and ksync.IrqController so Spin/SpinIrq can be built directly against
// it.
type Hart struct {
	ID int

	preemptCount atomic.Int32
	irqEnabled   atomic.Bool
}

// NewHart constructs a Hart with interrupts initially enabled and no
// preemption-disabling sections active.
func NewHart(id int) *Hart {
	h := &Hart{ID: id}
	h.irqEnabled.Store(true)
	return h
}

// PreemptDisable increments the nesting count. Per spec.md §5, this must
// bracket every percpu access and every Spin/SpinIrq critical section.
func (h *Hart) PreemptDisable() { h.preemptCount.Add(1) }

// PreemptEnable decrements the nesting count. Panics if called without a
// matching PreemptDisable -- an invariant violation, not a recoverable
// error.
func (h *Hart) PreemptEnable() {
	if h.preemptCount.Add(-1) < 0 {
		diag.Fatal("percpu: hart %d preempt count underflow", h.ID)
	}
}

// Preemptible reports whether this hart currently allows preemption.
func (h *Hart) Preemptible() bool { return h.preemptCount.Load() == 0 }

// IrqSave disables local interrupts and returns whether they were
// previously enabled, for SpinIrq's save/restore discipline.
func (h *Hart) IrqSave() bool { return h.irqEnabled.Swap(false) }

// IrqRestore restores the local interrupt-enable flag captured by
// IrqSave.
func (h *Hart) IrqRestore(was bool) { h.irqEnabled.Store(was) }
