// Package ksync implements the core's synchronization primitives of
// spec.md §4.10: Spin, SpinIrq, async RwLock, async Mutex, LazyLock,
// WaitList, and RCU.
package ksync

import (
	"sync/atomic"
)

// Preemptible is implemented by whatever stands in for "the current
// hart" in a given build -- percpu.Hart in this module. Spin/SpinIrq
// disable preemption for the duration of the critical section, per
// spec.md §4.6's safety contract and §5's "preemption is disabled while
// holding any Spin/SpinIrq."
type Preemptible interface {
	PreemptDisable()
	PreemptEnable()
}

// Spin is a test-and-set spinlock. Guards are deliberately not exposed as
// a separate value (Go has no !Send to enforce "don't hand this to
// another hart" at compile time); callers are expected to Lock/Unlock
// from the same goroutine, matching the teacher's convention of embedding
// a bare lock rather than threading a guard object through call chains.
type Spin struct {
	locked atomic.Bool
	hart   Preemptible
}

// NewSpin returns a Spin that disables preemption on hart while held.
// hart may be nil in contexts (tests, non-hart goroutines) that don't
// model preemption.
func NewSpin(hart Preemptible) Spin {
	return Spin{hart: hart}
}

// Lock spins until the lock is acquired, disabling preemption first.
func (s *Spin) Lock() {
	if s.hart != nil {
		s.hart.PreemptDisable()
	}
	for !s.locked.CompareAndSwap(false, true) {
		// busy-wait: spinlocks must not be held across a suspension
		// point, so there is nothing better to do here than spin.
	}
}

// TryLock attempts to acquire the lock without blocking.
func (s *Spin) TryLock() bool {
	if s.hart != nil {
		s.hart.PreemptDisable()
	}
	if s.locked.CompareAndSwap(false, true) {
		return true
	}
	if s.hart != nil {
		s.hart.PreemptEnable()
	}
	return false
}

// Unlock releases the lock and restores preemption.
func (s *Spin) Unlock() {
	s.locked.Store(false)
	if s.hart != nil {
		s.hart.PreemptEnable()
	}
}

// SpinIrq is a Spin that additionally saves and restores the local
// interrupt-enable state around the critical section, per spec.md
// §4.10's SpinIrq = Spin + IRQ save/restore.
type SpinIrq struct {
	Spin
	irq IrqController
	was bool
}

// IrqController abstracts "disable/enable/query local interrupts" so
// SpinIrq can be used both against a real Hart and against a fake in
// tests.
type IrqController interface {
	IrqSave() bool
	IrqRestore(bool)
}

// NewSpinIrq returns a SpinIrq guarding hart's preemption and irq's
// interrupt state.
func NewSpinIrq(hart Preemptible, irq IrqController) SpinIrq {
	return SpinIrq{Spin: NewSpin(hart), irq: irq}
}

// Lock acquires the lock and disables local interrupts.
func (s *SpinIrq) Lock() {
	var was bool
	if s.irq != nil {
		was = s.irq.IrqSave()
	}
	s.Spin.Lock()
	s.was = was
}

// Unlock releases the lock and restores the interrupt state captured by
// the matching Lock.
func (s *SpinIrq) Unlock() {
	was := s.was
	s.Spin.Unlock()
	if s.irq != nil {
		s.irq.IrqRestore(was)
	}
}
