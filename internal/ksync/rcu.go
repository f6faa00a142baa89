package ksync

import "sync/atomic"

// RCUDomain is the global quiescence semaphore of spec.md §4.10: readers
// hold a read lock for the duration of their borrow, and Synchronize
// acquires the write lock, which cannot succeed until every prior reader
// has released -- the textbook RCU grace period, built directly on
// RwLock rather than a bespoke epoch counter.
type RCUDomain struct {
	quiescence *RwLock
}

// NewRCUDomain constructs an RCU domain.
func NewRCUDomain(hart Preemptible) *RCUDomain {
	return &RCUDomain{quiescence: NewRwLock(hart)}
}

// ReadGuard marks an active RCU read-side critical section; Release
// (via End) must be called once the caller is done dereferencing values
// obtained from an RCUPointer during the section.
type ReadGuard struct{ d *RCUDomain }

// Begin starts a read-side critical section.
func (d *RCUDomain) Begin() *ReadGuard {
	d.quiescence.RLock()
	return &ReadGuard{d: d}
}

// End ends the read-side critical section.
func (g *ReadGuard) End() { g.d.quiescence.RUnlock() }

// Synchronize blocks until every reader that started before this call
// has called End, guaranteeing the caller may now safely reclaim
// anything it has just RCUPointer.Swap'd out.
func (d *RCUDomain) Synchronize() {
	d.quiescence.Lock()
	d.quiescence.Unlock()
}

// RCUPointer is an AtomicPtr<T>: readers Load it inside a read-side
// section (Acquire), writers Swap it (AcqRel) and are handed back the
// old value to reclaim after a Synchronize -- spec.md §4.10's
// "call_rcu" deferred free, made explicit here rather than hidden behind
// a callback queue.
type RCUPointer[T any] struct {
	p atomic.Pointer[T]
}

// Load returns the current value. Must be called within a ReadGuard's
// section.
func (r *RCUPointer[T]) Load() *T { return r.p.Load() }

// Swap installs v and returns the previous value, which the caller must
// not free until a subsequent RCUDomain.Synchronize returns.
func (r *RCUPointer[T]) Swap(v *T) *T { return r.p.Swap(v) }
