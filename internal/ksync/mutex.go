package ksync

import "sync/atomic"

// Mutex is the core's "async" mutual-exclusion primitive: a single
// AtomicBool plus one wait list, per spec.md §4.10. In this hosted
// realization, tasks are goroutines, so "await"-ing the mutex is simply
// blocking the calling goroutine on the returned waiter's channel --
// there is no separate poll loop to drive.
type Mutex struct {
	held  atomic.Bool
	waits *WaitList
}

// NewMutex constructs an unlocked Mutex.
func NewMutex(hart Preemptible) *Mutex {
	return &Mutex{waits: NewWaitList(hart)}
}

// Lock blocks the calling goroutine until the mutex is acquired. Hand-off
// is fair-ish: a waiter woken by Unlock always gets the lock before a
// fresh TryLock can steal it, because Unlock only clears `held` after
// directly handing the flag to the next waiter (or, if none, clearing it
// for the next TryLock comer).
func (m *Mutex) Lock() {
	for {
		if m.held.CompareAndSwap(false, true) {
			return
		}
		w := m.waits.Add()
		// Re-check after registering: Unlock between our failed CAS
		// and Add would otherwise be missed.
		if m.held.CompareAndSwap(false, true) {
			w.Close()
			return
		}
		<-w.Ready()
		// Unlock hands ownership directly to us without clearing
		// `held`, so we own the mutex now -- no need to re-CAS.
		return
	}
}

// TryLock attempts to acquire without blocking.
func (m *Mutex) TryLock() bool {
	return m.held.CompareAndSwap(false, true)
}

// Unlock releases the mutex, waking one waiter if any are queued. The
// flag is left held across a direct hand-off so a concurrent TryLock
// cannot jump the FIFO queue.
func (m *Mutex) Unlock() {
	if m.waits.Len() > 0 {
		m.waits.NotifyOne()
		return
	}
	m.held.Store(false)
}
