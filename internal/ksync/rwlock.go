package ksync

import "sync/atomic"

// RwLock is the core's async reader/writer lock of spec.md §4.10: an
// atomic counter (-1 = write-held, n>=0 = n active readers) plus separate
// reader and writer wait lists. Readers block when the counter is
// negative or a writer is already waiting, preventing writer starvation.
type RwLock struct {
	state   atomic.Int64 // -1 write-held, else reader count
	writers *WaitList
	readers *WaitList
	waiting atomic.Int64 // writers currently queued
}

// NewRwLock constructs an unlocked RwLock.
func NewRwLock(hart Preemptible) *RwLock {
	return &RwLock{
		writers: NewWaitList(hart),
		readers: NewWaitList(hart),
	}
}

// RLock acquires a shared (read) hold, blocking while a writer holds or
// is waiting for the lock.
func (rw *RwLock) RLock() {
	for {
		if rw.waiting.Load() == 0 {
			for {
				s := rw.state.Load()
				if s < 0 {
					break
				}
				if rw.state.CompareAndSwap(s, s+1) {
					return
				}
			}
		}
		w := rw.readers.Add()
		if rw.waiting.Load() == 0 && rw.state.Load() >= 0 {
			w.Close()
			continue
		}
		<-w.Ready()
	}
}

// RUnlock releases a shared hold, handing the lock to a waiting writer if
// this was the last reader.
func (rw *RwLock) RUnlock() {
	if rw.state.Add(-1) == 0 && rw.writers.Len() > 0 {
		if rw.state.CompareAndSwap(0, -1) {
			rw.writers.NotifyOne()
		}
	}
}

// Lock acquires an exclusive (write) hold.
func (rw *RwLock) Lock() {
	rw.waiting.Add(1)
	defer rw.waiting.Add(-1)
	for {
		if rw.state.CompareAndSwap(0, -1) {
			return
		}
		w := rw.writers.Add()
		if rw.state.CompareAndSwap(0, -1) {
			w.Close()
			return
		}
		<-w.Ready()
		return
	}
}

// Unlock releases an exclusive hold. Writers are preferred over readers
// on hand-off to keep the no-starvation guarantee.
func (rw *RwLock) Unlock() {
	rw.state.Store(0)
	if rw.writers.Len() > 0 {
		if rw.state.CompareAndSwap(0, -1) {
			rw.writers.NotifyOne()
			return
		}
	}
	rw.readers.NotifyAll()
}
