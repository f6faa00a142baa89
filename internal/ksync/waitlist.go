package ksync

import "container/list"

// Waiter is one outstanding wait on a WaitList. Go has no async/await, so
// where the original futures-based design polls a Waker, a Waiter here
// blocks the calling goroutine on Ready() until Notify fires -- the
// stackful-task analogue described in spec.md §4.9. wokenUp mirrors the
// boolean flag the spec's waiter-side future checks on every poll.
type Waiter struct {
	ready   chan struct{}
	wokenUp bool
	elem    *list.Element
	owner   *WaitList
}

// Ready returns a channel that becomes receivable exactly once, when this
// waiter is notified.
func (w *Waiter) Ready() <-chan struct{} { return w.ready }

// Close removes the waiter from its list if it is still pending, mirroring
// the spec's "a dropped still-on-list waiter removes itself under the
// list lock." Safe to call after the waiter has already been notified.
func (w *Waiter) Close() {
	if w.owner == nil {
		return
	}
	w.owner.remove(w)
}

// WaitList is an intrusive, lock-ordered FIFO of pending waiters. NotifyOne
// and NotifyAll wake waiters in the order they called Add, satisfying the WaitList
// fairness property of spec.md §8.
type WaitList struct {
	lock Spin
	l    list.List
}

// NewWaitList constructs an empty wait list. hart may be nil outside a
// per-hart context.
func NewWaitList(hart Preemptible) *WaitList {
	wl := &WaitList{lock: NewSpin(hart)}
	wl.l.Init()
	return wl
}

// Add enqueues a new waiter at the tail of the list and returns it. The
// caller should then select on the returned Waiter's Ready channel.
func (wl *WaitList) Add() *Waiter {
	w := &Waiter{ready: make(chan struct{}), owner: wl}
	wl.lock.Lock()
	w.elem = wl.l.PushBack(w)
	wl.lock.Unlock()
	return w
}

// NotifyOne wakes the single longest-waiting waiter, if any.
func (wl *WaitList) NotifyOne() {
	wl.lock.Lock()
	front := wl.l.Front()
	if front == nil {
		wl.lock.Unlock()
		return
	}
	w := wl.l.Remove(front).(*Waiter)
	wl.lock.Unlock()

	w.wokenUp = true
	w.owner = nil
	close(w.ready)
}

// NotifyAll drains the list, waking every waiter in FIFO order.
func (wl *WaitList) NotifyAll() {
	wl.lock.Lock()
	var woken []*Waiter
	for e := wl.l.Front(); e != nil; {
		next := e.Next()
		woken = append(woken, wl.l.Remove(e).(*Waiter))
		e = next
	}
	wl.lock.Unlock()

	for _, w := range woken {
		w.wokenUp = true
		w.owner = nil
		close(w.ready)
	}
}

// Len reports the number of pending (not yet notified) waiters.
func (wl *WaitList) Len() int {
	wl.lock.Lock()
	defer wl.lock.Unlock()
	return wl.l.Len()
}

func (wl *WaitList) remove(w *Waiter) {
	wl.lock.Lock()
	defer wl.lock.Unlock()
	if w.owner == nil || w.elem == nil {
		return
	}
	wl.l.Remove(w.elem)
	w.owner = nil
}
