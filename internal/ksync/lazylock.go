package ksync

import (
	"runtime"
	"sync/atomic"
)

type lazyState int32

const (
	lazyUninit lazyState = iota
	lazyInitializing
	lazyInit
)

// LazyLock lazily initializes a value exactly once. The first caller to
// CAS Uninit->Initializing runs the initializer and stores Init; every
// other caller spin-waits on Acquire reads of the state until it
// observes Init, per spec.md §4.10.
type LazyLock[T any] struct {
	state atomic.Int32
	value T
	init  func() T
}

// NewLazyLock returns a LazyLock that will call init on first access.
func NewLazyLock[T any](init func() T) *LazyLock[T] {
	return &LazyLock[T]{init: init}
}

// Get returns the lazily-initialized value, running the initializer on
// the calling goroutine if this is the first access.
func (l *LazyLock[T]) Get() *T {
	for {
		switch lazyState(l.state.Load()) {
		case lazyInit:
			return &l.value
		case lazyUninit:
			if l.state.CompareAndSwap(int32(lazyUninit), int32(lazyInitializing)) {
				l.value = l.init()
				l.state.Store(int32(lazyInit))
				return &l.value
			}
		default:
			runtime.Gosched()
		}
	}
}
