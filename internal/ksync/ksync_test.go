package ksync

import (
	"sync"
	"sync/atomic"
	"testing"
)

func TestWaitListFIFOFairness(t *testing.T) {
	wl := NewWaitList(nil)
	var order []int
	var mu sync.Mutex
	var wg sync.WaitGroup

	const n = 5
	appended := make(chan struct{})
	for i := 0; i < n; i++ {
		i := i
		w := wl.Add()
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-w.Ready()
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
			appended <- struct{}{}
		}()
	}

	// Wait for each woken waiter to record itself before the next
	// notification, so order reflects notification order rather than
	// goroutine scheduling order.
	for i := 0; i < n; i++ {
		wl.NotifyOne()
		<-appended
	}
	wg.Wait()

	for i, v := range order {
		if v != i {
			t.Fatalf("wait list not FIFO: got %v", order)
		}
	}
}

func TestWaiterCloseRemovesSelf(t *testing.T) {
	wl := NewWaitList(nil)
	w := wl.Add()
	if wl.Len() != 1 {
		t.Fatalf("expected 1 pending waiter")
	}
	w.Close()
	if wl.Len() != 0 {
		t.Fatalf("expected waiter to remove itself on Close")
	}
}

func TestMutexMutualExclusion(t *testing.T) {
	m := NewMutex(nil)
	counter := 0
	var wg sync.WaitGroup
	const n = 200
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.Lock()
			counter++
			m.Unlock()
		}()
	}
	wg.Wait()
	if counter != n {
		t.Fatalf("expected %d, got %d", n, counter)
	}
}

func TestRwLockReadersConcurrentWritersExclusive(t *testing.T) {
	rw := NewRwLock(nil)
	var active int32
	var maxSeen int32
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rw.RLock()
			n := atomic.AddInt32(&active, 1)
			for {
				m := atomic.LoadInt32(&maxSeen)
				if n <= m || atomic.CompareAndSwapInt32(&maxSeen, m, n) {
					break
				}
			}
			atomic.AddInt32(&active, -1)
			rw.RUnlock()
		}()
	}
	wg.Wait()
	if maxSeen < 1 {
		t.Fatalf("expected at least one concurrent reader")
	}

	rw.Lock()
	if s := rw.state.Load(); s != -1 {
		t.Fatalf("expected a write hold to mark the lock write-held (-1), got state %d", s)
	}
	rw.Unlock()
}

func TestLazyLockRunsOnce(t *testing.T) {
	var calls int32
	ll := NewLazyLock(func() int {
		atomic.AddInt32(&calls, 1)
		return 42
	})

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if v := *ll.Get(); v != 42 {
				t.Errorf("expected 42, got %d", v)
			}
		}()
	}
	wg.Wait()
	if calls != 1 {
		t.Fatalf("expected exactly 1 init call, got %d", calls)
	}
}

func TestRCUSynchronizeWaitsForReaders(t *testing.T) {
	d := NewRCUDomain(nil)
	var ptr RCUPointer[int]
	old := 1
	ptr.Swap(&old)

	g := d.Begin()
	got := ptr.Load()
	if *got != 1 {
		t.Fatalf("expected 1, got %d", *got)
	}

	done := make(chan struct{})
	go func() {
		d.Synchronize()
		close(done)
	}()

	select {
	case <-done:
		t.Fatalf("Synchronize returned before reader released")
	default:
	}

	g.End()
	<-done
}
