package physmem

import "testing"

func TestAllocFreeOrder0ThenOrder3(t *testing.T) {
	a, err := NewArena(16, 0)
	if err != nil {
		t.Fatalf("NewArena: %v", err)
	}
	defer a.Close()

	p0, ok := a.AllocOrder(0)
	if !ok || p0 != 0 {
		t.Fatalf("expected pfn 0, got %d ok=%v", p0, ok)
	}
	p1, ok := a.AllocOrder(0)
	if !ok || p1 != 1 {
		t.Fatalf("expected pfn 1, got %d ok=%v", p1, ok)
	}

	a.Dealloc(p0, 0)
	a.Dealloc(p1, 0)

	p3, ok := a.AllocOrder(3)
	if !ok || p3 != 0 {
		t.Fatalf("expected reassembled 8-frame run at pfn 0, got %d ok=%v", p3, ok)
	}
}

func TestCoalescingCompleteness(t *testing.T) {
	a, err := NewArena(8, 0)
	if err != nil {
		t.Fatalf("NewArena: %v", err)
	}
	defer a.Close()

	var pfns []PFN
	for i := 0; i < 8; i++ {
		p, ok := a.AllocOrder(0)
		if !ok {
			t.Fatalf("alloc_order(0) failed at i=%d", i)
		}
		pfns = append(pfns, p)
	}
	for _, p := range pfns {
		a.Dealloc(p, 0)
	}

	p, ok := a.AllocOrder(3)
	if !ok || p != 0 {
		t.Fatalf("expected full coalesce back to order 3 at pfn 0, got %d ok=%v", p, ok)
	}
}

func TestOOM(t *testing.T) {
	a, err := NewArena(4, 0)
	if err != nil {
		t.Fatalf("NewArena: %v", err)
	}
	defer a.Close()

	if _, ok := a.AllocOrder(3); ok {
		t.Fatalf("expected OOM at order 3 with only 4 pages")
	}
}

func TestDoubleFreeAsserts(t *testing.T) {
	a, err := NewArena(4, 0)
	if err != nil {
		t.Fatalf("NewArena: %v", err)
	}
	defer a.Close()

	p, _ := a.AllocOrder(0)
	a.Dealloc(p, 0)

	defer func() {
		if r := recover(); r == nil {
			t.Fatalf("expected panic on double free")
		}
	}()
	a.Dealloc(p, 0)
}

func TestAsPtrFromPtrBijection(t *testing.T) {
	a, err := NewArena(4, 0)
	if err != nil {
		t.Fatalf("NewArena: %v", err)
	}
	defer a.Close()

	p, _ := a.AllocOrder(0)
	addr := p.Addr()
	ptr := AsPtr[uint64](a, addr)
	*ptr = 0xdeadbeef

	back := FromPtr(a, ptr)
	if back != addr {
		t.Fatalf("expected %#x, got %#x", addr, back)
	}
}
