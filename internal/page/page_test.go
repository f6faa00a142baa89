package page

import (
	"testing"

	"eonixcore/internal/physmem"
)

func TestRefcountSharing(t *testing.T) {
	a, err := physmem.NewArena(4, 0)
	if err != nil {
		t.Fatalf("NewArena: %v", err)
	}
	defer a.Close()

	p, ok := AllocOrder(a, 0)
	if !ok {
		t.Fatalf("alloc failed")
	}
	if !p.IsExclusive() {
		t.Fatalf("expected exclusive after alloc")
	}

	q := p.Clone()
	if p.IsExclusive() || q.IsExclusive() {
		t.Fatalf("expected shared (refcount 2) after clone")
	}

	p.Drop()
	if q.a.Frame(q.pfn).RefCount() != 1 {
		t.Fatalf("expected refcount 1 after one drop")
	}

	q.Drop()
	// Only an order-2 block covering all 4 frames proves the frame came back.
	if _, ok := a.AllocOrder(2); !ok {
		t.Fatalf("expected frame returned to buddy after last drop")
	}
}

func TestRangeCoversFullOrder(t *testing.T) {
	a, err := physmem.NewArena(8, 0)
	if err != nil {
		t.Fatalf("NewArena: %v", err)
	}
	defer a.Close()

	p, ok := AllocOrder(a, 2) // 4 pages
	if !ok {
		t.Fatalf("alloc failed")
	}
	defer p.Drop()

	r := p.Range()
	if r.Start != p.Start() {
		t.Fatalf("expected range start %d, got %d", p.Start(), r.Start)
	}
	if got, want := r.End-r.Start, physmem.PAddr(4*physmem.PGSIZE); got != want {
		t.Fatalf("expected range length %d, got %d", want, got)
	}
}

func TestDoubleDropPanics(t *testing.T) {
	a, err := physmem.NewArena(4, 0)
	if err != nil {
		t.Fatalf("NewArena: %v", err)
	}
	defer a.Close()

	p, _ := AllocOrder(a, 0)
	p.Drop()

	defer func() {
		if r := recover(); r == nil {
			t.Fatalf("expected panic on double drop")
		}
	}()
	p.Drop()
}
