package pagecache

import (
	"testing"

	"eonixcore/internal/percpu"
	"eonixcore/internal/physmem"
)

func TestMagazineRefillAndReturn(t *testing.T) {
	a, err := physmem.NewArena(256, 0)
	if err != nil {
		t.Fatalf("NewArena: %v", err)
	}
	defer a.Close()

	c := New(a, 2)
	h0 := percpu.NewHart(0)
	hc := c.For(h0)

	pfn, ok := hc.AllocOrder(0)
	if !ok {
		t.Fatalf("expected magazine refill to succeed")
	}
	hc.Dealloc(pfn, 0)

	samples := c.Samples()
	if samples["hart0_order0"] == 0 {
		t.Fatalf("expected some pages cached in hart 0's magazine, got %v", samples)
	}
}

func TestMagazineIsolatedPerHart(t *testing.T) {
	a, err := physmem.NewArena(256, 0)
	if err != nil {
		t.Fatalf("NewArena: %v", err)
	}
	defer a.Close()

	c := New(a, 2)
	h0 := percpu.NewHart(0)
	h1 := percpu.NewHart(1)

	hc0 := c.For(h0)
	hc0.AllocOrder(0)

	samples := c.Samples()
	if samples["hart1_order0"] != 0 {
		t.Fatalf("expected hart 1's magazine untouched, got %v", samples)
	}
	_ = c.For(h1)
}

func TestBypassAboveCostlyOrder(t *testing.T) {
	a, err := physmem.NewArena(64, 0)
	if err != nil {
		t.Fatalf("NewArena: %v", err)
	}
	defer a.Close()

	c := New(a, 1)
	h0 := percpu.NewHart(0)
	hc := c.For(h0)

	pfn, ok := hc.AllocOrder(CostlyOrder + 1)
	if !ok {
		t.Fatalf("expected direct buddy alloc to succeed")
	}
	hc.Dealloc(pfn, CostlyOrder+1)

	samples := c.Samples()
	for k, v := range samples {
		if v != 0 {
			t.Fatalf("expected no magazine entries for bypassed order, got %s=%d", k, v)
		}
	}
}
