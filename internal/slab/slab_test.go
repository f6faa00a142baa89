package slab

import (
	"testing"
	"unsafe"

	"eonixcore/internal/physmem"
)

func TestCacheLineCrossingFillsAndDrains(t *testing.T) {
	a, err := physmem.NewArena(16, 0)
	if err != nil {
		t.Fatalf("NewArena: %v", err)
	}
	defer a.Close()

	c := NewCache(a, 24) // rounds up to the 32-byte class
	if c.ObjectSize() != 32 {
		t.Fatalf("expected rounded object size 32, got %d", c.ObjectSize())
	}

	slotsPerPage := physmem.PGSIZE / 32 // 128
	ptrs := make([]unsafe.Pointer, 0, slotsPerPage+1)
	for i := 0; i < slotsPerPage; i++ {
		ptrs = append(ptrs, c.Alloc())
	}
	if got := c.Samples(); got["full"] != 1 || got["partial"] != 0 || got["empty"] != 0 {
		t.Fatalf("expected exactly one full page after filling it, got %v", got)
	}

	// the 129th allocation must charge a new page from the allocator.
	ptrs = append(ptrs, c.Alloc())
	if got := c.Samples(); got["full"] != 1 || got["partial"] != 1 {
		t.Fatalf("expected a second (partial) page after overflow, got %v", got)
	}

	for _, p := range ptrs {
		c.Dealloc(p, 32)
	}
	// freeing all 128 slots of the first page returns it to empty; freeing
	// the lone slot of the second (overflow) page returns that one to
	// empty too. Neither page is released back to the page allocator.
	if got := c.Samples(); got["empty"] != 2 || got["partial"] != 0 || got["full"] != 0 {
		t.Fatalf("expected both pages on the empty list, got %v", got)
	}
}

func TestSizeClassRounding(t *testing.T) {
	cases := map[int]int{1: 8, 8: 8, 9: 16, 100: 128, 2048: 2048}
	a, err := physmem.NewArena(4, 0)
	if err != nil {
		t.Fatalf("NewArena: %v", err)
	}
	defer a.Close()
	for in, want := range cases {
		c := NewCache(a, in)
		if c.ObjectSize() != want {
			t.Fatalf("size %d: expected class %d, got %d", in, want, c.ObjectSize())
		}
	}
}
