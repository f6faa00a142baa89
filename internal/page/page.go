// Package page implements the refcounted Page/Folio handle of spec.md
// §3-§4: a unique-or-shared owning reference to a 2^order run of frames
// allocated by the buddy allocator.
package page

import (
	"sync/atomic"

	"eonixcore/internal/diag"
	"eonixcore/internal/physmem"
)

// Allocator is the subset of *physmem.Arena a Page needs. Declared as an
// interface so pagecache's per-CPU magazine can sit in front of it
// transparently (spec.md §4.3: "Slab -> PerCPU magazine -> Buddy").
type Allocator interface {
	AllocOrder(order int) (physmem.PFN, bool)
	Dealloc(pfn physmem.PFN, order int)
	Frame(pfn physmem.PFN) *physmem.Frame
	Bytes(pfn physmem.PFN) []byte
}

// Page is a unique-or-shared owning handle for a run of 2^order frames.
// Clone is refcount++; Drop is refcount--, returning the frame to the
// allocator at zero. The zero Page value is not valid; use AllocOrder.
type Page struct {
	a       Allocator
	pfn     physmem.PFN
	order   int
	dropped atomic.Bool
}

// AllocOrder allocates a fresh run of 2^order frames, returning a Page
// with refcount 1. Returns false on OOM.
func AllocOrder(a Allocator, order int) (*Page, bool) {
	pfn, ok := a.AllocOrder(order)
	if !ok {
		return nil, false
	}
	f := a.Frame(pfn)
	f.Order = uint8(order)
	f.Flags |= physmem.FlagPresent
	f.RefUp()
	return &Page{a: a, pfn: pfn, order: order}, true
}

// PFN returns the head frame number.
func (p *Page) PFN() physmem.PFN { return p.pfn }

// Order returns the allocation order.
func (p *Page) Order() int { return p.order }

// Start returns the physical address of the first byte of the page.
func (p *Page) Start() physmem.PAddr { return p.pfn.Addr() }

// PRange is a half-open physical address range [Start, End), per
// spec.md §6's range() -> PRange.
type PRange struct {
	Start, End physmem.PAddr
}

// Range returns the full [start, start+2^order*PAGESIZE) span this page
// covers, per spec.md §6: "range() -> PRange".
func (p *Page) Range() PRange {
	start := p.Start()
	length := physmem.PAddr(1<<p.order) * physmem.PGSIZE
	return PRange{Start: start, End: start + length}
}

// Clone increments the refcount (Relaxed, per spec.md §5) and returns a
// new independent handle to the same frames.
func (p *Page) Clone() *Page {
	p.a.Frame(p.pfn).RefUp()
	return &Page{a: p.a, pfn: p.pfn, order: p.order}
}

// IsExclusive reports whether this is the only live handle to the
// frames (refcount == 1), Acquire-ordered.
func (p *Page) IsExclusive() bool {
	return p.a.Frame(p.pfn).RefCount() == 1
}

// AsBytes returns a mutable view of the page's bytes. Only valid while
// the page is exclusively owned -- spec.md §6.
func (p *Page) AsBytes() []byte {
	diag.Assert(p.IsExclusive(), "page: AsBytes called on a shared page")
	return p.a.Bytes(p.pfn)
}

// Drop decrements the refcount (AcqRel per spec.md §5) and, if it
// reaches zero, returns the frames to the allocator. Panics if called
// more than once on the same handle.
func (p *Page) Drop() {
	if !p.dropped.CompareAndSwap(false, true) {
		diag.Fatal("page: double drop at pfn %d", p.pfn)
	}
	if p.a.Frame(p.pfn).RefDown() == 0 {
		p.a.Dealloc(p.pfn, p.order)
	}
}
