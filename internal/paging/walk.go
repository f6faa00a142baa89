package paging

import (
	"iter"
	"unsafe"

	"eonixcore/internal/archspec"
	"eonixcore/internal/diag"
	"eonixcore/internal/physmem"
)

func wordsOf(b []byte) []uint64 {
	return unsafe.Slice((*uint64)(unsafe.Pointer(&b[0])), len(b)/8)
}

func index(v VAddr, lvl archspec.Level) int {
	mask := uint64(1)<<lvl.Width - 1
	return int((uint64(v) >> lvl.Shift) & mask)
}

// IterUser yields the leaf PTE for each virtual page in r, in ascending
// order, materializing intermediate tables flagged USER on demand, per
// spec.md §4.5.
func (pt *PageTable) IterUser(r Range) iter.Seq[*PTE] { return pt.iterate(r, true) }

// IterKernel is IterUser's kernel-flavor counterpart: intermediates it
// creates are flagged GLOBAL instead of USER.
func (pt *PageTable) IterKernel(r Range) iter.Seq[*PTE] { return pt.iterate(r, false) }

func (pt *PageTable) iterate(r Range, user bool) iter.Seq[*PTE] {
	return func(yield func(*PTE) bool) {
		n := pagesFor(r)
		for i := 0; i < n; i++ {
			vaddr := r.Start + VAddr(i)*physmem.PGSIZE
			pte := pt.walk(vaddr, user)
			if !yield(pte) {
				return
			}
		}
	}
}

// walk descends from the root to the leaf level for vaddr, allocating
// and installing any missing intermediate tables along the way, and
// returns a handle to the leaf slot.
func (pt *PageTable) walk(vaddr VAddr, user bool) *PTE {
	levels := pt.mode.Levels
	enc := pt.mode.Encode
	curPFN := pt.root.PFN()

	for lvl := 0; lvl < len(levels)-1; lvl++ {
		idx := index(vaddr, levels[lvl])
		ws := wordsOf(pt.alloc.Bytes(curPFN))
		raw := ws[idx]

		if !enc.IsPresent(raw) {
			childPFN := pt.allocTable()
			attr := archspec.TableAttr{Present: true, Accessed: true}
			if user {
				attr.User = true
			} else {
				attr.Global = true
			}
			ws[idx] = enc.PackTable(uint64(childPFN), attr)
			curPFN = childPFN
			continue
		}

		_, ok := enc.AsTableAttr(raw)
		diag.Assert(ok, "paging: huge PTE encountered during a non-huge walk")
		curPFN = physmem.PFN(enc.UnpackPFN(raw))
	}

	idx := index(vaddr, levels[len(levels)-1])
	ws := wordsOf(pt.alloc.Bytes(curPFN))
	return &PTE{word: &ws[idx], enc: enc}
}

// allocTable charges a fresh zeroed page for use as an intermediate
// table, tracking its Page handle so Drop can balance the refcount it
// incremented.
func (pt *PageTable) allocTable() physmem.PFN {
	p := pt.allocOrPanic()
	zero(p.AsBytes())
	pfn := p.PFN()
	pt.tables[pfn] = p
	return pfn
}

func (pt *PageTable) freeTable(pfn physmem.PFN) {
	p, ok := pt.tables[pfn]
	diag.Assert(ok, "paging: attempted to free a table this PageTable does not own")
	delete(pt.tables, pfn)
	p.Drop()
}

// Drop recursively frees every present, USER-flagged intermediate table
// reachable from the root's user half, balancing the refcounts iter_user
// incremented when it materialized them. Kernel-half entries are never
// touched -- they belong to a sibling global table, per spec.md §4.5.
func (pt *PageTable) Drop() {
	pt.dropLevel(pt.root.PFN(), 0)
	pt.root.Drop()
}

func (pt *PageTable) dropLevel(pfn physmem.PFN, lvl int) {
	if lvl >= len(pt.mode.Levels)-1 {
		return
	}
	enc := pt.mode.Encode
	ws := wordsOf(pt.alloc.Bytes(pfn))

	lo, hi := 0, len(ws)
	if lvl == 0 {
		hi = len(ws) / 2 // user half only; upper half belongs to the kernel table
	}
	for i := lo; i < hi; i++ {
		raw := ws[i]
		if !enc.IsPresent(raw) {
			continue
		}
		attr, ok := enc.AsTableAttr(raw)
		if !ok || !attr.User {
			continue // huge leaf, or not ours to free
		}
		child := physmem.PFN(enc.UnpackPFN(raw))
		pt.dropLevel(child, lvl+1)
		pt.freeTable(child)
	}
}
