package paging

import "sync/atomic"

// TLB abstracts the arch-supplied local TLB invalidation hooks of
// spec.md §4.5: "callers invoke flush_tlb(vaddr) or flush_tlb_all()
// after batches." Cross-CPU shootdown is explicitly out of scope
// (spec.md §9) -- these only flush the calling hart's local TLB.
type TLB interface {
	FlushTLB(v VAddr)
	FlushTLBAll()
}

// SimTLB is the simulated host's stand-in for a real hart's TLB: there
// is no hardware cache to invalidate, so it just counts flushes for
// tests and diagnostics while still giving callers the release-fence
// ordering point the real hook would provide.
type SimTLB struct {
	single atomic.Int64
	all    atomic.Int64
}

// FlushTLB records a single-address invalidation.
func (t *SimTLB) FlushTLB(VAddr) { t.single.Add(1) }

// FlushTLBAll records a full invalidation.
func (t *SimTLB) FlushTLBAll() { t.all.Add(1) }

// Counts returns (single-address flushes, full flushes) observed so far.
func (t *SimTLB) Counts() (int64, int64) { return t.single.Load(), t.all.Load() }
