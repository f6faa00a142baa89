package physmem

import "fmt"

// AllocOrder allocates a block of 2^order contiguous frames and returns
// the PFN of its head, with refcount left at zero -- callers (typically
// page.Page) are responsible for the first RefUp. Returns false on OOM.
func (a *Arena) AllocOrder(order int) (PFN, bool) {
	return a.buddy.AllocOrder(order)
}

// Dealloc returns a block to the buddy allocator. The frame's refcount
// must already be zero.
func (a *Arena) Dealloc(pfn PFN, order int) {
	a.buddy.Dealloc(pfn, order)
}

// Name implements diag.Sampler.
func (a *Arena) Name() string { return "buddy_free_pages" }

// Samples implements diag.Sampler: one bucket per order, in pages.
func (a *Arena) Samples() map[string]int64 {
	counts := a.buddy.FreeCount()
	out := make(map[string]int64, len(counts))
	for order, n := range counts {
		out[fmt.Sprintf("order_%d", order)] = int64(n)
	}
	return out
}
