// Package pagecache implements the per-CPU page magazine of spec.md
// §4.3: hot free-lists of small-order frames that absorb most
// alloc/dealloc traffic so the buddy allocator's single lock sees far
// less contention. Grounded on the teacher's pcpuphys_t (one small free
// list array per CPU, refilled/drained against the shared allocator
// under its own per-CPU lock).
package pagecache

import (
	"fmt"

	"eonixcore/internal/ksync"
	"eonixcore/internal/percpu"
	"eonixcore/internal/physmem"
)

// CostlyOrder is the highest order the magazine will cache; orders above
// it bypass the magazine and go straight to the buddy allocator, per
// spec.md §4.3.
const CostlyOrder = 3

// BatchSize is the refill quantum: a magazine miss asks the buddy for
// BatchSize>>order pages at once.
const BatchSize = 32

// magazineCap bounds how many pages of a given order one hart's
// magazine will hold before new frees spill straight to the buddy,
// mirroring the teacher's pcpuphys_t freelen cap.
const magazineCap = 64

type hartMagazine struct {
	lock  ksync.Spin
	stack [CostlyOrder + 1][]physmem.PFN
}

// Cache is the per-CPU page magazine layered over a physmem.Arena.
type Cache struct {
	arena  *physmem.Arena
	mags   *percpu.Var[*hartMagazine]
	nharts int
}

// New constructs a Cache with one magazine per hart.
func New(arena *physmem.Arena, nharts int) *Cache {
	return &Cache{
		arena:  arena,
		nharts: nharts,
		mags: percpu.NewVar(nharts, func() *hartMagazine {
			return &hartMagazine{}
		}),
	}
}

// For binds this cache to a specific hart, returning a handle whose
// AllocOrder/Dealloc/Frame/Bytes methods satisfy page.Allocator -- so a
// Page can be allocated through the magazine exactly as it would be
// allocated directly from the buddy.
func (c *Cache) For(h *percpu.Hart) *HartCache {
	return &HartCache{c: c, h: h}
}

// HartCache is a Cache bound to one hart.
type HartCache struct {
	c *Cache
	h *percpu.Hart
}

// AllocOrder pops a page from the local magazine, refilling from the
// buddy in batches on a miss. Orders above CostlyOrder bypass the
// magazine entirely.
func (hc *HartCache) AllocOrder(order int) (physmem.PFN, bool) {
	if order > CostlyOrder {
		return hc.c.arena.AllocOrder(order)
	}

	hc.h.PreemptDisable()
	mag := hc.c.mags.Get(hc.h)
	mag.lock.Lock()
	defer mag.lock.Unlock()
	defer hc.h.PreemptEnable()

	if len(mag.stack[order]) == 0 {
		refill := BatchSize >> uint(order)
		if refill < 1 {
			refill = 1
		}
		for i := 0; i < refill; i++ {
			pfn, ok := hc.c.arena.AllocOrder(order)
			if !ok {
				break
			}
			f := hc.c.arena.Frame(pfn)
			f.Flags |= physmem.FlagLocal
			mag.stack[order] = append(mag.stack[order], pfn)
		}
	}

	n := len(mag.stack[order])
	if n == 0 {
		return physmem.NoPFN, false
	}
	pfn := mag.stack[order][n-1]
	mag.stack[order] = mag.stack[order][:n-1]
	hc.c.arena.Frame(pfn).Flags &^= physmem.FlagLocal
	return pfn, true
}

// Dealloc pushes the frame back to the local magazine (spilling to the
// buddy if the magazine is at capacity), or frees straight to the buddy
// for orders above CostlyOrder.
func (hc *HartCache) Dealloc(pfn physmem.PFN, order int) {
	if order > CostlyOrder {
		hc.c.arena.Dealloc(pfn, order)
		return
	}

	hc.h.PreemptDisable()
	mag := hc.c.mags.Get(hc.h)
	mag.lock.Lock()
	if len(mag.stack[order]) >= magazineCap {
		mag.lock.Unlock()
		hc.h.PreemptEnable()
		hc.c.arena.Dealloc(pfn, order)
		return
	}
	hc.c.arena.Frame(pfn).Flags |= physmem.FlagLocal
	mag.stack[order] = append(mag.stack[order], pfn)
	mag.lock.Unlock()
	hc.h.PreemptEnable()
}

// Frame delegates to the underlying arena.
func (hc *HartCache) Frame(pfn physmem.PFN) *physmem.Frame { return hc.c.arena.Frame(pfn) }

// Bytes delegates to the underlying arena.
func (hc *HartCache) Bytes(pfn physmem.PFN) []byte { return hc.c.arena.Bytes(pfn) }

// Name implements diag.Sampler.
func (c *Cache) Name() string { return "percpu_magazine_pages" }

// Samples implements diag.Sampler: one bucket per (hart, order). Used
// only for diagnostic snapshots, so it is fine to briefly borrow a
// throwaway Hart value per index rather than require the real owning
// hart to be the caller.
func (c *Cache) Samples() map[string]int64 {
	out := map[string]int64{}
	for i := 0; i < c.nharts; i++ {
		h := percpu.NewHart(i)
		h.PreemptDisable()
		mag := c.mags.Get(h)
		h.PreemptEnable()

		mag.lock.Lock()
		for order, stack := range mag.stack {
			out[fmt.Sprintf("hart%d_order%d", i, order)] = int64(len(stack))
		}
		mag.lock.Unlock()
	}
	return out
}
