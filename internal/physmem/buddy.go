package physmem

import (
	"eonixcore/internal/diag"
	"eonixcore/internal/ksync"
)

// buddy is the allocator of spec.md §4.2: MAX_ORDER+1 free-area lists,
// one per order, guarded by a single SpinIrq, with splits always
// retaining the lower half and dealloc coalescing with the buddy at
// p ^ (1<<k) when it is free and of matching order. Grounded on the
// teacher's Physmem_t (single lock, free-list-by-index-of-next) and on
// the original Rust BuddyAllocator's create_pages/alloc_order/dealloc
// shape.
type buddy struct {
	lock  ksync.SpinIrq
	free  [MaxOrder + 1]flist
	arena *Arena
}

func (b *buddy) init(a *Arena) {
	b.arena = a
	b.lock = ksync.NewSpinIrq(nil, nil)
	for i := range b.free {
		b.free[i] = newFlist()
	}
}

// createPages peels the largest power-of-two block that fits out of
// [start, end) repeatedly, per spec.md §4.2. Blocks whose start is not
// naturally aligned to MaxOrder are rounded down to the largest order
// their alignment supports -- silent, as the spec calls for.
func (b *buddy) createPages(start, end PFN) {
	pfn := start
	for pfn < end {
		order := trailingZeros(uint32(pfn))
		if order > MaxOrder {
			order = MaxOrder
		}
		for {
			newEnd := pfn + (1 << order)
			if newEnd <= end {
				b.addPage(pfn, order)
				pfn = newEnd
				break
			}
			if order == 0 {
				// Can't even fit an order-0 page; nothing
				// left to peel off.
				return
			}
			order--
		}
	}
}

func trailingZeros(v uint32) int {
	if v == 0 {
		return 32
	}
	n := 0
	for v&1 == 0 {
		v >>= 1
		n++
	}
	return n
}

func (b *buddy) addPage(pfn PFN, order int) {
	f := b.arena.Frame(pfn)
	f.Order = uint8(order)
	f.setBuddy(true)
	b.free[order].pushTail(b.arena, pfn)
}

// AllocOrder pops a block of at least the requested order, splitting the
// high half back into progressively smaller free lists, per spec.md
// §4.2's "splits always put the higher-address half back." Returns
// NoPFN, false on OOM.
func (b *buddy) AllocOrder(order int) (PFN, bool) {
	diag.Assert(order >= 0 && order <= MaxOrder, "buddy: bad order %d", order)
	b.lock.Lock()
	defer b.lock.Unlock()

	for cur := order; cur <= MaxOrder; cur++ {
		pfn, ok := b.free[cur].popHead(b.arena)
		if !ok {
			continue
		}
		if cur > order {
			b.breakPage(pfn, cur, order)
		}
		f := b.arena.Frame(pfn)
		f.setBuddy(false)
		f.Order = uint8(order)
		return pfn, true
	}
	return NoPFN, false
}

// breakPage splits the block at pfn from `order` down to `target`,
// pushing each higher half back onto its free list in descending order.
func (b *buddy) breakPage(pfn PFN, order, target int) {
	for o := order - 1; o >= target; o-- {
		buddyPFN := pfn + (1 << o)
		b.addPage(buddyPFN, o)
	}
}

// Dealloc returns a block to the allocator, coalescing with its buddy
// repeatedly while possible. The caller must have already reduced the
// frame's refcount to zero; Dealloc re-asserts this and that the block
// is not already marked BUDDY (a would-be double free).
func (b *buddy) Dealloc(pfn PFN, order int) {
	f := b.arena.Frame(pfn)
	diag.Assert(f.RefCount() == 0, "buddy: dealloc of frame with nonzero refcount")
	diag.Assert(!f.isBuddy(), "buddy: double free at pfn %d", pfn)

	b.lock.Lock()
	defer b.lock.Unlock()

	for order < MaxOrder {
		buddyPFN := PFN(uint32(pfn) ^ (1 << uint(order)))
		if !b.arena.Contains(buddyPFN) {
			break
		}
		bf := b.arena.Frame(buddyPFN)
		if !bf.isBuddy() || int(bf.Order) != order {
			break
		}
		b.free[order].remove(b.arena, buddyPFN)
		bf.setBuddy(false)
		pfn = PFN(uint32(pfn) & ^uint32(1<<uint(order)))
		order++
	}
	b.addPage(pfn, order)
}

// FreeCount returns, per order, the number of blocks currently on that
// order's free list -- used by diag.Sampler implementations.
func (b *buddy) FreeCount() [MaxOrder + 1]int {
	b.lock.Lock()
	defer b.lock.Unlock()
	var out [MaxOrder + 1]int
	for i := range b.free {
		out[i] = b.free[i].count
	}
	return out
}
