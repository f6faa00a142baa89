// Package slab implements the object-cache allocator of spec.md §4.4:
// fixed-size slot caches layered over the page allocator, each backed by
// one or more pages carved into a free-slot intrusive list.
package slab

import (
	"unsafe"

	"eonixcore/internal/diag"
	"eonixcore/internal/ksync"
	"eonixcore/internal/page"
	"eonixcore/internal/physmem"
)

// sizeClasses are the supported object sizes: powers of two from 8 up to
// half a page (2048 for a 4KiB page), per spec.md §4.4.
var sizeClasses = [...]int{8, 16, 32, 64, 128, 256, 512, 1024, 2048}

func classIndex(size int) int {
	if size < 8 {
		size = 8
	}
	for i, s := range sizeClasses {
		if size <= s {
			return i
		}
	}
	diag.Fatal("slab: object size %d exceeds the largest size class", size)
	return -1
}

// listKind names which of the three per-size-class lists a slab page is
// currently on.
type listKind int

const (
	listEmpty listKind = iota
	listPartial
	listFull
)

// slabPage is the side-table entry for one page carved into slots. It
// holds exactly the bookkeeping the generic physmem.Frame descriptor
// doesn't: the free-slot list head (as a byte offset into the page) and
// the live allocation count.
type slabPage struct {
	pg        *page.Page
	freeSlot  int32 // offset of the first free slot, or -1
	allocated int
	kind      listKind
	prev, next *slabPage // per-size-class intrusive list
}

// Cache is one (object_size) keyed slab cache: three page lists (empty,
// partial, full) guarded by one SpinIrq, per spec.md §4.4.
type Cache struct {
	objectSize int
	slotsPer   int
	alloc      page.Allocator

	lock                       ksync.SpinIrq
	empty, partial, full       *slabPage
	byPFN                      map[physmem.PFN]*slabPage
}

// NewCache constructs a slab cache for the given nominal object size
// (rounded up to the nearest supported size class).
func NewCache(alloc page.Allocator, objectSize int) *Cache {
	idx := classIndex(objectSize)
	size := sizeClasses[idx]
	return &Cache{
		objectSize: size,
		slotsPer:   physmem.PGSIZE / size,
		alloc:      alloc,
		lock:       ksync.NewSpinIrq(nil, nil),
		byPFN:      make(map[physmem.PFN]*slabPage),
	}
}

// ObjectSize returns this cache's rounded object size.
func (c *Cache) ObjectSize() int { return c.objectSize }

// Alloc returns a pointer to a fresh, uninitialized object-sized slot.
func (c *Cache) Alloc() unsafe.Pointer {
	c.lock.Lock()
	defer c.lock.Unlock()

	sp := c.partial
	if sp == nil {
		sp = c.empty
		if sp == nil {
			sp = c.newPage()
		} else {
			c.unlink(sp, listEmpty)
		}
	} else {
		c.unlink(sp, listPartial)
	}

	ptr := c.takeSlot(sp)
	sp.allocated++

	if sp.freeSlot < 0 {
		c.pushFront(sp, listFull)
	} else {
		c.pushFront(sp, listPartial)
	}
	return ptr
}

// Dealloc returns a previously allocated slot to its owning page,
// finding that page by searching this cache's pages for the one whose
// bytes contain ptr. A
// page that drops to zero live objects moves to the empty list, not
// back to the underlying page allocator; reclaiming empty pages is left
// for a future pass.
func (c *Cache) Dealloc(ptr unsafe.Pointer, size int) {
	_ = size // size class is implied by which Cache this is

	c.lock.Lock()
	defer c.lock.Unlock()

	pfn := c.ownerPFN(ptr)
	sp, ok := c.byPFN[pfn]
	diag.Assert(ok, "slab: dealloc of pointer not owned by this cache")

	wasFull := sp.freeSlot < 0
	c.giveSlot(sp, ptr)
	sp.allocated--

	switch {
	case wasFull:
		c.unlink(sp, listFull)
		if sp.allocated == 0 {
			c.pushFront(sp, listEmpty)
		} else {
			c.pushFront(sp, listPartial)
		}
	case sp.allocated == 0:
		c.unlink(sp, listPartial)
		c.pushFront(sp, listEmpty)
	}
}

// newPage charges one fresh page from the page allocator, carves it into
// a singly-linked free-slot list, and registers it.
func (c *Cache) newPage() *slabPage {
	pg, ok := page.AllocOrder(c.alloc, 0)
	diag.Assert(ok, "slab: out of memory allocating a new slab page")

	sp := &slabPage{pg: pg}
	bytes := pg.AsBytes()
	for i := 0; i < c.slotsPer; i++ {
		off := i * c.objectSize
		next := int32(off + c.objectSize)
		if i == c.slotsPer-1 {
			next = -1
		}
		*(*int32)(unsafe.Pointer(&bytes[off])) = next
	}
	sp.freeSlot = 0
	c.byPFN[pg.PFN()] = sp
	return sp
}

// takeSlot pops the head of sp's free-slot list, per spec.md §4.4's
// union { next, data } layout: the first bytes of a free slot store the
// offset of the next free slot.
func (c *Cache) takeSlot(sp *slabPage) unsafe.Pointer {
	diag.Assert(sp.freeSlot >= 0, "slab: takeSlot on a full page")
	bytes := sp.pg.AsBytes()
	off := sp.freeSlot
	next := *(*int32)(unsafe.Pointer(&bytes[off]))
	sp.freeSlot = next
	return unsafe.Pointer(&bytes[off])
}

func (c *Cache) giveSlot(sp *slabPage, ptr unsafe.Pointer) {
	bytes := sp.pg.AsBytes()
	off := int32(uintptr(ptr) - uintptr(unsafe.Pointer(&bytes[0])))
	*(*int32)(ptr) = sp.freeSlot
	sp.freeSlot = off
}

func (c *Cache) ownerPFN(ptr unsafe.Pointer) physmem.PFN {
	for pfn, sp := range c.byPFN {
		bytes := sp.pg.AsBytes()
		base := uintptr(unsafe.Pointer(&bytes[0]))
		if uintptr(ptr) >= base && uintptr(ptr) < base+physmem.PGSIZE {
			return pfn
		}
	}
	diag.Fatal("slab: pointer does not belong to any page in this cache")
	return physmem.NoPFN
}

func (c *Cache) pushFront(sp *slabPage, kind listKind) {
	sp.kind = kind
	head := c.head(kind)
	sp.next = head
	sp.prev = nil
	if head != nil {
		head.prev = sp
	}
	c.setHead(kind, sp)
}

func (c *Cache) unlink(sp *slabPage, kind listKind) {
	if sp.prev != nil {
		sp.prev.next = sp.next
	} else {
		c.setHead(kind, sp.next)
	}
	if sp.next != nil {
		sp.next.prev = sp.prev
	}
	sp.prev, sp.next = nil, nil
}

func (c *Cache) head(kind listKind) *slabPage {
	switch kind {
	case listEmpty:
		return c.empty
	case listPartial:
		return c.partial
	default:
		return c.full
	}
}

func (c *Cache) setHead(kind listKind, sp *slabPage) {
	switch kind {
	case listEmpty:
		c.empty = sp
	case listPartial:
		c.partial = sp
	default:
		c.full = sp
	}
}

// Name implements diag.Sampler.
func (c *Cache) Name() string { return "slab_pages" }

// Samples implements diag.Sampler.
func (c *Cache) Samples() map[string]int64 {
	c.lock.Lock()
	defer c.lock.Unlock()
	count := func(sp *slabPage) int64 {
		var n int64
		for ; sp != nil; sp = sp.next {
			n++
		}
		return n
	}
	return map[string]int64{
		"empty":   count(c.empty),
		"partial": count(c.partial),
		"full":    count(c.full),
	}
}
