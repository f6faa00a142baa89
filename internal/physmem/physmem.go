// Package physmem implements the physical page allocator: PhysAccess, the
// PageFrame descriptor table, and the buddy allocator of spec.md §4.1-§4.2.
package physmem

import (
	"unsafe"

	"golang.org/x/sys/unix"

	"eonixcore/internal/diag"
)

// PGSHIFT is the base-2 exponent for the page size.
const PGSHIFT = 12

// PGSIZE is the size of a single page in bytes.
const PGSIZE = 1 << PGSHIFT

// MaxOrder bounds the buddy allocator's largest contiguous run: 2^MaxOrder
// pages, i.e. 4MiB at MaxOrder=10.
const MaxOrder = 10

// PAddr is a physical address.
type PAddr uintptr

// PFN is a dense physical frame number: PFN x addresses x<<PGSHIFT.
type PFN uint32

// NoPFN is the sentinel "absent" frame number, used as an intrusive
// list terminator.
const NoPFN PFN = ^PFN(0)

// ToPFN converts a physical address to its containing frame number.
func ToPFN(p PAddr) PFN { return PFN(p >> PGSHIFT) }

// Addr returns the physical address at which frame pfn starts.
func (pfn PFN) Addr() PAddr { return PAddr(pfn) << PGSHIFT }

// Arena owns the simulated physical address space: a page-aligned,
// anonymously-mapped byte slice standing in for RAM, plus PhysAccess's
// direct-map bijection and the PageFrame descriptor table layered over it.
//
// In a hosted simulation the host OS is the "hardware" that hands out
// physical pages, so Arena reserves its backing store with unix.Mmap
// instead of a bare make([]byte, ...) -- the same role Biscuit's patched
// runtime.Get_phys() plays for the real kernel.
type Arena struct {
	base  []byte // mmap'd backing store, len == npages*PGSIZE
	start PFN    // PFN of base[0]

	frames []Frame

	buddy buddy
}

// NewArena reserves npages of simulated physical memory and initializes
// the frame table and buddy free lists over it. startPFN is the base PFN
// assigned to the reservation; PFN 0 is a valid frame, since NoPFN is the
// all-ones value.
func NewArena(npages int, startPFN PFN) (*Arena, error) {
	if npages <= 0 {
		return nil, diag.EINVAL
	}
	size := npages * PGSIZE
	base, err := unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE,
		unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		return nil, err
	}

	a := &Arena{
		base:   base,
		start:  startPFN,
		frames: make([]Frame, npages),
	}
	a.buddy.init(a)
	a.buddy.createPages(startPFN, startPFN+PFN(npages))
	return a, nil
}

// Close releases the arena's backing memory.
func (a *Arena) Close() error {
	if a.base == nil {
		return nil
	}
	err := unix.Munmap(a.base)
	a.base = nil
	return err
}

// index returns this arena's slot for pfn, or -1 if pfn is out of range.
func (a *Arena) index(pfn PFN) int {
	if pfn < a.start || int(pfn-a.start) >= len(a.frames) {
		return -1
	}
	return int(pfn - a.start)
}

// Contains reports whether pfn belongs to this arena.
func (a *Arena) Contains(pfn PFN) bool { return a.index(pfn) >= 0 }

// Frame returns the descriptor for pfn. Panics if pfn is outside the
// arena -- callers are expected to have validated the PFN already.
func (a *Arena) Frame(pfn PFN) *Frame {
	i := a.index(pfn)
	diag.Assert(i >= 0, "physmem: pfn %d out of range", pfn)
	return &a.frames[i]
}

// AsPtr implements PhysAccess::as_ptr: it returns the kernel-accessible
// pointer for a physical address within this arena's direct map. T's
// alignment is checked against p.
func AsPtr[T any](a *Arena, p PAddr) *T {
	diag.Assert(p%alignOf[T]() == 0, "physmem: as_ptr misaligned %#x", p)
	pfn := ToPFN(p)
	i := a.index(pfn)
	diag.Assert(i >= 0, "physmem: as_ptr out of range %#x", p)
	off := int(p) - int(pfn.Addr())
	return (*T)(unsafe.Pointer(&a.base[i*PGSIZE+off]))
}

func alignOf[T any]() PAddr {
	var zero T
	return PAddr(unsafe.Alignof(zero))
}

// FromPtr implements PhysAccess::from_ptr: the inverse of AsPtr.
func FromPtr[T any](a *Arena, ptr *T) PAddr {
	base := uintptr(unsafe.Pointer(&a.base[0]))
	addr := uintptr(unsafe.Pointer(ptr))
	diag.Assert(addr >= base && addr < base+uintptr(len(a.base)),
		"physmem: from_ptr out of range")
	off := addr - base
	diag.Assert(off%unsafe.Alignof(*ptr) == 0, "physmem: from_ptr misaligned")
	return a.start.Addr() + PAddr(off)
}

// Bytes returns a byte slice view of the page frame at pfn.
func (a *Arena) Bytes(pfn PFN) []byte {
	i := a.index(pfn)
	diag.Assert(i >= 0, "physmem: Bytes out of range")
	return a.base[i*PGSIZE : (i+1)*PGSIZE]
}

// PFNFromPtr maps a pointer into this arena's backing store back to the
// PFN of the page frame containing it -- a fixed relationship from
// virtual pointer to owning page descriptor. The slab allocator does not
// use it; slab.Cache finds a pointer's page by searching its own pages.
func (a *Arena) PFNFromPtr(ptr unsafe.Pointer) PFN {
	base := uintptr(unsafe.Pointer(&a.base[0]))
	addr := uintptr(ptr)
	diag.Assert(addr >= base && addr < base+uintptr(len(a.base)),
		"physmem: PFNFromPtr out of range")
	off := addr - base
	return a.start + PFN(off/PGSIZE)
}
