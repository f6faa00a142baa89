package archspec

// x86_64 PTE bit positions, standard 4-level (non-PAE-extended, no 5-level
// LA57) layout: present(0) rw(1) user(2) pwt(3) pcd(4) accessed(5)
// dirty(6) huge/PAT(7) global(8) available(9-11) PFN(12-51) NX(63).
const (
	bitPresent = 1 << 0
	bitWrite   = 1 << 1
	bitUser    = 1 << 2
	bitAccess  = 1 << 5
	bitDirty   = 1 << 6
	bitHuge    = 1 << 7
	bitGlobal  = 1 << 8
	bitCOW     = 1 << 9  // software-defined, available bit
	bitNX      = 1 << 63
)

const pfnMask64 = ((uint64(1) << 52) - 1) &^ ((uint64(1) << 12) - 1)

type x86_64Encoding struct{}

// X86_64 is the 4-level paging mode: [39/9, 30/9, 21/9, 12/9].
var X86_64 = PagingMode{
	Name: "x86_64",
	Levels: []Level{
		{Shift: 39, Width: 9},
		{Shift: 30, Width: 9},
		{Shift: 21, Width: 9},
		{Shift: 12, Width: 9},
	},
	Encode: x86_64Encoding{},
}

func (x86_64Encoding) PackTable(pfn uint64, a TableAttr) uint64 {
	raw := (pfn << 12) & pfnMask64
	raw |= bitPresent | bitWrite
	if a.User {
		raw |= bitUser
	}
	if a.Global {
		raw |= bitGlobal
	}
	if a.Accessed {
		raw |= bitAccess
	}
	return raw
}

func (x86_64Encoding) PackPage(pfn uint64, a PageAttr) uint64 {
	raw := (pfn << 12) & pfnMask64
	if a.Present {
		raw |= bitPresent
	}
	if a.Write {
		raw |= bitWrite
	}
	if a.User {
		raw |= bitUser
	}
	if a.Accessed {
		raw |= bitAccess
	}
	if a.Dirty {
		raw |= bitDirty
	}
	if a.Global {
		raw |= bitGlobal
	}
	if a.Huge {
		raw |= bitHuge
	}
	if a.CopyOnWrite {
		raw |= bitCOW
	}
	if !a.Execute {
		raw |= bitNX
	}
	return raw
}

func (x86_64Encoding) UnpackPFN(raw uint64) uint64 { return (raw & pfnMask64) >> 12 }

func (x86_64Encoding) IsPresent(raw uint64) bool { return raw&bitPresent != 0 }

func (x86_64Encoding) IsHuge(raw uint64) bool { return raw&bitHuge != 0 }

func (x86_64Encoding) AsTableAttr(raw uint64) (TableAttr, bool) {
	if raw&bitHuge != 0 {
		return TableAttr{}, false
	}
	return TableAttr{
		Present:  raw&bitPresent != 0,
		User:     raw&bitUser != 0,
		Global:   raw&bitGlobal != 0,
		Accessed: raw&bitAccess != 0,
	}, true
}

func (x86_64Encoding) AsPageAttr(raw uint64) PageAttr {
	return PageAttr{
		Present:     raw&bitPresent != 0,
		Read:        raw&bitPresent != 0,
		Write:       raw&bitWrite != 0,
		Execute:     raw&bitNX == 0,
		User:        raw&bitUser != 0,
		Accessed:    raw&bitAccess != 0,
		Dirty:       raw&bitDirty != 0,
		Global:      raw&bitGlobal != 0,
		CopyOnWrite: raw&bitCOW != 0,
		Huge:        raw&bitHuge != 0,
		Mapped:      raw&bitPresent != 0,
	}
}
