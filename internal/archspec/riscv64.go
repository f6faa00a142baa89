package archspec

// riscv64 Sv48 PTE layout: valid(0) read(1) write(2) execute(3) user(4)
// global(5) accessed(6) dirty(7) rsw(8-9, bit9 used as software
// copy-on-write marker) PFN(10-53).
const (
	rvValid  = 1 << 0
	rvRead   = 1 << 1
	rvWrite  = 1 << 2
	rvExec   = 1 << 3
	rvUser   = 1 << 4
	rvGlobal = 1 << 5
	rvAccess = 1 << 6
	rvDirty  = 1 << 7
	rvCOW    = 1 << 9
)

type riscv64Encoding struct{}

// RISCV64Sv48 is the Sv48 paging mode: [39/9, 30/9, 21/9, 12/9] -- the
// same shape as x86_64's four levels, but a distinct PTE encoding.
var RISCV64Sv48 = PagingMode{
	Name: "riscv64-sv48",
	Levels: []Level{
		{Shift: 39, Width: 9},
		{Shift: 30, Width: 9},
		{Shift: 21, Width: 9},
		{Shift: 12, Width: 9},
	},
	Encode: riscv64Encoding{},
}

func (riscv64Encoding) PackTable(pfn uint64, a TableAttr) uint64 {
	// a non-leaf Sv48 PTE has R=W=X=0; only V (and the software USER/
	// GLOBAL/ACCESSED bits this module tracks) are meaningful.
	raw := (pfn << 10) | rvValid
	if a.User {
		raw |= rvUser
	}
	if a.Global {
		raw |= rvGlobal
	}
	if a.Accessed {
		raw |= rvAccess
	}
	return raw
}

func (riscv64Encoding) PackPage(pfn uint64, a PageAttr) uint64 {
	raw := pfn << 10
	if a.Present {
		raw |= rvValid
	}
	if a.Read {
		raw |= rvRead
	}
	if a.Write {
		raw |= rvWrite
	}
	if a.Execute {
		raw |= rvExec
	}
	if a.User {
		raw |= rvUser
	}
	if a.Global {
		raw |= rvGlobal
	}
	if a.Accessed {
		raw |= rvAccess
	}
	if a.Dirty {
		raw |= rvDirty
	}
	if a.CopyOnWrite {
		raw |= rvCOW
	}
	return raw
}

func (riscv64Encoding) UnpackPFN(raw uint64) uint64 { return raw >> 10 }

func (riscv64Encoding) IsPresent(raw uint64) bool { return raw&rvValid != 0 }

// IsHuge reports a leaf encountered above the bottom level: Sv48 marks a
// PTE as a leaf by setting any of R/W/X, which a pure table PTE never does.
func (riscv64Encoding) IsHuge(raw uint64) bool {
	return raw&rvValid != 0 && raw&(rvRead|rvWrite|rvExec) != 0
}

func (riscv64Encoding) AsTableAttr(raw uint64) (TableAttr, bool) {
	if raw&(rvRead|rvWrite|rvExec) != 0 {
		return TableAttr{}, false
	}
	return TableAttr{
		Present:  raw&rvValid != 0,
		User:     raw&rvUser != 0,
		Global:   raw&rvGlobal != 0,
		Accessed: raw&rvAccess != 0,
	}, true
}

func (riscv64Encoding) AsPageAttr(raw uint64) PageAttr {
	return PageAttr{
		Present:     raw&rvValid != 0,
		Read:        raw&rvRead != 0,
		Write:       raw&rvWrite != 0,
		Execute:     raw&rvExec != 0,
		User:        raw&rvUser != 0,
		Accessed:    raw&rvAccess != 0,
		Dirty:       raw&rvDirty != 0,
		Global:      raw&rvGlobal != 0,
		CopyOnWrite: raw&rvCOW != 0,
		Huge:        raw&(rvRead|rvWrite|rvExec) != 0,
		Mapped:      raw&rvValid != 0,
	}
}
