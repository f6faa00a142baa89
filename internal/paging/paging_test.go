package paging

import (
	"testing"

	"eonixcore/internal/archspec"
	"eonixcore/internal/percpu"
	"eonixcore/internal/physmem"
)

func newTestTable(t *testing.T) (*physmem.Arena, *PageTable) {
	t.Helper()
	a, err := physmem.NewArena(64, 0)
	if err != nil {
		t.Fatalf("NewArena: %v", err)
	}
	t.Cleanup(func() { a.Close() })
	return a, NewKernel(a, archspec.X86_64)
}

func TestIterUserYieldsExactlyRequestedPagesAndThreeIntermediates(t *testing.T) {
	_, pt := newTestTable(t)

	r := Range{Start: 0x10_0000_0000, End: 0x10_0000_2000}
	count := 0
	for range pt.IterUser(r) {
		count++
	}
	if count != 2 {
		t.Fatalf("expected 2 PTEs, got %d", count)
	}
	if len(pt.tables) != 3 {
		t.Fatalf("expected exactly 3 intermediate tables allocated, got %d", len(pt.tables))
	}
}

func TestPageTableRoundTrip(t *testing.T) {
	_, pt := newTestTable(t)

	r := Range{Start: 0x40_0000_0000, End: 0x40_0000_4000}
	want := map[VAddr]physmem.PFN{
		0x40_0000_0000: 5,
		0x40_0000_3000: 9,
	}

	i := 0
	for pte := range pt.IterUser(r) {
		v := r.Start + VAddr(i)*physmem.PGSIZE
		if pfn, ok := want[v]; ok {
			pte.SetPage(pfn, archspec.PageAttr{Present: true, Read: true, Write: true})
		}
		i++
	}

	i = 0
	for pte := range pt.IterUser(r) {
		v := r.Start + VAddr(i)*physmem.PGSIZE
		pfn, expectPresent := want[v]
		if expectPresent {
			if !pte.IsPresent() || pte.PFN() != pfn {
				t.Fatalf("at %#x: expected present pfn %d, got present=%v pfn=%d", v, pfn, pte.IsPresent(), pte.PFN())
			}
		} else if pte.IsPresent() {
			t.Fatalf("at %#x: expected not-present, got present pfn=%d", v, pte.PFN())
		}
		i++
	}
}

func TestDropBalancesIntermediateTables(t *testing.T) {
	_, pt := newTestTable(t)

	r := Range{Start: 0x20_0000_0000, End: 0x20_0000_2000}
	for range pt.IterUser(r) {
	}
	if len(pt.tables) == 0 {
		t.Fatalf("expected intermediate tables to exist before drop")
	}
	pt.Drop()
	if len(pt.tables) != 0 {
		t.Fatalf("expected Drop to free every tracked intermediate table, got %d remaining", len(pt.tables))
	}
}

func TestCloneKernelSharesUpperHalfOnly(t *testing.T) {
	a, err := physmem.NewArena(64, 0)
	if err != nil {
		t.Fatalf("NewArena: %v", err)
	}
	defer a.Close()

	kernel := NewKernel(a, archspec.X86_64)
	kr := Range{Start: 0xffff_8000_0000_0000, End: 0xffff_8000_0000_1000}
	for pte := range kernel.IterKernel(kr) {
		pte.SetPage(42, archspec.PageAttr{Present: true, Read: true, Write: true, Global: true})
	}

	proc := kernel.CloneKernelInto(a)
	found := false
	for pte := range proc.IterKernel(kr) {
		if pte.IsPresent() && pte.PFN() == 42 {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected cloned table to see the shared kernel mapping")
	}

	ur := Range{Start: 0x1000, End: 0x2000}
	for pte := range proc.IterUser(ur) {
		if pte.IsPresent() {
			t.Fatalf("expected fresh process table's user half to start empty")
		}
	}
}

func TestRootRegisterInstallsPerHart(t *testing.T) {
	a, pt := newTestTable(t)
	other := NewKernel(a, archspec.X86_64)

	h0 := percpu.NewHart(0)
	h1 := percpu.NewHart(1)
	regs := NewRootRegister(2)

	if got := regs.ActiveRootPFN(h0); got != physmem.NoPFN {
		t.Fatalf("expected unset root to read back NoPFN, got %d", got)
	}

	regs.SetRootPageTable(h0, pt)
	regs.SetRootPageTable(h1, other)

	if got := regs.ActiveRootPFN(h0); got != pt.RootPFN() {
		t.Fatalf("hart 0: expected root pfn %d, got %d", pt.RootPFN(), got)
	}
	if got := regs.ActiveRootPFN(h1); got != other.RootPFN() {
		t.Fatalf("hart 1: expected root pfn %d, got %d", other.RootPFN(), got)
	}
}
