package archspec

import "testing"

func TestX86_64TableRoundTrip(t *testing.T) {
	raw := X86_64.Encode.PackTable(0x1234, TableAttr{Present: true, User: true})
	if !X86_64.Encode.IsPresent(raw) {
		t.Fatalf("expected present table PTE")
	}
	if X86_64.Encode.UnpackPFN(raw) != 0x1234 {
		t.Fatalf("PFN round-trip mismatch: got %#x", X86_64.Encode.UnpackPFN(raw))
	}
	attr, ok := X86_64.Encode.AsTableAttr(raw)
	if !ok || !attr.User {
		t.Fatalf("expected table attr with User set, got %+v ok=%v", attr, ok)
	}
}

func TestHugePageRejectedAsTable(t *testing.T) {
	for _, mode := range []PagingMode{X86_64, RISCV64Sv48, LoongArch64} {
		raw := mode.Encode.PackPage(7, PageAttr{Present: true, Read: true, Huge: true})
		if !mode.Encode.IsHuge(raw) {
			t.Fatalf("%s: expected huge bit to read back set", mode.Name)
		}
		if _, ok := mode.Encode.AsTableAttr(raw); ok {
			t.Fatalf("%s: expected AsTableAttr to reject a huge leaf PTE", mode.Name)
		}
	}
}

func TestAllModesShareFourLevelShape(t *testing.T) {
	for _, mode := range []PagingMode{X86_64, RISCV64Sv48, LoongArch64} {
		if len(mode.Levels) != 4 {
			t.Fatalf("%s: expected 4 levels, got %d", mode.Name, len(mode.Levels))
		}
		if mode.Levels[3].Shift != 12 || mode.Levels[3].Width != 9 {
			t.Fatalf("%s: expected leaf level 12/9, got %+v", mode.Name, mode.Levels[3])
		}
	}
}
