package paging

import (
	"eonixcore/internal/percpu"
	"eonixcore/internal/physmem"
)

// RootRegister simulates each hart's hardware page-table-root register
// (cr3 on x86_64, satp on riscv64, PGDL/PGDH on loongarch64): one PFN
// slot per hart, installed by SetRootPageTable and read back by
// ActiveRootPFN. This realizes spec.md §6's external
// set_root_page_table_pfn(pfn) contract, since a hosted simulation has
// no real control register to write.
type RootRegister struct {
	slots *percpu.Var[physmem.PFN]
}

// NewRootRegister constructs a RootRegister with nharts independent
// slots, each initially unset.
func NewRootRegister(nharts int) *RootRegister {
	return &RootRegister{
		slots: percpu.NewVar(nharts, func() physmem.PFN { return physmem.NoPFN }),
	}
}

// SetRootPageTable installs pt as h's active root table, per spec.md
// §6's set_root_page_table_pfn(pfn) -- the step a context switch takes
// to activate a task's address space.
func (r *RootRegister) SetRootPageTable(h *percpu.Hart, pt *PageTable) {
	h.PreemptDisable()
	defer h.PreemptEnable()
	r.slots.Set(h, pt.RootPFN())
}

// ActiveRootPFN returns the PFN most recently installed on h via
// SetRootPageTable, or physmem.NoPFN if none has been installed yet.
func (r *RootRegister) ActiveRootPFN(h *percpu.Hart) physmem.PFN {
	h.PreemptDisable()
	defer h.PreemptEnable()
	return r.slots.Get(h)
}
