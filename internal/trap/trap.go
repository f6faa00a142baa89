// Package trap implements TrapContext and the captured-trap mechanism
// of spec.md §4.8: the trap-cause descriptor, mutators an arch trap
// entry stub would populate, and the one-shot return-into-user-mode
// handoff built on taskctx's goroutine rendezvous.
package trap


// Cause classifies why a trap was taken.
type Cause int

const (
	CauseSyscall Cause = iota
	CauseFaultPageFault
	CauseFaultBadAccess
	CauseFaultInvalidOp
	CauseFaultUnknown
	CauseIrq
	CauseTimer
)

func (c Cause) String() string {
	switch c {
	case CauseSyscall:
		return "syscall"
	case CauseFaultPageFault:
		return "page_fault"
	case CauseFaultBadAccess:
		return "bad_access"
	case CauseFaultInvalidOp:
		return "invalid_op"
	case CauseFaultUnknown:
		return "unknown_fault"
	case CauseIrq:
		return "irq"
	case CauseTimer:
		return "timer"
	default:
		return "cause(?)"
	}
}

// TrapType is the decoded trap-cause descriptor returned by
// TrapContext.TrapType, per spec.md §6's
// `Syscall{no,args[6]}/Fault{...}/Irq{irqno}/Timer` enum.
type TrapType struct {
	Cause Cause

	SyscallNo   uint64
	SyscallArgs [6]uint64

	FaultAddr uint64
	FaultCode uint64
	Unknown   uint64

	IrqNo uint64
}

// CallFrame is the (pc, sp, ra, args) tuple set_user_call_frame installs
// before a first entry into user mode.
type CallFrame struct {
	PC, SP, RA uint64
	Args       [6]uint64
}

// TrapContext is the state recorded at trap entry: program counter,
// stack pointer, user-mode and interrupt-enable flags, the user return
// value, and the classified trap type. General-purpose registers are not
// part of it.
type TrapContext struct {
	pc, sp           uint64
	userMode         bool
	interruptEnabled bool
	userReturnValue  uint64
	trapType         TrapType
}

// New returns a zeroed TrapContext, per spec.md §6's
// "TrapContext::new()".
func New() *TrapContext {
	return &TrapContext{}
}

func (tc *TrapContext) SetProgramCounter(pc uint64) { tc.pc = pc }
func (tc *TrapContext) SetStackPointer(sp uint64)   { tc.sp = sp }
func (tc *TrapContext) SetUserMode(v bool)          { tc.userMode = v }
func (tc *TrapContext) SetInterruptEnabled(v bool)  { tc.interruptEnabled = v }
func (tc *TrapContext) SetUserReturnValue(v uint64) { tc.userReturnValue = v }

// SetUserCallFrame installs pc/sp/ra/args into the frame the arch's
// return-from-trap instruction will restore, writing them through
// writeMemory the way a real trap entry would lay out a user stack
// frame.
func (tc *TrapContext) SetUserCallFrame(pc, sp, ra uint64, args [6]uint64, writeMemory func(addr, val uint64)) {
	tc.pc, tc.sp = pc, sp
	if writeMemory != nil {
		writeMemory(sp, ra)
	}
	for i, a := range args {
		if writeMemory != nil {
			writeMemory(sp+8+8*uint64(i), a)
		}
		_ = a
	}
}

// ProgramCounter, StackPointer, UserMode, InterruptEnabled, and
// UserReturnValue expose the fields the mutators above set, for trap
// entry/return stubs and tests to read back.
func (tc *TrapContext) ProgramCounter() uint64   { return tc.pc }
func (tc *TrapContext) StackPointer() uint64     { return tc.sp }
func (tc *TrapContext) UserMode() bool           { return tc.userMode }
func (tc *TrapContext) InterruptEnabled() bool   { return tc.interruptEnabled }
func (tc *TrapContext) UserReturnValue() uint64  { return tc.userReturnValue }

// SetTrapType records the classified cause of this trap. Called by the
// arch-specific entry stub after it decodes the hardware trap reason.
func (tc *TrapContext) SetTrapType(t TrapType) { tc.trapType = t }

// TrapType returns the classified cause of this trap.
func (tc *TrapContext) TrapType() TrapType { return tc.trapType }

// classifySyscall builds a TrapType for a syscall trap; it performs no
// validation of no or args.
func classifySyscall(no uint64, args [6]uint64) TrapType {
	return TrapType{Cause: CauseSyscall, SyscallNo: no, SyscallArgs: args}
}

// ClassifyPageFault builds a TrapType for a page-fault trap.
func ClassifyPageFault(addr, code uint64) TrapType {
	return TrapType{Cause: CauseFaultPageFault, FaultAddr: addr, FaultCode: code}
}

// ClassifySyscall builds a TrapType for a syscall trap.
func ClassifySyscall(no uint64, args [6]uint64) TrapType { return classifySyscall(no, args) }

// ClassifyIrq builds a TrapType for a device interrupt.
func ClassifyIrq(irqno uint64) TrapType { return TrapType{Cause: CauseIrq, IrqNo: irqno} }

// ClassifyTimer builds a TrapType for the timer interrupt.
func ClassifyTimer() TrapType { return TrapType{Cause: CauseTimer} }
