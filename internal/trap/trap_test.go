package trap

import (
	"testing"

	"eonixcore/internal/percpu"
	"eonixcore/internal/taskctx"
)

func TestTrapTypeClassification(t *testing.T) {
	pf := ClassifyPageFault(0x4000, 2)
	if pf.Cause != CauseFaultPageFault || pf.FaultAddr != 0x4000 || pf.FaultCode != 2 {
		t.Fatalf("unexpected page-fault classification: %+v", pf)
	}

	sc := ClassifySyscall(60, [6]uint64{1, 2, 3, 4, 5, 6})
	if sc.Cause != CauseSyscall || sc.SyscallNo != 60 || sc.SyscallArgs[5] != 6 {
		t.Fatalf("unexpected syscall classification: %+v", sc)
	}
}

func TestInvalidOpcodeDecode(t *testing.T) {
	// 0x0f 0xff is not a valid x86-64 opcode encoding.
	garbage := []byte{0x0f, 0xff, 0xff, 0xff}
	tt, ok := ClassifyInvalidOpcode(garbage)
	if !ok || tt.Cause != CauseFaultInvalidOp {
		t.Fatalf("expected garbage bytes to classify as invalid-op, got ok=%v tt=%+v", ok, tt)
	}

	nop := []byte{0x90}
	if _, ok := ClassifyInvalidOpcode(nop); ok {
		t.Fatalf("expected a valid NOP encoding not to classify as invalid-op")
	}
}

func TestCapturedTrapRoundTrip(t *testing.T) {
	h := percpu.NewHart(0)
	returned := make(chan struct{})

	d := NewDispatcher(1, func(h *percpu.Hart, tc *TrapContext) {
		t.Fatalf("normal handler should not run for a captured trap")
	})

	capturer := taskctx.New()
	target := New()
	target.SetProgramCounter(0xbad)
	target.SetUserMode(true)

	go func() {
		d.CapturedTrapReturn(h, capturer, target, func(self *taskctx.TaskContext, tc *TrapContext) {
			// stand-in for "the task ran in user mode and then faulted":
			tt, _ := ClassifyInvalidOpcode([]byte{0x0f, 0xff})
			tc.SetTrapType(tt)
			d.Trap(h, self, tc)
		})
		close(returned)
	}()

	<-returned

	if target.TrapType().Cause != CauseFaultInvalidOp {
		t.Fatalf("expected target's trap type to be InvalidOp, got %v", target.TrapType().Cause)
	}
}
