package trap

import "golang.org/x/arch/x86/x86asm"

// DecodeInstruction attempts to decode the bytes at a faulting PC as a
// single x86-64 instruction. A decode failure is exactly how a real
// trap entry would recognize an invalid-opcode fault: the hardware
// itself couldn't make sense of the byte stream either.
func DecodeInstruction(code []byte) (x86asm.Inst, error) {
	return x86asm.Decode(code, 64)
}

// ClassifyInvalidOpcode decodes code and, on failure, returns a
// CauseFaultInvalidOp TrapType; on success it returns ok=false since the
// bytes were in fact a valid instruction and some other fault explains
// the trap.
func ClassifyInvalidOpcode(code []byte) (tt TrapType, ok bool) {
	if _, err := x86asm.Decode(code, 64); err != nil {
		return TrapType{Cause: CauseFaultInvalidOp}, true
	}
	return TrapType{}, false
}
