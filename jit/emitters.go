package jit

// Register selectors for the load/store/compare helpers.
type guestReg int

const (
	regA guestReg = iota
	regX
	regY
)

// ALU operation selectors.
type aluOp int

const (
	aluAnd aluOp = iota
	aluEor
	aluOra
)

// Read-modify-write operation selectors.
type rmwOp int

const (
	rmwInc rmwOp = iota
	rmwDec
	rmwAsl
	rmwLsr
	rmwRol
	rmwRor
)

// prologue emits the per-instruction countdown bookkeeping. In accurate mode
// every instruction checks the countdown before executing; otherwise only
// control transfers do (see controlPrologue).
func (i *insn) prologue(cycles uint8) {
	if i.t.accurate {
		i.checkCountdown()
	}
	i.subCycles(cycles)
}

// controlPrologue is the prologue for control-transfer instructions, which
// carry the countdown check in both modes so a block cannot run unbounded.
func (i *insn) controlPrologue(cycles uint8) {
	i.checkCountdown()
	i.subCycles(cycles)
}

// checkCountdown exits to the dispatcher, resuming at this instruction, when
// the cycle budget is exhausted. Nothing has been consumed at that point.
func (i *insn) checkCountdown() {
	i.e.emit(0x45, 0x85, 0xC0) // test r8d, r8d
	i.e.emit(0x7F, 0x0B)       // jg past the exit
	i.exitCountdown(i.pc)
}

func (i *insn) subCycles(cycles uint8) {
	i.e.emit(0x41, 0x83, 0xE8, cycles) // sub r8d, cycles
}

// exitCountdown leaves translated code with the resume PC in R11D.
func (i *insn) exitCountdown(pc uint16) {
	i.e.emit(0x41, 0xBB) // mov r11d, pc
	i.e.u32(uint32(pc))
	i.e.jmp32(stubCountdownOff)
}

// exitInterp hands one instruction to the interpreter; emitted before the
// cycle subtraction so the interpreter's own accounting is not duplicated.
func (i *insn) exitInterp(pc uint16) {
	i.e.emit(0x41, 0xBB) // mov r11d, pc
	i.e.u32(uint32(pc))
	i.e.jmp32(stubInterpOff)
}

// Flag recomputation. Z and N are kept normalized to 0/1 in DL/DH.

func (i *insn) setZN() {
	i.e.emit(0x0F, 0x94, 0xC2) // sete dl
	i.e.emit(0x0F, 0x98, 0xC6) // sets dh
}

func (i *insn) znFromA() {
	i.e.emit(0x84, 0xDB) // test bl, bl
	i.setZN()
}

func (i *insn) znFromX() {
	i.e.emit(0x84, 0xC9) // test cl, cl
	i.setZN()
}

func (i *insn) znFromY() {
	i.e.emit(0x84, 0xED) // test ch, ch
	i.setZN()
}

func (i *insn) znFromR10() {
	i.e.emit(0x45, 0x84, 0xD2) // test r10b, r10b
	i.setZN()
}

// Addressing modes. Dynamic modes leave the 16-bit effective address in R9W
// with the upper bits of R9D clear. The computations are side-effect free, so
// a countdown exit before the cycle subtraction can safely re-run them.

func (i *insn) addrZPX(op1 uint8) operand {
	i.e.emit(0x41, 0xB1, op1)       // mov r9b, op1
	i.e.emit(0x41, 0x00, 0xC9)      // add r9b, cl
	i.e.emit(0x45, 0x0F, 0xB6, 0xC9) // movzx r9d, r9b
	return operand{dynamic: true}
}

func (i *insn) addrZPY(op1 uint8) operand {
	i.yToR10()
	i.e.emit(0x41, 0xB1, op1)       // mov r9b, op1
	i.e.emit(0x45, 0x00, 0xD1)      // add r9b, r10b
	i.e.emit(0x45, 0x0F, 0xB6, 0xC9) // movzx r9d, r9b
	return operand{dynamic: true}
}

func (i *insn) addrABX(base uint16) operand {
	i.e.emit(0x44, 0x0F, 0xB6, 0xC9) // movzx r9d, cl
	i.e.emit(0x66, 0x41, 0x81, 0xC1) // add r9w, base (16-bit wrap)
	i.e.u16(base)
	return operand{dynamic: true}
}

func (i *insn) addrABY(base uint16) operand {
	i.yToR10()
	i.e.emit(0x45, 0x0F, 0xB6, 0xCA) // movzx r9d, r10b
	i.e.emit(0x66, 0x41, 0x81, 0xC1) // add r9w, base (16-bit wrap)
	i.e.u16(base)
	return operand{dynamic: true}
}

func (i *insn) addrINX(op1 uint8) operand {
	i.e.emit(0x41, 0xB1, op1)             // mov r9b, op1
	i.e.emit(0x41, 0x00, 0xC9)            // add r9b, cl
	i.e.emit(0x45, 0x0F, 0xB6, 0xC9)      // movzx r9d, r9b
	i.e.emit(0x46, 0x8A, 0x14, 0x0F)      // mov r10b, [rdi+r9]: pointer low
	i.e.emit(0x41, 0xFE, 0xC1)            // inc r9b: zero-page wrap
	i.e.emit(0x46, 0x8A, 0x0C, 0x0F)      // mov r9b, [rdi+r9]: pointer high
	i.e.emit(0x41, 0xC1, 0xE1, 0x08)      // shl r9d, 8
	i.e.emit(0x45, 0x08, 0xD1)            // or r9b, r10b
	return operand{dynamic: true, indirect: true}
}

func (i *insn) addrINY(op1 uint8) operand {
	hi := uint16(op1+1)                   // zero-page wrap is static
	i.e.emit(0x44, 0x0F, 0xB6, 0x8F)      // movzx r9d, byte [rdi+zp+1]
	i.e.u32(uint32(hi))
	i.e.emit(0x41, 0xC1, 0xE1, 0x08)      // shl r9d, 8
	i.e.emit(0x44, 0x8A, 0x97)            // mov r10b, [rdi+zp]
	i.e.u32(uint32(op1))
	i.e.emit(0x45, 0x08, 0xD1)            // or r9b, r10b
	i.yToR10()
	i.e.emit(0x66, 0x45, 0x01, 0xD1)      // add r9w, r10w (16-bit wrap)
	return operand{dynamic: true, indirect: true}
}

// yToR10 extracts Y into R10B; CH cannot pair with a REX prefix, so it goes
// through a 16-bit copy.
func (i *insn) yToR10() {
	i.e.emit(0x66, 0x41, 0x89, 0xCA)       // mov r10w, cx
	i.e.emit(0x66, 0x41, 0xC1, 0xEA, 0x08) // shr r10w, 8
}

// mmioCheckR9 exits to the interpreter when the dynamic address in R9W falls
// inside the MMIO window.
func (i *insn) mmioCheckR9() {
	i.e.emit(0x66, 0x41, 0x81, 0xF9) // cmp r9w, 0xFC00
	i.e.u16(0xFC00)
	i.e.emit(0x72, 0x13) // jb past the exit
	i.e.emit(0x66, 0x41, 0x81, 0xF9) // cmp r9w, 0xFF00
	i.e.u16(0xFF00)
	i.e.emit(0x73, 0x0B) // jae past the exit
	i.exitInterp(i.pc)
}

// storeCheckR9 exits to the interpreter for any dynamic store at or above
// the RAM ceiling; the interpreter applies the ROM write drop and the MMIO
// dispatch in one place.
func (i *insn) storeCheckR9() {
	i.e.emit(0x66, 0x41, 0x81, 0xF9) // cmp r9w, 0x8000
	i.e.u16(0x8000)
	i.e.emit(0x72, 0x0B) // jb past the exit
	i.exitInterp(i.pc)
}

// patchStaticSlot plants the stale trap over every slot whose translation
// may embed the stored byte (a three-byte instruction keeps its operands in
// its first byte's slot), so a later jump into overwritten code
// re-translates.
func (i *insn) patchStaticSlot(addr uint16) {
	for span := uint16(0); span < 3; span++ {
		if addr < span {
			break
		}
		i.e.emit(0x66, 0x41, 0xC7, 0x84, 0x24) // mov word [r12+off], trap
		i.e.u32(uint32(addr-span) << SlotShift)
		i.e.emit(0xFF, 0xD0)
	}
}

// patchDynamicSlot plants the same three traps for a store whose address is
// in R9W. Clobbers R10.
func (i *insn) patchDynamicSlot() {
	i.e.emit(0x45, 0x89, 0xCA)             // mov r10d, r9d
	i.e.emit(0x41, 0xC1, 0xE2, SlotShift)  // shl r10d, SlotShift
	i.e.emit(0x66, 0x43, 0xC7, 0x04, 0x14) // mov word [r12+r10], trap
	i.e.emit(0xFF, 0xD0)
	for span := 0; span < 2; span++ {
		i.e.emit(0x41, 0x81, 0xEA) // sub r10d, SlotSize
		i.e.u32(SlotSize)
		i.e.emit(0x78, 0x07) // js past the patch: guest address underflow
		i.e.emit(0x66, 0x43, 0xC7, 0x04, 0x14) // mov word [r12+r10], trap
		i.e.emit(0xFF, 0xD0)
	}
}

// patchStackSlot plants the traps for a push through [RDI+RBP]; code
// executed out of the stack page is rare but legal. Clobbers R10.
func (i *insn) patchStackSlot() {
	i.e.emit(0x41, 0x89, 0xEA)             // mov r10d, ebp
	i.e.emit(0x41, 0xC1, 0xE2, SlotShift)  // shl r10d, SlotShift
	i.e.emit(0x66, 0x43, 0xC7, 0x04, 0x14) // mov word [r12+r10], trap
	i.e.emit(0xFF, 0xD0)
	for span := 0; span < 2; span++ {
		i.e.emit(0x41, 0x81, 0xEA) // sub r10d, SlotSize
		i.e.u32(SlotSize)
		i.e.emit(0x66, 0x43, 0xC7, 0x04, 0x14) // mov word [r12+r10], trap
		i.e.emit(0xFF, 0xD0)
	}
}

// jmpSlotR9 jumps to the slot whose guest PC is in R9W.
func (i *insn) jmpSlotR9() {
	i.e.emit(0x41, 0xC1, 0xE1, SlotShift) // shl r9d, SlotShift
	i.e.emit(0x4D, 0x01, 0xE1)            // add r9, r12
	i.e.emit(0x41, 0xFF, 0xE1)            // jmp r9
}

// loadValueR10 brings the operand value into R10B.
func (i *insn) loadValueR10(op operand) {
	switch {
	case op.imm:
		i.e.emit(0x41, 0xB2, op.immVal) // mov r10b, imm
	case op.dynamic:
		i.e.emit(0x46, 0x8A, 0x14, 0x0F) // mov r10b, [rdi+r9]
	default:
		i.e.emit(0x44, 0x8A, 0x97) // mov r10b, [rdi+addr]
		i.e.u32(uint32(op.addr))
	}
}

// load emits LDA/LDX/LDY for a memory operand.
func (i *insn) load(dest guestReg, op operand, length int, cycles uint8) (int, bool) {
	if !op.dynamic && isMMIO(op.addr) {
		i.exitInterp(i.pc)
		return length, false
	}
	if i.t.accurate {
		i.checkCountdown()
		if op.indirect {
			// Indirect operands stay on the interpreter in accurate mode;
			// the per-instruction bookkeeping leaves no slot room for them.
			i.exitInterp(i.pc)
			return length, false
		}
	}
	if op.dynamic {
		i.mmioCheckR9()
	}
	i.subCycles(cycles)
	switch dest {
	case regA:
		if op.dynamic {
			i.e.emit(0x42, 0x8A, 0x1C, 0x0F) // mov bl, [rdi+r9]
		} else {
			i.e.emit(0x8A, 0x9F) // mov bl, [rdi+addr]
			i.e.u32(uint32(op.addr))
		}
		i.znFromA()
	case regX:
		if op.dynamic {
			i.e.emit(0x42, 0x8A, 0x0C, 0x0F) // mov cl, [rdi+r9]
		} else {
			i.e.emit(0x8A, 0x8F) // mov cl, [rdi+addr]
			i.e.u32(uint32(op.addr))
		}
		i.znFromX()
	case regY:
		if op.dynamic {
			i.loadValueR10(op)
			i.r10ToY()
		} else {
			i.e.emit(0x8A, 0xAF) // mov ch, [rdi+addr]
			i.e.u32(uint32(op.addr))
		}
		i.znFromY()
	}
	return length, true
}

// r10ToY writes R10B into CH via a 16-bit merge; a direct byte move cannot
// encode.
func (i *insn) r10ToY() {
	i.e.emit(0x66, 0x81, 0xE1, 0xFF, 0x00) // and cx, 0x00FF
	i.e.emit(0x41, 0xC1, 0xE2, 0x08)       // shl r10d, 8
	i.e.emit(0x66, 0x44, 0x09, 0xD1)       // or cx, r10w
}

// store emits STA/STX/STY. Stores into translated code invalidate the
// affected slot inline; in accurate mode the instruction then exits so the
// dispatcher can observe the write immediately.
func (i *insn) store(src guestReg, op operand, length int, cycles uint8) (int, bool) {
	if !op.dynamic && op.addr >= 0x8000 {
		i.exitInterp(i.pc)
		return length, false
	}
	if i.t.accurate {
		i.checkCountdown()
		if op.indirect {
			i.exitInterp(i.pc)
			return length, false
		}
	}
	if op.dynamic {
		i.storeCheckR9()
	}
	i.subCycles(cycles)
	switch src {
	case regA:
		if op.dynamic {
			i.e.emit(0x42, 0x88, 0x1C, 0x0F) // mov [rdi+r9], bl
		} else {
			i.e.emit(0x88, 0x9F) // mov [rdi+addr], bl
			i.e.u32(uint32(op.addr))
		}
	case regX:
		if op.dynamic {
			i.e.emit(0x42, 0x88, 0x0C, 0x0F) // mov [rdi+r9], cl
		} else {
			i.e.emit(0x88, 0x8F) // mov [rdi+addr], cl
			i.e.u32(uint32(op.addr))
		}
	case regY:
		if op.dynamic {
			i.yToR10()
			i.e.emit(0x46, 0x88, 0x14, 0x0F) // mov [rdi+r9], r10b
		} else {
			i.e.emit(0x88, 0xAF) // mov [rdi+addr], ch
			i.e.u32(uint32(op.addr))
		}
	}
	if op.dynamic {
		i.patchDynamicSlot()
	} else {
		i.patchStaticSlot(op.addr)
	}
	if i.t.accurate {
		i.exitCountdown(i.nextPCFor(length))
		return length, false
	}
	return length, true
}

func (i *insn) nextPCFor(length int) uint16 {
	return i.pc + uint16(length)
}

// alu emits AND/EOR/ORA for a memory operand.
func (i *insn) alu(kind aluOp, op operand, length int, cycles uint8) (int, bool) {
	if !op.dynamic && isMMIO(op.addr) {
		i.exitInterp(i.pc)
		return length, false
	}
	if i.t.accurate {
		i.checkCountdown()
		if op.indirect {
			i.exitInterp(i.pc)
			return length, false
		}
	}
	if op.dynamic {
		i.mmioCheckR9()
	}
	i.subCycles(cycles)
	i.loadValueR10(op)
	switch kind {
	case aluAnd:
		i.e.emit(0x44, 0x20, 0xD3) // and bl, r10b
	case aluEor:
		i.e.emit(0x44, 0x30, 0xD3) // xor bl, r10b
	case aluOra:
		i.e.emit(0x44, 0x08, 0xD3) // or bl, r10b
	}
	i.znFromA()
	return length, true
}

// adc emits ADC (or SBC via complement). Decimal mode is resolved at run
// time: the D flag sends the instruction to the interpreter.
func (i *insn) adc(sbc bool, op operand, length int, cycles uint8) (int, bool) {
	if !op.dynamic && !op.imm && isMMIO(op.addr) {
		i.exitInterp(i.pc)
		return length, false
	}
	if i.t.accurate {
		i.checkCountdown()
		if op.indirect {
			i.exitInterp(i.pc)
			return length, false
		}
	}
	i.e.emit(0x40, 0xF6, 0xC6, 0x08) // test sil, D
	i.e.emit(0x74, 0x0B)             // jz past the exit
	i.exitInterp(i.pc)
	if op.dynamic {
		i.mmioCheckR9()
	}
	i.subCycles(cycles)
	i.loadValueR10(op)
	if sbc {
		i.e.emit(0x41, 0xF6, 0xD2) // not r10b
	}
	i.e.emit(0xD0, 0xEF)             // shr bh, 1: CF = carry flag
	i.e.emit(0x44, 0x10, 0xD3)       // adc bl, r10b
	i.e.emit(0x0F, 0x92, 0xC7)       // setb bh
	i.e.emit(0x41, 0x0F, 0x90, 0xC1) // seto r9b
	i.e.emit(0x40, 0x80, 0xE6, 0xBF) // and sil, ~V
	i.e.emit(0x41, 0xC0, 0xE1, 0x06) // shl r9b, 6
	i.e.emit(0x44, 0x08, 0xCE)       // or sil, r9b
	i.znFromA()
	return length, true
}

// cmp emits CMP/CPX/CPY: carry, zero and negative from the subtraction.
func (i *insn) cmp(reg guestReg, op operand, length int, cycles uint8) (int, bool) {
	if !op.dynamic && !op.imm && isMMIO(op.addr) {
		i.exitInterp(i.pc)
		return length, false
	}
	if i.t.accurate {
		i.checkCountdown()
		if op.indirect {
			i.exitInterp(i.pc)
			return length, false
		}
	}
	if op.dynamic {
		i.mmioCheckR9()
	}
	i.subCycles(cycles)
	i.loadValueR10(op)
	switch reg {
	case regA:
		i.e.emit(0x41, 0x88, 0xD9) // mov r9b, bl
	case regX:
		i.e.emit(0x41, 0x88, 0xC9) // mov r9b, cl
	case regY:
		i.e.emit(0x66, 0x41, 0x89, 0xC9)       // mov r9w, cx
		i.e.emit(0x66, 0x41, 0xC1, 0xE9, 0x08) // shr r9w, 8
	}
	i.e.emit(0x45, 0x28, 0xD1) // sub r9b, r10b
	i.e.emit(0x0F, 0x93, 0xC7) // setae bh
	i.setZN()
	return length, true
}

// bit emits BIT: Z from A&M, N and V copied from the operand.
func (i *insn) bit(addr uint16, length int, cycles uint8) (int, bool) {
	if isMMIO(addr) {
		i.exitInterp(i.pc)
		return length, false
	}
	i.prologue(cycles)
	i.e.emit(0x44, 0x8A, 0x8F) // mov r9b, [rdi+addr]
	i.e.u32(uint32(addr))
	i.e.emit(0x45, 0x88, 0xCA)                   // mov r10b, r9b
	i.e.emit(0x41, 0x20, 0xDA)                   // and r10b, bl
	i.e.emit(0x0F, 0x94, 0xC2)                   // sete dl
	i.e.emit(0x81, 0xE2, 0xFF, 0x00, 0x00, 0x00) // and edx, 0xFF: clear N
	i.e.emit(0x45, 0x89, 0xCA)                   // mov r10d, r9d
	i.e.emit(0x41, 0xC1, 0xEA, 0x07)             // shr r10d, 7
	i.e.emit(0x41, 0x83, 0xE2, 0x01)             // and r10d, 1
	i.e.emit(0x41, 0xC1, 0xE2, 0x08)             // shl r10d, 8
	i.e.emit(0x44, 0x09, 0xD2)                   // or edx, r10d
	i.e.emit(0x45, 0x89, 0xCA)                   // mov r10d, r9d
	i.e.emit(0x41, 0x80, 0xE2, 0x40)             // and r10b, V
	i.e.emit(0x40, 0x80, 0xE6, 0xBF)             // and sil, ~V
	i.e.emit(0x44, 0x08, 0xD6)                   // or sil, r10b
	return length, true
}

// rmw emits the memory shift/rotate/inc/dec family: load, operate, store
// back, invalidate the slot.
func (i *insn) rmw(kind rmwOp, op operand, length int, cycles uint8) (int, bool) {
	if !op.dynamic && op.addr >= 0x8000 {
		i.exitInterp(i.pc)
		return length, false
	}
	if i.t.accurate {
		i.checkCountdown()
		if op.dynamic {
			// Indexed read-modify-write plus the per-store bookkeeping
			// does not fit a slot; accurate mode interprets it.
			i.exitInterp(i.pc)
			return length, false
		}
	}
	if op.dynamic {
		i.storeCheckR9()
	}
	i.subCycles(cycles)
	i.loadValueR10(op)
	switch kind {
	case rmwInc:
		i.e.emit(0x41, 0xFE, 0xC2) // inc r10b
		i.znFromR10()
	case rmwDec:
		i.e.emit(0x41, 0xFE, 0xCA) // dec r10b
		i.znFromR10()
	case rmwAsl:
		i.e.emit(0x41, 0xD0, 0xE2) // shl r10b, 1
		i.e.emit(0x0F, 0x92, 0xC7) // setb bh
		i.znFromR10()
	case rmwLsr:
		i.e.emit(0x41, 0xD0, 0xEA) // shr r10b, 1
		i.e.emit(0x0F, 0x92, 0xC7) // setb bh
		i.znFromR10()
	case rmwRol:
		i.e.emit(0xD0, 0xEF)       // shr bh, 1: CF = old carry
		i.e.emit(0x41, 0xD0, 0xD2) // rcl r10b, 1
		i.e.emit(0x0F, 0x92, 0xC7) // setb bh
		i.znFromR10()
	case rmwRor:
		i.e.emit(0xD0, 0xEF)       // shr bh, 1: CF = old carry
		i.e.emit(0x41, 0xD0, 0xDA) // rcr r10b, 1
		i.e.emit(0x0F, 0x92, 0xC7) // setb bh
		i.znFromR10()
	}
	if op.dynamic {
		i.e.emit(0x46, 0x88, 0x14, 0x0F) // mov [rdi+r9], r10b
		i.patchDynamicSlot()
	} else {
		i.e.emit(0x44, 0x88, 0x97) // mov [rdi+addr], r10b
		i.e.u32(uint32(op.addr))
		i.patchStaticSlot(op.addr)
	}
	if i.t.accurate {
		i.exitCountdown(i.nextPCFor(length))
		return length, false
	}
	return length, true
}

// branch emits a conditional branch: a flag test followed by a long-form
// conditional jump straight into the target slot.
func (i *insn) branch(testOp1, testOp2, cc byte, delta uint8) (int, bool) {
	i.controlPrologue(2)
	target := uint16(int32(i.pc) + 2 + int32(int8(delta)))
	i.e.emit(testOp1, testOp2)
	i.e.jcc32(cc, i.t.cache.slotOffset(target))
	return 2, true
}

// branchV tests the overflow bit kept in SIL.
func (i *insn) branchV(cc byte, delta uint8) (int, bool) {
	i.controlPrologue(2)
	target := uint16(int32(i.pc) + 2 + int32(int8(delta)))
	i.e.emit(0x40, 0xF6, 0xC6, 0x40) // test sil, V
	i.e.jcc32(cc, i.t.cache.slotOffset(target))
	return 2, true
}

// serializeP folds the split flag state into a 6502 P byte in R9B, with B
// and the always-set bit on (push semantics).
func (i *insn) serializeP() {
	i.e.emit(0x44, 0x8A, 0xCE)             // mov r9b, sil
	i.e.emit(0x41, 0x80, 0xE1, 0x6C)       // and r9b, I|D|V|U
	i.e.emit(0x41, 0x80, 0xC9, 0x30)       // or r9b, B|U
	i.e.emit(0x66, 0x41, 0x89, 0xDA)       // mov r10w, bx
	i.e.emit(0x66, 0x41, 0xC1, 0xEA, 0x08) // shr r10w, 8: carry
	i.e.emit(0x45, 0x08, 0xD1)             // or r9b, r10b
	i.e.emit(0x66, 0x41, 0x89, 0xD2)       // mov r10w, dx
	i.e.emit(0x41, 0xD0, 0xE2)             // shl r10b, 1: zero into bit 1
	i.e.emit(0x45, 0x08, 0xD1)             // or r9b, r10b
	i.e.emit(0x66, 0x41, 0x89, 0xD2)       // mov r10w, dx
	i.e.emit(0x66, 0x41, 0xC1, 0xEA, 0x08) // shr r10w, 8: negative
	i.e.emit(0x41, 0xC0, 0xE2, 0x07)       // shl r10b, 7
	i.e.emit(0x45, 0x08, 0xD1)             // or r9b, r10b
}

// unpackP explodes a 6502 P byte in R9B back into the split representation;
// B is dropped, the always-set bit forced (pull semantics).
func (i *insn) unpackP() {
	i.e.emit(0x45, 0x89, 0xCA)                   // mov r10d, r9d
	i.e.emit(0x41, 0x83, 0xE2, 0x01)             // and r10d, 1: carry
	i.e.emit(0x41, 0xC1, 0xE2, 0x08)             // shl r10d, 8
	i.e.emit(0x81, 0xE3, 0xFF, 0x00, 0x00, 0x00) // and ebx, 0xFF: keep A
	i.e.emit(0x44, 0x09, 0xD3)                   // or ebx, r10d
	i.e.emit(0x45, 0x89, 0xCA)                   // mov r10d, r9d
	i.e.emit(0x41, 0xD1, 0xEA)                   // shr r10d, 1
	i.e.emit(0x41, 0x83, 0xE2, 0x01)             // and r10d, 1: zero
	i.e.emit(0x45, 0x89, 0xCB)                   // mov r11d, r9d
	i.e.emit(0x41, 0xC1, 0xEB, 0x07)             // shr r11d, 7
	i.e.emit(0x41, 0x83, 0xE3, 0x01)             // and r11d, 1: negative
	i.e.emit(0x41, 0xC1, 0xE3, 0x08)             // shl r11d, 8
	i.e.emit(0x45, 0x09, 0xDA)                   // or r10d, r11d
	i.e.emit(0x44, 0x89, 0xD2)                   // mov edx, r10d
	i.e.emit(0x41, 0x80, 0xE1, 0x6C)             // and r9b, I|D|V|U
	i.e.emit(0x41, 0x80, 0xC9, 0x20)             // or r9b, U
	i.e.emit(0x44, 0x88, 0xCE)                   // mov sil, r9b
}
