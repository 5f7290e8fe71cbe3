package jit

import (
	"fmt"

	"github.com/newhook/bbc/cpu"
)

// Translator emits host code for guest instructions, one fixed-width slot
// per guest byte.
//
// Register convention shared with the trampoline:
//
//	RAX  address of the invalid-translation stub ("call rax" is the trap)
//	RBX  BL = A, BH = carry flag (0 or 1)
//	RCX  CL = X, CH = Y
//	RDX  DL = zero flag (0 or 1), DH = negative flag (0 or 1)
//	RBP  0x0100 | S, so [RDI+RBP] addresses the stack page directly
//	RSI  remaining P bits (I, D, V and the always-set bit)
//	RDI  guest address space base
//	R8D  signed cycle countdown
//	R12  slot 0 base for computed jumps
//	R13  reserved by the trampoline
//	R9, R10, R11 scratch; R11D carries the resume PC at exits
//
// Z and N are normalized to 0/1 with sete/sets after each result, so no host
// EFLAGS state survives between emitted guest instructions.
type Translator struct {
	cache    *Cache
	ram      []byte
	accurate bool
}

func NewTranslator(cache *Cache, ram []byte, accurate bool) *Translator {
	return &Translator{cache: cache, ram: ram, accurate: accurate}
}

// maxBlock bounds eager fall-through translation from one entry point.
const maxBlock = 128

func isMMIO(addr uint16) bool {
	return addr >= 0xFC00 && addr <= 0xFEFF
}

// Translate (re-)emits the slot at pc and keeps following fall-through until
// an unconditional control transfer, an already-valid slot, or the block
// bound. Branch targets are filled in lazily when their traps fire.
func (t *Translator) Translate(pc uint16) error {
	for n := 0; n < maxBlock; n++ {
		next, falls, err := t.translateOne(pc)
		if err != nil {
			return err
		}
		if !falls {
			return nil
		}
		pc = next
		if t.cache.State(pc) == SlotValid {
			return nil
		}
	}
	return nil
}

// insn carries the emission state for a single guest instruction.
type insn struct {
	t       *Translator
	e       *emitter
	pc      uint16
	nextPC  uint16
	slotEnd int
}

// operand describes a resolved addressing mode: an immediate, a static
// effective address, or an address computed into R9W at run time.
type operand struct {
	imm      bool
	immVal   byte
	dynamic  bool
	indirect bool
	addr     uint16
}

// translateOne emits one instruction into its slot. It returns the next PC
// and whether execution falls through into it.
func (t *Translator) translateOne(pc uint16) (uint16, bool, error) {
	i := &insn{
		t:       t,
		e:       &emitter{buf: t.cache.mapping, off: t.cache.slotOffset(pc)},
		pc:      pc,
		slotEnd: t.cache.slotOffset(pc) + SlotSize,
	}
	opcode := t.ram[pc]
	op1 := t.ram[pc+1]
	op16 := uint16(op1) | uint16(t.ram[pc+2])<<8

	length, falls := i.emitBody(opcode, op1, op16)
	i.nextPC = pc + uint16(length)
	if falls {
		i.e.jmp32(t.cache.slotOffset(i.nextPC))
	}
	i.e.checkSpace(i.slotEnd)
	if i.e.err != nil {
		return 0, false, fmt.Errorf("translate %02X at %04X: %w", opcode, pc, i.e.err)
	}
	t.cache.setValid(pc)
	return i.nextPC, falls, nil
}

// emitBody dispatches one opcode and returns its guest length and whether it
// falls through. Instructions the JIT does not carry inline (BRK, RTI,
// decimal arithmetic at run time, MMIO operands) exit to the interpreter for
// exactly one instruction.
func (i *insn) emitBody(opcode, op1 uint8, op16 uint16) (int, bool) {
	switch opcode {
	// Loads
	case cpu.LDA_IMM:
		i.prologue(2)
		i.e.emit(0xB3, op1) // mov bl, imm
		i.znFromA()
		return 2, true
	case cpu.LDA_ZP:
		return i.load(regA, operand{addr: uint16(op1)}, 2, 3)
	case cpu.LDA_ZPX:
		return i.load(regA, i.addrZPX(op1), 2, 4)
	case cpu.LDA_ABS:
		return i.load(regA, operand{addr: op16}, 3, 4)
	case cpu.LDA_ABX:
		return i.load(regA, i.addrABX(op16), 3, 4)
	case cpu.LDA_ABY:
		return i.load(regA, i.addrABY(op16), 3, 4)
	case cpu.LDA_INX:
		return i.load(regA, i.addrINX(op1), 2, 6)
	case cpu.LDA_INY:
		return i.load(regA, i.addrINY(op1), 2, 5)

	case cpu.LDX_IMM:
		i.prologue(2)
		i.e.emit(0xB1, op1) // mov cl, imm
		i.znFromX()
		return 2, true
	case cpu.LDX_ZP:
		return i.load(regX, operand{addr: uint16(op1)}, 2, 3)
	case cpu.LDX_ZPY:
		return i.load(regX, i.addrZPY(op1), 2, 4)
	case cpu.LDX_ABS:
		return i.load(regX, operand{addr: op16}, 3, 4)
	case cpu.LDX_ABY:
		return i.load(regX, i.addrABY(op16), 3, 4)

	case cpu.LDY_IMM:
		i.prologue(2)
		i.e.emit(0xB5, op1) // mov ch, imm
		i.znFromY()
		return 2, true
	case cpu.LDY_ZP:
		return i.load(regY, operand{addr: uint16(op1)}, 2, 3)
	case cpu.LDY_ZPX:
		return i.load(regY, i.addrZPX(op1), 2, 4)
	case cpu.LDY_ABS:
		return i.load(regY, operand{addr: op16}, 3, 4)
	case cpu.LDY_ABX:
		return i.load(regY, i.addrABX(op16), 3, 4)

	// Stores
	case cpu.STA_ZP:
		return i.store(regA, operand{addr: uint16(op1)}, 2, 3)
	case cpu.STA_ZPX:
		return i.store(regA, i.addrZPX(op1), 2, 4)
	case cpu.STA_ABS:
		return i.store(regA, operand{addr: op16}, 3, 4)
	case cpu.STA_ABX:
		return i.store(regA, i.addrABX(op16), 3, 5)
	case cpu.STA_ABY:
		return i.store(regA, i.addrABY(op16), 3, 5)
	case cpu.STA_INX:
		return i.store(regA, i.addrINX(op1), 2, 6)
	case cpu.STA_INY:
		return i.store(regA, i.addrINY(op1), 2, 6)

	case cpu.STX_ZP:
		return i.store(regX, operand{addr: uint16(op1)}, 2, 3)
	case cpu.STX_ZPY:
		return i.store(regX, i.addrZPY(op1), 2, 4)
	case cpu.STX_ABS:
		return i.store(regX, operand{addr: op16}, 3, 4)

	case cpu.STY_ZP:
		return i.store(regY, operand{addr: uint16(op1)}, 2, 3)
	case cpu.STY_ZPX:
		return i.store(regY, i.addrZPX(op1), 2, 4)
	case cpu.STY_ABS:
		return i.store(regY, operand{addr: op16}, 3, 4)

	// Register transfers
	case cpu.TAX:
		i.prologue(2)
		i.e.emit(0x88, 0xD9) // mov cl, bl
		i.znFromX()
		return 1, true
	case cpu.TAY:
		i.prologue(2)
		i.e.emit(0x88, 0xDD) // mov ch, bl
		i.znFromY()
		return 1, true
	case cpu.TXA:
		i.prologue(2)
		i.e.emit(0x88, 0xCB) // mov bl, cl
		i.znFromA()
		return 1, true
	case cpu.TYA:
		i.prologue(2)
		i.e.emit(0x88, 0xEB) // mov bl, ch
		i.znFromA()
		return 1, true
	case cpu.TSX:
		i.prologue(2)
		i.e.emit(0x40, 0x88, 0xE9) // mov cl, bpl
		i.znFromX()
		return 1, true
	case cpu.TXS:
		i.prologue(2)
		i.e.emit(0x40, 0x88, 0xCD) // mov bpl, cl
		return 1, true

	// Stack operations
	case cpu.PHA:
		i.prologue(3)
		i.e.emit(0x88, 0x1C, 0x2F) // mov [rdi+rbp], bl
		i.patchStackSlot()
		i.e.emit(0x40, 0xFE, 0xCD) // dec bpl
		return 1, true
	case cpu.PHP:
		i.prologue(3)
		i.serializeP()             // P byte into r9b, B and bit 5 set
		i.e.emit(0x44, 0x88, 0x0C, 0x2F) // mov [rdi+rbp], r9b
		i.patchStackSlot()
		i.e.emit(0x40, 0xFE, 0xCD) // dec bpl
		return 1, true
	case cpu.PLA:
		i.prologue(4)
		i.e.emit(0x40, 0xFE, 0xC5) // inc bpl
		i.e.emit(0x8A, 0x1C, 0x2F) // mov bl, [rdi+rbp]
		i.znFromA()
		return 1, true
	case cpu.PLP:
		i.prologue(4)
		i.e.emit(0x40, 0xFE, 0xC5)       // inc bpl
		i.e.emit(0x44, 0x8A, 0x0C, 0x2F) // mov r9b, [rdi+rbp]
		i.unpackP()
		return 1, true

	// Logical
	case cpu.AND_IMM:
		i.prologue(2)
		i.e.emit(0x80, 0xE3, op1) // and bl, imm
		i.znFromA()
		return 2, true
	case cpu.AND_ZP:
		return i.alu(aluAnd, operand{addr: uint16(op1)}, 2, 3)
	case cpu.AND_ZPX:
		return i.alu(aluAnd, i.addrZPX(op1), 2, 4)
	case cpu.AND_ABS:
		return i.alu(aluAnd, operand{addr: op16}, 3, 4)
	case cpu.AND_ABX:
		return i.alu(aluAnd, i.addrABX(op16), 3, 4)
	case cpu.AND_ABY:
		return i.alu(aluAnd, i.addrABY(op16), 3, 4)
	case cpu.AND_INX:
		return i.alu(aluAnd, i.addrINX(op1), 2, 6)
	case cpu.AND_INY:
		return i.alu(aluAnd, i.addrINY(op1), 2, 5)

	case cpu.EOR_IMM:
		i.prologue(2)
		i.e.emit(0x80, 0xF3, op1) // xor bl, imm
		i.znFromA()
		return 2, true
	case cpu.EOR_ZP:
		return i.alu(aluEor, operand{addr: uint16(op1)}, 2, 3)
	case cpu.EOR_ZPX:
		return i.alu(aluEor, i.addrZPX(op1), 2, 4)
	case cpu.EOR_ABS:
		return i.alu(aluEor, operand{addr: op16}, 3, 4)
	case cpu.EOR_ABX:
		return i.alu(aluEor, i.addrABX(op16), 3, 4)
	case cpu.EOR_ABY:
		return i.alu(aluEor, i.addrABY(op16), 3, 4)
	case cpu.EOR_INX:
		return i.alu(aluEor, i.addrINX(op1), 2, 6)
	case cpu.EOR_INY:
		return i.alu(aluEor, i.addrINY(op1), 2, 5)

	case cpu.ORA_IMM:
		i.prologue(2)
		i.e.emit(0x80, 0xCB, op1) // or bl, imm
		i.znFromA()
		return 2, true
	case cpu.ORA_ZP:
		return i.alu(aluOra, operand{addr: uint16(op1)}, 2, 3)
	case cpu.ORA_ZPX:
		return i.alu(aluOra, i.addrZPX(op1), 2, 4)
	case cpu.ORA_ABS:
		return i.alu(aluOra, operand{addr: op16}, 3, 4)
	case cpu.ORA_ABX:
		return i.alu(aluOra, i.addrABX(op16), 3, 4)
	case cpu.ORA_ABY:
		return i.alu(aluOra, i.addrABY(op16), 3, 4)
	case cpu.ORA_INX:
		return i.alu(aluOra, i.addrINX(op1), 2, 6)
	case cpu.ORA_INY:
		return i.alu(aluOra, i.addrINY(op1), 2, 5)

	case cpu.BIT_ZP:
		return i.bit(uint16(op1), 2, 3)
	case cpu.BIT_ABS:
		return i.bit(op16, 3, 4)

	// Arithmetic
	case cpu.ADC_IMM:
		return i.adc(false, operand{imm: true, immVal: op1}, 2, 2)
	case cpu.ADC_ZP:
		return i.adc(false, operand{addr: uint16(op1)}, 2, 3)
	case cpu.ADC_ZPX:
		return i.adc(false, i.addrZPX(op1), 2, 4)
	case cpu.ADC_ABS:
		return i.adc(false, operand{addr: op16}, 3, 4)
	case cpu.ADC_ABX:
		return i.adc(false, i.addrABX(op16), 3, 4)
	case cpu.ADC_ABY:
		return i.adc(false, i.addrABY(op16), 3, 4)
	case cpu.ADC_INX:
		return i.adc(false, i.addrINX(op1), 2, 6)
	case cpu.ADC_INY:
		return i.adc(false, i.addrINY(op1), 2, 5)

	case cpu.SBC_IMM:
		return i.adc(true, operand{imm: true, immVal: op1}, 2, 2)
	case cpu.SBC_ZP:
		return i.adc(true, operand{addr: uint16(op1)}, 2, 3)
	case cpu.SBC_ZPX:
		return i.adc(true, i.addrZPX(op1), 2, 4)
	case cpu.SBC_ABS:
		return i.adc(true, operand{addr: op16}, 3, 4)
	case cpu.SBC_ABX:
		return i.adc(true, i.addrABX(op16), 3, 4)
	case cpu.SBC_ABY:
		return i.adc(true, i.addrABY(op16), 3, 4)
	case cpu.SBC_INX:
		return i.adc(true, i.addrINX(op1), 2, 6)
	case cpu.SBC_INY:
		return i.adc(true, i.addrINY(op1), 2, 5)

	// Compares
	case cpu.CMP_IMM:
		return i.cmp(regA, operand{imm: true, immVal: op1}, 2, 2)
	case cpu.CMP_ZP:
		return i.cmp(regA, operand{addr: uint16(op1)}, 2, 3)
	case cpu.CMP_ZPX:
		return i.cmp(regA, i.addrZPX(op1), 2, 4)
	case cpu.CMP_ABS:
		return i.cmp(regA, operand{addr: op16}, 3, 4)
	case cpu.CMP_ABX:
		return i.cmp(regA, i.addrABX(op16), 3, 4)
	case cpu.CMP_ABY:
		return i.cmp(regA, i.addrABY(op16), 3, 4)
	case cpu.CMP_INX:
		return i.cmp(regA, i.addrINX(op1), 2, 6)
	case cpu.CMP_INY:
		return i.cmp(regA, i.addrINY(op1), 2, 5)

	case cpu.CPX_IMM:
		return i.cmp(regX, operand{imm: true, immVal: op1}, 2, 2)
	case cpu.CPX_ZP:
		return i.cmp(regX, operand{addr: uint16(op1)}, 2, 3)
	case cpu.CPX_ABS:
		return i.cmp(regX, operand{addr: op16}, 3, 4)

	case cpu.CPY_IMM:
		return i.cmp(regY, operand{imm: true, immVal: op1}, 2, 2)
	case cpu.CPY_ZP:
		return i.cmp(regY, operand{addr: uint16(op1)}, 2, 3)
	case cpu.CPY_ABS:
		return i.cmp(regY, operand{addr: op16}, 3, 4)

	// Increments and decrements
	case cpu.INC_ZP:
		return i.rmw(rmwInc, operand{addr: uint16(op1)}, 2, 5)
	case cpu.INC_ZPX:
		return i.rmw(rmwInc, i.addrZPX(op1), 2, 6)
	case cpu.INC_ABS:
		return i.rmw(rmwInc, operand{addr: op16}, 3, 6)
	case cpu.INC_ABX:
		return i.rmw(rmwInc, i.addrABX(op16), 3, 7)
	case cpu.DEC_ZP:
		return i.rmw(rmwDec, operand{addr: uint16(op1)}, 2, 5)
	case cpu.DEC_ZPX:
		return i.rmw(rmwDec, i.addrZPX(op1), 2, 6)
	case cpu.DEC_ABS:
		return i.rmw(rmwDec, operand{addr: op16}, 3, 6)
	case cpu.DEC_ABX:
		return i.rmw(rmwDec, i.addrABX(op16), 3, 7)

	case cpu.INX:
		i.prologue(2)
		i.e.emit(0xFE, 0xC1) // inc cl
		i.znFromX()
		return 1, true
	case cpu.INY:
		i.prologue(2)
		i.e.emit(0xFE, 0xC5) // inc ch
		i.znFromY()
		return 1, true
	case cpu.DEX:
		i.prologue(2)
		i.e.emit(0xFE, 0xC9) // dec cl
		i.znFromX()
		return 1, true
	case cpu.DEY:
		i.prologue(2)
		i.e.emit(0xFE, 0xCD) // dec ch
		i.znFromY()
		return 1, true

	// Shifts and rotates
	case cpu.ASL_ACC:
		i.prologue(2)
		i.e.emit(0xD0, 0xE3)       // shl bl, 1
		i.e.emit(0x0F, 0x92, 0xC7) // setb bh
		i.znFromA()
		return 1, true
	case cpu.LSR_ACC:
		i.prologue(2)
		i.e.emit(0xD0, 0xEB)       // shr bl, 1
		i.e.emit(0x0F, 0x92, 0xC7) // setb bh
		i.znFromA()
		return 1, true
	case cpu.ROL_ACC:
		i.prologue(2)
		i.e.emit(0xD0, 0xEF)       // shr bh, 1: CF = old carry
		i.e.emit(0xD0, 0xD3)       // rcl bl, 1
		i.e.emit(0x0F, 0x92, 0xC7) // setb bh
		i.znFromA()
		return 1, true
	case cpu.ROR_ACC:
		i.prologue(2)
		i.e.emit(0xD0, 0xEF)       // shr bh, 1: CF = old carry
		i.e.emit(0xD0, 0xDB)       // rcr bl, 1
		i.e.emit(0x0F, 0x92, 0xC7) // setb bh
		i.znFromA()
		return 1, true
	case cpu.ASL_ZP:
		return i.rmw(rmwAsl, operand{addr: uint16(op1)}, 2, 5)
	case cpu.ASL_ZPX:
		return i.rmw(rmwAsl, i.addrZPX(op1), 2, 6)
	case cpu.ASL_ABS:
		return i.rmw(rmwAsl, operand{addr: op16}, 3, 6)
	case cpu.ASL_ABX:
		return i.rmw(rmwAsl, i.addrABX(op16), 3, 7)
	case cpu.LSR_ZP:
		return i.rmw(rmwLsr, operand{addr: uint16(op1)}, 2, 5)
	case cpu.LSR_ZPX:
		return i.rmw(rmwLsr, i.addrZPX(op1), 2, 6)
	case cpu.LSR_ABS:
		return i.rmw(rmwLsr, operand{addr: op16}, 3, 6)
	case cpu.LSR_ABX:
		return i.rmw(rmwLsr, i.addrABX(op16), 3, 7)
	case cpu.ROL_ZP:
		return i.rmw(rmwRol, operand{addr: uint16(op1)}, 2, 5)
	case cpu.ROL_ZPX:
		return i.rmw(rmwRol, i.addrZPX(op1), 2, 6)
	case cpu.ROL_ABS:
		return i.rmw(rmwRol, operand{addr: op16}, 3, 6)
	case cpu.ROL_ABX:
		return i.rmw(rmwRol, i.addrABX(op16), 3, 7)
	case cpu.ROR_ZP:
		return i.rmw(rmwRor, operand{addr: uint16(op1)}, 2, 5)
	case cpu.ROR_ZPX:
		return i.rmw(rmwRor, i.addrZPX(op1), 2, 6)
	case cpu.ROR_ABS:
		return i.rmw(rmwRor, operand{addr: op16}, 3, 6)
	case cpu.ROR_ABX:
		return i.rmw(rmwRor, i.addrABX(op16), 3, 7)

	// Jumps and calls
	case cpu.JMP_ABS:
		i.controlPrologue(3)
		i.e.jmp32(i.t.cache.slotOffset(op16))
		return 3, false
	case cpu.JMP_IND:
		i.controlPrologue(5)
		// NMOS pointer fetch: the high byte never crosses the page.
		lo := op16
		hi := op16&0xFF00 | (op16+1)&0x00FF
		i.e.emit(0x44, 0x0F, 0xB6, 0x97) // movzx r10d, byte [rdi+hi]
		i.e.u32(uint32(hi))
		i.e.emit(0x41, 0xC1, 0xE2, 0x08) // shl r10d, 8
		i.e.emit(0x44, 0x0F, 0xB6, 0x8F) // movzx r9d, byte [rdi+lo]
		i.e.u32(uint32(lo))
		i.e.emit(0x45, 0x09, 0xD1) // or r9d, r10d
		i.jmpSlotR9()
		return 3, false
	case cpu.JSR_ABS:
		i.controlPrologue(6)
		// The 6502 pushes return address - 1, i.e. the JSR's last byte.
		ret := i.pc + 2
		i.e.emit(0xC6, 0x04, 0x2F, byte(ret>>8)) // mov byte [rdi+rbp], hi
		i.patchStackSlot()
		i.e.emit(0x40, 0xFE, 0xCD)             // dec bpl
		i.e.emit(0xC6, 0x04, 0x2F, byte(ret))  // mov byte [rdi+rbp], lo
		i.patchStackSlot()
		i.e.emit(0x40, 0xFE, 0xCD) // dec bpl
		i.e.jmp32(i.t.cache.slotOffset(op16))
		return 3, false
	case cpu.RTS:
		i.controlPrologue(6)
		i.e.emit(0x40, 0xFE, 0xC5)             // inc bpl
		i.e.emit(0x44, 0x0F, 0xB6, 0x0C, 0x2F) // movzx r9d, byte [rdi+rbp]
		i.e.emit(0x40, 0xFE, 0xC5)             // inc bpl
		i.e.emit(0x44, 0x0F, 0xB6, 0x14, 0x2F) // movzx r10d, byte [rdi+rbp]
		i.e.emit(0x41, 0xC1, 0xE2, 0x08)       // shl r10d, 8
		i.e.emit(0x45, 0x09, 0xD1)             // or r9d, r10d
		i.e.emit(0x66, 0x41, 0xFF, 0xC1)       // inc r9w
		i.jmpSlotR9()
		return 1, false

	// Branches
	case cpu.BEQ:
		return i.branch(0x84, 0xD2, 0x85, op1) // test dl,dl; jne
	case cpu.BNE:
		return i.branch(0x84, 0xD2, 0x84, op1) // test dl,dl; je
	case cpu.BMI:
		return i.branch(0x84, 0xF6, 0x85, op1) // test dh,dh; jne
	case cpu.BPL:
		return i.branch(0x84, 0xF6, 0x84, op1) // test dh,dh; je
	case cpu.BCS:
		return i.branch(0x84, 0xFF, 0x85, op1) // test bh,bh; jne
	case cpu.BCC:
		return i.branch(0x84, 0xFF, 0x84, op1) // test bh,bh; je
	case cpu.BVS:
		return i.branchV(0x85, op1)
	case cpu.BVC:
		return i.branchV(0x84, op1)

	// Flag changes
	case cpu.CLC:
		i.prologue(2)
		i.e.emit(0xB7, 0x00) // mov bh, 0
		return 1, true
	case cpu.SEC:
		i.prologue(2)
		i.e.emit(0xB7, 0x01) // mov bh, 1
		return 1, true
	case cpu.CLI:
		i.prologue(2)
		i.e.emit(0x40, 0x80, 0xE6, 0xFB) // and sil, ~I
		return 1, true
	case cpu.SEI:
		i.prologue(2)
		i.e.emit(0x40, 0x80, 0xCE, 0x04) // or sil, I
		return 1, true
	case cpu.CLD:
		i.prologue(2)
		i.e.emit(0x40, 0x80, 0xE6, 0xF7) // and sil, ~D
		return 1, true
	case cpu.SED:
		i.prologue(2)
		i.e.emit(0x40, 0x80, 0xCE, 0x08) // or sil, D
		return 1, true
	case cpu.CLV:
		i.prologue(2)
		i.e.emit(0x40, 0x80, 0xE6, 0xBF) // and sil, ~V
		return 1, true

	case cpu.NOP:
		i.prologue(2)
		return 1, true

	// Interrupt plumbing runs through the interpreter so the split flag
	// state and vectors stay in one place.
	case cpu.BRK, cpu.RTI:
		i.checkCountdown()
		i.exitInterp(i.pc)
		return 1, false
	}

	// Unknown opcode: a host trap followed by the opcode and the guest PC
	// (big-endian) so the fault handler can disassemble the situation.
	i.e.emit(0xFF, 0xD0) // call rax
	i.e.emit(opcode, byte(i.pc>>8), byte(i.pc))
	return 1, false
}
