package disassembler

import (
	"fmt"

	"github.com/newhook/bbc/cpu"
)

// Instruction is one decoded opcode.
type Instruction struct {
	Name string
	Mode AddressingMode
}

// AddressingMode enumerates the 6502 addressing modes.
type AddressingMode int

const (
	Implicit AddressingMode = iota
	Accumulator
	Immediate
	ZeroPage
	ZeroPageX
	ZeroPageY
	Absolute
	AbsoluteX
	AbsoluteY
	Indirect
	IndirectX
	IndirectY
	Relative
)

// OperandBytes returns how many operand bytes the mode consumes.
func (mode AddressingMode) OperandBytes() int {
	switch mode {
	case Implicit, Accumulator:
		return 0
	case Absolute, AbsoluteX, AbsoluteY, Indirect:
		return 2
	default:
		return 1
	}
}

// FormatOperand renders the operand; pc is the instruction address, needed
// for relative branches.
func (mode AddressingMode) FormatOperand(pc uint16, bytes []byte) string {
	switch mode {
	case Implicit:
		return ""
	case Accumulator:
		return "A"
	case Immediate:
		return fmt.Sprintf("#$%02X", bytes[0])
	case ZeroPage:
		return fmt.Sprintf("$%02X", bytes[0])
	case ZeroPageX:
		return fmt.Sprintf("$%02X,X", bytes[0])
	case ZeroPageY:
		return fmt.Sprintf("$%02X,Y", bytes[0])
	case Absolute:
		return fmt.Sprintf("$%02X%02X", bytes[1], bytes[0])
	case AbsoluteX:
		return fmt.Sprintf("$%02X%02X,X", bytes[1], bytes[0])
	case AbsoluteY:
		return fmt.Sprintf("$%02X%02X,Y", bytes[1], bytes[0])
	case Indirect:
		return fmt.Sprintf("($%02X%02X)", bytes[1], bytes[0])
	case IndirectX:
		return fmt.Sprintf("($%02X,X)", bytes[0])
	case IndirectY:
		return fmt.Sprintf("($%02X),Y", bytes[0])
	case Relative:
		target := uint16(int32(pc) + 2 + int32(int8(bytes[0])))
		return fmt.Sprintf("$%04X", target)
	default:
		return "???"
	}
}

// instructionSet is indexed by opcode; a zero Name marks an undocumented
// opcode.
var instructionSet [256]Instruction

func def(opcode uint8, name string, mode AddressingMode) {
	instructionSet[opcode] = Instruction{Name: name, Mode: mode}
}

func init() {
	def(cpu.LDA_IMM, "LDA", Immediate)
	def(cpu.LDA_ZP, "LDA", ZeroPage)
	def(cpu.LDA_ZPX, "LDA", ZeroPageX)
	def(cpu.LDA_ABS, "LDA", Absolute)
	def(cpu.LDA_ABX, "LDA", AbsoluteX)
	def(cpu.LDA_ABY, "LDA", AbsoluteY)
	def(cpu.LDA_INX, "LDA", IndirectX)
	def(cpu.LDA_INY, "LDA", IndirectY)

	def(cpu.LDX_IMM, "LDX", Immediate)
	def(cpu.LDX_ZP, "LDX", ZeroPage)
	def(cpu.LDX_ZPY, "LDX", ZeroPageY)
	def(cpu.LDX_ABS, "LDX", Absolute)
	def(cpu.LDX_ABY, "LDX", AbsoluteY)

	def(cpu.LDY_IMM, "LDY", Immediate)
	def(cpu.LDY_ZP, "LDY", ZeroPage)
	def(cpu.LDY_ZPX, "LDY", ZeroPageX)
	def(cpu.LDY_ABS, "LDY", Absolute)
	def(cpu.LDY_ABX, "LDY", AbsoluteX)

	def(cpu.STA_ZP, "STA", ZeroPage)
	def(cpu.STA_ZPX, "STA", ZeroPageX)
	def(cpu.STA_ABS, "STA", Absolute)
	def(cpu.STA_ABX, "STA", AbsoluteX)
	def(cpu.STA_ABY, "STA", AbsoluteY)
	def(cpu.STA_INX, "STA", IndirectX)
	def(cpu.STA_INY, "STA", IndirectY)

	def(cpu.STX_ZP, "STX", ZeroPage)
	def(cpu.STX_ZPY, "STX", ZeroPageY)
	def(cpu.STX_ABS, "STX", Absolute)

	def(cpu.STY_ZP, "STY", ZeroPage)
	def(cpu.STY_ZPX, "STY", ZeroPageX)
	def(cpu.STY_ABS, "STY", Absolute)

	def(cpu.TAX, "TAX", Implicit)
	def(cpu.TAY, "TAY", Implicit)
	def(cpu.TXA, "TXA", Implicit)
	def(cpu.TYA, "TYA", Implicit)
	def(cpu.TSX, "TSX", Implicit)
	def(cpu.TXS, "TXS", Implicit)

	def(cpu.PHA, "PHA", Implicit)
	def(cpu.PHP, "PHP", Implicit)
	def(cpu.PLA, "PLA", Implicit)
	def(cpu.PLP, "PLP", Implicit)

	def(cpu.AND_IMM, "AND", Immediate)
	def(cpu.AND_ZP, "AND", ZeroPage)
	def(cpu.AND_ZPX, "AND", ZeroPageX)
	def(cpu.AND_ABS, "AND", Absolute)
	def(cpu.AND_ABX, "AND", AbsoluteX)
	def(cpu.AND_ABY, "AND", AbsoluteY)
	def(cpu.AND_INX, "AND", IndirectX)
	def(cpu.AND_INY, "AND", IndirectY)

	def(cpu.EOR_IMM, "EOR", Immediate)
	def(cpu.EOR_ZP, "EOR", ZeroPage)
	def(cpu.EOR_ZPX, "EOR", ZeroPageX)
	def(cpu.EOR_ABS, "EOR", Absolute)
	def(cpu.EOR_ABX, "EOR", AbsoluteX)
	def(cpu.EOR_ABY, "EOR", AbsoluteY)
	def(cpu.EOR_INX, "EOR", IndirectX)
	def(cpu.EOR_INY, "EOR", IndirectY)

	def(cpu.ORA_IMM, "ORA", Immediate)
	def(cpu.ORA_ZP, "ORA", ZeroPage)
	def(cpu.ORA_ZPX, "ORA", ZeroPageX)
	def(cpu.ORA_ABS, "ORA", Absolute)
	def(cpu.ORA_ABX, "ORA", AbsoluteX)
	def(cpu.ORA_ABY, "ORA", AbsoluteY)
	def(cpu.ORA_INX, "ORA", IndirectX)
	def(cpu.ORA_INY, "ORA", IndirectY)

	def(cpu.BIT_ZP, "BIT", ZeroPage)
	def(cpu.BIT_ABS, "BIT", Absolute)

	def(cpu.ADC_IMM, "ADC", Immediate)
	def(cpu.ADC_ZP, "ADC", ZeroPage)
	def(cpu.ADC_ZPX, "ADC", ZeroPageX)
	def(cpu.ADC_ABS, "ADC", Absolute)
	def(cpu.ADC_ABX, "ADC", AbsoluteX)
	def(cpu.ADC_ABY, "ADC", AbsoluteY)
	def(cpu.ADC_INX, "ADC", IndirectX)
	def(cpu.ADC_INY, "ADC", IndirectY)

	def(cpu.SBC_IMM, "SBC", Immediate)
	def(cpu.SBC_ZP, "SBC", ZeroPage)
	def(cpu.SBC_ZPX, "SBC", ZeroPageX)
	def(cpu.SBC_ABS, "SBC", Absolute)
	def(cpu.SBC_ABX, "SBC", AbsoluteX)
	def(cpu.SBC_ABY, "SBC", AbsoluteY)
	def(cpu.SBC_INX, "SBC", IndirectX)
	def(cpu.SBC_INY, "SBC", IndirectY)

	def(cpu.CMP_IMM, "CMP", Immediate)
	def(cpu.CMP_ZP, "CMP", ZeroPage)
	def(cpu.CMP_ZPX, "CMP", ZeroPageX)
	def(cpu.CMP_ABS, "CMP", Absolute)
	def(cpu.CMP_ABX, "CMP", AbsoluteX)
	def(cpu.CMP_ABY, "CMP", AbsoluteY)
	def(cpu.CMP_INX, "CMP", IndirectX)
	def(cpu.CMP_INY, "CMP", IndirectY)

	def(cpu.CPX_IMM, "CPX", Immediate)
	def(cpu.CPX_ZP, "CPX", ZeroPage)
	def(cpu.CPX_ABS, "CPX", Absolute)

	def(cpu.CPY_IMM, "CPY", Immediate)
	def(cpu.CPY_ZP, "CPY", ZeroPage)
	def(cpu.CPY_ABS, "CPY", Absolute)

	def(cpu.INC_ZP, "INC", ZeroPage)
	def(cpu.INC_ZPX, "INC", ZeroPageX)
	def(cpu.INC_ABS, "INC", Absolute)
	def(cpu.INC_ABX, "INC", AbsoluteX)

	def(cpu.DEC_ZP, "DEC", ZeroPage)
	def(cpu.DEC_ZPX, "DEC", ZeroPageX)
	def(cpu.DEC_ABS, "DEC", Absolute)
	def(cpu.DEC_ABX, "DEC", AbsoluteX)

	def(cpu.INX, "INX", Implicit)
	def(cpu.INY, "INY", Implicit)
	def(cpu.DEX, "DEX", Implicit)
	def(cpu.DEY, "DEY", Implicit)

	def(cpu.ASL_ACC, "ASL", Accumulator)
	def(cpu.ASL_ZP, "ASL", ZeroPage)
	def(cpu.ASL_ZPX, "ASL", ZeroPageX)
	def(cpu.ASL_ABS, "ASL", Absolute)
	def(cpu.ASL_ABX, "ASL", AbsoluteX)

	def(cpu.LSR_ACC, "LSR", Accumulator)
	def(cpu.LSR_ZP, "LSR", ZeroPage)
	def(cpu.LSR_ZPX, "LSR", ZeroPageX)
	def(cpu.LSR_ABS, "LSR", Absolute)
	def(cpu.LSR_ABX, "LSR", AbsoluteX)

	def(cpu.ROL_ACC, "ROL", Accumulator)
	def(cpu.ROL_ZP, "ROL", ZeroPage)
	def(cpu.ROL_ZPX, "ROL", ZeroPageX)
	def(cpu.ROL_ABS, "ROL", Absolute)
	def(cpu.ROL_ABX, "ROL", AbsoluteX)

	def(cpu.ROR_ACC, "ROR", Accumulator)
	def(cpu.ROR_ZP, "ROR", ZeroPage)
	def(cpu.ROR_ZPX, "ROR", ZeroPageX)
	def(cpu.ROR_ABS, "ROR", Absolute)
	def(cpu.ROR_ABX, "ROR", AbsoluteX)

	def(cpu.JMP_ABS, "JMP", Absolute)
	def(cpu.JMP_IND, "JMP", Indirect)
	def(cpu.JSR_ABS, "JSR", Absolute)
	def(cpu.RTS, "RTS", Implicit)

	def(cpu.BCC, "BCC", Relative)
	def(cpu.BCS, "BCS", Relative)
	def(cpu.BEQ, "BEQ", Relative)
	def(cpu.BMI, "BMI", Relative)
	def(cpu.BNE, "BNE", Relative)
	def(cpu.BPL, "BPL", Relative)
	def(cpu.BVC, "BVC", Relative)
	def(cpu.BVS, "BVS", Relative)

	def(cpu.CLC, "CLC", Implicit)
	def(cpu.CLD, "CLD", Implicit)
	def(cpu.CLI, "CLI", Implicit)
	def(cpu.CLV, "CLV", Implicit)
	def(cpu.SEC, "SEC", Implicit)
	def(cpu.SED, "SED", Implicit)
	def(cpu.SEI, "SEI", Implicit)

	def(cpu.BRK, "BRK", Implicit)
	def(cpu.NOP, "NOP", Implicit)
	def(cpu.RTI, "RTI", Implicit)
}
