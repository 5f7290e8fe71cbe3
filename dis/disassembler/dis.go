package disassembler

import (
	"fmt"
	"strings"
)

// Decode returns the instruction for an opcode; ok is false for
// undocumented opcodes.
func Decode(opcode byte) (Instruction, bool) {
	inst := instructionSet[opcode]
	return inst, inst.Name != ""
}

// Disassemble renders one instruction at pc from a 64KiB memory image and
// returns its text and byte length. The JIT's unknown-opcode fault handler
// uses this to describe the trap site.
func Disassemble(mem []byte, pc uint16) (string, int) {
	opcode := mem[pc]
	inst, ok := Decode(opcode)
	if !ok {
		return fmt.Sprintf("$%04X: db $%02X ; undocumented", pc, opcode), 1
	}
	n := inst.Mode.OperandBytes()
	operands := make([]byte, n)
	for i := 0; i < n; i++ {
		operands[i] = mem[pc+1+uint16(i)]
	}

	var hexDump strings.Builder
	fmt.Fprintf(&hexDump, "%02X", opcode)
	for _, b := range operands {
		fmt.Fprintf(&hexDump, " %02X", b)
	}

	text := inst.Name
	if op := inst.Mode.FormatOperand(pc, operands); op != "" {
		text += " " + op
	}
	return fmt.Sprintf("$%04X: %-8s  %s", pc, hexDump.String(), text), 1 + n
}

// DisassembleRange renders [start, start+length) one instruction per line.
func DisassembleRange(mem []byte, start uint16, length int) string {
	var out strings.Builder
	pc := start
	end := int(start) + length
	for int(pc) < end {
		line, size := Disassemble(mem, pc)
		out.WriteString(line)
		out.WriteString("\n")
		pc += uint16(size)
	}
	return out.String()
}
