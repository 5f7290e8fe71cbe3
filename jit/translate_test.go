package jit

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/newhook/bbc/cpu"
)

func newTestTranslator(t *testing.T, accurate bool) (*Translator, []byte) {
	t.Helper()
	cache := newTestCache(t)
	ram := make([]byte, 0x10000)
	return NewTranslator(cache, ram, accurate), ram
}

// Every opcode's emission, in both modes and for RAM-resident operands, must
// fit its slot with room for the fall-through tail. Unknown opcodes emit the
// five-byte trap record, which trivially fits.
func TestSlotWidthSafety(t *testing.T) {
	for _, accurate := range []bool{false, true} {
		name := "fast"
		if accurate {
			name = "accurate"
		}
		t.Run(name, func(t *testing.T) {
			tr, ram := newTestTranslator(t, accurate)
			for opcode := 0; opcode < 256; opcode++ {
				pc := uint16(0x4000)
				ram[pc] = uint8(opcode)
				ram[pc+1] = 0x34 // abs 0x1234: inline store path, worst case
				ram[pc+2] = 0x12
				_, _, err := tr.translateOne(pc)
				assert.NoError(t, err, "opcode %02X must fit its slot", opcode)
			}
		})
	}
}

func TestTranslateMarksValid(t *testing.T) {
	assert := assert.New(t)
	tr, ram := newTestTranslator(t, false)

	// LDA #$42; NOP; JMP $5000 — one block, ends at the control transfer.
	ram[0x5000] = cpu.LDA_IMM
	ram[0x5001] = 0x42
	ram[0x5002] = cpu.NOP
	ram[0x5003] = cpu.JMP_ABS
	ram[0x5004] = 0x00
	ram[0x5005] = 0x50

	require.NoError(t, tr.Translate(0x5000))

	assert.Equal(SlotValid, tr.cache.State(0x5000))
	assert.Equal(SlotValid, tr.cache.State(0x5002))
	assert.Equal(SlotValid, tr.cache.State(0x5003))
	assert.Equal(SlotEmpty, tr.cache.State(0x5006), "translation stops at the unconditional jump")
	assert.Equal(SlotEmpty, tr.cache.State(0x5001), "operand bytes get no translation of their own")
}

func TestLDAImmediateEncoding(t *testing.T) {
	assert := assert.New(t)
	tr, ram := newTestTranslator(t, false)

	ram[0x6000] = cpu.LDA_IMM
	ram[0x6001] = 0x7F
	ram[0x6002] = cpu.JMP_ABS // terminate the block
	ram[0x6003] = 0x02
	ram[0x6004] = 0x60

	require.NoError(t, tr.Translate(0x6000))
	slot := tr.cache.SlotBytes(0x6000)

	expected := []byte{
		0x41, 0x83, 0xE8, 0x02, // sub r8d, 2
		0xB3, 0x7F, // mov bl, 0x7F
		0x84, 0xDB, // test bl, bl
		0x0F, 0x94, 0xC2, // sete dl
		0x0F, 0x98, 0xC6, // sets dh
		0xE9, // jmp to the next slot
	}
	assert.Equal(expected, slot[:len(expected)])

	// The fall-through rel32 skips exactly the rest of this slot plus the
	// operand byte's slot.
	rel := int32(uint32(slot[15]) | uint32(slot[16])<<8 | uint32(slot[17])<<16 | uint32(slot[18])<<24)
	assert.Equal(int32(2*SlotSize-19), rel)
}

func TestUnknownOpcodeTrapRecord(t *testing.T) {
	assert := assert.New(t)
	tr, ram := newTestTranslator(t, false)

	ram[0x7010] = 0x02 // undocumented
	_, falls, err := tr.translateOne(0x7010)
	require.NoError(t, err)
	assert.False(falls)

	slot := tr.cache.SlotBytes(0x7010)
	assert.Equal([]byte{0xFF, 0xD0}, slot[:2], "host trap")
	assert.Equal(uint8(0x02), slot[2], "guest opcode follows the trap")
	assert.Equal(uint8(0x70), slot[3], "guest PC, big-endian")
	assert.Equal(uint8(0x10), slot[4])
	assert.Equal(SlotValid, tr.cache.State(0x7010))
}

func TestStaticMMIOOperandExitsToInterpreter(t *testing.T) {
	assert := assert.New(t)
	tr, ram := newTestTranslator(t, false)

	// LDA $FE41 must hand the instruction to the interpreter.
	ram[0x7100] = cpu.LDA_ABS
	ram[0x7101] = 0x41
	ram[0x7102] = 0xFE

	_, falls, err := tr.translateOne(0x7100)
	require.NoError(t, err)
	assert.False(falls, "MMIO operand terminates the block")

	slot := tr.cache.SlotBytes(0x7100)
	assert.Equal([]byte{0x41, 0xBB, 0x00, 0x71, 0x00, 0x00}, slot[:6],
		"mov r11d, pc precedes the interpreter exit")
	assert.Equal(uint8(0xE9), slot[6])
}

func TestStoreEmitsInvalidation(t *testing.T) {
	assert := assert.New(t)
	tr, ram := newTestTranslator(t, false)

	ram[0x7200] = cpu.STA_ABS
	ram[0x7201] = 0x00
	ram[0x7202] = 0x10

	_, falls, err := tr.translateOne(0x7200)
	require.NoError(t, err)
	assert.True(falls)

	// The emission must patch the trap into the slots of 0x1000, 0x0FFF
	// and 0x0FFE: mov word [r12+disp32], 0xD0FF.
	slot := tr.cache.SlotBytes(0x7200)
	patch := []byte{0x66, 0x41, 0xC7, 0x84, 0x24, 0x00, 0x00, 0x08, 0x00, 0xFF, 0xD0}
	assert.Contains(string(slot), string(patch), "store patches the stale trap inline")
}
