package cpu

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// ram is the flat test bus.
type ram [65536]uint8

func (r *ram) Read(addr uint16) uint8         { return r[addr] }
func (r *ram) Write(addr uint16, val uint8)   { r[addr] = val }

func newTestCPU() (*CPU, *ram) {
	mem := &ram{}
	return New(mem), mem
}

func TestPowerOnState(t *testing.T) {
	assert := assert.New(t)
	c, _ := newTestCPU()

	assert.Equal(uint8(0xFF), c.SP)
	assert.Equal(FlagI|FlagU, c.P)
	assert.Zero(c.A)
	assert.Zero(c.X)
	assert.Zero(c.Y)
}

func TestReset(t *testing.T) {
	assert := assert.New(t)
	c, mem := newTestCPU()

	mem[0xFFFC] = 0x34
	mem[0xFFFD] = 0x12
	c.A = 0x55
	c.Reset()

	assert.Equal(uint16(0x1234), c.PC, "reset vectors through 0xFFFC")
	assert.Equal(uint8(0xFF), c.SP)
	assert.Equal(FlagI|FlagU, c.P)
	assert.Zero(c.A)
}

func TestLDAImmediate(t *testing.T) {
	tests := []struct {
		name    string
		value   uint8
		expectZ bool
		expectN bool
	}{
		{name: "zero sets Z", value: 0x00, expectZ: true},
		{name: "positive clears flags", value: 0x42},
		{name: "high bit sets N", value: 0x80, expectN: true},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			assert := assert.New(t)
			c, mem := newTestCPU()
			c.PC = 0x0200
			mem[0x0200] = LDA_IMM
			mem[0x0201] = test.value

			cycles := c.Step()

			assert.Equal(uint8(2), cycles)
			assert.Equal(test.value, c.A)
			assert.Equal(test.expectZ, c.P&FlagZ != 0, "incorrect zero flag")
			assert.Equal(test.expectN, c.P&FlagN != 0, "incorrect negative flag")
		})
	}
}

func TestLDAAddressingModes(t *testing.T) {
	tests := []struct {
		name   string
		setup  func(c *CPU, mem *ram)
		cycles uint8
	}{
		{
			name: "zero page",
			setup: func(c *CPU, mem *ram) {
				mem[0x0200] = LDA_ZP
				mem[0x0201] = 0x42
				mem[0x0042] = 0x37
			},
			cycles: 3,
		},
		{
			name: "zero page X with wrap",
			setup: func(c *CPU, mem *ram) {
				mem[0x0200] = LDA_ZPX
				mem[0x0201] = 0xFF
				c.X = 0x02
				mem[0x0001] = 0x37
			},
			cycles: 4,
		},
		{
			name: "absolute",
			setup: func(c *CPU, mem *ram) {
				mem[0x0200] = LDA_ABS
				mem[0x0201] = 0x34
				mem[0x0202] = 0x12
				mem[0x1234] = 0x37
			},
			cycles: 4,
		},
		{
			name: "absolute X no cross",
			setup: func(c *CPU, mem *ram) {
				mem[0x0200] = LDA_ABX
				mem[0x0201] = 0x34
				mem[0x0202] = 0x12
				c.X = 0x01
				mem[0x1235] = 0x37
			},
			cycles: 4,
		},
		{
			name: "absolute X page cross",
			setup: func(c *CPU, mem *ram) {
				mem[0x0200] = LDA_ABX
				mem[0x0201] = 0xFF
				mem[0x0202] = 0x12
				c.X = 0x01
				mem[0x1300] = 0x37
			},
			cycles: 5,
		},
		{
			name: "absolute Y page cross",
			setup: func(c *CPU, mem *ram) {
				mem[0x0200] = LDA_ABY
				mem[0x0201] = 0xFF
				mem[0x0202] = 0x12
				c.Y = 0x01
				mem[0x1300] = 0x37
			},
			cycles: 5,
		},
		{
			name: "indirect X",
			setup: func(c *CPU, mem *ram) {
				mem[0x0200] = LDA_INX
				mem[0x0201] = 0x20
				c.X = 0x04
				mem[0x0024] = 0x34
				mem[0x0025] = 0x12
				mem[0x1234] = 0x37
			},
			cycles: 6,
		},
		{
			name: "indirect Y",
			setup: func(c *CPU, mem *ram) {
				mem[0x0200] = LDA_INY
				mem[0x0201] = 0x20
				c.Y = 0x04
				mem[0x0020] = 0x30
				mem[0x0021] = 0x12
				mem[0x1234] = 0x37
			},
			cycles: 5,
		},
		{
			name: "indirect Y page cross",
			setup: func(c *CPU, mem *ram) {
				mem[0x0200] = LDA_INY
				mem[0x0201] = 0x20
				c.Y = 0xFF
				mem[0x0020] = 0x35
				mem[0x0021] = 0x12
				mem[0x1334] = 0x37
			},
			cycles: 6,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			assert := assert.New(t)
			c, mem := newTestCPU()
			c.PC = 0x0200
			test.setup(c, mem)

			cycles := c.Step()

			assert.Equal(test.cycles, cycles, "incorrect cycle count")
			assert.Equal(uint8(0x37), c.A, "incorrect accumulator value")
		})
	}
}

func TestStoreLoadRoundTrip(t *testing.T) {
	assert := assert.New(t)
	c, mem := newTestCPU()

	// LDA #$42; STA $70; LDA $70
	c.PC = 0x0200
	mem[0x0200] = LDA_IMM
	mem[0x0201] = 0x42
	mem[0x0202] = STA_ZP
	mem[0x0203] = 0x70
	mem[0x0204] = LDA_ZP
	mem[0x0205] = 0x70

	c.Step()
	c.Step()
	c.Step()

	assert.Equal(uint8(0x42), c.A)
	assert.Zero(c.P&FlagZ, "Z clear")
	assert.Zero(c.P&FlagN, "N clear")
	assert.Equal(uint8(0x42), mem[0x0070])
}

func TestTransfers(t *testing.T) {
	assert := assert.New(t)
	c, mem := newTestCPU()

	c.PC = 0x0200
	c.A = 0x80
	mem[0x0200] = TAX
	c.Step()
	assert.Equal(uint8(0x80), c.X)
	assert.NotZero(c.P&FlagN, "TAX sets N from the value")

	mem[0x0201] = TXS
	c.Step()
	assert.Equal(uint8(0x80), c.SP)

	c.X = 0
	mem[0x0202] = TSX
	c.Step()
	assert.Equal(uint8(0x80), c.X)
}

func TestIncDecRegisters(t *testing.T) {
	assert := assert.New(t)
	c, mem := newTestCPU()

	c.PC = 0x0200
	c.X = 0xFF
	mem[0x0200] = INX
	c.Step()
	assert.Zero(c.X)
	assert.NotZero(c.P&FlagZ, "INX wrap sets Z")

	c.Y = 0x00
	mem[0x0201] = DEY
	c.Step()
	assert.Equal(uint8(0xFF), c.Y)
	assert.NotZero(c.P&FlagN)
}

func TestShifts(t *testing.T) {
	tests := []struct {
		name    string
		opcode  uint8
		a       uint8
		carry   bool
		wantA   uint8
		wantC   bool
		wantN   bool
		wantZ   bool
	}{
		{name: "ASL carries out", opcode: ASL_ACC, a: 0x81, wantA: 0x02, wantC: true},
		{name: "LSR into carry", opcode: LSR_ACC, a: 0x01, wantA: 0x00, wantC: true, wantZ: true},
		{name: "ROL pulls carry in", opcode: ROL_ACC, a: 0x40, carry: true, wantA: 0x81, wantN: true},
		{name: "ROR pulls carry in", opcode: ROR_ACC, a: 0x00, carry: true, wantA: 0x80, wantN: true},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			assert := assert.New(t)
			c, mem := newTestCPU()
			c.PC = 0x0200
			c.A = test.a
			if test.carry {
				c.P |= FlagC
			}
			mem[0x0200] = test.opcode

			c.Step()

			assert.Equal(test.wantA, c.A)
			assert.Equal(test.wantC, c.P&FlagC != 0, "carry")
			assert.Equal(test.wantN, c.P&FlagN != 0, "negative")
			assert.Equal(test.wantZ, c.P&FlagZ != 0, "zero")
		})
	}
}

func TestRMWMemory(t *testing.T) {
	assert := assert.New(t)
	c, mem := newTestCPU()

	c.PC = 0x0200
	mem[0x0200] = INC_ZP
	mem[0x0201] = 0x10
	mem[0x0010] = 0xFF

	cycles := c.Step()
	assert.Equal(uint8(5), cycles)
	assert.Zero(mem[0x0010])
	assert.NotZero(c.P&FlagZ)

	mem[0x0202] = ASL_ABS
	mem[0x0203] = 0x10
	mem[0x0204] = 0x00
	mem[0x0010] = 0xC0
	cycles = c.Step()
	assert.Equal(uint8(6), cycles)
	assert.Equal(uint8(0x80), mem[0x0010])
	assert.NotZero(c.P&FlagC)
	assert.NotZero(c.P&FlagN)
}

func TestBIT(t *testing.T) {
	assert := assert.New(t)
	c, mem := newTestCPU()

	c.PC = 0x0200
	c.A = 0x01
	mem[0x0200] = BIT_ZP
	mem[0x0201] = 0x10
	mem[0x0010] = 0xC0

	c.Step()
	assert.NotZero(c.P&FlagZ, "A&M == 0 sets Z")
	assert.NotZero(c.P&FlagN, "N copied from bit 7")
	assert.NotZero(c.P&FlagV, "V copied from bit 6")
}
