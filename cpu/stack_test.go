package cpu

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPHAAndPLA(t *testing.T) {
	assert := assert.New(t)
	c, mem := newTestCPU()

	c.PC = 0x0200
	c.A = 0x42
	mem[0x0200] = PHA

	c.Step()
	assert.Equal(uint8(0xFE), c.SP)
	assert.Equal(uint8(0x42), mem[0x01FF])

	c.A = 0x00
	mem[0x0201] = PLA
	c.Step()
	assert.Equal(uint8(0x42), c.A)
	assert.Equal(uint8(0xFF), c.SP)
}

func TestStackPointerWrap(t *testing.T) {
	assert := assert.New(t)
	c, mem := newTestCPU()

	c.PC = 0x0200
	c.SP = 0x00
	c.A = 0x99
	mem[0x0200] = PHA

	c.Step()
	assert.Equal(uint8(0xFF), c.SP, "the stack pointer wraps within page one")
	assert.Equal(uint8(0x99), mem[0x0100])
}

func TestPHPSetsBreakAndUnused(t *testing.T) {
	assert := assert.New(t)
	c, mem := newTestCPU()

	c.PC = 0x0200
	c.P = FlagU | FlagC | FlagN
	mem[0x0200] = PHP

	c.Step()
	assert.Equal(FlagU|FlagB|FlagC|FlagN, mem[0x01FF], "PHP pushes with B and the unused bit set")
}

func TestPHAThenPLP(t *testing.T) {
	assert := assert.New(t)
	c, mem := newTestCPU()

	// Push 0xC5 through the accumulator, pull it into P. PLP drops B and
	// forces the always-set bit, so P reads back as 0xC5 masked to the
	// settable bits.
	c.PC = 0x0200
	c.A = 0xC5
	mem[0x0200] = PHA
	mem[0x0201] = PLP

	c.Step()
	c.Step()

	assert.NotZero(c.P&FlagN, "N set")
	assert.NotZero(c.P&FlagV, "V set")
	assert.NotZero(c.P&FlagU, "always-set bit")
	assert.Zero(c.P&FlagB, "B cleared by PLP")
	assert.Zero(c.P&FlagD, "D clear")
	assert.NotZero(c.P&FlagI, "I from bit 2 of 0xC5")
	assert.Zero(c.P&FlagZ, "Z from bit 1 of 0xC5")
	assert.NotZero(c.P&FlagC, "C set")
	assert.Equal(uint8(0xE5), c.P)
}

func TestPHPAndPLPRoundTrip(t *testing.T) {
	assert := assert.New(t)
	c, mem := newTestCPU()

	c.PC = 0x0200
	c.P = FlagU | FlagN | FlagZ | FlagC | FlagD
	mem[0x0200] = PHP
	mem[0x0201] = PLP

	before := c.P
	c.Step()
	c.Step()
	assert.Equal(before, c.P, "PHP/PLP round-trips every settable flag")
}
