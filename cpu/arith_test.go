package cpu

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestADCBinary(t *testing.T) {
	tests := []struct {
		name  string
		a     uint8
		value uint8
		carry bool
		wantA uint8
		wantC bool
		wantV bool
		wantZ bool
		wantN bool
	}{
		{name: "simple add", a: 0x10, value: 0x22, wantA: 0x32},
		{name: "carry in", a: 0x10, value: 0x22, carry: true, wantA: 0x33},
		{name: "carry out", a: 0xFF, value: 0x01, wantA: 0x00, wantC: true, wantZ: true},
		{name: "signed overflow", a: 0x7F, value: 0x01, wantA: 0x80, wantV: true, wantN: true},
		{name: "negative overflow", a: 0x80, value: 0xFF, wantA: 0x7F, wantC: true, wantV: true},
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
			mem[0x0200] = ADC_IMM
			mem[0x0201] = test.value

			c.Step()

			assert.Equal(test.wantA, c.A)
			assert.Equal(test.wantC, c.P&FlagC != 0, "carry")
			assert.Equal(test.wantV, c.P&FlagV != 0, "overflow")
			assert.Equal(test.wantZ, c.P&FlagZ != 0, "zero")
			assert.Equal(test.wantN, c.P&FlagN != 0, "negative")
		})
	}
}

func TestSBCBinary(t *testing.T) {
	tests := []struct {
		name  string
		a     uint8
		value uint8
		carry bool
		wantA uint8
		wantC bool
		wantV bool
	}{
		{name: "simple subtract", a: 0x50, value: 0x20, carry: true, wantA: 0x30, wantC: true},
		{name: "borrow in", a: 0x50, value: 0x20, wantA: 0x2F, wantC: true},
		{name: "borrow out", a: 0x20, value: 0x50, carry: true, wantA: 0xD0},
		{name: "signed overflow", a: 0x80, value: 0x01, carry: true, wantA: 0x7F, wantC: true, wantV: true},
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
			mem[0x0200] = SBC_IMM
			mem[0x0201] = test.value

			c.Step()

			assert.Equal(test.wantA, c.A)
			assert.Equal(test.wantC, c.P&FlagC != 0, "carry")
			assert.Equal(test.wantV, c.P&FlagV != 0, "overflow")
		})
	}
}

func TestADCDecimal(t *testing.T) {
	tests := []struct {
		a     uint8
		value uint8
		carry bool
		wantA uint8
		wantC bool
	}{
		{a: 0x09, value: 0x01, wantA: 0x10},
		{a: 0x19, value: 0x01, wantA: 0x20},
		{a: 0x99, value: 0x01, wantA: 0x00, wantC: true},
		{a: 0x50, value: 0x50, wantA: 0x00, wantC: true},
		{a: 0x12, value: 0x34, carry: true, wantA: 0x47},
	}

	for _, test := range tests {
		t.Run(fmt.Sprintf("%02X+%02X", test.a, test.value), func(t *testing.T) {
			assert := assert.New(t)
			c, mem := newTestCPU()
			c.PC = 0x0200
			c.A = test.a
			c.P |= FlagD
			if test.carry {
				c.P |= FlagC
			}
			mem[0x0200] = ADC_IMM
			mem[0x0201] = test.value

			c.Step()

			assert.Equal(test.wantA, c.A, "BCD sum")
			assert.Equal(test.wantC, c.P&FlagC != 0, "BCD carry")
		})
	}
}

func TestSBCDecimal(t *testing.T) {
	tests := []struct {
		a     uint8
		value uint8
		carry bool
		wantA uint8
		wantC bool
	}{
		{a: 0x20, value: 0x01, carry: true, wantA: 0x19, wantC: true},
		{a: 0x50, value: 0x25, carry: true, wantA: 0x25, wantC: true},
		{a: 0x00, value: 0x01, carry: true, wantA: 0x99},
		{a: 0x34, value: 0x12, wantA: 0x21, wantC: true},
	}

	for _, test := range tests {
		t.Run(fmt.Sprintf("%02X-%02X", test.a, test.value), func(t *testing.T) {
			assert := assert.New(t)
			c, mem := newTestCPU()
			c.PC = 0x0200
			c.A = test.a
			c.P |= FlagD
			if test.carry {
				c.P |= FlagC
			}
			mem[0x0200] = SBC_IMM
			mem[0x0201] = test.value

			c.Step()

			assert.Equal(test.wantA, c.A, "BCD difference")
			assert.Equal(test.wantC, c.P&FlagC != 0, "BCD borrow")
		})
	}
}

func TestCompare(t *testing.T) {
	tests := []struct {
		name   string
		opcode uint8
		reg    func(c *CPU, v uint8)
		regVal uint8
		value  uint8
		wantC  bool
		wantZ  bool
		wantN  bool
	}{
		{name: "CMP equal", opcode: CMP_IMM, reg: func(c *CPU, v uint8) { c.A = v }, regVal: 0x42, value: 0x42, wantC: true, wantZ: true},
		{name: "CMP greater", opcode: CMP_IMM, reg: func(c *CPU, v uint8) { c.A = v }, regVal: 0x50, value: 0x42, wantC: true},
		{name: "CMP less", opcode: CMP_IMM, reg: func(c *CPU, v uint8) { c.A = v }, regVal: 0x42, value: 0x50, wantN: true},
		{name: "CPX", opcode: CPX_IMM, reg: func(c *CPU, v uint8) { c.X = v }, regVal: 0x10, value: 0x0F, wantC: true},
		{name: "CPY", opcode: CPY_IMM, reg: func(c *CPU, v uint8) { c.Y = v }, regVal: 0x01, value: 0x02, wantN: true},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			assert := assert.New(t)
			c, mem := newTestCPU()
			c.PC = 0x0200
			test.reg(c, test.regVal)
			mem[0x0200] = test.opcode
			mem[0x0201] = test.value

			c.Step()

			assert.Equal(test.wantC, c.P&FlagC != 0, "carry")
			assert.Equal(test.wantZ, c.P&FlagZ != 0, "zero")
			assert.Equal(test.wantN, c.P&FlagN != 0, "negative")
		})
	}
}
