package jit

import "github.com/newhook/bbc/cpu"

// regState is the block the trampoline loads host registers from and saves
// them back into. Field order is frozen; trampoline_amd64.s addresses these
// by byte offset.
type regState struct {
	rbx    uint64 // 0:  BL = A, BH = carry
	rcx    uint64 // 8:  CL = X, CH = Y
	rdx    uint64 // 16: DL = zero, DH = negative
	rbp    uint64 // 24: 0x0100 | S
	rsi    uint64 // 32: I, D, V and always-set P bits
	rdi    uint64 // 40: guest address space base
	r8     uint64 // 48: signed cycle countdown
	r12    uint64 // 56: slot 0 base
	rax    uint64 // 64: invalid-translation stub
	reason uint64 // 72: exit reason (from R10D)
	resume uint64 // 80: resume PC or trap return address (from R11)
}

// pack splits the architectural state into the translated-code convention.
func (st *regState) pack(c *cpu.CPU, countdown int32) {
	st.rbx = uint64(c.A) | uint64(c.P&cpu.FlagC)<<8
	st.rcx = uint64(c.X) | uint64(c.Y)<<8
	st.rdx = uint64(c.P>>1&1) | uint64(c.P>>7&1)<<8
	st.rbp = 0x0100 | uint64(c.SP)
	st.rsi = uint64(c.P & (cpu.FlagI | cpu.FlagD | cpu.FlagV | cpu.FlagU))
	st.r8 = uint64(uint32(countdown))
}

// unpack folds the split representation back into the architectural state.
// The PC is set separately from the exit reason.
func (st *regState) unpack(c *cpu.CPU) {
	c.A = uint8(st.rbx)
	c.X = uint8(st.rcx)
	c.Y = uint8(st.rcx >> 8)
	c.SP = uint8(st.rbp)
	p := uint8(st.rsi)&(cpu.FlagI|cpu.FlagD|cpu.FlagV) | cpu.FlagU
	if uint8(st.rbx>>8) != 0 {
		p |= cpu.FlagC
	}
	if uint8(st.rdx) != 0 {
		p |= cpu.FlagZ
	}
	if uint8(st.rdx>>8) != 0 {
		p |= cpu.FlagN
	}
	c.P = p
}

// countdown returns the remaining cycle budget after an exit.
func (st *regState) countdown() int32 {
	return int32(uint32(st.r8))
}
