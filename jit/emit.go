package jit

import "fmt"

// emitter appends x86-64 machine code at an offset inside the cache mapping.
// Emitters write raw bytes with the encoding spelled out at each call site;
// there is no general assembler because the translator only ever needs a
// small, fixed vocabulary of instructions.
type emitter struct {
	buf []byte
	off int
	err error
}

func (e *emitter) emit(bytes ...byte) {
	copy(e.buf[e.off:], bytes)
	e.off += len(bytes)
}

func (e *emitter) u16(v uint16) {
	e.buf[e.off] = byte(v)
	e.buf[e.off+1] = byte(v >> 8)
	e.off += 2
}

func (e *emitter) u32(v uint32) {
	e.buf[e.off] = byte(v)
	e.buf[e.off+1] = byte(v >> 8)
	e.buf[e.off+2] = byte(v >> 16)
	e.buf[e.off+3] = byte(v >> 24)
	e.off += 4
}

// jmp32 plants "jmp rel32" to an absolute offset within the mapping.
func (e *emitter) jmp32(target int) {
	e.emit(0xE9)
	e.u32(uint32(int32(target - (e.off + 4))))
}

// jcc32 plants a long-form conditional jump; cc is the second opcode byte
// (0x84 je, 0x85 jne, ...).
func (e *emitter) jcc32(cc byte, target int) {
	e.emit(0x0F, cc)
	e.u32(uint32(int32(target - (e.off + 4))))
}

// checkSpace records an overflow error if the emission for one guest byte no
// longer fits its slot; the translator turns this into a hard failure since
// a spilled slot would corrupt its neighbor.
func (e *emitter) checkSpace(slotEnd int) {
	if e.off > slotEnd && e.err == nil {
		e.err = fmt.Errorf("jit: slot overflow at offset %d past %d", e.off, slotEnd)
	}
}
