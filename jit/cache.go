package jit

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/unix"
)

// Slot geometry. Guest PC to host address is slotsBase + pc<<SlotShift, so a
// guest jump is a shift and an add. The stride must be a power of two and
// wide enough for the largest single translated instruction.
const (
	SlotShift = 7
	SlotSize  = 1 << SlotShift
	NumSlots  = 0x10000

	// stubRegion sits at the start of the mapping, before slot 0.
	stubRegion = 4096

	stubInvalidOff   = 0
	stubCountdownOff = 32
	stubInterpOff    = 64
)

// Exit reasons reported by the stubs in R10.
const (
	ExitCountdown = 1 // cycle countdown exhausted; resume PC in R11
	ExitInterp    = 2 // instruction needs the interpreter; its PC in R11
	ExitInvalid   = 3 // trap in an empty/stale slot; host retaddr in R11
)

// SlotState tracks the lifecycle of one guest byte's translation.
type SlotState uint8

const (
	SlotEmpty SlotState = iota
	SlotValid
	SlotStale
)

// Cache owns the read-write-execute mapping holding the exit stubs and one
// fixed-width host-code slot per guest byte. Writers and executors are the
// same thread, so no protection toggling is needed after startup.
type Cache struct {
	mapping []byte
	state   [NumSlots]SlotState
}

func NewCache() (*Cache, error) {
	mapping, err := unix.Mmap(-1, 0, stubRegion+NumSlots*SlotSize,
		unix.PROT_READ|unix.PROT_WRITE|unix.PROT_EXEC,
		unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		return nil, fmt.Errorf("code cache mmap: %w", err)
	}
	c := &Cache{mapping: mapping}
	c.writeStubs()
	for pc := 0; pc < NumSlots; pc++ {
		c.writeTrapPattern(uint16(pc))
	}
	return c, nil
}

func (c *Cache) Close() error {
	if c.mapping == nil {
		return nil
	}
	err := unix.Munmap(c.mapping)
	c.mapping = nil
	return err
}

// writeStubs emits the fixed exit thunks. Translated code reaches them by
// rel32 jump, or via the two-byte trap "call rax" (RAX is pinned to the
// invalid stub). Each stub sets the exit reason in R10D and returns to the
// trampoline's CALL.
func (c *Cache) writeStubs() {
	// invalid-translation stub: the trap's CALL pushed the host address
	// just past the trap; hand it to the dispatcher for PC recovery.
	e := &emitter{buf: c.mapping, off: stubInvalidOff}
	e.emit(0x41, 0x5B)                               // pop r11
	e.emit(0x41, 0xBA)                               // mov r10d, ExitInvalid
	e.u32(ExitInvalid)
	e.emit(0xC3)                                     // ret

	e = &emitter{buf: c.mapping, off: stubCountdownOff}
	e.emit(0x41, 0xBA)                               // mov r10d, ExitCountdown
	e.u32(ExitCountdown)
	e.emit(0xC3)                                     // ret

	e = &emitter{buf: c.mapping, off: stubInterpOff}
	e.emit(0x41, 0xBA)                               // mov r10d, ExitInterp
	e.u32(ExitInterp)
	e.emit(0xC3)                                     // ret
}

// writeTrapPattern fills a slot with the uninitialized pattern: the two-byte
// trap followed by NOPs. Executing it exits with an invalid-translation trap.
func (c *Cache) writeTrapPattern(pc uint16) {
	off := c.slotOffset(pc)
	c.mapping[off] = 0xFF // call rax
	c.mapping[off+1] = 0xD0
	for i := 2; i < SlotSize; i++ {
		c.mapping[off+i] = 0x90 // nop
	}
}

func (c *Cache) slotOffset(pc uint16) int {
	return stubRegion + int(pc)<<SlotShift
}

// Base returns the host address of the mapping start.
func (c *Cache) Base() uintptr {
	return uintptr(unsafe.Pointer(&c.mapping[0]))
}

// SlotsBase returns the host address of slot 0; translated code keeps it in
// R12 for computed jumps.
func (c *Cache) SlotsBase() uintptr {
	return c.Base() + stubRegion
}

// InvalidStub returns the host address translated code keeps pinned in RAX.
func (c *Cache) InvalidStub() uintptr {
	return c.Base() + stubInvalidOff
}

// SlotAddr returns the host entry point for a guest PC.
func (c *Cache) SlotAddr(pc uint16) uintptr {
	return c.Base() + uintptr(c.slotOffset(pc))
}

// PCFromTrap recovers the guest PC from the return address pushed by a
// two-byte trap at the head of a slot.
func (c *Cache) PCFromTrap(retaddr uintptr) uint16 {
	return uint16((retaddr - 2 - c.SlotsBase()) >> SlotShift)
}

// State reports a slot's lifecycle state.
func (c *Cache) State(pc uint16) SlotState {
	return c.state[pc]
}

// Invalidate marks every slot whose translation may embed the written guest
// byte: the byte's own slot plus the two before it, since an instruction
// spans at most three bytes and its whole emission lives in its first
// byte's slot. Patching the trap over a slot head means a direct
// slot-to-slot jump lands in the dispatcher instead of stale code;
// re-emission happens in place, so incoming branches never need fixing up.
func (c *Cache) Invalidate(addr uint16) {
	for span := 0; span < 3; span++ {
		pc := addr - uint16(span)
		if addr < uint16(span) || c.state[pc] != SlotValid {
			continue
		}
		off := c.slotOffset(pc)
		c.mapping[off] = 0xFF // call rax
		c.mapping[off+1] = 0xD0
		c.state[pc] = SlotStale
	}
}

// slot returns the writable window for re-emission.
func (c *Cache) slot(pc uint16) []byte {
	off := c.slotOffset(pc)
	return c.mapping[off : off+SlotSize]
}

// setValid records a completed emission.
func (c *Cache) setValid(pc uint16) {
	c.state[pc] = SlotValid
}

// SlotBytes exposes a copy of a slot's emitted code for tests and the trap
// fault path.
func (c *Cache) SlotBytes(pc uint16) []byte {
	out := make([]byte, SlotSize)
	copy(out, c.slot(pc))
	return out
}
