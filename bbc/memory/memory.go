package memory

import (
	"fmt"

	"golang.org/x/sys/unix"
)

const (
	// Memory regions
	RAM_END      = 0x8000 // exclusive; sideways ROM above
	SIDEWAYS_END = 0xC000 // exclusive; OS ROM above
	MMIO_START   = 0xFC00
	MMIO_END     = 0xFEFF // inclusive

	ROM_SIZE  = 16384
	ADDR_SPACE = 0x10000

	guardSize = 1 << 16
)

// ReadFunc and WriteFunc are the MMIO dispatch callbacks. reg is the low byte
// of the guest address; devices that mirror registers mask it down themselves.
type ReadFunc func(ctx any, reg uint8) uint8
type WriteFunc func(ctx any, reg uint8, val uint8)

type handler struct {
	read  ReadFunc
	write WriteFunc
	ctx   any
}

// Map is the flat 64KiB guest address space. The backing mapping is flanked
// by inaccessible guard regions so that a stray 16-bit wraparound in
// translated code faults instead of corrupting host memory. Accesses inside
// the MMIO window are routed through a per-register dispatch table.
type Map struct {
	mapping []byte // guard + 64KiB + guard
	ram     []byte // the guest-visible 64KiB

	handlers [MMIO_END - MMIO_START + 1]handler

	os       [ROM_SIZE]byte
	sideways [16][ROM_SIZE]byte
	present  [16]bool
	romsel   uint8

	// invalidate is called for every RAM write so the JIT can mark the
	// affected translation slot stale.
	invalidate func(addr uint16)
}

func NewMap() (*Map, error) {
	mapping, err := unix.Mmap(-1, 0, guardSize+ADDR_SPACE+guardSize,
		unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		return nil, fmt.Errorf("address space mmap: %w", err)
	}
	if err := unix.Mprotect(mapping[:guardSize], unix.PROT_NONE); err != nil {
		return nil, fmt.Errorf("low guard: %w", err)
	}
	if err := unix.Mprotect(mapping[guardSize+ADDR_SPACE:], unix.PROT_NONE); err != nil {
		return nil, fmt.Errorf("high guard: %w", err)
	}
	m := &Map{
		mapping: mapping,
		ram:     mapping[guardSize : guardSize+ADDR_SPACE],
	}
	m.pageIn(m.romsel)
	return m, nil
}

func (m *Map) Close() error {
	if m.mapping == nil {
		return nil
	}
	err := unix.Munmap(m.mapping)
	m.mapping = nil
	m.ram = nil
	return err
}

// RAM exposes the guest-visible 64KiB. The JIT reads and writes it directly
// from translated code.
func (m *Map) RAM() []byte {
	return m.ram
}

// SetInvalidate registers the code-cache staleness hook.
func (m *Map) SetInvalidate(fn func(addr uint16)) {
	m.invalidate = fn
}

// MapDevice installs an MMIO handler over [start, end] (inclusive, both
// inside the window).
func (m *Map) MapDevice(start, end uint16, r ReadFunc, w WriteFunc, ctx any) {
	if start < MMIO_START || end > MMIO_END || start > end {
		panic(fmt.Sprintf("memory: bad device range %04X-%04X", start, end))
	}
	for a := start; a <= end; a++ {
		m.handlers[a-MMIO_START] = handler{read: r, write: w, ctx: ctx}
	}
}

// Read handles a guest read, dispatching the MMIO window to devices.
func (m *Map) Read(addr uint16) uint8 {
	if addr >= MMIO_START && addr <= MMIO_END {
		h := &m.handlers[addr-MMIO_START]
		if h.read != nil {
			return h.read(h.ctx, uint8(addr))
		}
		return 0xFE // unmapped SHEILA reads float high-ish
	}
	return m.ram[addr]
}

// Write handles a guest write. RAM writes land in the flat array and notify
// the invalidation hook; ROM writes are dropped; MMIO writes dispatch.
func (m *Map) Write(addr uint16, val uint8) {
	if addr >= MMIO_START && addr <= MMIO_END {
		h := &m.handlers[addr-MMIO_START]
		if h.write != nil {
			h.write(h.ctx, uint8(addr), val)
		}
		return
	}
	if addr >= RAM_END {
		return
	}
	m.ram[addr] = val
	if m.invalidate != nil {
		m.invalidate(addr)
	}
}

// LoadOS installs the 16KiB operating system ROM at 0xC000.
func (m *Map) LoadOS(data []byte) error {
	if len(data) != ROM_SIZE {
		return fmt.Errorf("OS ROM must be %d bytes, got %d", ROM_SIZE, len(data))
	}
	copy(m.os[:], data)
	copy(m.ram[SIDEWAYS_END:], data)
	return nil
}

// LoadSideways installs a 16KiB ROM image in one of the sixteen banks.
func (m *Map) LoadSideways(bank int, data []byte) error {
	if bank < 0 || bank > 15 {
		return fmt.Errorf("bad sideways bank %d", bank)
	}
	if len(data) != ROM_SIZE {
		return fmt.Errorf("sideways ROM must be %d bytes, got %d", ROM_SIZE, len(data))
	}
	copy(m.sideways[bank][:], data)
	m.present[bank] = true
	if m.romsel == uint8(bank) {
		m.pageIn(uint8(bank))
	}
	return nil
}

// SelectROM pages a sideways bank into 0x8000-0xBFFF. The bank's bytes become
// visible in the flat array, so the whole region is invalidated.
func (m *Map) SelectROM(bank uint8) {
	bank &= 0x0F
	m.romsel = bank
	m.pageIn(bank)
}

func (m *Map) ROMSelect() uint8 {
	return m.romsel
}

func (m *Map) pageIn(bank uint8) {
	if m.present[bank] {
		copy(m.ram[RAM_END:SIDEWAYS_END], m.sideways[bank][:])
	} else {
		for i := RAM_END; i < SIDEWAYS_END; i++ {
			m.ram[i] = 0xFF
		}
	}
	if m.invalidate != nil {
		for a := RAM_END; a < SIDEWAYS_END; a++ {
			m.invalidate(uint16(a))
		}
	}
}

// Poke writes the flat array directly, bypassing the ROM write protection and
// the MMIO window. Loaders and tests use it to place code and vectors.
func (m *Map) Poke(addr uint16, val uint8) {
	m.ram[addr] = val
	if m.invalidate != nil {
		m.invalidate(addr)
	}
}

// ResetVector reads the 6502 reset vector at 0xFFFC/0xFFFD.
func (m *Map) ResetVector() uint16 {
	return uint16(m.ram[0xFFFC]) | uint16(m.ram[0xFFFD])<<8
}

// DumpMemory copies a region for debugging; MMIO registers are read through
// their handlers, so side-effecting registers should not be dumped casually.
func (m *Map) DumpMemory(start, length uint16) []uint8 {
	dump := make([]uint8, length)
	for i := uint16(0); i < length; i++ {
		dump[i] = m.Read(start + i)
	}
	return dump
}
