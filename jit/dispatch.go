package jit

import (
	"fmt"
	"log/slog"
	"runtime"
	"sync/atomic"
	"unsafe"

	"github.com/newhook/bbc/bbc/memory"
	"github.com/newhook/bbc/bbc/timing"
	"github.com/newhook/bbc/cpu"
	"github.com/newhook/bbc/dis/disassembler"
)

// Config selects the dispatcher's accuracy/fallback policy.
type Config struct {
	// Accurate checks the countdown and the IRQ line after every
	// instruction and exits after every store; otherwise only control
	// transfers synchronize.
	Accurate bool

	// AbortOnUnknown turns an undocumented opcode into a hard error instead
	// of a one-instruction interpreter fallback.
	AbortOnUnknown bool
}

// maxCountdown bounds a single translated run so the stop flag stays
// responsive even with no armed timers.
const maxCountdown = 1 << 20

// Dispatcher owns the code cache, the trampoline's register convention, and
// the arbitration between translated execution and the timing wheel. All of
// its state belongs to the emulation thread; only Stop may be called from
// elsewhere.
type Dispatcher struct {
	cache *Cache
	tr    *Translator
	wheel *timing.Wheel
	mem   *memory.Map
	cpu   *cpu.CPU
	cfg   Config
	log   *slog.Logger

	st regState

	stop      atomic.Bool
	exitValue atomic.Int32

	stopPC int32 // guest PC to halt at, -1 when unset
}

// NewDispatcher wires the cache into the bus invalidation hook and prepares
// the constant half of the register block. Non-x86-64 hosts are a
// configuration error: the translator emits x86-64 machine code only.
func NewDispatcher(mem *memory.Map, wheel *timing.Wheel, c *cpu.CPU, cfg Config, log *slog.Logger) (*Dispatcher, error) {
	if runtime.GOARCH != "amd64" {
		return nil, fmt.Errorf("jit: translation targets x86-64, host is %s", runtime.GOARCH)
	}
	cache, err := NewCache()
	if err != nil {
		return nil, err
	}
	d := &Dispatcher{
		cache:  cache,
		tr:     NewTranslator(cache, mem.RAM(), cfg.Accurate),
		wheel:  wheel,
		mem:    mem,
		cpu:    c,
		cfg:    cfg,
		log:    log,
		stopPC: -1,
	}
	d.st.rdi = uint64(ramBase(mem.RAM()))
	d.st.r12 = uint64(cache.SlotsBase())
	d.st.rax = uint64(cache.InvalidStub())
	mem.SetInvalidate(cache.Invalidate)
	return d, nil
}

// Close releases the code cache mapping.
func (d *Dispatcher) Close() error {
	return d.cache.Close()
}

// Cache exposes the code cache for the property suite.
func (d *Dispatcher) Cache() *Cache {
	return d.cache
}

// Stop requests a halt with the given run result; the emulation thread
// observes it at its next dispatcher exit. A running translated block is
// never terminated forcibly.
func (d *Dispatcher) Stop(code int32) {
	d.exitValue.Store(code)
	d.stop.Store(true)
}

// SetStopPC halts the run when the guest reaches pc (batch/test mode).
func (d *Dispatcher) SetStopPC(pc uint16) {
	d.stopPC = int32(pc)
}

// Reset performs the cold-start entry: reset vector, documented initial
// 6502 state.
func (d *Dispatcher) Reset() {
	d.cpu.Reset()
}

// Run enters translated code at the current PC and keeps arbitrating
// between the code cache and the timing wheel until stopped. Returns the
// run result code.
func (d *Dispatcher) Run() (int32, error) {
	for !d.stop.Load() {
		if d.stopPC >= 0 && d.cpu.PC == uint16(d.stopPC) {
			break
		}
		if cycles := d.cpu.ServiceInterrupts(); cycles != 0 {
			d.wheel.Advance(int64(cycles))
			continue
		}
		budget := d.wheel.NextDeadline()
		if budget <= 0 {
			// A timer is due before the CPU may run another cycle.
			d.wheel.Advance(0)
			continue
		}
		if budget > maxCountdown {
			budget = maxCountdown
		}
		if err := d.ensure(d.cpu.PC); err != nil {
			return d.exitValue.Load(), err
		}

		d.st.pack(d.cpu, int32(budget))
		enterTranslated(d.cache.SlotAddr(d.cpu.PC), &d.st)
		consumed := int64(int32(budget) - d.st.countdown())
		d.st.unpack(d.cpu)

		switch d.st.reason {
		case ExitCountdown:
			d.cpu.PC = uint16(d.st.resume)
			d.wheel.Advance(consumed)

		case ExitInterp:
			// One instruction the JIT does not carry inline: let the
			// timers catch up first so an MMIO read observes any event
			// that was due before it.
			d.cpu.PC = uint16(d.st.resume)
			d.wheel.Advance(consumed)
			cycles := d.cpu.Step()
			d.wheel.Advance(int64(cycles))

		case ExitInvalid:
			d.wheel.Advance(consumed)
			pc := d.cache.PCFromTrap(uintptr(d.st.resume))
			// A trap in a slot still recorded valid is either the
			// unknown-opcode emission or an inline store patch the Go-side
			// bookkeeping has not seen; the guest byte tells them apart.
			if _, documented := disassembler.Decode(d.mem.RAM()[pc]); !documented &&
				d.cache.State(pc) == SlotValid {
				if err := d.handleUnknown(pc); err != nil {
					return d.exitValue.Load(), err
				}
				break
			}
			d.cpu.PC = pc
			if err := d.tr.Translate(pc); err != nil {
				return d.exitValue.Load(), err
			}

		default:
			return d.exitValue.Load(), fmt.Errorf("jit: unexpected exit reason %d", d.st.reason)
		}
	}
	return d.exitValue.Load(), nil
}

func ramBase(ram []byte) uintptr {
	return uintptr(unsafe.Pointer(&ram[0]))
}

// handleUnknown resolves an undocumented-opcode trap: the slot carries the
// opcode and guest PC after the trap bytes for diagnosis.
func (d *Dispatcher) handleUnknown(pc uint16) error {
	slot := d.cache.SlotBytes(pc)
	opcode := slot[2]
	trapPC := uint16(slot[3])<<8 | uint16(slot[4])
	text, _ := disassembler.Disassemble(d.mem.RAM(), trapPC)
	if d.cfg.AbortOnUnknown {
		return fmt.Errorf("jit: unimplemented opcode %02X at %04X (%s)", opcode, trapPC, text)
	}
	d.log.Debug("unknown opcode, interpreter fallback",
		slog.String("opcode", fmt.Sprintf("%02X", opcode)),
		slog.String("pc", fmt.Sprintf("%04X", trapPC)),
		slog.String("dis", text))
	d.cpu.PC = pc
	cycles := d.cpu.Step()
	d.wheel.Advance(int64(cycles))
	return nil
}

// ensure re-emits the slot about to be entered if it is empty or stale.
func (d *Dispatcher) ensure(pc uint16) error {
	if d.cache.State(pc) != SlotValid {
		return d.tr.Translate(pc)
	}
	return nil
}
