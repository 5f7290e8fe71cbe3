package bbc

import (
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/newhook/bbc/bbc/keyboard"
	"github.com/newhook/bbc/bbc/memory"
	"github.com/newhook/bbc/bbc/sound"
	"github.com/newhook/bbc/bbc/timing"
	"github.com/newhook/bbc/bbc/via"
	"github.com/newhook/bbc/cpu"
	"github.com/newhook/bbc/jit"
)

// Run modes.
const (
	ModeJIT     = "jit"
	ModeInterp  = "interp"
	ModeInturbo = "inturbo"
)

const (
	// Clock frequencies: the wheel ticks at the 2MHz CPU rate, the VIAs and
	// the video frame run from the 1MHz peripheral bus.
	CPU_CLOCK_HZ = 2000000

	// SHEILA layout
	ROMSEL_START  = 0xFE30
	ROMSEL_END    = 0xFE3F
	SYSVIA_START  = 0xFE40
	SYSVIA_END    = 0xFE5F
	USERVIA_START = 0xFE60
	USERVIA_END   = 0xFE7F

	FRAME_TICKS = CPU_CLOCK_HZ / 50 // PAL frame at 50Hz

	// Framebuffer geometry handed to the UI
	SCREEN_WIDTH  = 640
	SCREEN_HEIGHT = 512
)

// Config selects boot material and run policy. Contradictory settings are a
// configuration fatal at construction time.
type Config struct {
	Mode           string
	Accurate       bool
	AbortOnUnknown bool
	Headless       bool
	SyncRender     bool

	OSROM    []byte
	Sideways map[int][]byte

	// Replay feeds recorded key transitions into the matrix at their
	// original ticks, making a headless run reproducible.
	Replay []keyboard.Event

	StopPC     int32 // -1 when unset
	StopCycles int64 // 0 when unset
}

func (c *Config) validate() error {
	switch c.Mode {
	case ModeJIT, ModeInterp, ModeInturbo:
	default:
		return fmt.Errorf("unknown mode %q", c.Mode)
	}
	if c.Mode == ModeInturbo && c.Accurate {
		return fmt.Errorf("inturbo mode and accurate timing are contradictory")
	}
	if c.Headless && c.SyncRender {
		return fmt.Errorf("headless operation cannot pace on synchronous render")
	}
	return nil
}

// Machine wires the address space, the timing wheel, both VIAs, the sound
// chip, the keyboard matrix and a CPU driver into one BBC Micro. All mutable
// emulation state belongs to the emulation thread; the UI thread owns the
// window and talks over the two channels.
type Machine struct {
	Mem      *memory.Map
	Wheel    *timing.Wheel
	CPU      *cpu.CPU
	SysVIA   *via.VIA
	UserVIA  *via.VIA
	Sound    *sound.SN76489
	Keyboard *keyboard.Matrix

	dispatcher *jit.Dispatcher

	cfg Config
	log *slog.Logger

	// ToUI carries VSYNC/EXITED to the UI thread; FromUI carries
	// RENDER_DONE/EXITED back.
	ToUI   *Channel
	FromUI *Channel

	framebuffer []byte

	frameTimer  int
	stopTimer   int
	replayTimer int
	replay      []keyboard.Event

	exited    atomic.Bool
	exitValue atomic.Int32

	discs []string
	tapes []string
}

func New(cfg Config, log *slog.Logger) (*Machine, error) {
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	mem, err := memory.NewMap()
	if err != nil {
		return nil, err
	}
	if cfg.OSROM != nil {
		if err := mem.LoadOS(cfg.OSROM); err != nil {
			return nil, err
		}
	}
	for bank, data := range cfg.Sideways {
		if err := mem.LoadSideways(bank, data); err != nil {
			return nil, err
		}
	}

	wheel := timing.NewWheel()
	c := cpu.New(mem)

	m := &Machine{
		Mem:         mem,
		Wheel:       wheel,
		CPU:         c,
		Sound:       sound.New(),
		Keyboard:    keyboard.NewMatrix(),
		cfg:         cfg,
		log:         log,
		framebuffer: make([]byte, SCREEN_WIDTH*SCREEN_HEIGHT*4),
	}

	m.SysVIA = via.New(wheel, true, func(level bool) {
		c.SetIRQ(cpu.IRQSystemVIA, level)
	})
	m.UserVIA = via.New(wheel, false, func(level bool) {
		c.SetIRQ(cpu.IRQUserVIA, level)
	})
	m.SysVIA.SetSoundWrite(m.Sound.Write)
	m.SysVIA.SetPortAInput(m.keyboardInput)

	mem.MapDevice(ROMSEL_START, ROMSEL_END,
		func(any, uint8) uint8 { return mem.ROMSelect() },
		func(_ any, _ uint8, val uint8) { mem.SelectROM(val) },
		nil)
	mem.MapDevice(SYSVIA_START, SYSVIA_END,
		func(_ any, reg uint8) uint8 { return m.SysVIA.ReadRegister(reg) },
		func(_ any, reg uint8, val uint8) { m.SysVIA.WriteRegister(reg, val) },
		nil)
	mem.MapDevice(USERVIA_START, USERVIA_END,
		func(_ any, reg uint8) uint8 { return m.UserVIA.ReadRegister(reg) },
		func(_ any, reg uint8, val uint8) { m.UserVIA.WriteRegister(reg, val) },
		nil)

	if m.ToUI, err = NewChannel(); err != nil {
		return nil, err
	}
	if m.FromUI, err = NewChannel(); err != nil {
		return nil, err
	}

	m.frameTimer = wheel.RegisterTimer(m.frameDue)
	wheel.StartTimer(m.frameTimer, FRAME_TICKS)

	if len(cfg.Replay) > 0 {
		m.replay = cfg.Replay
		m.replayTimer = wheel.RegisterTimer(m.replayDue)
		wheel.StartTimer(m.replayTimer, int64(cfg.Replay[0].Tick))
	}

	if cfg.StopCycles > 0 {
		m.stopTimer = wheel.RegisterTimer(func() {
			m.Exit(0)
		})
		wheel.StartTimer(m.stopTimer, cfg.StopCycles)
	}

	if cfg.Mode == ModeJIT {
		m.dispatcher, err = jit.NewDispatcher(mem, wheel,
			c, jit.Config{
				Accurate:       cfg.Accurate,
				AbortOnUnknown: cfg.AbortOnUnknown,
			}, log)
		if err != nil {
			return nil, err
		}
		if cfg.StopPC >= 0 {
			m.dispatcher.SetStopPC(uint16(cfg.StopPC))
		}
	}
	return m, nil
}

// Framebuffer returns the pixel buffer the UI presents.
func (m *Machine) Framebuffer() []byte {
	return m.framebuffer
}

// AddDisc registers a disc image handle; the codec is an external
// collaborator.
func (m *Machine) AddDisc(path string) {
	m.discs = append(m.discs, path)
}

// AddTape registers a tape image handle.
func (m *Machine) AddTape(path string) {
	m.tapes = append(m.tapes, path)
}

// Exit requests shutdown with a run result; observed at the next dispatcher
// exit. Safe to call from the UI thread.
func (m *Machine) Exit(code int32) {
	m.exitValue.Store(code)
	if m.exited.CompareAndSwap(false, true) && m.dispatcher != nil {
		m.dispatcher.Stop(code)
	}
}

// Exited reports whether shutdown has been requested.
func (m *Machine) Exited() bool {
	return m.exited.Load()
}

// keyboardInput is the system VIA's peripheral-A source: the low nibble of
// ORA selects the column, bits 4-6 the row, and the addressed switch reads
// back on PA7.
func (m *Machine) keyboardInput() uint8 {
	ora := m.SysVIA.ORAValue()
	row := int(ora>>4) & 0x07
	col := int(ora) & 0x0F
	v := uint8(0x7F)
	if m.Keyboard.IsKeyPressed(row, col) {
		v |= 0x80
	}
	return v
}

// frameDue posts a VSYNC to the UI and re-arms the frame timer. When the
// guest asked for synchronous render pacing the emulation thread then blocks
// for RENDER_DONE before running further.
func (m *Machine) frameDue() {
	m.Wheel.SetTimerValue(m.frameTimer, m.Wheel.TimerValue(m.frameTimer)+FRAME_TICKS)
	m.Wheel.SetFiring(m.frameTimer, true)
	if m.cfg.Headless {
		return
	}
	if err := m.ToUI.Send(Message{Kind: MsgVSync, FullRender: true}); err != nil {
		m.log.Warn("vsync channel failed, shutting down", slog.Any("err", err))
		m.Exit(1)
		return
	}
	if m.cfg.SyncRender {
		msg, err := m.FromUI.Receive()
		if err != nil || msg.Kind == MsgExited {
			m.Exit(1)
		}
	}
}

// replayDue applies every recorded key transition that has come due and
// re-arms for the next one.
func (m *Machine) replayDue() {
	now := m.Wheel.Now()
	for len(m.replay) > 0 && m.replay[0].Tick <= now {
		ev := m.replay[0]
		m.replay = m.replay[1:]
		m.Keyboard.SetKey(ev.Row, ev.Col, ev.Down)
	}
	if len(m.replay) > 0 {
		m.Wheel.SetTimerValue(m.replayTimer, int64(m.replay[0].Tick-now))
		m.Wheel.SetFiring(m.replayTimer, true)
	}
}

// Reset performs the cold-start entry through the reset vector.
func (m *Machine) Reset() {
	m.CPU.Reset()
}

// Run drives the selected CPU mode until exit and returns the run result.
func (m *Machine) Run() (int32, error) {
	defer func() {
		if !m.cfg.Headless {
			m.ToUI.Send(Message{Kind: MsgExited})
		}
	}()
	if m.dispatcher != nil {
		code, err := m.dispatcher.Run()
		m.exitValue.Store(code)
		return code, err
	}
	return m.runInterpreter()
}

// runInterpreter is the interpreter driver: interp mode advances the wheel
// after every instruction, inturbo batches a whole budget before syncing.
func (m *Machine) runInterpreter() (int32, error) {
	for !m.exited.Load() {
		if m.cfg.StopPC >= 0 && m.CPU.PC == uint16(m.cfg.StopPC) {
			break
		}
		budget := m.Wheel.NextDeadline()
		if budget <= 0 {
			m.Wheel.Advance(0)
			continue
		}
		if m.cfg.Mode == ModeInturbo {
			consumed := int64(0)
			for consumed < budget && !m.exited.Load() {
				if m.cfg.StopPC >= 0 && m.CPU.PC == uint16(m.cfg.StopPC) {
					break
				}
				consumed += int64(m.CPU.Step())
			}
			m.Wheel.Advance(consumed)
			continue
		}
		m.Wheel.Advance(int64(m.CPU.Step()))
	}
	return m.exitValue.Load(), nil
}

// Close releases the address space, code cache and channels.
func (m *Machine) Close() {
	if m.dispatcher != nil {
		m.dispatcher.Close()
	}
	m.ToUI.Close()
	m.FromUI.Close()
	m.Mem.Close()
}
