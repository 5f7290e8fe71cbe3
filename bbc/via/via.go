package via

import (
	"github.com/newhook/bbc/bbc/timing"
)

// Register offsets from the VIA base address
const (
	ORB   = 0x00 // Output Register B
	ORA   = 0x01 // Output Register A (with handshake)
	DDRB  = 0x02 // Data Direction Register B
	DDRA  = 0x03 // Data Direction Register A
	T1CL  = 0x04 // Timer 1 Counter Low
	T1CH  = 0x05 // Timer 1 Counter High
	T1LL  = 0x06 // Timer 1 Latch Low
	T1LH  = 0x07 // Timer 1 Latch High
	T2CL  = 0x08 // Timer 2 Counter Low
	T2CH  = 0x09 // Timer 2 Counter High
	SR    = 0x0A // Shift Register
	ACR   = 0x0B // Auxiliary Control Register
	PCR   = 0x0C // Peripheral Control Register
	IFR   = 0x0D // Interrupt Flag Register
	IER   = 0x0E // Interrupt Enable Register
	ORAnh = 0x0F // Output Register A, no handshake
)

// Interrupt Flag / Enable Register bits
const (
	INT_CA2    uint8 = 0x01
	INT_CA1    uint8 = 0x02
	INT_SHIFT  uint8 = 0x04
	INT_CB2    uint8 = 0x08
	INT_CB1    uint8 = 0x10
	INT_TIMER2 uint8 = 0x20
	INT_TIMER1 uint8 = 0x40
	INT_IRQ    uint8 = 0x80 // read-only aggregate
)

// Auxiliary Control Register bits
const (
	ACR_PA_LATCH  uint8 = 0x01
	ACR_PB_LATCH  uint8 = 0x02
	ACR_T2_COUNT  uint8 = 0x20 // Timer 2 counts PB6 pulses; decrement suspended
	ACR_T1_CONT   uint8 = 0x40 // Timer 1 continuous (free-run) mode
	ACR_T1_PB7    uint8 = 0x80 // Timer 1 drives PB7
)

// t2RewrapPeriod is the free-running wrap of Timer 2 after its one-shot has
// fired, in peripheral ticks.
const t2RewrapPeriod = 0x10000

// VIA models a 6522 Versatile Interface Adapter. Both timers live inside the
// timing wheel so their deadlines participate in the global schedule; values
// stored there are pre-doubled (the wheel runs at twice the VIA clock) and
// offset so the wheel deadline lands on the tick after the counter passes -1.
//
// Stored wheel value = (counter + 2) * 2. A freshly loaded counter of L is
// stored as (L+2)*2 and the interrupt fires L+2 peripheral ticks later, which
// matches the hardware underflow sequence 4,3,2,1,0,-1,reload.
type VIA struct {
	wheel *timing.Wheel

	// raiseIRQ drives this VIA's interrupt source level into the CPU.
	raiseIRQ func(level bool)

	// soundWrite is the system VIA's strobe path into the sound chip.
	soundWrite func(val uint8)

	// portAIn and portBIn supply the peripheral input lines.
	portAIn func() uint8
	portBIn func() uint8

	system bool

	orb, ora   uint8
	ddrb, ddra uint8
	ira, irb   uint8 // latched peripheral inputs

	t1Latch uint16
	t2Latch uint16
	t1ID    int
	t2ID    int
	t1Fired bool // one-shot interrupt already delivered
	t2Fired bool
	pb7     uint8 // shadow bit, toggles on T1 underflow regardless of ACR bit 7

	sr, acr, pcr uint8
	ifr, ier     uint8

	// IC32 addressed latch (system VIA only)
	latch uint8

	t2Frozen int64 // saved wheel value while pulse-count mode suspends T2

	ca1, ca2, cb1, cb2 bool
}

// New creates a VIA whose timers are registered with the wheel. system
// selects the system-VIA behaviors (IC32 latch, sound strobe).
func New(wheel *timing.Wheel, system bool, raiseIRQ func(level bool)) *VIA {
	v := &VIA{
		wheel:    wheel,
		system:   system,
		raiseIRQ: raiseIRQ,
	}
	v.t1ID = wheel.RegisterTimer(v.t1Underflow)
	v.t2ID = wheel.RegisterTimer(v.t2Underflow)
	return v
}

// SetSoundWrite installs the sound strobe target (system VIA).
func (v *VIA) SetSoundWrite(fn func(val uint8)) {
	v.soundWrite = fn
}

// SetPortAInput installs the peripheral-A input source (keyboard on the
// system VIA).
func (v *VIA) SetPortAInput(fn func() uint8) {
	v.portAIn = fn
}

// SetPortBInput installs the peripheral-B input source.
func (v *VIA) SetPortBInput(fn func() uint8) {
	v.portBIn = fn
}

// Latch returns the IC32 addressed latch state (system VIA).
func (v *VIA) Latch() uint8 {
	return v.latch
}

func (v *VIA) raiseInterrupt(bit uint8) {
	v.ifr |= bit
	v.updateIFR()
}

func (v *VIA) clearInterrupt(bit uint8) {
	v.ifr &^= bit
	v.updateIFR()
}

// updateIFR recomputes the aggregate bit and drives the CPU line. Called on
// every IFR/IER mutation and on timer events.
func (v *VIA) updateIFR() {
	if v.ifr&v.ier&0x7F != 0 {
		v.ifr |= INT_IRQ
		if v.raiseIRQ != nil {
			v.raiseIRQ(true)
		}
	} else {
		v.ifr &^= INT_IRQ
		if v.raiseIRQ != nil {
			v.raiseIRQ(false)
		}
	}
}

// t1Period is the full T1 relatch period in wheel ticks.
func (v *VIA) t1Period() int64 {
	return (int64(v.t1Latch) + 2) * timing.TicksPerPeripheralTick
}

func (v *VIA) t1Underflow() {
	if v.acr&ACR_T1_CONT != 0 {
		// Continuous: reload from latch, interrupt, toggle PB7 shadow.
		v.raiseInterrupt(INT_TIMER1)
		v.pb7 ^= 1
		v.wheel.SetTimerValue(v.t1ID, v.wheel.TimerValue(v.t1ID)+v.t1Period())
		v.wheel.SetFiring(v.t1ID, true)
		return
	}
	// One-shot: at most one interrupt per latch write. The counter keeps
	// running down and rewraps at the latch period; reads resolve the
	// under-count.
	if !v.t1Fired {
		v.t1Fired = true
		v.raiseInterrupt(INT_TIMER1)
		v.pb7 ^= 1
	}
}

func (v *VIA) t2Underflow() {
	if !v.t2Fired {
		v.t2Fired = true
		v.raiseInterrupt(INT_TIMER2)
	}
}

// evenValue rounds a wheel value up onto the peripheral clock: half-ticks
// belong to the 1MHz step still in flight, so a retrieved value is always
// even.
func evenValue(raw int64) int64 {
	return raw + raw&1
}

// t1Counter returns the current T1 counter in peripheral ticks, resolving
// any under-count against the latch period.
func (v *VIA) t1Counter() uint16 {
	raw := evenValue(v.wheel.TimerValue(v.t1ID))
	raw = timing.Relatch(raw, v.t1Period())
	return uint16(raw/timing.TicksPerPeripheralTick - 2)
}

// t2Counter returns the current T2 counter; after the one-shot has fired the
// counter free-runs through 0xFFFF with a 0x10000 rewrap.
func (v *VIA) t2Counter() uint16 {
	if v.acr&ACR_T2_COUNT != 0 {
		return uint16(evenValue(v.t2Frozen)/timing.TicksPerPeripheralTick - 2)
	}
	raw := evenValue(v.wheel.TimerValue(v.t2ID))
	raw = timing.Relatch(raw, t2RewrapPeriod*timing.TicksPerPeripheralTick)
	return uint16(raw/timing.TicksPerPeripheralTick - 2)
}

// loadT1 copies the latch into the counter and arms the interrupt deadline.
func (v *VIA) loadT1() {
	v.t1Fired = false
	v.pb7 = 0
	v.wheel.StartTimer(v.t1ID, v.t1Period())
}

// loadT2 copies the latch into the counter and arms the interrupt deadline.
// In pulse-count mode the counter loads but does not run.
func (v *VIA) loadT2() {
	v.t2Fired = false
	value := (int64(v.t2Latch) + 2) * timing.TicksPerPeripheralTick
	if v.acr&ACR_T2_COUNT != 0 {
		v.t2Frozen = value
		v.wheel.StopTimer(v.t2ID)
		return
	}
	v.wheel.StartTimer(v.t2ID, value)
}

// ReadRegister dispatches a read of one of the sixteen registers, applying
// the data-sheet side effects.
func (v *VIA) ReadRegister(reg uint8) uint8 {
	switch reg & 0x0F {
	case ORB:
		v.clearInterrupt(INT_CB1 | INT_CB2)
		return v.readPortB()
	case ORA:
		v.clearInterrupt(INT_CA1 | INT_CA2)
		return v.readPortA()
	case DDRB:
		return v.ddrb
	case DDRA:
		return v.ddra
	case T1CL:
		v.clearInterrupt(INT_TIMER1)
		return uint8(v.t1Counter())
	case T1CH:
		return uint8(v.t1Counter() >> 8)
	case T1LL:
		return uint8(v.t1Latch)
	case T1LH:
		return uint8(v.t1Latch >> 8)
	case T2CL:
		v.clearInterrupt(INT_TIMER2)
		return uint8(v.t2Counter())
	case T2CH:
		return uint8(v.t2Counter() >> 8)
	case SR:
		v.clearInterrupt(INT_SHIFT)
		return v.sr
	case ACR:
		return v.acr
	case PCR:
		return v.pcr
	case IFR:
		return v.ifr
	case IER:
		return v.ier | 0x80
	case ORAnh:
		return v.readPortA()
	}
	return 0
}

// WriteRegister dispatches a write, applying the data-sheet side effects.
func (v *VIA) WriteRegister(reg uint8, val uint8) {
	switch reg & 0x0F {
	case ORB:
		v.orb = val
		v.clearInterrupt(INT_CB1 | INT_CB2)
		if v.system {
			v.writeAddressedLatch(val)
		}
	case ORA:
		v.ora = val
		v.clearInterrupt(INT_CA1 | INT_CA2)
	case DDRB:
		v.ddrb = val
	case DDRA:
		v.ddra = val
	case T1CL, T1LL:
		v.t1Latch = v.t1Latch&0xFF00 | uint16(val)
	case T1CH:
		v.t1Latch = v.t1Latch&0x00FF | uint16(val)<<8
		v.clearInterrupt(INT_TIMER1)
		v.loadT1()
	case T1LH:
		// Writing the latch high byte clears TIMER1 without reloading the
		// counter. Data-sheet behavior, confirmed on real hardware.
		v.t1Latch = v.t1Latch&0x00FF | uint16(val)<<8
		v.clearInterrupt(INT_TIMER1)
	case T2CL:
		v.t2Latch = v.t2Latch&0xFF00 | uint16(val)
	case T2CH:
		v.t2Latch = v.t2Latch&0x00FF | uint16(val)<<8
		v.clearInterrupt(INT_TIMER2)
		v.loadT2()
	case SR:
		v.sr = val
		v.clearInterrupt(INT_SHIFT)
	case ACR:
		v.writeACR(val)
	case PCR:
		v.pcr = val
	case IFR:
		// Write-1-to-clear; bit 7 is the read-only aggregate.
		v.ifr &^= val & 0x7F
		v.updateIFR()
	case IER:
		if val&0x80 != 0 {
			v.ier |= val & 0x7F
		} else {
			v.ier &^= val & 0x7F
		}
		v.updateIFR()
	case ORAnh:
		v.ora = val
	}
}

func (v *VIA) writeACR(val uint8) {
	old := v.acr
	v.acr = val
	switch {
	case old&ACR_T2_COUNT == 0 && val&ACR_T2_COUNT != 0:
		// Entering pulse-count mode suspends the decrement entirely.
		v.t2Frozen = v.wheel.TimerValue(v.t2ID)
		v.wheel.StopTimer(v.t2ID)
	case old&ACR_T2_COUNT != 0 && val&ACR_T2_COUNT == 0:
		v.wheel.StartTimer(v.t2ID, 0)
		v.wheel.SetTimerValue(v.t2ID, v.t2Frozen)
		v.wheel.SetFiring(v.t2ID, !v.t2Fired)
	}
}

// writeAddressedLatch drives the system VIA's 4-bit addressed latch: the low
// three bits of the value select the latch bit, bit 3 supplies its new value.
// A 0-to-1 transition of latch bit 0 strobes ORA into the sound chip; this is
// the machine's sole sound write path.
func (v *VIA) writeAddressedLatch(val uint8) {
	bit := val & 0x07
	old := v.latch
	if val&0x08 != 0 {
		v.latch |= 1 << bit
	} else {
		v.latch &^= 1 << bit
	}
	if bit == 0 && old&0x01 == 0 && v.latch&0x01 != 0 && v.soundWrite != nil {
		v.soundWrite(v.ora)
	}
}

func (v *VIA) readPortA() uint8 {
	input := uint8(0xFF)
	if v.portAIn != nil {
		input = v.portAIn()
	}
	if v.acr&ACR_PA_LATCH != 0 {
		input = v.ira
	}
	return v.ora&v.ddra | input&^v.ddra
}

func (v *VIA) readPortB() uint8 {
	input := uint8(0xFF)
	if v.portBIn != nil {
		input = v.portBIn()
	}
	if v.acr&ACR_PB_LATCH != 0 {
		input = v.irb
	}
	value := v.orb&v.ddrb | input&^v.ddrb
	if v.acr&ACR_T1_PB7 != 0 {
		value = value&0x7F | v.pb7<<7
	}
	return value
}

// PB7 exposes the Timer 1 output shadow bit.
func (v *VIA) PB7() uint8 {
	return v.pb7
}

// ORAValue exposes the output register for strobe consumers.
func (v *VIA) ORAValue() uint8 {
	return v.ora
}

// SetCA1 drives the CA1 input line; the active edge per PCR bit 0 raises the
// CA1 interrupt and latches port A.
func (v *VIA) SetCA1(level bool) {
	if v.ca1 != level && level == (v.pcr&0x01 != 0) {
		if v.portAIn != nil {
			v.ira = v.portAIn()
		}
		v.raiseInterrupt(INT_CA1)
	}
	v.ca1 = level
}

// SetCA2 drives the CA2 input line; in input modes the active edge per PCR
// bit 2 raises the CA2 interrupt.
func (v *VIA) SetCA2(level bool) {
	if v.pcr&0x08 == 0 && v.ca2 != level && level == (v.pcr&0x04 != 0) {
		v.raiseInterrupt(INT_CA2)
	}
	v.ca2 = level
}

// SetCB1 drives the CB1 input line per PCR bit 4.
func (v *VIA) SetCB1(level bool) {
	if v.cb1 != level && level == (v.pcr&0x10 != 0) {
		if v.portBIn != nil {
			v.irb = v.portBIn()
		}
		v.raiseInterrupt(INT_CB1)
	}
	v.cb1 = level
}

// SetCB2 drives the CB2 input line per PCR bit 6.
func (v *VIA) SetCB2(level bool) {
	if v.pcr&0x80 == 0 && v.cb2 != level && level == (v.pcr&0x40 != 0) {
		v.raiseInterrupt(INT_CB2)
	}
	v.cb2 = level
}

// IFRValue exposes the raw interrupt flags for the monitor.
func (v *VIA) IFRValue() uint8 { return v.ifr }

// IERValue exposes the raw interrupt enables for the monitor.
func (v *VIA) IERValue() uint8 { return v.ier }
