package via

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/newhook/bbc/bbc/timing"
)

// advanceVIA moves the wheel by n peripheral (1MHz) ticks.
func advanceVIA(w *timing.Wheel, n int64) {
	w.Advance(n * timing.TicksPerPeripheralTick)
}

func newTestVIA(t *testing.T) (*timing.Wheel, *VIA, *bool) {
	t.Helper()
	w := timing.NewWheel()
	line := false
	v := New(w, false, func(level bool) { line = level })
	return w, v, &line
}

func TestTimer1LatchLoad(t *testing.T) {
	type testCase struct {
		name     string
		low      uint8
		high     uint8
		expected uint16
	}

	testCases := []testCase{
		{name: "Load 0x1234", low: 0x34, high: 0x12, expected: 0x1234},
		{name: "Load 0xFFFF", low: 0xFF, high: 0xFF, expected: 0xFFFF},
		{name: "Load 0x0000", low: 0x00, high: 0x00, expected: 0x0000},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert := assert.New(t)
			_, v, _ := newTestVIA(t)

			v.WriteRegister(T1CL, tc.low)
			v.WriteRegister(T1CH, tc.high)

			assert.Equal(tc.expected, v.t1Latch, "T1 latch should load from the counter registers")
			assert.Equal(tc.low, v.ReadRegister(T1CL), "counter low should read back the latch")
			assert.Equal(tc.high, v.ReadRegister(T1CH), "counter high should read back the latch")
		})
	}
}

func TestTimer1ContinuousPeriod(t *testing.T) {
	assert := assert.New(t)
	w, v, _ := newTestVIA(t)

	v.WriteRegister(ACR, ACR_T1_CONT)
	v.WriteRegister(T1CL, 0x10)
	v.WriteRegister(T1CH, 0x00)
	assert.Equal(uint8(0), v.PB7(), "PB7 shadow resets on T1CH write")

	// Latch 0x10: the underflow interrupt lands exactly latch+2 = 18
	// peripheral ticks after the load.
	advanceVIA(w, 17)
	assert.Zero(v.IFRValue()&INT_TIMER1, "no interrupt before latch+2 ticks")

	advanceVIA(w, 1)
	assert.NotZero(v.IFRValue()&INT_TIMER1, "TIMER1 raised at latch+2 ticks")
	assert.Equal(uint8(1), v.PB7(), "PB7 shadow toggles on underflow")

	// Clear and wait for the next period.
	v.WriteRegister(IFR, INT_TIMER1)
	advanceVIA(w, 18)
	assert.NotZero(v.IFRValue()&INT_TIMER1, "continuous mode re-fires every latch+2 ticks")
	assert.Equal(uint8(0), v.PB7(), "PB7 shadow toggles again")
}

func TestTimer1OneShot(t *testing.T) {
	assert := assert.New(t)
	w, v, _ := newTestVIA(t)

	v.WriteRegister(T1CL, 0x04)
	v.WriteRegister(T1CH, 0x00)

	advanceVIA(w, 6)
	assert.NotZero(v.IFRValue()&INT_TIMER1, "one-shot fires once")
	v.WriteRegister(IFR, INT_TIMER1)

	advanceVIA(w, 50)
	assert.Zero(v.IFRValue()&INT_TIMER1, "no second interrupt until re-armed")

	// Re-arming by writing T1CH starts a fresh one-shot.
	v.WriteRegister(T1CH, 0x00)
	advanceVIA(w, 6)
	assert.NotZero(v.IFRValue()&INT_TIMER1, "T1CH write re-arms the one-shot")
}

func TestTimer1UnderCountRelatch(t *testing.T) {
	assert := assert.New(t)
	w, v, _ := newTestVIA(t)

	v.WriteRegister(T1CL, 0x04)
	v.WriteRegister(T1CH, 0x00)

	// Run far past the deadline with the interrupt unserviced: the counter
	// must read as if it had relatched every latch+2 ticks.
	advanceVIA(w, 6+3*6+2)
	lo := v.ReadRegister(T1CL)
	assert.Equal(uint8(0x02), lo, "under-counted T1 reads as if relatched")
}

func TestTimer1LatchHighClearsInterrupt(t *testing.T) {
	assert := assert.New(t)
	w, v, _ := newTestVIA(t)

	v.WriteRegister(T1CL, 0x02)
	v.WriteRegister(T1CH, 0x00)
	advanceVIA(w, 4)
	assert.NotZero(v.IFRValue()&INT_TIMER1)

	counter := v.ReadRegister(T1CH)
	v.WriteRegister(T1LH, 0x12)
	assert.Zero(v.IFRValue()&INT_TIMER1, "T1LH write clears TIMER1")
	assert.Equal(counter, v.ReadRegister(T1CH), "T1LH write must not reload the counter")
	assert.Equal(uint8(0x12), v.ReadRegister(T1LH), "latch high updates")
}

func TestTimer1CounterReadSideEffect(t *testing.T) {
	assert := assert.New(t)
	w, v, _ := newTestVIA(t)

	v.WriteRegister(T1CL, 0x02)
	v.WriteRegister(T1CH, 0x00)
	advanceVIA(w, 4)
	assert.NotZero(v.IFRValue() & INT_TIMER1)

	v.ReadRegister(T1CL)
	assert.Zero(v.IFRValue()&INT_TIMER1, "reading T1CL clears TIMER1")
}

func TestTimer1ValueAlwaysEven(t *testing.T) {
	assert := assert.New(t)
	w, v, _ := newTestVIA(t)

	v.WriteRegister(T1CL, 0x10)
	v.WriteRegister(T1CH, 0x00)

	// Advance by odd wheel (2MHz) tick counts; the value the VIA retrieves
	// from the wheel rounds onto the peripheral clock, so the counter steps
	// once per two wheel ticks.
	expected := []uint8{0x0F, 0x0D, 0x0C, 0x0A, 0x09, 0x07, 0x06}
	for _, want := range expected {
		w.Advance(3)
		assert.Equal(want, v.ReadRegister(T1CL))
	}
}

func TestTimer2OneShotAndRewrap(t *testing.T) {
	assert := assert.New(t)
	w, v, _ := newTestVIA(t)

	v.WriteRegister(T2CL, 0x04)
	v.WriteRegister(T2CH, 0x00)

	advanceVIA(w, 6)
	assert.NotZero(v.IFRValue()&INT_TIMER2, "T2 fires its one-shot")
	v.WriteRegister(IFR, INT_TIMER2)

	// T2 keeps counting down through 0xFFFF and never re-fires.
	advanceVIA(w, 2)
	assert.Zero(v.IFRValue()&INT_TIMER2)
	assert.Equal(uint8(0xFC), v.ReadRegister(T2CL), "counter continues past underflow")
	assert.Equal(uint8(0xFF), v.ReadRegister(T2CH))

	advanceVIA(w, 0x10000)
	assert.Zero(v.IFRValue()&INT_TIMER2, "no interrupt on the 0x10000 rewrap")
	assert.Equal(uint8(0xFC), v.ReadRegister(T2CL), "rewrap period is 0x10000")

	// T2CH write re-arms.
	v.WriteRegister(T2CL, 0x03)
	v.WriteRegister(T2CH, 0x00)
	advanceVIA(w, 5)
	assert.NotZero(v.IFRValue()&INT_TIMER2, "T2CH write re-arms the one-shot")
}

func TestTimer2PulseCountSuspends(t *testing.T) {
	assert := assert.New(t)
	w, v, _ := newTestVIA(t)

	v.WriteRegister(T2CL, 0x10)
	v.WriteRegister(T2CH, 0x00)
	advanceVIA(w, 4)

	before := v.ReadRegister(T2CL)
	v.WriteRegister(ACR, ACR_T2_COUNT)
	advanceVIA(w, 40)
	assert.Equal(before, v.ReadRegister(T2CL), "pulse-count mode suspends the decrement")
	assert.Zero(v.IFRValue()&INT_TIMER2, "no interupt while suspended")

	v.WriteRegister(ACR, 0)
	advanceVIA(w, 0x10)
	assert.NotZero(v.IFRValue()&INT_TIMER2, "decrement resumes where it stopped")
}

func TestInterruptAggregation(t *testing.T) {
	type step struct {
		write   bool
		reg     uint8
		val     uint8
		raise   uint8 // interrupt bit to raise directly
	}

	assert := assert.New(t)
	w, v, line := newTestVIA(t)
	_ = w

	steps := []step{
		{raise: INT_CA1},
		{write: true, reg: IER, val: 0x80 | INT_CA1},
		{write: true, reg: IFR, val: INT_CA1},
		{raise: INT_TIMER1},
		{raise: INT_CA1},
		{write: true, reg: IER, val: INT_CA1}, // clear CA1 enable
		{write: true, reg: IER, val: 0x80 | INT_TIMER1},
		{write: true, reg: IFR, val: 0x7F},
	}

	for n, s := range steps {
		if s.write {
			v.WriteRegister(s.reg, s.val)
		} else {
			v.raiseInterrupt(s.raise)
		}
		aggregate := v.ifr&v.ier&0x7F != 0
		assert.Equal(aggregate, v.ifr&INT_IRQ != 0,
			"step %d: IFR bit 7 must equal (IFR & IER & 0x7F) != 0", n)
		assert.Equal(aggregate, *line,
			"step %d: the CPU line must track the aggregate", n)
		if aggregate {
			assert.NotZero(v.ReadRegister(IFR)&INT_IRQ, "readable aggregate")
		}
	}
}

func TestIERSetClearProtocol(t *testing.T) {
	assert := assert.New(t)
	_, v, _ := newTestVIA(t)

	v.WriteRegister(IER, 0x80|INT_TIMER1|INT_CA1)
	assert.Equal(INT_TIMER1|INT_CA1, v.IERValue(), "bit 7 set: enables set")

	v.WriteRegister(IER, INT_CA1)
	assert.Equal(INT_TIMER1, v.IERValue(), "bit 7 clear: enables cleared")

	assert.Equal(uint8(0x80)|INT_TIMER1, v.ReadRegister(IER), "IER reads with bit 7 set")
}

func TestPortARead(t *testing.T) {
	assert := assert.New(t)
	_, v, _ := newTestVIA(t)

	v.SetPortAInput(func() uint8 { return 0xA5 })
	v.WriteRegister(DDRA, 0x0F)
	v.WriteRegister(ORA, 0x03)

	// Output bits come from ORA, input bits from the peripheral.
	assert.Equal(uint8(0xA0|0x03), v.ReadRegister(ORA))
}

func TestORAReadClearsHandshake(t *testing.T) {
	assert := assert.New(t)
	_, v, _ := newTestVIA(t)

	v.raiseInterrupt(INT_CA1 | INT_CA2)
	v.ReadRegister(ORA)
	assert.Zero(v.IFRValue()&(INT_CA1|INT_CA2), "ORA read clears CA1 and CA2")

	v.raiseInterrupt(INT_CA1 | INT_CA2)
	v.ReadRegister(ORAnh)
	assert.Equal(INT_CA1|INT_CA2, v.IFRValue()&(INT_CA1|INT_CA2),
		"the no-handshake alias must not clear CA1/CA2")
}

func TestPB7OutputMode(t *testing.T) {
	assert := assert.New(t)
	w, v, _ := newTestVIA(t)

	v.WriteRegister(ACR, ACR_T1_CONT|ACR_T1_PB7)
	v.WriteRegister(DDRB, 0x80)
	v.WriteRegister(ORB, 0x80)
	v.WriteRegister(T1CL, 0x02)
	v.WriteRegister(T1CH, 0x00)

	assert.Zero(v.ReadRegister(ORB)&0x80, "PB7 drives low after T1CH write")
	advanceVIA(w, 4)
	assert.NotZero(v.ReadRegister(ORB)&0x80, "PB7 toggles high on underflow")
}
