package via

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/newhook/bbc/bbc/timing"
)

func newSystemVIA(t *testing.T) (*VIA, *[]uint8) {
	t.Helper()
	w := timing.NewWheel()
	v := New(w, true, func(bool) {})
	var writes []uint8
	v.SetSoundWrite(func(val uint8) { writes = append(writes, val) })
	return v, &writes
}

func TestAddressedLatch(t *testing.T) {
	type testCase struct {
		name     string
		writes   []uint8
		expected uint8
	}

	testCases := []testCase{
		{
			name:     "set bit 0",
			writes:   []uint8{0x08},
			expected: 0x01,
		},
		{
			name:     "set then clear bit 0",
			writes:   []uint8{0x08, 0x00},
			expected: 0x00,
		},
		{
			name:     "set bits 0 and 3",
			writes:   []uint8{0x08, 0x0B},
			expected: 0x09,
		},
		{
			name:     "clear an unset bit",
			writes:   []uint8{0x02},
			expected: 0x00,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert := assert.New(t)
			v, _ := newSystemVIA(t)
			for _, w := range tc.writes {
				v.WriteRegister(ORB, w)
			}
			assert.Equal(tc.expected, v.Latch())
		})
	}
}

func TestSoundStrobe(t *testing.T) {
	assert := assert.New(t)
	v, writes := newSystemVIA(t)

	v.WriteRegister(ORA, 0xAB)

	// Clearing latch bit 0 never strobes.
	v.WriteRegister(ORB, 0x00)
	assert.Empty(*writes)

	// The 0-to-1 transition of latch bit 0 strobes ORA into the sound chip
	// exactly once.
	v.WriteRegister(ORB, 0x08)
	assert.Equal([]uint8{0xAB}, *writes)

	// Already set: no edge, no strobe.
	v.WriteRegister(ORB, 0x08)
	assert.Equal([]uint8{0xAB}, *writes)

	// Other latch bits never strobe.
	v.WriteRegister(ORB, 0x0A)
	assert.Equal([]uint8{0xAB}, *writes)

	// A fresh edge strobes the current ORA.
	v.WriteRegister(ORB, 0x00)
	v.WriteRegister(ORA, 0x55)
	v.WriteRegister(ORB, 0x08)
	assert.Equal([]uint8{0xAB, 0x55}, *writes)
}

func TestUserVIAHasNoLatch(t *testing.T) {
	assert := assert.New(t)
	w := timing.NewWheel()
	v := New(w, false, func(bool) {})
	called := false
	v.SetSoundWrite(func(uint8) { called = true })

	v.WriteRegister(ORB, 0x08)
	assert.Zero(v.Latch(), "only the system VIA drives the addressed latch")
	assert.False(called)
}
