package keyboard

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKeyStates(t *testing.T) {
	assert := assert.New(t)
	m := NewMatrix()

	assert.False(m.IsAnyKeyPressed())

	m.SetKey(4, 1, true)
	assert.True(m.IsKeyPressed(4, 1))
	assert.False(m.IsKeyPressed(1, 4))
	assert.True(m.IsKeyColumnPressed(1))
	assert.False(m.IsKeyColumnPressed(2))
	assert.True(m.IsAnyKeyPressed())

	m.SetKey(4, 1, false)
	assert.False(m.IsAnyKeyPressed())
}

func TestOutOfRangeIgnored(t *testing.T) {
	assert := assert.New(t)
	m := NewMatrix()

	m.SetKey(-1, 0, true)
	m.SetKey(0, Columns, true)
	assert.False(m.IsAnyKeyPressed())
	assert.False(m.IsKeyPressed(Rows, 0))
	assert.False(m.IsKeyColumnPressed(-1))
}

func TestClear(t *testing.T) {
	assert := assert.New(t)
	m := NewMatrix()

	m.SetKey(0, 0, true)
	m.SetKey(7, 9, true)
	m.Clear()
	assert.False(m.IsAnyKeyPressed())
}

// The grid is written by the UI thread and read by the emulation thread
// without locks; the race detector must stay quiet.
func TestConcurrentAccess(t *testing.T) {
	m := NewMatrix()
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			m.SetKey(i%Rows, i%Columns, i%2 == 0)
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			m.IsKeyPressed(i%Rows, i%Columns)
			m.IsAnyKeyPressed()
		}
	}()
	wg.Wait()
}
