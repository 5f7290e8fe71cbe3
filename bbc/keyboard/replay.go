package keyboard

import (
	"bufio"
	"bytes"
	"fmt"
	"strconv"
	"strings"
)

// Event is one key transition at an absolute 2MHz tick. Replays make a run
// reproducible without a UI thread: identical ROMs, replay and boot state
// give identical execution.
type Event struct {
	Tick uint64
	Row  int
	Col  int
	Down bool
}

// ParseReplay reads a replay file: one "tick row col state" line per event,
// '#' comments, events in non-decreasing tick order.
func ParseReplay(data []byte) ([]Event, error) {
	var events []Event
	scanner := bufio.NewScanner(bytes.NewReader(data))
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		fields := strings.Fields(text)
		if len(fields) != 4 {
			return nil, fmt.Errorf("replay line %d: want \"tick row col state\", got %q", line, text)
		}
		tick, err := strconv.ParseUint(fields[0], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("replay line %d: bad tick: %w", line, err)
		}
		row, err := strconv.Atoi(fields[1])
		if err != nil {
			return nil, fmt.Errorf("replay line %d: bad row: %w", line, err)
		}
		col, err := strconv.Atoi(fields[2])
		if err != nil {
			return nil, fmt.Errorf("replay line %d: bad column: %w", line, err)
		}
		state, err := strconv.Atoi(fields[3])
		if err != nil || state < 0 || state > 1 {
			return nil, fmt.Errorf("replay line %d: state must be 0 or 1", line)
		}
		if n := len(events); n > 0 && tick < events[n-1].Tick {
			return nil, fmt.Errorf("replay line %d: ticks must not decrease", line)
		}
		events = append(events, Event{Tick: tick, Row: row, Col: col, Down: state == 1})
	}
	return events, scanner.Err()
}
