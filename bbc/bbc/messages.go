package bbc

import (
	"fmt"
	"os"
)

// Inter-thread wire format: 4-byte fixed messages over a pair of
// single-producer single-consumer OS pipes, one per direction.
const (
	MsgVSync      = 1 // emulator -> UI: render requested
	MsgRenderDone = 2 // UI -> emulator: only for synchronous render pacing
	MsgExited     = 3 // either direction: peer is shutting down
)

// Message is one fixed-size channel datagram.
type Message struct {
	Kind           byte
	FullRender     bool
	FramingChanged bool
}

func (m Message) encode() [4]byte {
	var buf [4]byte
	buf[0] = m.Kind
	if m.FullRender {
		buf[1] = 1
	}
	if m.FramingChanged {
		buf[2] = 1
	}
	return buf
}

func decodeMessage(buf [4]byte) Message {
	return Message{
		Kind:           buf[0],
		FullRender:     buf[1] != 0,
		FramingChanged: buf[2] != 0,
	}
}

// Channel is one direction of the emulator/UI link.
type Channel struct {
	r, w *os.File
}

func NewChannel() (*Channel, error) {
	r, w, err := os.Pipe()
	if err != nil {
		return nil, fmt.Errorf("ipc channel: %w", err)
	}
	return &Channel{r: r, w: w}, nil
}

// Send writes one message; a failed write means the peer is gone.
func (c *Channel) Send(m Message) error {
	buf := m.encode()
	if _, err := c.w.Write(buf[:]); err != nil {
		return fmt.Errorf("ipc send: %w", err)
	}
	return nil
}

// Receive blocks for one message.
func (c *Channel) Receive() (Message, error) {
	var buf [4]byte
	if _, err := c.r.Read(buf[:]); err != nil {
		return Message{}, fmt.Errorf("ipc receive: %w", err)
	}
	return decodeMessage(buf), nil
}

// ReadFD exposes the read end for pollers.
func (c *Channel) ReadFD() int {
	return int(c.r.Fd())
}

func (c *Channel) Close() {
	c.r.Close()
	c.w.Close()
}
