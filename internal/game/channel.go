package game

import (
	"context"
	"errors"
	"sync"

	"github.com/antoniostano/crux/internal/protocol"
)

// ErrDisconnected reports that the client side of the channel is gone.
var ErrDisconnected = errors.New("client disconnected")

// Frame is one inbound client message: either a parsed control frame or
// a chunk of raw audio, never both.
type Frame struct {
	Control *protocol.ClientControl
	Audio   []byte
}

// Channel is the transport the orchestrator speaks through. SendControl
// takes a protocol frame struct and delivers it as JSON; SendBinary
// delivers raw audio bytes.
type Channel interface {
	SendControl(v any) error
	SendBinary(audio []byte) error
	Receive(ctx context.Context) (Frame, error)
}

// PipeChannel is a channel backed by in-process Go channels. The
// websocket layer pumps frames into it and drains Outbound; tests drive
// it directly.
type PipeChannel struct {
	inbound  chan Frame
	outbound chan any
	done     chan struct{}
	once     sync.Once
}

func NewPipeChannel(buffer int) *PipeChannel {
	if buffer < 1 {
		buffer = 1
	}
	return &PipeChannel{
		inbound:  make(chan Frame, buffer),
		outbound: make(chan any, buffer),
		done:     make(chan struct{}),
	}
}

func (c *PipeChannel) SendControl(v any) error {
	return c.send(v)
}

func (c *PipeChannel) SendBinary(audio []byte) error {
	return c.send(audio)
}

func (c *PipeChannel) send(v any) error {
	select {
	case <-c.done:
		return ErrDisconnected
	default:
	}
	select {
	case c.outbound <- v:
		return nil
	case <-c.done:
		return ErrDisconnected
	}
}

func (c *PipeChannel) Receive(ctx context.Context) (Frame, error) {
	select {
	case f := <-c.inbound:
		return f, nil
	case <-c.done:
		return Frame{}, ErrDisconnected
	case <-ctx.Done():
		return Frame{}, ctx.Err()
	}
}

// Push delivers one inbound frame; it blocks until the orchestrator
// receives it or the channel closes.
func (c *PipeChannel) Push(ctx context.Context, f Frame) error {
	select {
	case c.inbound <- f:
		return nil
	case <-c.done:
		return ErrDisconnected
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Outbound exposes the server-to-client stream for the writer pump.
// Values are either protocol frame structs or []byte audio.
func (c *PipeChannel) Outbound() <-chan any { return c.outbound }

// Close marks the client as gone. Safe to call more than once.
func (c *PipeChannel) Close() {
	c.once.Do(func() { close(c.done) })
}
