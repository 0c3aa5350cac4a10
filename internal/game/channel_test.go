package game

import (
	"context"
	"errors"
	"testing"

	"github.com/antoniostano/crux/internal/protocol"
)

func TestPipeChannelRoundTrip(t *testing.T) {
	ch := NewPipeChannel(4)

	f := controlFrame(protocol.ActionEndGame)
	if err := ch.Push(context.Background(), f); err != nil {
		t.Fatalf("Push() error = %v", err)
	}
	got, err := ch.Receive(context.Background())
	if err != nil {
		t.Fatalf("Receive() error = %v", err)
	}
	if got.Control == nil || got.Control.Action != protocol.ActionEndGame {
		t.Fatalf("Receive() = %+v", got)
	}

	if err := ch.SendControl(protocol.StatusEvent{Status: protocol.StatusEvaluating}); err != nil {
		t.Fatalf("SendControl() error = %v", err)
	}
	v := <-ch.Outbound()
	if s, _ := protocol.StatusOf(v); s != protocol.StatusEvaluating {
		t.Fatalf("outbound frame = %v", v)
	}
}

func TestPipeChannelCloseUnblocks(t *testing.T) {
	ch := NewPipeChannel(1)
	ch.Close()
	ch.Close() // idempotent

	if _, err := ch.Receive(context.Background()); !errors.Is(err, ErrDisconnected) {
		t.Fatalf("Receive() error = %v, want ErrDisconnected", err)
	}
	if err := ch.SendControl(protocol.StatusEvent{Status: protocol.StatusAIThinking}); !errors.Is(err, ErrDisconnected) {
		t.Fatalf("SendControl() error = %v, want ErrDisconnected", err)
	}
	if err := ch.SendBinary([]byte{1}); !errors.Is(err, ErrDisconnected) {
		t.Fatalf("SendBinary() error = %v, want ErrDisconnected", err)
	}
}
