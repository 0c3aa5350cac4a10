package protocol

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestParseClientControl(t *testing.T) {
	msg, err := ParseClientControl([]byte(`{"action":"start_speaking"}`))
	if err != nil {
		t.Fatalf("ParseClientControl() error = %v", err)
	}
	if msg.Action != ActionStartSpeaking {
		t.Fatalf("Action = %q, want %q", msg.Action, ActionStartSpeaking)
	}
}

func TestParseClientControlRejectsUnknownAction(t *testing.T) {
	_, err := ParseClientControl([]byte(`{"action":"dance"}`))
	if !errors.Is(err, ErrUnknownAction) {
		t.Fatalf("error = %v, want ErrUnknownAction", err)
	}
}

func TestParseClientControlRejectsMalformedJSON(t *testing.T) {
	_, err := ParseClientControl([]byte(`{"action":`))
	if err == nil {
		t.Fatalf("expected decode error")
	}
}

func TestSpamMessageWireShape(t *testing.T) {
	raw, err := json.Marshal(SpamMessage{Status: StatusSpamMessage, Index: 1, Total: 3, Text: "B"})
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	want := `{"status":"spam_message","index":1,"total":3,"text":"B"}`
	if string(raw) != want {
		t.Fatalf("wire shape = %s, want %s", raw, want)
	}
}

func TestStatusOf(t *testing.T) {
	cases := []struct {
		frame any
		want  Status
	}{
		{StatusEvent{Status: StatusAISpeaking}, StatusAISpeaking},
		{TextEvent{Status: StatusUserResponseText, Text: "hi"}, StatusUserResponseText},
		{SpamStreak{Status: StatusAngrySpamStreak, MessageCount: 2}, StatusAngrySpamStreak},
		{SpamMessage{Status: StatusSpamMessage}, StatusSpamMessage},
		{GameOver{Status: StatusGameOver, Score: 7}, StatusGameOver},
		{ErrorEvent{Status: StatusError, Message: "x"}, StatusError},
	}
	for _, tc := range cases {
		got, ok := StatusOf(tc.frame)
		if !ok || got != tc.want {
			t.Fatalf("StatusOf(%T) = %q, %v; want %q, true", tc.frame, got, ok, tc.want)
		}
	}
	if _, ok := StatusOf(42); ok {
		t.Fatalf("StatusOf(42) reported a status for a non-frame")
	}
}
