package game

import (
	"context"
	"fmt"
	"strings"

	"github.com/antoniostano/crux/internal/voice"
)

// transcription accumulates one user utterance. Fragments buffer inside
// the recognition stream until stop drains and joins them.
type transcription struct {
	stream voice.RecognitionStream
}

func newTranscription(ctx context.Context, stt voice.SpeechToText) (*transcription, error) {
	stream, err := stt.OpenStream(ctx)
	if err != nil {
		return nil, fmt.Errorf("open recognition stream: %w", err)
	}
	return &transcription{stream: stream}, nil
}

func (t *transcription) feed(ctx context.Context, audio []byte) error {
	if t == nil {
		return nil
	}
	return t.stream.Send(ctx, audio)
}

// stop closes the stream and returns the joined transcript, trimmed.
// Safe on a nil receiver, which yields empty text.
func (t *transcription) stop(ctx context.Context) (string, error) {
	if t == nil {
		return "", nil
	}
	err := t.stream.Close(ctx)
	var parts []string
	for fragment := range t.stream.Results() {
		parts = append(parts, fragment)
	}
	return strings.TrimSpace(strings.Join(parts, " ")), err
}
