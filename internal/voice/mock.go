package voice

import (
	"bytes"
	"context"
	"io"
	"sync"
)

// MockSpeechToText is a keyless stand-in recognizer. Streams swallow
// audio and deliver the configured fragments once closed.
type MockSpeechToText struct {
	fragments []string
}

func NewMockSpeechToText(fragments ...string) *MockSpeechToText {
	if len(fragments) == 0 {
		fragments = []string{"Hello, can we talk about this?"}
	}
	return &MockSpeechToText{fragments: fragments}
}

func (m *MockSpeechToText) OpenStream(_ context.Context) (RecognitionStream, error) {
	return &mockStream{fragments: m.fragments, out: make(chan string, len(m.fragments))}, nil
}

type mockStream struct {
	fragments []string
	out       chan string

	mu       sync.Mutex
	received int
	closed   bool
}

func (s *mockStream) Send(_ context.Context, audio []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.received += len(audio)
	return nil
}

func (s *mockStream) Results() <-chan string { return s.out }

func (s *mockStream) Close(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	if s.received > 0 {
		for _, f := range s.fragments {
			s.out <- f
		}
	}
	close(s.out)
	return nil
}

// MockTextToSpeech emits a fixed block of silence per utterance so the
// pipeline can run end to end without credentials.
type MockTextToSpeech struct {
	chunk []byte
}

func NewMockTextToSpeech() *MockTextToSpeech {
	return &MockTextToSpeech{chunk: make([]byte, 3200)}
}

func (m *MockTextToSpeech) Synthesize(_ context.Context, _ string, _ Gender) (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(m.chunk)), nil
}
