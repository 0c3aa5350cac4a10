package voice

import (
	"context"
	"io"
)

// Gender selects the synthesis voice pool for a character.
type Gender string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
)

// SpeechToText opens live recognition streams. One stream covers one
// user utterance; streams are not reused.
type SpeechToText interface {
	OpenStream(ctx context.Context) (RecognitionStream, error)
}

// RecognitionStream is a single live transcription connection. Callers
// feed raw audio via Send and read finalized transcript fragments from
// Results. Close flushes the connection; once the provider has emitted
// everything, the Results channel is closed.
type RecognitionStream interface {
	Send(ctx context.Context, audio []byte) error
	Results() <-chan string
	Close(ctx context.Context) error
}

// TextToSpeech synthesizes one utterance into a playable audio stream.
// The caller owns the returned reader and must close it.
type TextToSpeech interface {
	Synthesize(ctx context.Context, text string, gender Gender) (io.ReadCloser, error)
}
