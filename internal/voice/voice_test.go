package voice

import (
	"context"
	"io"
	"testing"
)

func TestMockStreamEmitsOnlyAfterAudio(t *testing.T) {
	stt := NewMockSpeechToText("hello", "there")

	// no audio fed: closing yields nothing
	silent, err := stt.OpenStream(context.Background())
	if err != nil {
		t.Fatalf("OpenStream() error = %v", err)
	}
	if err := silent.Close(context.Background()); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if _, ok := <-silent.Results(); ok {
		t.Fatalf("silent stream produced a fragment")
	}

	// audio fed: fragments arrive in order, then the channel closes
	spoken, err := stt.OpenStream(context.Background())
	if err != nil {
		t.Fatalf("OpenStream() error = %v", err)
	}
	if err := spoken.Send(context.Background(), []byte{1, 2, 3}); err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if err := spoken.Close(context.Background()); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	var got []string
	for f := range spoken.Results() {
		got = append(got, f)
	}
	if len(got) != 2 || got[0] != "hello" || got[1] != "there" {
		t.Fatalf("fragments = %v, want [hello there]", got)
	}
}

func TestMockStreamCloseIdempotent(t *testing.T) {
	stt := NewMockSpeechToText()
	stream, err := stt.OpenStream(context.Background())
	if err != nil {
		t.Fatalf("OpenStream() error = %v", err)
	}
	if err := stream.Close(context.Background()); err != nil {
		t.Fatalf("first Close() error = %v", err)
	}
	if err := stream.Close(context.Background()); err != nil {
		t.Fatalf("second Close() error = %v", err)
	}
}

func TestMockTextToSpeechProducesAudio(t *testing.T) {
	tts := NewMockTextToSpeech()
	rc, err := tts.Synthesize(context.Background(), "hi", GenderFemale)
	if err != nil {
		t.Fatalf("Synthesize() error = %v", err)
	}
	defer rc.Close()
	audio, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("read audio: %v", err)
	}
	if len(audio) == 0 {
		t.Fatalf("no audio produced")
	}
}

func TestPickVoiceUsesGenderedPools(t *testing.T) {
	inPool := func(voice string, pool []string) bool {
		for _, v := range pool {
			if v == voice {
				return true
			}
		}
		return false
	}
	for i := 0; i < 20; i++ {
		if v := pickVoice(GenderMale); !inPool(v, maleVoices) {
			t.Fatalf("male pick %q not in pool", v)
		}
		if v := pickVoice(GenderFemale); !inPool(v, femaleVoices) {
			t.Fatalf("female pick %q not in pool", v)
		}
	}
}
