package voice

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"math/rand"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	msginterfaces "github.com/deepgram/deepgram-go-sdk/v3/pkg/api/listen/v1/websocket/interfaces"
	interfaces "github.com/deepgram/deepgram-go-sdk/v3/pkg/client/interfaces"
	listen "github.com/deepgram/deepgram-go-sdk/v3/pkg/client/listen"
)

// Aura voice pools per character gender. A voice is picked at random for
// every synthesized utterance.
var maleVoices = []string{
	"aura-2-odysseus-en", "aura-2-apollo-en", "aura-2-arcas-en", "aura-2-aries-en",
	"aura-2-atlas-en", "aura-2-draco-en", "aura-2-hermes-en", "aura-2-hyperion-en",
	"aura-2-jupiter-en", "aura-2-mars-en", "aura-2-neptune-en", "aura-2-orion-en",
	"aura-2-orpheus-en", "aura-2-pluto-en", "aura-2-saturn-en", "aura-2-zeus-en",
}

var femaleVoices = []string{
	"aura-2-thalia-en", "aura-2-amalthea-en", "aura-2-andromeda-en", "aura-2-asteria-en",
	"aura-2-athena-en", "aura-2-aurora-en", "aura-2-callista-en", "aura-2-cora-en",
	"aura-2-cordelia-en", "aura-2-delia-en", "aura-2-electra-en", "aura-2-harmonia-en",
	"aura-2-helena-en", "aura-2-hera-en", "aura-2-iris-en", "aura-2-janus-en",
	"aura-2-juno-en", "aura-2-luna-en", "aura-2-minerva-en", "aura-2-ophelia-en",
	"aura-2-pandora-en", "aura-2-phoebe-en", "aura-2-selene-en", "aura-2-theia-en",
	"aura-2-vesta-en",
}

const speakEndpoint = "https://api.deepgram.com/v1/speak"

// DeepgramConfig carries credentials and model settings shared by the
// STT and TTS providers.
type DeepgramConfig struct {
	APIKey        string
	STTModel      string
	TTSSampleRate int
}

// DeepgramSTT opens live websocket transcription streams against the
// Deepgram listen API.
type DeepgramSTT struct {
	cfg DeepgramConfig
}

func NewDeepgramSTT(cfg DeepgramConfig) (*DeepgramSTT, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("deepgram: api key is required")
	}
	if cfg.STTModel == "" {
		cfg.STTModel = "nova-2"
	}
	return &DeepgramSTT{cfg: cfg}, nil
}

func (d *DeepgramSTT) OpenStream(ctx context.Context) (RecognitionStream, error) {
	streamCtx, cancel := context.WithCancel(ctx)

	s := &deepgramStream{
		cancel: cancel,
		out:    make(chan string, 256),
	}
	s.pipeReader, s.pipeWriter = io.Pipe()

	clientOptions := &interfaces.ClientOptions{
		EnableKeepAlive: true,
	}
	transcriptOptions := &interfaces.LiveTranscriptionOptions{
		Model:          d.cfg.STTModel,
		Language:       "en-US",
		Encoding:       "opus",
		SmartFormat:    true,
		InterimResults: false,
	}

	dgClient, err := listen.NewWSUsingCallback(streamCtx, d.cfg.APIKey, clientOptions, transcriptOptions, &transcriptCallback{stream: s})
	if err != nil {
		cancel()
		return nil, fmt.Errorf("deepgram: create listen client: %w", err)
	}
	s.dgClient = dgClient

	if connected := dgClient.Connect(); !connected {
		cancel()
		return nil, errors.New("deepgram: websocket connect failed")
	}

	go func() {
		if err := dgClient.Stream(s.pipeReader); err != nil && streamCtx.Err() == nil {
			log.Printf("deepgram stream ended: %v", err)
		}
	}()

	return s, nil
}

// deepgramStream is one live transcription connection. The SDK invokes
// transcriptCallback from its read loop; emit serializes those deliveries
// against Close so the out channel is never written after it is closed.
type deepgramStream struct {
	dgClient   *listen.WSCallback
	cancel     context.CancelFunc
	pipeReader *io.PipeReader
	pipeWriter *io.PipeWriter

	mu     sync.Mutex
	closed bool
	out    chan string
}

func (s *deepgramStream) Send(_ context.Context, audio []byte) error {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return errors.New("deepgram: stream closed")
	}
	if _, err := s.pipeWriter.Write(audio); err != nil {
		return fmt.Errorf("deepgram: send audio: %w", err)
	}
	return nil
}

func (s *deepgramStream) Results() <-chan string { return s.out }

func (s *deepgramStream) Close(_ context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	_ = s.pipeWriter.Close()
	s.dgClient.Stop()
	s.cancel()

	s.mu.Lock()
	close(s.out)
	s.mu.Unlock()
	return nil
}

func (s *deepgramStream) emit(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	select {
	case s.out <- text:
	default:
		log.Printf("deepgram transcript dropped: channel full")
	}
}

type transcriptCallback struct {
	stream *deepgramStream
}

func (c *transcriptCallback) Open(_ *msginterfaces.OpenResponse) error { return nil }

func (c *transcriptCallback) Message(mr *msginterfaces.MessageResponse) error {
	if len(mr.Channel.Alternatives) == 0 {
		return nil
	}
	transcript := mr.Channel.Alternatives[0].Transcript
	if transcript == "" {
		return nil
	}
	c.stream.emit(transcript)
	return nil
}

func (c *transcriptCallback) Metadata(_ *msginterfaces.MetadataResponse) error { return nil }

func (c *transcriptCallback) SpeechStarted(_ *msginterfaces.SpeechStartedResponse) error { return nil }

func (c *transcriptCallback) UtteranceEnd(_ *msginterfaces.UtteranceEndResponse) error { return nil }

func (c *transcriptCallback) Close(_ *msginterfaces.CloseResponse) error { return nil }

func (c *transcriptCallback) Error(er *msginterfaces.ErrorResponse) error {
	log.Printf("deepgram transcription error: %s: %s", er.ErrCode, er.ErrMsg)
	return nil
}

func (c *transcriptCallback) UnhandledEvent(_ []byte) error { return nil }

// DeepgramTTS synthesizes speech through the Deepgram speak REST API,
// streaming browser-playable WAV back to the caller.
type DeepgramTTS struct {
	cfg        DeepgramConfig
	httpClient *http.Client
}

func NewDeepgramTTS(cfg DeepgramConfig) (*DeepgramTTS, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("deepgram: api key is required")
	}
	if cfg.TTSSampleRate <= 0 {
		cfg.TTSSampleRate = 24000
	}
	return &DeepgramTTS{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}, nil
}

func (d *DeepgramTTS) Synthesize(ctx context.Context, text string, gender Gender) (io.ReadCloser, error) {
	voice := pickVoice(gender)

	params := url.Values{}
	params.Set("model", voice)
	params.Set("container", "wav")
	params.Set("encoding", "linear16")
	params.Set("sample_rate", strconv.Itoa(d.cfg.TTSSampleRate))

	payload, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return nil, fmt.Errorf("deepgram: encode speak payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, speakEndpoint+"?"+params.Encode(), bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("deepgram: build speak request: %w", err)
	}
	req.Header.Set("Authorization", "Token "+d.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("deepgram: speak request: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
		return nil, fmt.Errorf("deepgram: speak returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return resp.Body, nil
}

func pickVoice(gender Gender) string {
	if gender == GenderMale {
		return maleVoices[rand.Intn(len(maleVoices))]
	}
	return femaleVoices[rand.Intn(len(femaleVoices))]
}
