package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/antoniostano/crux/internal/config"
	"github.com/antoniostano/crux/internal/dialogue"
	"github.com/antoniostano/crux/internal/game"
	"github.com/antoniostano/crux/internal/httpapi"
	"github.com/antoniostano/crux/internal/observability"
	"github.com/antoniostano/crux/internal/store"
	"github.com/antoniostano/crux/internal/voice"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	metrics := observability.NewMetrics(cfg.MetricsNamespace)

	ctx := context.Background()
	gameStore, err := store.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("store init failed: %v", err)
	}
	defer gameStore.Close()

	model := buildModel(ctx, cfg)
	engine := dialogue.NewEngine(model)

	stt, tts := buildVoice(cfg)

	orchestrator := game.NewOrchestrator(
		gameStore,
		engine,
		stt,
		tts,
		metrics,
		cfg.SessionLoadAttempts,
		cfg.SessionLoadDelay,
	)

	api := httpapi.New(cfg, gameStore, orchestrator, metrics)
	httpServer := &http.Server{
		Addr:    cfg.BindAddr,
		Handler: api.Router(),
	}

	go func() {
		log.Printf("server listening on %s", cfg.BindAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("listen error: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	log.Printf("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
		_ = httpServer.Close()
	}

	log.Printf("shutdown complete")
}

func buildModel(ctx context.Context, cfg config.Config) dialogue.Model {
	mode := strings.ToLower(strings.TrimSpace(cfg.DialogueProvider))

	tryGemini := func() dialogue.Model {
		if strings.TrimSpace(cfg.GoogleAPIKey) == "" {
			return nil
		}
		m, err := dialogue.NewGeminiModel(ctx, dialogue.GeminiConfig{
			APIKey: cfg.GoogleAPIKey,
			Model:  cfg.GeminiModel,
		})
		if err != nil {
			log.Printf("gemini unavailable: %v", err)
			return nil
		}
		log.Printf("dialogue provider: gemini (%s)", cfg.GeminiModel)
		return m
	}

	switch mode {
	case "gemini":
		m := tryGemini()
		if m == nil {
			log.Fatalf("DIALOGUE_PROVIDER=gemini but GOOGLE_API_KEY is not usable")
		}
		return m
	case "mock":
		log.Printf("dialogue provider: mock")
		return dialogue.NewMockModel()
	default: // auto
		if m := tryGemini(); m != nil {
			return m
		}
		log.Printf("dialogue provider: mock (no gemini key)")
		return dialogue.NewMockModel()
	}
}

func buildVoice(cfg config.Config) (voice.SpeechToText, voice.TextToSpeech) {
	mode := strings.ToLower(strings.TrimSpace(cfg.VoiceProvider))

	tryDeepgram := func() (voice.SpeechToText, voice.TextToSpeech) {
		if strings.TrimSpace(cfg.DeepgramAPIKey) == "" {
			return nil, nil
		}
		dgCfg := voice.DeepgramConfig{
			APIKey:        cfg.DeepgramAPIKey,
			STTModel:      cfg.DeepgramSTTModel,
			TTSSampleRate: cfg.DeepgramTTSSampleRate,
		}
		stt, err := voice.NewDeepgramSTT(dgCfg)
		if err != nil {
			log.Printf("deepgram stt unavailable: %v", err)
			return nil, nil
		}
		tts, err := voice.NewDeepgramTTS(dgCfg)
		if err != nil {
			log.Printf("deepgram tts unavailable: %v", err)
			return nil, nil
		}
		log.Printf("voice provider: deepgram (%s)", cfg.DeepgramSTTModel)
		return stt, tts
	}

	switch mode {
	case "deepgram":
		stt, tts := tryDeepgram()
		if stt == nil {
			log.Fatalf("VOICE_PROVIDER=deepgram but DEEPGRAM_API_KEY is not usable")
		}
		return stt, tts
	case "mock":
		log.Printf("voice provider: mock")
		return voice.NewMockSpeechToText(), voice.NewMockTextToSpeech()
	default: // auto
		if stt, tts := tryDeepgram(); stt != nil {
			return stt, tts
		}
		log.Printf("voice provider: mock (no deepgram key)")
		return voice.NewMockSpeechToText(), voice.NewMockTextToSpeech()
	}
}
