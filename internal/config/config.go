package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config contains all runtime settings for the roleplay game service.
type Config struct {
	BindAddr         string
	ShutdownTimeout  time.Duration
	MetricsNamespace string

	AllowAnyOrigin bool

	// Bounded retry for session/scenario load right after creation, to
	// tolerate store eventual-consistency lag. The only retry policy in
	// the core.
	SessionLoadAttempts int
	SessionLoadDelay    time.Duration

	VoiceProvider    string
	DialogueProvider string

	DeepgramAPIKey        string
	DeepgramSTTModel      string
	DeepgramTTSSampleRate int

	GoogleAPIKey string
	GeminiModel  string

	DatabaseURL string
}

// Load reads environment variables and applies safe defaults.
func Load() (Config, error) {
	cfg := Config{
		BindAddr:            envOrDefault("APP_BIND_ADDR", ":8080"),
		MetricsNamespace:    envOrDefault("APP_METRICS_NAMESPACE", "crux"),
		AllowAnyOrigin:      false,
		SessionLoadAttempts: 3,
		SessionLoadDelay:    300 * time.Millisecond,
		VoiceProvider:       envOrDefault("VOICE_PROVIDER", "auto"),
		DialogueProvider:    envOrDefault("DIALOGUE_PROVIDER", "auto"),
		DeepgramAPIKey:      envTrimmed("DEEPGRAM_API_KEY"),
		DeepgramSTTModel:    envOrDefault("DEEPGRAM_STT_MODEL", "nova-2"),
		// linear16 WAV at 24kHz plays directly in browsers.
		DeepgramTTSSampleRate: 24000,
		GoogleAPIKey:          envTrimmed("GOOGLE_API_KEY"),
		GeminiModel:           envOrDefault("GEMINI_MODEL", "gemini-2.0-flash"),
		DatabaseURL:           envTrimmed("DATABASE_URL"),
		ShutdownTimeout:       15 * time.Second,
	}

	var err error
	cfg.ShutdownTimeout, err = durationFromEnv("APP_SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.SessionLoadAttempts, err = intFromEnv("APP_SESSION_LOAD_ATTEMPTS", cfg.SessionLoadAttempts)
	if err != nil {
		return Config{}, err
	}
	cfg.SessionLoadDelay, err = durationFromEnv("APP_SESSION_LOAD_DELAY", cfg.SessionLoadDelay)
	if err != nil {
		return Config{}, err
	}
	cfg.DeepgramTTSSampleRate, err = intFromEnv("DEEPGRAM_TTS_SAMPLE_RATE", cfg.DeepgramTTSSampleRate)
	if err != nil {
		return Config{}, err
	}
	cfg.AllowAnyOrigin, err = boolFromEnv("APP_ALLOW_ANY_ORIGIN", cfg.AllowAnyOrigin)
	if err != nil {
		return Config{}, err
	}

	if cfg.SessionLoadAttempts <= 0 {
		return Config{}, fmt.Errorf("APP_SESSION_LOAD_ATTEMPTS must be positive")
	}
	if cfg.SessionLoadDelay < 0 {
		return Config{}, fmt.Errorf("APP_SESSION_LOAD_DELAY must not be negative")
	}
	if cfg.DeepgramTTSSampleRate <= 0 {
		return Config{}, fmt.Errorf("DEEPGRAM_TTS_SAMPLE_RATE must be positive")
	}
	switch strings.ToLower(strings.TrimSpace(cfg.VoiceProvider)) {
	case "auto", "deepgram", "mock":
	default:
		return Config{}, fmt.Errorf("invalid VOICE_PROVIDER: %q (expected auto|deepgram|mock)", cfg.VoiceProvider)
	}
	switch strings.ToLower(strings.TrimSpace(cfg.DialogueProvider)) {
	case "auto", "gemini", "mock":
	default:
		return Config{}, fmt.Errorf("invalid DIALOGUE_PROVIDER: %q (expected auto|gemini|mock)", cfg.DialogueProvider)
	}

	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func envTrimmed(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func durationFromEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := envTrimmed(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return d, nil
}

func intFromEnv(key string, fallback int) (int, error) {
	v := envTrimmed(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return n, nil
}

func boolFromEnv(key string, fallback bool) (bool, error) {
	v := strings.ToLower(envTrimmed(key))
	if v == "" {
		return fallback, nil
	}
	switch v {
	case "1", "true", "t", "yes", "y", "on":
		return true, nil
	case "0", "false", "f", "no", "n", "off":
		return false, nil
	default:
		return false, fmt.Errorf("%s parse error: expected bool", key)
	}
}
