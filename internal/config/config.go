package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config contains all runtime settings for the voice pipeline service.
type Config struct {
	BindAddr         string
	MetricsNamespace string
	ShutdownTimeout  time.Duration
	AllowAnyOrigin   bool

	Locale          string
	SystemPrompt    string
	MinPhraseTokens int
	MaxPhraseTokens int
	DeliveryBuffer  int
	JoinTimeout     time.Duration

	LLMProvider   string
	LLMModel      string
	LLMTemp       float64
	LLMMaxTokens  int
	LLMTopK       int
	LLMTopP       float64
	OpenAIAPIKey  string
	OpenAIBaseURL string
	OllamaURL     string

	TTSProvider      string
	PiperCLI         string
	PiperModelPath   string
	PiperSpeaker     int
	PiperSampleRate  int
	WhisperCLI       string
	WhisperModelPath string
	WhisperLanguage  string
	WhisperThreads   int
	FFmpegBin        string

	DatabaseURL string
}

// Load reads environment variables and applies safe defaults.
func Load() (Config, error) {
	cfg := Config{
		BindAddr:         envOrDefault("APP_BIND_ADDR", ":8080"),
		MetricsNamespace: envOrDefault("APP_METRICS_NAMESPACE", "voicepipe"),
		ShutdownTimeout:  15 * time.Second,
		AllowAnyOrigin:   false,

		Locale:          envOrDefault("PIPELINE_LOCALE", "en"),
		SystemPrompt:    stringsTrimSpace("PIPELINE_SYSTEM_PROMPT"),
		MinPhraseTokens: 3,
		MaxPhraseTokens: 50,
		DeliveryBuffer:  64,
		JoinTimeout:     5 * time.Second,

		LLMProvider: envOrDefault("LLM_PROVIDER", "auto"),
		LLMModel:    envOrDefault("LLM_MODEL", "llama3.2:1b"),
		LLMTemp:     0.7,
		// Spoken replies are short; a small cap keeps turns snappy.
		LLMMaxTokens:  256,
		LLMTopK:       40,
		LLMTopP:       0.9,
		OpenAIAPIKey:  stringsTrimSpace("OPENAI_API_KEY"),
		OpenAIBaseURL: stringsTrimSpace("OPENAI_BASE_URL"),
		OllamaURL:     envOrDefault("OLLAMA_URL", "http://127.0.0.1:11434"),

		TTSProvider:      envOrDefault("TTS_PROVIDER", "auto"),
		PiperCLI:         envOrDefault("TTS_PIPER_CLI", "piper"),
		PiperModelPath:   stringsTrimSpace("TTS_PIPER_MODEL_PATH"),
		PiperSpeaker:     0,
		PiperSampleRate:  22050,
		WhisperCLI:       envOrDefault("STT_WHISPER_CLI", "whisper-cli"),
		WhisperModelPath: stringsTrimSpace("STT_WHISPER_MODEL_PATH"),
		WhisperLanguage:  envOrDefault("STT_WHISPER_LANGUAGE", "en"),
		// 0 means "auto" (picked based on CPU count).
		WhisperThreads: 0,
		FFmpegBin:      envOrDefault("STT_FFMPEG_BIN", "ffmpeg"),

		DatabaseURL: stringsTrimSpace("DATABASE_URL"),
	}

	var err error
	cfg.ShutdownTimeout, err = durationFromEnv("APP_SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.AllowAnyOrigin, err = boolFromEnv("APP_ALLOW_ANY_ORIGIN", cfg.AllowAnyOrigin)
	if err != nil {
		return Config{}, err
	}
	cfg.JoinTimeout, err = durationFromEnv("PIPELINE_JOIN_TIMEOUT", cfg.JoinTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.MinPhraseTokens, err = intFromEnv("PIPELINE_MIN_PHRASE_TOKENS", cfg.MinPhraseTokens)
	if err != nil {
		return Config{}, err
	}
	cfg.MaxPhraseTokens, err = intFromEnv("PIPELINE_MAX_PHRASE_TOKENS", cfg.MaxPhraseTokens)
	if err != nil {
		return Config{}, err
	}
	cfg.DeliveryBuffer, err = intFromEnv("PIPELINE_DELIVERY_BUFFER", cfg.DeliveryBuffer)
	if err != nil {
		return Config{}, err
	}
	cfg.LLMTemp, err = floatFromEnv("LLM_TEMPERATURE", cfg.LLMTemp)
	if err != nil {
		return Config{}, err
	}
	cfg.LLMMaxTokens, err = intFromEnv("LLM_MAX_TOKENS", cfg.LLMMaxTokens)
	if err != nil {
		return Config{}, err
	}
	cfg.LLMTopK, err = intFromEnv("LLM_TOP_K", cfg.LLMTopK)
	if err != nil {
		return Config{}, err
	}
	cfg.LLMTopP, err = floatFromEnv("LLM_TOP_P", cfg.LLMTopP)
	if err != nil {
		return Config{}, err
	}
	cfg.PiperSpeaker, err = intFromEnv("TTS_PIPER_SPEAKER", cfg.PiperSpeaker)
	if err != nil {
		return Config{}, err
	}
	cfg.PiperSampleRate, err = intFromEnv("TTS_PIPER_SAMPLE_RATE", cfg.PiperSampleRate)
	if err != nil {
		return Config{}, err
	}
	cfg.WhisperThreads, err = intFromEnv("STT_WHISPER_THREADS", cfg.WhisperThreads)
	if err != nil {
		return Config{}, err
	}

	if cfg.MinPhraseTokens <= 0 {
		return Config{}, fmt.Errorf("PIPELINE_MIN_PHRASE_TOKENS must be positive")
	}
	if cfg.MaxPhraseTokens <= 0 {
		return Config{}, fmt.Errorf("PIPELINE_MAX_PHRASE_TOKENS must be positive")
	}
	if cfg.DeliveryBuffer <= 0 {
		return Config{}, fmt.Errorf("PIPELINE_DELIVERY_BUFFER must be positive")
	}
	if cfg.JoinTimeout < time.Second {
		return Config{}, fmt.Errorf("PIPELINE_JOIN_TIMEOUT must be at least 1s")
	}
	if cfg.LLMTemp < 0 {
		return Config{}, fmt.Errorf("LLM_TEMPERATURE must be >= 0")
	}
	if cfg.LLMTopP < 0 || cfg.LLMTopP > 1 {
		return Config{}, fmt.Errorf("LLM_TOP_P must be within [0, 1]")
	}
	if cfg.LLMMaxTokens <= 0 {
		return Config{}, fmt.Errorf("LLM_MAX_TOKENS must be positive")
	}
	if cfg.WhisperThreads < 0 {
		return Config{}, fmt.Errorf("STT_WHISPER_THREADS must be >= 0")
	}
	if cfg.PiperSampleRate <= 0 {
		return Config{}, fmt.Errorf("TTS_PIPER_SAMPLE_RATE must be positive")
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

func stringsTrimSpace(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func durationFromEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := stringsTrimSpace(key)
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
	v := stringsTrimSpace(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return n, nil
}

func floatFromEnv(key string, fallback float64) (float64, error) {
	v := stringsTrimSpace(key)
	if v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return f, nil
}

func boolFromEnv(key string, fallback bool) (bool, error) {
	v := strings.ToLower(stringsTrimSpace(key))
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
