package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	setCoreEnvEmpty(t)
	t.Setenv("APP_BIND_ADDR", ":9090")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.BindAddr != ":9090" {
		t.Fatalf("BindAddr = %q", cfg.BindAddr)
	}
	if cfg.LLMProvider != "auto" || cfg.TTSProvider != "auto" {
		t.Fatalf("providers = %q/%q, want auto/auto", cfg.LLMProvider, cfg.TTSProvider)
	}
	if cfg.MinPhraseTokens != 3 || cfg.MaxPhraseTokens != 50 {
		t.Fatalf("phrase bounds = %d/%d", cfg.MinPhraseTokens, cfg.MaxPhraseTokens)
	}
	if cfg.Locale != "en" {
		t.Fatalf("Locale = %q", cfg.Locale)
	}
	if cfg.LLMTemp != 0.7 || cfg.LLMTopP != 0.9 || cfg.LLMTopK != 40 {
		t.Fatalf("sampling defaults = %v/%v/%v", cfg.LLMTemp, cfg.LLMTopP, cfg.LLMTopK)
	}
	if cfg.JoinTimeout != 5*time.Second {
		t.Fatalf("JoinTimeout = %v", cfg.JoinTimeout)
	}
	if cfg.DatabaseURL != "" {
		t.Fatalf("DatabaseURL = %q, want empty default", cfg.DatabaseURL)
	}
	if cfg.AllowAnyOrigin {
		t.Fatal("AllowAnyOrigin should default to false")
	}
}

func TestLoadParsesOverrides(t *testing.T) {
	setCoreEnvEmpty(t)
	t.Setenv("PIPELINE_MIN_PHRASE_TOKENS", "5")
	t.Setenv("PIPELINE_MAX_PHRASE_TOKENS", "30")
	t.Setenv("LLM_TEMPERATURE", "0")
	t.Setenv("LLM_PROVIDER", "ollama")
	t.Setenv("PIPELINE_JOIN_TIMEOUT", "10s")
	t.Setenv("APP_ALLOW_ANY_ORIGIN", "yes")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.MinPhraseTokens != 5 || cfg.MaxPhraseTokens != 30 {
		t.Fatalf("phrase bounds = %d/%d", cfg.MinPhraseTokens, cfg.MaxPhraseTokens)
	}
	if cfg.LLMTemp != 0 {
		t.Fatalf("LLMTemp = %v", cfg.LLMTemp)
	}
	if cfg.LLMProvider != "ollama" {
		t.Fatalf("LLMProvider = %q", cfg.LLMProvider)
	}
	if cfg.JoinTimeout != 10*time.Second {
		t.Fatalf("JoinTimeout = %v", cfg.JoinTimeout)
	}
	if !cfg.AllowAnyOrigin {
		t.Fatal("AllowAnyOrigin override not applied")
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := []struct {
		key, value string
	}{
		{"PIPELINE_MIN_PHRASE_TOKENS", "0"},
		{"PIPELINE_MIN_PHRASE_TOKENS", "abc"},
		{"PIPELINE_MAX_PHRASE_TOKENS", "-1"},
		{"LLM_TEMPERATURE", "-0.5"},
		{"LLM_TOP_P", "1.5"},
		{"LLM_MAX_TOKENS", "0"},
		{"PIPELINE_JOIN_TIMEOUT", "100ms"},
		{"STT_WHISPER_THREADS", "-2"},
		{"APP_ALLOW_ANY_ORIGIN", "maybe"},
	}
	for _, tc := range cases {
		t.Run(tc.key+"="+tc.value, func(t *testing.T) {
			setCoreEnvEmpty(t)
			t.Setenv(tc.key, tc.value)
			if _, err := Load(); err == nil {
				t.Fatalf("Load() accepted %s=%s", tc.key, tc.value)
			}
		})
	}
}

func setCoreEnvEmpty(t *testing.T) {
	t.Helper()
	keys := []string{
		"APP_BIND_ADDR",
		"APP_SHUTDOWN_TIMEOUT",
		"APP_METRICS_NAMESPACE",
		"APP_ALLOW_ANY_ORIGIN",
		"PIPELINE_LOCALE",
		"PIPELINE_SYSTEM_PROMPT",
		"PIPELINE_MIN_PHRASE_TOKENS",
		"PIPELINE_MAX_PHRASE_TOKENS",
		"PIPELINE_DELIVERY_BUFFER",
		"PIPELINE_JOIN_TIMEOUT",
		"LLM_PROVIDER",
		"LLM_MODEL",
		"LLM_TEMPERATURE",
		"LLM_MAX_TOKENS",
		"LLM_TOP_K",
		"LLM_TOP_P",
		"OPENAI_API_KEY",
		"OPENAI_BASE_URL",
		"OLLAMA_URL",
		"TTS_PROVIDER",
		"TTS_PIPER_CLI",
		"TTS_PIPER_MODEL_PATH",
		"TTS_PIPER_SPEAKER",
		"TTS_PIPER_SAMPLE_RATE",
		"STT_WHISPER_CLI",
		"STT_WHISPER_MODEL_PATH",
		"STT_WHISPER_LANGUAGE",
		"STT_WHISPER_THREADS",
		"STT_FFMPEG_BIN",
		"DATABASE_URL",
	}
	for _, key := range keys {
		t.Setenv(key, "")
	}
}
