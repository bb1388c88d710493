package app

import (
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/ent0n29/voicepipe/internal/audio"
	"github.com/ent0n29/voicepipe/internal/config"
	"github.com/ent0n29/voicepipe/internal/llm"
	"github.com/ent0n29/voicepipe/internal/stt"
	"github.com/ent0n29/voicepipe/internal/tts"
)

type llmSetup struct {
	service          llm.Service
	resolvedProvider string
	detail           string
}

type ttsSetup struct {
	synth            tts.Synthesizer
	resolvedProvider string
	detail           string
	cleanup          func() error
}

func resolveLLMService(cfg config.Config) (llmSetup, error) {
	mode := strings.ToLower(strings.TrimSpace(cfg.LLMProvider))
	if mode == "" {
		mode = "auto"
	}

	tryOpenAI := func() (llmSetup, bool) {
		if strings.TrimSpace(cfg.OpenAIAPIKey) == "" {
			return llmSetup{}, false
		}
		svc := llm.NewOpenAIService(cfg.OpenAIBaseURL, cfg.OpenAIAPIKey, cfg.LLMModel)
		return llmSetup{
			service:          svc,
			resolvedProvider: "openai",
			detail:           fmt.Sprintf("openai (%s)", cfg.LLMModel),
		}, true
	}

	tryOllama := func() (llmSetup, bool) {
		if !ollamaReachable(cfg.OllamaURL) {
			return llmSetup{}, false
		}
		svc := llm.NewOllamaService(cfg.OllamaURL, cfg.LLMModel)
		return llmSetup{
			service:          svc,
			resolvedProvider: "ollama",
			detail:           fmt.Sprintf("ollama (%s)", cfg.LLMModel),
		}, true
	}

	mock := func(detail string) llmSetup {
		return llmSetup{
			service:          llm.NewMockService(),
			resolvedProvider: "mock",
			detail:           detail,
		}
	}

	switch mode {
	case "openai":
		if setup, ok := tryOpenAI(); ok {
			return setup, nil
		}
		return llmSetup{}, fmt.Errorf("LLM_PROVIDER=openai but OPENAI_API_KEY is not set")
	case "ollama":
		// Explicit ollama skips the reachability probe: the daemon may come up
		// after us and the first prompt will surface any real error.
		return llmSetup{
			service:          llm.NewOllamaService(cfg.OllamaURL, cfg.LLMModel),
			resolvedProvider: "ollama",
			detail:           fmt.Sprintf("ollama (%s)", cfg.LLMModel),
		}, nil
	case "mock":
		return mock("mock"), nil
	case "auto":
		if setup, ok := tryOpenAI(); ok {
			return setup, nil
		}
		if setup, ok := tryOllama(); ok {
			return setup, nil
		}
		return mock("mock (no openai key and ollama unreachable)"), nil
	default:
		return llmSetup{}, fmt.Errorf("invalid LLM_PROVIDER: %q (expected auto|openai|ollama|mock)", cfg.LLMProvider)
	}
}

func ollamaReachable(endpoint string) bool {
	url := strings.TrimRight(strings.TrimSpace(endpoint), "/") + "/api/tags"
	client := &http.Client{Timeout: 2 * time.Second}
	resp, err := client.Get(url)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

func resolveTTSSynthesizer(cfg config.Config) (ttsSetup, error) {
	mode := strings.ToLower(strings.TrimSpace(cfg.TTSProvider))
	if mode == "" {
		mode = "auto"
	}

	tryPiper := func(fatal bool) (ttsSetup, bool, error) {
		p, err := tts.NewPiperSynthesizer(tts.PiperConfig{
			CLI:        cfg.PiperCLI,
			ModelPath:  cfg.PiperModelPath,
			Speaker:    cfg.PiperSpeaker,
			SampleRate: cfg.PiperSampleRate,
		})
		if err != nil {
			if fatal {
				return ttsSetup{}, false, fmt.Errorf("piper synthesizer init failed: %w", err)
			}
			log.Printf("piper synthesizer unavailable: %v", err)
			return ttsSetup{}, false, nil
		}
		return ttsSetup{
			synth:            p,
			resolvedProvider: "piper",
			detail:           fmt.Sprintf("piper (%s)", cfg.PiperModelPath),
			cleanup:          p.Close,
		}, true, nil
	}

	mock := func(detail string) ttsSetup {
		return ttsSetup{
			synth:            tts.NewMockSynthesizer(),
			resolvedProvider: "mock",
			detail:           detail,
		}
	}

	switch mode {
	case "piper":
		setup, _, err := tryPiper(true)
		return setup, err
	case "mock":
		return mock("mock"), nil
	case "auto":
		if strings.TrimSpace(cfg.PiperModelPath) != "" {
			setup, ok, err := tryPiper(false)
			if err != nil {
				return ttsSetup{}, err
			}
			if ok {
				return setup, nil
			}
		}
		return mock("mock (piper unavailable)"), nil
	default:
		return ttsSetup{}, fmt.Errorf("invalid TTS_PROVIDER: %q (expected auto|piper|mock)", cfg.TTSProvider)
	}
}

// resolveSTTService wires whisper-cli behind an ffmpeg decode step. Voice
// input is optional: when no whisper model is configured, or the binaries are
// missing, transcription endpoints report themselves disabled instead of
// failing startup.
func resolveSTTService(cfg config.Config) *stt.Service {
	if strings.TrimSpace(cfg.WhisperModelPath) == "" {
		log.Printf("stt: disabled (no whisper model configured)")
		return nil
	}

	decoder, err := stt.NewFFmpegDecoder(cfg.FFmpegBin)
	if err != nil {
		log.Printf("stt: disabled (%v)", err)
		return nil
	}
	recognizer, err := stt.NewWhisperRecognizer(stt.WhisperConfig{
		CLI:       cfg.WhisperCLI,
		ModelPath: cfg.WhisperModelPath,
		Language:  cfg.WhisperLanguage,
		Threads:   cfg.WhisperThreads,
	}, audio.WriteWAVPCM16LEFile)
	if err != nil {
		log.Printf("stt: disabled (%v)", err)
		return nil
	}

	log.Printf("stt: whisper (%s)", cfg.WhisperModelPath)
	return stt.NewService(decoder, recognizer)
}
