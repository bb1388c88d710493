package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/ent0n29/voicepipe/internal/config"
	"github.com/ent0n29/voicepipe/internal/httpapi"
	"github.com/ent0n29/voicepipe/internal/llm"
	"github.com/ent0n29/voicepipe/internal/memory"
	"github.com/ent0n29/voicepipe/internal/observability"
	"github.com/ent0n29/voicepipe/internal/pipeline"
)

const stageWindowSamples = 512

type BackendInfo struct {
	LLMProvider string
	LLMDetail   string
	TTSProvider string
	TTSDetail   string
	STTEnabled  bool
}

type BuildResult struct {
	Config     config.Config
	API        *httpapi.Server
	Controller *pipeline.Controller
	Metrics    *observability.Metrics
	Window     *observability.StageWindow
	Backends   BackendInfo

	// Cleanup should be called on shutdown to release external resources (DB, synth workers, etc).
	Cleanup func() error
}

func Build(ctx context.Context, cfg config.Config) (*BuildResult, error) {
	metrics := observability.NewMetrics(cfg.MetricsNamespace)
	window := observability.NewStageWindow(stageWindowSamples)

	store, err := memory.NewStore(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("memory store init failed: %w", err)
	}

	llmSetup, err := resolveLLMService(cfg)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	ttsSetup, err := resolveTTSSynthesizer(cfg)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	sttSvc := resolveSTTService(cfg)

	controller := pipeline.NewController(pipeline.Config{
		SystemPrompt: cfg.SystemPrompt,
		Params: llm.Params{
			Temperature: cfg.LLMTemp,
			MaxTokens:   cfg.LLMMaxTokens,
			TopK:        cfg.LLMTopK,
			TopP:        cfg.LLMTopP,
		},
		Locale:          cfg.Locale,
		MinPhraseTokens: cfg.MinPhraseTokens,
		MaxPhraseTokens: cfg.MaxPhraseTokens,
		DeliveryBuffer:  cfg.DeliveryBuffer,
		JoinTimeout:     cfg.JoinTimeout,
	}, llmSetup.service, ttsSetup.synth, store, metrics, window)

	api := httpapi.New(cfg, controller, sttSvc, metrics, window)

	cleanup := func() error {
		var errs []string
		controller.Stop()
		if ttsSetup.cleanup != nil {
			if err := ttsSetup.cleanup(); err != nil {
				errs = append(errs, err.Error())
			}
		}
		if err := store.Close(); err != nil {
			errs = append(errs, err.Error())
		}
		if len(errs) > 0 {
			return fmt.Errorf("%s", strings.Join(errs, "; "))
		}
		return nil
	}

	return &BuildResult{
		Config:     cfg,
		API:        api,
		Controller: controller,
		Metrics:    metrics,
		Window:     window,
		Backends: BackendInfo{
			LLMProvider: llmSetup.resolvedProvider,
			LLMDetail:   llmSetup.detail,
			TTSProvider: ttsSetup.resolvedProvider,
			TTSDetail:   ttsSetup.detail,
			STTEnabled:  sttSvc.Enabled(),
		},
		Cleanup: cleanup,
	}, nil
}
