package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/ent0n29/voicepipe/internal/config"
	"github.com/ent0n29/voicepipe/internal/llm"
	"github.com/ent0n29/voicepipe/internal/memory"
	"github.com/ent0n29/voicepipe/internal/observability"
	"github.com/ent0n29/voicepipe/internal/pipeline"
	"github.com/ent0n29/voicepipe/internal/protocol"
	"github.com/ent0n29/voicepipe/internal/stt"
)

// Pipeline is the surface the HTTP layer drives. *pipeline.Controller
// implements it; tests substitute a stub.
type Pipeline interface {
	Running() bool
	ChatID() string
	SendPrompt(text string) error
	InterruptResponse() error
	StartNewChat() error
	NextDelivery(ctx context.Context, timeout time.Duration) pipeline.Delivery
	ContextLoad() int
	Transcript() []llm.Message
	RecentTurns(ctx context.Context, limit int) ([]memory.TurnRecord, error)
	LastResponse() (string, bool)
	Params() llm.Params
	SetParams(p llm.Params)
	SystemPrompt() string
	SetSystemPrompt(prompt string) error
}

type Server struct {
	cfg      config.Config
	backend  Pipeline
	stt      *stt.Service
	metrics  *observability.Metrics
	window   *observability.StageWindow
	upgrader websocket.Upgrader
}

func New(cfg config.Config, backend Pipeline, sttSvc *stt.Service, metrics *observability.Metrics, window *observability.StageWindow) *Server {
	return &Server{
		cfg:     cfg,
		backend: backend,
		stt:     sttSvc,
		metrics: metrics,
		window:  window,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				// Default: only allow browser websocket connections from
				// the same origin, so another site cannot drive the chat
				// if the service is ever exposed beyond localhost.
				if cfg.AllowAnyOrigin {
					return true
				}
				origin := strings.TrimSpace(r.Header.Get("Origin"))
				if origin == "" {
					// Non-browser clients often omit Origin. Allow them.
					return true
				}
				u, err := url.Parse(origin)
				if err != nil {
					return false
				}
				if u.Scheme != "http" && u.Scheme != "https" {
					return false
				}
				return strings.EqualFold(u.Host, r.Host)
			},
		},
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		observability.MetricsHandler().ServeHTTP(w, r)
	})

	r.Post("/v1/prompt", s.handlePrompt)
	r.Post("/v1/interrupt", s.handleInterrupt)
	r.Post("/v1/chat/new", s.handleNewChat)
	r.Get("/v1/chunk", s.handleNextChunk)
	r.Get("/v1/response/last", s.handleLastResponse)
	r.Get("/v1/context", s.handleContext)
	r.Get("/v1/history", s.handleHistory)
	r.Get("/v1/model/params", s.handleGetParams)
	r.Put("/v1/model/params", s.handleSetParams)
	r.Get("/v1/model/system", s.handleGetSystemPrompt)
	r.Put("/v1/model/system", s.handleSetSystemPrompt)
	r.Post("/v1/transcribe", s.handleTranscribe)
	r.Get("/v1/perf/latency", s.handlePerfLatency)
	r.Get("/v1/stream", s.handleStream)

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status":      "ok",
		"stt_enabled": s.stt.Enabled(),
	})
}

func (s *Server) handleReady(w http.ResponseWriter, _ *http.Request) {
	if !s.backend.Running() {
		respondError(w, http.StatusServiceUnavailable, "pipeline_stopped", "pipeline is not running")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"status": "ready"})
}

type promptRequest struct {
	Text string `json:"text"`
}

func (s *Server) handlePrompt(w http.ResponseWriter, r *http.Request) {
	var req promptRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	text := strings.TrimSpace(req.Text)
	if text == "" {
		respondError(w, http.StatusBadRequest, "empty_prompt", "text is required")
		return
	}
	if err := s.backend.SendPrompt(text); err != nil {
		respondError(w, http.StatusConflict, "prompt_rejected", err.Error())
		return
	}
	respondJSON(w, http.StatusAccepted, map[string]any{"chat_id": s.backend.ChatID()})
}

func (s *Server) handleInterrupt(w http.ResponseWriter, _ *http.Request) {
	if err := s.backend.InterruptResponse(); err != nil {
		respondError(w, http.StatusInternalServerError, "interrupt_failed", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"status": "interrupted"})
}

func (s *Server) handleNewChat(w http.ResponseWriter, _ *http.Request) {
	if err := s.backend.StartNewChat(); err != nil {
		respondError(w, http.StatusInternalServerError, "new_chat_failed", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"chat_id": s.backend.ChatID()})
}

// handleNextChunk long-polls the delivery channel. 204 means nothing arrived
// within the window; clients just poll again.
func (s *Server) handleNextChunk(w http.ResponseWriter, r *http.Request) {
	timeout := 1 * time.Second
	if v := strings.TrimSpace(r.URL.Query().Get("timeout_ms")); v != "" {
		ms, err := strconv.Atoi(v)
		if err != nil || ms < 0 || ms > 30000 {
			respondError(w, http.StatusBadRequest, "invalid_timeout", "timeout_ms must be within [0, 30000]")
			return
		}
		timeout = time.Duration(ms) * time.Millisecond
	}

	d := s.backend.NextDelivery(r.Context(), timeout)
	switch d.Kind {
	case pipeline.KindChunk:
		respondJSON(w, http.StatusOK, protocol.ResponseChunk{
			Type:  protocol.TypeResponseChunk,
			Text:  d.Text,
			Audio: d.Audio,
		})
	case pipeline.KindEnd:
		respondJSON(w, http.StatusOK, protocol.ResponseEnd{
			Type:        protocol.TypeResponseEnd,
			Interrupted: d.Interrupted,
			ContextLoad: s.backend.ContextLoad(),
		})
	default:
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *Server) handleLastResponse(w http.ResponseWriter, _ *http.Request) {
	text, interrupted := s.backend.LastResponse()
	respondJSON(w, http.StatusOK, map[string]any{
		"text":        text,
		"interrupted": interrupted,
	})
}

func (s *Server) handleContext(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"chat_id":      s.backend.ChatID(),
		"context_load": s.backend.ContextLoad(),
		"messages":     s.backend.Transcript(),
	})
}

// handleHistory reads the current chat's archived turns back from the store.
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit := 0 // store default
	if v := strings.TrimSpace(r.URL.Query().Get("limit")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 500 {
			respondError(w, http.StatusBadRequest, "invalid_limit", "limit must be within [1, 500]")
			return
		}
		limit = n
	}

	turns, err := s.backend.RecentTurns(r.Context(), limit)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "history_failed", err.Error())
		return
	}
	if turns == nil {
		turns = []memory.TurnRecord{}
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"chat_id": s.backend.ChatID(),
		"turns":   turns,
	})
}

type paramsPayload struct {
	Temperature float64 `json:"temperature"`
	MaxTokens   int     `json:"max_tokens"`
	TopK        int     `json:"top_k"`
	TopP        float64 `json:"top_p"`
}

func (s *Server) handleGetParams(w http.ResponseWriter, _ *http.Request) {
	p := s.backend.Params()
	respondJSON(w, http.StatusOK, paramsPayload{
		Temperature: p.Temperature,
		MaxTokens:   p.MaxTokens,
		TopK:        p.TopK,
		TopP:        p.TopP,
	})
}

func (s *Server) handleSetParams(w http.ResponseWriter, r *http.Request) {
	var req paramsPayload
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if req.Temperature < 0 {
		respondError(w, http.StatusBadRequest, "invalid_params", "temperature must be >= 0")
		return
	}
	if req.TopP < 0 || req.TopP > 1 {
		respondError(w, http.StatusBadRequest, "invalid_params", "top_p must be within [0, 1]")
		return
	}
	if req.MaxTokens <= 0 {
		respondError(w, http.StatusBadRequest, "invalid_params", "max_tokens must be positive")
		return
	}
	s.backend.SetParams(llm.Params{
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
		TopK:        req.TopK,
		TopP:        req.TopP,
	})
	respondJSON(w, http.StatusOK, map[string]any{"status": "updated"})
}

type systemPromptPayload struct {
	Prompt string `json:"prompt"`
}

func (s *Server) handleGetSystemPrompt(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, systemPromptPayload{Prompt: s.backend.SystemPrompt()})
}

func (s *Server) handleSetSystemPrompt(w http.ResponseWriter, r *http.Request) {
	var req systemPromptPayload
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if err := s.backend.SetSystemPrompt(strings.TrimSpace(req.Prompt)); err != nil {
		respondError(w, http.StatusInternalServerError, "system_prompt_failed", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"chat_id": s.backend.ChatID()})
}

type transcribeRequest struct {
	Audio string `json:"audio"`
}

func (s *Server) handleTranscribe(w http.ResponseWriter, r *http.Request) {
	if !s.stt.Enabled() {
		respondError(w, http.StatusNotImplemented, "stt_disabled", "no transcription backend configured")
		return
	}
	var req transcribeRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if strings.TrimSpace(req.Audio) == "" {
		respondError(w, http.StatusBadRequest, "empty_audio", "audio is required")
		return
	}
	text := s.stt.TranscribeDataURL(r.Context(), req.Audio)
	if text == "" && s.metrics != nil {
		s.metrics.TranscriptionFailures.Inc()
	}
	respondJSON(w, http.StatusOK, map[string]any{"text": text})
}

func (s *Server) handlePerfLatency(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, s.window.Snapshot())
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

var errEmptyBody = errors.New("empty body")

func decodeJSON(r *http.Request, out any) error {
	if r.Body == nil {
		return errEmptyBody
	}
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(out); err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "eof") {
			return errEmptyBody
		}
		return err
	}
	return nil
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, errorResponse{Error: message, Code: code})
}
