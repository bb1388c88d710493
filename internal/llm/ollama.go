package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/ent0n29/voicepipe/internal/reliability"
)

// OllamaService streams chat completions from a local Ollama server via the
// line-delimited JSON /api/chat endpoint.
type OllamaService struct {
	endpoint string
	model    string
	client   *http.Client
}

func NewOllamaService(endpoint, model string) *OllamaService {
	return &OllamaService{
		endpoint: strings.TrimRight(endpoint, "/"),
		model:    model,
		client:   &http.Client{Timeout: 5 * time.Minute},
	}
}

func (s *OllamaService) Name() string { return "ollama" }

type ollamaChatRequest struct {
	Model    string        `json:"model"`
	Messages []Message     `json:"messages"`
	Stream   bool          `json:"stream"`
	Options  ollamaOptions `json:"options"`
}

type ollamaOptions struct {
	Temperature float64 `json:"temperature,omitempty"`
	NumPredict  int     `json:"num_predict,omitempty"`
	TopK        int     `json:"top_k,omitempty"`
	TopP        float64 `json:"top_p,omitempty"`
}

type ollamaChatResponse struct {
	Message struct {
		Content string `json:"content"`
	} `json:"message"`
	Done            bool `json:"done"`
	PromptEvalCount int  `json:"prompt_eval_count,omitempty"`
	EvalCount       int  `json:"eval_count,omitempty"`
}

// post sends the chat request, retrying transient upstream failures. Ollama
// answers 503 while a model is still loading, so a couple of short backoffs
// cover the common cold-start case.
func (s *OllamaService) post(ctx context.Context, body []byte, cancelled func() bool) (*http.Response, error) {
	const maxAttempts = 3
	for attempt := 0; ; attempt++ {
		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint+"/api/chat", bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("build ollama request: %w", err)
		}
		httpReq.Header.Set("Content-Type", "application/json")

		resp, err := s.client.Do(httpReq)
		if err != nil {
			return nil, fmt.Errorf("ollama request: %w", err)
		}
		if resp.StatusCode < 300 {
			return resp, nil
		}
		resp.Body.Close()
		if attempt+1 >= maxAttempts || !reliability.IsRetryableHTTPStatus(resp.StatusCode) {
			return nil, fmt.Errorf("ollama returned status %s", resp.Status)
		}
		if cancelled != nil && cancelled() {
			return nil, fmt.Errorf("ollama returned status %s", resp.Status)
		}
		select {
		case <-time.After(reliability.ExponentialBackoff(attempt, 250*time.Millisecond, 2*time.Second)):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

func (s *OllamaService) Generate(ctx context.Context, messages []Message, params Params, cancelled func() bool) (Stream, error) {
	opts := ollamaOptions{NumPredict: params.MaxTokens}
	if params.Temperature > 0 {
		opts.Temperature = params.Temperature
		opts.TopK = params.TopK
		opts.TopP = params.TopP
	}
	payload := ollamaChatRequest{
		Model:    s.model,
		Messages: messages,
		Stream:   true,
		Options:  opts,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode ollama request: %w", err)
	}

	resp, err := s.post(ctx, body, cancelled)
	if err != nil {
		return nil, err
	}

	st := newTokenStream(64)
	go func() {
		defer resp.Body.Close()
		var (
			text         strings.Builder
			promptTokens int
			evalTokens   int
			streamErr    error
		)
		scanner := bufio.NewScanner(resp.Body)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			if cancelled != nil && cancelled() {
				break
			}
			line := bytes.TrimSpace(scanner.Bytes())
			if len(line) == 0 {
				continue
			}
			var chunk ollamaChatResponse
			if err := json.Unmarshal(line, &chunk); err != nil {
				streamErr = fmt.Errorf("decode ollama chunk: %w", err)
				break
			}
			if chunk.PromptEvalCount > 0 {
				promptTokens = chunk.PromptEvalCount
			}
			if chunk.EvalCount > 0 {
				evalTokens = chunk.EvalCount
			}
			if chunk.Message.Content != "" {
				text.WriteString(chunk.Message.Content)
				select {
				case st.tokens <- chunk.Message.Content:
				case <-ctx.Done():
					streamErr = ctx.Err()
				}
				if streamErr != nil {
					break
				}
			}
			if chunk.Done {
				break
			}
		}
		if streamErr == nil {
			if err := scanner.Err(); err != nil {
				streamErr = fmt.Errorf("read ollama stream: %w", err)
			}
		}
		if promptTokens == 0 {
			for _, msg := range messages {
				promptTokens += EstimateTokens(msg.Content)
			}
		}
		if evalTokens == 0 {
			evalTokens = EstimateTokens(text.String())
		}
		st.finish(Result{
			Text:         text.String(),
			PromptTokens: promptTokens,
			TotalTokens:  promptTokens + evalTokens,
		}, streamErr)
	}()
	return st, nil
}
