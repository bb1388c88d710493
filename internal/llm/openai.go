package llm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIService streams chat completions from an OpenAI-compatible endpoint,
// which covers hosted OpenAI as well as llama.cpp and vLLM servers.
type OpenAIService struct {
	client *openai.Client
	model  string
}

func NewOpenAIService(baseURL, apiKey, model string) *OpenAIService {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = strings.TrimRight(baseURL, "/")
	}
	return &OpenAIService{client: openai.NewClientWithConfig(cfg), model: model}
}

func (s *OpenAIService) Name() string { return "openai" }

// buildRequest maps the generation parameters onto the wire request. Sampling
// knobs are sent only when sampling is on; top-k has no OpenAI equivalent and
// is dropped.
func (s *OpenAIService) buildRequest(messages []Message, params Params) openai.ChatCompletionRequest {
	msgs := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, m := range messages {
		msgs = append(msgs, openai.ChatCompletionMessage{Role: m.Role, Content: m.Content})
	}
	req := openai.ChatCompletionRequest{
		Model:     s.model,
		Messages:  msgs,
		MaxTokens: params.MaxTokens,
		Stream:    true,
		StreamOptions: &openai.StreamOptions{
			IncludeUsage: true,
		},
	}
	if params.Temperature > 0 {
		req.Temperature = float32(params.Temperature)
		if params.TopP > 0 {
			req.TopP = float32(params.TopP)
		}
	}
	return req
}

func (s *OpenAIService) Generate(ctx context.Context, messages []Message, params Params, cancelled func() bool) (Stream, error) {
	stream, err := s.client.CreateChatCompletionStream(ctx, s.buildRequest(messages, params))
	if err != nil {
		return nil, fmt.Errorf("openai stream: %w", err)
	}

	st := newTokenStream(64)
	go func() {
		defer stream.Close()
		var (
			text         strings.Builder
			promptTokens int
			totalTokens  int
			streamErr    error
		)
		for {
			if cancelled != nil && cancelled() {
				break
			}
			resp, err := stream.Recv()
			if errors.Is(err, io.EOF) {
				break
			}
			if err != nil {
				streamErr = fmt.Errorf("openai recv: %w", err)
				break
			}
			if resp.Usage != nil {
				promptTokens = resp.Usage.PromptTokens
				totalTokens = resp.Usage.TotalTokens
			}
			if len(resp.Choices) == 0 {
				continue
			}
			delta := resp.Choices[0].Delta.Content
			if delta == "" {
				continue
			}
			text.WriteString(delta)
			select {
			case st.tokens <- delta:
			case <-ctx.Done():
				streamErr = ctx.Err()
			}
			if streamErr != nil {
				break
			}
		}
		if promptTokens == 0 {
			for _, msg := range messages {
				promptTokens += EstimateTokens(msg.Content)
			}
		}
		if totalTokens == 0 {
			totalTokens = promptTokens + EstimateTokens(text.String())
		}
		st.finish(Result{
			Text:         text.String(),
			PromptTokens: promptTokens,
			TotalTokens:  totalTokens,
		}, streamErr)
	}()
	return st, nil
}
