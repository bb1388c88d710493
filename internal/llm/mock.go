package llm

import (
	"context"
	"strings"
	"time"
)

// MockService streams a canned reply token by token. It keeps local and test
// runs working without any model runtime installed.
type MockService struct {
	// Reply overrides the default canned text when non-empty.
	Reply string
	// TokenDelay inserts a pause between tokens to mimic decode latency.
	TokenDelay time.Duration
}

func NewMockService() *MockService {
	return &MockService{}
}

func (m *MockService) Name() string { return "mock" }

func (m *MockService) Generate(ctx context.Context, messages []Message, params Params, cancelled func() bool) (Stream, error) {
	reply := m.Reply
	if reply == "" {
		reply = "I heard you. This is a mock reply, so I cannot actually help with that."
	}
	tokens := splitMockTokens(reply)

	st := newTokenStream(len(tokens))
	go func() {
		text := strings.Builder{}
		for _, tok := range tokens {
			if cancelled != nil && cancelled() {
				break
			}
			if m.TokenDelay > 0 {
				select {
				case <-time.After(m.TokenDelay):
				case <-ctx.Done():
				}
			}
			select {
			case st.tokens <- tok:
				text.WriteString(tok)
			case <-ctx.Done():
			}
			if ctx.Err() != nil {
				break
			}
		}
		prompt := 0
		for _, msg := range messages {
			prompt += EstimateTokens(msg.Content)
		}
		st.finish(Result{
			Text:         text.String(),
			PromptTokens: prompt,
			TotalTokens:  prompt + EstimateTokens(text.String()),
		}, nil)
	}()
	return st, nil
}

// splitMockTokens cuts text into word-sized tokens with leading spaces, the
// shape real decoders emit.
func splitMockTokens(text string) []string {
	words := strings.Fields(text)
	out := make([]string, 0, len(words))
	for i, w := range words {
		if i == 0 {
			out = append(out, w)
			continue
		}
		out = append(out, " "+w)
	}
	return out
}
