// Package llm defines the generation service boundary: an opaque backend that
// turns chat history into a lazily streamed sequence of decoded text tokens.
package llm

import "context"

// Message is one chat history entry.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Params are the sampling parameters for one generation call. Sampling is on
// iff Temperature > 0; backends that don't support a knob (e.g. TopK on
// OpenAI-compatible APIs) ignore it.
type Params struct {
	Temperature float64
	MaxTokens   int
	TopK        int
	TopP        float64
}

// Result summarizes a completed generation for history and context-load
// accounting. TotalTokens covers prompt plus continuation; when a backend
// reports no usage the counts are best-effort estimates.
type Result struct {
	Text         string
	PromptTokens int
	TotalTokens  int
}

// Stream delivers decoded tokens as the backend produces them. Tokens is
// closed when generation ends for any reason; Result then reports the full
// outcome. The token channel must be drained even after the consumer loses
// interest, so a cooperatively cancelled backend can finish its in-progress
// step and exit.
type Stream interface {
	Tokens() <-chan string
	Result() (Result, error)
}

// Service is a token-generating backend. The cancelled check is consulted
// between generation steps; a backend observing it stops producing tokens and
// completes with whatever it has. Cancellation is cooperative: an in-progress
// step is never forcibly aborted.
type Service interface {
	Generate(ctx context.Context, messages []Message, params Params, cancelled func() bool) (Stream, error)
	Name() string
}

// tokenStream is the Stream implementation shared by the backends in this
// package: a producer goroutine feeds tokens and settles the result.
type tokenStream struct {
	tokens chan string
	done   chan struct{}
	res    Result
	err    error
}

func newTokenStream(buffer int) *tokenStream {
	return &tokenStream{
		tokens: make(chan string, buffer),
		done:   make(chan struct{}),
	}
}

func (s *tokenStream) Tokens() <-chan string { return s.tokens }

func (s *tokenStream) Result() (Result, error) {
	<-s.done
	return s.res, s.err
}

// finish closes the token channel and publishes the outcome. Call exactly once.
func (s *tokenStream) finish(res Result, err error) {
	close(s.tokens)
	s.res = res
	s.err = err
	close(s.done)
}

// EstimateTokens approximates a token count for backends that report no usage.
// The conventional four-characters-per-token heuristic is good enough for a
// context-load gauge.
func EstimateTokens(text string) int {
	if text == "" {
		return 0
	}
	return (len(text) + 3) / 4
}
