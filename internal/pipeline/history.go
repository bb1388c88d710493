package pipeline

import (
	"sync"

	"github.com/ent0n29/voicepipe/internal/llm"
)

// History is the live chat transcript fed to the model: a system message
// followed by alternating user/assistant turns, plus the context-load figure
// from the most recent generation.
type History struct {
	mu          sync.Mutex
	system      string
	messages    []llm.Message
	contextLoad int
}

func NewHistory(systemPrompt string) *History {
	h := &History{}
	h.Reset(systemPrompt)
	return h
}

// Reset clears the transcript back to just the system message.
func (h *History) Reset(systemPrompt string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.system = systemPrompt
	h.messages = h.messages[:0]
	if systemPrompt != "" {
		h.messages = append(h.messages, llm.Message{Role: llm.RoleSystem, Content: systemPrompt})
	}
	h.contextLoad = 0
}

func (h *History) AppendUser(content string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.messages = append(h.messages, llm.Message{Role: llm.RoleUser, Content: content})
}

// AppendAssistant records the assistant turn. Empty content is skipped so an
// interrupted turn that produced nothing leaves no empty message behind.
func (h *History) AppendAssistant(content string) {
	if content == "" {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.messages = append(h.messages, llm.Message{Role: llm.RoleAssistant, Content: content})
}

// Snapshot copies the transcript for a generation call.
func (h *History) Snapshot() []llm.Message {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]llm.Message, len(h.messages))
	copy(out, h.messages)
	return out
}

func (h *History) SetContextLoad(tokens int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.contextLoad = tokens
}

func (h *History) ContextLoad() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.contextLoad
}

// Len counts messages including the system message.
func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.messages)
}
