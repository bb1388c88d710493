package pipeline

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ent0n29/voicepipe/internal/llm"
	"github.com/ent0n29/voicepipe/internal/memory"
	"github.com/ent0n29/voicepipe/internal/observability"
	"github.com/ent0n29/voicepipe/internal/tts"
)

func newTestController(t *testing.T, reply string, tokenDelay time.Duration) (*Controller, *memory.InMemoryStore) {
	t.Helper()
	svc := llm.NewMockService()
	svc.Reply = reply
	svc.TokenDelay = tokenDelay
	store := memory.NewInMemoryStore()
	c := NewController(Config{
		MinPhraseTokens: 2,
		MaxPhraseTokens: 10,
	}, svc, tts.NewMockSynthesizer(), store, nil, observability.NewStageWindow(16))
	c.Start()
	t.Cleanup(c.Stop)
	return c, store
}

// collectTurn polls deliveries until an end marker arrives.
func collectTurn(t *testing.T, c *Controller) (chunks []Delivery, end Delivery) {
	t.Helper()
	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		d := c.NextDelivery(context.Background(), 200*time.Millisecond)
		switch d.Kind {
		case KindChunk:
			chunks = append(chunks, d)
		case KindEnd:
			return chunks, d
		}
	}
	t.Fatal("no end marker within deadline")
	return nil, Delivery{}
}

func TestCompletedTurnDeliversChunksThenEnd(t *testing.T) {
	c, store := newTestController(t, "First sentence here. Second sentence follows!", 0)

	if err := c.SendPrompt("hello"); err != nil {
		t.Fatalf("send prompt: %v", err)
	}
	chunks, end := collectTurn(t, c)
	if len(chunks) == 0 {
		t.Fatal("expected at least one chunk")
	}
	if end.Interrupted {
		t.Fatal("completed turn must not be marked interrupted")
	}

	var text strings.Builder
	for _, ch := range chunks {
		text.WriteString(ch.Text)
		if ch.Audio == "" {
			t.Fatalf("chunk %q has no audio", ch.Text)
		}
		if !strings.HasPrefix(ch.Audio, "data:audio/wav;base64,") {
			t.Fatalf("bad audio framing: %q", ch.Audio[:32])
		}
	}
	if got := text.String(); got != "First sentence here. Second sentence follows!" {
		t.Fatalf("reassembled text = %q", got)
	}

	last, interrupted := c.LastResponse()
	if interrupted || last != "First sentence here. Second sentence follows!" {
		t.Fatalf("last response = %q interrupted=%v", last, interrupted)
	}
	if c.ContextLoad() <= 0 {
		t.Fatal("context load not recorded")
	}

	// User and assistant turns land in the archive.
	turns, err := store.RecentTurns(context.Background(), c.ChatID(), 10)
	if err != nil {
		t.Fatalf("recent turns: %v", err)
	}
	if len(turns) != 2 || turns[0].Role != llm.RoleUser || turns[1].Role != llm.RoleAssistant {
		t.Fatalf("archived turns = %+v", turns)
	}
}

func TestInterruptDeliversSingleInterruptedEnd(t *testing.T) {
	reply := strings.Repeat("Keep talking and talking and talking. ", 20)
	c, _ := newTestController(t, strings.TrimSpace(reply), 5*time.Millisecond)

	if err := c.SendPrompt("hello"); err != nil {
		t.Fatalf("send prompt: %v", err)
	}

	// Wait for the response to actually start flowing.
	first := c.NextDelivery(context.Background(), 5*time.Second)
	if first.Kind != KindChunk {
		t.Fatalf("expected a chunk first, got %v", first.Kind)
	}

	if err := c.InterruptResponse(); err != nil {
		t.Fatalf("interrupt: %v", err)
	}

	end := c.NextDelivery(context.Background(), 2*time.Second)
	if end.Kind != KindEnd || !end.Interrupted {
		t.Fatalf("expected interrupted end, got %+v", end)
	}
	// Nothing else may follow: no stray chunks, no second end marker.
	if extra := c.NextDelivery(context.Background(), 300*time.Millisecond); extra.Kind != KindNone {
		t.Fatalf("unexpected delivery after interrupted end: %+v", extra)
	}

	if _, interrupted := c.LastResponse(); !interrupted {
		t.Fatal("last response should be marked interrupted")
	}
}

func TestNewPromptInterruptsInFlightTurn(t *testing.T) {
	reply := strings.Repeat("Streaming a long answer sentence by sentence. ", 20)
	c, _ := newTestController(t, strings.TrimSpace(reply), 5*time.Millisecond)

	if err := c.SendPrompt("first question"); err != nil {
		t.Fatalf("send prompt: %v", err)
	}
	if d := c.NextDelivery(context.Background(), 5*time.Second); d.Kind != KindChunk {
		t.Fatalf("first turn never started: %v", d.Kind)
	}

	if err := c.SendPrompt("second question"); err != nil {
		t.Fatalf("second prompt: %v", err)
	}

	// The cancelled turn closes with an interrupted end before anything
	// from the second turn shows up.
	var sawInterruptedEnd bool
	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		d := c.NextDelivery(context.Background(), 200*time.Millisecond)
		if d.Kind == KindEnd {
			if !sawInterruptedEnd {
				if !d.Interrupted {
					t.Fatal("first end marker should be interrupted")
				}
				sawInterruptedEnd = true
				continue
			}
			if d.Interrupted {
				t.Fatal("second turn should complete normally")
			}
			return
		}
		if d.Kind == KindChunk && !sawInterruptedEnd {
			t.Fatalf("chunk from the new turn before the old turn closed: %q", d.Text)
		}
	}
	t.Fatal("second turn never completed")
}

func TestNextDeliveryTimesOutWithNone(t *testing.T) {
	c, _ := newTestController(t, "irrelevant", 0)
	start := time.Now()
	d := c.NextDelivery(context.Background(), 50*time.Millisecond)
	if d.Kind != KindNone {
		t.Fatalf("expected none, got %+v", d)
	}
	if time.Since(start) < 40*time.Millisecond {
		t.Fatal("returned before the timeout elapsed")
	}
}

func TestInterruptWhenIdleIsNoOp(t *testing.T) {
	c, _ := newTestController(t, "irrelevant", 0)
	if err := c.InterruptResponse(); err != nil {
		t.Fatalf("interrupt: %v", err)
	}
	if d := c.NextDelivery(context.Background(), 100*time.Millisecond); d.Kind != KindNone {
		t.Fatalf("idle interrupt must not emit an end marker, got %+v", d)
	}
}

func TestStartNewChatResetsTranscript(t *testing.T) {
	c, _ := newTestController(t, "Short answer.", 0)

	if err := c.SendPrompt("hello"); err != nil {
		t.Fatalf("send prompt: %v", err)
	}
	collectTurn(t, c)

	oldID := c.ChatID()
	if got := len(c.Transcript()); got != 3 { // system + user + assistant
		t.Fatalf("transcript length = %d", got)
	}

	if err := c.StartNewChat(); err != nil {
		t.Fatalf("new chat: %v", err)
	}
	if c.ChatID() == oldID {
		t.Fatal("chat id did not rotate")
	}
	if got := len(c.Transcript()); got != 1 {
		t.Fatalf("transcript after reset = %d messages", got)
	}
	if c.ContextLoad() != 0 {
		t.Fatal("context load should reset with the chat")
	}
}

func TestRestartHandsOutFreshChannels(t *testing.T) {
	c, _ := newTestController(t, "Answer one here.", 0)

	if err := c.SendPrompt("hello"); err != nil {
		t.Fatalf("send prompt: %v", err)
	}
	collectTurn(t, c)

	c.Start() // restart
	if !c.Running() {
		t.Fatal("controller should be running after restart")
	}
	if err := c.SendPrompt("again"); err != nil {
		t.Fatalf("send prompt after restart: %v", err)
	}
	chunks, end := collectTurn(t, c)
	if len(chunks) == 0 || end.Interrupted {
		t.Fatalf("restarted pipeline misbehaved: %d chunks, end=%+v", len(chunks), end)
	}

	c.Stop()
	c.Stop() // idempotent
	if err := c.SendPrompt("while stopped"); err == nil {
		t.Fatal("prompt accepted while stopped")
	}
}

type failingService struct{}

func (failingService) Name() string { return "failing" }

func (failingService) Generate(context.Context, []llm.Message, llm.Params, func() bool) (llm.Stream, error) {
	return nil, errors.New("backend down")
}

func TestGenerationFailureEndsTurnInterrupted(t *testing.T) {
	c := NewController(Config{
		MinPhraseTokens: 2,
		MaxPhraseTokens: 10,
	}, failingService{}, tts.NewMockSynthesizer(), memory.NewInMemoryStore(), nil, observability.NewStageWindow(16))
	c.Start()
	t.Cleanup(c.Stop)

	if err := c.SendPrompt("hello"); err != nil {
		t.Fatalf("send prompt: %v", err)
	}
	chunks, end := collectTurn(t, c)
	if len(chunks) != 0 {
		t.Fatalf("failed turn delivered chunks: %+v", chunks)
	}
	if !end.Interrupted {
		t.Fatal("failed turn must close with an interrupted end")
	}

	last, interrupted := c.LastResponse()
	if !interrupted || !strings.Contains(last, "backend down") {
		t.Fatalf("last response = %q interrupted=%v", last, interrupted)
	}
	// The prompt still occupies context even though nothing was generated.
	if c.ContextLoad() == 0 {
		t.Fatal("context load not estimated from the prompt")
	}
	// The error note lands in history so the next turn's context explains
	// the gap.
	msgs := c.Transcript()
	if got := msgs[len(msgs)-1]; got.Role != llm.RoleAssistant || !strings.Contains(got.Content, "backend down") {
		t.Fatalf("transcript tail = %+v", got)
	}

	// The pipeline keeps serving after a failure.
	if err := c.SendPrompt("again"); err != nil {
		t.Fatalf("send prompt after failure: %v", err)
	}
	if _, end := collectTurn(t, c); !end.Interrupted {
		t.Fatal("second failed turn must close with an interrupted end")
	}
}

// stuckService streams nothing and never finishes, ignoring the cooperative
// cancel entirely.
type stuckService struct{}

func (stuckService) Name() string { return "stuck" }

func (stuckService) Generate(context.Context, []llm.Message, llm.Params, func() bool) (llm.Stream, error) {
	return stuckStream{tokens: make(chan string)}, nil
}

type stuckStream struct {
	tokens chan string
}

func (s stuckStream) Tokens() <-chan string       { return s.tokens }
func (s stuckStream) Result() (llm.Result, error) { return llm.Result{}, nil }

func TestInterruptTimeoutStillClosesTurn(t *testing.T) {
	c := NewController(Config{
		MinPhraseTokens: 2,
		MaxPhraseTokens: 10,
		JoinTimeout:     200 * time.Millisecond,
	}, stuckService{}, tts.NewMockSynthesizer(), memory.NewInMemoryStore(), nil, observability.NewStageWindow(16))
	c.Start()
	t.Cleanup(c.Stop)

	if err := c.SendPrompt("hello"); err != nil {
		t.Fatalf("send prompt: %v", err)
	}
	// Let the worker pick the prompt up and block on the stream.
	time.Sleep(50 * time.Millisecond)

	err := c.InterruptResponse()
	if err == nil {
		t.Fatal("interrupt against a wedged backend should report the stall")
	}

	// The consumer still gets its turn boundary despite the stall.
	end := c.NextDelivery(context.Background(), 2*time.Second)
	if end.Kind != KindEnd || !end.Interrupted {
		t.Fatalf("expected interrupted end, got %+v", end)
	}
	if extra := c.NextDelivery(context.Background(), 300*time.Millisecond); extra.Kind != KindNone {
		t.Fatalf("unexpected delivery after interrupted end: %+v", extra)
	}
}

func TestConcurrentInterruptsDeliverOneEnd(t *testing.T) {
	reply := strings.Repeat("Keep talking and talking and talking. ", 20)
	c, _ := newTestController(t, strings.TrimSpace(reply), 5*time.Millisecond)

	if err := c.SendPrompt("hello"); err != nil {
		t.Fatalf("send prompt: %v", err)
	}
	if first := c.NextDelivery(context.Background(), 5*time.Second); first.Kind != KindChunk {
		t.Fatalf("expected a chunk first, got %v", first.Kind)
	}

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := c.InterruptResponse(); err != nil {
				t.Errorf("interrupt: %v", err)
			}
		}()
	}
	wg.Wait()

	ends := 0
	for {
		d := c.NextDelivery(context.Background(), 300*time.Millisecond)
		if d.Kind == KindNone {
			break
		}
		if d.Kind == KindEnd {
			ends++
		}
	}
	if ends != 1 {
		t.Fatalf("end markers delivered = %d, want exactly 1", ends)
	}
}

func TestHistoryAccumulatesTurns(t *testing.T) {
	h := NewHistory("system prompt")
	h.AppendUser("question")
	h.AppendAssistant("answer")
	h.AppendAssistant("") // interrupted-with-nothing leaves no trace

	msgs := h.Snapshot()
	if len(msgs) != 3 {
		t.Fatalf("messages = %d", len(msgs))
	}
	if msgs[0].Role != llm.RoleSystem || msgs[2].Content != "answer" {
		t.Fatalf("unexpected transcript: %+v", msgs)
	}

	h.SetContextLoad(123)
	if h.ContextLoad() != 123 {
		t.Fatal("context load not stored")
	}

	h.Reset("new system")
	if h.Len() != 1 || h.ContextLoad() != 0 {
		t.Fatal("reset incomplete")
	}
}
