package pipeline

import (
	"context"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/ent0n29/voicepipe/internal/llm"
	"github.com/ent0n29/voicepipe/internal/memory"
	"github.com/ent0n29/voicepipe/internal/observability"
	"github.com/ent0n29/voicepipe/internal/tts"
)

// DefaultSystemPrompt keeps spoken replies short enough to synthesize phrase
// by phrase.
const DefaultSystemPrompt = "You are a helpful voice assistant who responds in one or two short sentences. Respond without any formatting."

const (
	defaultPromptBuffer   = 8
	defaultPhraseBuffer   = 32
	defaultDeliveryBuffer = 64
	defaultJoinTimeout    = 5 * time.Second
	defaultPollInterval   = 10 * time.Millisecond
)

// Config tunes one pipeline controller.
type Config struct {
	SystemPrompt string
	Params       llm.Params
	Locale       string

	// Phrase chunking bounds, in tokens.
	MinPhraseTokens int
	MaxPhraseTokens int

	DeliveryBuffer int
	JoinTimeout    time.Duration
	PollInterval   time.Duration
}

func (c *Config) applyDefaults() {
	if c.SystemPrompt == "" {
		c.SystemPrompt = DefaultSystemPrompt
	}
	if c.Locale == "" {
		c.Locale = "en"
	}
	if c.DeliveryBuffer <= 0 {
		c.DeliveryBuffer = defaultDeliveryBuffer
	}
	if c.JoinTimeout <= 0 {
		c.JoinTimeout = defaultJoinTimeout
	}
	if c.PollInterval <= 0 {
		c.PollInterval = defaultPollInterval
	}
}

// Controller owns one conversation's pipeline: a generation worker feeding a
// synthesis worker over a phrase channel, with finished chunks buffered in a
// delivery channel for the consumer to poll. All methods are safe for
// concurrent use.
type Controller struct {
	cfg     Config
	service llm.Service
	synth   tts.Synthesizer
	store   memory.Store
	metrics *observability.Metrics
	window  *observability.StageWindow

	mu         sync.Mutex
	running    bool
	chatID     string
	prompts    chan promptJob
	phrases    chan phraseMessage
	deliveries chan Delivery
	stopCh     chan struct{}
	wg         sync.WaitGroup

	interruptMu sync.Mutex // one interrupt protocol run at a time

	history *History

	cancel  atomic.Bool
	busy    atomic.Bool
	pending atomic.Int64 // phrases queued or in synthesis

	respMu          sync.Mutex
	lastResponse    string
	lastInterrupted bool
}

func NewController(cfg Config, service llm.Service, synth tts.Synthesizer, store memory.Store, metrics *observability.Metrics, window *observability.StageWindow) *Controller {
	cfg.applyDefaults()
	return &Controller{
		cfg:     cfg,
		service: service,
		synth:   synth,
		store:   store,
		metrics: metrics,
		window:  window,
		history: NewHistory(cfg.SystemPrompt),
	}
}

// Start brings the workers up. Calling Start on a running controller restarts
// it: the old workers are joined and fresh channels are handed to new ones,
// so no stale chunk can leak across the restart.
func (c *Controller) Start() {
	c.Stop()

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.chatID == "" {
		c.chatID = uuid.NewString()
	}
	c.prompts = make(chan promptJob, defaultPromptBuffer)
	c.phrases = make(chan phraseMessage, defaultPhraseBuffer)
	c.deliveries = make(chan Delivery, c.cfg.DeliveryBuffer)
	c.stopCh = make(chan struct{})
	c.cancel.Store(false)
	c.pending.Store(0)
	c.running = true

	c.wg.Add(2)
	go c.serveGeneration(c.prompts, c.phrases, c.stopCh)
	go c.serveSynthesis(c.phrases, c.deliveries, c.stopCh)
	log.Printf("pipeline: started (chat=%s llm=%s tts=%s)", c.chatID, c.service.Name(), c.synth.Name())
}

// Stop shuts the workers down. Cancellation is cooperative: the flag is set,
// the stop channel is closed, and the join is bounded so a wedged backend
// cannot hang shutdown forever.
func (c *Controller) Stop() {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return
	}
	c.running = false
	c.cancel.Store(true)
	close(c.stopCh)
	c.mu.Unlock()

	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(c.cfg.JoinTimeout):
		log.Printf("pipeline: workers did not stop within %s, abandoning", c.cfg.JoinTimeout)
	}
	c.cancel.Store(false)
	log.Printf("pipeline: stopped")
}

// Running reports whether the workers are up.
func (c *Controller) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

// ChatID identifies the current conversation.
func (c *Controller) ChatID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.chatID
}

// SendPrompt accepts a user prompt for generation. A prompt arriving while a
// response is still in flight interrupts that response first, so two turns
// can never interleave in the delivery channel.
func (c *Controller) SendPrompt(text string) error {
	if text == "" {
		c.countPrompt("rejected")
		return fmt.Errorf("empty prompt")
	}
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		c.countPrompt("rejected")
		return fmt.Errorf("pipeline not running")
	}
	prompts := c.prompts
	c.mu.Unlock()

	if c.busy.Load() || c.pending.Load() > 0 || len(prompts) > 0 || c.deliveriesPending() {
		if err := c.InterruptResponse(); err != nil {
			return err
		}
	}

	select {
	case prompts <- promptJob{text: text, accepted: time.Now()}:
		c.countPrompt("accepted")
		return nil
	default:
		c.countPrompt("rejected")
		return fmt.Errorf("prompt queue full")
	}
}

// InterruptResponse cancels the in-flight response: it raises the cancel
// flag, waits for both workers to go idle, discards everything that was
// queued, and delivers a single interrupted end marker so the consumer sees
// the turn close.
func (c *Controller) InterruptResponse() error {
	// Serialize the protocol: two racing interrupts (HTTP endpoint vs the
	// implicit interrupt in SendPrompt) must not both push an end marker.
	c.interruptMu.Lock()
	defer c.interruptMu.Unlock()

	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return nil
	}
	prompts, phrases, deliveries := c.prompts, c.phrases, c.deliveries
	c.mu.Unlock()

	c.cancel.Store(true)
	defer c.cancel.Store(false)

	// Unprocessed prompts are part of the cancelled turn's backlog.
	for {
		select {
		case <-prompts:
			continue
		default:
		}
		break
	}

	// Interrupting an idle pipeline is a no-op: no turn means no end marker.
	if !c.busy.Load() && c.pending.Load() == 0 && len(deliveries) == 0 {
		return nil
	}

	var timedOut bool
	drained := 0
	deadline := time.Now().Add(c.cfg.JoinTimeout)
	for c.busy.Load() || c.pending.Load() > 0 {
		if time.Now().After(deadline) {
			// A backend that never observes the cooperative cancel leaves
			// the workers stuck. The consumer still gets its turn boundary;
			// the stall is reported to the caller.
			timedOut = true
			log.Printf("pipeline: interrupt wait timed out after %s, closing turn anyway", c.cfg.JoinTimeout)
			break
		}
		// Keep draining while we wait so a blocked synthesis push can
		// complete and the workers can reach idle.
		drained += drainDeliveries(deliveries)
		time.Sleep(c.cfg.PollInterval)
	}
	if timedOut {
		// The in-flight phrases will never be decremented by a wedged
		// worker; discard them and settle the counter ourselves.
		for {
			select {
			case <-phrases:
				c.pending.Add(-1)
				drained++
				continue
			default:
			}
			break
		}
	}
	drained += drainDeliveries(deliveries)
	if drained > 0 {
		log.Printf("pipeline: interrupt discarded %d undelivered items", drained)
	}
	c.setQueueDepth(len(deliveries))

	c.setLastResponseInterrupted()
	select {
	case deliveries <- Delivery{Kind: KindEnd, Interrupted: true}:
	default:
		// Channel was just drained; capacity is guaranteed unless Stop raced us.
	}
	c.countTurn("interrupted")
	c.window.ObserveIndicator("interrupted")
	if timedOut {
		return fmt.Errorf("interrupt timed out waiting for pipeline to go idle")
	}
	return nil
}

// StartNewChat interrupts anything in flight and resets the conversation to a
// fresh transcript and chat ID.
func (c *Controller) StartNewChat() error {
	if err := c.InterruptResponse(); err != nil {
		return err
	}
	c.mu.Lock()
	c.chatID = uuid.NewString()
	id := c.chatID
	c.mu.Unlock()

	c.history.Reset(c.cfg.SystemPrompt)
	c.respMu.Lock()
	c.lastResponse = ""
	c.lastInterrupted = false
	c.respMu.Unlock()
	if c.metrics != nil {
		c.metrics.ContextLoadTokens.Set(0)
	}
	log.Printf("pipeline: new chat %s", id)
	return nil
}

// NextDelivery blocks for up to timeout waiting for the next chunk or end
// marker. On timeout it returns a KindNone delivery rather than an error, so
// poll loops stay simple.
func (c *Controller) NextDelivery(ctx context.Context, timeout time.Duration) Delivery {
	c.mu.Lock()
	deliveries := c.deliveries
	c.mu.Unlock()
	if deliveries == nil {
		return Delivery{Kind: KindNone}
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case d, ok := <-deliveries:
		if !ok {
			return Delivery{Kind: KindNone}
		}
		c.setQueueDepth(len(deliveries))
		return d
	case <-timer.C:
		return Delivery{Kind: KindNone}
	case <-ctx.Done():
		return Delivery{Kind: KindNone}
	}
}

// ContextLoad reports the model context occupancy after the last turn.
func (c *Controller) ContextLoad() int {
	return c.history.ContextLoad()
}

// Transcript copies the current chat history.
func (c *Controller) Transcript() []llm.Message {
	return c.history.Snapshot()
}

// RecentTurns reads the current chat's archived turns back from the store,
// most recent last.
func (c *Controller) RecentTurns(ctx context.Context, limit int) ([]memory.TurnRecord, error) {
	if c.store == nil {
		return nil, nil
	}
	return c.store.RecentTurns(ctx, c.ChatID(), limit)
}

// LastResponse returns the full text of the most recent assistant turn and
// whether it was interrupted.
func (c *Controller) LastResponse() (string, bool) {
	c.respMu.Lock()
	defer c.respMu.Unlock()
	return c.lastResponse, c.lastInterrupted
}

// Params returns the current sampling parameters.
func (c *Controller) Params() llm.Params {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cfg.Params
}

// SetParams swaps the sampling parameters used for subsequent turns.
func (c *Controller) SetParams(p llm.Params) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cfg.Params = p
}

// SystemPrompt returns the active system prompt.
func (c *Controller) SystemPrompt() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cfg.SystemPrompt
}

// SetSystemPrompt replaces the system prompt and resets the transcript, since
// mixing turns generated under different instructions confuses small models.
func (c *Controller) SetSystemPrompt(prompt string) error {
	if prompt == "" {
		prompt = DefaultSystemPrompt
	}
	c.mu.Lock()
	c.cfg.SystemPrompt = prompt
	c.mu.Unlock()
	return c.StartNewChat()
}

func drainDeliveries(deliveries chan Delivery) int {
	n := 0
	for {
		select {
		case <-deliveries:
			n++
		default:
			return n
		}
	}
}

func (c *Controller) deliveriesPending() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.deliveries != nil && len(c.deliveries) > 0
}

func (c *Controller) setLastResponse(text string, interrupted bool) {
	c.respMu.Lock()
	defer c.respMu.Unlock()
	c.lastResponse = text
	c.lastInterrupted = interrupted
}

func (c *Controller) setLastResponseInterrupted() {
	c.respMu.Lock()
	defer c.respMu.Unlock()
	c.lastInterrupted = true
}

func (c *Controller) countPrompt(outcome string) {
	if c.metrics != nil {
		c.metrics.PromptsTotal.WithLabelValues(outcome).Inc()
	}
}

func (c *Controller) countTurn(outcome string) {
	if c.metrics != nil {
		c.metrics.TurnsTotal.WithLabelValues(outcome).Inc()
	}
}

func (c *Controller) setQueueDepth(depth int) {
	if c.metrics != nil {
		c.metrics.DeliveryQueueDepth.Set(float64(depth))
	}
}
