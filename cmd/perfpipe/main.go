// Command perfpipe replays synthetic prompts against a running voicepipe
// server over the /v1/stream websocket and reports per-turn latency.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/url"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ent0n29/voicepipe/internal/protocol"
)

type options struct {
	baseURL        string
	turns          int
	interTurnDelay time.Duration
	turnTimeout    time.Duration
	interruptAfter time.Duration
	texts          []string
	verbose        bool
}

type wsEnvelope struct {
	Type        string `json:"type"`
	Text        string `json:"text,omitempty"`
	Audio       string `json:"audio,omitempty"`
	Interrupted bool   `json:"interrupted,omitempty"`
	ContextLoad int    `json:"context_load,omitempty"`
	Code        string `json:"code,omitempty"`
	Detail      string `json:"detail,omitempty"`
}

type turnTiming struct {
	firstChunk time.Duration
	total      time.Duration
}

var defaultUtterances = []string{
	"Reply in one short sentence: what limits latency here?",
	"Reply in one short sentence: what should we optimize next?",
	"Reply in one short sentence: summarize the architecture.",
	"Reply in one short sentence: what is the top risk?",
}

func main() {
	cfg, err := parseFlags()
	if err != nil {
		fmt.Fprintf(os.Stderr, "perfpipe: %v\n", err)
		os.Exit(2)
	}
	if err := run(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "perfpipe: %v\n", err)
		os.Exit(1)
	}
}

func parseFlags() (options, error) {
	var cfg options
	var textsRaw string
	var interTurnMS int
	var turnTimeoutMS int
	var interruptAfterMS int

	flag.StringVar(&cfg.baseURL, "base-url", "http://127.0.0.1:8080", "voicepipe base URL")
	flag.IntVar(&cfg.turns, "turns", 10, "number of prompts to replay")
	flag.IntVar(&interTurnMS, "inter-turn-ms", 180, "delay between turns in milliseconds")
	flag.IntVar(&turnTimeoutMS, "turn-timeout-ms", 30000, "timeout waiting for response_end per turn in milliseconds")
	flag.IntVar(&interruptAfterMS, "interrupt-after-ms", 0, "interrupt each turn this long after the first chunk (0=never)")
	flag.StringVar(&textsRaw, "texts", "", "prompts separated by '|' (optional)")
	flag.BoolVar(&cfg.verbose, "verbose", true, "print replay progress")
	flag.Parse()

	cfg.baseURL = strings.TrimRight(strings.TrimSpace(cfg.baseURL), "/")
	if cfg.baseURL == "" {
		return options{}, fmt.Errorf("base-url is required")
	}
	if cfg.turns <= 0 {
		return options{}, fmt.Errorf("turns must be > 0")
	}
	if interTurnMS < 0 {
		interTurnMS = 0
	}
	if turnTimeoutMS < 1000 {
		turnTimeoutMS = 1000
	}
	cfg.interTurnDelay = time.Duration(interTurnMS) * time.Millisecond
	cfg.turnTimeout = time.Duration(turnTimeoutMS) * time.Millisecond
	cfg.interruptAfter = time.Duration(interruptAfterMS) * time.Millisecond

	if strings.TrimSpace(textsRaw) == "" {
		cfg.texts = append([]string(nil), defaultUtterances...)
	} else {
		for _, part := range strings.Split(textsRaw, "|") {
			if t := strings.TrimSpace(part); t != "" {
				cfg.texts = append(cfg.texts, t)
			}
		}
		if len(cfg.texts) == 0 {
			return options{}, fmt.Errorf("texts produced no non-empty prompts")
		}
	}
	return cfg, nil
}

func run(cfg options) error {
	ctx, cancel := context.WithTimeout(context.Background(), 8*time.Minute)
	defer cancel()

	wsURL, err := streamURL(cfg.baseURL)
	if err != nil {
		return fmt.Errorf("build ws URL: %w", err)
	}
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return fmt.Errorf("open websocket: %w", err)
	}
	defer conn.Close()

	events := make(chan wsEnvelope, 64)
	readErr := make(chan error, 1)
	go readLoop(conn, events, readErr)

	var timings []turnTiming
	for i := 0; i < cfg.turns; i++ {
		text := cfg.texts[i%len(cfg.texts)]
		if cfg.verbose {
			fmt.Printf("perfpipe: turn %d/%d prompt=%q\n", i+1, cfg.turns, text)
		}
		timing, err := runTurn(conn, events, readErr, text, cfg)
		if err != nil {
			return fmt.Errorf("turn %d: %w", i+1, err)
		}
		timings = append(timings, timing)
		if cfg.interTurnDelay > 0 && i < cfg.turns-1 {
			time.Sleep(cfg.interTurnDelay)
		}
	}

	report(timings)
	return nil
}

func runTurn(conn *websocket.Conn, events <-chan wsEnvelope, readErr <-chan error, text string, cfg options) (turnTiming, error) {
	start := time.Now()
	if err := conn.WriteJSON(protocol.ClientPrompt{Type: protocol.TypeClientPrompt, Text: text}); err != nil {
		return turnTiming{}, fmt.Errorf("send prompt: %w", err)
	}

	deadline := time.NewTimer(cfg.turnTimeout)
	defer deadline.Stop()

	var timing turnTiming
	var interruptTimer <-chan time.Time
	for {
		select {
		case ev := <-events:
			switch ev.Type {
			case string(protocol.TypeResponseChunk):
				if timing.firstChunk == 0 {
					timing.firstChunk = time.Since(start)
					if cfg.interruptAfter > 0 {
						interruptTimer = time.After(cfg.interruptAfter)
					}
				}
			case string(protocol.TypeResponseEnd):
				timing.total = time.Since(start)
				if cfg.verbose {
					fmt.Printf("perfpipe: first_chunk=%s total=%s interrupted=%v context_load=%d\n",
						timing.firstChunk.Round(time.Millisecond), timing.total.Round(time.Millisecond), ev.Interrupted, ev.ContextLoad)
				}
				return timing, nil
			case string(protocol.TypeErrorEvent):
				return turnTiming{}, fmt.Errorf("server error %s: %s", ev.Code, ev.Detail)
			}
		case <-interruptTimer:
			interruptTimer = nil
			msg := protocol.ClientControl{Type: protocol.TypeClientControl, Action: protocol.ActionInterrupt}
			if err := conn.WriteJSON(msg); err != nil {
				return turnTiming{}, fmt.Errorf("send interrupt: %w", err)
			}
		case err := <-readErr:
			return turnTiming{}, fmt.Errorf("ws read: %w", err)
		case <-deadline.C:
			return turnTiming{}, fmt.Errorf("timed out waiting for response_end")
		}
	}
}

func readLoop(conn *websocket.Conn, events chan<- wsEnvelope, readErr chan<- error) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			readErr <- err
			return
		}
		var ev wsEnvelope
		if err := json.Unmarshal(data, &ev); err != nil {
			continue
		}
		events <- ev
	}
}

func streamURL(baseURL string) (string, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/v1/stream"
	return u.String(), nil
}

func report(timings []turnTiming) {
	if len(timings) == 0 {
		return
	}
	firsts := make([]time.Duration, 0, len(timings))
	totals := make([]time.Duration, 0, len(timings))
	for _, t := range timings {
		if t.firstChunk > 0 {
			firsts = append(firsts, t.firstChunk)
		}
		totals = append(totals, t.total)
	}
	fmt.Printf("perfpipe: turns=%d first_chunk p50=%s p95=%s | total p50=%s p95=%s\n",
		len(timings),
		percentile(firsts, 0.50).Round(time.Millisecond), percentile(firsts, 0.95).Round(time.Millisecond),
		percentile(totals, 0.50).Round(time.Millisecond), percentile(totals, 0.95).Round(time.Millisecond))
}

func percentile(values []time.Duration, q float64) time.Duration {
	if len(values) == 0 {
		return 0
	}
	sorted := append([]time.Duration(nil), values...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	idx := int(float64(len(sorted)-1) * q)
	return sorted[idx]
}
