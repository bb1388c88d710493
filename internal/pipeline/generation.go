package pipeline

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/ent0n29/voicepipe/internal/chunk"
	"github.com/ent0n29/voicepipe/internal/llm"
	"github.com/ent0n29/voicepipe/internal/memory"
	"github.com/ent0n29/voicepipe/internal/observability"
	"github.com/ent0n29/voicepipe/internal/textnorm"
)

// serveGeneration is the generation worker: it takes accepted prompts one at
// a time, streams tokens through the phrase chunker, and feeds phrases to the
// synthesis worker in order.
func (c *Controller) serveGeneration(prompts <-chan promptJob, phrases chan<- phraseMessage, stop <-chan struct{}) {
	defer c.wg.Done()
	for {
		select {
		case <-stop:
			return
		case job := <-prompts:
			if c.cancel.Load() {
				// The turn this prompt belonged to is being torn down.
				continue
			}
			c.runTurn(job, phrases, stop)
		}
	}
}

func (c *Controller) runTurn(job promptJob, phrases chan<- phraseMessage, stop <-chan struct{}) {
	c.busy.Store(true)
	defer c.busy.Store(false)

	c.history.AppendUser(job.text)
	c.archiveTurn(llm.RoleUser, job.text, false)

	params := c.Params()
	messages := c.history.Snapshot()
	stream, err := c.service.Generate(context.Background(), messages, params, c.cancel.Load)
	if err != nil {
		log.Printf("pipeline: generation failed: %v", err)
		c.cancel.Store(true)
		defer c.cancel.Store(false)
		// Nothing was generated but the prompt still occupies context.
		load := 0
		for _, msg := range messages {
			load += llm.EstimateTokens(msg.Content)
		}
		c.history.SetContextLoad(load)
		if c.metrics != nil {
			c.metrics.ContextLoadTokens.Set(float64(load))
		}
		// The turn still needs an assistant entry so the transcript shows
		// why nothing was said.
		note := fmt.Sprintf("(response unavailable: %v)", err)
		c.history.AppendAssistant(note)
		c.setLastResponse(note, true)
		c.archiveTurn(llm.RoleAssistant, note, true)
		c.countTurn("failed")
		c.sendPhrase(phrases, phraseMessage{end: true, interrupted: true, accepted: job.accepted}, stop)
		return
	}

	chunker := chunk.New(chunk.Config{
		MinTokens:    c.cfg.MinPhraseTokens,
		MaxTokens:    c.cfg.MaxPhraseTokens,
		Locale:       c.cfg.Locale,
		Conjunctions: textnorm.ConjunctionsFor(c.cfg.Locale),
	})

	var (
		firstToken  time.Time
		firstPhrase bool
		interrupted bool
	)
	for tok := range stream.Tokens() {
		if c.cancel.Load() {
			interrupted = true
			break
		}
		if firstToken.IsZero() {
			firstToken = time.Now()
			c.window.Observe(observability.StagePromptToFirstToken, firstToken.Sub(job.accepted))
		}
		if phrase, ok := chunker.AddToken(tok); ok {
			if !firstPhrase {
				firstPhrase = true
				c.window.Observe(observability.StagePromptToFirstPhrase, time.Since(job.accepted))
			}
			if !c.sendPhrase(phrases, phraseMessage{display: phrase.Display, speech: phrase.Speech, accepted: job.accepted}, stop) {
				return
			}
		}
	}
	if interrupted {
		// Drain so the backend's producer goroutine can finish its step
		// and exit; cooperative cancellation never abandons a stream
		// mid-channel.
		for range stream.Tokens() {
		}
	}

	if !interrupted && !c.cancel.Load() {
		if phrase, ok := chunker.Flush(); ok {
			if !c.sendPhrase(phrases, phraseMessage{display: phrase.Display, speech: phrase.Speech, accepted: job.accepted}, stop) {
				return
			}
		}
	}

	res, resErr := stream.Result()
	if resErr != nil {
		log.Printf("pipeline: stream ended with error: %v", resErr)
	}
	interrupted = interrupted || c.cancel.Load()
	failed := resErr != nil

	c.history.AppendAssistant(res.Text)
	load := res.TotalTokens
	if res.Text == "" {
		// Nothing generated: the prompt still occupies context.
		load = res.PromptTokens
	}
	c.history.SetContextLoad(load)
	if c.metrics != nil {
		c.metrics.ContextLoadTokens.Set(float64(load))
	}
	c.setLastResponse(res.Text, interrupted || failed)
	c.archiveTurn(llm.RoleAssistant, res.Text, interrupted || failed)

	if interrupted {
		// The interrupt path owns the end marker for a cancelled turn.
		return
	}
	if failed {
		c.countTurn("failed")
	} else {
		c.countTurn("completed")
	}
	c.window.Observe(observability.StageTurnTotal, time.Since(job.accepted))
	c.sendPhrase(phrases, phraseMessage{end: true, interrupted: failed, accepted: job.accepted}, stop)
}

// sendPhrase enqueues one message for synthesis, keeping the pending counter
// ahead of the channel so an interrupt can see in-flight work. Returns false
// when the controller is stopping.
func (c *Controller) sendPhrase(phrases chan<- phraseMessage, msg phraseMessage, stop <-chan struct{}) bool {
	if !msg.end && c.metrics != nil {
		c.metrics.PhrasesChunked.Inc()
	}
	c.pending.Add(1)
	select {
	case phrases <- msg:
		return true
	case <-stop:
		c.pending.Add(-1)
		return false
	}
}

func (c *Controller) archiveTurn(role, content string, interrupted bool) {
	if c.store == nil || content == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	err := c.store.SaveTurn(ctx, memory.TurnRecord{
		ChatID:      c.ChatID(),
		Role:        role,
		Content:     content,
		Interrupted: interrupted,
	})
	if err != nil {
		log.Printf("pipeline: archive turn: %v", err)
	}
}
