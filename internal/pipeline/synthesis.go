package pipeline

import (
	"context"
	"log"
	"time"

	"github.com/ent0n29/voicepipe/internal/audio"
	"github.com/ent0n29/voicepipe/internal/observability"
)

// serveSynthesis is the synthesis worker: it renders each phrase to audio and
// pushes the finished chunk into the delivery channel. A synthesis failure
// degrades the chunk to text-only instead of killing the turn.
func (c *Controller) serveSynthesis(phrases <-chan phraseMessage, deliveries chan<- Delivery, stop <-chan struct{}) {
	defer c.wg.Done()
	firstChunkSent := false
	for {
		select {
		case <-stop:
			return
		case msg := <-phrases:
			if msg.end {
				c.pushDelivery(deliveries, Delivery{Kind: KindEnd, Interrupted: msg.interrupted}, stop)
				c.pending.Add(-1)
				firstChunkSent = false
				continue
			}
			if c.cancel.Load() {
				// The turn is being torn down; its phrases are discarded.
				c.pending.Add(-1)
				continue
			}

			url := c.synthesizePhrase(msg.speech)
			delivered := c.pushDelivery(deliveries, Delivery{Kind: KindChunk, Text: msg.display, Audio: url}, stop)
			if delivered && !firstChunkSent {
				firstChunkSent = true
				latency := time.Since(msg.accepted)
				c.window.Observe(observability.StagePromptToFirstChunk, latency)
				if c.metrics != nil {
					c.metrics.ObserveFirstChunkLatency(latency)
				}
			}
			c.pending.Add(-1)
		}
	}
}

// synthesizePhrase renders one phrase, joins the PCM segments into a single
// buffer and wraps it as one WAV data URL. Failures return no audio.
func (c *Controller) synthesizePhrase(speech string) string {
	if speech == "" || c.synth == nil {
		return ""
	}
	segments, sampleRate, err := c.synth.Synthesize(context.Background(), speech)
	if err != nil {
		log.Printf("pipeline: synthesis failed, delivering text only: %v", err)
		if c.metrics != nil {
			c.metrics.SynthesisFailures.Inc()
		}
		c.window.ObserveIndicator("synthesis_failed")
		return ""
	}
	var pcm []byte
	for _, seg := range segments {
		pcm = append(pcm, seg...)
	}
	if len(pcm) == 0 {
		return ""
	}
	url, err := audio.WAVDataURL(pcm, sampleRate)
	if err != nil {
		log.Printf("pipeline: wav encode: %v", err)
		return ""
	}
	return url
}

// pushDelivery hands a finished item to the consumer. When the channel is
// full it waits, but a cancelled turn's chunks are dropped rather than
// blocking the teardown. Returns whether the item was actually delivered.
func (c *Controller) pushDelivery(deliveries chan<- Delivery, d Delivery, stop <-chan struct{}) bool {
	for {
		select {
		case deliveries <- d:
			c.setQueueDepth(len(deliveries))
			return true
		case <-stop:
			return false
		default:
		}
		if d.Kind == KindChunk && c.cancel.Load() {
			return false
		}
		select {
		case deliveries <- d:
			c.setQueueDepth(len(deliveries))
			return true
		case <-stop:
			return false
		case <-time.After(c.cfg.PollInterval):
		}
	}
}
