// Package pipeline wires token generation, phrase chunking and speech
// synthesis into a single cancellable response pipeline. One controller owns
// one conversation; chunks flow out through a delivery channel as soon as
// their audio is ready.
package pipeline

import "time"

// DeliveryKind tags what a Delivery carries.
type DeliveryKind int

const (
	// KindNone means nothing was ready within the polling window.
	KindNone DeliveryKind = iota
	// KindChunk carries one phrase of display text plus its audio.
	KindChunk
	// KindEnd marks the end of a response turn. Exactly one is delivered
	// per accepted prompt.
	KindEnd
)

func (k DeliveryKind) String() string {
	switch k {
	case KindChunk:
		return "chunk"
	case KindEnd:
		return "end"
	default:
		return "none"
	}
}

// Delivery is one item handed to the consumer. For KindChunk, Text is the
// display form of the phrase and Audio is a single WAV data URL covering the
// whole phrase (empty when synthesis failed and the chunk degraded to
// text-only). For KindEnd, Interrupted reports whether the turn was cut off.
type Delivery struct {
	Kind        DeliveryKind `json:"kind"`
	Text        string       `json:"text,omitempty"`
	Audio       string       `json:"audio,omitempty"`
	Interrupted bool         `json:"interrupted,omitempty"`
}

// phraseMessage travels from the generation worker to the synthesis worker.
// The end marker rides the same channel so ordering is preserved.
type phraseMessage struct {
	end bool
	// interrupted is only meaningful on an end marker: a turn that failed
	// mid-generation closes with an interrupted end.
	interrupted bool
	display     string
	speech      string
	accepted    time.Time
}

// promptJob is one accepted prompt awaiting generation.
type promptJob struct {
	text     string
	accepted time.Time
}
