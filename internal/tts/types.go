// Package tts defines the speech synthesis boundary. A synthesizer turns one
// phrase of text into PCM16LE audio segments; the caller decides how the
// segments are framed and delivered.
package tts

import "context"

// Synthesizer renders speakable text to audio. The returned segments are raw
// PCM16LE mono at the reported sample rate; a phrase may produce more than one
// segment when the backend splits on its own sentence boundaries. An empty
// segment list with a nil error means the input had nothing speakable.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) (segments [][]byte, sampleRate int, err error)
	Name() string
	Close() error
}
