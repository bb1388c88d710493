package tts

import (
	"context"
	"math"
	"strings"
	"sync/atomic"
)

const mockSampleRate = 16000

// MockSynthesizer produces a short sine tone whose length scales with the
// word count, so pipeline timing behaves roughly like real synthesis without
// any model installed.
type MockSynthesizer struct {
	calls atomic.Int64
}

func NewMockSynthesizer() *MockSynthesizer {
	return &MockSynthesizer{}
}

func (m *MockSynthesizer) Name() string { return "mock" }

func (m *MockSynthesizer) Synthesize(_ context.Context, text string) ([][]byte, int, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, mockSampleRate, nil
	}
	m.calls.Add(1)

	words := len(strings.Fields(text))
	// Roughly 180ms of audio per word.
	samples := words * mockSampleRate * 180 / 1000
	if samples == 0 {
		samples = mockSampleRate / 10
	}
	pcm := make([]byte, samples*2)
	for i := 0; i < samples; i++ {
		v := int16(3000 * math.Sin(2*math.Pi*440*float64(i)/mockSampleRate))
		pcm[2*i] = byte(v)
		pcm[2*i+1] = byte(v >> 8)
	}
	return [][]byte{pcm}, mockSampleRate, nil
}

// Calls reports how many non-empty phrases were synthesized.
func (m *MockSynthesizer) Calls() int64 { return m.calls.Load() }

func (m *MockSynthesizer) Close() error { return nil }
