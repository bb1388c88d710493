package stt

import (
	"context"
	"log"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Service is the transcription front door. Any failure along the
// decode-then-transcribe path degrades to an empty transcript rather than an
// error; the caller treats "" as "nothing usable was said".
type Service struct {
	decoder    Decoder
	recognizer Recognizer
}

func NewService(decoder Decoder, recognizer Recognizer) *Service {
	return &Service{decoder: decoder, recognizer: recognizer}
}

// Enabled reports whether a recognizer backend is wired in.
func (s *Service) Enabled() bool {
	return s != nil && s.recognizer != nil && s.decoder != nil
}

// TranscribeDataURL decodes a base64 audio payload (with or without a data-URL
// prefix) and returns the capitalized transcript, or "" if anything fails.
func (s *Service) TranscribeDataURL(ctx context.Context, dataURL string) string {
	if !s.Enabled() {
		return ""
	}
	raw, err := DecodeDataURL(dataURL)
	if err != nil {
		log.Printf("stt: %v", err)
		return ""
	}
	pcm, err := s.decoder.Decode(ctx, raw)
	if err != nil {
		log.Printf("stt: %v", err)
		return ""
	}
	text, err := s.recognizer.Transcribe(ctx, pcm, TargetSampleRate)
	if err != nil {
		log.Printf("stt: transcription failed: %v", err)
		return ""
	}
	return capitalize(strings.TrimSpace(text))
}

func capitalize(s string) string {
	if s == "" {
		return ""
	}
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}
