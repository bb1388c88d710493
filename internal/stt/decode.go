package stt

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"os/exec"
	"strings"
)

// TargetSampleRate is what the recognizer expects; the decoder resamples
// everything to it.
const TargetSampleRate = 16000

// Decoder converts arbitrary recorded audio into PCM16LE mono at
// TargetSampleRate.
type Decoder interface {
	Decode(ctx context.Context, audio []byte) ([]byte, error)
}

// FFmpegDecoder pipes audio through ffmpeg: any container or codec in,
// s16le/16k/mono out.
type FFmpegDecoder struct {
	binPath string
}

func NewFFmpegDecoder(bin string) (*FFmpegDecoder, error) {
	bin = strings.TrimSpace(bin)
	if bin == "" {
		bin = "ffmpeg"
	}
	path, err := exec.LookPath(bin)
	if err != nil {
		return nil, fmt.Errorf("ffmpeg not found (%s)", bin)
	}
	return &FFmpegDecoder{binPath: path}, nil
}

func (d *FFmpegDecoder) Decode(ctx context.Context, audio []byte) ([]byte, error) {
	if len(audio) == 0 {
		return nil, fmt.Errorf("empty audio payload")
	}
	cmd := exec.CommandContext(ctx, d.binPath,
		"-hide_banner", "-loglevel", "error",
		"-i", "pipe:0",
		"-f", "s16le",
		"-acodec", "pcm_s16le",
		"-ac", "1",
		"-ar", fmt.Sprintf("%d", TargetSampleRate),
		"pipe:1",
	)
	cmd.Stdin = bytes.NewReader(audio)
	var out, stderr bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		detail := strings.TrimSpace(stderr.String())
		if detail == "" {
			detail = err.Error()
		}
		return nil, fmt.Errorf("ffmpeg decode failed: %s", detail)
	}
	pcm := out.Bytes()
	if len(pcm)%2 == 1 {
		pcm = pcm[:len(pcm)-1]
	}
	if len(pcm) == 0 {
		return nil, fmt.Errorf("ffmpeg produced no audio")
	}
	return pcm, nil
}

// DecodeDataURL strips an optional data-URL prefix and base64-decodes the
// payload. Raw base64 without a prefix is accepted too.
func DecodeDataURL(dataURL string) ([]byte, error) {
	payload := strings.TrimSpace(dataURL)
	if idx := strings.Index(payload, ","); idx >= 0 && strings.HasPrefix(payload, "data:") {
		payload = payload[idx+1:]
	}
	if payload == "" {
		return nil, fmt.Errorf("empty audio payload")
	}
	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("decode audio base64: %w", err)
	}
	return raw, nil
}
