package tts

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
)

// PiperSynthesizer runs the piper CLI one-shot per phrase: text on stdin, raw
// PCM16LE on stdout. A mutex serializes calls since piper loads the model per
// process and phrases arrive one at a time anyway.
type PiperSynthesizer struct {
	cliPath    string
	modelPath  string
	speaker    int
	sampleRate int

	mu     sync.Mutex
	closed bool
}

type PiperConfig struct {
	CLI        string
	ModelPath  string
	Speaker    int
	SampleRate int
}

func NewPiperSynthesizer(cfg PiperConfig) (*PiperSynthesizer, error) {
	cli := strings.TrimSpace(cfg.CLI)
	if cli == "" {
		cli = "piper"
	}
	cliPath, err := exec.LookPath(cli)
	if err != nil {
		return nil, fmt.Errorf("piper CLI not found (%s)", cli)
	}

	modelPath := strings.TrimSpace(cfg.ModelPath)
	if modelPath == "" {
		return nil, fmt.Errorf("TTS_PIPER_MODEL_PATH is required")
	}
	if !filepath.IsAbs(modelPath) {
		if wd, err := os.Getwd(); err == nil {
			modelPath = filepath.Join(wd, modelPath)
		}
	}
	if _, err := os.Stat(modelPath); err != nil {
		return nil, fmt.Errorf("piper model not found: %s", modelPath)
	}

	sampleRate := cfg.SampleRate
	if sampleRate <= 0 {
		sampleRate = 22050
	}

	return &PiperSynthesizer{
		cliPath:    cliPath,
		modelPath:  modelPath,
		speaker:    cfg.Speaker,
		sampleRate: sampleRate,
	}, nil
}

func (p *PiperSynthesizer) Name() string { return "piper" }

func (p *PiperSynthesizer) Synthesize(ctx context.Context, text string) ([][]byte, int, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, p.sampleRate, nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil, 0, fmt.Errorf("piper synthesizer closed")
	}

	args := []string{
		"--model", p.modelPath,
		"--output_raw",
	}
	if p.speaker > 0 {
		args = append(args, "--speaker", strconv.Itoa(p.speaker))
	}

	cmd := exec.CommandContext(ctx, p.cliPath, args...)
	cmd.Stdin = strings.NewReader(text + "\n")
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, 0, err
	}
	if err := cmd.Start(); err != nil {
		return nil, 0, err
	}

	pcm, readErr := io.ReadAll(stdout)
	waitErr := cmd.Wait()
	if readErr != nil {
		return nil, 0, readErr
	}
	if waitErr != nil {
		if errors.Is(ctx.Err(), context.Canceled) {
			return nil, 0, context.Canceled
		}
		detail := strings.TrimSpace(stderr.String())
		if detail == "" {
			detail = waitErr.Error()
		}
		return nil, 0, fmt.Errorf("piper failed: %s", detail)
	}
	// Odd trailing byte would desync PCM16 framing downstream.
	if len(pcm)%2 == 1 {
		pcm = pcm[:len(pcm)-1]
	}
	if len(pcm) == 0 {
		return nil, p.sampleRate, nil
	}
	return [][]byte{pcm}, p.sampleRate, nil
}

func (p *PiperSynthesizer) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}
