// Package stt turns recorded audio into prompt text: an ffmpeg decode step
// normalizes whatever the client recorded into PCM16LE mono, and a whisper.cpp
// recognizer transcribes it.
package stt

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
)

// Recognizer transcribes PCM16LE mono audio.
type Recognizer interface {
	Transcribe(ctx context.Context, pcm16le []byte, sampleRate int) (string, error)
}

// WhisperConfig configures the whisper.cpp CLI recognizer.
type WhisperConfig struct {
	CLI       string
	ModelPath string
	Language  string
	Threads   int
}

type whisperCLI struct {
	cliPath   string
	modelPath string
	language  string
	threads   int
	writeWAV  func(path string, pcm []byte, sampleRate int) error
}

// NewWhisperRecognizer builds a recognizer around the whisper-cli binary. Each
// call writes a temp WAV file and reads the transcript back from the -otxt
// output.
func NewWhisperRecognizer(cfg WhisperConfig, writeWAV func(path string, pcm []byte, sampleRate int) error) (Recognizer, error) {
	cli := strings.TrimSpace(cfg.CLI)
	if cli == "" {
		cli = "whisper-cli"
	}
	cliPath, err := exec.LookPath(cli)
	if err != nil {
		return nil, fmt.Errorf("whisper.cpp CLI not found (%s)", cli)
	}

	modelPath := strings.TrimSpace(cfg.ModelPath)
	if modelPath == "" {
		return nil, fmt.Errorf("STT_WHISPER_MODEL_PATH is required")
	}
	if !filepath.IsAbs(modelPath) {
		if wd, err := os.Getwd(); err == nil {
			modelPath = filepath.Join(wd, modelPath)
		}
	}
	if _, err := os.Stat(modelPath); err != nil {
		return nil, fmt.Errorf("whisper.cpp model not found: %s", modelPath)
	}

	language := strings.TrimSpace(cfg.Language)
	if language == "" {
		language = "en"
	}

	return &whisperCLI{
		cliPath:   cliPath,
		modelPath: modelPath,
		language:  language,
		threads:   cfg.Threads,
		writeWAV:  writeWAV,
	}, nil
}

func (w *whisperCLI) Transcribe(ctx context.Context, pcm16le []byte, sampleRate int) (string, error) {
	if len(pcm16le) == 0 {
		return "", nil
	}
	if sampleRate <= 0 {
		sampleRate = 16000
	}

	tmpDir, err := os.MkdirTemp("", "voicepipe-whisper-*")
	if err != nil {
		return "", err
	}
	defer os.RemoveAll(tmpDir)

	wavPath := filepath.Join(tmpDir, "audio.wav")
	if err := w.writeWAV(wavPath, pcm16le, sampleRate); err != nil {
		return "", err
	}
	outPrefix := filepath.Join(tmpDir, "out")

	args := []string{
		"-m", w.modelPath,
		"-f", wavPath,
		"-l", w.language,
		"-otxt",
		"-of", outPrefix,
		"-nt",
	}
	if w.threads > 0 {
		args = append(args, "-t", strconv.Itoa(w.threads))
	}

	cmd := exec.CommandContext(ctx, w.cliPath, args...)
	cmd.Stdout = io.Discard
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if errors.Is(ctx.Err(), context.Canceled) {
			return "", context.Canceled
		}
		detail := strings.TrimSpace(stderr.String())
		if len(detail) > 8<<10 {
			detail = strings.TrimSpace(detail[len(detail)-(8<<10):])
		}
		if detail == "" {
			detail = err.Error()
		}
		return "", fmt.Errorf("whisper.cpp failed: %s", detail)
	}

	b, err := os.ReadFile(outPrefix + ".txt")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(b)), nil
}
