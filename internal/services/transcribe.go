package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"meetingrec/internal/config"
	"meetingrec/internal/domain"
	"meetingrec/internal/executor"
)

// whisper.cpp only accepts 16 kHz input.
const whisperSampleRate = 16000

// Transcriber turns a stored recording into plain text.
type Transcriber interface {
	Transcribe(ctx context.Context, path string) (string, error)
}

// ScratchProvider hands out temporary working directories.
type ScratchProvider interface {
	ScratchDir(prefix string) (string, func(), error)
}

// LocalWhisper transcribes with a whisper.cpp binary. The recording is first
// resampled to 16 kHz mono with ffmpeg.
type LocalWhisper struct {
	exec     executor.Executor
	scratch  ScratchProvider
	binary   string
	ffmpeg   string
	model    string
	language string
	threads  int
	log      zerolog.Logger
}

func NewLocalWhisper(cfg config.Config, exec executor.Executor, scratch ScratchProvider, log zerolog.Logger) *LocalWhisper {
	return &LocalWhisper{
		exec:     exec,
		scratch:  scratch,
		binary:   cfg.WhisperBinary,
		ffmpeg:   cfg.FFmpegBinary,
		model:    cfg.WhisperModel,
		language: cfg.WhisperLanguage,
		threads:  cfg.WhisperThreads,
		log:      log,
	}
}

func (w *LocalWhisper) Transcribe(ctx context.Context, path string) (string, error) {
	if _, err := os.Stat(path); err != nil {
		return "", domain.TranscriptionError("transcribe", fmt.Errorf("open audio file: %w", err))
	}

	dir, cleanup, err := w.scratch.ScratchDir("whisper")
	if err != nil {
		return "", domain.TranscriptionError("transcribe", err)
	}
	defer cleanup()

	input := filepath.Join(dir, "input.wav")
	if _, err := w.exec.Execute(ctx, w.ffmpeg,
		"-hide_banner", "-loglevel", "error", "-y",
		"-i", path,
		"-ac", "1",
		"-ar", strconv.Itoa(whisperSampleRate),
		"-c:a", "pcm_s16le",
		input,
	); err != nil {
		return "", domain.TranscriptionError("resample audio", err)
	}

	prefix := filepath.Join(dir, "transcript")
	args := []string{
		"-m", w.model,
		"-f", input,
		"-l", w.language,
		"-t", strconv.Itoa(w.threads),
		"-otxt",
		"-of", prefix,
		"-np",
	}
	w.log.Info().Str("file", filepath.Base(path)).Str("model", w.model).Msg("transcribing")
	if _, err := w.exec.Execute(ctx, w.binary, args...); err != nil {
		return "", domain.TranscriptionError("whisper transcribe", err)
	}

	data, err := os.ReadFile(prefix + ".txt")
	if err != nil {
		return "", domain.TranscriptionError("read transcript", err)
	}
	return normalizeTranscript(string(data)), nil
}

// normalizeTranscript joins whisper's per-segment lines into one paragraph.
func normalizeTranscript(text string) string {
	lines := strings.Split(text, "\n")
	parts := make([]string, 0, len(lines))
	for _, line := range lines {
		if line = strings.TrimSpace(line); line != "" {
			parts = append(parts, line)
		}
	}
	return strings.Join(parts, " ")
}

// NewTranscriber picks the engine named by TRANSCRIBE_ENGINE.
func NewTranscriber(cfg config.Config, exec executor.Executor, scratch ScratchProvider, openai *OpenAIService, log zerolog.Logger) (Transcriber, error) {
	switch cfg.TranscribeEngine {
	case config.EngineLocal:
		return NewLocalWhisper(cfg, exec, scratch, log), nil
	case config.EngineOpenAI:
		if openai == nil {
			return nil, errors.New("openai transcription requires an openai client")
		}
		return openai, nil
	}
	return nil, fmt.Errorf("unknown transcribe engine %q", cfg.TranscribeEngine)
}
