package services

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/rs/zerolog"

	"meetingrec/internal/config"
	"meetingrec/internal/domain"
	"meetingrec/internal/storage"
)

type call struct {
	name string
	args []string
}

// scriptedExecutor records calls and mimics whisper-cli writing its -otxt
// output next to the -of prefix.
type scriptedExecutor struct {
	calls     []call
	output    string
	failOn    string
	skipWrite bool
}

func (e *scriptedExecutor) Execute(ctx context.Context, name string, args ...string) (string, error) {
	e.calls = append(e.calls, call{name: name, args: args})
	if name == e.failOn {
		return "", errors.New("exit status 1")
	}
	if i := slices.Index(args, "-of"); i >= 0 && !e.skipWrite {
		if err := os.WriteFile(args[i+1]+".txt", []byte(e.output), 0o644); err != nil {
			return "", err
		}
	}
	return "", nil
}

func newWhisper(t *testing.T, exe *scriptedExecutor) (*LocalWhisper, string) {
	t.Helper()
	fm, err := storage.NewFileManager(t.TempDir())
	if err != nil {
		t.Fatalf("file manager: %v", err)
	}
	cfg := config.Config{
		WhisperBinary:   "whisper-cli",
		WhisperModel:    "models/ggml-base.bin",
		WhisperLanguage: "auto",
		WhisperThreads:  2,
		FFmpegBinary:    "ffmpeg",
	}
	audio := filepath.Join(t.TempDir(), "audio_20240101_080000.wav")
	if err := os.WriteFile(audio, []byte("RIFF"), 0o644); err != nil {
		t.Fatalf("write audio: %v", err)
	}
	return NewLocalWhisper(cfg, exe, fm, zerolog.Nop()), audio
}

func TestLocalWhisperTranscribe(t *testing.T) {
	exe := &scriptedExecutor{output: " Hello everyone.\n\n Let's start.\n"}
	w, audio := newWhisper(t, exe)

	text, err := w.Transcribe(context.Background(), audio)
	if err != nil {
		t.Fatalf("transcribe: %v", err)
	}
	if text != "Hello everyone. Let's start." {
		t.Fatalf("unexpected transcript %q", text)
	}

	if len(exe.calls) != 2 || exe.calls[0].name != "ffmpeg" || exe.calls[1].name != "whisper-cli" {
		t.Fatalf("unexpected calls %+v", exe.calls)
	}
	if !slices.Contains(exe.calls[0].args, "16000") {
		t.Fatalf("ffmpeg should resample to 16 kHz: %v", exe.calls[0].args)
	}
	whisperArgs := exe.calls[1].args
	if i := slices.Index(whisperArgs, "-m"); i < 0 || whisperArgs[i+1] != "models/ggml-base.bin" {
		t.Fatalf("model not passed: %v", whisperArgs)
	}
}

func TestLocalWhisperFailures(t *testing.T) {
	cases := map[string]*scriptedExecutor{
		"ffmpeg fails":   {failOn: "ffmpeg"},
		"whisper fails":  {failOn: "whisper-cli"},
		"no output file": {skipWrite: true},
	}
	for name, exe := range cases {
		t.Run(name, func(t *testing.T) {
			w, audio := newWhisper(t, exe)
			if _, err := w.Transcribe(context.Background(), audio); !domain.IsKind(err, domain.KindTranscription) {
				t.Fatalf("expected transcription error, got %v", err)
			}
		})
	}

	w, _ := newWhisper(t, &scriptedExecutor{})
	if _, err := w.Transcribe(context.Background(), "/does/not/exist.wav"); !domain.IsKind(err, domain.KindTranscription) {
		t.Fatalf("missing file should be a transcription error, got %v", err)
	}
}

func TestNewTranscriberEngines(t *testing.T) {
	openai := NewOpenAIService(config.Config{}, zerolog.Nop())

	tr, err := NewTranscriber(config.Config{TranscribeEngine: config.EngineLocal}, &scriptedExecutor{}, nil, openai, zerolog.Nop())
	if err != nil {
		t.Fatalf("local: %v", err)
	}
	if _, ok := tr.(*LocalWhisper); !ok {
		t.Fatalf("expected local whisper, got %T", tr)
	}

	tr, err = NewTranscriber(config.Config{TranscribeEngine: config.EngineOpenAI}, nil, nil, openai, zerolog.Nop())
	if err != nil || tr != Transcriber(openai) {
		t.Fatalf("expected openai transcriber, got %T %v", tr, err)
	}

	if _, err := NewTranscriber(config.Config{TranscribeEngine: "nope"}, nil, nil, openai, zerolog.Nop()); err == nil {
		t.Fatalf("unknown engine should fail")
	}
}
