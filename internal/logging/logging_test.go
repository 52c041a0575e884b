package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	log := Component(NewWithWriter(&buf, "info", "json"), "store")

	log.Info().Str("file", "audio_20240101_120000.wav").Msg("recording saved")

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("decode log line: %v (%q)", err, buf.String())
	}
	if line["component"] != "store" {
		t.Fatalf("expected component field, got %v", line)
	}
	if line["message"] != "recording saved" {
		t.Fatalf("unexpected message %v", line["message"])
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, "warn", "json")

	log.Info().Msg("hidden")
	log.Warn().Msg("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("info line should be filtered at warn level: %q", out)
	}
	if !strings.Contains(out, "shown") {
		t.Fatalf("warn line missing: %q", out)
	}
}

func TestInvalidLevelFallsBackToInfo(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, "loud", "console")

	log.Debug().Msg("debug line")
	log.Info().Msg("info line")

	out := buf.String()
	if strings.Contains(out, "debug line") || !strings.Contains(out, "info line") {
		t.Fatalf("expected info level, got %q", out)
	}
}

func TestLogFileAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	if err := os.WriteFile(path, []byte("earlier run\n"), 0o644); err != nil {
		t.Fatalf("seed log file: %v", err)
	}

	log, closer, err := NewWithFile("info", "console", path)
	if err != nil {
		t.Fatalf("new with file: %v", err)
	}
	httpLog := Component(log, "http")
	httpLog.Info().Msg("server listening")
	if err := closer.Close(); err != nil {
		t.Fatalf("close log file: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	out := string(data)
	if !strings.HasPrefix(out, "earlier run\n") {
		t.Fatalf("log file should be appended to, got %q", out)
	}
	if !strings.Contains(out, "server listening") || !strings.Contains(out, "component=http") {
		t.Fatalf("missing log line in file: %q", out)
	}
}

func TestLogFileUnwritable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "app.log")
	if _, _, err := NewWithFile("info", "json", path); err == nil {
		t.Fatalf("expected error for unwritable log file")
	}
}

func TestNoLogFile(t *testing.T) {
	_, closer, err := NewWithFile("info", "json", "")
	if err != nil {
		t.Fatalf("new with file: %v", err)
	}
	if err := closer.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
}
