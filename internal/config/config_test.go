package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("load config: %v", err)
	}

	if cfg.SampleRate != 44100 {
		t.Fatalf("expected sample rate 44100, got %d", cfg.SampleRate)
	}
	if cfg.Channels != 1 {
		t.Fatalf("expected mono, got %d channels", cfg.Channels)
	}
	if cfg.MaxRecording != time.Hour {
		t.Fatalf("expected 1h max recording, got %s", cfg.MaxRecording)
	}
	if cfg.OpenAIModelAnalysis != "gpt-4o" {
		t.Fatalf("unexpected analysis model %q", cfg.OpenAIModelAnalysis)
	}
	if !filepath.IsAbs(cfg.RecordingsDir) || !filepath.IsAbs(cfg.DataDir) {
		t.Fatalf("expected absolute dirs, got %q %q", cfg.RecordingsDir, cfg.DataDir)
	}
	if cfg.HasSessionSecret() || cfg.LogFile != "" {
		t.Fatalf("expected placeholder secret and no log file, got %q %q", cfg.SessionSecret, cfg.LogFile)
	}
}

func TestSessionSecretAndLogFileFromEnv(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("SESSION_SECRET", "s3cret")
	t.Setenv("LOG_FILE", "app.log")

	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if !cfg.HasSessionSecret() || cfg.SessionSecret != "s3cret" {
		t.Fatalf("expected configured secret, got %q", cfg.SessionSecret)
	}
	if cfg.LogFile != "app.log" {
		t.Fatalf("expected log file from env, got %q", cfg.LogFile)
	}
}

func TestLoadConfigFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yml")
	content := "sample_rate: 16000\nopenai_model_analysis: gpt-4o-mini\nmax_recording: 30m\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv("OPENAI_MODEL_ANALYSIS", "gpt-4.1")

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}

	if cfg.SampleRate != 16000 {
		t.Fatalf("expected sample rate from file, got %d", cfg.SampleRate)
	}
	if cfg.MaxRecording != 30*time.Minute {
		t.Fatalf("expected 30m, got %s", cfg.MaxRecording)
	}
	if cfg.OpenAIModelAnalysis != "gpt-4.1" {
		t.Fatalf("expected env override, got %q", cfg.OpenAIModelAnalysis)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yml")); err == nil {
		t.Fatalf("expected error for missing explicit config file")
	}
}

func TestValidate(t *testing.T) {
	valid := Config{
		SampleRate:       44100,
		Channels:         1,
		MaxRecording:     time.Hour,
		TranscribeEngine: EngineLocal,
		RecordingsDir:    "recordings",
		DataDir:          "data",
	}
	if err := valid.Validate(); err != nil {
		t.Fatalf("expected valid config, got %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero sample rate", func(c *Config) { c.SampleRate = 0 }},
		{"three channels", func(c *Config) { c.Channels = 3 }},
		{"no max duration", func(c *Config) { c.MaxRecording = 0 }},
		{"unknown engine", func(c *Config) { c.TranscribeEngine = "vosk" }},
		{"no recordings dir", func(c *Config) { c.RecordingsDir = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatalf("expected validation error")
			}
		})
	}
}
