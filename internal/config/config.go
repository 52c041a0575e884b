package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

const (
	EngineLocal  = "local"
	EngineOpenAI = "openai"

	// DefaultSessionSecret is the placeholder secret. It is never used to
	// sign cookies; a random per-process secret replaces it.
	DefaultSessionSecret = "change-me"
)

type Config struct {
	Port string

	OpenAIAPIKey          string
	OpenAIBaseURL         string
	OpenAIModelAnalysis   string
	OpenAIModelTranscribe string
	OpenAITimeout         time.Duration

	TranscribeEngine string
	WhisperBinary    string
	WhisperModel     string
	WhisperLanguage  string
	WhisperThreads   int
	FFmpegBinary     string

	SampleRate   int
	Channels     int
	MaxRecording time.Duration

	RecordingsDir string
	DataDir       string

	SessionSecret string
	SessionTTL    time.Duration

	LogLevel  string
	LogFormat string
	LogFile   string
}

var defaults = map[string]any{
	"port":                    "8080",
	"openai_api_key":          "",
	"openai_base_url":         "https://api.openai.com/v1",
	"openai_model_analysis":   "gpt-4o",
	"openai_model_transcribe": "whisper-1",
	"openai_timeout":          "10m",
	"transcribe_engine":       EngineLocal,
	"whisper_binary":          "whisper-cli",
	"whisper_model":           "models/ggml-base.bin",
	"whisper_language":        "auto",
	"whisper_threads":         4,
	"ffmpeg_binary":           "ffmpeg",
	"sample_rate":             44100,
	"channels":                1,
	"max_recording":           "1h",
	"recordings_dir":          "recordings",
	"data_dir":                "data",
	"session_secret":          DefaultSessionSecret,
	"session_ttl":             "24h",
	"log_level":               "info",
	"log_format":              "console",
	"log_file":                "",
}

// LoadConfig resolves defaults, an optional YAML file and the environment, in
// increasing order of precedence. An empty configFile looks for ./config.yml.
func LoadConfig(configFile string) (Config, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config file %s: %w", configFile, err)
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return Config{}, fmt.Errorf("read config.yml: %w", err)
			}
		}
	}

	v.AutomaticEnv()

	cfg := Config{
		Port:                  v.GetString("port"),
		OpenAIAPIKey:          v.GetString("openai_api_key"),
		OpenAIBaseURL:         v.GetString("openai_base_url"),
		OpenAIModelAnalysis:   v.GetString("openai_model_analysis"),
		OpenAIModelTranscribe: v.GetString("openai_model_transcribe"),
		OpenAITimeout:         v.GetDuration("openai_timeout"),
		TranscribeEngine:      v.GetString("transcribe_engine"),
		WhisperBinary:         v.GetString("whisper_binary"),
		WhisperModel:          v.GetString("whisper_model"),
		WhisperLanguage:       v.GetString("whisper_language"),
		WhisperThreads:        v.GetInt("whisper_threads"),
		FFmpegBinary:          v.GetString("ffmpeg_binary"),
		SampleRate:            v.GetInt("sample_rate"),
		Channels:              v.GetInt("channels"),
		MaxRecording:          v.GetDuration("max_recording"),
		RecordingsDir:         v.GetString("recordings_dir"),
		DataDir:               v.GetString("data_dir"),
		SessionSecret:         v.GetString("session_secret"),
		SessionTTL:            v.GetDuration("session_ttl"),
		LogLevel:              v.GetString("log_level"),
		LogFormat:             v.GetString("log_format"),
		LogFile:               v.GetString("log_file"),
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	var err error
	if cfg.RecordingsDir, err = filepath.Abs(cfg.RecordingsDir); err != nil {
		return Config{}, fmt.Errorf("resolve recordings dir: %w", err)
	}
	if cfg.DataDir, err = filepath.Abs(cfg.DataDir); err != nil {
		return Config{}, fmt.Errorf("resolve data dir: %w", err)
	}

	return cfg, nil
}

// HasSessionSecret reports whether an operator configured a real secret.
func (c Config) HasSessionSecret() bool {
	return c.SessionSecret != "" && c.SessionSecret != DefaultSessionSecret
}

func (c Config) Validate() error {
	if c.SampleRate <= 0 {
		return fmt.Errorf("sample_rate must be positive, got %d", c.SampleRate)
	}
	if c.Channels != 1 && c.Channels != 2 {
		return fmt.Errorf("channels must be 1 or 2, got %d", c.Channels)
	}
	if c.MaxRecording <= 0 {
		return fmt.Errorf("max_recording must be positive, got %s", c.MaxRecording)
	}
	switch c.TranscribeEngine {
	case EngineLocal, EngineOpenAI:
	default:
		return fmt.Errorf("transcribe_engine must be %q or %q, got %q", EngineLocal, EngineOpenAI, c.TranscribeEngine)
	}
	if c.RecordingsDir == "" {
		return errors.New("recordings_dir is required")
	}
	if c.DataDir == "" {
		return errors.New("data_dir is required")
	}
	return nil
}
