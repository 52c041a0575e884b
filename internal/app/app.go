// Package app wires the services shared by the server and CLI commands.
package app

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"github.com/rs/zerolog"

	"meetingrec/internal/capture"
	"meetingrec/internal/config"
	"meetingrec/internal/executor"
	"meetingrec/internal/logging"
	"meetingrec/internal/services"
	"meetingrec/internal/session"
	"meetingrec/internal/storage"
)

type App struct {
	Config     config.Config
	Log        zerolog.Logger
	Files      *storage.FileManager
	Recordings *storage.RecordingStore
	Meetings   *storage.Store
	Meeting    *services.MeetingService
	PDF        *services.PDFService
	Sessions   *session.Manager
}

// New builds the application with the default input device.
func New(cfg config.Config, log zerolog.Logger) (*App, error) {
	return NewWithOpener(cfg, log, capture.OpenDefault)
}

// NewWithOpener builds the application with a custom capture backend.
func NewWithOpener(cfg config.Config, log zerolog.Logger, open capture.Opener) (*App, error) {
	fm, err := storage.NewFileManager(cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("init file manager: %w", err)
	}

	meetings, err := storage.NewStore(cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("init store: %w", err)
	}

	recordings := storage.NewRecordingStore(cfg.RecordingsDir, logging.Component(log, "recordings"))

	recorder := capture.NewRecorder(
		capture.Format{SampleRate: cfg.SampleRate, Channels: cfg.Channels},
		cfg.MaxRecording,
		open,
		logging.Component(log, "capture"),
	)

	openaiSvc := services.NewOpenAIService(cfg, logging.Component(log, "openai"))
	exec := executor.New(logging.Component(log, "exec"))

	transcriber, err := services.NewTranscriber(cfg, exec, fm, openaiSvc, logging.Component(log, "transcribe"))
	if err != nil {
		return nil, fmt.Errorf("init transcriber: %w", err)
	}

	secret, err := sessionSecret(cfg, log)
	if err != nil {
		return nil, err
	}

	meeting := services.NewMeetingService(recorder, recordings, meetings, transcriber, openaiSvc, logging.Component(log, "meeting"))

	return &App{
		Config:     cfg,
		Log:        log,
		Files:      fm,
		Recordings: recordings,
		Meetings:   meetings,
		Meeting:    meeting,
		PDF:        services.NewPDFService(),
		Sessions:   session.NewManager(secret, cfg.SessionTTL),
	}, nil
}

// sessionSecret returns the configured cookie secret, or a random one when the
// operator left the placeholder in place.
func sessionSecret(cfg config.Config, log zerolog.Logger) (string, error) {
	if cfg.HasSessionSecret() {
		return cfg.SessionSecret, nil
	}

	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate session secret: %w", err)
	}
	log.Warn().Msg("session_secret is not set; using a random secret, sessions will not survive a restart")
	return hex.EncodeToString(buf), nil
}
