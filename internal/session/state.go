// Package session holds the per-browser state that threads a recording
// through capture, transcription and analysis across page renders.
package session

import (
	"sync"
	"time"

	"meetingrec/internal/capture"
	"meetingrec/internal/domain"
)

type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Notice is a one-shot message shown on the next render.
type Notice struct {
	Level Level  `json:"level"`
	Text  string `json:"text"`
}

// State is the mutable record of one interactive session. IsRecording is
// true only between BeginRecording and EndRecording.
type State struct {
	mu sync.Mutex

	isRecording bool
	startTime   time.Time
	handle      *capture.Handle

	lastRecording  string
	lastTranscript string
	lastAnalysis   *domain.Analysis
	lastMeetingID  string

	notices []Notice
}

// Snapshot is a read-only copy of State for rendering.
type Snapshot struct {
	IsRecording    bool             `json:"isRecording"`
	StartTime      *time.Time       `json:"startTime,omitempty"`
	LastRecording  string           `json:"lastRecording,omitempty"`
	LastTranscript string           `json:"lastTranscript,omitempty"`
	LastAnalysis   *domain.Analysis `json:"lastAnalysis,omitempty"`
	LastMeetingID  string           `json:"lastMeetingId,omitempty"`
}

func NewState() *State {
	return &State{}
}

// Reset returns the session to its initial empty state. An in-flight capture
// handle is dropped; the caller owns releasing it.
func (s *State) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.isRecording = false
	s.startTime = time.Time{}
	s.handle = nil
	s.lastRecording = ""
	s.lastTranscript = ""
	s.lastAnalysis = nil
	s.lastMeetingID = ""
	s.notices = nil
}

// BeginRecording marks the session as recording. It reports false and
// changes nothing when a recording is already in progress.
func (s *State) BeginRecording(now time.Time, h *capture.Handle) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRecording {
		return false
	}
	s.isRecording = true
	s.startTime = now
	s.handle = h
	return true
}

// EndRecording clears the recording flag and returns the elapsed time and the
// capture handle. ok is false when nothing was in progress.
func (s *State) EndRecording(now time.Time) (elapsed time.Duration, h *capture.Handle, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRecording {
		return 0, nil, false
	}
	elapsed = now.Sub(s.startTime)
	if elapsed < 0 {
		elapsed = 0
	}
	h = s.handle

	s.isRecording = false
	s.startTime = time.Time{}
	s.handle = nil
	return elapsed, h, true
}

// SetLast replaces the results of the previous cycle. A nil analysis clears
// any earlier one.
func (s *State) SetLast(transcript string, analysis *domain.Analysis, recording string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lastTranscript = transcript
	s.lastAnalysis = analysis
	s.lastRecording = recording
	s.lastMeetingID = ""
}

func (s *State) SetMeetingID(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastMeetingID = id
}

func (s *State) IsRecording() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isRecording
}

func (s *State) StartTime() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.startTime
}

func (s *State) LastRecording() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastRecording
}

func (s *State) LastTranscript() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastTranscript
}

func (s *State) LastAnalysis() *domain.Analysis {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastAnalysis
}

func (s *State) AddNotice(level Level, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notices = append(s.notices, Notice{Level: level, Text: text})
}

// TakeNotices returns pending notices and clears them.
func (s *State) TakeNotices() []Notice {
	s.mu.Lock()
	defer s.mu.Unlock()

	notices := s.notices
	s.notices = nil
	return notices
}

func (s *State) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		IsRecording:    s.isRecording,
		LastRecording:  s.lastRecording,
		LastTranscript: s.lastTranscript,
		LastAnalysis:   s.lastAnalysis,
		LastMeetingID:  s.lastMeetingID,
	}
	if s.isRecording {
		start := s.startTime
		snap.StartTime = &start
	}
	return snap
}
