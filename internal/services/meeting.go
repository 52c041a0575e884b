package services

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"meetingrec/internal/analysis"
	"meetingrec/internal/capture"
	"meetingrec/internal/domain"
	"meetingrec/internal/session"
	"meetingrec/internal/storage"
)

const (
	NoticeRecording        = "Recording... Click 'Stop Recording' when finished."
	NoticeAlreadyRecording = "A recording is already in progress."
	NoticeNothingRecording = "No recording in progress!"
	NoticeSaved            = "Recording saved!"
	NoticeAnalysisDone     = "Analysis complete!"
)

// ErrNothingRecording is returned by Stop when the session has no capture in
// flight.
var ErrNothingRecording = errors.New("no recording in progress")

// Result is the outcome of one capture, transcribe and analyze cycle.
type Result struct {
	Recording  storage.Recording `json:"recording"`
	Transcript string            `json:"transcript"`
	Analysis   *domain.Analysis  `json:"analysis,omitempty"`
	MeetingID  string            `json:"meetingId,omitempty"`
}

// MeetingService runs the recording workflow for a session. Every step is a
// blocking call in the caller's goroutine and nothing is retried.
type MeetingService struct {
	recorder    *capture.Recorder
	recordings  *storage.RecordingStore
	meetings    *storage.Store
	transcriber Transcriber
	analyzer    Analyzer
	now         func() time.Time
	log         zerolog.Logger
}

func NewMeetingService(
	recorder *capture.Recorder,
	recordings *storage.RecordingStore,
	meetings *storage.Store,
	transcriber Transcriber,
	analyzer Analyzer,
	log zerolog.Logger,
) *MeetingService {
	return &MeetingService{
		recorder:    recorder,
		recordings:  recordings,
		meetings:    meetings,
		transcriber: transcriber,
		analyzer:    analyzer,
		now:         time.Now,
		log:         log,
	}
}

// Start begins capturing for st. It is a no-op, reporting false, when st is
// already recording.
func (s *MeetingService) Start(st *session.State) (bool, error) {
	if st.IsRecording() {
		st.AddNotice(session.LevelWarning, NoticeAlreadyRecording)
		return false, nil
	}

	now := s.now()
	h, err := s.recorder.Start(now)
	if err != nil {
		s.log.Error().Err(err).Msg("start recording")
		st.AddNotice(session.LevelError, fmt.Sprintf("Could not start recording: %v", err))
		return false, err
	}

	if !st.BeginRecording(now, h) {
		// lost a race with a concurrent start on the same session
		if _, err := s.recorder.Stop(h, 0); err != nil {
			s.log.Warn().Err(err).Msg("release duplicate capture")
		}
		st.AddNotice(session.LevelWarning, NoticeAlreadyRecording)
		return false, nil
	}

	st.AddNotice(session.LevelInfo, NoticeRecording)
	return true, nil
}

// Stop ends the capture of st and runs save, transcribe, analyze and parse.
// Calling it while nothing is recording only adds a notice.
func (s *MeetingService) Stop(ctx context.Context, st *session.State) (Result, error) {
	elapsed, h, ok := st.EndRecording(s.now())
	if !ok {
		st.AddNotice(session.LevelError, NoticeNothingRecording)
		return Result{}, ErrNothingRecording
	}

	buf, err := s.recorder.Stop(h, elapsed)
	if err != nil {
		return Result{}, s.fail(st, err)
	}

	rec, err := s.recordings.Save(buf)
	if err != nil {
		return Result{}, s.fail(st, err)
	}
	st.AddNotice(session.LevelSuccess, NoticeSaved)

	result := Result{Recording: rec}
	transcript, parsed, err := s.process(ctx, rec.Path)
	result.Transcript = transcript

	switch {
	case err == nil:
	case domain.IsKind(err, domain.KindTranscription):
		st.SetLast("", nil, rec.Name)
		return result, s.fail(st, err)
	default:
		// transcript survives, a stale analysis does not
		st.SetLast(transcript, nil, rec.Name)
		return result, s.fail(st, err)
	}

	result.Analysis = &parsed
	st.SetLast(transcript, result.Analysis, rec.Name)
	result.MeetingID = s.archive(st, rec.Name, transcript, result.Analysis)
	st.AddNotice(session.LevelSuccess, NoticeAnalysisDone)
	return result, nil
}

// AnalyzeFile transcribes and analyzes an existing recording and archives the
// result.
func (s *MeetingService) AnalyzeFile(ctx context.Context, path string) (Result, error) {
	transcript, parsed, err := s.process(ctx, path)
	if err != nil {
		return Result{Transcript: transcript}, err
	}

	name := filepath.Base(path)
	result := Result{
		Recording:  storage.Recording{Name: name, Path: path},
		Transcript: transcript,
		Analysis:   &parsed,
	}
	result.Recording.CreatedAt, result.Recording.Seq, _ = storage.ParseRecordingName(name)

	rec, err := s.meetings.CreateMeeting(domain.MeetingRecord{
		Recording:  name,
		Transcript: transcript,
		Analysis:   result.Analysis,
	})
	if err != nil {
		return result, err
	}
	result.MeetingID = rec.ID
	return result, nil
}

func (s *MeetingService) process(ctx context.Context, path string) (string, domain.Analysis, error) {
	log := s.log.With().Str("file", filepath.Base(path)).Logger()

	started := time.Now()
	transcript, err := s.transcriber.Transcribe(ctx, path)
	if err != nil {
		return "", domain.Analysis{}, ensureKind(err, domain.TranscriptionError, "transcribe")
	}
	log.Info().Dur("took", time.Since(started)).Int("chars", len(transcript)).Msg("transcription done")

	started = time.Now()
	raw, err := s.analyzer.Analyze(ctx, transcript)
	if err != nil {
		return transcript, domain.Analysis{}, ensureKind(err, domain.AnalysisTransportError, "analyze")
	}
	log.Info().Dur("took", time.Since(started)).Msg("analysis received")

	parsed, err := analysis.Parse(raw)
	if err != nil {
		log.Warn().Err(err).Msg("analysis rejected")
		return transcript, domain.Analysis{}, err
	}
	return transcript, parsed, nil
}

func (s *MeetingService) archive(st *session.State, recording, transcript string, a *domain.Analysis) string {
	rec, err := s.meetings.CreateMeeting(domain.MeetingRecord{
		Recording:  recording,
		Transcript: transcript,
		Analysis:   a,
	})
	if err != nil {
		s.log.Warn().Err(err).Str("file", recording).Msg("archive meeting")
		st.AddNotice(session.LevelWarning, "The analysis could not be archived; it is only available in this session.")
		return ""
	}
	st.SetMeetingID(rec.ID)
	return rec.ID
}

func (s *MeetingService) fail(st *session.State, err error) error {
	level := session.LevelError
	var prefix string
	switch domain.KindOf(err) {
	case domain.KindDevice:
		prefix = "Audio device error"
	case domain.KindStorage:
		prefix = "Could not save the recording"
	case domain.KindTranscription:
		prefix = "Transcription failed"
	case domain.KindAnalysisTransport:
		prefix = "Error analyzing meeting content"
	case domain.KindAnalysisFormat:
		level = session.LevelWarning
		prefix = "The analysis reply was not usable, try recording again"
	default:
		prefix = "Unexpected error"
	}

	s.log.Error().Err(err).Str("kind", string(domain.KindOf(err))).Msg("meeting workflow failed")
	st.AddNotice(level, fmt.Sprintf("%s: %v", prefix, err))
	return err
}

// ensureKind tags collaborator errors that arrive without a domain kind.
func ensureKind(err error, wrap func(string, error) *domain.Error, op string) error {
	if domain.KindOf(err) != "" {
		return err
	}
	return wrap(op, err)
}
