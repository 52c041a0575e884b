package services

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"meetingrec/internal/capture"
	"meetingrec/internal/domain"
	"meetingrec/internal/session"
	"meetingrec/internal/storage"
)

const validReply = `{
  "executive_summary": "Budget approved.",
  "action_items": [
    {"task": "Send invoice", "assignee": "Dana", "deadline": "Monday", "priority": "HIGH", "dependencies": []},
    {"task": "Plan offsite", "assignee": "Eli", "deadline": "Q3", "priority": "someday", "dependencies": ["budget"]}
  ],
  "key_decisions": ["Approve budget"],
  "mermaid_diagram": "A[Start] --> B[Budget]"
}`

type fakeTranscriber struct {
	text  string
	err   error
	calls int
}

func (f *fakeTranscriber) Transcribe(ctx context.Context, path string) (string, error) {
	f.calls++
	return f.text, f.err
}

type fakeAnalyzer struct {
	reply string
	err   error
	got   string
}

func (f *fakeAnalyzer) Analyze(ctx context.Context, transcript string) (string, error) {
	f.got = transcript
	return f.reply, f.err
}

type fixture struct {
	svc         *MeetingService
	device      *capture.FakeDevice
	recordings  *storage.RecordingStore
	meetings    *storage.Store
	transcriber *fakeTranscriber
	analyzer    *fakeAnalyzer
	clock       time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	dir := t.TempDir()
	f := &fixture{
		device:      &capture.FakeDevice{Samples: make([]float32, 16000)},
		transcriber: &fakeTranscriber{text: "we approved the budget"},
		analyzer:    &fakeAnalyzer{reply: validReply},
		clock:       time.Date(2024, 6, 1, 9, 30, 0, 0, time.Local),
	}

	recorder := capture.NewRecorder(capture.Format{SampleRate: 8000, Channels: 1}, time.Minute, capture.FakeOpener(f.device, nil), zerolog.Nop())
	f.recordings = storage.NewRecordingStore(filepath.Join(dir, "recordings"), zerolog.Nop())

	meetings, err := storage.NewStore(filepath.Join(dir, "data"))
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	f.meetings = meetings

	f.svc = NewMeetingService(recorder, f.recordings, f.meetings, f.transcriber, f.analyzer, zerolog.Nop())
	f.svc.now = func() time.Time { return f.clock }
	return f
}

func (f *fixture) record(t *testing.T, st *session.State, d time.Duration) (Result, error) {
	t.Helper()
	started, err := f.svc.Start(st)
	if err != nil || !started {
		t.Fatalf("start: %v %v", started, err)
	}
	f.clock = f.clock.Add(d)
	return f.svc.Stop(context.Background(), st)
}

func hasNotice(notices []session.Notice, level session.Level, text string) bool {
	for _, n := range notices {
		if n.Level == level && n.Text == text {
			return true
		}
	}
	return false
}

func TestStopRunsFullWorkflow(t *testing.T) {
	f := newFixture(t)
	st := session.NewState()

	result, err := f.record(t, st, 2*time.Second)
	if err != nil {
		t.Fatalf("stop: %v", err)
	}

	if _, _, ok := storage.ParseRecordingName(result.Recording.Name); !ok {
		t.Fatalf("unexpected recording name %q", result.Recording.Name)
	}
	d, err := f.recordings.Duration(result.Recording.Name)
	if err != nil || d != 2*time.Second {
		t.Fatalf("expected 2s recording, got %s (%v)", d, err)
	}
	if f.analyzer.got != "we approved the budget" {
		t.Fatalf("analyzer got %q", f.analyzer.got)
	}
	if result.Analysis == nil || len(result.Analysis.ActionItems) != 2 {
		t.Fatalf("unexpected analysis %+v", result.Analysis)
	}
	if result.Analysis.ActionItems[0].Priority != domain.PriorityHigh {
		t.Fatalf("priority not normalized: %q", result.Analysis.ActionItems[0].Priority)
	}

	snap := st.Snapshot()
	if snap.IsRecording || snap.LastTranscript != "we approved the budget" || snap.LastAnalysis == nil {
		t.Fatalf("unexpected session %+v", snap)
	}
	if snap.LastMeetingID == "" || snap.LastMeetingID != result.MeetingID {
		t.Fatalf("meeting not archived: %+v", snap)
	}
	if _, err := f.meetings.GetMeeting(result.MeetingID); err != nil {
		t.Fatalf("archived meeting missing: %v", err)
	}

	notices := st.TakeNotices()
	if !hasNotice(notices, session.LevelSuccess, NoticeSaved) || !hasNotice(notices, session.LevelSuccess, NoticeAnalysisDone) {
		t.Fatalf("missing success notices: %+v", notices)
	}
	if !f.device.Closed() {
		t.Fatalf("device should be released after stop")
	}
}

func TestStopWithoutStartIsNoop(t *testing.T) {
	f := newFixture(t)
	st := session.NewState()

	_, err := f.svc.Stop(context.Background(), st)
	if !errors.Is(err, ErrNothingRecording) {
		t.Fatalf("expected nothing recording, got %v", err)
	}
	if !hasNotice(st.TakeNotices(), session.LevelError, NoticeNothingRecording) {
		t.Fatalf("expected nothing-in-progress notice")
	}
	if f.transcriber.calls != 0 {
		t.Fatalf("transcriber must not run")
	}
	list, _ := f.recordings.List()
	if len(list) != 0 {
		t.Fatalf("no recording should be written, got %d", len(list))
	}
}

func TestStartTwiceIsNoop(t *testing.T) {
	f := newFixture(t)
	st := session.NewState()

	if started, err := f.svc.Start(st); err != nil || !started {
		t.Fatalf("first start: %v %v", started, err)
	}
	started, err := f.svc.Start(st)
	if err != nil || started {
		t.Fatalf("second start must be a no-op, got %v %v", started, err)
	}
	if !hasNotice(st.TakeNotices(), session.LevelWarning, NoticeAlreadyRecording) {
		t.Fatalf("expected already-recording notice")
	}
}

func TestStartDeviceErrorLeavesSessionIdle(t *testing.T) {
	dir := t.TempDir()
	recorder := capture.NewRecorder(capture.Format{SampleRate: 8000, Channels: 1}, time.Minute,
		capture.FakeOpener(nil, errors.New("no microphone")), zerolog.Nop())
	meetings, err := storage.NewStore(dir)
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	svc := NewMeetingService(recorder, storage.NewRecordingStore(dir, zerolog.Nop()), meetings, &fakeTranscriber{}, &fakeAnalyzer{}, zerolog.Nop())

	st := session.NewState()
	_, err = svc.Start(st)
	if !domain.IsKind(err, domain.KindDevice) {
		t.Fatalf("expected device error, got %v", err)
	}
	if st.IsRecording() {
		t.Fatalf("session must not be recording after device failure")
	}
}

func TestMalformedReplyKeepsTranscriptClearsAnalysis(t *testing.T) {
	f := newFixture(t)
	st := session.NewState()
	st.SetLast("old transcript", &domain.Analysis{ExecutiveSummary: "stale"}, "old.wav")

	f.analyzer.reply = "{'executive_summary': 'not json'}"
	_, err := f.record(t, st, time.Second)
	if !domain.IsKind(err, domain.KindAnalysisFormat) {
		t.Fatalf("expected analysis format error, got %v", err)
	}

	snap := st.Snapshot()
	if snap.LastTranscript != "we approved the budget" {
		t.Fatalf("transcript should be kept, got %q", snap.LastTranscript)
	}
	if snap.LastAnalysis != nil {
		t.Fatalf("stale analysis must be cleared")
	}

	notices := st.TakeNotices()
	var warned bool
	for _, n := range notices {
		if n.Level == session.LevelWarning {
			warned = true
		}
	}
	if !warned {
		t.Fatalf("expected a recoverable warning notice, got %+v", notices)
	}
	if len(f.meetings.ListMeetings()) != 0 {
		t.Fatalf("failed analysis must not be archived")
	}
}

func TestTranscriptionFailureStopsChain(t *testing.T) {
	f := newFixture(t)
	st := session.NewState()
	f.transcriber.err = errors.New("model crashed")

	result, err := f.record(t, st, time.Second)
	if !domain.IsKind(err, domain.KindTranscription) {
		t.Fatalf("expected transcription error, got %v", err)
	}
	if f.analyzer.got != "" {
		t.Fatalf("analyzer must not run after transcription failure")
	}
	snap := st.Snapshot()
	if snap.LastRecording != result.Recording.Name || snap.LastTranscript != "" {
		t.Fatalf("unexpected session %+v", snap)
	}
}

func TestAnalyzerTransportFailure(t *testing.T) {
	f := newFixture(t)
	st := session.NewState()
	f.analyzer.err = domain.AnalysisTransportError("analyze", errors.New("connection refused"))

	_, err := f.record(t, st, time.Second)
	if !domain.IsKind(err, domain.KindAnalysisTransport) {
		t.Fatalf("expected transport error, got %v", err)
	}
	if st.LastAnalysis() != nil {
		t.Fatalf("no analysis should be fabricated")
	}
}

func TestAnalyzeFileArchives(t *testing.T) {
	f := newFixture(t)

	result, err := f.svc.AnalyzeFile(context.Background(), "/tmp/audio_20240101_080000.wav")
	if err != nil {
		t.Fatalf("analyze file: %v", err)
	}
	if result.MeetingID == "" || result.Recording.Name != "audio_20240101_080000.wav" {
		t.Fatalf("unexpected result %+v", result)
	}
	if result.Recording.CreatedAt.IsZero() {
		t.Fatalf("timestamp should be parsed from the name")
	}
}

func TestAbandonedRecordingDoesNotLockOtherSessions(t *testing.T) {
	f := newFixture(t)
	abandoned := session.NewState()
	other := session.NewState()

	if started, err := f.svc.Start(abandoned); err != nil || !started {
		t.Fatalf("start abandoned: %v %v", started, err)
	}

	f.clock = f.clock.Add(24 * time.Hour)
	started, err := f.svc.Start(other)
	if err != nil || !started {
		t.Fatalf("second session should take over the device: %v %v", started, err)
	}

	_, err = f.svc.Stop(context.Background(), abandoned)
	if !errors.Is(err, capture.ErrReclaimed) || !domain.IsKind(err, domain.KindDevice) {
		t.Fatalf("expected reclaimed device error, got %v", err)
	}
	if abandoned.IsRecording() {
		t.Fatalf("abandoned session should no longer be recording")
	}

	f.clock = f.clock.Add(2 * time.Second)
	res, err := f.svc.Stop(context.Background(), other)
	if err != nil {
		t.Fatalf("stop other: %v", err)
	}
	if res.Recording.Name == "" {
		t.Fatalf("expected the second session's recording to be saved")
	}
}
