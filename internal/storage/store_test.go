package storage

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"meetingrec/internal/domain"
)

func TestStorePersistsMeetings(t *testing.T) {
	dir := t.TempDir()

	store, err := NewStore(dir)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}

	older, err := store.CreateMeeting(domain.MeetingRecord{
		Recording:  "audio_20240101_090000.wav",
		Transcript: "first",
		CreatedAt:  100,
	})
	if err != nil {
		t.Fatalf("create older: %v", err)
	}
	newer, err := store.CreateMeeting(domain.MeetingRecord{
		Recording:  "audio_20240101_100000.wav",
		Transcript: "second",
		Analysis:   &domain.Analysis{ExecutiveSummary: "summary"},
		CreatedAt:  200,
	})
	if err != nil {
		t.Fatalf("create newer: %v", err)
	}
	if older.ID == "" || newer.ID == "" || older.ID == newer.ID {
		t.Fatalf("expected distinct generated ids")
	}

	reopened, err := NewStore(dir)
	if err != nil {
		t.Fatalf("reopen store: %v", err)
	}

	got, err := reopened.GetMeeting(newer.ID)
	if err != nil {
		t.Fatalf("get meeting: %v", err)
	}
	if got.Analysis == nil || got.Analysis.ExecutiveSummary != "summary" {
		t.Fatalf("analysis not persisted: %+v", got)
	}

	list := reopened.ListMeetings()
	if len(list) != 2 || list[0].ID != newer.ID {
		t.Fatalf("expected newest first, got %+v", list)
	}

	analyzed := reopened.AnalyzedRecordings()
	if len(analyzed) != 1 || analyzed["audio_20240101_100000.wav"] != newer.ID {
		t.Fatalf("unexpected analysed set %v", analyzed)
	}
}

func TestStoreGetMissing(t *testing.T) {
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	if _, err := store.GetMeeting("nope"); !errors.Is(err, ErrMeetingNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestStoreEmptyMetaFile(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "meta.json"), nil, 0o644); err != nil {
		t.Fatalf("write meta: %v", err)
	}
	store, err := NewStore(dir)
	if err != nil {
		t.Fatalf("empty meta file should load: %v", err)
	}
	if len(store.ListMeetings()) != 0 {
		t.Fatalf("expected no meetings")
	}
}

func TestFileManagerScratchDir(t *testing.T) {
	fm, err := NewFileManager(t.TempDir())
	if err != nil {
		t.Fatalf("file manager: %v", err)
	}

	dir, cleanup, err := fm.ScratchDir("whisper")
	if err != nil {
		t.Fatalf("scratch dir: %v", err)
	}
	if _, err := os.Stat(dir); err != nil {
		t.Fatalf("scratch dir missing: %v", err)
	}
	cleanup()
	if _, err := os.Stat(dir); !os.IsNotExist(err) {
		t.Fatalf("scratch dir should be removed, got %v", err)
	}

	if filepath.Dir(fm.PDFPath("abc")) != filepath.Join(fm.BaseDir(), "pdf") {
		t.Fatalf("unexpected pdf path %s", fm.PDFPath("abc"))
	}
}
