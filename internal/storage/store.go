package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"meetingrec/internal/domain"
)

var ErrMeetingNotFound = errors.New("meeting not found")

type metaData struct {
	Meetings map[string]domain.MeetingRecord `json:"meetings"`
}

// Store archives analysed meetings in a JSON file next to the recordings
// metadata. Writes go through a temp file and rename.
type Store struct {
	mu   sync.RWMutex
	path string
	data metaData
}

func NewStore(baseDir string) (*Store, error) {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}

	store := &Store{path: filepath.Join(baseDir, "meta.json")}
	if err := store.Load(); err != nil {
		return nil, err
	}
	return store, nil
}

func (s *Store) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.data = metaData{Meetings: map[string]domain.MeetingRecord{}}

	file, err := os.Open(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return s.saveLocked()
	}
	if err != nil {
		return fmt.Errorf("open meta file: %w", err)
	}
	defer file.Close()

	if err := json.NewDecoder(file).Decode(&s.data); err != nil {
		if errors.Is(err, io.EOF) {
			return s.saveLocked()
		}
		return fmt.Errorf("decode meta file: %w", err)
	}

	if s.data.Meetings == nil {
		s.data.Meetings = map[string]domain.MeetingRecord{}
	}
	return nil
}

func (s *Store) CreateMeeting(rec domain.MeetingRecord) (domain.MeetingRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt == 0 {
		rec.CreatedAt = time.Now().Unix()
	}

	s.data.Meetings[rec.ID] = rec

	if err := s.saveLocked(); err != nil {
		delete(s.data.Meetings, rec.ID)
		return domain.MeetingRecord{}, domain.StorageError("save meeting", err)
	}
	return rec, nil
}

func (s *Store) GetMeeting(id string) (domain.MeetingRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.data.Meetings[id]
	if !ok {
		return domain.MeetingRecord{}, fmt.Errorf("meeting %s: %w", id, ErrMeetingNotFound)
	}
	return rec, nil
}

// ListMeetings returns archived meetings, newest first.
func (s *Store) ListMeetings() []domain.MeetingRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	meetings := make([]domain.MeetingRecord, 0, len(s.data.Meetings))
	for _, rec := range s.data.Meetings {
		meetings = append(meetings, rec)
	}
	sort.Slice(meetings, func(i, j int) bool {
		if meetings[i].CreatedAt != meetings[j].CreatedAt {
			return meetings[i].CreatedAt > meetings[j].CreatedAt
		}
		return meetings[i].Recording > meetings[j].Recording
	})
	return meetings
}

// AnalyzedRecordings returns the set of recording names with an archived
// analysis.
func (s *Store) AnalyzedRecordings() map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]string, len(s.data.Meetings))
	for id, rec := range s.data.Meetings {
		if rec.Analysis != nil {
			out[rec.Recording] = id
		}
	}
	return out
}

func (s *Store) saveLocked() error {
	tmp, err := os.CreateTemp(filepath.Dir(s.path), "meta-*.json")
	if err != nil {
		return fmt.Errorf("create temp meta: %w", err)
	}

	encoder := json.NewEncoder(tmp)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(s.data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("encode meta: %w", err)
	}

	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close temp meta: %w", err)
	}

	if err := os.Rename(tmp.Name(), s.path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("replace meta file: %w", err)
	}

	return nil
}
