package storage

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/rs/zerolog"

	"meetingrec/internal/capture"
	"meetingrec/internal/domain"
)

const (
	recordingPrefix = "audio_"
	recordingExt    = ".wav"
	timestampLayout = "20060102_150405"
	maxSequence     = 999
	bitDepth        = 16
	wavPCMFormat    = 1

	writeChunkSamples = 64 * 1024
)

var recordingName = regexp.MustCompile(`^audio_(\d{8}_\d{6})(?:_(\d{3}))?\.wav$`)

type Recording struct {
	Name      string    `json:"name"`
	Path      string    `json:"-"`
	CreatedAt time.Time `json:"createdAt"`
	Seq       int       `json:"seq"`
	Size      int64     `json:"size"`
}

// RecordingStore writes captured buffers as timestamped WAV files. Files are
// never updated or removed.
type RecordingStore struct {
	dir string
	now func() time.Time
	log zerolog.Logger
	mu  sync.Mutex
}

func NewRecordingStore(dir string, log zerolog.Logger) *RecordingStore {
	return &RecordingStore{dir: dir, now: time.Now, log: log}
}

func (s *RecordingStore) Dir() string { return s.dir }

// Save writes buf to a new file named after the current second. When that
// name is taken a three digit sequence suffix is added; existing files are
// never overwritten.
func (s *RecordingStore) Save(buf capture.Buffer) (Recording, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return Recording{}, domain.StorageError("create recordings dir", err)
	}

	now := s.now()
	file, name, seq, err := s.createUnique(now)
	if err != nil {
		return Recording{}, domain.StorageError("create recording file", err)
	}
	path := file.Name()

	if err := writeWAV(file, buf); err != nil {
		file.Close()
		os.Remove(path)
		return Recording{}, domain.StorageError("write recording", err)
	}

	if err := file.Close(); err != nil {
		os.Remove(path)
		return Recording{}, domain.StorageError("close recording", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		return Recording{}, domain.StorageError("stat recording", err)
	}

	rec := Recording{
		Name:      name,
		Path:      path,
		CreatedAt: now.Truncate(time.Second),
		Seq:       seq,
		Size:      info.Size(),
	}
	s.log.Info().Str("file", name).Int("frames", buf.Frames()).Int64("bytes", rec.Size).Msg("recording saved")
	return rec, nil
}

func (s *RecordingStore) createUnique(now time.Time) (*os.File, string, int, error) {
	stamp := now.Format(timestampLayout)
	for seq := 0; seq <= maxSequence; seq++ {
		name := recordingPrefix + stamp + recordingExt
		if seq > 0 {
			name = fmt.Sprintf("%s%s_%03d%s", recordingPrefix, stamp, seq, recordingExt)
		}

		file, err := os.OpenFile(filepath.Join(s.dir, name), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if errors.Is(err, fs.ErrExist) {
			continue
		}
		if err != nil {
			return nil, "", 0, err
		}
		return file, name, seq, nil
	}
	return nil, "", 0, fmt.Errorf("more than %d recordings within %s", maxSequence+1, stamp)
}

func writeWAV(file *os.File, buf capture.Buffer) error {
	enc := wav.NewEncoder(file, buf.SampleRate, bitDepth, buf.Channels, wavPCMFormat)

	// One reusable chunk keeps the conversion overhead flat for long meetings.
	chunk := max(writeChunkSamples/buf.Channels, 1) * buf.Channels
	ib := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: buf.Channels, SampleRate: buf.SampleRate},
		Data:           make([]int, 0, min(chunk, len(buf.Samples))),
		SourceBitDepth: bitDepth,
	}
	// An empty buffer still goes through Write so the headers are emitted.
	for start := 0; start == 0 || start < len(buf.Samples); start += chunk {
		part := buf.Samples[start:min(start+chunk, len(buf.Samples))]
		ib.Data = ib.Data[:len(part)]
		for i, v := range part {
			ib.Data[i] = floatToPCM16(v)
		}
		if err := enc.Write(ib); err != nil {
			return fmt.Errorf("encode wav: %w", err)
		}
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("finalize wav: %w", err)
	}
	return nil
}

func floatToPCM16(v float32) int {
	if v > 1 {
		v = 1
	} else if v < -1 {
		v = -1
	}
	return int(v * 32767)
}

// List returns every stored recording, newest first. Files whose name carries
// no timestamp come last, by name descending.
func (s *RecordingStore) List() ([]Recording, error) {
	entries, err := os.ReadDir(s.dir)
	if errors.Is(err, fs.ErrNotExist) {
		return []Recording{}, nil
	}
	if err != nil {
		return nil, domain.StorageError("list recordings", err)
	}

	recordings := make([]Recording, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), recordingExt) {
			continue
		}

		rec := Recording{Name: entry.Name(), Path: filepath.Join(s.dir, entry.Name())}
		rec.CreatedAt, rec.Seq, _ = ParseRecordingName(entry.Name())
		if info, err := entry.Info(); err == nil {
			rec.Size = info.Size()
		}
		recordings = append(recordings, rec)
	}

	SortNewestFirst(recordings)
	return recordings, nil
}

// SortNewestFirst orders recordings by embedded timestamp then sequence,
// both descending.
func SortNewestFirst(recordings []Recording) {
	sort.SliceStable(recordings, func(i, j int) bool {
		a, b := recordings[i], recordings[j]
		if a.CreatedAt.IsZero() != b.CreatedAt.IsZero() {
			return !a.CreatedAt.IsZero()
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		if a.Seq != b.Seq {
			return a.Seq > b.Seq
		}
		return a.Name > b.Name
	})
}

// ParseRecordingName extracts the timestamp and sequence embedded in a
// recording file name.
func ParseRecordingName(name string) (time.Time, int, bool) {
	m := recordingName.FindStringSubmatch(name)
	if m == nil {
		return time.Time{}, 0, false
	}
	ts, err := time.ParseInLocation(timestampLayout, m[1], time.Local)
	if err != nil {
		return time.Time{}, 0, false
	}
	seq := 0
	if m[2] != "" {
		seq, _ = strconv.Atoi(m[2])
	}
	return ts, seq, true
}

// Path resolves a listed recording name to its file.
func (s *RecordingStore) Path(name string) (string, error) {
	if name == "" || name != filepath.Base(name) || !strings.HasSuffix(name, recordingExt) {
		return "", domain.StorageError("resolve recording", fs.ErrNotExist)
	}

	path := filepath.Join(s.dir, name)
	info, err := os.Stat(path)
	if err != nil {
		return "", domain.StorageError("resolve recording", err)
	}
	if info.IsDir() {
		return "", domain.StorageError("resolve recording", fs.ErrNotExist)
	}
	return path, nil
}

// Duration reads the WAV header of a stored recording.
func (s *RecordingStore) Duration(name string) (time.Duration, error) {
	path, err := s.Path(name)
	if err != nil {
		return 0, err
	}

	file, err := os.Open(path)
	if err != nil {
		return 0, domain.StorageError("open recording", err)
	}
	defer file.Close()

	// Decoder.Duration derives the length from the RIFF size and so counts
	// the header; the data chunk length is exact.
	dec := wav.NewDecoder(file)
	dec.ReadInfo()
	if err := dec.Err(); err != nil {
		return 0, domain.StorageError("read recording", fmt.Errorf("%s is not a valid wav file: %w", name, err))
	}
	if err := dec.FwdToPCM(); err != nil {
		return 0, domain.StorageError("read recording", err)
	}
	frameSize := int64(dec.NumChans) * int64(dec.BitDepth) / 8
	if frameSize == 0 || dec.SampleRate == 0 {
		return 0, domain.StorageError("read recording", fmt.Errorf("%s has no audio format", name))
	}
	frames := dec.PCMLen() / frameSize
	return time.Duration(frames) * time.Second / time.Duration(dec.SampleRate), nil
}
