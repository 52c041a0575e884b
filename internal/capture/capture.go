// Package capture buffers microphone audio between a start and a stop action.
package capture

import (
	"errors"
	"math"
	"slices"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"meetingrec/internal/domain"
)

var (
	ErrDeviceBusy   = errors.New("input device busy: another recording is in progress")
	ErrNotCapturing = errors.New("no capture in progress")
	ErrReclaimed    = errors.New("capture exceeded the maximum duration and was released")
)

type Format struct {
	SampleRate int
	Channels   int
}

// Buffer holds interleaved float32 samples.
type Buffer struct {
	Format
	Samples []float32
}

func (b Buffer) Frames() int {
	if b.Channels <= 0 {
		return 0
	}
	return len(b.Samples) / b.Channels
}

func (b Buffer) Duration() time.Duration {
	if b.SampleRate <= 0 {
		return 0
	}
	return time.Duration(b.Frames()) * time.Second / time.Duration(b.SampleRate)
}

// DataCallback receives interleaved samples. The slice is only valid for the
// duration of the call.
type DataCallback func(samples []float32)

// Device is an opened input device.
type Device interface {
	Start(cb DataCallback) error
	Stop() error
	Close() error
}

// Opener opens the default input device for the given format.
type Opener func(Format) (Device, error)

// Handle is an in-flight capture.
type Handle struct {
	dev       Device
	startedAt time.Time
	limit     int

	once sync.Once

	mu        sync.Mutex
	samples   []float32
	reclaimed bool
}

func (h *Handle) StartedAt() time.Time { return h.startedAt }

// release stops and closes the device. Only the first call touches it.
func (h *Handle) release(log zerolog.Logger) {
	h.once.Do(func() {
		if err := h.dev.Stop(); err != nil {
			log.Warn().Err(err).Msg("stop input device")
		}
		if err := h.dev.Close(); err != nil {
			log.Warn().Err(err).Msg("close input device")
		}
	})
}

func (h *Handle) append(in []float32) {
	h.mu.Lock()
	defer h.mu.Unlock()

	room := h.limit - len(h.samples)
	if room <= 0 {
		return
	}
	if len(in) > room {
		in = in[:room]
	}
	h.samples = append(h.samples, in...)
}

// Recorder owns the input device. At most one capture is active at a time.
type Recorder struct {
	format      Format
	maxDuration time.Duration
	open        Opener
	log         zerolog.Logger

	mu     sync.Mutex
	active *Handle
}

func NewRecorder(format Format, maxDuration time.Duration, open Opener, log zerolog.Logger) *Recorder {
	return &Recorder{
		format:      format,
		maxDuration: maxDuration,
		open:        open,
		log:         log,
	}
}

func (r *Recorder) Format() Format { return r.format }

func (r *Recorder) MaxFrames() int {
	return FramesFor(r.maxDuration, r.format.SampleRate)
}

// Busy reports whether a capture currently holds the device.
func (r *Recorder) Busy() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active != nil
}

func (r *Recorder) Start(now time.Time) (*Handle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.active != nil {
		// A capture past its maximum duration has been abandoned, most
		// likely by a closed tab, and no longer owns the device.
		if !now.After(r.active.startedAt.Add(r.maxDuration)) {
			return nil, domain.DeviceError("start capture", ErrDeviceBusy)
		}
		r.reclaimLocked(now)
	}

	dev, err := r.open(r.format)
	if err != nil {
		return nil, domain.DeviceError("open input device", err)
	}

	h := &Handle{
		dev:       dev,
		startedAt: now,
		limit:     r.MaxFrames() * r.format.Channels,
	}

	if err := dev.Start(h.append); err != nil {
		_ = dev.Close()
		return nil, domain.DeviceError("start input device", err)
	}

	r.active = h
	r.log.Info().
		Int("sample_rate", r.format.SampleRate).
		Int("channels", r.format.Channels).
		Dur("max_duration", r.maxDuration).
		Msg("capture started")
	return h, nil
}

// Stop releases the device and returns exactly elapsed worth of audio, capped
// at the maximum duration. Frames the device did not deliver are silence.
func (r *Recorder) Stop(h *Handle, elapsed time.Duration) (Buffer, error) {
	if h == nil {
		return Buffer{}, domain.DeviceError("stop capture", ErrNotCapturing)
	}

	h.release(r.log)

	r.mu.Lock()
	if r.active == h {
		r.active = nil
	}
	r.mu.Unlock()

	frames := min(FramesFor(elapsed, r.format.SampleRate), r.MaxFrames())

	h.mu.Lock()
	if h.reclaimed {
		h.mu.Unlock()
		return Buffer{}, domain.DeviceError("stop capture", ErrReclaimed)
	}
	captured := len(h.samples) / r.format.Channels
	samples := fit(h.samples, frames*r.format.Channels)
	h.samples = nil
	h.mu.Unlock()

	r.log.Info().
		Dur("elapsed", elapsed).
		Int("frames", frames).
		Int("captured_frames", captured).
		Msg("capture stopped")

	return Buffer{Format: r.format, Samples: samples}, nil
}

func (r *Recorder) reclaimLocked(now time.Time) {
	h := r.active
	r.active = nil
	h.release(r.log)

	h.mu.Lock()
	h.samples = nil
	h.reclaimed = true
	h.mu.Unlock()

	r.log.Warn().
		Time("started_at", h.startedAt).
		Dur("age", now.Sub(h.startedAt)).
		Dur("max_duration", r.maxDuration).
		Msg("reclaimed abandoned capture")
}

// FramesFor converts a duration into a frame count at rate, rounded to the
// nearest frame.
func FramesFor(d time.Duration, rate int) int {
	if d <= 0 || rate <= 0 {
		return 0
	}
	return int(math.Round(d.Seconds() * float64(rate)))
}

// fit resizes samples to exactly n, reusing the backing array when it is
// large enough. Missing samples are zero.
func fit(samples []float32, n int) []float32 {
	if len(samples) >= n {
		return samples[:n]
	}
	pad := n - len(samples)
	samples = slices.Grow(samples, pad)[:n]
	clear(samples[n-pad:])
	return samples
}
