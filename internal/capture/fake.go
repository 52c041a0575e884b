package capture

import "sync"

// FakeDevice replays a fixed sample slice on Start, in chunks of ChunkSize
// samples.
type FakeDevice struct {
	Samples   []float32
	ChunkSize int
	StartErr  error

	mu      sync.Mutex
	started bool
	closes  int
}

func (f *FakeDevice) Start(cb DataCallback) error {
	if f.StartErr != nil {
		return f.StartErr
	}
	f.mu.Lock()
	f.started = true
	f.mu.Unlock()

	chunk := f.ChunkSize
	if chunk <= 0 {
		chunk = 1024
	}
	for pos := 0; pos < len(f.Samples); pos += chunk {
		end := min(pos+chunk, len(f.Samples))
		cb(f.Samples[pos:end])
	}
	return nil
}

func (f *FakeDevice) Stop() error {
	f.mu.Lock()
	f.started = false
	f.mu.Unlock()
	return nil
}

func (f *FakeDevice) Close() error {
	f.mu.Lock()
	f.closes++
	f.mu.Unlock()
	return nil
}

func (f *FakeDevice) Closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closes > 0
}

// CloseCount reports how many times Close was called.
func (f *FakeDevice) CloseCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closes
}

// FakeOpener returns an Opener handing out dev, or failing with err.
func FakeOpener(dev *FakeDevice, err error) Opener {
	return func(Format) (Device, error) {
		if err != nil {
			return nil, err
		}
		return dev, nil
	}
}
