package capture

import (
	"encoding/binary"
	"fmt"
	"math"
	"sync/atomic"

	"github.com/gen2brain/malgo"
)

type malgoDevice struct {
	ctx      *malgo.AllocatedContext
	device   *malgo.Device
	channels int
	callback atomic.Pointer[DataCallback]
}

// OpenDefault opens the system default capture device through miniaudio.
func OpenDefault(format Format) (Device, error) {
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, fmt.Errorf("malgo context: %w", err)
	}

	d := &malgoDevice{ctx: ctx, channels: format.Channels}

	cfg := malgo.DefaultDeviceConfig(malgo.Capture)
	cfg.Capture.Format = malgo.FormatF32
	cfg.Capture.Channels = uint32(format.Channels)
	cfg.SampleRate = uint32(format.SampleRate)

	callbacks := malgo.DeviceCallbacks{
		Data: func(_, input []byte, frameCount uint32) {
			cb := d.callback.Load()
			if cb == nil {
				return
			}
			(*cb)(decodeF32(input, int(frameCount)*d.channels))
		},
	}

	device, err := malgo.InitDevice(ctx.Context, cfg, callbacks)
	if err != nil {
		_ = ctx.Uninit()
		ctx.Free()
		return nil, fmt.Errorf("malgo init device: %w", err)
	}
	d.device = device
	return d, nil
}

func (d *malgoDevice) Start(cb DataCallback) error {
	d.callback.Store(&cb)
	if err := d.device.Start(); err != nil {
		d.callback.Store(nil)
		return fmt.Errorf("malgo start: %w", err)
	}
	return nil
}

func (d *malgoDevice) Stop() error {
	defer d.callback.Store(nil)
	return d.device.Stop()
}

func (d *malgoDevice) Close() error {
	d.device.Uninit()
	err := d.ctx.Uninit()
	d.ctx.Free()
	return err
}

func decodeF32(data []byte, n int) []float32 {
	if limit := len(data) / 4; n > limit {
		n = limit
	}
	out := make([]float32, n)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return out
}
