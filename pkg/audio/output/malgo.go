//go:build malgo

// ABOUTME: Malgo-based playback device
// ABOUTME: Uses miniaudio via malgo with a float32 data callback
package output

import (
	"sync"

	"github.com/Resonate-Protocol/slotstream/pkg/audio"
	"github.com/gen2brain/malgo"
	"github.com/ossrs/go-oryx-lib/errors"
	"github.com/ossrs/go-oryx-lib/logger"
)

func init() {
	Register("malgo", func(sampleRate int) (Device, error) {
		return NewMalgo(sampleRate)
	})
}

// Malgo plays the timeline from the miniaudio data callback
type Malgo struct {
	tl       *timeline
	malgoCtx *malgo.AllocatedContext
	device   *malgo.Device
	mu       sync.Mutex
	closed   bool
}

// NewMalgo initializes miniaudio and starts a float32 stereo playback device
func NewMalgo(sampleRate int) (*Malgo, error) {
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, errors.Wrapf(err, "initialize malgo context")
	}

	m := &Malgo{
		tl:       newTimeline(sampleRate),
		malgoCtx: ctx,
	}

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Playback)
	deviceConfig.Playback.Format = malgo.FormatF32
	deviceConfig.Playback.Channels = audio.Channels
	deviceConfig.SampleRate = uint32(sampleRate)
	deviceConfig.Alsa.NoMMap = 1

	callbacks := malgo.DeviceCallbacks{
		Data: func(pOutput, pInput []byte, frameCount uint32) {
			m.tl.renderInterleaved(pOutput[:int(frameCount)*audio.FrameSize])
		},
	}

	device, err := malgo.InitDevice(ctx.Context, deviceConfig, callbacks)
	if err != nil {
		m.freeContext()
		return nil, errors.Wrapf(err, "initialize playback device")
	}

	if err := device.Start(); err != nil {
		device.Uninit()
		m.freeContext()
		return nil, errors.Wrapf(err, "start device")
	}
	m.device = device

	logger.Tf(logCtx, "Audio output initialized: %dHz, %d channels (malgo/f32)", sampleRate, audio.Channels)
	return m, nil
}

// SampleRate returns the device rate
func (m *Malgo) SampleRate() int { return m.tl.rate }

// CurrentTime returns seconds rendered by the callback
func (m *Malgo) CurrentTime() float64 { return m.tl.currentTime() }

// Schedule places a copy of the planes on the timeline
func (m *Malgo) Schedule(left, right []float32, startTime float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return errors.New("malgo output closed")
	}
	m.tl.schedule(left, right, startTime)
	return nil
}

// Stats returns timeline statistics
func (m *Malgo) Stats() TimelineStats { return m.tl.stats() }

// Close stops the device and releases the miniaudio context
func (m *Malgo) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil
	}
	m.closed = true

	if m.device != nil {
		if err := m.device.Stop(); err != nil {
			logger.Wf(logCtx, "Warning: device stop error: %v", err)
		}
		m.device.Uninit()
		m.device = nil
	}
	m.freeContext()
	return nil
}

func (m *Malgo) freeContext() {
	if m.malgoCtx == nil {
		return
	}
	if err := m.malgoCtx.Uninit(); err != nil {
		logger.Wf(logCtx, "Warning: malgo context uninit error: %v", err)
	}
	m.malgoCtx.Free()
	m.malgoCtx = nil
}
