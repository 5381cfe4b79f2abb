//go:build portaudio

// ABOUTME: PortAudio playback device
// ABOUTME: Cross-platform output rendering the timeline from a non-interleaved callback
package output

import (
	"sync"

	"github.com/Resonate-Protocol/slotstream/pkg/audio"
	"github.com/gordonklaus/portaudio"
	"github.com/ossrs/go-oryx-lib/errors"
	"github.com/ossrs/go-oryx-lib/logger"
)

func init() {
	Register("portaudio", func(sampleRate int) (Device, error) {
		return NewPortAudio(sampleRate)
	})
}

// PortAudio plays the timeline through the default output stream
type PortAudio struct {
	tl     *timeline
	stream *portaudio.Stream
	mu     sync.Mutex
	closed bool
}

// NewPortAudio initializes PortAudio and starts the default output stream
func NewPortAudio(sampleRate int) (*PortAudio, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, errors.Wrapf(err, "initialize portaudio")
	}

	p := &PortAudio{tl: newTimeline(sampleRate)}

	stream, err := portaudio.OpenDefaultStream(0, audio.Channels, float64(sampleRate), 0, func(out [][]float32) {
		p.tl.render(out[0], out[1])
	})
	if err != nil {
		portaudio.Terminate()
		return nil, errors.Wrapf(err, "open stream")
	}

	if err := stream.Start(); err != nil {
		stream.Close()
		portaudio.Terminate()
		return nil, errors.Wrapf(err, "start stream")
	}
	p.stream = stream

	logger.Tf(logCtx, "Audio output initialized: %dHz, %d channels (portaudio)", sampleRate, audio.Channels)
	return p, nil
}

// SampleRate returns the device rate
func (p *PortAudio) SampleRate() int { return p.tl.rate }

// CurrentTime returns seconds rendered by the callback
func (p *PortAudio) CurrentTime() float64 { return p.tl.currentTime() }

// Schedule places a copy of the planes on the timeline
func (p *PortAudio) Schedule(left, right []float32, startTime float64) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return errors.New("portaudio output closed")
	}
	p.tl.schedule(left, right, startTime)
	return nil
}

// Stats returns timeline statistics
func (p *PortAudio) Stats() TimelineStats { return p.tl.stats() }

// Close stops the stream and terminates PortAudio
func (p *PortAudio) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true

	if err := p.stream.Stop(); err != nil {
		return errors.Wrapf(err, "stop stream")
	}
	if err := p.stream.Close(); err != nil {
		return errors.Wrapf(err, "close stream")
	}
	return portaudio.Terminate()
}
