// ABOUTME: Oto-based playback device
// ABOUTME: Streams the scheduled timeline to oto as float32 stereo
package output

import (
	"sync"
	"time"

	"github.com/Resonate-Protocol/slotstream/pkg/audio"
	"github.com/ebitengine/oto/v3"
	"github.com/ossrs/go-oryx-lib/errors"
	"github.com/ossrs/go-oryx-lib/logger"
)

// otoBufferSize is the latency oto adds on top of the stream's own buffering
const otoBufferSize = 20 * time.Millisecond

// oto only allows one context per process, so it is shared between devices
var (
	otoMu   sync.Mutex
	otoCtx  *oto.Context
	otoRate int
)

func init() {
	Register("oto", func(sampleRate int) (Device, error) {
		return NewOto(sampleRate)
	})
}

// Oto plays the timeline through an oto player
type Oto struct {
	tl     *timeline
	player *oto.Player
	mu     sync.Mutex
	closed bool
}

// otoReader feeds oto from the timeline; oto calls Read on its own goroutine
type otoReader struct {
	tl *timeline
}

func (r otoReader) Read(p []byte) (int, error) {
	return r.tl.renderInterleaved(p), nil
}

// NewOto opens the shared oto context and starts a player on a fresh timeline
func NewOto(sampleRate int) (*Oto, error) {
	ctx, err := otoContext(sampleRate)
	if err != nil {
		return nil, err
	}

	tl := newTimeline(sampleRate)
	player := ctx.NewPlayer(otoReader{tl: tl})
	player.Play()

	logger.Tf(logCtx, "Audio output initialized: %dHz, %d channels (oto/f32)", sampleRate, audio.Channels)

	return &Oto{
		tl:     tl,
		player: player,
	}, nil
}

func otoContext(sampleRate int) (*oto.Context, error) {
	otoMu.Lock()
	defer otoMu.Unlock()

	if otoCtx != nil {
		if otoRate != sampleRate {
			return nil, errors.Errorf("oto context already open at %dHz, cannot reopen at %dHz",
				otoRate, sampleRate)
		}
		if err := otoCtx.Resume(); err != nil {
			return nil, errors.Wrapf(err, "resume oto context")
		}
		return otoCtx, nil
	}

	op := &oto.NewContextOptions{
		SampleRate:   sampleRate,
		ChannelCount: audio.Channels,
		Format:       oto.FormatFloat32LE,
		BufferSize:   otoBufferSize,
	}

	ctx, readyChan, err := oto.NewContext(op)
	if err != nil {
		return nil, errors.Wrapf(err, "create oto context")
	}
	<-readyChan

	otoCtx = ctx
	otoRate = sampleRate
	return ctx, nil
}

// SampleRate returns the device rate
func (o *Oto) SampleRate() int { return o.tl.rate }

// CurrentTime returns seconds rendered by oto
func (o *Oto) CurrentTime() float64 { return o.tl.currentTime() }

// Schedule places a copy of the planes on the timeline
func (o *Oto) Schedule(left, right []float32, startTime float64) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.closed {
		return errors.New("oto output closed")
	}
	o.tl.schedule(left, right, startTime)
	return nil
}

// Stats returns timeline statistics
func (o *Oto) Stats() TimelineStats { return o.tl.stats() }

// Close stops the player and suspends the shared context
func (o *Oto) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.closed {
		return nil
	}
	o.closed = true

	if err := o.player.Close(); err != nil {
		return errors.Wrapf(err, "close oto player")
	}

	otoMu.Lock()
	defer otoMu.Unlock()
	if otoCtx != nil {
		if err := otoCtx.Suspend(); err != nil {
			logger.Wf(logCtx, "Warning: oto suspend error: %v", err)
		}
	}
	return nil
}
