// ABOUTME: Headless playback device driven by the wall clock
// ABOUTME: Renders the timeline in real time without audio hardware
package output

import (
	"context"
	"sync"
	"time"

	"github.com/ossrs/go-oryx-lib/errors"
	"github.com/ossrs/go-oryx-lib/logger"
)

// nullTick is how often the headless device renders
const nullTick = 10 * time.Millisecond

func init() {
	Register("null", func(sampleRate int) (Device, error) {
		return NewNull(sampleRate), nil
	})
}

// Sink receives every rendered block of a headless device
type Sink func(left, right []float32) error

// Null renders the timeline in real time and discards (or sinks) the result
type Null struct {
	tl     *timeline
	sink   Sink
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
	mu     sync.Mutex
	closed bool
}

// NewNull starts a headless device
func NewNull(sampleRate int) *Null {
	return NewNullWithSink(sampleRate, nil)
}

// NewNullWithSink starts a headless device that passes rendered audio to sink
func NewNullWithSink(sampleRate int, sink Sink) *Null {
	ctx, cancel := context.WithCancel(context.Background())

	n := &Null{
		tl:     newTimeline(sampleRate),
		sink:   sink,
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	go n.run()

	logger.Tf(logCtx, "Audio output initialized: %dHz (null)", sampleRate)
	return n
}

// run renders as many frames as wall-clock time allows on every tick
func (n *Null) run() {
	defer close(n.done)

	ticker := time.NewTicker(nullTick)
	defer ticker.Stop()

	rate := n.tl.rate
	chunk := rate / 10
	if chunk < 1 {
		chunk = 1
	}
	left := make([]float32, chunk)
	right := make([]float32, chunk)

	start := time.Now()
	var rendered int64

	for {
		select {
		case <-n.ctx.Done():
			return
		case now := <-ticker.C:
			target := int64(now.Sub(start).Seconds() * float64(rate))
			for rendered < target {
				k := int(target - rendered)
				if k > chunk {
					k = chunk
				}
				n.tl.render(left[:k], right[:k])
				rendered += int64(k)

				if n.sink != nil {
					if err := n.sink(left[:k], right[:k]); err != nil {
						logger.Wf(logCtx, "Sink failed, discarding further audio: %v", err)
						n.sink = nil
					}
				}
			}
		}
	}
}

// SampleRate returns the device rate
func (n *Null) SampleRate() int { return n.tl.rate }

// CurrentTime returns seconds rendered so far
func (n *Null) CurrentTime() float64 { return n.tl.currentTime() }

// Schedule places a copy of the planes on the timeline
func (n *Null) Schedule(left, right []float32, startTime float64) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.closed {
		return errors.New("null output closed")
	}
	n.tl.schedule(left, right, startTime)
	return nil
}

// Stats returns timeline statistics
func (n *Null) Stats() TimelineStats { return n.tl.stats() }

// Close stops rendering and waits for the render goroutine
func (n *Null) Close() error {
	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()
		return nil
	}
	n.closed = true
	n.mu.Unlock()

	n.cancel()
	<-n.done
	return nil
}
