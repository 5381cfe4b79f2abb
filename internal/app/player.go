// ABOUTME: Main player application orchestration
// ABOUTME: Feeds a source into a stream with periodic clock recalibration and status
package app

import (
	"context"
	"io"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/Resonate-Protocol/slotstream/pkg/audio"
	"github.com/Resonate-Protocol/slotstream/pkg/audio/output"
	"github.com/Resonate-Protocol/slotstream/pkg/audio/source"
	"github.com/Resonate-Protocol/slotstream/pkg/stream"
	"github.com/ossrs/go-oryx-lib/errors"
	"github.com/ossrs/go-oryx-lib/logger"
)

const (
	// DefaultChunkFrames is how many frames the producer hands over per write
	DefaultChunkFrames = 1024

	// DefaultRecalibrateEvery matches a one-second sync cadence
	DefaultRecalibrateEvery = time.Second

	// DefaultStatusEvery is how often status callbacks fire
	DefaultStatusEvery = 500 * time.Millisecond

	// drainTimeout bounds the wait for queued audio after the source ends
	drainTimeout = 10 * time.Second
)

// Player states
const (
	StateIdle     = "idle"
	StatePlaying  = "playing"
	StatePaused   = "paused"
	StateFinished = "finished"
	StateStopped  = "stopped"
)

// Config holds player configuration
type Config struct {
	Source       string  // file to play; empty plays a test tone
	ToneHz       float64 // test tone frequency
	Backend      string  // output backend name
	Record       string  // capture rendered audio to this WAV file instead of a backend
	LatencyMs    int
	SampleRate   int
	BufferFrames int
	Nonblocking  bool
	Duration     time.Duration // stop after this much audio; 0 plays to the end
	ChunkFrames  int

	RecalibrateEvery time.Duration
	StatusEvery      time.Duration
}

// Status is a snapshot reported to the UI
type Status struct {
	Source      string
	Backend     string
	State       string
	LatencyMs   int
	Nonblocking bool
	Stream      stream.Stats
}

// Player feeds one source into one stream
type Player struct {
	config Config
	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	stream   *stream.Stream
	source   source.Source
	state    string
	paused   bool
	stopped  bool
	resume   chan struct{}
	onStatus func(Status)
}

// New creates a new player
func New(config Config) *Player {
	if config.ChunkFrames <= 0 {
		config.ChunkFrames = DefaultChunkFrames
	}
	if config.RecalibrateEvery <= 0 {
		config.RecalibrateEvery = DefaultRecalibrateEvery
	}
	if config.StatusEvery <= 0 {
		config.StatusEvery = DefaultStatusEvery
	}
	if config.Backend == "" {
		config.Backend = output.DefaultBackend
	}

	ctx, cancel := context.WithCancel(logger.WithContext(context.Background()))
	return &Player{
		config: config,
		ctx:    ctx,
		cancel: cancel,
		state:  StateIdle,
		resume: make(chan struct{}),
	}
}

// OnStatus registers a callback for periodic status updates
func (p *Player) OnStatus(fn func(Status)) {
	p.mu.Lock()
	p.onStatus = fn
	p.mu.Unlock()
}

// Open opens the output device, the stream and the source
func (p *Player) Open() error {
	cfg := stream.Config{
		LatencyMs:    p.config.LatencyMs,
		SampleRate:   p.config.SampleRate,
		BufferFrames: p.config.BufferFrames,
		Nonblocking:  p.config.Nonblocking,
		Backend:      p.config.Backend,
	}

	var s *stream.Stream
	var err error
	if p.config.Record != "" {
		rate := p.config.SampleRate
		if rate <= 0 {
			rate = stream.DefaultSampleRate
		}
		dev, werr := output.OpenWAV(p.config.Record, rate)
		if werr != nil {
			return errors.Wrapf(werr, "open recorder")
		}
		if s, err = stream.Open(cfg, dev); err != nil {
			dev.Close()
		}
	} else {
		s, err = stream.OpenBackend(cfg)
	}
	if err != nil {
		return errors.Wrapf(err, "open stream")
	}

	src, err := p.openSource(s.SampleRate())
	if err != nil {
		s.Close()
		return err
	}

	p.mu.Lock()
	p.stream = s
	p.source = src
	p.mu.Unlock()

	logger.Tf(p.ctx, "Player opened: source=%s backend=%s rate=%dHz capacity=%d bytes",
		p.sourceName(), p.backendName(), s.SampleRate(), s.BufferCapacityBytes())
	return nil
}

// openSource opens the configured source converted to the device rate
func (p *Player) openSource(rate int) (source.Source, error) {
	if p.config.Source == "" {
		return source.NewTone(p.config.ToneHz, rate), nil
	}

	src, err := source.Open(p.config.Source)
	if err != nil {
		return nil, errors.Wrapf(err, "open source")
	}
	if src.SampleRate() != rate {
		logger.Tf(p.ctx, "Resampling %s from %dHz to %dHz", p.sourceName(), src.SampleRate(), rate)
	}
	return source.Resampled(src, rate), nil
}

// Run feeds audio until the source ends, the duration elapses, or Stop is called
func (p *Player) Run() error {
	p.mu.Lock()
	s := p.stream
	p.mu.Unlock()
	if s == nil {
		return errors.New("player not opened")
	}

	if err := s.Start(); err != nil {
		return errors.Wrapf(err, "start stream")
	}
	p.setState(StatePlaying)

	var wg sync.WaitGroup
	loopCtx, stopLoops := context.WithCancel(p.ctx)
	wg.Add(2)
	go func() {
		defer wg.Done()
		p.recalibrateLoop(loopCtx)
	}()
	go func() {
		defer wg.Done()
		p.statusLoop(loopCtx)
	}()
	defer func() {
		stopLoops()
		wg.Wait()
		p.publish()
	}()

	err := p.feed()
	if err == nil {
		p.setState(StateFinished)
		return nil
	}
	if p.ctx.Err() != nil || errors.Cause(err) == stream.ErrClosed {
		p.setState(StateStopped)
		return nil
	}
	return err
}

// feed moves source samples into the stream
func (p *Player) feed() error {
	s, src := p.stream, p.source
	chunk := p.config.ChunkFrames

	samples := make([]float32, chunk*audio.Channels)
	data := make([]byte, audio.FramesToBytes(chunk))
	pending := data[:0]

	var limit int64
	if p.config.Duration > 0 {
		limit = int64(p.config.Duration.Seconds() * float64(s.SampleRate()))
	}
	var produced int64

	for {
		if err := p.waitIfPaused(); err != nil {
			return err
		}

		if len(pending) == 0 {
			if limit > 0 && produced >= limit {
				return p.drain()
			}

			want := samples
			if limit > 0 && int64(chunk) > limit-produced {
				want = samples[:(limit-produced)*audio.Channels]
			}

			n, err := src.Read(want)
			if n > 0 {
				pending = data[:audio.Interleave(data, samples[:n])]
				produced += int64(n / audio.Channels)
			}
			if err == io.EOF && n == 0 {
				logger.Tf(p.ctx, "Source %s ended after %d frames", p.sourceName(), produced)
				return p.drain()
			}
			if err != nil && err != io.EOF {
				return errors.Wrapf(err, "read source")
			}
			if len(pending) == 0 {
				continue
			}
		}

		written, err := s.Write(p.ctx, pending)
		pending = pending[written:]
		if err != nil {
			return err
		}

		if len(pending) > 0 {
			// Non-blocking stream pushed back; retry shortly
			if err := p.sleep(stream.DefaultPollInterval); err != nil {
				return err
			}
		}
	}
}

// drain pads the active buffer with silence and waits for queued audio to play
func (p *Player) drain() error {
	s := p.stream

	st := s.Stats()
	if st.Offset > 0 {
		silence := make([]byte, audio.FramesToBytes(st.BufferFrames-st.Offset))
		for len(silence) > 0 {
			n, err := s.Write(p.ctx, silence)
			if err != nil {
				return err
			}
			silence = silence[n:]
			if len(silence) > 0 {
				if err := p.sleep(stream.DefaultPollInterval); err != nil {
					return err
				}
			}
		}
	}

	deadline := time.Now().Add(drainTimeout)
	for s.WriteAvailableBytes() < s.BufferCapacityBytes() {
		if time.Now().After(deadline) {
			logger.Wf(p.ctx, "Drain timed out with %d bytes queued",
				s.BufferCapacityBytes()-s.WriteAvailableBytes())
			return nil
		}
		if err := p.sleep(10 * time.Millisecond); err != nil {
			return err
		}
	}
	return nil
}

// waitIfPaused blocks while the player is paused
func (p *Player) waitIfPaused() error {
	p.mu.Lock()
	paused, resume := p.paused, p.resume
	p.mu.Unlock()

	if !paused {
		return nil
	}
	select {
	case <-resume:
		return nil
	case <-p.ctx.Done():
		return p.ctx.Err()
	}
}

func (p *Player) sleep(d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-p.ctx.Done():
		return p.ctx.Err()
	}
}

// recalibrateLoop periodically re-derives the playback clock
func (p *Player) recalibrateLoop(ctx context.Context) {
	ticker := time.NewTicker(p.config.RecalibrateEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			p.stream.RecalibrateClock()
		case <-ctx.Done():
			return
		}
	}
}

// statusLoop periodically reports status
func (p *Player) statusLoop(ctx context.Context) {
	ticker := time.NewTicker(p.config.StatusEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			p.publish()
		case <-ctx.Done():
			return
		}
	}
}

func (p *Player) publish() {
	p.mu.Lock()
	fn := p.onStatus
	p.mu.Unlock()

	if fn != nil {
		fn(p.Status())
	}
}

// Status returns a snapshot of the player
func (p *Player) Status() Status {
	p.mu.Lock()
	s, state := p.stream, p.state
	p.mu.Unlock()

	st := Status{
		Source:    p.sourceName(),
		Backend:   p.backendName(),
		State:     state,
		LatencyMs: p.config.LatencyMs,
	}
	if st.LatencyMs <= 0 {
		st.LatencyMs = stream.DefaultLatencyMs
	}
	if s != nil {
		st.Stream = s.Stats()
		st.Nonblocking = s.Nonblocking()
	}
	return st
}

// Pause stops feeding and resets the stream cursors
func (p *Player) Pause() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stream == nil || p.paused {
		return nil
	}
	p.paused = true
	p.state = StatePaused
	return p.stream.Stop()
}

// Resume continues feeding after Pause
func (p *Player) Resume() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stream == nil || !p.paused {
		return nil
	}
	if err := p.stream.Start(); err != nil {
		return err
	}
	p.paused = false
	p.state = StatePlaying
	close(p.resume)
	p.resume = make(chan struct{})
	return nil
}

// TogglePause flips between paused and playing
func (p *Player) TogglePause() error {
	p.mu.Lock()
	paused := p.paused
	p.mu.Unlock()

	if paused {
		return p.Resume()
	}
	return p.Pause()
}

// ToggleNonblocking flips the stream's write mode
func (p *Player) ToggleNonblocking() bool {
	p.mu.Lock()
	s := p.stream
	p.mu.Unlock()
	if s == nil {
		return false
	}

	nb := !s.Nonblocking()
	s.SetNonblocking(nb)
	logger.Tf(p.ctx, "Write mode: nonblocking=%v", nb)
	return nb
}

// Recalibrate forces a clock recalibration now
func (p *Player) Recalibrate() time.Duration {
	p.mu.Lock()
	s := p.stream
	p.mu.Unlock()
	if s == nil {
		return 0
	}
	return s.RecalibrateClock()
}

// Stop stops the player and releases the stream and source
func (p *Player) Stop() error {
	p.cancel()

	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return nil
	}
	p.stopped = true
	s, src := p.stream, p.source
	if p.state != StateFinished {
		p.state = StateStopped
	}
	p.mu.Unlock()

	var firstErr error
	if s != nil {
		if err := s.Close(); err != nil {
			firstErr = err
		}
	}
	if src != nil {
		if err := src.Close(); err != nil && firstErr == nil {
			firstErr = errors.Wrapf(err, "close source")
		}
	}
	return firstErr
}

func (p *Player) setState(state string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.paused && state == StatePlaying {
		return
	}
	p.state = state
}

func (p *Player) sourceName() string {
	if p.config.Source == "" {
		hz := p.config.ToneHz
		if hz <= 0 {
			hz = source.DefaultToneFrequency
		}
		return "tone " + formatHz(hz)
	}
	return filepath.Base(p.config.Source)
}

func (p *Player) backendName() string {
	if p.config.Record != "" {
		return "wav:" + filepath.Base(p.config.Record)
	}
	return p.config.Backend
}

func formatHz(hz float64) string {
	return strconv.FormatFloat(hz, 'f', -1, 64) + "Hz"
}
