// ABOUTME: Stream handle that feeds pooled buffers to a playback device
// ABOUTME: Implements gapless hand-off, reclamation and blocking or non-blocking backpressure
package stream

import (
	"context"
	"sync"
	"time"

	"github.com/Resonate-Protocol/slotstream/pkg/audio"
	"github.com/Resonate-Protocol/slotstream/pkg/audio/output"
	"github.com/Resonate-Protocol/slotstream/pkg/clock"
	"github.com/Resonate-Protocol/slotstream/pkg/pool"
	"github.com/google/uuid"
	"github.com/ossrs/go-oryx-lib/errors"
	"github.com/ossrs/go-oryx-lib/logger"
)

var (
	// ErrNoDevice is returned when no usable playback device could be opened
	ErrNoDevice = errors.New("no usable playback device")

	// ErrClosed is returned for operations on a closed stream
	ErrClosed = errors.New("stream closed")

	// ErrNotOpen is returned for operations on a zero Stream
	ErrNotOpen = errors.New("stream not initialized")
)

// State is the lifecycle state of a Stream
type State int

const (
	StateUninitialized State = iota
	StateStopped
	StateRunning
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateStopped:
		return "stopped"
	case StateRunning:
		return "running"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Stats is a snapshot of stream counters
type Stats struct {
	ID    string
	State State

	FramesWritten  int64
	Handoffs       int64
	Reclaimed      int64
	Backpressure   int64 // non-blocking writes cut short by a full pool
	BlockedWaits   int64 // sleeps taken by blocking writes
	LateHandoffs   int64 // buffers scheduled behind the device clock
	ScheduleErrors int64

	Buffers      int
	BufferFrames int
	Queued       int
	Offset       int
	Available    int // frames
	SampleRate   int
	Elapsed      float64

	Clock clock.Stats
}

// Option customizes a Stream at open time
type Option func(*Stream)

// WithWallClock replaces the system clock used for playback time
func WithWallClock(w clock.WallClock) Option {
	return func(s *Stream) {
		s.wall = w
	}
}

// Stream is a producer's handle onto a playback device
type Stream struct {
	id     string
	cfg    Config
	device output.Device
	wall   clock.WallClock
	clock  *clock.PlaybackClock

	ctx        context.Context
	cancel     context.CancelFunc
	calibrated chan struct{} // closed when the calibration goroutine exits

	mu          sync.Mutex
	pool        *pool.Pool
	state       State
	nonblocking bool
	stats       Stats
}

// Init opens the default backend with the given target latency.
// A latency of zero or less selects DefaultLatencyMs.
func Init(latencyMs int) (*Stream, error) {
	return OpenBackend(Config{LatencyMs: latencyMs})
}

// OpenBackend opens the configured output backend and a stream on it
func OpenBackend(cfg Config, opts ...Option) (*Stream, error) {
	cfg = cfg.withDefaults()
	if cfg.Backend == "" {
		cfg.Backend = output.DefaultBackend
	}

	dev, err := output.Open(cfg.Backend, cfg.SampleRate)
	if err != nil {
		return nil, errors.Wrapf(ErrNoDevice, "%v", err)
	}

	s, err := Open(cfg, dev, opts...)
	if err != nil {
		dev.Close()
		return nil, err
	}
	return s, nil
}

// Open creates a stream on an already opened device.
// The stream takes ownership of the device and closes it on Close.
func Open(cfg Config, dev output.Device, opts ...Option) (*Stream, error) {
	if dev == nil {
		return nil, ErrNoDevice
	}
	cfg = cfg.withDefaults()

	rate := dev.SampleRate()
	if rate <= 0 {
		return nil, errors.Wrapf(ErrNoDevice, "invalid device sample rate %d", rate)
	}

	numBuffers := pool.Count(cfg.LatencyMs, rate, cfg.BufferFrames)
	p, err := pool.New(numBuffers, cfg.BufferFrames, rate)
	if err != nil {
		return nil, errors.Wrapf(err, "allocate %d buffers", numBuffers)
	}

	ctx, cancel := context.WithCancel(logger.WithContext(context.Background()))
	s := &Stream{
		id:          uuid.New().String(),
		cfg:         cfg,
		device:      dev,
		wall:        clock.SystemClock{},
		ctx:         ctx,
		cancel:      cancel,
		calibrated:  make(chan struct{}),
		pool:        p,
		state:       StateStopped,
		nonblocking: cfg.Nonblocking,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.clock = clock.New(s.wall, dev)
	s.clock.SetBackoff(cfg.Calibration)
	go s.calibrate()

	logger.Tf(ctx, "Stream %s opened: %d buffers x %d frames at %dHz (%.1fms buffered, target %dms), nonblocking=%v",
		s.id, p.Len(), p.Frames(), rate, float64(p.Capacity())*1000/float64(rate), cfg.LatencyMs, s.nonblocking)

	return s, nil
}

// calibrate waits for the device clock to start in the background
func (s *Stream) calibrate() {
	defer close(s.calibrated)

	if err := s.clock.Calibrate(s.ctx); err != nil {
		if s.ctx.Err() == nil {
			logger.Wf(s.ctx, "Stream %s: %v, retrying on each write", s.id, err)
		}
	}
}

// WaitReady blocks until the playback clock is calibrated
func (s *Stream) WaitReady(ctx context.Context) error {
	if s.clock == nil {
		return ErrNotOpen
	}

	select {
	case <-s.clock.Ready():
		return nil
	case <-s.calibrated:
		// The goroutine may have finished on success as well
		select {
		case <-s.clock.Ready():
			return nil
		default:
		}
		if s.ctx.Err() != nil {
			return ErrClosed
		}
		return clock.ErrNotReady
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Write copies interleaved little-endian float32 stereo frames into the stream.
// Trailing bytes that do not form a whole frame are ignored. A blocking stream
// returns only once every frame is accepted; a non-blocking stream returns the
// number of bytes that fit. Errors are reported only for cancellation or Close.
func (s *Stream) Write(ctx context.Context, p []byte) (int, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	frames := audio.BytesToFrames(len(p))

	s.mu.Lock()
	if s.pool == nil {
		s.mu.Unlock()
		return 0, ErrNotOpen
	}
	if s.state == StateClosed {
		s.mu.Unlock()
		return 0, ErrClosed
	}
	if s.state == StateStopped {
		s.state = StateRunning
	}

	s.reclaimLocked()

	written := 0
	var err error
	for written < frames {
		if s.pool.Saturated() {
			if s.nonblocking {
				s.stats.Backpressure++
				break
			}

			wait := s.waitLocked()
			s.stats.BlockedWaits++
			s.mu.Unlock()
			err = s.sleep(ctx, wait)
			s.mu.Lock()

			if err == nil && s.state == StateClosed {
				err = ErrClosed
			}
			if err != nil {
				break
			}
			s.reclaimLocked()
			continue
		}

		n := s.pool.Fill(p[audio.FramesToBytes(written):], frames-written)
		if n == 0 {
			break
		}
		written += n

		if s.pool.ActiveFull() {
			s.handOffLocked()
		}
	}

	s.stats.FramesWritten += int64(written)
	s.mu.Unlock()

	return audio.FramesToBytes(written), err
}

// handOffLocked schedules the full active buffer right after the last queued one
func (s *Stream) handOffLocked() {
	var start float64
	late := false
	if last := s.pool.Last(); last != nil {
		start = last.EndTime
		late = start < s.device.CurrentTime()
	} else {
		start = s.device.CurrentTime()
	}

	buf := s.pool.Commit(start)
	s.stats.Handoffs++
	if late {
		s.stats.LateHandoffs++
	}

	if err := s.device.Schedule(buf.Left, buf.Right, start); err != nil {
		s.stats.ScheduleErrors++
		logger.Wf(s.ctx, "Stream %s: schedule buffer at %.6fs: %v", s.id, start, err)
		return
	}

	// Log first few hand-offs for diagnostics
	if s.stats.Handoffs <= 3 {
		logger.Tf(s.ctx, "Stream %s hand-off #%d: start=%.6fs end=%.6fs queued=%d/%d",
			s.id, s.stats.Handoffs, start, buf.EndTime, s.pool.Queued(), s.pool.Len())
	}
}

// reclaimLocked returns expired buffers to the pool
func (s *Stream) reclaimLocked() {
	if s.clock.State() != clock.StateReady {
		// Calibration gave up or is still warming; one cheap poll keeps the stream live
		if !s.clock.TryCalibrate() {
			return
		}
	}

	if n := s.pool.Reclaim(s.clock.Elapsed()); n > 0 {
		s.stats.Reclaimed += int64(n)
	}
}

// waitLocked picks how long a blocked write sleeps before re-checking
func (s *Stream) waitLocked() time.Duration {
	wait := s.cfg.PollInterval

	queue := s.pool.Queue()
	if len(queue) == 0 || s.clock.State() != clock.StateReady {
		return wait
	}

	// The head buffer is the next to expire
	until := queue[0].EndTime - s.clock.Elapsed()
	d := time.Duration(until*float64(time.Second)) + minWait
	if d < wait {
		wait = d
	}
	if wait < minWait {
		wait = minWait
	}
	return wait
}

// sleep waits for d, the caller's cancellation, or Close
func (s *Stream) sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-s.ctx.Done():
		return ErrClosed
	case <-timer.C:
		return nil
	}
}

// WriteAvailable returns how many frames can be written without waiting
func (s *Stream) WriteAvailable() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pool == nil || s.state == StateClosed {
		return 0
	}
	s.reclaimLocked()
	return s.pool.Available()
}

// WriteAvailableBytes is WriteAvailable in bytes
func (s *Stream) WriteAvailableBytes() int {
	return audio.FramesToBytes(s.WriteAvailable())
}

// BufferCapacityBytes returns the total pool size in bytes
func (s *Stream) BufferCapacityBytes() int {
	if s.pool == nil {
		return 0
	}
	return audio.FramesToBytes(s.pool.Capacity())
}

// BufferFrames returns the size of one buffer in frames
func (s *Stream) BufferFrames() int {
	if s.pool == nil {
		return 0
	}
	return s.pool.Frames()
}

// SampleRate returns the device sample rate the stream runs at
func (s *Stream) SampleRate() int {
	if s.pool == nil {
		return 0
	}
	return s.pool.SampleRate()
}

// Start marks the stream running. Playback is driven by writes; Start only
// acknowledges the producer.
func (s *Stream) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch {
	case s.pool == nil:
		return ErrNotOpen
	case s.state == StateClosed:
		return ErrClosed
	}
	s.state = StateRunning
	return nil
}

// Stop resets the pool cursors. Buffers already handed to the device keep
// playing; the next write starts a fresh chain at the device clock.
func (s *Stream) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch {
	case s.pool == nil:
		return ErrNotOpen
	case s.state == StateClosed:
		return ErrClosed
	}

	s.pool.Reset()
	s.state = StateStopped
	logger.Tf(s.ctx, "Stream %s stopped", s.id)
	return nil
}

// SetNonblocking switches between blocking and non-blocking writes
func (s *Stream) SetNonblocking(nonblocking bool) {
	s.mu.Lock()
	s.nonblocking = nonblocking
	s.mu.Unlock()
}

// Nonblocking reports the current write mode
func (s *Stream) Nonblocking() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nonblocking
}

// RecalibrateClock re-derives the playback clock from the device clock and
// returns the shift applied. It is a no-op before calibration.
func (s *Stream) RecalibrateClock() time.Duration {
	if s.clock == nil {
		return 0
	}

	drift, ok := s.clock.Recalibrate()
	if !ok {
		return 0
	}
	if drift > time.Millisecond || drift < -time.Millisecond {
		logger.Tf(s.ctx, "Stream %s clock recalibrated: drift=%v", s.id, drift)
	}
	return drift
}

// Close releases the stream and its device. Blocked writes return ErrClosed.
func (s *Stream) Close() error {
	s.mu.Lock()
	if s.pool == nil {
		s.mu.Unlock()
		return ErrNotOpen
	}
	if s.state == StateClosed {
		s.mu.Unlock()
		return nil
	}
	s.pool.Reset()
	s.state = StateClosed
	s.mu.Unlock()

	s.cancel()
	<-s.calibrated

	if err := s.device.Close(); err != nil {
		return errors.Wrapf(err, "close device")
	}

	logger.Tf(s.ctx, "Stream %s closed", s.id)
	return nil
}

// ID returns the stream identifier used in logs
func (s *Stream) ID() string { return s.id }

// Clock returns the stream's playback clock
func (s *Stream) Clock() *clock.PlaybackClock { return s.clock }

// State returns the lifecycle state
func (s *Stream) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Stats returns a snapshot of the stream counters
func (s *Stream) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.stats
	st.ID = s.id
	st.State = s.state
	if s.pool != nil {
		st.Buffers = s.pool.Len()
		st.BufferFrames = s.pool.Frames()
		st.Queued = s.pool.Queued()
		st.Offset = s.pool.Offset()
		st.Available = s.pool.Available()
		st.SampleRate = s.pool.SampleRate()
	}
	if s.clock != nil {
		st.Elapsed = s.clock.Elapsed()
		st.Clock = s.clock.Stats()
	}
	return st
}
