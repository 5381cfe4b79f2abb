// ABOUTME: Playback clock reconciliation with drift tracking
// ABOUTME: Maps wall-clock time onto the playback device's clock after warm-up
package clock

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/ossrs/go-oryx-lib/errors"
	"github.com/ossrs/go-oryx-lib/logger"
)

// ErrNotReady is returned when the device clock never started within the retry budget
var ErrNotReady = errors.New("device clock not ready")

// WallClock is a monotonic wall-clock reading
type WallClock interface {
	Now() time.Time
}

// DeviceClock is the playback device's clock in seconds; zero until the device renders
type DeviceClock interface {
	CurrentTime() float64
}

// SystemClock reads the process wall clock
type SystemClock struct{}

// Now returns time.Now()
func (SystemClock) Now() time.Time { return time.Now() }

// State is the calibration state of a PlaybackClock
type State int

const (
	StateUncalibrated State = iota
	StateCalibrating
	StateReady
)

func (s State) String() string {
	switch s {
	case StateUncalibrated:
		return "uncalibrated"
	case StateCalibrating:
		return "calibrating"
	case StateReady:
		return "ready"
	default:
		return "unknown"
	}
}

// Quality represents how well the two clocks agree
type Quality int

const (
	QualityGood Quality = iota
	QualityDegraded
	QualityLost
)

func (q Quality) String() string {
	switch q {
	case QualityGood:
		return "good"
	case QualityDegraded:
		return "degraded"
	default:
		return "lost"
	}
}

// degradedDrift is the recalibration shift above which quality degrades
const degradedDrift = 5 * time.Millisecond

// Backoff bounds the calibration retry loop
type Backoff struct {
	Initial  time.Duration
	Max      time.Duration
	Attempts int
}

// DefaultBackoff polls quickly at first and gives up after roughly 20 seconds
var DefaultBackoff = Backoff{
	Initial:  time.Millisecond,
	Max:      100 * time.Millisecond,
	Attempts: 200,
}

// Stats describes the clock reconciliation state
type Stats struct {
	State          State
	Quality        Quality
	Drift          time.Duration // shift applied by the last recalibration
	DriftRate      float64       // smoothed drift, seconds per second
	Recalibrations int
}

// PlaybackClock reconciles device time with wall-clock time
type PlaybackClock struct {
	mu      sync.RWMutex
	wall    WallClock
	device  DeviceClock
	backoff Backoff

	start          time.Time // wall-clock instant of device time zero
	state          State
	ready          chan struct{}
	drift          time.Duration
	driftRate      float64
	lastRecal      time.Time
	recalibrations int
	smoothingRate  float64
}

// New creates an uncalibrated playback clock
func New(wall WallClock, device DeviceClock) *PlaybackClock {
	if wall == nil {
		wall = SystemClock{}
	}
	return &PlaybackClock{
		wall:          wall,
		device:        device,
		backoff:       DefaultBackoff,
		state:         StateUncalibrated,
		ready:         make(chan struct{}),
		smoothingRate: 0.1, // 10% weight to new samples
	}
}

// SetBackoff replaces the calibration retry policy
func (c *PlaybackClock) SetBackoff(b Backoff) {
	if b.Initial <= 0 {
		b.Initial = DefaultBackoff.Initial
	}
	if b.Max < b.Initial {
		b.Max = b.Initial
	}
	if b.Attempts <= 0 {
		b.Attempts = DefaultBackoff.Attempts
	}

	c.mu.Lock()
	c.backoff = b
	c.mu.Unlock()
}

// TryCalibrate polls the device clock once and calibrates on a non-zero reading
func (c *PlaybackClock) TryCalibrate() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == StateReady {
		return true
	}

	deviceTime := c.device.CurrentTime()
	if deviceTime == 0 {
		return false
	}

	now := c.wall.Now()
	c.start = now.Add(-seconds(deviceTime))
	c.lastRecal = now
	c.state = StateReady
	close(c.ready)
	return true
}

// Calibrate polls the device clock until it starts, backing off between polls.
// It returns ErrNotReady when the attempts run out.
func (c *PlaybackClock) Calibrate(ctx context.Context) error {
	c.mu.Lock()
	if c.state == StateReady {
		c.mu.Unlock()
		return nil
	}
	c.state = StateCalibrating
	b := c.backoff
	c.mu.Unlock()

	delay := b.Initial
	for attempt := 1; ; attempt++ {
		if c.TryCalibrate() {
			logger.Tf(ctx, "Playback clock calibrated after %d polls: start=%v",
				attempt, c.Start().Format(time.RFC3339Nano))
			return nil
		}

		if attempt >= b.Attempts {
			c.setUncalibrated()
			return errors.Wrapf(ErrNotReady, "after %d polls", attempt)
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			c.setUncalibrated()
			return ctx.Err()
		case <-timer.C:
		}

		delay *= 2
		if delay > b.Max {
			delay = b.Max
		}
	}
}

func (c *PlaybackClock) setUncalibrated() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateReady {
		c.state = StateUncalibrated
	}
}

// Elapsed returns device-clock seconds derived from the wall clock, or 0 before calibration
func (c *PlaybackClock) Elapsed() float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.state != StateReady {
		return 0
	}
	return c.wall.Now().Sub(c.start).Seconds()
}

// Recalibrate recomputes the start instant from the current device reading.
// It reports the shift that was applied; ok is false before calibration.
func (c *PlaybackClock) Recalibrate() (drift time.Duration, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateReady {
		return 0, false
	}

	deviceTime := c.device.CurrentTime()
	if deviceTime == 0 {
		// Device stopped rendering; keep the old mapping
		return 0, false
	}

	now := c.wall.Now()
	start := now.Add(-seconds(deviceTime))
	drift = start.Sub(c.start)

	// Smoothed drift rate over the interval since the last recalibration
	if dt := now.Sub(c.lastRecal).Seconds(); dt > 0 {
		rate := drift.Seconds() / dt
		if c.recalibrations == 0 {
			c.driftRate = rate
		} else {
			c.driftRate += c.smoothingRate * (rate - c.driftRate)
		}
	}

	c.start = start
	c.drift = drift
	c.lastRecal = now
	c.recalibrations++

	return drift, true
}

// Ready is closed once the clock is calibrated
func (c *PlaybackClock) Ready() <-chan struct{} {
	return c.ready
}

// State returns the calibration state
func (c *PlaybackClock) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// Start returns the wall-clock instant of device time zero (zero before calibration)
func (c *PlaybackClock) Start() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.start
}

// Stats returns reconciliation statistics
func (c *PlaybackClock) Stats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	quality := QualityLost
	if c.state == StateReady {
		quality = QualityGood
		if c.drift > degradedDrift || c.drift < -degradedDrift {
			quality = QualityDegraded
		}
	}

	return Stats{
		State:          c.state,
		Quality:        quality,
		Drift:          c.drift,
		DriftRate:      c.driftRate,
		Recalibrations: c.recalibrations,
	}
}

// seconds converts floating-point seconds to a Duration
func seconds(s float64) time.Duration {
	return time.Duration(math.Round(s * float64(time.Second)))
}
