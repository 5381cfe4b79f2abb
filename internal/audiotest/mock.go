// ABOUTME: Test doubles for clocks and playback devices
// ABOUTME: Provides a manual wall clock and a device that records every hand-off
package audiotest

import (
	"math"
	"sync"
	"time"

	"github.com/ossrs/go-oryx-lib/errors"
)

// ManualClock is a wall clock that only moves when told to.
// It satisfies clock.WallClock without importing it.
type ManualClock struct {
	mu  sync.Mutex
	now time.Time
}

// NewManualClock creates a clock frozen at an arbitrary fixed instant
func NewManualClock() *ManualClock {
	return &ManualClock{now: time.Unix(1700000000, 0)}
}

// Now returns the current manual time
func (c *ManualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward
func (c *ManualClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// Seconds converts floating-point seconds to a Duration, rounding up so that
// advancing by Seconds(x) moves strictly past x.
func Seconds(s float64) time.Duration {
	return time.Duration(math.Ceil(s*float64(time.Second))) + time.Nanosecond
}

// Scheduled is one buffer a FakeDevice received
type Scheduled struct {
	Left      []float32
	Right     []float32
	StartTime float64
}

// FakeDevice records hand-offs and reports a settable device clock.
// It satisfies output.Device and clock.DeviceClock without importing them.
type FakeDevice struct {
	mu         sync.Mutex
	sampleRate int
	current    float64
	warmup     int // polls that still report zero
	polls      int
	scheduled  []Scheduled
	failNext   bool
	closed     bool
}

// NewFakeDevice creates a device whose clock already reads the given time
func NewFakeDevice(sampleRate int, current float64) *FakeDevice {
	return &FakeDevice{
		sampleRate: sampleRate,
		current:    current,
	}
}

// SetWarmup makes the next n clock reads return zero
func (d *FakeDevice) SetWarmup(n int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.warmup = n
}

// SetCurrentTime sets the device clock reading in seconds
func (d *FakeDevice) SetCurrentTime(t float64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.current = t
}

// FailNextSchedule makes the next Schedule call return an error
func (d *FakeDevice) FailNextSchedule() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.failNext = true
}

// SampleRate returns the device rate
func (d *FakeDevice) SampleRate() int { return d.sampleRate }

// CurrentTime returns the device clock, or zero during warm-up
func (d *FakeDevice) CurrentTime() float64 {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.polls++
	if d.warmup > 0 {
		d.warmup--
		return 0
	}
	return d.current
}

// Polls returns how many times the clock was read
func (d *FakeDevice) Polls() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.polls
}

// Schedule records a copy of the planes
func (d *FakeDevice) Schedule(left, right []float32, startTime float64) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return errors.New("device closed")
	}
	if d.failNext {
		d.failNext = false
		return errors.New("schedule failed")
	}

	d.scheduled = append(d.scheduled, Scheduled{
		Left:      append([]float32(nil), left...),
		Right:     append([]float32(nil), right...),
		StartTime: startTime,
	})
	return nil
}

// Scheduled returns every recorded hand-off in order
func (d *FakeDevice) Scheduled() []Scheduled {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]Scheduled(nil), d.scheduled...)
}

// Close marks the device closed
func (d *FakeDevice) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	return nil
}

// Closed reports whether Close was called
func (d *FakeDevice) Closed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closed
}
