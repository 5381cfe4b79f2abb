// ABOUTME: Stream configuration
// ABOUTME: Latency, device rate, buffer size and backpressure settings with defaults
package stream

import (
	"time"

	"github.com/Resonate-Protocol/slotstream/pkg/clock"
	"github.com/Resonate-Protocol/slotstream/pkg/pool"
)

const (
	// DefaultLatencyMs is the target buffering latency
	DefaultLatencyMs = 128

	// DefaultSampleRate is requested from backends that let us choose
	DefaultSampleRate = 48000

	// DefaultPollInterval bounds how long a blocked write sleeps between checks
	DefaultPollInterval = 5 * time.Millisecond

	// minWait keeps a blocked write from spinning when a buffer is about to expire
	minWait = 500 * time.Microsecond
)

// Config holds stream configuration
type Config struct {
	// LatencyMs is the target latency the buffer count is derived from
	LatencyMs int

	// SampleRate is the rate requested when opening a backend (default: 48000).
	// The stream always runs at the rate the device reports.
	SampleRate int

	// BufferFrames is the size of each buffer in frames, a power of two (default: 2048)
	BufferFrames int

	// Nonblocking makes Write return a partial count instead of waiting
	Nonblocking bool

	// PollInterval bounds a blocked write's sleep (default: 5ms)
	PollInterval time.Duration

	// Calibration bounds the device clock warm-up polling
	Calibration clock.Backoff

	// Backend names the output backend for OpenBackend (default: oto)
	Backend string
}

// withDefaults fills unset fields
func (c Config) withDefaults() Config {
	if c.LatencyMs <= 0 {
		c.LatencyMs = DefaultLatencyMs
	}
	if c.SampleRate <= 0 {
		c.SampleRate = DefaultSampleRate
	}
	if c.BufferFrames <= 0 {
		c.BufferFrames = pool.DefaultFrames
	}
	if c.PollInterval <= 0 {
		c.PollInterval = DefaultPollInterval
	}
	if c.Calibration == (clock.Backoff{}) {
		c.Calibration = clock.DefaultBackoff
	}
	return c
}
