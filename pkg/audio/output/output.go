// ABOUTME: Playback device interface and backend registry
// ABOUTME: Common interface for scheduled-buffer playback backends
package output

import (
	"context"
	"sort"
	"sync"

	"github.com/ossrs/go-oryx-lib/errors"
	"github.com/ossrs/go-oryx-lib/logger"
)

// Device plays stereo buffers at scheduled device-clock times
type Device interface {
	// SampleRate returns the rate the device renders at
	SampleRate() int

	// CurrentTime returns the device clock in seconds; zero until the device renders
	CurrentTime() float64

	// Schedule queues a copy of the planes to start at startTime (device seconds)
	Schedule(left, right []float32, startTime float64) error

	// Close releases device resources
	Close() error
}

// Opener opens a device, preferring the given sample rate
type Opener func(sampleRate int) (Device, error)

// DefaultBackend is used when no backend is named
const DefaultBackend = "oto"

// logCtx carries the logging context for backend messages
var logCtx = logger.WithContext(context.Background())

var (
	backendsMu sync.Mutex
	backends   = map[string]Opener{}
)

// Register makes a backend available by name
func Register(name string, open Opener) {
	backendsMu.Lock()
	defer backendsMu.Unlock()
	backends[name] = open
}

// Backends lists registered backend names
func Backends() []string {
	backendsMu.Lock()
	defer backendsMu.Unlock()

	names := make([]string, 0, len(backends))
	for name := range backends {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Open opens the named backend
func Open(name string, sampleRate int) (Device, error) {
	if name == "" {
		name = DefaultBackend
	}

	backendsMu.Lock()
	open, ok := backends[name]
	backendsMu.Unlock()

	if !ok {
		return nil, errors.Errorf("unknown output backend %q (available: %v)", name, Backends())
	}

	dev, err := open(sampleRate)
	if err != nil {
		return nil, errors.Wrapf(err, "open %v backend", name)
	}
	return dev, nil
}
