// ABOUTME: Test tone generator
// ABOUTME: Generates an endless sine wave on both channels
package source

import (
	"math"
	"sync"
)

// DefaultToneFrequency is A4
const DefaultToneFrequency = 440.0

// toneAmplitude keeps the tone at 50% volume
const toneAmplitude = 0.5

// Tone generates a sine tone
type Tone struct {
	mu          sync.Mutex
	sampleIndex uint64
	sampleRate  int
	frequency   float64
}

// NewTone creates a tone generator
func NewTone(frequency float64, sampleRate int) *Tone {
	if frequency <= 0 {
		frequency = DefaultToneFrequency
	}
	return &Tone{
		frequency:  frequency,
		sampleRate: sampleRate,
	}
}

func (s *Tone) Read(samples []float32) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	frames := len(samples) / 2
	for i := 0; i < frames; i++ {
		t := float64(s.sampleIndex+uint64(i)) / float64(s.sampleRate)
		v := float32(math.Sin(2*math.Pi*s.frequency*t) * toneAmplitude)
		samples[i*2] = v
		samples[i*2+1] = v
	}
	s.sampleIndex += uint64(frames)

	return frames * 2, nil
}

func (s *Tone) SampleRate() int    { return s.sampleRate }
func (s *Tone) Frequency() float64 { return s.frequency }
func (s *Tone) Close() error       { return nil }
