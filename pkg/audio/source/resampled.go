// ABOUTME: Rate-matching wrapper for sources
// ABOUTME: Converts a source once from its native rate to the device rate
package source

import (
	"io"

	"github.com/Resonate-Protocol/slotstream/pkg/audio"
	"github.com/Resonate-Protocol/slotstream/pkg/audio/resample"
)

// resampleChunk is how many input frames are decoded per refill
const resampleChunk = 1024

type resampled struct {
	src     Source
	r       *resample.Resampler
	in      []float32
	pending []float32
	eof     bool
}

// Resampled returns src converted to sampleRate. A source already at that
// rate is returned unchanged.
func Resampled(src Source, sampleRate int) Source {
	if src.SampleRate() == sampleRate {
		return src
	}
	return &resampled{
		src: src,
		r:   resample.New(src.SampleRate(), sampleRate, audio.Channels),
		in:  make([]float32, resampleChunk*audio.Channels),
	}
}

func (s *resampled) Read(samples []float32) (int, error) {
	want := len(samples) / audio.Channels * audio.Channels

	for len(s.pending) < want && !s.eof {
		n, err := s.src.Read(s.in)
		if n > 0 {
			s.pending = s.r.Process(s.pending, s.in[:n])
		}
		if err == io.EOF {
			s.eof = true
			break
		}
		if err != nil {
			return 0, err
		}
	}

	n := copy(samples[:want], s.pending)
	s.pending = s.pending[:copy(s.pending, s.pending[n:])]

	if n == 0 && s.eof {
		return 0, io.EOF
	}
	return n, nil
}

func (s *resampled) SampleRate() int { return s.r.OutputRate() }
func (s *resampled) Close() error    { return s.src.Close() }
