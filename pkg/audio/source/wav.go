// ABOUTME: WAV file source
// ABOUTME: Decodes integer PCM WAV files with go-audio/wav
package source

import (
	"io"
	"os"

	"github.com/Resonate-Protocol/slotstream/pkg/audio"
	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/ossrs/go-oryx-lib/errors"
)

// WAV reads from a WAV file
type WAV struct {
	file       *os.File
	dec        *wav.Decoder
	buf        *goaudio.IntBuffer
	tmp        []float32
	sampleRate int
	channels   int
	bitDepth   int
}

// NewWAV opens a WAV file
func NewWAV(path string) (*WAV, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open %v", path)
	}

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		f.Close()
		return nil, errors.Errorf("invalid WAV file %v", path)
	}

	format := dec.Format()
	if format == nil || format.NumChannels < 1 || format.SampleRate <= 0 {
		f.Close()
		return nil, errors.Errorf("WAV file %v has no usable format", path)
	}

	return &WAV{
		file:       f,
		dec:        dec,
		buf:        &goaudio.IntBuffer{Format: format},
		sampleRate: format.SampleRate,
		channels:   format.NumChannels,
		bitDepth:   int(dec.BitDepth),
	}, nil
}

func (s *WAV) Read(samples []float32) (int, error) {
	frames := len(samples) / audio.Channels
	if frames == 0 {
		return 0, nil
	}

	need := frames * s.channels
	if cap(s.buf.Data) < need {
		s.buf.Data = make([]int, need)
	}
	s.buf.Data = s.buf.Data[:need]

	n, err := s.dec.PCMBuffer(s.buf)
	if err != nil {
		return 0, errors.Wrapf(err, "decode WAV")
	}
	n -= n % s.channels
	if n == 0 {
		return 0, io.EOF
	}

	if cap(s.tmp) < n {
		s.tmp = make([]float32, n)
	}
	s.tmp = s.tmp[:n]
	for i := 0; i < n; i++ {
		s.tmp[i] = audio.SampleFromInt(s.buf.Data[i], s.bitDepth)
	}

	return toStereo(samples, s.tmp, s.channels), nil
}

func (s *WAV) SampleRate() int { return s.sampleRate }
func (s *WAV) Channels() int   { return s.channels }
func (s *WAV) Close() error    { return s.file.Close() }
