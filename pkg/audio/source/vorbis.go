// ABOUTME: Ogg Vorbis file source
// ABOUTME: Decodes Vorbis with oggvorbis, which already yields float32
package source

import (
	"io"
	"os"

	"github.com/jfreymuth/oggvorbis"
	"github.com/ossrs/go-oryx-lib/errors"

	"github.com/Resonate-Protocol/slotstream/pkg/audio"
)

// Vorbis reads from an Ogg Vorbis file
type Vorbis struct {
	file     *os.File
	reader   *oggvorbis.Reader
	channels int
	buf      []float32
}

// NewVorbis opens an Ogg Vorbis file
func NewVorbis(path string) (*Vorbis, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open %v", path)
	}

	reader, err := oggvorbis.NewReader(f)
	if err != nil {
		f.Close()
		return nil, errors.Wrapf(err, "decode Vorbis %v", path)
	}

	return &Vorbis{
		file:     f,
		reader:   reader,
		channels: reader.Channels(),
	}, nil
}

func (s *Vorbis) Read(samples []float32) (int, error) {
	frames := len(samples) / audio.Channels
	if frames == 0 {
		return 0, nil
	}

	need := frames * s.channels
	if cap(s.buf) < need {
		s.buf = make([]float32, need)
	}
	buf := s.buf[:need]

	// Read returns interleaved values, a multiple of the channel count
	n, err := s.reader.Read(buf)
	if n == 0 {
		if err == nil || err == io.EOF {
			return 0, io.EOF
		}
		return 0, errors.Wrapf(err, "decode Vorbis")
	}
	if err == io.EOF {
		err = nil
	}

	n = toStereo(samples, buf[:n], s.channels)
	if err != nil {
		return n, errors.Wrapf(err, "decode Vorbis")
	}
	return n, nil
}

func (s *Vorbis) SampleRate() int { return s.reader.SampleRate() }
func (s *Vorbis) Channels() int   { return s.channels }
func (s *Vorbis) Close() error    { return s.file.Close() }
