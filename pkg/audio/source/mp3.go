// ABOUTME: MP3 file source
// ABOUTME: Decodes MP3 with go-mp3, which always yields 16-bit stereo
package source

import (
	"encoding/binary"
	"io"
	"os"

	"github.com/hajimehoshi/go-mp3"
	"github.com/ossrs/go-oryx-lib/errors"

	"github.com/Resonate-Protocol/slotstream/pkg/audio"
)

// mp3FrameBytes is one 16-bit stereo frame as go-mp3 emits it
const mp3FrameBytes = 4

// MP3 reads from an MP3 file
type MP3 struct {
	file    *os.File
	decoder *mp3.Decoder
	buf     []byte
}

// NewMP3 opens an MP3 file
func NewMP3(path string) (*MP3, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open %v", path)
	}

	decoder, err := mp3.NewDecoder(f)
	if err != nil {
		f.Close()
		return nil, errors.Wrapf(err, "decode MP3 %v", path)
	}

	return &MP3{
		file:    f,
		decoder: decoder,
	}, nil
}

func (s *MP3) Read(samples []float32) (int, error) {
	// go-mp3 outputs 16-bit little-endian stereo, 2 bytes per sample
	numSamples := len(samples) / 2 * 2
	if cap(s.buf) < numSamples*2 {
		s.buf = make([]byte, numSamples*2)
	}
	buf := s.buf[:numSamples*2]

	n, err := io.ReadFull(s.decoder, buf)
	if err == io.ErrUnexpectedEOF {
		err = nil
	}
	if n == 0 && err == nil {
		err = io.EOF
	}

	// Whole frames only
	n = n / mp3FrameBytes * mp3FrameBytes
	for i := 0; i < n/2; i++ {
		samples[i] = audio.SampleFromInt16(int16(binary.LittleEndian.Uint16(buf[i*2:])))
	}

	if err != nil && err != io.EOF {
		return n / 2, errors.Wrapf(err, "decode MP3")
	}
	return n / 2, err
}

func (s *MP3) SampleRate() int { return s.decoder.SampleRate() }

// Length returns the decoded stream length in frames
func (s *MP3) Length() int64 { return s.decoder.Length() / mp3FrameBytes }

func (s *MP3) Close() error { return s.file.Close() }
