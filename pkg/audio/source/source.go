// ABOUTME: Source interface and file opener
// ABOUTME: Picks a decoder by extension and converts channel layouts to stereo
package source

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/Resonate-Protocol/slotstream/pkg/audio"
	"github.com/ossrs/go-oryx-lib/errors"
)

// ErrUnsupported is returned for file types with no decoder
var ErrUnsupported = errors.New("unsupported audio format")

// Source provides interleaved stereo float32 samples
type Source interface {
	// Read fills samples with whole stereo frames and returns the number of
	// samples written. It returns io.EOF once the source is exhausted.
	Read(samples []float32) (int, error)
	// SampleRate returns the sample rate of the audio
	SampleRate() int
	// Close releases the source
	Close() error
}

// Open creates a source for a local file, chosen by extension
func Open(path string) (Source, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, errors.Wrapf(err, "audio file %v", path)
	}

	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".wav", ".wave":
		return NewWAV(path)
	case ".mp3":
		return NewMP3(path)
	case ".ogg", ".oga":
		return NewVorbis(path)
	default:
		return nil, errors.Wrapf(ErrUnsupported, "%v (supported: .wav, .mp3, .ogg)", ext)
	}
}

// Extensions lists the file extensions Open accepts
func Extensions() []string {
	return []string{".wav", ".wave", ".mp3", ".ogg", ".oga"}
}

// toStereo converts interleaved samples with the given channel count into
// stereo samples in dst. It returns the number of stereo samples written.
func toStereo(dst, src []float32, channels int) int {
	if channels == audio.Channels {
		return copy(dst, src[:len(src)/2*2])
	}

	frames := len(src) / channels
	if limit := len(dst) / audio.Channels; frames > limit {
		frames = limit
	}
	for i := 0; i < frames; i++ {
		l := src[i*channels]
		r := l
		if channels > 1 {
			r = src[i*channels+1]
		}
		dst[i*2] = l
		dst[i*2+1] = r
	}
	return frames * audio.Channels
}
