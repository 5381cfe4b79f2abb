// ABOUTME: WAV capture of rendered output
// ABOUTME: Headless device that records what it plays to a 16-bit WAV file
package output

import (
	"os"
	"sync"

	"github.com/Resonate-Protocol/slotstream/pkg/audio"
	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/ossrs/go-oryx-lib/errors"
)

// wavBitDepth is the capture resolution
const wavBitDepth = 16

// WAVRecorder writes rendered stereo blocks to a WAV file
type WAVRecorder struct {
	mu   sync.Mutex
	f    *os.File
	enc  *wav.Encoder
	buf  *goaudio.IntBuffer
	done bool
}

// NewWAVRecorder creates path and prepares a 16-bit stereo encoder
func NewWAVRecorder(path string, sampleRate int) (*WAVRecorder, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, errors.Wrapf(err, "create %v", path)
	}

	format := &goaudio.Format{SampleRate: sampleRate, NumChannels: audio.Channels}
	return &WAVRecorder{
		f:   f,
		enc: wav.NewEncoder(f, sampleRate, wavBitDepth, audio.Channels, 1),
		buf: &goaudio.IntBuffer{Format: format, SourceBitDepth: wavBitDepth},
	}, nil
}

// Write appends one block of planes to the file
func (w *WAVRecorder) Write(left, right []float32) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.done {
		return errors.New("recorder closed")
	}

	frames := len(left)
	if len(right) < frames {
		frames = len(right)
	}
	if cap(w.buf.Data) < frames*audio.Channels {
		w.buf.Data = make([]int, frames*audio.Channels)
	}
	w.buf.Data = w.buf.Data[:frames*audio.Channels]

	for i := 0; i < frames; i++ {
		w.buf.Data[i*2] = int(audio.SampleToInt16(left[i]))
		w.buf.Data[i*2+1] = int(audio.SampleToInt16(right[i]))
	}

	if err := w.enc.Write(w.buf); err != nil {
		return errors.Wrapf(err, "encode %d frames", frames)
	}
	return nil
}

// Close finalizes the WAV header and closes the file
func (w *WAVRecorder) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.done {
		return nil
	}
	w.done = true

	if err := w.enc.Close(); err != nil {
		w.f.Close()
		return errors.Wrapf(err, "finalize wav")
	}
	return w.f.Close()
}

// recordingDevice is a headless device whose output is captured
type recordingDevice struct {
	*Null
	rec *WAVRecorder
}

// OpenWAV opens a headless device that records everything it renders to path
func OpenWAV(path string, sampleRate int) (Device, error) {
	rec, err := NewWAVRecorder(path, sampleRate)
	if err != nil {
		return nil, err
	}
	return &recordingDevice{
		Null: NewNullWithSink(sampleRate, rec.Write),
		rec:  rec,
	}, nil
}

// Close stops rendering before finalizing the file
func (d *recordingDevice) Close() error {
	if err := d.Null.Close(); err != nil {
		return err
	}
	return d.rec.Close()
}
