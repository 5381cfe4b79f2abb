//go:build !portaudio

// ABOUTME: PortAudio stub when library not available
// ABOUTME: Registers the backend name with a descriptive error
package output

import (
	"github.com/ossrs/go-oryx-lib/errors"
)

func init() {
	Register("portaudio", func(sampleRate int) (Device, error) {
		return nil, errors.New("PortAudio support not enabled (build with -tags portaudio)")
	})
}
