//go:build !malgo

// ABOUTME: Malgo stub when miniaudio support is not compiled in
// ABOUTME: Registers the backend name with a descriptive error
package output

import (
	"github.com/ossrs/go-oryx-lib/errors"
)

func init() {
	Register("malgo", func(sampleRate int) (Device, error) {
		return nil, errors.New("malgo support not enabled (build with -tags malgo)")
	})
}
