// ABOUTME: Producer-side audio sources
// ABOUTME: Decodes files or generates tones as interleaved stereo float32
// Package source provides the producers that feed a stream.
//
// Every Source yields interleaved stereo float32 samples in [-1, 1] at its
// own sample rate. Mono inputs are duplicated to both channels and extra
// channels are dropped. Wrap a source with Resampled to match a device rate.
//
// Example:
//
//	src, err := source.Open("song.mp3")
//	if err != nil {
//	    return err
//	}
//	src = source.Resampled(src, 48000)
//	n, err := src.Read(samples)
package source
