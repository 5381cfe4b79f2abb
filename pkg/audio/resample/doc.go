// ABOUTME: Audio resampling package using linear interpolation
// ABOUTME: Converts a float32 feed from a file's native rate to the device rate
// Package resample provides fixed-ratio sample rate conversion.
//
// Uses linear interpolation on interleaved float32 samples. The last input
// frame of each chunk is carried into the next, so chunked and one-shot
// conversion produce the same output.
//
// Example:
//
//	r := resample.New(44100, 48000, 2)
//	out = r.Process(out[:0], input)
package resample
