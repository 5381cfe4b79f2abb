// ABOUTME: Audio fundamentals package providing core types and utilities
// ABOUTME: Defines the stereo frame layout and sample conversion functions
// Package audio provides the sample format shared by the stream engine, its
// output devices and producer sources.
//
// Every stream carries interleaved stereo frames of little-endian IEEE float32
// samples (left, right), FrameSize bytes per frame. Byte counts that are not a
// multiple of FrameSize are truncated to whole frames.
//
// Example:
//
//	buf := make([]byte, audio.FrameSize)
//	audio.EncodeFrame(buf, 0.5, -0.5)
//	left, right := audio.DecodeFrame(buf)
package audio
