// ABOUTME: Audio type definitions
// ABOUTME: Defines the stereo float32 frame format and its byte codec
package audio

import (
	"encoding/binary"
	"math"
)

const (
	// Channels is the fixed channel count of every stream (left, right)
	Channels = 2

	// SampleSize is the size of one little-endian IEEE float sample
	SampleSize = 4

	// FrameSize is the size of one interleaved stereo frame in bytes
	FrameSize = Channels * SampleSize
)

// Format describes a stream format
type Format struct {
	SampleRate int
	Channels   int
}

// Stereo returns the stereo float32 format at the given rate
func Stereo(sampleRate int) Format {
	return Format{SampleRate: sampleRate, Channels: Channels}
}

// BytesToFrames converts a byte count to whole frames, dropping any partial frame
func BytesToFrames(size int) int {
	if size <= 0 {
		return 0
	}
	return size / FrameSize
}

// FramesToBytes converts a frame count to bytes
func FramesToBytes(frames int) int {
	return frames * FrameSize
}

// DecodeFrame reads one interleaved frame (little-endian float32 left, right)
func DecodeFrame(b []byte) (left, right float32) {
	left = math.Float32frombits(binary.LittleEndian.Uint32(b[0:4]))
	right = math.Float32frombits(binary.LittleEndian.Uint32(b[4:8]))
	return left, right
}

// EncodeFrame writes one interleaved frame into b
func EncodeFrame(b []byte, left, right float32) {
	binary.LittleEndian.PutUint32(b[0:4], math.Float32bits(left))
	binary.LittleEndian.PutUint32(b[4:8], math.Float32bits(right))
}

// Interleave packs interleaved float32 samples into bytes.
// Returns the number of bytes written to dst; a trailing odd sample is ignored.
func Interleave(dst []byte, samples []float32) int {
	frames := len(samples) / Channels
	if limit := len(dst) / FrameSize; frames > limit {
		frames = limit
	}
	for i := 0; i < frames; i++ {
		EncodeFrame(dst[i*FrameSize:], samples[i*2], samples[i*2+1])
	}
	return frames * FrameSize
}

// Deinterleave unpacks interleaved frame bytes into separate channel planes.
// Returns the number of frames decoded.
func Deinterleave(left, right []float32, src []byte) int {
	frames := BytesToFrames(len(src))
	if frames > len(left) {
		frames = len(left)
	}
	if frames > len(right) {
		frames = len(right)
	}
	for i := 0; i < frames; i++ {
		left[i], right[i] = DecodeFrame(src[i*FrameSize:])
	}
	return frames
}

// SampleToInt16 converts a float sample in [-1, 1] to int16 with clipping
func SampleToInt16(sample float32) int16 {
	if sample > 1 {
		sample = 1
	} else if sample < -1 {
		sample = -1
	}
	return int16(sample * math.MaxInt16)
}

// SampleFromInt16 converts an int16 sample to a float in [-1, 1)
func SampleFromInt16(sample int16) float32 {
	return float32(sample) / 32768.0
}

// SampleFromInt converts a signed integer sample of the given bit depth to a float
func SampleFromInt(sample, bitDepth int) float32 {
	if bitDepth <= 0 || bitDepth > 32 {
		return 0
	}
	return float32(float64(sample) / float64(int64(1)<<(bitDepth-1)))
}
