// ABOUTME: Audio output package for scheduled playback
// ABOUTME: Provides the Device interface and oto, malgo, PortAudio and null backends
// Package output provides playback devices that accept stereo buffers scheduled
// at device-clock times.
//
// Every backend renders from a shared timeline: buffers are mixed in at their
// scheduled frame, a buffer scheduled in the past starts immediately, and the
// device clock is the number of frames rendered divided by the sample rate, so
// it reads zero until the backend starts pulling audio.
//
// Backends: oto (default), null (headless, real-time clock), malgo (build with
// -tags malgo) and PortAudio (build with -tags portaudio).
//
// Example:
//
//	dev, err := output.Open("oto", 48000)
//	err = dev.Schedule(left, right, dev.CurrentTime())
package output
