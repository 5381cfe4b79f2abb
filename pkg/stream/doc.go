// ABOUTME: Stream engine package
// ABOUTME: Buffers a producer's stereo feed into scheduled device playback
// Package stream moves an interleaved stereo float32 feed from a producer to a
// clock-driven playback device.
//
// A Stream owns a fixed pool of buffers. Write fills the active buffer and, each
// time it is full, hands it to the device scheduled to start exactly when the
// previous buffer ends. Buffers are reclaimed once the playback clock passes
// their end time. When every buffer is queued, a blocking stream waits for one
// to be reclaimed and a non-blocking stream returns a partial write.
//
// Example:
//
//	s, err := stream.Init(128)
//	if err != nil {
//	    // no playback device
//	}
//	defer s.Close()
//	_ = s.WaitReady(ctx)
//	n, err := s.Write(ctx, frames) // little-endian float32 L/R pairs
package stream
