// ABOUTME: Playback clock package
// ABOUTME: Reconciles a device playback clock with the wall clock
// Package clock reconciles a playback device's internal time counter with the
// wall clock.
//
// A device clock reads zero until the device actually starts rendering audio.
// PlaybackClock polls it with a bounded backoff until it reports a non-zero
// reading, then derives elapsed playback time from the wall clock alone.
// Recalibrate corrects drift between the two clocks.
//
// Example:
//
//	pc := clock.New(clock.SystemClock{}, device)
//	go pc.Calibrate(ctx)
//	<-pc.Ready()
//	now := pc.Elapsed() // seconds, in device-clock units
package clock
