// ABOUTME: Buffer pool package
// ABOUTME: Fixed arena of stereo playback buffers with FIFO reclamation
// Package pool owns the fixed set of stereo buffers a stream hands to its
// playback device.
//
// Buffers are arranged as a ring over an arena allocated once. Queued buffers
// run from the head in hand-off order, followed by the active buffer being
// filled. Reclaim advances the head past every buffer whose scheduled end time
// has passed; no sample data ever moves.
package pool
