// ABOUTME: Frame-accurate playback timeline shared by all backends
// ABOUTME: Mixes scheduled buffers into the render stream and counts rendered frames
package output

import (
	"math"
	"sync"

	"github.com/Resonate-Protocol/slotstream/pkg/audio"
)

// scheduled is a buffer placed on the timeline
type scheduled struct {
	start int64 // frame position
	left  []float32
	right []float32
}

func (s *scheduled) end() int64 { return s.start + int64(len(s.left)) }

// timeline renders scheduled buffers. Render runs on the backend's audio
// thread; schedule runs on the writer's.
type timeline struct {
	mu       sync.Mutex
	rate     int
	pos      int64 // frames rendered so far
	queue    []*scheduled
	free     []*scheduled
	late     int64
	rendered int64
	scratchL []float32
	scratchR []float32
}

func newTimeline(rate int) *timeline {
	return &timeline{rate: rate}
}

// currentTime returns rendered frames in seconds
func (t *timeline) currentTime() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return float64(t.pos) / float64(t.rate)
}

// schedule copies the planes onto the timeline at startTime seconds
func (t *timeline) schedule(left, right []float32, startTime float64) {
	frames := len(left)
	if len(right) < frames {
		frames = len(right)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	s := t.alloc(frames)
	copy(s.left, left[:frames])
	copy(s.right, right[:frames])

	s.start = int64(math.Round(startTime * float64(t.rate)))
	if s.start < t.pos {
		// Already in the past: play immediately
		s.start = t.pos
		t.late++
	}
	t.queue = append(t.queue, s)
}

// alloc reuses a released buffer when one of the right size exists (must hold t.mu)
func (t *timeline) alloc(frames int) *scheduled {
	for i := len(t.free) - 1; i >= 0; i-- {
		s := t.free[i]
		if cap(s.left) >= frames {
			t.free = append(t.free[:i], t.free[i+1:]...)
			s.left = s.left[:frames]
			s.right = s.right[:frames]
			return s
		}
	}
	return &scheduled{
		left:  make([]float32, frames),
		right: make([]float32, frames),
	}
}

// render mixes the next len(left) frames into left and right and advances the clock
func (t *timeline) render(left, right []float32) {
	n := len(left)
	if len(right) < n {
		n = len(right)
	}
	for i := 0; i < n; i++ {
		left[i] = 0
		right[i] = 0
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	from := t.pos
	to := from + int64(n)

	kept := t.queue[:0]
	for _, s := range t.queue {
		if s.start < to && s.end() > from {
			lo := s.start
			if lo < from {
				lo = from
			}
			hi := s.end()
			if hi > to {
				hi = to
			}
			for f := lo; f < hi; f++ {
				left[f-from] += s.left[f-s.start]
				right[f-from] += s.right[f-s.start]
			}
			t.rendered += hi - lo
		}

		if s.end() > to {
			kept = append(kept, s)
		} else {
			t.free = append(t.free, s)
		}
	}
	for i := len(kept); i < len(t.queue); i++ {
		t.queue[i] = nil
	}
	t.queue = kept
	t.pos = to
}

// renderInterleaved fills p with interleaved float32 frames and returns the bytes used
func (t *timeline) renderInterleaved(p []byte) int {
	frames := audio.BytesToFrames(len(p))
	if cap(t.scratchL) < frames {
		t.scratchL = make([]float32, frames)
		t.scratchR = make([]float32, frames)
	}
	left := t.scratchL[:frames]
	right := t.scratchR[:frames]

	t.render(left, right)

	for i := 0; i < frames; i++ {
		audio.EncodeFrame(p[i*audio.FrameSize:], left[i], right[i])
	}
	return frames * audio.FrameSize
}

// pending returns the number of buffers waiting to finish
func (t *timeline) pending() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.queue)
}

// TimelineStats describes what a backend has rendered
type TimelineStats struct {
	Position int64 // frames rendered
	Pending  int   // buffers not yet finished
	Late     int64 // buffers scheduled in the past
	Rendered int64 // scheduled frames actually mixed
}

func (t *timeline) stats() TimelineStats {
	t.mu.Lock()
	defer t.mu.Unlock()
	return TimelineStats{
		Position: t.pos,
		Pending:  len(t.queue),
		Late:     t.late,
		Rendered: t.rendered,
	}
}
