// ABOUTME: Ring of fixed-capacity stereo buffers with queue cursors
// ABOUTME: Tracks queued, active and free buffers and reclaims expired ones
package pool

import (
	"github.com/Resonate-Protocol/slotstream/pkg/audio"
	"github.com/ossrs/go-oryx-lib/errors"
)

// DefaultFrames is the number of frames in one buffer
const DefaultFrames = 2048

// Buffer is one fixed-length stereo buffer
type Buffer struct {
	Left     []float32
	Right    []float32
	Duration float64 // seconds
	EndTime  float64 // device-clock seconds; 0 when not scheduled
}

// Count derives the number of buffers for a target latency, never fewer than two
func Count(latencyMs, sampleRate, frames int) int {
	if frames <= 0 {
		return 2
	}
	n := int(int64(latencyMs) * int64(sampleRate) / (1000 * int64(frames)))
	if n < 2 {
		n = 2
	}
	return n
}

// Pool is a ring of buffers. Queued buffers start at head; the buffer after
// the last queued one is the active write target.
type Pool struct {
	buffers    []*Buffer
	frames     int
	sampleRate int
	head       int
	queued     int
	offset     int
}

// New allocates numBuffers buffers of frames frames each
func New(numBuffers, frames, sampleRate int) (*Pool, error) {
	if numBuffers < 2 {
		return nil, errors.Errorf("need at least 2 buffers, got %d", numBuffers)
	}
	if frames <= 0 || frames&(frames-1) != 0 {
		return nil, errors.Errorf("buffer frames must be a power of two, got %d", frames)
	}
	if sampleRate <= 0 {
		return nil, errors.Errorf("invalid sample rate %d", sampleRate)
	}

	duration := float64(frames) / float64(sampleRate)
	buffers := make([]*Buffer, numBuffers)
	for i := range buffers {
		buffers[i] = &Buffer{
			Left:     make([]float32, frames),
			Right:    make([]float32, frames),
			Duration: duration,
		}
	}

	return &Pool{
		buffers:    buffers,
		frames:     frames,
		sampleRate: sampleRate,
	}, nil
}

// Len returns the number of buffers
func (p *Pool) Len() int { return len(p.buffers) }

// Frames returns the capacity of one buffer in frames
func (p *Pool) Frames() int { return p.frames }

// SampleRate returns the rate buffer durations are based on
func (p *Pool) SampleRate() int { return p.sampleRate }

// Queued returns the number of buffers queued or playing
func (p *Pool) Queued() int { return p.queued }

// Offset returns the write offset within the active buffer
func (p *Pool) Offset() int { return p.offset }

// Saturated reports whether every buffer is queued
func (p *Pool) Saturated() bool { return p.queued == len(p.buffers) }

// Available returns the frames that can be written without waiting
func (p *Pool) Available() int {
	return (len(p.buffers)-p.queued)*p.frames - p.offset
}

// Buffered returns the frames queued plus those in the active buffer
func (p *Pool) Buffered() int {
	return p.queued*p.frames + p.offset
}

// Capacity returns the total frame capacity of the pool
func (p *Pool) Capacity() int {
	return len(p.buffers) * p.frames
}

func (p *Pool) at(pos int) *Buffer {
	return p.buffers[(p.head+pos)%len(p.buffers)]
}

// Active returns the buffer being filled, or nil when saturated
func (p *Pool) Active() *Buffer {
	if p.Saturated() {
		return nil
	}
	return p.at(p.queued)
}

// ActiveFull reports whether the active buffer is ready for hand-off
func (p *Pool) ActiveFull() bool {
	return !p.Saturated() && p.offset == p.frames
}

// Last returns the most recently queued buffer, or nil when nothing is queued
func (p *Pool) Last() *Buffer {
	if p.queued == 0 {
		return nil
	}
	return p.at(p.queued - 1)
}

// Queue returns the queued buffers, oldest first
func (p *Pool) Queue() []*Buffer {
	q := make([]*Buffer, p.queued)
	for i := range q {
		q[i] = p.at(i)
	}
	return q
}

// Fill de-interleaves up to frames frames from src into the active buffer.
// It stops at the end of the buffer or of src and returns the frames copied.
func (p *Pool) Fill(src []byte, frames int) int {
	buf := p.Active()
	if buf == nil {
		return 0
	}

	if n := audio.BytesToFrames(len(src)); frames > n {
		frames = n
	}
	if space := p.frames - p.offset; frames > space {
		frames = space
	}
	if frames <= 0 {
		return 0
	}

	n := audio.Deinterleave(buf.Left[p.offset:p.offset+frames], buf.Right[p.offset:p.offset+frames], src)
	p.offset += n
	return n
}

// Commit queues the full active buffer to start at the given device time.
// It returns the queued buffer, or nil if the active buffer is not full.
func (p *Pool) Commit(start float64) *Buffer {
	if !p.ActiveFull() {
		return nil
	}

	buf := p.at(p.queued)
	buf.EndTime = start + buf.Duration
	p.queued++
	p.offset = 0
	return buf
}

// Reclaim frees every queued buffer whose end time is before now.
// Hand-offs are chronological, so expired buffers are always at the head.
func (p *Pool) Reclaim(now float64) int {
	reclaimed := 0
	for p.queued > 0 {
		buf := p.buffers[p.head]
		if buf.EndTime == 0 || buf.EndTime >= now {
			break
		}
		buf.EndTime = 0
		p.head = (p.head + 1) % len(p.buffers)
		p.queued--
		reclaimed++
	}
	return reclaimed
}

// Reset drops all queued state; buffer contents are left to be overwritten
func (p *Pool) Reset() {
	for _, buf := range p.buffers {
		buf.EndTime = 0
	}
	p.head = 0
	p.queued = 0
	p.offset = 0
}
