// ABOUTME: Tests for the buffer pool
// ABOUTME: Tests sizing, fill/commit cursors, FIFO reclamation and capacity accounting
package pool

import (
	"testing"

	"github.com/Resonate-Protocol/slotstream/pkg/audio"
)

// frameBytes builds interleaved frames whose left sample is the frame index
// and right sample its negation
func frameBytes(start, frames int) []byte {
	b := make([]byte, frames*audio.FrameSize)
	for i := 0; i < frames; i++ {
		v := float32(start + i)
		audio.EncodeFrame(b[i*audio.FrameSize:], v, -v)
	}
	return b
}

func newPool(t *testing.T, numBuffers, frames, sampleRate int) *Pool {
	t.Helper()
	p, err := New(numBuffers, frames, sampleRate)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return p
}

func TestCount(t *testing.T) {
	tests := []struct {
		name       string
		latencyMs  int
		sampleRate int
		frames     int
		expected   int
	}{
		{"scenario 50ms", 50, 44100, 2048, 2},
		{"zero latency", 0, 48000, 2048, 2},
		{"negative latency", -100, 48000, 2048, 2},
		{"200ms at 48k", 200, 48000, 2048, 4},
		{"1s at 44.1k", 1000, 44100, 2048, 21},
		{"small buffers", 100, 48000, 256, 18},
		{"invalid frames", 100, 48000, 0, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Count(tt.latencyMs, tt.sampleRate, tt.frames); got != tt.expected {
				t.Errorf("expected %d, got %d", tt.expected, got)
			}
		})
	}
}

func TestCountNeverBelowTwo(t *testing.T) {
	for latency := -10; latency <= 500; latency += 7 {
		for _, rate := range []int{8000, 22050, 44100, 48000, 96000, 192000} {
			if n := Count(latency, rate, DefaultFrames); n < 2 {
				t.Fatalf("latency=%d rate=%d: got %d buffers", latency, rate, n)
			}
		}
	}
}

func TestNewValidation(t *testing.T) {
	if _, err := New(1, 2048, 48000); err == nil {
		t.Error("expected error for a single buffer")
	}
	if _, err := New(2, 1000, 48000); err == nil {
		t.Error("expected error for non power of two frames")
	}
	if _, err := New(2, 2048, 0); err == nil {
		t.Error("expected error for zero sample rate")
	}

	p := newPool(t, 3, 1024, 48000)
	if p.Len() != 3 || p.Frames() != 1024 {
		t.Errorf("unexpected pool shape: %d x %d", p.Len(), p.Frames())
	}
	for _, buf := range p.buffers {
		if len(buf.Left) != 1024 || len(buf.Right) != 1024 {
			t.Fatal("expected planes of 1024 frames")
		}
		if buf.Duration != 1024.0/48000.0 {
			t.Errorf("unexpected duration %v", buf.Duration)
		}
		if buf.EndTime != 0 {
			t.Error("expected fresh buffers to be unscheduled")
		}
	}
}

func TestFillDeinterleaves(t *testing.T) {
	p := newPool(t, 2, 8, 48000)

	n := p.Fill(frameBytes(0, 5), 5)
	if n != 5 || p.Offset() != 5 {
		t.Fatalf("expected 5 frames filled, got n=%d offset=%d", n, p.Offset())
	}

	// Only 3 frames of space remain
	n = p.Fill(frameBytes(5, 6), 6)
	if n != 3 {
		t.Fatalf("expected 3 frames filled, got %d", n)
	}
	if !p.ActiveFull() {
		t.Fatal("expected active buffer to be full")
	}

	buf := p.Active()
	for i := 0; i < 8; i++ {
		if buf.Left[i] != float32(i) || buf.Right[i] != -float32(i) {
			t.Errorf("frame %d: got (%v, %v)", i, buf.Left[i], buf.Right[i])
		}
	}

	// Full buffer accepts nothing more
	if n := p.Fill(frameBytes(0, 1), 1); n != 0 {
		t.Errorf("expected 0 frames into a full buffer, got %d", n)
	}
}

func TestFillTruncatesPartialFrames(t *testing.T) {
	p := newPool(t, 2, 8, 48000)

	src := frameBytes(0, 2)
	n := p.Fill(src[:len(src)-3], 4)
	if n != 1 {
		t.Errorf("expected 1 whole frame, got %d", n)
	}
}

func TestCommitChainsBuffers(t *testing.T) {
	p := newPool(t, 3, 4, 4)

	if p.Commit(0) != nil {
		t.Fatal("expected commit of a non-full buffer to fail")
	}

	p.Fill(frameBytes(0, 4), 4)
	first := p.Commit(2.0)
	if first == nil {
		t.Fatal("expected commit to succeed")
	}
	if first.EndTime != 3.0 {
		t.Errorf("expected end time 3.0, got %v", first.EndTime)
	}
	if p.Queued() != 1 || p.Offset() != 0 {
		t.Errorf("expected queued=1 offset=0, got %d/%d", p.Queued(), p.Offset())
	}
	if p.Last() != first {
		t.Error("expected Last to be the committed buffer")
	}

	p.Fill(frameBytes(4, 4), 4)
	second := p.Commit(p.Last().EndTime)
	if second.EndTime != 4.0 {
		t.Errorf("expected end time 4.0, got %v", second.EndTime)
	}

	q := p.Queue()
	if len(q) != 2 || q[0] != first || q[1] != second {
		t.Error("expected queue in hand-off order")
	}
}

func TestSaturation(t *testing.T) {
	p := newPool(t, 2, 4, 4)

	for i := 0; i < 2; i++ {
		p.Fill(frameBytes(0, 4), 4)
		p.Commit(float64(i))
	}

	if !p.Saturated() {
		t.Fatal("expected pool to be saturated")
	}
	if p.Active() != nil {
		t.Error("expected no active buffer when saturated")
	}
	if p.Available() != 0 {
		t.Errorf("expected 0 available, got %d", p.Available())
	}
	if n := p.Fill(frameBytes(0, 4), 4); n != 0 {
		t.Errorf("expected no fill while saturated, got %d", n)
	}
}

func TestReclaimFIFO(t *testing.T) {
	p := newPool(t, 4, 4, 4) // 1 second per buffer

	for i := 0; i < 3; i++ {
		p.Fill(frameBytes(0, 4), 4)
		start := 0.0
		if last := p.Last(); last != nil {
			start = last.EndTime
		}
		p.Commit(start)
	}
	// End times: 1, 2, 3
	p.Fill(frameBytes(0, 2), 2)

	if n := p.Reclaim(0.5); n != 0 {
		t.Errorf("expected nothing reclaimed at 0.5, got %d", n)
	}

	// End time equal to now is not yet expired
	if n := p.Reclaim(1.0); n != 0 {
		t.Errorf("expected nothing reclaimed at exactly 1.0, got %d", n)
	}

	active := p.Active()
	if n := p.Reclaim(2.5); n != 2 {
		t.Fatalf("expected 2 reclaimed at 2.5, got %d", n)
	}
	if p.Queued() != 1 {
		t.Errorf("expected 1 queued, got %d", p.Queued())
	}
	if p.Active() != active {
		t.Error("expected active buffer to stay in place across reclaim")
	}
	if p.Offset() != 2 {
		t.Errorf("expected offset preserved, got %d", p.Offset())
	}
	if q := p.Queue(); q[0].EndTime != 3.0 {
		t.Errorf("expected remaining buffer to end at 3.0, got %v", q[0].EndTime)
	}

	for _, buf := range p.buffers {
		if buf != p.Queue()[0] && buf.EndTime != 0 {
			t.Error("expected reclaimed buffers to be marked unscheduled")
		}
	}
}

func TestReclaimIdempotent(t *testing.T) {
	p := newPool(t, 3, 4, 4)
	for i := 0; i < 3; i++ {
		p.Fill(frameBytes(0, 4), 4)
		start := 0.0
		if last := p.Last(); last != nil {
			start = last.EndTime
		}
		p.Commit(start)
	}

	p.Reclaim(1.5)
	queued, head, offset := p.Queued(), p.head, p.Offset()
	ends := make([]float64, p.Len())
	for i, buf := range p.buffers {
		ends[i] = buf.EndTime
	}

	if n := p.Reclaim(1.5); n != 0 {
		t.Errorf("expected second reclaim to be a no-op, reclaimed %d", n)
	}
	if p.Queued() != queued || p.head != head || p.Offset() != offset {
		t.Error("expected cursors unchanged by second reclaim")
	}
	for i, buf := range p.buffers {
		if buf.EndTime != ends[i] {
			t.Errorf("buffer %d end time changed", i)
		}
	}
}

func TestCapacityConservation(t *testing.T) {
	p := newPool(t, 3, 8, 8)
	total := p.Capacity()

	check := func(step string) {
		t.Helper()
		if p.Available()+p.Buffered() != total {
			t.Errorf("%s: available %d + buffered %d != %d",
				step, p.Available(), p.Buffered(), total)
		}
	}

	check("empty")
	now := 0.0
	for i := 0; i < 20; i++ {
		n := p.Fill(frameBytes(0, 5), 5)
		check("fill")
		if p.ActiveFull() {
			start := now
			if last := p.Last(); last != nil {
				start = last.EndTime
			}
			p.Commit(start)
			check("commit")
		}
		if n == 0 {
			now += 1.5
			p.Reclaim(now)
			check("reclaim")
		}
	}
}

func TestWrapAround(t *testing.T) {
	p := newPool(t, 2, 4, 4)

	end := 0.0
	for round := 0; round < 5; round++ {
		p.Fill(frameBytes(round*4, 4), 4)
		buf := p.Commit(end)
		end = buf.EndTime
		if buf.Left[0] != float32(round*4) {
			t.Errorf("round %d: unexpected first sample %v", round, buf.Left[0])
		}
		p.Reclaim(end + 0.1)
		if p.Queued() != 0 {
			t.Fatalf("round %d: expected empty queue, got %d", round, p.Queued())
		}
	}
}

func TestReset(t *testing.T) {
	p := newPool(t, 2, 4, 4)
	p.Fill(frameBytes(0, 4), 4)
	p.Commit(0)
	p.Fill(frameBytes(0, 3), 3)

	p.Reset()

	if p.Queued() != 0 || p.Offset() != 0 {
		t.Errorf("expected cursors reset, got %d/%d", p.Queued(), p.Offset())
	}
	if p.Available() != p.Capacity() {
		t.Errorf("expected full capacity available, got %d", p.Available())
	}
	for _, buf := range p.buffers {
		if buf.EndTime != 0 {
			t.Error("expected end times cleared")
		}
		if len(buf.Left) != 4 {
			t.Error("expected buffers kept")
		}
	}
}
