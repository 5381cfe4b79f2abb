// ABOUTME: Tests for playback devices
// ABOUTME: Tests the shared timeline, backend registry and headless devices
package output

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Resonate-Protocol/slotstream/pkg/audio"
	"github.com/go-audio/wav"
)

func TestBackendsImplementDevice(t *testing.T) {
	var _ Device = (*Oto)(nil)
	var _ Device = (*Null)(nil)
	var _ Device = (*recordingDevice)(nil)
}

func TestRegistry(t *testing.T) {
	names := Backends()
	for _, want := range []string{"malgo", "null", "oto", "portaudio"} {
		found := false
		for _, name := range names {
			if name == want {
				found = true
			}
		}
		if !found {
			t.Errorf("expected backend %q to be registered, got %v", want, names)
		}
	}

	if _, err := Open("does-not-exist", 48000); err == nil {
		t.Error("expected error for unknown backend")
	}

	dev, err := Open("null", 48000)
	if err != nil {
		t.Fatalf("open null failed: %v", err)
	}
	defer dev.Close()

	if dev.SampleRate() != 48000 {
		t.Errorf("expected 48000, got %d", dev.SampleRate())
	}
}

func constPlanes(frames int, l, r float32) ([]float32, []float32) {
	left := make([]float32, frames)
	right := make([]float32, frames)
	for i := range left {
		left[i] = l
		right[i] = r
	}
	return left, right
}

func TestTimelineClockStartsAtZero(t *testing.T) {
	tl := newTimeline(100)
	if tl.currentTime() != 0 {
		t.Errorf("expected zero before rendering, got %v", tl.currentTime())
	}

	out := make([]float32, 50)
	tl.render(out, make([]float32, 50))
	if tl.currentTime() != 0.5 {
		t.Errorf("expected 0.5s after 50 frames at 100Hz, got %v", tl.currentTime())
	}
}

func TestTimelineSchedulesAtFrame(t *testing.T) {
	tl := newTimeline(100)

	left, right := constPlanes(10, 1, -1)
	tl.schedule(left, right, 0.05) // frame 5

	l := make([]float32, 20)
	r := make([]float32, 20)
	tl.render(l, r)

	for i := 0; i < 20; i++ {
		expected := float32(0)
		if i >= 5 && i < 15 {
			expected = 1
		}
		if l[i] != expected || r[i] != -expected {
			t.Errorf("frame %d: expected %v, got (%v, %v)", i, expected, l[i], r[i])
		}
	}

	if tl.pending() != 0 {
		t.Errorf("expected finished buffer to be released, %d pending", tl.pending())
	}
}

func TestTimelineGaplessAcrossRenders(t *testing.T) {
	tl := newTimeline(100)

	a, _ := constPlanes(8, 1, 0)
	b, _ := constPlanes(8, 2, 0)
	tl.schedule(a, a, 0)
	tl.schedule(b, b, 0.08)

	var got []float32
	for i := 0; i < 4; i++ {
		l := make([]float32, 5)
		tl.render(l, make([]float32, 5))
		got = append(got, l...)
	}

	for i, v := range got {
		expected := float32(0)
		switch {
		case i < 8:
			expected = 1
		case i < 16:
			expected = 2
		}
		if v != expected {
			t.Errorf("frame %d: expected %v, got %v", i, expected, v)
		}
	}
}

func TestTimelineLateBufferPlaysImmediately(t *testing.T) {
	tl := newTimeline(100)
	tl.render(make([]float32, 30), make([]float32, 30))

	left, right := constPlanes(4, 0.5, 0.5)
	tl.schedule(left, right, 0.1) // frame 10, already rendered

	l := make([]float32, 6)
	tl.render(l, make([]float32, 6))
	for i := 0; i < 4; i++ {
		if l[i] != 0.5 {
			t.Errorf("frame %d: expected late buffer to start immediately, got %v", i, l[i])
		}
	}
	if l[4] != 0 {
		t.Errorf("expected silence after late buffer, got %v", l[4])
	}

	if stats := tl.stats(); stats.Late != 1 {
		t.Errorf("expected 1 late buffer, got %d", stats.Late)
	}
}

func TestTimelineMixesOverlap(t *testing.T) {
	tl := newTimeline(100)
	a, _ := constPlanes(4, 0.25, 0)
	tl.schedule(a, a, 0)
	tl.schedule(a, a, 0.02)

	l := make([]float32, 6)
	tl.render(l, make([]float32, 6))

	expected := []float32{0.25, 0.25, 0.5, 0.5, 0.25, 0.25}
	for i := range expected {
		if l[i] != expected[i] {
			t.Errorf("frame %d: expected %v, got %v", i, expected[i], l[i])
		}
	}
}

func TestTimelineCopiesPlanes(t *testing.T) {
	tl := newTimeline(100)
	left, right := constPlanes(4, 1, 1)
	tl.schedule(left, right, 0)

	// The writer reuses its buffer after hand-off
	for i := range left {
		left[i] = 9
	}

	l := make([]float32, 4)
	tl.render(l, make([]float32, 4))
	if l[0] != 1 {
		t.Errorf("expected timeline to own a copy, got %v", l[0])
	}
}

func TestTimelineRenderInterleaved(t *testing.T) {
	tl := newTimeline(100)
	left, right := constPlanes(3, 0.75, -0.25)
	tl.schedule(left, right, 0)

	p := make([]byte, 3*audio.FrameSize+5)
	n := tl.renderInterleaved(p)
	if n != 3*audio.FrameSize {
		t.Fatalf("expected %d bytes, got %d", 3*audio.FrameSize, n)
	}

	for i := 0; i < 3; i++ {
		l, r := audio.DecodeFrame(p[i*audio.FrameSize:])
		if l != 0.75 || r != -0.25 {
			t.Errorf("frame %d: got (%v, %v)", i, l, r)
		}
	}
}

func TestNullDeviceAdvancesInRealTime(t *testing.T) {
	dev := NewNull(1000)
	defer dev.Close()

	left, right := constPlanes(20, 1, 1)
	if err := dev.Schedule(left, right, 0); err != nil {
		t.Fatalf("schedule failed: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for dev.CurrentTime() < 0.05 {
		if time.Now().After(deadline) {
			t.Fatal("null device clock did not advance")
		}
		time.Sleep(5 * time.Millisecond)
	}

	if stats := dev.Stats(); stats.Rendered != 20 {
		t.Errorf("expected 20 scheduled frames rendered, got %d", stats.Rendered)
	}

	if err := dev.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}
	if err := dev.Schedule(left, right, 0); err == nil {
		t.Error("expected schedule after close to fail")
	}
}

func TestWAVRecorder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "capture.wav")

	rec, err := NewWAVRecorder(path, 8000)
	if err != nil {
		t.Fatalf("NewWAVRecorder failed: %v", err)
	}

	left, right := constPlanes(100, 0.5, -0.5)
	if err := rec.Write(left, right); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	if err := rec.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}
	if err := rec.Write(left, right); err == nil {
		t.Error("expected write after close to fail")
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open capture: %v", err)
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		t.Fatalf("decode capture: %v", err)
	}

	if int(dec.SampleRate) != 8000 || int(dec.NumChans) != 2 || int(dec.BitDepth) != 16 {
		t.Errorf("unexpected format: %dHz %dch %dbit", dec.SampleRate, dec.NumChans, dec.BitDepth)
	}
	if len(buf.Data) != 200 {
		t.Fatalf("expected 200 samples, got %d", len(buf.Data))
	}
	if buf.Data[0] != 16383 || buf.Data[1] != -16383 {
		t.Errorf("unexpected first frame (%d, %d)", buf.Data[0], buf.Data[1])
	}
}
