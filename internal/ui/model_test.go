// ABOUTME: Tests for TUI model and state management
// ABOUTME: Tests status updates, key handling, and rendering helpers
package ui

import (
	"math"
	"strings"
	"testing"
	"time"

	"github.com/Resonate-Protocol/slotstream/pkg/clock"
	"github.com/Resonate-Protocol/slotstream/pkg/stream"
	tea "github.com/charmbracelet/bubbletea"
)

func sampleStats() *stream.Stats {
	return &stream.Stats{
		ID:             "abc",
		State:          stream.StateRunning,
		FramesWritten:  4096,
		Handoffs:       2,
		Reclaimed:      1,
		Backpressure:   3,
		BlockedWaits:   4,
		LateHandoffs:   5,
		ScheduleErrors: 6,
		Buffers:        3,
		BufferFrames:   2048,
		Queued:         1,
		Offset:         480,
		Available:      3616,
		SampleRate:     48000,
		Elapsed:        1.5,
		Clock: clock.Stats{
			State:          clock.StateReady,
			Quality:        clock.QualityGood,
			Drift:          2 * time.Millisecond,
			DriftRate:      0.0001,
			Recalibrations: 7,
		},
	}
}

func TestNewModel(t *testing.T) {
	model := NewModel(nil) // Control is optional for testing

	if model.state != "idle" {
		t.Errorf("expected idle state, got %q", model.state)
	}
	if model.showDebug {
		t.Error("expected showDebug to be false initially")
	}
	if model.View() != "Loading..." {
		t.Error("expected loading view before the first window size")
	}
}

func TestStatusMsgPlayer(t *testing.T) {
	model := NewModel(nil)

	nb := true
	model.applyStatus(StatusMsg{
		Source:      "tone 440Hz",
		Backend:     "oto",
		State:       "playing",
		LatencyMs:   128,
		Nonblocking: &nb,
	})

	if model.source != "tone 440Hz" || model.backend != "oto" || model.state != "playing" {
		t.Errorf("unexpected player fields: %q %q %q", model.source, model.backend, model.state)
	}
	if model.latencyMs != 128 {
		t.Errorf("expected latency 128, got %d", model.latencyMs)
	}
	if !model.nonblocking {
		t.Error("expected nonblocking to be applied")
	}
}

func TestStatusMsgStream(t *testing.T) {
	model := NewModel(nil)
	model.applyStatus(StatusMsg{Stream: sampleStats()})

	if model.sampleRate != 48000 || model.buffers != 3 || model.bufferFrames != 2048 {
		t.Errorf("unexpected layout: %dHz %d x %d", model.sampleRate, model.buffers, model.bufferFrames)
	}
	if model.queued != 1 || model.offset != 480 || model.available != 3616 {
		t.Errorf("unexpected cursors: queued=%d offset=%d available=%d", model.queued, model.offset, model.available)
	}
	if model.clockState != clock.StateReady || model.quality != clock.QualityGood {
		t.Errorf("unexpected clock: %v %v", model.clockState, model.quality)
	}
	if model.drift != 2*time.Millisecond || model.recals != 7 {
		t.Errorf("unexpected drift %v or recalibrations %d", model.drift, model.recals)
	}
	if model.written != 4096 || model.handoffs != 2 || model.reclaimed != 1 {
		t.Errorf("unexpected counters: %d %d %d", model.written, model.handoffs, model.reclaimed)
	}
	if model.backpressure != 3 || model.waits != 4 || model.late != 5 || model.schedErrors != 6 {
		t.Errorf("unexpected pressure counters: %d %d %d %d", model.backpressure, model.waits, model.late, model.schedErrors)
	}

	// (2048 + 480) frames at 48kHz
	if got := model.bufferedMs(); math.Abs(got-2528000.0/48000) > 1e-9 {
		t.Errorf("unexpected buffered ms %v", got)
	}
}

func TestStatusMsgRuntimeStats(t *testing.T) {
	model := NewModel(nil)

	model.applyStatus(StatusMsg{
		Goroutines: 42,
		MemAlloc:   1024 * 1024,
		MemSys:     2048 * 1024,
	})

	if model.goroutines != 42 {
		t.Errorf("expected goroutines 42, got %d", model.goroutines)
	}
	if model.memAlloc != 1024*1024 || model.memSys != 2048*1024 {
		t.Errorf("unexpected memory stats %d / %d", model.memAlloc, model.memSys)
	}
}

func TestPartialStatusKeepsValues(t *testing.T) {
	model := NewModel(nil)
	model.applyStatus(StatusMsg{Source: "a.mp3", Stream: sampleStats()})

	// Empty fields should not clear anything
	model.applyStatus(StatusMsg{State: "paused"})

	if model.source != "a.mp3" {
		t.Error("source should not be cleared by empty string")
	}
	if model.sampleRate != 48000 {
		t.Error("stream stats should be retained without a new snapshot")
	}
	if model.state != "paused" {
		t.Errorf("expected paused, got %q", model.state)
	}
}

func TestKeyCommands(t *testing.T) {
	tests := []struct {
		key      string
		expected Command
	}{
		{"p", CommandTogglePause},
		{" ", CommandTogglePause},
		{"n", CommandToggleMode},
		{"r", CommandRecalibrate},
	}

	for _, tt := range tests {
		t.Run(tt.expected.String(), func(t *testing.T) {
			control := NewControl()
			model := NewModel(control)

			model.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(tt.key)})

			select {
			case cmd := <-control.Commands:
				if cmd != tt.expected {
					t.Errorf("expected %v, got %v", tt.expected, cmd)
				}
			default:
				t.Errorf("no command sent for key %q", tt.key)
			}
		})
	}
}

func TestQuitKey(t *testing.T) {
	control := NewControl()
	model := NewModel(control)

	_, cmd := model.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	if cmd == nil {
		t.Error("expected quit command")
	}

	select {
	case <-control.Quit:
	default:
		t.Error("expected quit signal on control channel")
	}
}

func TestDebugToggle(t *testing.T) {
	model := NewModel(nil)

	updated, _ := model.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("d")})
	m := updated.(Model)
	if !m.showDebug {
		t.Error("expected debug view after pressing d")
	}

	updated, _ = m.Update(tea.WindowSizeMsg{Width: 80, Height: 40})
	m = updated.(Model)
	m.applyStatus(StatusMsg{Stream: sampleStats()})
	if view := m.View(); !strings.Contains(view, "DEBUG") || !strings.Contains(view, "Locked") {
		t.Errorf("expected debug and clock lines in view:\n%s", view)
	}
}

func TestViewWithoutStream(t *testing.T) {
	model := NewModel(nil)
	updated, _ := model.Update(tea.WindowSizeMsg{Width: 80, Height: 40})

	view := updated.(Model).View()
	if !strings.Contains(view, "No stream") || !strings.Contains(view, "Uncalibrated") {
		t.Errorf("unexpected view:\n%s", view)
	}
}

func TestRenderBar(t *testing.T) {
	tests := []struct {
		value, max int
		expected   string
	}{
		{0, 4, "░░░░░░░░░░"},
		{2, 4, "█████░░░░░"},
		{4, 4, "██████████"},
		{1, 0, "░░░░░░░░░░"},
	}

	for _, tt := range tests {
		if got := renderBar(tt.value, tt.max, 10); got != tt.expected {
			t.Errorf("renderBar(%d, %d) = %q, expected %q", tt.value, tt.max, got, tt.expected)
		}
	}
}

func TestTruncateFunction(t *testing.T) {
	tests := []struct {
		input    string
		maxLen   int
		expected string
	}{
		{"short", 10, "short"},
		{"this is longer than allowed", 10, "this is..."},
		{"", 10, ""},
		{"abcd", 4, "abcd"},
		{"abcde", 4, "a..."},
	}

	for _, tt := range tests {
		result := truncate(tt.input, tt.maxLen)
		if result != tt.expected {
			t.Errorf("truncate(%q, %d) = %q, expected %q",
				tt.input, tt.maxLen, result, tt.expected)
		}
	}
}
