// ABOUTME: Bubbletea model for player TUI
// ABOUTME: Defines stream status state, rendering and key handling
package ui

import (
	"fmt"
	"time"

	"github.com/Resonate-Protocol/slotstream/pkg/clock"
	"github.com/Resonate-Protocol/slotstream/pkg/stream"
	tea "github.com/charmbracelet/bubbletea"
)

// Model represents the TUI state
type Model struct {
	// Player
	source  string
	backend string
	state   string

	// Stream
	streamID     string
	sampleRate   int
	buffers      int
	bufferFrames int
	latencyMs    int
	nonblocking  bool

	// Buffering
	queued    int
	offset    int
	available int

	// Clock
	clockState clock.State
	quality    clock.Quality
	drift      time.Duration
	driftRate  float64
	recals     int
	elapsed    float64

	// Stats
	written      int64
	handoffs     int64
	reclaimed    int64
	backpressure int64
	waits        int64
	late         int64
	schedErrors  int64

	// Runtime
	goroutines int
	memAlloc   uint64
	memSys     uint64

	// Debug
	showDebug bool

	// Control
	control *Control

	// Dimensions
	width  int
	height int
}

// Init initializes the model
func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	case StatusMsg:
		m.applyStatus(msg)
	}

	return m, nil
}

// View renders the TUI
func (m Model) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	s := ""
	s += m.renderHeader()
	s += m.renderStreamInfo()
	s += m.renderBuffer()
	s += m.renderStats()

	if m.showDebug {
		s += m.renderDebug()
	}

	s += m.renderHelp()

	return s
}

// renderHeader renders player and clock status
func (m Model) renderHeader() string {
	status := m.state
	if status == "" {
		status = "idle"
	}
	if m.source != "" {
		status = fmt.Sprintf("%s %s", status, m.source)
	}

	clockIcon := "✗"
	clockText := "Uncalibrated"
	if m.clockState == clock.StateCalibrating {
		clockText = "Calibrating"
	}
	if m.clockState == clock.StateReady {
		switch m.quality {
		case clock.QualityGood:
			clockIcon = "✓"
			clockText = fmt.Sprintf("Locked (drift: %+.2fms)", float64(m.drift.Microseconds())/1000.0)
		case clock.QualityDegraded:
			clockIcon = "⚠"
			clockText = fmt.Sprintf("Drifting (%+.2fms)", float64(m.drift.Microseconds())/1000.0)
		}
	}

	return fmt.Sprintf(`┌─ Slotstream ─────────────────────────────────────────┐
│ Status: %-45s │
│ Clock:  %s %-42s │
├──────────────────────────────────────────────────────┤
`, truncate(status, 45), clockIcon, clockText)
}

// renderStreamInfo renders the device and pool layout
func (m Model) renderStreamInfo() string {
	if m.sampleRate == 0 {
		return "│ No stream                                            │\n"
	}

	mode := "blocking"
	if m.nonblocking {
		mode = "non-blocking"
	}

	s := fmt.Sprintf("│ Output: %-45s │\n", truncate(m.backend, 45))
	s += fmt.Sprintf("│ Format: %-45s │\n", fmt.Sprintf("%dHz Stereo float32", m.sampleRate))
	s += fmt.Sprintf("│ Pool:   %-45s │\n",
		fmt.Sprintf("%d x %d frames, target %dms, %s", m.buffers, m.bufferFrames, m.latencyMs, mode))
	return s
}

// renderBuffer renders queue depth
func (m Model) renderBuffer() string {
	bar := renderBar(m.queued, m.buffers, 10)
	return fmt.Sprintf("│                                                      │\n"+
		"│ Queue:  [%s] %-34s │\n",
		bar, fmt.Sprintf("%d/%d queued, %.0fms buffered", m.queued, m.buffers, m.bufferedMs()))
}

// renderStats renders stream counters
func (m Model) renderStats() string {
	return fmt.Sprintf(`├──────────────────────────────────────────────────────┤
│ Stats:  %-45s │
│         %-45s │
│                                                      │
`,
		fmt.Sprintf("Written: %d  Hand-offs: %d  Reclaimed: %d", m.written, m.handoffs, m.reclaimed),
		fmt.Sprintf("Pushback: %d  Waits: %d  Late: %d  Errors: %d", m.backpressure, m.waits, m.late, m.schedErrors))
}

// renderHelp renders keyboard shortcuts
func (m Model) renderHelp() string {
	return `│ p:Pause  n:Mode  r:Recalibrate  d:Debug  q:Quit      │
└──────────────────────────────────────────────────────┘
`
}

// renderDebug renders debug information
func (m Model) renderDebug() string {
	return fmt.Sprintf(`│ DEBUG:                                               │
│   Stream: %-42s │
│   Elapsed: %-41s │
│   Drift rate: %-38s │
│   Recalibrations: %-34d │
│   Goroutines: %-38d │
│   Memory: %-42s │
`,
		truncate(m.streamID, 42),
		fmt.Sprintf("%.3fs", m.elapsed),
		fmt.Sprintf("%+.2fppm", m.driftRate*1e6),
		m.recals,
		m.goroutines,
		fmt.Sprintf("%.1f MB alloc / %.1f MB sys", float64(m.memAlloc)/1024/1024, float64(m.memSys)/1024/1024))
}

// handleKey handles keyboard input
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		if m.control != nil {
			select {
			case m.control.Quit <- QuitMsg{}:
			default:
			}
		}
		return m, tea.Quit
	case "p", " ":
		m.send(CommandTogglePause)
	case "n":
		m.nonblocking = !m.nonblocking
		m.send(CommandToggleMode)
	case "r":
		m.send(CommandRecalibrate)
	case "d":
		m.showDebug = !m.showDebug
	}

	return m, nil
}

// send forwards a command without blocking the UI
func (m Model) send(cmd Command) {
	if m.control == nil {
		return
	}
	select {
	case m.control.Commands <- cmd:
	default:
	}
}

// applyStatus updates model from status message
func (m *Model) applyStatus(msg StatusMsg) {
	if msg.Source != "" {
		m.source = msg.Source
	}
	if msg.Backend != "" {
		m.backend = msg.Backend
	}
	if msg.State != "" {
		m.state = msg.State
	}
	if msg.LatencyMs != 0 {
		m.latencyMs = msg.LatencyMs
	}
	if msg.Nonblocking != nil {
		m.nonblocking = *msg.Nonblocking
	}
	if msg.Stream != nil {
		st := msg.Stream
		m.streamID = st.ID
		m.sampleRate = st.SampleRate
		m.buffers = st.Buffers
		m.bufferFrames = st.BufferFrames
		m.queued = st.Queued
		m.offset = st.Offset
		m.available = st.Available
		m.elapsed = st.Elapsed

		m.clockState = st.Clock.State
		m.quality = st.Clock.Quality
		m.drift = st.Clock.Drift
		m.driftRate = st.Clock.DriftRate
		m.recals = st.Clock.Recalibrations

		m.written = st.FramesWritten
		m.handoffs = st.Handoffs
		m.reclaimed = st.Reclaimed
		m.backpressure = st.Backpressure
		m.waits = st.BlockedWaits
		m.late = st.LateHandoffs
		m.schedErrors = st.ScheduleErrors
	}
	if msg.Goroutines != 0 {
		m.goroutines = msg.Goroutines
		m.memAlloc = msg.MemAlloc
		m.memSys = msg.MemSys
	}
}

// bufferedMs is the audio held in queued and active buffers
func (m Model) bufferedMs() float64 {
	if m.sampleRate == 0 {
		return 0
	}
	frames := m.queued*m.bufferFrames + m.offset
	return float64(frames) * 1000 / float64(m.sampleRate)
}

// StatusMsg updates TUI state. Empty fields leave the model unchanged.
type StatusMsg struct {
	Source      string
	Backend     string
	State       string
	LatencyMs   int
	Nonblocking *bool
	Stream      *stream.Stats
	Goroutines  int
	MemAlloc    uint64
	MemSys      uint64
}

// Utility functions
func renderBar(value, max, width int) string {
	filled := 0
	if max > 0 {
		filled = (value * width) / max
	}
	bar := ""
	for i := 0; i < width; i++ {
		if i < filled {
			bar += "█"
		} else {
			bar += "░"
		}
	}
	return bar
}

func truncate(s string, length int) string {
	if len(s) <= length {
		return s
	}
	return s[:length-3] + "..."
}
