// ABOUTME: TUI initialization and control
// ABOUTME: Wraps bubbletea program and the command channel back to the player
package ui

import (
	tea "github.com/charmbracelet/bubbletea"
)

// Command is a player action requested from the keyboard
type Command int

const (
	CommandTogglePause Command = iota
	CommandToggleMode
	CommandRecalibrate
)

func (c Command) String() string {
	switch c {
	case CommandTogglePause:
		return "pause"
	case CommandToggleMode:
		return "mode"
	case CommandRecalibrate:
		return "recalibrate"
	default:
		return "unknown"
	}
}

// QuitMsg signals that the user quit the TUI
type QuitMsg struct{}

// Control holds channels for player control communication
type Control struct {
	Commands chan Command
	Quit     chan QuitMsg
}

// NewControl creates a new control handler
func NewControl() *Control {
	return &Control{
		Commands: make(chan Command, 10),
		Quit:     make(chan QuitMsg, 1),
	}
}

// NewModel creates a new TUI model
func NewModel(control *Control) Model {
	return Model{
		state:   "idle",
		control: control,
	}
}

// Run creates the TUI program
func Run(control *Control) (*tea.Program, error) {
	p := tea.NewProgram(NewModel(control), tea.WithAltScreen())
	return p, nil
}
