// ABOUTME: TUI initialization and control
// ABOUTME: Wraps bubbletea program for the guide player
package ui

import (
	"github.com/charmbracelet/bubbles/help"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/kisandost/kisandost-go/internal/playback"
)

// NewModel creates a new TUI model that plays script
func NewModel(title, script string, controls Controls, theme string) Model {
	return Model{
		script:   script,
		controls: controls,
		keys:     defaultKeys(),
		help:     help.New(),
		styles:   newStyles(theme),
		title:    title,
		status:   playback.StatusIdle,
		speed:    1,
		volume:   0.8,
	}
}

// Run creates the TUI program; the caller starts it
func Run(model Model) *tea.Program {
	return tea.NewProgram(model, tea.WithAltScreen())
}
