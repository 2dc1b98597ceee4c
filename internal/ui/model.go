// ABOUTME: Bubbletea model for the guide player TUI
// ABOUTME: Defines player state, rendering and key handling
package ui

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/kisandost/kisandost-go/internal/playback"
)

const (
	skipSeconds = 10
	volumeStep  = 0.1
	barWidth    = 40
)

// Controls is the playback surface the TUI drives
type Controls interface {
	RequestPlay(ctx context.Context, text string) error
	TogglePause()
	Skip(delta float64)
	CycleSpeed() float64
	SetVolume(level float64)
}

// Model represents the TUI state
type Model struct {
	controls Controls
	keys     keyMap
	help     help.Model
	styles   styles

	// Guide
	title  string
	script string

	// Playback
	status   playback.Status
	position float64
	duration float64
	speed    float64
	volume   float64
	errText  string

	// Dimensions
	width  int
	height int
}

// StatusMsg carries a controller snapshot into the TUI
type StatusMsg struct {
	Status   playback.Status
	Position float64
	Duration float64
	Speed    float64
	Volume   float64
	Err      string
}

// StatusFromSnapshot converts a controller snapshot
func StatusFromSnapshot(s playback.Snapshot) StatusMsg {
	msg := StatusMsg{
		Status:   s.Status,
		Position: s.Position,
		Duration: s.Duration,
		Speed:    s.Speed,
		Volume:   s.Volume,
	}
	if s.Err != nil {
		msg.Err = s.Err.Error()
	}
	return msg
}

// TitleMsg changes the displayed guide title
type TitleMsg string

// Init starts playing the guide
func (m Model) Init() tea.Cmd {
	return m.play()
}

// play fetches and starts the guide off the update loop
func (m Model) play() tea.Cmd {
	if m.controls == nil || m.script == "" {
		return nil
	}
	controls, script := m.controls, m.script
	return func() tea.Msg {
		err := controls.RequestPlay(context.Background(), script)
		if err != nil && !errors.Is(err, playback.ErrSuperseded) {
			log.Printf("Guide playback failed: %v", err)
		}
		return nil
	}
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
	case StatusMsg:
		m.applyStatus(msg)
	case TitleMsg:
		m.title = string(msg)
	}

	return m, nil
}

// View renders the TUI
func (m Model) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	var b strings.Builder
	b.WriteString(m.styles.title.Render("KisanDost · " + truncate(m.title, 48)))
	b.WriteString("\n\n")
	b.WriteString(m.renderStatus())
	b.WriteString("\n")
	b.WriteString(m.renderProgress())
	b.WriteString("\n")
	b.WriteString(m.renderControls())
	b.WriteString("\n\n")
	b.WriteString(m.help.View(m.keys))
	b.WriteString("\n")

	return m.styles.frame.Render(b.String())
}

func (m Model) renderStatus() string {
	switch m.status {
	case playback.StatusLoading:
		return m.styles.muted.Render("Preparing audio...")
	case playback.StatusError:
		return m.styles.err.Render("Audio unavailable: " + m.errText)
	case playback.StatusPlaying:
		return m.styles.accent.Render("▶ Playing")
	case playback.StatusPaused:
		return m.styles.muted.Render("⏸ Paused")
	case playback.StatusEnded:
		return m.styles.muted.Render("■ Finished")
	}
	return m.styles.muted.Render("Idle")
}

func (m Model) renderProgress() string {
	filled := 0
	if m.duration > 0 {
		filled = int(math.Round(m.position / m.duration * barWidth))
	}
	return fmt.Sprintf("%s %s / %s",
		renderBar(filled, barWidth), formatClock(m.position), formatClock(m.duration))
}

func (m Model) renderControls() string {
	volume := int(math.Round(m.volume * 100))
	return fmt.Sprintf("Speed: %gx   Volume: [%s] %d%%",
		m.speed, renderBar(volume/10, 10), volume)
}

// handleKey maps keys onto the controller
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case m.controls == nil:
		return m, nil
	case key.Matches(msg, m.keys.Toggle):
		switch m.status {
		case playback.StatusIdle, playback.StatusEnded, playback.StatusError:
			m.status = playback.StatusLoading
			return m, m.play()
		case playback.StatusLoading:
			// a fetch is already running
		default:
			m.controls.TogglePause()
		}
	case key.Matches(msg, m.keys.Back):
		m.controls.Skip(-skipSeconds)
	case key.Matches(msg, m.keys.Forward):
		m.controls.Skip(skipSeconds)
	case key.Matches(msg, m.keys.Speed):
		m.speed = m.controls.CycleSpeed()
	case key.Matches(msg, m.keys.VolumeUp):
		m.volume = math.Min(1, m.volume+volumeStep)
		m.controls.SetVolume(m.volume)
	case key.Matches(msg, m.keys.VolumeDown):
		m.volume = math.Max(0, m.volume-volumeStep)
		m.controls.SetVolume(m.volume)
	}

	return m, nil
}

// applyStatus updates model from status message
func (m *Model) applyStatus(msg StatusMsg) {
	m.status = msg.Status
	m.position = msg.Position
	m.duration = msg.Duration
	if msg.Speed != 0 {
		m.speed = msg.Speed
	}
	m.volume = msg.Volume
	m.errText = msg.Err
}

// Utility functions
func renderBar(filled, width int) string {
	filled = max(0, min(filled, width))
	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
}

func formatClock(seconds float64) string {
	total := int(math.Max(0, seconds))
	return fmt.Sprintf("%d:%02d", total/60, total%60)
}

func truncate(s string, length int) string {
	r := []rune(s)
	if len(r) <= length {
		return s
	}
	return string(r[:length-3]) + "..."
}

type styles struct {
	frame  lipgloss.Style
	title  lipgloss.Style
	accent lipgloss.Style
	muted  lipgloss.Style
	err    lipgloss.Style
}

func newStyles(theme string) styles {
	accent, muted, border := lipgloss.Color("28"), lipgloss.Color("242"), lipgloss.Color("34")
	if theme == "dark" {
		accent, muted, border = lipgloss.Color("120"), lipgloss.Color("250"), lipgloss.Color("71")
	}

	return styles{
		frame:  lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(border).Padding(0, 1),
		title:  lipgloss.NewStyle().Bold(true).Foreground(accent),
		accent: lipgloss.NewStyle().Foreground(accent),
		muted:  lipgloss.NewStyle().Foreground(muted),
		err:    lipgloss.NewStyle().Foreground(lipgloss.Color("160")),
	}
}
