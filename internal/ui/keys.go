// ABOUTME: Key bindings for the guide player
// ABOUTME: Built on bubbles/key so help text stays in sync with handling
package ui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Toggle     key.Binding
	Back       key.Binding
	Forward    key.Binding
	Speed      key.Binding
	VolumeUp   key.Binding
	VolumeDown key.Binding
	Quit       key.Binding
}

func defaultKeys() keyMap {
	return keyMap{
		Toggle:     key.NewBinding(key.WithKeys(" ", "p"), key.WithHelp("space", "play/pause")),
		Back:       key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("←", "-10s")),
		Forward:    key.NewBinding(key.WithKeys("right", "l"), key.WithHelp("→", "+10s")),
		Speed:      key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "speed")),
		VolumeUp:   key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑", "vol+")),
		VolumeDown: key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓", "vol-")),
		Quit:       key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

// ShortHelp implements help.KeyMap
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Toggle, k.Back, k.Forward, k.Speed, k.VolumeUp, k.VolumeDown, k.Quit}
}

// FullHelp implements help.KeyMap
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp()}
}
