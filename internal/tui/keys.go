package tui

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines the key bindings for the watch view.
type KeyMap struct {
	// Phase events.
	Breathe key.Binding // Toggle inhale/exhale.
	Inhale  key.Binding
	Exhale  key.Binding
	Hold    key.Binding

	// Session and gear.
	Session key.Binding // Start or end a session.
	Park    key.Binding
	Drift   key.Binding
	Auto    key.Binding

	Help key.Binding
	Quit key.Binding
}

// DefaultKeyMap is the built-in key binding set.
var DefaultKeyMap = KeyMap{
	Breathe: key.NewBinding(
		key.WithKeys(" ", "space"),
		key.WithHelp("space", "next phase"),
	),
	Inhale: key.NewBinding(
		key.WithKeys("i"),
		key.WithHelp("i", "inhale"),
	),
	Exhale: key.NewBinding(
		key.WithKeys("e"),
		key.WithHelp("e", "exhale"),
	),
	Hold: key.NewBinding(
		key.WithKeys("h"),
		key.WithHelp("h", "hold"),
	),
	Session: key.NewBinding(
		key.WithKeys("s"),
		key.WithHelp("s", "start/end session"),
	),
	Park: key.NewBinding(
		key.WithKeys("p"),
		key.WithHelp("p", "park"),
	),
	Drift: key.NewBinding(
		key.WithKeys("d"),
		key.WithHelp("d", "drift"),
	),
	Auto: key.NewBinding(
		key.WithKeys("a"),
		key.WithHelp("a", "auto gear"),
	),
	Help: key.NewBinding(
		key.WithKeys("?"),
		key.WithHelp("?", "help"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
}

// ShortHelp implements help.KeyMap.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Breathe, k.Session, k.Help, k.Quit}
}

// FullHelp implements help.KeyMap.
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Breathe, k.Inhale, k.Exhale, k.Hold},
		{k.Session, k.Park, k.Drift, k.Auto},
		{k.Help, k.Quit},
	}
}
