package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines all keyboard bindings for the application.
type keyMap struct {
	// Global
	Quit       key.Binding
	Help       key.Binding
	CycleTheme key.Binding
	Refresh    key.Binding
	Escape     key.Binding

	// View switching
	ViewLeaderboard key.Binding
	ViewLogs        key.Binding

	// Navigation
	Up   key.Binding
	Down key.Binding
	Tab  key.Binding
	Open key.Binding

	// Challenges
	Challenge    key.Binding
	ChallengeBot key.Binding
	Accept       key.Binding
	Decline      key.Binding
	Cancel       key.Binding

	// Battle
	Attack  key.Binding
	Concede key.Binding

	// Leaderboard
	ToggleSort key.Binding
}

// DefaultKeyMap returns the default key bindings.
func DefaultKeyMap() keyMap {
	return keyMap{
		Quit: key.NewBinding(
			key.WithKeys("ctrl+c", "q"),
			key.WithHelp("q", "Quit"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "Toggle help"),
		),
		CycleTheme: key.NewBinding(
			key.WithKeys("T"),
			key.WithHelp("T", "Cycle theme"),
		),
		Refresh: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "Refresh"),
		),
		Escape: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "Back to lobby"),
		),

		ViewLeaderboard: key.NewBinding(
			key.WithKeys("L"),
			key.WithHelp("L", "Leaderboard"),
		),
		ViewLogs: key.NewBinding(
			key.WithKeys("l"),
			key.WithHelp("l", "Client log"),
		),

		Up: key.NewBinding(
			key.WithKeys("k", "up"),
			key.WithHelp("k/up", "Move up"),
		),
		Down: key.NewBinding(
			key.WithKeys("j", "down"),
			key.WithHelp("j/down", "Move down"),
		),
		Tab: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "Next list"),
		),
		Open: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "Open battle"),
		),

		Challenge: key.NewBinding(
			key.WithKeys("c"),
			key.WithHelp("c", "Challenge user"),
		),
		ChallengeBot: key.NewBinding(
			key.WithKeys("b"),
			key.WithHelp("b", "Challenge as bot"),
		),
		Accept: key.NewBinding(
			key.WithKeys("a"),
			key.WithHelp("a", "Accept request"),
		),
		Decline: key.NewBinding(
			key.WithKeys("d"),
			key.WithHelp("d", "Decline request"),
		),
		Cancel: key.NewBinding(
			key.WithKeys("x"),
			key.WithHelp("x", "Cancel challenge"),
		),

		Attack: key.NewBinding(
			key.WithKeys("1", "2", "3", "4", "5", "6"),
			key.WithHelp("1-6", "Use attack"),
		),
		Concede: key.NewBinding(
			key.WithKeys("C"),
			key.WithHelp("C", "Concede"),
		),

		ToggleSort: key.NewBinding(
			key.WithKeys("s"),
			key.WithHelp("s", "Sort attacks"),
		),
	}
}

// ShortHelp returns key bindings for the command bar.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Challenge, k.Accept, k.Attack, k.ViewLeaderboard, k.ViewLogs, k.Help, k.Quit}
}

// FullHelp returns key bindings for the help overlay.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		// Navigation
		{k.Up, k.Down, k.Tab, k.Open, k.Escape},
		// Challenges
		{k.Challenge, k.ChallengeBot, k.Accept, k.Decline, k.Cancel},
		// Battle
		{k.Attack, k.Concede},
		// Views
		{k.ViewLeaderboard, k.ToggleSort, k.ViewLogs},
		// General
		{k.Refresh, k.CycleTheme, k.Help, k.Quit},
	}
}
