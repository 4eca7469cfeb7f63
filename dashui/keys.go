// Copyright 2026 The Dreamvisitor Authors
// SPDX-License-Identifier: Apache-2.0

package dashui

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines all key bindings for the dashboard TUI. Text inputs
// (command line, search, field editors) capture printable keys while
// focused, so the global bindings stick to control chords and keys
// those inputs ignore.
type KeyMap struct {
	// Navigation (context-sensitive: list movement, transcript
	// scrolling, or form movement depending on the active view).
	Up       key.Binding
	Down     key.Binding
	PageUp   key.Binding
	PageDown key.Binding

	// Tab switching.
	NextTab key.Binding
	PrevTab key.Binding

	// Config sub-panel switching (Dreamvisitor / Server).
	PanelNext key.Binding
	PanelPrev key.Binding

	// Generic confirm / dismiss.
	Select key.Binding // Edit field, open detail, submit modal.
	Back   key.Binding // Cancel edit, close modal, leave detail.

	// Draft lifecycle on the config panels.
	Apply   key.Binding
	Revert  key.Binding
	Refresh key.Binding

	// Console.
	JumpFailure key.Binding // Move the cursor to the next failed command.

	// Config forms.
	Toggle key.Binding // Flip a boolean field without entering edit mode.

	// Users.
	Search         key.Binding // Focus the fuzzy search input.
	NewInfraction  key.Binding
	EditInfraction key.Binding

	// Manual retry after a failed initial load.
	Retry key.Binding

	Quit key.Binding
}

// DefaultKeyMap is the built-in key binding set. Vim-style j/k
// alongside arrows; draft operations on control chords so they work
// even while a field editor is focused.
var DefaultKeyMap = KeyMap{
	Up: key.NewBinding(
		key.WithKeys("k", "up"),
		key.WithHelp("k/↑", "up"),
	),
	Down: key.NewBinding(
		key.WithKeys("j", "down"),
		key.WithHelp("j/↓", "down"),
	),
	PageUp: key.NewBinding(
		key.WithKeys("pgup"),
		key.WithHelp("PgUp", "page up"),
	),
	PageDown: key.NewBinding(
		key.WithKeys("pgdown"),
		key.WithHelp("PgDn", "page down"),
	),
	NextTab: key.NewBinding(
		key.WithKeys("tab"),
		key.WithHelp("Tab", "next tab"),
	),
	PrevTab: key.NewBinding(
		key.WithKeys("shift+tab"),
		key.WithHelp("S-Tab", "previous tab"),
	),
	PanelNext: key.NewBinding(
		key.WithKeys("]"),
		key.WithHelp("]", "next panel"),
	),
	PanelPrev: key.NewBinding(
		key.WithKeys("["),
		key.WithHelp("[", "previous panel"),
	),
	Select: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("Enter", "select"),
	),
	Back: key.NewBinding(
		key.WithKeys("esc"),
		key.WithHelp("Esc", "back"),
	),
	Apply: key.NewBinding(
		key.WithKeys("ctrl+s"),
		key.WithHelp("C-s", "apply"),
	),
	Revert: key.NewBinding(
		key.WithKeys("ctrl+z"),
		key.WithHelp("C-z", "revert"),
	),
	Refresh: key.NewBinding(
		key.WithKeys("ctrl+r"),
		key.WithHelp("C-r", "refresh"),
	),
	JumpFailure: key.NewBinding(
		key.WithKeys("ctrl+f"),
		key.WithHelp("C-f", "next failure"),
	),
	Toggle: key.NewBinding(
		key.WithKeys(" "),
		key.WithHelp("Space", "toggle"),
	),
	Search: key.NewBinding(
		key.WithKeys("/"),
		key.WithHelp("/", "search"),
	),
	NewInfraction: key.NewBinding(
		key.WithKeys("n"),
		key.WithHelp("n", "new infraction"),
	),
	EditInfraction: key.NewBinding(
		key.WithKeys("e"),
		key.WithHelp("e", "edit infraction"),
	),
	Retry: key.NewBinding(
		key.WithKeys("r"),
		key.WithHelp("r", "retry"),
	),
	Quit: key.NewBinding(
		key.WithKeys("ctrl+c"),
		key.WithHelp("C-c", "quit"),
	),
}
