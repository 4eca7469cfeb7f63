// Copyright 2026 The Dreamvisitor Authors
// SPDX-License-Identifier: Apache-2.0

package tui

import "github.com/charmbracelet/lipgloss"

// Theme defines the color palette for the dashboard. All colors use
// lipgloss ANSI 256-color codes for broad terminal compatibility.
//
// The fields cover universal chrome (text, selection, borders) and the
// semantic categories that recur across views: command execution
// status in the console, server reachability in the header tile, and
// the success/error/warning accents of the config panels.
type Theme struct {
	// Text colors.
	NormalText lipgloss.Color
	FaintText  lipgloss.Color

	// Selected row.
	SelectedBackground lipgloss.Color
	SelectedForeground lipgloss.Color

	// Command execution status in the console transcript.
	StatusSent     lipgloss.Color
	StatusReceived lipgloss.Color
	StatusExecuted lipgloss.Color
	StatusFailed   lipgloss.Color

	// Server reachability in the status tile.
	Online  lipgloss.Color
	Offline lipgloss.Color

	// UI chrome.
	HeaderForeground lipgloss.Color
	BorderColor      lipgloss.Color
	HelpText         lipgloss.Color
	Accent           lipgloss.Color

	// Panel accents: the transient saved indicator, inline errors, and
	// the external-changes banner.
	SuccessText lipgloss.Color
	ErrorText   lipgloss.Color
	WarningText lipgloss.Color

	// Fuzzy match highlighting in the users table.
	SearchHighlightBackground lipgloss.Color

	// Failure highlight: background tint for an unacknowledged failed
	// command, and a brighter tint while the jump cursor sits on it.
	FailureBackground       lipgloss.Color
	FailureCursorBackground lipgloss.Color

	// Modal boxes.
	ModalForeground lipgloss.Color
	ModalBackground lipgloss.Color
}

// CommandStatusColor returns the color for a console command status.
// Unknown values render faint.
func (theme Theme) CommandStatusColor(status string) lipgloss.Color {
	switch status {
	case "sent":
		return theme.StatusSent
	case "received":
		return theme.StatusReceived
	case "executed":
		return theme.StatusExecuted
	case "failed":
		return theme.StatusFailed
	default:
		return theme.FaintText
	}
}

// DefaultTheme is the built-in dark-terminal color scheme. Designed
// for 256-color terminals with a dark background.
var DefaultTheme = Theme{
	NormalText: lipgloss.Color("252"),
	FaintText:  lipgloss.Color("245"),

	SelectedBackground: lipgloss.Color("236"),
	SelectedForeground: lipgloss.Color("255"),

	StatusSent:     lipgloss.Color("245"), // gray: not yet acknowledged
	StatusReceived: lipgloss.Color("220"), // amber: accepted, running
	StatusExecuted: lipgloss.Color("114"), // green
	StatusFailed:   lipgloss.Color("196"), // red

	Online:  lipgloss.Color("114"),
	Offline: lipgloss.Color("196"),

	HeaderForeground: lipgloss.Color("255"),
	BorderColor:      lipgloss.Color("240"),
	HelpText:         lipgloss.Color("241"),
	Accent:           lipgloss.Color("75"), // blue

	SuccessText: lipgloss.Color("114"),
	ErrorText:   lipgloss.Color("196"),
	WarningText: lipgloss.Color("220"),

	SearchHighlightBackground: lipgloss.Color("58"), // dark amber

	FailureBackground:       lipgloss.Color("52"),  // dark red tint
	FailureCursorBackground: lipgloss.Color("124"), // brighter red for the cursor

	ModalForeground: lipgloss.Color("252"),
	ModalBackground: lipgloss.Color("237"),
}
