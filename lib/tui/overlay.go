// Copyright 2026 The Dreamvisitor Authors
// SPDX-License-Identifier: Apache-2.0

package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
)

// SpliceOverlay replaces a rectangular region of a rendered view with
// overlay content. The overlay lines are placed starting at (anchorX,
// anchorY) in screen coordinates. Uses ANSI-aware truncation so escape
// sequences in the original view are preserved on both sides of the
// overlay. The dashboard uses this to float the infraction modal and
// the external-changes banner over a live view.
func SpliceOverlay(view string, overlayLines []string, anchorX, anchorY int) string {
	if len(overlayLines) == 0 {
		return view
	}

	viewLines := strings.Split(view, "\n")
	overlayWidth := ansi.StringWidth(overlayLines[0])

	for index, overlayLine := range overlayLines {
		viewLineIndex := anchorY + index
		if viewLineIndex < 0 || viewLineIndex >= len(viewLines) {
			continue
		}

		viewLine := viewLines[viewLineIndex]
		viewLineWidth := ansi.StringWidth(viewLine)

		// Build: prefix + reset + overlay + reset + suffix.
		var result strings.Builder

		if anchorX > 0 {
			prefix := ansi.Truncate(viewLine, anchorX, "")
			result.WriteString(prefix)
		}
		result.WriteString("\x1b[0m")
		result.WriteString(overlayLine)
		result.WriteString("\x1b[0m")

		suffixStart := anchorX + overlayWidth
		if suffixStart < viewLineWidth {
			suffix := ansi.TruncateLeft(viewLine, suffixStart, "")
			result.WriteString(suffix)
		}

		viewLines[viewLineIndex] = result.String()
	}

	return strings.Join(viewLines, "\n")
}

// PadOverlayLine takes styled content for the inner area and pads it
// to the full width with background-colored spaces. Returns
// " content  " with background applied to the padding.
func PadOverlayLine(styledContent string, innerWidth, totalWidth int, backgroundStyle lipgloss.Style) string {
	contentWidth := ansi.StringWidth(styledContent)
	rightPad := innerWidth - contentWidth
	if rightPad < 0 {
		rightPad = 0
	}
	return backgroundStyle.Render(" ") +
		styledContent +
		backgroundStyle.Render(strings.Repeat(" ", rightPad+1))
}
