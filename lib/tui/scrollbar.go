// Copyright 2026 The Dreamvisitor Authors
// SPDX-License-Identifier: Apache-2.0

package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// RenderScrollbar draws a one-column scrollbar for a pane showing
// visibleItems of totalItems rows, scrolled to scrollOffset. The bar
// always renders track and thumb; the thumb picks up the accent color
// while the pane is focused and the border color otherwise.
func RenderScrollbar(theme Theme, height, totalItems, visibleItems, scrollOffset int, focused bool) string {
	if height <= 0 {
		return ""
	}

	thumbColor := theme.BorderColor
	if focused {
		thumbColor = theme.Accent
	}
	thumb := lipgloss.NewStyle().Foreground(thumbColor).Render("┃")
	track := lipgloss.NewStyle().Foreground(theme.BorderColor).Render("│")

	top, length := thumbSpan(height, totalItems, visibleItems, scrollOffset)

	var builder strings.Builder
	for row := 0; row < height; row++ {
		if row > 0 {
			builder.WriteByte('\n')
		}
		if row >= top && row < top+length {
			builder.WriteString(thumb)
		} else {
			builder.WriteString(track)
		}
	}
	return builder.String()
}

// thumbSpan sizes and places the thumb on a track of the given
// height: length proportional to the visible share of the content
// with a one-row floor, top proportional to the scroll position
// within the scrollable range. Content that fits yields a thumb
// covering the whole track.
func thumbSpan(height, totalItems, visibleItems, scrollOffset int) (top, length int) {
	if totalItems <= visibleItems || totalItems <= 0 {
		return 0, height
	}
	length = height * visibleItems / totalItems
	if length < 1 {
		length = 1
	}
	scrollable := totalItems - visibleItems
	if track := height - length; track > 0 && scrollable > 0 {
		top = scrollOffset * track / scrollable
	}
	if top+length > height {
		top = height - length
	}
	return top, length
}
