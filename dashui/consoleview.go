// Copyright 2026 The Dreamvisitor Authors
// SPDX-License-Identifier: Apache-2.0

package dashui

import (
	"fmt"
	"slices"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/dreamvisitor/dashboard/console"
	"github.com/dreamvisitor/dashboard/lib/tui"
)

// consoleModel renders the merged log/command transcript in a
// viewport with a command input line underneath.
//
// Scrolling follows the stick-to-bottom rule: new items auto-scroll
// only while the viewport already sits at the bottom. A manual scroll
// away latches following off; scrolling back to the bottom latches it
// on again.
type consoleModel struct {
	theme tui.Theme

	viewport viewport.Model
	input    textinput.Model

	follow  bool
	loading bool
	sendErr string

	// visibleOrder is the render order of failed command ids, handed
	// to the feed cursor on jump so "next" matches what the operator
	// sees.
	visibleOrder []string
	// lastOrder is the order most recently handed to the feed cursor.
	lastOrder []string
	// failureLines maps a failed command id to its transcript line,
	// for scrolling the jump target into view.
	failureLines map[string]int
	// cursorID is the failure the jump cursor last landed on; it
	// renders with the brighter cursor tint until viewed.
	cursorID string

	width  int
	height int
}

func newConsoleModel(theme tui.Theme) consoleModel {
	input := textinput.New()
	input.Placeholder = "server command"
	input.Prompt = "> "
	input.CharLimit = 512
	input.Focus()

	return consoleModel{
		theme:        theme,
		input:        input,
		follow:       true,
		loading:      true,
		failureLines: make(map[string]int),
	}
}

// setSize lays the viewport out within the tab body. The bottom two
// lines hold the input and its divider.
func (view *consoleModel) setSize(width, height int) {
	view.width = width
	view.height = height
	view.input.Width = width - 4
	bodyHeight := height - 2
	if bodyHeight < 1 {
		bodyHeight = 1
	}
	view.viewport.Width = width
	view.viewport.Height = bodyHeight
}

// refresh re-renders the transcript from the feed. Called on every
// change notification; keeps the bottom anchored when following.
func (view *consoleModel) refresh(feed *console.Feed) {
	items := feed.Items()
	lines := make([]string, 0, len(items))
	view.visibleOrder = view.visibleOrder[:0]
	view.failureLines = make(map[string]int, 4)

	for _, item := range items {
		if item.Status == console.StatusFailed {
			view.visibleOrder = append(view.visibleOrder, item.ID)
			view.failureLines[item.ID] = len(lines)
		}
		lines = append(lines, view.renderItem(item, feed))
	}

	view.viewport.SetContent(strings.Join(lines, "\n"))
	if view.follow {
		view.viewport.GotoBottom()
	}
}

// renderItem formats one transcript line: faint timestamp, a colored
// status label for commands, and the text. Unacknowledged failures
// carry a background tint, brighter while the jump cursor sits on
// them.
func (view *consoleModel) renderItem(item console.Item, feed *console.Feed) string {
	theme := view.theme
	timestamp := lipgloss.NewStyle().Foreground(theme.FaintText).
		Render(item.Timestamp.Local().Format("15:04:05"))

	var body string
	if item.Kind == console.KindCommand {
		label := lipgloss.NewStyle().Foreground(theme.CommandStatusColor(string(item.Status))).
			Render(fmt.Sprintf("[%s]", strings.ToUpper(string(item.Status))))
		body = label + " " + item.Text
	} else {
		body = lipgloss.NewStyle().Foreground(theme.NormalText).Render(item.Text)
	}

	line := timestamp + " " + body
	if item.Status == console.StatusFailed && !feed.Viewed(item.ID) {
		background := theme.FailureBackground
		if item.ID == view.cursorID {
			background = theme.FailureCursorBackground
		}
		line = lipgloss.NewStyle().Background(background).Render(line)
	}
	return line
}

// handleKey processes a key press on the console tab. The input line
// keeps focus; scrolling and the failure jump live on keys the input
// ignores.
func (view *consoleModel) handleKey(message tea.KeyMsg, keys KeyMap, app *App) tea.Cmd {
	switch {
	case key.Matches(message, keys.Select):
		text := strings.TrimSpace(view.input.Value())
		if text == "" {
			return nil
		}
		view.input.SetValue("")
		view.sendErr = ""
		return sendCommandCmd(app, text)

	case key.Matches(message, keys.PageUp):
		view.viewport.HalfViewUp()
		view.follow = view.viewport.AtBottom()
		return nil

	case key.Matches(message, keys.PageDown):
		view.viewport.HalfViewDown()
		view.follow = view.viewport.AtBottom()
		return nil

	case key.Matches(message, keys.JumpFailure):
		view.jumpToFailure(app.Console.Feed())
		return nil
	}

	var cmd tea.Cmd
	view.input, cmd = view.input.Update(message)
	return cmd
}

// jumpToFailure advances the feed's failure cursor through the
// on-screen order and scrolls the target into view. The order is only
// re-handed to the feed when it changed, since resetting it rewinds
// the cursor. Following is latched off so the highlight stays visible.
func (view *consoleModel) jumpToFailure(feed *console.Feed) {
	if !slices.Equal(view.visibleOrder, view.lastOrder) {
		feed.SetFailureOrder(view.visibleOrder)
		view.lastOrder = slices.Clone(view.visibleOrder)
	}
	id, ok := feed.NextFailure()
	if !ok {
		return
	}
	view.cursorID = id

	line, known := view.failureLines[id]
	if !known {
		return
	}
	offset := line - view.viewport.Height/2
	if offset < 0 {
		offset = 0
	}
	view.viewport.SetYOffset(offset)
	view.follow = view.viewport.AtBottom()
	view.refresh(feed)
}

// finishSend records a submission outcome. Failures already show in
// the transcript as a failed local item; the inline error covers the
// rejection reason.
func (view *consoleModel) finishSend(err error) {
	if err != nil {
		view.sendErr = err.Error()
	}
}

// render draws the transcript, divider, and input line.
func (view consoleModel) render(feed *console.Feed) string {
	theme := view.theme
	divider := lipgloss.NewStyle().Foreground(theme.BorderColor).
		Render(strings.Repeat("─", max(view.width, 1)))

	inputLine := view.input.View()
	if view.sendErr != "" {
		inputLine += "  " + lipgloss.NewStyle().Foreground(theme.ErrorText).Render(view.sendErr)
	}
	if failures := feed.UnviewedFailures(); failures > 0 {
		badge := lipgloss.NewStyle().Foreground(theme.StatusFailed).
			Render(fmt.Sprintf(" %d failed", failures))
		inputLine += badge
	}

	return view.viewport.View() + "\n" + divider + "\n" + inputLine
}
