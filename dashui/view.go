// Copyright 2026 The Dreamvisitor Authors
// SPDX-License-Identifier: Apache-2.0

package dashui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// View implements tea.Model.
func (model Model) View() string {
	if !model.ready {
		return "loading..."
	}
	if !model.authed {
		return model.login.view(model.theme, model.width, model.height)
	}

	header := model.renderHeader()
	body := model.renderBody()
	help := model.renderHelp()

	return header + "\n" + body + "\n" + help
}

// renderHeader draws the tab bar with the status tile right-aligned.
// The console tab carries a badge while unviewed failures exist.
func (model Model) renderHeader() string {
	theme := model.theme

	var tabs []string
	for tab := Tab(0); tab < tabCount; tab++ {
		title := tab.title()
		if tab == TabConsole {
			if failures := model.app.Console.Feed().UnviewedFailures(); failures > 0 {
				title = fmt.Sprintf("%s(%d)", title, failures)
			}
		}
		style := lipgloss.NewStyle().Foreground(theme.FaintText).Padding(0, 1)
		if tab == model.activeTab {
			style = lipgloss.NewStyle().Foreground(theme.Accent).Bold(true).Padding(0, 1)
		}
		tabs = append(tabs, style.Render(title))
	}
	bar := strings.Join(tabs, "")

	tile := model.renderStatusTile()
	gap := model.width - lipgloss.Width(bar) - lipgloss.Width(tile)
	if gap < 1 {
		gap = 1
	}
	return bar + strings.Repeat(" ", gap) + tile
}

// renderStatusTile summarizes the live server status in one segment.
func (model Model) renderStatusTile() string {
	theme := model.theme
	snapshot, loaded := model.app.Status.Snapshot()
	if !loaded {
		return lipgloss.NewStyle().Foreground(theme.FaintText).Render("status: ...")
	}
	if !snapshot.Online {
		return lipgloss.NewStyle().Foreground(theme.Offline).Render("● offline")
	}
	return lipgloss.NewStyle().Foreground(theme.Online).Render(fmt.Sprintf(
		"● online %d/%d · %.1f tps · %.1f mspt",
		snapshot.PlayerCount, snapshot.PlayerLimit, snapshot.TPS, snapshot.MSPT))
}

// renderBody draws the active tab's content at the body height.
func (model Model) renderBody() string {
	theme := model.theme
	bodyHeight := model.height - 3
	if bodyHeight < 1 {
		bodyHeight = 1
	}

	var body string
	switch {
	case model.booting:
		body = lipgloss.NewStyle().Foreground(theme.FaintText).Render("connecting...")
	case model.bootErr != nil:
		body = lipgloss.NewStyle().Foreground(theme.ErrorText).
			Render("startup failed: "+model.bootErr.Error()) + "\n" +
			lipgloss.NewStyle().Foreground(theme.HelpText).Render("r retry")
	default:
		switch model.activeTab {
		case TabConsole:
			body = model.consoleView.render(model.app.Console.Feed())
		case TabConfig:
			body = model.configView.render(model.app)
		case TabUsers:
			body = model.usersView.render()
		default:
			body = model.renderHome()
		}
	}

	return lipgloss.NewStyle().Height(bodyHeight).MaxHeight(bodyHeight).Render(body)
}

// renderHome draws the home tab: a large status card.
func (model Model) renderHome() string {
	theme := model.theme
	snapshot, loaded := model.app.Status.Snapshot()

	var lines []string
	header := lipgloss.NewStyle().Bold(true).Foreground(theme.HeaderForeground)
	lines = append(lines, header.Render("Server Status"), "")

	switch {
	case !loaded:
		lines = append(lines, lipgloss.NewStyle().Foreground(theme.FaintText).Render("waiting for status..."))
	case !snapshot.Online:
		lines = append(lines, lipgloss.NewStyle().Foreground(theme.Offline).Bold(true).Render("OFFLINE"))
	default:
		lines = append(lines,
			lipgloss.NewStyle().Foreground(theme.Online).Bold(true).Render("ONLINE"),
			"",
			fmt.Sprintf("Players  %d / %d", snapshot.PlayerCount, snapshot.PlayerLimit),
			fmt.Sprintf("TPS      %.2f", snapshot.TPS),
			fmt.Sprintf("MSPT     %.2f", snapshot.MSPT),
		)
	}

	card := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(theme.BorderColor).
		Padding(1, 3).
		Render(strings.Join(lines, "\n"))

	bodyHeight := model.height - 3
	if bodyHeight < 1 {
		bodyHeight = 1
	}
	return lipgloss.Place(model.width, bodyHeight, lipgloss.Center, lipgloss.Center, card)
}

// renderHelp draws the footer key hints for the active tab.
func (model Model) renderHelp() string {
	theme := model.theme
	hints := "Tab/S-Tab switch tab · C-c quit"
	switch model.activeTab {
	case TabConsole:
		hints = "Enter send · C-f next failure · PgUp/PgDn scroll · " + hints
	case TabConfig:
		hints = "[/] panel · " + hints
	case TabUsers:
		hints = "/ search · Enter open · n/e infraction · " + hints
	}
	return lipgloss.NewStyle().Foreground(theme.HelpText).Render(hints)
}
