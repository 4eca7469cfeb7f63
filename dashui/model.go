// Copyright 2026 The Dreamvisitor Authors
// SPDX-License-Identifier: Apache-2.0

package dashui

import (
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/dreamvisitor/dashboard/gateway"
	"github.com/dreamvisitor/dashboard/lib/tui"
)

// Tab identifies one of the dashboard's top-level views.
type Tab int

const (
	// TabHome shows the server status tile.
	TabHome Tab = iota
	// TabConsole shows the merged log/command transcript.
	TabConsole
	// TabConfig shows the two draft-backed config panels.
	TabConfig
	// TabUsers shows the searchable player table and profile pane.
	TabUsers

	tabCount
)

func (tab Tab) title() string {
	switch tab {
	case TabConsole:
		return "Console"
	case TabConfig:
		return "Config"
	case TabUsers:
		return "Users"
	default:
		return "Home"
	}
}

// Model is the bubbletea model for the dashboard. It routes input to
// the active view and translates service completions (delivered as
// messages) into view state. Domain state stays in the App services.
type Model struct {
	app   *App
	theme tui.Theme
	keys  KeyMap

	// Terminal dimensions (set by WindowSizeMsg).
	width  int
	height int
	ready  bool

	// Auth and boot state. requestedTab is the tab asked for before
	// login; it becomes active once authentication succeeds.
	authed       bool
	booting      bool
	bootErr      error
	login        loginModel
	requestedTab Tab

	activeTab   Tab
	consoleView consoleModel
	configView  configModel
	usersView   usersModel

	// Always-on subscriptions, held from boot to quit.
	statusUnsub  func()
	consoleUnsub func()
}

// NewModel creates a Model over the given service container. startTab
// is shown after authentication; an already-valid auth token skips
// the login screen.
func NewModel(app *App, startTab Tab) Model {
	if startTab < 0 || startTab >= tabCount {
		startTab = TabHome
	}
	theme := tui.DefaultTheme
	return Model{
		app:          app,
		theme:        theme,
		keys:         DefaultKeyMap,
		authed:       app.Client.AuthStore().Valid(),
		login:        newLoginModel(),
		requestedTab: startTab,
		activeTab:    startTab,
		consoleView:  newConsoleModel(theme),
		configView:   newConfigModel(theme),
		usersView:    newUsersModel(theme),
	}
}

// Init implements tea.Model. Starts the change listener and, when a
// stored token is still valid, the boot sequence.
func (model Model) Init() tea.Cmd {
	cmds := []tea.Cmd{
		listenForChange(model.app.Changes()),
		listenForSearchDue(model.app),
		textinput.Blink,
	}
	if model.authed {
		cmds = append(cmds, bootCmd(model.app))
	}
	return tea.Batch(cmds...)
}

// Update implements tea.Model.
func (model Model) Update(message tea.Msg) (tea.Model, tea.Cmd) {
	switch message := message.(type) {
	case tea.WindowSizeMsg:
		model.width = message.Width
		model.height = message.Height
		model.ready = true
		model.layoutViews()
		model.consoleView.refresh(model.app.Console.Feed())
		return model, nil

	case changeMsg:
		// Some service changed; re-read everything the active screen
		// renders, then wait for the next wakeup.
		model.consoleView.refresh(model.app.Console.Feed())
		if model.activeTab == TabConfig {
			model.configView.rebuildRows(model.app)
		}
		return model, listenForChange(model.app.Changes())

	case loginResultMsg:
		if model.login.finishLogin(message.err) {
			model.authed = true
			model.activeTab = model.requestedTab
			model.booting = true
			return model, tea.Batch(bootCmd(model.app), model.enterTab(model.activeTab))
		}
		return model, nil

	case resetResultMsg:
		model.login.finishReset(message.err)
		return model, nil

	case bootMsg:
		model.booting = false
		model.bootErr = message.err
		model.consoleView.loading = false
		if message.err != nil {
			return model.handleAuthFailure(message.err), nil
		}
		model.statusUnsub = message.statusUnsub
		model.consoleUnsub = message.consoleUnsub
		model.consoleView.refresh(model.app.Console.Feed())
		return model, nil

	case panelLoadedMsg:
		model.configView.finishLoad(message)
		model.configView.rebuildRows(model.app)
		return model.handleAuthFailure(message.err), nil

	case applyResultMsg, refreshResultMsg:
		// The synchronizer carries the outcome; the change
		// notification already queued a re-render. Auth failures
		// route back to login.
		if model.activeTab == TabConfig {
			model.configView.rebuildRows(model.app)
		}
		switch result := message.(type) {
		case applyResultMsg:
			return model.handleAuthFailure(result.err), nil
		case refreshResultMsg:
			return model.handleAuthFailure(result.err), nil
		}
		return model, nil

	case sendResultMsg:
		model.consoleView.finishSend(message.err)
		return model.handleAuthFailure(message.err), nil

	case searchDueMsg:
		// Typing paused; run the query the input holds now. Stale
		// results are dropped by pattern in finishSearch.
		return model, tea.Batch(
			searchCmd(model.app, model.usersView.search.Value()),
			listenForSearchDue(model.app),
		)

	case searchResultMsg:
		model.usersView.finishSearch(message)
		return model.handleAuthFailure(message.err), nil

	case profileFetchedMsg:
		model.usersView.finishFetch(message)
		return model.handleAuthFailure(message.err), nil

	case infractionSavedMsg:
		model.usersView.finishInfraction(message)
		return model.handleAuthFailure(message.err), nil

	case tea.KeyMsg:
		return model.handleKey(message)
	}

	return model, nil
}

// handleKey routes a key press: login screen first, then view
// captures (field editor, modal), then global bindings, then the
// active view.
func (model Model) handleKey(message tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(message, model.keys.Quit) {
		model.teardown()
		return model, tea.Quit
	}

	if !model.authed {
		cmd := model.login.update(message, model.keys, model.app)
		return model, cmd
	}

	// Capturing states own every key except quit.
	if model.activeTab == TabConfig && model.configView.editing {
		cmd := model.configView.handleKey(message, model.keys, model.app)
		return model, cmd
	}
	if model.activeTab == TabUsers && model.usersView.focus == usersFocusModal {
		cmd := model.usersView.handleKey(message, model.keys, model.app)
		return model, cmd
	}

	switch {
	case key.Matches(message, model.keys.NextTab):
		return model.switchTab((model.activeTab + 1) % tabCount)
	case key.Matches(message, model.keys.PrevTab):
		return model.switchTab((model.activeTab + tabCount - 1) % tabCount)
	case key.Matches(message, model.keys.Retry) && model.bootErr != nil && !model.booting:
		model.booting = true
		model.bootErr = nil
		return model, bootCmd(model.app)
	}

	var cmd tea.Cmd
	switch model.activeTab {
	case TabConsole:
		cmd = model.consoleView.handleKey(message, model.keys, model.app)
	case TabConfig:
		cmd = model.configView.handleKey(message, model.keys, model.app)
	case TabUsers:
		cmd = model.usersView.handleKey(message, model.keys, model.app)
	}
	return model, cmd
}

// switchTab tears down the departing tab's subscriptions and starts
// the arriving one.
func (model Model) switchTab(next Tab) (tea.Model, tea.Cmd) {
	if next == model.activeTab {
		return model, nil
	}
	if model.activeTab == TabConfig {
		model.configView.leave()
	}
	model.activeTab = next
	return model, model.enterTab(next)
}

// enterTab starts whatever the arriving tab needs.
func (model *Model) enterTab(tab Tab) tea.Cmd {
	switch tab {
	case TabConfig:
		cmd := model.configView.enter(model.app)
		model.configView.rebuildRows(model.app)
		return cmd
	case TabUsers:
		return model.usersView.enter(model.app)
	case TabConsole:
		model.consoleView.refresh(model.app.Console.Feed())
	}
	return nil
}

// handleAuthFailure routes an expired or rejected session back to the
// login screen, tearing down every subscription first. Non-auth
// errors (and nil) leave the model untouched.
func (model Model) handleAuthFailure(err error) Model {
	if err == nil || !gateway.IsAuth(err) {
		return model
	}
	model.teardown()
	model.app.Client.AuthStore().Clear()
	model.requestedTab = model.activeTab
	model.authed = false
	model.login = newLoginModel()
	model.login.errText = "session expired, sign in again"
	return model
}

// teardown releases every live subscription.
func (model *Model) teardown() {
	if model.statusUnsub != nil {
		model.statusUnsub()
		model.statusUnsub = nil
	}
	if model.consoleUnsub != nil {
		model.consoleUnsub()
		model.consoleUnsub = nil
	}
	model.configView.leave()
}

// layoutViews distributes the terminal area to the tab bodies. The
// header and help line take three rows.
func (model *Model) layoutViews() {
	bodyHeight := model.height - 3
	if bodyHeight < 1 {
		bodyHeight = 1
	}
	model.consoleView.setSize(model.width, bodyHeight)
	model.configView.setSize(model.width, bodyHeight)
	model.usersView.setSize(model.width, bodyHeight)
}
