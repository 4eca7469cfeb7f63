// Copyright 2026 The Dreamvisitor Authors
// SPDX-License-Identifier: Apache-2.0

package dashui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/dreamvisitor/dashboard/draft"
	"github.com/dreamvisitor/dashboard/gateway"
	"github.com/dreamvisitor/dashboard/profile"
)

// changeMsg is delivered when any service reported a state change via
// the App's coalesced channel. The model re-reads whatever it renders.
type changeMsg struct{}

// loginResultMsg completes an AuthWithPassword call.
type loginResultMsg struct {
	err error
}

// resetResultMsg completes a password reset request.
type resetResultMsg struct {
	err error
}

// bootMsg completes the post-login boot: status load + watch, console
// history load + watch. The unsubscribe funcs are nil on failure.
type bootMsg struct {
	statusUnsub  func()
	consoleUnsub func()
	err          error
}

// panelLoadedMsg completes a config panel's initial load and realtime
// subscription. unsub is nil on failure.
type panelLoadedMsg struct {
	panel configPanel
	unsub func()
	err   error
}

// applyResultMsg completes a synchronizer Apply.
type applyResultMsg struct {
	panel configPanel
	err   error
}

// refreshResultMsg completes a synchronizer Refresh.
type refreshResultMsg struct {
	panel configPanel
	err   error
}

// sendResultMsg completes a console command submission.
type sendResultMsg struct {
	err error
}

// searchDueMsg is delivered when the search input has been quiet for
// the debounce window and the pending query should run.
type searchDueMsg struct{}

// searchResultMsg completes a user search. pattern identifies the
// query the results belong to; a stale pattern is dropped.
type searchResultMsg struct {
	pattern string
	results []profile.SearchResult
	err     error
}

// profileFetchedMsg completes a profile fetch. Superseded and
// cancelled fetches arrive with those sentinel errors and are dropped
// without touching the view.
type profileFetchedMsg struct {
	userID    string
	aggregate *profile.Aggregate
	err       error
}

// infractionSavedMsg completes an infraction create or edit. On
// success aggregate carries the re-fetched profile.
type infractionSavedMsg struct {
	aggregate *profile.Aggregate
	err       error
}

// listenForChange returns a tea.Cmd that blocks until the next
// coalesced service change, then delivers it as a changeMsg. The
// model re-issues it after every changeMsg.
func listenForChange(channel <-chan struct{}) tea.Cmd {
	return func() tea.Msg {
		_, ok := <-channel
		if !ok {
			return nil
		}
		return changeMsg{}
	}
}

// listenForSearchDue returns a tea.Cmd that blocks until the search
// debouncer fires, then delivers a searchDueMsg. The model re-issues
// it after every searchDueMsg.
func listenForSearchDue(app *App) tea.Cmd {
	return func() tea.Msg {
		_, ok := <-app.searchDue
		if !ok {
			return nil
		}
		return searchDueMsg{}
	}
}

// loginCmd authenticates against the gateway.
func loginCmd(app *App, identity, password string) tea.Cmd {
	return func() tea.Msg {
		_, err := app.Client.AuthWithPassword(context.Background(), identity, password)
		return loginResultMsg{err: err}
	}
}

// resetCmd requests a password reset email.
func resetCmd(app *App, email string) tea.Cmd {
	return func() tea.Msg {
		return resetResultMsg{err: app.Client.RequestPasswordReset(context.Background(), email)}
	}
}

// bootCmd loads and subscribes the always-on services after login:
// the status tile and the console transcript. Initial loads retry
// transient failures with bounded backoff before reporting.
func bootCmd(app *App) tea.Cmd {
	return func() tea.Msg {
		ctx := context.Background()

		if err := gateway.Retry(ctx, app.Status.Load); err != nil {
			return bootMsg{err: err}
		}
		statusUnsub, err := app.Status.Watch()
		if err != nil {
			return bootMsg{err: err}
		}

		if err := gateway.Retry(ctx, app.Console.LoadHistory); err != nil {
			statusUnsub()
			return bootMsg{err: err}
		}
		consoleUnsub, err := app.Console.Watch()
		if err != nil {
			statusUnsub()
			return bootMsg{err: err}
		}

		return bootMsg{statusUnsub: statusUnsub, consoleUnsub: consoleUnsub}
	}
}

// loadPanelCmd loads one config panel's draft and subscribes it to
// remote changes. Runs when the config tab is entered; the returned
// unsubscribe is called when the tab is left.
func loadPanelCmd(app *App, panel configPanel) tea.Cmd {
	sync := app.panelSynchronizer(panel)
	return func() tea.Msg {
		ctx := context.Background()
		if err := gateway.Retry(ctx, sync.Load); err != nil {
			return panelLoadedMsg{panel: panel, err: err}
		}
		unsub, err := app.watchPanel(ctx, panel, sync)
		if err != nil {
			return panelLoadedMsg{panel: panel, err: err}
		}
		return panelLoadedMsg{panel: panel, unsub: unsub}
	}
}

// watchPanelCmd re-subscribes an already-loaded panel without
// reloading, so a tab revisit never clobbers an in-progress draft.
func watchPanelCmd(app *App, panel configPanel) tea.Cmd {
	sync := app.panelSynchronizer(panel)
	return func() tea.Msg {
		unsub, err := app.watchPanel(context.Background(), panel, sync)
		if err != nil {
			return panelLoadedMsg{panel: panel, err: err}
		}
		return panelLoadedMsg{panel: panel, unsub: unsub}
	}
}

// applyCmd saves one panel's draft.
func applyCmd(app *App, panel configPanel) tea.Cmd {
	sync := app.panelSynchronizer(panel)
	return func() tea.Msg {
		return applyResultMsg{panel: panel, err: sync.Apply(context.Background())}
	}
}

// refreshCmd discards one panel's draft and reloads from the gateway.
func refreshCmd(app *App, panel configPanel) tea.Cmd {
	sync := app.panelSynchronizer(panel)
	return func() tea.Msg {
		return refreshResultMsg{panel: panel, err: sync.Refresh(context.Background())}
	}
}

// sendCommandCmd submits a console command.
func sendCommandCmd(app *App, text string) tea.Cmd {
	return func() tea.Msg {
		return sendResultMsg{err: app.Console.Send(context.Background(), text)}
	}
}

// searchCmd runs a fuzzy user search. The gateway request key aborts
// any prior search still in flight.
func searchCmd(app *App, pattern string) tea.Cmd {
	return func() tea.Msg {
		results, err := app.Profiles.Search(context.Background(), pattern)
		return searchResultMsg{pattern: pattern, results: results, err: err}
	}
}

// fetchProfileCmd fetches one user's aggregate profile.
func fetchProfileCmd(app *App, userID string) tea.Cmd {
	return func() tea.Msg {
		aggregate, err := app.Profiles.Fetch(context.Background(), userID)
		return profileFetchedMsg{userID: userID, aggregate: aggregate, err: err}
	}
}

// saveInfractionCmd creates or edits an infraction. infractionID
// empty means create.
func saveInfractionCmd(app *App, userID, infractionID string, value int, reason string, expired, sendWarning bool) tea.Cmd {
	return func() tea.Msg {
		var aggregate *profile.Aggregate
		var err error
		if infractionID == "" {
			aggregate, err = app.Profiles.CreateInfraction(context.Background(), userID, value, reason, sendWarning)
		} else {
			aggregate, err = app.Profiles.EditInfraction(context.Background(), userID, infractionID, value, reason, expired, sendWarning)
		}
		return infractionSavedMsg{aggregate: aggregate, err: err}
	}
}

// panelSynchronizer maps a config panel to its synchronizer.
func (app *App) panelSynchronizer(panel configPanel) *draft.Synchronizer {
	if panel == panelServer {
		return app.ServerProps
	}
	return app.BotConfig
}

// watchPanel subscribes a panel's store to remote changes.
func (app *App) watchPanel(ctx context.Context, panel configPanel, sync *draft.Synchronizer) (func(), error) {
	if panel == panelServer {
		return app.propsStore.Watch(ctx, sync)
	}
	return app.botStore.Watch(ctx, sync)
}
