// Copyright 2026 The Dreamvisitor Authors
// SPDX-License-Identifier: Apache-2.0

package dashui

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/dreamvisitor/dashboard/gateway"
	"github.com/dreamvisitor/dashboard/lib/tui"
)

// loginMode selects between the sign-in form and the password reset
// form.
type loginMode int

const (
	modeSignIn loginMode = iota
	modeReset
)

// loginModel is the unauthenticated screen: identity and password
// inputs, inline auth errors, and a reset-request flow reached with
// C-r. A successful login hands control back to the dashboard, which
// restores the tab the operator originally asked for.
type loginModel struct {
	mode     loginMode
	identity textinput.Model
	password textinput.Model
	email    textinput.Model
	focus    int // 0 = identity, 1 = password.
	busy     bool
	errText  string
	notice   string // Reset confirmation.
}

func newLoginModel() loginModel {
	identity := textinput.New()
	identity.Placeholder = "email or username"
	identity.CharLimit = 128
	identity.Width = 36
	identity.Focus()

	password := textinput.New()
	password.Placeholder = "password"
	password.EchoMode = textinput.EchoPassword
	password.CharLimit = 128
	password.Width = 36

	email := textinput.New()
	email.Placeholder = "account email"
	email.CharLimit = 128
	email.Width = 36

	return loginModel{identity: identity, password: password, email: email}
}

// update handles a key press on the login screen. Returns the
// submission command when the operator confirms a complete form.
func (login *loginModel) update(message tea.KeyMsg, keys KeyMap, app *App) tea.Cmd {
	if login.busy {
		return nil
	}

	switch {
	case message.Type == tea.KeyCtrlR:
		// Toggle between sign-in and reset.
		if login.mode == modeSignIn {
			login.mode = modeReset
			login.email.Focus()
			login.identity.Blur()
			login.password.Blur()
		} else {
			login.mode = modeSignIn
			login.email.Blur()
			login.setFocus(login.focus)
		}
		login.errText = ""
		login.notice = ""
		return nil

	case key.Matches(message, keys.Back):
		if login.mode == modeReset {
			login.mode = modeSignIn
			login.email.Blur()
			login.setFocus(login.focus)
			login.errText = ""
			login.notice = ""
		}
		return nil

	case key.Matches(message, keys.NextTab), message.Type == tea.KeyDown:
		if login.mode == modeSignIn {
			login.setFocus((login.focus + 1) % 2)
		}
		return nil

	case key.Matches(message, keys.PrevTab), message.Type == tea.KeyUp:
		if login.mode == modeSignIn {
			login.setFocus((login.focus + 1) % 2)
		}
		return nil

	case key.Matches(message, keys.Select):
		return login.submit(app)
	}

	var cmd tea.Cmd
	switch {
	case login.mode == modeReset:
		login.email, cmd = login.email.Update(message)
	case login.focus == 0:
		login.identity, cmd = login.identity.Update(message)
	default:
		login.password, cmd = login.password.Update(message)
	}
	return cmd
}

// submit validates and dispatches the active form.
func (login *loginModel) submit(app *App) tea.Cmd {
	if login.mode == modeReset {
		email := strings.TrimSpace(login.email.Value())
		if email == "" {
			login.errText = "email is required"
			return nil
		}
		login.busy = true
		login.errText = ""
		return resetCmd(app, email)
	}

	identity := strings.TrimSpace(login.identity.Value())
	password := login.password.Value()
	if identity == "" || password == "" {
		login.errText = "identity and password are required"
		return nil
	}
	login.busy = true
	login.errText = ""
	return loginCmd(app, identity, password)
}

// finishLogin records the outcome of an auth attempt. Returns true
// when the operator is now authenticated.
func (login *loginModel) finishLogin(err error) bool {
	login.busy = false
	if err == nil {
		login.password.SetValue("")
		login.errText = ""
		return true
	}
	switch {
	case gateway.IsAuth(err) || gateway.IsValidation(err):
		login.errText = "invalid identity or password"
	default:
		login.errText = "login failed: " + err.Error()
	}
	return false
}

// finishReset records the outcome of a reset request. The gateway
// answers identically whether or not the account exists, so the
// notice does too.
func (login *loginModel) finishReset(err error) {
	login.busy = false
	if err != nil {
		login.errText = "reset request failed: " + err.Error()
		return
	}
	login.notice = "if the account exists, a reset email is on its way"
	login.mode = modeSignIn
	login.email.Blur()
	login.setFocus(0)
}

func (login *loginModel) setFocus(focus int) {
	login.focus = focus
	if focus == 0 {
		login.identity.Focus()
		login.password.Blur()
	} else {
		login.identity.Blur()
		login.password.Focus()
	}
}

// view renders the login box centered in the terminal.
func (login loginModel) view(theme tui.Theme, width, height int) string {
	title := lipgloss.NewStyle().Bold(true).Foreground(theme.HeaderForeground).Render("Dreamvisitor Dashboard")

	var lines []string
	lines = append(lines, title, "")
	if login.mode == modeReset {
		lines = append(lines,
			"Password reset",
			"",
			login.email.View(),
			"",
			lipgloss.NewStyle().Foreground(theme.HelpText).Render("Enter send · Esc back"),
		)
	} else {
		lines = append(lines,
			login.identity.View(),
			login.password.View(),
			"",
			lipgloss.NewStyle().Foreground(theme.HelpText).Render("Enter sign in · C-r reset password"),
		)
	}

	if login.busy {
		lines = append(lines, "", lipgloss.NewStyle().Foreground(theme.FaintText).Render("signing in..."))
	}
	if login.errText != "" {
		lines = append(lines, "", lipgloss.NewStyle().Foreground(theme.ErrorText).Render(login.errText))
	}
	if login.notice != "" {
		lines = append(lines, "", lipgloss.NewStyle().Foreground(theme.SuccessText).Render(login.notice))
	}

	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(theme.BorderColor).
		Padding(1, 3).
		Render(strings.Join(lines, "\n"))

	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, box)
}
