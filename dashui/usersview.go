// Copyright 2026 The Dreamvisitor Authors
// SPDX-License-Identifier: Apache-2.0

package dashui

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/dreamvisitor/dashboard/gateway"
	"github.com/dreamvisitor/dashboard/lib/tui"
	"github.com/dreamvisitor/dashboard/profile"
)

// usersFocus is the active region of the users tab.
type usersFocus int

const (
	usersFocusSearch usersFocus = iota
	usersFocusList
	usersFocusDetail
	usersFocusModal
)

// infractionModal is the create/edit infraction form.
type infractionModal struct {
	infractionID string // Empty for create.
	value        textinput.Model
	reason       textinput.Model
	sendWarning  bool
	expired      bool
	focus        int // 0 value, 1 reason, 2 warning, 3 expired (edit only).
	busy         bool
	errText      string
}

// usersModel renders the fuzzy-searchable user table and the profile
// detail pane. Selecting a different user supersedes any fetch still
// in flight; superseded results are dropped without touching the
// view.
type usersModel struct {
	theme tui.Theme
	focus usersFocus

	search  textinput.Model
	results []profile.SearchResult
	cursor  int

	aggregate     *profile.Aggregate
	fetchedUserID string
	loadingUserID string
	fetchErr      string

	infractionCursor int
	modal            *infractionModal

	searched bool // First search issued (on tab entry).

	width  int
	height int
}

func newUsersModel(theme tui.Theme) usersModel {
	search := textinput.New()
	search.Placeholder = "search players"
	search.Prompt = "/ "
	search.CharLimit = 64

	return usersModel{theme: theme, search: search}
}

func (view *usersModel) setSize(width, height int) {
	view.width = width
	view.height = height
	searchWidth := width/2 - 6
	if searchWidth < 10 {
		searchWidth = 10
	}
	view.search.Width = searchWidth
}

// enter issues the initial unfiltered search when the tab is opened.
func (view *usersModel) enter(app *App) tea.Cmd {
	view.search.Focus()
	view.focus = usersFocusSearch
	if view.searched {
		return nil
	}
	view.searched = true
	return searchCmd(app, view.search.Value())
}

// handleKey processes a key press on the users tab. While the search
// input has focus only arrow keys navigate the result list, so j/k
// stay typeable. Edits to the input arm the search debouncer rather
// than querying per keystroke.
func (view *usersModel) handleKey(message tea.KeyMsg, keys KeyMap, app *App) tea.Cmd {
	if view.focus == usersFocusModal {
		return view.handleModalKey(message, keys, app)
	}

	if view.focus == usersFocusSearch {
		switch {
		case message.Type == tea.KeyUp:
			return view.moveCursor(app, -1)
		case message.Type == tea.KeyDown:
			return view.moveCursor(app, 1)
		case key.Matches(message, keys.Back):
			view.search.Blur()
			view.focus = usersFocusList
			return nil
		case key.Matches(message, keys.Select):
			view.search.Blur()
			view.focus = usersFocusDetail
			return view.fetchSelected(app)
		}
		before := view.search.Value()
		var cmd tea.Cmd
		view.search, cmd = view.search.Update(message)
		if view.search.Value() != before {
			view.cursor = 0
			app.scheduleSearch()
		}
		return cmd
	}

	switch {
	case key.Matches(message, keys.Up):
		if view.focus == usersFocusDetail {
			view.moveInfractionCursor(-1)
			return nil
		}
		return view.moveCursor(app, -1)

	case key.Matches(message, keys.Down):
		if view.focus == usersFocusDetail {
			view.moveInfractionCursor(1)
			return nil
		}
		return view.moveCursor(app, 1)

	case key.Matches(message, keys.Search):
		view.focus = usersFocusSearch
		view.search.Focus()
		return nil

	case key.Matches(message, keys.Back):
		if view.focus == usersFocusDetail {
			view.focus = usersFocusList
		}
		return nil

	case key.Matches(message, keys.Select):
		if view.focus == usersFocusList {
			view.focus = usersFocusDetail
			return view.fetchSelected(app)
		}
		return nil
	}

	if view.focus == usersFocusDetail {
		switch {
		case key.Matches(message, keys.NewInfraction):
			view.openModal(nil)
			return nil
		case key.Matches(message, keys.EditInfraction):
			if infraction := view.selectedInfraction(); infraction != nil {
				view.openModal(infraction)
			}
			return nil
		}
	}
	return nil
}

// moveCursor moves the user selection and fetches the newly selected
// profile. The prior fetch is superseded by request key and sequence.
func (view *usersModel) moveCursor(app *App, delta int) tea.Cmd {
	if len(view.results) == 0 {
		return nil
	}
	cursor := view.cursor + delta
	if cursor < 0 {
		cursor = 0
	}
	if cursor >= len(view.results) {
		cursor = len(view.results) - 1
	}
	if cursor == view.cursor {
		return nil
	}
	view.cursor = cursor
	return view.fetchSelected(app)
}

// fetchSelected starts a profile fetch for the user under the cursor.
func (view *usersModel) fetchSelected(app *App) tea.Cmd {
	if view.cursor >= len(view.results) {
		return nil
	}
	userID := view.results[view.cursor].User.ID()
	if userID == "" || userID == view.fetchedUserID {
		return nil
	}
	view.loadingUserID = userID
	view.fetchErr = ""
	view.infractionCursor = 0
	return fetchProfileCmd(app, userID)
}

// finishSearch installs fresh search results. Results for a pattern
// the input has moved past are dropped.
func (view *usersModel) finishSearch(message searchResultMsg) {
	if message.pattern != view.search.Value() {
		return
	}
	if message.err != nil {
		if gateway.IsCancelled(message.err) {
			return
		}
		view.fetchErr = message.err.Error()
		return
	}
	view.results = message.results
	if view.cursor >= len(view.results) {
		view.cursor = 0
	}
}

// finishFetch installs a fetched profile. Superseded and cancelled
// fetches are dropped: a newer selection owns the pane.
func (view *usersModel) finishFetch(message profileFetchedMsg) {
	if errors.Is(message.err, profile.ErrSuperseded) || gateway.IsCancelled(message.err) {
		return
	}
	if message.userID == view.loadingUserID {
		view.loadingUserID = ""
	}
	if message.err != nil {
		view.fetchErr = message.err.Error()
		return
	}
	view.aggregate = message.aggregate
	view.fetchedUserID = message.userID
	view.fetchErr = ""
}

// openModal opens the infraction form, prefilled when editing.
func (view *usersModel) openModal(existing *profile.Infraction) {
	value := textinput.New()
	value.Prompt = ""
	value.CharLimit = 4
	value.Width = 6
	value.Focus()

	reason := textinput.New()
	reason.Prompt = ""
	reason.CharLimit = 256
	reason.Width = 40

	modal := &infractionModal{value: value, reason: reason, sendWarning: true}
	if existing != nil {
		modal.infractionID = existing.ID
		modal.value.SetValue(strconv.Itoa(existing.Value))
		modal.reason.SetValue(existing.Reason)
		modal.sendWarning = existing.SendWarning
		modal.expired = existing.Expired
	}
	view.modal = modal
	view.focus = usersFocusModal
}

// handleModalKey routes keys while the infraction modal is open.
func (view *usersModel) handleModalKey(message tea.KeyMsg, keys KeyMap, app *App) tea.Cmd {
	modal := view.modal
	if modal == nil || modal.busy {
		return nil
	}

	fieldCount := 3
	if modal.infractionID != "" {
		fieldCount = 4
	}

	switch {
	case key.Matches(message, keys.Back):
		view.modal = nil
		view.focus = usersFocusDetail
		return nil

	case key.Matches(message, keys.NextTab), message.Type == tea.KeyDown:
		modal.setFocus((modal.focus + 1) % fieldCount)
		return nil

	case key.Matches(message, keys.PrevTab), message.Type == tea.KeyUp:
		modal.setFocus((modal.focus + fieldCount - 1) % fieldCount)
		return nil

	case key.Matches(message, keys.Toggle):
		switch modal.focus {
		case 2:
			modal.sendWarning = !modal.sendWarning
			return nil
		case 3:
			modal.expired = !modal.expired
			return nil
		}

	case key.Matches(message, keys.Select):
		return view.submitModal(app)
	}

	var cmd tea.Cmd
	switch modal.focus {
	case 0:
		modal.value, cmd = modal.value.Update(message)
	case 1:
		modal.reason, cmd = modal.reason.Update(message)
	}
	return cmd
}

// submitModal validates the form and dispatches the write. The point
// value must be positive; validation failures render inline and keep
// the modal open.
func (view *usersModel) submitModal(app *App) tea.Cmd {
	modal := view.modal
	userID := view.fetchedUserID
	if userID == "" {
		return nil
	}

	value, err := strconv.Atoi(strings.TrimSpace(modal.value.Value()))
	if err != nil || value <= 0 {
		modal.errText = "value must be a positive integer"
		return nil
	}
	if app.Profiles.Busy() {
		modal.errText = "another write is in flight"
		return nil
	}

	modal.busy = true
	modal.errText = ""
	return saveInfractionCmd(app, userID, modal.infractionID, value,
		strings.TrimSpace(modal.reason.Value()), modal.expired, modal.sendWarning)
}

// finishInfraction records a write outcome: close the modal and adopt
// the re-fetched aggregate on success, keep it open with the error
// otherwise.
func (view *usersModel) finishInfraction(message infractionSavedMsg) {
	if view.modal != nil {
		view.modal.busy = false
	}
	if message.err != nil {
		if view.modal != nil {
			view.modal.errText = message.err.Error()
		}
		return
	}
	view.aggregate = message.aggregate
	view.modal = nil
	if view.focus == usersFocusModal {
		view.focus = usersFocusDetail
	}
}

func (modal *infractionModal) setFocus(focus int) {
	modal.focus = focus
	modal.value.Blur()
	modal.reason.Blur()
	switch focus {
	case 0:
		modal.value.Focus()
	case 1:
		modal.reason.Focus()
	}
}

func (view *usersModel) moveInfractionCursor(delta int) {
	if view.aggregate == nil || len(view.aggregate.Infractions) == 0 {
		return
	}
	cursor := view.infractionCursor + delta
	if cursor < 0 {
		cursor = 0
	}
	if cursor >= len(view.aggregate.Infractions) {
		cursor = len(view.aggregate.Infractions) - 1
	}
	view.infractionCursor = cursor
}

func (view *usersModel) selectedInfraction() *profile.Infraction {
	if view.aggregate == nil || view.infractionCursor >= len(view.aggregate.Infractions) {
		return nil
	}
	return &view.aggregate.Infractions[view.infractionCursor]
}

// render draws the two-pane users tab with the modal spliced over it
// when open.
func (view usersModel) render() string {
	listWidth := view.width / 2
	detailWidth := view.width - listWidth - 1
	if detailWidth < 20 {
		detailWidth = 20
	}

	list := view.renderList(listWidth)
	detail := view.renderDetail(detailWidth)
	divider := lipgloss.NewStyle().Foreground(view.theme.BorderColor).
		Render(strings.TrimRight(strings.Repeat("│\n", max(view.height, 1)), "\n"))

	body := lipgloss.JoinHorizontal(lipgloss.Top, list, divider, detail)

	if view.modal != nil {
		overlay := view.renderModal()
		anchorX := (view.width - lipgloss.Width(overlay)) / 2
		if anchorX < 0 {
			anchorX = 0
		}
		body = tui.SpliceOverlay(body, strings.Split(overlay, "\n"), anchorX, 3)
	}
	return body
}

// renderList draws the search input and the ranked result rows with
// fuzzy match positions highlighted.
func (view usersModel) renderList(width int) string {
	theme := view.theme
	lines := []string{view.search.View(), ""}

	visible := view.height - 3
	if visible < 1 {
		visible = 1
	}
	start := 0
	if view.cursor >= visible {
		start = view.cursor - visible + 1
	}
	end := start + visible
	if end > len(view.results) {
		end = len(view.results)
	}

	for index := start; index < end; index++ {
		result := view.results[index]
		name := profile.DisplayName(result.User)
		line := highlightMatch(name, result.Positions, theme)
		if index == view.cursor {
			prefix := lipgloss.NewStyle().Foreground(theme.Accent).Render("> ")
			line = prefix + line
		} else {
			line = "  " + line
		}
		lines = append(lines, line)
	}
	if len(view.results) == 0 {
		lines = append(lines, lipgloss.NewStyle().Foreground(theme.FaintText).Render("  no players match"))
	}

	return lipgloss.NewStyle().Width(width).Render(strings.Join(lines, "\n"))
}

// highlightMatch renders a display name with matched rune positions
// on the search highlight background.
func highlightMatch(name string, positions []int, theme tui.Theme) string {
	if len(positions) == 0 {
		return lipgloss.NewStyle().Foreground(theme.NormalText).Render(name)
	}
	matched := make(map[int]bool, len(positions))
	for _, position := range positions {
		matched[position] = true
	}

	normal := lipgloss.NewStyle().Foreground(theme.NormalText)
	highlight := lipgloss.NewStyle().Foreground(theme.NormalText).
		Background(theme.SearchHighlightBackground)

	var builder strings.Builder
	for index, r := range []rune(name) {
		if matched[index] {
			builder.WriteString(highlight.Render(string(r)))
		} else {
			builder.WriteString(normal.Render(string(r)))
		}
	}
	return builder.String()
}

// renderDetail draws the profile pane: identity, points summary,
// infractions with the detail cursor, inventory, homes, and claims.
func (view usersModel) renderDetail(width int) string {
	theme := view.theme
	faint := lipgloss.NewStyle().Foreground(theme.FaintText)
	header := lipgloss.NewStyle().Foreground(theme.HeaderForeground).Bold(true)

	if view.loadingUserID != "" {
		return faint.Render(" loading profile...")
	}
	if view.fetchErr != "" {
		return lipgloss.NewStyle().Foreground(theme.ErrorText).Render(" " + view.fetchErr)
	}
	aggregate := view.aggregate
	if aggregate == nil {
		return faint.Render(" select a player")
	}

	var lines []string
	lines = append(lines, header.Render(" "+profile.DisplayName(aggregate.User)))
	if discord := aggregate.User.GetString("discord_id"); discord != "" {
		lines = append(lines, faint.Render(" discord "+discord))
	}
	lines = append(lines, fmt.Sprintf(" %d active points across %d infractions",
		aggregate.ActivePoints(), aggregate.ActiveInfractions()))
	lines = append(lines, "")

	lines = append(lines, header.Render(" Infractions"))
	if len(aggregate.Infractions) == 0 {
		lines = append(lines, faint.Render("  none"))
	}
	for index, infraction := range aggregate.Infractions {
		marker := "  "
		if view.focus == usersFocusDetail && index == view.infractionCursor {
			marker = lipgloss.NewStyle().Foreground(theme.Accent).Render("> ")
		}
		state := ""
		if infraction.Expired {
			state = faint.Render(" (expired)")
		}
		line := fmt.Sprintf("%s%dpt %s%s", marker, infraction.Value, infraction.Reason, state)
		lines = append(lines, line)
	}
	lines = append(lines, "", faint.Render(" n new · e edit"))

	if len(aggregate.Inventory) > 0 {
		lines = append(lines, "", header.Render(" Inventory"))
		for _, item := range aggregate.Inventory {
			lines = append(lines, fmt.Sprintf("  %dx %s", item.Quantity, item.ItemName))
		}
	}
	if len(aggregate.Homes) > 0 {
		lines = append(lines, "", header.Render(" Homes"))
		for _, home := range aggregate.Homes {
			lines = append(lines, fmt.Sprintf("  %s (%s %.0f %.0f %.0f)",
				home.Name, home.Location.World, home.Location.X, home.Location.Y, home.Location.Z))
		}
	}
	if len(aggregate.Claims) > 0 {
		lines = append(lines, "", header.Render(" Claims"))
		for _, claim := range aggregate.Claims {
			lines = append(lines, fmt.Sprintf("  %d blocks in %s", claim.Size, claim.Location.World))
		}
	}

	return lipgloss.NewStyle().Width(width).Render(strings.Join(lines, "\n"))
}

// renderModal draws the infraction form box.
func (view usersModel) renderModal() string {
	theme := view.theme
	modal := view.modal
	box := lipgloss.NewStyle().Foreground(theme.ModalForeground).Background(theme.ModalBackground)

	title := "New Infraction"
	if modal.infractionID != "" {
		title = "Edit Infraction"
	}

	checkbox := func(checked bool) string {
		if checked {
			return "[x]"
		}
		return "[ ]"
	}
	focusMark := func(field int) string {
		if modal.focus == field {
			return "> "
		}
		return "  "
	}

	innerWidth := 48
	lines := []string{
		lipgloss.NewStyle().Bold(true).Foreground(theme.ModalForeground).
			Background(theme.ModalBackground).Render(" " + title),
		"",
		focusMark(0) + "Value  " + modal.value.View(),
		focusMark(1) + "Reason " + modal.reason.View(),
		focusMark(2) + checkbox(modal.sendWarning) + " send warning",
	}
	if modal.infractionID != "" {
		lines = append(lines, focusMark(3)+checkbox(modal.expired)+" expired")
	}
	if modal.busy {
		lines = append(lines, "", " saving...")
	}
	if modal.errText != "" {
		lines = append(lines, "", lipgloss.NewStyle().Foreground(theme.ErrorText).
			Background(theme.ModalBackground).Render(" "+modal.errText))
	}
	lines = append(lines, "", lipgloss.NewStyle().Foreground(theme.HelpText).
		Background(theme.ModalBackground).Render(" Enter save · Esc cancel"))

	padded := make([]string, len(lines))
	for index, line := range lines {
		padded[index] = tui.PadOverlayLine(line, innerWidth, innerWidth+2, box)
	}
	return strings.Join(padded, "\n")
}
