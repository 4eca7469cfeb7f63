// Copyright 2026 The Dreamvisitor Authors
// SPDX-License-Identifier: Apache-2.0

package dashui

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/dreamvisitor/dashboard/botconfig"
	"github.com/dreamvisitor/dashboard/draft"
	"github.com/dreamvisitor/dashboard/lib/tui"
)

// configPanel selects one of the two config sub-panels.
type configPanel int

const (
	panelBot configPanel = iota
	panelServer
)

func (panel configPanel) title() string {
	if panel == panelServer {
		return "Server"
	}
	return "Dreamvisitor"
}

// configRow is one rendered form line: a section header or an
// editable field.
type configRow struct {
	header bool
	label  string

	// field is the draft key. For location components it is the
	// location field and subKey names the component.
	field  string
	subKey string

	kind      botconfig.Kind
	value     any
	sensitive bool
}

// configModel renders the two draft-backed config forms. Each panel
// owns its loading state so a slow load never blocks the other tabs,
// and its realtime subscription is torn down when the config tab is
// left.
type configModel struct {
	theme tui.Theme
	panel configPanel

	rows         []configRow
	cursor       int
	scrollOffset int

	editing bool
	editor  textinput.Model
	editErr string

	loading    map[configPanel]bool
	loadErr    map[configPanel]error
	loadedOnce map[configPanel]bool
	unsubs     map[configPanel]func()

	width  int
	height int
}

func newConfigModel(theme tui.Theme) configModel {
	editor := textinput.New()
	editor.Prompt = ""
	editor.CharLimit = 512

	return configModel{
		theme:      theme,
		editor:     editor,
		loading:    make(map[configPanel]bool),
		loadErr:    make(map[configPanel]error),
		loadedOnce: make(map[configPanel]bool),
		unsubs:     make(map[configPanel]func()),
	}
}

func (view *configModel) setSize(width, height int) {
	view.width = width
	view.height = height
	view.editor.Width = 32
	view.clampScroll()
}

// enter starts the active panel when the config tab is opened: a full
// load on first visit, a re-subscribe on later ones (the synchronizer
// keeps its draft across visits, so reloading would be destructive).
func (view *configModel) enter(app *App) tea.Cmd {
	return view.startPanel(app, view.panel)
}

func (view *configModel) startPanel(app *App, panel configPanel) tea.Cmd {
	if view.unsubs[panel] != nil || view.loading[panel] {
		return nil
	}
	view.loading[panel] = true
	view.loadErr[panel] = nil
	if view.loadedOnce[panel] {
		return watchPanelCmd(app, panel)
	}
	return loadPanelCmd(app, panel)
}

// leave tears down both panels' realtime subscriptions.
func (view *configModel) leave() {
	for panel, unsub := range view.unsubs {
		if unsub != nil {
			unsub()
		}
		delete(view.unsubs, panel)
	}
}

// finishLoad records a panel load/subscribe outcome.
func (view *configModel) finishLoad(message panelLoadedMsg) {
	view.loading[message.panel] = false
	if message.err != nil {
		view.loadErr[message.panel] = message.err
		return
	}
	view.loadedOnce[message.panel] = true
	view.unsubs[message.panel] = message.unsub
}

// rebuildRows regenerates the form rows from the active panel's
// draft. Called on every change notification while the config tab is
// visible.
func (view *configModel) rebuildRows(app *App) {
	selected := view.selectedKey()

	if view.panel == panelBot {
		view.rows = botRows(app.BotConfig)
	} else {
		view.rows = serverRows(app.ServerProps)
	}

	// Keep the cursor on the same field across rebuilds.
	view.cursor = 0
	for index, row := range view.rows {
		if !row.header && row.field+"\x00"+row.subKey == selected {
			view.cursor = index
			break
		}
	}
	if view.cursor == 0 {
		view.moveCursor(0)
	}
	view.clampScroll()
}

func (view *configModel) selectedKey() string {
	if view.cursor < len(view.rows) {
		row := view.rows[view.cursor]
		return row.field + "\x00" + row.subKey
	}
	return ""
}

// botRows builds the Dreamvisitor form: schema order, section
// headers, and location fields expanded into component rows.
func botRows(sync *draft.Synchronizer) []configRow {
	var rows []configRow
	section := ""
	for _, field := range botconfig.Fields {
		if field.Section != section {
			section = field.Section
			rows = append(rows, configRow{header: true, label: section})
		}
		if field.Kind == botconfig.KindLocation {
			location, _ := sync.Field(field.Name).(map[string]any)
			for _, component := range botconfig.LocationKeys {
				var value any
				if location != nil {
					value = location[component]
				}
				rows = append(rows, configRow{
					label:  field.Label + " " + component,
					field:  field.Name,
					subKey: component,
					kind:   botconfig.KindLocation,
					value:  value,
				})
			}
			continue
		}
		rows = append(rows, configRow{
			label:     field.Label,
			field:     field.Name,
			kind:      field.Kind,
			value:     sync.Field(field.Name),
			sensitive: field.Sensitive,
		})
	}
	return rows
}

// serverRows builds the server.properties form: every draft key in
// sorted order, kind derived from the decoded value type.
func serverRows(sync *draft.Synchronizer) []configRow {
	properties := sync.Draft()
	keys := make([]string, 0, len(properties))
	for name := range properties {
		if name == "id" {
			continue
		}
		keys = append(keys, name)
	}
	sort.Strings(keys)

	rows := make([]configRow, 0, len(keys)+1)
	rows = append(rows, configRow{header: true, label: "server.properties"})
	for _, name := range keys {
		value := properties[name]
		kind := botconfig.KindString
		switch value.(type) {
		case bool:
			kind = botconfig.KindBool
		case int, int64:
			kind = botconfig.KindInt
		case float64:
			kind = botconfig.KindFloat
		}
		rows = append(rows, configRow{label: name, field: name, kind: kind, value: value})
	}
	return rows
}

// handleKey processes a key press on the config tab.
func (view *configModel) handleKey(message tea.KeyMsg, keys KeyMap, app *App) tea.Cmd {
	if view.editing {
		return view.handleEditKey(message, keys, app)
	}

	sync := app.panelSynchronizer(view.panel)
	switch {
	case key.Matches(message, keys.Up):
		view.moveBy(-1)
	case key.Matches(message, keys.Down):
		view.moveBy(1)
	case key.Matches(message, keys.PageUp):
		view.moveBy(-view.visibleRows())
	case key.Matches(message, keys.PageDown):
		view.moveBy(view.visibleRows())

	case key.Matches(message, keys.PanelNext), key.Matches(message, keys.PanelPrev):
		if view.panel == panelBot {
			view.panel = panelServer
		} else {
			view.panel = panelBot
		}
		view.cursor = 0
		view.scrollOffset = 0
		view.rebuildRows(app)
		return view.startPanel(app, view.panel)

	case key.Matches(message, keys.Retry):
		if view.loadErr[view.panel] != nil {
			return view.startPanel(app, view.panel)
		}

	case key.Matches(message, keys.Toggle):
		view.toggleSelected(sync)

	case key.Matches(message, keys.Select):
		view.beginEdit()

	case key.Matches(message, keys.Apply):
		if sync.Dirty() && sync.Phase() != draft.PhaseApplying {
			return applyCmd(app, view.panel)
		}

	case key.Matches(message, keys.Revert):
		if sync.Dirty() {
			sync.Revert(context.Background())
			view.rebuildRows(app)
		}

	case key.Matches(message, keys.Refresh):
		return refreshCmd(app, view.panel)
	}
	return nil
}

// handleEditKey routes keys while a field editor is open.
func (view *configModel) handleEditKey(message tea.KeyMsg, keys KeyMap, app *App) tea.Cmd {
	switch {
	case key.Matches(message, keys.Back):
		view.editing = false
		view.editErr = ""
		return nil
	case key.Matches(message, keys.Select):
		view.commitEdit(app)
		return nil
	}
	var cmd tea.Cmd
	view.editor, cmd = view.editor.Update(message)
	return cmd
}

// beginEdit opens the inline editor on the selected row. Booleans
// toggle instead of editing as text.
func (view *configModel) beginEdit() {
	if view.cursor >= len(view.rows) {
		return
	}
	row := view.rows[view.cursor]
	if row.header || row.kind == botconfig.KindBool {
		return
	}
	view.editing = true
	view.editErr = ""
	view.editor.SetValue(valueText(row.value))
	view.editor.CursorEnd()
	view.editor.Focus()
}

// commitEdit parses the editor text per the row's kind and writes it
// into the draft. Parse failures render inline and keep the editor
// open.
func (view *configModel) commitEdit(app *App) {
	row := view.rows[view.cursor]
	sync := app.panelSynchronizer(view.panel)

	parsed, err := parseValue(row, view.editor.Value())
	if err != nil {
		view.editErr = err.Error()
		return
	}

	if row.subKey != "" {
		// Location component: rewrite the whole map so the draft
		// holds one value per field.
		current, _ := sync.Field(row.field).(map[string]any)
		location := make(map[string]any, len(current)+1)
		for name, value := range current {
			location[name] = value
		}
		location[row.subKey] = parsed
		sync.EditField(row.field, location)
	} else {
		sync.EditField(row.field, parsed)
	}

	view.editing = false
	view.editErr = ""
	view.rebuildRows(app)
}

// toggleSelected flips a boolean row in place.
func (view *configModel) toggleSelected(sync *draft.Synchronizer) {
	if view.cursor >= len(view.rows) {
		return
	}
	row := view.rows[view.cursor]
	if row.header || row.kind != botconfig.KindBool {
		return
	}
	current, _ := row.value.(bool)
	sync.EditField(row.field, !current)
}

// parseValue converts editor text to the row's canonical type. Server
// properties rows keep the codec's typing rules: a value that parses
// as a bool or number becomes one.
func parseValue(row configRow, text string) (any, error) {
	text = strings.TrimSpace(text)
	if row.subKey != "" {
		if row.subKey == "world" {
			return text, nil
		}
		number, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return nil, fmt.Errorf("%s must be a number", row.subKey)
		}
		return number, nil
	}

	switch row.kind {
	case botconfig.KindInt:
		number, err := strconv.Atoi(text)
		if err != nil {
			return nil, fmt.Errorf("%s must be an integer", row.label)
		}
		return number, nil
	case botconfig.KindFloat:
		number, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return nil, fmt.Errorf("%s must be a number", row.label)
		}
		return number, nil
	default:
		return text, nil
	}
}

// moveBy moves the cursor, skipping header rows.
func (view *configModel) moveBy(delta int) {
	if len(view.rows) == 0 {
		return
	}
	step := 1
	if delta < 0 {
		step = -1
		delta = -delta
	}
	cursor := view.cursor
	for moved := 0; moved < delta; moved++ {
		next := cursor + step
		for next >= 0 && next < len(view.rows) && view.rows[next].header {
			next += step
		}
		if next < 0 || next >= len(view.rows) {
			break
		}
		cursor = next
	}
	view.cursor = cursor
	view.clampScroll()
}

// moveCursor places the cursor on the first field at or after index.
func (view *configModel) moveCursor(index int) {
	for index < len(view.rows) && view.rows[index].header {
		index++
	}
	if index < len(view.rows) {
		view.cursor = index
	}
}

func (view *configModel) visibleRows() int {
	// Banner and status lines take three rows from the tab body.
	visible := view.height - 3
	if visible < 1 {
		visible = 1
	}
	return visible
}

func (view *configModel) clampScroll() {
	visible := view.visibleRows()
	if view.cursor < view.scrollOffset {
		view.scrollOffset = view.cursor
	}
	if view.cursor >= view.scrollOffset+visible {
		view.scrollOffset = view.cursor - visible + 1
	}
	if view.scrollOffset < 0 {
		view.scrollOffset = 0
	}
}

// render draws the active panel: sub-tab bar, form rows with a
// scrollbar, a status line, and the external-changes banner spliced
// over the top when the flag is up.
func (view configModel) render(app *App) string {
	theme := view.theme
	sync := app.panelSynchronizer(view.panel)

	header := view.renderPanelBar()

	var body string
	switch {
	case view.loading[view.panel]:
		body = lipgloss.NewStyle().Foreground(theme.FaintText).Render("loading...")
	case view.loadErr[view.panel] != nil:
		body = lipgloss.NewStyle().Foreground(theme.ErrorText).
			Render("load failed: "+view.loadErr[view.panel].Error()) + "\n" +
			lipgloss.NewStyle().Foreground(theme.HelpText).Render("r retry")
	default:
		body = view.renderRows()
	}

	status := view.renderStatus(sync)
	panel := header + "\n" + body + "\n" + status

	if sync.ExternallyModified() {
		banner := lipgloss.NewStyle().
			Foreground(theme.WarningText).
			Background(theme.ModalBackground).
			Padding(0, 1).
			Render("Remote changes detected. C-r refreshes and discards unsaved edits.")
		panel = tui.SpliceOverlay(panel, []string{banner}, 2, 1)
	}
	return panel
}

func (view configModel) renderPanelBar() string {
	theme := view.theme
	var parts []string
	for _, panel := range []configPanel{panelBot, panelServer} {
		style := lipgloss.NewStyle().Foreground(theme.FaintText)
		if panel == view.panel {
			style = lipgloss.NewStyle().Foreground(theme.Accent).Bold(true)
		}
		parts = append(parts, style.Render(panel.title()))
	}
	hint := lipgloss.NewStyle().Foreground(theme.HelpText).Render("[/] switch panel")
	return strings.Join(parts, "  ") + "  " + hint
}

func (view configModel) renderRows() string {
	theme := view.theme
	visible := view.visibleRows()
	end := view.scrollOffset + visible
	if end > len(view.rows) {
		end = len(view.rows)
	}

	labelWidth := 44
	lines := make([]string, 0, visible)
	for index := view.scrollOffset; index < end; index++ {
		row := view.rows[index]
		if row.header {
			lines = append(lines, lipgloss.NewStyle().
				Foreground(theme.HeaderForeground).Bold(true).Render(row.label))
			continue
		}

		label := row.label
		if len(label) > labelWidth {
			label = label[:labelWidth-1] + "…"
		}
		label = fmt.Sprintf("%-*s", labelWidth, label)

		var value string
		if view.editing && index == view.cursor {
			value = view.editor.View()
			if view.editErr != "" {
				value += "  " + lipgloss.NewStyle().Foreground(theme.ErrorText).Render(view.editErr)
			}
		} else {
			value = displayValue(row)
		}

		line := "  " + label + value
		if index == view.cursor && !view.editing {
			line = lipgloss.NewStyle().
				Background(theme.SelectedBackground).
				Foreground(theme.SelectedForeground).
				Render(line)
		}
		lines = append(lines, line)
	}

	rowsView := strings.Join(lines, "\n")
	scrollbar := tui.RenderScrollbar(theme, visible, len(view.rows), visible, view.scrollOffset, true)
	if scrollbar == "" {
		return rowsView
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, rowsView, " ", scrollbar)
}

// renderStatus draws the panel footer: dirty marker, saved indicator,
// apply errors, and the draft key help.
func (view configModel) renderStatus(sync *draft.Synchronizer) string {
	theme := view.theme
	var parts []string

	switch {
	case sync.Phase() == draft.PhaseApplying:
		parts = append(parts, lipgloss.NewStyle().Foreground(theme.FaintText).Render("applying..."))
	case sync.Saved():
		parts = append(parts, lipgloss.NewStyle().Foreground(theme.SuccessText).Render("Saved ✓"))
	case sync.Dirty():
		parts = append(parts, lipgloss.NewStyle().Foreground(theme.WarningText).Render("unsaved changes"))
	}
	if err := sync.Err(); err != nil {
		parts = append(parts, lipgloss.NewStyle().Foreground(theme.ErrorText).Render(err.Error()))
	}

	help := "Enter edit · Space toggle · C-s apply · C-z revert · C-r refresh"
	parts = append(parts, lipgloss.NewStyle().Foreground(theme.HelpText).Render(help))
	return strings.Join(parts, "  ")
}

// displayValue formats a row value for the form. Sensitive values
// render masked; booleans render as checkboxes.
func displayValue(row configRow) string {
	if row.kind == botconfig.KindBool {
		if enabled, _ := row.value.(bool); enabled {
			return "[x]"
		}
		return "[ ]"
	}
	text := valueText(row.value)
	if row.sensitive && text != "" {
		return strings.Repeat("•", 8)
	}
	return text
}

// valueText renders a draft value as editable text.
func valueText(value any) string {
	switch typed := value.(type) {
	case nil:
		return ""
	case string:
		return typed
	case bool:
		return strconv.FormatBool(typed)
	case int:
		return strconv.Itoa(typed)
	case int64:
		return strconv.FormatInt(typed, 10)
	case float64:
		return strconv.FormatFloat(typed, 'f', -1, 64)
	default:
		return fmt.Sprintf("%v", typed)
	}
}
