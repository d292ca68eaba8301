package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/five82/pufferwatch/internal/filter"
	"github.com/five82/pufferwatch/internal/logstore"
	"github.com/five82/pufferwatch/internal/prefs"
)

// maxSourceColumn caps the width of the formatted source column.
const maxSourceColumn = 24

// scrollState is either pinned to the newest entry (follow) or anchored to
// the entry with sequence number anchor at the top of the panel. An anchor
// survives appends and filter changes because it names an entry, not a
// position.
type scrollState struct {
	follow bool
	anchor uint64
}

// searchState holds the "/" search. Matches live in their own filter view
// so that they are found incrementally like any other view.
type searchState struct {
	typing    bool
	input     textinput.Model
	query     string
	pred      filter.Predicate
	view      *filter.View
	active    uint64
	hasActive bool
}

func newSearchState() searchState {
	ti := textinput.New()
	ti.Placeholder = "Search messages..."
	ti.Prompt = "/"
	ti.CharLimit = 200
	return searchState{input: ti}
}

// topIndex returns the match index of the first entry drawn.
func (m *Model) topIndex() int {
	count := m.view.Count()
	if m.scroll.follow {
		return max(count-m.logRows(), 0)
	}
	top := m.view.IndexOf(m.scroll.anchor)
	if top >= count {
		return max(count-1, 0)
	}
	return top
}

// anchorAt pins the panel so that match idx is the top row.
func (m *Model) anchorAt(idx int) {
	seq, ok := m.view.Seq(idx)
	if !ok {
		m.scroll = scrollState{follow: true}
		return
	}
	m.scroll = scrollState{anchor: seq}
}

// scrollBy moves the panel by delta entries. Scrolling down past the last
// page resumes following.
func (m *Model) scrollBy(delta int) {
	bottom := max(m.view.Count()-m.logRows(), 0)
	idx := m.topIndex() + delta
	if delta > 0 && idx >= bottom {
		m.scroll = scrollState{follow: true}
		return
	}
	m.anchorAt(min(max(idx, 0), bottom))
}

// visibleEntries returns the window of matches that can appear on screen.
func (m *Model) visibleEntries() []logstore.Entry {
	top := m.topIndex()
	return m.view.Window(top, top+m.logRows())
}

// handleLogsKey processes keyboard input for the log panel.
func (m Model) handleLogsKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	rows := m.logRows()
	switch {
	case key.Matches(msg, m.keys.ToggleFollow):
		if m.scroll.follow {
			m.anchorAt(m.topIndex())
		} else {
			m.scroll = scrollState{follow: true}
		}
	case key.Matches(msg, m.keys.Up):
		m.scrollBy(-1)
	case key.Matches(msg, m.keys.Down):
		m.scrollBy(1)
	case key.Matches(msg, m.keys.PageUp):
		m.scrollBy(-rows)
	case key.Matches(msg, m.keys.PageDown):
		m.scrollBy(rows)
	case key.Matches(msg, m.keys.HalfPageUp):
		m.scrollBy(-max(rows/2, 1))
	case key.Matches(msg, m.keys.HalfPageDown):
		m.scrollBy(max(rows/2, 1))
	case key.Matches(msg, m.keys.Top):
		m.anchorAt(0)
	case key.Matches(msg, m.keys.Bottom):
		m.scroll = scrollState{follow: true}

	case key.Matches(msg, m.keys.Search):
		m.search.typing = true
		m.search.input.SetValue("")
		cmd := m.search.input.Focus()
		return m, cmd
	case key.Matches(msg, m.keys.NextMatch):
		m.nextMatch()
	case key.Matches(msg, m.keys.PrevMatch):
		m.previousMatch()
	case key.Matches(msg, m.keys.Escape):
		m.clearSearch()

	case key.Matches(msg, m.keys.ToggleRaw):
		m.raw = !m.raw
		raw := m.raw
		return m, m.savePrefs(func(p *prefs.Prefs) { p.Raw = raw })
	case key.Matches(msg, m.keys.CycleLevel):
		cmd := m.cycleLevel()
		return m, cmd
	case key.Matches(msg, m.keys.ToggleLevel):
		m.toggleLevelKey(msg.String())
	case key.Matches(msg, m.keys.ClearFilter):
		m.applyCriteria(filter.Criteria{})
	case key.Matches(msg, m.keys.Sources):
		m.openSourcePicker()
	case key.Matches(msg, m.keys.Filters):
		cmd := m.openFilterForm()
		return m, cmd
	case key.Matches(msg, m.keys.Command):
		cmd := m.openCommand()
		return m, cmd
	}
	return m, nil
}

// handleSearchInput handles keyboard input while typing a search.
func (m Model) handleSearchInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Confirm):
		query := strings.TrimSpace(m.search.input.Value())
		m.search.typing = false
		m.search.input.Blur()
		if query == "" {
			m.clearSearch()
			return m, nil
		}
		m.applySearch(query)
		return m, nil
	case key.Matches(msg, m.keys.Escape):
		m.search.typing = false
		m.search.input.Blur()
		m.search.input.SetValue("")
		return m, nil
	case msg.String() == "ctrl+c":
		return m, tea.Quit
	}
	var cmd tea.Cmd
	m.search.input, cmd = m.search.input.Update(msg)
	return m, cmd
}

// applySearch registers a view of the entries that pass the current filter
// and contain query, then jumps to the first of them.
func (m *Model) applySearch(query string) {
	m.search.query = query
	m.search.pred = filter.All(m.pred, filter.TextContains(query))
	m.search.view = m.engine.Add(searchView, m.search.pred)
	m.search.view.Refresh()
	m.search.hasActive = false
	if m.search.view.Count() > 0 {
		m.jumpToMatch(0)
	}
}

// clearSearch drops the search view and its highlighting.
func (m *Model) clearSearch() {
	if m.search.view != nil {
		m.engine.Remove(searchView)
	}
	m.search.query = ""
	m.search.pred = nil
	m.search.view = nil
	m.search.active = 0
	m.search.hasActive = false
}

// jumpToMatch makes the i-th search match active and centers it.
func (m *Model) jumpToMatch(i int) {
	seq, ok := m.search.view.Seq(i)
	if !ok {
		return
	}
	m.search.active = seq
	m.search.hasActive = true
	m.anchorAt(max(m.view.IndexOf(seq)-m.logRows()/2, 0))
}

// nextMatch moves to the first match after the active one, wrapping around.
func (m *Model) nextMatch() {
	if m.search.view == nil || m.search.view.Count() == 0 {
		return
	}
	i := 0
	if m.search.hasActive {
		i = m.search.view.IndexOf(m.search.active + 1)
		if i >= m.search.view.Count() {
			i = 0
		}
	}
	m.jumpToMatch(i)
}

// previousMatch moves to the last match before the active one, wrapping
// around.
func (m *Model) previousMatch() {
	if m.search.view == nil || m.search.view.Count() == 0 {
		return
	}
	i := m.search.view.Count() - 1
	if m.search.hasActive {
		if j := m.search.view.IndexOf(m.search.active) - 1; j >= 0 {
			i = j
		}
	}
	m.jumpToMatch(i)
}

// matchPosition returns the 1-based position of the active match.
func (m Model) matchPosition() int {
	if m.search.view == nil || !m.search.hasActive {
		return 0
	}
	return m.search.view.IndexOf(m.search.active) + 1
}

// renderLogs renders the log panel and the status line below it.
func (m Model) renderLogs() string {
	box := m.renderTitledBox(m.logTitle(), strings.Join(m.logLines(), "\n"), m.width, m.height-3)
	return box + "\n" + m.renderLogStatus()
}

func (m Model) logTitle() string {
	title := "Log"
	if m.snapshot.SourceName != "" {
		title = truncateMiddle(m.snapshot.SourceName, max(m.width/2, 10))
	}
	if !m.criteria.IsZero() {
		title += " (filtered)"
	}
	if m.raw {
		title += " [raw]"
	}
	return title
}

// logLines renders the visible window as panel rows. In follow mode the
// newest rows are kept, followed by the preview of the entry still being
// written; otherwise rows start at the anchored entry.
func (m Model) logLines() []string {
	styles := m.theme.Styles()
	bg := NewBgStyle(m.theme.SurfaceAlt)
	width := m.panelWidth()
	rows := m.logRows()

	entries := m.visibleEntries()
	if len(entries) == 0 && !m.scroll.follow {
		return []string{bg.Render("No entries", styles.MutedText)}
	}

	srcWidth := min(m.view.Generation().MaxSourceWidth(), maxSourceColumn)
	var lines []string
	for _, e := range entries {
		lines = append(lines, m.formatEntry(e, srcWidth, styles, bg, false)...)
	}

	if m.scroll.follow {
		if p, ok := m.view.Generation().Pending(); ok && m.pred(p) {
			lines = append(lines, m.formatEntry(p, srcWidth, styles, bg, true)...)
		}
		if len(lines) == 0 {
			return []string{bg.Render("Waiting for log entries...", styles.MutedText)}
		}
		if len(lines) > rows {
			lines = lines[len(lines)-rows:]
		}
	} else if len(lines) > rows {
		lines = lines[:rows]
	}

	for i, line := range lines {
		lines[i] = bg.FillLine(line, width)
	}
	return lines
}

// formatEntry renders one entry as one or more rows. Formatted rows show
// aligned time, level and source columns with continuation lines indented
// under the message; raw rows show the text exactly as read.
func (m Model) formatEntry(e logstore.Entry, srcWidth int, styles Styles, bg BgStyle, preview bool) []string {
	levelStyle := styles.LevelStyle(e.Level)
	textStyle := styles.Text
	switch {
	case preview:
		levelStyle = styles.FaintText
		textStyle = styles.FaintText
	case m.search.hasActive && e.Seq == m.search.active:
		sel := styles.Selected
		return m.formatPlain(e, srcWidth, func(s string) string { return sel.Render(s) })
	case m.search.pred != nil && m.search.pred(e):
		textStyle = styles.AccentText
	}

	if m.raw {
		raw := e.RawLines()
		out := make([]string, len(raw))
		for i, l := range raw {
			out[i] = bg.Render(expandTabs(l), levelStyle)
		}
		return out
	}

	body := e.Body()
	first := strings.TrimPrefix(body[0], " ")
	prefix := bg.Render(e.Time.String(), styles.FaintText) + bg.Space() +
		bg.Render(e.Level.Short(), levelStyle) + bg.Space()
	indent := 8 + 1 + 5 + 1
	if srcWidth > 0 {
		prefix += bg.Render(padRight(truncate(e.Source(), srcWidth), srcWidth), styles.AccentText) + bg.Space()
		indent += srcWidth + 1
	}

	out := make([]string, 0, len(body))
	out = append(out, prefix+bg.Render(expandTabs(first), textStyle))
	for _, l := range body[1:] {
		out = append(out, bg.Spaces(indent)+bg.Render(expandTabs(l), textStyle))
	}
	return out
}

// formatPlain renders an entry as unstyled column text passed through paint,
// used for the highlighted search match.
func (m Model) formatPlain(e logstore.Entry, srcWidth int, paint func(string) string) []string {
	var lines []string
	if m.raw {
		lines = e.RawLines()
	} else {
		body := e.Body()
		prefix := e.Time.String() + " " + e.Level.Short() + " "
		if srcWidth > 0 {
			prefix += padRight(truncate(e.Source(), srcWidth), srcWidth) + " "
		}
		lines = append(lines, prefix+strings.TrimPrefix(body[0], " "))
		pad := strings.Repeat(" ", lipgloss.Width(prefix))
		for _, l := range body[1:] {
			lines = append(lines, pad+l)
		}
	}
	for i, l := range lines {
		lines[i] = paint(expandTabs(l))
	}
	return lines
}

// renderLogStatus renders the line under the panel: the active text input,
// the search position, or the view summary.
func (m Model) renderLogStatus() string {
	styles := m.theme.Styles()
	bg := NewBgStyle(m.theme.Background)

	if m.search.typing {
		return m.search.input.View()
	}
	if m.command.typing {
		return m.command.input.View()
	}

	if m.search.view != nil {
		if m.search.view.Count() == 0 {
			return bg.Render("Pattern not found: "+m.search.query, styles.DangerText)
		}
		return bg.Render("/"+m.search.query, styles.AccentText) +
			bg.Render(" - ", styles.FaintText) +
			bg.Render(fmt.Sprintf("%d/%d", m.matchPosition(), m.search.view.Count()), styles.WarningText) +
			bg.Render(" - Press ", styles.FaintText) +
			bg.Render("n", styles.AccentText) +
			bg.Render(" for next, ", styles.FaintText) +
			bg.Render("N", styles.AccentText) +
			bg.Render(" for previous, ", styles.FaintText) +
			bg.Render("Esc", styles.AccentText) +
			bg.Render(" to clear", styles.FaintText)
	}

	follow := "off"
	if m.scroll.follow {
		follow = "on"
	}
	gen := m.view.Generation()
	parts := []string{
		bg.Render(fmt.Sprintf("%d of %d entries", m.view.Count(), gen.Len()), styles.FaintText),
		bg.Render("follow "+follow, styles.FaintText),
	}
	if !m.criteria.IsZero() {
		parts = append(parts, bg.Render("filter: "+m.criteria.String(), styles.MutedText))
	}
	if gen.ID() > 1 {
		parts = append(parts, bg.Render(fmt.Sprintf("generation %d", gen.ID()), styles.WarningText))
	}
	sep := bg.Space() + bg.Render("•", styles.FaintText) + bg.Space()
	return strings.Join(parts, sep)
}
