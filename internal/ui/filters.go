package ui

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/five82/pufferwatch/internal/filter"
	"github.com/five82/pufferwatch/internal/parse"
	"github.com/five82/pufferwatch/internal/prefs"
)

// applyCriteria replaces the main view. A changed predicate is a new view
// scanned from the start of the generation; the scroll anchor is kept and
// resolves to the nearest matching entry at or after it.
func (m *Model) applyCriteria(c filter.Criteria) {
	m.criteria = c
	m.pred = c.Predicate()
	if m.engine == nil {
		return
	}
	m.view = m.engine.Add(mainView, m.pred)
	m.view.Refresh()
	m.restarts = m.view.Restarts()
	if m.search.query != "" {
		m.applySearch(m.search.query)
	}
}

// cycleLevel steps the minimum level threshold: all, TRACE ... ERROR, all.
func (m *Model) cycleLevel() tea.Cmd {
	c := m.criteria.Clone()
	if c.MinLevel >= parse.LevelError {
		c.MinLevel = parse.LevelUnknown
	} else {
		c.MinLevel++
	}
	m.applyCriteria(c)

	level := ""
	if c.MinLevel != parse.LevelUnknown {
		level = strings.ToLower(c.MinLevel.String())
	}
	return m.savePrefs(func(p *prefs.Prefs) { p.Level = level })
}

// toggleLevelKey hides or shows one level; "1" is TRACE and "6" is ERROR.
func (m *Model) toggleLevelKey(k string) {
	n, err := strconv.Atoi(k)
	if err != nil || n < 1 || n > len(parse.Levels) {
		return
	}
	c := m.criteria.Clone()
	c.ToggleLevel(parse.Levels[n-1])
	m.applyCriteria(c)
}

// --- Source picker ---

// sourcePicker lists the sources seen in the current generation so they can
// be hidden or shown one by one.
type sourcePicker struct {
	open   bool
	names  []string
	cursor int
}

func (m *Model) openSourcePicker() {
	names := append([]string(nil), m.view.Generation().Sources()...)
	sort.Slice(names, func(i, j int) bool {
		return strings.ToLower(names[i]) < strings.ToLower(names[j])
	})
	m.sources = sourcePicker{open: true, names: names}
}

func (m Model) handleSourcePickerKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Escape), key.Matches(msg, m.keys.Confirm), key.Matches(msg, m.keys.Sources):
		m.sources.open = false
	case key.Matches(msg, m.keys.Up):
		if m.sources.cursor > 0 {
			m.sources.cursor--
		}
	case key.Matches(msg, m.keys.Down):
		if m.sources.cursor < len(m.sources.names)-1 {
			m.sources.cursor++
		}
	case key.Matches(msg, m.keys.ToggleItem):
		if m.sources.cursor < len(m.sources.names) {
			c := m.criteria.Clone()
			c.ToggleSource(m.sources.names[m.sources.cursor])
			m.applyCriteria(c)
		}
	case msg.String() == "ctrl+c":
		return m, tea.Quit
	}
	return m, nil
}

func (m Model) renderSourcePicker() string {
	styles := m.theme.Styles()

	var b strings.Builder
	b.WriteString(styles.Text.Bold(true).Render("Sources"))
	b.WriteString("\n")
	b.WriteString(styles.FaintText.Render(strings.Repeat("─", 40)))
	b.WriteString("\n\n")

	if len(m.sources.names) == 0 {
		b.WriteString(styles.MutedText.Render("No sources seen yet."))
		b.WriteString("\n")
	}

	// Keep the cursor on screen when the list is taller than the modal.
	visible := max(m.height-12, 3)
	start := 0
	if m.sources.cursor >= visible {
		start = m.sources.cursor - visible + 1
	}
	end := min(start+visible, len(m.sources.names))
	for i := start; i < end; i++ {
		name := m.sources.names[i]
		mark := "[x]"
		style := styles.Text
		if m.criteria.HiddenSources[name] {
			mark = "[ ]"
			style = styles.MutedText
		}
		line := fmt.Sprintf("%s %s", mark, truncate(name, 40))
		if i == m.sources.cursor {
			line = styles.Selected.Render(line)
		} else {
			line = style.Render(line)
		}
		b.WriteString(line)
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(styles.FaintText.Render("j/k: Move  •  Space: Show/Hide  •  Enter/Esc: Close"))
	return m.renderModal(b.String(), 50)
}

// --- Filter form ---

const (
	fieldSource = iota
	fieldText
	fieldCount
)

// filterForm edits the free-text parts of the criteria.
type filterForm struct {
	open   bool
	inputs [fieldCount]textinput.Model
	focus  int
}

func newFilterForm() filterForm {
	var f filterForm

	source := textinput.New()
	source.Placeholder = "e.g. SMAPI, Content Patcher"
	source.CharLimit = 80
	source.Width = 30

	text := textinput.New()
	text.Placeholder = "e.g. exception, missing"
	text.CharLimit = 200
	text.Width = 30

	f.inputs[fieldSource] = source
	f.inputs[fieldText] = text
	return f
}

// openFilterForm opens the modal pre-filled with the current criteria.
func (m *Model) openFilterForm() tea.Cmd {
	m.form.inputs[fieldSource].SetValue(m.criteria.SourceContains)
	m.form.inputs[fieldText].SetValue(m.criteria.Text)
	m.form.focus = fieldSource
	m.form.inputs[fieldText].Blur()
	m.form.open = true
	return m.form.inputs[fieldSource].Focus()
}

func (m Model) handleFilterFormKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Escape):
		m.form.open = false
		return m, nil

	case key.Matches(msg, m.keys.Confirm):
		c := m.criteria.Clone()
		c.SourceContains = strings.TrimSpace(m.form.inputs[fieldSource].Value())
		c.Text = strings.TrimSpace(m.form.inputs[fieldText].Value())
		m.form.open = false
		m.applyCriteria(c)
		return m, nil

	case key.Matches(msg, m.keys.NextField), key.Matches(msg, m.keys.PrevField):
		m.form.inputs[m.form.focus].Blur()
		if key.Matches(msg, m.keys.NextField) {
			m.form.focus = (m.form.focus + 1) % fieldCount
		} else {
			m.form.focus = (m.form.focus - 1 + fieldCount) % fieldCount
		}
		cmd := m.form.inputs[m.form.focus].Focus()
		return m, cmd

	case msg.String() == "ctrl+c":
		// Clears the fields; the modal doesn't quit.
		for i := range m.form.inputs {
			m.form.inputs[i].SetValue("")
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.form.inputs[m.form.focus], cmd = m.form.inputs[m.form.focus].Update(msg)
	return m, cmd
}

func (m Model) renderFilterForm() string {
	styles := m.theme.Styles()

	var b strings.Builder
	b.WriteString(styles.Text.Bold(true).Render("Filters"))
	b.WriteString("\n")
	b.WriteString(styles.FaintText.Render(strings.Repeat("─", 40)))
	b.WriteString("\n\n")
	b.WriteString(styles.MutedText.Render("Matching ignores case. Leave blank to disable."))
	b.WriteString("\n\n")

	labels := [fieldCount]string{"Source:  ", "Message: "}
	for i, label := range labels {
		if m.form.focus == i {
			label = styles.AccentText.Render(label)
		} else {
			label = styles.MutedText.Render(label)
		}
		b.WriteString(label)
		b.WriteString(m.form.inputs[i].View())
		b.WriteString("\n\n")
	}

	b.WriteString(styles.MutedText.Render("Level: " + m.levelSummary()))
	b.WriteString("\n\n")
	b.WriteString(styles.FaintText.Render("Enter: Apply  •  Esc: Cancel  •  Ctrl+C: Clear"))
	return m.renderModal(b.String(), 56)
}

// levelSummary describes the threshold and hidden levels.
func (m Model) levelSummary() string {
	var parts []string
	if m.criteria.MinLevel == parse.LevelUnknown {
		parts = append(parts, "all")
	} else {
		parts = append(parts, ">= "+m.criteria.MinLevel.String())
	}
	for _, l := range parse.Levels {
		if m.criteria.HiddenLevels[l] {
			parts = append(parts, "-"+l.String())
		}
	}
	return strings.Join(parts, " ")
}
