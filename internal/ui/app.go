package ui

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/five82/pufferwatch/internal/filter"
	"github.com/five82/pufferwatch/internal/prefs"
	"github.com/five82/pufferwatch/internal/state"
)

// View names registered with the filter engine.
const (
	mainView   = "main"
	searchView = "search"
)

const defaultRefreshInterval = 100 * time.Millisecond

// Sender forwards a line typed by the operator to a supervised child.
type Sender interface {
	Send(line string) error
}

// Options configures the UI.
type Options struct {
	Context  context.Context
	Engine   *filter.Engine
	Status   *state.Store
	Sender   Sender // nil when there is no child to talk to
	Criteria filter.Criteria
	Raw      bool

	ThemeName       string
	PrefsPath       string // empty disables saving preferences
	RefreshInterval time.Duration

	// InputTTY reads keys from the terminal device instead of stdin, for
	// sessions whose log arrives on stdin.
	InputTTY bool
}

// Model is the root application state for Bubble Tea.
type Model struct {
	ctx          context.Context
	engine       *filter.Engine
	status       *state.Store
	sender       Sender
	prefsPath    string
	refreshEvery time.Duration

	keys   keyMap
	help   help.Model
	theme  Theme
	width  int
	height int
	ready  bool

	snapshot state.Snapshot

	// Main filtered view
	criteria filter.Criteria
	pred     filter.Predicate
	view     *filter.View
	restarts int
	scroll   scrollState
	raw      bool

	search   searchState
	form     filterForm
	sources  sourcePicker
	command  commandState
	showHelp bool
}

// New creates the viewer model and registers its views with the engine.
func New(opts Options) Model {
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}
	status := opts.Status
	if status == nil {
		status = &state.Store{}
	}
	refreshEvery := opts.RefreshInterval
	if refreshEvery <= 0 {
		refreshEvery = defaultRefreshInterval
	}

	m := Model{
		ctx:          ctx,
		engine:       opts.Engine,
		status:       status,
		sender:       opts.Sender,
		prefsPath:    opts.PrefsPath,
		refreshEvery: refreshEvery,
		keys:         DefaultKeyMap(),
		help:         help.New(),
		theme:        GetTheme(opts.ThemeName),
		raw:          opts.Raw,
		scroll:       scrollState{follow: true},
		search:       newSearchState(),
		form:         newFilterForm(),
		command:      newCommandState(),
	}
	m.applyCriteria(opts.Criteria)
	return m
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return func() tea.Msg { return tickMsg(time.Now()) }
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.ready = true
		return m, nil

	case tickMsg:
		return m.handleTick()

	case commandResultMsg:
		if msg.err != nil {
			m.status.Warn(commandFailure(msg.err), msg.err)
			m.snapshot = m.status.Snapshot()
		}
		return m, nil

	case prefsErrorMsg:
		m.status.Warn("preferences not saved", msg.err)
		return m, nil
	}
	return m, nil
}

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	switch {
	case m.showHelp:
		return m.renderHelp()
	case m.form.open:
		return m.renderFilterForm()
	case m.sources.open:
		return m.renderSourcePicker()
	}

	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString("\n")
	b.WriteString(m.renderCommandBar())
	b.WriteString("\n")
	b.WriteString(m.renderLogs())
	return b.String()
}

// handleKey routes keyboard input to whichever input currently owns it.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.showHelp {
		m.showHelp = false
		return m, nil
	}
	if m.form.open {
		return m.handleFilterFormKey(msg)
	}
	if m.sources.open {
		return m.handleSourcePickerKey(msg)
	}
	if m.search.typing {
		return m.handleSearchInput(msg)
	}
	if m.command.typing {
		return m.handleCommandInput(msg)
	}

	switch msg.String() {
	case "ctrl+c", "q":
		return m, tea.Quit
	case "h", "?":
		m.showHelp = true
		return m, nil
	case "T":
		m.theme = GetTheme(NextTheme(m.theme.Name))
		name := m.theme.Name
		return m, m.savePrefs(func(p *prefs.Prefs) { p.Theme = name })
	}
	return m.handleLogsKey(msg)
}

// handleTick refreshes every view and the status snapshot.
func (m Model) handleTick() (tea.Model, tea.Cmd) {
	if m.ctx.Err() != nil {
		return m, tea.Quit
	}
	m.refresh()
	m.snapshot = m.status.Snapshot()
	return m, tickCmd(m.refreshEvery)
}

// refresh extends every view with the entries committed since the last call.
func (m *Model) refresh() {
	if m.engine == nil {
		return
	}
	if _, err := m.engine.RefreshAll(m.ctx); err != nil {
		return
	}
	if r := m.view.Restarts(); r != m.restarts {
		// The store started a new generation: old anchors are meaningless.
		m.restarts = r
		m.scroll = scrollState{follow: true}
		m.search.active = 0
		m.search.hasActive = false
	}
}

// savePrefs persists a preference change without blocking the UI.
func (m Model) savePrefs(fn func(*prefs.Prefs)) tea.Cmd {
	if m.prefsPath == "" {
		return nil
	}
	path := m.prefsPath
	return func() tea.Msg {
		if err := prefs.Update(path, fn); err != nil {
			return prefsErrorMsg{err: err}
		}
		return nil
	}
}

// Messages

type tickMsg time.Time

type prefsErrorMsg struct{ err error }

// Commands

func tickCmd(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Run starts the Bubble Tea program and blocks until the operator quits or
// the context is cancelled.
func Run(opts Options) error {
	if opts.Engine == nil {
		return errors.New("ui requires a filter engine")
	}
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}
	opts.Context = ctx

	programOpts := []tea.ProgramOption{tea.WithAltScreen(), tea.WithContext(ctx)}
	if opts.InputTTY {
		programOpts = append(programOpts, tea.WithInputTTY())
	}
	_, err := tea.NewProgram(New(opts), programOpts...).Run()
	if err != nil && errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}

// logRows is the number of log lines that fit in the panel: the header,
// command bar, panel borders and status line take five rows.
func (m Model) logRows() int {
	return max(m.height-5, 1)
}

// panelWidth is the usable width inside the panel borders.
func (m Model) panelWidth() int {
	return max(m.width-2, 1)
}

var _ tea.Model = Model{}
