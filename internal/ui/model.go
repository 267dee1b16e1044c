package ui

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/gamc/sensorwatch/internal/controller"
	"github.com/gamc/sensorwatch/internal/prefs"
	"github.com/gamc/sensorwatch/internal/sensors"
	"github.com/gamc/sensorwatch/internal/state"
)

// Dashboard is the sync controller surface the UI drives.
type Dashboard interface {
	Snapshot() controller.Snapshot
	SetSensor(t sensors.Type) error
	SetDaysBack(n int) error
	ApplyDateRange(r sensors.DateRange) error
	ClearDateRange() error
	Refresh() error
	SetRecordLimit(n int) error
	SetAutoRefresh(enabled bool) error
	SetRefreshInterval(d time.Duration) error
	DismissNotice()
	AvailableDates(ctx context.Context) (map[sensors.Type]sensors.DateBounds, error)
	Clear(ctx context.Context) (int, error)
	UploadCSV(ctx context.Context, path string) (int, error)
	GeneratePreview(ctx context.Context, count int) (sensors.Preview, error)
	SavePreview(ctx context.Context) (int, error)
	DiscardPreview()
}

var _ Dashboard = (*controller.Controller)(nil)

// View represents the current active view.
type View int

const (
	ViewRecords View = iota
	ViewStats
	ViewLogs
)

const defaultPreviewCount = 50

// Options configures the UI.
type Options struct {
	Context   context.Context
	Dashboard Dashboard
	LogPath   string
	Prefs     prefs.Prefs
	PrefsPath string
	Now       func() time.Time
}

// Model is the root application state for Bubble Tea.
type Model struct {
	ctx       context.Context
	dash      Dashboard
	logPath   string
	prefs     prefs.Prefs
	prefsPath string
	now       func() time.Time

	keys        keyMap
	help        help.Model
	theme       Theme
	currentView View
	width       int
	height      int
	ready       bool
	showHelp    bool
	modal       Modal

	snap      controller.Snapshot
	table     table.Model
	columnKey string

	status    string
	statusErr bool

	logViewport viewport.Model
	logState    logState
}

// ChangedMsg tells the model the controller state changed.
type ChangedMsg struct{}

type tickMsg time.Time

// opResultMsg reports the outcome of a backend operation started from the UI.
type opResultMsg struct {
	text string
	err  error
}

// New creates a new Bubble Tea model.
func New(opts Options) Model {
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	prefsPath := opts.PrefsPath
	if prefsPath == "" {
		prefsPath = prefs.DefaultPath()
	}
	p := opts.Prefs.Normalize()

	m := Model{
		ctx:       ctx,
		dash:      opts.Dashboard,
		logPath:   opts.LogPath,
		prefs:     p,
		prefsPath: prefsPath,
		now:       now,
		keys:      DefaultKeyMap(),
		help:      help.New(),
		theme:     GetTheme(p.Theme),
		table:     table.New(table.WithFocused(true)),
	}
	m.initLogState()
	if m.dash != nil {
		m.snap = m.dash.Snapshot()
	}
	return m
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		tickCmd(ClockTick),
		func() tea.Msg { return ChangedMsg{} },
	)
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		m.resize()
		return m, nil

	case ChangedMsg:
		m.refreshSnapshot()
		return m, nil

	case tickMsg:
		cmds := []tea.Cmd{tickCmd(ClockTick)}
		if m.currentView == ViewLogs && m.logState.follow {
			cmds = append(cmds, m.refreshLogs())
		}
		return m, tea.Batch(cmds...)

	case logsMsg:
		m.handleLogs(msg)
		return m, nil

	case opResultMsg:
		if msg.err != nil {
			m.setStatus(msg.err.Error(), true)
		} else {
			m.setStatus(msg.text, false)
		}
		m.refreshSnapshot()
		return m, nil

	case promptSubmitMsg:
		return m.handlePrompt(msg)

	case confirmMsg:
		return m.handleConfirm(msg)
	}

	if m.modal != nil {
		var cmd tea.Cmd
		var closed bool
		m.modal, cmd, closed = m.modal.Update(msg, m.keys)
		if closed {
			m.modal = nil
		}
		return m, cmd
	}
	return m, nil
}

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	if m.showHelp {
		return m.renderHelp()
	}
	if m.modal != nil {
		return m.modal.View(m.theme, m.width, m.height)
	}

	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString("\n")
	b.WriteString(m.renderNoticeLine())
	b.WriteString("\n")
	switch m.currentView {
	case ViewStats:
		b.WriteString(m.renderStats())
	case ViewLogs:
		b.WriteString(m.renderLogs())
	default:
		b.WriteString(m.renderRecords())
	}
	b.WriteString("\n")
	b.WriteString(m.renderFooter())
	return b.String()
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.modal != nil {
		var cmd tea.Cmd
		var closed bool
		m.modal, cmd, closed = m.modal.Update(msg, m.keys)
		if closed {
			m.modal = nil
		}
		return m, cmd
	}
	if m.showHelp {
		m.showHelp = false
		return m, nil
	}

	k := m.keys
	switch {
	case key.Matches(msg, k.Quit):
		return m, tea.Quit

	case key.Matches(msg, k.Help):
		m.showHelp = true
		return m, nil

	case key.Matches(msg, k.CycleTheme):
		m.theme = GetTheme(NextTheme(m.theme.Name))
		m.prefs.Theme = m.theme.Name
		m.savePrefs()
		m.resize()
		return m, nil

	case key.Matches(msg, k.Tab):
		if m.currentView == ViewRecords {
			m.currentView = ViewStats
		} else {
			m.currentView = ViewRecords
		}
		return m, nil

	case key.Matches(msg, k.ViewLogs):
		m.currentView = ViewLogs
		return m, m.refreshLogs()

	case key.Matches(msg, k.Escape):
		m.currentView = ViewRecords
		return m, nil

	case key.Matches(msg, k.CycleSensor):
		m.apply(m.dash.SetSensor(m.snap.Filter.Sensor.Next()))
		return m, nil

	case key.Matches(msg, k.Refresh):
		m.apply(m.dash.Refresh())
		return m, nil

	case key.Matches(msg, k.ToggleAuto):
		enabled := !m.snap.AutoRefresh
		m.apply(m.dash.SetAutoRefresh(enabled))
		m.prefs.AutoRefresh = enabled
		m.savePrefs()
		return m, nil

	case key.Matches(msg, k.IntervalUp), key.Matches(msg, k.IntervalDown):
		step := 1
		if key.Matches(msg, k.IntervalDown) {
			step = -1
		}
		secs := prefs.ClampRefresh(int(m.snap.RefreshInterval/time.Second) + step)
		m.apply(m.dash.SetRefreshInterval(time.Duration(secs) * time.Second))
		m.prefs.RefreshSeconds = secs
		m.savePrefs()
		return m, nil

	case key.Matches(msg, k.CycleLimit):
		limit := state.NextRecordLimit(m.snap.Filter.RecordLimit)
		m.apply(m.dash.SetRecordLimit(limit))
		m.prefs.RecordLimit = limit
		m.savePrefs()
		return m, nil

	case key.Matches(msg, k.DaysBack):
		m.modal = newPrompt(promptDaysBack, "Days back", fmt.Sprintf("1 to %d", state.MaxDaysBack),
			strconv.Itoa(m.snap.Filter.DaysBack))
		return m, nil

	case key.Matches(msg, k.DateRange):
		value := ""
		if m.snap.Filter.DateRange != nil {
			value = m.snap.Filter.DateRange.String()
		}
		m.modal = newPrompt(promptDateRange, "Date range", "YYYY-MM-DD..YYYY-MM-DD, empty to clear", value)
		return m, nil

	case key.Matches(msg, k.ClearDateRange):
		m.apply(m.dash.ClearDateRange())
		return m, nil

	case key.Matches(msg, k.AvailableDates):
		m.currentView = ViewStats
		return m, m.runOp(func(ctx context.Context) (string, error) {
			bounds, err := m.dash.AvailableDates(ctx)
			if err != nil {
				return "", err
			}
			return fmt.Sprintf("Loaded stored date spans for %d sensor types", len(bounds)), nil
		})

	case key.Matches(msg, k.DismissNotice):
		m.dash.DismissNotice()
		m.setStatus("", false)
		return m, nil

	case key.Matches(msg, k.ClearData):
		m.modal = confirmModal{
			action:   confirmClearData,
			question: fmt.Sprintf("Delete all %s records on the server?", m.snap.Filter.Sensor),
		}
		return m, nil

	case key.Matches(msg, k.Upload):
		m.modal = newPrompt(promptUpload, fmt.Sprintf("Upload CSV to %s", m.snap.Filter.Sensor), "path to a .csv file", "")
		return m, nil

	case key.Matches(msg, k.GeneratePreview):
		m.modal = newPrompt(promptPreviewCount, "Generate preview records", "number of records", strconv.Itoa(defaultPreviewCount))
		return m, nil

	case key.Matches(msg, k.SavePreview):
		if m.snap.Preview == nil {
			m.setStatus("No preview to save", true)
			return m, nil
		}
		return m, m.runOp(func(ctx context.Context) (string, error) {
			n, err := m.dash.SavePreview(ctx)
			if err != nil {
				return "", err
			}
			return fmt.Sprintf("Saved %d generated records", n), nil
		})

	case key.Matches(msg, k.DiscardPreview):
		m.dash.DiscardPreview()
		m.refreshSnapshot()
		return m, nil
	}

	switch m.currentView {
	case ViewLogs:
		return m.handleLogsKey(msg)
	case ViewRecords:
		var cmd tea.Cmd
		m.table, cmd = m.table.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m Model) handlePrompt(msg promptSubmitMsg) (tea.Model, tea.Cmd) {
	switch msg.kind {
	case promptDaysBack:
		n, err := strconv.Atoi(msg.value)
		if err != nil {
			m.setStatus(fmt.Sprintf("Days back: %q is not a number", msg.value), true)
			return m, nil
		}
		m.apply(m.dash.SetDaysBack(n))

	case promptDateRange:
		if msg.value == "" {
			m.apply(m.dash.ClearDateRange())
			break
		}
		r, err := sensors.ParseDateRange(msg.value)
		if err != nil {
			m.setStatus(err.Error(), true)
			return m, nil
		}
		m.apply(m.dash.ApplyDateRange(r))

	case promptUpload:
		if msg.value == "" {
			return m, nil
		}
		path := msg.value
		m.setStatus("Uploading "+path+"...", false)
		return m, m.runOp(func(ctx context.Context) (string, error) {
			n, err := m.dash.UploadCSV(ctx, path)
			if err != nil {
				return "", err
			}
			return fmt.Sprintf("Uploaded %d records from %s", n, path), nil
		})

	case promptPreviewCount:
		count, err := strconv.Atoi(msg.value)
		if err != nil || count < 1 {
			m.setStatus(fmt.Sprintf("Preview count: %q is not a positive number", msg.value), true)
			return m, nil
		}
		m.currentView = ViewStats
		return m, m.runOp(func(ctx context.Context) (string, error) {
			p, err := m.dash.GeneratePreview(ctx, count)
			if err != nil {
				return "", err
			}
			return fmt.Sprintf("Generated %d preview records, S to save, X to discard", len(p.Raw)), nil
		})
	}
	m.refreshSnapshot()
	return m, nil
}

func (m Model) handleConfirm(msg confirmMsg) (tea.Model, tea.Cmd) {
	if msg.action != confirmClearData {
		return m, nil
	}
	sensor := m.snap.Filter.Sensor
	return m, m.runOp(func(ctx context.Context) (string, error) {
		n, err := m.dash.Clear(ctx)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("Deleted %d %s records", n, sensor), nil
	})
}

// runOp runs fn off the update loop with a bounded context.
func (m Model) runOp(fn func(ctx context.Context) (string, error)) tea.Cmd {
	parent := m.ctx
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(parent, OperationTimeout)
		defer cancel()
		text, err := fn(ctx)
		return opResultMsg{text: text, err: err}
	}
}

// apply handles a setter's error. Rejected input is already published as the
// controller notice, so only a closed controller is reported here.
func (m *Model) apply(err error) {
	if errors.Is(err, controller.ErrClosed) {
		m.setStatus("Controller stopped", true)
	}
	m.refreshSnapshot()
}

func (m *Model) setStatus(text string, isErr bool) {
	m.status = text
	m.statusErr = isErr
}

func (m *Model) savePrefs() {
	if m.prefsPath == "" {
		return
	}
	if err := prefs.Save(m.prefsPath, m.prefs); err != nil {
		m.setStatus(err.Error(), true)
	}
}

func (m *Model) refreshSnapshot() {
	if m.dash == nil {
		return
	}
	m.snap = m.dash.Snapshot()
	m.syncTable()
}

func (m *Model) resize() {
	m.syncTable()
	m.updateLogViewport()
}

// contentHeight is the space left for the active view: two header lines and
// the footer.
func (m Model) contentHeight() int {
	h := m.height - 3
	if h < 3 {
		return 3
	}
	return h
}

func tickCmd(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Run starts the Bubble Tea program. attach receives the program's Send
// function before it starts so callers can forward controller updates.
func Run(opts Options, attach func(send func(tea.Msg))) error {
	programOpts := []tea.ProgramOption{tea.WithAltScreen()}
	if opts.Context != nil {
		programOpts = append(programOpts, tea.WithContext(opts.Context))
	}
	p := tea.NewProgram(New(opts), programOpts...)
	if attach != nil {
		attach(p.Send)
	}
	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && opts.Context != nil && opts.Context.Err() != nil {
		return nil
	}
	return err
}
