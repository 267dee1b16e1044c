package ui

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/gamc/sensorwatch/internal/logtail"
)

var logLevels = []string{"debug", "info", "warn", "error"}

// logState holds the log view state.
type logState struct {
	entries  []logtail.Entry
	follow   bool
	minLevel string
	err      error
}

type logsMsg struct {
	entries []logtail.Entry
	err     error
}

func (m *Model) initLogState() {
	m.logState = logState{follow: true, minLevel: "info"}
	m.logViewport = viewport.New(0, 0)
}

// refreshLogs reads the tail of the application log off the update loop.
func (m Model) refreshLogs() tea.Cmd {
	path := m.logPath
	if path == "" {
		return nil
	}
	return func() tea.Msg {
		entries, err := logtail.Tail(path, LogTailLines)
		return logsMsg{entries: entries, err: err}
	}
}

func (m *Model) handleLogs(msg logsMsg) {
	m.logState.err = msg.err
	if msg.err == nil {
		m.logState.entries = msg.entries
	}
	m.updateLogViewport()
}

func (m *Model) updateLogViewport() {
	m.logViewport.Width = m.width
	m.logViewport.Height = m.contentHeight() - 1
	m.logViewport.SetContent(m.renderLogContent())
	if m.logState.follow {
		m.logViewport.GotoBottom()
	}
}

func (m Model) renderLogContent() string {
	styles := m.theme.Styles()
	entries := logtail.AtLeast(m.logState.entries, m.logState.minLevel)
	lines := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.Time.IsZero() {
			lines = append(lines, styles.FaintText.Render(e.Raw))
			continue
		}
		line := styles.FaintText.Render(e.Time.Format("15:04:05")) + " " +
			m.levelStyle(e.Level).Render(padRight(e.Level, 5)) + " " +
			styles.Text.Render(e.Message)
		if e.Fields != "" {
			line += " " + styles.MutedText.Render(e.Fields)
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

func (m Model) levelStyle(level string) lipgloss.Style {
	styles := m.theme.Styles()
	switch level {
	case "ERROR", "DPANIC", "PANIC", "FATAL":
		return styles.DangerText
	case "WARN":
		return styles.WarningText
	case "DEBUG":
		return styles.InfoText
	default:
		return styles.SuccessText
	}
}

func (m Model) renderLogs() string {
	styles := m.theme.Styles()
	if m.logPath == "" {
		return styles.MutedText.Render("Logging to file is disabled")
	}
	follow := "paused"
	if m.logState.follow {
		follow = "following"
	}
	status := styles.MutedText.Render(truncate(m.logPath, m.width/2)) + "  " +
		styles.AccentText.Render(">= "+m.logState.minLevel) + "  " +
		styles.FaintText.Render(follow)
	if m.logState.err != nil {
		status += "  " + styles.DangerText.Render(m.logState.err.Error())
	}
	return m.logViewport.View() + "\n" + lipgloss.NewStyle().Padding(0, 1).Render(status)
}

func (m Model) handleLogsKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	k := m.keys
	switch {
	case key.Matches(msg, k.ToggleFollow):
		m.logState.follow = !m.logState.follow
		if m.logState.follow {
			m.logViewport.GotoBottom()
		}
		return m, nil

	case key.Matches(msg, k.CycleLevel):
		for i, lvl := range logLevels {
			if lvl == m.logState.minLevel {
				m.logState.minLevel = logLevels[(i+1)%len(logLevels)]
				break
			}
		}
		m.updateLogViewport()
		return m, nil

	case key.Matches(msg, k.Top):
		m.logViewport.GotoTop()
		m.logState.follow = false
		return m, nil

	case key.Matches(msg, k.Bottom):
		m.logViewport.GotoBottom()
		m.logState.follow = true
		return m, nil

	case key.Matches(msg, k.Up):
		m.logViewport.LineUp(1)
		m.logState.follow = false
		return m, nil

	case key.Matches(msg, k.Down):
		m.logViewport.LineDown(1)
		return m, nil

	case key.Matches(msg, k.PageUp):
		m.logViewport.HalfViewUp()
		m.logState.follow = false
		return m, nil

	case key.Matches(msg, k.PageDown):
		m.logViewport.HalfViewDown()
		return m, nil
	}
	return m, nil
}
