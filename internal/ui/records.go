package ui

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"

	"github.com/gamc/sensorwatch/internal/sensors"
)

const (
	timeColumnWidth   = 19
	sensorColumnWidth = 14
	metricColumnWidth = 12
	recordTimeLayout  = "2006-01-02 15:04:05"
)

// metricColumns picks the metric names shown as columns: the backend stats
// names when present, otherwise those of the first record.
func metricColumns(snapStats sensors.StatsSummary, records []sensors.Record, width int) []string {
	names := snapStats.Names()
	if len(names) == 0 && len(records) > 0 {
		names = records[0].MetricNames()
	}
	room := (width - 4 - timeColumnWidth - sensorColumnWidth) / (metricColumnWidth + 2)
	if room < 1 {
		room = 1
	}
	if len(names) > room {
		names = names[:room]
	}
	return names
}

// syncTable rebuilds the records table from the snapshot's display window.
func (m *Model) syncTable() {
	if m.width == 0 {
		return
	}
	display := m.snap.Cache.Display
	names := metricColumns(m.snap.Cache.Stats, display, m.width)

	cols := []table.Column{
		{Title: "Time", Width: timeColumnWidth},
		{Title: "Sensor", Width: sensorColumnWidth},
	}
	for _, name := range names {
		cols = append(cols, table.Column{Title: truncate(name, metricColumnWidth), Width: metricColumnWidth})
	}

	rows := make([]table.Row, len(display))
	for i, rec := range display {
		row := table.Row{rec.Time.Format(recordTimeLayout), truncate(rec.SensorName, sensorColumnWidth)}
		for _, name := range names {
			v, ok := rec.Metrics[name]
			row = append(row, formatValue(v, ok))
		}
		rows[i] = row
	}

	colKey := strings.Join(names, "\x00")
	if colKey != m.columnKey {
		// Rows must never have fewer cells than the columns being rendered.
		m.table.SetRows(nil)
		m.table.SetColumns(cols)
		m.columnKey = colKey
	}
	m.table.SetRows(rows)
	if m.table.Cursor() >= len(rows) {
		m.table.SetCursor(max(len(rows)-1, 0))
	}
	m.table.SetWidth(m.width)
	m.table.SetHeight(m.contentHeight())

	styles := table.DefaultStyles()
	styles.Header = styles.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color(m.theme.Border)).
		BorderBottom(true).
		Foreground(lipgloss.Color(m.theme.Accent)).
		Bold(true)
	styles.Selected = m.theme.Styles().Selected
	m.table.SetStyles(styles)
}

func (m Model) renderRecords() string {
	if len(m.snap.Cache.Display) == 0 {
		styles := m.theme.Styles()
		msg := "No records for this selection"
		if m.snap.Phase.Busy() {
			msg = "Loading..."
		}
		return lipgloss.Place(m.width, m.contentHeight(), lipgloss.Center, lipgloss.Center, styles.MutedText.Render(msg))
	}
	return m.table.View()
}

// renderStats shows the backend aggregates, stored date spans and any
// pending preview.
func (m Model) renderStats() string {
	styles := m.theme.Styles()
	var b strings.Builder

	b.WriteString(styles.AccentText.Bold(true).Render(fmt.Sprintf("Statistics  %s", m.snap.Filter.Describe())))
	b.WriteString("\n")
	stats := m.snap.Cache.Stats
	if len(stats) == 0 {
		b.WriteString(styles.MutedText.Render("No statistics"))
		b.WriteString("\n")
	} else {
		header := padRight("metric", 24) + padRight("avg", 12) + padRight("min", 12) + padRight("max", 12) + "count"
		b.WriteString(styles.FaintText.Render(header))
		b.WriteString("\n")
		for _, name := range stats.Names() {
			s := stats[name]
			line := padRight(truncate(name, 22), 24) +
				padRight(formatValue(s.Avg, true), 12) +
				padRight(formatValue(s.Min, true), 12) +
				padRight(formatValue(s.Max, true), 12) +
				fmt.Sprintf("%d", s.Count)
			b.WriteString(styles.Text.Render(line))
			b.WriteString("\n")
		}
	}

	if len(m.snap.Bounds) > 0 {
		b.WriteString("\n")
		b.WriteString(styles.AccentText.Bold(true).Render("Stored data"))
		b.WriteString("\n")
		types := make([]string, 0, len(m.snap.Bounds))
		for t := range m.snap.Bounds {
			types = append(types, string(t))
		}
		sort.Strings(types)
		for _, t := range types {
			bounds := m.snap.Bounds[sensors.Type(t)]
			span := "no data"
			if !bounds.Empty() {
				span = bounds.Min.Format("2006-01-02") + " .. " + bounds.Max.Format("2006-01-02")
			}
			b.WriteString(styles.Text.Render(padRight(t, 24) + span))
			b.WriteString("\n")
		}
	}

	if p := m.snap.Preview; p != nil {
		b.WriteString("\n")
		b.WriteString(styles.WarningText.Bold(true).Render(fmt.Sprintf("Preview: %d generated records (S save, X discard)", len(p.Raw))))
		b.WriteString("\n")
		for i, rec := range p.Records {
			if i == 5 {
				b.WriteString(styles.FaintText.Render(fmt.Sprintf("... %d more", len(p.Records)-5)))
				b.WriteString("\n")
				break
			}
			b.WriteString(styles.MutedText.Render(fmt.Sprintf("%s  %s  %d metrics",
				rec.Time.Format(recordTimeLayout), rec.SensorName, len(rec.Metrics))))
			b.WriteString("\n")
		}
	}

	return lipgloss.NewStyle().Width(m.width).Height(m.contentHeight()).Padding(0, 1).Render(b.String())
}
