package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/gamc/sensorwatch/internal/controller"
)

// renderHeader renders the status bar: selection, phase, polling and
// freshness.
func (m Model) renderHeader() string {
	styles := m.theme.Styles()
	bg := lipgloss.Color(m.theme.Surface)
	on := func(s lipgloss.Style) lipgloss.Style { return s.Background(bg) }
	sep := on(lipgloss.NewStyle()).Render("  ")

	snap := m.snap
	now := m.now()

	parts := []string{
		on(styles.Logo).Render("sensorwatch"),
		on(styles.AccentText.Bold(true)).Render(strings.ToUpper(string(snap.Filter.Sensor))),
		on(styles.Text).Render(selectionLabel(snap)),
		styles.PhaseStyle(snap.Phase.String()).Render(snap.Phase.String()),
	}

	if snap.AutoRefresh {
		parts = append(parts, on(styles.SuccessText).Render(fmt.Sprintf("auto %ds", int(snap.RefreshInterval.Seconds()))))
	} else {
		parts = append(parts, on(styles.MutedText).Render("auto off"))
	}

	parts = append(parts, on(styles.Text).Render(fmt.Sprintf("%d/%d records", len(snap.Cache.Display), len(snap.Cache.Full))))

	if m.width >= LayoutCompactWidth {
		parts = append(parts,
			on(styles.FaintText).Render("refreshed")+on(lipgloss.NewStyle()).Render(" ")+
				on(styles.MutedText).Render(humanizeAge(now, snap.LastRefresh)),
			on(styles.FaintText).Render("checked")+on(lipgloss.NewStyle()).Render(" ")+
				on(styles.MutedText).Render(humanizeAge(now, snap.LastDataCheck)),
		)
	}
	if snap.Preview != nil {
		parts = append(parts, on(styles.WarningText).Render(fmt.Sprintf("preview %d", len(snap.Preview.Raw))))
	}

	return styles.Header.Width(m.width).Render(strings.Join(parts, sep))
}

// selectionLabel describes the active window and the display limit.
func selectionLabel(snap controller.Snapshot) string {
	f := snap.Filter
	if f.DateRange != nil {
		return fmt.Sprintf("%s  limit %d", f.DateRange, f.RecordLimit)
	}
	return fmt.Sprintf("last %dd  limit %d", f.DaysBack, f.RecordLimit)
}

// renderNoticeLine shows the controller notice, or the last operation status
// when there is none.
func (m Model) renderNoticeLine() string {
	styles := m.theme.Styles()
	line := lipgloss.NewStyle().Width(m.width).Padding(0, 1)

	notice := m.snap.Notice
	switch {
	case notice.Class == controller.ClassOfflineDegraded:
		return line.Inherit(styles.WarningText).Render(truncate(notice.Message, m.width-2))
	case !notice.Empty():
		label := fmt.Sprintf("%s error: %s", notice.Class, notice.Message)
		return line.Inherit(styles.DangerText).Render(truncate(label, m.width-2))
	case m.status != "" && m.statusErr:
		return line.Inherit(styles.DangerText).Render(truncate(m.status, m.width-2))
	case m.status != "":
		return line.Inherit(styles.InfoText).Render(truncate(m.status, m.width-2))
	default:
		return line.Inherit(styles.FaintText).Render("")
	}
}
