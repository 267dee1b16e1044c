package ui

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Modal is the interface for modal dialogs.
// The Update method returns the updated modal, a command, and a bool indicating if the modal should close.
type Modal interface {
	Update(msg tea.Msg, keys keyMap) (Modal, tea.Cmd, bool)
	View(theme Theme, width, height int) string
}

// promptKind identifies what a prompt's value is for.
type promptKind int

const (
	promptDaysBack promptKind = iota
	promptDateRange
	promptUpload
	promptPreviewCount
)

// promptSubmitMsg carries the text entered into a prompt.
type promptSubmitMsg struct {
	kind  promptKind
	value string
}

// confirmMsg is sent when the operator accepts a confirmation.
type confirmMsg struct {
	action confirmAction
}

type confirmAction int

const (
	confirmClearData confirmAction = iota
)

// promptModal is a single-line text prompt.
type promptModal struct {
	kind  promptKind
	title string
	hint  string
	input textinput.Model
}

func newPrompt(kind promptKind, title, hint, value string) promptModal {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.CharLimit = 256
	ti.Width = 40
	ti.SetValue(value)
	ti.CursorEnd()
	ti.Focus()
	return promptModal{kind: kind, title: title, hint: hint, input: ti}
}

func (p promptModal) Update(msg tea.Msg, keys keyMap) (Modal, tea.Cmd, bool) {
	if km, ok := msg.(tea.KeyMsg); ok {
		switch {
		case key.Matches(km, keys.Escape):
			return p, nil, true
		case key.Matches(km, keys.Confirm):
			submit := promptSubmitMsg{kind: p.kind, value: strings.TrimSpace(p.input.Value())}
			return p, func() tea.Msg { return submit }, true
		}
	}
	var cmd tea.Cmd
	p.input, cmd = p.input.Update(msg)
	return p, cmd, false
}

func (p promptModal) View(theme Theme, width, height int) string {
	styles := theme.Styles()
	var b strings.Builder
	b.WriteString(styles.Text.Bold(true).Render(p.title))
	b.WriteString("\n\n")
	b.WriteString(p.input.View())
	if p.hint != "" {
		b.WriteString("\n\n")
		b.WriteString(styles.FaintText.Render(p.hint))
	}
	return placeModal(theme, width, height, b.String())
}

// confirmModal asks a yes/no question.
type confirmModal struct {
	action   confirmAction
	question string
}

func (c confirmModal) Update(msg tea.Msg, _ keyMap) (Modal, tea.Cmd, bool) {
	km, ok := msg.(tea.KeyMsg)
	if !ok {
		return c, nil, false
	}
	switch strings.ToLower(km.String()) {
	case "y":
		action := c.action
		return c, func() tea.Msg { return confirmMsg{action: action} }, true
	case "n", "esc", "q":
		return c, nil, true
	}
	return c, nil, false
}

func (c confirmModal) View(theme Theme, width, height int) string {
	styles := theme.Styles()
	body := styles.WarningText.Bold(true).Render(c.question) + "\n\n" +
		styles.MutedText.Render("y to confirm, n to cancel")
	return placeModal(theme, width, height, body)
}

func placeModal(theme Theme, width, height int, body string) string {
	modal := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color(theme.Accent)).
		Padding(1, 2)
	return lipgloss.Place(
		width,
		height,
		lipgloss.Center,
		lipgloss.Center,
		modal.Render(body),
		lipgloss.WithWhitespaceChars(" "),
		lipgloss.WithWhitespaceForeground(lipgloss.Color(theme.Background)),
	)
}
