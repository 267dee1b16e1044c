package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines all keyboard bindings for the application.
type keyMap struct {
	// Global
	Quit       key.Binding
	Help       key.Binding
	CycleTheme key.Binding
	Tab        key.Binding
	Escape     key.Binding
	ViewLogs   key.Binding

	// Selection
	CycleSensor    key.Binding
	DaysBack       key.Binding
	DateRange      key.Binding
	ClearDateRange key.Binding
	CycleLimit     key.Binding

	// Sync
	Refresh        key.Binding
	ToggleAuto     key.Binding
	IntervalUp     key.Binding
	IntervalDown   key.Binding
	AvailableDates key.Binding
	DismissNotice  key.Binding

	// Data management
	ClearData       key.Binding
	Upload          key.Binding
	GeneratePreview key.Binding
	SavePreview     key.Binding
	DiscardPreview  key.Binding

	// Navigation
	Up       key.Binding
	Down     key.Binding
	Top      key.Binding
	Bottom   key.Binding
	PageUp   key.Binding
	PageDown key.Binding

	// Logs
	ToggleFollow key.Binding
	CycleLevel   key.Binding

	// Prompt
	Confirm key.Binding
}

// DefaultKeyMap returns the default key bindings.
func DefaultKeyMap() keyMap {
	return keyMap{
		Quit: key.NewBinding(
			key.WithKeys("ctrl+c", "q"),
			key.WithHelp("q", "Quit"),
		),
		Help: key.NewBinding(
			key.WithKeys("h", "?"),
			key.WithHelp("h/?", "Toggle help"),
		),
		CycleTheme: key.NewBinding(
			key.WithKeys("T"),
			key.WithHelp("T", "Cycle theme"),
		),
		Tab: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "Records/stats"),
		),
		Escape: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "Back"),
		),
		ViewLogs: key.NewBinding(
			key.WithKeys("l"),
			key.WithHelp("l", "Application log"),
		),

		CycleSensor: key.NewBinding(
			key.WithKeys("s"),
			key.WithHelp("s", "Next sensor type"),
		),
		DaysBack: key.NewBinding(
			key.WithKeys("d"),
			key.WithHelp("d", "Days back"),
		),
		DateRange: key.NewBinding(
			key.WithKeys("R"),
			key.WithHelp("R", "Date range"),
		),
		ClearDateRange: key.NewBinding(
			key.WithKeys("x"),
			key.WithHelp("x", "Clear date range"),
		),
		CycleLimit: key.NewBinding(
			key.WithKeys("L"),
			key.WithHelp("L", "Record limit"),
		),

		Refresh: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "Refresh"),
		),
		ToggleAuto: key.NewBinding(
			key.WithKeys("a"),
			key.WithHelp("a", "Auto refresh"),
		),
		IntervalUp: key.NewBinding(
			key.WithKeys("+", "="),
			key.WithHelp("+", "Slower polling"),
		),
		IntervalDown: key.NewBinding(
			key.WithKeys("-"),
			key.WithHelp("-", "Faster polling"),
		),
		AvailableDates: key.NewBinding(
			key.WithKeys("b"),
			key.WithHelp("b", "Stored date spans"),
		),
		DismissNotice: key.NewBinding(
			key.WithKeys("c"),
			key.WithHelp("c", "Dismiss notice"),
		),

		ClearData: key.NewBinding(
			key.WithKeys("D"),
			key.WithHelp("D", "Delete sensor data"),
		),
		Upload: key.NewBinding(
			key.WithKeys("u"),
			key.WithHelp("u", "Upload CSV"),
		),
		GeneratePreview: key.NewBinding(
			key.WithKeys("p"),
			key.WithHelp("p", "Generate preview"),
		),
		SavePreview: key.NewBinding(
			key.WithKeys("S"),
			key.WithHelp("S", "Save preview"),
		),
		DiscardPreview: key.NewBinding(
			key.WithKeys("X"),
			key.WithHelp("X", "Discard preview"),
		),

		Up: key.NewBinding(
			key.WithKeys("k", "up"),
			key.WithHelp("k/up", "Move up"),
		),
		Down: key.NewBinding(
			key.WithKeys("j", "down"),
			key.WithHelp("j/down", "Move down"),
		),
		Top: key.NewBinding(
			key.WithKeys("g", "home"),
			key.WithHelp("g", "Go to top"),
		),
		Bottom: key.NewBinding(
			key.WithKeys("G", "end"),
			key.WithHelp("G", "Go to bottom"),
		),
		PageUp: key.NewBinding(
			key.WithKeys("pgup", "ctrl+u"),
			key.WithHelp("pgup", "Page up"),
		),
		PageDown: key.NewBinding(
			key.WithKeys("pgdown", "ctrl+d"),
			key.WithHelp("pgdown", "Page down"),
		),

		ToggleFollow: key.NewBinding(
			key.WithKeys(" "),
			key.WithHelp("Space", "Toggle follow"),
		),
		CycleLevel: key.NewBinding(
			key.WithKeys("f"),
			key.WithHelp("f", "Minimum level"),
		),

		Confirm: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "Confirm"),
		),
	}
}

// ShortHelp returns key bindings for the footer.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.CycleSensor, k.Refresh, k.ToggleAuto, k.CycleLimit, k.DateRange, k.Help, k.Quit}
}

// FullHelp returns key bindings for the help overlay, one column per group.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.CycleSensor, k.DaysBack, k.DateRange, k.ClearDateRange, k.CycleLimit},
		{k.Refresh, k.ToggleAuto, k.IntervalUp, k.IntervalDown, k.AvailableDates, k.DismissNotice},
		{k.ClearData, k.Upload, k.GeneratePreview, k.SavePreview, k.DiscardPreview},
		{k.Tab, k.ViewLogs, k.Up, k.Down, k.Top, k.Bottom},
		{k.ToggleFollow, k.CycleLevel, k.CycleTheme, k.Help, k.Quit},
	}
}
