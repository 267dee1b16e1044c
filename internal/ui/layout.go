package ui

import "time"

// LayoutCompactWidth is the width below which the header drops the
// refresh and check ages.
const LayoutCompactWidth = 100

// LogTailLines caps how much of the log file the log view loads.
const LogTailLines = 2000

// Timing constants.
const (
	// ClockTick refreshes relative timestamps in the header and, while
	// following, the log view.
	ClockTick = time.Second

	// OperationTimeout bounds backend mutations started from the UI.
	OperationTimeout = 60 * time.Second
)
