// Package logtail reads the tail of the sensorwatch log file for the in-app
// log view.
//
// Read extracts the last N lines in one pass with a ring buffer of N slots,
// so memory stays O(N) whatever the file size. Parse splits zap's console
// encoding (time, level, message, fields, tab separated) into an Entry, and
// AtLeast filters entries by level.
//
// Read returns nil, nil for a missing file; the log may not exist until the
// first entry is written.
package logtail
