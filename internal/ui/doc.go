// Package ui provides the terminal dashboard for sensorwatch.
//
// The UI is a Bubble Tea program. Model holds no data of its own beyond
// presentation state: every frame is drawn from the latest
// controller.Snapshot, which the model refreshes when it receives a
// ChangedMsg. The app package forwards the controller's update channel into
// the program as ChangedMsg values.
//
// # Views
//
//   - Records: the display window of the cache in a bubbles table. Metric
//     columns follow the backend statistics, or the first record when no
//     statistics were returned.
//   - Stats: backend aggregates per metric, stored date spans and any pending
//     generated preview.
//   - Logs: the tail of the application log file, filtered by level.
//
// # Input
//
// Keys map onto Dashboard calls. Setters return immediately; the controller
// runs any network work in the background and publishes the result. Backend
// operations (upload, clear, preview, stored dates) run as tea.Cmds bounded
// by OperationTimeout and report through a status line.
//
// Text input goes through promptModal, destructive actions through
// confirmModal. Parsing happens here; range and bounds validation is left to
// the controller so its notice stays the single source of input errors.
//
// Theme, auto refresh, refresh interval and record limit changes are written
// back to the preferences file as they happen.
package ui
