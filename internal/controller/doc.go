// Package controller keeps a dashboard's sensor data in sync with the backend.
//
// A Controller owns the active filter, the two-tier record cache and the
// fetch/poll lifecycle. Consumers call its setters and render from Snapshot
// whenever Updates signals.
//
// # Phases
//
//	Idle ── filter change / Refresh ──> Loading ── ok ──> Idle
//	                                        └── error ──> Error | Offline
//	Idle ── tick ──> PollChecking ── new data ──> SilentRefreshing ──> Idle
//	                      └── nothing new / failure ──> Idle
//
// A filter change moves to Loading from any phase. Changing only the record
// limit re-slices the cache and stays where it is.
//
// # Full Fetches
//
// Every full fetch gets a token from a counter shared by all sensor types,
// and the last token issued per type is remembered. Starting a fetch cancels
// the previous one. A result is applied only if its token is still the latest
// for its type and that type is still selected; anything else is logged and
// dropped.
//
// Foreground failures empty the cache and set the notice. Silent refreshes
// keep the cache and only log.
//
// # Polling
//
// With auto refresh on, one goroutine per timer generation ticks every
// RefreshInterval. A generation is replaced only when auto refresh, the
// interval or the sensor type changes. Each tick reads the last check time
// from the controller, runs at most one check per type, and only when the
// controller is Idle.
//
// # Errors
//
// Classify and Present turn gateway errors into a Notice. Only one notice is
// visible; the latest foreground failure wins.
package controller
