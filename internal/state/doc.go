// Package state holds the data selection and the two-tier record cache.
//
// # Filter
//
// Filter is the active selection: sensor type, days back or a date range, and
// the display record limit. It is a plain value. Every With* method returns a
// new Filter and validates its input, so a Filter held by the controller is
// only ever replaced wholesale.
//
// A date range supersedes days back. SameSelection tells whether two filters
// would fetch the same records from the backend.
//
// # Cache
//
// Cache keeps the full record set of the last successful fetch and the
// display window derived from it:
//
//	display == full[:min(limit, len(full))]
//
// Replace and SetLimit recompute the window under the same write lock that
// swaps the data, and Snapshot copies both under a read lock, so no reader
// observes a pair that breaks the invariant.
//
// SetLimit is the only operation that changes the window without new data. It
// is pure slicing and never reaches the network.
//
// Stats are stored next to the records but are never derived from them; the
// backend computes them, possibly over more records than were fetched.
//
// # Copying
//
// Replace copies its input slice and Snapshot copies the stored one. Records
// themselves, including their Metrics maps, are treated as immutable once
// received and are not deep-copied.
package state
