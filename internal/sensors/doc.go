// Package sensors provides an HTTP client for the environmental sensor backend.
//
// # Overview
//
// The Client is the data fetch gateway used by the sync controller. It is
// stateless: every call is one or two HTTP round trips, decoded into typed
// values, with failures normalized into a small set of error types.
//
// # Architecture
//
//   - client.go: Gateway interface, Client, request plumbing
//   - types.go: sensor types, records, stats, query and result values
//   - errors.go: NetworkError, StatusError, MalformedError, ValidationError
//
// # Client Usage
//
//	client, err := sensors.NewClient("http://localhost:8000/api",
//		sensors.WithSession(session),
//	)
//	if err != nil {
//		return err
//	}
//
//	win, err := client.FetchWindow(ctx, sensors.Air, sensors.WindowQuery{
//		DaysBack:    30,
//		RecordLimit: 500,
//	})
//
// # API Endpoints
//
//   - GET /sensors/{type}/data: records, by days_back+limit or date_from+date_to
//   - GET /sensors/{type}/stats: backend aggregates per metric
//   - GET /sensors/{type}/check-new-data: cheap existence check since last_check
//   - GET /sensors/available-dates: stored span per sensor type
//   - DELETE /sensors/{type}/clear
//   - POST /sensors/{type}/upload-csv (multipart, field "file")
//   - POST /sensors/{type}/generate-preview
//   - POST /sensors/{type}/save-generated
//
// # Full Fetch Semantics
//
// FetchWindow issues the data and stats requests concurrently. With a date
// range the data request asks for RangeFetchLimit records (everything in the
// range); truncation to the display limit is the caller's job. Without a
// date range the record limit is sent to the server unchanged.
//
// Stats are computed by the backend and may cover more records than the data
// request returned. They are never recomputed from records.
//
// # Record Decoding
//
// The backend stores flat documents. Record.UnmarshalJSON takes the time from
// "time" or "timestamp", the sensor name from "sensor_name", "device_name" or
// "sensor_nombre", and every other numeric field as a metric. Fields starting
// with an underscore and non-numeric fields are dropped. Timestamps keep the
// offset they arrive with.
//
// # Error Handling
//
//   - *NetworkError: no response (connection refused, timeout, cancelled)
//   - *StatusError: non-2xx response; Error() returns the server detail when
//     one was sent, so it can be shown verbatim
//   - *MalformedError: undecodable body or missing required field
//   - *ValidationError: precondition failed, nothing was sent
//
// Use errors.As to tell them apart.
//
// # Authentication
//
// A Session supplies the bearer token attached to every request. A 401
// response calls Session.Invalidate before the StatusError is returned; what
// happens next (re-login, exit) belongs to the session owner.
package sensors
