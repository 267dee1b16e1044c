// Package app is the composition root for sensorwatch.
//
// Run loads configuration, preferences and the session, builds the sensors
// client and the sync controller, and then blocks in the Bubble Tea
// dashboard until the user quits or the context is cancelled.
//
//	Run()
//	  ├─> config.Load()          startup settings, -sensor override
//	  ├─> logging.New()          zap logger writing to the log file
//	  ├─> prefs.Load()           theme, auto refresh, interval, record limit
//	  ├─> auth.Load()            bearer token and offline flag
//	  ├─> sensors.NewClient()    backend gateway
//	  ├─> controller.New/Start() fetch and poll lifecycle
//	  ├─> serveMetrics()         optional, when metrics_addr is set
//	  └─> ui.Run()               dashboard (blocks)
//
// The controller signals changes on a coalescing channel; forwardUpdates
// relays each signal to the program as ui.ChangedMsg so the dashboard
// re-reads the snapshot.
//
// Everything started here runs in one errgroup. Quitting the UI cancels the
// group, which stops the metrics listener; a metrics listener failure
// cancels the group and takes the UI down with it.
//
// Configuration and session errors are fatal at startup. Once running, no
// backend failure stops the program: the controller turns them into notices
// or log lines.
package app
