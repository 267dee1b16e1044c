// Package config loads the sensorwatch TOML configuration.
//
// # Configuration Discovery
//
//  1. If a path is explicitly provided, use it
//  2. Otherwise, use ~/.config/sensorwatch/config.toml
//  3. If the file doesn't exist, use defaults
//  4. Empty fields keep their defaults
//
// # TOML Format
//
//	api_url = "http://localhost:8000/api"
//	request_timeout = "10s"
//	sensor = "air"            # air, sound or underground
//	days_back = 30            # 1..365
//	log_file = "~/.local/state/sensorwatch/sensorwatch.log"
//	log_level = "info"
//	metrics_addr = ""         # e.g. "127.0.0.1:9108" to serve /metrics
//	session_file = "~/.config/sensorwatch/session.toml"
//
// Tilde expansion is applied to log_file and session_file. Invalid values for
// sensor, days_back or request_timeout are errors rather than silent
// defaults.
//
// Missing config files are not an error, so sensorwatch runs against a local
// backend without any setup.
package config
