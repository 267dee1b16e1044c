package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"

	"github.com/gamc/sensorwatch/internal/sensors"
	"github.com/gamc/sensorwatch/internal/state"
)

// Config holds the sensorwatch startup settings.
type Config struct {
	APIURL         string
	RequestTimeout time.Duration
	Sensor         sensors.Type
	DaysBack       int
	LogFile        string
	LogLevel       string
	MetricsAddr    string
	SessionFile    string
}

const (
	defaultConfigPath     = "~/.config/sensorwatch/config.toml"
	defaultAPIURL         = "http://localhost:8000/api"
	defaultRequestTimeout = 10 * time.Second
	defaultLogFile        = "~/.local/state/sensorwatch/sensorwatch.log"
	defaultLogLevel       = "info"
	defaultSessionFile    = "~/.config/sensorwatch/session.toml"
)

// Default returns the configuration used when no file exists.
func Default() Config {
	return Config{
		APIURL:         defaultAPIURL,
		RequestTimeout: defaultRequestTimeout,
		Sensor:         state.DefaultSensor,
		DaysBack:       state.DefaultDaysBack,
		LogFile:        mustExpand(defaultLogFile),
		LogLevel:       defaultLogLevel,
		SessionFile:    mustExpand(defaultSessionFile),
	}
}

// Load locates and parses the config file, falling back to defaults when missing.
func Load(path string) (Config, error) {
	resolved, err := resolvePath(path)
	if err != nil {
		return Config{}, err
	}

	cfg := Default()

	file, err := os.Open(resolved)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	bytes, err := io.ReadAll(file)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	var raw struct {
		APIURL         string `toml:"api_url"`
		RequestTimeout string `toml:"request_timeout"`
		Sensor         string `toml:"sensor"`
		DaysBack       int    `toml:"days_back"`
		LogFile        string `toml:"log_file"`
		LogLevel       string `toml:"log_level"`
		MetricsAddr    string `toml:"metrics_addr"`
		SessionFile    string `toml:"session_file"`
	}
	if err := toml.Unmarshal(bytes, &raw); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}

	if v := strings.TrimSpace(raw.APIURL); v != "" {
		cfg.APIURL = v
	}
	if v := strings.TrimSpace(raw.RequestTimeout); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return Config{}, fmt.Errorf("parse config: invalid request_timeout %q", v)
		}
		cfg.RequestTimeout = d
	}
	if v := strings.TrimSpace(raw.Sensor); v != "" {
		t, err := sensors.ParseType(v)
		if err != nil {
			return Config{}, fmt.Errorf("parse config: %w", err)
		}
		cfg.Sensor = t
	}
	if raw.DaysBack != 0 {
		if raw.DaysBack < 1 || raw.DaysBack > state.MaxDaysBack {
			return Config{}, fmt.Errorf("parse config: days_back must be between 1 and %d", state.MaxDaysBack)
		}
		cfg.DaysBack = raw.DaysBack
	}
	if v := strings.TrimSpace(raw.LogFile); v != "" {
		cfg.LogFile = mustExpand(v)
	}
	if v := strings.TrimSpace(raw.LogLevel); v != "" {
		cfg.LogLevel = strings.ToLower(v)
	}
	cfg.MetricsAddr = strings.TrimSpace(raw.MetricsAddr)
	if v := strings.TrimSpace(raw.SessionFile); v != "" {
		cfg.SessionFile = mustExpand(v)
	}

	return cfg, nil
}

// Filter returns the initial selection described by c.
func (c Config) Filter() state.Filter {
	f := state.DefaultFilter()
	if c.Sensor.Valid() {
		f.Sensor = c.Sensor
	}
	if c.DaysBack >= 1 && c.DaysBack <= state.MaxDaysBack {
		f.DaysBack = c.DaysBack
	}
	return f
}

func resolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return expandPath(defaultConfigPath)
	}
	return expandPath(path)
}

func mustExpand(path string) string {
	expanded, err := expandPath(path)
	if err != nil {
		return path
	}
	return expanded
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("path is empty")
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}
