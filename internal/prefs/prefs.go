// Package prefs persists sensorwatch display preferences.
// Preferences are stored in ~/.config/sensorwatch/prefs.toml.
package prefs

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"

	"github.com/gamc/sensorwatch/internal/state"
)

// Prefs holds user preferences.
type Prefs struct {
	Theme          string `toml:"theme"`
	AutoRefresh    bool   `toml:"auto_refresh"`
	RefreshSeconds int    `toml:"refresh_interval"`
	RecordLimit    int    `toml:"record_limit"`
}

const (
	defaultPrefsPath = "~/.config/sensorwatch/prefs.toml"
	defaultTheme     = "Nightfox"

	DefaultRefreshSeconds = 10
	MinRefreshSeconds     = 2
	MaxRefreshSeconds     = 30
)

// Default returns the preferences used when none are stored.
func Default() Prefs {
	return Prefs{
		Theme:          defaultTheme,
		AutoRefresh:    true,
		RefreshSeconds: DefaultRefreshSeconds,
		RecordLimit:    state.DefaultRecordLimit,
	}
}

// DefaultPath returns the default preferences file path.
func DefaultPath() string {
	return defaultPrefsPath
}

// RefreshInterval returns the poll period.
func (p Prefs) RefreshInterval() time.Duration {
	return time.Duration(p.RefreshSeconds) * time.Second
}

// Normalize clamps the refresh interval and resets unknown values.
func (p Prefs) Normalize() Prefs {
	if strings.TrimSpace(p.Theme) == "" {
		p.Theme = defaultTheme
	}
	p.RefreshSeconds = ClampRefresh(p.RefreshSeconds)
	if !slices.Contains(state.RecordLimits, p.RecordLimit) {
		p.RecordLimit = state.DefaultRecordLimit
	}
	return p
}

// ClampRefresh bounds a refresh interval in seconds. Zero means the default.
func ClampRefresh(seconds int) int {
	switch {
	case seconds == 0:
		return DefaultRefreshSeconds
	case seconds < MinRefreshSeconds:
		return MinRefreshSeconds
	case seconds > MaxRefreshSeconds:
		return MaxRefreshSeconds
	default:
		return seconds
	}
}

// Load reads preferences from the given path, falling back to defaults if missing.
func Load(path string) (Prefs, error) {
	prefs := Default()

	resolved, err := resolvePath(path)
	if err != nil {
		return prefs, nil
	}

	file, err := os.Open(resolved)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return prefs, nil
		}
		return prefs, nil // Graceful degradation
	}
	defer func() { _ = file.Close() }()

	bytes, err := io.ReadAll(file)
	if err != nil {
		return prefs, nil // Graceful degradation
	}

	if err := toml.Unmarshal(bytes, &prefs); err != nil {
		return Default(), nil // Graceful degradation
	}

	return prefs.Normalize(), nil
}

// Save writes preferences to the given path, creating directories as needed.
func Save(path string, p Prefs) error {
	resolved, err := resolvePath(path)
	if err != nil {
		return fmt.Errorf("resolve path: %w", err)
	}

	dir := filepath.Dir(resolved)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create prefs dir: %w", err)
	}

	bytes, err := toml.Marshal(p.Normalize())
	if err != nil {
		return fmt.Errorf("marshal prefs: %w", err)
	}

	if err := os.WriteFile(resolved, bytes, 0o644); err != nil {
		return fmt.Errorf("write prefs: %w", err)
	}

	return nil
}

func resolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return expandPath(defaultPrefsPath)
	}
	return expandPath(path)
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
