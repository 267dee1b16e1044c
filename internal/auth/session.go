// Package auth persists the operator session: bearer token, identity and the
// offline flag set by an offline demo login.
package auth

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	toml "github.com/pelletier/go-toml/v2"
)

const defaultSessionPath = "~/.config/sensorwatch/session.toml"

// Data is the on-disk session record.
type Data struct {
	Token   string `toml:"token"`
	Email   string `toml:"email"`
	Role    string `toml:"role"`
	Offline bool   `toml:"offline"`
}

// Session is a file-backed session. It satisfies sensors.Session.
type Session struct {
	path string

	mu   sync.RWMutex
	data Data
}

// DefaultPath returns the default session file path.
func DefaultPath() string {
	return defaultSessionPath
}

// Load reads the session at path. A missing file yields an empty session.
func Load(path string) (*Session, error) {
	resolved, err := resolvePath(path)
	if err != nil {
		return nil, err
	}
	s := &Session{path: resolved}
	raw, err := os.ReadFile(resolved)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return s, nil
		}
		return nil, fmt.Errorf("read session: %w", err)
	}
	if err := toml.Unmarshal(raw, &s.data); err != nil {
		return nil, fmt.Errorf("parse session: %w", err)
	}
	s.data.Token = strings.TrimSpace(s.data.Token)
	return s, nil
}

// Token returns the bearer token, empty when logged out.
func (s *Session) Token() string {
	if s == nil {
		return ""
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data.Token
}

// Offline reports whether the session was established without a backend.
func (s *Session) Offline() bool {
	if s == nil {
		return false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data.Offline
}

// Data returns a copy of the session record.
func (s *Session) Data() Data {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data
}

// Set replaces the session record and persists it.
func (s *Session) Set(d Data) error {
	s.mu.Lock()
	s.data = d
	s.mu.Unlock()
	return s.save()
}

// Invalidate drops the credentials after the backend rejected them. The
// offline flag goes with them.
func (s *Session) Invalidate() {
	if s == nil {
		return
	}
	s.mu.Lock()
	s.data = Data{}
	s.mu.Unlock()
	_ = s.save()
}

func (s *Session) save() error {
	s.mu.RLock()
	data := s.data
	s.mu.RUnlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}
	raw, err := toml.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	if err := os.WriteFile(s.path, raw, 0o600); err != nil {
		return fmt.Errorf("write session: %w", err)
	}
	return nil
}

func resolvePath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		trimmed = defaultSessionPath
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
