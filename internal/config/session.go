package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Session is the per-device work context: which activity/cycle the
// operator has loaded, plus the crew metadata the bulletin form
// pre-fills. It replaces the ambient globals of earlier clients with an
// explicit object owned by the application shell.
type Session struct {
	ActivityID string `json:"activity_id"`
	Cycle      string `json:"cycle"`
	Vehicle    string `json:"vehicle,omitempty"`
	Product    string `json:"product,omitempty"`
	Areas      []int  `json:"areas,omitempty"`
}

// LoadSession reads the session file. A missing file yields a nil
// session and no error: no activity loaded yet.
func LoadSession(path string) (*Session, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read session: %w", err)
	}

	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to parse session file %s: %w", path, err)
	}

	return &s, nil
}

// SaveSession writes the session file, creating the directory if needed.
func SaveSession(path string, s *Session) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create session directory: %w", err)
	}

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	// Write-then-rename so a crash never leaves a torn session file.
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write session: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to replace session: %w", err)
	}

	return nil
}

// ClearSession removes the session file. Idempotent.
func ClearSession(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	return nil
}
