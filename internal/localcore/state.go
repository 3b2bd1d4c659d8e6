package localcore

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// sessionState is the persisted session record: which workspace is
// current and which were used recently. Stored as a small JSON file next
// to the config, most-recent-first, deduplicated.
type sessionState struct {
	path      string
	maxRecent int

	CurrentPath string   `json:"current_path"`
	RecentPaths []string `json:"recent_paths"`
}

func newSessionState(path string, maxRecent int) *sessionState {
	return &sessionState{path: path, maxRecent: maxRecent}
}

func loadSessionState(path string, maxRecent int) (*sessionState, error) {
	state := newSessionState(path, maxRecent)

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return state, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read session state: %w", err)
	}
	if err := json.Unmarshal(data, state); err != nil {
		return nil, fmt.Errorf("failed to decode session state: %w", err)
	}
	return state, nil
}

// record marks path as current and promotes it to the front of the
// recents, then persists. Persistence failures are returned so the
// caller can log them; the in-memory record is already updated.
func (s *sessionState) record(path string) error {
	s.CurrentPath = path

	recents := []string{path}
	for _, p := range s.RecentPaths {
		if p == path {
			continue
		}
		recents = append(recents, p)
		if len(recents) >= s.maxRecent {
			break
		}
	}
	s.RecentPaths = recents

	return s.save()
}

func (s *sessionState) save() error {
	if s.path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("failed to create session state directory: %w", err)
	}

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode session state: %w", err)
	}
	return os.WriteFile(s.path, data, 0o644)
}
