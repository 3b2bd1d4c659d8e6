// Package session owns the in-process state tied to the active
// workspace: the session record (current path, recents), the
// workspace-scoped view state, and the switch orchestrator that moves
// between workspaces safely.
package session

import (
	"context"
	"sync"

	"github.com/tildaslashalef/incidentdeck/internal/gateway"
	"github.com/tildaslashalef/incidentdeck/internal/loggy"
)

// WorkspaceSession identifies the active workspace database.
type WorkspaceSession struct {
	// CurrentPath is never empty once a workspace has been opened.
	CurrentPath string

	// RecentPaths is most-recent-first and deduplicated; advisory only,
	// used to populate the workspace picker.
	RecentPaths []string

	// LoadError is a non-fatal condition from loading session metadata.
	// It does not block operation.
	LoadError *gateway.CommandError
}

// Store is the single owner of the WorkspaceSession record. It is
// mutated only by a successful open/create/switch, never by failed
// attempts.
type Store struct {
	mu      sync.Mutex
	session WorkspaceSession
}

// NewStore creates an empty session store
func NewStore() *Store {
	return &Store{}
}

// Load populates the store from the core service at process start. A
// failure is recorded as LoadError rather than returned; starting
// without session metadata is degraded, not broken.
func (s *Store) Load(ctx context.Context, client *gateway.Client, logger *loggy.Logger) {
	info, err := client.GetCurrentSession(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		logger.Warn("Failed to load session info", "error", err)
		s.session.LoadError = gateway.Normalize(err)
		return
	}
	s.session.CurrentPath = info.CurrentPath
	s.session.RecentPaths = append([]string(nil), info.RecentPaths...)
	s.session.LoadError = nil
}

// Current returns a copy of the session record.
func (s *Store) Current() WorkspaceSession {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.session
	out.RecentPaths = append([]string(nil), s.session.RecentPaths...)
	return out
}

// Commit records a successful workspace change. The recents list is
// refreshed separately via Refresh once the core service has been
// re-queried.
func (s *Store) Commit(currentPath string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.session.CurrentPath = currentPath
	s.session.LoadError = nil
}

// Refresh replaces the session record with freshly queried info.
func (s *Store) Refresh(info *gateway.SessionInfo) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.session.CurrentPath = info.CurrentPath
	s.session.RecentPaths = append([]string(nil), info.RecentPaths...)
	s.session.LoadError = nil
}
