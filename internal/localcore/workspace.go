package localcore

import (
	"context"
	"os"

	"github.com/tildaslashalef/incidentdeck/internal/gateway"
)

// GetCurrentSession returns the persisted session record.
func (c *Core) GetCurrentSession(_ context.Context) (*gateway.SessionInfo, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return &gateway.SessionInfo{
		CurrentPath: c.state.CurrentPath,
		RecentPaths: append([]string(nil), c.state.RecentPaths...),
	}, nil
}

// MigrationStatus reports applied and pending migrations for the
// workspace at path without modifying it.
func (c *Core) MigrationStatus(_ context.Context, path string) (*gateway.MigrationStatus, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.migrationStatus(path)
}

// OpenWorkspace opens the existing workspace database at path, applying
// any pending migrations, and makes it the active workspace.
func (c *Core) OpenWorkspace(_ context.Context, path string) (*gateway.WorkspaceMeta, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, errDBNotFound(path)
		}
		return nil, errOpenFailed(err)
	}
	return c.activate(path)
}

// CreateWorkspace creates a new workspace database at path and makes it
// the active workspace.
func (c *Core) CreateWorkspace(_ context.Context, path string) (*gateway.WorkspaceMeta, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := ensureDir(path); err != nil {
		return nil, errCreateFailed(err)
	}
	return c.activate(path)
}

// InitDB creates or opens the default workspace database.
func (c *Core) InitDB(_ context.Context) (*gateway.InitDBResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	path := c.cfg.Workspace.DefaultPath
	if err := ensureDir(path); err != nil {
		return nil, errCreateFailed(err)
	}
	meta, err := c.activate(path)
	if err != nil {
		return nil, err
	}
	return &gateway.InitDBResult{DBPath: meta.DBPath}, nil
}

// activate opens path, migrates it, swaps it in as the active workspace
// and records the switch in the session state. Callers hold mu.
func (c *Core) activate(path string) (*gateway.WorkspaceMeta, error) {
	db, err := c.openDatabase(path)
	if err != nil {
		return nil, err
	}
	if err := c.runMigrations(db); err != nil {
		db.Close()
		return nil, err
	}

	if c.db != nil {
		c.db.Close()
	}
	c.db = db
	c.dbPath = path

	if err := c.state.record(path); err != nil {
		c.logger.Warn("Failed to persist session state", "error", err)
	}

	var incidents int64
	if err := db.QueryRow("SELECT COUNT(*) FROM incidents").Scan(&incidents); err != nil {
		return nil, errQueryFailed("WORKSPACE_QUERY_FAILED", err)
	}

	c.logger.Info("Workspace activated", "path", path, "incidents", incidents)
	return &gateway.WorkspaceMeta{DBPath: path, IsEmpty: incidents == 0}, nil
}
