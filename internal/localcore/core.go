// Package localcore is an in-process implementation of the core-service
// command set over a SQLite workspace file. It backs the gateway when no
// remote endpoint is configured, and gives the test suite a real target.
// Every operation speaks the same wire shapes and error codes as the
// remote service.
package localcore

import (
	"database/sql"
	"sync"

	"github.com/tildaslashalef/incidentdeck/internal/config"
	"github.com/tildaslashalef/incidentdeck/internal/loggy"
)

// Core holds the active workspace database and the persisted session
// record. SQLite allows one writer, so all operations serialize on mu.
type Core struct {
	cfg    *config.Config
	logger *loggy.Logger
	ollama *OllamaClient

	mu     sync.Mutex
	db     *sql.DB
	dbPath string
	state  *sessionState
}

// New creates a local core. No database is opened until a workspace
// operation runs.
func New(cfg *config.Config, logger *loggy.Logger) (*Core, error) {
	state, err := loadSessionState(cfg.Workspace.StatePath, cfg.Workspace.MaxRecent)
	if err != nil {
		// Session metadata is advisory; start fresh rather than refuse.
		logger.Warn("Failed to load session state, starting empty", "error", err)
		state = newSessionState(cfg.Workspace.StatePath, cfg.Workspace.MaxRecent)
	}

	return &Core{
		cfg:    cfg,
		logger: logger,
		ollama: NewOllamaClient(cfg.Ollama, logger),
		state:  state,
	}, nil
}

// Close releases the active workspace database, if any.
func (c *Core) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.db == nil {
		return nil
	}
	err := c.db.Close()
	c.db = nil
	c.dbPath = ""
	return err
}

// activeDB returns the open workspace database or an error the client
// understands.
func (c *Core) activeDB() (*sql.DB, error) {
	if c.db == nil {
		return nil, errNoWorkspace()
	}
	return c.db, nil
}
