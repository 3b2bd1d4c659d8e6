package localcore

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite3"
	_ "github.com/mattn/go-sqlite3"

	"github.com/tildaslashalef/incidentdeck/internal/config"
	"github.com/tildaslashalef/incidentdeck/internal/gateway"
	"github.com/tildaslashalef/incidentdeck/internal/migrations"
)

// buildSQLiteDSN builds a SQLite DSN with the configured pragmas.
func buildSQLiteDSN(path string, cfg *config.DatabaseConfig) string {
	if path == ":memory:" || strings.HasPrefix(path, "file::memory:") {
		return path
	}

	params := url.Values{}
	params.Add("_busy_timeout", strconv.Itoa(cfg.BusyTimeout))
	params.Add("_journal_mode", cfg.JournalMode)
	params.Add("_synchronous", cfg.SynchronousMode)
	params.Add("_foreign_keys", strconv.FormatBool(cfg.ForeignKeys))
	params.Add("cache", "shared")

	return fmt.Sprintf("%s?%s", path, params.Encode())
}

// openDatabase opens the SQLite file at path and verifies the connection.
func (c *Core) openDatabase(path string) (*sql.DB, error) {
	// Register the vector extension for every subsequent connection.
	// Vector search degrades gracefully when the extension is absent.
	sqlite_vec.Auto()

	db, err := sql.Open("sqlite3", buildSQLiteDSN(path, &c.cfg.Database))
	if err != nil {
		return nil, errOpenFailed(err)
	}

	// SQLite supports only one writer at a time
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		if strings.Contains(err.Error(), "locked") {
			return nil, errLocked(err)
		}
		return nil, errOpenFailed(err)
	}

	c.probeVectorExtension(db)
	return db, nil
}

func (c *Core) probeVectorExtension(db *sql.DB) {
	var version string
	if err := db.QueryRow("SELECT vec_version()").Scan(&version); err != nil {
		c.logger.Warn("sqlite-vec extension not available, evidence search will not use vectors", "error", err)
		return
	}
	c.logger.Debug("sqlite-vec extension loaded", "version", version)
}

// runMigrations applies all pending embedded migrations to db.
func (c *Core) runMigrations(db *sql.DB) error {
	src, err := migrations.GetSource()
	if err != nil {
		return errMigrationFailed(err)
	}

	driver, err := migratesqlite.WithInstance(db, &migratesqlite.Config{})
	if err != nil {
		return errMigrationFailed(err)
	}

	m, err := migrate.NewWithInstance("iofs", src, "sqlite3", driver)
	if err != nil {
		return errMigrationFailed(err)
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return errMigrationFailed(err)
	}

	version, dirty, err := m.Version()
	if err != nil && err != migrate.ErrNilVersion {
		return errMigrationFailed(err)
	}
	c.logger.Info("Workspace migrations applied", "version", version, "dirty", dirty)
	return nil
}

// migrationStatus computes applied and pending migration names for the
// database at path without applying anything. The file must exist.
func (c *Core) migrationStatus(path string) (*gateway.MigrationStatus, error) {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, errDBNotFound(path)
		}
		return nil, errOpenFailed(err)
	}

	db, err := c.openDatabase(path)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	names, err := migrations.Names()
	if err != nil {
		return nil, errMigrationFailed(err)
	}
	latest, err := migrations.Latest()
	if err != nil {
		return nil, errMigrationFailed(err)
	}

	applied := appliedVersion(db)

	status := &gateway.MigrationStatus{
		LatestKnown: latest,
		Applied:     []string{},
		Pending:     []string{},
	}
	for i, name := range names {
		if uint(i+1) <= applied {
			status.Applied = append(status.Applied, name)
		} else {
			status.Pending = append(status.Pending, name)
		}
	}
	return status, nil
}

// appliedVersion reads the schema_migrations version; a missing table
// means nothing has been applied yet.
func appliedVersion(db *sql.DB) uint {
	var version uint
	var dirty bool
	err := db.QueryRow("SELECT version, dirty FROM schema_migrations LIMIT 1").Scan(&version, &dirty)
	if err != nil || dirty {
		return 0
	}
	return version
}

// ensureDir creates the parent directory of path if needed.
func ensureDir(path string) error {
	return os.MkdirAll(filepath.Dir(path), 0o755)
}
