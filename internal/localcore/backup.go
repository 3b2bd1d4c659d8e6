package localcore

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/goombaio/namegenerator"

	"github.com/tildaslashalef/incidentdeck/internal/gateway"
	"github.com/tildaslashalef/incidentdeck/internal/migrations"
)

const (
	backupManifestVersion = 1
	backupManifestName    = "manifest.json"
	backupDBName          = "incidentreview.sqlite"
)

// appVersion is recorded in manifests so a restore can warn across versions.
const appVersion = "0.4.0"

// CreateBackup snapshots a workspace into a new directory under
// destinationDir and writes a manifest describing it. An empty sourcePath
// snapshots the active workspace; a set one snapshots the database file
// at that path over a side connection, so a guarded switch can back up
// its target before opening it. The snapshot uses VACUUM INTO, so it is
// consistent even with the workspace open.
func (c *Core) CreateBackup(ctx context.Context, destinationDir, sourcePath string) (*gateway.BackupCreateResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var db *sql.DB
	if sourcePath == "" || sourcePath == c.dbPath {
		active, err := c.activeDB()
		if err != nil {
			return nil, err
		}
		db = active
	} else {
		if _, err := os.Stat(sourcePath); err != nil {
			if os.IsNotExist(err) {
				return nil, errDBNotFound(sourcePath)
			}
			return nil, errOpenFailed(err)
		}
		side, err := c.openDatabase(sourcePath)
		if err != nil {
			return nil, err
		}
		defer side.Close()
		db = side
	}

	now := time.Now().UTC()
	gen := namegenerator.NewNameGenerator(now.UnixNano())
	backupDir := filepath.Join(destinationDir, fmt.Sprintf("backup-%s-%s", now.Format("20060102-150405"), gen.Generate()))
	if err := os.MkdirAll(backupDir, 0o755); err != nil {
		return nil, gateway.NewCommandError("DB_BACKUP_MKDIR_FAILED", "Failed to create backup directory").
			WithDetails(err.Error())
	}

	dbCopy := filepath.Join(backupDir, backupDBName)
	if _, err := db.ExecContext(ctx, "VACUUM INTO ?", dbCopy); err != nil {
		return nil, gateway.NewCommandError("DB_BACKUP_DB_SNAPSHOT_FAILED", "Failed to snapshot workspace database").
			WithDetails(err.Error())
	}

	fileInfo, err := hashFile(dbCopy)
	if err != nil {
		return nil, gateway.NewCommandError("DB_BACKUP_FILE_READ_FAILED", "Failed to hash backup file").
			WithDetails(err.Error())
	}

	counts, err := rowCounts(ctx, db)
	if err != nil {
		return nil, err
	}
	names, err := migrations.Names()
	if err != nil {
		return nil, gateway.NewCommandError("DB_BACKUP_MIGRATIONS_QUERY_FAILED", "Failed to list migrations").
			WithDetails(err.Error())
	}
	// Record only what the snapshotted file has applied; a behind
	// workspace backed up before migrating keeps its true schema level.
	version := appliedVersion(db)
	if int(version) > len(names) {
		version = uint(len(names))
	}
	applied := names[:version]

	manifest := gateway.BackupManifest{
		ManifestVersion:  backupManifestVersion,
		AppVersion:       appVersion,
		ExportTime:       now.Format(time.RFC3339),
		SchemaMigrations: applied,
		Counts:           counts,
		DB:               fileInfo,
	}
	if err := writeManifest(filepath.Join(backupDir, backupManifestName), manifest); err != nil {
		return nil, err
	}

	c.logger.Info("Backup created", "dir", backupDir, "incidents", counts.Incidents)
	return &gateway.BackupCreateResult{BackupDir: backupDir, Manifest: manifest}, nil
}

// InspectBackup reads and verifies a backup manifest without mutating
// anything, in the active workspace or the backup.
func (c *Core) InspectBackup(_ context.Context, backupDir string) (*gateway.BackupManifest, error) {
	manifest, err := readBackupManifest(backupDir)
	if err != nil {
		return nil, err
	}

	// The hash check runs at inspect time too, so a corrupt backup is
	// reported before the user is ever offered a commit.
	if err := verifyBackupFile(backupDir, manifest.DB); err != nil {
		return nil, err
	}
	return manifest, nil
}

// RestoreFromBackup overwrites the active workspace database with the
// backup's. The overwrite requires allowOverwrite when a database already
// exists at the target; without it the operation fails with
// DB_RESTORE_CONFIRM_REQUIRED and changes nothing.
func (c *Core) RestoreFromBackup(_ context.Context, backupDir string, allowOverwrite bool) (*gateway.RestoreResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	manifest, err := readBackupManifest(backupDir)
	if err != nil {
		return nil, err
	}
	if err := verifyBackupFile(backupDir, manifest.DB); err != nil {
		return nil, err
	}

	targetPath := c.dbPath
	if targetPath == "" {
		targetPath = c.cfg.Workspace.DefaultPath
	}
	if _, err := os.Stat(targetPath); err == nil && !allowOverwrite {
		return nil, gateway.NewCommandError("DB_RESTORE_CONFIRM_REQUIRED", "Restore would overwrite an existing workspace database")
	}

	// Stage next to the target, then rename into place, so a failed copy
	// never leaves a half-written workspace.
	staged := targetPath + ".restore-staging"
	if err := copyFile(filepath.Join(backupDir, manifest.DB.Filename), staged); err != nil {
		return nil, gateway.NewCommandError("DB_RESTORE_COPY_FAILED", "Failed to stage restore file").
			WithDetails(err.Error())
	}

	if c.db != nil {
		c.db.Close()
		c.db = nil
	}
	if err := os.Rename(staged, targetPath); err != nil {
		os.Remove(staged)
		return nil, gateway.NewCommandError("DB_RESTORE_SWAP_FAILED", "Failed to move restored database into place").
			WithDetails(err.Error())
	}

	if _, err := c.activate(targetPath); err != nil {
		return nil, err
	}

	c.logger.Info("Workspace restored from backup", "backup_dir", backupDir, "db_path", targetPath)
	return &gateway.RestoreResult{DBPath: targetPath, Counts: manifest.Counts}, nil
}

func rowCounts(ctx context.Context, db *sql.DB) (gateway.BackupCounts, error) {
	var counts gateway.BackupCounts
	err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM incidents").Scan(&counts.Incidents)
	if err != nil {
		return counts, gateway.NewCommandError("DB_BACKUP_COUNTS_FAILED", "Failed to count incidents").
			WithDetails(err.Error())
	}
	err = db.QueryRowContext(ctx, "SELECT COUNT(*) FROM timeline_events").Scan(&counts.TimelineEvents)
	if err != nil {
		return counts, gateway.NewCommandError("DB_BACKUP_COUNTS_FAILED", "Failed to count timeline events").
			WithDetails(err.Error())
	}
	return counts, nil
}

func readBackupManifest(backupDir string) (*gateway.BackupManifest, error) {
	data, err := os.ReadFile(filepath.Join(backupDir, backupManifestName))
	if err != nil {
		return nil, gateway.NewCommandError("DB_RESTORE_MANIFEST_READ_FAILED", "Failed to read backup manifest").
			WithDetails(err.Error())
	}
	var manifest gateway.BackupManifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		return nil, gateway.NewCommandError("DB_RESTORE_MANIFEST_DECODE_FAILED", "Failed to decode backup manifest").
			WithDetails(err.Error())
	}
	if manifest.ManifestVersion != backupManifestVersion {
		return nil, gateway.NewCommandError("DB_RESTORE_MANIFEST_VERSION_MISMATCH", "Unsupported backup manifest version").
			WithDetails(fmt.Sprintf("got %d, want %d", manifest.ManifestVersion, backupManifestVersion))
	}
	return &manifest, nil
}

func verifyBackupFile(backupDir string, want gateway.BackupFileInfo) error {
	got, err := hashFile(filepath.Join(backupDir, want.Filename))
	if err != nil {
		return gateway.NewCommandError("DB_RESTORE_FILE_READ_FAILED", "Failed to read backup database file").
			WithDetails(err.Error())
	}
	if got.SHA256 != want.SHA256 || got.Bytes != want.Bytes {
		return gateway.NewCommandError("DB_RESTORE_HASH_MISMATCH", "Backup database file does not match its manifest").
			WithDetails(fmt.Sprintf("file %s", want.Filename))
	}
	return nil
}

// hashFile returns filename, sha256 and size for the file at path.
func hashFile(path string) (gateway.BackupFileInfo, error) {
	f, err := os.Open(path)
	if err != nil {
		return gateway.BackupFileInfo{}, err
	}
	defer f.Close()

	h := sha256.New()
	n, err := io.Copy(h, f)
	if err != nil {
		return gateway.BackupFileInfo{}, err
	}
	return gateway.BackupFileInfo{
		Filename: filepath.Base(path),
		SHA256:   hex.EncodeToString(h.Sum(nil)),
		Bytes:    n,
	}, nil
}

func writeManifest(path string, manifest any) error {
	data, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return gateway.NewCommandError("DB_BACKUP_MANIFEST_ENCODE_FAILED", "Failed to encode manifest").
			WithDetails(err.Error())
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return gateway.NewCommandError("DB_BACKUP_MANIFEST_WRITE_FAILED", "Failed to write manifest").
			WithDetails(err.Error())
	}
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
