package localcore

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tildaslashalef/incidentdeck/internal/config"
	"github.com/tildaslashalef/incidentdeck/internal/loggy"
	"github.com/tildaslashalef/incidentdeck/internal/ulid"
)

// newTestCore creates a core rooted in a temp directory with an
// activated workspace.
func newTestCore(t *testing.T) (*Core, string) {
	t.Helper()

	dir := t.TempDir()
	cfg := config.New()
	cfg.Workspace.DefaultPath = filepath.Join(dir, "workspace.sqlite")
	cfg.Workspace.StatePath = filepath.Join(dir, "session.json")

	core, err := New(cfg, loggy.NewNoopLogger())
	require.NoError(t, err)
	t.Cleanup(func() { core.Close() })

	_, err = core.InitDB(context.Background())
	require.NoError(t, err)
	return core, dir
}

// seedIncident inserts an incident with a resolved lifecycle and one
// timeline event, returning the incident id.
func seedIncident(t *testing.T, core *Core, title string) string {
	t.Helper()

	now := time.Now().UTC()
	id := ulid.IncidentID()
	_, err := core.db.Exec(
		`INSERT INTO incidents
		   (id, external_id, fingerprint, title, severity, service, start_ts, ack_ts, resolve_ts, created_at, updated_at)
		 VALUES (?, ?, ?, ?, 'sev2', 'checkout', ?, ?, ?, ?, ?)`,
		id, "INC-100", id, title,
		now.Add(-90*time.Minute).Format(time.RFC3339),
		now.Add(-80*time.Minute).Format(time.RFC3339),
		now.Add(-30*time.Minute).Format(time.RFC3339),
		now.Format(time.RFC3339), now.Format(time.RFC3339),
	)
	require.NoError(t, err)

	_, err = core.db.Exec(
		"INSERT INTO timeline_events (id, incident_id, source, ts, kind, text, created_at) VALUES (?, ?, 'slack', ?, 'message', 'db is down', ?)",
		ulid.EventID(), id, now.Add(-85*time.Minute).Format(time.RFC3339), now.Format(time.RFC3339),
	)
	require.NoError(t, err)
	return id
}
