package localcore

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tildaslashalef/incidentdeck/internal/config"
	"github.com/tildaslashalef/incidentdeck/internal/gateway"
	"github.com/tildaslashalef/incidentdeck/internal/loggy"
)

func TestInitDBCreatesEmptyWorkspace(t *testing.T) {
	core, _ := newTestCore(t)

	meta, err := core.OpenWorkspace(context.Background(), core.cfg.Workspace.DefaultPath)
	require.NoError(t, err)
	assert.True(t, meta.IsEmpty)
}

func TestMigrationStatusMissingFile(t *testing.T) {
	core, dir := newTestCore(t)

	_, err := core.MigrationStatus(context.Background(), filepath.Join(dir, "nope.sqlite"))
	require.Error(t, err)
	assert.True(t, gateway.IsCode(err, "WORKSPACE_DB_NOT_FOUND"))
}

func TestMigrationStatusFullyMigrated(t *testing.T) {
	core, _ := newTestCore(t)

	status, err := core.MigrationStatus(context.Background(), core.cfg.Workspace.DefaultPath)
	require.NoError(t, err)
	assert.NotEmpty(t, status.LatestKnown)
	assert.NotEmpty(t, status.Applied)
	assert.Empty(t, status.Pending, "a freshly created workspace has nothing pending")
}

func TestOpenMissingWorkspace(t *testing.T) {
	core, dir := newTestCore(t)

	_, err := core.OpenWorkspace(context.Background(), filepath.Join(dir, "missing.sqlite"))
	require.Error(t, err)
	assert.True(t, gateway.IsCode(err, "WORKSPACE_DB_NOT_FOUND"))
}

func TestSessionRecentsDeduplicated(t *testing.T) {
	core, dir := newTestCore(t)
	ctx := context.Background()

	other := filepath.Join(dir, "other.sqlite")
	_, err := core.CreateWorkspace(ctx, other)
	require.NoError(t, err)
	_, err = core.OpenWorkspace(ctx, core.cfg.Workspace.DefaultPath)
	require.NoError(t, err)
	_, err = core.OpenWorkspace(ctx, other)
	require.NoError(t, err)

	info, err := core.GetCurrentSession(ctx)
	require.NoError(t, err)
	assert.Equal(t, other, info.CurrentPath)
	assert.Equal(t, []string{other, core.cfg.Workspace.DefaultPath}, info.RecentPaths,
		"most-recent-first with no duplicates")
}

func TestQueriesWithoutWorkspace(t *testing.T) {
	dir := t.TempDir()
	cfg := config.New()
	cfg.Workspace.DefaultPath = filepath.Join(dir, "workspace.sqlite")
	cfg.Workspace.StatePath = filepath.Join(dir, "session.json")

	core, err := New(cfg, loggy.NewNoopLogger())
	require.NoError(t, err)
	defer core.Close()

	_, err = core.ListIncidents(context.Background())
	require.Error(t, err)
	assert.True(t, gateway.IsCode(err, "WORKSPACE_DB_NOT_OPEN"))
}

func TestIncidentListAndDetail(t *testing.T) {
	core, _ := newTestCore(t)
	ctx := context.Background()
	id := seedIncident(t, core, "checkout outage")

	list, err := core.ListIncidents(ctx)
	require.NoError(t, err)
	require.Len(t, list.Incidents, 1)
	assert.Equal(t, "checkout outage", list.Incidents[0].Title)
	assert.Equal(t, "INC-100", list.Incidents[0].ExternalID)

	detail, err := core.IncidentDetail(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, id, detail.Incident.ID)
	require.Len(t, detail.Events, 1)
	assert.Equal(t, "db is down", detail.Events[0].Text)
}

func TestIncidentDetailNotFound(t *testing.T) {
	core, _ := newTestCore(t)

	_, err := core.IncidentDetail(context.Background(), "inc-does-not-exist")
	require.Error(t, err)
	assert.True(t, gateway.IsCode(err, "INCIDENT_NOT_FOUND"))
}

func TestDashboardAggregates(t *testing.T) {
	core, _ := newTestCore(t)
	seedIncident(t, core, "checkout outage")

	payload, err := core.Dashboard(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), payload.TotalIncidents)
	assert.Equal(t, int64(0), payload.OpenIncidents)
	assert.Equal(t, int64(1), payload.BySeverity["sev2"])
	assert.InDelta(t, 60.0, payload.MTTRMinutes, 1.0)
	assert.InDelta(t, 10.0, payload.MTTAMinutes, 1.0)
}

func TestGenerateReportContainsIncidents(t *testing.T) {
	core, _ := newTestCore(t)
	seedIncident(t, core, "checkout outage")

	report, err := core.GenerateReport(context.Background())
	require.NoError(t, err)
	assert.Contains(t, report.Markdown, "# Incident Review")
	assert.Contains(t, report.Markdown, "checkout outage")
	assert.Contains(t, report.Markdown, "sev2")
}
