package localcore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tildaslashalef/incidentdeck/internal/gateway"
	"github.com/tildaslashalef/incidentdeck/internal/loggy"
)

// newTestClient layers the full typed client over a Core used as the
// in-process transport, the same stack app wiring builds in local mode.
func newTestClient(t *testing.T) (*gateway.Client, *Core) {
	t.Helper()
	core, _ := newTestCore(t)
	gw := gateway.New(core, loggy.NewNoopLogger())
	return gateway.NewClient(gw), core
}

func TestRoundtripUnknownOperation(t *testing.T) {
	core, _ := newTestCore(t)
	_, err := core.Roundtrip(context.Background(), "no_such_operation", nil)
	require.Error(t, err)
	assert.True(t, gateway.IsCode(err, "UNKNOWN_OPERATION"))
}

func TestClientOverLocalCore(t *testing.T) {
	client, core := newTestClient(t)
	ctx := context.Background()
	seedIncident(t, core, "checkout outage")

	session, err := client.GetCurrentSession(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, session.CurrentPath)

	list, err := client.ListIncidents(ctx)
	require.NoError(t, err)
	require.Len(t, list.Incidents, 1)

	detail, err := client.IncidentDetail(ctx, list.Incidents[0].ID)
	require.NoError(t, err)
	assert.Equal(t, "checkout outage", detail.Incident.Title)
	assert.Len(t, detail.Events, 1)

	dashboard, err := client.Dashboard(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), dashboard.TotalIncidents)

	report, err := client.GenerateReport(ctx)
	require.NoError(t, err)
	assert.Contains(t, report.Markdown, "checkout outage")
}

func TestClientNormalizesCoreErrors(t *testing.T) {
	client, _ := newTestClient(t)
	ctx := context.Background()

	_, err := client.IncidentDetail(ctx, "inc-missing")
	require.Error(t, err)
	var cmdErr *gateway.CommandError
	require.ErrorAs(t, err, &cmdErr)
	assert.Equal(t, "INCIDENT_NOT_FOUND", cmdErr.Code)
	assert.False(t, cmdErr.Retryable)

	_, err = client.OpenWorkspace(ctx, "/nonexistent/path.sqlite")
	require.Error(t, err)
	assert.True(t, gateway.IsCode(err, "WORKSPACE_DB_NOT_FOUND"))
}
