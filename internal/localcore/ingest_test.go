package localcore

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tildaslashalef/incidentdeck/internal/gateway"
)

func warningCodes(warnings []gateway.ValidationWarning) []string {
	codes := make([]string, 0, len(warnings))
	for _, w := range warnings {
		codes = append(codes, w.Code)
	}
	return codes
}

func TestSeedDemoDataFillsEmptyWorkspace(t *testing.T) {
	core, _ := newTestCore(t)
	ctx := context.Background()

	summary, err := core.SeedDemoData(ctx)
	require.NoError(t, err)
	assert.Equal(t, 40, summary.Inserted)
	assert.Equal(t, 0, summary.Updated)
	assert.Equal(t, 0, summary.Skipped)
	assert.Empty(t, summary.Warnings)

	dash, err := core.Dashboard(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(40), dash.TotalIncidents)
	assert.Equal(t, int64(10), dash.BySeverity["sev1"])
	assert.Greater(t, dash.MTTRMinutes, 0.0)

	list, err := core.ListIncidents(ctx)
	require.NoError(t, err)
	require.Len(t, list.Incidents, 40)
	for _, in := range list.Incidents {
		assert.NotEmpty(t, in.ExternalID)
	}
}

func TestSeedDemoDataIsIdempotent(t *testing.T) {
	core, _ := newTestCore(t)
	ctx := context.Background()

	_, err := core.SeedDemoData(ctx)
	require.NoError(t, err)

	summary, err := core.SeedDemoData(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, summary.Inserted)
	assert.Equal(t, 40, summary.Updated)

	dash, err := core.Dashboard(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(40), dash.TotalIncidents)
}

func TestImportJiraCSVUpsertsByExternalID(t *testing.T) {
	core, _ := newTestCore(t)
	ctx := context.Background()
	mapping := gateway.JiraCSVMapping{ExternalID: "Key", Title: "Summary", Severity: "Severity"}

	first, err := core.ImportJiraCSV(ctx, &gateway.JiraImportRequest{
		CSV:     "Key,Summary,Severity\nOPS-1,checkout errors,sev2\n",
		Mapping: mapping,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, first.Inserted)

	// The same issue key with a corrected title updates in place.
	second, err := core.ImportJiraCSV(ctx, &gateway.JiraImportRequest{
		CSV:     "Key,Summary,Severity\nOPS-1,checkout 500s on submit,sev1\n",
		Mapping: mapping,
	})
	require.NoError(t, err)
	assert.Equal(t, 0, second.Inserted)
	assert.Equal(t, 1, second.Updated)

	list, err := core.ListIncidents(ctx)
	require.NoError(t, err)
	require.Len(t, list.Incidents, 1)
	assert.Equal(t, "checkout 500s on submit", list.Incidents[0].Title)
	assert.Equal(t, "sev1", list.Incidents[0].Severity)
}

func TestImportJiraCSVUpsertsByFingerprintWithoutKey(t *testing.T) {
	core, _ := newTestCore(t)
	ctx := context.Background()
	mapping := gateway.JiraCSVMapping{Title: "Summary", StartTS: "Start"}

	csv := "Summary,Start\nDNS   outage,2026-02-01T10:00:00Z\n"
	_, err := core.ImportJiraCSV(ctx, &gateway.JiraImportRequest{CSV: csv, Mapping: mapping})
	require.NoError(t, err)

	// Same content with collapsed whitespace hashes the same.
	summary, err := core.ImportJiraCSV(ctx, &gateway.JiraImportRequest{
		CSV:     "Summary,Start\nDNS outage,2026-02-01T10:00:00Z\n",
		Mapping: mapping,
	})
	require.NoError(t, err)
	assert.Equal(t, 0, summary.Inserted)
	assert.Equal(t, 1, summary.Updated)
}

func TestImportJiraCSVNormalizesTimestamps(t *testing.T) {
	core, _ := newTestCore(t)
	ctx := context.Background()

	summary, err := core.ImportJiraCSV(ctx, &gateway.JiraImportRequest{
		CSV:     "Summary,Start,Resolve\napi brownout,2026-03-01 09:30:00,not-a-time\n",
		Mapping: gateway.JiraCSVMapping{Title: "Summary", StartTS: "Start", ResolveTS: "Resolve"},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Inserted)

	codes := warningCodes(summary.Warnings)
	assert.Contains(t, codes, "INGEST_TS_TZ_ASSUMED_UTC")
	assert.Contains(t, codes, "INGEST_TS_PARSE_FAILED")

	var start string
	var resolve any
	err = core.db.QueryRow("SELECT start_ts, resolve_ts FROM incidents").Scan(&start, &resolve)
	require.NoError(t, err)
	assert.Equal(t, "2026-03-01T09:30:00Z", start)
	assert.Nil(t, resolve)
}

func TestImportJiraCSVImpactWarnings(t *testing.T) {
	core, _ := newTestCore(t)
	ctx := context.Background()

	summary, err := core.ImportJiraCSV(ctx, &gateway.JiraImportRequest{
		CSV:     "Summary,Impact\nover range,150\nnot numeric,lots\n",
		Mapping: gateway.JiraCSVMapping{Title: "Summary", ImpactPct: "Impact"},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Inserted)

	codes := warningCodes(summary.Warnings)
	assert.Contains(t, codes, "VALIDATION_PCT_OUT_OF_RANGE")
	assert.Contains(t, codes, "VALIDATION_PCT_PARSE_FAILED")

	var withImpact int64
	err = core.db.QueryRow("SELECT COUNT(*) FROM incidents WHERE impact_pct IS NOT NULL").Scan(&withImpact)
	require.NoError(t, err)
	assert.Equal(t, int64(0), withImpact)
}

func TestImportJiraCSVSkipsTitlelessRows(t *testing.T) {
	core, _ := newTestCore(t)
	ctx := context.Background()

	summary, err := core.ImportJiraCSV(ctx, &gateway.JiraImportRequest{
		CSV:     "Key,Summary\nOPS-1,real incident\nOPS-2,\n",
		Mapping: gateway.JiraCSVMapping{ExternalID: "Key", Title: "Summary"},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Inserted)
	assert.Equal(t, 1, summary.Skipped)
	assert.Contains(t, warningCodes(summary.Warnings), "INGEST_JIRA_CSV_ROW_SKIPPED")
}

func TestImportJiraCSVRejectsBadMapping(t *testing.T) {
	core, _ := newTestCore(t)
	ctx := context.Background()

	_, err := core.ImportJiraCSV(ctx, &gateway.JiraImportRequest{
		CSV:     "Key,Summary\nOPS-1,x\n",
		Mapping: gateway.JiraCSVMapping{Title: "Headline"},
	})
	require.Error(t, err)
	assert.True(t, gateway.IsCode(err, "INGEST_JIRA_CSV_MAPPING_INVALID"))

	_, err = core.ImportJiraCSV(ctx, &gateway.JiraImportRequest{CSV: "Key,Summary\n"})
	require.Error(t, err)
	assert.True(t, gateway.IsCode(err, "INGEST_JIRA_CSV_MAPPING_INVALID"))
}

func TestImportJiraCSVPreservesFieldsOnPartialUpdate(t *testing.T) {
	core, _ := newTestCore(t)
	ctx := context.Background()

	_, err := core.ImportJiraCSV(ctx, &gateway.JiraImportRequest{
		CSV:     "Key,Summary,Service,Ack\nOPS-9,cache stampede,search,2026-04-01T08:00:00Z\n",
		Mapping: gateway.JiraCSVMapping{ExternalID: "Key", Title: "Summary", Service: "Service", AckTS: "Ack"},
	})
	require.NoError(t, err)

	// A later export without the service or ack columns must not blank
	// what the first import recorded.
	_, err = core.ImportJiraCSV(ctx, &gateway.JiraImportRequest{
		CSV:     "Key,Summary\nOPS-9,cache stampede recurrence\n",
		Mapping: gateway.JiraCSVMapping{ExternalID: "Key", Title: "Summary"},
	})
	require.NoError(t, err)

	var title, service, ack string
	err = core.db.QueryRow("SELECT title, service, ack_ts FROM incidents").Scan(&title, &service, &ack)
	require.NoError(t, err)
	assert.Equal(t, "cache stampede recurrence", title)
	assert.Equal(t, "search", service)
	assert.Equal(t, "2026-04-01T08:00:00Z", ack)
}

func TestSeedDemoDataOverClient(t *testing.T) {
	client, _ := newTestClient(t)
	ctx := context.Background()

	summary, err := client.SeedDemoData(ctx)
	require.NoError(t, err)
	assert.Equal(t, 40, summary.Inserted)

	report, err := client.GenerateReport(ctx)
	require.NoError(t, err)
	assert.True(t, strings.Contains(report.Markdown, "payments"))
}

func TestDemoCSVIsDeterministic(t *testing.T) {
	assert.Equal(t, demoCSV(), demoCSV())
	assert.Equal(t, 41, strings.Count(demoCSV(), "\n"))
}
