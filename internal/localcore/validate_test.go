package localcore

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ns(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func TestValidateIncidentCleanLifecycle(t *testing.T) {
	warnings := validateIncident(
		sql.NullInt64{Int64: 40, Valid: true},
		[]sql.NullString{
			ns("2026-08-01T10:00:00Z"),
			ns("2026-08-01T10:05:00Z"),
			ns("2026-08-01T10:10:00Z"),
			ns("2026-08-01T10:40:00Z"),
			ns("2026-08-01T11:00:00Z"),
		},
	)
	assert.Empty(t, warnings)
}

func TestValidateIncidentSkipsMissingTimestamps(t *testing.T) {
	// Only start and resolve present; the gap in between is not an
	// ordering violation.
	warnings := validateIncident(
		sql.NullInt64{},
		[]sql.NullString{ns("2026-08-01T10:00:00Z"), ns(""), ns(""), ns(""), ns("2026-08-01T11:00:00Z")},
	)
	assert.Empty(t, warnings)
}

func TestValidateIncidentOrderViolation(t *testing.T) {
	warnings := validateIncident(
		sql.NullInt64{},
		[]sql.NullString{ns("2026-08-01T11:00:00Z"), ns(""), ns("2026-08-01T10:00:00Z"), ns(""), ns("")},
	)
	require.Len(t, warnings, 1)
	assert.Equal(t, "VALIDATION_TS_ORDER_VIOLATION", warnings[0].Code)
}

func TestValidateIncidentParseAndRangeFailures(t *testing.T) {
	warnings := validateIncident(
		sql.NullInt64{Int64: 180, Valid: true},
		[]sql.NullString{ns("yesterday-ish"), ns(""), ns(""), ns(""), ns("")},
	)
	require.Len(t, warnings, 2)
	assert.Equal(t, "VALIDATION_TS_PARSE_FAILED", warnings[0].Code)
	assert.Equal(t, "VALIDATION_PCT_OUT_OF_RANGE", warnings[1].Code)
}

func TestValidationReportOmitsCleanIncidents(t *testing.T) {
	core, _ := newTestCore(t)
	ctx := context.Background()
	seedIncident(t, core, "clean incident")

	// A second incident whose ack precedes its start.
	_, err := core.db.Exec(
		`INSERT INTO incidents (id, fingerprint, title, start_ts, ack_ts, created_at, updated_at)
		 VALUES ('inc-bad', 'fp-bad', 'misordered', '2026-08-01T11:00:00Z', '2026-08-01T10:00:00Z',
		         '2026-08-01T12:00:00Z', '2026-08-01T12:00:00Z')`,
	)
	require.NoError(t, err)

	report, err := core.ValidationReport(ctx)
	require.NoError(t, err)
	require.Len(t, report.Items, 1)
	assert.Equal(t, "inc-bad", report.Items[0].IncidentID)
	require.Len(t, report.Items[0].Warnings, 1)
	assert.Equal(t, "VALIDATION_TS_ORDER_VIOLATION", report.Items[0].Warnings[0].Code)
}
