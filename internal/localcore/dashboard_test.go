package localcore

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// The dashboard aggregation is also covered end-to-end against real
// SQLite elsewhere; these tests pin the exact query sequence and the
// NULL handling that a seeded database cannot easily produce.

func TestDashboardQuerySequence(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err, "Failed to create mock database")
	defer db.Close()

	mock.ExpectQuery("SELECT COUNT\\(\\*\\), COALESCE\\(SUM").
		WillReturnRows(sqlmock.NewRows([]string{"count", "open"}).AddRow(5, 2))

	mock.ExpectQuery("SELECT COALESCE\\(severity, 'unknown'\\), COUNT\\(\\*\\) FROM incidents").
		WillReturnRows(sqlmock.NewRows([]string{"severity", "count"}).
			AddRow("sev1", 1).
			AddRow("sev2", 3).
			AddRow("unknown", 1))

	mock.ExpectQuery("julianday\\(resolve_ts\\)").
		WillReturnRows(sqlmock.NewRows([]string{"avg"}).AddRow(90.0))

	mock.ExpectQuery("julianday\\(ack_ts\\)").
		WillReturnRows(sqlmock.NewRows([]string{"avg"}).AddRow(12.5))

	core := &Core{}
	payload, err := core.dashboard(context.Background(), db)
	require.NoError(t, err)

	assert.Equal(t, int64(5), payload.TotalIncidents)
	assert.Equal(t, int64(2), payload.OpenIncidents)
	assert.Equal(t, int64(3), payload.BySeverity["sev2"])
	assert.Equal(t, int64(1), payload.BySeverity["unknown"])
	assert.Equal(t, 90.0, payload.MTTRMinutes)
	assert.Equal(t, 12.5, payload.MTTAMinutes)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDashboardNullAveragesAreZero(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err, "Failed to create mock database")
	defer db.Close()

	mock.ExpectQuery("SELECT COUNT\\(\\*\\), COALESCE\\(SUM").
		WillReturnRows(sqlmock.NewRows([]string{"count", "open"}).AddRow(1, 1))

	mock.ExpectQuery("SELECT COALESCE\\(severity, 'unknown'\\), COUNT\\(\\*\\) FROM incidents").
		WillReturnRows(sqlmock.NewRows([]string{"severity", "count"}).AddRow("sev3", 1))

	// AVG over zero qualifying rows comes back as SQL NULL.
	mock.ExpectQuery("julianday\\(resolve_ts\\)").
		WillReturnRows(sqlmock.NewRows([]string{"avg"}).AddRow(nil))

	mock.ExpectQuery("julianday\\(ack_ts\\)").
		WillReturnRows(sqlmock.NewRows([]string{"avg"}).AddRow(nil))

	core := &Core{}
	payload, err := core.dashboard(context.Background(), db)
	require.NoError(t, err)

	assert.Zero(t, payload.MTTRMinutes)
	assert.Zero(t, payload.MTTAMinutes)

	assert.NoError(t, mock.ExpectationsWereMet())
}
