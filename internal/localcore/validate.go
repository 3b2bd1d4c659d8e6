package localcore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/tildaslashalef/incidentdeck/internal/gateway"
)

// incidentTimestamps are the canonical milestone columns, in the order
// they must occur.
var incidentTimestamps = []string{"start_ts", "first_observed_ts", "ack_ts", "mitigate_ts", "resolve_ts"}

// ValidationReport checks every incident for data quality findings:
// unparseable timestamps, milestone order violations and out-of-range
// impact percentages. Findings are warnings, never errors; bad data is
// shown, not rejected.
func (c *Core) ValidationReport(ctx context.Context) (*gateway.ValidationReport, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	db, err := c.activeDB()
	if err != nil {
		return nil, err
	}
	return c.validation(ctx, db)
}

// validation runs the checks. Callers hold mu.
func (c *Core) validation(ctx context.Context, db *sql.DB) (*gateway.ValidationReport, error) {
	query, args, err := sq.
		Select("id", "title", "impact_pct", "start_ts", "first_observed_ts", "ack_ts", "mitigate_ts", "resolve_ts").
		From("incidents").
		OrderBy("id").
		ToSql()
	if err != nil {
		return nil, errQueryFailed("VALIDATION_QUERY_FAILED", err)
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errQueryFailed("VALIDATION_QUERY_FAILED", err)
	}
	defer rows.Close()

	report := &gateway.ValidationReport{Items: []gateway.ValidationItem{}}
	for rows.Next() {
		var id, title string
		var impactPct sql.NullInt64
		stamps := make([]sql.NullString, len(incidentTimestamps))
		dest := []any{&id, &title, &impactPct}
		for i := range stamps {
			dest = append(dest, &stamps[i])
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, errQueryFailed("VALIDATION_QUERY_FAILED", err)
		}

		warnings := validateIncident(impactPct, stamps)
		if len(warnings) == 0 {
			continue
		}
		report.Items = append(report.Items, gateway.ValidationItem{
			IncidentID: id,
			Title:      title,
			Warnings:   warnings,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, errQueryFailed("VALIDATION_QUERY_FAILED", err)
	}
	return report, nil
}

// validateIncident applies the repo rules to one incident:
// start <= first_observed <= ack <= mitigate <= resolve when present,
// impact_pct in 0..100.
func validateIncident(impactPct sql.NullInt64, stamps []sql.NullString) []gateway.ValidationWarning {
	var warnings []gateway.ValidationWarning

	parsed := make([]*time.Time, len(stamps))
	for i, stamp := range stamps {
		if !stamp.Valid || stamp.String == "" {
			continue
		}
		t, err := time.Parse(time.RFC3339, stamp.String)
		if err != nil {
			warnings = append(warnings, gateway.ValidationWarning{
				Code:    "VALIDATION_TS_PARSE_FAILED",
				Message: fmt.Sprintf("Failed to parse %s: %q", incidentTimestamps[i], stamp.String),
			})
			continue
		}
		parsed[i] = &t
	}

	// Each adjacent present pair must be ordered; absent milestones are
	// skipped, not treated as violations.
	prev := -1
	for i, t := range parsed {
		if t == nil {
			continue
		}
		if prev >= 0 && parsed[prev].After(*t) {
			warnings = append(warnings, gateway.ValidationWarning{
				Code:    "VALIDATION_TS_ORDER_VIOLATION",
				Message: fmt.Sprintf("Timestamp order violation: %s must be <= %s", incidentTimestamps[prev], incidentTimestamps[i]),
			})
		}
		prev = i
	}

	if impactPct.Valid && (impactPct.Int64 < 0 || impactPct.Int64 > 100) {
		warnings = append(warnings, gateway.ValidationWarning{
			Code:    "VALIDATION_PCT_OUT_OF_RANGE",
			Message: fmt.Sprintf("impact_pct out of range: %d", impactPct.Int64),
		})
	}

	return warnings
}
