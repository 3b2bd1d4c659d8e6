package localcore

import (
	"context"
	"database/sql"

	"github.com/tildaslashalef/incidentdeck/internal/gateway"
)

// Dashboard aggregates the active workspace into the dashboard payload.
// MTTR is start to resolve; MTTA is start to acknowledgement; both are
// averaged in minutes over incidents where the pair of timestamps exists.
func (c *Core) Dashboard(ctx context.Context) (*gateway.DashboardPayload, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	db, err := c.activeDB()
	if err != nil {
		return nil, err
	}
	return c.dashboard(ctx, db)
}

// dashboard computes the payload. Callers hold mu.
func (c *Core) dashboard(ctx context.Context, db *sql.DB) (*gateway.DashboardPayload, error) {
	payload := &gateway.DashboardPayload{BySeverity: map[string]int64{}}

	err := db.QueryRowContext(ctx,
		"SELECT COUNT(*), COALESCE(SUM(CASE WHEN resolve_ts IS NULL THEN 1 ELSE 0 END), 0) FROM incidents",
	).Scan(&payload.TotalIncidents, &payload.OpenIncidents)
	if err != nil {
		return nil, errQueryFailed("DASHBOARD_QUERY_FAILED", err)
	}

	rows, err := db.QueryContext(ctx,
		"SELECT COALESCE(severity, 'unknown'), COUNT(*) FROM incidents GROUP BY COALESCE(severity, 'unknown')",
	)
	if err != nil {
		return nil, errQueryFailed("DASHBOARD_QUERY_FAILED", err)
	}
	defer rows.Close()
	for rows.Next() {
		var severity string
		var count int64
		if err := rows.Scan(&severity, &count); err != nil {
			return nil, errQueryFailed("DASHBOARD_QUERY_FAILED", err)
		}
		payload.BySeverity[severity] = count
	}
	if err := rows.Err(); err != nil {
		return nil, errQueryFailed("DASHBOARD_QUERY_FAILED", err)
	}

	payload.MTTRMinutes, err = avgMinutes(ctx, db, "resolve_ts")
	if err != nil {
		return nil, err
	}
	payload.MTTAMinutes, err = avgMinutes(ctx, db, "ack_ts")
	if err != nil {
		return nil, err
	}

	return payload, nil
}

func avgMinutes(ctx context.Context, db *sql.DB, endColumn string) (float64, error) {
	var avg sql.NullFloat64
	err := db.QueryRowContext(ctx,
		"SELECT AVG((julianday("+endColumn+") - julianday(start_ts)) * 1440.0) "+
			"FROM incidents WHERE start_ts IS NOT NULL AND "+endColumn+" IS NOT NULL",
	).Scan(&avg)
	if err != nil {
		return 0, errQueryFailed("DASHBOARD_QUERY_FAILED", err)
	}
	return avg.Float64, nil
}
