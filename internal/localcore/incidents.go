package localcore

import (
	"context"
	"database/sql"

	sq "github.com/Masterminds/squirrel"

	"github.com/tildaslashalef/incidentdeck/internal/gateway"
)

// ListIncidents returns all incidents in the active workspace, newest
// start first with untimed incidents last.
func (c *Core) ListIncidents(ctx context.Context) (*gateway.IncidentList, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	db, err := c.activeDB()
	if err != nil {
		return nil, err
	}

	query, args, err := sq.
		Select("id", "external_id", "title", "severity").
		From("incidents").
		OrderBy("start_ts IS NULL", "start_ts DESC", "id").
		ToSql()
	if err != nil {
		return nil, errQueryFailed("INCIDENTS_QUERY_FAILED", err)
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errQueryFailed("INCIDENTS_QUERY_FAILED", err)
	}
	defer rows.Close()

	list := &gateway.IncidentList{Incidents: []gateway.IncidentListItem{}}
	for rows.Next() {
		var item gateway.IncidentListItem
		var externalID, severity sql.NullString
		if err := rows.Scan(&item.ID, &externalID, &item.Title, &severity); err != nil {
			return nil, errQueryFailed("INCIDENTS_QUERY_FAILED", err)
		}
		item.ExternalID = externalID.String
		item.Severity = severity.String
		list.Incidents = append(list.Incidents, item)
	}
	if err := rows.Err(); err != nil {
		return nil, errQueryFailed("INCIDENTS_QUERY_FAILED", err)
	}
	return list, nil
}

// IncidentDetail returns one incident with its timeline in event order.
func (c *Core) IncidentDetail(ctx context.Context, incidentID string) (*gateway.IncidentDetail, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	db, err := c.activeDB()
	if err != nil {
		return nil, err
	}

	query, args, err := sq.
		Select("id", "external_id", "title", "severity").
		From("incidents").
		Where(sq.Eq{"id": incidentID}).
		ToSql()
	if err != nil {
		return nil, errQueryFailed("INCIDENT_DETAIL_QUERY_FAILED", err)
	}

	detail := &gateway.IncidentDetail{Events: []gateway.TimelineEvent{}}
	var externalID, severity sql.NullString
	err = db.QueryRowContext(ctx, query, args...).
		Scan(&detail.Incident.ID, &externalID, &detail.Incident.Title, &severity)
	if err == sql.ErrNoRows {
		return nil, gateway.NewCommandError("INCIDENT_NOT_FOUND", "No incident with that id").
			WithDetails(incidentID)
	}
	if err != nil {
		return nil, errQueryFailed("INCIDENT_DETAIL_QUERY_FAILED", err)
	}
	detail.Incident.ExternalID = externalID.String
	detail.Incident.Severity = severity.String

	query, args, err = sq.
		Select("id", "incident_id", "kind", "ts", "text").
		From("timeline_events").
		Where(sq.Eq{"incident_id": incidentID}).
		OrderBy("ts IS NULL", "ts", "id").
		ToSql()
	if err != nil {
		return nil, errQueryFailed("INCIDENT_DETAIL_QUERY_FAILED", err)
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errQueryFailed("INCIDENT_DETAIL_QUERY_FAILED", err)
	}
	defer rows.Close()

	for rows.Next() {
		var ev gateway.TimelineEvent
		var kind, ts sql.NullString
		if err := rows.Scan(&ev.ID, &ev.IncidentID, &kind, &ts, &ev.Text); err != nil {
			return nil, errQueryFailed("INCIDENT_DETAIL_QUERY_FAILED", err)
		}
		ev.Kind = kind.String
		ev.Timestamp = ts.String
		detail.Events = append(detail.Events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, errQueryFailed("INCIDENT_DETAIL_QUERY_FAILED", err)
	}
	return detail, nil
}
