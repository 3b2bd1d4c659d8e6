package localcore

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/tildaslashalef/incidentdeck/internal/gateway"
)

// GenerateReport renders the incident review report as markdown: summary
// metrics, a severity breakdown and a per-incident table. The output is
// plain markdown; rendering is the client's concern.
func (c *Core) GenerateReport(ctx context.Context) (*gateway.ReportResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	db, err := c.activeDB()
	if err != nil {
		return nil, err
	}

	dashboard, err := c.dashboard(ctx, db)
	if err != nil {
		return nil, err
	}

	query, args, err := sq.
		Select("external_id", "title", "severity", "service", "start_ts", "resolve_ts").
		From("incidents").
		OrderBy("start_ts IS NULL", "start_ts", "id").
		ToSql()
	if err != nil {
		return nil, errQueryFailed("REPORT_QUERY_FAILED", err)
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errQueryFailed("REPORT_QUERY_FAILED", err)
	}
	defer rows.Close()

	var b strings.Builder
	b.WriteString("# Incident Review\n\n")
	fmt.Fprintf(&b, "Generated %s\n\n", time.Now().UTC().Format(time.RFC3339))

	b.WriteString("## Summary\n\n")
	fmt.Fprintf(&b, "- Incidents: %d (%d open)\n", dashboard.TotalIncidents, dashboard.OpenIncidents)
	fmt.Fprintf(&b, "- MTTR: %.0f min\n", dashboard.MTTRMinutes)
	fmt.Fprintf(&b, "- MTTA: %.0f min\n\n", dashboard.MTTAMinutes)

	if len(dashboard.BySeverity) > 0 {
		b.WriteString("## By severity\n\n")
		severities := make([]string, 0, len(dashboard.BySeverity))
		for severity := range dashboard.BySeverity {
			severities = append(severities, severity)
		}
		sort.Strings(severities)
		for _, severity := range severities {
			fmt.Fprintf(&b, "- %s: %d\n", severity, dashboard.BySeverity[severity])
		}
		b.WriteString("\n")
	}

	b.WriteString("## Incidents\n\n")
	b.WriteString("| ID | Title | Severity | Service | Started | Resolved |\n")
	b.WriteString("|----|-------|----------|---------|---------|----------|\n")
	for rows.Next() {
		var externalID, severity, service, startTS, resolveTS sql.NullString
		var title string
		if err := rows.Scan(&externalID, &title, &severity, &service, &startTS, &resolveTS); err != nil {
			return nil, errQueryFailed("REPORT_QUERY_FAILED", err)
		}
		fmt.Fprintf(&b, "| %s | %s | %s | %s | %s | %s |\n",
			orDash(externalID.String),
			strings.ReplaceAll(title, "|", "\\|"),
			orDash(severity.String),
			orDash(service.String),
			orDash(startTS.String),
			orDash(resolveTS.String),
		)
	}
	if err := rows.Err(); err != nil {
		return nil, errQueryFailed("REPORT_QUERY_FAILED", err)
	}

	return &gateway.ReportResult{Markdown: b.String()}, nil
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
