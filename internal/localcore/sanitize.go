package localcore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/tildaslashalef/incidentdeck/internal/gateway"
	"github.com/tildaslashalef/incidentdeck/internal/ulid"
)

const (
	sanitizedManifestVersion = 1
	sanitizedManifestName    = "sanitized_manifest.json"

	incidentsFile = "incidents.json"
	eventsFile    = "timeline_events.json"
	warningsFile  = "warnings.json"

	redactedText = "[redacted]"
)

// sanitizedIncident is an incident with every free-text field removed
// and every categorical field pseudonymized. Timestamps and percentages
// survive so metrics remain computable.
type sanitizedIncident struct {
	IncidentKey     string `json:"incident_key"`
	Severity        string `json:"severity,omitempty"`
	DetectionSource string `json:"detection_source,omitempty"`
	Vendor          string `json:"vendor,omitempty"`
	Service         string `json:"service,omitempty"`
	ImpactPct       *int64 `json:"impact_pct,omitempty"`
	StartTS         string `json:"start_ts,omitempty"`
	FirstObservedTS string `json:"first_observed_ts,omitempty"`
	AckTS           string `json:"ack_ts,omitempty"`
	MitigateTS      string `json:"mitigate_ts,omitempty"`
	ResolveTS       string `json:"resolve_ts,omitempty"`
	WarningCount    int64  `json:"warning_count"`
}

type sanitizedEvent struct {
	IncidentKey  string `json:"incident_key"`
	Source       string `json:"source"`
	TS           string `json:"ts,omitempty"`
	Kind         string `json:"kind,omitempty"`
	TextRedacted bool   `json:"text_redacted"`
}

type sanitizedWarning struct {
	IncidentKey string `json:"incident_key"`
	Code        string `json:"code"`
}

// ExportSanitized writes a shareable dataset under destinationDir: three
// JSON files with all free text removed, plus a manifest with per-file
// hashes. The export is deterministic for a given workspace.
func (c *Core) ExportSanitized(ctx context.Context, destinationDir string) (*gateway.SanitizedExportResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	db, err := c.activeDB()
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	datasetDir := filepath.Join(destinationDir, "sanitized-"+now.Format("20060102-150405"))
	if err := os.MkdirAll(datasetDir, 0o755); err != nil {
		return nil, gateway.NewCommandError("EXPORT_SANITIZED_MKDIR_FAILED", "Failed to create sanitized export directory").
			WithDetails(err.Error())
	}

	incidents, keyByID, err := c.sanitizedIncidents(ctx, db)
	if err != nil {
		return nil, err
	}
	events, err := c.sanitizedEvents(ctx, db, keyByID)
	if err != nil {
		return nil, err
	}

	validation, err := c.validation(ctx, db)
	if err != nil {
		return nil, err
	}
	warnings := []sanitizedWarning{}
	warningCounts := map[string]int64{}
	for _, item := range validation.Items {
		key := keyByID[item.IncidentID]
		for _, w := range item.Warnings {
			// Codes only; warning messages can quote raw field values.
			warnings = append(warnings, sanitizedWarning{IncidentKey: key, Code: w.Code})
			warningCounts[key]++
		}
	}
	for i := range incidents {
		incidents[i].WarningCount = warningCounts[incidents[i].IncidentKey]
	}

	var files []gateway.BackupFileInfo
	for _, out := range []struct {
		name  string
		value any
	}{
		{incidentsFile, incidents},
		{eventsFile, events},
		{warningsFile, warnings},
	} {
		path := filepath.Join(datasetDir, out.name)
		data, err := json.MarshalIndent(out.value, "", "  ")
		if err != nil {
			return nil, gateway.NewCommandError("EXPORT_SANITIZED_ENCODE_FAILED", "Failed to encode sanitized JSON").
				WithDetails(err.Error())
		}
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return nil, gateway.NewCommandError("EXPORT_SANITIZED_WRITE_FAILED", "Failed to write sanitized export file").
				WithDetails(err.Error())
		}
		info, err := hashFile(path)
		if err != nil {
			return nil, gateway.NewCommandError("EXPORT_SANITIZED_FILE_READ_FAILED", "Failed to hash sanitized export file").
				WithDetails(err.Error())
		}
		files = append(files, info)
	}

	manifest := gateway.SanitizedManifest{
		ManifestVersion: sanitizedManifestVersion,
		AppVersion:      appVersion,
		ExportTime:      now.Format(time.RFC3339),
		Counts: gateway.SanitizedCounts{
			Incidents:      int64(len(incidents)),
			TimelineEvents: int64(len(events)),
			Warnings:       int64(len(warnings)),
		},
		Files: files,
	}
	if err := writeManifest(filepath.Join(datasetDir, sanitizedManifestName), manifest); err != nil {
		return nil, err
	}

	c.logger.Info("Sanitized dataset exported", "dir", datasetDir, "incidents", len(incidents))
	return &gateway.SanitizedExportResult{DatasetDir: datasetDir, Manifest: manifest}, nil
}

// InspectSanitized reads and verifies a sanitized dataset manifest
// without mutating anything.
func (c *Core) InspectSanitized(_ context.Context, datasetDir string) (*gateway.SanitizedManifest, error) {
	return readSanitizedManifest(datasetDir, true)
}

// ImportSanitized inserts a sanitized dataset into the active workspace.
// The workspace must be empty; the dataset must match its manifest
// hashes exactly. Both are rechecked here regardless of what the client
// already verified.
func (c *Core) ImportSanitized(ctx context.Context, datasetDir string) (*gateway.ImportSummary, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	db, err := c.activeDB()
	if err != nil {
		return nil, err
	}

	manifest, err := readSanitizedManifest(datasetDir, true)
	if err != nil {
		return nil, err
	}

	var existing int64
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM incidents").Scan(&existing); err != nil {
		return nil, errQueryFailed("INGEST_SANITIZED_READ_FAILED", err)
	}
	if existing > 0 {
		return nil, gateway.NewCommandError("INGEST_SANITIZED_DB_NOT_EMPTY", "Sanitized import requires an empty workspace").
			WithDetails(fmt.Sprintf("%d incidents present", existing))
	}

	var incidents []sanitizedIncident
	if err := readSanitizedFile(datasetDir, incidentsFile, &incidents); err != nil {
		return nil, err
	}
	var events []sanitizedEvent
	if err := readSanitizedFile(datasetDir, eventsFile, &events); err != nil {
		return nil, err
	}

	if int64(len(incidents)) != manifest.Counts.Incidents {
		return nil, gateway.NewCommandError("INGEST_SANITIZED_INCIDENT_COUNT_MISMATCH", "Incident count does not match manifest")
	}

	summary := &gateway.ImportSummary{ImportWarnings: []gateway.ValidationWarning{}}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, errQueryFailed("INGEST_SANITIZED_INSERT_INCIDENT_FAILED", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC().Format(time.RFC3339)
	idByKey := map[string]string{}
	for _, in := range incidents {
		id := ulid.IncidentID()
		idByKey[in.IncidentKey] = id
		_, err := tx.ExecContext(ctx,
			`INSERT INTO incidents
			   (id, external_id, fingerprint, title, severity, detection_source, vendor, service, impact_pct,
			    start_ts, first_observed_ts, ack_ts, mitigate_ts, resolve_ts, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			id, in.IncidentKey, in.IncidentKey, in.IncidentKey,
			nullable(in.Severity), nullable(in.DetectionSource), nullable(in.Vendor), nullable(in.Service), in.ImpactPct,
			nullable(in.StartTS), nullable(in.FirstObservedTS), nullable(in.AckTS), nullable(in.MitigateTS), nullable(in.ResolveTS),
			now, now,
		)
		if err != nil {
			return nil, gateway.NewCommandError("INGEST_SANITIZED_INSERT_INCIDENT_FAILED", "Failed to insert sanitized incident").
				WithDetails(err.Error())
		}
		summary.InsertedIncidents++
	}

	for _, ev := range events {
		if !ev.TextRedacted {
			return nil, gateway.NewCommandError("INGEST_SANITIZED_EVENT_NOT_REDACTED", "Dataset contains an unredacted timeline event").
				WithDetails(ev.IncidentKey)
		}
		incidentID, ok := idByKey[ev.IncidentKey]
		if !ok {
			summary.ImportWarnings = append(summary.ImportWarnings, gateway.ValidationWarning{
				Code:    "INGEST_SANITIZED_EVENT_INCIDENT_UNKNOWN",
				Message: fmt.Sprintf("Timeline event references unknown incident key %s", ev.IncidentKey),
			})
			continue
		}
		_, err := tx.ExecContext(ctx,
			"INSERT INTO timeline_events (id, incident_id, source, ts, kind, text, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)",
			ulid.EventID(), incidentID, ev.Source, nullable(ev.TS), nullable(ev.Kind), redactedText, now,
		)
		if err != nil {
			return nil, gateway.NewCommandError("INGEST_SANITIZED_INSERT_EVENT_FAILED", "Failed to insert sanitized timeline event").
				WithDetails(err.Error())
		}
		summary.InsertedTimelineEvents++
	}

	if err := tx.Commit(); err != nil {
		return nil, gateway.NewCommandError("INGEST_SANITIZED_INSERT_EVENT_FAILED", "Failed to commit sanitized import").
			WithDetails(err.Error())
	}

	c.logger.Info("Sanitized dataset imported",
		"dir", datasetDir,
		"incidents", summary.InsertedIncidents,
		"events", summary.InsertedTimelineEvents,
	)
	return summary, nil
}

// sanitizedIncidents reads all incidents and pseudonymizes them with
// deterministic keys: INC_001 by ascending id, VENDOR_A / SERVICE_001 /
// DETECT_001 by sorted distinct value.
func (c *Core) sanitizedIncidents(ctx context.Context, db *sql.DB) ([]sanitizedIncident, map[string]string, error) {
	query, args, err := sq.
		Select("id", "severity", "detection_source", "vendor", "service", "impact_pct",
			"start_ts", "first_observed_ts", "ack_ts", "mitigate_ts", "resolve_ts").
		From("incidents").
		OrderBy("id").
		ToSql()
	if err != nil {
		return nil, nil, errQueryFailed("EXPORT_SANITIZED_QUERY_FAILED", err)
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, nil, errQueryFailed("EXPORT_SANITIZED_QUERY_FAILED", err)
	}
	defer rows.Close()

	type rawIncident struct {
		id                                 string
		severity, detection, vendor, svc   sql.NullString
		impact                             sql.NullInt64
		start, observed, ack, mit, resolve sql.NullString
	}
	var raws []rawIncident
	for rows.Next() {
		var r rawIncident
		if err := rows.Scan(&r.id, &r.severity, &r.detection, &r.vendor, &r.svc, &r.impact,
			&r.start, &r.observed, &r.ack, &r.mit, &r.resolve); err != nil {
			return nil, nil, errQueryFailed("EXPORT_SANITIZED_QUERY_FAILED", err)
		}
		raws = append(raws, r)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, errQueryFailed("EXPORT_SANITIZED_QUERY_FAILED", err)
	}

	var vendors, services, detections []string
	for _, r := range raws {
		vendors = append(vendors, r.vendor.String)
		services = append(services, r.svc.String)
		detections = append(detections, r.detection.String)
	}
	vendorMap := pseudoMapAlpha("VENDOR", vendors)
	serviceMap := pseudoMapNumeric("SERVICE", services)
	detectMap := pseudoMapNumeric("DETECT", detections)

	keyByID := make(map[string]string, len(raws))
	incidents := make([]sanitizedIncident, 0, len(raws))
	for i, r := range raws {
		key := fmt.Sprintf("INC_%03d", i+1)
		keyByID[r.id] = key
		var impact *int64
		if r.impact.Valid {
			v := r.impact.Int64
			impact = &v
		}
		incidents = append(incidents, sanitizedIncident{
			IncidentKey:     key,
			Severity:        r.severity.String,
			DetectionSource: detectMap[r.detection.String],
			Vendor:          vendorMap[r.vendor.String],
			Service:         serviceMap[r.svc.String],
			ImpactPct:       impact,
			StartTS:         r.start.String,
			FirstObservedTS: r.observed.String,
			AckTS:           r.ack.String,
			MitigateTS:      r.mit.String,
			ResolveTS:       r.resolve.String,
		})
	}
	return incidents, keyByID, nil
}

func (c *Core) sanitizedEvents(ctx context.Context, db *sql.DB, keyByID map[string]string) ([]sanitizedEvent, error) {
	query, args, err := sq.
		Select("incident_id", "source", "ts", "kind").
		From("timeline_events").
		OrderBy("incident_id", "ts", "id").
		ToSql()
	if err != nil {
		return nil, errQueryFailed("EXPORT_SANITIZED_QUERY_FAILED", err)
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errQueryFailed("EXPORT_SANITIZED_QUERY_FAILED", err)
	}
	defer rows.Close()

	events := []sanitizedEvent{}
	for rows.Next() {
		var incidentID, ts, kind sql.NullString
		var source string
		if err := rows.Scan(&incidentID, &source, &ts, &kind); err != nil {
			return nil, errQueryFailed("EXPORT_SANITIZED_QUERY_FAILED", err)
		}
		key := keyByID[incidentID.String]
		if key == "" {
			key = "INC_UNKNOWN"
		}
		events = append(events, sanitizedEvent{
			IncidentKey:  key,
			Source:       source,
			TS:           ts.String,
			Kind:         kind.String,
			TextRedacted: true,
		})
	}
	return events, rows.Err()
}

func readSanitizedManifest(datasetDir string, verify bool) (*gateway.SanitizedManifest, error) {
	info, err := os.Stat(datasetDir)
	if err != nil || !info.IsDir() {
		return nil, gateway.NewCommandError("INGEST_SANITIZED_NOT_DIR", "Sanitized dataset path is not a directory").
			WithDetails(datasetDir)
	}

	data, err := os.ReadFile(filepath.Join(datasetDir, sanitizedManifestName))
	if err != nil {
		return nil, gateway.NewCommandError("INGEST_SANITIZED_FILE_OPEN_FAILED", "Failed to read dataset manifest").
			WithDetails(err.Error())
	}
	var manifest gateway.SanitizedManifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		return nil, gateway.NewCommandError("INGEST_SANITIZED_DECODE_FAILED", "Failed to decode dataset manifest").
			WithDetails(err.Error())
	}
	if manifest.ManifestVersion != sanitizedManifestVersion {
		return nil, gateway.NewCommandError("INGEST_SANITIZED_MANIFEST_VERSION_MISMATCH", "Unsupported dataset manifest version").
			WithDetails(fmt.Sprintf("got %d, want %d", manifest.ManifestVersion, sanitizedManifestVersion))
	}

	required := map[string]bool{incidentsFile: false, eventsFile: false, warningsFile: false}
	for _, file := range manifest.Files {
		if _, ok := required[file.Filename]; ok {
			required[file.Filename] = true
		}
		if !verify {
			continue
		}
		got, err := hashFile(filepath.Join(datasetDir, file.Filename))
		if err != nil {
			return nil, gateway.NewCommandError("INGEST_SANITIZED_FILE_MISSING", "Dataset file named in manifest is missing").
				WithDetails(file.Filename)
		}
		if got.SHA256 != file.SHA256 {
			return nil, gateway.NewCommandError("INGEST_SANITIZED_MANIFEST_HASH_MISMATCH", "Dataset file does not match its manifest hash").
				WithDetails(file.Filename)
		}
		if got.Bytes != file.Bytes {
			return nil, gateway.NewCommandError("INGEST_SANITIZED_MANIFEST_BYTES_MISMATCH", "Dataset file size does not match its manifest").
				WithDetails(file.Filename)
		}
	}
	for name, present := range required {
		if !present {
			return nil, gateway.NewCommandError("INGEST_SANITIZED_MANIFEST_MISSING_FILE", "Dataset manifest is missing a required file").
				WithDetails(name)
		}
	}
	return &manifest, nil
}

func readSanitizedFile(datasetDir, name string, out any) error {
	data, err := os.ReadFile(filepath.Join(datasetDir, name))
	if err != nil {
		return gateway.NewCommandError("INGEST_SANITIZED_FILE_READ_FAILED", "Failed to read dataset file").
			WithDetails(err.Error())
	}
	if err := json.Unmarshal(data, out); err != nil {
		return gateway.NewCommandError("INGEST_SANITIZED_DECODE_FAILED", "Failed to decode dataset file").
			WithDetails(name)
	}
	return nil
}

// pseudoMapAlpha maps sorted distinct values to PREFIX_A, PREFIX_B, ...
func pseudoMapAlpha(prefix string, values []string) map[string]string {
	out := map[string]string{}
	for i, v := range dedupeSorted(values) {
		out[v] = fmt.Sprintf("%s_%c", prefix, 'A'+rune(i))
	}
	return out
}

// pseudoMapNumeric maps sorted distinct values to PREFIX_001, PREFIX_002, ...
func pseudoMapNumeric(prefix string, values []string) map[string]string {
	out := map[string]string{}
	for i, v := range dedupeSorted(values) {
		out[v] = fmt.Sprintf("%s_%03d", prefix, i+1)
	}
	return out
}

func dedupeSorted(values []string) []string {
	seen := map[string]bool{}
	var out []string
	for _, v := range values {
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
