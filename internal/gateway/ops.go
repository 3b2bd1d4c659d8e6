package gateway

// Operation names understood by the core service. The client never computes
// incident metrics itself; every named operation below is request/response
// over the command boundary.
const (
	OpWorkspaceGetCurrent     = "workspace_get_current"
	OpWorkspaceMigrationState = "workspace_migration_status"
	OpWorkspaceCreate         = "workspace_create"
	OpWorkspaceOpen           = "workspace_open"
	OpInitDB                  = "init_db"

	OpIncidentsList    = "incidents_list"
	OpIncidentDetail   = "incident_detail"
	OpDashboardV2      = "get_dashboard_v2"
	OpGenerateReport   = "generate_report_md"
	OpValidationReport = "validation_report"

	OpBackupCreate      = "backup_create"
	OpBackupInspect     = "backup_inspect"
	OpRestoreFromBackup = "restore_from_backup"

	OpExportSanitized  = "export_sanitized_dataset"
	OpInspectSanitized = "inspect_sanitized_dataset"
	OpImportSanitized  = "import_sanitized_dataset"

	OpIngestJiraCSV = "ingest_jira_csv"
	OpSeedDemoData  = "seed_demo_dataset"

	OpAIHealthCheck       = "ai_health_check"
	OpEvidenceListSources = "ai_evidence_list_sources"
	OpEvidenceAddSource   = "ai_evidence_add_source"
	OpEvidenceBuildChunks = "ai_evidence_build_chunks"
	OpEvidenceListChunks  = "ai_evidence_list_chunks"
)

// SessionInfo describes the core service's view of the active workspace.
type SessionInfo struct {
	CurrentPath string   `json:"current_path"`
	RecentPaths []string `json:"recent_paths"`
}

// MigrationStatus reports schema migration state for a workspace path.
type MigrationStatus struct {
	LatestKnown string   `json:"latest_known"`
	Applied     []string `json:"applied"`
	Pending     []string `json:"pending"`
}

// Validate checks the response shape
func (m *MigrationStatus) Validate() error {
	if m.LatestKnown == "" {
		return errMissingField("latest_known")
	}
	return nil
}

// WorkspaceMeta is returned by workspace open/create.
type WorkspaceMeta struct {
	DBPath  string `json:"db_path"`
	IsEmpty bool   `json:"is_empty"`
}

// Validate checks the response shape
func (w *WorkspaceMeta) Validate() error {
	if w.DBPath == "" {
		return errMissingField("db_path")
	}
	return nil
}

// InitDBResult is returned by init_db.
type InitDBResult struct {
	DBPath string `json:"db_path"`
}

// Validate checks the response shape
func (r *InitDBResult) Validate() error {
	if r.DBPath == "" {
		return errMissingField("db_path")
	}
	return nil
}

// PathRequest addresses a workspace database file.
type PathRequest struct {
	Path string `json:"path"`
}

// IncidentListItem is a row in the incidents list.
type IncidentListItem struct {
	ID         string `json:"id"`
	ExternalID string `json:"external_id,omitempty"`
	Title      string `json:"title"`
	Severity   string `json:"severity,omitempty"`
}

// IncidentList is the incidents_list response.
type IncidentList struct {
	Incidents []IncidentListItem `json:"incidents"`
}

// TimelineEvent is a single event on an incident timeline.
type TimelineEvent struct {
	ID         string `json:"id"`
	IncidentID string `json:"incident_id"`
	Kind       string `json:"kind"`
	Timestamp  string `json:"ts"`
	Text       string `json:"text"`
}

// IncidentDetailRequest addresses a single incident.
type IncidentDetailRequest struct {
	IncidentID string `json:"incident_id"`
}

// IncidentDetail is the incident_detail response.
type IncidentDetail struct {
	Incident IncidentListItem `json:"incident"`
	Events   []TimelineEvent  `json:"events"`
}

// Validate checks the response shape
func (d *IncidentDetail) Validate() error {
	if d.Incident.ID == "" {
		return errMissingField("incident.id")
	}
	return nil
}

// DashboardPayload is the get_dashboard_v2 response.
type DashboardPayload struct {
	TotalIncidents int64            `json:"total_incidents"`
	OpenIncidents  int64            `json:"open_incidents"`
	BySeverity     map[string]int64 `json:"by_severity"`
	MTTRMinutes    float64          `json:"mttr_minutes"`
	MTTAMinutes    float64          `json:"mtta_minutes"`
}

// ReportResult is the generate_report_md response.
type ReportResult struct {
	Markdown string `json:"markdown"`
}

// ValidationWarning describes a data quality finding for an incident.
type ValidationWarning struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ValidationItem is one incident's entry in the validation report.
type ValidationItem struct {
	IncidentID string              `json:"incident_id"`
	Title      string              `json:"title"`
	Warnings   []ValidationWarning `json:"warnings"`
}

// ValidationReport is the validation_report response.
type ValidationReport struct {
	Items []ValidationItem `json:"items"`
}

// BackupCounts are the row counts recorded in a backup manifest.
type BackupCounts struct {
	Incidents      int64 `json:"incidents"`
	TimelineEvents int64 `json:"timeline_events"`
}

// BackupFileInfo identifies a hashed file inside a backup or dataset.
type BackupFileInfo struct {
	Filename string `json:"filename"`
	SHA256   string `json:"sha256"`
	Bytes    int64  `json:"bytes"`
}

// BackupManifest describes what a restore commit would apply.
type BackupManifest struct {
	ManifestVersion  int            `json:"manifest_version"`
	AppVersion       string         `json:"app_version"`
	ExportTime       string         `json:"export_time"`
	SchemaMigrations []string       `json:"schema_migrations"`
	Counts           BackupCounts   `json:"counts"`
	DB               BackupFileInfo `json:"db"`
}

// Validate checks the response shape
func (m *BackupManifest) Validate() error {
	if m.ManifestVersion == 0 {
		return errMissingField("manifest_version")
	}
	if m.DB.Filename == "" {
		return errMissingField("db.filename")
	}
	return nil
}

// BackupCreateRequest asks the core service to write a backup. An empty
// SourcePath snapshots the active workspace; a set one snapshots the
// database at that path, which lets a guarded switch back up its target
// before the target is ever opened.
type BackupCreateRequest struct {
	DestinationDir string `json:"destination_dir"`
	SourcePath     string `json:"source_path,omitempty"`
}

// BackupCreateResult is the backup_create response.
type BackupCreateResult struct {
	BackupDir string         `json:"backup_dir"`
	Manifest  BackupManifest `json:"manifest"`
}

// DirRequest addresses a backup or dataset directory.
type DirRequest struct {
	Dir string `json:"dir"`
}

// RestoreRequest is the restore_from_backup commit request.
type RestoreRequest struct {
	BackupDir      string `json:"backup_dir"`
	AllowOverwrite bool   `json:"allow_overwrite"`
}

// RestoreResult is the restore_from_backup response.
type RestoreResult struct {
	DBPath string       `json:"db_path"`
	Counts BackupCounts `json:"counts"`
}

// SanitizedCounts are row counts in a sanitized dataset manifest.
type SanitizedCounts struct {
	Incidents      int64 `json:"incidents"`
	TimelineEvents int64 `json:"timeline_events"`
	Warnings       int64 `json:"warnings"`
}

// SanitizedManifest describes a sanitized dataset on disk.
type SanitizedManifest struct {
	ManifestVersion int              `json:"manifest_version"`
	AppVersion      string           `json:"app_version"`
	ExportTime      string           `json:"export_time"`
	Counts          SanitizedCounts  `json:"counts"`
	Files           []BackupFileInfo `json:"files"`
}

// Validate checks the response shape
func (m *SanitizedManifest) Validate() error {
	if m.ManifestVersion == 0 {
		return errMissingField("manifest_version")
	}
	if len(m.Files) == 0 {
		return errMissingField("files")
	}
	return nil
}

// JiraCSVMapping names the CSV column carrying each incident field.
// Title is the only required mapping; an empty field leaves the
// corresponding column unread.
type JiraCSVMapping struct {
	ExternalID      string `json:"external_id,omitempty"`
	Title           string `json:"title"`
	Description     string `json:"description,omitempty"`
	Severity        string `json:"severity,omitempty"`
	DetectionSource string `json:"detection_source,omitempty"`
	Vendor          string `json:"vendor,omitempty"`
	Service         string `json:"service,omitempty"`
	ImpactPct       string `json:"impact_pct,omitempty"`
	StartTS         string `json:"start_ts,omitempty"`
	FirstObservedTS string `json:"first_observed_ts,omitempty"`
	AckTS           string `json:"ack_ts,omitempty"`
	MitigateTS      string `json:"mitigate_ts,omitempty"`
	ResolveTS       string `json:"resolve_ts,omitempty"`
}

// JiraImportRequest carries raw CSV text and its column mapping.
type JiraImportRequest struct {
	CSV     string         `json:"csv"`
	Mapping JiraCSVMapping `json:"mapping"`
}

// JiraImportSummary is the ingest_jira_csv and seed_demo_dataset
// response. Warnings carry per-row normalization notes, never
// row-level failures; a row that cannot be ingested is counted in
// Skipped instead.
type JiraImportSummary struct {
	Inserted int                 `json:"inserted"`
	Updated  int                 `json:"updated"`
	Skipped  int                 `json:"skipped"`
	Warnings []ValidationWarning `json:"warnings"`
}

// SanitizedExportResult is the export_sanitized_dataset response.
type SanitizedExportResult struct {
	DatasetDir string            `json:"dataset_dir"`
	Manifest   SanitizedManifest `json:"manifest"`
}

// ImportSummary is the import_sanitized_dataset response.
type ImportSummary struct {
	InsertedIncidents      int64               `json:"inserted_incidents"`
	InsertedTimelineEvents int64               `json:"inserted_timeline_events"`
	ImportWarnings         []ValidationWarning `json:"import_warnings"`
}

// HealthStatus is the ai_health_check response.
type HealthStatus struct {
	OK      bool   `json:"ok"`
	Message string `json:"message"`
}

// EvidenceSource is an input to the AI drafting pipeline.
type EvidenceSource struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Kind    string `json:"kind"`
	Bytes   int64  `json:"bytes"`
	AddedAt string `json:"added_at"`
}

// EvidenceSourceList is the ai_evidence_list_sources response.
type EvidenceSourceList struct {
	Sources []EvidenceSource `json:"sources"`
}

// AddSourceRequest registers a new evidence source.
type AddSourceRequest struct {
	Name string `json:"name"`
	Kind string `json:"kind"`
	Text string `json:"text"`
}

// EvidenceChunk is a citable text unit derived from a source.
type EvidenceChunk struct {
	ID       string `json:"id"`
	SourceID string `json:"source_id"`
	Seq      int    `json:"seq"`
	Text     string `json:"text"`
	Embedded bool   `json:"embedded"`
}

// EvidenceChunkList is the ai_evidence_list_chunks response.
type EvidenceChunkList struct {
	Chunks     []EvidenceChunk `json:"chunks"`
	IndexReady bool            `json:"index_ready"`
}

// BuildChunksResult is the ai_evidence_build_chunks response.
type BuildChunksResult struct {
	SourcesProcessed int  `json:"sources_processed"`
	ChunksCreated    int  `json:"chunks_created"`
	IndexReady       bool `json:"index_ready"`
}
