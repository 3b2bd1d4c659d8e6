package gateway

import "context"

// Client provides typed wrappers over the named core-service operations.
type Client struct {
	invoker Invoker
}

// NewClient creates a typed client over any Invoker
func NewClient(invoker Invoker) *Client {
	return &Client{invoker: invoker}
}

// Invoker exposes the underlying invoker for components that compose
// their own call sequences.
func (c *Client) Invoker() Invoker {
	return c.invoker
}

// GetCurrentSession queries the core service for current session info.
func (c *Client) GetCurrentSession(ctx context.Context) (*SessionInfo, error) {
	var out SessionInfo
	if err := c.invoker.Call(ctx, OpWorkspaceGetCurrent, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// MigrationStatus queries pending-migration state for a workspace path.
func (c *Client) MigrationStatus(ctx context.Context, path string) (*MigrationStatus, error) {
	var out MigrationStatus
	if err := c.invoker.Call(ctx, OpWorkspaceMigrationState, &PathRequest{Path: path}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateWorkspace creates a new workspace database at path.
func (c *Client) CreateWorkspace(ctx context.Context, path string) (*WorkspaceMeta, error) {
	var out WorkspaceMeta
	if err := c.invoker.Call(ctx, OpWorkspaceCreate, &PathRequest{Path: path}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// OpenWorkspace opens an existing workspace database at path.
func (c *Client) OpenWorkspace(ctx context.Context, path string) (*WorkspaceMeta, error) {
	var out WorkspaceMeta
	if err := c.invoker.Call(ctx, OpWorkspaceOpen, &PathRequest{Path: path}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// InitDB creates or opens the default workspace database.
func (c *Client) InitDB(ctx context.Context) (*InitDBResult, error) {
	var out InitDBResult
	if err := c.invoker.Call(ctx, OpInitDB, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListIncidents lists incidents in the active workspace.
func (c *Client) ListIncidents(ctx context.Context) (*IncidentList, error) {
	var out IncidentList
	if err := c.invoker.Call(ctx, OpIncidentsList, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// IncidentDetail fetches one incident with its timeline.
func (c *Client) IncidentDetail(ctx context.Context, incidentID string) (*IncidentDetail, error) {
	var out IncidentDetail
	if err := c.invoker.Call(ctx, OpIncidentDetail, &IncidentDetailRequest{IncidentID: incidentID}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Dashboard fetches the dashboard payload for the active workspace.
func (c *Client) Dashboard(ctx context.Context) (*DashboardPayload, error) {
	var out DashboardPayload
	if err := c.invoker.Call(ctx, OpDashboardV2, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GenerateReport renders the incident review report as markdown.
func (c *Client) GenerateReport(ctx context.Context) (*ReportResult, error) {
	var out ReportResult
	if err := c.invoker.Call(ctx, OpGenerateReport, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ValidationReport fetches data quality warnings for all incidents.
func (c *Client) ValidationReport(ctx context.Context) (*ValidationReport, error) {
	var out ValidationReport
	if err := c.invoker.Call(ctx, OpValidationReport, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateBackup writes a backup under destinationDir. sourcePath selects
// the workspace file to snapshot; empty means the active workspace.
func (c *Client) CreateBackup(ctx context.Context, destinationDir, sourcePath string) (*BackupCreateResult, error) {
	var out BackupCreateResult
	if err := c.invoker.Call(ctx, OpBackupCreate, &BackupCreateRequest{DestinationDir: destinationDir, SourcePath: sourcePath}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// InspectBackup reads a backup manifest without mutating anything.
func (c *Client) InspectBackup(ctx context.Context, backupDir string) (*BackupManifest, error) {
	var out BackupManifest
	if err := c.invoker.Call(ctx, OpBackupInspect, &DirRequest{Dir: backupDir}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// RestoreFromBackup commits a restore. The caller is responsible for the
// confirmation protocol; the core service independently rejects commits
// without allowOverwrite.
func (c *Client) RestoreFromBackup(ctx context.Context, backupDir string, allowOverwrite bool) (*RestoreResult, error) {
	var out RestoreResult
	req := &RestoreRequest{BackupDir: backupDir, AllowOverwrite: allowOverwrite}
	if err := c.invoker.Call(ctx, OpRestoreFromBackup, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ExportSanitized writes a sanitized dataset under destinationDir.
func (c *Client) ExportSanitized(ctx context.Context, destinationDir string) (*SanitizedExportResult, error) {
	var out SanitizedExportResult
	if err := c.invoker.Call(ctx, OpExportSanitized, &DirRequest{Dir: destinationDir}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// InspectSanitized reads a sanitized dataset manifest without mutating anything.
func (c *Client) InspectSanitized(ctx context.Context, datasetDir string) (*SanitizedManifest, error) {
	var out SanitizedManifest
	if err := c.invoker.Call(ctx, OpInspectSanitized, &DirRequest{Dir: datasetDir}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ImportSanitized commits a sanitized dataset import into the active,
// asserted-empty workspace.
func (c *Client) ImportSanitized(ctx context.Context, datasetDir string) (*ImportSummary, error) {
	var out ImportSummary
	if err := c.invoker.Call(ctx, OpImportSanitized, &DirRequest{Dir: datasetDir}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ImportJiraCSV ingests incidents from Jira CSV text into the active
// workspace, upserting by external id and then fingerprint.
func (c *Client) ImportJiraCSV(ctx context.Context, req *JiraImportRequest) (*JiraImportSummary, error) {
	var out JiraImportSummary
	if err := c.invoker.Call(ctx, OpIngestJiraCSV, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SeedDemoData loads the deterministic demo incidents into the active
// workspace. Safe to run twice; the second run updates in place.
func (c *Client) SeedDemoData(ctx context.Context) (*JiraImportSummary, error) {
	var out JiraImportSummary
	if err := c.invoker.Call(ctx, OpSeedDemoData, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// AIHealthCheck probes the AI backend.
func (c *Client) AIHealthCheck(ctx context.Context) (*HealthStatus, error) {
	var out HealthStatus
	if err := c.invoker.Call(ctx, OpAIHealthCheck, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListEvidenceSources lists registered evidence sources.
func (c *Client) ListEvidenceSources(ctx context.Context) (*EvidenceSourceList, error) {
	var out EvidenceSourceList
	if err := c.invoker.Call(ctx, OpEvidenceListSources, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// AddEvidenceSource registers a new evidence source.
func (c *Client) AddEvidenceSource(ctx context.Context, req *AddSourceRequest) (*EvidenceSource, error) {
	var out EvidenceSource
	if err := c.invoker.Call(ctx, OpEvidenceAddSource, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// BuildEvidenceChunks chunks all sources and builds the citation index.
func (c *Client) BuildEvidenceChunks(ctx context.Context) (*BuildChunksResult, error) {
	var out BuildChunksResult
	if err := c.invoker.Call(ctx, OpEvidenceBuildChunks, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListEvidenceChunks lists built chunks and whether the index is ready.
func (c *Client) ListEvidenceChunks(ctx context.Context) (*EvidenceChunkList, error) {
	var out EvidenceChunkList
	if err := c.invoker.Call(ctx, OpEvidenceListChunks, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
