package localcore

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/tildaslashalef/incidentdeck/internal/gateway"
)

// Roundtrip implements gateway.Transport over the in-process core:
// decode the request, run the operation, encode the result. Errors are
// already CommandError values, so normalization upstream is a pass-through.
func (c *Core) Roundtrip(ctx context.Context, op string, req any) (json.RawMessage, error) {
	switch op {
	case gateway.OpWorkspaceGetCurrent:
		return marshal(c.GetCurrentSession(ctx))

	case gateway.OpWorkspaceMigrationState:
		var r gateway.PathRequest
		if err := decodeRequest(req, &r); err != nil {
			return nil, err
		}
		return marshal(c.MigrationStatus(ctx, r.Path))

	case gateway.OpWorkspaceCreate:
		var r gateway.PathRequest
		if err := decodeRequest(req, &r); err != nil {
			return nil, err
		}
		return marshal(c.CreateWorkspace(ctx, r.Path))

	case gateway.OpWorkspaceOpen:
		var r gateway.PathRequest
		if err := decodeRequest(req, &r); err != nil {
			return nil, err
		}
		return marshal(c.OpenWorkspace(ctx, r.Path))

	case gateway.OpInitDB:
		return marshal(c.InitDB(ctx))

	case gateway.OpIncidentsList:
		return marshal(c.ListIncidents(ctx))

	case gateway.OpIncidentDetail:
		var r gateway.IncidentDetailRequest
		if err := decodeRequest(req, &r); err != nil {
			return nil, err
		}
		return marshal(c.IncidentDetail(ctx, r.IncidentID))

	case gateway.OpDashboardV2:
		return marshal(c.Dashboard(ctx))

	case gateway.OpGenerateReport:
		return marshal(c.GenerateReport(ctx))

	case gateway.OpValidationReport:
		return marshal(c.ValidationReport(ctx))

	case gateway.OpBackupCreate:
		var r gateway.BackupCreateRequest
		if err := decodeRequest(req, &r); err != nil {
			return nil, err
		}
		return marshal(c.CreateBackup(ctx, r.DestinationDir, r.SourcePath))

	case gateway.OpBackupInspect:
		var r gateway.DirRequest
		if err := decodeRequest(req, &r); err != nil {
			return nil, err
		}
		return marshal(c.InspectBackup(ctx, r.Dir))

	case gateway.OpRestoreFromBackup:
		var r gateway.RestoreRequest
		if err := decodeRequest(req, &r); err != nil {
			return nil, err
		}
		return marshal(c.RestoreFromBackup(ctx, r.BackupDir, r.AllowOverwrite))

	case gateway.OpExportSanitized:
		var r gateway.DirRequest
		if err := decodeRequest(req, &r); err != nil {
			return nil, err
		}
		return marshal(c.ExportSanitized(ctx, r.Dir))

	case gateway.OpInspectSanitized:
		var r gateway.DirRequest
		if err := decodeRequest(req, &r); err != nil {
			return nil, err
		}
		return marshal(c.InspectSanitized(ctx, r.Dir))

	case gateway.OpImportSanitized:
		var r gateway.DirRequest
		if err := decodeRequest(req, &r); err != nil {
			return nil, err
		}
		return marshal(c.ImportSanitized(ctx, r.Dir))

	case gateway.OpIngestJiraCSV:
		var r gateway.JiraImportRequest
		if err := decodeRequest(req, &r); err != nil {
			return nil, err
		}
		return marshal(c.ImportJiraCSV(ctx, &r))

	case gateway.OpSeedDemoData:
		return marshal(c.SeedDemoData(ctx))

	case gateway.OpAIHealthCheck:
		return marshal(c.AIHealthCheck(ctx))

	case gateway.OpEvidenceListSources:
		return marshal(c.ListEvidenceSources(ctx))

	case gateway.OpEvidenceAddSource:
		var r gateway.AddSourceRequest
		if err := decodeRequest(req, &r); err != nil {
			return nil, err
		}
		return marshal(c.AddEvidenceSource(ctx, &r))

	case gateway.OpEvidenceBuildChunks:
		return marshal(c.BuildEvidenceChunks(ctx))

	case gateway.OpEvidenceListChunks:
		return marshal(c.ListEvidenceChunks(ctx))

	default:
		return nil, gateway.NewCommandError("UNKNOWN_OPERATION", fmt.Sprintf("unknown operation %q", op))
	}
}

// decodeRequest round-trips req through JSON into the operation's typed
// request, matching what the wire transport would deliver.
func decodeRequest(req any, out any) error {
	if req == nil {
		return gateway.NewCommandError("REQUEST_DECODE_FAILED", "operation requires a request body")
	}
	data, err := json.Marshal(req)
	if err != nil {
		return gateway.NewCommandError("REQUEST_DECODE_FAILED", "failed to encode request").
			WithDetails(err.Error())
	}
	if err := json.Unmarshal(data, out); err != nil {
		return gateway.NewCommandError("REQUEST_DECODE_FAILED", "failed to decode request").
			WithDetails(err.Error())
	}
	return nil
}

// marshal encodes a handler result, passing its error through untouched.
func marshal[T any](result T, err error) (json.RawMessage, error) {
	if err != nil {
		return nil, err
	}
	data, mErr := json.Marshal(result)
	if mErr != nil {
		return nil, gateway.NewCommandError("RESPONSE_ENCODE_FAILED", "failed to encode response").
			WithDetails(mErr.Error())
	}
	return data, nil
}
