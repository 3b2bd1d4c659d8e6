package localcore

import "github.com/tildaslashalef/incidentdeck/internal/gateway"

// Error helpers for the stable codes the client branches on. Codes match
// the remote core service exactly; the wrapping shape is always
// gateway.CommandError.

func errNoWorkspace() *gateway.CommandError {
	return gateway.NewCommandError("WORKSPACE_DB_NOT_OPEN", "No workspace database is open")
}

func errDBNotFound(path string) *gateway.CommandError {
	return gateway.NewCommandError("WORKSPACE_DB_NOT_FOUND", "No database exists at path").
		WithDetails(path)
}

func errOpenFailed(err error) *gateway.CommandError {
	return gateway.NewCommandError("WORKSPACE_OPEN_FAILED", "Failed to open workspace database").
		WithDetails(err.Error()).
		WithRetryable(true)
}

func errCreateFailed(err error) *gateway.CommandError {
	return gateway.NewCommandError("WORKSPACE_CREATE_FAILED", "Failed to create workspace database").
		WithDetails(err.Error())
}

func errMigrationFailed(err error) *gateway.CommandError {
	return gateway.NewCommandError("WORKSPACE_MIGRATION_FAILED", "Failed to apply schema migrations").
		WithDetails(err.Error())
}

func errLocked(err error) *gateway.CommandError {
	return gateway.NewCommandError("WORKSPACE_DB_LOCKED", "Workspace database is locked by another process").
		WithDetails(err.Error()).
		WithRetryable(true)
}

func errQueryFailed(code string, err error) *gateway.CommandError {
	return gateway.NewCommandError(code, "Workspace query failed").
		WithDetails(err.Error())
}
