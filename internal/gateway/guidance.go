package gateway

import "fmt"

// guidance maps a subset of stable core-service error codes to human
// guidance text. Unmapped codes fall back to "CODE: message".
var guidance = map[string]string{
	"WORKSPACE_DB_NOT_FOUND":     "No workspace database exists at this path. Create a new workspace, or pick an existing file.",
	"WORKSPACE_DB_LOCKED":        "The workspace file is locked by another process. Close the other instance and try again.",
	"WORKSPACE_INVALID_PATH":     "The workspace path must point to a database file, not a directory.",
	"WORKSPACE_OPEN_FAILED":      "The workspace database could not be opened. Check the file is readable and not corrupted.",
	"WORKSPACE_CREATE_FAILED":    "A workspace could not be created at this path. Check the location is writable and no file already exists there.",
	"WORKSPACE_MIGRATION_FAILED": "The workspace schema migration failed. Restore from a backup before retrying.",

	"DB_RESTORE_CONFIRM_REQUIRED":          "Restoring overwrites the current workspace. Confirm the overwrite to proceed.",
	"DB_RESTORE_HASH_MISMATCH":             "The backup's database file does not match its manifest hash. The backup may be corrupted.",
	"DB_RESTORE_MANIFEST_VERSION_MISMATCH": "This backup was written by an incompatible version and cannot be restored.",

	"INGEST_SANITIZED_DB_NOT_EMPTY":              "Sanitized datasets can only be imported into an empty workspace. Create a fresh workspace first.",
	"INGEST_SANITIZED_MANIFEST_HASH_MISMATCH":    "A dataset file does not match its manifest hash. Re-export the dataset and try again.",
	"INGEST_SANITIZED_MANIFEST_VERSION_MISMATCH": "This dataset was exported by an incompatible version.",

	"AI_OLLAMA_UNHEALTHY":  "The local AI service is not reachable. Start Ollama and check the endpoint configuration.",
	"AI_INDEX_NOT_READY":   "The evidence index has not been built yet. Build chunks before searching.",
	"AI_CITATION_REQUIRED": "Select at least one citation before drafting.",

	CodeSchemaViolation: "The core service answered in an unexpected shape. This usually means a version mismatch between client and service.",
	CodeTransportFailed: "The core service could not be reached. Check that it is running.",
}

// Guidance returns actionable text for an error. CommandErrors with a
// mapped code get curated guidance; everything else falls back to a
// "CODE: message" rendering so the user always sees something readable.
func Guidance(err error) string {
	if err == nil {
		return ""
	}

	cmdErr, ok := AsCommandError(err)
	if !ok {
		return err.Error()
	}

	if text, found := guidance[cmdErr.Code]; found {
		return text
	}
	return fmt.Sprintf("%s: %s", cmdErr.Code, cmdErr.Message)
}
