package safety

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tildaslashalef/incidentdeck/internal/gateway"
	"github.com/tildaslashalef/incidentdeck/internal/loggy"
)

const backupManifestJSON = `{
	"manifest_version": 1,
	"app_version": "0.4.0",
	"export_time": "2026-08-30T10:00:00Z",
	"schema_migrations": ["000001_base", "000002_evidence"],
	"counts": {"incidents": 12, "timeline_events": 80},
	"db": {"filename": "incidentreview.sqlite", "sha256": "ab12", "bytes": 4096}
}`

const datasetManifestJSON = `{
	"manifest_version": 1,
	"export_time": "2026-08-30T10:00:00Z",
	"counts": {"incidents": 3, "timeline_events": 9, "warnings": 1},
	"files": [
		{"filename": "incidents.json", "sha256": "cd34", "bytes": 1024},
		{"filename": "timeline_events.json", "sha256": "ef56", "bytes": 2048},
		{"filename": "warnings.json", "sha256": "0078", "bytes": 128}
	]
}`

func newTransfer(invoker gateway.Invoker) *Transfer {
	return NewTransfer(gateway.NewClient(invoker), loggy.NewNoopLogger())
}

func TestSelectingNewSourceResetsAcknowledgement(t *testing.T) {
	invoker := &fakeInvoker{payloads: map[string]string{
		gateway.OpBackupInspect: backupManifestJSON,
	}}
	transfer := newTransfer(invoker)

	op := NewPendingOperation(KindRestore).SelectSource("/backups/a")
	op, err := transfer.Inspect(context.Background(), op)
	require.NoError(t, err)
	op = op.Acknowledge(true)
	require.NoError(t, op.CanCommit())

	// Switching to a different backup invalidates everything learned
	// about the previous one.
	op = op.SelectSource("/backups/b")
	assert.False(t, op.ConfirmedOverwrite)
	assert.Nil(t, op.BackupManifest)
	assert.ErrorIs(t, op.CanCommit(), ErrInspectRequired)
}

func TestStaleAcknowledgementRejectedBeforeNetwork(t *testing.T) {
	invoker := &fakeInvoker{payloads: map[string]string{
		gateway.OpBackupInspect: backupManifestJSON,
	}}
	transfer := newTransfer(invoker)

	op := NewPendingOperation(KindRestore).SelectSource("/backups/a")
	op, err := transfer.Inspect(context.Background(), op)
	require.NoError(t, err)
	op = op.Acknowledge(true).SelectSource("/backups/b")

	inspectCalls := len(invoker.calls)
	_, err = transfer.Commit(context.Background(), op)
	require.ErrorIs(t, err, ErrInspectRequired)
	assert.Len(t, invoker.calls, inspectCalls, "a rejected commit must not issue any call")
}

func TestRestoreRequiresExplicitAcknowledgement(t *testing.T) {
	invoker := &fakeInvoker{payloads: map[string]string{
		gateway.OpBackupInspect: backupManifestJSON,
	}}
	transfer := newTransfer(invoker)

	op := NewPendingOperation(KindRestore).SelectSource("/backups/a")
	op, err := transfer.Inspect(context.Background(), op)
	require.NoError(t, err)

	_, err = transfer.Commit(context.Background(), op)
	assert.ErrorIs(t, err, ErrConfirmRequired)
	assert.NotContains(t, invoker.calls, gateway.OpRestoreFromBackup)
}

func TestAcknowledgeBeforeInspectIsIgnored(t *testing.T) {
	op := NewPendingOperation(KindRestore).SelectSource("/backups/a").Acknowledge(true)
	assert.False(t, op.ConfirmedOverwrite, "the acknowledgement cannot precede the manifest it acknowledges")
}

func TestSanitizedImportCommitsWithoutAcknowledgement(t *testing.T) {
	invoker := &fakeInvoker{payloads: map[string]string{
		gateway.OpInspectSanitized: datasetManifestJSON,
		gateway.OpImportSanitized:  `{"inserted_incidents": 3, "inserted_timeline_events": 9}`,
	}}
	transfer := newTransfer(invoker)

	op := NewPendingOperation(KindSanitizedImport).SelectSource("/exports/a")
	op, err := transfer.Inspect(context.Background(), op)
	require.NoError(t, err)

	// Import targets an empty workspace; the core service enforces that,
	// so no overwrite acknowledgement applies.
	outcome, err := transfer.Commit(context.Background(), op)
	require.NoError(t, err)
	require.NotNil(t, outcome.Import)
	assert.Equal(t, int64(3), outcome.Import.InsertedIncidents)
}

func TestFailedCommitPreservesAcknowledgement(t *testing.T) {
	invoker := &fakeInvoker{
		payloads: map[string]string{
			gateway.OpBackupInspect: backupManifestJSON,
		},
		errs: map[string]error{
			gateway.OpRestoreFromBackup: gateway.NewCommandError("WORKSPACE_DB_LOCKED", "locked"),
		},
	}
	transfer := newTransfer(invoker)

	op := NewPendingOperation(KindRestore).SelectSource("/backups/a")
	op, err := transfer.Inspect(context.Background(), op)
	require.NoError(t, err)
	op = op.Acknowledge(true)

	_, err = transfer.Commit(context.Background(), op)
	require.Error(t, err)

	// The user does not have to re-confirm just to retry.
	assert.True(t, op.ConfirmedOverwrite)
	require.NoError(t, op.CanCommit())
}

func TestInspectIsIdempotent(t *testing.T) {
	invoker := &fakeInvoker{payloads: map[string]string{
		gateway.OpBackupInspect: backupManifestJSON,
	}}
	transfer := newTransfer(invoker)

	op := NewPendingOperation(KindRestore).SelectSource("/backups/a")
	op, err := transfer.Inspect(context.Background(), op)
	require.NoError(t, err)
	first := op.BackupManifest

	op, err = transfer.Inspect(context.Background(), op)
	require.NoError(t, err)
	assert.Equal(t, first, op.BackupManifest)
}

func TestInspectWithoutSourceRejected(t *testing.T) {
	invoker := &fakeInvoker{}
	_, err := newTransfer(invoker).Inspect(context.Background(), NewPendingOperation(KindRestore))
	assert.ErrorIs(t, err, ErrInspectRequired)
	assert.Empty(t, invoker.calls)
}
