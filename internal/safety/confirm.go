package safety

import (
	"context"
	"errors"
	"fmt"

	"github.com/tildaslashalef/incidentdeck/internal/gateway"
	"github.com/tildaslashalef/incidentdeck/internal/loggy"
)

// Client-side precondition rejections. These never reach the network.
var (
	// ErrInspectRequired means no successful inspect exists for the
	// currently selected source location.
	ErrInspectRequired = errors.New("inspect the source before committing")

	// ErrConfirmRequired means the explicit overwrite acknowledgement has
	// not been given for the currently selected source location.
	ErrConfirmRequired = errors.New("overwrite must be explicitly acknowledged before committing")
)

// OperationKind distinguishes the two destructive flows sharing this protocol.
type OperationKind int

const (
	// KindRestore overwrites the active workspace from a backup
	KindRestore OperationKind = iota
	// KindSanitizedImport inserts a sanitized dataset into an empty workspace
	KindSanitizedImport
)

func (k OperationKind) String() string {
	switch k {
	case KindRestore:
		return "restore"
	case KindSanitizedImport:
		return "sanitizedImport"
	default:
		return "unknown"
	}
}

// PendingOperation is the shared two-phase state for backup restore and
// sanitized dataset import: inspect first, then commit only with the
// manifest present and, for restore, an explicit acknowledgement taken
// after the manifest was shown.
//
// The value is immutable; transitions return a new value so callers can
// hold it wherever their UI keeps state.
type PendingOperation struct {
	Kind           OperationKind
	SourceLocation string

	// BackupManifest is set by a successful inspect when Kind is KindRestore.
	BackupManifest *gateway.BackupManifest

	// DatasetManifest is set by a successful inspect when Kind is KindSanitizedImport.
	DatasetManifest *gateway.SanitizedManifest

	// ConfirmedOverwrite is set only by an explicit user action, and reset
	// whenever SourceLocation changes.
	ConfirmedOverwrite bool
}

// NewPendingOperation starts a fresh flow of the given kind
func NewPendingOperation(kind OperationKind) PendingOperation {
	return PendingOperation{Kind: kind}
}

// SelectSource records the chosen source location. Selecting a different
// location invalidates any prior manifest and acknowledgement, forcing a
// re-inspect before commit becomes available again.
func (p PendingOperation) SelectSource(location string) PendingOperation {
	if location == p.SourceLocation {
		return p
	}
	return PendingOperation{
		Kind:           p.Kind,
		SourceLocation: location,
	}
}

// Inspected records a successful inspect of the current source.
func (p PendingOperation) Inspected(backup *gateway.BackupManifest, dataset *gateway.SanitizedManifest) PendingOperation {
	p.BackupManifest = backup
	p.DatasetManifest = dataset
	return p
}

// Acknowledge records the explicit overwrite acknowledgement. It has no
// effect before a manifest has been shown, so the acknowledgement can
// never precede the information it acknowledges.
func (p PendingOperation) Acknowledge(confirmed bool) PendingOperation {
	if !p.inspected() {
		return p
	}
	p.ConfirmedOverwrite = confirmed
	return p
}

func (p PendingOperation) inspected() bool {
	switch p.Kind {
	case KindRestore:
		return p.BackupManifest != nil
	case KindSanitizedImport:
		return p.DatasetManifest != nil
	default:
		return false
	}
}

// CanCommit reports whether the commit call may be issued. A nil return
// means the client-side gate is satisfied; the core service still
// enforces its own preconditions (e.g. empty target for sanitized import).
func (p PendingOperation) CanCommit() error {
	if p.SourceLocation == "" || !p.inspected() {
		return ErrInspectRequired
	}
	if p.Kind == KindRestore && !p.ConfirmedOverwrite {
		return ErrConfirmRequired
	}
	return nil
}

// CommitOutcome carries the result of whichever commit ran.
type CommitOutcome struct {
	Restore *gateway.RestoreResult
	Import  *gateway.ImportSummary
}

// Transfer executes the inspect and commit phases over the gateway.
type Transfer struct {
	client *gateway.Client
	logger *loggy.Logger
}

// NewTransfer creates a transfer executor
func NewTransfer(client *gateway.Client, logger *loggy.Logger) *Transfer {
	return &Transfer{client: client, logger: logger}
}

// Inspect performs the read-only phase for the current source and returns
// the state advanced with the manifest. Inspect never mutates anything on
// the core-service side and is idempotent.
func (t *Transfer) Inspect(ctx context.Context, op PendingOperation) (PendingOperation, error) {
	if op.SourceLocation == "" {
		return op, ErrInspectRequired
	}

	switch op.Kind {
	case KindRestore:
		manifest, err := t.client.InspectBackup(ctx, op.SourceLocation)
		if err != nil {
			return op, err
		}
		return op.Inspected(manifest, nil), nil

	case KindSanitizedImport:
		manifest, err := t.client.InspectSanitized(ctx, op.SourceLocation)
		if err != nil {
			return op, err
		}
		return op.Inspected(nil, manifest), nil

	default:
		return op, fmt.Errorf("unknown operation kind %d", op.Kind)
	}
}

// Commit issues the destructive call. The client-side gate is checked
// first; a rejection here never reaches the network. A failed commit does
// not alter the pending state: in particular the acknowledgement stays
// as the user left it, so a simple retry remains possible.
func (t *Transfer) Commit(ctx context.Context, op PendingOperation) (*CommitOutcome, error) {
	if err := op.CanCommit(); err != nil {
		return nil, err
	}

	t.logger.Info("Committing destructive operation",
		"kind", op.Kind.String(),
		"source", op.SourceLocation,
	)

	switch op.Kind {
	case KindRestore:
		result, err := t.client.RestoreFromBackup(ctx, op.SourceLocation, op.ConfirmedOverwrite)
		if err != nil {
			return nil, err
		}
		return &CommitOutcome{Restore: result}, nil

	case KindSanitizedImport:
		summary, err := t.client.ImportSanitized(ctx, op.SourceLocation)
		if err != nil {
			return nil, err
		}
		return &CommitOutcome{Import: summary}, nil

	default:
		return nil, fmt.Errorf("unknown operation kind %d", op.Kind)
	}
}
