// Package safety holds the client-side gates that stand between user
// actions and irreversible operations: the migration preflight guard and
// the two-phase confirmation protocol for destructive commits. State
// machines here are pure; the network half lives in thin wrappers over
// the gateway client.
package safety

import (
	"context"

	"github.com/tildaslashalef/incidentdeck/internal/gateway"
	"github.com/tildaslashalef/incidentdeck/internal/loggy"
)

// PendingAction identifies which operation a suspended guard will re-issue.
type PendingAction int

const (
	// ActionInitialize creates the default workspace database
	ActionInitialize PendingAction = iota
	// ActionOpenOrSwitch opens or switches to a workspace at a chosen path
	ActionOpenOrSwitch
)

func (a PendingAction) String() string {
	switch a {
	case ActionInitialize:
		return "initialize"
	case ActionOpenOrSwitch:
		return "openOrSwitch"
	default:
		return "unknown"
	}
}

// GuardState is either Clear (zero value) or Suspended with the verbatim
// migration lists from the preflight query. It is transient UI state and
// is never persisted.
type GuardState struct {
	Suspended bool

	// Populated only while Suspended.
	Action               PendingAction
	TargetPath           string
	LatestKnownMigration string
	PendingMigrations    []string
}

// Clear returns the clear guard state
func Clear() GuardState {
	return GuardState{}
}

// GuardEvent is a user decision or preflight outcome applied to the guard.
type GuardEvent interface{ guardEvent() }

// PreflightFound reports a non-empty pending-migration list for a target.
type PreflightFound struct {
	Action               PendingAction
	TargetPath           string
	LatestKnownMigration string
	PendingMigrations    []string
}

// ProceedChosen is the user's informed decision to run the migrations.
type ProceedChosen struct{}

// CancelChosen abandons the suspended action with no side effects.
type CancelChosen struct{}

// BackupFirstChosen routes the user to the backup feature, leaving the
// decision outstanding.
type BackupFirstChosen struct{}

func (PreflightFound) guardEvent()    {}
func (ProceedChosen) guardEvent()     {}
func (CancelChosen) guardEvent()      {}
func (BackupFirstChosen) guardEvent() {}

// GuardEffect tells the caller what to do after a transition.
type GuardEffect int

const (
	// EffectNone requires no action
	EffectNone GuardEffect = iota
	// EffectRunAction re-issues the original action, skipping preflight
	EffectRunAction
	// EffectOpenBackup routes the user to the backup feature
	EffectOpenBackup
)

// Transition applies an event to the guard state. It is pure: callers own
// the state value and decide where it lives. Proceed clears the guard
// before the effect runs, so a second Proceed delivered from the same
// suspended view lands on a Clear state and produces no effect.
func Transition(state GuardState, event GuardEvent) (GuardState, GuardEffect) {
	switch ev := event.(type) {
	case PreflightFound:
		if state.Suspended {
			// Already awaiting a decision; ignore duplicate preflights.
			return state, EffectNone
		}
		if len(ev.PendingMigrations) == 0 {
			return Clear(), EffectNone
		}
		return GuardState{
			Suspended:            true,
			Action:               ev.Action,
			TargetPath:           ev.TargetPath,
			LatestKnownMigration: ev.LatestKnownMigration,
			PendingMigrations:    ev.PendingMigrations,
		}, EffectNone

	case ProceedChosen:
		if !state.Suspended {
			return state, EffectNone
		}
		return Clear(), EffectRunAction

	case CancelChosen:
		return Clear(), EffectNone

	case BackupFirstChosen:
		if !state.Suspended {
			return state, EffectNone
		}
		return state, EffectOpenBackup

	default:
		return state, EffectNone
	}
}

// Preflight runs the read-only migration check that precedes workspace
// open/create operations.
type Preflight struct {
	client *gateway.Client
	logger *loggy.Logger
}

// NewPreflight creates a preflight checker
func NewPreflight(client *gateway.Client, logger *loggy.Logger) *Preflight {
	return &Preflight{client: client, logger: logger}
}

// Check queries migration status for targetPath. It returns a Suspended
// guard when migrations are pending, Clear when the path is safe to act
// on directly, and an error when the preflight itself failed. A failed
// preflight blocks the action, it never implicitly allows it.
//
// WORKSPACE_DB_NOT_FOUND is not a guard condition: no database means
// first-run creation may proceed.
func (p *Preflight) Check(ctx context.Context, targetPath string, action PendingAction) (GuardState, error) {
	status, err := p.client.MigrationStatus(ctx, targetPath)
	if err != nil {
		if gateway.IsCode(err, "WORKSPACE_DB_NOT_FOUND") {
			p.logger.Debug("Preflight found no database, allowing first-run creation",
				"path", targetPath,
				"action", action.String(),
			)
			return Clear(), nil
		}
		p.logger.Warn("Preflight failed, blocking action",
			"path", targetPath,
			"action", action.String(),
			"error", err,
		)
		return GuardState{}, err
	}

	if len(status.Pending) == 0 {
		return Clear(), nil
	}

	p.logger.Info("Preflight found pending migrations, suspending action",
		"path", targetPath,
		"action", action.String(),
		"pending", len(status.Pending),
	)

	state, _ := Transition(Clear(), PreflightFound{
		Action:               action,
		TargetPath:           targetPath,
		LatestKnownMigration: status.LatestKnown,
		PendingMigrations:    status.Pending,
	})
	return state, nil
}
