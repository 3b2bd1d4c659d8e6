package safety

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tildaslashalef/incidentdeck/internal/gateway"
	"github.com/tildaslashalef/incidentdeck/internal/loggy"
)

// fakeInvoker answers operations from canned JSON payloads or errors and
// records every call it receives.
type fakeInvoker struct {
	payloads map[string]string
	errs     map[string]error
	calls    []string
}

func (f *fakeInvoker) Call(_ context.Context, op string, _ any, out any) error {
	f.calls = append(f.calls, op)
	if err, ok := f.errs[op]; ok {
		return gateway.Normalize(err)
	}
	if payload, ok := f.payloads[op]; ok && out != nil {
		return json.Unmarshal([]byte(payload), out)
	}
	return nil
}

func newPreflight(invoker gateway.Invoker) *Preflight {
	return NewPreflight(gateway.NewClient(invoker), loggy.NewNoopLogger())
}

func TestCheckNoPendingNeverSuspends(t *testing.T) {
	// A non-empty latest_known alone must not trigger the guard.
	invoker := &fakeInvoker{payloads: map[string]string{
		gateway.OpWorkspaceMigrationState: `{"latest_known":"000002_evidence","applied":["000001_base","000002_evidence"],"pending":[]}`,
	}}

	state, err := newPreflight(invoker).Check(context.Background(), "/tmp/ws.sqlite", ActionOpenOrSwitch)
	require.NoError(t, err)
	assert.False(t, state.Suspended)
}

func TestCheckPendingSuspendsWithVerbatimLists(t *testing.T) {
	invoker := &fakeInvoker{payloads: map[string]string{
		gateway.OpWorkspaceMigrationState: `{"latest_known":"000002_evidence","applied":["000001_base"],"pending":["000002_evidence"]}`,
	}}

	state, err := newPreflight(invoker).Check(context.Background(), "/tmp/ws.sqlite", ActionOpenOrSwitch)
	require.NoError(t, err)
	require.True(t, state.Suspended)

	// The confirmation UI must show ground truth, not an approximation.
	assert.Equal(t, "000002_evidence", state.LatestKnownMigration)
	assert.Equal(t, []string{"000002_evidence"}, state.PendingMigrations)
	assert.Equal(t, "/tmp/ws.sqlite", state.TargetPath)
	assert.Equal(t, ActionOpenOrSwitch, state.Action)
}

func TestCheckDBNotFoundProceedsForInitialize(t *testing.T) {
	invoker := &fakeInvoker{errs: map[string]error{
		gateway.OpWorkspaceMigrationState: gateway.NewCommandError("WORKSPACE_DB_NOT_FOUND", "no database at path"),
	}}

	state, err := newPreflight(invoker).Check(context.Background(), "/tmp/new.sqlite", ActionInitialize)
	require.NoError(t, err, "first-run creation must proceed, not block")
	assert.False(t, state.Suspended)
}

func TestCheckUnexpectedErrorBlocks(t *testing.T) {
	invoker := &fakeInvoker{errs: map[string]error{
		gateway.OpWorkspaceMigrationState: gateway.NewCommandError("WORKSPACE_DB_LOCKED", "locked"),
	}}

	_, err := newPreflight(invoker).Check(context.Background(), "/tmp/ws.sqlite", ActionOpenOrSwitch)
	require.Error(t, err, "a failed preflight must block, never implicitly allow")
	assert.True(t, gateway.IsCode(err, "WORKSPACE_DB_LOCKED"))
}

func suspendedState() GuardState {
	state, _ := Transition(Clear(), PreflightFound{
		Action:               ActionOpenOrSwitch,
		TargetPath:           "/tmp/ws.sqlite",
		LatestKnownMigration: "000002_evidence",
		PendingMigrations:    []string{"000002_evidence"},
	})
	return state
}

func TestTransitionProceedClearsThenRuns(t *testing.T) {
	state := suspendedState()

	state, effect := Transition(state, ProceedChosen{})
	assert.False(t, state.Suspended, "guard must be cleared before the action is re-issued")
	assert.Equal(t, EffectRunAction, effect)
}

func TestTransitionDoubleProceedCoalesced(t *testing.T) {
	state := suspendedState()

	state, effect := Transition(state, ProceedChosen{})
	require.Equal(t, EffectRunAction, effect)

	// A second Proceed (e.g. double-click) lands on the cleared state.
	state, effect = Transition(state, ProceedChosen{})
	assert.False(t, state.Suspended)
	assert.Equal(t, EffectNone, effect, "re-entrant Proceed must not re-issue the action")
}

func TestTransitionCancelAbandons(t *testing.T) {
	state, effect := Transition(suspendedState(), CancelChosen{})
	assert.False(t, state.Suspended)
	assert.Equal(t, EffectNone, effect)
}

func TestTransitionBackupFirstLeavesGuardSuspended(t *testing.T) {
	state, effect := Transition(suspendedState(), BackupFirstChosen{})
	assert.True(t, state.Suspended, "the decision remains outstanding")
	assert.Equal(t, EffectOpenBackup, effect)
}

func TestTransitionDuplicatePreflightIgnoredWhileSuspended(t *testing.T) {
	state := suspendedState()

	next, effect := Transition(state, PreflightFound{
		Action:            ActionInitialize,
		TargetPath:        "/tmp/other.sqlite",
		PendingMigrations: []string{"000003_later"},
	})
	assert.Equal(t, state, next)
	assert.Equal(t, EffectNone, effect)
}

func TestTransitionEventsOnClearStateAreNoOps(t *testing.T) {
	for _, ev := range []GuardEvent{ProceedChosen{}, CancelChosen{}, BackupFirstChosen{}} {
		state, effect := Transition(Clear(), ev)
		assert.False(t, state.Suspended)
		assert.Equal(t, EffectNone, effect)
	}
}
