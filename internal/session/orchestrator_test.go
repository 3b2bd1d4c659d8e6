package session

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tildaslashalef/incidentdeck/internal/gateway"
	"github.com/tildaslashalef/incidentdeck/internal/loggy"
	"github.com/tildaslashalef/incidentdeck/internal/safety"
)

// fakeInvoker answers operations from canned JSON payloads or errors,
// records call order, and runs an optional hook at call time so tests
// can observe state mid-operation.
type fakeInvoker struct {
	payloads map[string]string
	errs     map[string]error
	hooks    map[string]func()
	calls    []string
}

func (f *fakeInvoker) Call(_ context.Context, op string, _ any, out any) error {
	f.calls = append(f.calls, op)
	if hook, ok := f.hooks[op]; ok {
		hook()
	}
	if err, ok := f.errs[op]; ok {
		return gateway.Normalize(err)
	}
	if payload, ok := f.payloads[op]; ok && out != nil {
		return json.Unmarshal([]byte(payload), out)
	}
	return nil
}

// staticPicker resolves to a fixed path, or cancels.
type staticPicker struct {
	path      string
	cancelled bool
}

func (p staticPicker) ChoosePath(Mode) (string, bool, error) {
	if p.cancelled {
		return "", false, nil
	}
	return p.path, true, nil
}

func healthyPayloads() map[string]string {
	return map[string]string{
		gateway.OpWorkspaceMigrationState: `{"latest_known":"000002_evidence","applied":["000001_base","000002_evidence"],"pending":[]}`,
		gateway.OpWorkspaceOpen:           `{"db_path":"/ws/b.sqlite","is_empty":false}`,
		gateway.OpWorkspaceCreate:         `{"db_path":"/ws/b.sqlite","is_empty":true}`,
		gateway.OpInitDB:                  `{"db_path":"/ws/default.sqlite"}`,
		gateway.OpWorkspaceGetCurrent:     `{"current_path":"/ws/b.sqlite","recent_paths":["/ws/b.sqlite","/ws/a.sqlite"]}`,
		gateway.OpIncidentsList:           `{"incidents":[{"id":"inc-1","title":"checkout outage"}]}`,
		gateway.OpDashboardV2:             `{"total_incidents":1,"open_incidents":1,"by_severity":{"sev2":1},"mttr_minutes":42,"mtta_minutes":5}`,
		gateway.OpGenerateReport:          `{"markdown":"# Incident Review"}`,
		gateway.OpValidationReport:        `{"items":[]}`,
	}
}

type fixture struct {
	invoker  *fakeInvoker
	sessions *Store
	views    *ViewStore
	orch     *Orchestrator
}

func newFixture(invoker *fakeInvoker, picker Picker) *fixture {
	logger := loggy.NewNoopLogger()
	client := gateway.NewClient(invoker)
	sessions := NewStore()
	views := NewViewStore()
	orch := NewOrchestrator(client, sessions, views, safety.NewPreflight(client, logger), picker, "/ws/default.sqlite", logger)
	return &fixture{invoker: invoker, sessions: sessions, views: views, orch: orch}
}

// seedView plants recognizable old-workspace data in the view store.
func seedView(t *testing.T, views *ViewStore) {
	t.Helper()
	gen := views.Generation()
	ok := views.Apply(gen, func(v *ViewState) {
		v.ReportMD = "# Old Workspace Report"
	})
	require.True(t, ok)
}

func TestSwitchClearsViewBeforeOpenCall(t *testing.T) {
	invoker := &fakeInvoker{payloads: healthyPayloads(), hooks: map[string]func(){}}
	f := newFixture(invoker, staticPicker{path: "/ws/b.sqlite"})
	seedView(t, f.views)

	var viewAtOpen ViewState
	invoker.hooks[gateway.OpWorkspaceOpen] = func() {
		viewAtOpen = f.views.View()
	}

	outcome, err := f.orch.SwitchTo(context.Background(), "/ws/b.sqlite", ModeOpen)
	require.NoError(t, err)
	require.NotNil(t, outcome.Workspace)

	assert.True(t, viewAtOpen.Empty(), "no render after the switch begins may show the previous workspace")
}

func TestFailedOpenLeavesSessionUnchangedAndViewCleared(t *testing.T) {
	payloads := healthyPayloads()
	invoker := &fakeInvoker{
		payloads: payloads,
		errs: map[string]error{
			gateway.OpWorkspaceOpen: gateway.NewCommandError("WORKSPACE_DB_LOCKED", "locked"),
		},
	}
	f := newFixture(invoker, staticPicker{path: "/ws/b.sqlite"})
	f.sessions.Commit("/ws/a.sqlite")
	seedView(t, f.views)

	_, err := f.orch.SwitchTo(context.Background(), "/ws/b.sqlite", ModeOpen)
	require.Error(t, err)

	// The old workspace stays active, but the view was already cleared in
	// the step before the call went out. Clearing stale data over briefly
	// showing it is the intended tradeoff, so both halves are asserted.
	assert.Equal(t, "/ws/a.sqlite", f.sessions.Current().CurrentPath)
	assert.True(t, f.views.View().Empty())
}

func TestSwitchFollowsReloadOrder(t *testing.T) {
	// incidents -> dashboard -> report -> validation is a presentation
	// convention (show the freshest list first), not a data dependency.
	invoker := &fakeInvoker{payloads: healthyPayloads()}
	f := newFixture(invoker, staticPicker{path: "/ws/b.sqlite"})

	_, err := f.orch.SwitchTo(context.Background(), "/ws/b.sqlite", ModeOpen)
	require.NoError(t, err)

	assert.Equal(t, []string{
		gateway.OpWorkspaceMigrationState,
		gateway.OpWorkspaceOpen,
		gateway.OpWorkspaceGetCurrent,
		gateway.OpIncidentsList,
		gateway.OpDashboardV2,
		gateway.OpGenerateReport,
		gateway.OpValidationReport,
	}, invoker.calls)

	view := f.views.View()
	require.NotNil(t, view.Incidents)
	assert.Equal(t, "# Incident Review", view.ReportMD)
	assert.Equal(t, "/ws/b.sqlite", f.sessions.Current().CurrentPath)
	assert.Equal(t, []string{"/ws/b.sqlite", "/ws/a.sqlite"}, f.sessions.Current().RecentPaths)
}

func TestPickerCancelAbandonsSilently(t *testing.T) {
	invoker := &fakeInvoker{payloads: healthyPayloads()}
	f := newFixture(invoker, staticPicker{cancelled: true})
	seedView(t, f.views)

	outcome, err := f.orch.SwitchTo(context.Background(), "", ModeOpen)
	require.NoError(t, err, "cancellation is not a failure")
	assert.True(t, outcome.Abandoned)
	assert.Empty(t, invoker.calls, "an abandoned switch has no partial effects")
	assert.False(t, f.views.View().Empty(), "the view is untouched")
}

func TestSuspendedGuardDefersEverything(t *testing.T) {
	payloads := healthyPayloads()
	payloads[gateway.OpWorkspaceMigrationState] = `{"latest_known":"000002_evidence","applied":["000001_base"],"pending":["000002_evidence"]}`
	invoker := &fakeInvoker{payloads: payloads}
	f := newFixture(invoker, staticPicker{path: "/ws/b.sqlite"})
	f.sessions.Commit("/ws/a.sqlite")
	seedView(t, f.views)

	outcome, err := f.orch.SwitchTo(context.Background(), "/ws/b.sqlite", ModeOpen)
	require.NoError(t, err)
	require.NotNil(t, outcome.Guard)
	assert.Equal(t, []string{"000002_evidence"}, outcome.Guard.PendingMigrations)

	// Halting at the guard commits nothing: no open call, view intact.
	assert.Equal(t, []string{gateway.OpWorkspaceMigrationState}, invoker.calls)
	assert.False(t, f.views.View().Empty())
	assert.Equal(t, "/ws/a.sqlite", f.sessions.Current().CurrentPath)
}

func TestProceedReissuesWithoutPreflight(t *testing.T) {
	payloads := healthyPayloads()
	payloads[gateway.OpWorkspaceMigrationState] = `{"latest_known":"000002_evidence","applied":["000001_base"],"pending":["000002_evidence"]}`
	invoker := &fakeInvoker{payloads: payloads}
	f := newFixture(invoker, staticPicker{path: "/ws/b.sqlite"})

	outcome, err := f.orch.SwitchTo(context.Background(), "/ws/b.sqlite", ModeOpen)
	require.NoError(t, err)
	require.NotNil(t, outcome.Guard)

	outcome, err = f.orch.Proceed(context.Background())
	require.NoError(t, err)
	require.NotNil(t, outcome.Workspace)

	// The user made an informed choice; preflight ran exactly once.
	preflights := 0
	for _, op := range invoker.calls {
		if op == gateway.OpWorkspaceMigrationState {
			preflights++
		}
	}
	assert.Equal(t, 1, preflights)
	assert.False(t, f.orch.Guard().Suspended)
}

func TestDoubleProceedRunsActionOnce(t *testing.T) {
	payloads := healthyPayloads()
	payloads[gateway.OpWorkspaceMigrationState] = `{"latest_known":"000002_evidence","applied":["000001_base"],"pending":["000002_evidence"]}`
	invoker := &fakeInvoker{payloads: payloads}
	f := newFixture(invoker, staticPicker{path: "/ws/b.sqlite"})

	_, err := f.orch.SwitchTo(context.Background(), "/ws/b.sqlite", ModeOpen)
	require.NoError(t, err)

	_, err = f.orch.Proceed(context.Background())
	require.NoError(t, err)
	_, err = f.orch.Proceed(context.Background())
	require.NoError(t, err)

	opens := 0
	for _, op := range invoker.calls {
		if op == gateway.OpWorkspaceOpen {
			opens++
		}
	}
	assert.Equal(t, 1, opens, "a double-click on Proceed must not open twice")
}

func TestCancelGuardAbandons(t *testing.T) {
	payloads := healthyPayloads()
	payloads[gateway.OpWorkspaceMigrationState] = `{"latest_known":"000002_evidence","applied":["000001_base"],"pending":["000002_evidence"]}`
	invoker := &fakeInvoker{payloads: payloads}
	f := newFixture(invoker, staticPicker{path: "/ws/b.sqlite"})

	_, err := f.orch.SwitchTo(context.Background(), "/ws/b.sqlite", ModeOpen)
	require.NoError(t, err)
	require.True(t, f.orch.Guard().Suspended)

	f.orch.CancelGuard()
	assert.False(t, f.orch.Guard().Suspended)

	_, err = f.orch.Proceed(context.Background())
	require.NoError(t, err)
	assert.NotContains(t, invoker.calls, gateway.OpWorkspaceOpen, "Proceed after Cancel re-issues nothing")
}

func TestBackupFirstKeepsGuardSuspended(t *testing.T) {
	payloads := healthyPayloads()
	payloads[gateway.OpWorkspaceMigrationState] = `{"latest_known":"000002_evidence","applied":["000001_base"],"pending":["000002_evidence"]}`
	invoker := &fakeInvoker{payloads: payloads}
	f := newFixture(invoker, staticPicker{path: "/ws/b.sqlite"})

	_, err := f.orch.SwitchTo(context.Background(), "/ws/b.sqlite", ModeOpen)
	require.NoError(t, err)

	effect := f.orch.BackupFirst()
	assert.Equal(t, safety.EffectOpenBackup, effect)
	assert.True(t, f.orch.Guard().Suspended, "the decision remains outstanding")
}

func TestInitializeUsesDefaultPath(t *testing.T) {
	invoker := &fakeInvoker{
		payloads: healthyPayloads(),
		errs: map[string]error{
			gateway.OpWorkspaceMigrationState: gateway.NewCommandError("WORKSPACE_DB_NOT_FOUND", "no database"),
		},
	}
	f := newFixture(invoker, staticPicker{})

	outcome, err := f.orch.Initialize(context.Background())
	require.NoError(t, err, "first-run creation proceeds through a missing database")
	require.NotNil(t, outcome.Workspace)
	assert.Equal(t, "/ws/default.sqlite", outcome.Workspace.DBPath)
	assert.Contains(t, invoker.calls, gateway.OpInitDB)
}

func TestStoreLoadErrorIsNonFatal(t *testing.T) {
	invoker := &fakeInvoker{errs: map[string]error{
		gateway.OpWorkspaceGetCurrent: gateway.NewCommandError("WORKSPACE_DB_LOCKED", "locked"),
	}}
	store := NewStore()

	store.Load(context.Background(), gateway.NewClient(invoker), loggy.NewNoopLogger())

	current := store.Current()
	require.NotNil(t, current.LoadError)
	assert.Equal(t, "WORKSPACE_DB_LOCKED", current.LoadError.Code)
	assert.Empty(t, current.CurrentPath)
}
