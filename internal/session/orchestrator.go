package session

import (
	"context"
	"sync"

	"github.com/tildaslashalef/incidentdeck/internal/gateway"
	"github.com/tildaslashalef/incidentdeck/internal/loggy"
	"github.com/tildaslashalef/incidentdeck/internal/safety"
)

// Mode selects between creating a new workspace and opening an existing one.
type Mode int

const (
	// ModeOpen opens an existing workspace file
	ModeOpen Mode = iota
	// ModeCreate creates a new workspace database
	ModeCreate
)

func (m Mode) String() string {
	switch m {
	case ModeOpen:
		return "open"
	case ModeCreate:
		return "create"
	default:
		return "unknown"
	}
}

// Picker resolves a workspace path interactively: a directory for
// create, a file for open. ok=false means the user cancelled, which
// abandons the enclosing operation silently.
type Picker interface {
	ChoosePath(mode Mode) (path string, ok bool, err error)
}

// Outcome reports how a switch attempt ended short of plain failure.
type Outcome struct {
	// Abandoned is set when the user cancelled the picker.
	Abandoned bool

	// Guard is set when the migration preflight suspended the switch;
	// the rest of the operation is deferred until Proceed.
	Guard *safety.GuardState

	// Workspace is set on success.
	Workspace *gateway.WorkspaceMeta
}

// Orchestrator performs workspace open/create/switch with the preflight
// guard in front and the canonical reload behind. It is the only writer
// of the guard state it holds.
type Orchestrator struct {
	client    *gateway.Client
	sessions  *Store
	views     *ViewStore
	preflight *safety.Preflight
	picker    Picker
	logger    *loggy.Logger

	// defaultPath is where Initialize places the first workspace.
	defaultPath string

	mu          sync.Mutex
	guard       safety.GuardState
	pendingMode Mode
}

// NewOrchestrator wires a switch orchestrator over the given stores.
func NewOrchestrator(client *gateway.Client, sessions *Store, views *ViewStore, preflight *safety.Preflight, picker Picker, defaultPath string, logger *loggy.Logger) *Orchestrator {
	return &Orchestrator{
		client:      client,
		sessions:    sessions,
		views:       views,
		preflight:   preflight,
		picker:      picker,
		logger:      logger,
		defaultPath: defaultPath,
	}
}

// Guard returns the current guard state.
func (o *Orchestrator) Guard() safety.GuardState {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.guard
}

// SwitchTo opens or creates the workspace at path. An empty path is
// resolved through the picker first. See Outcome for the non-error ways
// this can end early.
func (o *Orchestrator) SwitchTo(ctx context.Context, path string, mode Mode) (*Outcome, error) {
	return o.switchTo(ctx, path, mode, false)
}

// Initialize creates or opens the default workspace database.
func (o *Orchestrator) Initialize(ctx context.Context) (*Outcome, error) {
	return o.initialize(ctx, false)
}

// Proceed resolves a suspended guard in favor of running the pending
// migrations: the guard is cleared first, then the original action is
// re-issued with preflight skipped. A re-entrant Proceed from the same
// suspended view is coalesced into a no-op.
func (o *Orchestrator) Proceed(ctx context.Context) (*Outcome, error) {
	o.mu.Lock()
	suspended := o.guard
	mode := o.pendingMode
	next, effect := safety.Transition(o.guard, safety.ProceedChosen{})
	o.guard = next
	o.mu.Unlock()

	if effect != safety.EffectRunAction {
		return &Outcome{}, nil
	}
	if suspended.Action == safety.ActionInitialize {
		return o.initialize(ctx, true)
	}
	return o.switchTo(ctx, suspended.TargetPath, mode, true)
}

// CancelGuard abandons a suspended switch with no side effects.
func (o *Orchestrator) CancelGuard() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.guard, _ = safety.Transition(o.guard, safety.CancelChosen{})
}

// BackupFirst routes the user to the backup feature. The guard stays
// suspended; the decision remains outstanding.
func (o *Orchestrator) BackupFirst() safety.GuardEffect {
	o.mu.Lock()
	defer o.mu.Unlock()
	var effect safety.GuardEffect
	o.guard, effect = safety.Transition(o.guard, safety.BackupFirstChosen{})
	return effect
}

func (o *Orchestrator) switchTo(ctx context.Context, path string, mode Mode, skipPreflight bool) (*Outcome, error) {
	if path == "" {
		chosen, ok, err := o.picker.ChoosePath(mode)
		if err != nil {
			return nil, err
		}
		if !ok {
			// Cancellation is not a failure; nothing has happened yet.
			return &Outcome{Abandoned: true}, nil
		}
		path = chosen
	}

	if !skipPreflight {
		state, err := o.preflight.Check(ctx, path, safety.ActionOpenOrSwitch)
		if err != nil {
			return nil, err
		}
		if state.Suspended {
			o.mu.Lock()
			o.guard = state
			o.pendingMode = mode
			o.mu.Unlock()
			return &Outcome{Guard: &state}, nil
		}
	}

	// Clear the view before the first call of the switch goes out, so no
	// render after this point can show the previous workspace's data. If
	// the call below fails the view stays cleared while the session keeps
	// the old workspace; clearing stale data wins over briefly showing it.
	gen := o.views.Reset()

	var meta *gateway.WorkspaceMeta
	var err error
	switch mode {
	case ModeCreate:
		meta, err = o.client.CreateWorkspace(ctx, path)
	default:
		meta, err = o.client.OpenWorkspace(ctx, path)
	}
	if err != nil {
		return nil, err
	}

	o.finishSwitch(ctx, meta.DBPath)
	if err := o.Reload(ctx, gen); err != nil {
		return &Outcome{Workspace: meta}, err
	}
	return &Outcome{Workspace: meta}, nil
}

func (o *Orchestrator) initialize(ctx context.Context, skipPreflight bool) (*Outcome, error) {
	if !skipPreflight {
		state, err := o.preflight.Check(ctx, o.defaultPath, safety.ActionInitialize)
		if err != nil {
			return nil, err
		}
		if state.Suspended {
			o.mu.Lock()
			o.guard = state
			o.mu.Unlock()
			return &Outcome{Guard: &state}, nil
		}
	}

	gen := o.views.Reset()

	result, err := o.client.InitDB(ctx)
	if err != nil {
		return nil, err
	}

	o.finishSwitch(ctx, result.DBPath)
	meta := &gateway.WorkspaceMeta{DBPath: result.DBPath}
	if err := o.Reload(ctx, gen); err != nil {
		return &Outcome{Workspace: meta}, err
	}
	return &Outcome{Workspace: meta}, nil
}

func (o *Orchestrator) finishSwitch(ctx context.Context, dbPath string) {
	o.sessions.Commit(dbPath)

	// Recents come from the core service, which just recorded the switch.
	// Failing to refresh them is degraded, not fatal.
	info, err := o.client.GetCurrentSession(ctx)
	if err != nil {
		o.logger.Warn("Failed to refresh session info after switch", "error", err)
		return
	}
	o.sessions.Refresh(info)
}

// Reload runs the just-switched reload sequence: incidents, dashboard,
// report, validation. The order is a presentation convention, not a data
// dependency. Each result is applied under gen, so a reload raced by a
// newer switch silently stops writing.
func (o *Orchestrator) Reload(ctx context.Context, gen uint64) error {
	incidents, err := o.client.ListIncidents(ctx)
	if err != nil {
		return err
	}
	o.views.Apply(gen, func(v *ViewState) { v.Incidents = incidents })

	dashboard, err := o.client.Dashboard(ctx)
	if err != nil {
		return err
	}
	o.views.Apply(gen, func(v *ViewState) { v.Dashboard = dashboard })

	report, err := o.client.GenerateReport(ctx)
	if err != nil {
		return err
	}
	o.views.Apply(gen, func(v *ViewState) { v.ReportMD = report.Markdown })

	validation, err := o.client.ValidationReport(ctx)
	if err != nil {
		return err
	}
	o.views.Apply(gen, func(v *ViewState) { v.Validation = validation })

	return nil
}
