package session

import (
	"sync"

	"github.com/tildaslashalef/incidentdeck/internal/gateway"
)

// ViewState is the aggregate of all UI state whose validity is tied to
// one workspace: list, dashboard, report text, validation findings, the
// open detail drawer and the last transfer results. Nothing in it
// survives a workspace switch.
type ViewState struct {
	Incidents   *gateway.IncidentList
	Dashboard   *gateway.DashboardPayload
	ReportMD    string
	Validation  *gateway.ValidationReport
	Detail      *gateway.IncidentDetail
	LastRestore *gateway.RestoreResult
	LastImport  *gateway.ImportSummary
}

// Empty reports whether every field is at its zero value.
func (v ViewState) Empty() bool {
	return v == ViewState{}
}

// ViewStore owns the workspace-scoped view state. A generation counter
// fences in-flight responses: a response started under an older
// generation can no longer write once Reset has run, so a view never
// shows one workspace's data tagged as another's.
type ViewStore struct {
	mu         sync.Mutex
	generation uint64
	view       ViewState
}

// NewViewStore creates an empty view store
func NewViewStore() *ViewStore {
	return &ViewStore{}
}

// Reset clears the view and advances the generation in one step.
// It returns the new generation for subsequent Apply calls.
func (v *ViewStore) Reset() uint64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.generation++
	v.view = ViewState{}
	return v.generation
}

// Generation returns the current generation.
func (v *ViewStore) Generation() uint64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.generation
}

// View returns a copy of the current view state.
func (v *ViewStore) View() ViewState {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.view
}

// Apply mutates the view only if gen is still current. It reports
// whether the mutation ran; a false return means the response belonged
// to a workspace the user has already left.
func (v *ViewStore) Apply(gen uint64, fn func(*ViewState)) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	if gen != v.generation {
		return false
	}
	fn(&v.view)
	return true
}
