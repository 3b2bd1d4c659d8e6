// Package evidence computes whether the AI pipeline is ready for search
// and drafting. The gate is a pure function over current counts and
// flags, recomputed on every render; nothing in this package caches or
// mutates readiness.
package evidence

// Reason is the single blocking reason a gate result may carry. The
// values reuse the stable error-code vocabulary so guidance lookups work
// for gate rejections too.
type Reason string

const (
	// ReasonNone means nothing blocks (or readiness is not yet known)
	ReasonNone Reason = ""
	// ReasonServiceUnreachable means the embedding service failed its health check
	ReasonServiceUnreachable Reason = "AI_OLLAMA_UNHEALTHY"
	// ReasonNoEvidence means no evidence sources have been added
	ReasonNoEvidence Reason = "AI_NO_EVIDENCE"
	// ReasonIndexNotBuilt covers both a zero chunk count and an index
	// reported not ready; the remedy is the same build action either way
	ReasonIndexNotBuilt Reason = "AI_INDEX_NOT_READY"
	// ReasonCitationRequired means drafting needs at least one selected citation
	ReasonCitationRequired Reason = "AI_CITATION_REQUIRED"
)

// GateInputs are the independent readiness signals. HealthOK and
// IndexReady are nil until the corresponding query has run.
type GateInputs struct {
	HealthOK          *bool
	SourcesCount      int
	ChunksCount       int
	IndexReady        *bool
	SelectedCitations int
}

// GateResult is what the UI binds AI controls to.
type GateResult struct {
	CanSearch bool
	CanDraft  bool
	Reason    Reason
}

// ComputeGate evaluates the readiness checks in a fixed order; the first
// failing check supplies the reason even when several hold at once.
// Unknown health or index state blocks search and draft but emits no
// reason, since no query has necessarily run yet.
func ComputeGate(in GateInputs) GateResult {
	if in.HealthOK != nil && !*in.HealthOK {
		return GateResult{Reason: ReasonServiceUnreachable}
	}
	if in.SourcesCount == 0 {
		return GateResult{Reason: ReasonNoEvidence}
	}
	if in.ChunksCount == 0 {
		return GateResult{Reason: ReasonIndexNotBuilt}
	}
	if in.IndexReady != nil && !*in.IndexReady {
		return GateResult{Reason: ReasonIndexNotBuilt}
	}
	if in.HealthOK == nil || in.IndexReady == nil {
		return GateResult{}
	}
	if in.SelectedCitations == 0 {
		return GateResult{CanSearch: true, Reason: ReasonCitationRequired}
	}
	return GateResult{CanSearch: true, CanDraft: true}
}
