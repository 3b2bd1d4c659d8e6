package evidence

import (
	"context"

	"github.com/tildaslashalef/incidentdeck/internal/gateway"
	"github.com/tildaslashalef/incidentdeck/internal/loggy"
)

// Service snapshots pipeline readiness from the core service so the gate
// can be recomputed from fresh counts.
type Service struct {
	client *gateway.Client
	logger *loggy.Logger
}

// NewService creates an evidence readiness service
func NewService(client *gateway.Client, logger *loggy.Logger) *Service {
	return &Service{client: client, logger: logger}
}

// Snapshot queries health, sources and chunks and returns gate inputs.
// The health probe is best-effort: a failed probe records health=false
// rather than aborting, since unreachability is exactly what the gate
// exists to report. Source and chunk listing errors are real failures
// and propagate.
func (s *Service) Snapshot(ctx context.Context, selectedCitations int) (GateInputs, error) {
	inputs := GateInputs{SelectedCitations: selectedCitations}

	health, err := s.client.AIHealthCheck(ctx)
	if err != nil {
		s.logger.Warn("AI health probe failed", "error", err)
		healthOK := false
		inputs.HealthOK = &healthOK
	} else {
		inputs.HealthOK = &health.OK
	}

	sources, err := s.client.ListEvidenceSources(ctx)
	if err != nil {
		return inputs, err
	}
	inputs.SourcesCount = len(sources.Sources)

	chunks, err := s.client.ListEvidenceChunks(ctx)
	if err != nil {
		return inputs, err
	}
	inputs.ChunksCount = len(chunks.Chunks)
	inputs.IndexReady = &chunks.IndexReady

	return inputs, nil
}

// Gate is Snapshot followed by ComputeGate.
func (s *Service) Gate(ctx context.Context, selectedCitations int) (GateResult, error) {
	inputs, err := s.Snapshot(ctx, selectedCitations)
	if err != nil {
		return GateResult{}, err
	}
	return ComputeGate(inputs), nil
}
