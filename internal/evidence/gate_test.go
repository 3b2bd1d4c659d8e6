package evidence

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tildaslashalef/incidentdeck/internal/gateway"
	"github.com/tildaslashalef/incidentdeck/internal/loggy"
)

func boolPtr(v bool) *bool { return &v }

func TestComputeGateHealthDominatesAllOtherSignals(t *testing.T) {
	result := ComputeGate(GateInputs{
		HealthOK:          boolPtr(false),
		SourcesCount:      5,
		ChunksCount:       5,
		IndexReady:        boolPtr(true),
		SelectedCitations: 5,
	})

	assert.False(t, result.CanSearch)
	assert.False(t, result.CanDraft)
	assert.Equal(t, ReasonServiceUnreachable, result.Reason)
}

func TestComputeGateNoSources(t *testing.T) {
	result := ComputeGate(GateInputs{
		HealthOK:   boolPtr(true),
		IndexReady: boolPtr(true),
	})

	assert.False(t, result.CanSearch)
	assert.Equal(t, ReasonNoEvidence, result.Reason)
}

func TestComputeGateZeroChunksSameAsIndexNotReady(t *testing.T) {
	// Chunk absence and a not-ready index carry the same remedy, so the
	// gate reports them identically.
	zeroChunks := ComputeGate(GateInputs{
		HealthOK:     boolPtr(true),
		SourcesCount: 2,
		IndexReady:   boolPtr(true),
	})
	notReady := ComputeGate(GateInputs{
		HealthOK:     boolPtr(true),
		SourcesCount: 2,
		ChunksCount:  10,
		IndexReady:   boolPtr(false),
	})

	assert.Equal(t, ReasonIndexNotBuilt, zeroChunks.Reason)
	assert.Equal(t, zeroChunks, notReady)
}

func TestComputeGateSearchAllowedDraftBlockedWithoutCitations(t *testing.T) {
	result := ComputeGate(GateInputs{
		HealthOK:     boolPtr(true),
		SourcesCount: 1,
		ChunksCount:  1,
		IndexReady:   boolPtr(true),
	})

	assert.True(t, result.CanSearch)
	assert.False(t, result.CanDraft)
	assert.Equal(t, ReasonCitationRequired, result.Reason)
}

func TestComputeGateFullyReady(t *testing.T) {
	result := ComputeGate(GateInputs{
		HealthOK:          boolPtr(true),
		SourcesCount:      1,
		ChunksCount:       1,
		IndexReady:        boolPtr(true),
		SelectedCitations: 1,
	})

	assert.True(t, result.CanSearch)
	assert.True(t, result.CanDraft)
	assert.Equal(t, ReasonNone, result.Reason)
}

func TestComputeGateUnknownBlocksWithoutReason(t *testing.T) {
	// Before any health or index query has run the gate stays closed,
	// but it does not claim a blocking condition it has not observed.
	result := ComputeGate(GateInputs{
		SourcesCount:      3,
		ChunksCount:       3,
		SelectedCitations: 1,
	})

	assert.False(t, result.CanSearch)
	assert.False(t, result.CanDraft)
	assert.Equal(t, ReasonNone, result.Reason)
}

func TestComputeGateUnknownHealthStillReportsMissingEvidence(t *testing.T) {
	result := ComputeGate(GateInputs{IndexReady: boolPtr(true)})
	assert.Equal(t, ReasonNoEvidence, result.Reason)
}

// fakeInvoker answers operations from canned JSON payloads or errors.
type fakeInvoker struct {
	payloads map[string]string
	errs     map[string]error
}

func (f *fakeInvoker) Call(_ context.Context, op string, _ any, out any) error {
	if err, ok := f.errs[op]; ok {
		return gateway.Normalize(err)
	}
	if payload, ok := f.payloads[op]; ok && out != nil {
		return json.Unmarshal([]byte(payload), out)
	}
	return nil
}

func TestSnapshotAssemblesInputs(t *testing.T) {
	invoker := &fakeInvoker{payloads: map[string]string{
		gateway.OpAIHealthCheck:       `{"ok": true, "message": "ollama reachable"}`,
		gateway.OpEvidenceListSources: `{"sources": [{"id": "src-1", "name": "postmortem.md", "kind": "file"}]}`,
		gateway.OpEvidenceListChunks:  `{"chunks": [{"id": "chk-1", "source_id": "src-1", "seq": 0}], "index_ready": true}`,
	}}
	service := NewService(gateway.NewClient(invoker), loggy.NewNoopLogger())

	inputs, err := service.Snapshot(context.Background(), 2)
	require.NoError(t, err)

	require.NotNil(t, inputs.HealthOK)
	assert.True(t, *inputs.HealthOK)
	assert.Equal(t, 1, inputs.SourcesCount)
	assert.Equal(t, 1, inputs.ChunksCount)
	require.NotNil(t, inputs.IndexReady)
	assert.True(t, *inputs.IndexReady)
	assert.Equal(t, 2, inputs.SelectedCitations)
}

func TestSnapshotFailedHealthProbeIsUnreachableNotFatal(t *testing.T) {
	invoker := &fakeInvoker{
		payloads: map[string]string{
			gateway.OpEvidenceListSources: `{"sources": []}`,
			gateway.OpEvidenceListChunks:  `{"chunks": [], "index_ready": false}`,
		},
		errs: map[string]error{
			gateway.OpAIHealthCheck: gateway.NewCommandError("AI_OLLAMA_UNHEALTHY", "connection refused"),
		},
	}
	service := NewService(gateway.NewClient(invoker), loggy.NewNoopLogger())

	result, err := service.Gate(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, ReasonServiceUnreachable, result.Reason)
}
