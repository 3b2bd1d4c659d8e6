package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestViewStoreResetAdvancesGeneration(t *testing.T) {
	views := NewViewStore()
	first := views.Generation()

	gen := views.Reset()
	assert.Equal(t, first+1, gen)
	assert.True(t, views.View().Empty())
}

func TestViewStoreStaleApplyDropped(t *testing.T) {
	views := NewViewStore()
	stale := views.Generation()

	views.Reset()

	// A response that started under the old generation arrives late.
	applied := views.Apply(stale, func(v *ViewState) {
		v.ReportMD = "# Old Workspace Report"
	})
	assert.False(t, applied)
	assert.True(t, views.View().Empty(), "late responses from a left workspace never land")
}

func TestViewStoreCurrentApplyLands(t *testing.T) {
	views := NewViewStore()
	gen := views.Reset()

	require.True(t, views.Apply(gen, func(v *ViewState) {
		v.ReportMD = "# Fresh"
	}))
	assert.Equal(t, "# Fresh", views.View().ReportMD)
}
