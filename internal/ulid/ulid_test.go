package ulid

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerate(t *testing.T) {
	id := Generate()
	assert.False(t, id.IsZero(), "Generated ULID should not be zero")
	assert.Empty(t, id.Prefix(), "Plain ULID should have no prefix")
}

func TestGenerateWithPrefix(t *testing.T) {
	id := GenerateWithPrefix(PrefixIncident)
	assert.Equal(t, PrefixIncident, id.Prefix())
	assert.True(t, strings.HasPrefix(id.String(), PrefixIncident+PrefixSeparator))
}

func TestParseRoundTrip(t *testing.T) {
	original := GenerateWithPrefix(PrefixSource)

	parsed, err := Parse(original.String())
	require.NoError(t, err)
	assert.Equal(t, original.String(), parsed.String())
	assert.Equal(t, PrefixSource, parsed.Prefix())
}

func TestParsePlain(t *testing.T) {
	original := Generate()

	parsed, err := Parse(original.String())
	require.NoError(t, err)
	assert.Equal(t, original.String(), parsed.String())
}

func TestParseInvalid(t *testing.T) {
	_, err := Parse("inc-not-a-ulid")
	assert.Error(t, err)

	_, err = Parse("")
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	assert.True(t, Validate(IncidentID()))
	assert.True(t, Validate(Generate().String()))
	assert.False(t, Validate("nope"))
}

func TestMonotonicOrdering(t *testing.T) {
	a := NewWithTime(time.Now())
	b := NewWithTime(time.Now().Add(time.Millisecond))
	assert.True(t, a.ULID.String() < b.ULID.String(), "Later ULID should sort after earlier one")
}

func TestPrefixedGenerators(t *testing.T) {
	cases := map[string]string{
		RequestID():  PrefixRequest,
		IncidentID(): PrefixIncident,
		EventID():    PrefixEvent,
		SourceID():   PrefixSource,
		ChunkID():    PrefixChunk,
	}

	for id, prefix := range cases {
		parsed, err := Parse(id)
		require.NoError(t, err, "id %q should parse", id)
		assert.Equal(t, prefix, parsed.Prefix())
	}
}
