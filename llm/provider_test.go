package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSpecFor(t *testing.T) {
	t.Run("KnownModel", func(t *testing.T) {
		spec, known := SpecFor("gpt-4o-mini")
		assert.True(t, known)
		assert.Equal(t, 128000, spec.ContextTokens)
		require.NotNil(t, spec.Params.Temperature)
		assert.InDelta(t, 0.7, float64(*spec.Params.Temperature), 0.001)
		assert.Empty(t, spec.Params.ReasoningEffort)
	})

	t.Run("ReasoningModel_NoTemperature", func(t *testing.T) {
		spec, known := SpecFor("gpt-5-mini")
		assert.True(t, known)
		assert.Nil(t, spec.Params.Temperature)
		assert.Equal(t, "low", spec.Params.ReasoningEffort)
		assert.Equal(t, "low", spec.Params.Verbosity)
	})

	t.Run("UnknownModel_ConservativeDefault", func(t *testing.T) {
		spec, known := SpecFor("mystery-model-v9")
		assert.False(t, known)
		assert.Equal(t, 16384, spec.ContextTokens)
		require.NotNil(t, spec.Params.Temperature)
	})

	t.Run("SmallWindowModel", func(t *testing.T) {
		spec, known := SpecFor("gpt-4")
		assert.True(t, known)
		assert.Equal(t, 8192, spec.ContextTokens)
	})
}

func TestBudget(t *testing.T) {
	t.Run("HistoryAllowance", func(t *testing.T) {
		b := Budget{MaxContextTokens: 16000, ReserveTokens: 1000}
		assert.Equal(t, 15000, b.HistoryAllowance())
	})

	t.Run("Validate", func(t *testing.T) {
		assert.NoError(t, Budget{MaxContextTokens: 100, ReserveTokens: 10}.Validate())
		assert.Error(t, Budget{MaxContextTokens: 0, ReserveTokens: 0}.Validate())
		assert.Error(t, Budget{MaxContextTokens: 100, ReserveTokens: 100}.Validate())
		assert.Error(t, Budget{MaxContextTokens: 100, ReserveTokens: -1}.Validate())
	})
}

func TestReservePolicy(t *testing.T) {
	p := ReservePolicy{Text: 1000, Image: 2000}
	assert.Equal(t, 1000, p.For(false))
	assert.Equal(t, 2000, p.For(true))
}
