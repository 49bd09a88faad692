package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubCounter charges a fixed per-content cost so budget arithmetic in the
// tests stays exact.
type stubCounter struct {
	costs map[string]int
}

func (s *stubCounter) Count(messages []WireMessage, _ string) int {
	total := 0
	for _, m := range messages {
		total += s.costs[m.Content]
	}
	return total
}

func TestTrimmer_Trim(t *testing.T) {
	counter := &stubCounter{costs: map[string]int{
		"m1": 10, "m2": 20, "m3": 30, "m4": 40, "huge": 1000,
	}}
	trimmer := NewTrimmer(counter)

	history := []Message{
		{Role: RoleUser, Text: "m1"},
		{Role: RoleAssistant, Text: "m2"},
		{Role: RoleUser, Text: "m3"},
		{Role: RoleAssistant, Text: "m4"},
	}

	t.Run("ExactFit_KeepsNewestWindow", func(t *testing.T) {
		// Allowance 70: m4 (40) + m3 (30) fit exactly, m2 breaks the scan.
		budget := Budget{MaxContextTokens: 80, ReserveTokens: 10}
		got := trimmer.Trim(history, budget, "m", false)
		require.Len(t, got, 2)
		assert.Equal(t, "m3", got[0].Text)
		assert.Equal(t, "m4", got[1].Text)
	})

	t.Run("EverythingFits", func(t *testing.T) {
		budget := Budget{MaxContextTokens: 200, ReserveTokens: 50}
		got := trimmer.Trim(history, budget, "m", false)
		require.Len(t, got, 4)
		assert.Equal(t, "m1", got[0].Text)
		assert.Equal(t, "m4", got[3].Text)
	})

	t.Run("OlderThanBreak_DroppedEvenIfSmall", func(t *testing.T) {
		// m1 costs only 10, but the scan stops at m2 and never reaches it.
		budget := Budget{MaxContextTokens: 100, ReserveTokens: 25} // allowance 75
		got := trimmer.Trim(history, budget, "m", false)
		require.Len(t, got, 2)
		assert.Equal(t, "m3", got[0].Text)
	})

	t.Run("OversizedNewestMessage_EmptyResult", func(t *testing.T) {
		oversized := []Message{{Role: RoleUser, Text: "huge"}}
		budget := Budget{MaxContextTokens: 100, ReserveTokens: 10}
		got := trimmer.Trim(oversized, budget, "m", false)
		assert.NotNil(t, got)
		assert.Empty(t, got)
	})

	t.Run("EmptyHistory", func(t *testing.T) {
		budget := Budget{MaxContextTokens: 100, ReserveTokens: 10}
		got := trimmer.Trim(nil, budget, "m", false)
		assert.NotNil(t, got)
		assert.Empty(t, got)
	})

	t.Run("LargerAllowanceRetainsSuperset", func(t *testing.T) {
		small := trimmer.Trim(history, Budget{MaxContextTokens: 80, ReserveTokens: 10}, "m", false)
		large := trimmer.Trim(history, Budget{MaxContextTokens: 120, ReserveTokens: 10}, "m", false)
		require.True(t, len(large) >= len(small))
		// The smaller retained set is the tail of the larger one.
		offset := len(large) - len(small)
		for i, msg := range small {
			assert.Equal(t, large[offset+i].Text, msg.Text)
		}
	})

	t.Run("ChronologicalOrderPreserved", func(t *testing.T) {
		got := trimmer.Trim(history, Budget{MaxContextTokens: 200, ReserveTokens: 10}, "m", false)
		for i := 1; i < len(got); i++ {
			assert.Equal(t, history[i].Text, got[i].Text)
		}
	})
}

func TestTrimmer_CachedCounts(t *testing.T) {
	counter := &stubCounter{costs: map[string]int{"x": 1000}}
	trimmer := NewTrimmer(counter)
	budget := Budget{MaxContextTokens: 100, ReserveTokens: 10}

	t.Run("CacheHonoredWhenModelMatches", func(t *testing.T) {
		history := []Message{{Role: RoleUser, Text: "x", TokenCount: 5, CountedFor: "model-a"}}
		got := trimmer.Trim(history, budget, "model-a", false)
		assert.Len(t, got, 1)
	})

	t.Run("CacheIgnoredOnModelMismatch", func(t *testing.T) {
		history := []Message{{Role: RoleUser, Text: "x", TokenCount: 5, CountedFor: "model-a"}}
		got := trimmer.Trim(history, budget, "model-b", false)
		assert.Empty(t, got)
	})

	t.Run("ZeroCountTriggersRecount", func(t *testing.T) {
		history := []Message{{Role: RoleUser, Text: "x", TokenCount: 0, CountedFor: "model-a"}}
		got := trimmer.Trim(history, budget, "model-a", false)
		assert.Empty(t, got)
	})
}
