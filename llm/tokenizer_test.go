package llm

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tzefoong/relaybot/internal/errkit"
)

func TestHeuristicCounter_Count(t *testing.T) {
	counter := &HeuristicCounter{}

	t.Run("EmptySequence_OnlyPriming", func(t *testing.T) {
		got := counter.Count(nil, "gpt-4o-mini")
		assert.Equal(t, replyPrimingTokens, got)
	})

	t.Run("PlainText_OverheadPlusChars", func(t *testing.T) {
		msgs := []WireMessage{{Role: RoleUser, Content: "abcdefgh"}} // 8 chars -> 2 tokens
		got := counter.Count(msgs, "gpt-4o-mini")
		assert.Equal(t, messageOverheadTokens+2+replyPrimingTokens, got)
	})

	t.Run("Deterministic", func(t *testing.T) {
		msgs := []WireMessage{
			{Role: RoleUser, Content: "hello there, how are you today?"},
			{Role: RoleAssistant, Content: "doing fine"},
		}
		first := counter.Count(msgs, "gpt-4o-mini")
		for i := 0; i < 10; i++ {
			assert.Equal(t, first, counter.Count(msgs, "gpt-4o-mini"))
		}
	})

	t.Run("ImagePart_ChargedFlatCost", func(t *testing.T) {
		msgs := []WireMessage{{
			Role: RoleUser,
			Parts: []Part{
				{Kind: PartText, Text: "look"}, // 4 chars -> 1 token
				{Kind: PartImage, ImageURL: "https://example.com/a.png"},
			},
		}}
		got := counter.Count(msgs, "gpt-4o-mini")
		assert.Equal(t, messageOverheadTokens+1+DefaultImageTokenCost+replyPrimingTokens, got)
	})

	t.Run("ImageCostOverride", func(t *testing.T) {
		small := &HeuristicCounter{ImageTokenCost: 100}
		msgs := []WireMessage{{Role: RoleUser, Parts: []Part{{Kind: PartImage, ImageURL: "u"}}}}
		assert.Equal(t, messageOverheadTokens+100+replyPrimingTokens, small.Count(msgs, "gpt-4o-mini"))
	})

	t.Run("MoreMessagesNeverCostLess", func(t *testing.T) {
		base := []WireMessage{{Role: RoleUser, Content: "one"}}
		extended := append(append([]WireMessage{}, base...), WireMessage{Role: RoleUser, Content: ""})
		assert.Greater(t, counter.Count(extended, "m"), counter.Count(base, "m"))
	})
}

func TestTiktokenCounter_Count(t *testing.T) {
	counter := NewTiktokenCounter()

	t.Run("IncludesOverheadAndPriming", func(t *testing.T) {
		got := counter.Count([]WireMessage{{Role: RoleUser, Content: "hello"}}, "gpt-4o-mini")
		// At least the structural overhead plus one token of content.
		assert.GreaterOrEqual(t, got, messageOverheadTokens+1+replyPrimingTokens)
	})

	t.Run("UnknownModel_StillCounts", func(t *testing.T) {
		got := counter.Count([]WireMessage{{Role: RoleUser, Content: "hello world"}}, "no-such-model-xyz")
		assert.Greater(t, got, replyPrimingTokens)
	})

	t.Run("UnknownPartKind_CarriesTextCost", func(t *testing.T) {
		withUnknown := counter.Count([]WireMessage{{
			Role:  RoleUser,
			Parts: []Part{{Kind: PartKind("audio_transcript"), Text: "some transcribed words"}},
		}}, "gpt-4o-mini")
		empty := counter.Count([]WireMessage{{
			Role:  RoleUser,
			Parts: []Part{{Kind: PartKind("audio_transcript"), Text: ""}},
		}}, "gpt-4o-mini")
		assert.Greater(t, withUnknown, empty)
	})

	t.Run("EncoderCacheStable", func(t *testing.T) {
		msgs := []WireMessage{{Role: RoleUser, Content: "same input, same count"}}
		first := counter.Count(msgs, "gpt-4o-mini")
		assert.Equal(t, first, counter.Count(msgs, "gpt-4o-mini"))
	})
}

func TestTiktokenCounter_DegradationAdvisory(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, nil)))
	t.Cleanup(func() { slog.SetDefault(prev) })

	counter := NewTiktokenCounter()
	counter.Count([]WireMessage{{Role: RoleUser, Content: "hello"}}, "no-such-model-xyz")

	assert.Contains(t, buf.String(), string(errkit.CodeTokenizationUnavailable))

	// The encoder cache absorbs repeats; the advisory fires once per model.
	buf.Reset()
	counter.Count([]WireMessage{{Role: RoleUser, Content: "hello again"}}, "no-such-model-xyz")
	assert.Empty(t, buf.String())
}
