package openai

import (
	"context"
	"testing"
	"time"

	goopenai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tzefoong/relaybot/internal/errkit"
	"github.com/tzefoong/relaybot/llm"
)

func newTestProvider(t *testing.T, model string) *Provider {
	t.Helper()
	p, err := New(Config{APIKey: "test-key", Model: model, Timeout: time.Second}, nil)
	require.NoError(t, err)
	return p
}

func TestNew_Validation(t *testing.T) {
	t.Run("MissingAPIKey", func(t *testing.T) {
		_, err := New(Config{Model: "gpt-4o-mini"}, nil)
		require.Error(t, err)
		assert.True(t, errkit.IsCode(err, errkit.CodeConfiguration))
	})

	t.Run("MissingModel", func(t *testing.T) {
		_, err := New(Config{APIKey: "k"}, nil)
		require.Error(t, err)
		assert.True(t, errkit.IsCode(err, errkit.CodeConfiguration))
	})

	t.Run("UnknownModelGetsConservativeWindow", func(t *testing.T) {
		p := newTestProvider(t, "mystery-model")
		assert.Equal(t, 16384, p.MaxContextTokens())
	})

	t.Run("KnownModelWindow", func(t *testing.T) {
		p := newTestProvider(t, "gpt-4o-mini")
		assert.Equal(t, "gpt-4o-mini", p.ModelName())
		assert.Equal(t, 128000, p.MaxContextTokens())
	})
}

func TestBuildRequestMessages(t *testing.T) {
	p := newTestProvider(t, "gpt-4o-mini")

	t.Run("SystemPromptFirst", func(t *testing.T) {
		out := p.buildRequestMessages("be brief", []llm.WireMessage{
			{Role: llm.RoleUser, Content: "hi"},
		})
		require.Len(t, out, 2)
		assert.Equal(t, goopenai.ChatMessageRoleSystem, out[0].Role)
		assert.Equal(t, "be brief", out[0].Content)
		assert.Equal(t, "hi", out[1].Content)
	})

	t.Run("EmptySystemPromptSkipped", func(t *testing.T) {
		out := p.buildRequestMessages("", []llm.WireMessage{{Role: llm.RoleUser, Content: "hi"}})
		require.Len(t, out, 1)
	})

	t.Run("StructuredPartsMapped", func(t *testing.T) {
		out := p.buildRequestMessages("", []llm.WireMessage{{
			Role: llm.RoleUser,
			Parts: []llm.Part{
				{Kind: llm.PartText, Text: "[Alice]: look at this"},
				{Kind: llm.PartImage, ImageURL: "https://example.com/a.png"},
			},
		}})
		require.Len(t, out, 1)
		require.Len(t, out[0].MultiContent, 2)
		assert.Equal(t, goopenai.ChatMessagePartTypeText, out[0].MultiContent[0].Type)
		assert.Equal(t, "[Alice]: look at this", out[0].MultiContent[0].Text)
		assert.Equal(t, goopenai.ChatMessagePartTypeImageURL, out[0].MultiContent[1].Type)
		require.NotNil(t, out[0].MultiContent[1].ImageURL)
		assert.Equal(t, "https://example.com/a.png", out[0].MultiContent[1].ImageURL.URL)
	})

	t.Run("UnknownPartDegradesToText", func(t *testing.T) {
		out := p.buildRequestMessages("", []llm.WireMessage{{
			Role:  llm.RoleUser,
			Parts: []llm.Part{{Kind: llm.PartKind("sticker"), Text: "(sticker)"}},
		}})
		require.Len(t, out[0].MultiContent, 1)
		assert.Equal(t, goopenai.ChatMessagePartTypeText, out[0].MultiContent[0].Type)
	})
}

func TestMapError(t *testing.T) {
	p := newTestProvider(t, "gpt-4o-mini")

	tests := []struct {
		name string
		err  error
		code errkit.Code
	}{
		{"DeadlineExceeded", context.DeadlineExceeded, errkit.CodeBackendTimeout},
		{"Unauthorized", &goopenai.APIError{HTTPStatusCode: 401}, errkit.CodeBackendAuth},
		{"Forbidden", &goopenai.APIError{HTTPStatusCode: 403}, errkit.CodeBackendAuth},
		{"RateLimited", &goopenai.APIError{HTTPStatusCode: 429}, errkit.CodeBackendRateLimited},
		{"ContextLengthExceeded", &goopenai.APIError{
			HTTPStatusCode: 400,
			Code:           "context_length_exceeded",
		}, errkit.CodeBudgetExhausted},
		{"ContextLengthByMessage", &goopenai.APIError{
			HTTPStatusCode: 400,
			Message:        "This model's maximum context length is 8192 tokens",
		}, errkit.CodeBudgetExhausted},
		{"ServerError", &goopenai.APIError{HTTPStatusCode: 500}, errkit.CodeBackendMalformed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := p.mapError(tt.err)
			assert.True(t, errkit.IsCode(got, tt.code), "expected %s, got %v", tt.code, got)
		})
	}
}

func TestCountTokens(t *testing.T) {
	p := newTestProvider(t, "gpt-4o-mini")
	count := p.CountTokens([]llm.WireMessage{{Role: llm.RoleUser, Content: "hello world"}})
	assert.Greater(t, count, 0)
}

func TestNew_ImageTokenCost(t *testing.T) {
	p, err := New(Config{APIKey: "sk-test", Model: "gpt-4o-mini", ImageTokenCost: 111}, nil)
	require.NoError(t, err)
	assert.Equal(t, 111, p.counter.ImageTokenCost)
}
