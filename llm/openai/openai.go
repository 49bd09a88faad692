// Package openai is the reference Provider implementation on the OpenAI
// chat completion API. Compatible endpoints (Grok, DeepSeek) reuse it by
// pointing BaseURL elsewhere.
package openai

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	goopenai "github.com/sashabaranov/go-openai"

	"github.com/tzefoong/relaybot/internal/errkit"
	"github.com/tzefoong/relaybot/llm"
)

// Config holds the provider configuration.
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
	// ImageTokenCost overrides the per-image token charge; zero keeps the
	// default.
	ImageTokenCost int
}

// Provider implements llm.Provider over the OpenAI chat completion API.
type Provider struct {
	client  *goopenai.Client
	counter *llm.TiktokenCounter
	logger  *slog.Logger

	model string
	spec  llm.ModelSpec
}

// New creates a provider for the configured model. Unknown models get the
// conservative registry default and an advisory log line.
func New(cfg Config, logger *slog.Logger) (*Provider, error) {
	if cfg.APIKey == "" {
		return nil, errkit.Configuration("openai: api key is required")
	}
	if cfg.Model == "" {
		return nil, errkit.Configuration("openai: model is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	clientConfig := goopenai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}
	if cfg.Timeout > 0 {
		clientConfig.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	}

	spec, known := llm.SpecFor(cfg.Model)
	if !known {
		logger.Warn("model not in registry, using conservative defaults",
			"model", cfg.Model, "context_tokens", spec.ContextTokens)
	}

	counter := llm.NewTiktokenCounter()
	counter.ImageTokenCost = cfg.ImageTokenCost

	return &Provider{
		client:  goopenai.NewClientWithConfig(clientConfig),
		counter: counter,
		logger:  logger,
		model:   cfg.Model,
		spec:    spec,
	}, nil
}

// ModelName returns the configured model identifier.
func (p *Provider) ModelName() string { return p.model }

// MaxContextTokens returns the model's context window from the registry.
func (p *Provider) MaxContextTokens() int { return p.spec.ContextTokens }

// CountTokens counts with the model's tiktoken encoding.
func (p *Provider) CountTokens(messages []llm.WireMessage) int {
	return p.counter.Count(messages, p.model)
}

// FormatMessages renders stored messages into the wire shape.
func (p *Provider) FormatMessages(messages []llm.Message, multiParty bool) []llm.WireMessage {
	return llm.FormatMessages(messages, multiParty)
}

// Complete sends one chat completion request and maps failures onto the
// errkit taxonomy.
func (p *Provider) Complete(ctx context.Context, systemPrompt string, messages []llm.WireMessage) (*llm.Completion, error) {
	req := goopenai.ChatCompletionRequest{
		Model:    p.model,
		Messages: p.buildRequestMessages(systemPrompt, messages),
	}
	if p.spec.Params.Temperature != nil {
		req.Temperature = *p.spec.Params.Temperature
	}
	if p.spec.Params.ReasoningEffort != "" {
		req.ReasoningEffort = p.spec.Params.ReasoningEffort
	}
	if p.spec.Params.Verbosity != "" {
		req.Verbosity = p.spec.Params.Verbosity
	}

	resp, err := p.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return nil, p.mapError(err)
	}
	if len(resp.Choices) == 0 {
		return nil, errkit.BackendMalformed("empty choices in completion response", nil)
	}

	return &llm.Completion{
		Text:             resp.Choices[0].Message.Content,
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
		TotalTokens:      resp.Usage.TotalTokens,
	}, nil
}

func (p *Provider) buildRequestMessages(systemPrompt string, messages []llm.WireMessage) []goopenai.ChatCompletionMessage {
	out := make([]goopenai.ChatCompletionMessage, 0, len(messages)+1)
	if systemPrompt != "" {
		out = append(out, goopenai.ChatCompletionMessage{
			Role:    goopenai.ChatMessageRoleSystem,
			Content: systemPrompt,
		})
	}
	for i := range messages {
		out = append(out, toChatMessage(&messages[i]))
	}
	return out
}

func toChatMessage(msg *llm.WireMessage) goopenai.ChatCompletionMessage {
	cm := goopenai.ChatCompletionMessage{Role: string(msg.Role)}
	if len(msg.Parts) == 0 {
		cm.Content = msg.Content
		return cm
	}

	cm.MultiContent = make([]goopenai.ChatMessagePart, 0, len(msg.Parts))
	for _, part := range msg.Parts {
		switch part.Kind {
		case llm.PartImage:
			cm.MultiContent = append(cm.MultiContent, goopenai.ChatMessagePart{
				Type:     goopenai.ChatMessagePartTypeImageURL,
				ImageURL: &goopenai.ChatMessageImageURL{URL: part.ImageURL},
			})
		default:
			// Unknown part kinds degrade to their text representation.
			cm.MultiContent = append(cm.MultiContent, goopenai.ChatMessagePart{
				Type: goopenai.ChatMessagePartTypeText,
				Text: part.Text,
			})
		}
	}
	return cm
}

// mapError translates transport and API failures into the typed taxonomy.
func (p *Provider) mapError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return errkit.BackendTimeout("completion request timed out", err)
	}

	var apiErr *goopenai.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.HTTPStatusCode {
		case http.StatusUnauthorized, http.StatusForbidden:
			return errkit.BackendAuth("backend rejected credentials", err)
		case http.StatusTooManyRequests:
			return errkit.BackendRateLimited("backend throttled request", err)
		case http.StatusBadRequest:
			if strings.Contains(apiErr.Message, "maximum context length") ||
				apiErr.Code == "context_length_exceeded" {
				return errkit.BudgetExhausted("backend rejected request as over context limit")
			}
		}
	}

	// url.Error wraps client-side timeouts without a deadline sentinel.
	var netErr interface{ Timeout() bool }
	if errors.As(err, &netErr) && netErr.Timeout() {
		return errkit.BackendTimeout("completion request timed out", err)
	}

	return errkit.BackendMalformed("completion request failed", err)
}
