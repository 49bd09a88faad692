package llm

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/tzefoong/relaybot/internal/errkit"
)

// DefaultPersonalityName is the reserved name meaning "no override": a
// conversation pointing at it uses the built-in default persona.
const DefaultPersonalityName = "normal"

const defaultPrivatePersona = `You are a personal assistant relaying messages in a chat app.

Key behaviors:
- Be direct and concise - no unnecessary preambles
- Provide clear, helpful responses
- Never claim to be the model vendor or reference being a language model
- Respond naturally as a personal assistant`

const defaultGroupPersona = `You are a personal assistant operating in a group chat.

Key behaviors:
- Be direct and concise - no unnecessary preambles
- Provide clear, helpful responses
- Never claim to be the model vendor or reference being a language model
- Track conversation context from multiple participants
- Messages are formatted as [Name]: content - reply naturally without mimicking this format`

// PersonaSource resolves per-conversation personality overrides.
type PersonaSource interface {
	// ActivePersonality returns the personality name a conversation points
	// at, or DefaultPersonalityName when none is set.
	ActivePersonality(ctx context.Context, chatID string) (string, error)
	// PersonalityPrompt returns the prompt text for a named personality.
	// The boolean is false when the personality does not exist.
	PersonalityPrompt(ctx context.Context, name string) (string, bool, error)
}

// BuildInput is everything one prompt assembly needs.
type BuildInput struct {
	ChatID     string
	MultiParty bool
	// History is the stored conversation in chronological order.
	History []Message
	// Incoming is the live turn when it is not yet part of History (the
	// stateless preview path); nil otherwise.
	Incoming *Message
	Model    string
	Budget   Budget
	// PersonaOverride bypasses personality resolution entirely when set.
	PersonaOverride string
	// ReplyContext is folded into the system prompt when the incoming turn
	// replies to an earlier message.
	ReplyContext *ReplyContext
}

// Prompt is the assembled request payload.
type Prompt struct {
	System   string
	Messages []WireMessage
	// Retained and Dropped describe what trimming did to the input.
	Retained int
	Dropped  int
}

// PromptBuilder composes system instructions and combines them with the
// trimmed, formatted history into the final request payload. Stateless with
// respect to a single invocation; safe for concurrent use across
// conversations.
type PromptBuilder struct {
	trimmer  *Trimmer
	personas PersonaSource
	logger   *slog.Logger

	loc         *time.Location
	includeTime bool
	now         func() time.Time
}

// PromptBuilderOption customizes a PromptBuilder.
type PromptBuilderOption func(*PromptBuilder)

// WithTimezone sets the reference timezone for the time-context line.
func WithTimezone(loc *time.Location) PromptBuilderOption {
	return func(b *PromptBuilder) { b.loc = loc }
}

// WithoutTimeContext drops the time-context line from system prompts.
func WithoutTimeContext() PromptBuilderOption {
	return func(b *PromptBuilder) { b.includeTime = false }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) PromptBuilderOption {
	return func(b *PromptBuilder) { b.now = now }
}

// NewPromptBuilder creates a prompt builder. personas may be nil, in which
// case the built-in default personas always apply.
func NewPromptBuilder(trimmer *Trimmer, personas PersonaSource, logger *slog.Logger, opts ...PromptBuilderOption) *PromptBuilder {
	if logger == nil {
		logger = slog.Default()
	}
	b := &PromptBuilder{
		trimmer:     trimmer,
		personas:    personas,
		logger:      logger,
		loc:         time.UTC,
		includeTime: true,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Build assembles the system prompt and the trimmed, formatted message
// array. A non-empty input that trims to nothing is a budget-exhausted
// failure: the live turn alone no longer fits the model context.
func (b *PromptBuilder) Build(ctx context.Context, in BuildInput) (*Prompt, error) {
	if err := in.Budget.Validate(); err != nil {
		return nil, err
	}

	history := in.History
	if in.Incoming != nil {
		// The live turn joins the scan as the newest message so it is
		// indistinguishable in shape from historical turns.
		history = make([]Message, 0, len(in.History)+1)
		history = append(history, in.History...)
		history = append(history, *in.Incoming)
	}

	trimmed := b.trimmer.Trim(history, in.Budget, in.Model, in.MultiParty)
	if len(history) > 0 && len(trimmed) == 0 {
		return nil, errkit.BudgetExhausted("message too large for model context")
	}

	return &Prompt{
		System:   b.buildSystemPrompt(ctx, in),
		Messages: FormatMessages(trimmed, in.MultiParty),
		Retained: len(trimmed),
		Dropped:  len(history) - len(trimmed),
	}, nil
}

// buildSystemPrompt joins the optional parts in fixed order: time context,
// persona, reply context.
func (b *PromptBuilder) buildSystemPrompt(ctx context.Context, in BuildInput) string {
	var parts []string

	if b.includeTime {
		parts = append(parts, "Current date/time: "+b.now().In(b.loc).Format(time.RFC3339))
	}

	parts = append(parts, `"`+b.resolvePersona(ctx, in)+`"`)

	if in.ReplyContext != nil {
		parts = append(parts, "Note: The user is replying to a previous message from "+
			in.ReplyContext.SenderLabel+`: "`+in.ReplyContext.Content+`"`)
	}

	return strings.Join(parts, "\n\n")
}

func (b *PromptBuilder) resolvePersona(ctx context.Context, in BuildInput) string {
	if in.PersonaOverride != "" {
		return in.PersonaOverride
	}

	fallback := defaultPrivatePersona
	if in.MultiParty {
		fallback = defaultGroupPersona
	}

	if b.personas == nil {
		return fallback
	}

	name, err := b.personas.ActivePersonality(ctx, in.ChatID)
	if err != nil {
		b.logger.Warn("failed to resolve active personality, using default persona",
			"chat_id", in.ChatID, "error", err)
		return fallback
	}
	if name == "" || name == DefaultPersonalityName {
		return fallback
	}

	prompt, ok, err := b.personas.PersonalityPrompt(ctx, name)
	if err != nil {
		b.logger.Warn("failed to load personality prompt, using default persona",
			"chat_id", in.ChatID, "personality", name, "error", err)
		return fallback
	}
	if !ok {
		b.logger.Warn("active personality not found, using default persona",
			"chat_id", in.ChatID, "personality", name)
		return fallback
	}
	return prompt
}
