// Package relay implements the message relay pipeline: grant checking,
// history persistence, prompt assembly, backend dispatch, and reply
// persistence.
package relay

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/tzefoong/relaybot/internal/errkit"
	"github.com/tzefoong/relaybot/internal/observability"
	"github.com/tzefoong/relaybot/internal/profile"
	"github.com/tzefoong/relaybot/llm"
	"github.com/tzefoong/relaybot/server/timezone"
	"github.com/tzefoong/relaybot/store"
)

// Event is one incoming message from the chat platform.
type Event struct {
	ChatID      string
	Group       bool
	SenderID    string
	SenderLabel string
	Text        string
	Parts       []llm.Part
	// ReplyTo is set when the sender replies to an earlier message.
	ReplyTo *llm.ReplyContext
	// Preview runs the pipeline statelessly: nothing is read from or
	// written to history.
	Preview bool
}

// Reply is the pipeline's result for one event.
type Reply struct {
	Text             string
	Model            string
	RequestID        string
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
	Retained         int
	Dropped          int
	Persisted        bool
	DurationMs       int64
}

// Pipeline wires the budgeting core to the store and the backend provider.
// Events within one conversation are handled strictly in arrival order;
// different conversations proceed concurrently.
type Pipeline struct {
	profile *profile.Profile
	store   *store.Store
	logger  *slog.Logger

	counter  *llm.TiktokenCounter
	builder  *llm.PromptBuilder
	reserves llm.ReservePolicy
	locks    *conversationLocks

	mu        sync.Mutex
	providers map[string]llm.Provider
}

// NewPipeline creates the pipeline from the profile.
func NewPipeline(p *profile.Profile, st *store.Store, logger *slog.Logger) (*Pipeline, error) {
	if logger == nil {
		logger = slog.Default()
	}

	loc, err := timezone.Parse(p.Timezone)
	if err != nil {
		return nil, err
	}

	counter := llm.NewTiktokenCounter()
	counter.ImageTokenCost = p.ImageTokenCost
	opts := []llm.PromptBuilderOption{llm.WithTimezone(loc)}
	if p.DisableTimeContext {
		opts = append(opts, llm.WithoutTimeContext())
	}

	return &Pipeline{
		profile:   p,
		store:     st,
		logger:    logger,
		counter:   counter,
		builder:   llm.NewPromptBuilder(llm.NewTrimmer(counter), st, logger, opts...),
		reserves:  llm.ReservePolicy{Text: p.TextReserveTokens, Image: p.ImageReserveTokens},
		locks:     newConversationLocks(),
		providers: make(map[string]llm.Provider),
	}, nil
}

// HandleMessage runs one event through the pipeline and returns the reply.
// On any failure nothing is persisted beyond the incoming message itself;
// a failed dispatch never leaves a partial assistant turn behind.
func (p *Pipeline) HandleMessage(ctx context.Context, event *Event) (*Reply, error) {
	if p.profile.EnforceGrants && !event.Preview {
		granted, err := p.store.IsGranted(ctx, event.SenderID)
		if err != nil {
			return nil, errkit.StoreUnavailable("failed to check grant list", err)
		}
		if !granted {
			return nil, errkit.Unauthorized("sender is not on the grant list")
		}
	}

	conversation, err := p.resolveConversation(ctx, event)
	if err != nil {
		return nil, err
	}

	model := p.profile.Model
	if conversation != nil && conversation.ModelOverride != "" {
		model = conversation.ModelOverride
	}

	provider, err := p.providerFor(model)
	if err != nil {
		return nil, err
	}

	reqCtx := observability.NewRequestContext(p.logger, event.ChatID, model)
	reqCtx.Info("handling message event",
		slog.String(observability.LogFieldState, string(llm.StateComposing)),
		slog.Bool("preview", event.Preview))

	if !event.Preview {
		p.locks.Lock(event.ChatID)
		defer p.locks.Unlock(event.ChatID)
	}

	incoming := llm.Message{
		Role:        llm.RoleUser,
		Text:        event.Text,
		Parts:       event.Parts,
		SenderLabel: event.SenderLabel,
		Timestamp:   time.Now(),
	}
	wire := llm.FormatMessage(&incoming, event.Group)
	incoming.TokenCount = p.counter.Count([]llm.WireMessage{wire}, model)
	incoming.CountedFor = model

	input := llm.BuildInput{
		ChatID:       event.ChatID,
		MultiParty:   event.Group,
		Model:        model,
		ReplyContext: event.ReplyTo,
		Budget: llm.Budget{
			MaxContextTokens: min(p.profile.MaxContextTokens, provider.MaxContextTokens()),
			ReserveTokens:    p.reserves.For(incoming.HasImage()),
		},
	}

	if event.Preview {
		input.Incoming = &incoming
	} else {
		// The incoming turn is persisted before prompt assembly so it
		// arrives through the history fetch like any other turn.
		row, err := toStoreMessage(event.ChatID, &incoming)
		if err != nil {
			return nil, errkit.Wrap(err, errkit.CodeStoreUnavailable, "encode incoming message")
		}
		if _, err := p.store.CreateMessage(ctx, row); err != nil {
			return nil, errkit.StoreUnavailable("failed to persist incoming message", err)
		}

		rows, err := p.store.RecentHistory(ctx, event.ChatID, p.profile.HistoryFetchLimit)
		if err != nil {
			return nil, errkit.StoreUnavailable("failed to load history", err)
		}
		input.History = toLLMMessages(rows)
	}

	prompt, err := p.builder.Build(ctx, input)
	if err != nil {
		p.logFailure(reqCtx, "prompt assembly failed", err)
		return nil, err
	}

	reqCtx.Info("dispatching completion request",
		slog.String(observability.LogFieldState, string(llm.StateDispatched)),
		slog.Int("retained", prompt.Retained),
		slog.Int("dropped", prompt.Dropped))

	callCtx, cancel := context.WithTimeout(ctx, p.profile.RequestTimeout)
	defer cancel()

	completion, err := provider.Complete(callCtx, prompt.System, prompt.Messages)
	if err != nil {
		p.logFailure(reqCtx, "completion request failed", err)
		return nil, err
	}

	reply := &Reply{
		Text:             completion.Text,
		Model:            model,
		RequestID:        reqCtx.RequestID,
		PromptTokens:     completion.PromptTokens,
		CompletionTokens: completion.CompletionTokens,
		TotalTokens:      completion.TotalTokens,
		Retained:         prompt.Retained,
		Dropped:          prompt.Dropped,
		DurationMs:       reqCtx.DurationMs(),
	}

	if !event.Preview {
		assistant := llm.Message{
			Role:      llm.RoleAssistant,
			Text:      completion.Text,
			Timestamp: time.Now(),
		}
		assistant.TokenCount = p.counter.Count(
			[]llm.WireMessage{llm.FormatMessage(&assistant, event.Group)}, model)
		assistant.CountedFor = model

		row, err := toStoreMessage(event.ChatID, &assistant)
		if err == nil {
			_, err = p.store.CreateMessage(ctx, row)
		}
		if err != nil {
			// The reply already exists; losing its history row is logged,
			// not fatal.
			reqCtx.Error("failed to persist assistant reply", err)
		} else {
			reply.Persisted = true
		}
	}

	reqCtx.Info("completion request finished",
		slog.String(observability.LogFieldState, string(llm.StateCompleted)),
		slog.Int(observability.LogFieldTokens, completion.TotalTokens),
		slog.Int64(observability.LogFieldDuration, reqCtx.DurationMs()))

	return reply, nil
}

// Cleanup prunes old messages from group conversations, keeping the
// configured recent window. Private conversations keep full history.
func (p *Pipeline) Cleanup(ctx context.Context) (int64, error) {
	kind := store.ConversationGroup
	conversations, err := p.store.ListConversations(ctx, &store.FindConversation{Kind: &kind})
	if err != nil {
		return 0, errkit.StoreUnavailable("failed to list conversations", err)
	}

	var total int64
	for _, c := range conversations {
		pruned, err := p.store.DeleteMessages(ctx, &store.DeleteMessage{
			ConversationID: &c.ID,
			KeepRecent:     p.profile.RetentionKeepRecent,
		})
		if err != nil {
			return total, errkit.StoreUnavailable("failed to prune conversation", err)
		}
		total += pruned
	}
	return total, nil
}

// resolveConversation loads per-chat state, creating the row on first
// contact. Preview events never touch the store.
func (p *Pipeline) resolveConversation(ctx context.Context, event *Event) (*store.Conversation, error) {
	if event.Preview {
		return nil, nil
	}

	conversation, err := p.store.GetConversation(ctx, &store.FindConversation{ID: &event.ChatID})
	if err != nil {
		return nil, errkit.StoreUnavailable("failed to load conversation", err)
	}
	if conversation != nil {
		return conversation, nil
	}

	kind := store.ConversationPrivate
	if event.Group {
		kind = store.ConversationGroup
	}
	conversation, err = p.store.UpsertConversation(ctx, &store.Conversation{
		ID:   event.ChatID,
		Kind: kind,
	})
	if err != nil {
		return nil, errkit.StoreUnavailable("failed to create conversation", err)
	}
	return conversation, nil
}

// providerFor returns the cached provider for a model, creating it on first
// use. Conversations with a model override get their own provider instance.
func (p *Pipeline) providerFor(model string) (llm.Provider, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if provider, ok := p.providers[model]; ok {
		return provider, nil
	}
	provider, err := NewProvider(p.profile, model, p.logger)
	if err != nil {
		return nil, err
	}
	p.providers[model] = provider
	return provider, nil
}

func (p *Pipeline) logFailure(reqCtx *observability.RequestContext, msg string, err error) {
	reqCtx.Error(msg, err,
		slog.String(observability.LogFieldState, string(llm.StateFailed)),
		slog.String(observability.LogFieldErrorCode, string(errkit.CodeOf(err, errkit.CodeBackendMalformed))),
		slog.Int64(observability.LogFieldDuration, reqCtx.DurationMs()))
}
