package llm

import "context"

// Completion is a successful backend reply with its usage accounting.
type Completion struct {
	Text             string
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// Provider is one backend family: it knows how to count, format, and
// execute for its models. Implementations must map failures onto the errkit
// taxonomy so callers can distinguish auth, throttling, timeout, and
// malformed-response outcomes.
type Provider interface {
	ModelName() string
	MaxContextTokens() int
	CountTokens(messages []WireMessage) int
	FormatMessages(messages []Message, multiParty bool) []WireMessage
	Complete(ctx context.Context, systemPrompt string, messages []WireMessage) (*Completion, error)
}

// RequestState tracks one outgoing request through its lifecycle.
type RequestState string

const (
	StateComposing  RequestState = "COMPOSING"
	StateDispatched RequestState = "DISPATCHED"
	StateCompleted  RequestState = "COMPLETED"
	StateFailed     RequestState = "FAILED"
)

// CallParams is the parameter set a model accepts. Reasoning-oriented
// models reject sampling temperature and take a verbosity/effort pair
// instead.
type CallParams struct {
	Temperature     *float32
	ReasoningEffort string
	Verbosity       string
}

// ModelSpec is one registry entry: the model's context window and its
// accepted parameters.
type ModelSpec struct {
	ContextTokens int
	Params        CallParams
}

func temp(v float32) *float32 { return &v }

// modelRegistry maps model identifiers to their accepted parameter sets and
// context windows. Parameter selection is data-driven; adding a model is a
// table entry, not a string-prefix branch.
var modelRegistry = map[string]ModelSpec{
	"gpt-5":        {ContextTokens: 400000, Params: CallParams{ReasoningEffort: "low", Verbosity: "low"}},
	"gpt-5-mini":   {ContextTokens: 400000, Params: CallParams{ReasoningEffort: "low", Verbosity: "low"}},
	"gpt-5-nano":   {ContextTokens: 400000, Params: CallParams{ReasoningEffort: "low", Verbosity: "low"}},
	"gpt-4.1-mini": {ContextTokens: 128000, Params: CallParams{Temperature: temp(0.7)}},
	"gpt-4o":       {ContextTokens: 128000, Params: CallParams{Temperature: temp(0.7)}},
	"gpt-4o-mini":  {ContextTokens: 128000, Params: CallParams{Temperature: temp(0.7)}},
	"gpt-4-turbo":  {ContextTokens: 128000, Params: CallParams{Temperature: temp(0.7)}},
	"gpt-4":        {ContextTokens: 8192, Params: CallParams{Temperature: temp(0.7)}},
	"gpt-3.5-turbo": {ContextTokens: 16385, Params: CallParams{Temperature: temp(0.7)}},

	// OpenAI-compatible endpoints reached via base URL.
	"grok-4":        {ContextTokens: 256000, Params: CallParams{Temperature: temp(0.7)}},
	"deepseek-chat": {ContextTokens: 65536, Params: CallParams{Temperature: temp(0.7)}},
}

// defaultModelSpec is the most conservative entry: a small window and plain
// sampling. Unknown models land here instead of failing.
var defaultModelSpec = ModelSpec{
	ContextTokens: 16384,
	Params:        CallParams{Temperature: temp(0.7)},
}

// SpecFor looks up a model's registry entry. The boolean is false when the
// model is unknown and the conservative default was returned; callers log
// an advisory in that case but proceed.
func SpecFor(model string) (ModelSpec, bool) {
	if spec, ok := modelRegistry[model]; ok {
		return spec, true
	}
	return defaultModelSpec, false
}
