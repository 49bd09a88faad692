package llm

import (
	"log/slog"
	"sync"

	tiktoken "github.com/pkoukk/tiktoken-go"

	"github.com/tzefoong/relaybot/internal/errkit"
)

// Per-message wire framing: <im_start>{role}\n{content}<im_end>\n costs
// roughly four tokens, and every reply is primed with <im_start>assistant.
const (
	messageOverheadTokens = 4
	replyPrimingTokens    = 2
)

// DefaultImageTokenCost is the charge for one image reference. 765 is the
// documented cost of a 1024px high-detail image on the OpenAI family; treat
// it as a tunable constant, not a derived one.
const DefaultImageTokenCost = 765

// fallbackEncoding approximates models tiktoken does not know.
const fallbackEncoding = "cl100k_base"

// Tokenizer counts the tokens a formatted message sequence will occupy for
// a given model. Counts are only meaningful relative to that model.
type Tokenizer interface {
	Count(messages []WireMessage, model string) int
}

// TiktokenCounter counts with tiktoken encodings and degrades to a
// deterministic chars/4 heuristic when no encoder is available. Counting
// never fails: an inaccurate trim is recoverable, a dropped conversation
// is not.
type TiktokenCounter struct {
	// ImageTokenCost is the per-image charge; zero means DefaultImageTokenCost.
	ImageTokenCost int

	mu       sync.Mutex
	encoders map[string]*tiktoken.Tiktoken
}

// NewTiktokenCounter creates a tokenizer with an empty encoder cache.
func NewTiktokenCounter() *TiktokenCounter {
	return &TiktokenCounter{
		encoders: make(map[string]*tiktoken.Tiktoken),
	}
}

// Count returns the token total for messages targeting model, including
// per-message framing overhead and reply priming. Undercounting risks
// exceeding the real wire limit, so the structural overhead is always
// charged even in heuristic mode.
func (c *TiktokenCounter) Count(messages []WireMessage, model string) int {
	enc := c.encoderFor(model)
	total := 0
	for i := range messages {
		total += c.countMessage(enc, &messages[i])
	}
	return total + replyPrimingTokens
}

func (c *TiktokenCounter) countMessage(enc *tiktoken.Tiktoken, msg *WireMessage) int {
	total := messageOverheadTokens
	if len(msg.Parts) == 0 {
		return total + c.countText(enc, msg.Content)
	}
	for _, part := range msg.Parts {
		switch part.Kind {
		case PartImage:
			total += c.imageCost()
		default:
			// Text and unknown pass-through parts both carry their text cost.
			total += c.countText(enc, part.Text)
		}
	}
	return total
}

func (c *TiktokenCounter) countText(enc *tiktoken.Tiktoken, text string) int {
	if enc == nil {
		// Heuristic: 4 characters per token.
		return len(text) / 4
	}
	return len(enc.Encode(text, nil, nil))
}

func (c *TiktokenCounter) imageCost() int {
	if c.ImageTokenCost > 0 {
		return c.ImageTokenCost
	}
	return DefaultImageTokenCost
}

// encoderFor resolves and caches the encoding for a model. A nil result
// means heuristic counting.
func (c *TiktokenCounter) encoderFor(model string) *tiktoken.Tiktoken {
	c.mu.Lock()
	defer c.mu.Unlock()

	if enc, ok := c.encoders[model]; ok {
		return enc
	}

	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		slog.Warn("model not known to tiktoken, using fallback encoding",
			"code", string(errkit.CodeTokenizationUnavailable),
			"model", model, "encoding", fallbackEncoding)
		enc, err = tiktoken.GetEncoding(fallbackEncoding)
		if err != nil {
			slog.Error("tiktoken unavailable, falling back to heuristic counting",
				"code", string(errkit.CodeTokenizationUnavailable),
				"model", model, "error", err)
			enc = nil
		}
	}

	c.encoders[model] = enc
	return enc
}

// HeuristicCounter counts without any encoder: chars/4 plus framing
// overhead. Used directly by providers whose counting endpoint would block
// the request path.
type HeuristicCounter struct {
	// ImageTokenCost is the per-image charge; zero means DefaultImageTokenCost.
	ImageTokenCost int
}

// Count implements Tokenizer.
func (h *HeuristicCounter) Count(messages []WireMessage, _ string) int {
	total := 0
	for _, msg := range messages {
		total += messageOverheadTokens
		if len(msg.Parts) == 0 {
			total += len(msg.Content) / 4
			continue
		}
		for _, part := range msg.Parts {
			if part.Kind == PartImage {
				if h.ImageTokenCost > 0 {
					total += h.ImageTokenCost
				} else {
					total += DefaultImageTokenCost
				}
				continue
			}
			total += len(part.Text) / 4
		}
	}
	return total + replyPrimingTokens
}
