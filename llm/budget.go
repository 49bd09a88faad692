package llm

import "github.com/tzefoong/relaybot/internal/errkit"

// Budget is the token allocation for one outgoing request. Derived per
// request, never persisted.
type Budget struct {
	// MaxContextTokens is the total window the request may occupy.
	MaxContextTokens int
	// ReserveTokens is left unused so the model has room to answer.
	ReserveTokens int
}

// Validate checks the budget invariant. Violation is a configuration error,
// not a runtime one.
func (b Budget) Validate() error {
	if b.MaxContextTokens <= 0 {
		return errkit.Configuration("budget max context tokens must be positive")
	}
	if b.ReserveTokens < 0 {
		return errkit.Configuration("budget reserve tokens must not be negative")
	}
	if b.ReserveTokens >= b.MaxContextTokens {
		return errkit.Configurationf("budget reserve %d must be below max context tokens %d",
			b.ReserveTokens, b.MaxContextTokens)
	}
	return nil
}

// HistoryAllowance is the token count available to conversation history
// after the response reserve is held back.
func (b Budget) HistoryAllowance() int {
	return b.MaxContextTokens - b.ReserveTokens
}

// ReservePolicy selects the response reserve by turn content. Image-grounded
// answers tend to run longer, so image turns reserve more.
type ReservePolicy struct {
	Text  int
	Image int
}

// For returns the reserve for a turn, by whether it carries an image.
func (p ReservePolicy) For(hasImage bool) int {
	if hasImage {
		return p.Image
	}
	return p.Text
}
