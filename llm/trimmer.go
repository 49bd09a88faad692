package llm

// Trimmer selects the subset of conversation history that fits a token
// budget. The strategy is recency-based: newer messages always outrank
// older ones regardless of content. Callers that need semantic relevance
// must layer retrieval on top.
type Trimmer struct {
	counter Tokenizer
}

// NewTrimmer creates a trimmer over the given tokenizer.
func NewTrimmer(counter Tokenizer) *Trimmer {
	return &Trimmer{counter: counter}
}

// Trim walks history from newest to oldest, retaining messages while their
// accumulated formatted cost stays within the budget's history allowance.
// The first message that would exceed the allowance stops the scan; it and
// everything older are dropped. The retained subset is returned in
// chronological order, newest last.
//
// A single message whose own cost exceeds the whole allowance yields an
// empty result rather than an error; the caller decides whether an empty
// history is acceptable.
func (t *Trimmer) Trim(history []Message, budget Budget, model string, multiParty bool) []Message {
	allowance := budget.HistoryAllowance()
	retained := make([]Message, 0, len(history))

	running := 0
	for i := len(history) - 1; i >= 0; i-- {
		cost := t.messageCost(&history[i], model, multiParty)
		if running+cost > allowance {
			break
		}
		retained = append(retained, history[i])
		running += cost
	}

	// Re-reverse into chronological order, oldest retained first.
	for i, j := 0, len(retained)-1; i < j; i, j = i+1, j-1 {
		retained[i], retained[j] = retained[j], retained[i]
	}
	return retained
}

// messageCost prefers the count cached at storage time; it recounts when the
// cache is absent or was computed for a different model.
func (t *Trimmer) messageCost(msg *Message, model string, multiParty bool) int {
	if msg.TokenCount > 0 && msg.CountedFor == model {
		return msg.TokenCount
	}
	wire := FormatMessage(msg, multiParty)
	return t.counter.Count([]WireMessage{wire}, model)
}
