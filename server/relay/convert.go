package relay

import (
	"encoding/json"
	"time"

	"github.com/pkg/errors"

	"github.com/tzefoong/relaybot/llm"
	"github.com/tzefoong/relaybot/store"
)

// toLLMMessage converts a stored row into the shape the budgeting core
// consumes. A malformed parts payload degrades to the plain content rather
// than dropping the turn.
func toLLMMessage(m *store.Message) llm.Message {
	msg := llm.Message{
		Role:        llm.Role(m.Role),
		Text:        m.Content,
		SenderLabel: m.SenderLabel,
		Timestamp:   time.Unix(m.CreatedTs, 0),
		TokenCount:  m.TokenCount,
		CountedFor:  m.CountedFor,
	}
	if m.PartsJSON != "" {
		var parts []llm.Part
		if err := json.Unmarshal([]byte(m.PartsJSON), &parts); err == nil {
			msg.Parts = parts
		}
	}
	return msg
}

func toLLMMessages(rows []*store.Message) []llm.Message {
	out := make([]llm.Message, len(rows))
	for i, m := range rows {
		out[i] = toLLMMessage(m)
	}
	return out
}

// toStoreMessage converts a core message into a row for persistence.
func toStoreMessage(conversationID string, msg *llm.Message) (*store.Message, error) {
	row := &store.Message{
		ConversationID: conversationID,
		Role:           store.MessageRole(msg.Role),
		Content:        msg.Text,
		SenderLabel:    msg.SenderLabel,
		TokenCount:     msg.TokenCount,
		CountedFor:     msg.CountedFor,
	}
	if !msg.Timestamp.IsZero() {
		row.CreatedTs = msg.Timestamp.Unix()
	}
	if len(msg.Parts) > 0 {
		b, err := json.Marshal(msg.Parts)
		if err != nil {
			return nil, errors.Wrap(err, "failed to marshal message parts")
		}
		row.PartsJSON = string(b)
	}
	return row, nil
}
