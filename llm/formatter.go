package llm

import (
	"fmt"
	"strings"
)

// FormatMessage renders a stored message into the wire shape: sender
// attribution applied for multi-party user turns, structured parts carried
// over. It is a pure function: identical inputs yield identical output, and
// re-formatting an already formatted message changes nothing.
func FormatMessage(msg *Message, multiParty bool) WireMessage {
	if !msg.IsStructured() {
		content := msg.Text
		if multiParty && msg.Role == RoleUser {
			content = applySenderPrefix(content, msg.SenderLabel)
		}
		return WireMessage{Role: msg.Role, Content: content}
	}

	parts := make([]Part, len(msg.Parts))
	copy(parts, msg.Parts)

	// Only the first text part carries the sender label; repeating it on
	// every segment would teach the model to echo the prefix.
	if multiParty && msg.Role == RoleUser {
		for i := range parts {
			if parts[i].Kind == PartText {
				parts[i].Text = applySenderPrefix(parts[i].Text, msg.SenderLabel)
				break
			}
		}
	}

	return WireMessage{Role: msg.Role, Parts: parts}
}

// FormatMessages formats a message sequence, preserving order.
func FormatMessages(msgs []Message, multiParty bool) []WireMessage {
	out := make([]WireMessage, len(msgs))
	for i := range msgs {
		out[i] = FormatMessage(&msgs[i], multiParty)
	}
	return out
}

// applySenderPrefix prepends "[Name]: " unless the text already starts with
// a bracket form, so a message re-entering the pipeline is not prefixed
// twice.
func applySenderPrefix(text, senderLabel string) string {
	if strings.HasPrefix(text, "[") {
		return text
	}
	if senderLabel == "" {
		senderLabel = "Unknown"
	}
	return fmt.Sprintf("[%s]: %s", senderLabel, text)
}
