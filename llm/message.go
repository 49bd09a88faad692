// Package llm implements the provider-agnostic token budgeting core: message
// shaping, token counting, history trimming, and prompt assembly.
package llm

import "time"

// Role classifies who produced a message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// PartKind classifies one element of structured message content.
type PartKind string

const (
	PartText  PartKind = "text"
	PartImage PartKind = "image"
)

// Part is one element of structured content. Kinds other than PartText and
// PartImage are carried through untouched so newer part types survive a
// round trip through the pipeline.
type Part struct {
	Kind PartKind
	// Text is set for PartText parts.
	Text string
	// ImageURL is set for PartImage parts (an https or data URL).
	ImageURL string
}

// Message is one conversation turn as the core sees it. Messages are
// immutable once persisted; trimming and formatting never mutate them.
type Message struct {
	Role Role
	// Text holds plain content. Ignored when Parts is non-empty.
	Text string
	// Parts holds structured content (text segments and image references).
	Parts []Part
	// SenderLabel is the display name of the sender, present for user-role
	// messages in multi-party conversations.
	SenderLabel string
	// Timestamp is the creation time; non-decreasing within a conversation.
	Timestamp time.Time
	// TokenCount is the cached count computed at storage time. Advisory: a
	// zero value or a CountedFor mismatch triggers a recount.
	TokenCount int
	// CountedFor names the model TokenCount was computed against.
	CountedFor string
}

// IsStructured reports whether the message carries part-based content.
func (m *Message) IsStructured() bool {
	return len(m.Parts) > 0
}

// HasImage reports whether any content part is an image reference.
func (m *Message) HasImage() bool {
	for _, p := range m.Parts {
		if p.Kind == PartImage {
			return true
		}
	}
	return false
}

// WireMessage is a formatted message in the shape handed to a provider:
// sender attribution applied, parts translated. Content is set for plain
// text; Parts for structured content.
type WireMessage struct {
	Role    Role
	Content string
	Parts   []Part
}

// ReplyContext describes the message an incoming turn replies to. It is
// folded into the system prompt rather than the history.
type ReplyContext struct {
	SenderLabel string
	Content     string
}
