package store

// ConversationKind distinguishes one-on-one chats from group chats.
type ConversationKind string

const (
	ConversationPrivate ConversationKind = "private"
	ConversationGroup   ConversationKind = "group"
)

// Conversation is per-chat state: the active personality and an optional
// model override. ID is the external chat identifier.
type Conversation struct {
	ID   string
	Kind ConversationKind
	// Personality names the active personality; empty means the built-in
	// default persona.
	Personality string
	// ModelOverride replaces the configured model for this chat when set.
	ModelOverride string
	CreatedTs     int64
	UpdatedTs     int64
}

type FindConversation struct {
	ID   *string
	Kind *ConversationKind
}

type UpdateConversation struct {
	ID            string
	Personality   *string
	ModelOverride *string
	UpdatedTs     *int64
}
