package store

// MessageRole mirrors the roles the budgeting core understands.
type MessageRole string

const (
	MessageRoleUser      MessageRole = "user"
	MessageRoleAssistant MessageRole = "assistant"
	MessageRoleSystem    MessageRole = "system"
)

// Message is one stored conversation turn. Content holds plain text;
// PartsJSON holds the serialized part list for structured turns and is
// empty otherwise.
type Message struct {
	ID int64
	// UID is a short external identifier, stable across exports.
	UID            string
	ConversationID string
	Role           MessageRole
	Content        string
	PartsJSON      string
	SenderLabel    string
	// TokenCount is the count cached at storage time, computed against
	// CountedFor. Zero means never counted.
	TokenCount int
	CountedFor string
	CreatedTs  int64
}

type FindMessage struct {
	ID             *int64
	ConversationID *string
	Role           *MessageRole
	// Limit caps the result to the N newest messages; the result is still
	// returned in chronological order.
	Limit *int
}

// MessageStats aggregates a conversation's stored history. Timestamps are
// zero when the conversation holds no messages.
type MessageStats struct {
	Count       int
	TotalTokens int64
	FirstTs     int64
	LastTs      int64
}

type DeleteMessage struct {
	ID             *int64
	ConversationID *string
	// KeepRecent retains the N newest messages of the conversation and
	// deletes the rest. Zero deletes everything matched.
	KeepRecent int
}
