package store

import (
	"context"
	"database/sql"
)

// Driver is the set of operations a database backend must implement.
type Driver interface {
	GetDB() *sql.DB
	Close() error

	IsInitialized(ctx context.Context) (bool, error)

	// Message model related methods.
	CreateMessage(ctx context.Context, create *Message) (*Message, error)
	ListMessages(ctx context.Context, find *FindMessage) ([]*Message, error)
	CountMessages(ctx context.Context, conversationID string) (int, error)
	GetMessageStats(ctx context.Context, conversationID string) (*MessageStats, error)
	DeleteMessages(ctx context.Context, delete *DeleteMessage) (int64, error)

	// Conversation model related methods.
	UpsertConversation(ctx context.Context, upsert *Conversation) (*Conversation, error)
	GetConversation(ctx context.Context, find *FindConversation) (*Conversation, error)
	ListConversations(ctx context.Context, find *FindConversation) ([]*Conversation, error)
	UpdateConversation(ctx context.Context, update *UpdateConversation) (*Conversation, error)

	// Personality model related methods.
	UpsertPersonality(ctx context.Context, upsert *Personality) (*Personality, error)
	ListPersonalities(ctx context.Context, find *FindPersonality) ([]*Personality, error)
	DeletePersonality(ctx context.Context, delete *DeletePersonality) error

	// Grant model related methods.
	UpsertGrant(ctx context.Context, upsert *Grant) (*Grant, error)
	ListGrants(ctx context.Context, find *FindGrant) ([]*Grant, error)
	DeleteGrant(ctx context.Context, delete *DeleteGrant) error
}
