// Package store provides database access to all raw objects of the relay:
// messages, conversations, personalities, and grants.
package store

import (
	"context"
	"time"

	"github.com/lithammer/shortuuid/v4"
	"github.com/pkg/errors"

	"github.com/tzefoong/relaybot/internal/profile"
	"github.com/tzefoong/relaybot/store/cache"
)

// Store wraps a Driver with read-through caches for the small, hot lookup
// tables. Message reads and writes always go to the driver.
type Store struct {
	profile *profile.Profile
	driver  Driver

	grantCache        *cache.Cache
	personalityCache  *cache.Cache
	conversationCache *cache.Cache
}

// New creates a Store over the given driver.
func New(driver Driver, profile *profile.Profile) *Store {
	cacheConfig := cache.DefaultConfig()

	return &Store{
		driver:            driver,
		profile:           profile,
		grantCache:        cache.New(cacheConfig),
		personalityCache:  cache.New(cacheConfig),
		conversationCache: cache.New(cacheConfig),
	}
}

func (s *Store) GetDriver() Driver {
	return s.driver
}

func (s *Store) Close() error {
	s.grantCache.Close()
	s.personalityCache.Close()
	s.conversationCache.Close()

	return s.driver.Close()
}

// Message operations.

func (s *Store) CreateMessage(ctx context.Context, create *Message) (*Message, error) {
	if create.UID == "" {
		create.UID = shortuuid.New()
	}
	if create.CreatedTs == 0 {
		create.CreatedTs = time.Now().Unix()
	}
	return s.driver.CreateMessage(ctx, create)
}

func (s *Store) ListMessages(ctx context.Context, find *FindMessage) ([]*Message, error) {
	return s.driver.ListMessages(ctx, find)
}

// RecentHistory returns the newest limit messages of a conversation in
// chronological order.
func (s *Store) RecentHistory(ctx context.Context, conversationID string, limit int) ([]*Message, error) {
	return s.driver.ListMessages(ctx, &FindMessage{
		ConversationID: &conversationID,
		Limit:          &limit,
	})
}

func (s *Store) CountMessages(ctx context.Context, conversationID string) (int, error) {
	return s.driver.CountMessages(ctx, conversationID)
}

// GetMessageStats aggregates message count, summed token counts, and the
// first/last message timestamps of a conversation.
func (s *Store) GetMessageStats(ctx context.Context, conversationID string) (*MessageStats, error) {
	return s.driver.GetMessageStats(ctx, conversationID)
}

func (s *Store) DeleteMessages(ctx context.Context, delete *DeleteMessage) (int64, error) {
	return s.driver.DeleteMessages(ctx, delete)
}

// Conversation operations.

func (s *Store) UpsertConversation(ctx context.Context, upsert *Conversation) (*Conversation, error) {
	now := time.Now().Unix()
	if upsert.CreatedTs == 0 {
		upsert.CreatedTs = now
	}
	upsert.UpdatedTs = now

	conversation, err := s.driver.UpsertConversation(ctx, upsert)
	if err != nil {
		return nil, err
	}
	s.conversationCache.Set(conversation.ID, conversation)
	return conversation, nil
}

// GetConversation returns the conversation or nil when it does not exist.
func (s *Store) GetConversation(ctx context.Context, find *FindConversation) (*Conversation, error) {
	if find.ID != nil {
		if v, ok := s.conversationCache.Get(*find.ID); ok {
			return v.(*Conversation), nil
		}
	}

	conversation, err := s.driver.GetConversation(ctx, find)
	if err != nil {
		return nil, err
	}
	if conversation != nil {
		s.conversationCache.Set(conversation.ID, conversation)
	}
	return conversation, nil
}

func (s *Store) ListConversations(ctx context.Context, find *FindConversation) ([]*Conversation, error) {
	return s.driver.ListConversations(ctx, find)
}

func (s *Store) UpdateConversation(ctx context.Context, update *UpdateConversation) (*Conversation, error) {
	now := time.Now().Unix()
	if update.UpdatedTs == nil {
		update.UpdatedTs = &now
	}

	conversation, err := s.driver.UpdateConversation(ctx, update)
	if err != nil {
		return nil, err
	}
	s.conversationCache.Set(conversation.ID, conversation)
	return conversation, nil
}

// Personality operations.

func (s *Store) UpsertPersonality(ctx context.Context, upsert *Personality) (*Personality, error) {
	now := time.Now().Unix()
	if upsert.CreatedTs == 0 {
		upsert.CreatedTs = now
	}
	upsert.UpdatedTs = now

	personality, err := s.driver.UpsertPersonality(ctx, upsert)
	if err != nil {
		return nil, err
	}
	s.personalityCache.Set(personality.Name, personality)
	return personality, nil
}

// GetPersonality returns the named personality or nil when it does not exist.
func (s *Store) GetPersonality(ctx context.Context, name string) (*Personality, error) {
	if v, ok := s.personalityCache.Get(name); ok {
		return v.(*Personality), nil
	}

	list, err := s.driver.ListPersonalities(ctx, &FindPersonality{Name: &name})
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, nil
	}
	s.personalityCache.Set(name, list[0])
	return list[0], nil
}

func (s *Store) ListPersonalities(ctx context.Context, find *FindPersonality) ([]*Personality, error) {
	return s.driver.ListPersonalities(ctx, find)
}

func (s *Store) DeletePersonality(ctx context.Context, delete *DeletePersonality) error {
	if err := s.driver.DeletePersonality(ctx, delete); err != nil {
		return err
	}
	s.personalityCache.Delete(delete.Name)
	return nil
}

// Grant operations.

func (s *Store) UpsertGrant(ctx context.Context, upsert *Grant) (*Grant, error) {
	if upsert.CreatedTs == 0 {
		upsert.CreatedTs = time.Now().Unix()
	}

	grant, err := s.driver.UpsertGrant(ctx, upsert)
	if err != nil {
		return nil, err
	}
	s.grantCache.Set(grant.UserID, true)
	return grant, nil
}

// IsGranted reports whether the user may talk to the relay. Both positive
// and negative results are cached.
func (s *Store) IsGranted(ctx context.Context, userID string) (bool, error) {
	if v, ok := s.grantCache.Get(userID); ok {
		return v.(bool), nil
	}

	list, err := s.driver.ListGrants(ctx, &FindGrant{UserID: &userID})
	if err != nil {
		return false, err
	}
	granted := len(list) > 0
	s.grantCache.Set(userID, granted)
	return granted, nil
}

func (s *Store) ListGrants(ctx context.Context, find *FindGrant) ([]*Grant, error) {
	return s.driver.ListGrants(ctx, find)
}

func (s *Store) DeleteGrant(ctx context.Context, delete *DeleteGrant) error {
	if err := s.driver.DeleteGrant(ctx, delete); err != nil {
		return err
	}
	s.grantCache.Delete(delete.UserID)
	return nil
}

// PersonaSource implementation for the prompt builder.

// ActivePersonality returns the personality name the conversation points at,
// or the empty string when none is set.
func (s *Store) ActivePersonality(ctx context.Context, chatID string) (string, error) {
	conversation, err := s.GetConversation(ctx, &FindConversation{ID: &chatID})
	if err != nil {
		return "", errors.Wrap(err, "failed to get conversation")
	}
	if conversation == nil {
		return "", nil
	}
	return conversation.Personality, nil
}

// PersonalityPrompt returns the prompt text for a named personality; the
// boolean is false when the personality does not exist.
func (s *Store) PersonalityPrompt(ctx context.Context, name string) (string, bool, error) {
	personality, err := s.GetPersonality(ctx, name)
	if err != nil {
		return "", false, errors.Wrap(err, "failed to get personality")
	}
	if personality == nil {
		return "", false, nil
	}
	return personality.Prompt, true, nil
}
