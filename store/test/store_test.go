package test

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tzefoong/relaybot/store"
)

func TestMessageCRUD(t *testing.T) {
	ctx := context.Background()
	st := NewTestingStore(ctx, t)

	t.Run("CreateAssignsIDAndUID", func(t *testing.T) {
		msg, err := st.CreateMessage(ctx, &store.Message{
			ConversationID: "chat-1",
			Role:           store.MessageRoleUser,
			Content:        "hello",
			SenderLabel:    "Alice",
			TokenCount:     12,
			CountedFor:     "gpt-4o-mini",
		})
		require.NoError(t, err)
		assert.NotZero(t, msg.ID)
		assert.NotEmpty(t, msg.UID)
		assert.NotZero(t, msg.CreatedTs)
	})

	t.Run("RecentHistoryChronologicalWithLimit", func(t *testing.T) {
		for i := 0; i < 5; i++ {
			_, err := st.CreateMessage(ctx, &store.Message{
				ConversationID: "chat-2",
				Role:           store.MessageRoleUser,
				Content:        fmt.Sprintf("msg-%d", i),
				CreatedTs:      int64(1000 + i),
			})
			require.NoError(t, err)
		}

		history, err := st.RecentHistory(ctx, "chat-2", 3)
		require.NoError(t, err)
		require.Len(t, history, 3)
		// Newest three, oldest of them first.
		assert.Equal(t, "msg-2", history[0].Content)
		assert.Equal(t, "msg-4", history[2].Content)
	})

	t.Run("CountMessages", func(t *testing.T) {
		count, err := st.CountMessages(ctx, "chat-2")
		require.NoError(t, err)
		assert.Equal(t, 5, count)
	})

	t.Run("PruneKeepsRecentWindow", func(t *testing.T) {
		pruned, err := st.DeleteMessages(ctx, &store.DeleteMessage{
			ConversationID: strPtr("chat-2"),
			KeepRecent:     2,
		})
		require.NoError(t, err)
		assert.Equal(t, int64(3), pruned)

		history, err := st.RecentHistory(ctx, "chat-2", 10)
		require.NoError(t, err)
		require.Len(t, history, 2)
		assert.Equal(t, "msg-3", history[0].Content)
		assert.Equal(t, "msg-4", history[1].Content)
	})

	t.Run("PurgeDeletesAll", func(t *testing.T) {
		_, err := st.DeleteMessages(ctx, &store.DeleteMessage{ConversationID: strPtr("chat-2")})
		require.NoError(t, err)

		count, err := st.CountMessages(ctx, "chat-2")
		require.NoError(t, err)
		assert.Zero(t, count)
	})

	t.Run("PartsJSONRoundTrip", func(t *testing.T) {
		partsJSON := `[{"Kind":"image","ImageURL":"https://example.com/a.png"}]`
		created, err := st.CreateMessage(ctx, &store.Message{
			ConversationID: "chat-3",
			Role:           store.MessageRoleUser,
			PartsJSON:      partsJSON,
		})
		require.NoError(t, err)

		history, err := st.RecentHistory(ctx, "chat-3", 1)
		require.NoError(t, err)
		require.Len(t, history, 1)
		assert.Equal(t, created.PartsJSON, history[0].PartsJSON)
	})
}

func TestMessageStats(t *testing.T) {
	ctx := context.Background()
	st := NewTestingStore(ctx, t)

	t.Run("EmptyConversationIsAllZero", func(t *testing.T) {
		stats, err := st.GetMessageStats(ctx, "nobody-wrote-here")
		require.NoError(t, err)
		assert.Zero(t, stats.Count)
		assert.Zero(t, stats.TotalTokens)
		assert.Zero(t, stats.FirstTs)
		assert.Zero(t, stats.LastTs)
	})

	t.Run("AggregatesCountTokensAndTimestamps", func(t *testing.T) {
		for i, tokens := range []int{10, 20, 30} {
			_, err := st.CreateMessage(ctx, &store.Message{
				ConversationID: "chat-stats",
				Role:           store.MessageRoleUser,
				Content:        fmt.Sprintf("msg-%d", i),
				TokenCount:     tokens,
				CountedFor:     "gpt-4o-mini",
				CreatedTs:      int64(2000 + i),
			})
			require.NoError(t, err)
		}

		stats, err := st.GetMessageStats(ctx, "chat-stats")
		require.NoError(t, err)
		assert.Equal(t, 3, stats.Count)
		assert.Equal(t, int64(60), stats.TotalTokens)
		assert.Equal(t, int64(2000), stats.FirstTs)
		assert.Equal(t, int64(2002), stats.LastTs)
	})

	t.Run("ScopedToConversation", func(t *testing.T) {
		_, err := st.CreateMessage(ctx, &store.Message{
			ConversationID: "chat-other",
			Role:           store.MessageRoleUser,
			Content:        "unrelated",
			TokenCount:     999,
			CreatedTs:      9000,
		})
		require.NoError(t, err)

		stats, err := st.GetMessageStats(ctx, "chat-stats")
		require.NoError(t, err)
		assert.Equal(t, 3, stats.Count)
		assert.Equal(t, int64(60), stats.TotalTokens)
	})
}

func TestConversationCRUD(t *testing.T) {
	ctx := context.Background()
	st := NewTestingStore(ctx, t)

	t.Run("UpsertAndGet", func(t *testing.T) {
		created, err := st.UpsertConversation(ctx, &store.Conversation{
			ID:   "group-1",
			Kind: store.ConversationGroup,
		})
		require.NoError(t, err)
		assert.NotZero(t, created.CreatedTs)

		got, err := st.GetConversation(ctx, &store.FindConversation{ID: strPtr("group-1")})
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, store.ConversationGroup, got.Kind)
	})

	t.Run("GetMissingReturnsNil", func(t *testing.T) {
		got, err := st.GetConversation(ctx, &store.FindConversation{ID: strPtr("nope")})
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("UpdatePersonalityAndModel", func(t *testing.T) {
		updated, err := st.UpdateConversation(ctx, &store.UpdateConversation{
			ID:            "group-1",
			Personality:   strPtr("pirate"),
			ModelOverride: strPtr("gpt-4o"),
		})
		require.NoError(t, err)
		assert.Equal(t, "pirate", updated.Personality)
		assert.Equal(t, "gpt-4o", updated.ModelOverride)

		// Cache reflects the update.
		got, err := st.GetConversation(ctx, &store.FindConversation{ID: strPtr("group-1")})
		require.NoError(t, err)
		assert.Equal(t, "pirate", got.Personality)
	})

	t.Run("ListByKind", func(t *testing.T) {
		_, err := st.UpsertConversation(ctx, &store.Conversation{
			ID:   "private-1",
			Kind: store.ConversationPrivate,
		})
		require.NoError(t, err)

		kind := store.ConversationGroup
		groups, err := st.ListConversations(ctx, &store.FindConversation{Kind: &kind})
		require.NoError(t, err)
		require.Len(t, groups, 1)
		assert.Equal(t, "group-1", groups[0].ID)
	})
}

func TestPersonalityCRUD(t *testing.T) {
	ctx := context.Background()
	st := NewTestingStore(ctx, t)

	t.Run("UpsertAndGet", func(t *testing.T) {
		_, err := st.UpsertPersonality(ctx, &store.Personality{
			Name:   "pirate",
			Prompt: "You are a pirate.",
		})
		require.NoError(t, err)

		got, err := st.GetPersonality(ctx, "pirate")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, "You are a pirate.", got.Prompt)
	})

	t.Run("UpsertReplacesPrompt", func(t *testing.T) {
		_, err := st.UpsertPersonality(ctx, &store.Personality{
			Name:   "pirate",
			Prompt: "You are a polite pirate.",
		})
		require.NoError(t, err)

		got, err := st.GetPersonality(ctx, "pirate")
		require.NoError(t, err)
		assert.Equal(t, "You are a polite pirate.", got.Prompt)
	})

	t.Run("PersonaSourceResolution", func(t *testing.T) {
		_, err := st.UpsertConversation(ctx, &store.Conversation{ID: "c1", Kind: store.ConversationPrivate})
		require.NoError(t, err)
		_, err = st.UpdateConversation(ctx, &store.UpdateConversation{ID: "c1", Personality: strPtr("pirate")})
		require.NoError(t, err)

		name, err := st.ActivePersonality(ctx, "c1")
		require.NoError(t, err)
		assert.Equal(t, "pirate", name)

		prompt, ok, err := st.PersonalityPrompt(ctx, "pirate")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, "You are a polite pirate.", prompt)

		_, ok, err = st.PersonalityPrompt(ctx, "ghost")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("DeleteRemovesAndMissingDeleteFails", func(t *testing.T) {
		require.NoError(t, st.DeletePersonality(ctx, &store.DeletePersonality{Name: "pirate"}))

		got, err := st.GetPersonality(ctx, "pirate")
		require.NoError(t, err)
		assert.Nil(t, got)

		assert.Error(t, st.DeletePersonality(ctx, &store.DeletePersonality{Name: "pirate"}))
	})
}

func TestGrantCRUD(t *testing.T) {
	ctx := context.Background()
	st := NewTestingStore(ctx, t)

	t.Run("UngrantedByDefault", func(t *testing.T) {
		granted, err := st.IsGranted(ctx, "user-1")
		require.NoError(t, err)
		assert.False(t, granted)
	})

	t.Run("GrantAllows", func(t *testing.T) {
		_, err := st.UpsertGrant(ctx, &store.Grant{
			UserID:      "user-1",
			DisplayName: "Alice",
			GrantedBy:   "operator",
		})
		require.NoError(t, err)

		granted, err := st.IsGranted(ctx, "user-1")
		require.NoError(t, err)
		assert.True(t, granted)
	})

	t.Run("RevokeDenies", func(t *testing.T) {
		require.NoError(t, st.DeleteGrant(ctx, &store.DeleteGrant{UserID: "user-1"}))

		granted, err := st.IsGranted(ctx, "user-1")
		require.NoError(t, err)
		assert.False(t, granted)
	})
}

func strPtr(s string) *string { return &s }
