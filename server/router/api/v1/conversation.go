package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/tzefoong/relaybot/store"
)

type conversationPayload struct {
	ID            string `json:"id"`
	Kind          string `json:"kind"`
	Personality   string `json:"personality"`
	ModelOverride string `json:"model_override"`
	CreatedTs     int64  `json:"created_ts"`
	UpdatedTs     int64  `json:"updated_ts"`
}

// ListConversations returns every known conversation.
// GET /api/v1/conversations
func (s *APIV1Service) ListConversations(c echo.Context) error {
	conversations, err := s.Store.ListConversations(c.Request().Context(), &store.FindConversation{})
	if err != nil {
		return jsonError(c, err)
	}

	out := make([]conversationPayload, 0, len(conversations))
	for _, conv := range conversations {
		out = append(out, toConversationPayload(conv))
	}
	return c.JSON(http.StatusOK, out)
}

// UpdateConversation sets the conversation's personality or model override.
// PATCH /api/v1/conversations/:id
func (s *APIV1Service) UpdateConversation(c echo.Context) error {
	var req struct {
		Personality   *string `json:"personality"`
		ModelOverride *string `json:"model_override"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "malformed request body"})
	}
	if req.Personality == nil && req.ModelOverride == nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "no fields to update"})
	}

	ctx := c.Request().Context()
	if req.Personality != nil && *req.Personality != "" {
		// Pointing a conversation at a missing personality would silently
		// fall back to the default persona; reject it up front.
		personality, err := s.Store.GetPersonality(ctx, *req.Personality)
		if err != nil {
			return jsonError(c, err)
		}
		if personality == nil {
			return c.JSON(http.StatusNotFound, errorResponse{Error: "personality not found"})
		}
	}

	conversation, err := s.Store.UpdateConversation(ctx, &store.UpdateConversation{
		ID:            c.Param("id"),
		Personality:   req.Personality,
		ModelOverride: req.ModelOverride,
	})
	if err != nil {
		return c.JSON(http.StatusNotFound, errorResponse{Error: err.Error()})
	}
	return c.JSON(http.StatusOK, toConversationPayload(conversation))
}

// ConversationStats reports stored message count, summed token counts, and
// the first/last message timestamps for a conversation.
// GET /api/v1/conversations/:id/stats
func (s *APIV1Service) ConversationStats(c echo.Context) error {
	stats, err := s.Store.GetMessageStats(c.Request().Context(), c.Param("id"))
	if err != nil {
		return jsonError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]int64{
		"messages": int64(stats.Count),
		"tokens":   stats.TotalTokens,
		"first_ts": stats.FirstTs,
		"last_ts":  stats.LastTs,
	})
}

// PurgeConversation deletes a conversation's full message history.
// POST /api/v1/conversations/:id/purge
func (s *APIV1Service) PurgeConversation(c echo.Context) error {
	id := c.Param("id")
	deleted, err := s.Store.DeleteMessages(c.Request().Context(), &store.DeleteMessage{ConversationID: &id})
	if err != nil {
		return jsonError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]int64{"deleted": deleted})
}

func toConversationPayload(conv *store.Conversation) conversationPayload {
	return conversationPayload{
		ID:            conv.ID,
		Kind:          string(conv.Kind),
		Personality:   conv.Personality,
		ModelOverride: conv.ModelOverride,
		CreatedTs:     conv.CreatedTs,
		UpdatedTs:     conv.UpdatedTs,
	}
}
