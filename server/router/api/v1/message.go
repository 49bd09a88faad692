package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/tzefoong/relaybot/llm"
	"github.com/tzefoong/relaybot/server/relay"
)

// MessageEventRequest is one incoming message from the platform connector.
type MessageEventRequest struct {
	ChatID      string `json:"chat_id"`
	Group       bool   `json:"group"`
	SenderID    string `json:"sender_id"`
	SenderLabel string `json:"sender_label"`
	Text        string `json:"text"`
	Parts       []struct {
		Kind     string `json:"kind"`
		Text     string `json:"text,omitempty"`
		ImageURL string `json:"image_url,omitempty"`
	} `json:"parts,omitempty"`
	ReplyTo *struct {
		SenderLabel string `json:"sender_label"`
		Content     string `json:"content"`
	} `json:"reply_to,omitempty"`
}

// MessageEventResponse carries the reply and its accounting.
type MessageEventResponse struct {
	Text             string `json:"text"`
	Model            string `json:"model"`
	RequestID        string `json:"request_id"`
	PromptTokens     int    `json:"prompt_tokens"`
	CompletionTokens int    `json:"completion_tokens"`
	TotalTokens      int    `json:"total_tokens"`
	Retained         int    `json:"retained"`
	Dropped          int    `json:"dropped"`
	Persisted        bool   `json:"persisted"`
	DurationMs       int64  `json:"duration_ms"`
}

// messageEventKey keys the rate limiter by conversation. The connector sets
// X-Chat-ID; without it the limit falls back to the caller address.
func messageEventKey(c echo.Context) string {
	if id := c.Request().Header.Get("X-Chat-ID"); id != "" {
		return id
	}
	return c.RealIP()
}

// HandleMessage runs one message event through the relay pipeline.
// POST /api/v1/messages
func (s *APIV1Service) HandleMessage(c echo.Context) error {
	return s.handle(c, false)
}

// PreviewMessage runs an event statelessly: no history read, no persistence.
// POST /api/v1/messages/preview
func (s *APIV1Service) PreviewMessage(c echo.Context) error {
	return s.handle(c, true)
}

func (s *APIV1Service) handle(c echo.Context, preview bool) error {
	var req MessageEventRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "malformed request body"})
	}
	if req.ChatID == "" || req.SenderID == "" {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "chat_id and sender_id are required"})
	}
	if req.Text == "" && len(req.Parts) == 0 {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "message content is required"})
	}

	event := &relay.Event{
		ChatID:      req.ChatID,
		Group:       req.Group,
		SenderID:    req.SenderID,
		SenderLabel: req.SenderLabel,
		Text:        req.Text,
		Preview:     preview,
	}
	for _, p := range req.Parts {
		event.Parts = append(event.Parts, llm.Part{
			Kind:     llm.PartKind(p.Kind),
			Text:     p.Text,
			ImageURL: p.ImageURL,
		})
	}
	if req.ReplyTo != nil {
		event.ReplyTo = &llm.ReplyContext{
			SenderLabel: req.ReplyTo.SenderLabel,
			Content:     req.ReplyTo.Content,
		}
	}

	reply, err := s.Pipeline.HandleMessage(c.Request().Context(), event)
	if err != nil {
		return jsonError(c, err)
	}

	return c.JSON(http.StatusOK, MessageEventResponse{
		Text:             reply.Text,
		Model:            reply.Model,
		RequestID:        reply.RequestID,
		PromptTokens:     reply.PromptTokens,
		CompletionTokens: reply.CompletionTokens,
		TotalTokens:      reply.TotalTokens,
		Retained:         reply.Retained,
		Dropped:          reply.Dropped,
		Persisted:        reply.Persisted,
		DurationMs:       reply.DurationMs,
	})
}

// Cleanup prunes old group-conversation messages past the retention window.
// POST /api/v1/cleanup
func (s *APIV1Service) Cleanup(c echo.Context) error {
	pruned, err := s.Pipeline.Cleanup(c.Request().Context())
	if err != nil {
		return jsonError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]int64{"pruned": pruned})
}
