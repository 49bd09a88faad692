package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/tzefoong/relaybot/llm"
	"github.com/tzefoong/relaybot/store"
)

type personalityPayload struct {
	Name      string `json:"name"`
	Prompt    string `json:"prompt"`
	CreatedTs int64  `json:"created_ts,omitempty"`
	UpdatedTs int64  `json:"updated_ts,omitempty"`
}

// ListPersonalities returns every stored personality.
// GET /api/v1/personalities
func (s *APIV1Service) ListPersonalities(c echo.Context) error {
	personalities, err := s.Store.ListPersonalities(c.Request().Context(), &store.FindPersonality{})
	if err != nil {
		return jsonError(c, err)
	}

	out := make([]personalityPayload, 0, len(personalities))
	for _, p := range personalities {
		out = append(out, personalityPayload{
			Name:      p.Name,
			Prompt:    p.Prompt,
			CreatedTs: p.CreatedTs,
			UpdatedTs: p.UpdatedTs,
		})
	}
	return c.JSON(http.StatusOK, out)
}

// UpsertPersonality creates or replaces a named personality.
// PUT /api/v1/personalities
func (s *APIV1Service) UpsertPersonality(c echo.Context) error {
	var req personalityPayload
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "malformed request body"})
	}
	if req.Name == "" || req.Prompt == "" {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "name and prompt are required"})
	}
	if req.Name == llm.DefaultPersonalityName {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "name is reserved for the built-in default"})
	}

	personality, err := s.Store.UpsertPersonality(c.Request().Context(), &store.Personality{
		Name:   req.Name,
		Prompt: req.Prompt,
	})
	if err != nil {
		return jsonError(c, err)
	}
	return c.JSON(http.StatusOK, personalityPayload{
		Name:      personality.Name,
		Prompt:    personality.Prompt,
		CreatedTs: personality.CreatedTs,
		UpdatedTs: personality.UpdatedTs,
	})
}

// DeletePersonality removes a personality. Conversations pointing at it fall
// back to the default persona at resolution time.
// DELETE /api/v1/personalities/:name
func (s *APIV1Service) DeletePersonality(c echo.Context) error {
	name := c.Param("name")
	if err := s.Store.DeletePersonality(c.Request().Context(), &store.DeletePersonality{Name: name}); err != nil {
		return c.JSON(http.StatusNotFound, errorResponse{Error: err.Error()})
	}
	return c.NoContent(http.StatusNoContent)
}
