package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/tzefoong/relaybot/store"
)

type grantPayload struct {
	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name"`
	GrantedBy   string `json:"granted_by"`
	CreatedTs   int64  `json:"created_ts,omitempty"`
}

// ListGrants returns every granted user.
// GET /api/v1/grants
func (s *APIV1Service) ListGrants(c echo.Context) error {
	grants, err := s.Store.ListGrants(c.Request().Context(), &store.FindGrant{})
	if err != nil {
		return jsonError(c, err)
	}

	out := make([]grantPayload, 0, len(grants))
	for _, g := range grants {
		out = append(out, grantPayload{
			UserID:      g.UserID,
			DisplayName: g.DisplayName,
			GrantedBy:   g.GrantedBy,
			CreatedTs:   g.CreatedTs,
		})
	}
	return c.JSON(http.StatusOK, out)
}

// UpsertGrant allows a user to talk to the relay.
// POST /api/v1/grants
func (s *APIV1Service) UpsertGrant(c echo.Context) error {
	var req grantPayload
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "malformed request body"})
	}
	if req.UserID == "" {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "user_id is required"})
	}

	grant, err := s.Store.UpsertGrant(c.Request().Context(), &store.Grant{
		UserID:      req.UserID,
		DisplayName: req.DisplayName,
		GrantedBy:   req.GrantedBy,
	})
	if err != nil {
		return jsonError(c, err)
	}
	return c.JSON(http.StatusOK, grantPayload{
		UserID:      grant.UserID,
		DisplayName: grant.DisplayName,
		GrantedBy:   grant.GrantedBy,
		CreatedTs:   grant.CreatedTs,
	})
}

// DeleteGrant revokes a user's access.
// DELETE /api/v1/grants/:userID
func (s *APIV1Service) DeleteGrant(c echo.Context) error {
	userID := c.Param("userID")
	if err := s.Store.DeleteGrant(c.Request().Context(), &store.DeleteGrant{UserID: userID}); err != nil {
		return c.JSON(http.StatusNotFound, errorResponse{Error: err.Error()})
	}
	return c.NoContent(http.StatusNoContent)
}
