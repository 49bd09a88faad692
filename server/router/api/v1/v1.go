// Package v1 exposes the relay over HTTP: the message event endpoint the
// platform connector posts to, plus operator endpoints for grants,
// personalities, and conversation settings.
package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/tzefoong/relaybot/internal/errkit"
	"github.com/tzefoong/relaybot/internal/profile"
	"github.com/tzefoong/relaybot/server/middleware"
	"github.com/tzefoong/relaybot/server/relay"
	"github.com/tzefoong/relaybot/store"
)

type APIV1Service struct {
	Profile  *profile.Profile
	Store    *store.Store
	Pipeline *relay.Pipeline

	limiter *middleware.RateLimiter
}

func NewAPIV1Service(profile *profile.Profile, store *store.Store, pipeline *relay.Pipeline) *APIV1Service {
	return &APIV1Service{
		Profile:  profile,
		Store:    store,
		Pipeline: pipeline,
		// One message per second per conversation, short bursts allowed.
		limiter: middleware.NewRateLimiter(1, 5),
	}
}

// Register wires the routes into the Echo instance.
func (s *APIV1Service) Register(e *echo.Echo) {
	e.GET("/healthz", s.Healthz)

	g := e.Group("/api/v1")

	g.POST("/messages", s.HandleMessage, s.limiter.Middleware(messageEventKey))
	g.POST("/messages/preview", s.PreviewMessage)

	g.GET("/grants", s.ListGrants)
	g.POST("/grants", s.UpsertGrant)
	g.DELETE("/grants/:userID", s.DeleteGrant)

	g.GET("/personalities", s.ListPersonalities)
	g.PUT("/personalities", s.UpsertPersonality)
	g.DELETE("/personalities/:name", s.DeletePersonality)

	g.GET("/conversations", s.ListConversations)
	g.PATCH("/conversations/:id", s.UpdateConversation)
	g.GET("/conversations/:id/stats", s.ConversationStats)
	g.POST("/conversations/:id/purge", s.PurgeConversation)

	g.POST("/cleanup", s.Cleanup)
}

// Healthz reports liveness and version.
func (s *APIV1Service) Healthz(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status":  "ok",
		"version": s.Profile.Version,
	})
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// jsonError renders a pipeline error with the HTTP status its code implies.
func jsonError(c echo.Context, err error) error {
	status := http.StatusBadGateway
	switch errkit.CodeOf(err, "") {
	case errkit.CodeUnauthorized:
		status = http.StatusForbidden
	case errkit.CodeBudgetExhausted:
		status = http.StatusRequestEntityTooLarge
	case errkit.CodeBackendRateLimited:
		status = http.StatusTooManyRequests
	case errkit.CodeBackendTimeout:
		status = http.StatusGatewayTimeout
	case errkit.CodeStoreUnavailable:
		status = http.StatusServiceUnavailable
	case errkit.CodeConfiguration:
		status = http.StatusInternalServerError
	}
	return c.JSON(status, errorResponse{
		Error: err.Error(),
		Code:  string(errkit.CodeOf(err, "")),
	})
}
