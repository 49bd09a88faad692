package v1

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tzefoong/relaybot/internal/errkit"
	"github.com/tzefoong/relaybot/internal/profile"
)

func TestHealthz(t *testing.T) {
	s := &APIV1Service{Profile: &profile.Profile{Version: "1.1.1"}}

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()

	require.NoError(t, s.Healthz(e.NewContext(req, rec)))
	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "1.1.1", body["version"])
}

func TestJSONError_StatusMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"Unauthorized", errkit.Unauthorized("not granted"), http.StatusForbidden},
		{"BudgetExhausted", errkit.BudgetExhausted("too large"), http.StatusRequestEntityTooLarge},
		{"RateLimited", errkit.BackendRateLimited("throttled", nil), http.StatusTooManyRequests},
		{"Timeout", errkit.BackendTimeout("timed out", nil), http.StatusGatewayTimeout},
		{"StoreDown", errkit.StoreUnavailable("db down", nil), http.StatusServiceUnavailable},
		{"Configuration", errkit.Configuration("bad setup"), http.StatusInternalServerError},
		{"BackendAuth", errkit.BackendAuth("rejected", nil), http.StatusBadGateway},
		{"PlainError", errors.New("mystery"), http.StatusBadGateway},
	}

	e := echo.New()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", nil)
			rec := httptest.NewRecorder()

			require.NoError(t, jsonError(e.NewContext(req, rec), tt.err))
			assert.Equal(t, tt.status, rec.Code)

			var body errorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.NotEmpty(t, body.Error)
		})
	}
}
