package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateLimiter_Allow(t *testing.T) {
	rl := NewRateLimiter(1, 2)

	t.Run("BurstThenThrottled", func(t *testing.T) {
		assert.True(t, rl.Allow("chat-1"))
		assert.True(t, rl.Allow("chat-1"))
		assert.False(t, rl.Allow("chat-1"))
	})

	t.Run("KeysIsolated", func(t *testing.T) {
		assert.True(t, rl.Allow("chat-2"))
	})
}

func TestRateLimiter_Middleware(t *testing.T) {
	rl := NewRateLimiter(1, 1)
	e := echo.New()

	handler := rl.Middleware(func(c echo.Context) string {
		return c.Request().Header.Get("X-Chat-ID")
	})(func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})

	do := func(chatID string) int {
		req := httptest.NewRequest(http.MethodPost, "/", nil)
		if chatID != "" {
			req.Header.Set("X-Chat-ID", chatID)
		}
		rec := httptest.NewRecorder()
		require.NoError(t, handler(e.NewContext(req, rec)))
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, do("chat-1"))
	assert.Equal(t, http.StatusTooManyRequests, do("chat-1"))
	// Empty key bypasses the limiter.
	assert.Equal(t, http.StatusOK, do(""))
	assert.Equal(t, http.StatusOK, do(""))
}
