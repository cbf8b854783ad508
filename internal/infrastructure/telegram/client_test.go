package telegram

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-resty/resty/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// setupTestServer creates a test server and a Client pointed at it.
func setupTestServer(handler http.Handler) (*Client, *httptest.Server) {
	server := httptest.NewServer(handler)

	c := &Client{
		client:  resty.New().SetBaseURL(server.URL),
		token:   "test-token",
		logger:  zap.NewNop(),
		limiter: rate.NewLimiter(rate.Inf, 1),
	}
	return c, server
}

func TestSendMessage(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/bottest-token/sendMessage", r.URL.Path)
			assert.Equal(t, http.MethodPost, r.Method)

			var body sendMessageRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "42", body.ChatID)
			assert.Equal(t, "hello", body.Text)
			assert.Equal(t, "HTML", body.ParseMode)

			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"ok":true,"result":{}}`))
		})

		c, server := setupTestServer(handler)
		defer server.Close()

		assert.NoError(t, c.SendMessage(context.Background(), "42", "hello"))
	})

	t.Run("APIError", func(t *testing.T) {
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"ok":false,"error_code":400,"description":"Bad Request: chat not found"}`))
		})

		c, server := setupTestServer(handler)
		defer server.Close()

		err := c.SendMessage(context.Background(), "42", "hello")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "chat not found")
	})

	t.Run("RetriesAfterRateLimit", func(t *testing.T) {
		calls := 0
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls++
			w.Header().Set("Content-Type", "application/json")
			if calls == 1 {
				w.WriteHeader(http.StatusTooManyRequests)
				_, _ = w.Write([]byte(`{"ok":false,"error_code":429,"description":"Too Many Requests","parameters":{"retry_after":0}}`))
				return
			}
			_, _ = w.Write([]byte(`{"ok":true,"result":{}}`))
		})

		c, server := setupTestServer(handler)
		defer server.Close()

		assert.NoError(t, c.SendMessage(context.Background(), "42", "hello"))
		assert.Equal(t, 2, calls)
	})

	t.Run("Disabled", func(t *testing.T) {
		c := NewClient(Config{}, nil)
		assert.False(t, c.IsEnabled())
		assert.ErrorIs(t, c.SendMessage(context.Background(), "42", "hello"), ErrDisabled)
	})
}
