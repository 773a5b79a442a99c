package api

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/embedchat/embedchat/internal/config"
)

// fakeUpstream emulates an OpenAI-compatible chat completions endpoint.
func fakeUpstream(t *testing.T, content string, status int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if status != http.StatusOK {
			w.WriteHeader(status)
			w.Write([]byte(`{"error":{"message":"upstream says no"}}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"id":     "cmpl-1",
			"object": "chat.completion",
			"choices": []map[string]interface{}{
				{"message": map[string]interface{}{"role": "assistant", "content": content}},
			},
		})
	}))
}

func testServer(t *testing.T, upstreamURL string, mutate func(*config.Config)) *Server {
	t.Helper()
	cfg := &config.Config{
		Widget: config.WidgetConfig{
			MaxHistoryMessages:       10,
			MaxHistoryTokens:         1200,
			AlwaysKeepRecentMessages: 4,
		},
		Proxy: config.ProxyConfig{
			Port:           0,
			UpstreamURL:    upstreamURL,
			APIKey:         "test-key",
			Model:          "gpt-4o-mini",
			AllowedOrigins: []string{"http://allowed.example"},
			RatePerMinute:  6000,
			RateBurst:      100,
		},
	}
	if mutate != nil {
		mutate(cfg)
	}
	srv := NewServer(cfg, log.New(io.Discard))
	t.Cleanup(func() { srv.limiter.Close() })
	return srv
}

func postChat(t *testing.T, handler http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/chat", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestHandleChat_ForwardsToUpstream(t *testing.T) {
	upstream := fakeUpstream(t, "forwarded answer", http.StatusOK)
	defer upstream.Close()

	srv := testServer(t, upstream.URL, nil)
	router := srv.setupRoutes()

	rec := postChat(t, router, `{"message":"hello","history":[{"role":"user","content":"hello"}]}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp chatResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Choices, 1)
	assert.Equal(t, "forwarded answer", resp.Choices[0].Message.Content)
	assert.NotEmpty(t, resp.TraceID, "trace ID minted for first-time callers")
}

func TestHandleChat_EchoesTraceID(t *testing.T) {
	upstream := fakeUpstream(t, "ok", http.StatusOK)
	defer upstream.Close()

	srv := testServer(t, upstream.URL, nil)
	rec := postChat(t, srv.setupRoutes(), `{"message":"hi","traceId":"keep-me"}`)

	var resp chatResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "keep-me", resp.TraceID)
}

func TestHandleChat_Validation(t *testing.T) {
	upstream := fakeUpstream(t, "ok", http.StatusOK)
	defer upstream.Close()

	tests := []struct {
		name   string
		body   string
		mutate func(*config.Config)
		status int
	}{
		{name: "malformed body", body: "{not json", status: http.StatusBadRequest},
		{name: "missing message", body: `{"history":[]}`, status: http.StatusBadRequest},
		{name: "oversized message", body: `{"message":"` + string(bytes.Repeat([]byte("x"), maxMessageLength+1)) + `"}`, status: http.StatusBadRequest},
		{
			name:   "unconfigured proxy",
			body:   `{"message":"hi"}`,
			mutate: func(c *config.Config) { c.Proxy.APIKey = "" },
			status: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := testServer(t, upstream.URL, tt.mutate)
			rec := postChat(t, srv.setupRoutes(), tt.body)
			assert.Equal(t, tt.status, rec.Code)

			var errResp map[string]string
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &errResp))
			assert.NotEmpty(t, errResp["error"])
		})
	}
}

func TestHandleChat_UpstreamFailurePropagatesStatus(t *testing.T) {
	upstream := fakeUpstream(t, "", http.StatusTooManyRequests)
	defer upstream.Close()

	srv := testServer(t, upstream.URL, nil)
	rec := postChat(t, srv.setupRoutes(), `{"message":"hi"}`)

	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	var errResp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &errResp))
	assert.NotEmpty(t, errResp["error"])
}

func TestCORS(t *testing.T) {
	upstream := fakeUpstream(t, "ok", http.StatusOK)
	defer upstream.Close()

	srv := testServer(t, upstream.URL, nil)
	router := srv.setupRoutes()

	t.Run("allowed origin gets headers", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodOptions, "/api/chat", nil)
		req.Header.Set("Origin", "http://allowed.example")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "http://allowed.example", rec.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("disallowed origin rejected", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/chat", bytes.NewBufferString(`{"message":"hi"}`))
		req.Header.Set("Origin", "http://evil.example")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("no origin passes", func(t *testing.T) {
		rec := postChat(t, router, `{"message":"hi"}`)
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}

func TestRateLimitMiddleware(t *testing.T) {
	upstream := fakeUpstream(t, "ok", http.StatusOK)
	defer upstream.Close()

	srv := testServer(t, upstream.URL, func(c *config.Config) {
		c.Proxy.RatePerMinute = 1 // effectively no refill within the test
		c.Proxy.RateBurst = 2
	})
	router := srv.setupRoutes()

	for i := 0; i < 2; i++ {
		rec := postChat(t, router, `{"message":"hi"}`)
		require.Equal(t, http.StatusOK, rec.Code, "request %d should pass", i)
	}

	rec := postChat(t, router, `{"message":"hi"}`)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	// Health stays reachable; only chat is rate limited.
	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	healthRec := httptest.NewRecorder()
	router.ServeHTTP(healthRec, req)
	assert.Equal(t, http.StatusOK, healthRec.Code)
}
