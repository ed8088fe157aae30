package aiclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(serverURL string) *Client {
	c := New(Options{APIKey: "test-key", BaseURL: serverURL, Model: "gpt-4o"})
	c.sleep = func(context.Context, time.Duration) error { return nil }
	return c
}

func okBody(content string) []byte {
	body, _ := json.Marshal(chatResponse{
		Choices: []chatChoice{{Message: chatMessage{Role: "assistant", Content: content}}},
	})
	return body
}

func TestAnalyze_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		assert.Equal(t, "/chat/completions", r.URL.Path)

		var req chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "gpt-4o", req.Model)
		require.Len(t, req.Messages, 2)
		assert.Equal(t, "system", req.Messages[0].Role)
		assert.Equal(t, "user", req.Messages[1].Role)
		require.NotNil(t, req.ResponseFormat)
		assert.Equal(t, "json_object", req.ResponseFormat.Type)

		w.Write(okBody(`{"findings":[],"summary":"ok"}`))
	}))
	defer server.Close()

	c := newTestClient(server.URL)
	content, err := c.Analyze(context.Background(), "sys", "user")
	require.NoError(t, err)
	assert.Equal(t, `{"findings":[],"summary":"ok"}`, content)
	assert.Equal(t, 1, c.Stats().TotalCalls)
}

func TestAnalyze_RateLimitRampThenDecay(t *testing.T) {
	// Spec'd worked sequence: 429 Retry-After=3 ramps to 3, a second 429
	// Retry-After=1 ramps to max(3*1.5+1, 1)=5.5, then success decays to
	// max(0, 5.5*0.75-0.1)=4.025.
	attempt := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempt++
		switch attempt {
		case 1:
			w.Header().Set("Retry-After", "3")
			w.WriteHeader(http.StatusTooManyRequests)
		case 2:
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(http.StatusTooManyRequests)
		default:
			w.Write(okBody("done"))
		}
	}))
	defer server.Close()

	c := newTestClient(server.URL)
	content, err := c.Analyze(context.Background(), "sys", "user")
	require.NoError(t, err)
	assert.Equal(t, "done", content)
	assert.Equal(t, 3, attempt)
	assert.InDelta(t, 4.025, c.adaptiveDelay, 1e-9)
	// waits were max(3, 0+3)=3 and max(1, 0+5.5)=5.5
	assert.InDelta(t, 8.5, c.totalThrottled, 1e-9)
}

func TestAnalyze_AdaptiveDelayNeverNegative(t *testing.T) {
	c := New(Options{APIKey: "k"})
	c.adaptiveDelay = 0.05
	for i := 0; i < 10; i++ {
		c.decayAdaptiveDelay()
		assert.GreaterOrEqual(t, c.adaptiveDelay, 0.0)
	}
	assert.Zero(t, c.adaptiveDelay)
}

func TestAnalyze_ServerErrorRetries(t *testing.T) {
	attempt := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempt++
		if attempt < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write(okBody("recovered"))
	}))
	defer server.Close()

	c := newTestClient(server.URL)
	content, err := c.Analyze(context.Background(), "sys", "user")
	require.NoError(t, err)
	assert.Equal(t, "recovered", content)
	assert.Equal(t, 3, attempt)
	assert.Zero(t, c.adaptiveDelay, "5xx must not touch the adaptive delay")
}

func TestAnalyze_AuthErrorFatal(t *testing.T) {
	attempt := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempt++
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":"bad key"}`))
	}))
	defer server.Close()

	c := newTestClient(server.URL)
	_, err := c.Analyze(context.Background(), "sys", "user")
	require.Error(t, err)
	assert.True(t, IsAuthError(err))
	assert.Equal(t, 1, attempt, "auth errors must not be retried")
}

func TestAnalyze_PayloadTooLargeFatal(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusRequestEntityTooLarge)
	}))
	defer server.Close()

	c := newTestClient(server.URL)
	_, err := c.Analyze(context.Background(), "sys", "user")
	require.Error(t, err)
	assert.True(t, IsPayloadTooLarge(err))
	assert.Contains(t, err.Error(), "max-context-tokens")
}

func TestAnalyze_UnexpectedStatusFatal(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		w.Write([]byte("I'm a teapot"))
	}))
	defer server.Close()

	c := newTestClient(server.URL)
	_, err := c.Analyze(context.Background(), "sys", "user")
	require.Error(t, err)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusTeapot, apiErr.Status)
}

func TestAnalyze_RetriesExhausted(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "1")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	c := newTestClient(server.URL)
	c.maxRetries = 3
	_, err := c.Analyze(context.Background(), "sys", "user")
	require.Error(t, err)

	var exhausted *RetriesExhaustedError
	require.ErrorAs(t, err, &exhausted)
	assert.Equal(t, 3, exhausted.Attempts)
	assert.True(t, IsRateLimited(err), "exhaustion should carry the last cause")
}

func TestAnalyze_ConnectionFailureRetriesThenExhausts(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // nothing listening

	c := newTestClient(server.URL)
	c.maxRetries = 2
	_, err := c.Analyze(context.Background(), "sys", "user")
	require.Error(t, err)
	assert.True(t, IsTransport(err))
	assert.Equal(t, 2, c.Stats().TotalCalls)
}

func TestThrottle_SleepsRemainingDelay(t *testing.T) {
	c := New(Options{APIKey: "k", RequestDelayMS: 2000})
	base := time.Now()
	c.now = func() time.Time { return base }
	c.lastCall = base.Add(-500 * time.Millisecond)

	var slept time.Duration
	c.sleep = func(_ context.Context, d time.Duration) error {
		slept = d
		return nil
	}

	require.NoError(t, c.throttle(context.Background()))
	assert.InDelta(t, 1.5, slept.Seconds(), 1e-6)
	assert.InDelta(t, 1.5, c.totalThrottled, 1e-6)
}

func TestThrottle_NoDelayConfigured(t *testing.T) {
	c := New(Options{APIKey: "k"})
	c.sleep = func(context.Context, time.Duration) error {
		t.Fatal("should not sleep with zero delay")
		return nil
	}
	require.NoError(t, c.throttle(context.Background()))
}

func TestParseRetryAfter(t *testing.T) {
	assert.InDelta(t, 12.5, parseRetryAfter("12.5", 1), 1e-9)
	assert.InDelta(t, 3, parseRetryAfter(" 3 ", 1), 1e-9)
	// HTTP-date and garbage fall back to 2^attempt
	assert.InDelta(t, 8, parseRetryAfter("Wed, 21 Oct 2015 07:28:00 GMT", 3), 1e-9)
	assert.InDelta(t, 4, parseRetryAfter("", 2), 1e-9)
	assert.InDelta(t, 2, parseRetryAfter("-5", 1), 1e-9)
}
