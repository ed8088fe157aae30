package aiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"
)

const (
	defaultBaseURL    = "https://api.openai.com/v1"
	defaultModel      = "gpt-4o"
	defaultMaxRetries = 5
	defaultTimeout    = 300 * time.Second
	defaultTemp       = 0.1

	// adaptive throttle tuning
	rampFactor  = 1.5
	rampBias    = 1.0
	decayFactor = 0.75
	decayBias   = 0.1
)

// Options configure a Client. Zero values fall back to defaults.
type Options struct {
	APIKey         string
	BaseURL        string
	Model          string
	MaxRetries     int
	Timeout        time.Duration
	RequestDelayMS int
	Temperature    float64
}

// Stats are cumulative throttle statistics for the client's lifetime.
type Stats struct {
	TotalCalls            int
	TotalThrottledSeconds float64
	EffectiveDelayMS      int
}

// Client calls an OpenAI-compatible chat-completions endpoint with adaptive
// pacing and a retry/backoff state machine. The throttle state is owned
// exclusively by one Client and persists across calls: repeated 429s
// progressively slow the whole run, and sustained success speeds it back up.
// Calls must be issued sequentially; pacing measures elapsed time since the
// previous call across the run.
type Client struct {
	apiKey      string
	baseURL     string
	model       string
	maxRetries  int
	temperature float64
	httpClient  *http.Client

	baseDelay      float64 // seconds, user-configured floor
	adaptiveDelay  float64 // seconds, mutated only by ramp/decay, never negative
	lastCall       time.Time
	totalCalls     int
	totalThrottled float64

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// New creates a Client from options.
func New(opts Options) *Client {
	baseURL := strings.TrimSuffix(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	model := opts.Model
	if model == "" {
		model = defaultModel
	}
	maxRetries := opts.MaxRetries
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	temperature := opts.Temperature
	if temperature == 0 {
		temperature = defaultTemp
	}
	return &Client{
		apiKey:      opts.APIKey,
		baseURL:     baseURL,
		model:       model,
		maxRetries:  maxRetries,
		temperature: temperature,
		httpClient:  &http.Client{Timeout: timeout},
		baseDelay:   float64(opts.RequestDelayMS) / 1000.0,
		now:         time.Now,
		sleep:       sleepCtx,
	}
}

// Analyze sends a system/user message pair and returns the raw content of
// the model's reply. It fails only after exhausting retries or on a
// non-retryable status.
func (c *Client) Analyze(ctx context.Context, systemPrompt, userContent string) (string, error) {
	payload, err := json.Marshal(chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userContent},
		},
		Temperature:    c.temperature,
		ResponseFormat: &responseFormat{Type: "json_object"},
	})
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	if err := c.throttle(ctx); err != nil {
		return "", err
	}

	var lastCause error
	for attempt := 1; attempt <= c.maxRetries; attempt++ {
		outcome := c.attempt(ctx, payload, attempt)
		switch outcome.kind {
		case attemptSuccess:
			c.decayAdaptiveDelay()
			return outcome.content, nil
		case attemptFatal:
			return "", outcome.cause
		case attemptRetry:
			lastCause = outcome.cause
			slog.Info("retryable API failure",
				"attempt", attempt,
				"max_retries", c.maxRetries,
				"wait", outcome.wait,
				"cause", outcome.cause)
			if err := c.sleep(ctx, outcome.wait); err != nil {
				return "", err
			}
		}
	}
	return "", &RetriesExhaustedError{Attempts: c.maxRetries, Cause: lastCause}
}

// EffectiveDelayMS is the current per-call delay (base + adaptive).
func (c *Client) EffectiveDelayMS() int {
	return int((c.baseDelay + c.adaptiveDelay) * 1000)
}

// Stats returns cumulative throttle statistics for logging.
func (c *Client) Stats() Stats {
	return Stats{
		TotalCalls:            c.totalCalls,
		TotalThrottledSeconds: math.Round(c.totalThrottled*10) / 10,
		EffectiveDelayMS:      c.EffectiveDelayMS(),
	}
}

// attemptKind tags the outcome of a single HTTP attempt.
type attemptKind int

const (
	attemptSuccess attemptKind = iota
	attemptRetry
	attemptFatal
)

type attemptOutcome struct {
	kind    attemptKind
	content string        // attemptSuccess
	wait    time.Duration // attemptRetry
	cause   error         // attemptRetry / attemptFatal
}

// attempt performs one HTTP call and classifies the result.
func (c *Client) attempt(ctx context.Context, payload []byte, attempt int) attemptOutcome {
	c.lastCall = c.now()
	c.totalCalls++

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return attemptOutcome{kind: attemptFatal, cause: fmt.Errorf("creating request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// Timeouts and connection failures are retryable transport errors.
		return attemptOutcome{
			kind:  attemptRetry,
			wait:  backoff(attempt),
			cause: &TransportError{Err: err},
		}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return attemptOutcome{
			kind:  attemptRetry,
			wait:  backoff(attempt),
			cause: &TransportError{Err: err},
		}
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		content, err := extractContent(body)
		if err != nil {
			return attemptOutcome{kind: attemptFatal, cause: err}
		}
		return attemptOutcome{kind: attemptSuccess, content: content}

	case resp.StatusCode == http.StatusTooManyRequests:
		retryAfter := parseRetryAfter(resp.Header.Get("Retry-After"), attempt)
		c.rampAdaptiveDelay(retryAfter)
		wait := math.Max(retryAfter, c.baseDelay+c.adaptiveDelay)
		c.totalThrottled += wait
		return attemptOutcome{
			kind:  attemptRetry,
			wait:  time.Duration(wait * float64(time.Second)),
			cause: &RateLimitedError{RetryAfter: retryAfter},
		}

	case resp.StatusCode >= 500:
		return attemptOutcome{
			kind:  attemptRetry,
			wait:  backoff(attempt),
			cause: &ServerError{Status: resp.StatusCode},
		}

	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return attemptOutcome{kind: attemptFatal, cause: &AuthError{Status: resp.StatusCode, Detail: snippet(body)}}

	case resp.StatusCode == http.StatusRequestEntityTooLarge:
		return attemptOutcome{kind: attemptFatal, cause: &PayloadTooLargeError{Detail: snippet(body)}}

	default:
		return attemptOutcome{kind: attemptFatal, cause: &APIError{Status: resp.StatusCode, Detail: snippet(body)}}
	}
}

// throttle sleeps whatever remains of the configured plus adaptive delay
// since the previous call, accumulating the slept time into the stats.
func (c *Client) throttle(ctx context.Context) error {
	delay := c.baseDelay + c.adaptiveDelay
	if delay <= 0 {
		return nil
	}
	elapsed := c.now().Sub(c.lastCall).Seconds()
	remaining := delay - elapsed
	if remaining <= 0 {
		return nil
	}
	c.totalThrottled += remaining
	return c.sleep(ctx, time.Duration(remaining*float64(time.Second)))
}

// rampAdaptiveDelay grows the penalty after a 429: at least the Retry-After
// value, but compounding when 429s repeat.
func (c *Client) rampAdaptiveDelay(retryAfter float64) {
	c.adaptiveDelay = math.Max(c.adaptiveDelay*rampFactor+rampBias, retryAfter)
	slog.Info("adaptive delay ramped", "effective_delay_ms", c.EffectiveDelayMS())
}

// decayAdaptiveDelay reduces the penalty after a success. Bounded below by
// zero, approaching it without overshooting negative.
func (c *Client) decayAdaptiveDelay() {
	if c.adaptiveDelay > 0 {
		c.adaptiveDelay = math.Max(0, c.adaptiveDelay*decayFactor-decayBias)
	}
}

// parseRetryAfter reads a Retry-After header as a plain number of seconds.
// Absent or non-numeric values (including HTTP-dates, which this endpoint is
// not known to send) fall back to exponential 2^attempt seconds.
func parseRetryAfter(header string, attempt int) float64 {
	if header != "" {
		if v, err := strconv.ParseFloat(strings.TrimSpace(header), 64); err == nil && v >= 0 {
			return v
		}
	}
	return backoff(attempt).Seconds()
}

func backoff(attempt int) time.Duration {
	return time.Duration(1<<uint(attempt)) * time.Second
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

func snippet(body []byte) string {
	s := string(body)
	if len(s) > 500 {
		s = s[:500]
	}
	return s
}

// chatRequest is the wire format for POST {base}/chat/completions.
type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	Temperature    float64         `json:"temperature"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatResponse struct {
	Choices []chatChoice `json:"choices"`
}

type chatChoice struct {
	Message chatMessage `json:"message"`
}

func extractContent(body []byte) (string, error) {
	var parsed chatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("parsing API response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("no choices in API response")
	}
	return parsed.Choices[0].Message.Content, nil
}
