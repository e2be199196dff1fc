package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/FIREPRO12344IE/climamind-uae-ai-11878/internal/circuitbreaker"
	"github.com/FIREPRO12344IE/climamind-uae-ai-11878/internal/observability"
)

var (
	// ErrNotConfigured means no gateway credential was supplied. Detected at
	// construction so a misconfigured deployment fails fast instead of failing
	// on the first user message.
	ErrNotConfigured = errors.New("completion gateway credential not configured")

	ErrRateLimited   = errors.New("completion gateway rate limited")
	ErrQuotaExceeded = errors.New("completion gateway quota exceeded")
	ErrAuthInvalid   = errors.New("completion gateway credential rejected")
	ErrUpstream      = errors.New("completion gateway failure")
)

// fallbackReply stands in when the gateway responds 200 with no choices.
const fallbackReply = "I'm having trouble responding right now."

// Completer produces one assistant reply for a system prompt and user message.
type Completer interface {
	Complete(ctx context.Context, systemPrompt, userMessage string) (string, error)
}

// GatewayClient calls an OpenAI-compatible chat-completions gateway.
type GatewayClient struct {
	apiURL      string
	model       string
	apiKey      string
	temperature float64
	timeout     time.Duration
	client      *http.Client
	breaker     *circuitbreaker.CircuitBreaker
}

// NewGatewayClient creates a client for the given completions endpoint.
// Returns ErrNotConfigured when the credential is empty.
func NewGatewayClient(apiURL, model, apiKey string, temperature float64, timeout time.Duration) (*GatewayClient, error) {
	if apiKey == "" {
		return nil, ErrNotConfigured
	}
	return &GatewayClient{
		apiURL:      apiURL,
		model:       model,
		apiKey:      apiKey,
		temperature: temperature,
		timeout:     timeout,
		client:      &http.Client{Timeout: timeout},
	}, nil
}

// SetCircuitBreaker wires a breaker around gateway calls.
func (c *GatewayClient) SetCircuitBreaker(cb *circuitbreaker.CircuitBreaker) {
	c.breaker = cb
}

type completionRequest struct {
	Model       string              `json:"model"`
	Messages    []completionMessage `json:"messages"`
	Temperature float64             `json:"temperature,omitempty"`
}

type completionMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type completionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Complete sends one completion request. A 200 with no choices returns the
// fixed fallback reply rather than an error.
func (c *GatewayClient) Complete(ctx context.Context, systemPrompt, userMessage string) (string, error) {
	var reply string
	call := func() error {
		var err error
		reply, err = c.callGateway(ctx, systemPrompt, userMessage)
		return err
	}

	var err error
	if c.breaker != nil {
		err = c.breaker.Call(ctx, call)
	} else {
		err = call()
	}
	if err != nil {
		return "", err
	}
	return reply, nil
}

func (c *GatewayClient) callGateway(ctx context.Context, systemPrompt, userMessage string) (string, error) {
	start := time.Now()

	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	body, err := json.Marshal(completionRequest{
		Model: c.model,
		Messages: []completionMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userMessage},
		},
		Temperature: c.temperature,
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(reqCtx, "POST", c.apiURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		observability.ChatRequestsTotal.WithLabelValues("error").Inc()
		observability.ChatUpstreamDuration.WithLabelValues("error").Observe(time.Since(start).Seconds())

		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return "", fmt.Errorf("request timeout: %w", err)
		}
		return "", fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	defer resp.Body.Close()

	status := outcomeLabel(resp.StatusCode)
	observability.ChatRequestsTotal.WithLabelValues(status).Inc()
	observability.ChatUpstreamDuration.WithLabelValues(status).Observe(time.Since(start).Seconds())

	if err := mapStatus(resp.StatusCode); err != nil {
		return "", err
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response body: %w", err)
	}

	var parsed completionResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", fmt.Errorf("parse response: %w", err)
	}

	if len(parsed.Choices) == 0 || parsed.Choices[0].Message.Content == "" {
		return fallbackReply, nil
	}
	return parsed.Choices[0].Message.Content, nil
}

// mapStatus converts a non-2xx gateway status into a sentinel error.
// 402 is what the gateway returns when the workspace is out of credits.
func mapStatus(statusCode int) error {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return nil
	case statusCode == http.StatusTooManyRequests:
		return ErrRateLimited
	case statusCode == http.StatusPaymentRequired:
		return ErrQuotaExceeded
	case statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden:
		return ErrAuthInvalid
	default:
		return fmt.Errorf("%w: HTTP %d", ErrUpstream, statusCode)
	}
}

func outcomeLabel(statusCode int) string {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return "success"
	case statusCode == http.StatusTooManyRequests:
		return "rate_limited"
	case statusCode == http.StatusPaymentRequired:
		return "quota"
	case statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden:
		return "auth_invalid"
	default:
		return "upstream"
	}
}
