// Package translate implements the Self-Correcting Translator (spec §4.4)
// against the single translation-endpoint contract of spec §6.3. It is
// grounded on valpere-peretran's internal/translator package: the
// one-interface-per-provider TranslationService shape is collapsed here
// into a single HTTP client, since the spec names exactly one endpoint
// contract rather than a provider roster.
package translate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// FinishReason is the set of finish reasons the endpoint contract
// recognizes (spec §6.3).
type FinishReason string

const (
	FinishComplete          FinishReason = "complete"
	FinishLengthCap         FinishReason = "length_cap"
	FinishSafetyBlocked     FinishReason = "safety_blocked"
	FinishRecitationBlocked FinishReason = "recitation_blocked"
	FinishOtherBlocked      FinishReason = "other_blocked"
)

// Blocked reports whether this finish reason is a non-retryable block.
func (f FinishReason) Blocked() bool {
	switch f {
	case FinishSafetyBlocked, FinishRecitationBlocked, FinishOtherBlocked:
		return true
	default:
		return false
	}
}

// Request is the translation endpoint request body (spec §6.3).
type Request struct {
	Text               string  `json:"text"`
	SourceLanguageHint string  `json:"source_language_hint,omitempty"`
	TargetLanguage     string  `json:"target_language"`
	ModelIdentifier    string  `json:"model_identifier"`
	Temperature        float64 `json:"temperature"`
	SystemInstructions string  `json:"system_instructions,omitempty"`
}

// Response is the translation endpoint response body (spec §6.3).
type Response struct {
	TranslatedText string       `json:"translated_text"`
	FinishReason   FinishReason `json:"finish_reason"`
	UsageTokens    int          `json:"usage_tokens"`
}

// EndpointClient is the single contract every translation call goes
// through (spec §6.3). Implementations may target any OpenAI-compatible
// chat endpoint, Ollama, or a vendor SDK wrapper.
type EndpointClient interface {
	Translate(ctx context.Context, req Request) (Response, error)
}

// HTTPEndpointClient implements EndpointClient against an
// OpenAI-compatible chat completions endpoint, selected by
// ModelIdentifier at request time so one client instance can serve every
// model tier the router names (spec §4.2's cost/quality models).
type HTTPEndpointClient struct {
	BaseURL string
	APIKey  string
	HTTP    *http.Client
}

// NewHTTPEndpointClient builds a client with the teacher-idiom
// bounded-timeout http.Client used throughout the pack's translator
// implementations.
func NewHTTPEndpointClient(baseURL, apiKey string) *HTTPEndpointClient {
	return &HTTPEndpointClient{
		BaseURL: baseURL,
		APIKey:  apiKey,
		HTTP:    &http.Client{Timeout: 120 * time.Second},
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatChoice struct {
	Message      chatMessage `json:"message"`
	FinishReason string      `json:"finish_reason"`
}

type chatResponse struct {
	Choices []chatChoice `json:"choices"`
	Usage   struct {
		TotalTokens int `json:"total_tokens"`
	} `json:"usage"`
}

// Translate issues req against the configured chat endpoint.
func (c *HTTPEndpointClient) Translate(ctx context.Context, req Request) (Response, error) {
	body := chatRequest{
		Model: req.ModelIdentifier,
		Messages: []chatMessage{
			{Role: "system", Content: buildSystemPrompt(req)},
			{Role: "user", Content: req.Text},
		},
		Temperature: req.Temperature,
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return Response{}, fmt.Errorf("translate: marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return Response{}, fmt.Errorf("translate: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.APIKey)
	}

	resp, err := c.HTTP.Do(httpReq)
	if err != nil {
		return Response{}, fmt.Errorf("translate: request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return Response{}, fmt.Errorf("translate: read response: %w", err)
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return Response{}, &RateLimitedError{RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After"))}
	}
	if resp.StatusCode >= 500 {
		return Response{}, fmt.Errorf("translate: endpoint returned %d: %s", resp.StatusCode, string(data))
	}
	if resp.StatusCode != http.StatusOK {
		return Response{}, fmt.Errorf("translate: endpoint returned %d: %s", resp.StatusCode, string(data))
	}

	var parsed chatResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return Response{}, fmt.Errorf("translate: decode response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return Response{}, fmt.Errorf("translate: endpoint returned no choices")
	}

	return Response{
		TranslatedText: parsed.Choices[0].Message.Content,
		FinishReason:   mapFinishReason(parsed.Choices[0].FinishReason),
		UsageTokens:    parsed.Usage.TotalTokens,
	}, nil
}

func mapFinishReason(reason string) FinishReason {
	switch reason {
	case "stop", "":
		return FinishComplete
	case "length":
		return FinishLengthCap
	case "content_filter":
		return FinishSafetyBlocked
	default:
		return FinishOtherBlocked
	}
}

func parseRetryAfter(header string) time.Duration {
	if header == "" {
		return 0
	}
	var seconds int
	if _, err := fmt.Sscanf(header, "%d", &seconds); err != nil {
		return 0
	}
	return time.Duration(seconds) * time.Second
}

// RateLimitedError signals a 429 response, giving callers a server-advised
// backoff when present.
type RateLimitedError struct {
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("translate: rate limited, retry after %s", e.RetryAfter)
}
