package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"nft-curator/internal/domain"
)

// DefaultBaseURL is the OpenAI-compatible endpoint used when none is configured.
const DefaultBaseURL = "https://api.asi1.ai/v1"

const maxResponseBytes = 8 << 20

// ChatRequest describes one chat completion call.
type ChatRequest struct {
	Model       string
	Messages    []domain.ChatMessage
	MaxTokens   int
	Temperature *float64
}

// chatRequest is the wire shape for the Chat Completions endpoint.
type chatRequest struct {
	Model       string               `json:"model"`
	Messages    []domain.ChatMessage `json:"messages"`
	MaxTokens   int                  `json:"max_tokens,omitempty"`
	Temperature *float64             `json:"temperature,omitempty"`
}

// chatResponse is the minimal response shape returned by the Chat Completions endpoint.
type chatResponse struct {
	ID      string `json:"id"`
	Object  string `json:"object"`
	Created int64  `json:"created"`
	Choices []struct {
		Index   int `json:"index"`
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
}

// TokenProvider yields the bearer token for the endpoint.
type TokenProvider interface {
	Token(ctx context.Context) (string, error)
}

// HTTPStatusError captures non-2xx upstream responses with status-aware context.
type HTTPStatusError struct {
	StatusCode int
	URL        string
	Body       string
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("openai: unexpected status %d from %s: %s", e.StatusCode, e.URL, e.Body)
}

func (e *HTTPStatusError) HTTPStatusCode() int {
	return e.StatusCode
}

// ErrContentFiltered is returned when the provider withholds the completion.
var ErrContentFiltered = errors.New("openai: completion withheld by content filter")

// Client is a focused OpenAI-compatible client for chat completions, including
// multi-part vision messages.
type Client struct {
	baseURL    string
	httpClient *http.Client
	tokens     TokenProvider
}

type Option func(*Client)

func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimSpace(baseURL)
	}
}

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// NewClient creates a Client authenticating with tokens. The HTTP client has
// no overall timeout: long completions are bounded by the caller's context.
func NewClient(tokens TokenProvider, opts ...Option) (*Client, error) {
	if tokens == nil {
		return nil, errors.New("openai: token provider must not be nil")
	}
	c := &Client{
		baseURL:    DefaultBaseURL,
		httpClient: &http.Client{},
		tokens:     tokens,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// resolvedHTTPClient returns the configured HTTP client, or a default one
// if none was set (e.g. in tests that nil out the field).
func (c *Client) resolvedHTTPClient() *http.Client {
	if c.httpClient != nil {
		return c.httpClient
	}
	return &http.Client{}
}

func chatURL(baseURL string) string {
	base := strings.TrimRight(baseURL, "/")
	if base == "" {
		base = DefaultBaseURL
	}
	if strings.HasSuffix(base, "/v1") {
		return base + "/chat/completions"
	}
	return base + "/v1/chat/completions"
}

// Chat sends the request and returns the text of the first choice.
func (c *Client) Chat(ctx context.Context, in ChatRequest) (string, error) {
	if in.Model == "" {
		return "", errors.New("openai: model must not be empty")
	}

	apiKey, err := c.tokens.Token(ctx)
	if err != nil {
		return "", fmt.Errorf("openai: resolve api token: %w", err)
	}

	body, err := json.Marshal(chatRequest{
		Model:       in.Model,
		Messages:    in.Messages,
		MaxTokens:   in.MaxTokens,
		Temperature: in.Temperature,
	})
	if err != nil {
		return "", fmt.Errorf("openai: marshal request: %w", err)
	}

	url := chatURL(c.baseURL)

	req, reqErr := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if reqErr != nil {
		return "", fmt.Errorf("openai: create request: %w", reqErr)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+apiKey)

	raw, err := c.doJSONRequest(req, url)
	if err != nil {
		return "", fmt.Errorf("openai: request failed: %w", err)
	}

	var payload chatResponse
	if decErr := json.Unmarshal(raw, &payload); decErr != nil {
		return "", fmt.Errorf("openai: decode response: %w", decErr)
	}
	if len(payload.Choices) == 0 {
		return "", errors.New("openai: no choices in response")
	}
	choice := payload.Choices[0]
	if choice.Message.Content == "" && choice.FinishReason == "content_filter" {
		return "", ErrContentFiltered
	}

	return choice.Message.Content, nil
}

func (c *Client) doJSONRequest(req *http.Request, url string) ([]byte, error) {
	res, doErr := c.resolvedHTTPClient().Do(req)
	if doErr != nil {
		return nil, doErr
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		buf, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
		return nil, &HTTPStatusError{
			StatusCode: res.StatusCode,
			URL:        url,
			Body:       string(buf),
		}
	}

	buf, err := io.ReadAll(io.LimitReader(res.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	return buf, nil
}
