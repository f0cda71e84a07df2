package openai

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"nft-curator/internal/domain"
)

// ---------------------------------------------------------------------------
// chatURL helper
// ---------------------------------------------------------------------------

func TestChatURL(t *testing.T) {
	cases := []struct {
		base string
		want string
	}{
		{"https://api.openai.com/v1", "https://api.openai.com/v1/chat/completions"},
		{"https://api.asi1.ai/v1/", "https://api.asi1.ai/v1/chat/completions"},
		{"http://localhost:8080", "http://localhost:8080/v1/chat/completions"},
		{"", "https://api.asi1.ai/v1/chat/completions"},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, chatURL(tc.base), "base=%q", tc.base)
	}
}

// ---------------------------------------------------------------------------
// NewClient
// ---------------------------------------------------------------------------

type fakeTokens struct {
	token string
	err   error
	calls int
}

func (f *fakeTokens) Token(_ context.Context) (string, error) {
	f.calls++
	return f.token, f.err
}

func TestNewClient_NilTokens(t *testing.T) {
	_, err := NewClient(nil)
	require.Error(t, err)
	require.Contains(t, err.Error(), "nil")
}

func TestNewClient_Defaults(t *testing.T) {
	c, err := NewClient(&fakeTokens{token: "sk"})
	require.NoError(t, err)
	require.Equal(t, DefaultBaseURL, c.baseURL)
	require.NotNil(t, c.httpClient)
	require.Zero(t, c.httpClient.Timeout)
}

// ---------------------------------------------------------------------------
// Client.Chat
// ---------------------------------------------------------------------------

func newTestClient(t *testing.T, srv *httptest.Server) *Client {
	t.Helper()
	c, err := NewClient(
		&fakeTokens{token: "sk-test"},
		WithBaseURL(srv.URL),
		WithHTTPClient(&http.Client{Timeout: 2 * time.Second}),
	)
	require.NoError(t, err)
	return c
}

func okCompletion(content string) string {
	b, _ := json.Marshal(map[string]any{
		"id":      "chatcmpl-123",
		"object":  "chat.completion",
		"created": 1670000000,
		"choices": []map[string]any{{
			"index":         0,
			"message":       map[string]string{"role": "assistant", "content": content},
			"finish_reason": "stop",
		}},
	})
	return string(b)
}

func TestClient_Chat_HappyPath_Vision(t *testing.T) {
	var captured map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/chat/completions", r.URL.Path)
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		reqBody, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(reqBody, &captured))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(okCompletion(`{"ok":true}`)))
	}))
	defer srv.Close()

	temp := 0.8
	c := newTestClient(t, srv)
	resp, err := c.Chat(context.Background(), ChatRequest{
		Model: "asi1-extended",
		Messages: []domain.ChatMessage{
			{Role: "system", Content: "You are an analyst."},
			{Role: "user", Parts: []domain.ContentPart{
				domain.TextPart("describe"),
				domain.ImagePart("https://ipfs.io/ipfs/Qm1", "high"),
			}},
		},
		MaxTokens:   20000,
		Temperature: &temp,
	})
	require.NoError(t, err)
	require.Equal(t, `{"ok":true}`, resp)

	require.Equal(t, "asi1-extended", captured["model"])
	require.EqualValues(t, 20000, captured["max_tokens"])
	require.EqualValues(t, 0.8, captured["temperature"])
	msgs := captured["messages"].([]any)
	require.Len(t, msgs, 2)
	require.Equal(t, "You are an analyst.", msgs[0].(map[string]any)["content"])
	parts := msgs[1].(map[string]any)["content"].([]any)
	require.Len(t, parts, 2)
	image := parts[1].(map[string]any)
	require.Equal(t, "image_url", image["type"])
	require.Equal(t, "https://ipfs.io/ipfs/Qm1", image["image_url"].(map[string]any)["url"])
	require.Equal(t, "high", image["image_url"].(map[string]any)["detail"])
}

func TestClient_Chat_OmitsUnsetLimits(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqBody, _ := io.ReadAll(r.Body)
		require.NotContains(t, string(reqBody), "max_tokens")
		require.NotContains(t, string(reqBody), "temperature")
		_, _ = w.Write([]byte(okCompletion("hi")))
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	_, err := c.Chat(context.Background(), ChatRequest{Model: "m", Messages: []domain.ChatMessage{{Role: "user", Content: "hi"}}})
	require.NoError(t, err)
}

func TestClient_Chat_Non200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(400)
		_, _ = w.Write([]byte(`{"error":"bad request"}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	_, err := c.Chat(context.Background(), ChatRequest{Model: "m"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "unexpected status")
	require.Contains(t, err.Error(), "400")

	var statusErr *HTTPStatusError
	require.True(t, errors.As(err, &statusErr))
	require.Equal(t, 400, statusErr.HTTPStatusCode())
}

func TestClient_Chat_InvalidJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`not-a-json`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	_, err := c.Chat(context.Background(), ChatRequest{Model: "m"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "decode response")
}

func TestClient_Chat_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	c.httpClient = &http.Client{Timeout: 50 * time.Millisecond}
	_, err := c.Chat(context.Background(), ChatRequest{Model: "m"})
	require.Error(t, err)
}

func TestClient_Chat_ContextCanceled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := c.Chat(ctx, ChatRequest{Model: "m"})
	require.Error(t, err)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestClient_Chat_EmptyModel(t *testing.T) {
	tokens := &fakeTokens{token: "sk"}
	c, err := NewClient(tokens)
	require.NoError(t, err)
	_, err = c.Chat(context.Background(), ChatRequest{})
	require.Error(t, err)
	require.Contains(t, err.Error(), "model")
	require.Zero(t, tokens.calls)
}

func TestClient_Chat_TokenError(t *testing.T) {
	c, err := NewClient(&fakeTokens{err: errors.New("ssm unavailable")})
	require.NoError(t, err)
	_, err = c.Chat(context.Background(), ChatRequest{Model: "m"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "ssm unavailable")
}

func TestClient_Chat_NetworkError(t *testing.T) {
	c, err := NewClient(&fakeTokens{token: "sk"})
	require.NoError(t, err)
	c.baseURL = "http://127.0.0.1:1"
	c.httpClient = &http.Client{Timeout: 100 * time.Millisecond}

	_, err = c.Chat(context.Background(), ChatRequest{Model: "m"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "request failed")
}

func TestClient_Chat_NoChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	_, err := c.Chat(context.Background(), ChatRequest{Model: "m"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "no choices")
}

func TestClient_Chat_ContentFilter(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[{"index":0,"message":{"role":"assistant","content":""},"finish_reason":"content_filter"}]}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	_, err := c.Chat(context.Background(), ChatRequest{Model: "m"})
	require.ErrorIs(t, err, ErrContentFiltered)
}

func TestClient_Chat_429And500(t *testing.T) {
	for _, status := range []int{429, 500} {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(status)
			_, _ = w.Write([]byte(`{"error":"upstream"}`))
		}))

		c := newTestClient(t, srv)
		_, err := c.Chat(context.Background(), ChatRequest{Model: "m", Messages: []domain.ChatMessage{{Role: "user", Content: "hi"}}})
		require.Error(t, err)
		var statusErr *HTTPStatusError
		require.True(t, errors.As(err, &statusErr))
		require.Equal(t, status, statusErr.StatusCode)
		srv.Close()
	}
}
