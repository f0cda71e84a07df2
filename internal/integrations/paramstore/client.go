package paramstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/service/ssm"
)

// ssmAPI is the minimal AWS SSM interface required by Client.
// *ssm.Client from aws-sdk-go-v2 satisfies this interface.
type ssmAPI interface {
	GetParameter(ctx context.Context, in *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
}

// Getter is the interface that wraps GetParameter.
// Consumers (the LLM and scraper clients) depend on this interface rather
// than the concrete *Client so they remain testable without real AWS calls.
type Getter interface {
	GetParameter(ctx context.Context, name string) (string, error)
}

// tokenPayload is the JSON shape stored in SSM for API tokens.
type tokenPayload struct {
	Token string `json:"token"`
}

// Client wraps an AWS SSM API for parameter retrieval.
type Client struct {
	api ssmAPI
}

// New creates a Client with the given SSM API implementation.
func New(api ssmAPI) (*Client, error) {
	if api == nil {
		return nil, errors.New("paramstore: api must not be nil")
	}
	return &Client{api: api}, nil
}

func (c *Client) GetParameter(ctx context.Context, name string) (string, error) {
	if c.api == nil {
		return "", errors.New("paramstore: client not initialized")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return "", errors.New("paramstore: name is required")
	}

	withDecryption := true
	out, err := c.api.GetParameter(ctx, &ssm.GetParameterInput{
		Name:           &name,
		WithDecryption: &withDecryption,
	})
	if err != nil {
		return "", fmt.Errorf("paramstore: get parameter %q: %w", name, err)
	}
	if out == nil || out.Parameter == nil || out.Parameter.Value == nil {
		return "", errors.New("paramstore: parameter missing value")
	}
	return *out.Parameter.Value, nil
}

// FetchToken reads a SecureString parameter holding {"token":"..."} and
// returns the token.
func FetchToken(ctx context.Context, getter Getter, name string) (string, error) {
	if getter == nil {
		return "", errors.New("paramstore: getter is nil")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return "", errors.New("paramstore: token parameter name is empty")
	}

	raw, err := getter.GetParameter(ctx, name)
	if err != nil {
		return "", fmt.Errorf("paramstore: fetch token %q: %w", name, err)
	}
	var tp tokenPayload
	if err := json.Unmarshal([]byte(raw), &tp); err != nil {
		return "", fmt.Errorf("paramstore: unmarshal token %q as JSON: %w", name, err)
	}
	if strings.TrimSpace(tp.Token) == "" {
		return "", fmt.Errorf("paramstore: token %q is empty", name)
	}
	return tp.Token, nil
}

// TokenSource resolves one token on first use and serves the cached value
// for the lifetime of the process. Failed fetches are not cached.
type TokenSource struct {
	getter Getter
	name   string

	mu    sync.Mutex
	token string
	err   error
}

// NewTokenSource creates a lazily resolved token for the named parameter.
func NewTokenSource(getter Getter, name string) (*TokenSource, error) {
	if getter == nil {
		return nil, errors.New("paramstore: getter must not be nil")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errors.New("paramstore: token parameter name must not be empty")
	}
	return &TokenSource{getter: getter, name: name}, nil
}

// StaticToken returns a TokenSource that always yields token.
func StaticToken(token string) *TokenSource {
	ts := &TokenSource{token: token}
	if strings.TrimSpace(token) == "" {
		ts.err = errors.New("paramstore: static token is empty")
	}
	return ts
}

// Token returns the cached token, fetching it from SSM until a fetch succeeds.
func (ts *TokenSource) Token(ctx context.Context) (string, error) {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	if ts.getter == nil || ts.token != "" {
		return ts.token, ts.err
	}
	token, err := FetchToken(ctx, ts.getter, ts.name)
	if err != nil {
		return "", err
	}
	ts.token = token
	return token, nil
}
