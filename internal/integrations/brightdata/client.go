// Package brightdata is a client for the scraping endpoints used to enrich
// an analysis: social profile lookups, raw page fetches and search engine
// result pages.
package brightdata

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	DefaultBaseURL = "https://api.brightdata.com"
	DefaultZone    = "web_unlocker1"
	DefaultTimeout = 60 * time.Second

	// MaxContentChars caps fetched page content.
	MaxContentChars = 10000

	profileDatasetID = "gd_lwxmeb2u1cniijd7t4"
	serpDatasetID    = "gd_mfz5x93lmsjjjylob"

	maxBodyBytes = 4 << 20
)

// TokenProvider yields the bearer token for the API.
type TokenProvider interface {
	Token(ctx context.Context) (string, error)
}

// HTTPStatusError captures non-2xx upstream responses.
type HTTPStatusError struct {
	StatusCode int
	URL        string
	Body       string
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Body)
}

func (e *HTTPStatusError) HTTPStatusCode() int {
	return e.StatusCode
}

// Page is fetched page content, capped at MaxContentChars.
type Page struct {
	Content   string
	Truncated bool
}

// SERP holds organic results for one query.
type SERP struct {
	Results []json.RawMessage
	Total   int
}

type Client struct {
	baseURL    string
	zone       string
	httpClient *http.Client
	tokens     TokenProvider
}

type Option func(*Client)

func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	}
}

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithZone selects the unlocker zone used by FetchContent.
func WithZone(zone string) Option {
	return func(c *Client) {
		if z := strings.TrimSpace(zone); z != "" {
			c.zone = z
		}
	}
}

func NewClient(tokens TokenProvider, opts ...Option) (*Client, error) {
	if tokens == nil {
		return nil, errors.New("brightdata: token provider must not be nil")
	}
	c := &Client{
		baseURL:    DefaultBaseURL,
		zone:       DefaultZone,
		httpClient: &http.Client{Timeout: DefaultTimeout},
		tokens:     tokens,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.baseURL == "" {
		c.baseURL = DefaultBaseURL
	}
	return c, nil
}

type datasetInput struct {
	Input []map[string]any `json:"input"`
}

// LookupProfile scrapes a social profile and up to maxPosts of its posts.
func (c *Client) LookupProfile(ctx context.Context, profileURL string, maxPosts int) (json.RawMessage, error) {
	body := datasetInput{Input: []map[string]any{{
		"url":                 profileURL,
		"max_number_of_posts": maxPosts,
	}}}
	raw, err := c.post(ctx, c.datasetURL(profileDatasetID), body)
	if err != nil {
		return nil, fmt.Errorf("brightdata: lookup profile: %w", err)
	}
	if !json.Valid(raw) {
		return nil, errors.New("brightdata: lookup profile: response is not JSON")
	}
	return json.RawMessage(raw), nil
}

// FetchContent retrieves the raw content of pageURL through the unlocker zone.
func (c *Client) FetchContent(ctx context.Context, pageURL string) (Page, error) {
	body := map[string]string{
		"zone":   c.zone,
		"url":    pageURL,
		"format": "raw",
	}
	raw, err := c.post(ctx, c.baseURL+"/request", body)
	if err != nil {
		return Page{}, fmt.Errorf("brightdata: fetch content: %w", err)
	}
	content, truncated := truncateChars(string(raw), MaxContentChars)
	return Page{Content: content, Truncated: truncated}, nil
}

// SearchWeb runs a search engine query and returns at most limit organic results.
func (c *Client) SearchWeb(ctx context.Context, query string, limit int) (SERP, error) {
	body := datasetInput{Input: []map[string]any{{
		"url":        "https://www.google.com/",
		"keyword":    query,
		"language":   "",
		"uule":       "",
		"brd_mobile": "",
	}}}
	raw, err := c.post(ctx, c.datasetURL(serpDatasetID), body)
	if err != nil {
		return SERP{}, fmt.Errorf("brightdata: search web: %w", err)
	}
	serp, err := parseSERP(raw, limit)
	if err != nil {
		return SERP{}, fmt.Errorf("brightdata: search web: %w", err)
	}
	return serp, nil
}

func parseSERP(raw []byte, limit int) (SERP, error) {
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		if !json.Valid(raw) {
			return SERP{}, errors.New("response is not JSON")
		}
		return SERP{Results: []json.RawMessage{raw}, Total: 1}, nil
	}

	var organic []json.RawMessage
	for _, item := range items {
		var obj struct {
			Organic []json.RawMessage `json:"organic_results"`
		}
		if err := json.Unmarshal(item, &obj); err == nil && obj.Organic != nil {
			organic = append(organic, headOf(obj.Organic, limit)...)
			continue
		}
		organic = append(organic, item)
	}
	return SERP{Results: headOf(organic, limit), Total: len(organic)}, nil
}

func (c *Client) datasetURL(datasetID string) string {
	q := url.Values{}
	q.Set("dataset_id", datasetID)
	q.Set("notify", "false")
	q.Set("include_errors", "true")
	return c.baseURL + "/datasets/v3/scrape?" + q.Encode()
}

func (c *Client) post(ctx context.Context, endpoint string, payload any) ([]byte, error) {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, fmt.Errorf("resolve api token: %w", err)
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	res, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode != http.StatusOK {
		buf, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
		return nil, &HTTPStatusError{StatusCode: res.StatusCode, URL: endpoint, Body: string(buf)}
	}
	buf, err := io.ReadAll(io.LimitReader(res.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	return buf, nil
}

func truncateChars(s string, limit int) (string, bool) {
	if utf8.RuneCountInString(s) <= limit {
		return s, false
	}
	n := 0
	for i := range s {
		if n == limit {
			return s[:i], true
		}
		n++
	}
	return s, false
}

func headOf(items []json.RawMessage, limit int) []json.RawMessage {
	if limit > 0 && len(items) > limit {
		return items[:limit]
	}
	return items
}
