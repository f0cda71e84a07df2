package brightdata

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeTokens struct {
	token string
	err   error
}

func (f *fakeTokens) Token(_ context.Context) (string, error) {
	return f.token, f.err
}

func newTestClient(t *testing.T, srv *httptest.Server, opts ...Option) *Client {
	t.Helper()
	opts = append([]Option{
		WithBaseURL(srv.URL),
		WithHTTPClient(&http.Client{Timeout: 2 * time.Second}),
	}, opts...)
	c, err := NewClient(&fakeTokens{token: "bd-test"}, opts...)
	require.NoError(t, err)
	return c
}

func TestNewClient_Defaults(t *testing.T) {
	c, err := NewClient(&fakeTokens{token: "x"})
	require.NoError(t, err)
	require.Equal(t, DefaultBaseURL, c.baseURL)
	require.Equal(t, DefaultZone, c.zone)
	require.Equal(t, DefaultTimeout, c.httpClient.Timeout)

	_, err = NewClient(nil)
	require.Error(t, err)
}

func TestLookupProfile(t *testing.T) {
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/datasets/v3/scrape", r.URL.Path)
		require.Equal(t, profileDatasetID, r.URL.Query().Get("dataset_id"))
		require.Equal(t, "false", r.URL.Query().Get("notify"))
		require.Equal(t, "true", r.URL.Query().Get("include_errors"))
		require.Equal(t, "Bearer bd-test", r.Header.Get("Authorization"))
		raw, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(raw, &body))
		_, _ = w.Write([]byte(`[{"id":"artist","posts":[]}]`))
	}))
	defer srv.Close()

	data, err := newTestClient(t, srv).LookupProfile(context.Background(), "https://x.com/artist", 10)
	require.NoError(t, err)
	require.JSONEq(t, `[{"id":"artist","posts":[]}]`, string(data))

	input := body["input"].([]any)[0].(map[string]any)
	require.Equal(t, "https://x.com/artist", input["url"])
	require.EqualValues(t, 10, input["max_number_of_posts"])
}

func TestLookupProfile_NotJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html>`))
	}))
	defer srv.Close()

	_, err := newTestClient(t, srv).LookupProfile(context.Background(), "https://x.com/a", 10)
	require.Error(t, err)
	require.Contains(t, err.Error(), "not JSON")
}

func TestFetchContent_Truncates(t *testing.T) {
	var body map[string]string
	page := strings.Repeat("é", MaxContentChars+5)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/request", r.URL.Path)
		raw, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(raw, &body))
		_, _ = w.Write([]byte(page))
	}))
	defer srv.Close()

	got, err := newTestClient(t, srv, WithZone("zone_a")).FetchContent(context.Background(), "https://artist.studio")
	require.NoError(t, err)
	require.True(t, got.Truncated)
	require.Equal(t, MaxContentChars, len([]rune(got.Content)))
	require.Equal(t, map[string]string{"zone": "zone_a", "url": "https://artist.studio", "format": "raw"}, body)
}

func TestFetchContent_Short(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html>hello</html>"))
	}))
	defer srv.Close()

	got, err := newTestClient(t, srv).FetchContent(context.Background(), "https://a.b")
	require.NoError(t, err)
	require.False(t, got.Truncated)
	require.Equal(t, "<html>hello</html>", got.Content)
}

func TestFetchContent_StatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte("zone disabled"))
	}))
	defer srv.Close()

	_, err := newTestClient(t, srv).FetchContent(context.Background(), "https://a.b")
	var statusErr *HTTPStatusError
	require.True(t, errors.As(err, &statusErr))
	require.Equal(t, http.StatusForbidden, statusErr.HTTPStatusCode())
	require.Contains(t, err.Error(), "HTTP 403: zone disabled")
}

func TestSearchWeb_FlattensOrganicResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, serpDatasetID, r.URL.Query().Get("dataset_id"))
		_, _ = w.Write([]byte(`[{"organic_results":[{"rank":1},{"rank":2},{"rank":3}]}]`))
	}))
	defer srv.Close()

	serp, err := newTestClient(t, srv).SearchWeb(context.Background(), "foo artist", 2)
	require.NoError(t, err)
	require.Len(t, serp.Results, 2)
	require.JSONEq(t, `{"rank":1}`, string(serp.Results[0]))
	require.Equal(t, 2, serp.Total)
}

func TestParseSERP(t *testing.T) {
	serp, err := parseSERP([]byte(`{"single":true}`), 7)
	require.NoError(t, err)
	require.Len(t, serp.Results, 1)
	require.Equal(t, 1, serp.Total)

	serp, err = parseSERP([]byte(`[]`), 7)
	require.NoError(t, err)
	require.Empty(t, serp.Results)
	require.Zero(t, serp.Total)

	_, err = parseSERP([]byte(`nope`), 7)
	require.Error(t, err)
}

func TestTokenError(t *testing.T) {
	c, err := NewClient(&fakeTokens{err: errors.New("ssm down")})
	require.NoError(t, err)
	_, err = c.FetchContent(context.Background(), "https://a.b")
	require.Error(t, err)
	require.Contains(t, err.Error(), "ssm down")
}
