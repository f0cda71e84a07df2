package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"nft-curator/internal/domain"
	"nft-curator/internal/integrations/brightdata"
	"nft-curator/internal/integrations/openai"
)

type fakeLLM struct {
	responses []string
	errs      []error
	requests  []openai.ChatRequest
}

func (f *fakeLLM) Chat(_ context.Context, req openai.ChatRequest) (string, error) {
	i := len(f.requests)
	f.requests = append(f.requests, req)
	var resp string
	if i < len(f.responses) {
		resp = f.responses[i]
	}
	var err error
	if i < len(f.errs) {
		err = f.errs[i]
	}
	return resp, err
}

func (f *fakeLLM) lastUserText() string {
	if len(f.requests) == 0 {
		return ""
	}
	msgs := f.requests[len(f.requests)-1].Messages
	user := msgs[len(msgs)-1]
	if len(user.Parts) > 0 {
		return user.Parts[0].Text
	}
	return user.Content
}

type profileCall struct {
	url      string
	maxPosts int
}

type fakeScraper struct {
	profile     json.RawMessage
	profileErr  error
	pages       map[string]brightdata.Page
	pageErrs    map[string]error
	serpErrs    map[string]error
	profiles    []profileCall
	fetched     []string
	queries     []string
	queryLimits []int
}

func (f *fakeScraper) LookupProfile(_ context.Context, profileURL string, maxPosts int) (json.RawMessage, error) {
	f.profiles = append(f.profiles, profileCall{url: profileURL, maxPosts: maxPosts})
	return f.profile, f.profileErr
}

func (f *fakeScraper) FetchContent(_ context.Context, pageURL string) (brightdata.Page, error) {
	f.fetched = append(f.fetched, pageURL)
	if err := f.pageErrs[pageURL]; err != nil {
		return brightdata.Page{}, err
	}
	return f.pages[pageURL], nil
}

func (f *fakeScraper) SearchWeb(_ context.Context, query string, limit int) (brightdata.SERP, error) {
	f.queries = append(f.queries, query)
	f.queryLimits = append(f.queryLimits, limit)
	if err := f.serpErrs[query]; err != nil {
		return brightdata.SERP{}, err
	}
	return brightdata.SERP{Results: []json.RawMessage{json.RawMessage(`{"title":"` + query + `"}`)}, Total: 1}, nil
}

type fakeStore struct {
	mu     sync.Mutex
	data   map[string]map[string]string
	setErr error
	getErr error
	sets   []string
}

func newFakeStore() *fakeStore {
	return &fakeStore{data: map[string]map[string]string{}}
}

func (f *fakeStore) Get(_ context.Context, sender, key string) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return "", false, f.getErr
	}
	v, ok := f.data[sender][key]
	return v, ok, nil
}

func (f *fakeStore) Set(_ context.Context, sender, key, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.setErr != nil {
		return f.setErr
	}
	if f.data[sender] == nil {
		f.data[sender] = map[string]string{}
	}
	f.data[sender][key] = value
	f.sets = append(f.sets, key)
	return nil
}

func (f *fakeStore) value(sender, key string) (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.data[sender][key]
	return v, ok
}

type fakeReplier struct {
	acks    []domain.Acknowledgement
	msgs    []domain.Envelope
	ackErr  error
	sendErr error
}

func (f *fakeReplier) Acknowledge(_ context.Context, _ string, ack domain.Acknowledgement) error {
	if f.ackErr != nil {
		return f.ackErr
	}
	f.acks = append(f.acks, ack)
	return nil
}

func (f *fakeReplier) Send(_ context.Context, _ string, msg domain.Envelope) error {
	if f.sendErr != nil {
		return f.sendErr
	}
	f.msgs = append(f.msgs, msg)
	return nil
}

func (f *fakeReplier) texts() []string {
	out := make([]string, 0, len(f.msgs))
	for _, m := range f.msgs {
		out = append(out, m.Text())
	}
	return out
}

func (f *fakeReplier) last() domain.Envelope {
	return f.msgs[len(f.msgs)-1]
}

type stubAnalyzer struct {
	results []domain.AnalysisResult
	inputs  []string
}

func (s *stubAnalyzer) Analyze(_ context.Context, dataDump string) domain.AnalysisResult {
	s.inputs = append(s.inputs, dataDump)
	i := len(s.inputs) - 1
	if i >= len(s.results) {
		i = len(s.results) - 1
	}
	return s.results[i]
}

type stubSearcher struct {
	result domain.SearchResults
	calls  []domain.AnalysisResult
}

func (s *stubSearcher) Search(_ context.Context, analysis domain.AnalysisResult) domain.SearchResults {
	s.calls = append(s.calls, analysis)
	return s.result
}

type stubCurator struct {
	outcome CurationOutcome
	err     error
	inputs  []CurationInput
}

func (s *stubCurator) Curate(_ context.Context, in CurationInput) (CurationOutcome, error) {
	s.inputs = append(s.inputs, in)
	return s.outcome, s.err
}

var errBoom = errors.New("boom")
