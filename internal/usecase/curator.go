package usecase

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"nft-curator/internal/domain"
	"nft-curator/internal/extractor"
)

const (
	Greeting = "Hi! I'm an Art and NFTs expert, how can I help?"

	analysisPreviewChars = 3000
	searchPreviewChars   = 3000
	curationPreviewChars = 3500
	debugExcerptChars    = 150
	rawErrorExcerptChars = 500
)

// SessionStore is the per-sender key-value storage.
type SessionStore interface {
	Get(ctx context.Context, sender, key string) (string, bool, error)
	Set(ctx context.Context, sender, key, value string) error
}

// Replier delivers outbound traffic to a counterparty.
type Replier interface {
	Acknowledge(ctx context.Context, sender string, ack domain.Acknowledgement) error
	Send(ctx context.Context, sender string, msg domain.Envelope) error
}

type Analyzer interface {
	Analyze(ctx context.Context, dataDump string) domain.AnalysisResult
}

type Searcher interface {
	Search(ctx context.Context, analysis domain.AnalysisResult) domain.SearchResults
}

type Curator interface {
	Curate(ctx context.Context, in CurationInput) (CurationOutcome, error)
}

// CuratorService routes chat messages through analysis, search and curation,
// keeping each sender's progress in the session store.
type CuratorService struct {
	store    SessionStore
	analyzer Analyzer
	searcher Searcher
	curator  Curator
	logger   *slog.Logger
	now      func() time.Time
}

func NewCuratorService(store SessionStore, analyzer Analyzer, searcher Searcher, curator Curator, logger *slog.Logger) (*CuratorService, error) {
	if store == nil {
		return nil, errors.New("usecase: session store must not be nil")
	}
	if analyzer == nil {
		return nil, errors.New("usecase: analyzer must not be nil")
	}
	if searcher == nil {
		return nil, errors.New("usecase: searcher must not be nil")
	}
	if curator == nil {
		return nil, errors.New("usecase: curator must not be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CuratorService{
		store:    store,
		analyzer: analyzer,
		searcher: searcher,
		curator:  curator,
		logger:   logger,
		now:      time.Now,
	}, nil
}

// conversation is the reply channel for a single inbound message.
type conversation struct {
	sender string
	out    Replier
	now    func() time.Time
}

func (c conversation) say(ctx context.Context, text string, end bool) error {
	msg := domain.Envelope{
		MsgID:     newUUID(),
		Timestamp: c.now().UTC(),
		Content:   []domain.Content{{Type: domain.ContentText, Text: text}},
	}
	if end {
		msg.Content = append(msg.Content, domain.Content{Type: domain.ContentEndSession})
	}
	if err := c.out.Send(ctx, c.sender, msg); err != nil {
		return fmt.Errorf("usecase: send to %s: %w", c.sender, err)
	}
	return nil
}

// Handle processes one inbound message. Step failures are reported to the
// sender as chat messages; the returned error is only set when the reply
// channel itself fails.
func (s *CuratorService) Handle(ctx context.Context, in domain.Inbound, out Replier) error {
	sender := strings.TrimSpace(in.Sender)
	if sender == "" {
		return newError(ErrorInvalidInput, "missing_sender", nil)
	}
	if out == nil {
		return newError(ErrorInvalidInput, "missing_replier", nil)
	}
	conv := conversation{sender: sender, out: out, now: s.now}

	if err := out.Acknowledge(ctx, sender, domain.Acknowledgement{
		Timestamp:         s.now().UTC(),
		AcknowledgedMsgID: in.Message.MsgID,
	}); err != nil {
		return fmt.Errorf("usecase: acknowledge %s: %w", in.Message.MsgID, err)
	}

	if in.Message.StartsSession() {
		if err := conv.say(ctx, Greeting, false); err != nil {
			return err
		}
	}

	text := in.Message.Text()
	if strings.TrimSpace(text) == "" {
		return nil
	}

	cmd := ParseCommand(text)
	log := s.logger.With("sender", sender, "step", cmd.Kind.String())

	var err error
	switch cmd.Kind {
	case CommandSearch:
		err = s.search(ctx, conv, log)
	case CommandCurate:
		err = s.curate(ctx, conv, cmd.AwakenedBy, log)
	default:
		err = s.analyze(ctx, conv, cmd.Data, log)
	}
	if err == nil {
		return nil
	}
	var sendErr *replyError
	if errors.As(err, &sendErr) {
		return sendErr.err
	}
	return s.reportFailure(ctx, conv, cmd.Kind, err, log)
}

// replyError marks a failure of the reply channel, which cannot be reported
// back to the sender.
type replyError struct{ err error }

func (e *replyError) Error() string { return e.err.Error() }
func (e *replyError) Unwrap() error { return e.err }

func (c conversation) step(ctx context.Context, text string, end bool) error {
	if err := c.say(ctx, text, end); err != nil {
		return &replyError{err: err}
	}
	return nil
}

func (s *CuratorService) analyze(ctx context.Context, conv conversation, raw string, log *slog.Logger) error {
	log.Info("starting analysis")
	if err := conv.step(ctx, "**Step 1: Analyzing NFT data...**\n\n"+
		"Extracting key information, analyzing artwork, and preparing search queries.", false); err != nil {
		return err
	}

	dataDump := extractor.Sanitize(raw)
	if err := s.store.Set(ctx, conv.sender, domain.KeyDataDump, dataDump); err != nil {
		return newError(ErrorInternal, "store_data_dump_error", err)
	}

	analysis := s.analyzer.Analyze(ctx, dataDump)
	if analysis.Failed() {
		log.Warn("analysis returned error sentinel", "error", analysis.Error.String())
		return conv.step(ctx, "Error during analysis: "+analysis.Error.String(), true)
	}

	stored, err := marshalValue(analysis)
	if err != nil {
		return newError(ErrorInternal, "encode_analysis_error", err)
	}
	if err := s.store.Set(ctx, conv.sender, domain.KeyAnalysis, stored); err != nil {
		return newError(ErrorInternal, "store_analysis_error", err)
	}
	log.Info("analysis stored")

	return conv.step(ctx, "**Step 1 Complete: Initial Analysis**\n\n"+
		"```json\n"+headChars(indentJSON(stored), analysisPreviewChars)+"\n```\n\n"+
		"**Next:** send **'search'** to fetch Twitter, websites and web results, "+
		"or **'curate <address>'** to generate the final report.", true)
}

func (s *CuratorService) search(ctx context.Context, conv conversation, log *slog.Logger) error {
	analysis, err := s.loadAnalysis(ctx, conv.sender)
	if err != nil {
		return err
	}

	log.Info("starting search")
	if err := conv.step(ctx, "**Step 2: Searching for context...**\n\n"+
		"Fetching Twitter, websites, and web results...", false); err != nil {
		return err
	}

	results := s.searcher.Search(ctx, *analysis)
	stored, err := marshalValue(results)
	if err != nil {
		return newError(ErrorInternal, "encode_search_results_error", err)
	}
	if err := s.store.Set(ctx, conv.sender, domain.KeySearchResults, stored); err != nil {
		return newError(ErrorInternal, "store_search_results_error", err)
	}

	if results.TwitterData != nil {
		status := "succeeded"
		if !results.TwitterData.Success {
			status = "failed"
		}
		if err := conv.step(ctx, fmt.Sprintf("**Twitter:** %s\n\n```json\n%s\n```",
			status, headChars(indentValue(results.TwitterData), searchPreviewChars)), false); err != nil {
			return err
		}
	}
	if len(results.WebsiteContent) > 0 {
		if err := conv.step(ctx, fmt.Sprintf("**Websites:** %d fetched\n\n```json\n%s\n```",
			len(results.WebsiteContent), headChars(indentValue(results.WebsiteContent), searchPreviewChars)), false); err != nil {
			return err
		}
	}
	if len(results.GoogleSearches) > 0 {
		if err := conv.step(ctx, fmt.Sprintf("**Web search:** %d queries\n\n```json\n%s\n```",
			len(results.GoogleSearches), headChars(indentValue(results.GoogleSearches), searchPreviewChars)), false); err != nil {
			return err
		}
	}

	log.Info("search stored")
	return conv.step(ctx, "**Step 2 Complete!**\n\n"+
		"Send **'curate <address>'** to generate the final curation.", true)
}

func (s *CuratorService) curate(ctx context.Context, conv conversation, awakenedBy string, log *slog.Logger) error {
	analysis, err := s.loadAnalysis(ctx, conv.sender)
	if err != nil {
		return err
	}
	search := s.loadSearchResults(ctx, conv.sender, log)

	log.Info("starting curation", "awakened_by", awakenedBy, "has_search_results", search != nil)
	if err := conv.step(ctx, "**Step 3: Generating Final Curation...**\n\n"+
		"Creating comprehensive curator analysis...", false); err != nil {
		return err
	}

	outcome, err := s.curator.Curate(ctx, CurationInput{Analysis: analysis, Search: search, AwakenedBy: awakenedBy})
	if err != nil {
		return err
	}

	if err := s.store.Set(ctx, conv.sender, domain.KeyRawCuration, outcome.Raw); err != nil {
		return newError(ErrorCurationUnavailable, "store_raw_curation_error", err)
	}
	if err := conv.step(ctx, fmt.Sprintf("**Debug:**\n- Input tokens: ~%d\n- Response: %d chars\n- Start: %s\n- End: %s",
		outcome.EstimatedTokens, len([]rune(outcome.Raw)),
		headChars(outcome.Raw, debugExcerptChars), tailChars(outcome.Raw, debugExcerptChars)), false); err != nil {
		return err
	}

	if d := outcome.Diagnostic; d != nil {
		return conv.step(ctx, fmt.Sprintf("**Parsing failed!**\n\nError: %v\n\n"+
			"First %d chars:\n```\n%s\n```\n\nLast %d chars:\n```\n%s\n```",
			d.Err, diagnosticExcerptChars, d.Head, diagnosticExcerptChars, d.Tail), true)
	}

	if err := s.store.Set(ctx, conv.sender, domain.KeyCuration, string(outcome.Value)); err != nil {
		return newError(ErrorCurationUnavailable, "store_curation_error", err)
	}
	log.Info("curation stored", "strategy", outcome.Strategy.String())

	preview := indentJSON(string(outcome.Value))
	if len([]rune(preview)) > curationPreviewChars {
		preview = headChars(preview, curationPreviewChars) + "\n... (truncated, full report stored)"
	}
	return conv.step(ctx, "**Step 3 Complete!**\n\n```json\n"+preview+"\n```", true)
}

func (s *CuratorService) loadAnalysis(ctx context.Context, sender string) (*domain.AnalysisResult, error) {
	raw, ok, err := s.store.Get(ctx, sender, domain.KeyAnalysis)
	if err != nil {
		return nil, newError(ErrorInternal, "load_analysis_error", err)
	}
	if !ok {
		return nil, newError(ErrorMissingAnalysis, "analysis_not_found", nil)
	}
	var analysis domain.AnalysisResult
	if err := json.Unmarshal([]byte(raw), &analysis); err != nil {
		return nil, newError(ErrorInternal, "decode_analysis_error", err)
	}
	return &analysis, nil
}

// loadSearchResults treats unreadable search results as absent; curation
// proceeds without them.
func (s *CuratorService) loadSearchResults(ctx context.Context, sender string, log *slog.Logger) *domain.SearchResults {
	raw, ok, err := s.store.Get(ctx, sender, domain.KeySearchResults)
	if err != nil {
		log.Warn("load search results failed", "error", err)
		return nil
	}
	if !ok {
		return nil
	}
	var results domain.SearchResults
	if err := json.Unmarshal([]byte(raw), &results); err != nil {
		log.Warn("stored search results unreadable", "error", err)
		return nil
	}
	return &results
}

func (s *CuratorService) reportFailure(ctx context.Context, conv conversation, kind CommandKind, err error, log *slog.Logger) error {
	var text string
	switch CodeOf(err) {
	case ErrorMissingAnalysis:
		log.Info("precondition failed", "error", err)
		if kind == CommandSearch {
			text = "No analysis found. Please send NFT data first before using 'search'."
		} else {
			text = "No analysis found. Please run Step 1 (send NFT data) first."
		}
	case ErrorCurationUnavailable:
		log.Error("curation failed", "error", err)
		text = "Error: " + reasonOf(err) + s.rawCurationExcerpt(ctx, conv.sender)
	default:
		log.Error("error processing request", "error", err)
		text = "An error occurred while processing the request: " + reasonOf(err)
	}
	return conv.say(ctx, text, true)
}

func (s *CuratorService) rawCurationExcerpt(ctx context.Context, sender string) string {
	raw, ok, err := s.store.Get(ctx, sender, domain.KeyRawCuration)
	if err != nil || !ok || raw == "" {
		return ""
	}
	return fmt.Sprintf("\n\n**Raw (first %d):**\n```\n%s\n```", rawErrorExcerptChars, headChars(raw, rawErrorExcerptChars))
}

// indentJSON pretty-prints JSON text without reordering its keys.
func indentJSON(compact string) string {
	var buf bytes.Buffer
	if err := json.Indent(&buf, []byte(compact), "", "  "); err != nil {
		return compact
	}
	return buf.String()
}

func indentValue(v any) string {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(b)
}

var newUUID = func() string {
	return uuid.NewString()
}
