package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"
	"unicode/utf8"

	"nft-curator/internal/domain"
	"nft-curator/internal/jsonrecover"
)

const diagnosticExcerptChars = 800

// CurationInput is what the curation step synthesises from.
type CurationInput struct {
	Analysis   *domain.AnalysisResult
	Search     *domain.SearchResults
	AwakenedBy string
}

// Diagnostic replaces the report when the model output holds no JSON.
type Diagnostic struct {
	Err  error
	Head string
	Tail string
}

// CurationOutcome is the observable result of the curation step. Exactly one
// of Report or Diagnostic is set.
type CurationOutcome struct {
	Raw             string
	PromptChars     int
	EstimatedTokens int

	// Value is the recovered report JSON in compact form.
	Value    json.RawMessage
	Report   *domain.CurationReport
	Strategy jsonrecover.Strategy

	Diagnostic *Diagnostic
}

// CurationStep synthesises the final report.
type CurationStep struct {
	llm               LLMClient
	gen               GenerationSettings
	awakeningContract string
	now               func() time.Time
	logger            *slog.Logger
}

func NewCurationStep(llm LLMClient, gen GenerationSettings, awakeningContract string, logger *slog.Logger) (*CurationStep, error) {
	if llm == nil {
		return nil, errors.New("usecase: llm client must not be nil")
	}
	if gen.Model == "" {
		return nil, errors.New("usecase: model must not be empty")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CurationStep{
		llm:               llm,
		gen:               gen,
		awakeningContract: awakeningContract,
		now:               time.Now,
		logger:            logger,
	}, nil
}

// Curate fails with ErrorCurationUnavailable when the analysis is missing or
// the model call errors. Unparseable output is not an error: it yields an
// outcome carrying a Diagnostic.
func (c *CurationStep) Curate(ctx context.Context, in CurationInput) (CurationOutcome, error) {
	if in.Analysis == nil {
		return CurationOutcome{}, newError(ErrorCurationUnavailable, "missing_analysis", errors.New("no analysis available"))
	}
	awakenedBy := in.AwakenedBy
	if awakenedBy == "" {
		awakenedBy = DefaultAwakenedBy
	}

	prompt, err := buildCurationPrompt(*in.Analysis, in.Search, awakenedBy, c.awakeningContract, c.now())
	if err != nil {
		return CurationOutcome{}, newError(ErrorInternal, "prompt_render_error", err)
	}
	out := CurationOutcome{
		PromptChars:     utf8.RuneCountInString(prompt),
		EstimatedTokens: utf8.RuneCountInString(prompt) / 4,
	}
	c.logger.Info("sending curation request", "estimated_input_tokens", out.EstimatedTokens)

	raw, err := c.llm.Chat(ctx, c.gen.request([]domain.ChatMessage{
		{Role: "system", Content: curatorSystemPrompt},
		{Role: "user", Content: prompt},
	}))
	if err != nil {
		if status, ok := upstreamStatusCode(err); ok {
			c.logger.Warn("curation model call failed", "status", status, "error", err)
		}
		return CurationOutcome{}, newError(ErrorCurationUnavailable, "llm_error", err)
	}
	out.Raw = raw
	c.logger.Info("curation response received", "response_chars", utf8.RuneCountInString(raw))

	res, err := jsonrecover.Recover(raw)
	if err != nil {
		c.logger.Error("curation output unrecoverable", "error", err)
		out.Diagnostic = &Diagnostic{
			Err:  err,
			Head: headChars(raw, diagnosticExcerptChars),
			Tail: tailChars(raw, diagnosticExcerptChars),
		}
		return out, nil
	}
	report := domain.DecodeReport(res.Value)
	out.Value = res.Value
	out.Report = &report
	out.Strategy = res.Strategy
	c.logger.Info("curation parsed", "strategy", res.Strategy.String())
	c.checkReport(report, awakenedBy)
	return out, nil
}

// checkReport logs where the decoded report departs from the template. The
// model's JSON is stored regardless.
func (c *CurationStep) checkReport(report domain.CurationReport, awakenedBy string) {
	if !report.Complete() {
		c.logger.Warn("curation report incomplete", "missing", report.Missing)
	}
	if echoed := report.OnChain.Preview.AwakenedBy.String(); echoed != awakenedBy {
		c.logger.Warn("curation report awakened_by mismatch", "want", awakenedBy, "got", echoed)
	}
}

func headChars(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n])
}

func tailChars(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[len(r)-n:])
}
