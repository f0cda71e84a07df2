package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"nft-curator/internal/domain"
	"nft-curator/internal/extractor"
	"nft-curator/internal/integrations/openai"
	"nft-curator/internal/jsonrecover"
)

type LLMClient interface {
	Chat(ctx context.Context, req openai.ChatRequest) (string, error)
}

// GenerationSettings bounds one model call.
type GenerationSettings struct {
	Model       string
	MaxTokens   int
	Temperature float64
}

func (g GenerationSettings) request(messages []domain.ChatMessage) openai.ChatRequest {
	temp := g.Temperature
	return openai.ChatRequest{
		Model:       g.Model,
		Messages:    messages,
		MaxTokens:   g.MaxTokens,
		Temperature: &temp,
	}
}

// AnalysisStep turns a raw data dump into a structured AnalysisResult.
type AnalysisStep struct {
	llm       LLMClient
	extractor *extractor.Extractor
	gateway   string
	gen       GenerationSettings
	logger    *slog.Logger
}

func NewAnalysisStep(llm LLMClient, gateway string, gen GenerationSettings, logger *slog.Logger) (*AnalysisStep, error) {
	if llm == nil {
		return nil, errors.New("usecase: llm client must not be nil")
	}
	if gen.Model == "" {
		return nil, errors.New("usecase: model must not be empty")
	}
	if gateway == "" {
		gateway = extractor.DefaultIPFSGateway
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &AnalysisStep{
		llm:       llm,
		extractor: extractor.New(gateway),
		gateway:   gateway,
		gen:       gen,
		logger:    logger,
	}, nil
}

// Analyze never fails: any error is reported through the sentinel returned
// by domain.FailedAnalysis.
func (a *AnalysisStep) Analyze(ctx context.Context, dataDump string) domain.AnalysisResult {
	result, err := a.analyze(ctx, dataDump)
	if err != nil {
		a.logger.Warn("analysis failed", "code", CodeOf(err), "error", err)
		return domain.FailedAnalysis(reasonOf(err))
	}
	return result
}

func (a *AnalysisStep) analyze(ctx context.Context, dataDump string) (domain.AnalysisResult, error) {
	ex := a.extractor.Extract(dataDump)
	if ex.HasImage() {
		a.logger.Info("including image for visual analysis", "image_url", ex.ImageURL)
	} else {
		a.logger.Warn("no image url found, text-only analysis")
	}

	messages, err := buildAnalysisMessages(dataDump, ex.ImageURL, a.gateway, ex.Links)
	if err != nil {
		return domain.AnalysisResult{}, newError(ErrorInternal, "prompt_render_error", err)
	}

	raw, err := a.llm.Chat(ctx, a.gen.request(messages))
	if err != nil {
		return domain.AnalysisResult{}, newError(ErrorUpstream, "llm_error", err)
	}

	var result domain.AnalysisResult
	strategy, err := jsonrecover.Into(raw, &result)
	if err != nil {
		return domain.AnalysisResult{}, newError(ErrorUnrecoverableFormat, "analysis_not_json", err)
	}
	a.logger.Debug("analysis parsed", "strategy", strategy.String(), "response_chars", len(raw))
	if result.Failed() {
		return domain.AnalysisResult{}, newError(ErrorUpstream, "model_reported_error", errors.New(result.Error.String()))
	}

	if !result.ImageAnalysis.ImageURL.Known() && ex.HasImage() {
		result.ImageAnalysis.ImageURL = domain.NewText(ex.ImageURL)
	}
	return result, nil
}

// reasonOf is the user-facing text of a step error.
func reasonOf(err error) string {
	var ue *Error
	if errors.As(err, &ue) && ue.Err != nil {
		return ue.Err.Error()
	}
	if ue != nil {
		return ue.Reason
	}
	return err.Error()
}

func marshalValue(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("usecase: marshal: %w", err)
	}
	return string(b), nil
}
