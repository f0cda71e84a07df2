// Package app wires configuration into the curator service and its
// dependencies. Both the Lambda and the bus entry points build through it.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awsssm "github.com/aws/aws-sdk-go-v2/service/ssm"

	"nft-curator/internal/config"
	"nft-curator/internal/integrations/brightdata"
	"nft-curator/internal/integrations/openai"
	"nft-curator/internal/integrations/paramstore"
	"nft-curator/internal/repository"
	"nft-curator/internal/usecase"
)

type App struct {
	Curator *usecase.CuratorService
	Store   repository.SessionStore
}

// SetupLogging installs a JSON slog handler on stdout as the default logger.
func SetupLogging(level slog.Level) *slog.Logger {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return logger
}

// Build constructs the service graph. AWS configuration is only loaded when
// the state backend or a token source needs it.
func Build(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	env := &lazyAWS{ctx: ctx}

	store, err := buildStore(cfg, env)
	if err != nil {
		return nil, err
	}

	llmTokens, err := tokenSource(cfg.LLMToken, cfg.LLMTokenParam(), env)
	if err != nil {
		return nil, fmt.Errorf("llm token: %w", err)
	}
	scraperTokens, err := tokenSource(cfg.ScraperToken, cfg.ScraperTokenParam(), env)
	if err != nil {
		return nil, fmt.Errorf("scraper token: %w", err)
	}

	llm, err := openai.NewClient(llmTokens, openai.WithBaseURL(cfg.LLMBaseURL))
	if err != nil {
		return nil, err
	}
	scraper, err := brightdata.NewClient(scraperTokens,
		brightdata.WithBaseURL(cfg.ScraperBaseURL),
		brightdata.WithZone(cfg.ScraperZone),
		brightdata.WithHTTPClient(&http.Client{Timeout: cfg.ScraperTimeout}),
	)
	if err != nil {
		return nil, err
	}

	analysis, err := usecase.NewAnalysisStep(llm, cfg.IPFSGateway, usecase.GenerationSettings{
		Model:       cfg.LLMModel,
		MaxTokens:   cfg.AnalysisMaxTokens,
		Temperature: cfg.LLMTemperature,
	}, logger)
	if err != nil {
		return nil, err
	}
	search, err := usecase.NewSearchStep(scraper, cfg.WebSearchEnabled, logger)
	if err != nil {
		return nil, err
	}
	curation, err := usecase.NewCurationStep(llm, usecase.GenerationSettings{
		Model:       cfg.LLMModel,
		MaxTokens:   cfg.CurationMaxTokens,
		Temperature: cfg.LLMTemperature,
	}, cfg.AwakeningContract, logger)
	if err != nil {
		return nil, err
	}

	curator, err := usecase.NewCuratorService(store, analysis, search, curation, logger)
	if err != nil {
		return nil, err
	}
	logger.Info("curator service ready",
		"state_backend", cfg.StateBackend,
		"model", cfg.LLMModel,
		"web_search", cfg.WebSearchEnabled,
	)
	return &App{Curator: curator, Store: store}, nil
}

func buildStore(cfg *config.Config, env *lazyAWS) (repository.SessionStore, error) {
	if cfg.StateBackend == config.BackendMemory {
		return repository.NewMemoryStore(), nil
	}
	awsCfg, err := env.config()
	if err != nil {
		return nil, err
	}
	store, err := repository.New(awsdynamodb.NewFromConfig(awsCfg), cfg.StateTable)
	if err != nil {
		return nil, fmt.Errorf("create state client: %w", err)
	}
	return store, nil
}

func tokenSource(static, param string, env *lazyAWS) (*paramstore.TokenSource, error) {
	if static != "" {
		return paramstore.StaticToken(static), nil
	}
	getter, err := env.params()
	if err != nil {
		return nil, err
	}
	return paramstore.NewTokenSource(getter, param)
}

type lazyAWS struct {
	ctx context.Context
	cfg *aws.Config
	ssm *paramstore.Client
}

func (l *lazyAWS) config() (aws.Config, error) {
	if l.cfg != nil {
		return *l.cfg, nil
	}
	cfg, err := awsconfig.LoadDefaultConfig(l.ctx)
	if err != nil {
		return aws.Config{}, fmt.Errorf("load AWS config: %w", err)
	}
	l.cfg = &cfg
	return cfg, nil
}

func (l *lazyAWS) params() (*paramstore.Client, error) {
	if l.ssm != nil {
		return l.ssm, nil
	}
	cfg, err := l.config()
	if err != nil {
		return nil, err
	}
	client, err := paramstore.New(awsssm.NewFromConfig(cfg))
	if err != nil {
		return nil, fmt.Errorf("create SSM client: %w", err)
	}
	l.ssm = client
	return client, nil
}
