// Package config loads runtime configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	BackendDynamoDB = "dynamodb"
	BackendMemory   = "memory"
)

type Config struct {
	StateBackend string
	StateTable   string
	ParamPrefix  string

	// Static tokens bypass the parameter store; meant for local runs.
	LLMToken     string
	ScraperToken string

	LLMBaseURL        string
	LLMModel          string
	AnalysisMaxTokens int
	CurationMaxTokens int
	LLMTemperature    float64

	ScraperBaseURL   string
	ScraperTimeout   time.Duration
	ScraperZone      string
	WebSearchEnabled bool

	IPFSGateway       string
	AwakeningContract string

	NatsURL          string
	NatsToken        string
	BusInboxSubject  string
	BusOutboxSubject string
	APIPort          int

	LogLevel string
}

// Load reads configuration from environment variables and validates it.
func Load() (*Config, error) {
	cfg := &Config{
		StateBackend: strings.ToLower(envStr("STATE_BACKEND", BackendDynamoDB)),
		StateTable:   envStr("STATE_TABLE", ""),
		ParamPrefix:  strings.TrimRight(envStr("PARAM_PREFIX", ""), "/"),

		LLMToken:     envStr("LLM_API_TOKEN", ""),
		ScraperToken: envStr("SCRAPER_API_TOKEN", ""),

		LLMBaseURL:        envStr("LLM_BASE_URL", "https://api.asi1.ai/v1"),
		LLMModel:          envStr("LLM_MODEL", "asi1-extended"),
		AnalysisMaxTokens: envInt("ANALYSIS_MAX_TOKENS", 20000),
		CurationMaxTokens: envInt("CURATION_MAX_TOKENS", 64000),
		LLMTemperature:    envFloat("LLM_TEMPERATURE", 0.8),

		ScraperBaseURL:   envStr("SCRAPER_BASE_URL", "https://api.brightdata.com"),
		ScraperTimeout:   time.Duration(envInt("SCRAPER_TIMEOUT_SECONDS", 60)) * time.Second,
		ScraperZone:      envStr("SCRAPER_ZONE", "web_unlocker1"),
		WebSearchEnabled: envBool("WEB_SEARCH_ENABLED", false),

		IPFSGateway:       envStr("IPFS_GATEWAY", "https://ipfs.io/ipfs/"),
		AwakeningContract: envStr("AWAKENING_CONTRACT", "0xFAA5869c1d027E48a2618440a06E90656F16Bb3F"),

		NatsURL:          envStr("NATS_URL", "nats://localhost:4222"),
		NatsToken:        envStr("NATS_TOKEN", ""),
		BusInboxSubject:  envStr("BUS_INBOX_SUBJECT", "curator.inbox"),
		BusOutboxSubject: envStr("BUS_OUTBOX_SUBJECT", "curator.outbox"),
		APIPort:          envInt("API_PORT", 8760),

		LogLevel: envStr("LOG_LEVEL", "info"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks that all required configuration fields are set.
func (c *Config) Validate() error {
	switch c.StateBackend {
	case BackendDynamoDB:
		if c.StateTable == "" {
			return errors.New("STATE_TABLE is required for the dynamodb backend")
		}
	case BackendMemory:
	default:
		return fmt.Errorf("STATE_BACKEND %q is not one of dynamodb, memory", c.StateBackend)
	}
	if c.ParamPrefix == "" && (c.LLMToken == "" || c.ScraperToken == "") {
		return errors.New("PARAM_PREFIX is required unless both API tokens are set")
	}
	if c.LLMModel == "" {
		return errors.New("LLM_MODEL cannot be empty")
	}
	if c.AnalysisMaxTokens <= 0 || c.CurationMaxTokens <= 0 {
		return errors.New("max token limits must be > 0")
	}
	if c.LLMTemperature < 0 || c.LLMTemperature > 2 {
		return fmt.Errorf("LLM_TEMPERATURE %v out of range [0, 2]", c.LLMTemperature)
	}
	if c.ScraperTimeout <= 0 {
		return errors.New("SCRAPER_TIMEOUT_SECONDS must be > 0")
	}
	if c.BusInboxSubject == c.BusOutboxSubject {
		return errors.New("BUS_INBOX_SUBJECT and BUS_OUTBOX_SUBJECT must differ")
	}
	if c.APIPort <= 0 || c.APIPort > 65535 {
		return fmt.Errorf("API_PORT %d is not a valid port", c.APIPort)
	}
	return nil
}

// LLMTokenParam is the SSM parameter holding the language-model API token.
func (c *Config) LLMTokenParam() string {
	return c.ParamPrefix + "/llm-token"
}

// ScraperTokenParam is the SSM parameter holding the scraping API token.
func (c *Config) ScraperTokenParam() string {
	return c.ParamPrefix + "/scraper-token"
}

// SlogLevel maps LogLevel onto a slog level, defaulting to info.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func envStr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
			return f
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(key))) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}
