package config

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var allKeys = []string{
	"STATE_BACKEND", "STATE_TABLE", "PARAM_PREFIX", "LLM_API_TOKEN", "SCRAPER_API_TOKEN",
	"LLM_BASE_URL", "LLM_MODEL", "ANALYSIS_MAX_TOKENS", "CURATION_MAX_TOKENS", "LLM_TEMPERATURE",
	"SCRAPER_BASE_URL", "SCRAPER_TIMEOUT_SECONDS", "SCRAPER_ZONE", "WEB_SEARCH_ENABLED",
	"IPFS_GATEWAY", "AWAKENING_CONTRACT", "NATS_URL", "NATS_TOKEN",
	"BUS_INBOX_SUBJECT", "BUS_OUTBOX_SUBJECT", "API_PORT", "LOG_LEVEL",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range allKeys {
		t.Setenv(key, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("STATE_TABLE", "curator-state")
	t.Setenv("PARAM_PREFIX", "/curator/prod/")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, BackendDynamoDB, cfg.StateBackend)
	require.Equal(t, "/curator/prod", cfg.ParamPrefix)
	require.Equal(t, "/curator/prod/llm-token", cfg.LLMTokenParam())
	require.Equal(t, "/curator/prod/scraper-token", cfg.ScraperTokenParam())
	require.Equal(t, "https://api.asi1.ai/v1", cfg.LLMBaseURL)
	require.Equal(t, "asi1-extended", cfg.LLMModel)
	require.Equal(t, 20000, cfg.AnalysisMaxTokens)
	require.Equal(t, 64000, cfg.CurationMaxTokens)
	require.InDelta(t, 0.8, cfg.LLMTemperature, 1e-9)
	require.Equal(t, 60*time.Second, cfg.ScraperTimeout)
	require.Equal(t, "web_unlocker1", cfg.ScraperZone)
	require.False(t, cfg.WebSearchEnabled)
	require.Equal(t, "https://ipfs.io/ipfs/", cfg.IPFSGateway)
	require.Equal(t, "curator.inbox", cfg.BusInboxSubject)
	require.Equal(t, "curator.outbox", cfg.BusOutboxSubject)
	require.Equal(t, 8760, cfg.APIPort)
	require.Equal(t, slog.LevelInfo, cfg.SlogLevel())
}

func TestLoad_CustomValues(t *testing.T) {
	clearEnv(t)
	t.Setenv("STATE_BACKEND", "Memory")
	t.Setenv("LLM_API_TOKEN", "sk-local")
	t.Setenv("SCRAPER_API_TOKEN", "bd-local")
	t.Setenv("CURATION_MAX_TOKENS", "32000")
	t.Setenv("LLM_TEMPERATURE", "0.2")
	t.Setenv("WEB_SEARCH_ENABLED", "yes")
	t.Setenv("SCRAPER_TIMEOUT_SECONDS", "15")
	t.Setenv("API_PORT", "9999")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, BackendMemory, cfg.StateBackend)
	require.Equal(t, "sk-local", cfg.LLMToken)
	require.Equal(t, 32000, cfg.CurationMaxTokens)
	require.InDelta(t, 0.2, cfg.LLMTemperature, 1e-9)
	require.True(t, cfg.WebSearchEnabled)
	require.Equal(t, 15*time.Second, cfg.ScraperTimeout)
	require.Equal(t, 9999, cfg.APIPort)
	require.Equal(t, slog.LevelDebug, cfg.SlogLevel())
}

func TestLoad_InvalidNumbersFallBack(t *testing.T) {
	clearEnv(t)
	t.Setenv("STATE_TABLE", "t")
	t.Setenv("PARAM_PREFIX", "/p")
	t.Setenv("API_PORT", "notanumber")
	t.Setenv("LLM_TEMPERATURE", "warm")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, 8760, cfg.APIPort)
	require.InDelta(t, 0.8, cfg.LLMTemperature, 1e-9)
}

func TestLoad_MissingTable(t *testing.T) {
	clearEnv(t)
	t.Setenv("PARAM_PREFIX", "/p")
	_, err := Load()
	require.ErrorContains(t, err, "STATE_TABLE")
}

func TestLoad_MissingSecrets(t *testing.T) {
	clearEnv(t)
	t.Setenv("STATE_BACKEND", "memory")
	t.Setenv("LLM_API_TOKEN", "sk-local")
	_, err := Load()
	require.ErrorContains(t, err, "PARAM_PREFIX")
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		return &Config{
			StateBackend: BackendMemory, ParamPrefix: "/p", LLMModel: "m",
			AnalysisMaxTokens: 1, CurationMaxTokens: 1, LLMTemperature: 0.8,
			ScraperTimeout: time.Second, BusInboxSubject: "in", BusOutboxSubject: "out", APIPort: 80,
		}
	}
	require.NoError(t, base().Validate())

	cases := map[string]func(c *Config){
		"backend":     func(c *Config) { c.StateBackend = "redis" },
		"model":       func(c *Config) { c.LLMModel = "" },
		"tokens":      func(c *Config) { c.CurationMaxTokens = 0 },
		"temperature": func(c *Config) { c.LLMTemperature = 3 },
		"timeout":     func(c *Config) { c.ScraperTimeout = 0 },
		"subjects":    func(c *Config) { c.BusOutboxSubject = "in" },
		"port":        func(c *Config) { c.APIPort = 70000 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			c := base()
			mutate(c)
			require.Error(t, c.Validate())
		})
	}
}
