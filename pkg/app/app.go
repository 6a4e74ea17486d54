// Package app wires configuration into the services shared by the HTTP server and the CLI.
package app

import (
	"context"
	"os"
	"path/filepath"

	"financial_auditor/pkg/core/agent"
	"financial_auditor/pkg/core/analysis"
	"financial_auditor/pkg/core/config"
	"financial_auditor/pkg/core/ingest"
	"financial_auditor/pkg/core/logging"
	"financial_auditor/pkg/core/prompt"
	"financial_auditor/pkg/core/store"

	"github.com/rs/zerolog"
)

// Services holds the wired components.
type Services struct {
	Config   *config.Config
	Logger   zerolog.Logger
	Client   *ingest.Client
	Ingestor *ingest.Ingestor
	Cache    *store.ReportCache // nil when caching is off
	Agents   *agent.Manager
	Prompts  *prompt.Registry
	Analyzer *analysis.Analyzer
}

// New builds the services from cfg. Optional backends (database, prompt files) that
// fail to load are logged and skipped.
func New(ctx context.Context, cfg *config.Config) (*Services, error) {
	logger := logging.NewLogger(cfg.Logging)
	s := &Services{Config: cfg, Logger: logger}

	opts := []ingest.Option{
		ingest.WithBaseURL(cfg.DataProvider.BaseURL),
		ingest.WithTimeout(cfg.DataProvider.Timeout),
		ingest.WithLogger(logger),
	}
	if cfg.CacheEnabled() {
		s.Cache = newCache(ctx, cfg, logger)
		opts = append(opts, ingest.WithCache(s.Cache))
	}
	if cfg.DataProvider.APIKey == "" {
		logger.Warn().Msg("ALPHAVANTAGE_API_KEY not set; ticker fetch will fail until it is configured")
	}
	s.Client = ingest.NewClient(cfg.DataProvider.APIKey, opts...)
	s.Ingestor = ingest.NewIngestor(s.Client)

	s.Prompts = prompt.NewRegistry()
	if dir := resolveResources(cfg.Analysis.PromptDir); dir != "" {
		if n, err := s.Prompts.LoadFromDirectory(dir); err != nil {
			logger.Warn().Err(err).Str("dir", dir).Msg("Failed to load prompt library, using built-in prompts")
		} else {
			logger.Info().Int("loaded", n).Int("total", s.Prompts.Count()).Str("dir", dir).Msg("Prompt library loaded")
		}
	}

	agentCfg, err := agent.LoadConfig(cfg.Analysis.ModelsFile)
	if err != nil {
		return nil, err
	}
	s.Agents = agent.NewManager(agentCfg, agent.Credentials{
		Gemini:    cfg.Credentials.Gemini,
		OpenAI:    cfg.Credentials.OpenAI,
		DeepSeek:  cfg.Credentials.DeepSeek,
		DashScope: cfg.Credentials.DashScope,
	}, logger)

	analyzerOpts := []analysis.Option{
		analysis.WithAgentType(cfg.Analysis.AgentType),
		analysis.WithLogger(logger),
		analysis.WithTemperature(float32(cfg.Analysis.Temperature)),
	}
	if cfg.Analysis.MaxTokens > 0 {
		analyzerOpts = append(analyzerOpts, analysis.WithMaxTokens(cfg.Analysis.MaxTokens))
	}
	s.Analyzer = analysis.NewAnalyzer(s.Agents, s.Prompts, analyzerOpts...)

	return s, nil
}

// Close releases the database pool if one was opened.
func (s *Services) Close() {
	store.Close()
}

func newCache(ctx context.Context, cfg *config.Config, logger zerolog.Logger) *store.ReportCache {
	if cfg.Cache.DatabaseURL != "" {
		if err := store.InitDB(ctx, cfg.Cache.DatabaseURL); err != nil {
			logger.Warn().Err(err).Msg("Report cache database unavailable, using file cache")
		}
	}

	cache := store.NewReportCache(store.GetPool(), cfg.Cache.Dir, cfg.Cache.TTL, logger)
	if err := cache.EnsureSchema(ctx); err != nil {
		logger.Warn().Err(err).Msg("Failed to create report cache table")
	}
	return cache
}

// resolveResources finds dir relative to the working directory or the executable.
func resolveResources(dir string) string {
	if dir == "" {
		return ""
	}
	if _, err := os.Stat(dir); err == nil || filepath.IsAbs(dir) {
		return dir
	}
	exePath, err := os.Executable()
	if err != nil {
		return dir
	}
	return filepath.Join(filepath.Dir(exePath), dir)
}
