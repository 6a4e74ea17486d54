package agent

import (
	"context"
	"fmt"
	"os"
	"sort"
	"sync"

	apperrors "financial_auditor/pkg/core/errors"
	"financial_auditor/pkg/core/llm"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v2"
)

type Config struct {
	ActiveProvider string                    `yaml:"active_provider"`
	Providers      map[string]ProviderConfig `yaml:"providers"`
	Agents         map[string]AgentConfig    `yaml:"agents"`
}

// ProviderConfig holds per-provider model selection.
type ProviderConfig struct {
	Model   string `yaml:"model"`
	BaseURL string `yaml:"base_url"`
}

type AgentConfig struct {
	Provider    string `yaml:"provider"` // Optional override
	Description string `yaml:"description"`
}

// Credentials carries the API keys providers are built with.
type Credentials struct {
	Gemini    string
	OpenAI    string
	DeepSeek  string
	DashScope string
}

// LoadConfig reads models.yaml. A missing file yields a gemini-only default.
func LoadConfig(path string) (Config, error) {
	cfg := Config{ActiveProvider: "gemini"}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("reading %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing %s: %w", path, err)
	}
	if cfg.ActiveProvider == "" {
		cfg.ActiveProvider = "gemini"
	}
	return cfg, nil
}

type Manager struct {
	mu        sync.RWMutex
	config    Config
	providers map[string]llm.Provider
	logger    zerolog.Logger
}

// NewManager builds the provider registry from config and credentials.
func NewManager(config Config, creds Credentials, logger zerolog.Logger) *Manager {
	model := func(name string) string { return config.Providers[name].Model }
	baseURL := func(name string) string { return config.Providers[name].BaseURL }

	openaiP := llm.NewOpenAIProvider(creds.OpenAI, model("openai"))
	deepseekP := llm.NewDeepSeekProvider(creds.DeepSeek, model("deepseek"))
	qwenP := llm.NewQwenProvider(creds.DashScope, model("qwen"))
	for _, p := range []*llm.OpenAICompatibleProvider{openaiP, deepseekP, qwenP} {
		if u := baseURL(p.Name()); u != "" {
			p.BaseURL = u
		}
	}

	return NewManagerWithProviders(config, logger,
		&llm.GeminiProvider{APIKey: creds.Gemini, Model: model("gemini"), BaseURL: baseURL("gemini")},
		openaiP,
		deepseekP,
		qwenP,
	)
}

// NewManagerWithProviders creates a Manager over an explicit provider set.
func NewManagerWithProviders(config Config, logger zerolog.Logger, providers ...llm.Provider) *Manager {
	m := &Manager{
		config:    config,
		providers: make(map[string]llm.Provider, len(providers)),
		logger:    logger,
	}
	for _, p := range providers {
		m.providers[p.Name()] = p
	}
	return m
}

// GetProvider resolves the provider for an agent type.
func (m *Manager) GetProvider(agentType string) (llm.Provider, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	// 1. Check for agent-specific override
	if agentConfig, ok := m.config.Agents[agentType]; ok && agentConfig.Provider != "" {
		if p, ok := m.providers[agentConfig.Provider]; ok {
			return p, nil
		}
		m.logger.Warn().Str("agent", agentType).Str("provider", agentConfig.Provider).Msg("Agent override names unknown provider")
	}

	// 2. Use global active provider
	if p, ok := m.providers[m.config.ActiveProvider]; ok {
		return p, nil
	}
	return nil, fmt.Errorf("%w: %s", apperrors.ErrProviderNotFound, m.config.ActiveProvider)
}

// ExecutePrompt handles instruction adaptation before sending to the model.
// It returns the provider name alongside the raw response text.
func (m *Manager) ExecutePrompt(ctx context.Context, agentType, rawPrompt, rawSystemPrompt string, opts llm.Options) (string, string, error) {
	provider, err := m.GetProvider(agentType)
	if err != nil {
		return "", "", err
	}

	m.logger.Debug().
		Str("agent", agentType).
		Str("provider", provider.Name()).
		Msg("Executing prompt")

	// Adapt instructions based on the model's specialized "teaching" style
	adaptedSystemPrompt := provider.AdaptInstructions(rawSystemPrompt)

	out, err := provider.GenerateResponse(ctx, rawPrompt, adaptedSystemPrompt, opts)
	return provider.Name(), out, err
}

func (m *Manager) SetGlobalProvider(newProvider string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.providers[newProvider]; !ok {
		return fmt.Errorf("%w: %s", apperrors.ErrProviderNotFound, newProvider)
	}
	m.config.ActiveProvider = newProvider
	m.logger.Info().Str("provider", newProvider).Msg("Global provider switched")
	return nil
}

func (m *Manager) GetActiveProvider() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.config.ActiveProvider
}

// ProviderNames lists registered providers in sorted order.
func (m *Manager) ProviderNames() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, 0, len(m.providers))
	for name := range m.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Agents returns a copy of the agent routing table.
func (m *Manager) Agents() map[string]AgentConfig {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]AgentConfig, len(m.config.Agents))
	for k, v := range m.config.Agents {
		out[k] = v
	}
	return out
}
