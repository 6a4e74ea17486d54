package agent

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	apperrors "financial_auditor/pkg/core/errors"
	"financial_auditor/pkg/core/llm"

	"github.com/rs/zerolog"
)

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "models.yaml")
	body := `
active_provider: deepseek
providers:
  gemini:
    model: gemini-2.5-pro
agents:
  auditor:
    provider: gemini
    description: Anomaly report
`
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.ActiveProvider != "deepseek" {
		t.Errorf("expected deepseek, got %s", cfg.ActiveProvider)
	}
	if cfg.Providers["gemini"].Model != "gemini-2.5-pro" {
		t.Errorf("expected model override, got %+v", cfg.Providers)
	}
	if cfg.Agents["auditor"].Provider != "gemini" {
		t.Errorf("expected auditor routed to gemini, got %+v", cfg.Agents)
	}

	missing, err := LoadConfig(filepath.Join(t.TempDir(), "none.yaml"))
	if err != nil || missing.ActiveProvider != "gemini" {
		t.Errorf("expected gemini default for missing file, got %+v %v", missing, err)
	}
}

func TestGetProviderRouting(t *testing.T) {
	gemini := &llm.MockProvider{ProviderName: "gemini"}
	deepseek := &llm.MockProvider{ProviderName: "deepseek"}
	cfg := Config{
		ActiveProvider: "deepseek",
		Agents:         map[string]AgentConfig{"auditor": {Provider: "gemini"}},
	}
	m := NewManagerWithProviders(cfg, zerolog.Nop(), gemini, deepseek)

	if p, _ := m.GetProvider("auditor"); p.Name() != "gemini" {
		t.Errorf("expected agent override gemini, got %s", p.Name())
	}
	if p, _ := m.GetProvider("other"); p.Name() != "deepseek" {
		t.Errorf("expected global deepseek, got %s", p.Name())
	}
}

func TestSetGlobalProvider(t *testing.T) {
	m := NewManagerWithProviders(Config{ActiveProvider: "a"}, zerolog.Nop(),
		&llm.MockProvider{ProviderName: "a"}, &llm.MockProvider{ProviderName: "b"})

	if err := m.SetGlobalProvider("b"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.GetActiveProvider() != "b" {
		t.Errorf("expected b, got %s", m.GetActiveProvider())
	}
	if err := m.SetGlobalProvider("zzz"); !apperrors.Is(err, apperrors.ErrProviderNotFound) {
		t.Errorf("expected ErrProviderNotFound, got %v", err)
	}
	if strings.Join(m.ProviderNames(), ",") != "a,b" {
		t.Errorf("unexpected names %v", m.ProviderNames())
	}
}

func TestExecutePrompt(t *testing.T) {
	mock := &llm.MockProvider{ProviderName: "gemini", Response: "done"}
	m := NewManagerWithProviders(Config{ActiveProvider: "gemini"}, zerolog.Nop(), mock)

	name, out, err := m.ExecutePrompt(context.Background(), "auditor", "prompt", "system", llm.Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if name != "gemini" || out != "done" {
		t.Errorf("unexpected result %s %s", name, out)
	}

	empty := NewManagerWithProviders(Config{ActiveProvider: "gemini"}, zerolog.Nop())
	if _, _, err := empty.ExecutePrompt(context.Background(), "auditor", "p", "s", llm.Options{}); !apperrors.Is(err, apperrors.ErrProviderNotFound) {
		t.Errorf("expected ErrProviderNotFound, got %v", err)
	}
}

func TestNewManagerRegistersAllProviders(t *testing.T) {
	m := NewManager(Config{ActiveProvider: "gemini"}, Credentials{}, zerolog.Nop())
	if strings.Join(m.ProviderNames(), ",") != "deepseek,gemini,openai,qwen" {
		t.Errorf("unexpected providers %v", m.ProviderNames())
	}
}
