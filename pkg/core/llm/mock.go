package llm

import (
	"context"
	"sync"
)

// MockProvider returns a canned response. It records the last request for inspection.
type MockProvider struct {
	ProviderName string
	Response     string
	Err          error

	mu         sync.Mutex
	calls      int
	lastPrompt string
	lastSystem string
	lastOpts   Options
}

var _ Provider = (*MockProvider)(nil)

// Name implements Provider.
func (m *MockProvider) Name() string {
	if m.ProviderName == "" {
		return "mock"
	}
	return m.ProviderName
}

// GenerateResponse implements Provider.
func (m *MockProvider) GenerateResponse(_ context.Context, prompt string, systemPrompt string, opts Options) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	m.lastPrompt = prompt
	m.lastSystem = systemPrompt
	m.lastOpts = opts
	return m.Response, m.Err
}

func (m *MockProvider) AdaptInstructions(raw string) string {
	return raw
}

// Calls returns how many requests were made.
func (m *MockProvider) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// LastRequest returns the most recent prompt, system prompt and options.
func (m *MockProvider) LastRequest() (string, string, Options) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastPrompt, m.lastSystem, m.lastOpts
}
