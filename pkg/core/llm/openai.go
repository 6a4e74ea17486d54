package llm

import (
	"context"
	"fmt"

	apperrors "financial_auditor/pkg/core/errors"

	"github.com/sashabaranov/go-openai"
)

// JSONMode selects how structured output is requested from an OpenAI-compatible API.
type JSONMode int

const (
	// JSONModeSchema sends the full schema as response_format json_schema.
	JSONModeSchema JSONMode = iota
	// JSONModeObject only asks for a JSON object; the schema is described in the prompt.
	JSONModeObject
)

// OpenAICompatibleProvider talks to any chat-completions API that follows the OpenAI wire format.
type OpenAICompatibleProvider struct {
	ProviderName string
	APIKey       string
	BaseURL      string
	Model        string
	JSONMode     JSONMode
}

var _ Provider = (*OpenAICompatibleProvider)(nil)

// NewOpenAIProvider creates a provider for the OpenAI API.
func NewOpenAIProvider(apiKey, model string) *OpenAICompatibleProvider {
	if model == "" {
		model = openai.GPT4oMini
	}
	return &OpenAICompatibleProvider{
		ProviderName: "openai",
		APIKey:       apiKey,
		Model:        model,
		JSONMode:     JSONModeSchema,
	}
}

// Name implements Provider.
func (p *OpenAICompatibleProvider) Name() string { return p.ProviderName }

// GenerateResponse sends a single system+user chat completion.
func (p *OpenAICompatibleProvider) GenerateResponse(ctx context.Context, prompt string, systemPrompt string, opts Options) (string, error) {
	if p.APIKey == "" {
		return "", fmt.Errorf("%s: %w", p.ProviderName, apperrors.ErrMissingCredential)
	}

	cfg := openai.DefaultConfig(p.APIKey)
	if p.BaseURL != "" {
		cfg.BaseURL = p.BaseURL
	}
	client := openai.NewClientWithConfig(cfg)

	model := p.Model
	if opts.Model != "" {
		model = opts.Model
	}

	messages := make([]openai.ChatCompletionMessage, 0, 2)
	if systemPrompt != "" {
		messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: systemPrompt})
	}
	messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: prompt})

	req := openai.ChatCompletionRequest{
		Model:    model,
		Messages: messages,
	}
	if opts.Temperature != nil {
		req.Temperature = *opts.Temperature
	}
	if opts.MaxTokens > 0 {
		req.MaxTokens = opts.MaxTokens
	}
	if opts.Schema != nil {
		format, err := p.responseFormat(opts)
		if err != nil {
			return "", err
		}
		req.ResponseFormat = format
	}

	resp, err := client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("%s completion failed: %w", p.ProviderName, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no response from %s", p.ProviderName)
	}
	return resp.Choices[0].Message.Content, nil
}

func (p *OpenAICompatibleProvider) responseFormat(opts Options) (*openai.ChatCompletionResponseFormat, error) {
	if p.JSONMode == JSONModeObject {
		return &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject}, nil
	}
	raw, err := opts.Schema.JSON()
	if err != nil {
		return nil, fmt.Errorf("failed to encode response schema: %w", err)
	}
	name := opts.SchemaName
	if name == "" {
		name = "response"
	}
	return &openai.ChatCompletionResponseFormat{
		Type: openai.ChatCompletionResponseFormatTypeJSONSchema,
		JSONSchema: &openai.ChatCompletionResponseFormatJSONSchema{
			Name:   name,
			Schema: raw,
			Strict: false,
		},
	}, nil
}

func (p *OpenAICompatibleProvider) AdaptInstructions(raw string) string {
	if p.JSONMode == JSONModeObject {
		// json_object mode requires the word "JSON" to appear in the messages.
		return raw + "\nRespond with a single JSON object."
	}
	return raw
}
