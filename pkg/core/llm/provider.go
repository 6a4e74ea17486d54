package llm

import (
	"context"
	"encoding/json"
	"sort"
)

// Provider is the interface for all LLM providers.
type Provider interface {
	// Name is the routing key used in models.yaml ("gemini", "openai", ...).
	Name() string
	GenerateResponse(ctx context.Context, prompt string, systemPrompt string, opts Options) (string, error)
	// AdaptInstructions transforms raw instructions into model-specific formats
	AdaptInstructions(rawInstructions string) string
}

// Options tunes a single generation request. Zero values mean provider defaults.
type Options struct {
	Model       string
	Temperature *float32
	MaxTokens   int
	// Schema requests structured JSON output. Providers that cannot enforce a schema
	// fall back to plain JSON mode.
	Schema     *Schema
	SchemaName string
}

// SchemaType enumerates the JSON schema primitive types used for structured output.
type SchemaType string

const (
	TypeObject  SchemaType = "object"
	TypeString  SchemaType = "string"
	TypeArray   SchemaType = "array"
	TypeNumber  SchemaType = "number"
	TypeInteger SchemaType = "integer"
	TypeBoolean SchemaType = "boolean"
)

// Schema is a provider-neutral subset of JSON schema.
type Schema struct {
	Type        SchemaType         `json:"type"`
	Description string             `json:"description,omitempty"`
	Enum        []string           `json:"enum,omitempty"`
	Items       *Schema            `json:"items,omitempty"`
	Properties  map[string]*Schema `json:"properties,omitempty"`
	Required    []string           `json:"required,omitempty"`
}

// JSON renders the schema as a JSON schema document.
func (s *Schema) JSON() (json.RawMessage, error) {
	return json.Marshal(s)
}

// PropertyNames returns the property keys in a stable order.
func (s *Schema) PropertyNames() []string {
	names := make([]string, 0, len(s.Properties))
	for k := range s.Properties {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Float32 is a helper for Options.Temperature.
func Float32(v float32) *float32 {
	return &v
}
