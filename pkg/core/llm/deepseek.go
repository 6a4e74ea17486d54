package llm

// DeepSeekBaseURL is DeepSeek's OpenAI-compatible endpoint.
const DeepSeekBaseURL = "https://api.deepseek.com/v1"

// NewDeepSeekProvider creates a provider for DeepSeek chat models.
// DeepSeek accepts json_object but not json_schema response formats.
func NewDeepSeekProvider(apiKey, model string) *OpenAICompatibleProvider {
	if model == "" {
		model = "deepseek-chat"
	}
	return &OpenAICompatibleProvider{
		ProviderName: "deepseek",
		APIKey:       apiKey,
		BaseURL:      DeepSeekBaseURL,
		Model:        model,
		JSONMode:     JSONModeObject,
	}
}
