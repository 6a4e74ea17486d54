package llm

// QwenBaseURL is DashScope's OpenAI-compatible mode endpoint.
// See: https://help.aliyun.com/zh/model-studio/compatibility-of-openai-with-dashscope
const QwenBaseURL = "https://dashscope.aliyuncs.com/compatible-mode/v1"

// NewQwenProvider creates a provider for Qwen models served by DashScope.
func NewQwenProvider(apiKey, model string) *OpenAICompatibleProvider {
	if model == "" {
		model = "qwen-max"
	}
	return &OpenAICompatibleProvider{
		ProviderName: "qwen",
		APIKey:       apiKey,
		BaseURL:      QwenBaseURL,
		Model:        model,
		JSONMode:     JSONModeObject,
	}
}
