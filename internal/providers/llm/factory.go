package llm

import (
	"os"
	"strings"
)

// NewFromEnv returns a Client based on environment variables.
// Supported providers:
// - LLM_PROVIDER=openai|anthropic|gemini|ollama
// - For OpenAI:    OPENAI_API_KEY, optional LLM_MODEL
// - For Anthropic: ANTHROPIC_API_KEY, optional LLM_MODEL
// - For Gemini:    GOOGLE_API_KEY, optional LLM_MODEL
// - For Ollama:    optional OLLAMA_HOST, optional LLM_MODEL
// If nothing is configured, returns a MockClient.
func NewFromEnv() Client {
	prov := strings.ToLower(strings.TrimSpace(os.Getenv("LLM_PROVIDER")))
	switch prov {
	case "openai":
		if key := strings.TrimSpace(os.Getenv("OPENAI_API_KEY")); key != "" {
			return &OpenAIClient{APIKey: key, Model: getModelWithDefault("LLM_MODEL", "gpt-4o-mini"), BaseURL: strings.TrimRight(os.Getenv("OPENAI_API_BASE"), "/")}
		}
	case "anthropic":
		if key := strings.TrimSpace(os.Getenv("ANTHROPIC_API_KEY")); key != "" {
			return &AnthropicClient{APIKey: key, Model: getModelWithDefault("LLM_MODEL", "claude-3-5-sonnet-latest")}
		}
	case "gemini":
		if key := strings.TrimSpace(os.Getenv("GOOGLE_API_KEY")); key != "" {
			return &GeminiClient{APIKey: key, Model: getModelWithDefault("LLM_MODEL", "gemini-1.5-flash")}
		}
	case "ollama":
		return &OllamaClient{Host: strings.TrimSpace(os.Getenv("OLLAMA_HOST")), Model: getModelWithDefault("LLM_MODEL", "qwen2.5-coder")}
	}

	// Auto-detect by API key presence if provider not specified
	if key := strings.TrimSpace(os.Getenv("OPENAI_API_KEY")); key != "" {
		return &OpenAIClient{APIKey: key, Model: getModelWithDefault("LLM_MODEL", "gpt-4o-mini"), BaseURL: strings.TrimRight(os.Getenv("OPENAI_API_BASE"), "/")}
	}
	if key := strings.TrimSpace(os.Getenv("ANTHROPIC_API_KEY")); key != "" {
		return &AnthropicClient{APIKey: key, Model: getModelWithDefault("LLM_MODEL", "claude-3-5-sonnet-latest")}
	}
	if key := strings.TrimSpace(os.Getenv("GOOGLE_API_KEY")); key != "" {
		return &GeminiClient{APIKey: key, Model: getModelWithDefault("LLM_MODEL", "gemini-1.5-flash")}
	}

	return &MockClient{}
}

func getModelWithDefault(envKey, def string) string {
	if v := strings.TrimSpace(os.Getenv(envKey)); v != "" {
		return v
	}
	return def
}
