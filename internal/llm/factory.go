package llm

import (
	"fmt"
	"os"
)

// geminiBaseURL is Gemini's OpenAI-compatible endpoint.
const geminiBaseURL = "https://generativelanguage.googleapis.com/v1beta/openai/"

// NewProvider creates a new LLM provider based on the given provider type and
// model. Supported provider types: "openai", "gemini". Both speak the Chat
// Completions surface; Gemini is reached through its compatibility endpoint.
func NewProvider(providerType string, model string) (Provider, error) {
	switch providerType {
	case "openai":
		apiKey := os.Getenv("OPENAI_API_KEY")
		if apiKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY environment variable is not set")
		}
		return NewOpenAIProvider(apiKey, model), nil

	case "gemini":
		apiKey := os.Getenv("GEMINI_API_KEY")
		if apiKey == "" {
			return nil, fmt.Errorf("GEMINI_API_KEY environment variable is not set")
		}
		return NewCompatibleProvider("gemini", apiKey, geminiBaseURL, model), nil

	default:
		return nil, fmt.Errorf("unsupported provider type: %s", providerType)
	}
}
