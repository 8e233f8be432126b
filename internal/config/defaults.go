package config

import "path/filepath"

// defaultModels maps each provider to its default chat model.
var defaultModels = map[ProviderType]string{
	ProviderOpenAI: "gpt-4o",
	ProviderGemini: "gemini-2.0-flash",
}

// DefaultStallPhrases are text fragments the model emits when it announces a
// tool action instead of calling the tool. Language/prompt-specific: revisit
// per deployment.
var DefaultStallPhrases = []string{
	"正在生成",
	"正在为",
	"为你生成",
	"为您生成",
	"稍等",
	"马上",
	"开始生成",
	"正在处理",
	"generating",
	"one moment",
	"let me create",
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	dataDir := ".salonkit"
	return &Config{
		Provider:         ProviderOpenAI,
		Model:            defaultModels[ProviderOpenAI],
		EmbeddingModel:   "text-embedding-3-small",
		DataDir:          dataDir,
		ConversationsDir: filepath.Join(dataDir, "conversations"),
		UploadsDir:       filepath.Join(dataDir, "uploads"),
		Server: ServerConfig{
			Port: 8484,
		},
		Agent: AgentConfig{
			MaxRounds:    8,
			Temperature:  0.7,
			StallPhrases: DefaultStallPhrases,
		},
	}
}

// DefaultModel returns the default chat model for the given provider.
func DefaultModel(provider ProviderType) string {
	if m, ok := defaultModels[provider]; ok {
		return m
	}
	return defaultModels[ProviderOpenAI]
}
