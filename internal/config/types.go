package config

// ProviderType identifies an LLM provider.
type ProviderType string

const (
	ProviderOpenAI ProviderType = "openai"
	ProviderGemini ProviderType = "gemini"
)

// Config is the top-level salonkit configuration, corresponding to .salonkit.yml.
type Config struct {
	Provider         ProviderType `yaml:"provider" koanf:"provider"`
	Model            string       `yaml:"model" koanf:"model"`
	EmbeddingModel   string       `yaml:"embedding_model" koanf:"embedding_model"`
	DataDir          string       `yaml:"data_dir" koanf:"data_dir"`
	ConversationsDir string       `yaml:"conversations_dir" koanf:"conversations_dir"`
	UploadsDir       string       `yaml:"uploads_dir" koanf:"uploads_dir"`
	Server           ServerConfig `yaml:"server" koanf:"server"`
	Agent            AgentConfig  `yaml:"agent" koanf:"agent"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int  `yaml:"port" koanf:"port"`
	AllowAllOrigins bool `yaml:"allow_all_origins" koanf:"allow_all_origins"`
}

// AgentConfig holds orchestration loop settings. The round budget and the
// stall phrase list are deployment-specific and deliberately not constants.
type AgentConfig struct {
	MaxRounds    int      `yaml:"max_rounds" koanf:"max_rounds"`
	Temperature  float64  `yaml:"temperature" koanf:"temperature"`
	StallPhrases []string `yaml:"stall_phrases" koanf:"stall_phrases"`
}
