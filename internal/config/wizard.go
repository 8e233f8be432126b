package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/manifoldco/promptui"
)

// RunWizard runs an interactive configuration wizard and returns the
// resulting Config. It also saves the config to .salonkit.yml.
func RunWizard() (*Config, error) {
	fmt.Println("Welcome to salonkit! Let's configure your studio assistant.")
	fmt.Println()

	// 1. Provider selection.
	providerPrompt := promptui.Select{
		Label: "Select LLM provider",
		Items: []string{"openai", "gemini"},
	}
	_, providerStr, err := providerPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("provider selection: %w", err)
	}
	provider := ProviderType(providerStr)

	// 2. Chat model.
	modelPrompt := promptui.Prompt{
		Label:   "Chat model",
		Default: DefaultModel(provider),
	}
	model, err := modelPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("model: %w", err)
	}

	// 3. Data directory.
	dataPrompt := promptui.Prompt{
		Label:   "Data directory (database, conversation logs, uploads)",
		Default: ".salonkit",
	}
	dataDir, err := dataPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("data dir: %w", err)
	}

	// 4. Server port.
	portPrompt := promptui.Prompt{
		Label:   "HTTP server port",
		Default: "8484",
		Validate: func(s string) error {
			p, err := strconv.Atoi(s)
			if err != nil || p <= 0 || p > 65535 {
				return fmt.Errorf("must be a valid port number")
			}
			return nil
		},
	}
	portStr, err := portPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("port: %w", err)
	}
	port, _ := strconv.Atoi(portStr)

	cfg := DefaultConfig()
	cfg.Provider = provider
	cfg.Model = model
	cfg.DataDir = dataDir
	cfg.ConversationsDir = filepath.Join(dataDir, "conversations")
	cfg.UploadsDir = filepath.Join(dataDir, "uploads")
	cfg.Server.Port = port

	// Check for API key.
	envVar := APIKeyEnvVar(provider)
	if envVar != "" && os.Getenv(envVar) == "" {
		fmt.Printf("\nNote: Set %s in your environment before running salonkit serve.\n", envVar)
	}

	configPath := ".salonkit.yml"
	if err := cfg.Save(configPath); err != nil {
		return nil, fmt.Errorf("saving config: %w", err)
	}

	fmt.Printf("\nConfiguration saved to %s\n", configPath)
	return cfg, nil
}
