package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/salonkit/salonkit/internal/abilities"
	"github.com/salonkit/salonkit/internal/agent"
	"github.com/salonkit/salonkit/internal/analysis"
	"github.com/salonkit/salonkit/internal/config"
	"github.com/salonkit/salonkit/internal/conversation"
	"github.com/salonkit/salonkit/internal/customers"
	"github.com/salonkit/salonkit/internal/db"
	"github.com/salonkit/salonkit/internal/designs"
	"github.com/salonkit/salonkit/internal/embeddings"
	"github.com/salonkit/salonkit/internal/inspirations"
	"github.com/salonkit/salonkit/internal/llm"
	"github.com/salonkit/salonkit/internal/msglog"
	"github.com/salonkit/salonkit/internal/records"
	"github.com/salonkit/salonkit/internal/tools"
)

// app holds the fully wired dependency graph shared by serve, chat and mcp.
type app struct {
	cfg           *config.Config
	db            *db.DB
	provider      llm.Provider
	conversations *conversation.Store
	customers     *customers.Store
	designs       *designs.Store
	records       *records.Store
	abilities     *abilities.Store
	inspirations  *inspirations.Store
	orchestrator  *agent.Orchestrator
	handlers      *agent.Handlers
}

func (a *app) Close() {
	if a.db != nil {
		a.db.Close()
	}
}

// loadConfig loads and validates the config, providing a user-friendly error.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w\nRun `salonkit init` to create a config file", err)
	}
	return cfg, nil
}

// buildApp opens the database and wires every store, the tool registry
// and the orchestrator.
func buildApp(cfg *config.Config) (*app, error) {
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	database, err := db.Open(filepath.Join(cfg.DataDir, "salonkit.db"))
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	provider, err := llm.NewProvider(string(cfg.Provider), cfg.Model)
	if err != nil {
		database.Close()
		return nil, err
	}

	// Image generation and embeddings are OpenAI-only. Without a key the
	// inspiration index degrades to keyword search and design rendering
	// fails at call time.
	openaiKey := os.Getenv("OPENAI_API_KEY")
	var embedder embeddings.Embedder
	if openaiKey != "" {
		embedder = embeddings.NewOpenAIEmbedder(openaiKey, cfg.EmbeddingModel)
	} else {
		fmt.Fprintln(os.Stderr, "Warning: OPENAI_API_KEY not set, inspiration search falls back to keyword matching")
	}

	renderer := designs.NewImageRenderer(openaiKey, provider, cfg.Model, cfg.UploadsDir)

	customerStore := customers.NewStore(database)
	designStore := designs.NewStore(database, renderer)
	recordStore := records.NewStore(database)
	abilityStore := abilities.NewStore(database)
	inspirationStore, err := inspirations.NewStore(database, embedder)
	if err != nil {
		database.Close()
		return nil, fmt.Errorf("creating inspiration store: %w", err)
	}
	analyzer := analysis.New(database, provider, cfg.Model, recordStore, designStore, abilityStore)

	registry := tools.NewRegistry(tools.Deps{
		Customers:    customerStore,
		Designs:      designStore,
		Records:      recordStore,
		Abilities:    abilityStore,
		Analyzer:     analyzer,
		Inspirations: inspirationStore,
	})

	conversationStore := conversation.NewStore(database)
	logStore := msglog.NewStore(cfg.ConversationsDir)
	orchestrator := agent.New(conversationStore, logStore, registry, provider, cfg.Model, cfg.Agent)

	return &app{
		cfg:           cfg,
		db:            database,
		provider:      provider,
		conversations: conversationStore,
		customers:     customerStore,
		designs:       designStore,
		records:       recordStore,
		abilities:     abilityStore,
		inspirations:  inspirationStore,
		orchestrator:  orchestrator,
		handlers:      agent.NewHandlers(orchestrator, conversationStore, cfg.UploadsDir),
	}, nil
}
