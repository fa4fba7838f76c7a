package main

import (
	"fmt"
	"os"
	"time"

	"github.com/taskweave/taskweave/internal/config"
	"github.com/taskweave/taskweave/internal/flow"
	"github.com/taskweave/taskweave/internal/provider"
	"github.com/taskweave/taskweave/internal/retrieval"
	"github.com/taskweave/taskweave/internal/store"
)

// resolveDBPath picks the database location: explicit config path, then an
// existing project database under the working directory, then the global one.
func resolveDBPath(cfg *config.Config) string {
	if cfg.Store.Path != "" {
		return cfg.Store.Path
	}

	cwd, err := os.Getwd()
	if err != nil {
		return store.GlobalDBPath()
	}

	projectPath := store.ProjectDBPath(cwd)
	if _, err := os.Stat(projectPath); err == nil {
		return projectPath
	}
	return store.GlobalDBPath()
}

// openStore opens and migrates the database.
func openStore(cfg *config.Config) (*store.DB, error) {
	db, err := store.Open(resolveDBPath(cfg))
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}
	return db, nil
}

// buildRegistry constructs the provider registry from the configured slot
// bindings. Adapters are created lazily: the Anthropic client is only built
// when a slot is bound to it.
func buildRegistry(cfg *config.Config) (*provider.Registry, error) {
	var anthropicAdapter *provider.Anthropic
	ollamaAdapter := provider.NewOllama(cfg.Ollama.BaseURL)

	bindings := make(map[provider.Slot]provider.Binding)
	for name, sc := range cfg.Slots() {
		binding := provider.Binding{Name: sc.Provider, Model: sc.Model}

		switch sc.Provider {
		case "anthropic":
			if anthropicAdapter == nil {
				adapter, err := provider.NewAnthropic(provider.AnthropicConfig{
					APIKey:        cfg.Anthropic.APIKey,
					UseAWSBedrock: cfg.Anthropic.UseBedrock,
					AWSRegion:     cfg.Anthropic.AWSRegion,
					AWSProfile:    cfg.Anthropic.AWSProfile,
					MaxTokens:     cfg.Anthropic.MaxTokens,
				})
				if err != nil {
					return nil, fmt.Errorf("create anthropic adapter: %w", err)
				}
				anthropicAdapter = adapter
			}
			binding.Text = anthropicAdapter
		case "ollama":
			binding.Text = ollamaAdapter
			binding.Embedding = ollamaAdapter
		default:
			return nil, fmt.Errorf("unknown provider %q for slot %q", sc.Provider, name)
		}

		bindings[provider.Slot(name)] = binding
	}

	return provider.NewRegistry(bindings), nil
}

// buildEngine wires the store, registry, and retrieval service into a flow
// engine for the given project.
func buildEngine(cfg *config.Config, db *store.DB, registry *provider.Registry, projectID string) *flow.Engine {
	retriever := retrieval.NewService(registry, store.NewArtifactStore(db), projectID)

	timeout := cfg.Providers.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	return flow.New(flow.Config{
		Repo:       store.NewTaskStore(db),
		Dispatcher: registry,
		Retriever:  retriever,
	},
		flow.WithThreshold(cfg.Router.Threshold),
		flow.WithMaxDecompositionDepth(cfg.Flow.MaxDecompositionDepth),
		flow.WithMaxConcurrentTasks(cfg.Flow.MaxConcurrentTasks),
		flow.WithCallTimeout(timeout),
		flow.WithEnhancementRetrieval(flow.RetrievalPolicy{
			TopK:          cfg.Retrieval.Enhancement.TopK,
			MinSimilarity: cfg.Retrieval.Enhancement.MinSimilarity,
		}),
		flow.WithDecompositionRetrieval(flow.RetrievalPolicy{
			TopK:          cfg.Retrieval.Decomposition.TopK,
			MinSimilarity: cfg.Retrieval.Decomposition.MinSimilarity,
		}),
	)
}
