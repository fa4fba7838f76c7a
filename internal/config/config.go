// Package config handles configuration loading for taskweave. It supports
// XDG config paths, project-level overrides, and environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for taskweave.
type Config struct {
	Anthropic AnthropicConfig `mapstructure:"anthropic"`
	Ollama    OllamaConfig    `mapstructure:"ollama"`
	Providers ProvidersConfig `mapstructure:"providers"`
	Router    RouterConfig    `mapstructure:"router"`
	Flow      FlowConfig      `mapstructure:"flow"`
	Retrieval RetrievalConfig `mapstructure:"retrieval"`
	Store     StoreConfig     `mapstructure:"store"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	APIKey     string `mapstructure:"api_key"`
	UseBedrock bool   `mapstructure:"use_bedrock"`
	AWSRegion  string `mapstructure:"aws_region"`
	AWSProfile string `mapstructure:"aws_profile"`
	MaxTokens  int    `mapstructure:"max_tokens"`
}

// OllamaConfig holds local Ollama settings.
type OllamaConfig struct {
	BaseURL string `mapstructure:"base_url"`
}

// SlotConfig binds one provider slot to an adapter and model.
type SlotConfig struct {
	// Provider names the adapter: "anthropic" or "ollama".
	Provider string `mapstructure:"provider"`
	// Model is the provider-specific model identifier.
	Model string `mapstructure:"model"`
}

// ProvidersConfig holds the slot bindings and shared provider settings.
type ProvidersConfig struct {
	Main      SlotConfig    `mapstructure:"main"`
	Research  SlotConfig    `mapstructure:"research"`
	Fallback  SlotConfig    `mapstructure:"fallback"`
	Embedding SlotConfig    `mapstructure:"embedding"`
	Vision    SlotConfig    `mapstructure:"vision"`
	ChatAgent SlotConfig    `mapstructure:"chat_agent"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

// RouterConfig holds complexity routing settings.
type RouterConfig struct {
	// Threshold is the score at or above which tasks are decomposed.
	Threshold int `mapstructure:"threshold"`
}

// FlowConfig holds orchestration flow settings.
type FlowConfig struct {
	MaxConcurrentTasks    int `mapstructure:"max_concurrent_tasks"`
	MaxDecompositionDepth int `mapstructure:"max_decomposition_depth"`
}

// RetrievalPolicyConfig holds the retrieval parameters for one call site.
type RetrievalPolicyConfig struct {
	TopK          int     `mapstructure:"top_k"`
	MinSimilarity float64 `mapstructure:"min_similarity"`
}

// RetrievalConfig holds per-call-site retrieval settings.
type RetrievalConfig struct {
	Enhancement   RetrievalPolicyConfig `mapstructure:"enhancement"`
	Decomposition RetrievalPolicyConfig `mapstructure:"decomposition"`
}

// StoreConfig holds persistence settings.
type StoreConfig struct {
	// Path overrides the default database location when set.
	Path string `mapstructure:"path"`
}

// Load loads configuration from XDG paths, project overrides, and environment variables.
// Precedence (highest to lowest):
// 1. Environment variables (ANTHROPIC_API_KEY, TASKWEAVE_*)
// 2. Project config (.taskweave.yaml in current directory or parent)
// 3. User config (~/.config/taskweave/config.yaml)
// 4. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	userConfigDir := getUserConfigDir()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(userConfigDir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading user config: %w", err)
		}
	}

	// Project config takes precedence over the user config.
	projectConfig := findProjectConfig()
	if projectConfig != "" {
		projectViper := viper.New()
		projectViper.SetConfigFile(projectConfig)
		if err := projectViper.ReadInConfig(); err == nil {
			if err := v.MergeConfigMap(projectViper.AllSettings()); err != nil {
				return nil, fmt.Errorf("merging project config: %w", err)
			}
		}
	}

	v.AutomaticEnv()
	v.SetEnvPrefix("TASKWEAVE")

	v.BindEnv("anthropic.api_key", "ANTHROPIC_API_KEY")
	v.BindEnv("ollama.base_url", "OLLAMA_HOST")

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	// Expand ${VAR} references
	cfg.Anthropic.APIKey = expandEnv(cfg.Anthropic.APIKey)

	return cfg, nil
}

// LoadFromPath loads configuration from a specific path (for testing).
func LoadFromPath(path string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	cfg.Anthropic.APIKey = expandEnv(cfg.Anthropic.APIKey)

	return cfg, nil
}

// Save writes the current configuration to the user config file.
func Save(cfg *Config) error {
	userConfigDir := getUserConfigDir()
	if err := os.MkdirAll(userConfigDir, 0700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	configPath := filepath.Join(userConfigDir, "config.yaml")

	v := viper.New()
	v.SetConfigFile(configPath)

	v.Set("anthropic.api_key", cfg.Anthropic.APIKey)
	v.Set("anthropic.use_bedrock", cfg.Anthropic.UseBedrock)
	v.Set("anthropic.aws_region", cfg.Anthropic.AWSRegion)
	v.Set("anthropic.aws_profile", cfg.Anthropic.AWSProfile)
	v.Set("anthropic.max_tokens", cfg.Anthropic.MaxTokens)
	v.Set("ollama.base_url", cfg.Ollama.BaseURL)
	v.Set("providers.main.provider", cfg.Providers.Main.Provider)
	v.Set("providers.main.model", cfg.Providers.Main.Model)
	v.Set("providers.research.provider", cfg.Providers.Research.Provider)
	v.Set("providers.research.model", cfg.Providers.Research.Model)
	v.Set("providers.fallback.provider", cfg.Providers.Fallback.Provider)
	v.Set("providers.fallback.model", cfg.Providers.Fallback.Model)
	v.Set("providers.embedding.provider", cfg.Providers.Embedding.Provider)
	v.Set("providers.embedding.model", cfg.Providers.Embedding.Model)
	v.Set("providers.timeout", cfg.Providers.Timeout.String())
	v.Set("router.threshold", cfg.Router.Threshold)
	v.Set("flow.max_concurrent_tasks", cfg.Flow.MaxConcurrentTasks)
	v.Set("flow.max_decomposition_depth", cfg.Flow.MaxDecompositionDepth)
	v.Set("retrieval.enhancement.top_k", cfg.Retrieval.Enhancement.TopK)
	v.Set("retrieval.enhancement.min_similarity", cfg.Retrieval.Enhancement.MinSimilarity)
	v.Set("retrieval.decomposition.top_k", cfg.Retrieval.Decomposition.TopK)
	v.Set("retrieval.decomposition.min_similarity", cfg.Retrieval.Decomposition.MinSimilarity)
	v.Set("store.path", cfg.Store.Path)

	return v.WriteConfig()
}

// GetUserConfigPath returns the path to the user config file.
func GetUserConfigPath() string {
	return filepath.Join(getUserConfigDir(), "config.yaml")
}

// GetProjectConfigPath returns the path to the project config file if it exists.
func GetProjectConfigPath() string {
	return findProjectConfig()
}

// setDefaults configures default values.
func setDefaults(v *viper.Viper) {
	v.SetDefault("anthropic.api_key", "")
	v.SetDefault("anthropic.use_bedrock", false)
	v.SetDefault("anthropic.aws_region", "")
	v.SetDefault("anthropic.aws_profile", "")
	v.SetDefault("anthropic.max_tokens", 4096)

	v.SetDefault("ollama.base_url", "http://localhost:11434")

	v.SetDefault("providers.main.provider", "anthropic")
	v.SetDefault("providers.main.model", "claude-sonnet-4-20250514")
	v.SetDefault("providers.research.provider", "anthropic")
	v.SetDefault("providers.research.model", "claude-sonnet-4-20250514")
	v.SetDefault("providers.fallback.provider", "ollama")
	v.SetDefault("providers.fallback.model", "llama3.1")
	v.SetDefault("providers.embedding.provider", "ollama")
	v.SetDefault("providers.embedding.model", "nomic-embed-text")
	v.SetDefault("providers.timeout", "60s")

	v.SetDefault("router.threshold", 7)

	v.SetDefault("flow.max_concurrent_tasks", 4)
	v.SetDefault("flow.max_decomposition_depth", 2)

	v.SetDefault("retrieval.enhancement.top_k", 3)
	v.SetDefault("retrieval.enhancement.min_similarity", 0.6)
	v.SetDefault("retrieval.decomposition.top_k", 2)
	v.SetDefault("retrieval.decomposition.min_similarity", 0.7)

	v.SetDefault("store.path", "")
}

// getUserConfigDir returns the XDG config directory for taskweave.
func getUserConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "taskweave")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".config", "taskweave")
	}
	return filepath.Join(home, ".config", "taskweave")
}

// findProjectConfig searches for .taskweave.yaml in the current directory and parents.
func findProjectConfig() string {
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		configPath := filepath.Join(cwd, ".taskweave.yaml")
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}

		parent := filepath.Dir(cwd)
		if parent == cwd {
			break
		}
		cwd = parent
	}

	return ""
}

// expandEnv expands ${VAR} references in a string.
func expandEnv(s string) string {
	return os.ExpandEnv(s)
}

// Default returns a Config with default values.
func Default() *Config {
	return &Config{
		Anthropic: AnthropicConfig{
			MaxTokens: 4096,
		},
		Ollama: OllamaConfig{
			BaseURL: "http://localhost:11434",
		},
		Providers: ProvidersConfig{
			Main:      SlotConfig{Provider: "anthropic", Model: "claude-sonnet-4-20250514"},
			Research:  SlotConfig{Provider: "anthropic", Model: "claude-sonnet-4-20250514"},
			Fallback:  SlotConfig{Provider: "ollama", Model: "llama3.1"},
			Embedding: SlotConfig{Provider: "ollama", Model: "nomic-embed-text"},
			Timeout:   60 * time.Second,
		},
		Router: RouterConfig{
			Threshold: 7,
		},
		Flow: FlowConfig{
			MaxConcurrentTasks:    4,
			MaxDecompositionDepth: 2,
		},
		Retrieval: RetrievalConfig{
			Enhancement:   RetrievalPolicyConfig{TopK: 3, MinSimilarity: 0.6},
			Decomposition: RetrievalPolicyConfig{TopK: 2, MinSimilarity: 0.7},
		},
	}
}

// Slots returns the configured slot bindings keyed by slot name, skipping
// slots with no provider set.
func (c *Config) Slots() map[string]SlotConfig {
	all := map[string]SlotConfig{
		"main":       c.Providers.Main,
		"research":   c.Providers.Research,
		"fallback":   c.Providers.Fallback,
		"embedding":  c.Providers.Embedding,
		"vision":     c.Providers.Vision,
		"chat_agent": c.Providers.ChatAgent,
	}
	bound := make(map[string]SlotConfig, len(all))
	for name, sc := range all {
		if sc.Provider != "" {
			bound[name] = sc
		}
	}
	return bound
}
