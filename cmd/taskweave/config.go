package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/taskweave/taskweave/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config [key] [value]",
	Short: "Manage configuration",
	Long: `View or modify taskweave configuration.

Without arguments, displays current configuration.
With one argument (key), displays the value for that key.
With two arguments (key value), sets the configuration value.

Configuration is stored at ~/.config/taskweave/config.yaml
Project-specific overrides can be placed in .taskweave.yaml`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := config.Load()
		if err != nil {
			exitErr(fmt.Errorf("loading config: %w", err))
		}

		switch len(args) {
		case 0:
			displayAllConfig(cfg)
		case 1:
			displayConfigKey(cfg, args[0])
		default:
			setConfigKey(cfg, args[0], args[1])
		}
	},
}

// displayAllConfig prints all configuration values.
func displayAllConfig(cfg *config.Config) {
	fmt.Printf("anthropic.api_key: %s\n", config.MaskAPIKey(cfg.Anthropic.APIKey))
	fmt.Printf("anthropic.use_bedrock: %t\n", cfg.Anthropic.UseBedrock)
	fmt.Printf("anthropic.aws_region: %s\n", cfg.Anthropic.AWSRegion)
	fmt.Printf("anthropic.aws_profile: %s\n", cfg.Anthropic.AWSProfile)
	fmt.Printf("anthropic.max_tokens: %d\n", cfg.Anthropic.MaxTokens)
	fmt.Printf("ollama.base_url: %s\n", cfg.Ollama.BaseURL)
	for _, name := range []string{"main", "research", "fallback", "embedding", "vision", "chat_agent"} {
		sc := slotByName(cfg, name)
		fmt.Printf("providers.%s.provider: %s\n", name, sc.Provider)
		fmt.Printf("providers.%s.model: %s\n", name, sc.Model)
	}
	fmt.Printf("providers.timeout: %s\n", cfg.Providers.Timeout)
	fmt.Printf("router.threshold: %d\n", cfg.Router.Threshold)
	fmt.Printf("flow.max_concurrent_tasks: %d\n", cfg.Flow.MaxConcurrentTasks)
	fmt.Printf("flow.max_decomposition_depth: %d\n", cfg.Flow.MaxDecompositionDepth)
	fmt.Printf("retrieval.enhancement.top_k: %d\n", cfg.Retrieval.Enhancement.TopK)
	fmt.Printf("retrieval.enhancement.min_similarity: %g\n", cfg.Retrieval.Enhancement.MinSimilarity)
	fmt.Printf("retrieval.decomposition.top_k: %d\n", cfg.Retrieval.Decomposition.TopK)
	fmt.Printf("retrieval.decomposition.min_similarity: %g\n", cfg.Retrieval.Decomposition.MinSimilarity)
	fmt.Printf("store.path: %s\n", cfg.Store.Path)
}

// displayConfigKey prints a single configuration value.
func displayConfigKey(cfg *config.Config, key string) {
	value, err := getConfigValue(cfg, key)
	if err != nil {
		exitErr(err)
	}
	fmt.Println(value)
}

// setConfigKey sets a configuration value and saves the config.
func setConfigKey(cfg *config.Config, key, value string) {
	if err := setConfigValue(cfg, key, value); err != nil {
		exitErr(err)
	}

	if err := config.Save(cfg); err != nil {
		exitErr(fmt.Errorf("saving config: %w", err))
	}

	fmt.Printf("Set %s = %s\n", key, value)
}

// slotByName returns a pointer to the slot config for a slot name, nil for
// unknown names.
func slotByName(cfg *config.Config, name string) *config.SlotConfig {
	switch name {
	case "main":
		return &cfg.Providers.Main
	case "research":
		return &cfg.Providers.Research
	case "fallback":
		return &cfg.Providers.Fallback
	case "embedding":
		return &cfg.Providers.Embedding
	case "vision":
		return &cfg.Providers.Vision
	case "chat_agent":
		return &cfg.Providers.ChatAgent
	default:
		return nil
	}
}

// getConfigValue retrieves a configuration value by dot-notation key.
func getConfigValue(cfg *config.Config, key string) (string, error) {
	key = strings.ToLower(key)

	if parts := strings.Split(key, "."); len(parts) == 3 && parts[0] == "providers" {
		sc := slotByName(cfg, parts[1])
		if sc == nil {
			return "", fmt.Errorf("unknown provider slot: %s", parts[1])
		}
		switch parts[2] {
		case "provider":
			return sc.Provider, nil
		case "model":
			return sc.Model, nil
		}
		return "", fmt.Errorf("unknown configuration key: %s", key)
	}

	switch key {
	case "anthropic.api_key":
		return config.MaskAPIKey(cfg.Anthropic.APIKey), nil
	case "anthropic.use_bedrock":
		return strconv.FormatBool(cfg.Anthropic.UseBedrock), nil
	case "anthropic.aws_region":
		return cfg.Anthropic.AWSRegion, nil
	case "anthropic.aws_profile":
		return cfg.Anthropic.AWSProfile, nil
	case "anthropic.max_tokens":
		return strconv.Itoa(cfg.Anthropic.MaxTokens), nil
	case "ollama.base_url":
		return cfg.Ollama.BaseURL, nil
	case "providers.timeout":
		return cfg.Providers.Timeout.String(), nil
	case "router.threshold":
		return strconv.Itoa(cfg.Router.Threshold), nil
	case "flow.max_concurrent_tasks":
		return strconv.Itoa(cfg.Flow.MaxConcurrentTasks), nil
	case "flow.max_decomposition_depth":
		return strconv.Itoa(cfg.Flow.MaxDecompositionDepth), nil
	case "retrieval.enhancement.top_k":
		return strconv.Itoa(cfg.Retrieval.Enhancement.TopK), nil
	case "retrieval.enhancement.min_similarity":
		return strconv.FormatFloat(cfg.Retrieval.Enhancement.MinSimilarity, 'g', -1, 64), nil
	case "retrieval.decomposition.top_k":
		return strconv.Itoa(cfg.Retrieval.Decomposition.TopK), nil
	case "retrieval.decomposition.min_similarity":
		return strconv.FormatFloat(cfg.Retrieval.Decomposition.MinSimilarity, 'g', -1, 64), nil
	case "store.path":
		return cfg.Store.Path, nil
	default:
		return "", fmt.Errorf("unknown configuration key: %s", key)
	}
}

// setConfigValue sets a configuration value by dot-notation key.
func setConfigValue(cfg *config.Config, key, value string) error {
	key = strings.ToLower(key)

	if parts := strings.Split(key, "."); len(parts) == 3 && parts[0] == "providers" {
		sc := slotByName(cfg, parts[1])
		if sc == nil {
			return fmt.Errorf("unknown provider slot: %s", parts[1])
		}
		switch parts[2] {
		case "provider":
			if value != "anthropic" && value != "ollama" {
				return fmt.Errorf("unknown provider %q (want anthropic or ollama)", value)
			}
			sc.Provider = value
			return nil
		case "model":
			sc.Model = value
			return nil
		}
		return fmt.Errorf("unknown configuration key: %s", key)
	}

	switch key {
	case "anthropic.api_key":
		if err := config.ValidateAPIKey(value); err != nil {
			return err
		}
		cfg.Anthropic.APIKey = value
	case "anthropic.use_bedrock":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid boolean for use_bedrock: %w", err)
		}
		cfg.Anthropic.UseBedrock = b
	case "anthropic.aws_region":
		cfg.Anthropic.AWSRegion = value
	case "anthropic.aws_profile":
		cfg.Anthropic.AWSProfile = value
	case "anthropic.max_tokens":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid value for max_tokens: %w", err)
		}
		cfg.Anthropic.MaxTokens = n
	case "ollama.base_url":
		cfg.Ollama.BaseURL = value
	case "providers.timeout":
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid duration for providers.timeout: %w", err)
		}
		cfg.Providers.Timeout = d
	case "router.threshold":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid value for router.threshold: %w", err)
		}
		if n < 0 || n > 10 {
			return fmt.Errorf("router.threshold must be between 0 and 10")
		}
		cfg.Router.Threshold = n
	case "flow.max_concurrent_tasks":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid value for max_concurrent_tasks: %w", err)
		}
		if n < 1 {
			return fmt.Errorf("flow.max_concurrent_tasks must be at least 1")
		}
		cfg.Flow.MaxConcurrentTasks = n
	case "flow.max_decomposition_depth":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid value for max_decomposition_depth: %w", err)
		}
		cfg.Flow.MaxDecompositionDepth = n
	case "retrieval.enhancement.top_k":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid value for top_k: %w", err)
		}
		cfg.Retrieval.Enhancement.TopK = n
	case "retrieval.enhancement.min_similarity":
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid value for min_similarity: %w", err)
		}
		cfg.Retrieval.Enhancement.MinSimilarity = f
	case "retrieval.decomposition.top_k":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid value for top_k: %w", err)
		}
		cfg.Retrieval.Decomposition.TopK = n
	case "retrieval.decomposition.min_similarity":
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid value for min_similarity: %w", err)
		}
		cfg.Retrieval.Decomposition.MinSimilarity = f
	case "store.path":
		cfg.Store.Path = value
	default:
		return fmt.Errorf("unknown configuration key: %s", key)
	}
	return nil
}
