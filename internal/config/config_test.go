package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Router.Threshold != 7 {
		t.Errorf("expected default router threshold 7, got %d", cfg.Router.Threshold)
	}

	if cfg.Flow.MaxConcurrentTasks != 4 {
		t.Errorf("expected default max_concurrent_tasks 4, got %d", cfg.Flow.MaxConcurrentTasks)
	}

	if cfg.Flow.MaxDecompositionDepth != 2 {
		t.Errorf("expected default max_decomposition_depth 2, got %d", cfg.Flow.MaxDecompositionDepth)
	}

	if cfg.Providers.Timeout != 60*time.Second {
		t.Errorf("expected default provider timeout 60s, got %v", cfg.Providers.Timeout)
	}

	if cfg.Retrieval.Enhancement.TopK != 3 || cfg.Retrieval.Enhancement.MinSimilarity != 0.6 {
		t.Errorf("unexpected enhancement retrieval defaults: %+v", cfg.Retrieval.Enhancement)
	}

	if cfg.Retrieval.Decomposition.TopK != 2 || cfg.Retrieval.Decomposition.MinSimilarity != 0.7 {
		t.Errorf("unexpected decomposition retrieval defaults: %+v", cfg.Retrieval.Decomposition)
	}

	if cfg.Ollama.BaseURL != "http://localhost:11434" {
		t.Errorf("expected default ollama base url, got %q", cfg.Ollama.BaseURL)
	}
}

func TestLoadFromPath(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
anthropic:
  api_key: test-key
  use_bedrock: true
  aws_region: us-west-2
router:
  threshold: 8
flow:
  max_concurrent_tasks: 2
  max_decomposition_depth: 3
providers:
  main:
    provider: anthropic
    model: claude-opus-4-20250514
  fallback:
    provider: ollama
    model: mistral
  timeout: 90s
retrieval:
  enhancement:
    top_k: 5
    min_similarity: 0.5
store:
  path: /tmp/taskweave-test.db
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	cfg, err := LoadFromPath(configPath)
	if err != nil {
		t.Fatalf("LoadFromPath failed: %v", err)
	}

	if cfg.Anthropic.APIKey != "test-key" {
		t.Errorf("expected api_key 'test-key', got %q", cfg.Anthropic.APIKey)
	}

	if !cfg.Anthropic.UseBedrock {
		t.Error("expected use_bedrock to be true")
	}

	if cfg.Router.Threshold != 8 {
		t.Errorf("expected threshold 8, got %d", cfg.Router.Threshold)
	}

	if cfg.Flow.MaxConcurrentTasks != 2 {
		t.Errorf("expected max_concurrent_tasks 2, got %d", cfg.Flow.MaxConcurrentTasks)
	}

	if cfg.Providers.Main.Model != "claude-opus-4-20250514" {
		t.Errorf("expected main model override, got %q", cfg.Providers.Main.Model)
	}

	if cfg.Providers.Fallback.Model != "mistral" {
		t.Errorf("expected fallback model 'mistral', got %q", cfg.Providers.Fallback.Model)
	}

	if cfg.Providers.Timeout != 90*time.Second {
		t.Errorf("expected provider timeout 90s, got %v", cfg.Providers.Timeout)
	}

	if cfg.Retrieval.Enhancement.TopK != 5 {
		t.Errorf("expected enhancement top_k 5, got %d", cfg.Retrieval.Enhancement.TopK)
	}

	// Unset keys keep their defaults.
	if cfg.Retrieval.Decomposition.TopK != 2 {
		t.Errorf("expected decomposition top_k default 2, got %d", cfg.Retrieval.Decomposition.TopK)
	}

	if cfg.Store.Path != "/tmp/taskweave-test.db" {
		t.Errorf("expected store path override, got %q", cfg.Store.Path)
	}
}

func TestExpandEnv(t *testing.T) {
	os.Setenv("TEST_VAR", "expanded-value")
	defer os.Unsetenv("TEST_VAR")

	result := expandEnv("${TEST_VAR}")
	if result != "expanded-value" {
		t.Errorf("expected 'expanded-value', got %q", result)
	}

	result = expandEnv("prefix-${TEST_VAR}-suffix")
	if result != "prefix-expanded-value-suffix" {
		t.Errorf("expected 'prefix-expanded-value-suffix', got %q", result)
	}
}

func TestGetUserConfigDir(t *testing.T) {
	os.Setenv("XDG_CONFIG_HOME", "/custom/config")
	defer os.Unsetenv("XDG_CONFIG_HOME")

	dir := getUserConfigDir()
	expected := "/custom/config/taskweave"
	if dir != expected {
		t.Errorf("expected %q, got %q", expected, dir)
	}
}

func TestSlots(t *testing.T) {
	cfg := Default()
	slots := cfg.Slots()

	for _, name := range []string{"main", "research", "fallback", "embedding"} {
		if _, ok := slots[name]; !ok {
			t.Errorf("expected slot %q to be bound by default", name)
		}
	}

	// Vision and chat_agent have no default binding.
	if _, ok := slots["vision"]; ok {
		t.Error("expected vision slot to be unbound by default")
	}
	if _, ok := slots["chat_agent"]; ok {
		t.Error("expected chat_agent slot to be unbound by default")
	}
}
