package config

import (
	"os"
	"testing"
)

func TestGetAPIKeyPrefersEnvironment(t *testing.T) {
	os.Setenv("ANTHROPIC_API_KEY", "sk-ant-from-env")
	defer os.Unsetenv("ANTHROPIC_API_KEY")

	cfg := Default()
	cfg.Anthropic.APIKey = "sk-ant-from-config"

	key, err := GetAPIKey(cfg)
	if err != nil {
		t.Fatalf("GetAPIKey: %v", err)
	}
	if key != "sk-ant-from-env" {
		t.Errorf("expected env key, got %q", key)
	}
}

func TestGetAPIKeyFromConfig(t *testing.T) {
	os.Unsetenv("ANTHROPIC_API_KEY")

	cfg := Default()
	cfg.Anthropic.APIKey = "sk-ant-from-config"

	key, err := GetAPIKey(cfg)
	if err != nil {
		t.Fatalf("GetAPIKey: %v", err)
	}
	if key != "sk-ant-from-config" {
		t.Errorf("expected config key, got %q", key)
	}
}

func TestGetAPIKeyMissing(t *testing.T) {
	os.Unsetenv("ANTHROPIC_API_KEY")

	if _, err := GetAPIKey(Default()); err != ErrNoAPIKey {
		t.Errorf("expected ErrNoAPIKey, got %v", err)
	}
}

func TestValidateAPIKey(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		wantErr bool
	}{
		{"valid", "sk-ant-REDACTED", false},
		{"empty", "", true},
		{"wrong prefix", "sk-openai-abcdefghijklmnop", true},
		{"too short", "sk-ant-x", true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateAPIKey(tc.key)
			if (err != nil) != tc.wantErr {
				t.Errorf("ValidateAPIKey(%q) error = %v, wantErr %t", tc.key, err, tc.wantErr)
			}
		})
	}
}

func TestMaskAPIKey(t *testing.T) {
	if got := MaskAPIKey(""); got != "(not set)" {
		t.Errorf("MaskAPIKey(empty) = %q", got)
	}
	if got := MaskAPIKey("short"); got != "***" {
		t.Errorf("MaskAPIKey(short) = %q", got)
	}
	got := MaskAPIKey("sk-ant-REDACTED")
	if got != "sk-ant-...mnop" {
		t.Errorf("MaskAPIKey = %q", got)
	}
}
