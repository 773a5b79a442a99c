package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Widget.MaxHistoryMessages != 50 {
		t.Errorf("MaxHistoryMessages = %d, want 50", cfg.Widget.MaxHistoryMessages)
	}
	if cfg.Widget.MaxHistoryTokens != 1200 {
		t.Errorf("MaxHistoryTokens = %d, want 1200", cfg.Widget.MaxHistoryTokens)
	}
	if cfg.Widget.AlwaysKeepRecentMessages != 4 {
		t.Errorf("AlwaysKeepRecentMessages = %d, want 4", cfg.Widget.AlwaysKeepRecentMessages)
	}
	if cfg.Proxy.Port != 8787 {
		t.Errorf("Port = %d, want 8787", cfg.Proxy.Port)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate, got %v", err)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("EMBEDCHAT_PROXY_PORT", "9999")
	t.Setenv("EMBEDCHAT_PROXY_MODEL", "gpt-4o")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Proxy.Port != 9999 {
		t.Errorf("Port = %d, want 9999 from env", cfg.Proxy.Port)
	}
	if cfg.Proxy.Model != "gpt-4o" {
		t.Errorf("Model = %q, want gpt-4o from env", cfg.Proxy.Model)
	}
}

func TestLoadExplicitFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "embedchat.json")
	content := `{"widget":{"maxHistoryMessages":7},"proxy":{"model":"local-model"}}`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load(%q) error = %v", path, err)
	}
	if cfg.Widget.MaxHistoryMessages != 7 {
		t.Errorf("MaxHistoryMessages = %d, want 7 from file", cfg.Widget.MaxHistoryMessages)
	}
	if cfg.Proxy.Model != "local-model" {
		t.Errorf("Model = %q, want local-model from file", cfg.Proxy.Model)
	}
	// Untouched keys keep defaults.
	if cfg.Proxy.Port != 8787 {
		t.Errorf("Port = %d, want default 8787", cfg.Proxy.Port)
	}
}

func TestLoadMissingExplicitFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.json")); err == nil {
		t.Error("expected error for missing explicit config file")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "valid", mutate: func(c *Config) {}},
		{name: "missing upstream", mutate: func(c *Config) { c.Proxy.UpstreamURL = "" }, wantErr: true},
		{name: "missing model", mutate: func(c *Config) { c.Proxy.Model = "" }, wantErr: true},
		{name: "zero history cap", mutate: func(c *Config) { c.Widget.MaxHistoryMessages = 0 }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load("")
			if err != nil {
				t.Fatal(err)
			}
			tt.mutate(cfg)
			if err := cfg.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
