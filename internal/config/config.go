package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

const appName = "embedchat"

// WidgetConfig tunes the conversation state layer of the widget.
type WidgetConfig struct {
	// MaxHistoryMessages caps the stored conversation log (FIFO eviction).
	MaxHistoryMessages int `json:"maxHistoryMessages"`
	// MaxHistoryTokens is the soft token budget for the per-request view.
	MaxHistoryTokens int `json:"maxHistoryTokens"`
	// AlwaysKeepRecentMessages is the verbatim recency window size.
	AlwaysKeepRecentMessages int `json:"alwaysKeepRecentMessages"`
	// WelcomeMessage is shown before any interaction; never stored.
	WelcomeMessage string `json:"welcomeMessage"`
	// SessionDir, when set, persists session snapshots to disk instead of
	// keeping them in memory.
	SessionDir string `json:"sessionDir,omitempty"`
}

// ProxyConfig configures the edge proxy.
type ProxyConfig struct {
	Port           int      `json:"port"`
	UpstreamURL    string   `json:"upstreamURL"`
	APIKey         string   `json:"apiKey"`
	Model          string   `json:"model"`
	AllowedOrigins []string `json:"allowedOrigins"`
	// RatePerMinute and RateBurst shape the per-client token bucket.
	RatePerMinute int `json:"ratePerMinute"`
	RateBurst     int `json:"rateBurst"`
	// UpstreamTimeoutSeconds bounds each upstream completion call.
	UpstreamTimeoutSeconds int `json:"upstreamTimeoutSeconds"`
}

// Config is the application configuration.
type Config struct {
	Widget WidgetConfig `json:"widget"`
	Proxy  ProxyConfig  `json:"proxy"`
	Debug  bool         `json:"debug"`
}

// Load reads configuration from path, or when path is empty from
// .embedchat.json (working directory, $HOME, XDG config dirs), with
// EMBEDCHAT_* environment variables taking precedence. A missing config
// file is fine; defaults apply.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("json")
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(fmt.Sprintf(".%s", appName))
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME")
		v.AddConfigPath(fmt.Sprintf("$XDG_CONFIG_HOME/%s", appName))
		v.AddConfigPath(fmt.Sprintf("$HOME/.config/%s", appName))
	}
	v.SetEnvPrefix(strings.ToUpper(appName))
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("widget.maxHistoryMessages", 50)
	v.SetDefault("widget.maxHistoryTokens", 1200)
	v.SetDefault("widget.alwaysKeepRecentMessages", 4)
	v.SetDefault("widget.welcomeMessage", "Hi! Ask me anything about the docs.")

	v.SetDefault("proxy.port", 8787)
	v.SetDefault("proxy.upstreamURL", "https://api.openai.com/v1")
	v.SetDefault("proxy.model", "gpt-4o-mini")
	v.SetDefault("proxy.allowedOrigins", []string{"http://localhost:8787"})
	v.SetDefault("proxy.ratePerMinute", 20)
	v.SetDefault("proxy.rateBurst", 5)
	v.SetDefault("proxy.upstreamTimeoutSeconds", 60)
}

// Validate checks the parts of the configuration that have no workable
// defaults.
func (c *Config) Validate() error {
	if c.Proxy.UpstreamURL == "" {
		return fmt.Errorf("proxy.upstreamURL must be set")
	}
	if c.Proxy.Model == "" {
		return fmt.Errorf("proxy.model must be set")
	}
	if c.Widget.MaxHistoryMessages <= 0 {
		return fmt.Errorf("widget.maxHistoryMessages must be positive")
	}
	return nil
}
