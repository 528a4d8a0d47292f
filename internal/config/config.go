// Package config loads and validates the YAML configuration for the
// paginator service.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/StormDevelopmentSoftware/paginator/internal/observability"
	"github.com/StormDevelopmentSoftware/paginator/internal/paginator"
	"github.com/StormDevelopmentSoftware/paginator/internal/ratelimit"
)

// Config is the main configuration structure for the paginator service.
type Config struct {
	Discord   DiscordConfig           `yaml:"discord"`
	Paginator PaginatorConfig         `yaml:"paginator"`
	Logging   observability.LogConfig `yaml:"logging"`
	Metrics   MetricsConfig           `yaml:"metrics"`
}

// DiscordConfig configures the bot connection and API rate limiting.
type DiscordConfig struct {
	// BotToken is the bot token from the Discord Developer Portal.
	BotToken string `yaml:"bot_token"`

	// RateLimit bounds outbound Discord API calls.
	RateLimit ratelimit.Config `yaml:"rate_limit"`
}

// PaginatorConfig sets the session defaults applied when a spawn request
// leaves them unset.
type PaginatorConfig struct {
	// Timeout is the default session lifetime.
	Timeout time.Duration `yaml:"timeout"`

	// Behavior is the default boundary behavior: "clamp" or "wrap".
	Behavior paginator.BoundaryBehavior `yaml:"behavior"`

	// DeletionPolicy is the default cleanup action: "delete_marks",
	// "delete_message" or "keep".
	DeletionPolicy paginator.DeletionPolicy `yaml:"deletion_policy"`
}

// MetricsConfig configures the Prometheus endpoint.
type MetricsConfig struct {
	// Enabled controls whether the /metrics HTTP listener starts.
	Enabled bool `yaml:"enabled"`

	// Addr is the listen address for the metrics endpoint.
	Addr string `yaml:"addr"`
}

// Default returns a configuration with all defaults applied and no bot
// token set.
func Default() *Config {
	return &Config{
		Discord: DiscordConfig{
			RateLimit: ratelimit.DefaultConfig(),
		},
		Paginator: PaginatorConfig{
			Timeout:        5 * time.Minute,
			Behavior:       paginator.Clamp,
			DeletionPolicy: paginator.DeleteControlMarks,
		},
		Logging: observability.LogConfig{
			Level:  "info",
			Format: "json",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Addr:    ":9091",
		},
	}
}

// Load reads and validates a YAML configuration file. The DISCORD_BOT_TOKEN
// environment variable overrides the file's bot token.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	if token := os.Getenv("DISCORD_BOT_TOKEN"); token != "" {
		cfg.Discord.BotToken = token
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration and applies defaults for unset
// fields.
func (c *Config) Validate() error {
	if c.Discord.BotToken == "" {
		return paginator.ErrConfig("discord bot token is required (discord.bot_token or DISCORD_BOT_TOKEN)", nil)
	}

	if c.Paginator.Timeout == 0 {
		c.Paginator.Timeout = 5 * time.Minute
	}
	if c.Paginator.Timeout < 0 {
		return paginator.ErrConfig("paginator timeout must be positive", nil)
	}

	if c.Paginator.Behavior == "" {
		c.Paginator.Behavior = paginator.Clamp
	}
	if !c.Paginator.Behavior.Valid() {
		return paginator.ErrConfig(fmt.Sprintf("unknown boundary behavior %q", c.Paginator.Behavior), nil)
	}

	if c.Paginator.DeletionPolicy == "" {
		c.Paginator.DeletionPolicy = paginator.DeleteControlMarks
	}
	if !c.Paginator.DeletionPolicy.Valid() {
		return paginator.ErrConfig(fmt.Sprintf("unknown deletion policy %q", c.Paginator.DeletionPolicy), nil)
	}

	if c.Metrics.Enabled && c.Metrics.Addr == "" {
		c.Metrics.Addr = ":9091"
	}

	return nil
}
