// Package config defines the kiro-memory configuration and its
// file/environment loading rules.
package config

import (
	"encoding/json"
	"fmt"
)

// Config is the main kiro-memory configuration.
type Config struct {
	// Data directory, defaults to ~/.kiro-memory
	DataDir string `json:"data_dir" mapstructure:"data_dir"`

	// Database path, defaults to <data_dir>/memory.db
	DBPath string `json:"db_path" mapstructure:"db_path"`

	// Logging
	Logging LoggingConfig `json:"logging" mapstructure:"logging"`

	// Embedding provider
	Embedding EmbeddingConfig `json:"embedding" mapstructure:"embedding"`

	// Context assembly
	Context ContextConfig `json:"context" mapstructure:"context"`

	// Background maintenance
	Decay DecayConfig `json:"decay" mapstructure:"decay"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level     string `json:"level" mapstructure:"level"`
	File      string `json:"file" mapstructure:"file"`
	Console   bool   `json:"console" mapstructure:"console"`
	Pretty    bool   `json:"pretty" mapstructure:"pretty"`
	Redaction bool   `json:"redaction" mapstructure:"redaction"`
	MaxSize   int    `json:"max_size" mapstructure:"max_size"` // MB
	MaxAge    int    `json:"max_age" mapstructure:"max_age"`   // days
	Compress  bool   `json:"compress" mapstructure:"compress"`
}

// EmbeddingConfig holds embedding provider configuration.
type EmbeddingConfig struct {
	Provider string `json:"provider" mapstructure:"provider"` // openai, none
	APIKey   string `json:"api_key" mapstructure:"api_key"`
	Model    string `json:"model" mapstructure:"model"`
}

// ContextConfig holds context assembly configuration.
type ContextConfig struct {
	TokenBudget int `json:"token_budget" mapstructure:"token_budget"`
}

// DecayConfig holds background maintenance configuration.
type DecayConfig struct {
	Schedule     string `json:"schedule" mapstructure:"schedule"` // cron expression
	MinGroupSize int    `json:"min_group_size" mapstructure:"min_group_size"`
	Watch        bool   `json:"watch" mapstructure:"watch"`
}

// DefaultConfig returns a config with default values.
func DefaultConfig() *Config {
	return &Config{
		Logging: LoggingConfig{
			Level:     "info",
			Console:   true,
			Pretty:    true,
			Redaction: true,
			MaxSize:   100,
			MaxAge:    7,
			Compress:  true,
		},
		Embedding: EmbeddingConfig{
			Provider: "openai",
			Model:    "text-embedding-3-small",
		},
		Context: ContextConfig{
			TokenBudget: 2000,
		},
		Decay: DecayConfig{
			Schedule:     "0 3 * * *",
			MinGroupSize: 3,
		},
	}
}

// String returns a JSON representation of the config.
func (c *Config) String() string {
	data, _ := json.MarshalIndent(c, "", "  ")
	return string(data)
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	switch c.Embedding.Provider {
	case "", "none", "openai":
	default:
		return fmt.Errorf("invalid embedding provider %q (must be: openai, none)", c.Embedding.Provider)
	}

	if c.Embedding.Provider == "openai" && c.Embedding.Model == "" {
		return fmt.Errorf("embedding model is required for the openai provider")
	}

	if c.Context.TokenBudget < 0 {
		return fmt.Errorf("context token budget must not be negative")
	}

	if c.Decay.MinGroupSize < 0 {
		return fmt.Errorf("decay min group size must not be negative")
	}

	switch c.Logging.Level {
	case "", "trace", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level %q", c.Logging.Level)
	}

	return nil
}
