package config

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Wizard provides an interactive configuration wizard.
type Wizard struct {
	reader *bufio.Reader
}

// NewWizard creates a new configuration wizard.
func NewWizard() *Wizard {
	return &Wizard{
		reader: bufio.NewReader(os.Stdin),
	}
}

// Run runs the interactive configuration wizard.
func (w *Wizard) Run() (*Config, error) {
	fmt.Println("=== kiro-memory Configuration Wizard ===")
	fmt.Println()

	cfg := DefaultConfig()
	validator := NewValidator()

	// Embedding provider
	fmt.Println("Semantic search uses OpenAI embeddings. Without an API key")
	fmt.Println("retrieval falls back to full-text search only.")
	fmt.Println()

	for {
		fmt.Print("OpenAI API Key (press Enter to skip): ")
		key, err := w.readLine()
		if err != nil {
			return nil, err
		}

		if key == "" {
			cfg.Embedding.Provider = "none"
			break
		}

		if err := validator.ValidateAPIKey(key, "openai"); err != nil {
			fmt.Printf("Error: %v\n", err)
			continue
		}

		cfg.Embedding.APIKey = key
		break
	}

	if cfg.Embedding.Provider == "openai" {
		fmt.Print("Embedding model [text-embedding-3-small]: ")
		model, err := w.readLine()
		if err != nil {
			return nil, err
		}
		if model != "" {
			cfg.Embedding.Model = model
		}
	}

	fmt.Println()

	// Context budget
	fmt.Print("Context token budget [2000]: ")
	budget, err := w.readLine()
	if err != nil {
		return nil, err
	}
	if budget != "" {
		n, err := strconv.Atoi(budget)
		if err != nil || validator.ValidateTokenBudget(n) != nil {
			fmt.Println("Warning: invalid budget, using default (2000)")
		} else {
			cfg.Context.TokenBudget = n
		}
	}

	fmt.Println()

	// Maintenance schedule
	fmt.Print("Maintenance schedule (cron) [0 3 * * *]: ")
	schedule, err := w.readLine()
	if err != nil {
		return nil, err
	}
	if schedule != "" {
		if err := validator.ValidateSchedule(schedule); err != nil {
			fmt.Printf("Warning: %v, using default (0 3 * * *)\n", err)
		} else {
			cfg.Decay.Schedule = schedule
		}
	}

	fmt.Println()

	// Log Level
	fmt.Print("Log level (debug/info/warn/error) [info]: ")
	level, err := w.readLine()
	if err != nil {
		return nil, err
	}
	if level != "" {
		if err := validator.ValidateLogLevel(level); err != nil {
			fmt.Printf("Warning: %v, using default (info)\n", err)
		} else {
			cfg.Logging.Level = level
		}
	}

	fmt.Println()
	fmt.Println("Configuration complete!")

	return cfg, nil
}

func (w *Wizard) readLine() (string, error) {
	line, err := w.reader.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(line), nil
}
