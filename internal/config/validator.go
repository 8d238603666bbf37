package config

import (
	"fmt"
	"strings"

	"github.com/robfig/cron/v3"
)

// Validator validates individual configuration values.
type Validator struct{}

// NewValidator creates a new validator.
func NewValidator() *Validator {
	return &Validator{}
}

// ValidateAPIKey validates an API key format.
func (v *Validator) ValidateAPIKey(key string, provider string) error {
	if key == "" {
		return fmt.Errorf("%s API key cannot be empty", provider)
	}

	switch provider {
	case "openai":
		if !strings.HasPrefix(key, "sk-") {
			return fmt.Errorf("invalid OpenAI API key format (should start with sk-)")
		}
		if len(key) < 20 {
			return fmt.Errorf("invalid OpenAI API key format (too short)")
		}
	}

	return nil
}

// ValidateLogLevel validates a log level name.
func (v *Validator) ValidateLogLevel(level string) error {
	switch level {
	case "trace", "debug", "info", "warn", "error":
		return nil
	}
	return fmt.Errorf("invalid log level %s (must be: trace, debug, info, warn, error)", level)
}

// ValidateSchedule validates a cron expression.
func (v *Validator) ValidateSchedule(expr string) error {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	if _, err := parser.Parse(expr); err != nil {
		return fmt.Errorf("invalid cron expression: %w", err)
	}
	return nil
}

// ValidateTokenBudget validates a context token budget.
func (v *Validator) ValidateTokenBudget(budget int) error {
	if budget <= 0 {
		return fmt.Errorf("token budget must be positive")
	}
	return nil
}
