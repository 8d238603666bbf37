package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/Auriti-Labs/kiro-memory-sub000/internal/config"
	"github.com/Auriti-Labs/kiro-memory-sub000/internal/logger"
	"github.com/Auriti-Labs/kiro-memory-sub000/pkg/decay"
	"github.com/Auriti-Labs/kiro-memory-sub000/pkg/embedding"
	"github.com/Auriti-Labs/kiro-memory-sub000/pkg/lexical"
	"github.com/Auriti-Labs/kiro-memory-sub000/pkg/port"
	"github.com/Auriti-Labs/kiro-memory-sub000/pkg/retriever"
	"github.com/Auriti-Labs/kiro-memory-sub000/pkg/store"
	"github.com/Auriti-Labs/kiro-memory-sub000/pkg/vector"
)

// App owns the wired components for one command invocation. Commands
// open it, use what they need, and close it on the way out.
type App struct {
	Config    *config.Config
	Logger    *logger.Logger
	Store     *store.Store
	Provider  *embedding.Lazy
	Lexical   *lexical.Index
	Vector    *vector.Index
	Retriever *retriever.Retriever
	Sweeper   *decay.Sweeper
	Porter    *port.Porter
}

// openApp loads configuration and wires every component. Commands that
// only need a subset still pay the same small setup cost; the embedding
// provider stays uninitialized until first use.
func openApp() (*App, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}

	lg, err := logger.New(logger.Config{
		Level:     cfg.Logging.Level,
		File:      cfg.Logging.File,
		Console:   cfg.Logging.Console,
		Pretty:    cfg.Logging.Pretty,
		Redaction: cfg.Logging.Redaction,
		MaxSize:   cfg.Logging.MaxSize,
		MaxAge:    cfg.Logging.MaxAge,
		Compress:  cfg.Logging.Compress,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}
	zl := lg.GetZerolog()

	st, err := store.Open(store.Config{
		Path:   cfg.DBPath,
		Logger: zl,
	})
	if err != nil {
		lg.Close()
		return nil, err
	}

	var inner embedding.Provider
	if cfg.Embedding.Provider == "openai" && cfg.Embedding.APIKey != "" {
		inner = embedding.NewOpenAIProvider(cfg.Embedding.APIKey, cfg.Embedding.Model)
	}
	lazy := embedding.NewLazy(inner, zl)

	lex := lexical.NewIndex(st, zl)
	vec := vector.NewIndex(st, zl)

	app := &App{
		Config:   cfg,
		Logger:   lg,
		Store:    st,
		Provider: lazy,
		Lexical:  lex,
		Vector:   vec,
		Retriever: retriever.New(retriever.Config{
			Store:         st,
			Lexical:       lex,
			Vector:        vec,
			Provider:      lazy,
			Logger:        zl,
			ContextBudget: cfg.Context.TokenBudget,
		}),
		Sweeper: decay.NewSweeper(st, zl),
		Porter:  port.New(st, zl),
	}
	return app, nil
}

// Close releases the store and log file.
func (a *App) Close() {
	if a.Store != nil {
		a.Store.Close()
	}
	if a.Logger != nil {
		a.Logger.Close()
	}
}

// printJSON renders command output as indented JSON on stdout.
func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
