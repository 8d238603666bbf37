package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/Auriti-Labs/kiro-memory-sub000/pkg/store"
	"github.com/Auriti-Labs/kiro-memory-sub000/pkg/vector"
)

var observeFlags struct {
	project       string
	obsType       string
	title         string
	subtitle      string
	body          string
	narrative     string
	facts         string
	concepts      []string
	filesRead     []string
	filesModified []string
	promptNumber  int
	session       string
}

var observeCmd = &cobra.Command{
	Use:   "observe",
	Short: "Record an observation",
	Long: `Record one observation into the memory store. Duplicate content
inside the type's dedup window is silently discarded. When an
embedding provider is configured the observation is embedded
immediately so it is findable by semantic search.`,
	RunE: runObserve,
}

func init() {
	observeCmd.Flags().StringVar(&observeFlags.project, "project", "", "project the observation belongs to (required)")
	observeCmd.Flags().StringVar(&observeFlags.obsType, "type", "", "observation type, e.g. file-write, command, decision (required)")
	observeCmd.Flags().StringVar(&observeFlags.title, "title", "", "short title (required)")
	observeCmd.Flags().StringVar(&observeFlags.subtitle, "subtitle", "", "optional subtitle")
	observeCmd.Flags().StringVar(&observeFlags.body, "body", "", "full content")
	observeCmd.Flags().StringVar(&observeFlags.narrative, "narrative", "", "first-person account of what happened")
	observeCmd.Flags().StringVar(&observeFlags.facts, "facts", "", "structured facts as JSON, for knowledge types")
	observeCmd.Flags().StringSliceVar(&observeFlags.concepts, "concept", nil, "concept tag (repeatable)")
	observeCmd.Flags().StringSliceVar(&observeFlags.filesRead, "file-read", nil, "file that was read (repeatable)")
	observeCmd.Flags().StringSliceVar(&observeFlags.filesModified, "file-modified", nil, "file that was modified (repeatable)")
	observeCmd.Flags().IntVar(&observeFlags.promptNumber, "prompt-number", 0, "prompt number within the session")
	observeCmd.Flags().StringVar(&observeFlags.session, "session", "", "external session id to attach the observation to")
	observeCmd.MarkFlagRequired("project")
	observeCmd.MarkFlagRequired("type")
	observeCmd.MarkFlagRequired("title")

	rootCmd.AddCommand(observeCmd)
}

func runObserve(cmd *cobra.Command, args []string) error {
	app, err := openApp()
	if err != nil {
		return err
	}
	defer app.Close()

	if observeFlags.session != "" {
		if _, err := app.Store.EnsureSession(observeFlags.session, observeFlags.project); err != nil {
			return err
		}
	}

	id, err := app.Store.InsertObservation(store.NewObservation{
		Project:       observeFlags.project,
		Type:          observeFlags.obsType,
		Title:         observeFlags.title,
		Subtitle:      observeFlags.subtitle,
		Body:          observeFlags.body,
		Narrative:     observeFlags.narrative,
		Facts:         observeFlags.facts,
		Concepts:      observeFlags.concepts,
		FilesRead:     observeFlags.filesRead,
		FilesModified: observeFlags.filesModified,
		PromptNumber:  observeFlags.promptNumber,
	})
	if err != nil {
		return err
	}

	if id == store.DuplicateID {
		return printJSON(map[string]any{
			"status": "duplicate",
		})
	}

	embedObservation(cmd.Context(), app, id)

	return printJSON(map[string]any{
		"status": "stored",
		"id":     id,
	})
}

// embedObservation embeds a freshly stored observation. Best-effort:
// without a provider the observation stays lexical-only until a later
// backfill.
func embedObservation(ctx context.Context, app *App, id int64) {
	if ctx == nil {
		ctx = context.Background()
	}
	obs, err := app.Store.GetObservation(id)
	if err != nil {
		return
	}

	zl := app.Logger.GetZerolog()
	vec, err := app.Provider.Embed(ctx, vector.EmbeddingText(*obs))
	if err != nil || vec == nil {
		if err != nil {
			zl.Warn().Err(err).Int64("id", id).Msg("Failed to embed observation")
		}
		return
	}

	if err := app.Vector.StoreEmbedding(id, vec, app.Provider.Name()); err != nil {
		zl.Warn().Err(err).Int64("id", id).Msg("Failed to store embedding")
	}
}
