package cli

import (
	"github.com/spf13/cobra"

	"github.com/Auriti-Labs/kiro-memory-sub000/pkg/store"
)

var sessionFlags struct {
	project string
	title   string
	body    string
	number  int
}

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Manage memory sessions",
}

var sessionStartCmd = &cobra.Command{
	Use:   "start <session-id>",
	Short: "Ensure a session exists for an external session id",
	Args:  cobra.ExactArgs(1),
	RunE:  runSessionStart,
}

var sessionEndCmd = &cobra.Command{
	Use:   "end <session-id>",
	Short: "Mark a session completed, optionally with a summary",
	Args:  cobra.ExactArgs(1),
	RunE:  runSessionEnd,
}

var sessionPromptCmd = &cobra.Command{
	Use:   "prompt <session-id> <text>",
	Short: "Record a user prompt within a session",
	Args:  cobra.ExactArgs(2),
	RunE:  runSessionPrompt,
}

func init() {
	sessionStartCmd.Flags().StringVar(&sessionFlags.project, "project", "", "project the session belongs to (required)")
	sessionStartCmd.MarkFlagRequired("project")

	sessionEndCmd.Flags().StringVar(&sessionFlags.project, "project", "", "project the session belongs to")
	sessionEndCmd.Flags().StringVar(&sessionFlags.title, "summary-title", "", "record a closing summary with this title")
	sessionEndCmd.Flags().StringVar(&sessionFlags.body, "summary-body", "", "closing summary body")

	sessionPromptCmd.Flags().StringVar(&sessionFlags.project, "project", "", "project the prompt belongs to (required)")
	sessionPromptCmd.Flags().IntVar(&sessionFlags.number, "number", 0, "prompt number within the session")
	sessionPromptCmd.MarkFlagRequired("project")

	sessionCmd.AddCommand(sessionStartCmd)
	sessionCmd.AddCommand(sessionEndCmd)
	sessionCmd.AddCommand(sessionPromptCmd)
	rootCmd.AddCommand(sessionCmd)
}

func runSessionStart(cmd *cobra.Command, args []string) error {
	app, err := openApp()
	if err != nil {
		return err
	}
	defer app.Close()

	sess, err := app.Store.EnsureSession(args[0], sessionFlags.project)
	if err != nil {
		return err
	}

	return printJSON(sess)
}

func runSessionEnd(cmd *cobra.Command, args []string) error {
	app, err := openApp()
	if err != nil {
		return err
	}
	defer app.Close()

	if sessionFlags.title != "" {
		if _, err := app.Store.InsertSummary(store.Summary{
			Project:          sessionFlags.project,
			ContentSessionID: args[0],
			Title:            sessionFlags.title,
			Body:             sessionFlags.body,
		}); err != nil {
			return err
		}
	}

	if err := app.Store.CompleteSession(args[0]); err != nil {
		return err
	}

	return printJSON(map[string]any{
		"status": "completed",
	})
}

func runSessionPrompt(cmd *cobra.Command, args []string) error {
	app, err := openApp()
	if err != nil {
		return err
	}
	defer app.Close()

	if _, err := app.Store.EnsureSession(args[0], sessionFlags.project); err != nil {
		return err
	}

	id, err := app.Store.InsertPrompt(store.Prompt{
		Project:          sessionFlags.project,
		ContentSessionID: args[0],
		Number:           sessionFlags.number,
		Text:             args[1],
	})
	if err != nil {
		return err
	}

	return printJSON(map[string]any{
		"status": "stored",
		"id":     id,
	})
}
