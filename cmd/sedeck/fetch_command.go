package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"sedeck/internal/fetcher"
	"sedeck/internal/pipeline"
)

func newFetchCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Pull new channel messages and download their sound clips",
		RunE: func(cmd *cobra.Command, args []string) error {
			runner, err := ctx.runner()
			if err != nil {
				return err
			}
			outcome, runErr := runner.Fetch(cmd.Context())
			if jsonOutput {
				if err := writeJSON(cmd.OutOrStdout(), fetchJSON(outcome)); err != nil {
					return err
				}
				return runErr
			}

			out := cmd.OutOrStdout()
			title := cases.Title(language.English).String(string(outcome.Status))
			fmt.Fprintf(out, "%s: %d messages, %d new, %d already catalogued\n",
				title, outcome.Messages, outcome.Inserted, outcome.Skipped)
			if outcome.CursorAdvanced {
				fmt.Fprintf(out, "Cursor advanced to %d\n", outcome.Cursor)
			}
			for _, path := range outcome.Cleaned {
				fmt.Fprintf(out, "Removed %s\n", path)
			}
			if runErr != nil {
				var failure *fetcher.DownloadFailure
				if errors.As(runErr, &failure) {
					return fmt.Errorf("fetch %s: %w", outcome.Status, runErr)
				}
				if errors.Is(runErr, pipeline.ErrBusy) {
					return fmt.Errorf("%w; wait for the running cycle to finish", runErr)
				}
				return runErr
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output the cycle outcome as JSON")
	return cmd
}

type fetchOutcomeJSON struct {
	RunID          string `json:"run_id"`
	Status         string `json:"status"`
	Messages       int    `json:"messages"`
	Inserted       int    `json:"inserted"`
	Skipped        int    `json:"skipped"`
	Cursor         uint64 `json:"cursor"`
	CursorAdvanced bool   `json:"cursor_advanced"`
	Error          string `json:"error,omitempty"`
}

func fetchJSON(o pipeline.Outcome) fetchOutcomeJSON {
	out := fetchOutcomeJSON{
		RunID:          o.RunID,
		Status:         string(o.Status),
		Messages:       o.Messages,
		Inserted:       o.Inserted,
		Skipped:        o.Skipped,
		Cursor:         o.Cursor,
		CursorAdvanced: o.CursorAdvanced,
	}
	if o.Err != nil {
		out.Error = o.Err.Error()
	}
	return out
}
