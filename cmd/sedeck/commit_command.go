package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"sedeck/internal/export"
)

func newCommitCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "commit",
		Short: "Render adopted clips, append dictionary rows, and purge the catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			runner, err := ctx.runner()
			if err != nil {
				return err
			}
			summary, err := runner.Commit(cmd.Context())
			if err != nil {
				if errors.Is(err, export.ErrCollision) {
					return fmt.Errorf("%w; rename a clip, unadopt one, or set export.collision_policy", err)
				}
				return fmt.Errorf("commit aborted, catalog kept: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Rendered %d clips\n", len(summary.Rendered))
			if summary.RowsWritten > 0 {
				fmt.Fprintf(out, "Appended %d rows to %s\n", summary.RowsWritten, summary.DictionaryPath)
			} else {
				fmt.Fprintln(out, "No adopted clips; dictionary unchanged")
			}
			fmt.Fprintf(out, "Purged %d catalog rows (%d files removed)\n", summary.Purge.Rows, summary.Purge.FilesRemoved)
			for _, fe := range summary.Purge.FileErrors {
				fmt.Fprintf(out, "warn: could not remove %s: %v\n", fe.Path, fe.Err)
			}
			return nil
		},
	}
}
