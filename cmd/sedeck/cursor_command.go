package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newCursorCommand(ctx *commandContext) *cobra.Command {
	cursorCmd := &cobra.Command{
		Use:   "cursor",
		Short: "Inspect or reset the fetch resume point",
	}

	cursorCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the last fetched message ID",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.openStore()
			if err != nil {
				return err
			}
			id, ok, err := store.GetCursor(cmd.Context())
			if err != nil {
				return err
			}
			if !ok {
				fmt.Fprintln(cmd.OutOrStdout(), "No cursor; the next fetch starts from the most recent messages")
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), id)
			return nil
		},
	})

	cursorCmd.AddCommand(&cobra.Command{
		Use:   "reset",
		Short: "Forget the resume point",
		RunE: func(cmd *cobra.Command, args []string) error {
			runner, err := ctx.runner()
			if err != nil {
				return err
			}
			if err := runner.ResetCursor(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Cursor reset")
			return nil
		},
	})

	return cursorCmd
}
