package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"sedeck/internal/catalog"
)

func newEditCommand(ctx *commandContext) *cobra.Command {
	var (
		trigger  string
		volume   int
		priority int
		english  bool
		adopt    bool
	)

	cmd := &cobra.Command{
		Use:   "edit <file>",
		Short: "Change the trigger, volume, priority, or flags of a clip",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			flags := cmd.Flags()
			if flags.Changed("trigger") && strings.TrimSpace(trigger) == "" {
				return errors.New("trigger cannot be empty")
			}
			runner, err := ctx.runner()
			if err != nil {
				return err
			}
			item, err := runner.Edit(cmd.Context(), strings.TrimSpace(args[0]), func(item *catalog.Item) error {
				if flags.Changed("trigger") {
					item.Trigger = strings.TrimSpace(trigger)
				}
				if flags.Changed("volume") {
					item.VolumePercent = volume
				}
				if flags.Changed("priority") {
					item.Priority = priority
				}
				if flags.Changed("english") {
					item.IsEnglish = english
				}
				if flags.Changed("adopt") {
					item.IsAdopted = adopt
				}
				return nil
			})
			if err != nil {
				return withListHint(err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: trigger=%q volume=%d priority=%d english=%s adopted=%s\n",
				item.FileName, item.Trigger, item.VolumePercent, item.Priority, yesNo(item.IsEnglish), yesNo(item.IsAdopted))
			return nil
		},
	}

	cmd.Flags().StringVar(&trigger, "trigger", "", "Activation phrase")
	cmd.Flags().IntVar(&volume, "volume", 50, "Volume percent (1-100, out of range resets to 50)")
	cmd.Flags().IntVar(&priority, "priority", 50, "Priority (clamped to 1-99)")
	cmd.Flags().BoolVar(&english, "english", false, "Mark as English")
	cmd.Flags().BoolVar(&adopt, "adopt", false, "Adopt for the next commit")
	return cmd
}

func newAdoptCommand(ctx *commandContext, adopted bool) *cobra.Command {
	use, short := "adopt <file>...", "Mark clips for export on the next commit"
	if !adopted {
		use, short = "unadopt <file>...", "Exclude clips from the next commit"
	}
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			runner, err := ctx.runner()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, name := range args {
				item, err := runner.Edit(cmd.Context(), strings.TrimSpace(name), func(item *catalog.Item) error {
					item.IsAdopted = adopted
					return nil
				})
				if err != nil {
					return withListHint(err)
				}
				fmt.Fprintf(out, "%s adopted=%s\n", item.FileName, yesNo(adopted))
			}
			return nil
		},
	}
}

func withListHint(err error) error {
	if errors.Is(err, catalog.ErrNotFound) {
		return fmt.Errorf("%w (see 'sedeck list')", err)
	}
	return err
}
