package main

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"sedeck/internal/catalog"
)

func newListCommand(ctx *commandContext) *cobra.Command {
	var adoptedOnly bool
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "Show catalogued clips, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.openStore()
			if err != nil {
				return err
			}
			items, err := store.GetAll(cmd.Context())
			if err != nil {
				return err
			}
			if adoptedOnly {
				filtered := items[:0]
				for _, item := range items {
					if item.IsAdopted {
						filtered = append(filtered, item)
					}
				}
				items = filtered
			}

			if jsonOutput {
				if items == nil {
					items = []catalog.Item{}
				}
				return writeJSON(cmd.OutOrStdout(), items)
			}

			out := cmd.OutOrStdout()
			if len(items) == 0 {
				fmt.Fprintln(out, "Catalog is empty")
				return nil
			}
			rows := make([][]string, 0, len(items))
			for _, item := range items {
				rows = append(rows, []string{
					item.FileName,
					item.Trigger,
					strconv.Itoa(item.VolumePercent),
					strconv.Itoa(item.Priority),
					yesNo(item.IsEnglish),
					yesNo(item.IsAdopted),
					fileSize(item.FilePath),
					humanize.RelTime(item.CreatedAt, time.Now(), "ago", "from now"),
				})
			}
			fmt.Fprint(out, renderTable(
				[]string{"File", "Trigger", "Vol", "Pri", "English", "Adopted", "Size", "Fetched"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignLeft, alignLeft, alignRight, alignLeft},
			))
			fmt.Fprintln(out)
			return nil
		},
	}

	cmd.Flags().BoolVar(&adoptedOnly, "adopted", false, "Only show adopted clips")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func fileSize(path string) string {
	info, err := os.Stat(path)
	if err != nil {
		return "missing"
	}
	return humanize.IBytes(uint64(info.Size()))
}
