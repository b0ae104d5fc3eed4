package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"sedeck/internal/tags"
)

func newParseCommand() *cobra.Command {
	return &cobra.Command{
		Use:         "parse <text>",
		Short:       "Show how message text is read as tags",
		Args:        cobra.MinimumNArgs(1),
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			text := strings.Join(args, " ")
			fields := tags.Parse(text)
			out := cmd.OutOrStdout()

			fmt.Fprintf(out, "Trigger:  %q\n", fields.Trigger)
			fmt.Fprintf(out, "Volume:   %d\n", fields.Volume)
			fmt.Fprintf(out, "Priority: %d\n", fields.Priority)
			fmt.Fprintf(out, "English:  %s\n", yesNo(fields.English))

			tokens := tags.Tokenize(text)
			if len(tokens) == 0 {
				return nil
			}
			rows := make([][]string, 0, len(tokens))
			for _, tok := range tokens {
				rows = append(rows, []string{tok.Key, string(tok.Separator), strconv.Quote(tok.Value), strconv.Itoa(tok.Offset)})
			}
			fmt.Fprint(out, renderTable([]string{"Key", "Sep", "Value", "Offset"}, rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight}))
			fmt.Fprintln(out)
			return nil
		},
	}
}
