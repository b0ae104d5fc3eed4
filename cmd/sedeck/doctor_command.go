package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"sedeck/internal/deps"
)

func newDoctorCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check external binaries, directories, and credentials",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			statuses := deps.CheckBinaries(deps.Requirements(cfg))
			for i := range statuses {
				if !statuses[i].Available {
					continue
				}
				if v, err := deps.Version(cmd.Context(), statuses[i].Command); err == nil {
					statuses[i].Detail = v
				}
			}
			statuses = append(statuses,
				deps.CheckWritableDir("Download dir", cfg.Paths.DownloadDir),
			)
			if cfg.RequireOutput() == nil {
				statuses = append(statuses, deps.CheckWritableDir("Output root", cfg.Paths.OutputRoot))
			} else {
				statuses = append(statuses, deps.Status{Name: "Output root", Detail: "paths.output_root not set"})
			}
			credentials := deps.Status{Name: "Discord", Command: strconv.FormatUint(cfg.Discord.ChannelID, 10), Available: true}
			if err := cfg.RequireDiscord(); err != nil {
				credentials.Available = false
				credentials.Detail = err.Error()
			}
			statuses = append(statuses, credentials)

			rows := make([][]string, 0, len(statuses))
			failed := 0
			for _, s := range statuses {
				state := "ok"
				if !s.Available {
					state = "missing"
					if s.Optional {
						state = "optional"
					} else {
						failed++
					}
				}
				rows = append(rows, []string{s.Name, state, s.Command, s.Detail})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Check", "State", "Target", "Detail"}, rows, nil))
			if failed > 0 {
				return fmt.Errorf("%d checks failed", failed)
			}
			return nil
		},
	}
}
