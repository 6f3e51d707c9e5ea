package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"tunefetch/internal/deps"
)

func newDepsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "deps",
		Short: "Check external tool availability",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			statuses := deps.CheckBinaries(deps.Requirements(cfg))
			rows := make([][]string, 0, len(statuses))
			for _, status := range statuses {
				state := "ok"
				if !status.Available {
					state = status.Detail
				}
				rows = append(rows, []string{status.Name, status.Command, status.Description, state})
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderTable(out, []string{"Tool", "Command", "Purpose", "Status"}, rows, nil))
			return deps.MissingRequired(statuses)
		},
	}
}
