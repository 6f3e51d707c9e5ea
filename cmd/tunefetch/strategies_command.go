package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"tunefetch/internal/strategy"
)

func newStrategiesCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "strategies",
		Short: "Show the acquisition strategy table and current eligibility",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			tableData := strategy.NewTable(cfg.Strategies)
			prober := strategy.NewCookieStore()
			eligible, skipped := tableData.Eligible(prober)

			skipReasons := make(map[string]string, len(skipped))
			for _, skip := range skipped {
				skipReasons[skip.Strategy.Name] = skip.Reason
			}
			eligibleSet := make(map[string]struct{}, len(eligible))
			for _, s := range eligible {
				eligibleSet[s.Name] = struct{}{}
			}

			rows := make([][]string, 0, tableData.Len())
			for _, s := range tableData.All() {
				status := "skipped: " + skipReasons[s.Name]
				if _, ok := eligibleSet[s.Name]; ok {
					status = "eligible"
				}
				cookieSource := s.CookieSource
				if cookieSource == "" {
					cookieSource = "-"
				}
				rows = append(rows, []string{
					fmt.Sprintf("%d", s.Order),
					s.Name,
					strings.Join(s.ClientProfiles, ","),
					cookieSource,
					yesNo(s.MissingPOT),
					status,
				})
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderTable(out,
				[]string{"#", "Name", "Clients", "Cookies", "Missing POT", "Status"},
				rows,
				[]columnAlignment{alignRight},
			))
			fmt.Fprintf(out, "%d of %d strategies currently eligible\n", len(eligible), tableData.Len())
			return nil
		},
	}
}
