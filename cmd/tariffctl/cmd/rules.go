package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "Show the tiered price rules derived from the catalog",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		rules, origin, err := loadRules(cmd.Context())
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), rules)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Rules: %s\n\n", origin)
		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "UP TO PAGE\tPRICE/PAGE\tFREE")
		for _, r := range rules {
			threshold := "unbounded"
			if !r.IsUnbounded() {
				threshold = fmt.Sprint(r.ThresholdPages)
			}
			fmt.Fprintf(tw, "%s\t%.2f\t%t\n", threshold, r.UnitPricePerPage, r.IsFree)
		}
		return tw.Flush()
	},
}
