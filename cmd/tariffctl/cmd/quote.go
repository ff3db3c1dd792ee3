package cmd

import (
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"correction_pricing/internal/pricing"
)

var quoteCmd = &cobra.Command{
	Use:   "quote <pages>...",
	Short: "Price one or more manuscripts by page count",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runQuote,
}

func runQuote(cmd *cobra.Command, args []string) error {
	pages := make([]int, 0, len(args))
	for _, arg := range args {
		n, err := strconv.Atoi(arg)
		if err != nil || n < 0 {
			return fmt.Errorf("invalid page count %q: must be a non-negative integer", arg)
		}
		pages = append(pages, n)
	}

	rules, origin, err := loadRules(cmd.Context())
	if err != nil {
		return err
	}

	quotes := make([]pricing.Breakdown, 0, len(pages))
	for _, n := range pages {
		quotes = append(quotes, pricing.ComputeBreakdown(n, rules))
	}

	if jsonOutput {
		return printJSON(cmd.OutOrStdout(), quotes)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Rules: %s\n\n", origin)
	return writeQuotes(cmd.OutOrStdout(), quotes)
}

func writeQuotes(w io.Writer, quotes []pricing.Breakdown) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "PAGES\tFREE\tTIER 2\tTIER 3\tTOTAL\tAVG/PAGE\tSAVINGS\tDELIVERY")
	for _, q := range quotes {
		fmt.Fprintf(tw, "%d\t%d\t%d (%.2f)\t%d (%.2f)\t%.2f\t%.2f\t%.2f\t%s\n",
			q.PageCount, q.FreePages,
			q.Tier2Pages, q.Tier2Amount,
			q.Tier3Pages, q.Tier3Amount,
			q.TotalAmount, q.AveragePricePerPage, q.EstimatedSavings,
			q.EstimatedDeliveryLabel)
	}
	return tw.Flush()
}
