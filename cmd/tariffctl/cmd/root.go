// Package cmd provides the tariffctl commands.
package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/bytedance/sonic"
	"github.com/spf13/cobra"

	"correction_pricing/internal/catalog"
	"correction_pricing/internal/logging"
	"correction_pricing/internal/pricing"
)

var (
	catalogFile string
	catalogURL  string
	timeout     time.Duration
	jsonOutput  bool
	verbose     bool
)

var rootCmd = &cobra.Command{
	Use:   "tariffctl",
	Short: "Inspect correction pricing from the command line",
	Long: `tariffctl prices manuscripts with the same rules the pricing service uses.

Rules come from a catalog file (--file), a running pricing service (--url),
or the built-in default rules when neither is given.

Examples:
  tariffctl quote 150
  tariffctl quote 420 --file tariffs.json --json
  tariffctl rules --url http://pricing:8080
  tariffctl invalidate --redis localhost:6379 --reason "bulk import"`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := "warn"
		if verbose {
			level = "debug"
		}
		if err := logging.Initialize(logging.Config{Level: level, Format: "console", Output: "stderr"}); err != nil {
			fmt.Fprintf(os.Stderr, "Error initializing logging: %v\n", err)
		}
	},
}

// Execute runs the CLI
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&catalogFile, "file", "f", "", "catalog JSON file")
	rootCmd.PersistentFlags().StringVar(&catalogURL, "url", "", "base URL of a running pricing service")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 10*time.Second, "per-attempt catalog fetch timeout")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "print JSON")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")

	rootCmd.AddCommand(quoteCmd)
	rootCmd.AddCommand(rulesCmd)
	rootCmd.AddCommand(invalidateCmd)
}

// loadRules resolves the rule set from the configured catalog, if any
func loadRules(ctx context.Context) ([]pricing.Rule, string, error) {
	var source catalog.Source
	deadline := timeout
	switch {
	case catalogFile != "" && catalogURL != "":
		return nil, "", fmt.Errorf("--file and --url are mutually exclusive")
	case catalogFile != "":
		source = catalog.NewFileSource(catalogFile)
	case catalogURL != "":
		retrying := catalog.NewRetrying(catalog.NewHTTPSource(catalogURL, timeout), catalog.DefaultAttempts, 200*time.Millisecond).
			WithAttemptTimeout(timeout)
		source = retrying
		deadline = retrying.Budget()
	default:
		return pricing.DefaultRules(), "default rules", nil
	}

	ctx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()

	tariffs, err := source.FetchCatalog(ctx)
	if err != nil {
		return nil, "", fmt.Errorf("failed to load catalog: %w", err)
	}
	origin := catalogFile
	if origin == "" {
		origin = catalogURL
	}
	return pricing.ExtractRules(tariffs), fmt.Sprintf("%s (%d active tariffs)", origin, len(tariffs)), nil
}

func printJSON(w io.Writer, v interface{}) error {
	out, err := sonic.ConfigStd.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(out))
	return err
}
