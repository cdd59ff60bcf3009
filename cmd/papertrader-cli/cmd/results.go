package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	resultsLimit int
	exportPath   string
)

var resultsCmd = &cobra.Command{
	Use:   "results",
	Short: "List finished sessions from the server's results journal",
	Args:  cobra.NoArgs,
	RunE:  runResults,
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Download the session's trade history as an xlsx workbook",
	Long: `Download the trade history of the current or just-finished session
as an Excel workbook.

Examples:
  papertrader-cli export
  papertrader-cli export -o aapl.xlsx`,
	Args: cobra.NoArgs,
	RunE: runExport,
}

func init() {
	rootCmd.AddCommand(resultsCmd, exportCmd)

	resultsCmd.Flags().IntVarP(&resultsLimit, "limit", "n", 0, "maximum number of results (server default when 0)")
	exportCmd.Flags().StringVarP(&exportPath, "output", "o", "session-history.xlsx", "output file")
}

func runResults(cmd *cobra.Command, args []string) error {
	ctx, cancel := requestContext(cmd)
	defer cancel()

	results, err := newClient().Results(ctx, resultsLimit)
	if err != nil {
		return fmt.Errorf("results: %w", err)
	}
	printResults(cmd.OutOrStdout(), results)
	return nil
}

func runExport(cmd *cobra.Command, args []string) error {
	ctx, cancel := requestContext(cmd)
	defer cancel()

	data, err := newClient().HistoryXLSX(ctx)
	if err != nil {
		return fmt.Errorf("export: %w", err)
	}
	if err := os.WriteFile(exportPath, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", exportPath, err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d bytes to %s\n", len(data), exportPath)
	return nil
}
