package cmd

import (
	"context"
	"os"
	"time"

	"github.com/spf13/cobra"

	"papertrader/pkg/papertrader"
)

var (
	serverURL string
	timeout   time.Duration
)

var rootCmd = &cobra.Command{
	Use:   "papertrader-cli",
	Short: "Play a seven-day paper-trading session against papertrader-server",
	Long: `papertrader-cli drives a papertrader-server session from the terminal.

A session covers a historical window of up to seven trading days for one
ticker. Each day you may buy, sell or hold, then advance to the next day.
Quitting early liquidates the position at the current day's price.

Examples:
  papertrader-cli start AAPL
  papertrader-cli buy 10
  papertrader-cli next
  papertrader-cli summary
  papertrader-cli play TSLA --date 2024-03-04`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	def := os.Getenv("PAPERTRADER_URL")
	if def == "" {
		def = papertrader.DefaultBaseURL
	}
	rootCmd.PersistentFlags().StringVarP(&serverURL, "server", "s", def, "papertrader-server base URL (env PAPERTRADER_URL)")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 30*time.Second, "per-request timeout")
}

func newClient() *papertrader.Client {
	return papertrader.NewClient(serverURL)
}

// requestContext bounds a single command by --timeout.
func requestContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}
