package cmd

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

var startDate string

var startCmd = &cobra.Command{
	Use:   "start <ticker>",
	Short: "Start a new session for a ticker",
	Long: `Start a new session for a ticker, replacing any session in progress.

Without --date the server picks a random historical window.`,
	Args: cobra.ExactArgs(1),
	RunE: runStart,
}

var buyCmd = &cobra.Command{
	Use:   "buy <shares>",
	Short: "Buy shares at the current day's close",
	Args:  cobra.ExactArgs(1),
	RunE:  runTrade("buy"),
}

var sellCmd = &cobra.Command{
	Use:   "sell <shares>",
	Short: "Sell shares at the current day's close",
	Args:  cobra.ExactArgs(1),
	RunE:  runTrade("sell"),
}

var holdCmd = &cobra.Command{
	Use:   "hold",
	Short: "Record a hold for the current day",
	Args:  cobra.NoArgs,
	RunE:  runTrade("hold"),
}

var quitCmd = &cobra.Command{
	Use:   "quit",
	Short: "Liquidate the position and end the session",
	Args:  cobra.NoArgs,
	RunE:  runTrade("quit"),
}

var nextCmd = &cobra.Command{
	Use:   "next",
	Short: "Advance to the next trading day",
	Args:  cobra.NoArgs,
	RunE:  runNext,
}

var stateCmd = &cobra.Command{
	Use:   "state",
	Short: "Show the active session",
	Args:  cobra.NoArgs,
	RunE:  runState,
}

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Value the active session at the current day's close",
	Args:  cobra.NoArgs,
	RunE:  runSummary,
}

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Discard the session",
	Args:  cobra.NoArgs,
	RunE:  runReset,
}

func init() {
	rootCmd.AddCommand(startCmd, buyCmd, sellCmd, holdCmd, quitCmd, nextCmd, stateCmd, summaryCmd, resetCmd)

	startCmd.Flags().StringVarP(&startDate, "date", "d", "", "first day of the window (YYYY-MM-DD)")
}

func runStart(cmd *cobra.Command, args []string) error {
	ctx, cancel := requestContext(cmd)
	defer cancel()

	st, err := newClient().StartGame(ctx, args[0], startDate)
	if err != nil {
		return fmt.Errorf("start: %w", err)
	}
	printState(cmd.OutOrStdout(), st)
	return nil
}

func runTrade(action string) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		amount := decimal.Zero
		if len(args) > 0 {
			a, err := decimal.NewFromString(args[0])
			if err != nil {
				return fmt.Errorf("invalid amount %q: %w", args[0], err)
			}
			amount = a
		}

		ctx, cancel := requestContext(cmd)
		defer cancel()

		res, err := newClient().Act(ctx, action, amount)
		if err != nil {
			return fmt.Errorf("%s: %w", action, err)
		}
		printAction(cmd.OutOrStdout(), res)
		return nil
	}
}

func runNext(cmd *cobra.Command, args []string) error {
	ctx, cancel := requestContext(cmd)
	defer cancel()

	day, err := newClient().NextDay(ctx)
	if err != nil {
		return fmt.Errorf("next day: %w", err)
	}
	printDay(cmd.OutOrStdout(), day)
	return nil
}

func runState(cmd *cobra.Command, args []string) error {
	ctx, cancel := requestContext(cmd)
	defer cancel()

	st, err := newClient().State(ctx)
	if err != nil {
		return fmt.Errorf("state: %w", err)
	}
	printState(cmd.OutOrStdout(), st)
	return nil
}

func runSummary(cmd *cobra.Command, args []string) error {
	ctx, cancel := requestContext(cmd)
	defer cancel()

	sum, err := newClient().Summary(ctx)
	if err != nil {
		return fmt.Errorf("summary: %w", err)
	}
	printSummary(cmd.OutOrStdout(), sum)
	return nil
}

func runReset(cmd *cobra.Command, args []string) error {
	ctx, cancel := requestContext(cmd)
	defer cancel()

	if _, err := newClient().Reset(ctx); err != nil {
		return fmt.Errorf("reset: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Session reset.")
	return nil
}
