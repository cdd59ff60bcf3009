package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"papertrader/pkg/papertrader"
)

const playHelp = `Commands:
  buy <shares>    (b)  buy at today's close, then advance
  sell <shares>   (s)  sell at today's close, then advance
  hold            (h)  hold, then advance
  quit            (q)  liquidate and end the session
  state                show the session
  summary              value the session at today's close
  help                 show this help
  exit                 leave without quitting the session`

var playDate string

var playCmd = &cobra.Command{
	Use:   "play <ticker>",
	Short: "Play a session interactively",
	Long: `Start a session for a ticker and play it from a prompt.

Every accepted buy, sell or hold moves the session to the next day. The
session ends when the window is exhausted or you quit.

` + playHelp,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		return play(ctx, newClient(), cmd.InOrStdin(), cmd.OutOrStdout(), args[0], playDate)
	},
}

func init() {
	rootCmd.AddCommand(playCmd)

	playCmd.Flags().StringVarP(&playDate, "date", "d", "", "first day of the window (YYYY-MM-DD)")
}

// play runs the prompt loop until the session ends, the input is exhausted
// or the player exits. Server-side rejections are printed and the loop
// continues.
func play(ctx context.Context, c *papertrader.Client, in io.Reader, out io.Writer, ticker, date string) error {
	st, err := c.StartGame(ctx, ticker, date)
	if err != nil {
		return fmt.Errorf("start: %w", err)
	}
	printState(out, st)
	fmt.Fprintln(out, "Type help for commands.")

	sc := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "> ")
		if !sc.Scan() {
			fmt.Fprintln(out)
			return sc.Err()
		}
		fields := strings.Fields(strings.ToLower(sc.Text()))
		if len(fields) == 0 {
			continue
		}

		done, err := playStep(ctx, c, out, fields)
		var apiErr *papertrader.APIError
		switch {
		case errors.As(err, &apiErr):
			fmt.Fprintln(out, apiErr.Message)
		case err != nil:
			return err
		case done:
			return nil
		}
	}
}

func playStep(ctx context.Context, c *papertrader.Client, out io.Writer, fields []string) (bool, error) {
	cmd := fields[0]
	switch cmd {
	case "b", "buy", "s", "sell":
		if len(fields) != 2 {
			fmt.Fprintf(out, "usage: %s <shares>\n", cmd)
			return false, nil
		}
		amount, err := decimal.NewFromString(fields[1])
		if err != nil {
			fmt.Fprintf(out, "invalid amount %q\n", fields[1])
			return false, nil
		}
		action := "buy"
		if cmd == "s" || cmd == "sell" {
			action = "sell"
		}
		res, err := c.Act(ctx, action, amount)
		if err != nil {
			return false, err
		}
		printAction(out, res)
		return advance(ctx, c, out)
	case "h", "hold":
		res, err := c.Hold(ctx)
		if err != nil {
			return false, err
		}
		printAction(out, res)
		return advance(ctx, c, out)
	case "q", "quit":
		res, err := c.Quit(ctx)
		if err != nil {
			return false, err
		}
		printAction(out, res)
		return true, nil
	case "state":
		st, err := c.State(ctx)
		if err != nil {
			return false, err
		}
		printState(out, st)
	case "summary":
		sum, err := c.Summary(ctx)
		if err != nil {
			return false, err
		}
		printSummary(out, sum)
	case "help", "?":
		fmt.Fprintln(out, playHelp)
	case "exit":
		return true, nil
	default:
		fmt.Fprintf(out, "unknown command %q; type help\n", cmd)
	}
	return false, nil
}

func advance(ctx context.Context, c *papertrader.Client, out io.Writer) (bool, error) {
	day, err := c.NextDay(ctx)
	if err != nil {
		return false, err
	}
	printDay(out, day)
	return day.Finished, nil
}
