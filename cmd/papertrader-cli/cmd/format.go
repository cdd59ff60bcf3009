package cmd

import (
	"fmt"
	"io"
	"text/tabwriter"

	"papertrader/pkg/papertrader"
)

func printState(w io.Writer, s papertrader.State) {
	if s.Ticker == "" {
		fmt.Fprintln(w, "No session started.")
		return
	}
	status := "finished"
	if s.IsActive {
		status = "active"
	}
	fmt.Fprintf(w, "%s from %s (%s)\n", s.Ticker, s.StartDate, status)
	if p, ok := s.CurrentPrice(); ok {
		fmt.Fprintf(w, "Day %d of %d: %s close %s\n", s.CurrentDayIndex+1, len(s.PriceSeries), p.Date, p.ClosingPrice.StringFixed(2))
	}
	fmt.Fprintf(w, "Cash: %s  Shares: %s\n", s.CashBalance.StringFixed(2), s.SharesHeld.String())
	if len(s.TradeHistory) == 0 {
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "DATE\tACTION\tAMOUNT\tPRICE")
	for _, tr := range s.TradeHistory {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", tr.Date, tr.Action, tr.Amount.String(), tr.Price.StringFixed(2))
	}
	tw.Flush()
}

func printSummary(w io.Writer, s papertrader.Summary) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Final balance:\t%s\n", s.FinalBalance.StringFixed(2))
	fmt.Fprintf(tw, "Stock value:\t%s\n", s.FinalStockValue.StringFixed(2))
	fmt.Fprintf(tw, "Portfolio value:\t%s\n", s.TotalPortfolioValue.StringFixed(2))
	fmt.Fprintf(tw, "Profit/loss:\t%s\n", s.ProfitLoss.StringFixed(2))
	fmt.Fprintf(tw, "Days played:\t%d\n", s.DaysPlayed)
	tw.Flush()
}

func printAction(w io.Writer, r papertrader.ActionResult) {
	fmt.Fprintf(w, "%s (%s %s @ %s)\n", r.Message, r.Trade.Action, r.Trade.Amount.String(), r.Trade.Price.StringFixed(2))
	fmt.Fprintf(w, "Cash: %s  Shares: %s\n", r.CashBalance.StringFixed(2), r.SharesHeld.String())
	if r.Summary != nil {
		printSummary(w, *r.Summary)
	}
}

func printDay(w io.Writer, d papertrader.DayResult) {
	fmt.Fprintln(w, d.Message)
	if d.CurrentPrice != nil {
		fmt.Fprintf(w, "Day %d: %s close %s\n", d.CurrentDayIndex+1, d.CurrentPrice.Date, d.CurrentPrice.ClosingPrice.StringFixed(2))
	}
	fmt.Fprintf(w, "Cash: %s  Shares: %s\n", d.CashBalance.StringFixed(2), d.SharesHeld.String())
	if d.Summary != nil {
		printSummary(w, *d.Summary)
	}
}

func printResults(w io.Writer, results []papertrader.Result) {
	if len(results) == 0 {
		fmt.Fprintln(w, "No results recorded.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ENDED\tTICKER\tSTART\tDAYS\tTRADES\tFINAL\tP/L\tREASON")
	for _, r := range results {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%s\t%s\t%s\n",
			r.EndedAt.Local().Format("2006-01-02 15:04"), r.Ticker, r.StartDate, r.DaysPlayed, r.Trades,
			r.FinalBalance.StringFixed(2), r.ProfitLoss.StringFixed(2), r.Reason)
	}
	tw.Flush()
}
