package backtest

import (
	"fmt"
	"io"
	"sort"
	"time"
)

// PrintSummary writes a human-readable report of r.
func PrintSummary(w io.Writer, p Params, r *Result) {
	s := r.Stats
	fmt.Fprintln(w, "==================================================")
	fmt.Fprintln(w, " Backtest Result")
	fmt.Fprintln(w, "==================================================")

	fmt.Fprintf(w, "Instrument:    %s\n", p.Instrument.Symbol)
	fmt.Fprintf(w, "Bars:          %d\n", r.BarCount)
	if r.BarCount > 0 {
		fmt.Fprintf(w, "Start:         %s\n", r.Start.Format(time.RFC3339))
		fmt.Fprintf(w, "End:           %s\n", r.End.Format(time.RFC3339))
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Strategy Configuration")
	fmt.Fprintln(w, "--------------------------------------------------")
	fmt.Fprintf(w, "Lookback:      %d\n", p.Lookback)
	fmt.Fprintf(w, "Stop Loss:     %.2f pts\n", p.StopPoints)
	fmt.Fprintf(w, "Take Profit:   %.2f pts\n", p.TargetPoints)
	fmt.Fprintf(w, "Contracts:     %d\n", p.Contracts)
	fmt.Fprintf(w, "Direction:     %s\n", p.Direction)
	if p.Trailing.Enabled {
		fmt.Fprintf(w, "Trailing:      BE at %.2f, trail %.2f\n", p.Trailing.BreakevenTrigger, p.Trailing.TrailDistance)
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Trade Statistics")
	fmt.Fprintln(w, "--------------------------------------------------")
	fmt.Fprintf(w, "Trades:        %d (long %d, short %d)\n", s.Trades, s.Long.Trades, s.Short.Trades)
	fmt.Fprintf(w, "Wins:          %d\n", s.Wins)
	fmt.Fprintf(w, "Losses:        %d\n", s.Losses)
	fmt.Fprintf(w, "Win Rate:      %.2f%%\n", s.WinRate)
	fmt.Fprintf(w, "Streaks:       %d wins, %d losses\n", s.LongestWinStreak, s.LongestLossStreak)

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Account Performance")
	fmt.Fprintln(w, "--------------------------------------------------")
	fmt.Fprintf(w, "Start Balance: %s\n", s.StartBalance.StringFixed(2))
	fmt.Fprintf(w, "End Balance:   %s\n", s.EndBalance.StringFixed(2))
	fmt.Fprintf(w, "Net P/L:       %s\n", s.TotalProfit.StringFixed(2))
	fmt.Fprintf(w, "Avg P/L:       %s\n", s.AvgProfit.StringFixed(2))
	fmt.Fprintf(w, "Return:        %.2f%%\n", s.ReturnPct)
	if s.ProfitFactor > 0 {
		fmt.Fprintf(w, "Profit Factor: %.2f\n", s.ProfitFactor)
	}
	fmt.Fprintf(w, "Sharpe:        %.2f\n", s.Sharpe)
	if s.MaxDrawdownPct > 0 {
		fmt.Fprintf(w, "Max Drawdown:  %s (%.2f%%)\n", s.MaxDrawdown.StringFixed(2), s.MaxDrawdownPct)
	}
	fmt.Fprintf(w, "Limit Days:    %d loss, %d profit\n", s.DailyLossLimitHits, s.DailyProfitLimitHits)

	if len(r.Rejections) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Rejections")
		fmt.Fprintln(w, "--------------------------------------------------")
		keys := make([]string, 0, len(r.Rejections))
		for k := range r.Rejections {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(w, "- %-26s %d\n", k, r.Rejections[k])
		}
	}

	if len(r.Validation.Anomalies) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Observations")
		fmt.Fprintln(w, "--------------------------------------------------")
		for _, a := range r.Validation.Anomalies {
			fmt.Fprintf(w, "- trade %d %s: net %s vs clean %s (%.2fx)\n", a.TradeID, a.Kind, a.Net, a.Expected, a.Ratio)
		}
	}

	fmt.Fprintln(w)
}
