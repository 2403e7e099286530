package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/breakout/journal"
)

func newJournalCmd(rc *RootConfig) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "journal",
		Short: "Inspect journaled backtest runs",
	}
	cmd.AddCommand(newJournalListCmd(rc), newJournalShowCmd(rc))
	return cmd
}

func openSQLite(rc *RootConfig) (*journal.SQLite, error) {
	path, err := rc.dbPath()
	if err != nil {
		return nil, err
	}
	return journal.NewSQLite(path)
}

func newJournalListCmd(rc *RootConfig) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List runs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			j, err := openSQLite(rc)
			if err != nil {
				return err
			}
			defer j.Close()

			runs, err := j.ListRuns()
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "RUN ID\tINSTRUMENT\tSTART\tEND\tTRADES\tWIN%\tNET P/L\tMAX DD")
			for _, r := range runs {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%.2f\t%s\t%s\n",
					r.RunID, r.Instrument,
					r.Start.Format("2006-01-02"), r.End.Format("2006-01-02"),
					r.Trades, r.WinRate, r.NetPL.StringFixed(2), r.MaxDD.StringFixed(2))
			}
			return w.Flush()
		},
	}
}

func newJournalShowCmd(rc *RootConfig) *cobra.Command {
	var org bool

	cmd := &cobra.Command{
		Use:   "show <run-id>",
		Short: "Show one run and its trades",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			j, err := openSQLite(rc)
			if err != nil {
				return err
			}
			defer j.Close()

			run, err := j.GetRun(args[0])
			if err != nil {
				return err
			}
			trades, err := j.ListTrades(run.RunID)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if org {
				return journal.WriteOrg(out, run, trades)
			}

			fmt.Fprintf(out, "Run:           %s\n", run.RunID)
			fmt.Fprintf(out, "Instrument:    %s\n", run.Instrument)
			fmt.Fprintf(out, "Dataset:       %s\n", run.Dataset)
			fmt.Fprintf(out, "Bars:          %d\n", run.Bars)
			fmt.Fprintf(out, "Trades:        %d (%d wins, %d losses)\n", run.Trades, run.Wins, run.Losses)
			fmt.Fprintf(out, "Net P/L:       %s\n", run.NetPL.StringFixed(2))
			fmt.Fprintf(out, "Return:        %.2f%%\n", run.ReturnPct)
			fmt.Fprintf(out, "Max Drawdown:  %s (%.2f%%)\n", run.MaxDD.StringFixed(2), run.MaxDDPct)
			fmt.Fprintf(out, "Profit Factor: %.2f\n", run.ProfitFactor)
			fmt.Fprintf(out, "Sharpe:        %.2f\n", run.Sharpe)
			fmt.Fprintln(out)

			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "TRADE\tSIDE\tOPEN\tENTRY\tEXIT\tREASON\tNET")
			for _, t := range trades {
				fmt.Fprintf(w, "%s\t%s\t%s\t%.2f\t%.2f\t%s\t%s\n",
					t.TradeID, t.Side, t.OpenTime.Format("2006-01-02 15:04"),
					t.EntryPrice, t.ExitPrice, t.Reason, t.RealizedPL.StringFixed(2))
			}
			return w.Flush()
		},
	}
	cmd.Flags().BoolVar(&org, "org", false, "Print the run as an Org-mode report")
	return cmd
}
