package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rustyeddy/breakout/backtest"
	"github.com/rustyeddy/breakout/config"
	"github.com/rustyeddy/breakout/feed"
	"github.com/rustyeddy/breakout/journal"
	"github.com/rustyeddy/breakout/logging"
	"github.com/rustyeddy/breakout/market"
	"github.com/rustyeddy/breakout/pkg/id"
)

func newRunCmd(rc *RootConfig) *cobra.Command {
	var (
		barsPath string
		fromStr  string
		toStr    string
		csvDir   string
		orgPath  string
		quiet    bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Replay bars through the breakout strategy and journal the result",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := rc.load()
			if err != nil {
				return err
			}

			// Flag overrides
			if barsPath != "" {
				cfg.Data.Source = "csv"
				cfg.Data.Path = barsPath
			}
			if fromStr != "" {
				cfg.Data.From = fromStr
			}
			if toStr != "" {
				cfg.Data.To = toStr
			}
			if rc.DBPath != "" {
				cfg.Journal.Type = "sqlite"
				cfg.Journal.DBPath = rc.DBPath
			}
			if csvDir != "" {
				cfg.Journal.Type = "csv"
				cfg.Journal.Dir = csvDir
			}
			if orgPath != "" {
				cfg.Journal.OrgPath = orgPath
			}
			if rc.LogLevel != "" {
				cfg.Log.Level = rc.LogLevel
			}
			if cfg.Data.Source == "" {
				return fmt.Errorf("no bars: pass --bars or set data.source")
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			p, err := cfg.Params()
			if err != nil {
				return err
			}

			logger, err := logging.Build(logging.Options{
				Level:  cfg.Log.Level,
				Format: cfg.Log.Format,
				File:   cfg.Log.File,
				Out:    cmd.ErrOrStderr(),
			})
			if err != nil {
				return err
			}
			defer logger.Sync()

			src, dataset, err := openSource(cmd.Context(), cfg)
			if err != nil {
				return err
			}

			runID := id.New()
			log := logger.With(zap.String("run_id", runID))
			log.Info("backtest started",
				zap.String("instrument", p.Instrument.Symbol),
				zap.String("dataset", dataset),
				zap.Int("lookback", p.Lookback),
			)

			started := time.Now()
			res, err := backtest.Run(src, p, backtest.WithLogger(log))
			if err != nil {
				log.Error("backtest failed", zap.Error(err))
				return err
			}
			log.Info("backtest finished",
				zap.Int("bars", res.BarCount),
				zap.Int("trades", res.Stats.Trades),
				zap.String("net", res.Stats.TotalProfit.StringFixed(2)),
				zap.Duration("elapsed", time.Since(started)),
			)
			if n := len(res.Validation.Anomalies); n > 0 {
				log.Warn("trade P&L anomalies", zap.Int("count", n))
			}

			if !quiet {
				backtest.PrintSummary(cmd.OutOrStdout(), p, res)
			}

			run, err := journal.NewRunRecord(runID, dataset, p, res)
			if err != nil {
				return err
			}
			if err := saveRun(cfg, run, p, res); err != nil {
				return err
			}
			if cfg.Journal.OrgPath != "" {
				if err := journal.WriteOrgFile(cfg.Journal.OrgPath, run, journal.TradeRecords(runID, p, res)); err != nil {
					return fmt.Errorf("write org report: %w", err)
				}
			}

			fmt.Fprintf(cmd.OutOrStdout(), "run %s\n", runID)
			return nil
		},
	}

	cmd.Flags().StringVar(&barsPath, "bars", "", "Bar CSV file (overrides data.path)")
	cmd.Flags().StringVar(&fromStr, "from", "", "Start time, inclusive (overrides data.from)")
	cmd.Flags().StringVar(&toStr, "to", "", "End time, exclusive (overrides data.to)")
	cmd.Flags().StringVar(&csvDir, "csv-dir", "", "Write CSV journal files into this directory")
	cmd.Flags().StringVar(&orgPath, "org", "", "Write an Org-mode report to this path")
	cmd.Flags().BoolVar(&quiet, "quiet", false, "Do not print the summary")

	return cmd
}

// openSource opens the configured bar source and names the dataset.
func openSource(ctx context.Context, cfg *config.Config) (backtest.BarSource, string, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	loc, err := market.ParseOffset(cfg.Data.Offset)
	if err != nil {
		return nil, "", fmt.Errorf("data.offset: %w", err)
	}
	opts := feed.Options{Location: loc, SkipWeekends: cfg.Data.SkipWeekends}
	if cfg.Data.From != "" {
		if opts.From, err = market.ParseTime(cfg.Data.From, loc); err != nil {
			return nil, "", fmt.Errorf("data.from: %w", err)
		}
	}
	if cfg.Data.To != "" {
		if opts.To, err = market.ParseTime(cfg.Data.To, loc); err != nil {
			return nil, "", fmt.Errorf("data.to: %w", err)
		}
	}

	switch cfg.Data.Source {
	case "csv":
		src, err := feed.NewCSVSource(cfg.Data.Path, opts)
		return src, cfg.Data.Path, err
	case "clickhouse":
		ch := cfg.Data.ClickHouse
		src, err := feed.NewClickHouseSource(ctx, feed.ClickHouseConfig{
			Addr:     ch.Addr,
			Database: ch.Database,
			Username: ch.Username,
			Password: ch.Password,
			Table:    ch.Table,
			Symbol:   ch.Symbol,
		}, opts)
		return src, fmt.Sprintf("clickhouse:%s.%s", ch.Database, ch.Table), err
	default:
		return nil, "", fmt.Errorf("unknown data source %q", cfg.Data.Source)
	}
}

func openJournal(cfg *config.Config) (journal.Journal, error) {
	switch cfg.Journal.Type {
	case "sqlite":
		return journal.NewSQLite(cfg.Journal.DBPath)
	case "csv":
		return journal.NewCSV(cfg.Journal.Dir)
	default:
		return nil, nil
	}
}

func saveRun(cfg *config.Config, run journal.RunRecord, p backtest.Params, res *backtest.Result) error {
	j, err := openJournal(cfg)
	if err != nil {
		return fmt.Errorf("open journal: %w", err)
	}
	if j == nil {
		return nil
	}
	if err := journal.SaveResult(j, run, p, res); err != nil {
		j.Close()
		return err
	}
	return j.Close()
}
