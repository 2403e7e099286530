package journal

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

type SQLite struct {
	db *sql.DB
}

func NewSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &SQLite{db: db}, nil
}

func (j *SQLite) RecordRun(r RunRecord) error {
	_, err := j.db.Exec(`
		INSERT INTO runs
		(run_id, created, strategy, dataset, instrument, params, start_time, end_time, bars,
		 trades, wins, losses, start_balance, end_balance, net_pl, return_pct, win_rate,
		 profit_factor, sharpe, max_dd, max_dd_pct)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.RunID, r.Created, r.Strategy, r.Dataset, r.Instrument, string(r.Params),
		r.Start, r.End, r.Bars, r.Trades, r.Wins, r.Losses,
		r.StartBalance, r.EndBalance, r.NetPL, r.ReturnPct, r.WinRate,
		r.ProfitFactor, r.Sharpe, r.MaxDD, r.MaxDDPct,
	)
	return err
}

func (j *SQLite) RecordTrade(t TradeRecord) error {
	_, err := j.db.Exec(`
		INSERT INTO trades
		(trade_id, run_id, instrument, side, contracts, entry_price, exit_price, open_time, close_time,
		 stop_points, target_points, ticks, gross, commission, realized_pl, reason, slippage_ticks, gapped)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.TradeID, t.RunID, t.Instrument, t.Side, t.Contracts, t.EntryPrice, t.ExitPrice,
		t.OpenTime, t.CloseTime, t.StopPoints, t.TargetPoints, t.Ticks,
		t.Gross, t.Commission, t.RealizedPL, t.Reason, t.SlippageTicks, t.Gapped,
	)
	return err
}

func (j *SQLite) RecordEquity(e EquitySnapshot) error {
	_, err := j.db.Exec(`
		INSERT INTO equity
		(run_id, time, balance, equity, high_water_mark, drawdown, drawdown_pct, trades, note)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.RunID, e.Time, e.Balance, e.Equity, e.HighWaterMark, e.Drawdown, e.DrawdownPct, e.Trades, e.Note,
	)
	return err
}

func (j *SQLite) RecordDay(d DayRecord) error {
	_, err := j.db.Exec(`
		INSERT INTO days
		(run_id, day, actual, capped, high, low, trades, wins, losses, stop_hit, target_hit, trading_enabled)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		d.RunID, d.Day, d.Actual, d.Capped, d.High, d.Low, d.Trades, d.Wins, d.Losses,
		d.StopHit, d.TargetHit, d.TradingEnabled,
	)
	return err
}

func (j *SQLite) RecordDrawdown(d DrawdownRecord) error {
	_, err := j.db.Exec(`
		INSERT INTO drawdowns
		(run_id, start_time, end_time, start_balance, lowest, amount, percent, recovered, duration_days)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		d.RunID, d.Start, d.End, d.StartBalance, d.Lowest, d.Amount, d.Percent, d.Recovered, d.DurationDays,
	)
	return err
}

func (j *SQLite) Close() error {
	return j.db.Close()
}
