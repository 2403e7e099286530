package journal

import (
	"database/sql"
	"errors"
	"fmt"
)

// ErrNotFound is returned when a run or trade does not exist.
var ErrNotFound = errors.New("not found")

const runColumns = `run_id, created, strategy, dataset, instrument, params, start_time, end_time, bars,
	trades, wins, losses, start_balance, end_balance, net_pl, return_pct, win_rate,
	profit_factor, sharpe, max_dd, max_dd_pct`

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (RunRecord, error) {
	var r RunRecord
	err := s.Scan(
		&r.RunID, &r.Created, &r.Strategy, &r.Dataset, &r.Instrument, &r.Params,
		&r.Start, &r.End, &r.Bars, &r.Trades, &r.Wins, &r.Losses,
		&r.StartBalance, &r.EndBalance, &r.NetPL, &r.ReturnPct, &r.WinRate,
		&r.ProfitFactor, &r.Sharpe, &r.MaxDD, &r.MaxDDPct,
	)
	return r, err
}

// GetRun returns a single run by ID.
func (j *SQLite) GetRun(runID string) (RunRecord, error) {
	row := j.db.QueryRow(`SELECT `+runColumns+` FROM runs WHERE run_id = ?`, runID)
	r, err := scanRun(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return RunRecord{}, fmt.Errorf("run %q: %w", runID, ErrNotFound)
		}
		return RunRecord{}, err
	}
	return r, nil
}

// ListRuns returns every run, newest first.
func (j *SQLite) ListRuns() ([]RunRecord, error) {
	rows, err := j.db.Query(`SELECT ` + runColumns + ` FROM runs ORDER BY run_id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []RunRecord
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// ListTrades returns a run's trades in close order.
func (j *SQLite) ListTrades(runID string) ([]TradeRecord, error) {
	rows, err := j.db.Query(`
		SELECT trade_id, run_id, instrument, side, contracts, entry_price, exit_price, open_time, close_time,
		       stop_points, target_points, ticks, gross, commission, realized_pl, reason, slippage_ticks, gapped
		FROM trades
		WHERE run_id = ?
		ORDER BY close_time ASC, trade_id ASC`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TradeRecord
	for rows.Next() {
		var t TradeRecord
		if err := rows.Scan(
			&t.TradeID, &t.RunID, &t.Instrument, &t.Side, &t.Contracts, &t.EntryPrice, &t.ExitPrice,
			&t.OpenTime, &t.CloseTime, &t.StopPoints, &t.TargetPoints, &t.Ticks,
			&t.Gross, &t.Commission, &t.RealizedPL, &t.Reason, &t.SlippageTicks, &t.Gapped,
		); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// ListEquity returns a run's equity curve in time order.
func (j *SQLite) ListEquity(runID string) ([]EquitySnapshot, error) {
	rows, err := j.db.Query(`
		SELECT run_id, time, balance, equity, high_water_mark, drawdown, drawdown_pct, trades, note
		FROM equity
		WHERE run_id = ?
		ORDER BY time ASC, rowid ASC`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []EquitySnapshot
	for rows.Next() {
		var e EquitySnapshot
		if err := rows.Scan(
			&e.RunID, &e.Time, &e.Balance, &e.Equity, &e.HighWaterMark,
			&e.Drawdown, &e.DrawdownPct, &e.Trades, &e.Note,
		); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// ListDays returns a run's per-day risk state in day order.
func (j *SQLite) ListDays(runID string) ([]DayRecord, error) {
	rows, err := j.db.Query(`
		SELECT run_id, day, actual, capped, high, low, trades, wins, losses, stop_hit, target_hit, trading_enabled
		FROM days
		WHERE run_id = ?
		ORDER BY day ASC`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []DayRecord
	for rows.Next() {
		var d DayRecord
		if err := rows.Scan(
			&d.RunID, &d.Day, &d.Actual, &d.Capped, &d.High, &d.Low,
			&d.Trades, &d.Wins, &d.Losses, &d.StopHit, &d.TargetHit, &d.TradingEnabled,
		); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
