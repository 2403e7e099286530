package journal

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/rustyeddy/breakout/backtest"
)

// StrategyName identifies runs of the CVD trend-line breakout engine.
const StrategyName = "cvd_breakout"

// NewRunRecord summarizes a finished run for the journal.
func NewRunRecord(runID, dataset string, p backtest.Params, r *backtest.Result) (RunRecord, error) {
	params, err := json.Marshal(p)
	if err != nil {
		return RunRecord{}, fmt.Errorf("encode params: %w", err)
	}
	s := r.Stats
	return RunRecord{
		RunID:        runID,
		Created:      time.Now().UTC(),
		Strategy:     StrategyName,
		Dataset:      dataset,
		Instrument:   p.Instrument.Symbol,
		Params:       params,
		Start:        r.Start,
		End:          r.End,
		Bars:         r.BarCount,
		Trades:       s.Trades,
		Wins:         s.Wins,
		Losses:       s.Losses,
		StartBalance: s.StartBalance,
		EndBalance:   s.EndBalance,
		NetPL:        s.TotalProfit,
		ReturnPct:    s.ReturnPct,
		WinRate:      s.WinRate,
		ProfitFactor: s.ProfitFactor,
		Sharpe:       s.Sharpe,
		MaxDD:        s.MaxDrawdown,
		MaxDDPct:     s.MaxDrawdownPct,
	}, nil
}

// TradeRecords converts a run's trades, numbering them under runID.
func TradeRecords(runID string, p backtest.Params, r *backtest.Result) []TradeRecord {
	out := make([]TradeRecord, 0, len(r.Trades))
	for _, t := range r.Trades {
		out = append(out, TradeRecord{
			RunID:         runID,
			TradeID:       fmt.Sprintf("%s-%04d", runID, t.ID),
			Instrument:    p.Instrument.Symbol,
			Side:          t.Side.String(),
			Contracts:     t.Contracts,
			EntryPrice:    t.EntryPrice,
			ExitPrice:     t.ExitPrice,
			OpenTime:      t.EntryTime,
			CloseTime:     t.ExitTime,
			StopPoints:    t.StopPoints,
			TargetPoints:  t.TargetPoints,
			Ticks:         t.Ticks,
			Gross:         t.Gross,
			Commission:    t.Commission,
			RealizedPL:    t.Net,
			Reason:        string(t.Reason),
			SlippageTicks: t.SlippageTicks,
			Gapped:        t.Gapped,
		})
	}
	return out
}

// SaveResult writes run and everything r produced to j.
func SaveResult(j Journal, run RunRecord, p backtest.Params, r *backtest.Result) error {
	if err := j.RecordRun(run); err != nil {
		return fmt.Errorf("record run: %w", err)
	}
	for _, t := range TradeRecords(run.RunID, p, r) {
		if err := j.RecordTrade(t); err != nil {
			return fmt.Errorf("record trade %s: %w", t.TradeID, err)
		}
	}
	for _, s := range r.EquityCurve {
		if err := j.RecordEquity(EquitySnapshot{
			RunID:         run.RunID,
			Time:          s.Time,
			Balance:       s.Balance,
			Equity:        s.Equity,
			HighWaterMark: s.HighWaterMark,
			Drawdown:      s.Drawdown,
			DrawdownPct:   s.DrawdownPct,
			Trades:        s.Trades,
			Note:          s.Note,
		}); err != nil {
			return fmt.Errorf("record equity: %w", err)
		}
	}
	for _, d := range r.Days {
		if err := j.RecordDay(DayRecord{
			RunID:          run.RunID,
			Day:            d.Day,
			Actual:         d.Actual,
			Capped:         d.Capped,
			High:           d.High,
			Low:            d.Low,
			Trades:         d.Trades,
			Wins:           d.Wins,
			Losses:         d.Losses,
			StopHit:        d.StopHit,
			TargetHit:      d.TargetHit,
			TradingEnabled: d.TradingEnabled,
		}); err != nil {
			return fmt.Errorf("record day %s: %w", d.Day, err)
		}
	}
	for _, d := range r.Drawdowns {
		if err := j.RecordDrawdown(DrawdownRecord{
			RunID:        run.RunID,
			Start:        d.Start,
			End:          d.End,
			StartBalance: d.StartBalance,
			Lowest:       d.Lowest,
			Amount:       d.Amount,
			Percent:      d.Percent,
			Recovered:    d.Recovered,
			DurationDays: d.DurationDays,
		}); err != nil {
			return fmt.Errorf("record drawdown: %w", err)
		}
	}
	return nil
}
