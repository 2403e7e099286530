package journal

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// CSV writes one file per record kind into a directory:
// runs.csv, trades.csv, equity.csv, days.csv and drawdowns.csv.
type CSV struct {
	files   []*os.File
	writers map[string]*csv.Writer
}

var csvHeaders = map[string][]string{
	"runs": {"run_id", "created", "strategy", "dataset", "instrument", "start", "end", "bars",
		"trades", "wins", "losses", "start_balance", "end_balance", "net_pl", "return_pct",
		"win_rate", "profit_factor", "sharpe", "max_dd", "max_dd_pct"},
	"trades": {"run_id", "trade_id", "instrument", "side", "contracts", "entry_price", "exit_price",
		"open_time", "close_time", "stop_points", "target_points", "ticks", "gross", "commission",
		"realized_pl", "reason", "slippage_ticks", "gapped"},
	"equity": {"run_id", "time", "balance", "equity", "high_water_mark", "drawdown", "drawdown_pct",
		"trades", "note"},
	"days": {"run_id", "day", "actual", "capped", "high", "low", "trades", "wins", "losses",
		"stop_hit", "target_hit", "trading_enabled"},
	"drawdowns": {"run_id", "start", "end", "start_balance", "lowest", "amount", "percent",
		"recovered", "duration_days"},
}

var csvKinds = []string{"runs", "trades", "equity", "days", "drawdowns"}

// NewCSV creates dir if needed and truncates the five files in it.
func NewCSV(dir string) (*CSV, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	j := &CSV{writers: make(map[string]*csv.Writer, len(csvKinds))}
	for _, kind := range csvKinds {
		fh, err := os.Create(filepath.Join(dir, kind+".csv"))
		if err != nil {
			j.closeFiles()
			return nil, err
		}
		j.files = append(j.files, fh)

		w := csv.NewWriter(fh)
		if err := w.Write(csvHeaders[kind]); err != nil {
			j.closeFiles()
			return nil, err
		}
		j.writers[kind] = w
	}
	return j, nil
}

func (j *CSV) write(kind string, row []string) error {
	w := j.writers[kind]
	if err := w.Write(row); err != nil {
		return fmt.Errorf("%s.csv: %w", kind, err)
	}
	w.Flush()
	return w.Error()
}

func (j *CSV) RecordRun(r RunRecord) error {
	return j.write("runs", []string{
		r.RunID, ts(r.Created), r.Strategy, r.Dataset, r.Instrument, ts(r.Start), ts(r.End),
		strconv.Itoa(r.Bars), strconv.Itoa(r.Trades), strconv.Itoa(r.Wins), strconv.Itoa(r.Losses),
		r.StartBalance.StringFixed(2), r.EndBalance.StringFixed(2), r.NetPL.StringFixed(2),
		f(r.ReturnPct), f(r.WinRate), f(r.ProfitFactor), f(r.Sharpe),
		r.MaxDD.StringFixed(2), f(r.MaxDDPct),
	})
}

func (j *CSV) RecordTrade(t TradeRecord) error {
	return j.write("trades", []string{
		t.RunID, t.TradeID, t.Instrument, t.Side, strconv.Itoa(t.Contracts),
		f(t.EntryPrice), f(t.ExitPrice), ts(t.OpenTime), ts(t.CloseTime),
		f(t.StopPoints), f(t.TargetPoints), strconv.FormatInt(t.Ticks, 10),
		t.Gross.StringFixed(2), t.Commission.StringFixed(2), t.RealizedPL.StringFixed(2),
		t.Reason, strconv.FormatInt(t.SlippageTicks, 10), strconv.FormatBool(t.Gapped),
	})
}

func (j *CSV) RecordEquity(e EquitySnapshot) error {
	return j.write("equity", []string{
		e.RunID, ts(e.Time), e.Balance.StringFixed(2), e.Equity.StringFixed(2),
		e.HighWaterMark.StringFixed(2), e.Drawdown.StringFixed(2), f(e.DrawdownPct),
		strconv.Itoa(e.Trades), e.Note,
	})
}

func (j *CSV) RecordDay(d DayRecord) error {
	return j.write("days", []string{
		d.RunID, d.Day, d.Actual.StringFixed(2), d.Capped.StringFixed(2),
		d.High.StringFixed(2), d.Low.StringFixed(2),
		strconv.Itoa(d.Trades), strconv.Itoa(d.Wins), strconv.Itoa(d.Losses),
		strconv.FormatBool(d.StopHit), strconv.FormatBool(d.TargetHit), strconv.FormatBool(d.TradingEnabled),
	})
}

func (j *CSV) RecordDrawdown(d DrawdownRecord) error {
	return j.write("drawdowns", []string{
		d.RunID, ts(d.Start), ts(d.End), d.StartBalance.StringFixed(2), d.Lowest.StringFixed(2),
		d.Amount.StringFixed(2), f(d.Percent), strconv.FormatBool(d.Recovered), strconv.Itoa(d.DurationDays),
	})
}

func (j *CSV) Close() error {
	var first error
	for _, kind := range csvKinds {
		w := j.writers[kind]
		w.Flush()
		if err := w.Error(); err != nil && first == nil {
			first = err
		}
	}
	if err := j.closeFiles(); err != nil && first == nil {
		first = err
	}
	return first
}

func (j *CSV) closeFiles() error {
	var first error
	for _, fh := range j.files {
		if err := fh.Close(); err != nil && first == nil {
			first = err
		}
	}
	j.files = nil
	return first
}

func f(x float64) string {
	return strconv.FormatFloat(x, 'f', 6, 64)
}

func ts(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339)
}
