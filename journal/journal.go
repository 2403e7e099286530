// Package journal persists backtest runs: the run summary, every trade,
// the equity curve, per-day risk state and drawdown events.
package journal

import (
	"time"

	"github.com/shopspring/decimal"
)

// RunRecord is one backtest run, keyed by a ULID.
type RunRecord struct {
	RunID    string
	Created  time.Time
	Strategy string
	Dataset  string

	Instrument string
	// Params is the JSON encoding of the run's backtest.Params.
	Params []byte

	Start time.Time
	End   time.Time
	Bars  int

	Trades int
	Wins   int
	Losses int

	StartBalance decimal.Decimal
	EndBalance   decimal.Decimal
	NetPL        decimal.Decimal
	ReturnPct    float64
	WinRate      float64
	ProfitFactor float64
	Sharpe       float64
	MaxDD        decimal.Decimal
	MaxDDPct     float64
}

type TradeRecord struct {
	RunID      string
	TradeID    string
	Instrument string
	Side       string
	Contracts  int
	EntryPrice float64
	ExitPrice  float64
	OpenTime   time.Time
	CloseTime  time.Time

	StopPoints   float64
	TargetPoints float64
	Ticks        int64
	Gross        decimal.Decimal
	Commission   decimal.Decimal
	RealizedPL   decimal.Decimal
	Reason       string

	SlippageTicks int64
	Gapped        bool
}

type EquitySnapshot struct {
	RunID         string
	Time          time.Time
	Balance       decimal.Decimal
	Equity        decimal.Decimal
	HighWaterMark decimal.Decimal
	Drawdown      decimal.Decimal
	DrawdownPct   float64
	Trades        int
	Note          string
}

type DayRecord struct {
	RunID  string
	Day    string
	Actual decimal.Decimal
	Capped decimal.Decimal
	High   decimal.Decimal
	Low    decimal.Decimal

	Trades int
	Wins   int
	Losses int

	StopHit        bool
	TargetHit      bool
	TradingEnabled bool
}

type DrawdownRecord struct {
	RunID        string
	Start        time.Time
	End          time.Time
	StartBalance decimal.Decimal
	Lowest       decimal.Decimal
	Amount       decimal.Decimal
	Percent      float64
	Recovered    bool
	DurationDays int
}

type Journal interface {
	RecordRun(RunRecord) error
	RecordTrade(TradeRecord) error
	RecordEquity(EquitySnapshot) error
	RecordDay(DayRecord) error
	RecordDrawdown(DrawdownRecord) error
	Close() error
}
