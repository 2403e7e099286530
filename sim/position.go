// Package sim is the execution state machine: one pending signal or one
// open position at a time, tick-accurate fills and trailing stops.
package sim

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/rustyeddy/breakout/market"
)

// ExitReason records why a position was closed.
type ExitReason string

const (
	ExitStopLoss         ExitReason = "STOP_LOSS"
	ExitTakeProfit       ExitReason = "TAKE_PROFIT"
	ExitTrailingStop     ExitReason = "TRAILING_STOP"
	ExitEndOfDay         ExitReason = "END_OF_DAY"
	ExitDailyLossLimit   ExitReason = "DAILY_LOSS_LIMIT"
	ExitDailyProfitLimit ExitReason = "DAILY_PROFIT_LIMIT"
	ExitEndOfData        ExitReason = "END_OF_DATA"
)

// Position is the single open position.
type Position struct {
	Side      market.Side
	Entry     float64
	Stop      float64
	Target    float64
	EntryTime time.Time
	EntryIdx  int

	// BestPrice is the most favorable price seen since entry.
	BestPrice   float64
	AtBreakeven bool
	Trailing    bool
}

// Excursion is the favorable move from entry to BestPrice, in points.
func (p *Position) Excursion() float64 {
	return (p.BestPrice - p.Entry) * float64(p.Side)
}

// PendingSignal is a validated breakout waiting for the next bar's open.
type PendingSignal struct {
	Side  market.Side
	Bar   market.Bar
	Index int
}

// Trade is an immutable closed-trade record.
type Trade struct {
	ID         int         `json:"id"`
	Side       market.Side `json:"side"`
	Contracts  int         `json:"contracts"`
	EntryTime  time.Time   `json:"entry_time"`
	ExitTime   time.Time   `json:"exit_time"`
	EntryPrice float64     `json:"entry_price"`
	ExitPrice  float64     `json:"exit_price"`
	EntryIdx   int         `json:"entry_idx"`
	ExitIdx    int         `json:"exit_idx"`

	StopPoints   float64    `json:"stop_points"`
	TargetPoints float64    `json:"target_points"`
	Reason       ExitReason `json:"reason"`

	Ticks      int64           `json:"ticks"`
	Gross      decimal.Decimal `json:"gross"`
	Commission decimal.Decimal `json:"commission"`
	Net        decimal.Decimal `json:"net"`

	SlippageTicks int64 `json:"slippage_ticks"`
	Gapped        bool  `json:"gapped"`
	StopMoved     bool  `json:"stop_moved"`
}

func (t Trade) Win() bool { return t.Net.IsPositive() }

// Points is the signed favorable move captured by the trade.
func (t Trade) Points() float64 {
	return (t.ExitPrice - t.EntryPrice) * float64(t.Side)
}
