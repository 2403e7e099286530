package backtest

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/rustyeddy/breakout/diag"
	"github.com/rustyeddy/breakout/sim"
)

// Anomaly is a trade whose net P&L is far from a clean stop or target hit.
type Anomaly struct {
	TradeID  int             `json:"trade_id"`
	ExitTime time.Time       `json:"exit_time"`
	Kind     diag.Kind       `json:"kind"`
	Reason   sim.ExitReason  `json:"reason"`
	Net      decimal.Decimal `json:"net"`
	Expected decimal.Decimal `json:"expected"`
	Ratio    float64         `json:"ratio"`
}

// Validation is the advisory P&L check. It never changes trades.
type Validation struct {
	Checked      int             `json:"checked"`
	ExpectedWin  decimal.Decimal `json:"expected_win"`
	ExpectedLoss decimal.Decimal `json:"expected_loss"`
	Anomalies    []Anomaly       `json:"anomalies"`
}

// ExpectedPnL is the net P&L of a clean target hit and a clean stop hit.
func ExpectedPnL(p Params) (win, loss decimal.Decimal) {
	in := p.Instrument
	comm := in.CommissionFor(p.Contracts)
	win = in.TicksValue(in.Ticks(p.TargetPoints), p.Contracts).Sub(comm)
	loss = in.TicksValue(-in.Ticks(p.StopPoints), p.Contracts).Sub(comm)
	return win, loss
}

// ValidateTrades flags trades whose |net| exceeds the clean value of the
// same sign by more than AnomalyRatio (or ExtremeAnomalyRatio).
func ValidateTrades(trades []sim.Trade, p Params) Validation {
	win, loss := ExpectedPnL(p)
	v := Validation{ExpectedWin: win, ExpectedLoss: loss}

	for _, t := range trades {
		v.Checked++
		expected := win
		if t.Net.IsNegative() {
			expected = loss
		}
		if expected.IsZero() || t.Net.IsZero() {
			continue
		}
		ratio := t.Net.Abs().Div(expected.Abs()).InexactFloat64()

		var kind diag.Kind
		switch {
		case ratio > p.ExtremeAnomalyRatio:
			kind = diag.KindPnLExtreme
		case ratio > p.AnomalyRatio:
			kind = diag.KindPnLAnomaly
		default:
			continue
		}
		v.Anomalies = append(v.Anomalies, Anomaly{
			TradeID:  t.ID,
			ExitTime: t.ExitTime,
			Kind:     kind,
			Reason:   t.Reason,
			Net:      t.Net,
			Expected: expected,
			Ratio:    ratio,
		})
	}
	return v
}
