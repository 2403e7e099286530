// Package ledger tracks account balance, equity, the high-water mark and
// drawdown episodes over a run.
package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Snapshot is one point on the equity curve.
type Snapshot struct {
	Time          time.Time       `json:"time"`
	Balance       decimal.Decimal `json:"balance"`
	Equity        decimal.Decimal `json:"equity"`
	HighWaterMark decimal.Decimal `json:"high_water_mark"`
	Drawdown      decimal.Decimal `json:"drawdown"`
	DrawdownPct   float64         `json:"drawdown_pct"`
	Trades        int             `json:"trades"`
	Note          string          `json:"note,omitempty"`
}

// DrawdownEvent is a stretch of balance below the high-water mark.
type DrawdownEvent struct {
	Start        time.Time       `json:"start"`
	End          time.Time       `json:"end"`
	StartBalance decimal.Decimal `json:"start_balance"`
	Lowest       decimal.Decimal `json:"lowest"`
	Amount       decimal.Decimal `json:"amount"`
	Percent      float64         `json:"percent"`
	Recovered    bool            `json:"recovered"`
	DurationDays int             `json:"duration_days"`
}

type Ledger struct {
	initial decimal.Decimal
	balance decimal.Decimal
	hwm     decimal.Decimal
	trades  int

	curve  []Snapshot
	events []DrawdownEvent
	// open is the index of the unrecovered event in events, or -1.
	open int
}

// New starts a ledger at balance. start stamps the opening snapshot and
// must come from the caller, never the wall clock.
func New(balance decimal.Decimal, start time.Time) *Ledger {
	l := &Ledger{
		initial: balance,
		balance: balance,
		hwm:     balance,
		open:    -1,
	}
	l.snapshot(start, decimal.Zero, "open")
	return l
}

func (l *Ledger) Balance() decimal.Decimal       { return l.balance }
func (l *Ledger) Initial() decimal.Decimal       { return l.initial }
func (l *Ledger) HighWaterMark() decimal.Decimal { return l.hwm }
func (l *Ledger) Trades() int                    { return l.trades }

// Curve returns the equity curve. The slice must not be modified.
func (l *Ledger) Curve() []Snapshot { return l.curve }

// Drawdowns returns all drawdown events, the open one last.
func (l *Ledger) Drawdowns() []DrawdownEvent {
	out := make([]DrawdownEvent, len(l.events))
	copy(out, l.events)
	return out
}

// OpenDrawdown returns the unrecovered event, if any.
func (l *Ledger) OpenDrawdown() (DrawdownEvent, bool) {
	if l.open < 0 {
		return DrawdownEvent{}, false
	}
	return l.events[l.open], true
}

// Close books a closed trade's net P&L. mark is the open-position value
// still held after the close (normally zero).
func (l *Ledger) Close(ts time.Time, net, mark decimal.Decimal) Snapshot {
	l.trades++
	l.balance = l.balance.Add(net)

	switch {
	case l.balance.GreaterThan(l.hwm):
		l.hwm = l.balance
		if l.open >= 0 {
			ev := &l.events[l.open]
			ev.End = ts
			ev.Recovered = true
			ev.DurationDays = days(ev.Start, ts)
			l.open = -1
		}
	case l.balance.LessThan(l.hwm):
		if l.open < 0 {
			l.events = append(l.events, DrawdownEvent{
				Start:        ts,
				StartBalance: l.hwm,
				Lowest:       l.balance,
			})
			l.open = len(l.events) - 1
		}
		ev := &l.events[l.open]
		if l.balance.LessThan(ev.Lowest) {
			ev.Lowest = l.balance
		}
		ev.Amount = ev.StartBalance.Sub(ev.Lowest)
		ev.Percent = pct(ev.Amount, ev.StartBalance)
		ev.End = ts
		ev.DurationDays = days(ev.Start, ts)
	}
	return l.snapshot(ts, mark, "trade")
}

// Mark appends an equity-only snapshot for an open position.
func (l *Ledger) Mark(ts time.Time, mark decimal.Decimal) Snapshot {
	return l.snapshot(ts, mark, "mark")
}

func (l *Ledger) snapshot(ts time.Time, mark decimal.Decimal, note string) Snapshot {
	dd := l.hwm.Sub(l.balance)
	s := Snapshot{
		Time:          ts,
		Balance:       l.balance,
		Equity:        l.balance.Add(mark),
		HighWaterMark: l.hwm,
		Drawdown:      dd,
		DrawdownPct:   pct(dd, l.hwm),
		Trades:        l.trades,
		Note:          note,
	}
	l.curve = append(l.curve, s)
	return s
}

// MaxDrawdown is the largest event amount and its percent.
func (l *Ledger) MaxDrawdown() (decimal.Decimal, float64) {
	maxAmt := decimal.Zero
	maxPct := 0.0
	for _, ev := range l.events {
		if ev.Amount.GreaterThan(maxAmt) {
			maxAmt = ev.Amount
		}
		if ev.Percent > maxPct {
			maxPct = ev.Percent
		}
	}
	return maxAmt, maxPct
}

func pct(part, whole decimal.Decimal) float64 {
	if !whole.IsPositive() {
		return 0
	}
	return part.Div(whole).Mul(hundred).InexactFloat64()
}

func days(from, to time.Time) int {
	if to.Before(from) {
		return 0
	}
	return int(to.Sub(from).Hours() / 24)
}
