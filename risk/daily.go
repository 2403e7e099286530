package risk

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rustyeddy/breakout/market"
)

// DailyStats is one calendar day of realized results.
type DailyStats struct {
	Day string `json:"day"`

	Actual decimal.Decimal `json:"actual"`
	Capped decimal.Decimal `json:"capped"`
	// High and Low bound the day's actual cumulative P&L.
	High decimal.Decimal `json:"high"`
	Low  decimal.Decimal `json:"low"`

	Trades int `json:"trades"`
	Wins   int `json:"wins"`
	Losses int `json:"losses"`

	StopHit        bool `json:"stop_hit"`
	TargetHit      bool `json:"target_hit"`
	TradingEnabled bool `json:"trading_enabled"`
}

// Manager tracks DailyStats for one run. Days are created on their first
// trade.
type Manager struct {
	policy Policy
	days   map[string]*DailyStats
}

func NewManager(p Policy) *Manager {
	return &Manager{policy: p, days: make(map[string]*DailyStats)}
}

func (m *Manager) Policy() Policy { return m.policy }

// Record books a closed trade's net P&L against the day of ts.
func (m *Manager) Record(ts time.Time, net decimal.Decimal) DailyStats {
	key := market.DayKey(ts)
	d, ok := m.days[key]
	if !ok {
		d = &DailyStats{Day: key, TradingEnabled: true}
		m.days[key] = d
	}

	d.Trades++
	switch {
	case net.IsPositive():
		d.Wins++
	case net.IsNegative():
		d.Losses++
	}

	d.Actual = d.Actual.Add(net)
	if d.Trades == 1 || d.Actual.GreaterThan(d.High) {
		d.High = d.Actual
	}
	if d.Trades == 1 || d.Actual.LessThan(d.Low) {
		d.Low = d.Actual
	}

	// Once latched the capped figure is frozen at the bound it hit.
	if !d.TradingEnabled {
		return *d
	}
	d.Capped = d.Actual
	p := m.policy
	if p.lossLimited() && d.Actual.LessThanOrEqual(p.MaxDailyLoss.Neg()) {
		d.Capped = p.MaxDailyLoss.Neg()
		d.StopHit = true
		d.TradingEnabled = false
	} else if p.profitLimited() && d.Actual.GreaterThanOrEqual(p.MaxDailyProfit) {
		d.Capped = p.MaxDailyProfit
		d.TargetHit = true
		d.TradingEnabled = false
	}
	return *d
}

// Breach reports which limit blocks trading on the day of ts.
func (m *Manager) Breach(ts time.Time) Breach {
	d, ok := m.days[market.DayKey(ts)]
	if !ok {
		return NoBreach
	}
	p := m.policy
	switch {
	case d.StopHit:
		return LossBreach
	case d.TargetHit:
		return ProfitBreach
	case p.lossLimited() && d.Actual.LessThanOrEqual(p.MaxDailyLoss.Neg()):
		return LossBreach
	case p.profitLimited() && d.Actual.GreaterThanOrEqual(p.MaxDailyProfit):
		return ProfitBreach
	}
	return NoBreach
}

// CanTrade is false once the day's latch tripped or its P&L sits at a bound.
func (m *Manager) CanTrade(ts time.Time) bool {
	if d, ok := m.days[market.DayKey(ts)]; ok && !d.TradingEnabled {
		return false
	}
	return m.Breach(ts) == NoBreach
}

// Day returns a copy of the stats for the day of ts.
func (m *Manager) Day(ts time.Time) (DailyStats, bool) {
	d, ok := m.days[market.DayKey(ts)]
	if !ok {
		return DailyStats{}, false
	}
	return *d, true
}

// Days returns every recorded day in calendar order.
func (m *Manager) Days() []DailyStats {
	keys := make([]string, 0, len(m.days))
	for k := range m.days {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]DailyStats, 0, len(keys))
	for _, k := range keys {
		out = append(out, *m.days[k])
	}
	return out
}

type Violation struct {
	Code string
	Msg  string
}

type Decision struct {
	Allowed    bool
	Violations []Violation
}

func (d *Decision) add(code, msg string) {
	d.Violations = append(d.Violations, Violation{Code: code, Msg: msg})
	d.Allowed = false
}

// Check explains CanTrade for the day of ts.
func (m *Manager) Check(ts time.Time) Decision {
	dec := Decision{Allowed: true}
	d, ok := m.days[market.DayKey(ts)]
	if !ok {
		return dec
	}
	p := m.policy

	if p.lossLimited() && d.Actual.LessThanOrEqual(p.MaxDailyLoss.Neg()) {
		dec.add(LossBreach.String(), fmt.Sprintf("day realized %s <= limit -%s", d.Actual, p.MaxDailyLoss))
	}
	if p.profitLimited() && d.Actual.GreaterThanOrEqual(p.MaxDailyProfit) {
		dec.add(ProfitBreach.String(), fmt.Sprintf("day realized %s >= limit %s", d.Actual, p.MaxDailyProfit))
	}
	if !d.TradingEnabled {
		dec.add("TRADING_DISABLED", fmt.Sprintf("limit latched for %s (capped %s)", d.Day, d.Capped))
	}
	return dec
}
