// Package stats summarizes a run's closed trades.
package stats

import (
	"math"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/rustyeddy/breakout/market"
	"github.com/rustyeddy/breakout/risk"
	"github.com/rustyeddy/breakout/sim"
)

// NoLossProfitFactor is reported when there are winners but no losers.
const NoLossProfitFactor = 999.0

// TradingDays annualizes the daily Sharpe ratio.
const TradingDays = 252

type SideStats struct {
	Trades  int             `json:"trades"`
	Wins    int             `json:"wins"`
	Losses  int             `json:"losses"`
	WinRate float64         `json:"win_rate"`
	Net     decimal.Decimal `json:"net"`
}

type Summary struct {
	Trades    int     `json:"trades"`
	Wins      int     `json:"wins"`
	Losses    int     `json:"losses"`
	Scratches int     `json:"scratches"`
	WinRate   float64 `json:"win_rate"`

	TotalProfit  decimal.Decimal `json:"total_profit"`
	AvgProfit    decimal.Decimal `json:"avg_profit"`
	GrossProfit  decimal.Decimal `json:"gross_profit"`
	GrossLoss    decimal.Decimal `json:"gross_loss"`
	ProfitFactor float64         `json:"profit_factor"`
	Sharpe       float64         `json:"sharpe"`

	DailyPnL map[string]decimal.Decimal `json:"daily_pnl"`

	MaxDrawdown    decimal.Decimal `json:"max_drawdown"`
	MaxDrawdownPct float64         `json:"max_drawdown_pct"`

	LongestWinStreak  int `json:"longest_win_streak"`
	LongestLossStreak int `json:"longest_loss_streak"`

	DailyLossLimitHits   int `json:"daily_loss_limit_hits"`
	DailyProfitLimitHits int `json:"daily_profit_limit_hits"`

	Long  SideStats `json:"long"`
	Short SideStats `json:"short"`

	ExitReasons map[sim.ExitReason]int `json:"exit_reasons"`

	StartBalance decimal.Decimal `json:"start_balance"`
	EndBalance   decimal.Decimal `json:"end_balance"`
	ReturnPct    float64         `json:"return_pct"`
}

// Input is what Compute needs from the rest of a run.
type Input struct {
	Trades         []sim.Trade
	Days           []risk.DailyStats
	StartBalance   decimal.Decimal
	MaxDrawdown    decimal.Decimal
	MaxDrawdownPct float64
}

func Compute(in Input) Summary {
	s := Summary{
		DailyPnL:       make(map[string]decimal.Decimal),
		ExitReasons:    make(map[sim.ExitReason]int),
		MaxDrawdown:    in.MaxDrawdown,
		MaxDrawdownPct: in.MaxDrawdownPct,
		StartBalance:   in.StartBalance,
	}

	var winRun, lossRun int
	for _, t := range in.Trades {
		s.Trades++
		s.TotalProfit = s.TotalProfit.Add(t.Net)
		s.ExitReasons[t.Reason]++

		day := market.DayKey(t.ExitTime)
		s.DailyPnL[day] = s.DailyPnL[day].Add(t.Net)

		side := &s.Long
		if t.Side == market.Short {
			side = &s.Short
		}
		side.Trades++
		side.Net = side.Net.Add(t.Net)

		switch {
		case t.Net.IsPositive():
			s.Wins++
			side.Wins++
			s.GrossProfit = s.GrossProfit.Add(t.Net)
			winRun++
			lossRun = 0
		case t.Net.IsNegative():
			s.Losses++
			side.Losses++
			s.GrossLoss = s.GrossLoss.Add(t.Net.Abs())
			lossRun++
			winRun = 0
		default:
			s.Scratches++
			winRun, lossRun = 0, 0
		}
		s.LongestWinStreak = max(s.LongestWinStreak, winRun)
		s.LongestLossStreak = max(s.LongestLossStreak, lossRun)
	}

	if s.Trades > 0 {
		s.WinRate = rate(s.Wins, s.Trades)
		s.AvgProfit = s.TotalProfit.Div(decimal.NewFromInt(int64(s.Trades)))
	}
	s.Long.WinRate = rate(s.Long.Wins, s.Long.Trades)
	s.Short.WinRate = rate(s.Short.Wins, s.Short.Trades)
	s.ProfitFactor = ProfitFactor(s.GrossProfit, s.GrossLoss)
	s.Sharpe = Sharpe(s.DailyPnL)

	for _, d := range in.Days {
		if d.StopHit {
			s.DailyLossLimitHits++
		}
		if d.TargetHit {
			s.DailyProfitLimitHits++
		}
	}

	s.EndBalance = s.StartBalance.Add(s.TotalProfit)
	if s.StartBalance.IsPositive() {
		s.ReturnPct = s.TotalProfit.Div(s.StartBalance).InexactFloat64() * 100
	}
	return s
}

func rate(n, of int) float64 {
	if of == 0 {
		return 0
	}
	return float64(n) / float64(of) * 100
}

// ProfitFactor is gross profit over gross loss (both positive amounts).
func ProfitFactor(grossProfit, grossLoss decimal.Decimal) float64 {
	if grossLoss.IsZero() {
		if grossProfit.IsPositive() {
			return NoLossProfitFactor
		}
		return 0
	}
	return grossProfit.Div(grossLoss).InexactFloat64()
}

// Sharpe is the annualized mean over sample deviation of daily P&L.
// Days are visited in key order so the float sum is reproducible.
func Sharpe(daily map[string]decimal.Decimal) float64 {
	if len(daily) < 2 {
		return 0
	}
	keys := make([]string, 0, len(daily))
	for k := range daily {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	xs := make([]float64, len(keys))
	var mean float64
	for i, k := range keys {
		xs[i] = daily[k].InexactFloat64()
		mean += xs[i]
	}
	mean /= float64(len(xs))

	var ss float64
	for _, x := range xs {
		ss += (x - mean) * (x - mean)
	}
	sd := math.Sqrt(ss / float64(len(xs)-1))
	if sd == 0 {
		return 0
	}
	return mean / sd * math.Sqrt(TradingDays)
}
