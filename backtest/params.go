package backtest

import (
	"fmt"
	"time"

	"github.com/rustyeddy/breakout/market"
	"github.com/rustyeddy/breakout/signal"
	"github.com/rustyeddy/breakout/sim"
)

// Params fully determines a run. Two runs with equal Params over equal
// bars produce equal Results.
type Params struct {
	// Start and End bound the replay to [Start, End). Zero means open.
	Start time.Time `json:"start" yaml:"start"`
	End   time.Time `json:"end" yaml:"end"`

	Lookback  int     `json:"lookback" yaml:"lookback"`
	ADXPeriod int     `json:"adx_period" yaml:"adx_period"`
	MinADX    float64 `json:"min_adx" yaml:"min_adx"`
	MAPeriod  int     `json:"ma_period" yaml:"ma_period"`
	MA2Period int     `json:"ma2_period" yaml:"ma2_period"`
	UseVWAP   bool    `json:"use_vwap" yaml:"use_vwap"`

	StopPoints   float64            `json:"stop_points" yaml:"stop_points"`
	TargetPoints float64            `json:"target_points" yaml:"target_points"`
	Contracts    int                `json:"contracts" yaml:"contracts"`
	Trailing     sim.TrailingConfig `json:"trailing" yaml:"trailing"`

	MaxDailyLoss   float64               `json:"max_daily_loss" yaml:"max_daily_loss"`
	MaxDailyProfit float64               `json:"max_daily_profit" yaml:"max_daily_profit"`
	Direction      market.TradeDirection `json:"direction" yaml:"direction"`
	Instrument     market.Instrument     `json:"instrument" yaml:"instrument"`

	MaxSlippageTicks  int     `json:"max_slippage_ticks" yaml:"max_slippage_ticks"`
	EntryGapTolerance float64 `json:"entry_gap_tolerance" yaml:"entry_gap_tolerance"`
	SignificantGap    float64 `json:"significant_gap" yaml:"significant_gap"`
	ExtremeGap        float64 `json:"extreme_gap" yaml:"extreme_gap"`
	// EODCutoff is "HH:MM" on the bars' wall clock; empty disables it.
	EODCutoff string `json:"eod_cutoff" yaml:"eod_cutoff"`

	InitialBalance float64 `json:"initial_balance" yaml:"initial_balance"`
	// InitialTime stamps the opening ledger snapshot. Zero uses the first
	// bar's time.
	InitialTime time.Time `json:"initial_time" yaml:"initial_time"`

	BreakoutTolerance float64       `json:"breakout_tolerance" yaml:"breakout_tolerance"`
	AccelMultiple     float64       `json:"accel_multiple" yaml:"accel_multiple"`
	Stages            signal.Stages `json:"stages" yaml:"stages"`

	AnomalyRatio        float64 `json:"anomaly_ratio" yaml:"anomaly_ratio"`
	ExtremeAnomalyRatio float64 `json:"extreme_anomaly_ratio" yaml:"extreme_anomaly_ratio"`

	CloseAtEnd bool `json:"close_at_end" yaml:"close_at_end"`
}

// Defaults returns an ES setup with every validation stage enabled.
func Defaults() Params {
	return Params{
		Lookback:            10,
		ADXPeriod:           14,
		StopPoints:          10,
		TargetPoints:        20,
		Contracts:           1,
		Direction:           market.BothSides,
		Instrument:          market.Instruments["ES"],
		MaxSlippageTicks:    1,
		EntryGapTolerance:   0.01,
		SignificantGap:      0.005,
		ExtremeGap:          0.01,
		InitialBalance:      10000,
		BreakoutTolerance:   0.001,
		AccelMultiple:       1.0,
		Stages:              signal.AllStages(),
		AnomalyRatio:        1.5,
		ExtremeAnomalyRatio: 3.0,
		CloseAtEnd:          true,
	}
}

func (p Params) Validate() error {
	if p.Lookback < 2 {
		return fmt.Errorf("lookback must be at least 2")
	}
	if p.ADXPeriod <= 0 {
		return fmt.Errorf("adx_period must be positive")
	}
	if p.MinADX < 0 || p.MAPeriod < 0 || p.MA2Period < 0 {
		return fmt.Errorf("min_adx, ma_period and ma2_period must not be negative")
	}
	if p.StopPoints <= 0 {
		return fmt.Errorf("stop_points must be positive")
	}
	if p.TargetPoints <= 0 {
		return fmt.Errorf("target_points must be positive")
	}
	if p.Contracts <= 0 {
		return fmt.Errorf("contracts must be positive")
	}
	if p.Trailing.Enabled && (p.Trailing.TrailDistance <= 0 || p.Trailing.BreakevenTrigger < 0) {
		return fmt.Errorf("trailing needs trail_distance > 0 and breakeven_trigger >= 0")
	}
	if p.MaxDailyLoss < 0 || p.MaxDailyProfit < 0 {
		return fmt.Errorf("daily limits must not be negative")
	}
	if _, err := market.ParseTradeDirection(string(p.Direction)); err != nil {
		return err
	}
	if err := p.Instrument.Validate(); err != nil {
		return err
	}
	if p.MaxSlippageTicks < 0 {
		return fmt.Errorf("max_slippage_ticks must not be negative")
	}
	if p.EntryGapTolerance <= 0 {
		return fmt.Errorf("entry_gap_tolerance must be positive")
	}
	if p.SignificantGap <= 0 || p.ExtremeGap < p.SignificantGap {
		return fmt.Errorf("need 0 < significant_gap <= extreme_gap")
	}
	if _, err := market.ParseClock(p.EODCutoff); err != nil {
		return fmt.Errorf("eod_cutoff: %w", err)
	}
	if p.InitialBalance <= 0 {
		return fmt.Errorf("initial_balance must be positive")
	}
	if !p.Start.IsZero() && !p.End.IsZero() && !p.Start.Before(p.End) {
		return fmt.Errorf("start must be before end")
	}
	if p.BreakoutTolerance < 0 || p.AccelMultiple < 0 {
		return fmt.Errorf("breakout_tolerance and accel_multiple must not be negative")
	}
	if p.AnomalyRatio <= 1 || p.ExtremeAnomalyRatio < p.AnomalyRatio {
		return fmt.Errorf("need 1 < anomaly_ratio <= extreme_anomaly_ratio")
	}
	return nil
}

// InWindow reports whether t falls in [Start, End).
func (p Params) InWindow(t time.Time) bool {
	if !p.Start.IsZero() && t.Before(p.Start) {
		return false
	}
	if !p.End.IsZero() && !t.Before(p.End) {
		return false
	}
	return true
}

func (p Params) executorConfig() sim.Config {
	cutoff, _ := market.ParseClock(p.EODCutoff)
	return sim.Config{
		Instrument:        p.Instrument,
		Contracts:         p.Contracts,
		StopPoints:        p.StopPoints,
		TargetPoints:      p.TargetPoints,
		Trailing:          p.Trailing,
		MaxSlippageTicks:  p.MaxSlippageTicks,
		EntryGapTolerance: p.EntryGapTolerance,
		EODCutoff:         cutoff,
	}
}

func (p Params) validator() signal.Validator {
	dir, _ := market.ParseTradeDirection(string(p.Direction))
	return signal.Validator{
		Stages:        p.Stages,
		Direction:     dir,
		MinADX:        p.MinADX,
		AccelMultiple: p.AccelMultiple,
	}
}
