// Package signal turns a raw trend-line breakout into a trade decision.
package signal

import (
	"fmt"
	"math"

	"github.com/rustyeddy/breakout/indicators"
	"github.com/rustyeddy/breakout/market"
)

// Reason is the code recorded when a stage rejects a breakout.
type Reason string

const (
	ReasonDirectionBlocked  Reason = "DIRECTION_BLOCKED"
	ReasonReversal          Reason = "REVERSAL"
	ReasonTrendDirection    Reason = "TREND_DIRECTION"
	ReasonBreakout          Reason = "BREAKOUT"
	ReasonVolume            Reason = "VOLUME"
	ReasonIndicators        Reason = "INDICATORS"
	ReasonIndicatorNotReady Reason = "INDICATOR_NOT_READY"
	ReasonTrendStrength     Reason = "TREND_STRENGTH"
	ReasonStrengthUndefined Reason = "TREND_STRENGTH_UNDEFINED"
	ReasonCVDColor          Reason = "CVD_COLOR"
	ReasonMomentum          Reason = "MOMENTUM"
)

// Stages switches individual pipeline stages on or off.
type Stages struct {
	Reversal       bool `json:"reversal" yaml:"reversal"`
	TrendDirection bool `json:"trend_direction" yaml:"trend_direction"`
	Breakout       bool `json:"breakout" yaml:"breakout"`
	Volume         bool `json:"volume" yaml:"volume"`
	Indicators     bool `json:"indicators" yaml:"indicators"`
	TrendStrength  bool `json:"trend_strength" yaml:"trend_strength"`
	CVDColor       bool `json:"cvd_color" yaml:"cvd_color"`
	Momentum       bool `json:"momentum" yaml:"momentum"`
}

// AllStages enables the full pipeline.
func AllStages() Stages {
	return Stages{
		Reversal: true, TrendDirection: true, Breakout: true, Volume: true,
		Indicators: true, TrendStrength: true, CVDColor: true, Momentum: true,
	}
}

// Filter is one configured price filter (MA, MA2, VWAP). A nil Value
// means the filter is configured but has no value yet.
type Filter struct {
	Name  string
	Value *float64
}

// Input is everything the validator needs about the detection bar.
type Input struct {
	Bar       market.Bar
	CVD       float64
	Direction market.Direction
	Lines     indicators.Trendlines
	// Window holds the bars before Bar, never Bar itself.
	Window *Window
	// LastSide is the side of the last executed entry, 0 if none yet.
	LastSide market.Side
	// ADX is nil while the oscillator is undefined.
	ADX     *float64
	Filters []Filter
}

type Decision struct {
	Accepted bool
	Side     market.Side
	Reason   Reason
	Detail   string
}

func (d *Decision) reject(r Reason, format string, args ...any) {
	d.Accepted = false
	d.Reason = r
	d.Detail = fmt.Sprintf(format, args...)
}

// Validator runs the breakout confirmation pipeline in a fixed order.
type Validator struct {
	Stages        Stages
	Direction     market.TradeDirection
	MinADX        float64
	AccelMultiple float64
}

// Validate returns the first failing stage, or an accepted decision.
func (v Validator) Validate(in Input) Decision {
	side := in.Direction.Side()
	d := Decision{Accepted: true, Side: side}

	if in.Direction == market.NoBreakout {
		d.reject(ReasonBreakout, "no breakout")
		return d
	}
	if !v.Direction.Allows(side) {
		d.reject(ReasonDirectionBlocked, "%s not allowed (%s)", side, v.Direction)
		return d
	}

	s := v.Stages
	if s.Reversal && in.LastSide == side {
		d.reject(ReasonReversal, "last executed side was %s", side)
		return d
	}
	if s.TrendDirection {
		if in.Direction == market.Bullish && !(in.Lines.Resistance.Slope > 0) {
			d.reject(ReasonTrendDirection, "resistance slope %.6f not rising", in.Lines.Resistance.Slope)
			return d
		}
		if in.Direction == market.Bearish && !(in.Lines.Support.Slope < 0) {
			d.reject(ReasonTrendDirection, "support slope %.6f not falling", in.Lines.Support.Slope)
			return d
		}
	}

	w := in.Window
	if s.Breakout {
		if in.Direction == market.Bullish {
			if hi := w.MaxClose(); !(in.Bar.Close > hi) {
				d.reject(ReasonBreakout, "close %.5f not above window high %.5f", in.Bar.Close, hi)
				return d
			}
		} else if lo := w.MinClose(); !(in.Bar.Close < lo) {
			d.reject(ReasonBreakout, "close %.5f not below window low %.5f", in.Bar.Close, lo)
			return d
		}
	}
	if s.Volume {
		if avg := w.AvgVolume(); !(in.Bar.Volume > avg) {
			d.reject(ReasonVolume, "volume %.0f not above average %.2f", in.Bar.Volume, avg)
			return d
		}
	}
	if s.Indicators {
		for _, f := range in.Filters {
			if f.Value == nil {
				d.reject(ReasonIndicatorNotReady, "%s not ready", f.Name)
				return d
			}
			fv := *f.Value
			if (side == market.Long && !(in.Bar.Close > fv)) ||
				(side == market.Short && !(in.Bar.Close < fv)) {
				d.reject(ReasonIndicators, "close %.5f on wrong side of %s %.5f", in.Bar.Close, f.Name, fv)
				return d
			}
		}
	}
	if s.TrendStrength && v.MinADX > 0 {
		if in.ADX == nil {
			d.reject(ReasonStrengthUndefined, "ADX undefined")
			return d
		}
		if *in.ADX < v.MinADX {
			d.reject(ReasonTrendStrength, "ADX %.2f below %.2f", *in.ADX, v.MinADX)
			return d
		}
	}
	if s.CVDColor {
		if c := in.Bar.Color(); c != in.Direction.Color() {
			d.reject(ReasonCVDColor, "delta color %q does not confirm %s", c, in.Direction)
			return d
		}
	}
	if s.Momentum {
		if ok, detail := v.momentum(in, side); !ok {
			d.reject(ReasonMomentum, "%s", detail)
			return d
		}
	}
	return d
}

func (v Validator) momentum(in Input, side market.Side) (bool, string) {
	prev, ok1 := in.Window.LastCVD(0)
	prev2, ok2 := in.Window.LastCVD(1)
	if !ok1 || !ok2 {
		return false, "not enough CVD history"
	}
	d0 := in.CVD - prev
	d1 := prev - prev2
	if d0*float64(side) <= 0 {
		return false, fmt.Sprintf("CVD change %.2f against %s", d0, side)
	}
	if math.Abs(d0) < math.Abs(d1) {
		return false, fmt.Sprintf("CVD change %.2f decelerating from %.2f", d0, d1)
	}
	avg := in.Window.AvgAbsCVDChange()
	if !(math.Abs(d0) > v.AccelMultiple*avg) {
		return false, fmt.Sprintf("CVD change %.2f not above %.2fx average %.2f", d0, v.AccelMultiple, avg)
	}
	return true, ""
}
