package signal

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/breakout/indicators"
	"github.com/rustyeddy/breakout/market"
)

// bullishInput passes every stage of a default validator.
func bullishInput() Input {
	w := NewWindow(4)
	w.Push(100, 10, 0)
	w.Push(101, 10, 10)
	w.Push(100.5, 10, 20)
	w.Push(101.5, 10, 30)

	return Input{
		Bar: market.Bar{
			Time: time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC),
			Open: 101.5, High: 103, Low: 101, Close: 102.5, Volume: 50, Delta: 40,
		},
		CVD:       70,
		Direction: market.Bullish,
		Lines: indicators.Trendlines{
			Support:    indicators.Line{Slope: 10},
			Resistance: indicators.Line{Slope: 10, Intercept: 1},
			N:          4,
		},
		Window:  w,
		ADX:     market.F(30),
		Filters: []Filter{{Name: "MA(3)", Value: market.F(101)}, {Name: "VWAP", Value: market.F(100)}},
	}
}

func defaultValidator() Validator {
	return Validator{Stages: AllStages(), Direction: market.BothSides, MinADX: 20, AccelMultiple: 1.5}
}

func TestValidatorAccepts(t *testing.T) {
	t.Parallel()

	d := defaultValidator().Validate(bullishInput())
	require.True(t, d.Accepted, "%s: %s", d.Reason, d.Detail)
	assert.Equal(t, market.Long, d.Side)
}

func TestValidatorRejections(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*Validator, *Input)
		want   Reason
	}{
		{"direction restricted", func(v *Validator, in *Input) { v.Direction = market.ShortOnly }, ReasonDirectionBlocked},
		{"reversal", func(v *Validator, in *Input) { in.LastSide = market.Long }, ReasonReversal},
		{"flat resistance", func(v *Validator, in *Input) { in.Lines.Resistance.Slope = 0 }, ReasonTrendDirection},
		{"close inside window", func(v *Validator, in *Input) { in.Bar.Close = 101.5 }, ReasonBreakout},
		{"light volume", func(v *Validator, in *Input) { in.Bar.Volume = 10 }, ReasonVolume},
		{"below MA", func(v *Validator, in *Input) { in.Filters[0].Value = market.F(103) }, ReasonIndicators},
		{"MA not ready", func(v *Validator, in *Input) { in.Filters[0].Value = nil }, ReasonIndicatorNotReady},
		{"ADX undefined", func(v *Validator, in *Input) { in.ADX = nil }, ReasonStrengthUndefined},
		{"ADX weak", func(v *Validator, in *Input) { in.ADX = market.F(19.9) }, ReasonTrendStrength},
		{"neutral color", func(v *Validator, in *Input) { in.Bar.CVDColor = market.ColorNeutral }, ReasonCVDColor},
		{"wrong color", func(v *Validator, in *Input) { in.Bar.Delta = -5 }, ReasonCVDColor},
		{"decelerating", func(v *Validator, in *Input) { in.CVD = 35 }, ReasonMomentum},
		{"momentum against", func(v *Validator, in *Input) { in.CVD = 25 }, ReasonMomentum},
		{"no breakout", func(v *Validator, in *Input) { in.Direction = market.NoBreakout }, ReasonBreakout},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			v := defaultValidator()
			in := bullishInput()
			tt.mutate(&v, &in)
			d := v.Validate(in)
			assert.False(t, d.Accepted)
			assert.Equal(t, tt.want, d.Reason, d.Detail)
		})
	}
}

func TestValidatorFirstFailureWins(t *testing.T) {
	t.Parallel()

	in := bullishInput()
	in.LastSide = market.Long
	in.Bar.Volume = 1
	in.ADX = nil

	d := defaultValidator().Validate(in)
	assert.Equal(t, ReasonReversal, d.Reason)
}

func TestValidatorStageToggles(t *testing.T) {
	t.Parallel()

	in := bullishInput()
	in.LastSide = market.Long
	in.Bar.Volume = 1
	in.ADX = nil

	v := defaultValidator()
	v.Stages.Reversal = false
	v.Stages.Volume = false
	v.Stages.TrendStrength = false
	d := v.Validate(in)
	assert.True(t, d.Accepted, "%s: %s", d.Reason, d.Detail)

	// Without a minimum, an undefined ADX never blocks.
	v = defaultValidator()
	v.MinADX = 0
	in = bullishInput()
	in.ADX = nil
	assert.True(t, v.Validate(in).Accepted)
}

func TestValidatorMomentumMultiple(t *testing.T) {
	t.Parallel()

	// Steady CVD: the change matches the last one and the window average,
	// so only the multiple can reject it.
	in := bullishInput()
	in.CVD = 40
	d := defaultValidator().Validate(in)
	assert.False(t, d.Accepted)
	assert.Equal(t, ReasonMomentum, d.Reason)
	assert.Equal(t, "CVD change 10.00 not above 1.50x average 10.00", d.Detail)

	v := defaultValidator()
	v.AccelMultiple = 0.9
	d = v.Validate(in)
	assert.True(t, d.Accepted, "%s: %s", d.Reason, d.Detail)
}

func TestValidatorBearish(t *testing.T) {
	t.Parallel()

	w := NewWindow(3)
	w.Push(100, 10, 0)
	w.Push(99, 10, -10)
	w.Push(99.5, 10, -20)

	in := Input{
		Bar:       market.Bar{Open: 99, High: 99.5, Low: 97.5, Close: 98, Volume: 20, Delta: -30},
		CVD:       -50,
		Direction: market.Bearish,
		Lines:     indicators.Trendlines{Support: indicators.Line{Slope: -10}, N: 3},
		Window:    w,
		LastSide:  market.Long,
	}
	d := Validator{Stages: AllStages(), AccelMultiple: 1}.Validate(in)
	require.True(t, d.Accepted, "%s: %s", d.Reason, d.Detail)
	assert.Equal(t, market.Short, d.Side)

	in.Lines.Support.Slope = 0.1
	d = Validator{Stages: AllStages(), AccelMultiple: 1}.Validate(in)
	assert.Equal(t, ReasonTrendDirection, d.Reason)
}

func TestWindowRolls(t *testing.T) {
	t.Parallel()

	w := NewWindow(3)
	for i := 1; i <= 5; i++ {
		w.Push(float64(i), float64(10*i), float64(i*i))
	}
	assert.True(t, w.Full())
	assert.Equal(t, 3, w.Len())
	assert.Equal(t, []float64{9, 16, 25}, w.CVD())
	assert.Equal(t, 5.0, w.MaxClose())
	assert.Equal(t, 3.0, w.MinClose())
	assert.Equal(t, 40.0, w.AvgVolume())
	assert.Equal(t, 8.0, w.AvgAbsCVDChange())

	v, ok := w.LastCVD(1)
	assert.True(t, ok)
	assert.Equal(t, 16.0, v)
	_, ok = w.LastCVD(3)
	assert.False(t, ok)
}
