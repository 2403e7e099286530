package market

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"
)

// Instrument describes the contract being replayed.
type Instrument struct {
	Symbol string `json:"symbol" yaml:"symbol"`

	// TickSize is the minimum price increment.
	TickSize float64 `json:"tick_size" yaml:"tick_size"`
	// TickValue is the cash value of one tick for one contract.
	TickValue float64 `json:"tick_value" yaml:"tick_value"`
	// Commission is the round-trip commission per contract.
	Commission float64 `json:"commission" yaml:"commission"`
}

// Instruments holds the futures contracts we ship defaults for.
var Instruments = map[string]Instrument{
	"ES":  {Symbol: "ES", TickSize: 0.25, TickValue: 12.5, Commission: 2.5},
	"MES": {Symbol: "MES", TickSize: 0.25, TickValue: 1.25, Commission: 0.62},
	"NQ":  {Symbol: "NQ", TickSize: 0.25, TickValue: 5, Commission: 2.5},
	"MNQ": {Symbol: "MNQ", TickSize: 0.25, TickValue: 0.5, Commission: 0.62},
	"CL":  {Symbol: "CL", TickSize: 0.01, TickValue: 10, Commission: 2.5},
	"GC":  {Symbol: "GC", TickSize: 0.1, TickValue: 10, Commission: 2.5},
}

func (in Instrument) Validate() error {
	if in.TickSize <= 0 || math.IsNaN(in.TickSize) {
		return fmt.Errorf("instrument %q: tick_size must be positive", in.Symbol)
	}
	if in.TickValue <= 0 || math.IsNaN(in.TickValue) {
		return fmt.Errorf("instrument %q: tick_value must be positive", in.Symbol)
	}
	if in.Commission < 0 {
		return fmt.Errorf("instrument %q: commission must not be negative", in.Symbol)
	}
	return nil
}

// RoundToTick snaps a price onto the tick grid (half away from zero).
func (in Instrument) RoundToTick(p float64) float64 {
	n := math.Round(p / in.TickSize)
	return n * in.TickSize
}

// OnGrid reports whether p is a whole number of ticks.
func (in Instrument) OnGrid(p float64) bool {
	n := p / in.TickSize
	return math.Abs(n-math.Round(n)) < 1e-6
}

// Ticks converts a signed point distance into whole ticks.
func (in Instrument) Ticks(points float64) int64 {
	return int64(math.Round(points / in.TickSize))
}

// TicksValue is the cash value of ticks for the given contract count.
func (in Instrument) TicksValue(ticks int64, contracts int) decimal.Decimal {
	return decimal.NewFromInt(ticks).
		Mul(decimal.NewFromFloat(in.TickValue)).
		Mul(decimal.NewFromInt(int64(contracts)))
}

// CommissionFor is the round-trip commission for contracts.
func (in Instrument) CommissionFor(contracts int) decimal.Decimal {
	return decimal.NewFromFloat(in.Commission).Mul(decimal.NewFromInt(int64(contracts)))
}
