package market

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
)

// ErrMalformedBar is returned (wrapped) for bars that cannot be replayed.
var ErrMalformedBar = errors.New("malformed bar")

// DeltaColor is the tag a data vendor attaches to a bar's volume delta.
type DeltaColor int8

const (
	ColorNone DeltaColor = iota
	ColorBull
	ColorBear
	ColorNeutral
)

func (c DeltaColor) String() string {
	switch c {
	case ColorBull:
		return "green"
	case ColorBear:
		return "red"
	case ColorNeutral:
		return "neutral"
	default:
		return ""
	}
}

// ParseDeltaColor accepts the spellings seen in vendor exports.
func ParseDeltaColor(s string) (DeltaColor, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return ColorNone, nil
	case "green", "bull", "bullish", "up", "buy", "1":
		return ColorBull, nil
	case "red", "bear", "bearish", "down", "sell", "-1":
		return ColorBear, nil
	case "neutral", "gray", "grey", "flat", "0":
		return ColorNeutral, nil
	}
	return ColorNone, fmt.Errorf("unknown delta color %q", s)
}

// Bar is one aggregated interval of price/volume data.
//
// Optional fields are pointers; nil means the source did not provide them.
type Bar struct {
	Time   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64

	// Delta is the signed (buy minus sell) volume of this bar.
	Delta    float64
	CVD      *float64
	CVDColor DeltaColor

	ADX     *float64
	PlusDI  *float64
	MinusDI *float64

	MA   *float64
	MA2  *float64
	VWAP *float64
}

// Color returns the bar's delta color, falling back to the sign of Delta
// when the source did not tag it.
func (b Bar) Color() DeltaColor {
	if b.CVDColor != ColorNone {
		return b.CVDColor
	}
	switch {
	case b.Delta > 0:
		return ColorBull
	case b.Delta < 0:
		return ColorBear
	default:
		return ColorNeutral
	}
}

// TypicalPrice is (H+L+C)/3.
func (b Bar) TypicalPrice() float64 {
	return (b.High + b.Low + b.Close) / 3.0
}

// Validate reports ErrMalformedBar for anything the engine cannot price.
func (b Bar) Validate() error {
	if b.Time.IsZero() {
		return fmt.Errorf("%w: zero timestamp", ErrMalformedBar)
	}
	for _, f := range []struct {
		name string
		v    float64
	}{
		{"open", b.Open}, {"high", b.High}, {"low", b.Low}, {"close", b.Close},
		{"volume", b.Volume}, {"delta", b.Delta},
	} {
		if math.IsNaN(f.v) || math.IsInf(f.v, 0) {
			return fmt.Errorf("%w: %s is not finite", ErrMalformedBar, f.name)
		}
	}
	if b.Open <= 0 || b.High <= 0 || b.Low <= 0 || b.Close <= 0 {
		return fmt.Errorf("%w: non-positive price at %s", ErrMalformedBar, b.Time.Format(time.RFC3339))
	}
	if b.High < b.Low {
		return fmt.Errorf("%w: high %.5f below low %.5f", ErrMalformedBar, b.High, b.Low)
	}
	if b.Open > b.High || b.Open < b.Low || b.Close > b.High || b.Close < b.Low {
		return fmt.Errorf("%w: open/close outside high-low range at %s", ErrMalformedBar, b.Time.Format(time.RFC3339))
	}
	if b.Volume < 0 {
		return fmt.Errorf("%w: negative volume", ErrMalformedBar)
	}
	for _, p := range []*float64{b.CVD, b.ADX, b.PlusDI, b.MinusDI, b.MA, b.MA2, b.VWAP} {
		if p != nil && (math.IsNaN(*p) || math.IsInf(*p, 0)) {
			return fmt.Errorf("%w: optional field is not finite", ErrMalformedBar)
		}
	}
	return nil
}

// F returns a pointer to v, for filling optional bar fields.
func F(v float64) *float64 { return &v }
