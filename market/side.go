package market

import (
	"fmt"
	"strings"
)

// Side: +1 long, -1 short
type Side int8

const (
	Long  Side = +1
	Short Side = -1
)

func (s Side) String() string {
	switch s {
	case Long:
		return "LONG"
	case Short:
		return "SHORT"
	default:
		return "FLAT"
	}
}

// Direction is the outcome of a trend-line breakout test.
type Direction int8

const (
	NoBreakout Direction = 0
	Bullish    Direction = +1
	Bearish    Direction = -1
)

func (d Direction) String() string {
	switch d {
	case Bullish:
		return "bullish"
	case Bearish:
		return "bearish"
	default:
		return "none"
	}
}

// Side maps a breakout direction to the side it trades.
func (d Direction) Side() Side {
	return Side(d)
}

// Color is the delta color that confirms this direction.
func (d Direction) Color() DeltaColor {
	switch d {
	case Bullish:
		return ColorBull
	case Bearish:
		return ColorBear
	default:
		return ColorNone
	}
}

// TradeDirection restricts which sides a run may open.
type TradeDirection string

const (
	BothSides TradeDirection = "both"
	LongOnly  TradeDirection = "long"
	ShortOnly TradeDirection = "short"
)

func ParseTradeDirection(s string) (TradeDirection, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "both":
		return BothSides, nil
	case "long", "long-only", "long_only":
		return LongOnly, nil
	case "short", "short-only", "short_only":
		return ShortOnly, nil
	}
	return "", fmt.Errorf("unknown trade direction %q (want both, long or short)", s)
}

// Allows reports whether side may be opened under this restriction.
func (t TradeDirection) Allows(side Side) bool {
	switch t {
	case LongOnly:
		return side == Long
	case ShortOnly:
		return side == Short
	default:
		return true
	}
}
