// Package risk enforces daily loss and profit limits.
package risk

import "github.com/shopspring/decimal"

type Policy struct {
	// MaxDailyLoss is a positive amount; zero disables the loss limit.
	MaxDailyLoss decimal.Decimal
	// MaxDailyProfit is a positive amount; zero disables the profit limit.
	MaxDailyProfit decimal.Decimal
}

func NewPolicy(maxLoss, maxProfit float64) Policy {
	return Policy{
		MaxDailyLoss:   decimal.NewFromFloat(maxLoss),
		MaxDailyProfit: decimal.NewFromFloat(maxProfit),
	}
}

func (p Policy) lossLimited() bool   { return p.MaxDailyLoss.IsPositive() }
func (p Policy) profitLimited() bool { return p.MaxDailyProfit.IsPositive() }

// Breach says which daily limit, if any, has been reached.
type Breach int8

const (
	NoBreach Breach = iota
	LossBreach
	ProfitBreach
)

func (b Breach) String() string {
	switch b {
	case LossBreach:
		return "DAILY_LOSS_LIMIT"
	case ProfitBreach:
		return "DAILY_PROFIT_LIMIT"
	default:
		return ""
	}
}
