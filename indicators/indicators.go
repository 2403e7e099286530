// Package indicators provides streaming technical indicators and the
// trend-line fitter used by the breakout feature engine.
package indicators

import "github.com/rustyeddy/breakout/market"

// Indicator computes a single streaming value from bars.
// It is deterministic and safe to use in replay and backtests.
type Indicator interface {
	// Name returns a stable identifier like "MA(20)" or "ADX(14)".
	Name() string

	// Warmup returns how many updates are needed before Ready() can be true.
	Warmup() int

	// Reset clears all internal state.
	Reset()

	// Update consumes the next *closed* bar and updates internal state.
	Update(b market.Bar)

	// Ready reports whether Value() is meaningful (warmup completed).
	Ready() bool

	// Value returns the current value. Callers must check Ready() first;
	// an indicator that is not ready is undefined, not zero.
	Value() float64
}
