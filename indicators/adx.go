package indicators

import (
	"fmt"
	"math"

	"github.com/rustyeddy/breakout/market"
)

// ADX computes Wilder's Average Directional Index over bar OHLC.
//
// Readiness / warmup:
//   - the first bar only seeds the previous high/low/close
//   - the next N periods are averaged to seed smoothed TR/+DM/-DM
//   - N DX values are averaged to seed ADX, which is Wilder-smoothed after that
//
// So ADX becomes ready on bar 2N (counting the seed bar).
type ADX struct {
	n    int
	name string

	prev    market.Bar
	hasPrev bool
	periods int

	sumTR      float64
	sumPlusDM  float64
	sumMinusDM float64

	smTR      float64
	smPlusDM  float64
	smMinusDM float64

	plusDI  float64
	minusDI float64
	lastDX  float64

	dxSum   float64
	dxCount int

	adx   float64
	ready bool
}

func NewADX(period int) *ADX {
	if period <= 0 {
		panic("ADX period must be > 0")
	}
	return &ADX{
		n:    period,
		name: fmt.Sprintf("ADX(%d)", period),
	}
}

func (a *ADX) Name() string   { return a.name }
func (a *ADX) Warmup() int    { return 2 * a.n }
func (a *ADX) Ready() bool    { return a.ready }
func (a *ADX) Value() float64 { return a.adx }

// DIReady reports whether +DI/-DI are defined (first N periods seen).
func (a *ADX) DIReady() bool    { return a.periods >= a.n }
func (a *ADX) PlusDI() float64  { return a.plusDI }
func (a *ADX) MinusDI() float64 { return a.minusDI }
func (a *ADX) DX() float64      { return a.lastDX }

func (a *ADX) Reset() {
	*a = ADX{n: a.n, name: a.name}
}

// Update consumes the next closed bar.
func (a *ADX) Update(b market.Bar) {
	if !a.hasPrev {
		a.prev = b
		a.hasPrev = true
		return
	}

	tr := trueRange(b, a.prev)

	upMove := b.High - a.prev.High
	downMove := a.prev.Low - b.Low

	var plusDM, minusDM float64
	if upMove > downMove && upMove > 0 {
		plusDM = upMove
	}
	if downMove > upMove && downMove > 0 {
		minusDM = downMove
	}

	a.prev = b
	a.periods++
	nf := float64(a.n)

	// Seed with a simple average of the first N periods.
	if a.periods <= a.n {
		a.sumTR += tr
		a.sumPlusDM += plusDM
		a.sumMinusDM += minusDM
		if a.periods < a.n {
			return
		}
		a.smTR = a.sumTR / nf
		a.smPlusDM = a.sumPlusDM / nf
		a.smMinusDM = a.sumMinusDM / nf
	} else {
		a.smTR = (a.smTR*(nf-1) + tr) / nf
		a.smPlusDM = (a.smPlusDM*(nf-1) + plusDM) / nf
		a.smMinusDM = (a.smMinusDM*(nf-1) + minusDM) / nf
	}

	a.plusDI, a.minusDI = di(a.smPlusDM, a.smMinusDM, a.smTR)
	a.lastDX = dx(a.plusDI, a.minusDI)

	if !a.ready {
		a.dxSum += a.lastDX
		a.dxCount++
		if a.dxCount == a.n {
			a.adx = a.dxSum / nf
			a.ready = true
		}
		return
	}
	a.adx = (a.adx*(nf-1) + a.lastDX) / nf
}

func di(smPlusDM, smMinusDM, smTR float64) (plusDI, minusDI float64) {
	if smTR <= 0 {
		return 0, 0
	}
	return 100.0 * smPlusDM / smTR, 100.0 * smMinusDM / smTR
}

func dx(plusDI, minusDI float64) float64 {
	den := plusDI + minusDI
	if den <= 0 {
		return 0
	}
	return 100.0 * math.Abs(plusDI-minusDI) / den
}

// trueRange calculates the True Range for a bar given the previous bar.
func trueRange(cur, prev market.Bar) float64 {
	return math.Max(cur.High-cur.Low,
		math.Max(math.Abs(cur.High-prev.Close), math.Abs(cur.Low-prev.Close)))
}
