package indicators

import (
	"math"

	"github.com/rustyeddy/breakout/market"
)

const (
	wrongSideTol    = 1e-5
	minStepFraction = 1e-4
	maxFitIters     = 200
	maxNoImprove    = 20
)

// Line is y = Slope*x + Intercept over window indices 0..n-1.
type Line struct {
	Slope     float64 `json:"slope"`
	Intercept float64 `json:"intercept"`
}

// At evaluates the line at index x.
func (l Line) At(x float64) float64 { return l.Slope*x + l.Intercept }

// Trendlines is a support/resistance pair fitted over one window.
type Trendlines struct {
	Support    Line `json:"support"`
	Resistance Line `json:"resistance"`
	// N is the window length the lines were fitted on.
	N int `json:"n"`
}

// Next projects both lines one index past the fitted window.
func (t Trendlines) Next() (support, resistance float64) {
	x := float64(t.N)
	return t.Support.At(x), t.Resistance.At(x)
}

// FitTrendlines fits support and resistance lines to y.
//
// An OLS line picks the pivots (largest residual above for resistance,
// below for support). Each line is then pinned to its pivot and its slope
// walked towards the minimum squared distance to the data while staying
// on the correct side of every point. ok is false for fewer than 2 points.
func FitTrendlines(y []float64) (t Trendlines, ok bool) {
	n := len(y)
	if n < 2 {
		return Trendlines{}, false
	}
	slope, intercept := ols(y)

	upper, lower := 0, 0
	maxRes, minRes := math.Inf(-1), math.Inf(1)
	for i, v := range y {
		r := v - (slope*float64(i) + intercept)
		if r > maxRes {
			maxRes, upper = r, i
		}
		if r < minRes {
			minRes, lower = r, i
		}
	}

	t.N = n
	t.Support = optimizeSlope(true, lower, slope, y)
	t.Resistance = optimizeSlope(false, upper, slope, y)
	return t, true
}

// ols returns the least-squares slope and intercept of y against 0..n-1.
func ols(y []float64) (slope, intercept float64) {
	n := float64(len(y))
	var sx, sy, sxx, sxy float64
	for i, v := range y {
		x := float64(i)
		sx += x
		sy += v
		sxx += x * x
		sxy += x * v
	}
	den := n*sxx - sx*sx
	if den == 0 {
		return 0, sy / n
	}
	slope = (n*sxy - sx*sy) / den
	intercept = (sy - slope*sx) / n
	return slope, intercept
}

// lineError is the sum of squared distances from a line through
// (pivot, y[pivot]) with the given slope, or -1 when some point lies on
// the wrong side.
func lineError(support bool, pivot int, slope float64, y []float64) float64 {
	intercept := y[pivot] - slope*float64(pivot)
	var sum float64
	for i, v := range y {
		d := slope*float64(i) + intercept - v
		if support && d > wrongSideTol {
			return -1
		}
		if !support && d < -wrongSideTol {
			return -1
		}
		sum += d * d
	}
	return sum
}

func optimizeSlope(support bool, pivot int, initSlope float64, y []float64) Line {
	hi, lo := y[0], y[0]
	for _, v := range y {
		hi = math.Max(hi, v)
		lo = math.Min(lo, v)
	}
	unit := (hi - lo) / float64(len(y))
	if unit == 0 {
		unit = 1
	}

	best := initSlope
	bestErr := lineError(support, pivot, best, y)
	line := func(s float64) Line {
		return Line{Slope: s, Intercept: y[pivot] - s*float64(pivot)}
	}
	if bestErr < 0 {
		return line(best)
	}

	step := 1.0
	var derivative float64
	needDerivative := true
	noImprove := 0

	for iter := 0; iter < maxFitIters && step >= minStepFraction && noImprove < maxNoImprove; iter++ {
		if needDerivative {
			probe := lineError(support, pivot, best+unit*minStepFraction, y)
			derivative = probe - bestErr
			if probe < 0 {
				probe = lineError(support, pivot, best-unit*minStepFraction, y)
				derivative = bestErr - probe
			}
			if probe < 0 {
				// Pinned by points on both sides; nothing to improve.
				break
			}
			needDerivative = false
		}

		cand := best + unit*step
		if derivative > 0 {
			cand = best - unit*step
		}
		e := lineError(support, pivot, cand, y)
		if e < 0 || e >= bestErr {
			step *= 0.5
			noImprove++
			continue
		}
		best, bestErr = cand, e
		noImprove = 0
		needDerivative = true
	}
	return line(best)
}

// Breakout classifies next (the value one step past the fitted window)
// against the projected lines. tol widens each line by a fraction of its
// own magnitude. Resistance is tested first.
func Breakout(t Trendlines, next, tol float64) market.Direction {
	if t.N == 0 {
		return market.NoBreakout
	}
	sup, res := t.Next()
	switch {
	case next >= res-tol*math.Abs(res):
		return market.Bullish
	case next <= sup+tol*math.Abs(sup):
		return market.Bearish
	default:
		return market.NoBreakout
	}
}
