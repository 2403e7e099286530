package signal

import (
	"math"

	"github.com/rustyeddy/breakout/indicators"
)

// Window is the rolling history the validator looks back on: the last n
// closes, volumes and CVD values, oldest first. It never contains the bar
// being evaluated.
type Window struct {
	n       int
	closes  []float64
	volumes []float64
	cvd     []float64
}

func NewWindow(n int) *Window {
	if n <= 0 {
		panic("window length must be > 0")
	}
	return &Window{
		n:       n,
		closes:  make([]float64, 0, n),
		volumes: make([]float64, 0, n),
		cvd:     make([]float64, 0, n),
	}
}

// Push appends a finished bar's values, dropping the oldest once full.
func (w *Window) Push(close, volume, cvd float64) {
	if len(w.closes) == w.n {
		copy(w.closes, w.closes[1:])
		copy(w.volumes, w.volumes[1:])
		copy(w.cvd, w.cvd[1:])
		w.closes = w.closes[:w.n-1]
		w.volumes = w.volumes[:w.n-1]
		w.cvd = w.cvd[:w.n-1]
	}
	w.closes = append(w.closes, close)
	w.volumes = append(w.volumes, volume)
	w.cvd = append(w.cvd, cvd)
}

func (w *Window) Len() int   { return len(w.closes) }
func (w *Window) Cap() int   { return w.n }
func (w *Window) Full() bool { return len(w.closes) == w.n }

// CVD returns the window's CVD values. The slice must not be modified.
func (w *Window) CVD() []float64 { return w.cvd }

func (w *Window) MaxClose() float64 {
	m := math.Inf(-1)
	for _, c := range w.closes {
		m = math.Max(m, c)
	}
	return m
}

func (w *Window) MinClose() float64 {
	m := math.Inf(1)
	for _, c := range w.closes {
		m = math.Min(m, c)
	}
	return m
}

func (w *Window) AvgVolume() float64 { return indicators.Mean(w.volumes) }

// AvgAbsCVDChange is the mean absolute first difference of CVD across the
// window.
func (w *Window) AvgAbsCVDChange() float64 {
	if len(w.cvd) < 2 {
		return 0
	}
	var sum float64
	for i := 1; i < len(w.cvd); i++ {
		sum += math.Abs(w.cvd[i] - w.cvd[i-1])
	}
	return sum / float64(len(w.cvd)-1)
}

// LastCVD returns the k-th most recent CVD value (k=0 is the newest).
func (w *Window) LastCVD(k int) (float64, bool) {
	i := len(w.cvd) - 1 - k
	if i < 0 {
		return 0, false
	}
	return w.cvd[i], true
}
