package indicators

import (
	"fmt"

	"github.com/rustyeddy/breakout/market"
)

// SimpleMA is a streaming simple moving average of bar closes.
type SimpleMA struct {
	n    int
	name string

	buf  []float64
	head int
	sum  float64
	seen int
}

func NewSimpleMA(period int) *SimpleMA {
	if period <= 0 {
		panic("MA period must be > 0")
	}
	return &SimpleMA{
		n:    period,
		name: fmt.Sprintf("MA(%d)", period),
		buf:  make([]float64, period),
	}
}

func (m *SimpleMA) Name() string { return m.name }
func (m *SimpleMA) Warmup() int  { return m.n }
func (m *SimpleMA) Ready() bool  { return m.seen >= m.n }

func (m *SimpleMA) Value() float64 {
	if m.seen == 0 {
		return 0
	}
	if m.seen < m.n {
		return m.sum / float64(m.seen)
	}
	return m.sum / float64(m.n)
}

func (m *SimpleMA) Reset() {
	for i := range m.buf {
		m.buf[i] = 0
	}
	m.head, m.sum, m.seen = 0, 0, 0
}

func (m *SimpleMA) Update(b market.Bar) {
	if m.seen >= m.n {
		m.sum -= m.buf[m.head]
	}
	m.buf[m.head] = b.Close
	m.sum += b.Close
	m.head = (m.head + 1) % m.n
	if m.seen < m.n {
		m.seen++
	}
}

// Mean returns the arithmetic mean of xs (0 for an empty slice).
func Mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}
