// Package backtest replays bars through the breakout strategy.
package backtest

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/rustyeddy/breakout/diag"
	"github.com/rustyeddy/breakout/indicators"
	"github.com/rustyeddy/breakout/ledger"
	"github.com/rustyeddy/breakout/market"
	"github.com/rustyeddy/breakout/risk"
	"github.com/rustyeddy/breakout/signal"
	"github.com/rustyeddy/breakout/sim"
	"github.com/rustyeddy/breakout/stats"
)

// ErrOutOfOrder is returned (wrapped) when bar times do not strictly increase.
var ErrOutOfOrder = errors.New("bar out of order")

// BarSource yields bars one at a time, oldest first.
// Implementations should be deterministic and return (ok=false, err=nil) at EOF.
type BarSource interface {
	Next() (b market.Bar, ok bool, err error)
	Close() error
}

// Result is everything a run produced.
type Result struct {
	BarCount    int                    `json:"bar_count"`
	Start       time.Time              `json:"start"`
	End         time.Time              `json:"end"`
	Diagnostics []diag.Event           `json:"diagnostics"`
	Rejections  map[string]int         `json:"rejections"`
	Stats       stats.Summary          `json:"stats"`
	Trades      []sim.Trade            `json:"trades"`
	Days        []risk.DailyStats      `json:"days"`
	EquityCurve []ledger.Snapshot      `json:"equity_curve"`
	Drawdowns   []ledger.DrawdownEvent `json:"drawdowns"`
	Validation  Validation             `json:"validation"`
}

type Option func(*options)

type options struct {
	logger *zap.Logger
}

// WithLogger mirrors diagnostics to logger at debug level.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// Run replays src under p. src is closed when Run returns.
func Run(src BarSource, p Params, opts ...Option) (*Result, error) {
	if src == nil {
		return nil, fmt.Errorf("backtest: source is required")
	}
	defer src.Close()

	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("backtest: invalid params: %w", err)
	}
	o := options{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}

	r := newRunner(p, o)
	for read := 0; ; read++ {
		b, ok, err := src.Next()
		if err != nil {
			return nil, fmt.Errorf("read bar %d: %w", read, err)
		}
		if !ok {
			break
		}
		if err := r.step(b); err != nil {
			return nil, err
		}
	}
	return r.finish(), nil
}

// RunBars replays an in-memory slice.
func RunBars(bars []market.Bar, p Params, opts ...Option) (*Result, error) {
	return Run(NewSliceSource(bars), p, opts...)
}

// SliceSource is a BarSource over a slice.
type SliceSource struct {
	bars []market.Bar
	i    int
}

func NewSliceSource(bars []market.Bar) *SliceSource { return &SliceSource{bars: bars} }

func (s *SliceSource) Next() (market.Bar, bool, error) {
	if s.i >= len(s.bars) {
		return market.Bar{}, false, nil
	}
	b := s.bars[s.i]
	s.i++
	return b, true, nil
}

func (s *SliceSource) Close() error { return nil }

type runner struct {
	p         Params
	validator signal.Validator
	log       *diag.Log

	exec   *sim.Executor
	risk   *risk.Manager
	ledger *ledger.Ledger

	window *signal.Window
	adx    *indicators.ADX
	ma     *indicators.SimpleMA
	ma2    *indicators.SimpleMA
	vwap   *indicators.SessionVWAP
	// streams holds every indicator above that is fed on push.
	streams []indicators.Indicator

	cvdSum     float64
	n          int
	first      market.Bar
	prev       market.Bar
	trades     []sim.Trade
	rejections map[string]int
}

func newRunner(p Params, o options) *runner {
	r := &runner{
		p:          p,
		validator:  p.validator(),
		log:        diag.NewLog(o.logger),
		exec:       sim.NewExecutor(p.executorConfig()),
		risk:       risk.NewManager(risk.NewPolicy(p.MaxDailyLoss, p.MaxDailyProfit)),
		window:     signal.NewWindow(p.Lookback),
		adx:        indicators.NewADX(p.ADXPeriod),
		vwap:       indicators.NewSessionVWAP(),
		rejections: make(map[string]int),
	}
	r.streams = []indicators.Indicator{r.adx, r.vwap}
	if p.MAPeriod > 0 {
		r.ma = indicators.NewSimpleMA(p.MAPeriod)
		r.streams = append(r.streams, r.ma)
	}
	if p.MA2Period > 0 {
		r.ma2 = indicators.NewSimpleMA(p.MA2Period)
		r.streams = append(r.streams, r.ma2)
	}
	if !p.InitialTime.IsZero() {
		r.ledger = ledger.New(decimal.NewFromFloat(p.InitialBalance), p.InitialTime)
	}
	return r
}

// step processes one bar. Order: validation, gap check, executor,
// bookkeeping, signal search, then history update.
func (r *runner) step(b market.Bar) error {
	idx := r.n
	if err := b.Validate(); err != nil {
		return fmt.Errorf("bar %d: %w", idx, err)
	}
	if r.n > 0 && !b.Time.After(r.prev.Time) {
		return fmt.Errorf("bar %d at %s not after %s: %w",
			idx, b.Time.Format(time.RFC3339), r.prev.Time.Format(time.RFC3339), ErrOutOfOrder)
	}
	if !r.p.InWindow(b.Time) {
		r.log.Add(idx, b.Time, diag.KindOutOfWindow, "", "outside [start, end)")
		return nil
	}

	cvd := r.nextCVD(b)
	if r.n == 0 {
		r.first = b
		if r.ledger == nil {
			r.ledger = ledger.New(decimal.NewFromFloat(r.p.InitialBalance), b.Time)
		}
		r.push(b, cvd)
		return nil
	}

	r.classifyGap(idx, b)

	env := sim.Env{CanTrade: r.risk.CanTrade(b.Time)}
	if !env.CanTrade {
		env.LimitReason = limitReason(r.risk.Breach(b.Time))
	}
	closed := r.exec.Step(b, idx, env)
	r.drainNotes(idx, b.Time)
	for _, t := range closed {
		r.book(idx, t)
	}

	if _, pending := r.exec.Pending(); r.exec.Flat() && !pending &&
		r.risk.CanTrade(b.Time) && !r.exec.PastCutoff(b) && r.window.Full() {
		r.search(idx, b, cvd)
	}

	r.push(b, cvd)
	return nil
}

// nextCVD is the bar's own CVD when provided, else the running delta sum.
func (r *runner) nextCVD(b market.Bar) float64 {
	r.cvdSum += b.Delta
	if b.CVD != nil {
		return *b.CVD
	}
	return r.cvdSum
}

func (r *runner) push(b market.Bar, cvd float64) {
	for _, ind := range r.streams {
		ind.Update(b)
	}
	r.window.Push(b.Close, b.Volume, cvd)
	r.prev = b
	r.n++
}

func (r *runner) classifyGap(idx int, b market.Bar) {
	ref := r.prev.Close
	gap := math.Abs(b.Open-ref) / ref
	switch {
	case gap >= r.p.ExtremeGap:
		r.log.Add(idx, b.Time, diag.KindExtremeGap, "", fmt.Sprintf("open %.5f vs close %.5f (%.3f%%)", b.Open, ref, gap*100))
		if r.exec.CancelPending() {
			r.log.Add(idx, b.Time, diag.KindPendingCancelled, "", "extreme gap")
		}
	case gap >= r.p.SignificantGap:
		r.log.Add(idx, b.Time, diag.KindGap, "", fmt.Sprintf("open %.5f vs close %.5f (%.3f%%)", b.Open, ref, gap*100))
	}
}

func (r *runner) drainNotes(idx int, ts time.Time) {
	for _, n := range r.exec.Notes() {
		r.log.Add(idx, ts, diag.KindExecution, n.Kind, n.Detail)
	}
}

// book records a closed trade in the risk manager and the ledger.
func (r *runner) book(idx int, t sim.Trade) {
	r.trades = append(r.trades, t)
	r.log.Add(idx, t.ExitTime, diag.KindExit, string(t.Reason),
		fmt.Sprintf("#%d %s %.5f -> %.5f net %s", t.ID, t.Side, t.EntryPrice, t.ExitPrice, t.Net))

	was := r.risk.CanTrade(t.ExitTime)
	day := r.risk.Record(t.ExitTime, t.Net)
	if was && !day.TradingEnabled {
		var why []string
		for _, v := range r.risk.Check(t.ExitTime).Violations {
			why = append(why, v.Msg)
		}
		r.log.Add(idx, t.ExitTime, diag.KindDailyLimit, r.risk.Breach(t.ExitTime).String(),
			fmt.Sprintf("%s actual %s capped %s: %s", day.Day, day.Actual, day.Capped, strings.Join(why, "; ")))
	}
	r.ledger.Close(t.ExitTime, t.Net, decimal.Zero)
}

// search runs the feature engine and validator on b and queues a signal
// when it passes. The window holds only bars before b.
func (r *runner) search(idx int, b market.Bar, cvd float64) {
	lines, ok := indicators.FitTrendlines(r.window.CVD())
	if !ok {
		return
	}
	dir := indicators.Breakout(lines, cvd, r.p.BreakoutTolerance)
	if dir == market.NoBreakout {
		return
	}

	in := signal.Input{
		Bar:       b,
		CVD:       cvd,
		Direction: dir,
		Lines:     lines,
		Window:    r.window,
		LastSide:  r.exec.LastSide(),
		ADX:       r.adxValue(b),
		Filters:   r.filters(b),
	}
	d := r.validator.Validate(in)
	if !d.Accepted {
		detail := d.Detail
		if d.Reason == signal.ReasonTrendStrength || d.Reason == signal.ReasonStrengthUndefined {
			detail += " (" + r.directional(b) + ")"
		}
		r.rejections[string(d.Reason)]++
		r.log.Add(idx, b.Time, diag.KindRejected, string(d.Reason), detail)
		return
	}
	if err := r.exec.Queue(sim.PendingSignal{Side: d.Side, Bar: b, Index: idx}); err != nil {
		r.log.Add(idx, b.Time, diag.KindRejected, "QUEUE", err.Error())
		return
	}
	r.log.Add(idx, b.Time, diag.KindSignal, d.Side.String(), fmt.Sprintf("%s breakout close %.5f cvd %.2f", dir, b.Close, cvd))
}

func (r *runner) adxValue(b market.Bar) *float64 {
	if b.ADX != nil {
		return b.ADX
	}
	if r.adx.Ready() {
		return market.F(r.adx.Value())
	}
	return nil
}

// directional describes +DI/-DI for trend-strength rejections, preferring
// values carried on the bar.
func (r *runner) directional(b market.Bar) string {
	switch {
	case b.PlusDI != nil && b.MinusDI != nil:
		return fmt.Sprintf("+DI %.2f -DI %.2f", *b.PlusDI, *b.MinusDI)
	case r.adx.DIReady():
		return fmt.Sprintf("+DI %.2f -DI %.2f DX %.2f", r.adx.PlusDI(), r.adx.MinusDI(), r.adx.DX())
	}
	return "DI undefined"
}

func (r *runner) filters(b market.Bar) []signal.Filter {
	var fs []signal.Filter
	if r.ma != nil {
		fs = append(fs, signal.Filter{Name: r.ma.Name(), Value: pick(b.MA, r.ma.Ready(), r.ma.Value)})
	}
	if r.ma2 != nil {
		fs = append(fs, signal.Filter{Name: fmt.Sprintf("MA2(%d)", r.p.MA2Period), Value: pick(b.MA2, r.ma2.Ready(), r.ma2.Value)})
	}
	if r.p.UseVWAP {
		ready := r.vwap.Ready() && r.vwap.Day() == market.DayKey(b.Time)
		fs = append(fs, signal.Filter{Name: r.vwap.Name(), Value: pick(b.VWAP, ready, r.vwap.Value)})
	}
	return fs
}

// pick prefers a value carried on the bar over the streaming one.
func pick(carried *float64, ready bool, value func() float64) *float64 {
	if carried != nil {
		return carried
	}
	if ready {
		return market.F(value())
	}
	return nil
}

func limitReason(b risk.Breach) sim.ExitReason {
	if b == risk.ProfitBreach {
		return sim.ExitDailyProfitLimit
	}
	return sim.ExitDailyLossLimit
}

func (r *runner) finish() *Result {
	if r.ledger == nil {
		r.ledger = ledger.New(decimal.NewFromFloat(r.p.InitialBalance), r.p.InitialTime)
	}
	if r.n > 0 {
		last := r.prev
		if r.p.CloseAtEnd {
			if t, ok := r.exec.ForceClose(last, r.n-1, sim.ExitEndOfData); ok {
				r.book(r.n-1, t)
			}
		}
		r.ledger.Mark(last.Time, r.exec.Mark(last.Close))
	}

	v := ValidateTrades(r.trades, r.p)
	for _, a := range v.Anomalies {
		r.log.Add(-1, a.ExitTime, a.Kind, fmt.Sprintf("trade %d", a.TradeID),
			fmt.Sprintf("net %s vs clean %s (%.2fx)", a.Net, a.Expected, a.Ratio))
	}

	days := r.risk.Days()
	ddAmt, ddPct := r.ledger.MaxDrawdown()
	res := &Result{
		BarCount:    r.n,
		Diagnostics: r.log.Events(),
		Rejections:  r.rejections,
		Trades:      r.trades,
		Days:        days,
		EquityCurve: r.ledger.Curve(),
		Drawdowns:   r.ledger.Drawdowns(),
		Validation:  v,
		Stats: stats.Compute(stats.Input{
			Trades:         r.trades,
			Days:           days,
			StartBalance:   r.ledger.Initial(),
			MaxDrawdown:    ddAmt,
			MaxDrawdownPct: ddPct,
		}),
	}
	if r.n > 0 {
		res.Start = r.first.Time
		res.End = r.prev.Time
	}
	return res
}
