package sim

import (
	"errors"
	"fmt"
	"math"

	"github.com/shopspring/decimal"

	"github.com/rustyeddy/breakout/market"
)

// ErrPositionOpen is returned when a signal is queued while in a position.
var ErrPositionOpen = errors.New("position already open")

// TrailingConfig controls the breakeven move and the trailing stop.
type TrailingConfig struct {
	Enabled          bool    `json:"enabled" yaml:"enabled"`
	BreakevenTrigger float64 `json:"breakeven_trigger" yaml:"breakeven_trigger"`
	TrailDistance    float64 `json:"trail_distance" yaml:"trail_distance"`
}

type Config struct {
	Instrument   market.Instrument
	Contracts    int
	StopPoints   float64
	TargetPoints float64
	Trailing     TrailingConfig

	// MaxSlippageTicks caps how far past a level a gapped exit may fill.
	MaxSlippageTicks int
	// EntryGapTolerance is the largest |open-signalClose|/signalClose
	// accepted at entry.
	EntryGapTolerance float64
	// EODCutoff is minutes since midnight; negative disables it.
	EODCutoff int
}

// Env is what the orchestrator knows about the bar before stepping.
type Env struct {
	CanTrade bool
	// LimitReason is the forced-exit reason when CanTrade is false.
	LimitReason ExitReason
}

// Note is something the executor did that is worth a diagnostic.
type Note struct {
	Kind   string
	Detail string
}

const (
	NoteEntry            = "ENTRY"
	NoteEntryGapRejected = "ENTRY_GAP_REJECTED"
	NotePendingDiscarded = "PENDING_DISCARDED"
	NoteBreakeven        = "STOP_BREAKEVEN"
	NoteTrail            = "STOP_TRAILED"
	NoteGapFill          = "GAP_FILL"
)

// Executor owns the position lifecycle for one run.
type Executor struct {
	cfg Config

	pos     *Position
	pending *PendingSignal

	lastSide market.Side
	nextID   int
	notes    []Note
}

func NewExecutor(cfg Config) *Executor {
	return &Executor{cfg: cfg, nextID: 1}
}

// Position returns a copy of the open position.
func (e *Executor) Position() (Position, bool) {
	if e.pos == nil {
		return Position{}, false
	}
	return *e.pos, true
}

// Pending returns a copy of the queued signal.
func (e *Executor) Pending() (PendingSignal, bool) {
	if e.pending == nil {
		return PendingSignal{}, false
	}
	return *e.pending, true
}

func (e *Executor) Flat() bool { return e.pos == nil }

// LastSide is the side of the most recent entry, 0 before the first.
func (e *Executor) LastSide() market.Side { return e.lastSide }

// Queue stores a validated signal to be entered on the next bar.
func (e *Executor) Queue(p PendingSignal) error {
	if e.pos != nil {
		return ErrPositionOpen
	}
	e.pending = &p
	return nil
}

// CancelPending drops the queued signal and reports whether one existed.
func (e *Executor) CancelPending() bool {
	had := e.pending != nil
	e.pending = nil
	return had
}

// Notes returns and clears the notes collected since the last call.
func (e *Executor) Notes() []Note {
	n := e.notes
	e.notes = nil
	return n
}

func (e *Executor) note(kind, format string, args ...any) {
	e.notes = append(e.notes, Note{Kind: kind, Detail: fmt.Sprintf(format, args...)})
}

// PastCutoff reports whether b is at or after the end-of-day cutoff.
func (e *Executor) PastCutoff(b market.Bar) bool {
	return e.cfg.EODCutoff >= 0 && market.MinuteOfDay(b.Time) >= e.cfg.EODCutoff
}

// Step advances the state machine by one bar and returns any trade closed
// on it. Order: daily-limit exit, end-of-day exit, stop/target exit, then
// entry of the pending signal. A pending signal never survives this call.
func (e *Executor) Step(b market.Bar, idx int, env Env) []Trade {
	var closed []Trade

	switch {
	case e.pos != nil && !env.CanTrade:
		closed = append(closed, e.closeAt(b, idx, b.Close, env.LimitReason, false, 0))
	case e.pos != nil && e.PastCutoff(b):
		closed = append(closed, e.closeAt(b, idx, b.Close, ExitEndOfDay, false, 0))
	case e.pos != nil:
		if t, ok := e.checkExit(b, idx); ok {
			closed = append(closed, t)
		}
	}

	if e.pending != nil {
		p := *e.pending
		e.pending = nil
		switch {
		case e.pos != nil:
			e.note(NotePendingDiscarded, "position open")
		case !env.CanTrade:
			e.note(NotePendingDiscarded, "trading disabled for the day")
		case e.PastCutoff(b):
			e.note(NotePendingDiscarded, "past end-of-day cutoff")
		default:
			e.enter(p, b, idx)
		}
	}
	return closed
}

// ForceClose exits any open position at the bar's close.
func (e *Executor) ForceClose(b market.Bar, idx int, reason ExitReason) (Trade, bool) {
	e.pending = nil
	if e.pos == nil {
		return Trade{}, false
	}
	return e.closeAt(b, idx, b.Close, reason, false, 0), true
}

// Mark is the unrealized P&L of the open position at price, before
// commission.
func (e *Executor) Mark(price float64) decimal.Decimal {
	if e.pos == nil {
		return decimal.Zero
	}
	in := e.cfg.Instrument
	ticks := in.Ticks((in.RoundToTick(price) - e.pos.Entry) * float64(e.pos.Side))
	return in.TicksValue(ticks, e.cfg.Contracts)
}

func (e *Executor) enter(p PendingSignal, b market.Bar, idx int) {
	ref := p.Bar.Close
	if ref > 0 {
		if gap := math.Abs(b.Open-ref) / ref; gap > e.cfg.EntryGapTolerance {
			e.note(NoteEntryGapRejected, "open %.5f vs signal close %.5f (%.3f%%)", b.Open, ref, gap*100)
			return
		}
	}

	in := e.cfg.Instrument
	side := float64(p.Side)
	entry := in.RoundToTick(b.Open)
	e.pos = &Position{
		Side:      p.Side,
		Entry:     entry,
		Stop:      in.RoundToTick(entry - side*e.cfg.StopPoints),
		Target:    in.RoundToTick(entry + side*e.cfg.TargetPoints),
		EntryTime: b.Time,
		EntryIdx:  idx,
		BestPrice: entry,
	}
	e.lastSide = p.Side
	e.note(NoteEntry, "%s at %.5f stop %.5f target %.5f", p.Side, entry, e.pos.Stop, e.pos.Target)
}

// updateTrailing moves the stop to breakeven and then trails it behind
// the best price. The stop only ever tightens.
func (e *Executor) updateTrailing(b market.Bar) {
	p := e.pos
	if p.Side == market.Long {
		p.BestPrice = math.Max(p.BestPrice, b.High)
	} else {
		p.BestPrice = math.Min(p.BestPrice, b.Low)
	}

	tc := e.cfg.Trailing
	if !tc.Enabled {
		return
	}
	in := e.cfg.Instrument
	exc := p.Excursion()

	if !p.AtBreakeven && exc >= tc.BreakevenTrigger {
		p.AtBreakeven = true
		if e.tighter(p.Entry) {
			p.Stop = p.Entry
			e.note(NoteBreakeven, "stop to entry %.5f", p.Entry)
		}
	}
	if exc >= tc.BreakevenTrigger+tc.TrailDistance {
		cand := in.RoundToTick(p.BestPrice - float64(p.Side)*tc.TrailDistance)
		if e.tighter(cand) {
			p.Trailing = true
			p.Stop = cand
			e.note(NoteTrail, "stop to %.5f (best %.5f)", cand, p.BestPrice)
		}
	}
}

func (e *Executor) tighter(stop float64) bool {
	return (stop-e.pos.Stop)*float64(e.pos.Side) > 0
}

// checkExit tightens the stop from this bar's extreme, then tests the stop
// and the target. A gap is judged against the stop in force at the open: a
// bar that opens through it fills from that stop, while a stop raised
// during the bar fills at its own level.
func (e *Executor) checkExit(b market.Bar, idx int) (Trade, bool) {
	p := e.pos
	openStop, openMoved := p.Stop, p.AtBreakeven || p.Trailing
	e.updateTrailing(b)

	if (openStop-b.Open)*float64(p.Side) > 0 {
		reason := ExitStopLoss
		if openMoved {
			reason = ExitTrailingStop
		}
		return e.fillLevel(b, idx, openStop, true, reason), true
	}

	stopHit := (p.Side == market.Long && b.Low <= p.Stop) || (p.Side == market.Short && b.High >= p.Stop)
	if stopHit {
		reason := ExitStopLoss
		if p.AtBreakeven || p.Trailing {
			reason = ExitTrailingStop
		}
		return e.fillLevel(b, idx, p.Stop, false, reason), true
	}

	targetHit := (p.Side == market.Long && b.High >= p.Target) || (p.Side == market.Short && b.Low <= p.Target)
	if targetHit {
		gapped := (b.Open-p.Target)*float64(p.Side) > 0
		return e.fillLevel(b, idx, p.Target, gapped, ExitTakeProfit), true
	}
	return Trade{}, false
}

// fillLevel fills a stop or target. A gapped level fills at the open but
// never further than MaxSlippageTicks from the level.
func (e *Executor) fillLevel(b market.Bar, idx int, level float64, gapped bool, reason ExitReason) Trade {
	if !gapped {
		return e.closeAt(b, idx, level, reason, false, 0)
	}
	in := e.cfg.Instrument
	limit := float64(e.cfg.MaxSlippageTicks) * in.TickSize
	raw := math.Abs(b.Open - level)

	fill := in.RoundToTick(b.Open)
	if raw > limit {
		fill = in.RoundToTick(level + math.Copysign(limit, b.Open-level))
	}
	slip := in.Ticks(math.Abs(fill - level))
	e.note(NoteGapFill, "%s level %.5f open %.5f fill %.5f", reason, level, b.Open, fill)
	return e.closeAt(b, idx, fill, reason, true, slip)
}

func (e *Executor) closeAt(b market.Bar, idx int, price float64, reason ExitReason, gapped bool, slip int64) Trade {
	p := e.pos
	in := e.cfg.Instrument
	exit := in.RoundToTick(price)

	ticks := in.Ticks((exit - p.Entry) * float64(p.Side))
	gross := in.TicksValue(ticks, e.cfg.Contracts)
	comm := in.CommissionFor(e.cfg.Contracts)

	t := Trade{
		ID:            e.nextID,
		Side:          p.Side,
		Contracts:     e.cfg.Contracts,
		EntryTime:     p.EntryTime,
		ExitTime:      b.Time,
		EntryPrice:    p.Entry,
		ExitPrice:     exit,
		EntryIdx:      p.EntryIdx,
		ExitIdx:       idx,
		StopPoints:    e.cfg.StopPoints,
		TargetPoints:  e.cfg.TargetPoints,
		Reason:        reason,
		Ticks:         ticks,
		Gross:         gross,
		Commission:    comm,
		Net:           gross.Sub(comm),
		SlippageTicks: slip,
		Gapped:        gapped,
		StopMoved:     p.AtBreakeven || p.Trailing,
	}
	e.nextID++
	e.pos = nil
	return t
}
