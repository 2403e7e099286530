package sim

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/breakout/market"
)

var t0 = time.Date(2024, 3, 4, 9, 30, 0, 0, time.UTC)

func mk(i int, o, h, l, c float64) market.Bar {
	return market.Bar{Time: t0.Add(time.Duration(i) * time.Minute), Open: o, High: h, Low: l, Close: c, Volume: 100}
}

func esConfig() Config {
	return Config{
		Instrument:        market.Instruments["ES"],
		Contracts:         1,
		StopPoints:        10,
		TargetPoints:      20,
		MaxSlippageTicks:  1,
		EntryGapTolerance: 0.01,
		EODCutoff:         -1,
	}
}

var open = Env{CanTrade: true}

// enterLong queues a long on a 4500 close and fills it at 4500 on bar 1.
func enterLong(t *testing.T, e *Executor) {
	t.Helper()
	require.NoError(t, e.Queue(PendingSignal{Side: market.Long, Bar: mk(0, 4499, 4501, 4498, 4500), Index: 0}))
	closed := e.Step(mk(1, 4500.10, 4501, 4499, 4500.5), 1, open)
	require.Empty(t, closed)
	_, ok := e.Position()
	require.True(t, ok)
}

func TestEntryRoundsToTick(t *testing.T) {
	t.Parallel()

	e := NewExecutor(esConfig())
	enterLong(t, e)

	p, _ := e.Position()
	assert.Equal(t, 4500.0, p.Entry)
	assert.Equal(t, 4490.0, p.Stop)
	assert.Equal(t, 4520.0, p.Target)
	assert.Equal(t, market.Long, e.LastSide())

	_, pending := e.Pending()
	assert.False(t, pending)
	assert.ErrorIs(t, e.Queue(PendingSignal{Side: market.Short}), ErrPositionOpen)
}

func TestCleanTargetAndStop(t *testing.T) {
	t.Parallel()

	e := NewExecutor(esConfig())
	enterLong(t, e)
	closed := e.Step(mk(2, 4501, 4521, 4499, 4519), 2, open)
	require.Len(t, closed, 1)
	win := closed[0]
	assert.Equal(t, ExitTakeProfit, win.Reason)
	assert.Equal(t, 4520.0, win.ExitPrice)
	assert.Equal(t, int64(80), win.Ticks)
	assert.Equal(t, "997.5", win.Net.String())
	assert.False(t, win.Gapped)
	assert.True(t, e.Flat())

	e = NewExecutor(esConfig())
	enterLong(t, e)
	closed = e.Step(mk(2, 4495, 4496, 4489, 4491), 2, open)
	require.Len(t, closed, 1)
	loss := closed[0]
	assert.Equal(t, ExitStopLoss, loss.Reason)
	assert.Equal(t, 4490.0, loss.ExitPrice)
	assert.Equal(t, "-502.5", loss.Net.String())
	assert.Equal(t, "2.5", loss.Commission.String())
}

func TestStopCheckedBeforeTarget(t *testing.T) {
	t.Parallel()

	e := NewExecutor(esConfig())
	enterLong(t, e)
	closed := e.Step(mk(2, 4500, 4525, 4485, 4510), 2, open)
	require.Len(t, closed, 1)
	assert.Equal(t, ExitStopLoss, closed[0].Reason)
}

func TestGapSlippageIsCapped(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		bar      market.Bar
		fill     float64
		slipTick int64
		reason   ExitReason
	}{
		{"stop gap beyond cap", mk(2, 4480, 4482, 4470, 4475), 4489.75, 1, ExitStopLoss},
		{"stop gap within cap", mk(2, 4489.75, 4490, 4485, 4486), 4489.75, 1, ExitStopLoss},
		{"target gap beyond cap", mk(2, 4540, 4545, 4538, 4541), 4520.25, 1, ExitTakeProfit},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := esConfig()
			e := NewExecutor(cfg)
			enterLong(t, e)
			level := 4490.0
			if tt.reason == ExitTakeProfit {
				level = 4520
			}

			closed := e.Step(tt.bar, 2, open)
			require.Len(t, closed, 1)
			tr := closed[0]
			assert.Equal(t, tt.reason, tr.Reason)
			assert.True(t, tr.Gapped)
			assert.InDelta(t, tt.fill, tr.ExitPrice, 1e-9)
			assert.Equal(t, tt.slipTick, tr.SlippageTicks)
			assert.LessOrEqual(t, abs(tr.ExitPrice-level), float64(cfg.MaxSlippageTicks)*cfg.Instrument.TickSize+1e-9)
		})
	}
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}

func TestEntryGapRejected(t *testing.T) {
	t.Parallel()

	e := NewExecutor(esConfig())
	require.NoError(t, e.Queue(PendingSignal{Side: market.Long, Bar: mk(0, 4499, 4501, 4498, 4500)}))
	closed := e.Step(mk(1, 4600, 4601, 4590, 4595), 1, open)
	assert.Empty(t, closed)
	assert.True(t, e.Flat())
	_, pending := e.Pending()
	assert.False(t, pending)

	notes := e.Notes()
	require.Len(t, notes, 1)
	assert.Equal(t, NoteEntryGapRejected, notes[0].Kind)
	assert.Empty(t, e.Notes())
	assert.Equal(t, market.Side(0), e.LastSide())
}

func TestForcedExitsFillAtClose(t *testing.T) {
	t.Parallel()

	e := NewExecutor(esConfig())
	enterLong(t, e)
	// The bar would also hit the stop; the daily limit wins.
	closed := e.Step(mk(2, 4495, 4496, 4480, 4493.30), 2, Env{CanTrade: false, LimitReason: ExitDailyLossLimit})
	require.Len(t, closed, 1)
	assert.Equal(t, ExitDailyLossLimit, closed[0].Reason)
	assert.Equal(t, 4493.25, closed[0].ExitPrice)
	assert.False(t, closed[0].Gapped)

	cfg := esConfig()
	cfg.EODCutoff = 15*60 + 55
	e = NewExecutor(cfg)
	enterLong(t, e)
	eod := mk(2, 4505, 4506, 4504, 4505)
	eod.Time = time.Date(2024, 3, 4, 15, 55, 0, 0, time.UTC)
	closed = e.Step(eod, 2, open)
	require.Len(t, closed, 1)
	assert.Equal(t, ExitEndOfDay, closed[0].Reason)
	assert.Equal(t, 4505.0, closed[0].ExitPrice)
}

func TestPendingDiscardedAfterCutoff(t *testing.T) {
	t.Parallel()

	cfg := esConfig()
	cfg.EODCutoff = 15*60 + 55
	e := NewExecutor(cfg)
	require.NoError(t, e.Queue(PendingSignal{Side: market.Long, Bar: mk(0, 4499, 4501, 4498, 4500)}))
	late := mk(1, 4500, 4501, 4499, 4500)
	late.Time = time.Date(2024, 3, 4, 15, 56, 0, 0, time.UTC)
	e.Step(late, 1, open)

	assert.True(t, e.Flat())
	notes := e.Notes()
	require.Len(t, notes, 1)
	assert.Equal(t, NotePendingDiscarded, notes[0].Kind)
}

func TestTrailingStopOnlyTightens(t *testing.T) {
	t.Parallel()

	cfg := esConfig()
	cfg.TargetPoints = 40
	cfg.Trailing = TrailingConfig{Enabled: true, BreakevenTrigger: 5, TrailDistance: 5}
	e := NewExecutor(cfg)
	enterLong(t, e)

	bars := []market.Bar{
		mk(2, 4501, 4506, 4501, 4505),
		mk(3, 4508, 4512, 4508, 4511),
		mk(4, 4511, 4515, 4511, 4514),
		mk(5, 4513, 4514, 4509, 4510),
	}
	wantStops := []float64{4500, 4507, 4510}

	p, _ := e.Position()
	last := p.Stop
	var closed []Trade
	for i, b := range bars {
		closed = e.Step(b, i+2, open)
		if len(closed) > 0 {
			break
		}
		p, _ = e.Position()
		assert.GreaterOrEqual(t, p.Stop, last)
		assert.Equal(t, wantStops[i], p.Stop)
		assert.True(t, cfg.Instrument.OnGrid(p.Stop))
		last = p.Stop
	}
	require.Len(t, closed, 1)
	tr := closed[0]
	assert.Equal(t, ExitTrailingStop, tr.Reason)
	assert.Equal(t, 4510.0, tr.ExitPrice)
	assert.True(t, tr.StopMoved)
	assert.Equal(t, "497.5", tr.Net.String())
}

func TestStopRaisedInsideBarFillsAtLevel(t *testing.T) {
	t.Parallel()

	cfg := esConfig()
	cfg.Trailing = TrailingConfig{Enabled: true, BreakevenTrigger: 4, TrailDistance: 2}

	e := NewExecutor(cfg)
	enterLong(t, e)
	closed := e.Step(mk(2, 4500.5, 4510, 4499, 4502), 2, open)
	require.Len(t, closed, 1)
	tr := closed[0]
	assert.Equal(t, ExitTrailingStop, tr.Reason)
	assert.Equal(t, 4508.0, tr.ExitPrice)
	assert.False(t, tr.Gapped)
	assert.Equal(t, int64(0), tr.SlippageTicks)
	assert.Equal(t, "397.5", tr.Net.String())

	// Opening through the stop in force at the open is still a gap, even
	// when the same bar would have raised the stop.
	e = NewExecutor(cfg)
	enterLong(t, e)
	closed = e.Step(mk(2, 4488, 4510, 4487, 4502), 2, open)
	require.Len(t, closed, 1)
	tr = closed[0]
	assert.Equal(t, ExitStopLoss, tr.Reason)
	assert.True(t, tr.Gapped)
	assert.Equal(t, 4489.75, tr.ExitPrice)
	assert.Equal(t, int64(1), tr.SlippageTicks)
}

func TestShortRoundTrip(t *testing.T) {
	t.Parallel()

	e := NewExecutor(esConfig())
	require.NoError(t, e.Queue(PendingSignal{Side: market.Short, Bar: mk(0, 4501, 4502, 4499, 4500)}))
	e.Step(mk(1, 4500, 4501, 4499, 4499.5), 1, open)

	p, ok := e.Position()
	require.True(t, ok)
	assert.Equal(t, 4510.0, p.Stop)
	assert.Equal(t, 4480.0, p.Target)
	assert.Equal(t, "-250", e.Mark(4505).String())

	closed := e.Step(mk(2, 4499, 4505, 4479, 4482), 2, open)
	require.Len(t, closed, 1)
	assert.Equal(t, ExitTakeProfit, closed[0].Reason)
	assert.Equal(t, "997.5", closed[0].Net.String())
	assert.Equal(t, 20.0, closed[0].Points())
	assert.Equal(t, 1, closed[0].ID)
}

func TestForceCloseAtEnd(t *testing.T) {
	t.Parallel()

	e := NewExecutor(esConfig())
	_, ok := e.ForceClose(mk(1, 1, 1, 1, 1), 1, ExitEndOfData)
	assert.False(t, ok)

	enterLong(t, e)
	tr, ok := e.ForceClose(mk(2, 4502, 4503, 4501, 4502), 2, ExitEndOfData)
	require.True(t, ok)
	assert.Equal(t, ExitEndOfData, tr.Reason)
	assert.Equal(t, int64(8), tr.Ticks)
	assert.True(t, e.Flat())
}
