package market

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var es = Instruments["ES"]

func TestRoundToTick(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   float64
		want float64
	}{
		{"on grid", 4500.25, 4500.25},
		{"round down", 4500.10, 4500.00},
		{"round up", 4500.13, 4500.25},
		{"half rounds away", 4500.125, 4500.25},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := es.RoundToTick(tt.in)
			assert.InDelta(t, tt.want, got, 1e-9)
			assert.True(t, es.OnGrid(got))
		})
	}
}

func TestTicksAndValue(t *testing.T) {
	t.Parallel()

	assert.Equal(t, int64(80), es.Ticks(20))
	assert.Equal(t, int64(-40), es.Ticks(-10))
	assert.Equal(t, "1000", es.TicksValue(80, 1).String())
	assert.Equal(t, "-1000", es.TicksValue(-40, 2).String())
	assert.Equal(t, "5", es.CommissionFor(2).String())
}

func TestInstrumentValidate(t *testing.T) {
	t.Parallel()

	assert.NoError(t, es.Validate())
	assert.Error(t, Instrument{Symbol: "X", TickValue: 1}.Validate())
	assert.Error(t, Instrument{Symbol: "X", TickSize: 1}.Validate())
	assert.Error(t, Instrument{Symbol: "X", TickSize: 1, TickValue: 1, Commission: -1}.Validate())
}

func TestBarValidate(t *testing.T) {
	t.Parallel()

	ts := time.Date(2024, 3, 4, 9, 30, 0, 0, time.UTC)
	good := Bar{Time: ts, Open: 10, High: 11, Low: 9, Close: 10.5, Volume: 100}
	require.NoError(t, good.Validate())

	bad := []Bar{
		{Open: 10, High: 11, Low: 9, Close: 10},
		{Time: ts, Open: 10, High: 9, Low: 11, Close: 10},
		{Time: ts, Open: 12, High: 11, Low: 9, Close: 10},
		{Time: ts, Open: 10, High: 11, Low: 9, Close: math.NaN()},
		{Time: ts, Open: 0, High: 11, Low: 9, Close: 10},
		{Time: ts, Open: 10, High: 11, Low: 9, Close: 10, Volume: -1},
		{Time: ts, Open: 10, High: 11, Low: 9, Close: 10, VWAP: F(math.Inf(1))},
	}
	for i, b := range bad {
		err := b.Validate()
		assert.Error(t, err, "case %d", i)
		assert.True(t, errors.Is(err, ErrMalformedBar), "case %d", i)
	}
}

func TestBarColorFallsBackToDeltaSign(t *testing.T) {
	t.Parallel()

	assert.Equal(t, ColorBull, Bar{Delta: 5}.Color())
	assert.Equal(t, ColorBear, Bar{Delta: -5}.Color())
	assert.Equal(t, ColorNeutral, Bar{}.Color())
	assert.Equal(t, ColorBear, Bar{Delta: 5, CVDColor: ColorBear}.Color())
}

func TestParseDeltaColor(t *testing.T) {
	t.Parallel()

	for in, want := range map[string]DeltaColor{
		"green": ColorBull, "RED": ColorBear, "neutral": ColorNeutral, "": ColorNone,
	} {
		got, err := ParseDeltaColor(in)
		require.NoError(t, err)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseDeltaColor("purple")
	assert.Error(t, err)
}

func TestTradeDirection(t *testing.T) {
	t.Parallel()

	d, err := ParseTradeDirection("long-only")
	require.NoError(t, err)
	assert.True(t, d.Allows(Long))
	assert.False(t, d.Allows(Short))

	d, err = ParseTradeDirection("")
	require.NoError(t, err)
	assert.True(t, d.Allows(Long))
	assert.True(t, d.Allows(Short))

	_, err = ParseTradeDirection("sideways")
	assert.Error(t, err)
}

func TestParseOffsetAndTime(t *testing.T) {
	t.Parallel()

	loc, err := ParseOffset("-05:00")
	require.NoError(t, err)

	ts, err := ParseTime("2024-03-04 16:00:00", loc)
	require.NoError(t, err)
	assert.Equal(t, "2024-03-04", DayKey(ts))
	assert.Equal(t, 16*60, MinuteOfDay(ts))

	// Zoned input is converted onto the storage wall clock.
	ts, err = ParseTime("2024-03-05T02:00:00Z", loc)
	require.NoError(t, err)
	assert.Equal(t, "2024-03-04", DayKey(ts))
	assert.Equal(t, 21*60, MinuteOfDay(ts))

	_, err = ParseOffset("America/New_York")
	assert.Error(t, err)
	_, err = ParseTime("yesterday", loc)
	assert.Error(t, err)
}

func TestParseTimeDigits(t *testing.T) {
	t.Parallel()

	ts, err := ParseTime("1709564400", time.UTC)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 4, 15, 0, 0, 0, time.UTC), ts)

	ts, err = ParseTime("1709564400000", time.UTC)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 4, 15, 0, 0, 0, time.UTC), ts)

	// A compact date is a date, not a 1970 epoch.
	ts, err = ParseTime("20240304", time.UTC)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC), ts)

	_, err = ParseTime("4500", time.UTC)
	assert.Error(t, err)
}

func TestParseClock(t *testing.T) {
	t.Parallel()

	m, err := ParseClock("15:55")
	require.NoError(t, err)
	assert.Equal(t, 955, m)

	m, err = ParseClock("")
	require.NoError(t, err)
	assert.Equal(t, -1, m)

	_, err = ParseClock("25:99")
	assert.Error(t, err)
}
