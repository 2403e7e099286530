package risk

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

var day1 = time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC)

func TestLossLimitClampsAndLatches(t *testing.T) {
	t.Parallel()

	m := NewManager(NewPolicy(1500, 0))
	assert.True(t, m.CanTrade(day1))

	s := m.Record(day1, d("-800"))
	assert.True(t, s.TradingEnabled)
	assert.Equal(t, "-800", s.Capped.String())
	assert.True(t, m.CanTrade(day1))

	s = m.Record(day1.Add(time.Hour), d("-900"))
	assert.Equal(t, "-1700", s.Actual.String())
	assert.Equal(t, "-1500", s.Capped.String())
	assert.True(t, s.StopHit)
	assert.False(t, s.TradingEnabled)
	assert.False(t, m.CanTrade(day1))
	assert.Equal(t, LossBreach, m.Breach(day1))

	// A later winner moves actual but the capped figure and latch stay put.
	s = m.Record(day1.Add(2*time.Hour), d("1000"))
	assert.Equal(t, "-700", s.Actual.String())
	assert.Equal(t, "-1500", s.Capped.String())
	assert.False(t, s.TradingEnabled)
	assert.False(t, m.CanTrade(day1))

	dec := m.Check(day1)
	assert.False(t, dec.Allowed)
	require.Len(t, dec.Violations, 1)
	assert.Equal(t, "TRADING_DISABLED", dec.Violations[0].Code)

	// Next day starts fresh.
	assert.True(t, m.CanTrade(day1.Add(24*time.Hour)))
}

func TestProfitLimit(t *testing.T) {
	t.Parallel()

	m := NewManager(NewPolicy(0, 1000))
	s := m.Record(day1, d("997.5"))
	assert.True(t, s.TradingEnabled)

	s = m.Record(day1, d("997.5"))
	assert.Equal(t, "1000", s.Capped.String())
	assert.True(t, s.TargetHit)
	assert.False(t, s.StopHit)
	assert.Equal(t, ProfitBreach, m.Breach(day1))
	assert.Equal(t, "DAILY_PROFIT_LIMIT", m.Breach(day1).String())

	dec := m.Check(day1)
	assert.False(t, dec.Allowed)
	assert.Equal(t, "DAILY_PROFIT_LIMIT", dec.Violations[0].Code)
}

func TestNoLimitsNeverLatch(t *testing.T) {
	t.Parallel()

	m := NewManager(NewPolicy(0, 0))
	for i := 0; i < 5; i++ {
		m.Record(day1, d("-10000"))
	}
	s, ok := m.Day(day1)
	require.True(t, ok)
	assert.True(t, s.TradingEnabled)
	assert.Equal(t, s.Actual, s.Capped)
	assert.True(t, m.CanTrade(day1))
	assert.True(t, m.Check(day1).Allowed)
}

func TestIntradayHighLowAndCounts(t *testing.T) {
	t.Parallel()

	m := NewManager(NewPolicy(5000, 5000))
	for _, v := range []string{"100", "-300", "50", "0"} {
		m.Record(day1, d(v))
	}
	m.Record(day1.Add(-48*time.Hour), d("5"))

	days := m.Days()
	require.Len(t, days, 2)
	assert.Equal(t, "2024-03-02", days[0].Day)

	s := days[1]
	assert.Equal(t, "100", s.High.String())
	assert.Equal(t, "-200", s.Low.String())
	assert.Equal(t, "-150", s.Actual.String())
	assert.Equal(t, 4, s.Trades)
	assert.Equal(t, 2, s.Wins)
	assert.Equal(t, 1, s.Losses)
}

func TestLatchNeverReopensWithinDay(t *testing.T) {
	t.Parallel()

	m := NewManager(NewPolicy(100, 100))
	seq := []string{"-60", "-60", "500", "-20", "30"}
	enabled := true
	for _, v := range seq {
		s := m.Record(day1, d(v))
		if !enabled {
			assert.False(t, s.TradingEnabled)
		}
		enabled = s.TradingEnabled
		assert.True(t, s.Capped.Abs().LessThanOrEqual(d("100")))
	}
}
