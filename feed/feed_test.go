package feed

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/unicode"

	"github.com/rustyeddy/breakout/market"
)

const sample = `time,open,high,low,close,volume,delta,cvd,cvd_color,adx
2024-03-01 09:30:00,4500,4502,4499,4501,1200,150,150,green,22.5
2024-03-01 09:31:00,4501,4503,4500,4502.25,900,-40,110,red,
2024-03-02 09:30:00,4502,4504,4501,4503,800,10,120,,
2024-03-04 09:30:00,4503,4505,4502,4504,1000,20,140,green,25
`

func drain(t *testing.T, s interface {
	Next() (market.Bar, bool, error)
}) []market.Bar {
	t.Helper()
	var out []market.Bar
	for {
		b, ok, err := s.Next()
		require.NoError(t, err)
		if !ok {
			return out
		}
		out = append(out, b)
	}
}

func TestCSVSourceParsesRows(t *testing.T) {
	t.Parallel()

	s, err := NewCSVReader(strings.NewReader(sample), Options{})
	require.NoError(t, err)
	bars := drain(t, s)
	require.Len(t, bars, 4)

	b := bars[0]
	assert.Equal(t, time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC), b.Time)
	assert.Equal(t, 4500.0, b.Open)
	assert.Equal(t, 4501.0, b.Close)
	assert.Equal(t, 150.0, b.Delta)
	require.NotNil(t, b.CVD)
	assert.Equal(t, 150.0, *b.CVD)
	assert.Equal(t, market.ColorBull, b.CVDColor)
	require.NotNil(t, b.ADX)
	assert.Equal(t, 22.5, *b.ADX)
	assert.Nil(t, b.VWAP)

	assert.Equal(t, market.ColorBear, bars[1].CVDColor)
	assert.Nil(t, bars[1].ADX)
	assert.Equal(t, market.ColorNone, bars[2].CVDColor)
}

func TestCSVSourceFilters(t *testing.T) {
	t.Parallel()

	s, err := NewCSVReader(strings.NewReader(sample), Options{SkipWeekends: true})
	require.NoError(t, err)
	assert.Len(t, drain(t, s), 3)

	s, err = NewCSVReader(strings.NewReader(sample), Options{
		From: time.Date(2024, 3, 1, 9, 31, 0, 0, time.UTC),
		To:   time.Date(2024, 3, 4, 9, 30, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	bars := drain(t, s)
	require.Len(t, bars, 2)
	assert.Equal(t, 4502.25, bars[0].Close)
}

func TestCSVSourceOffset(t *testing.T) {
	t.Parallel()

	loc, err := market.ParseOffset("-05:00")
	require.NoError(t, err)
	s, err := NewCSVReader(strings.NewReader(sample), Options{Location: loc})
	require.NoError(t, err)
	bars := drain(t, s)
	require.NotEmpty(t, bars)
	_, off := bars[0].Time.Zone()
	assert.Equal(t, -5*3600, off)
	assert.Equal(t, 9*60+30, market.MinuteOfDay(bars[0].Time))
}

func TestCSVSourceHeaderAliasesAndOrder(t *testing.T) {
	t.Parallel()

	in := "Delta,Timestamp,O,H,L,C,Vol,VWAP\n-5,2024-03-01T09:30:00Z,10,11,9,10.5,100,10.2\n"
	s, err := NewCSVReader(strings.NewReader(in), Options{})
	require.NoError(t, err)
	bars := drain(t, s)
	require.Len(t, bars, 1)
	assert.Equal(t, -5.0, bars[0].Delta)
	assert.Equal(t, 10.5, bars[0].Close)
	require.NotNil(t, bars[0].VWAP)
	assert.Equal(t, 10.2, *bars[0].VWAP)
}

func TestCSVSourceMissingColumn(t *testing.T) {
	t.Parallel()

	_, err := NewCSVReader(strings.NewReader("time,open,high,low,close,volume\n"), Options{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMissingColumn))
	assert.Contains(t, err.Error(), "delta")

	_, err = NewCSVReader(strings.NewReader(""), Options{})
	assert.Error(t, err)
}

func TestCSVSourceMalformedRow(t *testing.T) {
	t.Parallel()

	in := "time,open,high,low,close,volume,delta\n" +
		"2024-03-01 09:30:00,10,11,9,10,100,1\n" +
		"2024-03-01 09:31:00,10,eleven,9,10,100,1\n"
	s, err := NewCSVReader(strings.NewReader(in), Options{})
	require.NoError(t, err)

	_, ok, err := s.Next()
	require.NoError(t, err)
	require.True(t, ok)

	_, ok, err = s.Next()
	require.Error(t, err)
	assert.False(t, ok)
	assert.True(t, errors.Is(err, market.ErrMalformedBar))
	assert.Contains(t, err.Error(), "line 3")
	assert.Contains(t, err.Error(), "high")
}

func TestCSVSourceUTF16(t *testing.T) {
	t.Parallel()

	enc, err := unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewEncoder().String(sample)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "bars.csv")
	require.NoError(t, os.WriteFile(path, []byte(enc), 0o644))

	s, err := NewCSVSource(path, Options{})
	require.NoError(t, err)
	defer s.Close()

	bars := drain(t, s)
	require.Len(t, bars, 4)
	assert.Equal(t, 4502.25, bars[1].Close)
}

func TestCSVSourceUTF8BOM(t *testing.T) {
	t.Parallel()

	s, err := NewCSVReader(strings.NewReader("\ufeff"+sample), Options{})
	require.NoError(t, err)
	assert.Len(t, drain(t, s), 4)
}

func TestNewCSVSourceMissingFile(t *testing.T) {
	t.Parallel()

	_, err := NewCSVSource(filepath.Join(t.TempDir(), "nope.csv"), Options{})
	assert.Error(t, err)
}

func TestBarQuery(t *testing.T) {
	t.Parallel()

	from := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	q, args, err := BarQuery(ClickHouseConfig{Database: "market", Table: "bars_1m", Symbol: "ES"}, Options{From: from})
	require.NoError(t, err)
	assert.Contains(t, q, "FROM market.bars_1m WHERE symbol = ? AND time >= ? ORDER BY time")
	assert.Equal(t, []any{"ES", from}, args)

	q, args, err = BarQuery(ClickHouseConfig{Table: "bars"}, Options{})
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(q, "FROM bars ORDER BY time"))
	assert.Empty(t, args)

	_, _, err = BarQuery(ClickHouseConfig{Table: "bars; DROP TABLE x"}, Options{})
	assert.Error(t, err)
	_, _, err = BarQuery(ClickHouseConfig{Database: "a-b", Table: "bars"}, Options{})
	assert.Error(t, err)
}

type fakeRow struct {
	t     time.Time
	ohlc  [4]float64
	vol   float64
	delta float64
	cvd   *float64
	color string
}

type fakeRows struct {
	rows   []fakeRow
	i      int
	err    error
	closed bool
}

func (f *fakeRows) Next() bool {
	if f.i >= len(f.rows) {
		return false
	}
	f.i++
	return true
}

func (f *fakeRows) Scan(dest ...any) error {
	r := f.rows[f.i-1]
	*dest[0].(*time.Time) = r.t
	for k := 0; k < 4; k++ {
		*dest[1+k].(*float64) = r.ohlc[k]
	}
	*dest[5].(*float64) = r.vol
	*dest[6].(*float64) = r.delta
	*dest[7].(**float64) = r.cvd
	*dest[8].(*string) = r.color
	for k := 9; k < len(dest); k++ {
		*dest[k].(**float64) = nil
	}
	return nil
}

func (f *fakeRows) Err() error   { return f.err }
func (f *fakeRows) Close() error { f.closed = true; return nil }

func TestRowsSource(t *testing.T) {
	t.Parallel()

	fri := time.Date(2024, 3, 1, 14, 30, 0, 0, time.UTC)
	sat := fri.Add(24 * time.Hour)
	rows := &fakeRows{rows: []fakeRow{
		{t: fri, ohlc: [4]float64{10, 11, 9, 10.5}, vol: 100, delta: 5, cvd: market.F(5), color: "green"},
		{t: sat, ohlc: [4]float64{10, 11, 9, 10.5}, vol: 100, delta: 5},
	}}

	loc, err := market.ParseOffset("-05:00")
	require.NoError(t, err)
	s := NewRowsSource(rows, Options{Location: loc, SkipWeekends: true})
	bars := drain(t, s)
	require.Len(t, bars, 1)
	assert.Equal(t, 9*60+30, market.MinuteOfDay(bars[0].Time))
	assert.Equal(t, market.ColorBull, bars[0].CVDColor)
	require.NotNil(t, bars[0].CVD)

	require.NoError(t, s.Close())
	assert.True(t, rows.closed)
}

func TestRowsSourceErrors(t *testing.T) {
	t.Parallel()

	rows := &fakeRows{err: errors.New("connection reset")}
	_, ok, err := NewRowsSource(rows, Options{}).Next()
	assert.False(t, ok)
	assert.EqualError(t, err, "connection reset")

	rows = &fakeRows{rows: []fakeRow{{t: time.Now(), color: "mauve"}}}
	_, _, err = NewRowsSource(rows, Options{}).Next()
	assert.True(t, errors.Is(err, market.ErrMalformedBar))
}
