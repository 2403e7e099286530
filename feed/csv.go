// Package feed turns stored bar exports into backtest.BarSource streams.
package feed

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/rustyeddy/breakout/market"
)

// ErrMissingColumn is returned when a required header is absent.
var ErrMissingColumn = errors.New("missing column")

// Options filter and interpret the rows of a source.
type Options struct {
	// Location is the storage offset for timestamps without a zone.
	Location *time.Location
	// From and To bound the rows to [From, To). Zero means open.
	From time.Time
	To   time.Time

	SkipWeekends bool
}

func (o Options) keep(t time.Time) bool {
	if !o.From.IsZero() && t.Before(o.From) {
		return false
	}
	if !o.To.IsZero() && !t.Before(o.To) {
		return false
	}
	if o.SkipWeekends && market.IsWeekend(t) {
		return false
	}
	return true
}

var requiredColumns = []string{"time", "open", "high", "low", "close", "volume", "delta"}

// Header spellings seen in vendor exports, mapped onto canonical names.
var columnAliases = map[string]string{
	"timestamp":    "time",
	"datetime":     "time",
	"o":            "open",
	"h":            "high",
	"l":            "low",
	"c":            "close",
	"vol":          "volume",
	"volume_delta": "delta",
	"bar_delta":    "delta",
	"cumulative":   "cvd",
	"color":        "cvd_color",
	"delta_color":  "cvd_color",
	"+di":          "plus_di",
	"di+":          "plus_di",
	"-di":          "minus_di",
	"di-":          "minus_di",
	"ma1":          "ma",
}

// CSVSource reads bars from a CSV export with a header row:
//
//	time,open,high,low,close,volume,delta[,cvd,cvd_color,adx,plus_di,minus_di,ma,ma2,vwap]
//
// Column order is free. UTF-16 files with a byte order mark are decoded
// transparently. A row that cannot be parsed is an error, not a skip.
type CSVSource struct {
	c    io.Closer
	r    *csv.Reader
	cols map[string]int
	opts Options
	line int
}

// NewCSVSource opens path and reads its header.
func NewCSVSource(path string, opts Options) (*CSVSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	s, err := newCSVSource(f, opts)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	s.c = f
	return s, nil
}

// NewCSVReader reads bars from r. Close does not close r.
func NewCSVReader(r io.Reader, opts Options) (*CSVSource, error) {
	return newCSVSource(r, opts)
}

func newCSVSource(in io.Reader, opts Options) (*CSVSource, error) {
	if opts.Location == nil {
		opts.Location = time.UTC
	}

	br := bufio.NewReader(in)
	if b, _ := br.Peek(2); len(b) == 2 && ((b[0] == 0xFF && b[1] == 0xFE) || (b[0] == 0xFE && b[1] == 0xFF)) {
		tr := transform.NewReader(br, unicode.UTF16(unicode.LittleEndian, unicode.ExpectBOM).NewDecoder())
		br = bufio.NewReader(tr)
	}

	r := csv.NewReader(br)
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("empty file: no header row")
	}
	if err != nil {
		return nil, err
	}

	cols := make(map[string]int, len(header))
	for i, h := range header {
		name := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		if alias, ok := columnAliases[name]; ok {
			name = alias
		}
		if _, dup := cols[name]; !dup {
			cols[name] = i
		}
	}
	for _, c := range requiredColumns {
		if _, ok := cols[c]; !ok {
			return nil, fmt.Errorf("%w %q", ErrMissingColumn, c)
		}
	}

	return &CSVSource{r: r, cols: cols, opts: opts, line: 1}, nil
}

func (s *CSVSource) Close() error {
	if s.c != nil {
		return s.c.Close()
	}
	return nil
}

// Next returns the next bar inside the configured range.
func (s *CSVSource) Next() (market.Bar, bool, error) {
	for {
		row, err := s.r.Read()
		if err == io.EOF {
			return market.Bar{}, false, nil
		}
		if err != nil {
			return market.Bar{}, false, err
		}
		s.line++
		if blank(row) {
			continue
		}

		b, err := s.parse(row)
		if err != nil {
			return market.Bar{}, false, fmt.Errorf("line %d: %w", s.line, err)
		}
		if !s.opts.keep(b.Time) {
			continue
		}
		return b, true, nil
	}
}

func (s *CSVSource) parse(row []string) (market.Bar, error) {
	var (
		b   market.Bar
		err error
	)
	ts := s.field(row, "time")
	if b.Time, err = market.ParseTime(ts, s.opts.Location); err != nil {
		return b, fmt.Errorf("%w: %v", market.ErrMalformedBar, err)
	}

	for _, f := range []struct {
		col string
		dst *float64
	}{
		{"open", &b.Open}, {"high", &b.High}, {"low", &b.Low}, {"close", &b.Close},
		{"volume", &b.Volume}, {"delta", &b.Delta},
	} {
		if *f.dst, err = parseFloat(s.field(row, f.col)); err != nil {
			return b, fmt.Errorf("%w: %s: %v", market.ErrMalformedBar, f.col, err)
		}
	}

	for _, f := range []struct {
		col string
		dst **float64
	}{
		{"cvd", &b.CVD}, {"adx", &b.ADX}, {"plus_di", &b.PlusDI}, {"minus_di", &b.MinusDI},
		{"ma", &b.MA}, {"ma2", &b.MA2}, {"vwap", &b.VWAP},
	} {
		v := s.field(row, f.col)
		if v == "" {
			continue
		}
		x, err := parseFloat(v)
		if err != nil {
			return b, fmt.Errorf("%w: %s: %v", market.ErrMalformedBar, f.col, err)
		}
		*f.dst = market.F(x)
	}

	if b.CVDColor, err = market.ParseDeltaColor(s.field(row, "cvd_color")); err != nil {
		return b, fmt.Errorf("%w: %v", market.ErrMalformedBar, err)
	}
	return b, nil
}

// field returns the trimmed cell for col, or "" when the column or cell is absent.
func (s *CSVSource) field(row []string, col string) string {
	i, ok := s.cols[col]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func parseFloat(s string) (float64, error) {
	if s == "" {
		return 0, fmt.Errorf("empty value")
	}
	return strconv.ParseFloat(strings.ReplaceAll(s, ",", ""), 64)
}

func blank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
