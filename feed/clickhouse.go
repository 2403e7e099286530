package feed

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"

	"github.com/rustyeddy/breakout/market"
)

// ClickHouseConfig locates a bar table. The table carries the same columns
// as the CSV export; optional columns are Nullable(Float64) and cvd_color
// is a String.
type ClickHouseConfig struct {
	Addr     []string
	Database string
	Username string
	Password string
	Table    string
	// Symbol filters a multi-instrument table; empty reads every row.
	Symbol string
}

// Rows is the subset of a driver result set the source reads.
type Rows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
	Close() error
}

// ClickHouseSource streams bars from a ClickHouse table ordered by time.
type ClickHouseSource struct {
	conn clickhouse.Conn
	rows Rows
	opts Options
}

var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// BarQuery builds the select for cfg and opts along with its arguments.
func BarQuery(cfg ClickHouseConfig, opts Options) (string, []any, error) {
	if !identRe.MatchString(cfg.Table) {
		return "", nil, fmt.Errorf("bad table name %q", cfg.Table)
	}
	table := cfg.Table
	if cfg.Database != "" {
		if !identRe.MatchString(cfg.Database) {
			return "", nil, fmt.Errorf("bad database name %q", cfg.Database)
		}
		table = cfg.Database + "." + cfg.Table
	}

	var (
		where []string
		args  []any
	)
	if cfg.Symbol != "" {
		where = append(where, "symbol = ?")
		args = append(args, cfg.Symbol)
	}
	if !opts.From.IsZero() {
		where = append(where, "time >= ?")
		args = append(args, opts.From)
	}
	if !opts.To.IsZero() {
		where = append(where, "time < ?")
		args = append(args, opts.To)
	}

	var sb strings.Builder
	sb.WriteString("SELECT time, open, high, low, close, volume, delta, cvd, cvd_color, ")
	sb.WriteString("adx, plus_di, minus_di, ma, ma2, vwap FROM ")
	sb.WriteString(table)
	if len(where) > 0 {
		sb.WriteString(" WHERE ")
		sb.WriteString(strings.Join(where, " AND "))
	}
	sb.WriteString(" ORDER BY time")
	return sb.String(), args, nil
}

// NewClickHouseSource connects, pings and starts the bar query.
func NewClickHouseSource(ctx context.Context, cfg ClickHouseConfig, opts Options) (*ClickHouseSource, error) {
	query, args, err := BarQuery(cfg, opts)
	if err != nil {
		return nil, err
	}

	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: cfg.Addr,
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.Username,
			Password: cfg.Password,
		},
		DialTimeout: 10 * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("clickhouse open: %w", err)
	}
	if err := conn.Ping(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("clickhouse ping: %w", err)
	}

	rows, err := conn.Query(ctx, query, args...)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("query bars: %w", err)
	}

	s := NewRowsSource(rows, opts)
	s.conn = conn
	return s, nil
}

// NewRowsSource reads bars from an open result set with the BarQuery
// column layout.
func NewRowsSource(rows Rows, opts Options) *ClickHouseSource {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	return &ClickHouseSource{rows: rows, opts: opts}
}

func (s *ClickHouseSource) Next() (market.Bar, bool, error) {
	for s.rows.Next() {
		var (
			b     market.Bar
			color string
		)
		if err := s.rows.Scan(
			&b.Time, &b.Open, &b.High, &b.Low, &b.Close, &b.Volume, &b.Delta,
			&b.CVD, &color,
			&b.ADX, &b.PlusDI, &b.MinusDI, &b.MA, &b.MA2, &b.VWAP,
		); err != nil {
			return market.Bar{}, false, fmt.Errorf("scan bar: %w", err)
		}
		c, err := market.ParseDeltaColor(color)
		if err != nil {
			return market.Bar{}, false, fmt.Errorf("%w: %v", market.ErrMalformedBar, err)
		}
		b.CVDColor = c
		b.Time = b.Time.In(s.opts.Location)

		// The query already bounds the range; weekends are filtered here.
		if !s.opts.keep(b.Time) {
			continue
		}
		return b, true, nil
	}
	if err := s.rows.Err(); err != nil {
		return market.Bar{}, false, err
	}
	return market.Bar{}, false, nil
}

func (s *ClickHouseSource) Close() error {
	err := s.rows.Close()
	if s.conn != nil {
		if cerr := s.conn.Close(); err == nil {
			err = cerr
		}
	}
	return err
}
