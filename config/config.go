package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/rustyeddy/breakout/backtest"
	"github.com/rustyeddy/breakout/market"
	"github.com/rustyeddy/breakout/signal"
	"github.com/rustyeddy/breakout/sim"
)

// Config represents a complete backtest setup
type Config struct {
	Account    AccountConfig    `json:"account" yaml:"account"`
	Instrument InstrumentConfig `json:"instrument" yaml:"instrument"`
	Strategy   StrategyConfig   `json:"strategy" yaml:"strategy"`
	Execution  ExecutionConfig  `json:"execution" yaml:"execution"`
	Risk       RiskConfig       `json:"risk" yaml:"risk"`
	Validation ValidationConfig `json:"validation" yaml:"validation"`
	Data       DataConfig       `json:"data" yaml:"data"`
	Journal    JournalConfig    `json:"journal" yaml:"journal"`
	Log        LogConfig        `json:"log" yaml:"log"`
}

// AccountConfig contains account initialization parameters
type AccountConfig struct {
	ID       string  `json:"id" yaml:"id"`
	Currency string  `json:"currency" yaml:"currency"`
	Balance  float64 `json:"balance" yaml:"balance"`
	// InitialTime stamps the opening equity snapshot; empty uses the
	// first bar.
	InitialTime string `json:"initial_time,omitempty" yaml:"initial_time,omitempty"`
}

// InstrumentConfig names a known contract; non-zero fields override it.
type InstrumentConfig struct {
	Symbol     string  `json:"symbol" yaml:"symbol"`
	TickSize   float64 `json:"tick_size,omitempty" yaml:"tick_size,omitempty"`
	TickValue  float64 `json:"tick_value,omitempty" yaml:"tick_value,omitempty"`
	Commission float64 `json:"commission,omitempty" yaml:"commission,omitempty"`
}

// StrategyConfig contains feature and signal parameters
type StrategyConfig struct {
	Lookback          int           `json:"lookback" yaml:"lookback"`
	ADXPeriod         int           `json:"adx_period" yaml:"adx_period"`
	MinADX            float64       `json:"min_adx" yaml:"min_adx"`
	MAPeriod          int           `json:"ma_period" yaml:"ma_period"`
	MA2Period         int           `json:"ma2_period" yaml:"ma2_period"`
	UseVWAP           bool          `json:"use_vwap" yaml:"use_vwap"`
	BreakoutTolerance float64       `json:"breakout_tolerance" yaml:"breakout_tolerance"`
	AccelMultiple     float64       `json:"accel_multiple" yaml:"accel_multiple"`
	Direction         string        `json:"direction" yaml:"direction"`
	Stages            signal.Stages `json:"stages" yaml:"stages"`
}

// ExecutionConfig contains order and exit parameters
type ExecutionConfig struct {
	StopPoints        float64            `json:"stop_points" yaml:"stop_points"`
	TargetPoints      float64            `json:"target_points" yaml:"target_points"`
	Contracts         int                `json:"contracts" yaml:"contracts"`
	Trailing          sim.TrailingConfig `json:"trailing" yaml:"trailing"`
	MaxSlippageTicks  int                `json:"max_slippage_ticks" yaml:"max_slippage_ticks"`
	EntryGapTolerance float64            `json:"entry_gap_tolerance" yaml:"entry_gap_tolerance"`
	EODCutoff         string             `json:"eod_cutoff" yaml:"eod_cutoff"` // "HH:MM"
	CloseAtEnd        bool               `json:"close_at_end" yaml:"close_at_end"`
}

type RiskConfig struct {
	MaxDailyLoss   float64 `json:"max_daily_loss" yaml:"max_daily_loss"`
	MaxDailyProfit float64 `json:"max_daily_profit" yaml:"max_daily_profit"`
}

// ValidationConfig contains gap and P&L sanity thresholds
type ValidationConfig struct {
	SignificantGap      float64 `json:"significant_gap" yaml:"significant_gap"`
	ExtremeGap          float64 `json:"extreme_gap" yaml:"extreme_gap"`
	AnomalyRatio        float64 `json:"anomaly_ratio" yaml:"anomaly_ratio"`
	ExtremeAnomalyRatio float64 `json:"extreme_anomaly_ratio" yaml:"extreme_anomaly_ratio"`
}

// DataConfig describes where bars come from
type DataConfig struct {
	Source string `json:"source" yaml:"source"` // "csv" or "clickhouse"
	Path   string `json:"path,omitempty" yaml:"path,omitempty"`
	// Offset is the fixed UTC offset bar times are stored in, e.g. "-05:00".
	Offset       string           `json:"offset" yaml:"offset"`
	From         string           `json:"from,omitempty" yaml:"from,omitempty"`
	To           string           `json:"to,omitempty" yaml:"to,omitempty"`
	SkipWeekends bool             `json:"skip_weekends" yaml:"skip_weekends"`
	ClickHouse   ClickHouseConfig `json:"clickhouse" yaml:"clickhouse"`
}

type ClickHouseConfig struct {
	Addr     []string `json:"addr,omitempty" yaml:"addr,omitempty"`
	Database string   `json:"database,omitempty" yaml:"database,omitempty"`
	Username string   `json:"username,omitempty" yaml:"username,omitempty"`
	Password string   `json:"password,omitempty" yaml:"password,omitempty"`
	Table    string   `json:"table,omitempty" yaml:"table,omitempty"`
	Symbol   string   `json:"symbol,omitempty" yaml:"symbol,omitempty"`
}

// JournalConfig contains journaling parameters
type JournalConfig struct {
	Type    string `json:"type" yaml:"type"` // "csv", "sqlite" or "none"
	DBPath  string `json:"db_path,omitempty" yaml:"db_path,omitempty"`
	Dir     string `json:"dir,omitempty" yaml:"dir,omitempty"`
	OrgPath string `json:"org_path,omitempty" yaml:"org_path,omitempty"`
}

type LogConfig struct {
	Level  string `json:"level" yaml:"level"`
	Format string `json:"format" yaml:"format"` // "json" or "console"
	File   string `json:"file,omitempty" yaml:"file,omitempty"`
}

// LoadFromFile loads configuration from a file. Fields missing from the
// file keep their Default values.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := Default()

	// Try YAML first, fall back to JSON
	err = yaml.Unmarshal(data, cfg)
	if err != nil {
		cfg = Default()
		err = json.Unmarshal(data, cfg)
		if err != nil {
			return nil, fmt.Errorf("parse config (tried YAML and JSON): %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// SaveToFile saves configuration to a file (YAML for .yaml/.yml, else JSON)
func (c *Config) SaveToFile(path string) error {
	var data []byte
	var err error

	if strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml") {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Account.Currency == "" {
		return fmt.Errorf("account.currency is required")
	}
	if c.Account.Balance <= 0 {
		return fmt.Errorf("account.balance must be positive")
	}
	if c.Instrument.Symbol == "" {
		return fmt.Errorf("instrument.symbol is required")
	}
	switch c.Data.Source {
	case "csv":
		if c.Data.Path == "" {
			return fmt.Errorf("data.path required for csv source")
		}
	case "clickhouse":
		if len(c.Data.ClickHouse.Addr) == 0 || c.Data.ClickHouse.Table == "" {
			return fmt.Errorf("data.clickhouse addr and table required for clickhouse source")
		}
	case "":
		// bars supplied on the command line
	default:
		return fmt.Errorf("data.source must be 'csv' or 'clickhouse'")
	}
	switch c.Journal.Type {
	case "csv":
		if c.Journal.Dir == "" {
			return fmt.Errorf("journal dir required for CSV type")
		}
	case "sqlite":
		if c.Journal.DBPath == "" {
			return fmt.Errorf("journal db_path required for SQLite type")
		}
	case "none", "":
	default:
		return fmt.Errorf("journal.type must be 'csv', 'sqlite' or 'none'")
	}
	if _, err := c.Params(); err != nil {
		return err
	}
	return nil
}

// ResolveInstrument looks up the configured contract and applies overrides.
func (c *Config) ResolveInstrument() (market.Instrument, error) {
	ic := c.Instrument
	in, ok := market.Instruments[strings.ToUpper(ic.Symbol)]
	if !ok {
		if ic.TickSize <= 0 || ic.TickValue <= 0 {
			return market.Instrument{}, fmt.Errorf("unknown instrument: %s (set tick_size and tick_value)", ic.Symbol)
		}
		in = market.Instrument{Symbol: ic.Symbol}
	}
	if ic.TickSize > 0 {
		in.TickSize = ic.TickSize
	}
	if ic.TickValue > 0 {
		in.TickValue = ic.TickValue
	}
	if ic.Commission > 0 {
		in.Commission = ic.Commission
	}
	return in, nil
}

// Params converts the file configuration into run parameters.
func (c *Config) Params() (backtest.Params, error) {
	p := backtest.Defaults()

	loc, err := market.ParseOffset(c.Data.Offset)
	if err != nil {
		return p, fmt.Errorf("data.offset: %w", err)
	}
	if c.Data.From != "" {
		if p.Start, err = market.ParseTime(c.Data.From, loc); err != nil {
			return p, fmt.Errorf("data.from: %w", err)
		}
	}
	if c.Data.To != "" {
		if p.End, err = market.ParseTime(c.Data.To, loc); err != nil {
			return p, fmt.Errorf("data.to: %w", err)
		}
	}
	if c.Account.InitialTime != "" {
		if p.InitialTime, err = market.ParseTime(c.Account.InitialTime, loc); err != nil {
			return p, fmt.Errorf("account.initial_time: %w", err)
		}
	}
	if p.Instrument, err = c.ResolveInstrument(); err != nil {
		return p, err
	}
	if p.Direction, err = market.ParseTradeDirection(c.Strategy.Direction); err != nil {
		return p, fmt.Errorf("strategy.direction: %w", err)
	}

	s := c.Strategy
	p.Lookback = s.Lookback
	p.ADXPeriod = s.ADXPeriod
	p.MinADX = s.MinADX
	p.MAPeriod = s.MAPeriod
	p.MA2Period = s.MA2Period
	p.UseVWAP = s.UseVWAP
	p.BreakoutTolerance = s.BreakoutTolerance
	p.AccelMultiple = s.AccelMultiple
	p.Stages = s.Stages

	e := c.Execution
	p.StopPoints = e.StopPoints
	p.TargetPoints = e.TargetPoints
	p.Contracts = e.Contracts
	p.Trailing = e.Trailing
	p.MaxSlippageTicks = e.MaxSlippageTicks
	p.EntryGapTolerance = e.EntryGapTolerance
	p.EODCutoff = e.EODCutoff
	p.CloseAtEnd = e.CloseAtEnd

	p.MaxDailyLoss = c.Risk.MaxDailyLoss
	p.MaxDailyProfit = c.Risk.MaxDailyProfit

	v := c.Validation
	p.SignificantGap = v.SignificantGap
	p.ExtremeGap = v.ExtremeGap
	p.AnomalyRatio = v.AnomalyRatio
	p.ExtremeAnomalyRatio = v.ExtremeAnomalyRatio

	p.InitialBalance = c.Account.Balance

	if err := p.Validate(); err != nil {
		return p, err
	}
	return p, nil
}

// Default returns a configuration with sensible defaults
func Default() *Config {
	p := backtest.Defaults()
	return &Config{
		Account: AccountConfig{
			ID:       "SIM-001",
			Currency: "USD",
			Balance:  p.InitialBalance,
		},
		Instrument: InstrumentConfig{Symbol: p.Instrument.Symbol},
		Strategy: StrategyConfig{
			Lookback:          p.Lookback,
			ADXPeriod:         p.ADXPeriod,
			BreakoutTolerance: p.BreakoutTolerance,
			AccelMultiple:     p.AccelMultiple,
			Direction:         string(p.Direction),
			Stages:            p.Stages,
		},
		Execution: ExecutionConfig{
			StopPoints:        p.StopPoints,
			TargetPoints:      p.TargetPoints,
			Contracts:         p.Contracts,
			MaxSlippageTicks:  p.MaxSlippageTicks,
			EntryGapTolerance: p.EntryGapTolerance,
			CloseAtEnd:        p.CloseAtEnd,
		},
		Validation: ValidationConfig{
			SignificantGap:      p.SignificantGap,
			ExtremeGap:          p.ExtremeGap,
			AnomalyRatio:        p.AnomalyRatio,
			ExtremeAnomalyRatio: p.ExtremeAnomalyRatio,
		},
		Data: DataConfig{
			Source:       "csv",
			Path:         "./bars.csv",
			Offset:       "+00:00",
			SkipWeekends: true,
		},
		Journal: JournalConfig{
			Type:   "sqlite",
			DBPath: "./breakout.db",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
	}
}
