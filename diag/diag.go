// Package diag is the ordered diagnostic log a backtest returns.
package diag

import (
	"time"

	"go.uber.org/zap"
)

type Kind string

const (
	KindGap              Kind = "GAP"
	KindExtremeGap       Kind = "EXTREME_GAP"
	KindPendingCancelled Kind = "PENDING_CANCELLED"
	KindSignal           Kind = "SIGNAL"
	KindRejected         Kind = "REJECTED"
	KindExecution        Kind = "EXECUTION"
	KindExit             Kind = "EXIT"
	KindDailyLimit       Kind = "DAILY_LIMIT"
	KindOutOfWindow      Kind = "OUT_OF_WINDOW"
	KindPnLAnomaly       Kind = "PNL_ANOMALY"
	KindPnLExtreme       Kind = "PNL_EXTREME_ANOMALY"
)

// Event is one diagnostic. Seq orders events within a run; Bar is the
// index of the bar being processed, or -1 for end-of-run checks.
type Event struct {
	Seq    int       `json:"seq"`
	Bar    int       `json:"bar"`
	Time   time.Time `json:"time"`
	Kind   Kind      `json:"kind"`
	Reason string    `json:"reason,omitempty"`
	Detail string    `json:"detail,omitempty"`
}

// Log collects events and mirrors each one to a zap logger at debug level.
type Log struct {
	events []Event
	logger *zap.Logger
}

func NewLog(logger *zap.Logger) *Log {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Log{logger: logger}
}

func (l *Log) Add(bar int, ts time.Time, kind Kind, reason, detail string) {
	e := Event{Seq: len(l.events) + 1, Bar: bar, Time: ts, Kind: kind, Reason: reason, Detail: detail}
	l.events = append(l.events, e)
	l.logger.Debug("backtest event",
		zap.Int("seq", e.Seq),
		zap.Int("bar", e.Bar),
		zap.Time("time", e.Time),
		zap.String("kind", string(e.Kind)),
		zap.String("reason", e.Reason),
		zap.String("detail", e.Detail),
	)
}

// Events returns the collected events in order.
func (l *Log) Events() []Event { return l.events }

// Count returns how many events of kind were logged.
func (l *Log) Count(kind Kind) int {
	n := 0
	for _, e := range l.events {
		if e.Kind == kind {
			n++
		}
	}
	return n
}
