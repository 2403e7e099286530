package indicators

import "github.com/rustyeddy/breakout/market"

// SessionVWAP is the volume-weighted average of typical price since the
// start of the bar's calendar day. It resets whenever the day key changes.
type SessionVWAP struct {
	day   string
	pv    float64
	vol   float64
	ready bool
}

func NewSessionVWAP() *SessionVWAP { return &SessionVWAP{} }

func (v *SessionVWAP) Name() string { return "VWAP" }
func (v *SessionVWAP) Warmup() int  { return 1 }
func (v *SessionVWAP) Ready() bool  { return v.ready }

func (v *SessionVWAP) Value() float64 {
	if v.vol <= 0 {
		return 0
	}
	return v.pv / v.vol
}

func (v *SessionVWAP) Reset() { *v = SessionVWAP{} }

// Day is the session the current value belongs to.
func (v *SessionVWAP) Day() string { return v.day }

func (v *SessionVWAP) Update(b market.Bar) {
	day := market.DayKey(b.Time)
	if day != v.day {
		v.day = day
		v.pv, v.vol = 0, 0
		v.ready = false
	}
	if b.Volume <= 0 {
		return
	}
	v.pv += b.TypicalPrice() * b.Volume
	v.vol += b.Volume
	v.ready = true
}
