package journal

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"
	"text/template"
	"time"
)

var orgFuncs = template.FuncMap{
	"day": func(t time.Time) string {
		if t.IsZero() {
			return "(none)"
		}
		return t.Format("2006-01-02")
	},
	"stamp": func(t time.Time) string {
		if t.IsZero() {
			t = time.Now()
		}
		return t.Format("2006-01-02 Mon 15:04")
	},
	"pct":   func(x float64) string { return fmt.Sprintf("%.2f", x) },
	"trade": FormatTradeOrg,
}

type orgView struct {
	RunRecord
	TradeList []TradeRecord
}

var orgTemplate = template.Must(template.New("run").Funcs(orgFuncs).Parse(runOrgTemplate))

// WriteOrg renders run and its trades as an Org-mode report.
func WriteOrg(w io.Writer, run RunRecord, trades []TradeRecord) error {
	return orgTemplate.Execute(w, orgView{RunRecord: run, TradeList: trades})
}

// WriteOrgFile writes the WriteOrg report to path.
func WriteOrgFile(path string, run RunRecord, trades []TradeRecord) error {
	buf := new(bytes.Buffer)
	if err := WriteOrg(buf, run, trades); err != nil {
		return err
	}
	return os.WriteFile(path, buf.Bytes(), 0o644)
}

const runOrgTemplate = `* BACKTEST: {{.Strategy}} {{.Instrument}}
:PROPERTIES:
:RUN_ID:      {{.RunID}}
:STRATEGY:    {{.Strategy}}
:INSTRUMENT:  {{.Instrument}}
:DATASET:     {{if .Dataset}}{{.Dataset}}{{else}}(dataset?){{end}}
:START_DATE:  {{day .Start}}
:END_DATE:    {{day .End}}
:BARS:        {{.Bars}}
:START_BAL:   {{.StartBalance.StringFixed 2}}
:END_BAL:     {{.EndBalance.StringFixed 2}}
:NET_PL:      {{.NetPL.StringFixed 2}}
:RETURN_PCT:  {{pct .ReturnPct}}
:MAX_DD:      {{.MaxDD.StringFixed 2}}
:MAX_DD_PCT:  {{pct .MaxDDPct}}
:TRADES:      {{.Trades}}
:WINS:        {{.Wins}}
:LOSSES:      {{.Losses}}
:WIN_RATE:    {{pct .WinRate}}
:PROFIT_FAC:  {{pct .ProfitFactor}}
:SHARPE:      {{pct .Sharpe}}
:CREATED:     [{{stamp .Created}}]
:END:

** Performance Summary
- Net P/L:          *{{.NetPL.StringFixed 2}}*
- Return:           *{{pct .ReturnPct}}%*
- Max Drawdown:     *{{.MaxDD.StringFixed 2}} ({{pct .MaxDDPct}}%)*
- Win Rate:         *{{pct .WinRate}}%*
- Profit Factor:    *{{pct .ProfitFactor}}*

** Trade Distribution
| Outcome | Count |
|---------+-------|
| Wins    | {{.Wins}} |
| Losses  | {{.Losses}} |
| Total   | {{.Trades}} |
{{- if .Params}}

** Parameters
#+begin_src json
{{printf "%s" .Params}}
#+end_src
{{- end}}
{{- if .TradeList}}

** Trades
{{range $i, $t := .TradeList}}{{if $i}}
{{end}}{{trade $t}}{{end}}
{{- end}}
`

// FormatTradeOrg renders a TradeRecord as an Org-mode block suitable for pasting into a journal.
func FormatTradeOrg(t TradeRecord) string {
	heading := fmt.Sprintf("*** Trade: %s %s (%s)", t.Instrument, t.Side, shortID(t.TradeID))
	open := t.OpenTime.Format(time.RFC3339)
	close := t.CloseTime.Format(time.RFC3339)

	var b strings.Builder
	b.WriteString(heading)
	b.WriteString("\n")
	b.WriteString(":PROPERTIES:\n")
	b.WriteString(fmt.Sprintf(":TRADE_ID: %s\n", t.TradeID))
	b.WriteString(fmt.Sprintf(":INSTRUMENT: %s\n", t.Instrument))
	b.WriteString(fmt.Sprintf(":SIDE: %s\n", t.Side))
	b.WriteString(fmt.Sprintf(":CONTRACTS: %d\n", t.Contracts))
	b.WriteString(fmt.Sprintf(":ENTRY_PRICE: %.2f\n", t.EntryPrice))
	b.WriteString(fmt.Sprintf(":EXIT_PRICE: %.2f\n", t.ExitPrice))
	b.WriteString(fmt.Sprintf(":OPEN_TIME: %s\n", open))
	b.WriteString(fmt.Sprintf(":CLOSE_TIME: %s\n", close))
	b.WriteString(fmt.Sprintf(":TICKS: %d\n", t.Ticks))
	b.WriteString(fmt.Sprintf(":REALIZED_PL: %s\n", t.RealizedPL.StringFixed(2)))
	b.WriteString(fmt.Sprintf(":REASON: %s\n", t.Reason))
	if t.Gapped {
		b.WriteString(fmt.Sprintf(":SLIPPAGE_TICKS: %d\n", t.SlippageTicks))
	}
	b.WriteString(":END:\n")

	return b.String()
}

// shortID keeps the trade sequence of "<run>-<n>" IDs.
func shortID(full string) string {
	if i := strings.LastIndexByte(full, '-'); i >= 0 && i < len(full)-1 {
		return full[i+1:]
	}
	if len(full) <= 8 {
		return full
	}
	return full[:8]
}
