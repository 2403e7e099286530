package cli

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/breakout/journal"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var out, errOut bytes.Buffer
	root := NewRootCmd()
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func writeBars(t *testing.T, dir string) string {
	t.Helper()

	var b strings.Builder
	b.WriteString("time,open,high,low,close,volume,delta\n")
	start := time.Date(2024, 3, 4, 9, 30, 0, 0, time.UTC)
	price := 4500.0
	for i := 0; i < 90; i++ {
		step := math.Round(4*3*math.Sin(float64(i)/5)) / 4
		open := price
		closeP := price + step
		high := math.Max(open, closeP) + 0.5
		low := math.Min(open, closeP) - 0.5
		delta := 100.0
		if step < 0 {
			delta = -100
		}
		fmt.Fprintf(&b, "%s,%.2f,%.2f,%.2f,%.2f,%d,%.0f\n",
			start.Add(time.Duration(i)*time.Minute).Format("2006-01-02 15:04:05"),
			open, high, low, closeP, 1000+10*i, delta)
		price = closeP
	}

	path := filepath.Join(dir, "bars.csv")
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0o644))
	return path
}

func runID(t *testing.T, out string) string {
	t.Helper()
	for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
		if strings.HasPrefix(line, "run ") {
			return strings.TrimPrefix(line, "run ")
		}
	}
	t.Fatalf("no run id in output:\n%s", out)
	return ""
}

func TestRunAndJournal(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	bars := writeBars(t, dir)
	db := filepath.Join(dir, "journal.db")
	org := filepath.Join(dir, "run.org")

	out, err := execute(t, "run", "--bars", bars, "--db", db, "--org", org)
	require.NoError(t, err)
	assert.Contains(t, out, "Backtest Result")
	assert.Contains(t, out, "Bars:          90")
	id := runID(t, out)
	assert.Len(t, id, 26)

	report, err := os.ReadFile(org)
	require.NoError(t, err)
	assert.Contains(t, string(report), ":RUN_ID:      "+id)

	out, err = execute(t, "journal", "list", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "RUN ID")
	assert.Contains(t, out, id)

	out, err = execute(t, "journal", "show", id, "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "Run:           "+id)
	assert.Contains(t, out, "Instrument:    ES")
	assert.Contains(t, out, "Bars:          90")

	out, err = execute(t, "journal", "show", id, "--db", db, "--org")
	require.NoError(t, err)
	assert.Contains(t, out, "* BACKTEST: cvd_breakout ES")

	_, err = execute(t, "journal", "show", "nope", "--db", db)
	assert.True(t, errors.Is(err, journal.ErrNotFound))
}

func TestRunWindowAndCSVJournal(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	bars := writeBars(t, dir)
	csvDir := filepath.Join(dir, "csv")

	out, err := execute(t, "run", "--bars", bars, "--csv-dir", csvDir,
		"--from", "2024-03-04 10:00:00", "--to", "2024-03-04 10:30:00", "--quiet")
	require.NoError(t, err)
	assert.NotContains(t, out, "Backtest Result")
	runID(t, out)

	data, err := os.ReadFile(filepath.Join(csvDir, "runs.csv"))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[1], ",30,")
}

func TestRunErrors(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	_, err := execute(t, "run", "--bars", filepath.Join(dir, "missing.csv"), "--db", filepath.Join(dir, "j.db"))
	assert.Error(t, err)

	bars := writeBars(t, dir)
	_, err = execute(t, "run", "--bars", bars, "--db", filepath.Join(dir, "j.db"), "--from", "someday")
	assert.Error(t, err)

	_, err = execute(t, "run", "--config", filepath.Join(dir, "none.yaml"))
	assert.Error(t, err)
}

func TestConfigInitAndValidate(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "breakout.yaml")

	out, err := execute(t, "config", "init", path)
	require.NoError(t, err)
	assert.Contains(t, out, "wrote "+path)

	_, err = execute(t, "config", "init", path)
	assert.Error(t, err)
	_, err = execute(t, "config", "init", path, "--force")
	assert.NoError(t, err)

	out, err = execute(t, "config", "validate", path)
	require.NoError(t, err)
	assert.Contains(t, out, ": ok")

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("strategy:\n  lookback: 1\n"), 0o644))
	_, err = execute(t, "config", "validate", bad)
	assert.Error(t, err)
}

func TestVersion(t *testing.T) {
	t.Parallel()

	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "breakout (dev)\n", out)
}
