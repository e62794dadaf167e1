package marketdata

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/quantlab/market"
)

const sampleCSV = `Date,Open,High,Low,Close,Volume
2024-01-01 00:00:00,100,101,99,100.5,1000
2024-01-01 00:01:00,100.5,102,100,101.5,1200
2024-01-01 00:02:00,101.5,103,101,102.5,900
2024-01-01 00:03:00,102.5,103,100,101,800
2024-01-01 00:04:00,101,102,100.5,101.5,700
`

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestReadBarsCommaWithHeader(t *testing.T) {
	bars, err := ReadBars(strings.NewReader(sampleCSV))
	require.NoError(t, err)
	require.Len(t, bars, 5)
	assert.Equal(t, 100.5, bars[0].Close)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 2, 0, 0, time.UTC), bars[2].Time)
}

func TestReadBarsHistDataFormat(t *testing.T) {
	raw := "20210103 170000;1.223960;1.224130;1.223900;1.224050;0\n" +
		"20210103 170100;1.224050;1.224200;1.223950;1.224100;0\n"
	bars, err := ReadBars(strings.NewReader(raw))
	require.NoError(t, err)
	require.Len(t, bars, 2)
	assert.Equal(t, 1.22396, bars[0].Open)
	assert.Equal(t, time.Date(2021, 1, 3, 17, 0, 0, 0, time.UTC), bars[0].Time)
}

func TestLoadStitchesAndDeduplicates(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "SPY_2024-01-01_2024-01-01_1m.csv", sampleCSV)
	// Overlapping file repeats the last two rows and adds one more.
	writeFile(t, dir, "SPY_2024-01-01_2024-01-02_1m.csv",
		`Date,Open,High,Low,Close,Volume
2024-01-01 00:03:00,999,999,999,999,999
2024-01-01 00:04:00,101,102,100.5,101.5,700
2024-01-01 00:05:00,101.5,102,101,101.8,600
`)

	l := NewDirLoader(dir)
	bars, err := l.Load("SPY", market.M1, time.Time{}, time.Time{})
	require.NoError(t, err)
	require.Len(t, bars, 6)
	// First occurrence wins on duplicate timestamps.
	assert.Equal(t, 101.0, bars[3].Close)
	require.NoError(t, bars.Validate())
}

func TestLoadResamplesFiveMinute(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "SPY_2024-01-01_2024-01-01_1m.csv", sampleCSV)

	l := NewDirLoader(dir)
	bars, err := l.Load("SPY", market.M5, time.Time{}, time.Time{})
	require.NoError(t, err)
	require.Len(t, bars, 1)

	b := bars[0]
	assert.Equal(t, 100.0, b.Open)
	assert.Equal(t, 103.0, b.High)
	assert.Equal(t, 99.0, b.Low)
	assert.Equal(t, 101.5, b.Close)
	assert.Equal(t, 4600.0, b.Volume)
}

func TestLoadMissingSymbol(t *testing.T) {
	l := NewDirLoader(t.TempDir())
	_, err := l.Load("GLD", market.H1, time.Time{}, time.Time{})
	assert.Error(t, err)
}

func TestLoadOpenBounds(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "SPY_2024-01-01_2024-01-01_1m.csv", sampleCSV)

	l := NewDirLoader(dir)

	// A zero end is unbounded, not the zero date.
	bars, err := l.Load("SPY", market.M1, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), time.Time{})
	require.NoError(t, err)
	assert.Len(t, bars, 5)

	// Zero start likewise.
	bars, err = l.Load("SPY", market.M1, time.Time{}, time.Date(2024, 1, 1, 0, 2, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Len(t, bars, 3)
}

func TestLoadWindowFilter(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "SPY_2024-01-01_2024-01-01_1m.csv", sampleCSV)

	l := NewDirLoader(dir)
	start := time.Date(2024, 1, 1, 0, 1, 0, 0, time.UTC)
	end := time.Date(2024, 1, 1, 0, 3, 0, 0, time.UTC)
	bars, err := l.Load("SPY", market.M1, start, end)
	require.NoError(t, err)
	assert.Len(t, bars, 3)
}

func TestWriteBarsRoundTrip(t *testing.T) {
	dir := t.TempDir()
	bars, err := ReadBars(strings.NewReader(sampleCSV))
	require.NoError(t, err)

	path := filepath.Join(dir, "out.csv")
	require.NoError(t, WriteBars(path, bars))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	got, err := ReadBars(f)
	require.NoError(t, err)
	require.Len(t, got, len(bars))
	assert.Equal(t, bars[0], got[0])
}
