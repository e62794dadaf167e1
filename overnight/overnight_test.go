package overnight

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/quantlab/catalog"
	"github.com/rustyeddy/quantlab/market"
	"github.com/rustyeddy/quantlab/sweep"
	"github.com/rustyeddy/quantlab/validate"
)

func TestTimeBudget(t *testing.T) {
	b := NewTimeBudget(2 * time.Hour)
	clock := b.start
	b.now = func() time.Time { return clock }

	assert.False(t, b.Expired())
	assert.Equal(t, 2*time.Hour, b.Remaining())

	b.StartPass("sweep")
	clock = clock.Add(30 * time.Minute)
	b.EndPass("sweep")
	assert.Equal(t, 30*time.Minute, b.PassTime("sweep"))
	assert.Equal(t, 90*time.Minute, b.Remaining())

	clock = clock.Add(2 * time.Hour)
	assert.True(t, b.Expired())
	assert.Equal(t, time.Duration(0), b.Remaining())
}

func TestFmtDuration(t *testing.T) {
	assert.Equal(t, "10h 30m", fmtDuration(10*time.Hour+30*time.Minute))
	assert.Equal(t, "0h 5m", fmtDuration(5*time.Minute))
}

func TestFilterTargets(t *testing.T) {
	all := filterTargets(SweepTargets, Options{})
	assert.Len(t, all, len(SweepTargets))

	gld := filterTargets(SweepTargets, Options{Symbols: []string{"GLD"}})
	require.Len(t, gld, 3)
	for _, tgt := range gld {
		assert.Equal(t, "GLD", tgt.Symbol)
	}

	h1 := filterTargets(SweepTargets, Options{Timeframes: []market.Timeframe{market.H1}})
	for _, tgt := range h1 {
		assert.Equal(t, market.H1, tgt.Timeframe)
	}

	both := filterTargets(SweepTargets, Options{
		Symbols:    []string{"SPY"},
		Timeframes: []market.Timeframe{market.H4},
	})
	require.Len(t, both, 1)
	assert.Equal(t, Target{"SPY", market.H4}, both[0])
}

func TestGridsFor(t *testing.T) {
	assert.Equal(t, sweep.DefaultGrids, GridsFor(ModeFull))
	assert.Equal(t, quickGrids, GridsFor(ModeQuick))
	assert.Equal(t, mediumGrids, GridsFor(ModeMedium))
	assert.Equal(t, scanGrids, GridsFor(ModeScan))

	// scan mode stays a coarse probe
	n := 0
	for _, vals := range scanGrids["StochRSIMeanReversion"] {
		if n == 0 {
			n = 1
		}
		n *= len(vals)
	}
	assert.Equal(t, 8, n)
}

type tfLoader struct {
	bars map[string]market.Series
}

func (l *tfLoader) Load(symbol string, tf market.Timeframe, start, end time.Time) (market.Series, error) {
	bars, ok := l.bars[symbol+"_"+tf.String()]
	if !ok {
		return nil, errors.New("no data")
	}
	out := bars.Slice(start, end)
	if len(out) == 0 {
		return nil, errors.New("no data in window")
	}
	return out, nil
}

func fifteenMinuteBars(n int) market.Series {
	t0 := time.Date(2024, 1, 2, 9, 30, 0, 0, time.UTC)
	bars := make(market.Series, n)
	price := 100.0
	for i := range bars {
		price += 0.01
		bars[i] = market.Bar{
			Time:   t0.Add(time.Duration(i) * 15 * time.Minute),
			Open:   price - 0.05,
			High:   price + 0.1,
			Low:    price - 0.15,
			Close:  price,
			Volume: 500,
		}
	}
	return bars
}

func TestRunQuickDiscovery(t *testing.T) {
	cat, err := catalog.Open(filepath.Join(t.TempDir(), "experiments.db"))
	require.NoError(t, err)
	defer cat.Close()

	loader := &tfLoader{bars: map[string]market.Series{
		"GLD_15m": fifteenMinuteBars(1200),
	}}
	engine := sweep.New(loader, cat, nil)
	pipeline := validate.New(loader, cat, nil)
	orch := New(engine, pipeline, cat, nil)

	summary, err := orch.Run(Options{
		Budget:         time.Hour,
		Mode:           ModeQuick,
		Symbols:        []string{"GLD"},
		Timeframes:     []market.Timeframe{market.M15},
		SkipComposable: true,
	})
	require.NoError(t, err)

	assert.Greater(t, summary.SweepResults, 0)
	assert.Equal(t, 0, summary.ExperimentsBefore)
	assert.Equal(t, summary.ExperimentsAfter, summary.SweepResults)

	report, err := orch.Report(summary)
	require.NoError(t, err)
	assert.Contains(t, report, "OVERNIGHT DISCOVERY REPORT")
	assert.Contains(t, report, "Experiments: 0 ->")
}

func TestRunExpiredBudgetDoesNothing(t *testing.T) {
	cat, err := catalog.Open(filepath.Join(t.TempDir(), "experiments.db"))
	require.NoError(t, err)
	defer cat.Close()

	loader := &tfLoader{bars: map[string]market.Series{}}
	engine := sweep.New(loader, cat, nil)
	pipeline := validate.New(loader, cat, nil)
	orch := New(engine, pipeline, cat, nil)

	summary, err := orch.Run(Options{Budget: time.Nanosecond, SkipComposable: true})
	require.NoError(t, err)
	assert.Zero(t, summary.SweepResults)
	assert.Zero(t, summary.ExpandResults)
}
