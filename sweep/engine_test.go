package sweep

import (
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/quantlab/catalog"
	"github.com/rustyeddy/quantlab/market"
)

type memLoader struct {
	bars map[string]market.Series
}

func (m *memLoader) Load(symbol string, tf market.Timeframe, start, end time.Time) (market.Series, error) {
	bars, ok := m.bars[symbol+"_"+tf.String()]
	if !ok {
		return nil, errors.New("no data")
	}
	return bars.Slice(start, end), nil
}

func trendBars(n int) market.Series {
	t0 := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	bars := make(market.Series, n)
	for i := range bars {
		close := 100 + float64(i)
		bars[i] = market.Bar{
			Time:   t0.Add(time.Duration(i) * 24 * time.Hour),
			Open:   close - 0.5,
			High:   close + 0.5,
			Low:    close - 1,
			Close:  close,
			Volume: 1000,
		}
	}
	return bars
}

func newTestEngine(t *testing.T) (*Engine, *catalog.Catalog) {
	t.Helper()
	cat, err := catalog.Open(filepath.Join(t.TempDir(), "experiments.db"))
	require.NoError(t, err)
	t.Cleanup(func() { cat.Close() })

	loader := &memLoader{bars: map[string]market.Series{
		"SPY_1d": trendBars(250),
	}}
	return New(loader, cat, nil), cat
}

func TestExpandCartesian(t *testing.T) {
	combos := Expand(Grid{
		"a": {1, 2, 3},
		"b": {"x", "y"},
	})
	require.Len(t, combos, 6)

	seen := map[string]bool{}
	for _, p := range combos {
		seen[fmt.Sprintf("%v%v", p["a"], p["b"])] = true
	}
	assert.Len(t, seen, 6)
}

func TestExpandEmptyGridIsOneRun(t *testing.T) {
	combos := Expand(nil)
	require.Len(t, combos, 1)
	assert.Empty(t, combos[0])
}

func TestExpandDeterministicOrder(t *testing.T) {
	g := Grid{"b": {1, 2}, "a": {10, 20}}
	first := Expand(g)
	second := Expand(g)
	require.Equal(t, len(first), len(second))
	for i := range first {
		assert.Equal(t, first[i], second[i])
	}
}

func TestStrategiesSorted(t *testing.T) {
	assert.Equal(t,
		[]string{"DonchianBreakout", "MACDBollinger", "StochRSIMeanReversion"},
		Strategies())
}

func TestRunSavesAndScores(t *testing.T) {
	engine, cat := newTestEngine(t)

	req := Request{
		Strategy:  "DonchianBreakout",
		Grid:      Grid{"entry_period": {10}, "exit_period": {5}, "stop_loss_atr": {2.0}, "atr_period": {14}},
		Symbol:    "SPY",
		Timeframe: market.D1,
		Start:     time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		End:       time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC),
	}
	report, err := engine.Run(req)
	require.NoError(t, err)
	require.Len(t, report.Outcomes, 1)
	assert.Zero(t, report.Errors)

	best := report.Best()
	require.NotNil(t, best)
	assert.Greater(t, best.RowID, int64(0))
	assert.Equal(t, "SPY", best.Result.Params.Str("symbol", ""))

	n, err := cat.Count()
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestRunSkipsTestedCombos(t *testing.T) {
	engine, cat := newTestEngine(t)

	req := Request{
		Strategy:   "DonchianBreakout",
		Grid:       Grid{"entry_period": {10}, "exit_period": {5}, "stop_loss_atr": {2.0}, "atr_period": {14}},
		Symbol:     "SPY",
		Timeframe:  market.D1,
		Start:      time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		End:        time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC),
		SkipTested: true,
	}

	first, err := engine.Run(req)
	require.NoError(t, err)
	require.Len(t, first.Outcomes, 1)

	second, err := engine.Run(req)
	require.NoError(t, err)
	assert.Empty(t, second.Outcomes)
	assert.Equal(t, 1, second.Skipped)

	n, err := cat.Count()
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestRunUnknownStrategy(t *testing.T) {
	engine, _ := newTestEngine(t)
	_, err := engine.Run(Request{Strategy: "NoSuchStrategy", Symbol: "SPY", Timeframe: market.D1})
	assert.Error(t, err)
}

func TestRunComposableLimitAndDedup(t *testing.T) {
	engine, cat := newTestEngine(t)

	req := ComposableRequest{
		Symbol:     "SPY",
		Timeframe:  market.D1,
		Start:      time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		End:        time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC),
		Limit:      3,
		SkipTested: true,
	}

	first, err := engine.RunComposable(req)
	require.NoError(t, err)
	assert.Len(t, first.Outcomes, 3)

	n, err := cat.Count()
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	second, err := engine.RunComposable(req)
	require.NoError(t, err)
	assert.Empty(t, second.Outcomes)
	assert.Equal(t, 3, second.Skipped)
}
