package sweep

import (
	"sort"
	"time"

	"github.com/rustyeddy/quantlab/market"
	"github.com/rustyeddy/quantlab/strategy"
)

// Grid maps a parameter name to the values a sweep should try. The
// cartesian product of all entries is the set of runs.
type Grid map[string][]any

// DefaultGrids holds the standing grid per sweepable strategy. The
// values were chosen around each strategy's live defaults; widening a
// grid multiplies runtime, so keep additions deliberate.
var DefaultGrids = map[string]Grid{
	"StochRSIMeanReversion": {
		"rsi_period":      {7, 14, 21},
		"stoch_period":    {7, 14, 21},
		"overbought":      {70, 75, 80, 85},
		"oversold":        {15, 20, 25, 30},
		"sl_atr":          {1.5, 2.0, 2.5, 3.0},
		"skip_adx_filter": {true, false},
		"adx_threshold":   {20, 25, 30},
	},
	"DonchianBreakout": {
		"entry_period":  {10, 20, 30, 55},
		"exit_period":   {5, 10, 20},
		"stop_loss_atr": {1.5, 2.0, 3.0},
		"atr_period":    {14, 20},
	},
	"MACDBollinger": {
		"macd_fast":   {8, 12, 16},
		"macd_slow":   {21, 26, 30},
		"macd_signal": {7, 9, 12},
		"bb_period":   {15, 20, 25},
		"bb_std":      {1.5, 2.0, 2.5},
		"sl_atr":      {1.5, 2.0, 3.0},
	},
}

// QuickGrids are small smoke-test grids.
var QuickGrids = map[string]Grid{
	"StochRSIMeanReversion": {
		"rsi_period":      {14},
		"stoch_period":    {14},
		"overbought":      {75, 80},
		"oversold":        {20, 25},
		"sl_atr":          {2.0},
		"skip_adx_filter": {true},
	},
}

var (
	DefaultSymbols    = []string{"SPY", "QQQ", "IWM", "XLE", "XBI", "EEM", "GLD", "TLT"}
	DefaultTimeframes = []market.Timeframe{market.M5, market.M15, market.H1}

	DefaultStart = time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	DefaultEnd   = time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC)
)

// Strategies returns the names with a standing grid, sorted.
func Strategies() []string {
	names := make([]string, 0, len(DefaultGrids))
	for name := range DefaultGrids {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Expand returns the cartesian product of the grid as parameter sets.
// Keys are walked in sorted order so the sequence is deterministic.
func Expand(g Grid) []strategy.Params {
	if len(g) == 0 {
		return []strategy.Params{{}}
	}

	keys := make([]string, 0, len(g))
	for k := range g {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	combos := []strategy.Params{{}}
	for _, key := range keys {
		next := make([]strategy.Params, 0, len(combos)*len(g[key]))
		for _, base := range combos {
			for _, v := range g[key] {
				p := base.Clone()
				p[key] = v
				next = append(next, p)
			}
		}
		combos = next
	}
	return combos
}
