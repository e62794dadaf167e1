package overnight

import (
	"github.com/rustyeddy/quantlab/market"
	"github.com/rustyeddy/quantlab/sweep"
)

// Target is one symbol/timeframe pair to sweep.
type Target struct {
	Symbol    string
	Timeframe market.Timeframe
}

// SweepTargets is priority ordered: the strongest known edges come
// first so an early budget expiry still covers them.
var SweepTargets = []Target{
	// gold on untested timeframes
	{"GLD", market.M15}, {"GLD", market.H4}, {"GLD", market.D1},
	// gold-correlated on 1h
	{"SLV", market.H1}, {"IAU", market.H1}, {"GDX", market.H1},
	// energy
	{"XLE", market.M15}, {"XLE", market.H4}, {"XLE", market.D1},
	// biotech and bonds
	{"XBI", market.M15}, {"XBI", market.H4}, {"TLT", market.M15}, {"TLT", market.H4},
	// broad market
	{"SPY", market.H1}, {"SPY", market.H4}, {"QQQ", market.H1}, {"QQQ", market.H4},
	{"IWM", market.H1}, {"IWM", market.H4},
	{"DIA", market.H1}, {"DIA", market.H4},
}

var ComposableTargets = []Target{
	{"GLD", market.M15}, {"GLD", market.H4},
	{"SLV", market.H1}, {"IAU", market.H1}, {"GDX", market.H1},
}

// GridMode selects how exhaustively pass 1 sweeps.
type GridMode string

const (
	// ModeFull uses the standing sweep grids.
	ModeFull GridMode = "full"
	// ModeMedium covers the edge cases without exhaustive search.
	ModeMedium GridMode = "medium"
	// ModeQuick is a reduced smoke-test grid.
	ModeQuick GridMode = "quick"
	// ModeScan is a coarse probe, a handful of combos per strategy,
	// just enough to tell whether a target has any edge at all.
	ModeScan GridMode = "scan"
)

var mediumGrids = map[string]sweep.Grid{
	"StochRSIMeanReversion": {
		"rsi_period":      {7, 14, 21},
		"stoch_period":    {7, 14, 21},
		"overbought":      {70, 80, 85},
		"oversold":        {15, 20, 30},
		"sl_atr":          {1.5, 2.0, 3.0},
		"skip_adx_filter": {true, false},
		"adx_threshold":   {20, 25},
	},
	"DonchianBreakout": {
		"entry_period":  {10, 20, 30, 55},
		"exit_period":   {5, 10},
		"stop_loss_atr": {1.5, 3.0},
		"atr_period":    {14, 20},
	},
	"MACDBollinger": {
		"macd_fast":   {8, 12},
		"macd_slow":   {21, 26},
		"macd_signal": {9, 12},
		"bb_period":   {15, 20},
		"bb_std":      {1.5, 2.0},
		"sl_atr":      {1.5, 2.0},
	},
}

var quickGrids = map[string]sweep.Grid{
	"StochRSIMeanReversion": {
		"rsi_period":      {14, 21},
		"stoch_period":    {7, 14},
		"overbought":      {75, 80},
		"oversold":        {20, 25},
		"sl_atr":          {2.0, 3.0},
		"skip_adx_filter": {false},
		"adx_threshold":   {25},
	},
	"DonchianBreakout": {
		"entry_period":  {20, 55},
		"exit_period":   {10},
		"stop_loss_atr": {2.0},
		"atr_period":    {14},
	},
	"MACDBollinger": {
		"macd_fast":   {12},
		"macd_slow":   {26},
		"macd_signal": {9},
		"bb_period":   {20},
		"bb_std":      {2.0},
		"sl_atr":      {2.0},
	},
}

var scanGrids = map[string]sweep.Grid{
	"StochRSIMeanReversion": {
		"rsi_period":      {14, 21},
		"stoch_period":    {14},
		"overbought":      {75, 80},
		"oversold":        {20, 25},
		"sl_atr":          {2.0},
		"skip_adx_filter": {false},
		"adx_threshold":   {25},
	},
	"DonchianBreakout": {
		"entry_period":  {20, 55},
		"exit_period":   {10},
		"stop_loss_atr": {2.0},
		"atr_period":    {14},
	},
	"MACDBollinger": {
		"macd_fast":   {12},
		"macd_slow":   {26},
		"macd_signal": {9},
		"bb_period":   {20},
		"bb_std":      {2.0},
		"sl_atr":      {2.0},
	},
}

// GridsFor returns the per-strategy grids for a mode.
func GridsFor(mode GridMode) map[string]sweep.Grid {
	switch mode {
	case ModeScan:
		return scanGrids
	case ModeQuick:
		return quickGrids
	case ModeMedium:
		return mediumGrids
	default:
		return sweep.DefaultGrids
	}
}
