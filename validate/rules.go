// Package validate detects overfit candidates. A candidate runs
// through hard disqualification filters, a train/test holdout, a
// rolling walk-forward and a multi-asset consistency check; the
// combined verdict is written back to the experiment catalogue.
package validate

import (
	"fmt"

	"github.com/rustyeddy/quantlab/backtest"
)

// Rules are the hard filters applied before any expensive
// validation. A candidate failing any of them is rejected outright.
type Rules struct {
	MinTrades        int
	MinTradesPerYear float64
	MaxDrawdownPct   float64
	MinProfitFactor  float64
	MinWinRate       float64
	MaxWinRate       float64
}

func DefaultRules() Rules {
	return Rules{
		MinTrades:        30,
		MinTradesPerYear: 6,
		MaxDrawdownPct:   25.0,
		MinProfitFactor:  1.05,
		MinWinRate:       0.35,
		MaxWinRate:       0.85,
	}
}

// Check reports whether the result clears every filter; the reason
// names the first failure.
func (r Rules) Check(res *backtest.Result, years float64) (bool, string) {
	if res.TotalTrades < r.MinTrades {
		return false, fmt.Sprintf("too_few_trades (%d < %d)", res.TotalTrades, r.MinTrades)
	}
	if years > 0 {
		perYear := float64(res.TotalTrades) / years
		if perYear < r.MinTradesPerYear {
			return false, fmt.Sprintf("too_few_trades_per_year (%.1f < %.0f)", perYear, r.MinTradesPerYear)
		}
	}
	if res.MaxDrawdownPct > r.MaxDrawdownPct {
		return false, fmt.Sprintf("drawdown_too_high (%.1f%% > %.0f%%)", res.MaxDrawdownPct, r.MaxDrawdownPct)
	}
	if res.ProfitFactor < r.MinProfitFactor {
		return false, fmt.Sprintf("profit_factor_too_low (%.2f < %.2f)", res.ProfitFactor, r.MinProfitFactor)
	}
	if res.WinRate < r.MinWinRate {
		return false, fmt.Sprintf("win_rate_too_low (%.2f < %.2f)", res.WinRate, r.MinWinRate)
	}
	if res.WinRate > r.MaxWinRate {
		return false, fmt.Sprintf("win_rate_too_high (%.2f > %.2f)", res.WinRate, r.MaxWinRate)
	}
	return true, ""
}

// RelatedAssets groups each sweep symbol with instruments that share
// its driver. An edge that only shows on one member of a group is
// suspect.
var RelatedAssets = map[string][]string{
	"GLD": {"GLD", "SLV", "IAU"},
	"XLE": {"XLE", "XOP", "OIH"},
	"XBI": {"XBI", "IBB", "XLV"},
	"TLT": {"TLT", "IEF", "BND"},
	"SPY": {"SPY", "QQQ", "IWM", "DIA"},
	"QQQ": {"SPY", "QQQ", "IWM", "DIA"},
	"IWM": {"SPY", "QQQ", "IWM", "DIA"},
}

// RelatedSymbols returns the consistency-check group for a symbol,
// falling back to the symbol alone.
func RelatedSymbols(symbol string) []string {
	if group, ok := RelatedAssets[symbol]; ok {
		return group
	}
	return []string{symbol}
}
