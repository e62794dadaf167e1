// Package score ranks backtest results. The primary score is the
// annualised Sharpe ratio of the per-bar equity curve; runs with too
// few trades get a sentinel that sorts below everything real.
package score

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/rustyeddy/quantlab/backtest"
)

// Disqualified is returned by Composite for runs with fewer than
// MinTrades closed trades. It sorts below any achievable Sharpe.
const Disqualified = -999.0

// MinTrades is the floor below which a result is not worth ranking.
const MinTrades = 10

// Sharpe returns the annualised Sharpe ratio of the equity curve with
// the given annual risk-free rate, rounded to 4 decimals. Returns 0.0
// when the curve has fewer than 2 points or the period returns have
// zero variance.
func Sharpe(curve []backtest.EquityPoint, riskFree float64) float64 {
	if len(curve) < 2 {
		return 0
	}

	returns := make([]float64, 0, len(curve)-1)
	for i := 1; i < len(curve); i++ {
		prev := curve[i-1].Equity
		if prev == 0 {
			continue
		}
		returns = append(returns, (curve[i].Equity-prev)/prev)
	}
	if len(returns) < 2 {
		return 0
	}

	mean, std := stat.MeanStdDev(returns, nil)
	if std == 0 || math.IsNaN(std) {
		return 0
	}

	perYear := periodsPerYear(curve)
	excess := mean - riskFree/perYear
	sharpe := excess / std * math.Sqrt(perYear)
	return math.Round(sharpe*10_000) / 10_000
}

// Composite is the ranking score for a finished run: the Sharpe ratio
// of its curve, or Disqualified when the run closed fewer than
// MinTrades trades.
func Composite(res *backtest.Result) float64 {
	if res.TotalTrades < MinTrades {
		return Disqualified
	}
	return Sharpe(res.EquityCurve, 0)
}

// periodsPerYear estimates the sampling frequency from the first and
// last curve timestamps. Falls back to 252 (daily trading) when the
// span is degenerate.
func periodsPerYear(curve []backtest.EquityPoint) float64 {
	const fallback = 252
	span := curve[len(curve)-1].Time.Sub(curve[0].Time).Seconds()
	if span <= 0 {
		return fallback
	}
	perPeriod := span / float64(len(curve)-1)
	perYear := 365.25 * 24 * 3600 / perPeriod
	if perYear < 1 {
		return 1
	}
	return perYear
}
