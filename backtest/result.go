package backtest

import (
	"math"
	"time"

	"github.com/rustyeddy/quantlab/broker"
	"github.com/rustyeddy/quantlab/strategy"
)

// EquityPoint is one mark-to-market sample of the equity curve,
// recorded once per bar.
type EquityPoint struct {
	Time   time.Time `json:"time"`
	Equity float64   `json:"equity"`
}

// Result holds everything one backtest run produced: headline
// metrics, the full trade log and the per-bar equity curve.
type Result struct {
	Strategy  string          `json:"strategy"`
	Symbol    string          `json:"symbol"`
	Timeframe string          `json:"timeframe"`
	Params    strategy.Params `json:"params"`

	InitialCapital float64 `json:"initial_capital"`
	FinalEquity    float64 `json:"final_equity"`
	ReturnPct      float64 `json:"return_pct"`

	TotalTrades    int     `json:"total_trades"`
	WinRate        float64 `json:"win_rate"`
	AvgWin         float64 `json:"avg_win"`
	AvgLoss        float64 `json:"avg_loss"`
	ProfitFactor   float64 `json:"profit_factor"`
	MaxDrawdownPct float64 `json:"max_drawdown"`

	// Sharpe is filled in by the sweep layer from the equity curve.
	Sharpe float64 `json:"sharpe"`

	Start time.Time `json:"start"`
	End   time.Time `json:"end"`

	Trades      []broker.TradeRecord `json:"trade_history"`
	EquityCurve []EquityPoint        `json:"equity_curve"`
}

// Years returns the span of the run in calendar years, floored at a
// single day to keep per-year rates finite on tiny windows.
func (r *Result) Years() float64 {
	span := r.End.Sub(r.Start).Hours() / 24 / 365.25
	if span < 1.0/365.25 {
		span = 1.0 / 365.25
	}
	return span
}

// computeMetrics fills the trade statistics from the closed-trade
// log. Wins are strictly positive PnL; breakeven trades count as
// losses. Max drawdown walks the closed-trade equity curve seeded at
// the initial capital, so open-position swings do not register.
func (r *Result) computeMetrics() {
	r.ReturnPct = round2((r.FinalEquity - r.InitialCapital) / r.InitialCapital * 100)
	r.TotalTrades = len(r.Trades)
	if r.TotalTrades == 0 {
		return
	}

	var winSum, lossSum float64
	var wins, losses int
	for _, t := range r.Trades {
		if t.PnL > 0 {
			winSum += t.PnL
			wins++
		} else {
			lossSum += t.PnL
			losses++
		}
	}

	r.WinRate = round2(float64(wins) / float64(r.TotalTrades))
	if wins > 0 {
		r.AvgWin = round2(winSum / float64(wins))
	}
	if losses > 0 {
		r.AvgLoss = round2(lossSum / float64(losses))
	}
	if losses > 0 && lossSum != 0 {
		r.ProfitFactor = round2(math.Abs(winSum / lossSum))
	}

	equity := r.InitialCapital
	peak := r.InitialCapital
	maxDD := 0.0
	for _, t := range r.Trades {
		equity += t.PnL
		if equity > peak {
			peak = equity
		}
		if dd := (peak - equity) / peak; dd > maxDD {
			maxDD = dd
		}
	}
	r.MaxDrawdownPct = round2(maxDD * 100)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
