package score

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/rustyeddy/quantlab/backtest"
)

func dailyCurve(equities ...float64) []backtest.EquityPoint {
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	out := make([]backtest.EquityPoint, len(equities))
	for i, e := range equities {
		out[i] = backtest.EquityPoint{Time: t0.AddDate(0, 0, i), Equity: e}
	}
	return out
}

func TestSharpeConstantCurve(t *testing.T) {
	assert.Equal(t, 0.0, Sharpe(dailyCurve(10000, 10000, 10000, 10000), 0))
}

func TestSharpeTooShort(t *testing.T) {
	assert.Equal(t, 0.0, Sharpe(nil, 0))
	assert.Equal(t, 0.0, Sharpe(dailyCurve(10000), 0))
	assert.Equal(t, 0.0, Sharpe(dailyCurve(10000, 10100), 0))
}

func TestSharpeSteadyGainIsPositive(t *testing.T) {
	// Alternating gains keep variance positive.
	s := Sharpe(dailyCurve(10000, 10100, 10150, 10300, 10350, 10500), 0)
	assert.Greater(t, s, 1.0)
	// Rounded to 4 decimals.
	assert.InDelta(t, s, float64(int(s*10_000))/10_000, 1e-9)
}

func TestSharpeAnnualisation(t *testing.T) {
	// The same return sequence sampled hourly annualises harder than
	// sampled daily.
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	eq := []float64{10000, 10100, 10050, 10200, 10180, 10350}
	daily := make([]backtest.EquityPoint, len(eq))
	hourly := make([]backtest.EquityPoint, len(eq))
	for i, e := range eq {
		daily[i] = backtest.EquityPoint{Time: t0.AddDate(0, 0, i), Equity: e}
		hourly[i] = backtest.EquityPoint{Time: t0.Add(time.Duration(i) * time.Hour), Equity: e}
	}
	assert.Greater(t, Sharpe(hourly, 0), Sharpe(daily, 0))
}

func TestCompositeDisqualifiesThinRuns(t *testing.T) {
	res := &backtest.Result{TotalTrades: 9, EquityCurve: dailyCurve(10000, 10100, 10200, 10050)}
	assert.Equal(t, Disqualified, Composite(res))

	res.TotalTrades = 10
	assert.NotEqual(t, Disqualified, Composite(res))
}
