package strategy

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/quantlab/broker/sim"
	"github.com/rustyeddy/quantlab/indicators"
	"github.com/rustyeddy/quantlab/market"
)

func constCol(n int, v float64) []float64 {
	col := make([]float64, n)
	for i := range col {
		col[i] = v
	}
	return col
}

// flatTestFrame builds n identical daily bars at price with neutral
// indicator columns, so tests can poke individual cells to stage a
// setup without reverse-engineering the indicator math.
func flatTestFrame(n int, price float64) *indicators.Frame {
	bars := make(market.Series, n)
	t0 := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	for i := range bars {
		bars[i] = market.Bar{
			Time: t0.AddDate(0, 0, i),
			Open: price, High: price, Low: price, Close: price,
			Volume: 1000,
		}
	}
	return &indicators.Frame{
		Symbol: "SPY",
		Bars:   bars,
		Config: indicators.DefaultFrameConfig(),

		K: constCol(n, 50), D: constCol(n, 50),
		ADX:  constCol(n, 10),
		ATR:  constCol(n, 0.5),
		RSI:  constCol(n, 50),
		MACD: constCol(n, 0), MACDSignal: constCol(n, 0), MACDHist: constCol(n, 0),
		BBUpper: constCol(n, price+2), BBMiddle: constCol(n, price), BBLower: constCol(n, price-2),
		DonUpper: constCol(n, price+1), DonLower: constCol(n, price-1),
		DonExitUpper: constCol(n, price+1), DonExitLower: constCol(n, price-1),
		SMAFast: constCol(n, price), SMASlow: constCol(n, price),
		Chop: constCol(n, 50),
	}
}

func newTestStrategy(t *testing.T, name string, f *indicators.Frame, params Params) (Strategy, *sim.PaperBroker) {
	t.Helper()
	pb := sim.New(10_000, 0)
	s, err := New(name, &Context{
		Frame:          f,
		Broker:         pb,
		Params:         params,
		InitialCapital: 10_000,
	})
	require.NoError(t, err)
	return s, pb
}

func drive(f *indicators.Frame, s Strategy, pb *sim.PaperBroker, from, to int) {
	for i := from; i <= to; i++ {
		pb.UpdatePrice(f.Symbol, f.Bars[i].Close)
		s.OnBar(i, f.Row(i))
	}
}

func TestStochRSIOversoldRecrossEntersLong(t *testing.T) {
	f := flatTestFrame(60, 100)
	f.K[54] = 15 // dips below the oversold line
	f.K[55] = 55 // recrosses the midline

	s, pb := newTestStrategy(t, "StochRSIMeanReversion", f, Params{})
	drive(f, s, pb, 50, 55)

	// 2% of 10k over a 1.5 stop distance wants 133 units, capped at
	// the 1x leverage limit of 100.
	assert.InDelta(t, 100.0, pb.Position("SPY"), 1e-9)
	require.Len(t, pb.Orders(), 1)
	assert.Equal(t, 100.0, pb.Orders()[0].FillPrice)
}

func TestStochRSIIgnoresWarmupBars(t *testing.T) {
	f := flatTestFrame(60, 100)
	f.K[40] = 15
	f.K[41] = 55

	s, pb := newTestStrategy(t, "StochRSIMeanReversion", f, Params{})
	drive(f, s, pb, 1, 49)

	assert.Zero(t, pb.Position("SPY"))
	assert.Empty(t, pb.Orders())
}

func TestStochRSIStopLossExit(t *testing.T) {
	f := flatTestFrame(60, 100)
	f.K[54] = 15
	f.K[55] = 55
	f.Bars[56].Low = 98.4 // pierces the 98.5 stop

	s, pb := newTestStrategy(t, "StochRSIMeanReversion", f, Params{})
	drive(f, s, pb, 50, 56)

	assert.Zero(t, pb.Position("SPY"))
	trades := pb.Trades()
	require.Len(t, trades, 1)
	assert.Equal(t, "stop_loss", trades[0].ExitReason)
	assert.Equal(t, 98.5, trades[0].ExitPrice)
	assert.InDelta(t, -150.0, trades[0].PnL, 1e-9)
}

func TestStochRSISignalExitWhenOverbought(t *testing.T) {
	f := flatTestFrame(60, 100)
	f.K[54] = 15
	f.K[55] = 55
	f.K[56] = 85

	s, pb := newTestStrategy(t, "StochRSIMeanReversion", f, Params{})
	drive(f, s, pb, 50, 56)

	assert.Zero(t, pb.Position("SPY"))
	trades := pb.Trades()
	require.Len(t, trades, 1)
	assert.Equal(t, "signal", trades[0].ExitReason)
	assert.Equal(t, 100.0, trades[0].ExitPrice)
}

func TestStochRSIShortAfterOverboughtRecross(t *testing.T) {
	f := flatTestFrame(60, 100)
	f.K[54] = 85
	f.K[55] = 45
	f.K[56] = 15 // down at the oversold line, cover

	s, pb := newTestStrategy(t, "StochRSIMeanReversion", f, Params{})
	drive(f, s, pb, 50, 55)
	assert.InDelta(t, -100.0, pb.Position("SPY"), 1e-9)

	drive(f, s, pb, 56, 56)
	assert.Zero(t, pb.Position("SPY"))
	trades := pb.Trades()
	require.Len(t, trades, 1)
	assert.Equal(t, "signal", trades[0].ExitReason)
}

func TestStochRSIADXFilterAdaptsToVolatility(t *testing.T) {
	// High ATR regime: threshold tightens to 20, ADX 25 blocks entry.
	f := flatTestFrame(60, 100)
	f.ADX = constCol(60, 25)
	f.K[54] = 15
	f.K[55] = 55

	s, pb := newTestStrategy(t, "StochRSIMeanReversion", f, Params{})
	drive(f, s, pb, 50, 55)
	assert.Zero(t, pb.Position("SPY"))

	// Quiet regime: ATR 0.1% of price relaxes the threshold to 30 and
	// the same ADX reading passes.
	f2 := flatTestFrame(60, 100)
	f2.ADX = constCol(60, 25)
	f2.ATR = constCol(60, 0.1)
	f2.K[54] = 15
	f2.K[55] = 55

	s2, pb2 := newTestStrategy(t, "StochRSIMeanReversion", f2, Params{})
	drive(f2, s2, pb2, 50, 55)
	assert.Greater(t, pb2.Position("SPY"), 0.0)
}

func TestStochRSISkipADXFilterParam(t *testing.T) {
	f := flatTestFrame(60, 100)
	f.ADX = constCol(60, 40)
	f.K[54] = 15
	f.K[55] = 55

	s, pb := newTestStrategy(t, "StochRSIMeanReversion", f, Params{"skip_adx_filter": true})
	drive(f, s, pb, 50, 55)
	assert.Greater(t, pb.Position("SPY"), 0.0)
}

func TestDonchianBreakoutLongAndChannelExit(t *testing.T) {
	f := flatTestFrame(60, 100)
	f.ATR = constCol(60, 3)
	f.Bars[55] = market.Bar{Time: f.Bars[55].Time, Open: 102, High: 102, Low: 102, Close: 102, Volume: 1000}
	f.Bars[56] = f.Bars[55]
	f.Bars[56].Time = f.Bars[56].Time.AddDate(0, 0, 1)
	f.Bars[57] = market.Bar{Time: f.Bars[57].Time, Open: 97, High: 97, Low: 97, Close: 97, Volume: 1000}

	s, pb := newTestStrategy(t, "DonchianBreakout", f, Params{})
	drive(f, s, pb, 50, 56)

	// 2% of 10k over a 6-point stop distance, rounded to 33.33.
	assert.InDelta(t, 33.33, pb.Position("SPY"), 1e-9)

	drive(f, s, pb, 57, 57)
	assert.Zero(t, pb.Position("SPY"))
	trades := pb.Trades()
	require.Len(t, trades, 1)
	assert.Equal(t, "channel_exit", trades[0].ExitReason)
	assert.Equal(t, 97.0, trades[0].ExitPrice)
}

func TestDonchianStopLossFromAverageEntry(t *testing.T) {
	f := flatTestFrame(60, 100)
	f.ATR = constCol(60, 3)
	f.Bars[55] = market.Bar{Time: f.Bars[55].Time, Open: 102, High: 102, Low: 102, Close: 102, Volume: 1000}
	// Close holds above the exit channel but the low pierces the
	// 102 - 6 = 96 hard stop.
	f.Bars[56] = market.Bar{Time: f.Bars[56].Time, Open: 102, High: 102, Low: 95, Close: 102, Volume: 1000}

	s, pb := newTestStrategy(t, "DonchianBreakout", f, Params{})
	drive(f, s, pb, 50, 56)

	assert.Zero(t, pb.Position("SPY"))
	trades := pb.Trades()
	require.Len(t, trades, 1)
	assert.Equal(t, "stop_loss", trades[0].ExitReason)
	assert.Equal(t, 96.0, trades[0].ExitPrice)
	assert.Equal(t, 102.0, trades[0].EntryPrice)
}

func macdRow(t time.Time, mut func(*indicators.Row)) indicators.Row {
	r := indicators.Row{
		Bar: market.Bar{Time: t, Open: 100, High: 100, Low: 100, Close: 100, Volume: 1000},
		K:   50, D: 50, RSI: 50, ADX: 25,
		ATR:     2,
		BBUpper: 102, BBMiddle: 100, BBLower: 98,
	}
	if mut != nil {
		mut(&r)
	}
	return r
}

func TestMACDBollingerLongEntryNeedsMomentum(t *testing.T) {
	f := &indicators.Frame{Symbol: "SPY"}
	t0 := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	s, pb := newTestStrategy(t, "MACDBollinger", f, Params{})
	pb.UpdatePrice("SPY", 103)

	// Band breakout without MACD confirmation stays flat.
	s.OnBar(0, macdRow(t0, func(r *indicators.Row) {
		r.Bar.Close, r.Bar.High = 103, 104
		r.MACD, r.MACDSignal = 0.2, 0.5
	}))
	assert.Zero(t, pb.Position("SPY"))

	s.OnBar(1, macdRow(t0.AddDate(0, 0, 1), func(r *indicators.Row) {
		r.Bar.Close, r.Bar.High = 103, 104
		r.MACD, r.MACDSignal = 1.0, 0.5
	}))
	// 2% of 10k over a 4-point stop distance.
	assert.InDelta(t, 50.0, pb.Position("SPY"), 1e-9)
}

func TestMACDBollingerMiddleBandExit(t *testing.T) {
	f := &indicators.Frame{Symbol: "SPY"}
	t0 := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	s, pb := newTestStrategy(t, "MACDBollinger", f, Params{})
	pb.UpdatePrice("SPY", 103)
	s.OnBar(0, macdRow(t0, func(r *indicators.Row) {
		r.Bar.Close, r.Bar.High = 103, 104
		r.MACD, r.MACDSignal = 1.0, 0.5
	}))
	require.InDelta(t, 50.0, pb.Position("SPY"), 1e-9)

	pb.UpdatePrice("SPY", 99)
	s.OnBar(1, macdRow(t0.AddDate(0, 0, 1), func(r *indicators.Row) {
		r.Bar.Open, r.Bar.High, r.Bar.Low, r.Bar.Close = 99, 99.5, 98.8, 99
	}))

	assert.Zero(t, pb.Position("SPY"))
	trades := pb.Trades()
	require.Len(t, trades, 1)
	assert.Equal(t, "middle_band", trades[0].ExitReason)
	assert.Equal(t, 99.0, trades[0].ExitPrice)
	assert.InDelta(t, -200.0, trades[0].PnL, 1e-9)
}

func TestMACDBollingerTrailingStop(t *testing.T) {
	f := &indicators.Frame{Symbol: "SPY"}
	t0 := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	s, pb := newTestStrategy(t, "MACDBollinger", f, Params{
		"use_trailing_stop": true,
		"trailing_atr_dist": 1.0,
	})
	pb.UpdatePrice("SPY", 103)
	s.OnBar(0, macdRow(t0, func(r *indicators.Row) {
		r.Bar.Close, r.Bar.High = 103, 104
		r.MACD, r.MACDSignal = 1.0, 0.5
	}))
	require.InDelta(t, 50.0, pb.Position("SPY"), 1e-9)

	// High water 104, trail at 104 - 2 = 102; the low tags it while
	// the close holds above the middle band.
	pb.UpdatePrice("SPY", 103)
	s.OnBar(1, macdRow(t0.AddDate(0, 0, 1), func(r *indicators.Row) {
		r.Bar.Open, r.Bar.High, r.Bar.Low, r.Bar.Close = 103, 103.5, 101.5, 103
	}))

	assert.Zero(t, pb.Position("SPY"))
	trades := pb.Trades()
	require.Len(t, trades, 1)
	assert.Equal(t, "trailing_stop", trades[0].ExitReason)
	assert.Equal(t, 102.0, trades[0].ExitPrice)
	assert.InDelta(t, -50.0, trades[0].PnL, 1e-9)
}
