package blocks

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/quantlab/indicators"
	"github.com/rustyeddy/quantlab/market"
)

func rowWith(mut func(*indicators.Row)) indicators.Row {
	r := indicators.Row{
		Bar: market.Bar{Open: 100, High: 101, Low: 99, Close: 100},
		K:   50, D: 50, RSI: 50, ADX: 25,
		ATR:     1,
		BBUpper: 102, BBMiddle: 100, BBLower: 98,
		DonUpper: 103, DonLower: 97, DonExitUpper: 102, DonExitLower: 98,
		SMAFast: 100, SMASlow: 100, Chop: 50,
	}
	if mut != nil {
		mut(&r)
	}
	return r
}

func TestStochRSICrossZoneArming(t *testing.T) {
	e := StochRSICross(20, 80)
	st := &State{}

	// Dip into oversold arms the zone but does not fire.
	prev := rowWith(func(r *indicators.Row) { r.K = 15 })
	cur := rowWith(func(r *indicators.Row) { r.K = 30 })
	assert.Equal(t, None, e.Signal(cur, prev, st))
	assert.True(t, st.InOversold)

	// Midline recross fires long and disarms.
	prev = cur
	cur = rowWith(func(r *indicators.Row) { r.K = 55 })
	assert.Equal(t, Long, e.Signal(cur, prev, st))
	assert.False(t, st.InOversold)

	// A second midline cross without revisiting the zone stays quiet.
	assert.Equal(t, None, e.Signal(cur, prev, st))
}

func TestStochRSICrossShort(t *testing.T) {
	e := StochRSICross(20, 80)
	st := &State{}

	prev := rowWith(func(r *indicators.Row) { r.K = 85 })
	cur := rowWith(func(r *indicators.Row) { r.K = 45 })
	assert.Equal(t, Short, e.Signal(cur, prev, st))
}

func TestMACDCross(t *testing.T) {
	e := MACDCross()
	prev := rowWith(func(r *indicators.Row) { r.MACD = -0.5; r.MACDSignal = 0 })
	cur := rowWith(func(r *indicators.Row) { r.MACD = 0.5; r.MACDSignal = 0 })
	assert.Equal(t, Long, e.Signal(cur, prev, &State{}))
	assert.Equal(t, Short, e.Signal(prev, cur, &State{}))
}

func TestATRStopUsesEntryATR(t *testing.T) {
	x := ATRStop(2.0)
	st := &State{EntryATR: 2, HasEntryATR: true}

	// Entry at 100 with 2x2 stop: low 96 triggers, low 96.5 does not.
	hit := rowWith(func(r *indicators.Row) { r.Bar.Low = 96; r.ATR = 10 })
	assert.True(t, x.Should(hit, Long, 100, st))

	safe := rowWith(func(r *indicators.Row) { r.Bar.Low = 96.5; r.ATR = 10 })
	assert.False(t, x.Should(safe, Long, 100, st))
}

func TestTrailingATRTracksBest(t *testing.T) {
	x := TrailingATR(2.0)
	st := &State{}

	// High 110 sets the mark; trail is 108.
	r1 := rowWith(func(r *indicators.Row) { r.Bar.High = 110; r.Bar.Low = 109; r.ATR = 1 })
	assert.False(t, x.Should(r1, Long, 100, st))
	assert.Equal(t, 110.0, st.BestPrice)

	r2 := rowWith(func(r *indicators.Row) { r.Bar.High = 109; r.Bar.Low = 107.5; r.ATR = 1 })
	assert.True(t, x.Should(r2, Long, 100, st))
}

func TestFilters(t *testing.T) {
	assert.True(t, NoFilter().Allow(rowWith(nil)))

	ranging := rowWith(func(r *indicators.Row) { r.ADX = 20 })
	trending := rowWith(func(r *indicators.Row) { r.ADX = 30 })
	assert.True(t, ADXRanging(25).Allow(ranging))
	assert.False(t, ADXRanging(25).Allow(trending))
	assert.True(t, ADXTrending(25).Allow(trending))

	choppy := rowWith(func(r *indicators.Row) { r.Chop = 70 })
	assert.True(t, ChopRanging(61.8).Allow(choppy))
	assert.False(t, ChopTrending(38.2).Allow(choppy))

	above := rowWith(func(r *indicators.Row) { r.Bar.Close = 105; r.SMASlow = 100 })
	assert.True(t, SMAUptrend().Allow(above))
}

func TestSizers(t *testing.T) {
	assert.InDelta(t, 25.0, FixedPct(0.25).Size(10_000, 100, 0), 1e-9)

	// 2% of 10k is 200; stop distance 2*2=4 gives 50 units, but the
	// 25% notional cap at price 100 allows only 25.
	assert.InDelta(t, 25.0, RiskATR(0.02, 2.0).Size(10_000, 100, 2), 1e-9)

	// Wide stop keeps the risk sizing under the cap.
	assert.InDelta(t, 200.0/20.0, RiskATR(0.02, 2.0).Size(10_000, 100, 10), 1e-9)

	assert.Equal(t, 0.0, RiskATR(0.02, 2.0).Size(10_000, 100, 0))
}

func TestCompatibility(t *testing.T) {
	mr := StochRSICross(20, 80)
	trend := DonchianBreakoutEntry()

	assert.True(t, Compatible(mr, OppositeZone(20, 80), NoFilter()))
	assert.False(t, Compatible(trend, OppositeZone(20, 80), NoFilter()))
	assert.True(t, Compatible(trend, ATRStop(2), NoFilter()))
	assert.False(t, Compatible(mr, ATRStop(2), ADXTrending(25)))
	assert.True(t, Compatible(mr, ATRStop(2), ChopRanging(61.8)))
}

func TestGenerate(t *testing.T) {
	all := Generate(nil, nil, nil, nil, false)
	assert.Len(t, all, 7*7*6*3)

	pruned := Generate(nil, nil, nil, nil, true)
	assert.Less(t, len(pruned), len(all))
	assert.Equal(t, Count(true), len(pruned))

	for _, c := range pruned {
		require.True(t, Compatible(c.Entry, c.Exit, c.Filter), c.Label)
		assert.Equal(t, 4, len(strings.Split(c.Label, " | ")))
	}
}

func TestByNameRoundTrip(t *testing.T) {
	for _, e := range Entries() {
		got, ok := EntryByName(e.Name)
		require.True(t, ok, e.Name)
		assert.Equal(t, e.Name, got.Name)
	}
	_, ok := EntryByName("nope")
	assert.False(t, ok)

	s, ok := SizerByName("risk_atr(2%,3.0x)")
	require.True(t, ok)
	assert.Equal(t, "risk_atr(2%,3.0x)", s.Name)
}
