package strategy

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/quantlab/broker"
	"github.com/rustyeddy/quantlab/broker/sim"
)

func TestRecordingBrokerCapturesWithoutExecuting(t *testing.T) {
	real := sim.New(10_000, 0)
	real.UpdatePrice("SPY", 100)

	rec := newRecordingBroker(real)
	rec.UpdatePrice("SPY", 100)

	o := rec.PlaceOrder(broker.OrderRequest{
		Symbol: "SPY", Side: broker.Buy, Quantity: 10,
		Type: broker.Market, Price: 100, Time: time.Now(),
	})
	require.NotNil(t, o)
	assert.Equal(t, "recorded", o.Status)

	// The real account never saw it.
	assert.Equal(t, 0.0, real.Position("SPY"))

	reqs := rec.drain()
	require.Len(t, reqs, 1)
	assert.Equal(t, 10.0, reqs[0].Quantity)
	assert.Empty(t, rec.drain())
}

func TestRecordingBrokerMirror(t *testing.T) {
	rec := newRecordingBroker(sim.New(10_000, 0))

	rec.setMirror("SPY", 25, 100)
	assert.Equal(t, 25.0, rec.Position("SPY"))

	o := rec.ClosePosition("SPY", time.Now(), "regime_change")
	require.NotNil(t, o)
	assert.Equal(t, broker.Sell, o.Side)
	assert.Equal(t, 25.0, o.Quantity)

	rec.setMirror("SPY", 0, 0)
	assert.Nil(t, rec.ClosePosition("SPY", time.Now(), "noop"))
}

func TestRecordingBrokerProxiesEquity(t *testing.T) {
	real := sim.New(12_345, 0)
	rec := newRecordingBroker(real)
	assert.Equal(t, 12_345.0, rec.Equity())
	assert.Equal(t, 12_345.0, rec.Balance())
}
