package backtest

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/rustyeddy/quantlab/indicators"
	"github.com/rustyeddy/quantlab/strategy"
)

func TestFrameConfigFromParams(t *testing.T) {
	fc := FrameConfigFromParams(strategy.Params{
		"rsi_period":   7,
		"stoch_period": 21,
		"atr_period":   20,
		"bb_std":       1.5,
		"entry_period": 55,
		"exit_period":  5,
		"sl_atr":       2.0, // not a frame knob, must be ignored
	})

	assert.Equal(t, 7, fc.RSIPeriod)
	assert.Equal(t, 21, fc.StochPeriod)
	assert.Equal(t, 20, fc.ATRPeriod)
	assert.Equal(t, 1.5, fc.BBStd)
	assert.Equal(t, 55, fc.DonchianEntry)
	assert.Equal(t, 5, fc.DonchianExit)

	def := indicators.DefaultFrameConfig()
	assert.Equal(t, def.MACDFast, fc.MACDFast)
	assert.Equal(t, def.SMASlow, fc.SMASlow)
}

func TestFrameConfigFromParamsNil(t *testing.T) {
	assert.Equal(t, indicators.DefaultFrameConfig(), FrameConfigFromParams(nil))
}
