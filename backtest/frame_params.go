package backtest

import (
	"github.com/rustyeddy/quantlab/indicators"
	"github.com/rustyeddy/quantlab/strategy"
)

// FrameConfigFromParams starts from the default indicator settings
// and applies any period overrides present in the parameter set, so
// grids that vary rsi_period or bb_std rebuild the frame accordingly.
func FrameConfigFromParams(params strategy.Params) indicators.FrameConfig {
	fc := indicators.DefaultFrameConfig()
	if params == nil {
		return fc
	}

	fc.RSIPeriod = params.Int("rsi_period", fc.RSIPeriod)
	fc.StochPeriod = params.Int("stoch_period", fc.StochPeriod)
	fc.KSmooth = params.Int("k_period", fc.KSmooth)
	fc.DSmooth = params.Int("d_period", fc.DSmooth)
	fc.ADXPeriod = params.Int("adx_period", fc.ADXPeriod)
	fc.ATRPeriod = params.Int("atr_period", fc.ATRPeriod)
	fc.MACDFast = params.Int("macd_fast", fc.MACDFast)
	fc.MACDSlow = params.Int("macd_slow", fc.MACDSlow)
	fc.MACDSignal = params.Int("macd_signal", fc.MACDSignal)
	fc.BBPeriod = params.Int("bb_period", fc.BBPeriod)
	fc.BBStd = params.Float("bb_std", fc.BBStd)
	fc.DonchianEntry = params.Int("entry_period", fc.DonchianEntry)
	fc.DonchianExit = params.Int("exit_period", fc.DonchianExit)
	fc.SMAFast = params.Int("sma_fast", fc.SMAFast)
	fc.SMASlow = params.Int("sma_slow", fc.SMASlow)
	fc.ChopPeriod = params.Int("chop_period", fc.ChopPeriod)
	return fc
}
