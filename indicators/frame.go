package indicators

import (
	"math"

	"github.com/rustyeddy/quantlab/market"
)

// FrameConfig carries the indicator parameters used to build a Frame.
type FrameConfig struct {
	RSIPeriod   int
	StochPeriod int
	KSmooth     int
	DSmooth     int

	ADXPeriod int
	ATRPeriod int

	MACDFast   int
	MACDSlow   int
	MACDSignal int

	BBPeriod int
	BBStd    float64

	DonchianEntry int
	DonchianExit  int

	SMAFast int
	SMASlow int

	ChopPeriod int
}

// DefaultFrameConfig mirrors the standard settings every sweep uses
// unless a parameter grid overrides them.
func DefaultFrameConfig() FrameConfig {
	return FrameConfig{
		RSIPeriod:     14,
		StochPeriod:   14,
		KSmooth:       3,
		DSmooth:       3,
		ADXPeriod:     14,
		ATRPeriod:     14,
		MACDFast:      12,
		MACDSlow:      26,
		MACDSignal:    9,
		BBPeriod:      20,
		BBStd:         2.0,
		DonchianEntry: 20,
		DonchianExit:  10,
		SMAFast:       50,
		SMASlow:       200,
		ChopPeriod:    14,
	}
}

// Frame is a bar series augmented with derived aligned columns.
// Every column has exactly len(Bars) entries; warmup positions carry
// the documented neutral value (50 for oscillators, 25 for ADX,
// 0 for ATR and MACD, the bar close for bands and channels).
// A Frame is immutable after construction and may be shared read-only
// across strategy instances.
type Frame struct {
	Symbol string
	Bars   market.Series
	Config FrameConfig

	K, D         []float64
	ADX          []float64
	ATR          []float64
	RSI          []float64
	MACD         []float64
	MACDSignal   []float64
	MACDHist     []float64
	BBUpper      []float64
	BBMiddle     []float64
	BBLower      []float64
	DonUpper     []float64
	DonLower     []float64
	DonExitUpper []float64
	DonExitLower []float64
	SMAFast      []float64
	SMASlow      []float64
	Chop         []float64
}

// Row is one bar together with every indicator value at that index.
type Row struct {
	Index int
	Bar   market.Bar

	K, D         float64
	ADX          float64
	ATR          float64
	RSI          float64
	MACD         float64
	MACDSignal   float64
	MACDHist     float64
	BBUpper      float64
	BBMiddle     float64
	BBLower      float64
	DonUpper     float64
	DonLower     float64
	DonExitUpper float64
	DonExitLower float64
	SMAFast      float64
	SMASlow      float64
	Chop         float64
}

// NewFrame computes all indicator columns for the series.
func NewFrame(symbol string, bars market.Series, cfg FrameConfig) *Frame {
	n := len(bars)
	closes := make([]float64, n)
	for i, b := range bars {
		closes[i] = b.Close
	}

	f := &Frame{Symbol: symbol, Bars: bars, Config: cfg}

	// StochRSI is stateful: iterate forward, NaN until ready.
	stoch := NewStochRSI(cfg.RSIPeriod, cfg.StochPeriod, cfg.KSmooth, cfg.DSmooth)
	f.K = nans(n)
	f.D = nans(n)
	for i, px := range closes {
		stoch.Update(px)
		if stoch.Ready {
			f.K[i] = stoch.K
			f.D[i] = stoch.D
		}
	}

	f.ADX = ADX(bars, cfg.ADXPeriod)
	f.ATR = ATR(bars, cfg.ATRPeriod)
	f.RSI = RSI(closes, cfg.RSIPeriod)
	f.MACD, f.MACDSignal, f.MACDHist = MACD(closes, cfg.MACDFast, cfg.MACDSlow, cfg.MACDSignal)
	f.BBUpper, f.BBMiddle, f.BBLower = Bollinger(closes, cfg.BBPeriod, cfg.BBStd)
	f.DonUpper, f.DonLower, f.DonExitUpper, f.DonExitLower = Donchian(bars, cfg.DonchianEntry, cfg.DonchianExit)
	f.SMAFast = SMA(closes, cfg.SMAFast)
	f.SMASlow = SMA(closes, cfg.SMASlow)
	f.Chop = Chop(bars, cfg.ChopPeriod)

	// Neutral substitution for warmup positions.
	fillNaN(f.K, 50)
	fillNaN(f.D, 50)
	fillNaN(f.RSI, 50)
	fillNaN(f.Chop, 50)
	fillNaN(f.ADX, 25)
	fillNaN(f.ATR, 0)
	fillNaN(f.MACD, 0)
	fillNaN(f.MACDSignal, 0)
	fillNaN(f.MACDHist, 0)
	for i := 0; i < n; i++ {
		px := bars[i].Close
		fillAt(f.BBUpper, i, px)
		fillAt(f.BBMiddle, i, px)
		fillAt(f.BBLower, i, px)
		fillAt(f.DonUpper, i, px)
		fillAt(f.DonLower, i, px)
		fillAt(f.DonExitUpper, i, px)
		fillAt(f.DonExitLower, i, px)
		fillAt(f.SMAFast, i, px)
		fillAt(f.SMASlow, i, px)
	}

	return f
}

// Len returns the bar count.
func (f *Frame) Len() int { return len(f.Bars) }

// Row assembles the bar and all columns at index i.
func (f *Frame) Row(i int) Row {
	return Row{
		Index:        i,
		Bar:          f.Bars[i],
		K:            f.K[i],
		D:            f.D[i],
		ADX:          f.ADX[i],
		ATR:          f.ATR[i],
		RSI:          f.RSI[i],
		MACD:         f.MACD[i],
		MACDSignal:   f.MACDSignal[i],
		MACDHist:     f.MACDHist[i],
		BBUpper:      f.BBUpper[i],
		BBMiddle:     f.BBMiddle[i],
		BBLower:      f.BBLower[i],
		DonUpper:     f.DonUpper[i],
		DonLower:     f.DonLower[i],
		DonExitUpper: f.DonExitUpper[i],
		DonExitLower: f.DonExitLower[i],
		SMAFast:      f.SMAFast[i],
		SMASlow:      f.SMASlow[i],
		Chop:         f.Chop[i],
	}
}

func fillNaN(vals []float64, neutral float64) {
	for i, v := range vals {
		if math.IsNaN(v) {
			vals[i] = neutral
		}
	}
}

func fillAt(vals []float64, i int, v float64) {
	if math.IsNaN(vals[i]) {
		vals[i] = v
	}
}
