// Package indicators provides the pure functions that derive aligned
// numeric columns from a bar series, plus the pre-computed Frame the
// strategy layer reads. Warmup positions are NaN until the Frame
// substitutes documented neutral values.
package indicators

import (
	"math"

	"github.com/rustyeddy/quantlab/market"
)

func nans(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}

// SMA is a simple moving average with NaN warmup.
func SMA(vals []float64, period int) []float64 {
	out := nans(len(vals))
	if period <= 0 {
		return out
	}
	sum := 0.0
	for i, v := range vals {
		sum += v
		if i >= period {
			sum -= vals[i-period]
		}
		if i >= period-1 {
			out[i] = sum / float64(period)
		}
	}
	return out
}

// EMA is an exponential moving average with multiplier 2/(span+1),
// seeded with the first value.
func EMA(vals []float64, span int) []float64 {
	out := nans(len(vals))
	if span <= 0 || len(vals) == 0 {
		return out
	}
	alpha := 2.0 / float64(span+1)
	ema := vals[0]
	out[0] = ema
	for i := 1; i < len(vals); i++ {
		ema = (vals[i]-ema)*alpha + ema
		out[i] = ema
	}
	return out
}

// wilder applies Wilder smoothing (alpha = 1/period) seeded with the
// first value.
func wilder(vals []float64, period int) []float64 {
	out := nans(len(vals))
	if period <= 0 || len(vals) == 0 {
		return out
	}
	alpha := 1.0 / float64(period)
	s := vals[0]
	out[0] = s
	for i := 1; i < len(vals); i++ {
		s = (vals[i]-s)*alpha + s
		out[i] = s
	}
	return out
}

// RSI computes the Relative Strength Index with Wilder smoothing.
// Positions before the warmup period are NaN.
func RSI(closes []float64, period int) []float64 {
	n := len(closes)
	out := nans(n)
	if period <= 0 || n == 0 {
		return out
	}

	gains := make([]float64, n)
	losses := make([]float64, n)
	for i := 1; i < n; i++ {
		d := closes[i] - closes[i-1]
		if d > 0 {
			gains[i] = d
		} else {
			losses[i] = -d
		}
	}

	avgGain := wilder(gains, period)
	avgLoss := wilder(losses, period)

	for i := period; i < n; i++ {
		if avgLoss[i] == 0 {
			out[i] = 100
			continue
		}
		rs := avgGain[i] / avgLoss[i]
		out[i] = 100 - 100/(1+rs)
	}
	return out
}

// TrueRange returns the per-bar true range. The first bar uses
// high-low alone.
func TrueRange(bars market.Series) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		tr := b.High - b.Low
		if i > 0 {
			prev := bars[i-1].Close
			tr = math.Max(tr, math.Max(math.Abs(b.High-prev), math.Abs(b.Low-prev)))
		}
		out[i] = tr
	}
	return out
}

// ATR is the rolling mean of true range with NaN warmup.
func ATR(bars market.Series, period int) []float64 {
	return SMA(TrueRange(bars), period)
}

// MACD returns the MACD line, signal line and histogram.
func MACD(closes []float64, fast, slow, signal int) (line, sig, hist []float64) {
	emaFast := EMA(closes, fast)
	emaSlow := EMA(closes, slow)

	line = make([]float64, len(closes))
	for i := range line {
		line[i] = emaFast[i] - emaSlow[i]
	}
	sig = EMA(line, signal)
	hist = make([]float64, len(closes))
	for i := range hist {
		hist[i] = line[i] - sig[i]
	}
	return line, sig, hist
}

// Bollinger returns upper, middle and lower bands using the sample
// standard deviation over the window.
func Bollinger(closes []float64, period int, stdDev float64) (upper, middle, lower []float64) {
	n := len(closes)
	upper, middle, lower = nans(n), nans(n), nans(n)
	if period <= 1 {
		return upper, middle, lower
	}
	for i := period - 1; i < n; i++ {
		win := closes[i-period+1 : i+1]
		mean := 0.0
		for _, v := range win {
			mean += v
		}
		mean /= float64(period)

		variance := 0.0
		for _, v := range win {
			variance += (v - mean) * (v - mean)
		}
		sd := math.Sqrt(variance / float64(period-1))

		middle[i] = mean
		upper[i] = mean + sd*stdDev
		lower[i] = mean - sd*stdDev
	}
	return upper, middle, lower
}

// Donchian returns entry and exit channel bounds. Channels are built
// strictly from past bars (shifted by one) to avoid lookahead.
func Donchian(bars market.Series, entryPeriod, exitPeriod int) (entryHigh, entryLow, exitHigh, exitLow []float64) {
	highs := make([]float64, len(bars))
	lows := make([]float64, len(bars))
	for i, b := range bars {
		highs[i] = b.High
		lows[i] = b.Low
	}
	entryHigh = shift(rollMax(highs, entryPeriod))
	entryLow = shift(rollMin(lows, entryPeriod))
	exitHigh = shift(rollMax(highs, exitPeriod))
	exitLow = shift(rollMin(lows, exitPeriod))
	return entryHigh, entryLow, exitHigh, exitLow
}

// ADX computes the Average Directional Index with Wilder smoothing.
func ADX(bars market.Series, period int) []float64 {
	n := len(bars)
	out := nans(n)
	if n == 0 || period <= 0 {
		return out
	}

	tr := TrueRange(bars)
	plusDM := make([]float64, n)
	minusDM := make([]float64, n)
	for i := 1; i < n; i++ {
		up := bars[i].High - bars[i-1].High
		down := bars[i-1].Low - bars[i].Low
		if up > down && up > 0 {
			plusDM[i] = up
		}
		if down > up && down > 0 {
			minusDM[i] = down
		}
	}

	atr := wilder(tr, period)
	plus := wilder(plusDM, period)
	minus := wilder(minusDM, period)

	dx := nans(n)
	for i := 0; i < n; i++ {
		if atr[i] == 0 {
			continue
		}
		pdi := plus[i] / atr[i] * 100
		mdi := minus[i] / atr[i] * 100
		if pdi+mdi == 0 {
			continue
		}
		dx[i] = math.Abs(pdi-mdi) / (pdi + mdi) * 100
	}

	// Smooth DX, skipping leading NaNs.
	alpha := 1.0 / float64(period)
	var adx float64
	seeded := false
	for i := 0; i < n; i++ {
		if math.IsNaN(dx[i]) {
			continue
		}
		if !seeded {
			adx = dx[i]
			seeded = true
		} else {
			adx = (dx[i]-adx)*alpha + adx
		}
		out[i] = adx
	}
	return out
}

// Chop computes the Choppiness Index. Values above 61.8 mark
// consolidation, below 38.2 a directional market.
func Chop(bars market.Series, period int) []float64 {
	n := len(bars)
	out := nans(n)
	if period <= 1 || n == 0 {
		return out
	}

	tr := TrueRange(bars)
	logP := math.Log10(float64(period))

	for i := period - 1; i < n; i++ {
		trSum := 0.0
		hi := math.Inf(-1)
		lo := math.Inf(1)
		for j := i - period + 1; j <= i; j++ {
			trSum += tr[j]
			hi = math.Max(hi, bars[j].High)
			lo = math.Min(lo, bars[j].Low)
		}
		if hi-lo <= 0 || trSum <= 0 {
			continue
		}
		out[i] = 100 * math.Log10(trSum/(hi-lo)) / logP
	}
	return out
}

func rollMax(vals []float64, period int) []float64 {
	out := nans(len(vals))
	if period <= 0 {
		return out
	}
	for i := period - 1; i < len(vals); i++ {
		m := math.Inf(-1)
		for j := i - period + 1; j <= i; j++ {
			m = math.Max(m, vals[j])
		}
		out[i] = m
	}
	return out
}

func rollMin(vals []float64, period int) []float64 {
	out := nans(len(vals))
	if period <= 0 {
		return out
	}
	for i := period - 1; i < len(vals); i++ {
		m := math.Inf(1)
		for j := i - period + 1; j <= i; j++ {
			m = math.Min(m, vals[j])
		}
		out[i] = m
	}
	return out
}

// shift moves values one position later; the first slot becomes NaN.
func shift(vals []float64) []float64 {
	out := nans(len(vals))
	if len(vals) == 0 {
		return out
	}
	copy(out[1:], vals[:len(vals)-1])
	return out
}
