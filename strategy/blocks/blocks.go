// Package blocks provides the composable strategy building blocks:
// entry signals, exit rules, regime filters and position sizers. The
// combination generator pairs them into runnable strategies; block
// labels are stable strings used as experiment dedup keys, so
// changing one orphans its history.
package blocks

import (
	"fmt"
	"strings"

	"github.com/rustyeddy/quantlab/indicators"
)

// Kind types a block for compatibility pruning: mean-reversion
// entries only pair with mean-reversion or generic exits, trend
// entries with trend or generic exits.
type Kind string

const (
	MeanReversion Kind = "mean_reversion"
	Trend         Kind = "trend"
	Generic       Kind = "generic"
)

// Signal is an entry block's verdict for the current bar.
type Signal int

const (
	None Signal = iota
	Long
	Short
)

func (s Signal) String() string {
	switch s {
	case Long:
		return "long"
	case Short:
		return "short"
	}
	return "none"
}

// State carries per-position memory between bars: the zone flags of
// oscillator entries and the marks trailing exits track. The owning
// strategy resets it when a position closes.
type State struct {
	InOversold   bool
	InOverbought bool

	EntryATR    float64
	HasEntryATR bool

	BestPrice float64
	HasBest   bool
}

// ResetPosition clears the per-position fields, keeping zone flags.
func (s *State) ResetPosition() {
	s.EntryATR = 0
	s.HasEntryATR = false
	s.BestPrice = 0
	s.HasBest = false
}

// Entry emits Long/Short/None from the current and previous rows.
type Entry struct {
	Name   string
	Kind   Kind
	Signal func(row, prev indicators.Row, st *State) Signal
}

// Exit reports whether the open position should be closed this bar.
type Exit struct {
	Name   string
	Kind   Kind
	Should func(row indicators.Row, side Signal, entryPrice float64, st *State) bool
}

// Filter gates trading by regime; false blocks entries and closes
// any open position.
type Filter struct {
	Name  string
	Allow func(row indicators.Row) bool
}

// Sizer converts account equity into a position size.
type Sizer struct {
	Name string
	Size func(equity, price, atr float64) float64
}

// baseName strips the parameter suffix from a block label:
// "atr_stop(2.0x)" -> "atr_stop".
func baseName(label string) string {
	if i := strings.IndexByte(label, '('); i >= 0 {
		return label[:i]
	}
	return label
}

// StochRSICross is the zone-based mean reversion entry: arm when %K
// visits the extreme zone, fire when it recrosses the midline.
func StochRSICross(oversold, overbought float64) Entry {
	return Entry{
		Name: fmt.Sprintf("stochrsi_cross(os=%g,ob=%g)", oversold, overbought),
		Kind: MeanReversion,
		Signal: func(row, prev indicators.Row, st *State) Signal {
			if prev.K <= oversold {
				st.InOversold = true
			}
			if row.K > 50 {
				armed := st.InOversold
				st.InOversold = false
				if armed {
					return Long
				}
			}

			if prev.K >= overbought {
				st.InOverbought = true
			}
			if row.K < 50 {
				armed := st.InOverbought
				st.InOverbought = false
				if armed {
					return Short
				}
			}
			return None
		},
	}
}

// MACDCross fires on the MACD line crossing its signal line.
func MACDCross() Entry {
	return Entry{
		Name: "macd_cross",
		Kind: Trend,
		Signal: func(row, prev indicators.Row, st *State) Signal {
			if prev.MACD <= prev.MACDSignal && row.MACD > row.MACDSignal {
				return Long
			}
			if prev.MACD >= prev.MACDSignal && row.MACD < row.MACDSignal {
				return Short
			}
			return None
		},
	}
}

// BollingerBounce fades a close re-entering the bands.
func BollingerBounce() Entry {
	return Entry{
		Name: "bollinger_bounce",
		Kind: MeanReversion,
		Signal: func(row, prev indicators.Row, st *State) Signal {
			if prev.Bar.Close <= prev.BBLower && row.Bar.Close > row.BBLower {
				return Long
			}
			if prev.Bar.Close >= prev.BBUpper && row.Bar.Close < row.BBUpper {
				return Short
			}
			return None
		},
	}
}

// DonchianBreakoutEntry fires when the close escapes the channel.
func DonchianBreakoutEntry() Entry {
	return Entry{
		Name: "donchian_breakout",
		Kind: Trend,
		Signal: func(row, prev indicators.Row, st *State) Signal {
			if row.Bar.Close > row.DonUpper {
				return Long
			}
			if row.Bar.Close < row.DonLower {
				return Short
			}
			return None
		},
	}
}

// RSIExtreme fades RSI recrossing its extreme thresholds.
func RSIExtreme(oversold, overbought float64) Entry {
	return Entry{
		Name: fmt.Sprintf("rsi_extreme(os=%g,ob=%g)", oversold, overbought),
		Kind: MeanReversion,
		Signal: func(row, prev indicators.Row, st *State) Signal {
			if prev.RSI <= oversold && row.RSI > oversold {
				return Long
			}
			if prev.RSI >= overbought && row.RSI < overbought {
				return Short
			}
			return None
		},
	}
}

// SMACross fires on the fast SMA crossing the slow SMA.
func SMACross() Entry {
	return Entry{
		Name: "sma_cross(50/200)",
		Kind: Trend,
		Signal: func(row, prev indicators.Row, st *State) Signal {
			if prev.SMAFast <= prev.SMASlow && row.SMAFast > row.SMASlow {
				return Long
			}
			if prev.SMAFast >= prev.SMASlow && row.SMAFast < row.SMASlow {
				return Short
			}
			return None
		},
	}
}

// OppositeZone exits when StochRSI reaches the opposite extreme.
func OppositeZone(oversold, overbought float64) Exit {
	return Exit{
		Name: fmt.Sprintf("opposite_zone(os=%g,ob=%g)", oversold, overbought),
		Kind: MeanReversion,
		Should: func(row indicators.Row, side Signal, entryPrice float64, st *State) bool {
			if side == Long && row.K > overbought {
				return true
			}
			if side == Short && row.K < oversold {
				return true
			}
			return false
		},
	}
}

// ATRStop is a hard stop at multiplier times the entry-time ATR.
func ATRStop(multiplier float64) Exit {
	return Exit{
		Name: fmt.Sprintf("atr_stop(%.1fx)", multiplier),
		Kind: Generic,
		Should: func(row indicators.Row, side Signal, entryPrice float64, st *State) bool {
			atr := row.ATR
			if st.HasEntryATR {
				atr = st.EntryATR
			}
			dist := atr * multiplier
			if side == Long && row.Bar.Low <= entryPrice-dist {
				return true
			}
			if side == Short && row.Bar.High >= entryPrice+dist {
				return true
			}
			return false
		},
	}
}

// BollingerExit closes at the opposite band.
func BollingerExit() Exit {
	return Exit{
		Name: "bollinger_exit",
		Kind: MeanReversion,
		Should: func(row indicators.Row, side Signal, entryPrice float64, st *State) bool {
			if side == Long && row.Bar.Close >= row.BBUpper {
				return true
			}
			if side == Short && row.Bar.Close <= row.BBLower {
				return true
			}
			return false
		},
	}
}

// DonchianExit closes on a break of the exit channel.
func DonchianExit() Exit {
	return Exit{
		Name: "donchian_exit",
		Kind: Trend,
		Should: func(row indicators.Row, side Signal, entryPrice float64, st *State) bool {
			if side == Long && row.Bar.Close < row.DonExitLower {
				return true
			}
			if side == Short && row.Bar.Close > row.DonExitUpper {
				return true
			}
			return false
		},
	}
}

// TrailingATR trails the best price since entry by an ATR distance.
func TrailingATR(multiplier float64) Exit {
	return Exit{
		Name: fmt.Sprintf("trailing_atr(%.1fx)", multiplier),
		Kind: Generic,
		Should: func(row indicators.Row, side Signal, entryPrice float64, st *State) bool {
			atr := row.ATR
			if atr <= 0 {
				return false
			}
			best := entryPrice
			if st.HasBest {
				best = st.BestPrice
			}
			switch side {
			case Long:
				if row.Bar.High > best {
					best = row.Bar.High
					st.BestPrice = best
					st.HasBest = true
				}
				return row.Bar.Low <= best-atr*multiplier
			case Short:
				if row.Bar.Low < best {
					best = row.Bar.Low
					st.BestPrice = best
					st.HasBest = true
				}
				return row.Bar.High >= best+atr*multiplier
			}
			return false
		},
	}
}

// NoFilter always allows trading.
func NoFilter() Filter {
	return Filter{
		Name:  "no_filter",
		Allow: func(indicators.Row) bool { return true },
	}
}

// ADXRanging allows trading only below the ADX threshold.
func ADXRanging(threshold float64) Filter {
	return Filter{
		Name:  fmt.Sprintf("adx_ranging(<%g)", threshold),
		Allow: func(row indicators.Row) bool { return row.ADX < threshold },
	}
}

// ADXTrending allows trading only above the ADX threshold.
func ADXTrending(threshold float64) Filter {
	return Filter{
		Name:  fmt.Sprintf("adx_trending(>%g)", threshold),
		Allow: func(row indicators.Row) bool { return row.ADX > threshold },
	}
}

// ChopTrending allows trading in directional markets (CHOP low).
func ChopTrending(threshold float64) Filter {
	return Filter{
		Name:  fmt.Sprintf("chop_trending(<%g)", threshold),
		Allow: func(row indicators.Row) bool { return row.Chop < threshold },
	}
}

// ChopRanging allows trading in choppy markets (CHOP high).
func ChopRanging(threshold float64) Filter {
	return Filter{
		Name:  fmt.Sprintf("chop_ranging(>%g)", threshold),
		Allow: func(row indicators.Row) bool { return row.Chop > threshold },
	}
}

// SMAUptrend allows trading only above the slow SMA.
func SMAUptrend() Filter {
	return Filter{
		Name:  "sma_uptrend",
		Allow: func(row indicators.Row) bool { return row.Bar.Close > row.SMASlow },
	}
}

// FixedPct sizes a fixed fraction of equity.
func FixedPct(pct float64) Sizer {
	return Sizer{
		Name: fmt.Sprintf("fixed_pct(%d%%)", int(pct*100)),
		Size: func(equity, price, atr float64) float64 {
			if price <= 0 {
				return 0
			}
			return equity * pct / price
		},
	}
}

// RiskATR risks riskPct of equity against an ATR stop, capped at a
// quarter of equity notional.
func RiskATR(riskPct, atrMult float64) Sizer {
	return Sizer{
		Name: fmt.Sprintf("risk_atr(%d%%,%.1fx)", int(riskPct*100), atrMult),
		Size: func(equity, price, atr float64) float64 {
			dist := atr * atrMult
			if dist <= 0 || price <= 0 {
				return 0
			}
			size := equity * riskPct / dist
			if maxSize := equity * 0.25 / price; size > maxSize {
				size = maxSize
			}
			return size
		},
	}
}

// Entries is the default entry catalogue.
func Entries() []Entry {
	return []Entry{
		StochRSICross(20, 80),
		StochRSICross(15, 85),
		MACDCross(),
		BollingerBounce(),
		DonchianBreakoutEntry(),
		RSIExtreme(30, 70),
		SMACross(),
	}
}

// Exits is the default exit catalogue.
func Exits() []Exit {
	return []Exit{
		OppositeZone(20, 80),
		ATRStop(2.0),
		ATRStop(3.0),
		BollingerExit(),
		DonchianExit(),
		TrailingATR(2.0),
		TrailingATR(3.0),
	}
}

// Filters is the default filter catalogue.
func Filters() []Filter {
	return []Filter{
		NoFilter(),
		ADXRanging(25),
		ADXTrending(25),
		ChopTrending(38.2),
		ChopRanging(61.8),
		SMAUptrend(),
	}
}

// Sizers is the default sizer catalogue.
func Sizers() []Sizer {
	return []Sizer{
		FixedPct(0.25),
		RiskATR(0.02, 2.0),
		RiskATR(0.02, 3.0),
	}
}

// EntryByName resolves a catalogue entry by its label.
func EntryByName(name string) (Entry, bool) {
	for _, e := range Entries() {
		if e.Name == name {
			return e, true
		}
	}
	return Entry{}, false
}

// ExitByName resolves a catalogue exit by its label.
func ExitByName(name string) (Exit, bool) {
	for _, e := range Exits() {
		if e.Name == name {
			return e, true
		}
	}
	return Exit{}, false
}

// FilterByName resolves a catalogue filter by its label.
func FilterByName(name string) (Filter, bool) {
	for _, f := range Filters() {
		if f.Name == name {
			return f, true
		}
	}
	return Filter{}, false
}

// SizerByName resolves a catalogue sizer by its label.
func SizerByName(name string) (Sizer, bool) {
	for _, s := range Sizers() {
		if s.Name == name {
			return s, true
		}
	}
	return Sizer{}, false
}
