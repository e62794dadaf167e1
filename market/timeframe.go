package market

import (
	"fmt"
	"time"
)

// Timeframe is a bar period label ("1m", "5m", "15m", "1h", "4h", "1d").
type Timeframe string

const (
	M1  Timeframe = "1m"
	M5  Timeframe = "5m"
	M15 Timeframe = "15m"
	H1  Timeframe = "1h"
	H4  Timeframe = "4h"
	D1  Timeframe = "1d"
)

var durations = map[Timeframe]time.Duration{
	M1:  time.Minute,
	M5:  5 * time.Minute,
	M15: 15 * time.Minute,
	H1:  time.Hour,
	H4:  4 * time.Hour,
	D1:  24 * time.Hour,
}

// ResampleSource maps timeframes that should be built by resampling a
// finer series to that source timeframe. Timeframes not present are
// loaded directly.
var ResampleSource = map[Timeframe]Timeframe{
	M5:  M1,
	M15: M1,
	H4:  H1,
}

// AdjacentTimeframes is the fixed expansion mapping used when a
// validated winner is promoted to neighbouring timeframes.
var AdjacentTimeframes = map[Timeframe][]Timeframe{
	M5:  {M15},
	M15: {M5, H1},
	H1:  {M15, H4},
	H4:  {H1, D1},
	D1:  {H4},
}

// ParseTimeframe validates a timeframe label.
func ParseTimeframe(s string) (Timeframe, error) {
	tf := Timeframe(s)
	if _, ok := durations[tf]; !ok {
		return "", fmt.Errorf("unknown timeframe %q", s)
	}
	return tf, nil
}

// Duration returns the bar period. Unknown timeframes return 0.
func (tf Timeframe) Duration() time.Duration {
	return durations[tf]
}

func (tf Timeframe) String() string { return string(tf) }
