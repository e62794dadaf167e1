package market

import (
	"fmt"
	"time"
)

// Bar is one OHLCV sample at a fixed period.
type Bar struct {
	Time   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// Series is an ordered sequence of bars at a fixed period.
// Timestamps are monotonically non-decreasing.
type Series []Bar

// Start returns the timestamp of the first bar.
func (s Series) Start() time.Time {
	if len(s) == 0 {
		return time.Time{}
	}
	return s[0].Time
}

// End returns the timestamp of the last bar.
func (s Series) End() time.Time {
	if len(s) == 0 {
		return time.Time{}
	}
	return s[len(s)-1].Time
}

// Slice returns the bars with Time in [start, end]. Zero bounds are open.
func (s Series) Slice(start, end time.Time) Series {
	var out Series
	for _, b := range s {
		if !start.IsZero() && b.Time.Before(start) {
			continue
		}
		if !end.IsZero() && b.Time.After(end) {
			continue
		}
		out = append(out, b)
	}
	return out
}

// Validate checks the monotonic time invariant.
func (s Series) Validate() error {
	for i := 1; i < len(s); i++ {
		if s[i].Time.Before(s[i-1].Time) {
			return fmt.Errorf("series not sorted: bar %d (%s) precedes bar %d (%s)",
				i, s[i].Time, i-1, s[i-1].Time)
		}
	}
	return nil
}
