package market

// Resample aggregates a finer series into tf-period bars: open is the
// first source open, high the max, low the min, close the last close,
// volume the sum. Windows with no source bars are dropped, so the
// result can be sparse. The aggregation is associative: 1m -> 5m -> 15m
// equals 1m -> 15m.
func Resample(src Series, tf Timeframe) Series {
	period := tf.Duration()
	if period <= 0 || len(src) == 0 {
		return nil
	}

	var out Series
	var cur Bar
	var curStart int64 = -1

	flush := func() {
		if curStart >= 0 {
			out = append(out, cur)
		}
	}

	for _, b := range src {
		win := b.Time.Unix() - b.Time.Unix()%int64(period.Seconds())
		if win != curStart {
			flush()
			curStart = win
			cur = Bar{
				Time:   b.Time.Truncate(period),
				Open:   b.Open,
				High:   b.High,
				Low:    b.Low,
				Close:  b.Close,
				Volume: b.Volume,
			}
			continue
		}
		if b.High > cur.High {
			cur.High = b.High
		}
		if b.Low < cur.Low {
			cur.Low = b.Low
		}
		cur.Close = b.Close
		cur.Volume += b.Volume
	}
	flush()

	return out
}
