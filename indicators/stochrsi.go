package indicators

// StreamingRSI is an iterative RSI with Wilder smoothing, used inside
// StochRSI where the rolling min/max needs bar-by-bar RSI values.
type StreamingRSI struct {
	period  int
	gains   []float64
	losses  []float64
	avgGain float64
	avgLoss float64

	prev    float64
	hasPrev bool

	Value float64
	Ready bool
}

func NewStreamingRSI(period int) *StreamingRSI {
	return &StreamingRSI{period: period, Value: 50}
}

func (r *StreamingRSI) Update(price float64) {
	if !r.hasPrev {
		r.prev = price
		r.hasPrev = true
		return
	}

	change := price - r.prev
	r.prev = price

	gain := 0.0
	loss := 0.0
	if change > 0 {
		gain = change
	} else {
		loss = -change
	}

	if !r.Ready {
		r.gains = append(r.gains, gain)
		r.losses = append(r.losses, loss)
		if len(r.gains) == r.period {
			for i := 0; i < r.period; i++ {
				r.avgGain += r.gains[i]
				r.avgLoss += r.losses[i]
			}
			r.avgGain /= float64(r.period)
			r.avgLoss /= float64(r.period)
			r.Ready = true
			r.calc()
		}
		return
	}

	p := float64(r.period)
	r.avgGain = (r.avgGain*(p-1) + gain) / p
	r.avgLoss = (r.avgLoss*(p-1) + loss) / p
	r.calc()
}

func (r *StreamingRSI) calc() {
	if r.avgLoss == 0 {
		r.Value = 100
		return
	}
	rs := r.avgGain / r.avgLoss
	r.Value = 100 - 100/(1+rs)
}

// StochRSI is the stateful stochastic RSI: Wilder RSI, a rolling
// min/max of the RSI over the stochastic window, then K and D
// smoothing. It must be iterated forward over the series.
type StochRSI struct {
	stochPeriod int
	smoothK     int
	smoothD     int

	rsi     *StreamingRSI
	rsiHist []float64
	rawHist []float64
	kHist   []float64

	K     float64
	D     float64
	Ready bool
}

func NewStochRSI(rsiPeriod, stochPeriod, smoothK, smoothD int) *StochRSI {
	return &StochRSI{
		stochPeriod: stochPeriod,
		smoothK:     smoothK,
		smoothD:     smoothD,
		rsi:         NewStreamingRSI(rsiPeriod),
	}
}

func (s *StochRSI) Update(price float64) {
	s.rsi.Update(price)
	if !s.rsi.Ready {
		return
	}

	s.rsiHist = append(s.rsiHist, s.rsi.Value)
	if len(s.rsiHist) > s.stochPeriod {
		s.rsiHist = s.rsiHist[1:]
	}
	if len(s.rsiHist) < s.stochPeriod {
		return
	}

	minRSI := s.rsiHist[0]
	maxRSI := s.rsiHist[0]
	for _, v := range s.rsiHist[1:] {
		if v < minRSI {
			minRSI = v
		}
		if v > maxRSI {
			maxRSI = v
		}
	}

	raw := 0.0
	if maxRSI != minRSI {
		raw = (s.rsi.Value - minRSI) / (maxRSI - minRSI)
	}

	s.rawHist = append(s.rawHist, raw)
	if len(s.rawHist) > s.smoothK {
		s.rawHist = s.rawHist[1:]
	}
	if len(s.rawHist) < s.smoothK {
		return
	}

	sum := 0.0
	for _, v := range s.rawHist {
		sum += v
	}
	s.K = sum / float64(s.smoothK) * 100

	s.kHist = append(s.kHist, s.K)
	if len(s.kHist) > s.smoothD {
		s.kHist = s.kHist[1:]
	}
	if len(s.kHist) < s.smoothD {
		return
	}

	sum = 0
	for _, v := range s.kHist {
		sum += v
	}
	s.D = sum / float64(s.smoothD)
	s.Ready = true
}
