package strategy

import (
	"math"
	"time"

	"github.com/rustyeddy/quantlab/broker"
	"github.com/rustyeddy/quantlab/indicators"
)

func init() {
	Register("MACDBollinger", func(ctx *Context) (Strategy, error) {
		return newMACDBollinger(ctx), nil
	})
}

// macdBollinger rides band breakouts confirmed by MACD momentum:
// long when the close escapes the upper band with MACD above its
// signal line, short mirrored. Exits on the middle band, an ATR hard
// stop from entry, or an optional ATR trailing stop from the high
// water mark.
type macdBollinger struct {
	Base

	slATR        float64
	useTrailing  bool
	trailingDist float64
	useADX       bool
	adxThreshold float64

	highWater float64
	lowWater  float64
}

func newMACDBollinger(ctx *Context) *macdBollinger {
	p := ctx.Params
	return &macdBollinger{
		Base:         Base{Ctx: ctx},
		slATR:        p.Float("sl_atr", 2.0),
		useTrailing:  p.Bool("use_trailing_stop", false),
		trailingDist: p.Float("trailing_atr_dist", 3.0),
		useADX:       p.Bool("use_adx_filter", false),
		adxThreshold: p.Float("adx_threshold", 25),
		lowWater:     math.Inf(1),
	}
}

func (s *macdBollinger) Name() string { return "MACDBollinger" }

func (s *macdBollinger) OnBar(i int, row indicators.Row) {
	close := row.Bar.Close
	t := row.Bar.Time
	qty := s.PositionSize()

	switch {
	case qty == 0:
		s.highWater = 0
		s.lowWater = math.Inf(1)

		if s.useADX && row.ADX < s.adxThreshold {
			return
		}
		if close > row.BBUpper && row.MACD > row.MACDSignal {
			if s.enter(broker.Buy, row, t) {
				s.highWater = row.Bar.High
			}
		} else if close < row.BBLower && row.MACD < row.MACDSignal {
			if s.enter(broker.Sell, row, t) {
				s.lowWater = row.Bar.Low
			}
		}

	case qty > 0:
		if row.Bar.High > s.highWater {
			s.highWater = row.Bar.High
		}
		if s.useTrailing {
			trail := s.highWater - row.ATR*s.trailingDist
			if row.Bar.Low < trail {
				s.close(broker.Sell, qty, trail, t, "trailing_stop")
				return
			}
		}
		if close < row.BBMiddle {
			s.close(broker.Sell, qty, close, t, "middle_band")
			return
		}
		stop := s.avgEntry() - row.ATR*s.slATR
		if row.Bar.Low < stop {
			s.close(broker.Sell, qty, stop, t, "stop_loss")
		}

	case qty < 0:
		if row.Bar.Low < s.lowWater {
			s.lowWater = row.Bar.Low
		}
		if s.useTrailing {
			trail := s.lowWater + row.ATR*s.trailingDist
			if row.Bar.High > trail {
				s.close(broker.Buy, -qty, trail, t, "trailing_stop")
				return
			}
		}
		if close > row.BBMiddle {
			s.close(broker.Buy, -qty, close, t, "middle_band")
			return
		}
		stop := s.avgEntry() + row.ATR*s.slATR
		if row.Bar.High > stop {
			s.close(broker.Buy, -qty, stop, t, "stop_loss")
		}
	}
}

func (s *macdBollinger) enter(side broker.Side, row indicators.Row, t time.Time) bool {
	stopDist := row.ATR * s.slATR
	if stopDist <= 0 {
		return false
	}
	size := math.Round(s.Ctx.Broker.Equity()*0.02/stopDist*100) / 100
	if size <= 0 {
		return false
	}
	var order *broker.Order
	if side == broker.Buy {
		order = s.Buy(row.Bar.Close, size, t)
	} else {
		order = s.Sell(row.Bar.Close, size, t)
	}
	return order != nil
}

func (s *macdBollinger) close(side broker.Side, qty, price float64, t time.Time, reason string) {
	s.Ctx.Broker.PlaceOrder(broker.OrderRequest{
		Symbol:     s.Symbol(),
		Side:       side,
		Quantity:   qty,
		Type:       broker.Market,
		Price:      price,
		Time:       t,
		ExitReason: reason,
	})
}

func (s *macdBollinger) avgEntry() float64 {
	if pos, ok := s.Ctx.Broker.Positions()[s.Symbol()]; ok {
		return pos.AvgPrice
	}
	return 0
}
