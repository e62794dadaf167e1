package strategy

import (
	"math"
	"time"

	"github.com/rustyeddy/quantlab/broker"
	"github.com/rustyeddy/quantlab/indicators"
)

func init() {
	Register("DonchianBreakout", func(ctx *Context) (Strategy, error) {
		return newDonchianBreakout(ctx), nil
	})
}

// donchianBreakout is a turtle-style channel system: enter when the
// close breaks the entry channel, exit on the opposite break of the
// shorter exit channel or on an ATR hard stop from the average entry.
// Sizing risks 2% of equity against the stop distance.
type donchianBreakout struct {
	Base

	stopLossATR float64
}

func newDonchianBreakout(ctx *Context) *donchianBreakout {
	return &donchianBreakout{
		Base:        Base{Ctx: ctx},
		stopLossATR: ctx.Params.Float("stop_loss_atr", 2.0),
	}
}

func (s *donchianBreakout) Name() string { return "DonchianBreakout" }

func (s *donchianBreakout) OnBar(i int, row indicators.Row) {
	if i < 50 {
		return
	}

	// ATR lagged a bar so the stop never keys off the bar being traded.
	atr := s.Ctx.Frame.ATR[i-1]
	if atr <= 0 {
		return
	}

	close := row.Bar.Close
	t := row.Bar.Time
	qty := s.PositionSize()

	switch {
	case qty == 0:
		if close > row.DonUpper {
			s.enter(broker.Buy, close, atr, t)
		} else if close < row.DonLower {
			s.enter(broker.Sell, close, atr, t)
		}

	case qty > 0:
		if close < row.DonExitLower {
			s.close(broker.Sell, qty, close, t, "channel_exit")
			return
		}
		avg := s.avgEntry()
		stop := avg - atr*s.stopLossATR
		if row.Bar.Low < stop {
			s.close(broker.Sell, qty, stop, t, "stop_loss")
		}

	case qty < 0:
		if close > row.DonExitUpper {
			s.close(broker.Buy, -qty, close, t, "channel_exit")
			return
		}
		avg := s.avgEntry()
		stop := avg + atr*s.stopLossATR
		if row.Bar.High > stop {
			s.close(broker.Buy, -qty, stop, t, "stop_loss")
		}
	}
}

func (s *donchianBreakout) enter(side broker.Side, close, atr float64, t time.Time) {
	stopDist := atr * s.stopLossATR
	if stopDist <= 0 {
		return
	}
	equity := s.Ctx.Broker.Equity()
	size := equity * 0.02 / stopDist
	if maxSize := equity / close; size > maxSize {
		size = maxSize
	}
	size = math.Round(size*100) / 100
	if size <= 0 {
		return
	}
	if side == broker.Buy {
		s.Buy(close, size, t)
	} else {
		s.Sell(close, size, t)
	}
}

func (s *donchianBreakout) close(side broker.Side, qty, price float64, t time.Time, reason string) {
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

func (s *donchianBreakout) avgEntry() float64 {
	if pos, ok := s.Ctx.Broker.Positions()[s.Symbol()]; ok {
		return pos.AvgPrice
	}
	return 0
}
