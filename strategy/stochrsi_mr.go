package strategy

import (
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/rustyeddy/quantlab/broker"
	"github.com/rustyeddy/quantlab/indicators"
)

func init() {
	Register("StochRSIMeanReversion", func(ctx *Context) (Strategy, error) {
		return newStochRSIMeanReversion(ctx), nil
	})
}

// stochRSIMeanReversion fades StochRSI extremes in ranging markets.
// A long sets up once %K dips below the oversold line and triggers
// when %K recrosses the midline; shorts mirror it. An ADX regime
// filter keeps it out of trending conditions, with a volatility
// adaptive threshold: tighter (20) when ATR is above 0.12% of
// price, looser (30) otherwise.
type stochRSIMeanReversion struct {
	Base

	overbought   float64
	oversold     float64
	adxThreshold float64
	dynamicADX   bool
	skipADX      bool
	slATR        float64

	inOversoldZone   bool
	inOverboughtZone bool
	dir              int // +1 long, -1 short, 0 flat
	stop             float64
}

func newStochRSIMeanReversion(ctx *Context) *stochRSIMeanReversion {
	p := ctx.Params
	return &stochRSIMeanReversion{
		Base:         Base{Ctx: ctx},
		overbought:   p.Float("overbought", 80),
		oversold:     p.Float("oversold", 20),
		adxThreshold: p.Float("adx_threshold", 20),
		dynamicADX:   p.Bool("dynamic_adx", true),
		skipADX:      p.Bool("skip_adx_filter", false),
		slATR:        p.Float("sl_atr", 3.0),
	}
}

func (s *stochRSIMeanReversion) Name() string { return "StochRSIMeanReversion" }

func (s *stochRSIMeanReversion) OnBar(i int, row indicators.Row) {
	if i < 50 {
		return
	}

	k := row.K
	prevK := s.Ctx.Frame.K[i-1]
	t := row.Bar.Time
	close := row.Bar.Close

	if !s.skipADX {
		threshold := s.adxThreshold
		if s.dynamicADX {
			atrPct := 0.0
			if close > 0 {
				atrPct = row.ATR / close * 100
			}
			if atrPct > 0.12 {
				threshold = 20
			} else {
				threshold = 30
			}
		}
		if row.ADX > threshold {
			return
		}
	}

	// Stop loss takes priority over signals.
	if s.dir > 0 && s.stop > 0 && row.Bar.Low <= s.stop {
		s.exitAt(s.stop, t, "stop_loss")
		return
	}
	if s.dir < 0 && s.stop > 0 && row.Bar.High >= s.stop {
		s.exitAt(s.stop, t, "stop_loss")
		return
	}

	switch {
	case s.dir == 0:
		if prevK < s.oversold {
			s.inOversoldZone = true
		}
		if s.inOversoldZone && k > 50 {
			if s.enter(broker.Buy, row, t) {
				s.inOversoldZone = false
			}
		}
		if k > 50 {
			s.inOversoldZone = false
		}

		if prevK > s.overbought {
			s.inOverboughtZone = true
		}
		if s.inOverboughtZone && k < 50 {
			if s.enter(broker.Sell, row, t) {
				s.inOverboughtZone = false
			}
		}
		if k < 50 {
			s.inOverboughtZone = false
		}

	case s.dir > 0:
		if k > s.overbought {
			s.exitAt(close, t, "signal")
		}

	case s.dir < 0:
		if k < s.oversold {
			s.exitAt(close, t, "signal")
		}
	}
}

// enter sizes the position off 2% equity risk against an ATR stop,
// capped at 1x leverage, and arms the stop. Reports whether the
// broker accepted the order.
func (s *stochRSIMeanReversion) enter(side broker.Side, row indicators.Row, t time.Time) bool {
	close := row.Bar.Close
	stopDist := row.ATR * s.slATR
	if stopDist <= 0 || close <= 0 {
		return false
	}

	equity := s.Ctx.Broker.Equity()
	size := equity * 0.02 / stopDist
	if maxSize := equity / close; size > maxSize {
		size = maxSize
	}
	size = math.Round(size*10_000) / 10_000
	if size <= 0 {
		return false
	}

	stop := close - side.Sign()*stopDist

	order := s.Ctx.Broker.PlaceOrder(broker.OrderRequest{
		Symbol:   s.Symbol(),
		Side:     side,
		Quantity: size,
		Type:     broker.Market,
		Price:    close,
		Time:     t,
		StopLoss: stop,
	})
	if order == nil {
		return false
	}

	s.dir = int(side.Sign())
	s.stop = stop
	s.Ctx.Log.Debug("mean reversion entry",
		zap.String("symbol", s.Symbol()),
		zap.Int("dir", s.dir),
		zap.Float64("size", size),
		zap.Float64("stop", stop))
	return true
}

func (s *stochRSIMeanReversion) exitAt(price float64, t time.Time, reason string) {
	qty := math.Abs(s.PositionSize())
	if qty > 0 {
		side := broker.Sell
		if s.dir < 0 {
			side = broker.Buy
		}
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
	s.dir = 0
	s.stop = 0
}
