package strategy

import (
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/rustyeddy/quantlab/broker"
	"github.com/rustyeddy/quantlab/indicators"
	"github.com/rustyeddy/quantlab/internal/id"
	"github.com/rustyeddy/quantlab/market"
)

func init() {
	Register("HybridRegime", func(ctx *Context) (Strategy, error) {
		return newRegimeRouter(ctx)
	})
}

// recordingBroker captures the orders a child strategy would place
// without executing them. The router mirrors the real position into
// the active child and replays the recorded orders against the real
// broker. Equity and balance proxy the real account so child sizing
// stays honest.
type recordingBroker struct {
	real     broker.Broker
	prices   map[string]float64
	mirror   map[string]broker.Position
	recorded []broker.OrderRequest
}

func newRecordingBroker(real broker.Broker) *recordingBroker {
	return &recordingBroker{
		real:   real,
		prices: make(map[string]float64),
		mirror: make(map[string]broker.Position),
	}
}

func (r *recordingBroker) UpdatePrice(symbol string, price float64) { r.prices[symbol] = price }

func (r *recordingBroker) PlaceOrder(req broker.OrderRequest) *broker.Order {
	if !(req.Quantity > 0) {
		return nil
	}
	r.recorded = append(r.recorded, req)
	return &broker.Order{
		ID:        id.New(),
		Symbol:    req.Symbol,
		Side:      req.Side,
		Quantity:  req.Quantity,
		FillPrice: req.Price,
		Status:    "recorded",
		Time:      req.Time,
	}
}

func (r *recordingBroker) Equity() float64  { return r.real.Equity() }
func (r *recordingBroker) Balance() float64 { return r.real.Balance() }

func (r *recordingBroker) Position(symbol string) float64 { return r.mirror[symbol].Size }

func (r *recordingBroker) Positions() map[string]broker.Position {
	out := make(map[string]broker.Position, len(r.mirror))
	for k, v := range r.mirror {
		if v.Size != 0 {
			out[k] = v
		}
	}
	return out
}

func (r *recordingBroker) SetEntryMetadata(string, map[string]any) {}
func (r *recordingBroker) SetExecutionOverride(float64)            {}
func (r *recordingBroker) ClearExecutionOverride()                 {}

func (r *recordingBroker) ClosePosition(symbol string, t time.Time, reason string) *broker.Order {
	pos := r.mirror[symbol]
	if pos.Size == 0 {
		return nil
	}
	side := broker.Sell
	if pos.Size < 0 {
		side = broker.Buy
	}
	return r.PlaceOrder(broker.OrderRequest{
		Symbol:     symbol,
		Side:       side,
		Quantity:   math.Abs(pos.Size),
		Type:       broker.Market,
		Time:       t,
		ExitReason: reason,
	})
}

// setMirror tells the child what position it owns.
func (r *recordingBroker) setMirror(symbol string, size, price float64) {
	r.mirror[symbol] = broker.Position{Symbol: symbol, Size: size, AvgPrice: price}
}

func (r *recordingBroker) drain() []broker.OrderRequest {
	out := r.recorded
	r.recorded = nil
	return out
}

// regimeRouter switches between a mean-reversion child in ranging
// markets and a trend-following child when ADX signals a trend. Both
// children run every bar against recording brokers; only the active
// child's orders reach the real account. An open position is closed
// when the regime flips, never mid-regime by the router itself.
type regimeRouter struct {
	Base

	adxThreshold float64

	rangeChild recordedChild
	trendChild recordedChild

	regime string // "range", "trend" or "" before warmup
}

type recordedChild struct {
	strat    Strategy
	recorder *recordingBroker
}

func newRegimeRouter(ctx *Context) (*regimeRouter, error) {
	r := &regimeRouter{
		Base:         Base{Ctx: ctx},
		adxThreshold: ctx.Params.Float("adx_threshold", 30),
	}

	rangeRec := newRecordingBroker(ctx.Broker)
	rangeParams := ctx.Params.Clone()
	rangeParams["skip_adx_filter"] = true
	rangeStrat, err := New("StochRSIMeanReversion", &Context{
		Frame:          ctx.Frame,
		Broker:         rangeRec,
		Params:         rangeParams,
		InitialCapital: ctx.InitialCapital,
		Log:            ctx.Log,
	})
	if err != nil {
		return nil, err
	}
	r.rangeChild = recordedChild{strat: rangeStrat, recorder: rangeRec}

	trendRec := newRecordingBroker(ctx.Broker)
	trendStrat, err := New("DonchianBreakout", &Context{
		Frame:          ctx.Frame,
		Broker:         trendRec,
		Params:         ctx.Params.Clone(),
		InitialCapital: ctx.InitialCapital,
		Log:            ctx.Log,
	})
	if err != nil {
		return nil, err
	}
	r.trendChild = recordedChild{strat: trendStrat, recorder: trendRec}

	return r, nil
}

func (r *regimeRouter) Name() string { return "HybridRegime" }

func (r *regimeRouter) OnBar(i int, row indicators.Row) {
	symbol := r.Symbol()
	close := row.Bar.Close

	regime := "range"
	if row.ADX > r.adxThreshold {
		regime = "trend"
	}

	// Flatten on regime flips only.
	if r.regime != "" && r.regime != regime && r.PositionSize() != 0 {
		r.Ctx.Broker.ClosePosition(symbol, row.Bar.Time, "regime_change")
		r.Ctx.Log.Debug("regime flip",
			zap.String("symbol", symbol),
			zap.String("from", r.regime),
			zap.String("to", regime))
	}
	r.regime = regime

	active, passive := r.rangeChild, r.trendChild
	if regime == "trend" {
		active, passive = r.trendChild, r.rangeChild
	}

	realSize := r.PositionSize()
	active.recorder.setMirror(symbol, realSize, close)
	passive.recorder.setMirror(symbol, 0, 0)
	active.recorder.drain()
	passive.recorder.drain()

	r.rangeChild.strat.OnBar(i, row)
	r.trendChild.strat.OnBar(i, row)

	for _, req := range active.recorder.drain() {
		r.Ctx.Broker.PlaceOrder(req)
	}
	passive.recorder.drain()
}

func (r *regimeRouter) OnEvent(ev market.EconomicEvent) {
	r.rangeChild.strat.OnEvent(ev)
	r.trendChild.strat.OnEvent(ev)
}
