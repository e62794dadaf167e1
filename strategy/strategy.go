// Package strategy defines the trading-strategy kernel: the per-bar
// interface the backtest engine drives, the shared Base helpers for
// order placement, and the registry that maps strategy names to
// factories.
package strategy

import (
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/rustyeddy/quantlab/broker"
	"github.com/rustyeddy/quantlab/indicators"
	"github.com/rustyeddy/quantlab/market"
)

// Strategy is called once per bar by the backtest engine. OnBar may
// place orders through the broker; it never sees future rows.
type Strategy interface {
	Name() string
	OnBar(i int, row indicators.Row)
	OnEvent(ev market.EconomicEvent)
}

// Context is everything a strategy factory needs to build an
// instance bound to one run.
type Context struct {
	Frame          *indicators.Frame
	Broker         broker.Broker
	Params         Params
	InitialCapital float64
	Log            *zap.Logger
}

// Factory builds a strategy instance for one run.
type Factory func(ctx *Context) (Strategy, error)

var registry = make(map[string]Factory)

// Register adds a named factory. Called from package init funcs;
// duplicate names panic because they indicate a wiring bug.
func Register(name string, f Factory) {
	if _, dup := registry[name]; dup {
		panic(fmt.Sprintf("strategy: duplicate registration %q", name))
	}
	registry[name] = f
}

// Exists reports whether name is registered.
func Exists(name string) bool {
	_, ok := registry[name]
	return ok
}

// Names returns all registered strategy names, sorted.
func Names() []string {
	names := make([]string, 0, len(registry))
	for n := range registry {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// New builds the named strategy bound to ctx.
func New(name string, ctx *Context) (Strategy, error) {
	f, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("unknown strategy %q (registered: %v)", name, Names())
	}
	if ctx.Log == nil {
		ctx.Log = zap.NewNop()
	}
	if ctx.Params == nil {
		ctx.Params = Params{}
	}
	return f(ctx)
}

// Base carries the run context and order helpers shared by every
// built-in strategy. Embed it and implement Name/OnBar.
type Base struct {
	Ctx *Context
}

// Symbol returns the symbol this run trades: the params override if
// present, otherwise the frame's symbol.
func (b *Base) Symbol() string {
	return b.Ctx.Params.Str("symbol", b.Ctx.Frame.Symbol)
}

// Buy places a market buy for size units at the given reference price.
// Returns nil when the broker rejects the order.
func (b *Base) Buy(price, size float64, t time.Time) *broker.Order {
	return b.Ctx.Broker.PlaceOrder(broker.OrderRequest{
		Symbol:   b.Symbol(),
		Side:     broker.Buy,
		Quantity: size,
		Type:     broker.Market,
		Price:    price,
		Time:     t,
	})
}

// Sell places a market sell for size units at the given reference price.
func (b *Base) Sell(price, size float64, t time.Time) *broker.Order {
	return b.Ctx.Broker.PlaceOrder(broker.OrderRequest{
		Symbol:   b.Symbol(),
		Side:     broker.Sell,
		Quantity: size,
		Type:     broker.Market,
		Price:    price,
		Time:     t,
	})
}

// Exit flattens the current position, tagging the trade record with
// reason.
func (b *Base) Exit(t time.Time, reason string) *broker.Order {
	return b.Ctx.Broker.ClosePosition(b.Symbol(), t, reason)
}

// PositionSize returns the signed open size for this run's symbol.
func (b *Base) PositionSize() float64 {
	return b.Ctx.Broker.Position(b.Symbol())
}

// OnEvent is a no-op default; event-aware strategies override it.
func (b *Base) OnEvent(market.EconomicEvent) {}
