// Package sim implements the deterministic paper broker used by every
// backtest and forward run: position book, fill engine with spread,
// 1x leverage clamp, realised/unrealised PnL and the closed-trade log.
package sim

import (
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/rustyeddy/quantlab/broker"
	"github.com/rustyeddy/quantlab/internal/id"
)

type position struct {
	size     float64
	avgPrice float64
	openTime time.Time
}

// PaperBroker is the execution and accounting authority for one run.
// It is exclusive to a single backtest and is not safe for concurrent
// use.
type PaperBroker struct {
	initialCapital float64
	cash           float64
	spread         float64

	converter broker.Converter
	log       *zap.Logger

	prices    map[string]float64
	positions map[string]*position
	entryMeta map[string]map[string]any

	orders []broker.Order
	trades []broker.TradeRecord

	override    float64
	hasOverride bool
}

// New returns a paper broker with the given starting cash and
// fractional spread (0.0003 = 0.03%). The account currency is USD
// with the default static cross rates.
func New(initialCapital, spread float64) *PaperBroker {
	return &PaperBroker{
		initialCapital: initialCapital,
		cash:           initialCapital,
		spread:         spread,
		converter:      broker.NewStaticConverter("USD"),
		log:            zap.NewNop(),
		prices:         make(map[string]float64),
		positions:      make(map[string]*position),
		entryMeta:      make(map[string]map[string]any),
	}
}

// SetConverter swaps the currency conversion collaborator.
func (p *PaperBroker) SetConverter(c broker.Converter) { p.converter = c }

// SetLogger attaches a logger for rejected-order diagnostics.
func (p *PaperBroker) SetLogger(log *zap.Logger) {
	if log != nil {
		p.log = log
	}
}

func (p *PaperBroker) UpdatePrice(symbol string, price float64) {
	p.prices[symbol] = price
}

func (p *PaperBroker) SetExecutionOverride(price float64) {
	p.override = price
	p.hasOverride = true
}

func (p *PaperBroker) ClearExecutionOverride() {
	p.override = 0
	p.hasOverride = false
}

func (p *PaperBroker) Balance() float64 { return p.cash }

// Equity returns cash plus the mark-to-market of every open position
// using the latest observed price (entry price when none seen yet).
func (p *PaperBroker) Equity() float64 {
	equity := p.cash
	for sym, pos := range p.positions {
		price, ok := p.prices[sym]
		if !ok {
			price = pos.avgPrice
		}
		raw := (price - pos.avgPrice) * pos.size
		equity += p.converter.Convert(raw, sym, price)
	}
	return equity
}

func (p *PaperBroker) Position(symbol string) float64 {
	if pos, ok := p.positions[symbol]; ok {
		return pos.size
	}
	return 0
}

func (p *PaperBroker) Positions() map[string]broker.Position {
	out := make(map[string]broker.Position, len(p.positions))
	for sym, pos := range p.positions {
		price, ok := p.prices[sym]
		if !ok {
			price = pos.avgPrice
		}
		raw := (price - pos.avgPrice) * pos.size
		out[sym] = broker.Position{
			Symbol:   sym,
			Size:     pos.size,
			AvgPrice: pos.avgPrice,
			PnL:      p.converter.Convert(raw, sym, price),
		}
	}
	return out
}

func (p *PaperBroker) SetEntryMetadata(symbol string, meta map[string]any) {
	p.entryMeta[symbol] = meta
}

// Orders returns every fill confirmation issued so far.
func (p *PaperBroker) Orders() []broker.Order { return p.orders }

// Trades returns the closed round-trip log.
func (p *PaperBroker) Trades() []broker.TradeRecord { return p.trades }

// PlaceOrder fills a market or limit order against the current
// reference price. Market buys fill at price*(1+spread/2), sells at
// price*(1-spread/2); limit orders fill exactly at the given price.
// Quantity is silently clamped so the filled notional never exceeds
// equity (1x leverage). Domain failures return nil and never panic.
func (p *PaperBroker) PlaceOrder(req broker.OrderRequest) *broker.Order {
	if !isFinite(req.Quantity) || req.Quantity <= 0 || (req.Price != 0 && !isFinite(req.Price)) {
		p.log.Debug("order rejected: bad quantity or price",
			zap.String("symbol", req.Symbol),
			zap.Float64("qty", req.Quantity),
			zap.Float64("price", req.Price))
		return nil
	}

	marketPrice, ok := p.prices[req.Symbol]
	if !ok {
		p.log.Debug("order rejected: no reference price", zap.String("symbol", req.Symbol))
		return nil
	}

	base := marketPrice
	switch {
	case p.hasOverride:
		base = p.override
	case req.Price > 0:
		base = req.Price
	}

	var fill float64
	if req.Type == broker.Limit && req.Price > 0 {
		fill = req.Price
	} else if req.Side == broker.Buy {
		fill = base * (1 + p.spread/2)
	} else {
		fill = base * (1 - p.spread/2)
	}
	if fill <= 0 {
		return nil
	}

	// 1x leverage clamp: filled notional never exceeds equity.
	qty := req.Quantity
	if maxQty := p.Equity() / fill; qty > maxQty {
		qty = maxQty
	}
	if qty <= 0 {
		p.log.Debug("order rejected: leverage clamp left nothing to fill",
			zap.String("symbol", req.Symbol))
		return nil
	}

	signed := qty
	if req.Side == broker.Sell {
		signed = -qty
	}

	pos := p.positions[req.Symbol]
	oldSize := 0.0
	avg := 0.0
	if pos != nil {
		oldSize = pos.size
		avg = pos.avgPrice
	}
	newSize := oldSize + signed

	// Realise PnL on the reducing portion (FIFO against the average).
	if (oldSize > 0 && signed < 0) || (oldSize < 0 && signed > 0) {
		closed := math.Min(qty, math.Abs(oldSize))
		diff := fill - avg
		if oldSize < 0 {
			diff = avg - fill
		}
		raw := diff * closed
		pnl := p.converter.Convert(raw, req.Symbol, marketPrice)
		p.cash += pnl

		rec := broker.TradeRecord{
			Symbol:     req.Symbol,
			Side:       req.Side,
			Quantity:   closed,
			EntryPrice: avg,
			ExitPrice:  fill,
			PnL:        pnl,
			EntryTime:  pos.openTime,
			ExitTime:   req.Time,
			ExitReason: req.ExitReason,
		}
		if meta, ok := p.entryMeta[req.Symbol]; ok {
			rec.EntryMeta = meta
			delete(p.entryMeta, req.Symbol)
		}
		p.trades = append(p.trades, rec)
	}

	switch {
	case newSize == 0:
		delete(p.positions, req.Symbol)

	case (oldSize >= 0 && signed > 0) || (oldSize <= 0 && signed < 0):
		// Opening or adding: signed-size-weighted average.
		total := math.Abs(oldSize)*avg + qty*fill
		openTime := req.Time
		if pos != nil && oldSize != 0 {
			openTime = pos.openTime
		}
		p.positions[req.Symbol] = &position{
			size:     newSize,
			avgPrice: total / math.Abs(newSize),
			openTime: openTime,
		}

	case math.Abs(signed) > math.Abs(oldSize):
		// Flip: the remainder opens a new position at the fill price.
		p.positions[req.Symbol] = &position{
			size:     newSize,
			avgPrice: fill,
			openTime: req.Time,
		}

	default:
		// Reduced: average entry unchanged.
		pos.size = newSize
	}

	order := broker.Order{
		ID:        id.New(),
		Symbol:    req.Symbol,
		Side:      req.Side,
		Quantity:  qty,
		FillPrice: fill,
		Status:    "filled",
		Time:      req.Time,
	}
	p.orders = append(p.orders, order)
	return &order
}

// ClosePosition flattens symbol with a market order at the current
// reference price. Returns nil when flat.
func (p *PaperBroker) ClosePosition(symbol string, t time.Time, reason string) *broker.Order {
	pos, ok := p.positions[symbol]
	if !ok || pos.size == 0 {
		return nil
	}
	side := broker.Sell
	if pos.size < 0 {
		side = broker.Buy
	}
	return p.PlaceOrder(broker.OrderRequest{
		Symbol:     symbol,
		Side:       side,
		Quantity:   math.Abs(pos.size),
		Type:       broker.Market,
		Time:       t,
		ExitReason: reason,
	})
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
