// Package broker defines the execution capability surface shared by
// the simulated paper broker and any live adapter. Strategies accept
// this interface, never a concrete engine.
package broker

import "time"

type Side string

const (
	Buy  Side = "buy"
	Sell Side = "sell"
)

// Sign returns +1 for buys and -1 for sells.
func (s Side) Sign() float64 {
	if s == Sell {
		return -1
	}
	return 1
}

type OrderType string

const (
	Market OrderType = "market"
	Limit  OrderType = "limit"
)

// OrderRequest describes an order to place. Quantity is always
// non-negative; direction is carried by Side. Price is the requested
// reference price (required for limit orders, optional for market
// orders where the broker falls back to the last observed price).
type OrderRequest struct {
	Symbol     string
	Side       Side
	Quantity   float64
	Type       OrderType
	Price      float64
	Time       time.Time
	StopLoss   float64
	TakeProfit float64
	ExitReason string
}

// Order is a fill confirmation. In simulation the only status is
// "filled"; a rejected order is reported as a nil *Order, not an
// error, so strategy state machines only advance on success.
type Order struct {
	ID        string
	Symbol    string
	Side      Side
	Quantity  float64
	FillPrice float64
	Status    string
	Time      time.Time
}

// Position is an open holding. Size is signed: positive long,
// negative short. PnL is the unrealised mark-to-market value in the
// account currency as of the last price update.
type Position struct {
	Symbol   string
	Size     float64
	AvgPrice float64
	PnL      float64
}

// TradeRecord is a closed round-trip, matched FIFO when a position is
// reduced. Side is the side of the closing order. EntryMeta carries
// the snapshot stored via SetEntryMetadata at entry time.
type TradeRecord struct {
	Symbol     string
	Side       Side
	Quantity   float64
	EntryPrice float64
	ExitPrice  float64
	PnL        float64
	EntryTime  time.Time
	ExitTime   time.Time
	ExitReason string
	EntryMeta  map[string]any
}

// Broker is the capability set strategies are written against.
type Broker interface {
	// UpdatePrice sets the reference price used for mark-to-market
	// and market fills.
	UpdatePrice(symbol string, price float64)

	// PlaceOrder executes an order. Domain failures (no reference
	// price, bad quantity, zero after the leverage clamp) return nil.
	PlaceOrder(req OrderRequest) *Order

	Equity() float64
	Balance() float64

	// Position returns the signed size for symbol, 0 when flat.
	Position(symbol string) float64
	Positions() map[string]Position

	// SetEntryMetadata stores a snapshot merged into the next closing
	// trade record for symbol.
	SetEntryMetadata(symbol string, meta map[string]any)

	// SetExecutionOverride forces the next fills to the given price
	// (used to simulate next-bar-open execution).
	SetExecutionOverride(price float64)
	ClearExecutionOverride()

	// ClosePosition flattens symbol at the current reference price.
	// Returns nil when there is nothing to close.
	ClosePosition(symbol string, t time.Time, reason string) *Order
}
