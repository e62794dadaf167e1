package strategy

import (
	"fmt"
	"math"

	"github.com/rustyeddy/quantlab/broker"
	"github.com/rustyeddy/quantlab/indicators"
	"github.com/rustyeddy/quantlab/strategy/blocks"
)

func init() {
	Register("ComposableStrategy", func(ctx *Context) (Strategy, error) {
		return newComposable(ctx)
	})
}

// composable wires one entry, exit, filter and sizer block into a
// runnable strategy. Blocks are resolved from the catalogue by their
// labels in params, so a persisted experiment can be replayed from
// its stored parameters alone.
type composable struct {
	Base

	entry  blocks.Entry
	exit   blocks.Exit
	filter blocks.Filter
	sizer  blocks.Sizer

	st         blocks.State
	side       blocks.Signal
	entryPrice float64
}

func newComposable(ctx *Context) (*composable, error) {
	p := ctx.Params

	entry, ok := blocks.EntryByName(p.Str("entry", ""))
	if !ok {
		return nil, fmt.Errorf("composable: unknown entry block %q", p.Str("entry", ""))
	}
	exit, ok := blocks.ExitByName(p.Str("exit", ""))
	if !ok {
		return nil, fmt.Errorf("composable: unknown exit block %q", p.Str("exit", ""))
	}
	filter, ok := blocks.FilterByName(p.Str("filter", "no_filter"))
	if !ok {
		return nil, fmt.Errorf("composable: unknown filter block %q", p.Str("filter", ""))
	}
	sizer, ok := blocks.SizerByName(p.Str("sizer", "fixed_pct(25%)"))
	if !ok {
		return nil, fmt.Errorf("composable: unknown sizer block %q", p.Str("sizer", ""))
	}

	return &composable{
		Base:   Base{Ctx: ctx},
		entry:  entry,
		exit:   exit,
		filter: filter,
		sizer:  sizer,
	}, nil
}

func (c *composable) Name() string { return "ComposableStrategy" }

// OnBar waits out the slow-SMA warmup, then runs filter, exit and
// entry blocks in that order. A failing filter flattens any open
// position before blocking new ones.
func (c *composable) OnBar(i int, row indicators.Row) {
	if i < 200 {
		return
	}
	prev := c.Ctx.Frame.Row(i - 1)

	if !c.filter.Allow(row) {
		if c.side != blocks.None {
			c.closePosition(row, "filter_block")
		}
		return
	}

	if c.side != blocks.None {
		if c.exit.Should(row, c.side, c.entryPrice, &c.st) {
			c.closePosition(row, "exit_block")
		}
		return
	}

	if sig := c.entry.Signal(row, prev, &c.st); sig != blocks.None {
		c.openPosition(sig, row)
	}
}

func (c *composable) openPosition(side blocks.Signal, row indicators.Row) {
	price := row.Bar.Close
	equity := c.Ctx.Broker.Equity()

	size := c.sizer.Size(equity, price, row.ATR)
	size = math.Round(size*10_000) / 10_000
	if size <= 0 {
		return
	}

	c.st.EntryATR = row.ATR
	c.st.HasEntryATR = true
	c.st.BestPrice = price
	c.st.HasBest = true

	var order *broker.Order
	if side == blocks.Long {
		order = c.Buy(price, size, row.Bar.Time)
	} else {
		order = c.Sell(price, size, row.Bar.Time)
	}
	if order != nil {
		c.side = side
		c.entryPrice = price
	} else {
		c.st.ResetPosition()
	}
}

func (c *composable) closePosition(row indicators.Row, reason string) {
	qty := math.Abs(c.PositionSize())
	if qty <= 0 {
		c.reset()
		return
	}

	side := broker.Sell
	if c.side == blocks.Short {
		side = broker.Buy
	}
	order := c.Ctx.Broker.PlaceOrder(broker.OrderRequest{
		Symbol:     c.Symbol(),
		Side:       side,
		Quantity:   qty,
		Type:       broker.Market,
		Price:      row.Bar.Close,
		Time:       row.Bar.Time,
		ExitReason: reason,
	})
	if order != nil {
		c.reset()
	}
}

func (c *composable) reset() {
	c.side = blocks.None
	c.entryPrice = 0
	c.st.ResetPosition()
}
