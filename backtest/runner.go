// Package backtest runs one strategy over one bar series through the
// paper broker and reduces the outcome to a Result. The loop is
// strictly event-driven: the strategy sees bar i only after the
// broker has been marked to bar i's close.
package backtest

import (
	"errors"

	"go.uber.org/zap"

	"github.com/rustyeddy/quantlab/broker"
	"github.com/rustyeddy/quantlab/broker/sim"
	"github.com/rustyeddy/quantlab/indicators"
	"github.com/rustyeddy/quantlab/market"
	"github.com/rustyeddy/quantlab/strategy"
)

// Config describes one run. Zero values fall back to the sweep
// defaults: 10k starting capital, zero spread, same-bar execution.
type Config struct {
	Symbol         string
	Timeframe      market.Timeframe
	InitialCapital float64
	Spread         float64

	// ExecutionDelay in bars. 1 fills orders at the next bar's open
	// instead of the current close; on the final bar the override is
	// unavailable and fills revert to the close.
	ExecutionDelay int

	// Events are dispatched to the strategy on the bar sharing their
	// calendar date.
	Events []market.EconomicEvent

	// Frame overrides the indicator periods; nil derives them from
	// the strategy params on top of the defaults.
	Frame *indicators.FrameConfig

	Log *zap.Logger
}

func (c *Config) setDefaults() {
	if c.InitialCapital == 0 {
		c.InitialCapital = 10_000
	}
	if c.Timeframe == "" {
		c.Timeframe = market.D1
	}
	if c.Log == nil {
		c.Log = zap.NewNop()
	}
}

// Run backtests the named registered strategy over bars.
func Run(cfg Config, bars market.Series, name string, params strategy.Params) (*Result, error) {
	cfg.setDefaults()
	if len(bars) == 0 {
		return nil, errors.New("backtest: empty bar series")
	}
	if err := bars.Validate(); err != nil {
		return nil, err
	}

	fc := FrameConfigFromParams(params)
	if cfg.Frame != nil {
		fc = *cfg.Frame
	}
	frame := indicators.NewFrame(cfg.Symbol, bars, fc)

	pb := sim.New(cfg.InitialCapital, cfg.Spread)
	pb.SetLogger(cfg.Log)

	params = params.Clone()
	params["symbol"] = cfg.Symbol

	strat, err := strategy.New(name, &strategy.Context{
		Frame:          frame,
		Broker:         pb,
		Params:         params,
		InitialCapital: cfg.InitialCapital,
		Log:            cfg.Log,
	})
	if err != nil {
		return nil, err
	}

	curve := RunLoop(cfg, bars, frame, pb, strat)

	res := &Result{
		Strategy:       name,
		Symbol:         cfg.Symbol,
		Timeframe:      cfg.Timeframe.String(),
		Params:         params,
		InitialCapital: cfg.InitialCapital,
		FinalEquity:    round2(pb.Equity()),
		Start:          bars.Start(),
		End:            bars.End(),
		Trades:         pb.Trades(),
		EquityCurve:    curve,
	}
	res.computeMetrics()
	return res, nil
}

// RunLoop drives the per-bar simulation against any broker and
// returns the per-bar mark-to-market equity curve. The regime router
// reuses it for its recording children.
func RunLoop(cfg Config, bars market.Series, frame *indicators.Frame, b broker.Broker, strat strategy.Strategy) []EquityPoint {
	delay := cfg.ExecutionDelay
	curve := make([]EquityPoint, 0, len(bars))
	for i := range bars {
		bar := bars[i]
		b.UpdatePrice(cfg.Symbol, bar.Close)

		if delay > 0 && i+delay < len(bars) {
			b.SetExecutionOverride(bars[i+delay].Open)
		} else {
			b.ClearExecutionOverride()
		}

		for _, ev := range cfg.Events {
			if ev.SameDay(bar.Time) {
				strat.OnEvent(ev)
			}
		}

		strat.OnBar(i, frame.Row(i))

		curve = append(curve, EquityPoint{Time: bar.Time, Equity: round2(b.Equity())})
	}
	return curve
}
