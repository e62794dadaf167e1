// Package sweep runs grid searches: one data load per symbol and
// timeframe, then a backtest per parameter combination, each scored
// and persisted to the experiment catalogue.
package sweep

import (
	"fmt"
	"sort"
	"time"

	"github.com/schollz/progressbar/v3"
	"go.uber.org/zap"

	"github.com/rustyeddy/quantlab/backtest"
	"github.com/rustyeddy/quantlab/catalog"
	"github.com/rustyeddy/quantlab/internal/id"
	"github.com/rustyeddy/quantlab/market"
	"github.com/rustyeddy/quantlab/marketdata"
	"github.com/rustyeddy/quantlab/score"
	"github.com/rustyeddy/quantlab/strategy"
	"github.com/rustyeddy/quantlab/strategy/blocks"
)

// Fixed execution assumptions, validated against live fills. Every
// experiment row records them so results stay comparable.
const (
	Spread         = 0.0003
	ExecutionDelay = 0
	InitialCapital = 10_000.0
)

// Engine drives sweeps against a data loader and a catalogue.
type Engine struct {
	loader marketdata.Loader
	cat    *catalog.Catalog
	log    *zap.Logger

	Spread         float64
	InitialCapital float64
	ShowProgress   bool
}

func New(loader marketdata.Loader, cat *catalog.Catalog, log *zap.Logger) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{
		loader:         loader,
		cat:            cat,
		log:            log,
		Spread:         Spread,
		InitialCapital: InitialCapital,
	}
}

// Request describes one grid sweep on one symbol and timeframe.
type Request struct {
	Strategy  string
	Grid      Grid
	Symbol    string
	Timeframe market.Timeframe
	Start     time.Time
	End       time.Time

	// ExperimentID groups the resulting rows; empty derives one from
	// the strategy, symbol and timeframe.
	ExperimentID string
	Source       string
	SkipTested   bool
}

// Outcome is one scored run. RowID is the catalogue row.
type Outcome struct {
	Result *backtest.Result
	Score  float64
	RowID  int64
}

// Report aggregates a sweep. Outcomes are sorted by score descending.
type Report struct {
	Outcomes []Outcome
	Skipped  int
	Errors   int
}

// Best returns the top outcome, nil when the sweep produced none.
func (r *Report) Best() *Outcome {
	if len(r.Outcomes) == 0 {
		return nil
	}
	return &r.Outcomes[0]
}

// Run executes every parameter combination of the request's grid.
// Combinations already present in the catalogue are skipped when
// SkipTested is set; individual run failures are counted, logged and
// do not abort the sweep.
func (e *Engine) Run(req Request) (*Report, error) {
	if !strategy.Exists(req.Strategy) {
		return nil, fmt.Errorf("sweep: unknown strategy %q", req.Strategy)
	}
	if req.ExperimentID == "" {
		req.ExperimentID = fmt.Sprintf("sweep_%s_%s_%s", req.Strategy, req.Symbol, req.Timeframe)
	}
	if req.Source == "" {
		req.Source = "existing"
	}

	bars, err := e.loader.Load(req.Symbol, req.Timeframe, req.Start, req.End)
	if err != nil {
		return nil, fmt.Errorf("sweep: load %s %s: %w", req.Symbol, req.Timeframe, err)
	}

	combos := Expand(req.Grid)
	e.log.Info("sweep start",
		zap.String("strategy", req.Strategy),
		zap.String("symbol", req.Symbol),
		zap.String("timeframe", req.Timeframe.String()),
		zap.Int("bars", len(bars)),
		zap.Int("combinations", len(combos)))

	bar := e.progress(len(combos), fmt.Sprintf("%s %s %s", req.Strategy, req.Symbol, req.Timeframe))
	report := &Report{}
	t0 := time.Now()

	for _, params := range combos {
		bar.Add(1)
		params = params.Clone()
		params["symbol"] = req.Symbol

		if req.SkipTested {
			tested, err := e.cat.HasBeenTested(req.Strategy, req.Symbol, req.Timeframe.String(), params)
			if err != nil {
				return nil, err
			}
			if tested {
				report.Skipped++
				continue
			}
		}

		out, err := e.runOne(req, bars, req.Strategy, params, nil)
		if err != nil {
			report.Errors++
			e.log.Warn("sweep run failed", zap.Error(err))
			continue
		}
		report.Outcomes = append(report.Outcomes, *out)
	}

	sort.SliceStable(report.Outcomes, func(i, j int) bool {
		return report.Outcomes[i].Score > report.Outcomes[j].Score
	})

	e.log.Info("sweep complete",
		zap.Int("results", len(report.Outcomes)),
		zap.Int("skipped", report.Skipped),
		zap.Int("errors", report.Errors),
		zap.Duration("elapsed", time.Since(t0)))
	if best := report.Best(); best != nil {
		e.log.Info("sweep best",
			zap.Float64("score", best.Score),
			zap.Float64("return_pct", best.Result.ReturnPct),
			zap.Int("trades", best.Result.TotalTrades))
	}
	return report, nil
}

// ComposableRequest describes a block-combination sweep.
type ComposableRequest struct {
	Symbol    string
	Timeframe market.Timeframe
	Start     time.Time
	End       time.Time

	// Limit caps the number of combinations tried; 0 tries them all.
	Limit      int
	SkipTested bool
}

// RunComposable backtests every compatible block combination on one
// symbol and timeframe. Each combination is dedup-keyed by its block
// labels and saved under its own experiment id.
func (e *Engine) RunComposable(req ComposableRequest) (*Report, error) {
	bars, err := e.loader.Load(req.Symbol, req.Timeframe, req.Start, req.End)
	if err != nil {
		return nil, fmt.Errorf("sweep: load %s %s: %w", req.Symbol, req.Timeframe, err)
	}

	combos := blocks.Generate(nil, nil, nil, nil, true)
	if req.Limit > 0 && req.Limit < len(combos) {
		combos = combos[:req.Limit]
	}
	e.log.Info("composable sweep start",
		zap.String("symbol", req.Symbol),
		zap.String("timeframe", req.Timeframe.String()),
		zap.Int("bars", len(bars)),
		zap.Int("combinations", len(combos)))

	bar := e.progress(len(combos), fmt.Sprintf("composable %s %s", req.Symbol, req.Timeframe))
	report := &Report{}

	for _, combo := range combos {
		bar.Add(1)
		params := strategy.Params{
			"entry":  combo.Entry.Name,
			"exit":   combo.Exit.Name,
			"filter": combo.Filter.Name,
			"sizer":  combo.Sizer.Name,
		}

		if req.SkipTested {
			tested, err := e.cat.HasBeenTested("ComposableStrategy", req.Symbol, req.Timeframe.String(), params)
			if err != nil {
				return nil, err
			}
			if tested {
				report.Skipped++
				continue
			}
		}

		runReq := req.request()
		runReq.ExperimentID = id.New()
		out, err := e.runOne(runReq, bars, "ComposableStrategy", params.Clone(), params)
		if err != nil {
			report.Errors++
			e.log.Warn("composable run failed", zap.String("combo", combo.Label), zap.Error(err))
			continue
		}
		report.Outcomes = append(report.Outcomes, *out)
	}

	sort.SliceStable(report.Outcomes, func(i, j int) bool {
		return report.Outcomes[i].Score > report.Outcomes[j].Score
	})

	e.log.Info("composable sweep complete",
		zap.Int("results", len(report.Outcomes)),
		zap.Int("skipped", report.Skipped),
		zap.Int("errors", report.Errors))
	return report, nil
}

func (r ComposableRequest) request() Request {
	return Request{
		Symbol:    r.Symbol,
		Timeframe: r.Timeframe,
		Start:     r.Start,
		End:       r.End,
		Source:    "composable",
	}
}

// runOne backtests a single parameter set, scores it and saves the
// experiment row. recordParams, when non-nil, replaces the run params
// in the saved row; composable sweeps dedup on block labels alone.
func (e *Engine) runOne(req Request, bars market.Series, name string, params, recordParams strategy.Params) (*Outcome, error) {
	res, err := backtest.Run(backtest.Config{
		Symbol:         req.Symbol,
		Timeframe:      req.Timeframe,
		InitialCapital: e.InitialCapital,
		Spread:         e.Spread,
		ExecutionDelay: ExecutionDelay,
		Log:            e.log,
	}, bars, name, params)
	if err != nil {
		return nil, err
	}

	res.Sharpe = score.Sharpe(res.EquityCurve, 0)
	sc := score.Composite(res)

	exp := catalog.FromResult(req.ExperimentID, req.Source, res, sc)
	if recordParams != nil {
		exp.Params = recordParams
	}
	exp.Spread = e.Spread
	exp.TrainPeriod = fmt.Sprintf("%s to %s",
		req.Start.Format("2006-01-02"), req.End.Format("2006-01-02"))

	rowID, err := e.cat.Save(exp)
	if err != nil {
		return nil, fmt.Errorf("sweep: save experiment: %w", err)
	}
	return &Outcome{Result: res, Score: sc, RowID: rowID}, nil
}

func (e *Engine) progress(n int, desc string) *progressbar.ProgressBar {
	if e.ShowProgress {
		return progressbar.Default(int64(n), desc)
	}
	return progressbar.DefaultSilent(int64(n), desc)
}
