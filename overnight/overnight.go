// Package overnight chains the discovery phases into one unattended
// run: broad sweep, candidate filter, validation, then expansion of
// winners to adjacent timeframes and related assets. A wall-clock
// budget bounds the whole run; work stops cleanly between items when
// it expires.
package overnight

import (
	"time"

	"go.uber.org/zap"

	"github.com/rustyeddy/quantlab/catalog"
	"github.com/rustyeddy/quantlab/market"
	"github.com/rustyeddy/quantlab/strategy"
	"github.com/rustyeddy/quantlab/sweep"
	"github.com/rustyeddy/quantlab/validate"
)

// Candidate filter thresholds for pass 2. Validation is expensive,
// so only plausibly tradeable rows go through.
const (
	filterMinSharpe     = 0.5
	filterMinTrades     = 30
	filterLimitExisting = 50
	filterLimitComposab = 20

	quickComposableLimit = 10
)

// Options configures one discovery run.
type Options struct {
	Budget time.Duration
	Mode   GridMode

	SkipComposable bool
	SkipSweep      bool
	SkipValidation bool

	// Symbols and Timeframes, when set, restrict the sweep targets.
	Symbols    []string
	Timeframes []market.Timeframe
}

// Winner is a validated candidate worth expanding.
type Winner struct {
	Strategy  string
	Symbol    string
	Timeframe market.Timeframe
	Sharpe    float64
	Label     string
	Verdict   *validate.Verdict
}

// Summary reports what a run accomplished.
type Summary struct {
	Started  time.Time
	Finished time.Time

	ExperimentsBefore int
	ExperimentsAfter  int
	SweepResults      int
	ExpandResults     int

	Passed   []Winner
	Marginal []Winner
	Rejected []Winner

	Budget *TimeBudget
}

// Winners returns the passed and marginal candidates.
func (s *Summary) Winners() []Winner {
	out := make([]Winner, 0, len(s.Passed)+len(s.Marginal))
	out = append(out, s.Passed...)
	return append(out, s.Marginal...)
}

// Orchestrator wires the sweep engine, the validation pipeline and
// the catalogue into the four-pass run.
type Orchestrator struct {
	engine   *sweep.Engine
	pipeline *validate.Pipeline
	cat      *catalog.Catalog
	log      *zap.Logger
}

func New(engine *sweep.Engine, pipeline *validate.Pipeline, cat *catalog.Catalog, log *zap.Logger) *Orchestrator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Orchestrator{engine: engine, pipeline: pipeline, cat: cat, log: log}
}

// Run executes the full discovery chain. Individual sweep or
// validation failures are logged and skipped; only catalogue errors
// abort the run.
func (o *Orchestrator) Run(opts Options) (*Summary, error) {
	if opts.Budget <= 0 {
		opts.Budget = 10 * time.Hour
	}
	budget := NewTimeBudget(opts.Budget)

	before, err := o.cat.Count()
	if err != nil {
		return nil, err
	}

	summary := &Summary{
		Started:           time.Now(),
		ExperimentsBefore: before,
		Budget:            budget,
	}

	targets := SweepTargets
	if opts.Mode == ModeQuick && len(targets) > 6 {
		targets = targets[:6]
	}
	targets = filterTargets(targets, opts)
	grids := GridsFor(opts.Mode)

	o.log.Info("overnight discovery starting",
		zap.Duration("budget", opts.Budget),
		zap.String("grid_mode", string(opts.Mode)),
		zap.Int("targets", len(targets)),
		zap.Int("experiments", before))

	if !opts.SkipSweep {
		summary.SweepResults = o.broadSweep(budget, targets, grids, opts)
	}

	if !opts.SkipValidation {
		o.validatePass(budget, summary)
	}

	winners := summary.Winners()
	if len(winners) == 0 {
		winners = o.storedWinners()
		o.log.Info("no winners from this run, expanding stored passes",
			zap.Int("loaded", len(winners)))
	}
	summary.ExpandResults = o.expand(budget, winners, grids, opts)

	after, err := o.cat.Count()
	if err != nil {
		return nil, err
	}
	summary.ExperimentsAfter = after
	summary.Finished = time.Now()

	o.log.Info("overnight discovery finished",
		zap.String("elapsed", fmtDuration(budget.Elapsed())),
		zap.Int("new_experiments", after-before),
		zap.Int("passed", len(summary.Passed)),
		zap.Int("marginal", len(summary.Marginal)),
		zap.Int("rejected", len(summary.Rejected)))
	return summary, nil
}

// broadSweep is pass 1: grid sweeps over the priority targets, then
// composable sweeps on the composable targets.
func (o *Orchestrator) broadSweep(budget *TimeBudget, targets []Target, grids map[string]sweep.Grid, opts Options) int {
	budget.StartPass("sweep")
	defer budget.EndPass("sweep")

	results := 0
	for _, target := range targets {
		if budget.Expired() {
			o.log.Warn("time budget expired, stopping sweeps")
			break
		}
		for _, name := range sweep.Strategies() {
			if budget.Expired() {
				break
			}
			grid, ok := grids[name]
			if !ok {
				continue
			}
			report, err := o.engine.Run(sweep.Request{
				Strategy:   name,
				Grid:       grid,
				Symbol:     target.Symbol,
				Timeframe:  target.Timeframe,
				Start:      sweep.DefaultStart,
				End:        sweep.DefaultEnd,
				SkipTested: true,
			})
			if err != nil {
				o.log.Warn("sweep failed",
					zap.String("strategy", name),
					zap.String("symbol", target.Symbol),
					zap.String("timeframe", target.Timeframe.String()),
					zap.Error(err))
				continue
			}
			results += len(report.Outcomes)
		}
	}

	if opts.SkipComposable {
		return results
	}

	compTargets := ComposableTargets
	limit := 0
	if opts.Mode == ModeQuick {
		compTargets = compTargets[:2]
		limit = quickComposableLimit
	}
	for _, target := range compTargets {
		if budget.Expired() {
			o.log.Warn("time budget expired, stopping composable sweeps")
			break
		}
		report, err := o.engine.RunComposable(sweep.ComposableRequest{
			Symbol:     target.Symbol,
			Timeframe:  target.Timeframe,
			Start:      sweep.DefaultStart,
			End:        sweep.DefaultEnd,
			Limit:      limit,
			SkipTested: true,
		})
		if err != nil {
			o.log.Warn("composable sweep failed",
				zap.String("symbol", target.Symbol),
				zap.String("timeframe", target.Timeframe.String()),
				zap.Error(err))
			continue
		}
		results += len(report.Outcomes)
	}
	return results
}

// validatePass runs passes 2 and 3: pull promising pending rows from
// the catalogue and push each through the validation chain.
func (o *Orchestrator) validatePass(budget *TimeBudget, summary *Summary) {
	budget.StartPass("validate")
	defer budget.EndPass("validate")

	existing, err := o.cat.PendingCandidates(filterMinSharpe, filterMinTrades, filterLimitExisting, false)
	if err != nil {
		o.log.Error("candidate filter failed", zap.Error(err))
		return
	}
	composable, err := o.cat.PendingCandidates(filterMinSharpe, filterMinTrades, filterLimitComposab, true)
	if err != nil {
		o.log.Error("composable filter failed", zap.Error(err))
		return
	}
	o.log.Info("candidates filtered",
		zap.Int("existing", len(existing)),
		zap.Int("composable", len(composable)))

	for _, exp := range append(existing, composable...) {
		if budget.Expired() {
			o.log.Warn("time budget expired, stopping validation")
			break
		}
		o.validateOne(exp, summary)
	}
}

func (o *Orchestrator) validateOne(exp *catalog.Experiment, summary *Summary) {
	if !strategy.Exists(exp.Strategy) {
		o.log.Warn("skipping unknown strategy", zap.String("strategy", exp.Strategy))
		return
	}

	verdict, err := o.pipeline.Candidate(exp.Strategy, exp.Params, exp.Symbol, market.Timeframe(exp.Timeframe))
	if err != nil {
		o.log.Warn("validation errored",
			zap.Int64("id", exp.ID),
			zap.String("strategy", exp.Strategy),
			zap.Error(err))
		return
	}
	if err := o.cat.UpdateValidation(exp.ID, verdict.Status, verdict.TestReturn(), verdict.Details()); err != nil {
		o.log.Error("saving verdict failed", zap.Int64("id", exp.ID), zap.Error(err))
		return
	}

	w := Winner{
		Strategy:  exp.Strategy,
		Symbol:    exp.Symbol,
		Timeframe: market.Timeframe(exp.Timeframe),
		Sharpe:    exp.Sharpe,
		Label:     winnerLabel(exp),
		Verdict:   verdict,
	}
	switch verdict.Status {
	case catalog.StatusPassed:
		summary.Passed = append(summary.Passed, w)
	case catalog.StatusMarginal:
		summary.Marginal = append(summary.Marginal, w)
	default:
		summary.Rejected = append(summary.Rejected, w)
	}
}

// expand is pass 4: rerun winners on adjacent timeframes and their
// related assets.
func (o *Orchestrator) expand(budget *TimeBudget, winners []Winner, grids map[string]sweep.Grid, opts Options) int {
	budget.StartPass("expand")
	defer budget.EndPass("expand")

	results := 0
	for _, w := range winners {
		if budget.Expired() {
			o.log.Warn("time budget expired, stopping expansion")
			break
		}

		var targets []Target
		for _, tf := range market.AdjacentTimeframes[w.Timeframe] {
			targets = append(targets, Target{w.Symbol, tf})
		}
		for _, sym := range validate.RelatedSymbols(w.Symbol) {
			if sym != w.Symbol {
				targets = append(targets, Target{sym, w.Timeframe})
			}
		}
		o.log.Info("expanding winner",
			zap.String("label", w.Label),
			zap.Int("targets", len(targets)))

		for _, target := range targets {
			if budget.Expired() {
				break
			}

			if w.Strategy == "ComposableStrategy" {
				if opts.SkipComposable {
					continue
				}
				report, err := o.engine.RunComposable(sweep.ComposableRequest{
					Symbol:     target.Symbol,
					Timeframe:  target.Timeframe,
					Start:      sweep.DefaultStart,
					End:        sweep.DefaultEnd,
					Limit:      quickComposableLimit,
					SkipTested: true,
				})
				if err != nil {
					o.log.Warn("composable expansion failed", zap.Error(err))
					continue
				}
				results += len(report.Outcomes)
				continue
			}

			grid, ok := grids[w.Strategy]
			if !ok {
				continue
			}
			report, err := o.engine.Run(sweep.Request{
				Strategy:   w.Strategy,
				Grid:       grid,
				Symbol:     target.Symbol,
				Timeframe:  target.Timeframe,
				Start:      sweep.DefaultStart,
				End:        sweep.DefaultEnd,
				SkipTested: true,
			})
			if err != nil {
				o.log.Warn("expansion sweep failed", zap.Error(err))
				continue
			}
			results += len(report.Outcomes)
		}
	}
	return results
}

// storedWinners loads previously passed experiments so expansion has
// something to work with even when this run validated nothing.
func (o *Orchestrator) storedWinners() []Winner {
	passed, err := o.cat.TopCandidates(30, filterMinTrades, catalog.StatusPassed)
	if err != nil {
		o.log.Error("loading stored winners failed", zap.Error(err))
		return nil
	}
	winners := make([]Winner, 0, len(passed))
	for _, exp := range passed {
		winners = append(winners, Winner{
			Strategy:  exp.Strategy,
			Symbol:    exp.Symbol,
			Timeframe: market.Timeframe(exp.Timeframe),
			Sharpe:    exp.Sharpe,
			Label:     winnerLabel(exp),
		})
	}
	return winners
}

func winnerLabel(exp *catalog.Experiment) string {
	if exp.Strategy == "ComposableStrategy" {
		return exp.Params.Str("entry", "?") + " + " + exp.Params.Str("exit", "?")
	}
	return exp.Strategy
}

func filterTargets(targets []Target, opts Options) []Target {
	if len(opts.Symbols) == 0 && len(opts.Timeframes) == 0 {
		return targets
	}
	symbols := map[string]bool{}
	for _, s := range opts.Symbols {
		symbols[s] = true
	}
	tfs := map[market.Timeframe]bool{}
	for _, tf := range opts.Timeframes {
		tfs[tf] = true
	}

	var out []Target
	for _, t := range targets {
		if len(symbols) > 0 && !symbols[t.Symbol] {
			continue
		}
		if len(tfs) > 0 && !tfs[t.Timeframe] {
			continue
		}
		out = append(out, t)
	}
	return out
}
