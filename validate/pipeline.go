package validate

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/rustyeddy/quantlab/backtest"
	"github.com/rustyeddy/quantlab/catalog"
	"github.com/rustyeddy/quantlab/market"
	"github.com/rustyeddy/quantlab/marketdata"
	"github.com/rustyeddy/quantlab/score"
	"github.com/rustyeddy/quantlab/strategy"
	"github.com/rustyeddy/quantlab/sweep"
)

// Holdout compares in-sample and out-of-sample runs of the same
// parameter set.
type Holdout struct {
	TrainReturn  float64 `json:"train_return"`
	TestReturn   float64 `json:"test_return"`
	TrainSharpe  float64 `json:"train_sharpe"`
	TestSharpe   float64 `json:"test_sharpe"`
	TrainTrades  int     `json:"train_trades"`
	TestTrades   int     `json:"test_trades"`
	TrainWinRate float64 `json:"train_win_rate"`
	TestWinRate  float64 `json:"test_win_rate"`
	Degradation  float64 `json:"degradation"`
}

// Window is one walk-forward train/test pair.
type Window struct {
	TrainPeriod string  `json:"train_period"`
	TestPeriod  string  `json:"test_period"`
	TrainReturn float64 `json:"train_return"`
	TestReturn  float64 `json:"test_return"`
	TrainSharpe float64 `json:"train_sharpe"`
	TestSharpe  float64 `json:"test_sharpe"`
	TestTrades  int     `json:"test_trades"`
}

// WalkForward aggregates the rolling windows. PassRate counts
// windows with a positive test return.
type WalkForward struct {
	Windows       []Window `json:"windows"`
	PassCount     int      `json:"pass_count"`
	TotalWindows  int      `json:"total_windows"`
	PassRate      float64  `json:"pass_rate"`
	AvgTestReturn float64  `json:"avg_test_return"`
	AvgTestSharpe float64  `json:"avg_test_sharpe"`
}

// AssetResult is one symbol's run in the multi-asset check.
type AssetResult struct {
	Symbol      string  `json:"symbol"`
	ReturnPct   float64 `json:"return_pct"`
	Sharpe      float64 `json:"sharpe"`
	TotalTrades int     `json:"total_trades"`
	WinRate     float64 `json:"win_rate"`
	MaxDrawdown float64 `json:"max_drawdown"`
	Err         string  `json:"error,omitempty"`
}

// MultiAsset reports whether the edge generalises to related
// instruments. Passes requires positive returns on at least 60% of
// the assets with data.
type MultiAsset struct {
	Results       []AssetResult `json:"results"`
	PositiveCount int           `json:"positive_count"`
	TotalAssets   int           `json:"total_assets"`
	PositiveRate  float64       `json:"positive_rate"`
	Passes        bool          `json:"passes"`
}

// Verdict is the combined outcome for one candidate. Status is one
// of the catalog validation statuses.
type Verdict struct {
	Status string
	Reason string

	Full        *backtest.Result
	Holdout     *Holdout
	WalkForward *WalkForward
	MultiAsset  *MultiAsset
}

// Details flattens the verdict for the validation_details column.
func (v *Verdict) Details() map[string]any {
	d := map[string]any{}
	if v.Holdout != nil {
		d["holdout_degradation"] = v.Holdout.Degradation
	}
	if v.WalkForward != nil {
		d["walk_forward_pass_rate"] = v.WalkForward.PassRate
		d["avg_test_return"] = v.WalkForward.AvgTestReturn
	}
	if v.MultiAsset != nil {
		d["multi_asset_positive_rate"] = v.MultiAsset.PositiveRate
	}
	if v.Reason != "" {
		d["rejection_reason"] = v.Reason
	}
	return d
}

// TestReturn returns the holdout out-of-sample return when one was
// measured.
func (v *Verdict) TestReturn() *float64 {
	if v.Holdout == nil {
		return nil
	}
	r := v.Holdout.TestReturn
	return &r
}

// Pipeline runs the validation chain against a data loader and
// writes verdicts back to the catalogue.
type Pipeline struct {
	loader marketdata.Loader
	cat    *catalog.Catalog
	log    *zap.Logger

	Rules Rules

	FullStart, FullEnd   time.Time
	TrainStart, TrainEnd time.Time
	TestStart, TestEnd   time.Time

	// Walk-forward window shape.
	StartYear, EndYear    int
	TrainYears, TestYears int
}

func New(loader marketdata.Loader, cat *catalog.Catalog, log *zap.Logger) *Pipeline {
	if log == nil {
		log = zap.NewNop()
	}
	return &Pipeline{
		loader: loader,
		cat:    cat,
		log:    log,
		Rules:  DefaultRules(),

		FullStart:  sweep.DefaultStart,
		FullEnd:    sweep.DefaultEnd,
		TrainStart: time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC),
		TrainEnd:   time.Date(2023, 12, 31, 0, 0, 0, 0, time.UTC),
		TestStart:  time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		TestEnd:    time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC),

		StartYear:  2020,
		EndYear:    2025,
		TrainYears: 2,
		TestYears:  1,
	}
}

// Candidate runs the full chain for one parameter set. The chain
// short-circuits: a disqualified, overfit-on-holdout or unstable
// walk-forward candidate never reaches the later, costlier steps.
func (p *Pipeline) Candidate(strategyName string, params strategy.Params, symbol string, tf market.Timeframe) (*Verdict, error) {
	p.log.Info("validating candidate",
		zap.String("strategy", strategyName),
		zap.String("symbol", symbol),
		zap.String("timeframe", tf.String()))

	full, err := p.runOne(strategyName, params, symbol, tf, p.FullStart, p.FullEnd)
	if err != nil {
		return &Verdict{Status: catalog.StatusRejected, Reason: "no_data"}, nil
	}

	if ok, reason := p.Rules.Check(full, full.Years()); !ok {
		p.log.Info("candidate disqualified", zap.String("reason", reason))
		return &Verdict{Status: catalog.StatusRejected, Reason: reason, Full: full}, nil
	}

	holdout, err := p.Holdout(strategyName, params, symbol, tf)
	if err != nil {
		return &Verdict{
			Status: catalog.StatusRejected,
			Reason: fmt.Sprintf("holdout_error: %v", err),
			Full:   full,
		}, nil
	}
	if holdout.TestReturn < 0 {
		p.log.Info("candidate rejected", zap.String("reason", "negative_out_of_sample"))
		return &Verdict{
			Status:  catalog.StatusRejected,
			Reason:  "negative_out_of_sample",
			Full:    full,
			Holdout: holdout,
		}, nil
	}

	wf, err := p.WalkForward(strategyName, params, symbol, tf)
	if err != nil {
		return nil, err
	}
	if wf.PassRate < 0.5 {
		p.log.Info("candidate rejected", zap.String("reason", "walk_forward_failure"),
			zap.Float64("pass_rate", wf.PassRate))
		return &Verdict{
			Status:      catalog.StatusRejected,
			Reason:      "walk_forward_failure",
			Full:        full,
			Holdout:     holdout,
			WalkForward: wf,
		}, nil
	}

	ma, err := p.MultiAsset(strategyName, params, symbol, tf)
	if err != nil {
		return nil, err
	}

	status := catalog.StatusRejected
	switch {
	case ma.Passes && wf.PassRate >= 0.75:
		status = catalog.StatusPassed
	case ma.Passes || wf.PassRate >= 0.5:
		status = catalog.StatusMarginal
	}

	p.log.Info("candidate validated", zap.String("status", status))
	return &Verdict{
		Status:      status,
		Full:        full,
		Holdout:     holdout,
		WalkForward: wf,
		MultiAsset:  ma,
	}, nil
}

// Holdout runs the candidate on the train window and independently
// on the held-out test window. A strategy that gains in training but
// loses out of sample is overfit.
func (p *Pipeline) Holdout(strategyName string, params strategy.Params, symbol string, tf market.Timeframe) (*Holdout, error) {
	train, err := p.runOne(strategyName, params, symbol, tf, p.TrainStart, p.TrainEnd)
	if err != nil {
		return nil, err
	}
	test, err := p.runOne(strategyName, params, symbol, tf, p.TestStart, p.TestEnd)
	if err != nil {
		return nil, err
	}
	return &Holdout{
		TrainReturn:  train.ReturnPct,
		TestReturn:   test.ReturnPct,
		TrainSharpe:  train.Sharpe,
		TestSharpe:   test.Sharpe,
		TrainTrades:  train.TotalTrades,
		TestTrades:   test.TotalTrades,
		TrainWinRate: train.WinRate,
		TestWinRate:  test.WinRate,
		Degradation:  train.ReturnPct - test.ReturnPct,
	}, nil
}

// WalkForward rolls a train window followed by a test window across
// the configured year range, one year at a time. Windows without
// data on either side are skipped.
func (p *Pipeline) WalkForward(strategyName string, params strategy.Params, symbol string, tf market.Timeframe) (*WalkForward, error) {
	wf := &WalkForward{}

	for year := p.StartYear; year+p.TrainYears+p.TestYears-1 <= p.EndYear; year++ {
		trainStart := time.Date(year, 1, 1, 0, 0, 0, 0, time.UTC)
		trainEnd := time.Date(year+p.TrainYears-1, 12, 31, 0, 0, 0, 0, time.UTC)
		testStart := time.Date(year+p.TrainYears, 1, 1, 0, 0, 0, 0, time.UTC)
		testEnd := time.Date(year+p.TrainYears+p.TestYears-1, 12, 31, 0, 0, 0, 0, time.UTC)

		train, err := p.runOne(strategyName, params, symbol, tf, trainStart, trainEnd)
		if err != nil {
			continue
		}
		test, err := p.runOne(strategyName, params, symbol, tf, testStart, testEnd)
		if err != nil {
			continue
		}

		wf.Windows = append(wf.Windows, Window{
			TrainPeriod: periodLabel(trainStart, trainEnd),
			TestPeriod:  periodLabel(testStart, testEnd),
			TrainReturn: train.ReturnPct,
			TestReturn:  test.ReturnPct,
			TrainSharpe: train.Sharpe,
			TestSharpe:  test.Sharpe,
			TestTrades:  test.TotalTrades,
		})
	}

	wf.TotalWindows = len(wf.Windows)
	if wf.TotalWindows == 0 {
		return wf, nil
	}
	var sumReturn, sumSharpe float64
	for _, w := range wf.Windows {
		if w.TestReturn > 0 {
			wf.PassCount++
		}
		sumReturn += w.TestReturn
		sumSharpe += w.TestSharpe
	}
	wf.PassRate = float64(wf.PassCount) / float64(wf.TotalWindows)
	wf.AvgTestReturn = sumReturn / float64(wf.TotalWindows)
	wf.AvgTestSharpe = sumSharpe / float64(wf.TotalWindows)
	return wf, nil
}

// MultiAsset runs the candidate unchanged on each related symbol
// over the full period. Symbols without data are reported but do not
// count toward the rate.
func (p *Pipeline) MultiAsset(strategyName string, params strategy.Params, symbol string, tf market.Timeframe) (*MultiAsset, error) {
	ma := &MultiAsset{}

	for _, sym := range RelatedSymbols(symbol) {
		res, err := p.runOne(strategyName, params, sym, tf, p.FullStart, p.FullEnd)
		if err != nil {
			ma.Results = append(ma.Results, AssetResult{Symbol: sym, Err: "no data"})
			continue
		}
		ma.Results = append(ma.Results, AssetResult{
			Symbol:      sym,
			ReturnPct:   res.ReturnPct,
			Sharpe:      res.Sharpe,
			TotalTrades: res.TotalTrades,
			WinRate:     res.WinRate,
			MaxDrawdown: res.MaxDrawdownPct,
		})
		ma.TotalAssets++
		if res.ReturnPct > 0 {
			ma.PositiveCount++
		}
	}

	if ma.TotalAssets > 0 {
		ma.PositiveRate = float64(ma.PositiveCount) / float64(ma.TotalAssets)
		ma.Passes = float64(ma.PositiveCount) >= float64(ma.TotalAssets)*0.6
	}
	return ma, nil
}

// TopCandidates pulls the best unvalidated experiments from the
// catalogue, validates each and records the verdict. One candidate
// failing never aborts the batch.
func (p *Pipeline) TopCandidates(n int) ([]*Verdict, error) {
	top, err := p.cat.TopCandidates(n, p.Rules.MinTrades, "")
	if err != nil {
		return nil, err
	}

	var verdicts []*Verdict
	for _, exp := range top {
		if exp.ValidationStatus != "" && exp.ValidationStatus != catalog.StatusPending {
			p.log.Debug("skipping validated experiment",
				zap.Int64("id", exp.ID),
				zap.String("status", exp.ValidationStatus))
			continue
		}
		if !strategy.Exists(exp.Strategy) {
			p.log.Warn("skipping unknown strategy", zap.String("strategy", exp.Strategy))
			continue
		}

		verdict, err := p.Candidate(exp.Strategy, exp.Params, exp.Symbol, market.Timeframe(exp.Timeframe))
		if err != nil {
			p.log.Warn("validation failed", zap.Int64("id", exp.ID), zap.Error(err))
			continue
		}

		if err := p.cat.UpdateValidation(exp.ID, verdict.Status, verdict.TestReturn(), verdict.Details()); err != nil {
			return nil, err
		}
		verdicts = append(verdicts, verdict)
	}
	return verdicts, nil
}

// runOne backtests with the standing sweep assumptions and fills in
// the Sharpe ratio.
func (p *Pipeline) runOne(strategyName string, params strategy.Params, symbol string, tf market.Timeframe, start, end time.Time) (*backtest.Result, error) {
	bars, err := p.loader.Load(symbol, tf, start, end)
	if err != nil {
		return nil, err
	}
	res, err := backtest.Run(backtest.Config{
		Symbol:         symbol,
		Timeframe:      tf,
		InitialCapital: sweep.InitialCapital,
		Spread:         sweep.Spread,
		ExecutionDelay: sweep.ExecutionDelay,
		Log:            p.log,
	}, bars, strategyName, params)
	if err != nil {
		return nil, err
	}
	res.Sharpe = score.Sharpe(res.EquityCurve, 0)
	return res, nil
}

func periodLabel(start, end time.Time) string {
	return start.Format("2006-01-02") + " to " + end.Format("2006-01-02")
}
