// Package catalog is the experiment store: every backtest the sweep
// and validation layers run lands in one sqlite database, keyed by
// strategy, symbol, timeframe and a canonical hash of the parameters
// so reruns replace rather than duplicate.
package catalog

import (
	"crypto/md5"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/rustyeddy/quantlab/backtest"
	"github.com/rustyeddy/quantlab/strategy"
)

// Validation statuses, stored lowercase.
const (
	StatusPending  = "pending"
	StatusPassed   = "passed"
	StatusMarginal = "marginal"
	StatusRejected = "rejected"
)

// Experiment is one persisted backtest outcome.
type Experiment struct {
	ID           int64
	ExperimentID string
	Strategy     string
	Source       string
	Symbol       string
	Timeframe    string
	Params       strategy.Params

	ReturnPct        float64
	AnnualisedReturn float64
	MaxDrawdown      float64
	TotalTrades      int
	TradesPerYear    float64
	WinRate          float64
	ProfitFactor     float64
	Sharpe           float64
	Score            float64

	TrainPeriod       string
	TestPeriod        string
	TestReturnPct     sql.NullFloat64
	ValidationStatus  string
	ValidationDetails string
	ParentID          string
	CreatedAt         time.Time

	Spread         float64
	ExecutionDelay int
}

// Catalog wraps the sqlite store.
type Catalog struct {
	db *sql.DB
}

// Open opens (creating if needed) the catalog at path.
func Open(path string) (*Catalog, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("catalog: apply schema: %w", err)
	}
	return &Catalog{db: db}, nil
}

func (c *Catalog) Close() error { return c.db.Close() }

// ParamsHash is the canonical fingerprint of a parameter set: the
// md5 of its JSON encoding. Map keys marshal in sorted order, so two
// equal maps always hash alike regardless of insertion order.
func ParamsHash(params strategy.Params) string {
	if params == nil {
		params = strategy.Params{}
	}
	b, err := json.Marshal(params)
	if err != nil {
		b = []byte("{}")
	}
	sum := md5.Sum(b)
	return hex.EncodeToString(sum[:])
}

// FromResult builds an Experiment row from a finished backtest.
// Annualised return compounds the total return over the run's span;
// a span under a year leaves both rates equal to the raw values.
func FromResult(experimentID, source string, res *backtest.Result, runScore float64) *Experiment {
	exp := &Experiment{
		ExperimentID:     experimentID,
		Strategy:         res.Strategy,
		Source:           source,
		Symbol:           res.Symbol,
		Timeframe:        res.Timeframe,
		Params:           res.Params,
		ReturnPct:        res.ReturnPct,
		MaxDrawdown:      res.MaxDrawdownPct,
		TotalTrades:      res.TotalTrades,
		WinRate:          res.WinRate,
		ProfitFactor:     res.ProfitFactor,
		Sharpe:           res.Sharpe,
		Score:            runScore,
		ValidationStatus: StatusPending,
		CreatedAt:        time.Now().UTC(),
		Spread:           0.0003,
	}

	years := res.Years()
	if years > 0 {
		exp.AnnualisedReturn = (math.Pow(1+res.ReturnPct/100, 1/years) - 1) * 100
		exp.TradesPerYear = float64(res.TotalTrades) / years
	} else {
		exp.AnnualisedReturn = res.ReturnPct
		exp.TradesPerYear = float64(res.TotalTrades)
	}
	return exp
}

// Save inserts the experiment, replacing any earlier run of the same
// strategy/symbol/timeframe/params. Returns the row id.
func (c *Catalog) Save(exp *Experiment) (int64, error) {
	paramsJSON, err := json.Marshal(exp.Params)
	if err != nil {
		return 0, fmt.Errorf("catalog: marshal params: %w", err)
	}
	if exp.ValidationStatus == "" {
		exp.ValidationStatus = StatusPending
	}
	if exp.CreatedAt.IsZero() {
		exp.CreatedAt = time.Now().UTC()
	}

	res, err := c.db.Exec(`
		INSERT INTO experiments (
			experiment_id, strategy, strategy_source, symbol, timeframe,
			parameters, params_hash, return_pct, annualised_return,
			max_drawdown, total_trades, trades_per_year, win_rate,
			profit_factor, sharpe, score, train_period, test_period,
			validation_status, parent_experiment_id, created_at,
			spread, execution_delay
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		exp.ExperimentID, exp.Strategy, exp.Source, exp.Symbol, exp.Timeframe,
		string(paramsJSON), ParamsHash(exp.Params), exp.ReturnPct, exp.AnnualisedReturn,
		exp.MaxDrawdown, exp.TotalTrades, exp.TradesPerYear, exp.WinRate,
		exp.ProfitFactor, exp.Sharpe, exp.Score, exp.TrainPeriod, exp.TestPeriod,
		exp.ValidationStatus, exp.ParentID, exp.CreatedAt,
		exp.Spread, exp.ExecutionDelay,
	)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	exp.ID = id
	return id, nil
}

// UpdateValidation records the outcome of the validation pipeline
// for an existing row. details is stored as JSON when non-nil.
func (c *Catalog) UpdateValidation(id int64, status string, testReturnPct *float64, details any) error {
	var detailsJSON sql.NullString
	if details != nil {
		b, err := json.Marshal(details)
		if err != nil {
			return fmt.Errorf("catalog: marshal validation details: %w", err)
		}
		detailsJSON = sql.NullString{String: string(b), Valid: true}
	}
	var testRet sql.NullFloat64
	if testReturnPct != nil {
		testRet = sql.NullFloat64{Float64: *testReturnPct, Valid: true}
	}

	_, err := c.db.Exec(`
		UPDATE experiments
		SET validation_status = ?, test_return_pct = ?, validation_details = ?
		WHERE id = ?`,
		status, testRet, detailsJSON, id,
	)
	return err
}

// HasBeenTested reports whether this exact combination is already in
// the catalogue.
func (c *Catalog) HasBeenTested(strategyName, symbol, timeframe string, params strategy.Params) (bool, error) {
	var n int
	err := c.db.QueryRow(`
		SELECT COUNT(*) FROM experiments
		WHERE strategy = ? AND symbol = ? AND timeframe = ? AND params_hash = ?`,
		strategyName, symbol, timeframe, ParamsHash(params),
	).Scan(&n)
	return n > 0, err
}

// Count returns the number of stored experiments.
func (c *Catalog) Count() (int, error) {
	var n int
	err := c.db.QueryRow(`SELECT COUNT(*) FROM experiments`).Scan(&n)
	return n, err
}

// SaveTrades persists the closed-trade log of a run.
func (c *Catalog) SaveTrades(experimentID string, res *backtest.Result) error {
	tx, err := c.db.Begin()
	if err != nil {
		return err
	}
	stmt, err := tx.Prepare(`
		INSERT INTO paper_trades (
			experiment_id, symbol, side, quantity, entry_price,
			exit_price, pnl, entry_time, exit_time, exit_reason
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()

	for _, t := range res.Trades {
		if _, err := stmt.Exec(
			experimentID, t.Symbol, string(t.Side), t.Quantity,
			t.EntryPrice, t.ExitPrice, t.PnL, t.EntryTime, t.ExitTime, t.ExitReason,
		); err != nil {
			tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

// SaveEquityCurve stores the per-bar curve as one JSON blob.
func (c *Catalog) SaveEquityCurve(experimentID string, curve []backtest.EquityPoint) error {
	b, err := json.Marshal(curve)
	if err != nil {
		return err
	}
	_, err = c.db.Exec(`
		INSERT INTO equity_curves (experiment_id, data) VALUES (?, ?)`,
		experimentID, string(b),
	)
	return err
}

// EquityCurve loads the stored curve for an experiment, nil when
// none was saved.
func (c *Catalog) EquityCurve(experimentID string) ([]backtest.EquityPoint, error) {
	var data string
	err := c.db.QueryRow(`
		SELECT data FROM equity_curves WHERE experiment_id = ? ORDER BY id DESC LIMIT 1`,
		experimentID,
	).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var curve []backtest.EquityPoint
	if err := json.Unmarshal([]byte(data), &curve); err != nil {
		return nil, err
	}
	return curve, nil
}
