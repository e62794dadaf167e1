package catalog

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rustyeddy/quantlab/strategy"
)

const experimentCols = `
	id, experiment_id, strategy, strategy_source, symbol, timeframe,
	parameters, return_pct, annualised_return, max_drawdown,
	total_trades, trades_per_year, win_rate, profit_factor, sharpe,
	score, train_period, test_period, test_return_pct,
	validation_status, validation_details, parent_experiment_id,
	created_at, spread, execution_delay`

func scanExperiment(rows *sql.Rows) (*Experiment, error) {
	var (
		e               Experiment
		paramsJSON      string
		train, test     sql.NullString
		details, parent sql.NullString
		expID           sql.NullString
		createdAt       time.Time
	)
	err := rows.Scan(
		&e.ID, &expID, &e.Strategy, &e.Source, &e.Symbol, &e.Timeframe,
		&paramsJSON, &e.ReturnPct, &e.AnnualisedReturn, &e.MaxDrawdown,
		&e.TotalTrades, &e.TradesPerYear, &e.WinRate, &e.ProfitFactor, &e.Sharpe,
		&e.Score, &train, &test, &e.TestReturnPct,
		&e.ValidationStatus, &details, &parent,
		&createdAt, &e.Spread, &e.ExecutionDelay,
	)
	if err != nil {
		return nil, err
	}

	e.ExperimentID = expID.String
	e.TrainPeriod = train.String
	e.TestPeriod = test.String
	e.ValidationDetails = details.String
	e.ParentID = parent.String
	e.CreatedAt = createdAt

	e.Params = strategy.Params{}
	if paramsJSON != "" {
		if err := json.Unmarshal([]byte(paramsJSON), &e.Params); err != nil {
			return nil, fmt.Errorf("catalog: row %d has bad parameters: %w", e.ID, err)
		}
	}
	return &e, nil
}

func (c *Catalog) queryExperiments(query string, args ...any) ([]*Experiment, error) {
	rows, err := c.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Experiment
	for rows.Next() {
		e, err := scanExperiment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// TopCandidates returns the best n experiments by score with at
// least minTrades closed trades, optionally restricted to a
// validation status.
func (c *Catalog) TopCandidates(n, minTrades int, status string) ([]*Experiment, error) {
	if status != "" {
		return c.queryExperiments(`
			SELECT `+experimentCols+` FROM experiments
			WHERE total_trades >= ? AND validation_status = ?
			ORDER BY score DESC LIMIT ?`,
			minTrades, status, n)
	}
	return c.queryExperiments(`
		SELECT `+experimentCols+` FROM experiments
		WHERE total_trades >= ?
		ORDER BY score DESC LIMIT ?`,
		minTrades, n)
}

// PendingCandidates returns unvalidated experiments worth the cost
// of full validation, best Sharpe first. composable selects rows
// from the composable source instead of the hand-built strategies.
func (c *Catalog) PendingCandidates(minSharpe float64, minTrades, limit int, composable bool) ([]*Experiment, error) {
	op := "!="
	if composable {
		op = "="
	}
	return c.queryExperiments(`
		SELECT `+experimentCols+` FROM experiments
		WHERE sharpe > ? AND total_trades >= ?
		  AND validation_status = ?
		  AND strategy_source `+op+` 'composable'
		ORDER BY sharpe DESC LIMIT ?`,
		minSharpe, minTrades, StatusPending, limit)
}

// FailuresForStrategy returns every run of a strategy that scored at
// or below zero or failed validation, worst first.
func (c *Catalog) FailuresForStrategy(strategyName string) ([]*Experiment, error) {
	return c.queryExperiments(`
		SELECT `+experimentCols+` FROM experiments
		WHERE strategy = ? AND (score <= 0 OR validation_status = ?)
		ORDER BY score ASC`,
		strategyName, StatusRejected)
}

// BySource returns all experiments from one source (existing,
// composable), newest first.
func (c *Catalog) BySource(source string) ([]*Experiment, error) {
	return c.queryExperiments(`
		SELECT `+experimentCols+` FROM experiments
		WHERE strategy_source = ?
		ORDER BY created_at DESC`,
		source)
}

// ByAsset returns everything tried on a symbol, best first.
func (c *Catalog) ByAsset(symbol string) ([]*Experiment, error) {
	return c.queryExperiments(`
		SELECT `+experimentCols+` FROM experiments
		WHERE symbol = ?
		ORDER BY score DESC`,
		symbol)
}

// Combination is one untested strategy/symbol/timeframe triple.
type Combination struct {
	Strategy  string
	Symbol    string
	Timeframe string
}

// UntestedCombinations returns the cross product of the inputs minus
// everything already in the catalogue.
func (c *Catalog) UntestedCombinations(strategies, symbols, timeframes []string) ([]Combination, error) {
	rows, err := c.db.Query(`SELECT DISTINCT strategy, symbol, timeframe FROM experiments`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tested := make(map[Combination]bool)
	for rows.Next() {
		var comb Combination
		if err := rows.Scan(&comb.Strategy, &comb.Symbol, &comb.Timeframe); err != nil {
			return nil, err
		}
		tested[comb] = true
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var out []Combination
	for _, s := range strategies {
		for _, sym := range symbols {
			for _, tf := range timeframes {
				comb := Combination{Strategy: s, Symbol: sym, Timeframe: tf}
				if !tested[comb] {
					out = append(out, comb)
				}
			}
		}
	}
	return out, nil
}

// StrategyStat is a per-strategy aggregate used by the report command.
type StrategyStat struct {
	Strategy   string
	Runs       int
	AvgReturn  float64
	BestReturn float64
	AvgScore   float64
}

// StrategyStats aggregates the catalogue per strategy, best average
// score first.
func (c *Catalog) StrategyStats() ([]StrategyStat, error) {
	rows, err := c.db.Query(`
		SELECT strategy, COUNT(*),
		       AVG(annualised_return), MAX(annualised_return), AVG(score)
		FROM experiments
		GROUP BY strategy
		ORDER BY AVG(score) DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []StrategyStat
	for rows.Next() {
		var s StrategyStat
		if err := rows.Scan(&s.Strategy, &s.Runs, &s.AvgReturn, &s.BestReturn, &s.AvgScore); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// Summary builds a concise text digest of the catalogue: per-strategy
// aggregates, the top performers and the notable failures.
func (c *Catalog) Summary(maxResults int) (string, error) {
	var b strings.Builder
	b.WriteString("=== EXPERIMENT SUMMARY ===\n\n")

	total, err := c.Count()
	if err != nil {
		return "", err
	}
	fmt.Fprintf(&b, "Total experiments: %d\n\n", total)

	stats, err := c.StrategyStats()
	if err != nil {
		return "", err
	}
	if len(stats) > 0 {
		b.WriteString("STRATEGY OVERVIEW:\n")
		for _, s := range stats {
			fmt.Fprintf(&b, "  %s: %d runs, avg %.2f%% ann, best %.2f%% ann, avg score %.3f\n",
				s.Strategy, s.Runs, s.AvgReturn, s.BestReturn, s.AvgScore)
		}
		b.WriteString("\n")
	}

	top, err := c.TopCandidates(maxResults, 30, "")
	if err != nil {
		return "", err
	}
	if len(top) > 0 {
		fmt.Fprintf(&b, "TOP %d EXPERIMENTS:\n", len(top))
		for i, e := range top {
			status := ""
			if e.ValidationStatus != StatusPending {
				status = fmt.Sprintf(" [%s]", e.ValidationStatus)
			}
			fmt.Fprintf(&b, "  %d. %s on %s %s: %.2f%% ann, Sharpe %.2f, score %.3f, %d trades%s\n",
				i+1, e.Strategy, e.Symbol, e.Timeframe,
				e.AnnualisedReturn, e.Sharpe, e.Score, e.TotalTrades, status)
		}
		b.WriteString("\n")
	}

	worst, err := c.queryExperiments(`
		SELECT ` + experimentCols + ` FROM experiments
		WHERE total_trades >= 10
		ORDER BY score ASC LIMIT 10`)
	if err != nil {
		return "", err
	}
	if len(worst) > 0 {
		b.WriteString("NOTABLE FAILURES:\n")
		for i, e := range worst {
			fmt.Fprintf(&b, "  %d. %s on %s %s: %.2f%% ann, score %.3f, %d trades\n",
				i+1, e.Strategy, e.Symbol, e.Timeframe,
				e.AnnualisedReturn, e.Score, e.TotalTrades)
		}
	}
	return b.String(), nil
}
