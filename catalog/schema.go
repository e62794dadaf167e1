// catalog/schema.go
package catalog

const Schema = `
CREATE TABLE IF NOT EXISTS experiments (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	experiment_id TEXT,
	strategy TEXT NOT NULL,
	strategy_source TEXT NOT NULL DEFAULT 'existing',
	symbol TEXT NOT NULL,
	timeframe TEXT NOT NULL,
	parameters TEXT NOT NULL,
	params_hash TEXT NOT NULL,
	return_pct REAL,
	annualised_return REAL,
	max_drawdown REAL,
	total_trades INTEGER,
	trades_per_year REAL,
	win_rate REAL,
	profit_factor REAL,
	sharpe REAL,
	score REAL,
	train_period TEXT,
	test_period TEXT,
	test_return_pct REAL,
	validation_status TEXT NOT NULL DEFAULT 'pending',
	validation_details TEXT,
	parent_experiment_id TEXT,
	created_at DATETIME NOT NULL,
	spread REAL NOT NULL DEFAULT 0.0003,
	execution_delay INTEGER NOT NULL DEFAULT 0,
	UNIQUE(strategy, symbol, timeframe, params_hash) ON CONFLICT REPLACE
);

CREATE INDEX IF NOT EXISTS idx_experiments_score ON experiments(score);
CREATE INDEX IF NOT EXISTS idx_experiments_symbol ON experiments(symbol);
CREATE INDEX IF NOT EXISTS idx_experiments_status ON experiments(validation_status);

CREATE TABLE IF NOT EXISTS paper_trades (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	experiment_id TEXT NOT NULL,
	symbol TEXT NOT NULL,
	side TEXT NOT NULL,
	quantity REAL NOT NULL,
	entry_price REAL NOT NULL,
	exit_price REAL NOT NULL,
	pnl REAL NOT NULL,
	entry_time DATETIME,
	exit_time DATETIME,
	exit_reason TEXT
);

CREATE INDEX IF NOT EXISTS idx_paper_trades_experiment ON paper_trades(experiment_id);

CREATE TABLE IF NOT EXISTS equity_curves (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	experiment_id TEXT NOT NULL,
	data TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_equity_curves_experiment ON equity_curves(experiment_id);
`
