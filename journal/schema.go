package journal

// Money columns are TEXT so decimals round-trip exactly.
const Schema = `
CREATE TABLE IF NOT EXISTS runs (
	run_id TEXT PRIMARY KEY,
	created DATETIME NOT NULL,
	strategy TEXT NOT NULL,
	dataset TEXT NOT NULL,
	instrument TEXT NOT NULL,
	params TEXT NOT NULL,
	start_time DATETIME NOT NULL,
	end_time DATETIME NOT NULL,
	bars INTEGER NOT NULL,
	trades INTEGER NOT NULL,
	wins INTEGER NOT NULL,
	losses INTEGER NOT NULL,
	start_balance TEXT NOT NULL,
	end_balance TEXT NOT NULL,
	net_pl TEXT NOT NULL,
	return_pct REAL NOT NULL,
	win_rate REAL NOT NULL,
	profit_factor REAL NOT NULL,
	sharpe REAL NOT NULL,
	max_dd TEXT NOT NULL,
	max_dd_pct REAL NOT NULL
);

CREATE TABLE IF NOT EXISTS trades (
	trade_id TEXT PRIMARY KEY,
	run_id TEXT NOT NULL,
	instrument TEXT NOT NULL,
	side TEXT NOT NULL,
	contracts INTEGER NOT NULL,
	entry_price REAL NOT NULL,
	exit_price REAL NOT NULL,
	open_time DATETIME NOT NULL,
	close_time DATETIME NOT NULL,
	stop_points REAL NOT NULL,
	target_points REAL NOT NULL,
	ticks INTEGER NOT NULL,
	gross TEXT NOT NULL,
	commission TEXT NOT NULL,
	realized_pl TEXT NOT NULL,
	reason TEXT NOT NULL,
	slippage_ticks INTEGER NOT NULL,
	gapped INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS equity (
	run_id TEXT NOT NULL,
	time DATETIME NOT NULL,
	balance TEXT NOT NULL,
	equity TEXT NOT NULL,
	high_water_mark TEXT NOT NULL,
	drawdown TEXT NOT NULL,
	drawdown_pct REAL NOT NULL,
	trades INTEGER NOT NULL,
	note TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS days (
	run_id TEXT NOT NULL,
	day TEXT NOT NULL,
	actual TEXT NOT NULL,
	capped TEXT NOT NULL,
	high TEXT NOT NULL,
	low TEXT NOT NULL,
	trades INTEGER NOT NULL,
	wins INTEGER NOT NULL,
	losses INTEGER NOT NULL,
	stop_hit INTEGER NOT NULL,
	target_hit INTEGER NOT NULL,
	trading_enabled INTEGER NOT NULL,
	PRIMARY KEY (run_id, day)
);

CREATE TABLE IF NOT EXISTS drawdowns (
	run_id TEXT NOT NULL,
	start_time DATETIME NOT NULL,
	end_time DATETIME NOT NULL,
	start_balance TEXT NOT NULL,
	lowest TEXT NOT NULL,
	amount TEXT NOT NULL,
	percent REAL NOT NULL,
	recovered INTEGER NOT NULL,
	duration_days INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_trades_run ON trades(run_id, close_time);
CREATE INDEX IF NOT EXISTS idx_equity_run ON equity(run_id, time);
CREATE INDEX IF NOT EXISTS idx_drawdowns_run ON drawdowns(run_id, start_time);
`
