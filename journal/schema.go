package journal

const Schema = `
CREATE TABLE IF NOT EXISTS transactions (
	id TEXT PRIMARY KEY,
	asset TEXT NOT NULL,
	amount REAL NOT NULL,
	price REAL NOT NULL,
	commission REAL NOT NULL,
	cash_flow REAL NOT NULL,
	realized_pl REAL NOT NULL,
	time DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_transactions_time ON transactions(time);

CREATE TABLE IF NOT EXISTS equity (
	time DATETIME NOT NULL,
	cash REAL NOT NULL,
	positions_value REAL NOT NULL,
	portfolio_value REAL NOT NULL,
	leverage REAL NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_equity_time ON equity(time);

CREATE TABLE IF NOT EXISTS runs (
	run_id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	start_time DATETIME NOT NULL,
	end_time DATETIME NOT NULL,
	sessions INTEGER NOT NULL,
	transactions INTEGER NOT NULL,
	rejections INTEGER NOT NULL,
	start_cash REAL NOT NULL,
	end_value REAL NOT NULL,
	max_dd_pct REAL NOT NULL
);
`
