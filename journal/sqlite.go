package journal

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

type SQLite struct {
	db *sql.DB
}

func NewSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open journal %s: %w", path, err)
	}

	if _, err := db.Exec(Schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create journal schema: %w", err)
	}

	return &SQLite{db: db}, nil
}

func (j *SQLite) RecordTransaction(t TransactionRecord) error {
	_, err := j.db.Exec(`
		INSERT INTO transactions
		(id, asset, amount, price, commission, cash_flow, realized_pl, time)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.Asset, t.Amount, t.Price, t.Commission, t.CashFlow, t.RealizedPL, t.Time,
	)
	return err
}

func (j *SQLite) RecordEquity(e EquitySnapshot) error {
	_, err := j.db.Exec(`
		INSERT INTO equity
		(time, cash, positions_value, portfolio_value, leverage)
		VALUES (?, ?, ?, ?, ?)`,
		e.Time, e.Cash, e.PositionsValue, e.PortfolioValue, e.Leverage,
	)
	return err
}

// RecordRun stores the summary of a finished run.
func (j *SQLite) RecordRun(r Run) error {
	_, err := j.db.Exec(`
		INSERT INTO runs
		(run_id, name, start_time, end_time, sessions, transactions, rejections, start_cash, end_value, max_dd_pct)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.RunID, r.Name, r.Start, r.End, r.Sessions, r.Transactions, r.Rejections,
		r.StartCash, r.EndValue, r.MaxDDPct,
	)
	return err
}

func (j *SQLite) Close() error {
	return j.db.Close()
}
