package journal

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

var ErrNotFound = errors.New("not found")

const transactionColumns = `id, asset, amount, price, commission, cash_flow, realized_pl, time`

type scanner interface {
	Scan(dest ...any) error
}

func scanTransaction(s scanner) (TransactionRecord, error) {
	var rec TransactionRecord
	err := s.Scan(
		&rec.ID,
		&rec.Asset,
		&rec.Amount,
		&rec.Price,
		&rec.Commission,
		&rec.CashFlow,
		&rec.RealizedPL,
		&rec.Time,
	)
	return rec, err
}

// GetTransaction returns a single transaction by ID.
func (j *SQLite) GetTransaction(id string) (TransactionRecord, error) {
	row := j.db.QueryRow(`SELECT `+transactionColumns+` FROM transactions WHERE id = ?`, id)
	rec, err := scanTransaction(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return TransactionRecord{}, fmt.Errorf("transaction %q: %w", id, ErrNotFound)
		}
		return TransactionRecord{}, err
	}
	return rec, nil
}

// ListTransactionsBetween returns transactions timed within [start, end).
func (j *SQLite) ListTransactionsBetween(start, end time.Time) ([]TransactionRecord, error) {
	rows, err := j.db.Query(`
		SELECT `+transactionColumns+`
		FROM transactions
		WHERE time >= ? AND time < ?
		ORDER BY time ASC, id ASC`, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TransactionRecord
	for rows.Next() {
		rec, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// ListEquityBetween returns the equity curve within [start, end).
func (j *SQLite) ListEquityBetween(start, end time.Time) ([]EquitySnapshot, error) {
	rows, err := j.db.Query(`
		SELECT time, cash, positions_value, portfolio_value, leverage
		FROM equity
		WHERE time >= ? AND time < ?
		ORDER BY time ASC`, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []EquitySnapshot
	for rows.Next() {
		var e EquitySnapshot
		if err := rows.Scan(&e.Time, &e.Cash, &e.PositionsValue, &e.PortfolioValue, &e.Leverage); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// GetRun returns a stored run summary.
func (j *SQLite) GetRun(runID string) (Run, error) {
	var r Run
	err := j.db.QueryRow(`
		SELECT run_id, name, start_time, end_time, sessions, transactions, rejections, start_cash, end_value, max_dd_pct
		FROM runs WHERE run_id = ?`, runID).Scan(
		&r.RunID, &r.Name, &r.Start, &r.End, &r.Sessions, &r.Transactions, &r.Rejections,
		&r.StartCash, &r.EndValue, &r.MaxDDPct,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("run %q: %w", runID, ErrNotFound)
	}
	return r, err
}
