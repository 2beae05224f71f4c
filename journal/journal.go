// Package journal records a run's transactions and equity curve.
package journal

import "time"

// TransactionRecord is one applied fill as the ledger saw it.
type TransactionRecord struct {
	ID         string
	Asset      string
	Amount     float64
	Price      float64
	Commission float64
	CashFlow   float64
	RealizedPL float64
	Time       time.Time
}

// EquitySnapshot is the ledger state at a session close.
type EquitySnapshot struct {
	Time           time.Time
	Cash           float64
	PositionsValue float64
	PortfolioValue float64
	Leverage       float64
}

type Journal interface {
	RecordTransaction(TransactionRecord) error
	RecordEquity(EquitySnapshot) error
	Close() error
}

// Nop discards everything.
type Nop struct{}

func (Nop) RecordTransaction(TransactionRecord) error { return nil }
func (Nop) RecordEquity(EquitySnapshot) error         { return nil }
func (Nop) Close() error                              { return nil }
