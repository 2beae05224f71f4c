package journal

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"time"
)

var (
	transactionHeader = []string{"id", "asset", "amount", "price", "commission", "cash_flow", "realized_pl", "time"}
	equityHeader      = []string{"time", "cash", "positions_value", "portfolio_value", "leverage"}
)

type CSV struct {
	transactions *csv.Writer
	equity       *csv.Writer
	tf, ef       *os.File
}

func NewCSV(transactionsPath, equityPath string) (*CSV, error) {
	tf, err := os.Create(transactionsPath)
	if err != nil {
		return nil, err
	}
	ef, err := os.Create(equityPath)
	if err != nil {
		_ = tf.Close()
		return nil, err
	}

	j := &CSV{transactions: csv.NewWriter(tf), equity: csv.NewWriter(ef), tf: tf, ef: ef}
	if err := j.write(j.transactions, transactionHeader); err != nil {
		_ = j.Close()
		return nil, err
	}
	if err := j.write(j.equity, equityHeader); err != nil {
		_ = j.Close()
		return nil, err
	}
	return j, nil
}

func (j *CSV) RecordTransaction(t TransactionRecord) error {
	return j.write(j.transactions, []string{
		t.ID,
		t.Asset,
		f(t.Amount),
		f(t.Price),
		f(t.Commission),
		f(t.CashFlow),
		f(t.RealizedPL),
		t.Time.Format(time.RFC3339),
	})
}

func (j *CSV) RecordEquity(e EquitySnapshot) error {
	return j.write(j.equity, []string{
		e.Time.Format(time.RFC3339),
		f(e.Cash),
		f(e.PositionsValue),
		f(e.PortfolioValue),
		f(e.Leverage),
	})
}

func (j *CSV) write(w *csv.Writer, row []string) error {
	if err := w.Write(row); err != nil {
		return fmt.Errorf("csv journal: %w", err)
	}
	w.Flush()
	return w.Error()
}

func (j *CSV) Close() error {
	j.transactions.Flush()
	j.equity.Flush()
	if err := j.transactions.Error(); err != nil {
		return err
	}
	if err := j.equity.Error(); err != nil {
		return err
	}
	if err := j.tf.Close(); err != nil {
		return err
	}
	return j.ef.Close()
}

func f(x float64) string {
	return strconv.FormatFloat(x, 'f', 6, 64)
}
