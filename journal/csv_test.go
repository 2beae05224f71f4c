package journal

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	fh, err := os.Open(path)
	require.NoError(t, err)
	defer fh.Close()
	rows, err := csv.NewReader(fh).ReadAll()
	require.NoError(t, err)
	return rows
}

func newTestCSV(t *testing.T) (*CSV, string, string) {
	t.Helper()
	dir := t.TempDir()
	txPath := filepath.Join(dir, "transactions.csv")
	eqPath := filepath.Join(dir, "equity.csv")
	j, err := NewCSV(txPath, eqPath)
	require.NoError(t, err)
	return j, txPath, eqPath
}

func TestCSVJournalHeaders(t *testing.T) {
	t.Parallel()

	j, txPath, eqPath := newTestCSV(t)
	require.NoError(t, j.Close())

	assert.Equal(t, [][]string{transactionHeader}, readCSV(t, txPath))
	assert.Equal(t, [][]string{equityHeader}, readCSV(t, eqPath))
}

func TestCSVJournalRecords(t *testing.T) {
	t.Parallel()

	j, txPath, eqPath := newTestCSV(t)
	at := time.Date(2024, 1, 3, 9, 30, 0, 0, time.UTC)

	require.NoError(t, j.RecordTransaction(TransactionRecord{
		ID: "T1", Asset: "A", Amount: 100, Price: 8.2, Commission: 5, CashFlow: -825, Time: at,
	}))
	require.NoError(t, j.RecordEquity(EquitySnapshot{
		Time: at, Cash: 9175, PositionsValue: 780, PortfolioValue: 9955, Leverage: 0.078,
	}))
	require.NoError(t, j.Close())

	tx := readCSV(t, txPath)
	require.Len(t, tx, 2)
	assert.Equal(t, []string{"T1", "A", "100.000000", "8.200000", "5.000000", "-825.000000", "0.000000", "2024-01-03T09:30:00Z"}, tx[1])

	eq := readCSV(t, eqPath)
	require.Len(t, eq, 2)
	assert.Equal(t, []string{"2024-01-03T09:30:00Z", "9175.000000", "780.000000", "9955.000000", "0.078000"}, eq[1])
}

func TestNewCSV_BadPath(t *testing.T) {
	t.Parallel()

	_, err := NewCSV(filepath.Join(t.TempDir(), "missing", "tx.csv"), "eq.csv")
	assert.Error(t, err)
}
