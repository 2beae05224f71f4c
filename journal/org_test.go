package journal

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFormatTransactionOrg(t *testing.T) {
	t.Parallel()

	rec := TransactionRecord{
		ID:         "01HNB8ZQ5S7XKJ3V2C4M6P8R0T",
		Asset:      "600000",
		Amount:     -300,
		Price:      10.25,
		Commission: 5,
		CashFlow:   3070,
		RealizedPL: -12.5,
		Time:       time.Date(2024, 1, 3, 9, 30, 0, 0, time.UTC),
	}

	result := FormatTransactionOrg(rec)
	assert.Contains(t, result, "** SELL 600000 (01HNB8ZQ)")
	assert.Contains(t, result, ":PROPERTIES:")
	assert.Contains(t, result, ":ID: 01HNB8ZQ5S7XKJ3V2C4M6P8R0T")
	assert.Contains(t, result, ":AMOUNT: -300")
	assert.Contains(t, result, ":PRICE: 10.2500")
	assert.Contains(t, result, ":CASH_FLOW: 3070.00")
	assert.Contains(t, result, ":REALIZED_PL: -12.50")
	assert.Contains(t, result, ":TIME: 2024-01-03T09:30:00Z")
	assert.Contains(t, result, ":END:")
}

func TestFormatTransactionsOrg(t *testing.T) {
	t.Parallel()

	recs := []TransactionRecord{
		{ID: "txn-001", Asset: "A", Amount: 100, Price: 10},
		{ID: "txn-002", Asset: "B", Amount: -50, Price: 20},
	}
	result := FormatTransactionsOrg(recs)
	assert.Contains(t, result, "** BUY A (txn-001)")
	assert.Contains(t, result, "** SELL B (txn-002)")
	assert.Len(t, strings.Split(result, "\n\n\n"), 2)

	assert.Empty(t, FormatTransactionsOrg(nil))
	assert.NotContains(t, FormatTransactionsOrg(recs[:1]), "\n\n\n")
}

func TestShortID(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"long", "txn-12345678-abcdef", "txn-1234"},
		{"exact", "12345678", "12345678"},
		{"short", "short", "short"},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, shortID(tt.input))
		})
	}
}
