package journal

import (
	"fmt"
	"strings"
	"time"
)

// FormatTransactionOrg renders one fill as an Org heading with a
// properties drawer.
func FormatTransactionOrg(t TransactionRecord) string {
	side := "BUY"
	if t.Amount < 0 {
		side = "SELL"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "** %s %s (%s)\n", side, t.Asset, shortID(t.ID))
	b.WriteString(":PROPERTIES:\n")
	fmt.Fprintf(&b, ":ID: %s\n", t.ID)
	fmt.Fprintf(&b, ":ASSET: %s\n", t.Asset)
	fmt.Fprintf(&b, ":AMOUNT: %g\n", t.Amount)
	fmt.Fprintf(&b, ":PRICE: %.4f\n", t.Price)
	fmt.Fprintf(&b, ":COMMISSION: %.2f\n", t.Commission)
	fmt.Fprintf(&b, ":CASH_FLOW: %.2f\n", t.CashFlow)
	fmt.Fprintf(&b, ":REALIZED_PL: %.2f\n", t.RealizedPL)
	fmt.Fprintf(&b, ":TIME: %s\n", t.Time.UTC().Format(time.RFC3339))
	b.WriteString(":END:\n")
	return b.String()
}

// FormatTransactionsOrg renders fills separated by a blank line.
func FormatTransactionsOrg(ts []TransactionRecord) string {
	parts := make([]string, 0, len(ts))
	for _, t := range ts {
		parts = append(parts, FormatTransactionOrg(t))
	}
	return strings.Join(parts, "\n\n")
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
