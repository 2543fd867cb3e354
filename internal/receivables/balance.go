package receivables

import (
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/receivables/internal/ledger"
)

// Balance is Σdebit − Σcredit over txns. Both the credit checks of Post and
// the balance queries go through it.
func Balance(txns []Transaction) decimal.Decimal {
	total := decimal.Zero
	for _, t := range txns {
		total = total.Add(signed(t.Movement, t.Amount))
	}
	return total
}

// RunningHistory annotates rows, in the order given, with a running total
// starting at zero.
func RunningHistory(rows []HistoryRow) []HistoryLine {
	out := make([]HistoryLine, 0, len(rows))
	running := decimal.Zero
	for _, row := range rows {
		running = running.Add(signed(row.Movement, row.Amount))
		out = append(out, HistoryLine{Transaction: row.Transaction, DocumentType: row.DocumentType, RunningBalance: running})
	}
	return out
}

func signed(side ledger.Side, amount decimal.Decimal) decimal.Decimal {
	if side == ledger.Credit {
		return amount.Neg()
	}
	if side == ledger.Debit {
		return amount
	}
	return decimal.Zero
}
