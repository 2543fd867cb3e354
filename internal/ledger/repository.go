package ledger

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/receivables/internal/platform/db"
)

// InsertEntry writes the header and its lines through q, which is expected to
// be the posting transaction. It returns the new header id.
func InsertEntry(ctx context.Context, q db.Querier, entry Entry) (int64, error) {
	h := entry.Header
	var headerID int64
	err := q.QueryRow(ctx, `INSERT INTO ledger_headers (description, auxiliary_id, posting_date, currency_id, exchange_rate, customer_id, status)
VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`,
		h.Description, h.AuxiliaryID, h.PostingDate, h.CurrencyID, h.ExchangeRate, h.CustomerID, h.Status).Scan(&headerID)
	if err != nil {
		return 0, fmt.Errorf("ledger: insert header: %w", err)
	}
	for _, line := range entry.Lines {
		if _, err := q.Exec(ctx, `INSERT INTO ledger_lines (header_id, account_id, side, amount) VALUES ($1, $2, $3, $4)`,
			headerID, line.AccountID, line.Side, line.Amount); err != nil {
			return 0, fmt.Errorf("ledger: insert line: %w", err)
		}
	}
	return headerID, nil
}

// Imbalance describes a header whose lines do not balance.
type Imbalance struct {
	HeaderID  int64
	Debit     decimal.Decimal
	Credit    decimal.Decimal
	LineCount int
}

// FindImbalances scans every header for totals that differ by more than
// Tolerance or that carry fewer than two lines.
func FindImbalances(ctx context.Context, q db.Querier) ([]Imbalance, error) {
	rows, err := q.Query(ctx, `SELECT h.id,
	COALESCE(SUM(l.amount) FILTER (WHERE l.side = 'DB'), 0),
	COALESCE(SUM(l.amount) FILTER (WHERE l.side = 'CR'), 0),
	COUNT(l.id)
FROM ledger_headers h
LEFT JOIN ledger_lines l ON l.header_id = h.id
GROUP BY h.id
HAVING COUNT(l.id) < 2
	OR ABS(COALESCE(SUM(l.amount) FILTER (WHERE l.side = 'DB'), 0) - COALESCE(SUM(l.amount) FILTER (WHERE l.side = 'CR'), 0)) > $1
ORDER BY h.id`, Tolerance)
	if err != nil {
		return nil, fmt.Errorf("ledger: scan imbalances: %w", err)
	}
	defer rows.Close()
	var out []Imbalance
	for rows.Next() {
		var im Imbalance
		if err := rows.Scan(&im.HeaderID, &im.Debit, &im.Credit, &im.LineCount); err != nil {
			return nil, fmt.Errorf("ledger: scan imbalance: %w", err)
		}
		out = append(out, im)
	}
	return out, rows.Err()
}
