package reports

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/receivables/internal/customers"
	"github.com/odyssey-erp/receivables/internal/platform/db"
)

// Repository runs report queries against Postgres.
type Repository struct {
	pool      *pgxpool.Pool
	customers *customers.Repository
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool, customers: customers.NewRepository(pool)}
}

// GetCustomer looks the statement subject up.
func (r *Repository) GetCustomer(ctx context.Context, id int64) (customers.Customer, error) {
	return r.customers.Get(ctx, id)
}

// StatementLines lists a customer's movements by date then id.
func (r *Repository) StatementLines(ctx context.Context, customerID int64) ([]StatementLine, error) {
	rows, err := r.pool.Query(ctx, `SELECT t.id, t.transaction_date, d.description, t.document_number,
	CASE WHEN t.movement = 'DB' THEN t.amount ELSE 0 END,
	CASE WHEN t.movement = 'CR' THEN t.amount ELSE 0 END,
	t.ledger_header_id
FROM receivable_transactions t
JOIN document_types d ON d.id = t.document_type_id
WHERE t.customer_id = $1
ORDER BY t.transaction_date, t.id`, customerID)
	if err != nil {
		return nil, fmt.Errorf("reports: statement lines: %w", err)
	}
	defer rows.Close()
	var out []StatementLine
	for rows.Next() {
		var l StatementLine
		if err := rows.Scan(&l.TransactionID, &l.Date, &l.DocumentType, &l.DocumentNumber, &l.Debit, &l.Credit, &l.LedgerHeaderID); err != nil {
			return nil, fmt.Errorf("reports: scan statement line: %w", err)
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// Journal returns headers within rng newest first, and all their lines.
func (r *Repository) Journal(ctx context.Context, rng DateRange) ([]JournalHeader, []JournalLineRow, error) {
	var (
		headers []JournalHeader
		lines   []JournalLineRow
	)
	err := db.WithTx(ctx, r.pool, db.ReadOnly, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx, `SELECT h.id, h.posting_date, h.description, COALESCE(a.description, ''), h.status
FROM ledger_headers h
LEFT JOIN auxiliaries a ON a.id = h.auxiliary_id
WHERE ($1::date IS NULL OR h.posting_date >= $1::date)
	AND ($2::date IS NULL OR h.posting_date <= $2::date)
ORDER BY h.id DESC`, rng.From, rng.To)
		if err != nil {
			return fmt.Errorf("reports: journal headers: %w", err)
		}
		ids := []int64{}
		for rows.Next() {
			var h JournalHeader
			if err := rows.Scan(&h.ID, &h.PostingDate, &h.Description, &h.Origin, &h.Status); err != nil {
				rows.Close()
				return fmt.Errorf("reports: scan journal header: %w", err)
			}
			headers = append(headers, h)
			ids = append(ids, h.ID)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return err
		}
		if len(ids) == 0 {
			return nil
		}
		lineRows, err := tx.Query(ctx, `SELECT l.header_id, l.account_id, a.description, l.side, l.amount
FROM ledger_lines l
JOIN accounts a ON a.id = l.account_id
WHERE l.header_id = ANY($1)
ORDER BY l.header_id, l.id`, ids)
		if err != nil {
			return fmt.Errorf("reports: journal lines: %w", err)
		}
		defer lineRows.Close()
		for lineRows.Next() {
			var l JournalLineRow
			if err := lineRows.Scan(&l.HeaderID, &l.AccountID, &l.AccountDescription, &l.Side, &l.Amount); err != nil {
				return fmt.Errorf("reports: scan journal line: %w", err)
			}
			lines = append(lines, l)
		}
		return lineRows.Err()
	})
	if err != nil {
		return nil, nil, err
	}
	return headers, lines, nil
}

// Dashboard computes the day's counters and the top debtors.
func (r *Repository) Dashboard(ctx context.Context, day time.Time, topN int) (Dashboard, error) {
	out := Dashboard{Date: day}
	next := day.AddDate(0, 0, 1)
	err := db.WithTx(ctx, r.pool, db.ReadOnly, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `SELECT
	(SELECT COUNT(*) FROM customers),
	(SELECT COUNT(*) FROM customers WHERE status = 'ACTIVE'),
	(SELECT COALESCE(SUM(amount), 0) FROM receivable_transactions WHERE movement = 'DB' AND transaction_date >= $1 AND transaction_date < $2),
	(SELECT COALESCE(SUM(amount), 0) FROM receivable_transactions WHERE movement = 'CR' AND transaction_date >= $1 AND transaction_date < $2),
	(SELECT COALESCE(SUM(CASE WHEN movement = 'DB' THEN amount ELSE -amount END), 0) FROM receivable_transactions),
	(SELECT COUNT(*) FROM ledger_headers WHERE posting_date = $1::date),
	(SELECT COUNT(*) FROM receivable_transactions WHERE movement = 'DB'),
	(SELECT COUNT(*) FROM receivable_transactions WHERE movement = 'CR')`, day, next).
			Scan(&out.TotalCustomers, &out.ActiveCustomers, &out.DebitsToday, &out.CreditsToday,
				&out.TotalReceivable, &out.EntriesToday, &out.InvoiceCount, &out.PaymentCount)
		if err != nil {
			return fmt.Errorf("reports: dashboard counters: %w", err)
		}
		rows, err := tx.Query(ctx, `SELECT c.id, c.name, SUM(CASE WHEN t.movement = 'DB' THEN t.amount ELSE -t.amount END) AS balance
FROM customers c
JOIN receivable_transactions t ON t.customer_id = c.id
GROUP BY c.id, c.name
HAVING SUM(CASE WHEN t.movement = 'DB' THEN t.amount ELSE -t.amount END) > 0
ORDER BY balance DESC, c.id
LIMIT $1`, topN)
		if err != nil {
			return fmt.Errorf("reports: top debtors: %w", err)
		}
		defer rows.Close()
		for rows.Next() {
			var d Debtor
			if err := rows.Scan(&d.CustomerID, &d.Name, &d.Balance); err != nil {
				return fmt.Errorf("reports: scan debtor: %w", err)
			}
			out.TopDebtors = append(out.TopDebtors, d)
		}
		return rows.Err()
	})
	if err != nil {
		return Dashboard{}, err
	}
	return out, nil
}
