package receivables

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/receivables/internal/customers"
	"github.com/odyssey-erp/receivables/internal/doctypes"
	"github.com/odyssey-erp/receivables/internal/ledger"
	"github.com/odyssey-erp/receivables/internal/platform/db"
	"github.com/odyssey-erp/receivables/internal/settings"
	"github.com/odyssey-erp/receivables/internal/shared"
)

// Repository persists receivable transactions.
type Repository struct {
	pool      *pgxpool.Pool
	customers *customers.Repository
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool, customers: customers.NewRepository(pool)}
}

// WithTx runs fn in a READ COMMITTED transaction. The posting's advisory lock
// makes every later read see rows committed by earlier postings.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, db.ReadCommitted, func(tx pgx.Tx) error {
		return fn(ctx, newTxRepository(tx))
	})
}

// GetCustomer looks the customer up outside a unit of work.
func (r *Repository) GetCustomer(ctx context.Context, id int64) (customers.Customer, error) {
	return r.customers.Get(ctx, id)
}

// ListTransactions returns every transaction of the customer ordered by date and id.
func (r *Repository) ListTransactions(ctx context.Context, customerID int64) ([]Transaction, error) {
	return listTransactions(ctx, r.pool, customerID)
}

// ListHistory returns the customer's transactions with document type descriptions.
func (r *Repository) ListHistory(ctx context.Context, customerID int64) ([]HistoryRow, error) {
	rows, err := r.pool.Query(ctx, `SELECT t.id, t.movement, t.document_type_id, t.document_number, t.transaction_date,
	t.customer_id, t.amount, t.ledger_header_id, d.description
FROM receivable_transactions t
JOIN document_types d ON d.id = t.document_type_id
WHERE t.customer_id = $1
ORDER BY t.transaction_date, t.id`, customerID)
	if err != nil {
		return nil, fmt.Errorf("receivables: list history: %w", err)
	}
	defer rows.Close()
	var out []HistoryRow
	for rows.Next() {
		var h HistoryRow
		if err := rows.Scan(&h.ID, &h.Movement, &h.DocumentTypeID, &h.DocumentNumber, &h.Date,
			&h.CustomerID, &h.Amount, &h.LedgerHeaderID, &h.DocumentType); err != nil {
			return nil, fmt.Errorf("receivables: scan history: %w", err)
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

func listTransactions(ctx context.Context, q db.Querier, customerID int64) ([]Transaction, error) {
	rows, err := q.Query(ctx, `SELECT id, movement, document_type_id, document_number, transaction_date, customer_id, amount, ledger_header_id
FROM receivable_transactions WHERE customer_id = $1 ORDER BY transaction_date, id`, customerID)
	if err != nil {
		return nil, fmt.Errorf("receivables: list transactions: %w", err)
	}
	defer rows.Close()
	var out []Transaction
	for rows.Next() {
		var t Transaction
		if err := rows.Scan(&t.ID, &t.Movement, &t.DocumentTypeID, &t.DocumentNumber, &t.Date, &t.CustomerID, &t.Amount, &t.LedgerHeaderID); err != nil {
			return nil, fmt.Errorf("receivables: scan transaction: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

const idempotencyModule = "receivables.post"

type txRepository struct {
	tx        pgx.Tx
	customers *customers.Repository
	doctypes  *doctypes.Repository
	settings  *settings.Repository
}

func newTxRepository(tx pgx.Tx) *txRepository {
	return &txRepository{
		tx:        tx,
		customers: customers.NewRepository(tx),
		doctypes:  doctypes.NewRepository(tx),
		settings:  settings.NewRepository(tx),
	}
}

func (r *txRepository) LockCustomer(ctx context.Context, customerID int64) error {
	ns, key := shared.CustomerLockKey(customerID)
	if _, err := r.tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1, $2)`, ns, key); err != nil {
		return fmt.Errorf("receivables: lock customer %d: %w", customerID, err)
	}
	return nil
}

func (r *txRepository) ClaimIdempotencyKey(ctx context.Context, key string) error {
	return shared.ClaimIdempotencyKey(ctx, r.tx, key, idempotencyModule)
}

func (r *txRepository) GetCustomer(ctx context.Context, id int64) (customers.Customer, error) {
	return r.customers.Get(ctx, id)
}

func (r *txRepository) GetDocumentType(ctx context.Context, id int64) (doctypes.DocumentType, error) {
	return r.doctypes.Get(ctx, id)
}

func (r *txRepository) GetValue(ctx context.Context, key string) (string, error) {
	return r.settings.GetValue(ctx, key)
}

func (r *txRepository) ListTransactions(ctx context.Context, customerID int64) ([]Transaction, error) {
	return listTransactions(ctx, r.tx, customerID)
}

func (r *txRepository) InsertEntry(ctx context.Context, entry ledger.Entry) (int64, error) {
	return ledger.InsertEntry(ctx, r.tx, entry)
}

func (r *txRepository) InsertTransaction(ctx context.Context, txn Transaction) (int64, error) {
	var id int64
	err := r.tx.QueryRow(ctx, `INSERT INTO receivable_transactions (movement, document_type_id, document_number, transaction_date, customer_id, amount, ledger_header_id)
VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`,
		txn.Movement, txn.DocumentTypeID, txn.DocumentNumber, txn.Date, txn.CustomerID, txn.Amount, txn.LedgerHeaderID).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("receivables: insert transaction: %w", err)
	}
	return id, nil
}
