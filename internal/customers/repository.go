package customers

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/odyssey-erp/receivables/internal/platform/db"
	"github.com/odyssey-erp/receivables/internal/shared"
)

// Repository looks customers up.
type Repository struct {
	db db.Querier
}

// NewRepository returns a Repository bound to q, which may be a pool or a tx.
func NewRepository(q db.Querier) *Repository {
	return &Repository{db: q}
}

// Get returns the customer or a not-found failure.
func (r *Repository) Get(ctx context.Context, id int64) (Customer, error) {
	var c Customer
	err := r.db.QueryRow(ctx, `SELECT id, name, tax_id, credit_limit, status FROM customers WHERE id = $1`, id).
		Scan(&c.ID, &c.Name, &c.TaxID, &c.CreditLimit, &c.Status)
	if errors.Is(err, pgx.ErrNoRows) {
		return Customer{}, shared.NotFound("customer")
	}
	if err != nil {
		return Customer{}, fmt.Errorf("customers: get: %w", err)
	}
	return c, nil
}
