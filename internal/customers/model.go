// Package customers provides the customer lookups postings depend on.
package customers

import "github.com/shopspring/decimal"

// Status gates whether a customer may receive new postings.
type Status string

const (
	StatusActive   Status = "ACTIVE"
	StatusInactive Status = "INACTIVE"
)

// Customer is a receivables account holder.
type Customer struct {
	ID          int64           `json:"id"`
	Name        string          `json:"name"`
	TaxID       string          `json:"tax_id"`
	CreditLimit decimal.Decimal `json:"credit_limit"`
	Status      Status          `json:"status"`
}

// Active reports whether the customer may be posted against.
func (c Customer) Active() bool { return c.Status == StatusActive }
