// Package doctypes resolves document types together with the account they post to.
package doctypes

import (
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/receivables/internal/chart"
	"github.com/odyssey-erp/receivables/internal/ledger"
	"github.com/odyssey-erp/receivables/internal/shared"
)

// DocumentType configures how a receivable document posts.
type DocumentType struct {
	ID               int64           `json:"id"`
	Description      string          `json:"description"`
	LinkedAccountID  *int64          `json:"linked_account_id,omitempty"`
	ExpectedMovement ledger.Side     `json:"expected_movement"`
	AppliesTax       bool            `json:"applies_tax"`
	TaxRate          decimal.Decimal `json:"tax_rate"`
	Active           bool            `json:"active"`
	LinkedAccount    *chart.Account  `json:"-"`
	LinkedOrigin     *chart.Origin   `json:"linked_origin,omitempty"`
}

// CheckPostable fails when the linked account is missing or cannot receive lines.
func (d DocumentType) CheckPostable() error {
	if d.LinkedAccount == nil {
		return shared.Misconfigured("document type", "no linked account configured")
	}
	if !d.LinkedAccount.PermitsPostings {
		return shared.Misconfigured("document type", "linked account does not permit postings")
	}
	return nil
}

// TaxFraction is the rate as a fraction, zero when tax does not apply.
func (d DocumentType) TaxFraction() decimal.Decimal {
	if !d.AppliesTax {
		return decimal.Zero
	}
	return d.TaxRate.Div(decimal.NewFromInt(100))
}
