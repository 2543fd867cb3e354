// Package receivables posts customer invoices and collections as balanced
// ledger entries and answers balance and history queries.
package receivables

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/receivables/internal/ledger"
	"github.com/odyssey-erp/receivables/internal/shared"
)

// ConfirmationMessage is returned with every successful posting.
const ConfirmationMessage = "Transaction saved and posted successfully."

const maxAmountPlaces = 2

// PostingRequest describes one business event to post.
type PostingRequest struct {
	CustomerID     int64
	DocumentTypeID int64
	DocumentNumber string
	Movement       ledger.Side
	Amount         decimal.Decimal
	Concept        string
	// IdempotencyKey, when set, makes a retried request fail with
	// shared.ErrIdempotencyConflict instead of posting twice.
	IdempotencyKey string
}

// Validate checks the request shape before any lookup happens.
func (r PostingRequest) Validate() error {
	switch {
	case r.CustomerID <= 0:
		return shared.InvalidInput("customer id is required")
	case r.DocumentTypeID <= 0:
		return shared.InvalidInput("document type id is required")
	case strings.TrimSpace(r.DocumentNumber) == "":
		return shared.InvalidInput("document number is required")
	case !r.Movement.Valid():
		return shared.InvalidInput("movement must be DB or CR")
	case !r.Amount.IsPositive():
		return shared.InvalidInput("amount must be greater than zero")
	case !r.Amount.Equal(r.Amount.Truncate(maxAmountPlaces)):
		return shared.InvalidInput("amount supports at most two decimal places")
	case len(r.IdempotencyKey) > shared.MaxIdempotencyKeyLen:
		return shared.InvalidInput("idempotency key is too long")
	}
	return nil
}

// PostingResult identifies what a successful posting created.
type PostingResult struct {
	TransactionID  int64  `json:"transaction_id"`
	LedgerHeaderID int64  `json:"ledger_header_id"`
	Message        string `json:"message"`
}

// Transaction is a persisted receivable event.
type Transaction struct {
	ID             int64           `json:"id"`
	Movement       ledger.Side     `json:"movement"`
	DocumentTypeID int64           `json:"document_type_id"`
	DocumentNumber string          `json:"document_number"`
	Date           time.Time       `json:"date"`
	CustomerID     int64           `json:"customer_id"`
	Amount         decimal.Decimal `json:"amount"`
	LedgerHeaderID int64           `json:"ledger_header_id"`
}

// HistoryLine is a transaction annotated with the running balance of the
// returned sequence.
type HistoryLine struct {
	Transaction
	DocumentType   string          `json:"document_type"`
	RunningBalance decimal.Decimal `json:"running_balance"`
}

// HistoryRow is a transaction as read for history listings.
type HistoryRow struct {
	Transaction
	DocumentType string
}

// Summary is the credit position of a customer.
type Summary struct {
	CustomerID      int64           `json:"customer_id"`
	Name            string          `json:"name"`
	CurrentBalance  decimal.Decimal `json:"current_balance"`
	CreditLimit     decimal.Decimal `json:"credit_limit"`
	AvailableCredit decimal.Decimal `json:"available_credit"`
	InvoiceCount    int             `json:"invoice_count"`
	PaymentCount    int             `json:"payment_count"`
}
