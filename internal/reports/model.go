// Package reports projects the ledger and receivable log into read-only views.
package reports

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/receivables/internal/ledger"
)

// StatementLine is one movement on a customer statement.
type StatementLine struct {
	TransactionID  int64           `json:"transaction_id"`
	Date           time.Time       `json:"date"`
	DocumentType   string          `json:"document_type"`
	DocumentNumber string          `json:"document_number"`
	Debit          decimal.Decimal `json:"debit"`
	Credit         decimal.Decimal `json:"credit"`
	LedgerHeaderID int64           `json:"ledger_header_id"`
}

// Statement is a customer's statement of account.
type Statement struct {
	CustomerID int64           `json:"customer_id"`
	Customer   string          `json:"customer"`
	Lines      []StatementLine `json:"lines"`
	Total      decimal.Decimal `json:"total"`
}

// JournalLine is a ledger line rendered for the general journal.
type JournalLine struct {
	Account string          `json:"account"`
	Debit   decimal.Decimal `json:"debit"`
	Credit  decimal.Decimal `json:"credit"`
}

// JournalEntry is a ledger header with its lines.
type JournalEntry struct {
	HeaderID    int64           `json:"header_id"`
	PostingDate time.Time       `json:"posting_date"`
	Description string          `json:"description"`
	Origin      string          `json:"origin"`
	Status      ledger.Status   `json:"status"`
	Lines       []JournalLine   `json:"lines"`
	TotalDebit  decimal.Decimal `json:"total_debit"`
	TotalCredit decimal.Decimal `json:"total_credit"`
	Balanced    bool            `json:"balanced"`
}

// JournalHeader is the raw header row of the journal query.
type JournalHeader struct {
	ID          int64
	PostingDate time.Time
	Description string
	Origin      string
	Status      ledger.Status
}

// JournalLineRow is the raw line row of the journal query.
type JournalLineRow struct {
	HeaderID           int64
	AccountID          int64
	AccountDescription string
	Side               ledger.Side
	Amount             decimal.Decimal
}

// DateRange bounds a journal listing. Nil bounds are open.
type DateRange struct {
	From *time.Time
	To   *time.Time
}

// Debtor is a customer with a positive balance.
type Debtor struct {
	CustomerID int64           `json:"customer_id"`
	Name       string          `json:"name"`
	Balance    decimal.Decimal `json:"balance"`
}

// Dashboard summarises receivables activity for a day.
type Dashboard struct {
	Date            time.Time       `json:"date"`
	TotalCustomers  int             `json:"total_customers"`
	ActiveCustomers int             `json:"active_customers"`
	DebitsToday     decimal.Decimal `json:"debits_today"`
	CreditsToday    decimal.Decimal `json:"credits_today"`
	TotalReceivable decimal.Decimal `json:"total_receivable"`
	EntriesToday    int             `json:"entries_today"`
	InvoiceCount    int             `json:"invoice_count"`
	PaymentCount    int             `json:"payment_count"`
	TopDebtors      []Debtor        `json:"top_debtors"`
}
