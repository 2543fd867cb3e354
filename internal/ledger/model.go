// Package ledger holds the general ledger entry model and its balance rule.
package ledger

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Side is the movement side of a line or transaction.
type Side string

const (
	Debit  Side = "DB"
	Credit Side = "CR"
)

// ParseSide accepts the short and long spellings of a side.
func ParseSide(raw string) (Side, error) {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "DB", "DEBIT":
		return Debit, nil
	case "CR", "CREDIT":
		return Credit, nil
	}
	return "", fmt.Errorf("ledger: unknown side %q", raw)
}

// Valid reports whether s is Debit or Credit.
func (s Side) Valid() bool { return s == Debit || s == Credit }

// Status of a ledger header.
type Status string

// StatusRegistered is the only status produced by postings.
const StatusRegistered Status = "REGISTERED"

const (
	// BaseCurrencyID is the reporting currency.
	BaseCurrencyID int64 = 1
	// BaseExchangeRate applies to entries in the base currency.
	BaseExchangeRate int64 = 1
)

// Tolerance is the largest accepted difference between debit and credit totals.
var Tolerance = decimal.New(1, -2)

// Header is a ledger entry header.
type Header struct {
	ID           int64
	Description  string
	AuxiliaryID  int64
	PostingDate  time.Time
	CurrencyID   int64
	ExchangeRate decimal.Decimal
	CustomerID   *int64
	Status       Status
}

// Line is one side of a ledger entry.
type Line struct {
	ID        int64
	HeaderID  int64
	AccountID int64
	Side      Side
	Amount    decimal.Decimal
}

// Entry is a header with its lines, not yet persisted.
type Entry struct {
	Header Header
	Lines  []Line
}

// Totals sums the debit and credit amounts of lines.
func Totals(lines []Line) (debit, credit decimal.Decimal) {
	for _, l := range lines {
		switch l.Side {
		case Debit:
			debit = debit.Add(l.Amount)
		case Credit:
			credit = credit.Add(l.Amount)
		}
	}
	return debit, credit
}

// Balanced reports whether debit and credit totals agree within Tolerance.
func Balanced(lines []Line) bool {
	debit, credit := Totals(lines)
	return debit.Sub(credit).Abs().LessThanOrEqual(Tolerance)
}
