// Package chart models the chart of accounts consumed by postings.
package chart

import "github.com/shopspring/decimal"

// Origin is the natural balance-increasing side of an account type.
type Origin string

const (
	OriginDebtor   Origin = "DEBTOR"
	OriginCreditor Origin = "CREDITOR"
)

// Valid reports whether o is a known origin.
func (o Origin) Valid() bool {
	return o == OriginDebtor || o == OriginCreditor
}

// AccountType groups accounts sharing a polarity.
type AccountType struct {
	ID          int64  `json:"id"`
	Description string `json:"description"`
	Origin      Origin `json:"origin"`
}

// Account is a chart of accounts node. Balance is denormalized and not
// authoritative.
type Account struct {
	ID              int64           `json:"id"`
	Code            string          `json:"code"`
	Description     string          `json:"description"`
	PermitsPostings bool            `json:"permits_postings"`
	Level           int             `json:"level"`
	ParentID        *int64          `json:"parent_id,omitempty"`
	AccountTypeID   *int64          `json:"account_type_id,omitempty"`
	Balance         decimal.Decimal `json:"balance"`
}

// Label renders the account the way journal reports show it.
func (a Account) Label() string {
	return formatLabel(a.ID, a.Description)
}
