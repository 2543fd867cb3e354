package receivables

import (
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/receivables/internal/doctypes"
	"github.com/odyssey-erp/receivables/internal/ledger"
	"github.com/odyssey-erp/receivables/internal/settings"
	"github.com/odyssey-erp/receivables/internal/shared"
)

var one = decimal.NewFromInt(1)

// Decomposition is the accounting split of one posting.
type Decomposition struct {
	Base  decimal.Decimal
	Tax   decimal.Decimal
	Lines []ledger.Line
}

// SplitTax separates a tax inclusive amount into base and tax. The base is
// rounded half to even at two places; tax takes the remainder.
func SplitTax(amount, rate decimal.Decimal) (base, tax decimal.Decimal) {
	if !rate.IsPositive() {
		return amount, decimal.Zero
	}
	base = amount.Div(one.Add(rate)).RoundBank(2)
	return base, amount.Sub(base)
}

// Decompose builds the ledger lines for a posting of amount on side against
// doc. Debits are invoices: receivable against revenue and tax payable.
// Credits are collections: cash against receivable.
func Decompose(side ledger.Side, amount decimal.Decimal, doc doctypes.DocumentType, accounts settings.PostingAccounts) (Decomposition, error) {
	if doc.LinkedAccount == nil {
		return Decomposition{}, shared.Misconfigured("document type", "no linked account configured")
	}
	receivable := doc.LinkedAccount.ID

	var out Decomposition
	switch side {
	case ledger.Debit:
		out.Base, out.Tax = SplitTax(amount, doc.TaxFraction())
		out.Lines = []ledger.Line{
			{AccountID: receivable, Side: ledger.Debit, Amount: amount},
			{AccountID: accounts.SalesRevenue, Side: ledger.Credit, Amount: out.Base},
		}
		if out.Tax.IsPositive() {
			out.Lines = append(out.Lines, ledger.Line{AccountID: accounts.TaxPayable, Side: ledger.Credit, Amount: out.Tax})
		}
	case ledger.Credit:
		out.Base, out.Tax = amount, decimal.Zero
		out.Lines = []ledger.Line{
			{AccountID: accounts.Cash, Side: ledger.Debit, Amount: amount},
			{AccountID: receivable, Side: ledger.Credit, Amount: amount},
		}
	default:
		return Decomposition{}, shared.InvalidInput("movement must be DB or CR")
	}

	if !ledger.Balanced(out.Lines) {
		debit, credit := ledger.Totals(out.Lines)
		return Decomposition{}, shared.InternalConsistency("entry does not balance: debit " + debit.StringFixed(2) + " credit " + credit.StringFixed(2))
	}
	return out, nil
}
