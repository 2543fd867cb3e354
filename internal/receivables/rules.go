package receivables

import (
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/receivables/internal/chart"
	"github.com/odyssey-erp/receivables/internal/customers"
	"github.com/odyssey-erp/receivables/internal/doctypes"
	"github.com/odyssey-erp/receivables/internal/ledger"
	"github.com/odyssey-erp/receivables/internal/shared"
)

// Rejection reasons surfaced to callers.
const (
	ReasonCustomerInactive = "customer inactive"
	ReasonWrongPolarity    = "wrong account polarity"
	ReasonMovementMismatch = "movement/document mismatch"
	ReasonCreditLimit      = "credit limit exceeded"
	ReasonOverpayment      = "overpayment, negative balance not allowed"
)

func checkCustomer(c customers.Customer) error {
	if !c.Active() {
		return shared.InvalidState("customer", ReasonCustomerInactive)
	}
	return nil
}

func checkDocumentType(doc doctypes.DocumentType, movement ledger.Side) error {
	if err := doc.CheckPostable(); err != nil {
		return err
	}
	if doc.LinkedOrigin == nil || *doc.LinkedOrigin != chart.OriginDebtor {
		return shared.RuleViolation(ReasonWrongPolarity)
	}
	if movement != doc.ExpectedMovement {
		return shared.RuleViolation(ReasonMovementMismatch)
	}
	return nil
}

// projectBalance applies amount to current and enforces the credit limit on
// debits and the non-negative balance on credits.
func projectBalance(current, amount, creditLimit decimal.Decimal, movement ledger.Side) (decimal.Decimal, error) {
	if movement == ledger.Debit {
		projected := current.Add(amount)
		if projected.GreaterThan(creditLimit) {
			return decimal.Zero, shared.RuleViolation(ReasonCreditLimit)
		}
		return projected, nil
	}
	projected := current.Sub(amount)
	if projected.IsNegative() {
		return decimal.Zero, shared.RuleViolation(ReasonOverpayment)
	}
	return projected, nil
}
