package receivables

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/receivables/internal/ledger"
	"github.com/odyssey-erp/receivables/internal/shared"
)

type postTransactionRequest struct {
	CustomerID     int64           `json:"customer_id" validate:"required,gt=0"`
	DocumentTypeID int64           `json:"document_type_id" validate:"required,gt=0"`
	DocumentNumber string          `json:"document_number" validate:"required,max=50"`
	Movement       string          `json:"movement" validate:"required,oneof=DB CR db cr DEBIT CREDIT debit credit"`
	Amount         decimal.Decimal `json:"amount"`
	Concept        string          `json:"concept" validate:"max=250"`
}

func (p postTransactionRequest) toPostingRequest() (PostingRequest, error) {
	side, err := ledger.ParseSide(p.Movement)
	if err != nil {
		return PostingRequest{}, shared.InvalidInput("movement must be DB or CR")
	}
	return PostingRequest{
		CustomerID:     p.CustomerID,
		DocumentTypeID: p.DocumentTypeID,
		DocumentNumber: p.DocumentNumber,
		Movement:       side,
		Amount:         p.Amount,
		Concept:        p.Concept,
	}, nil
}

type balanceResponse struct {
	CustomerID int64           `json:"customer_id"`
	Balance    decimal.Decimal `json:"balance"`
}

func validationFailure(err error) error {
	fieldErrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return shared.InvalidInput(err.Error())
	}
	parts := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		parts = append(parts, fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag()))
	}
	return shared.InvalidInput(strings.Join(parts, "; "))
}
