package doctypes

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/receivables/internal/chart"
	"github.com/odyssey-erp/receivables/internal/ledger"
	"github.com/odyssey-erp/receivables/internal/platform/db"
	"github.com/odyssey-erp/receivables/internal/shared"
)

// Repository reads document types joined to their linked account and its type.
type Repository struct {
	db db.Querier
}

// NewRepository returns a Repository bound to q, which may be a pool or a tx.
func NewRepository(q db.Querier) *Repository {
	return &Repository{db: q}
}

const selectDocumentType = `SELECT d.id, d.description, d.account_id, COALESCE(d.expected_movement, 'DB'), d.applies_tax, d.tax_rate, d.active,
	a.id, a.code, a.description, a.permits_postings, a.level, a.parent_id, a.account_type_id, a.balance,
	t.origin
FROM document_types d
LEFT JOIN accounts a ON a.id = d.account_id
LEFT JOIN account_types t ON t.id = a.account_type_id`

func scanDocumentType(row pgx.Row) (DocumentType, error) {
	var (
		d      DocumentType
		accID  *int64
		code   *string
		desc   *string
		post   *bool
		level  *int
		acct   chart.Account
		bal    decimal.NullDecimal
		origin *string
	)
	err := row.Scan(&d.ID, &d.Description, &d.LinkedAccountID, &d.ExpectedMovement, &d.AppliesTax, &d.TaxRate, &d.Active,
		&accID, &code, &desc, &post, &level, &acct.ParentID, &acct.AccountTypeID, &bal,
		&origin)
	if err != nil {
		return DocumentType{}, err
	}
	if accID != nil {
		acct.ID = *accID
		acct.Code = deref(code)
		acct.Description = deref(desc)
		acct.PermitsPostings = post != nil && *post
		acct.Balance = bal.Decimal
		if level != nil {
			acct.Level = *level
		}
		d.LinkedAccount = &acct
	}
	if origin != nil {
		o := chart.Origin(*origin)
		d.LinkedOrigin = &o
	}
	return d, nil
}

// Get returns the document type or a not-found failure.
func (r *Repository) Get(ctx context.Context, id int64) (DocumentType, error) {
	d, err := scanDocumentType(r.db.QueryRow(ctx, selectDocumentType+` WHERE d.id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return DocumentType{}, shared.NotFound("document type")
	}
	if err != nil {
		return DocumentType{}, fmt.Errorf("doctypes: get: %w", err)
	}
	return d, nil
}

// List returns active document types, optionally limited to one movement side.
func (r *Repository) List(ctx context.Context, movement *ledger.Side) ([]DocumentType, error) {
	query := selectDocumentType + ` WHERE d.active`
	args := []any{}
	if movement != nil {
		query += ` AND COALESCE(d.expected_movement, 'DB') = $1`
		args = append(args, *movement)
	}
	rows, err := r.db.Query(ctx, query+` ORDER BY d.description`, args...)
	if err != nil {
		return nil, fmt.Errorf("doctypes: list: %w", err)
	}
	defer rows.Close()
	var out []DocumentType
	for rows.Next() {
		d, err := scanDocumentType(rows)
		if err != nil {
			return nil, fmt.Errorf("doctypes: scan: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
