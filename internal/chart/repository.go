package chart

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/odyssey-erp/receivables/internal/platform/db"
	"github.com/odyssey-erp/receivables/internal/shared"
)

// Repository reads the chart of accounts.
type Repository interface {
	ListAccounts(ctx context.Context) ([]Account, error)
	ListAccountTypes(ctx context.Context) ([]AccountType, error)
	GetAccount(ctx context.Context, id int64) (Account, error)
}

type repository struct {
	db db.Querier
}

// NewRepository builds a pgx backed Repository.
func NewRepository(q db.Querier) Repository {
	return &repository{db: q}
}

const accountColumns = `id, code, description, permits_postings, level, parent_id, account_type_id, balance`

func scanAccount(row pgx.Row) (Account, error) {
	var a Account
	err := row.Scan(&a.ID, &a.Code, &a.Description, &a.PermitsPostings, &a.Level, &a.ParentID, &a.AccountTypeID, &a.Balance)
	return a, err
}

func (r *repository) ListAccounts(ctx context.Context) ([]Account, error) {
	rows, err := r.db.Query(ctx, `SELECT `+accountColumns+` FROM accounts ORDER BY code`)
	if err != nil {
		return nil, fmt.Errorf("chart: list accounts: %w", err)
	}
	defer rows.Close()
	var accounts []Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("chart: scan account: %w", err)
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

func (r *repository) ListAccountTypes(ctx context.Context) ([]AccountType, error) {
	rows, err := r.db.Query(ctx, `SELECT id, description, origin FROM account_types ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("chart: list account types: %w", err)
	}
	defer rows.Close()
	var types []AccountType
	for rows.Next() {
		var t AccountType
		if err := rows.Scan(&t.ID, &t.Description, &t.Origin); err != nil {
			return nil, fmt.Errorf("chart: scan account type: %w", err)
		}
		types = append(types, t)
	}
	return types, rows.Err()
}

func (r *repository) GetAccount(ctx context.Context, id int64) (Account, error) {
	a, err := scanAccount(r.db.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Account{}, shared.NotFound("account")
	}
	if err != nil {
		return Account{}, fmt.Errorf("chart: get account: %w", err)
	}
	return a, nil
}
