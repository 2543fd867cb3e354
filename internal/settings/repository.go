package settings

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/odyssey-erp/receivables/internal/platform/db"
	"github.com/odyssey-erp/receivables/internal/shared"
)

// Repository reads configuration_keys.
type Repository struct {
	db db.Querier
}

// NewRepository returns a Repository bound to q, which may be a pool or a tx.
func NewRepository(q db.Querier) *Repository {
	return &Repository{db: q}
}

// GetValue implements Getter.
func (r *Repository) GetValue(ctx context.Context, key string) (string, error) {
	var value string
	err := r.db.QueryRow(ctx, `SELECT value FROM configuration_keys WHERE key = $1`, key).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", shared.Misconfigured(key, "configuration key missing")
	}
	if err != nil {
		return "", fmt.Errorf("settings: get %s: %w", key, err)
	}
	return value, nil
}
