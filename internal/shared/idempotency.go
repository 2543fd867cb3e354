package shared

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

// MaxIdempotencyKeyLen bounds client supplied keys.
const MaxIdempotencyKeyLen = 128

// ErrIdempotencyConflict indicates the key was already used by a committed request.
var ErrIdempotencyConflict = errors.New("idempotent request already processed")

// ClaimIdempotencyKey records key for module. Run it inside the unit of work
// it protects so the claim commits or rolls back with that work.
func ClaimIdempotencyKey(ctx context.Context, db Execer, key, module string) error {
	if key == "" {
		return errors.New("idempotency key required")
	}
	if module == "" {
		return errors.New("idempotency module required")
	}
	_, err := db.Exec(ctx, `INSERT INTO idempotency_keys (key, module, created_at) VALUES ($1, $2, NOW())`, key, module)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrIdempotencyConflict
		}
		return fmt.Errorf("shared: claim idempotency key: %w", err)
	}
	return nil
}

// IdempotencyStore prunes claimed keys past their retention.
type IdempotencyStore struct {
	db  Execer
	now func() time.Time
}

// NewIdempotencyStore constructs the store.
func NewIdempotencyStore(db Execer) *IdempotencyStore {
	return &IdempotencyStore{db: db, now: time.Now}
}

// Cleanup removes entries older than retention and reports how many went.
func (s *IdempotencyStore) Cleanup(ctx context.Context, olderThan time.Duration) (int64, error) {
	if s == nil {
		return 0, nil
	}
	if olderThan <= 0 {
		return 0, errors.New("idempotency retention must be positive")
	}
	tag, err := s.db.Exec(ctx, `DELETE FROM idempotency_keys WHERE created_at < $1`, s.now().Add(-olderThan))
	if err != nil {
		return 0, fmt.Errorf("shared: prune idempotency keys: %w", err)
	}
	return tag.RowsAffected(), nil
}
