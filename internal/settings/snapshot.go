package settings

import (
	"context"
	"strconv"
	"strings"

	"github.com/odyssey-erp/receivables/internal/shared"
)

// Getter returns the raw value stored for key. A missing key must be reported
// as a misconfiguration failure.
type Getter interface {
	GetValue(ctx context.Context, key string) (string, error)
}

// PostingAccounts is the typed snapshot of configured account ids, read once
// per posting and handed to the decomposition step.
type PostingAccounts struct {
	SalesRevenue int64
	Cash         int64
	TaxPayable   int64
}

// Load resolves every posting key through g.
func Load(ctx context.Context, g Getter) (PostingAccounts, error) {
	var out PostingAccounts
	targets := map[string]*int64{
		KeySalesRevenueAccount: &out.SalesRevenue,
		KeyCashAccount:         &out.Cash,
		KeyTaxPayableAccount:   &out.TaxPayable,
	}
	for _, key := range PostingKeys {
		raw, err := g.GetValue(ctx, key)
		if err != nil {
			return PostingAccounts{}, err
		}
		id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
		if err != nil || id <= 0 {
			return PostingAccounts{}, shared.Misconfigured(key, "value is not an account id")
		}
		*targets[key] = id
	}
	return out, nil
}
