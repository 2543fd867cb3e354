package reports

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"

	"github.com/odyssey-erp/receivables/internal/chart"
	"github.com/odyssey-erp/receivables/internal/customers"
	"github.com/odyssey-erp/receivables/internal/ledger"
	"github.com/odyssey-erp/receivables/internal/shared"
)

// TopDebtors is the number of debtors listed on the dashboard.
const TopDebtors = 5

// RepositoryPort abstracts report queries.
type RepositoryPort interface {
	GetCustomer(ctx context.Context, id int64) (customers.Customer, error)
	StatementLines(ctx context.Context, customerID int64) ([]StatementLine, error)
	Journal(ctx context.Context, rng DateRange) ([]JournalHeader, []JournalLineRow, error)
	Dashboard(ctx context.Context, day time.Time, topN int) (Dashboard, error)
}

// Service builds reports.
type Service struct {
	repo   RepositoryPort
	cache  *Cache
	logger *slog.Logger
	group  singleflight.Group
	now    func() time.Time
}

// NewService constructs the report service. cache may be nil.
func NewService(repo RepositoryPort, cache *Cache, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, cache: cache, logger: logger, now: time.Now}
}

// WithNow overrides the clock for testing.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// Statement returns the customer's statement of account.
func (s *Service) Statement(ctx context.Context, customerID int64) (Statement, error) {
	customer, err := s.repo.GetCustomer(ctx, customerID)
	if err != nil {
		return Statement{}, err
	}
	lines, err := s.repo.StatementLines(ctx, customerID)
	if err != nil {
		return Statement{}, err
	}
	total := decimal.Zero
	for _, l := range lines {
		total = total.Add(l.Debit).Sub(l.Credit)
	}
	if lines == nil {
		lines = []StatementLine{}
	}
	return Statement{CustomerID: customer.ID, Customer: customer.Name, Lines: lines, Total: total}, nil
}

// Journal returns the general journal for rng, newest entry first.
func (s *Service) Journal(ctx context.Context, rng DateRange) ([]JournalEntry, error) {
	if rng.From != nil && rng.To != nil && rng.From.After(*rng.To) {
		return nil, shared.InvalidInput("from must not be after to")
	}
	headers, lines, err := s.repo.Journal(ctx, rng)
	if err != nil {
		return nil, err
	}
	return buildJournal(headers, lines), nil
}

func buildJournal(headers []JournalHeader, rows []JournalLineRow) []JournalEntry {
	byHeader := make(map[int64][]JournalLineRow, len(headers))
	for _, row := range rows {
		byHeader[row.HeaderID] = append(byHeader[row.HeaderID], row)
	}
	out := make([]JournalEntry, 0, len(headers))
	for _, h := range headers {
		entry := JournalEntry{
			HeaderID:    h.ID,
			PostingDate: h.PostingDate,
			Description: h.Description,
			Origin:      h.Origin,
			Status:      h.Status,
			Lines:       []JournalLine{},
		}
		for _, row := range byHeader[h.ID] {
			line := JournalLine{Account: chart.Account{ID: row.AccountID, Description: row.AccountDescription}.Label()}
			if row.Side == ledger.Debit {
				line.Debit = row.Amount
				entry.TotalDebit = entry.TotalDebit.Add(row.Amount)
			} else {
				line.Credit = row.Amount
				entry.TotalCredit = entry.TotalCredit.Add(row.Amount)
			}
			entry.Lines = append(entry.Lines, line)
		}
		entry.Balanced = entry.TotalDebit.Equal(entry.TotalCredit)
		out = append(out, entry)
	}
	return out
}

// Dashboard returns today's summary, cached until the next posting.
func (s *Service) Dashboard(ctx context.Context) (Dashboard, error) {
	day := startOfDay(s.now())
	key, err := s.cache.BuildKey(ctx, "dashboard", day.Format("2006-01-02"))
	if err != nil {
		s.logger.Warn("report cache unavailable", slog.Any("error", err))
		return s.repo.Dashboard(ctx, day, TopDebtors)
	}
	resultChan := s.group.DoChan(key, func() (any, error) {
		var out Dashboard
		err := s.cache.FetchJSON(context.WithoutCancel(ctx), key, &out, func(ctx context.Context) (any, error) {
			return s.repo.Dashboard(ctx, day, TopDebtors)
		})
		return out, err
	})
	select {
	case <-ctx.Done():
		return Dashboard{}, ctx.Err()
	case res := <-resultChan:
		if res.Err != nil {
			return Dashboard{}, fmt.Errorf("reports: dashboard: %w", res.Err)
		}
		return res.Val.(Dashboard), nil
	}
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
