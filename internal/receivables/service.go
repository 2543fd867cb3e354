package receivables

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/receivables/internal/customers"
	"github.com/odyssey-erp/receivables/internal/doctypes"
	"github.com/odyssey-erp/receivables/internal/ledger"
	"github.com/odyssey-erp/receivables/internal/settings"
	"github.com/odyssey-erp/receivables/internal/shared"
)

// RepositoryPort abstracts transactional and read access to receivables storage.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	GetCustomer(ctx context.Context, id int64) (customers.Customer, error)
	ListTransactions(ctx context.Context, customerID int64) ([]Transaction, error)
	ListHistory(ctx context.Context, customerID int64) ([]HistoryRow, error)
}

// TxRepository is the unit of work a posting runs in. LockCustomer must be
// called first; it blocks until no other posting for the customer is in flight.
type TxRepository interface {
	settings.Getter
	LockCustomer(ctx context.Context, customerID int64) error
	ClaimIdempotencyKey(ctx context.Context, key string) error
	GetCustomer(ctx context.Context, id int64) (customers.Customer, error)
	GetDocumentType(ctx context.Context, id int64) (doctypes.DocumentType, error)
	ListTransactions(ctx context.Context, customerID int64) ([]Transaction, error)
	InsertEntry(ctx context.Context, entry ledger.Entry) (int64, error)
	InsertTransaction(ctx context.Context, txn Transaction) (int64, error)
}

// AuditPort records postings for compliance.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// MetricsPort observes posting outcomes. Outcome is "posted" or a failure kind.
type MetricsPort interface {
	ObservePosting(side, outcome string, elapsed time.Duration)
}

// Invalidator is told after every committed posting so derived caches can drop stale data.
type Invalidator interface {
	Invalidate(ctx context.Context) error
}

// Service posts receivable events and answers balance queries.
type Service struct {
	repo        RepositoryPort
	audit       AuditPort
	logger      *slog.Logger
	metrics     MetricsPort
	invalidator Invalidator
	now         func() time.Time
}

// NewService constructs the posting service.
func NewService(repo RepositoryPort, audit AuditPort, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, audit: audit, logger: logger, now: time.Now}
}

// WithNow overrides the clock for testing.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// WithMetrics attaches a metrics sink.
func (s *Service) WithMetrics(m MetricsPort) { s.metrics = m }

// WithInvalidator attaches a cache invalidator run after commit.
func (s *Service) WithInvalidator(inv Invalidator) { s.invalidator = inv }

// Post validates req, derives its ledger entry and commits entry and
// transaction together. No row is written when any check fails.
func (s *Service) Post(ctx context.Context, req PostingRequest, actingAuxiliaryID int64) (PostingResult, error) {
	started := s.now()
	result, err := s.post(ctx, req, actingAuxiliaryID)
	s.observe(req.Movement, err, started)
	logAttrs := []any{
		slog.Int64("customer_id", req.CustomerID),
		slog.Int64("document_type_id", req.DocumentTypeID),
		slog.String("side", string(req.Movement)),
		slog.String("amount", req.Amount.StringFixed(2)),
	}
	if err != nil {
		switch shared.KindOf(err) {
		case shared.KindNotFound, shared.KindInvalidInput, shared.KindInvalidState, shared.KindRuleViolation:
			s.logger.Info("posting rejected", append(logAttrs, slog.Any("error", err))...)
		default:
			if errors.Is(err, shared.ErrIdempotencyConflict) {
				s.logger.Info("posting replay rejected", logAttrs...)
				return PostingResult{}, err
			}
			s.logger.Error("posting failed", append(logAttrs, slog.Any("error", err))...)
		}
		return PostingResult{}, err
	}
	s.logger.Info("posting committed", append(logAttrs,
		slog.Int64("transaction_id", result.TransactionID),
		slog.Int64("ledger_header_id", result.LedgerHeaderID))...)

	if s.audit != nil {
		if err := s.audit.Record(ctx, shared.AuditLog{
			AuxiliaryID: actingAuxiliaryID,
			Action:      "receivable.post",
			Entity:      "receivable_transaction",
			EntityID:    strconv.FormatInt(result.TransactionID, 10),
			Meta: map[string]any{
				"customer_id":      req.CustomerID,
				"document_type_id": req.DocumentTypeID,
				"document_number":  req.DocumentNumber,
				"movement":         string(req.Movement),
				"amount":           req.Amount.StringFixed(2),
				"ledger_header_id": result.LedgerHeaderID,
			},
			At: s.now(),
		}); err != nil {
			s.logger.Warn("record posting audit", append(logAttrs,
				slog.Int64("transaction_id", result.TransactionID), slog.Any("error", err))...)
		}
	}
	if s.invalidator != nil {
		if err := s.invalidator.Invalidate(ctx); err != nil {
			s.logger.Warn("invalidate report cache", slog.Any("error", err))
		}
	}
	return result, nil
}

func (s *Service) post(ctx context.Context, req PostingRequest, actingAuxiliaryID int64) (PostingResult, error) {
	if err := req.Validate(); err != nil {
		return PostingResult{}, err
	}
	if actingAuxiliaryID <= 0 {
		return PostingResult{}, shared.ErrUnauthenticated
	}
	var result PostingResult
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if err := tx.LockCustomer(ctx, req.CustomerID); err != nil {
			return err
		}
		customer, err := tx.GetCustomer(ctx, req.CustomerID)
		if err != nil {
			return err
		}
		if err := checkCustomer(customer); err != nil {
			return err
		}
		doc, err := tx.GetDocumentType(ctx, req.DocumentTypeID)
		if err != nil {
			return err
		}
		if err := checkDocumentType(doc, req.Movement); err != nil {
			return err
		}
		history, err := tx.ListTransactions(ctx, req.CustomerID)
		if err != nil {
			return err
		}
		if _, err := projectBalance(Balance(history), req.Amount, customer.CreditLimit, req.Movement); err != nil {
			return err
		}
		if req.IdempotencyKey != "" {
			if err := tx.ClaimIdempotencyKey(ctx, req.IdempotencyKey); err != nil {
				return err
			}
		}
		accounts, err := settings.Load(ctx, tx)
		if err != nil {
			return err
		}
		split, err := Decompose(req.Movement, req.Amount, doc, accounts)
		if err != nil {
			return err
		}

		now := s.now()
		customerID := req.CustomerID
		headerID, err := tx.InsertEntry(ctx, ledger.Entry{
			Header: ledger.Header{
				Description:  headerDescription(req, doc),
				AuxiliaryID:  actingAuxiliaryID,
				PostingDate:  truncateDay(now),
				CurrencyID:   ledger.BaseCurrencyID,
				ExchangeRate: decimal.NewFromInt(ledger.BaseExchangeRate),
				CustomerID:   &customerID,
				Status:       ledger.StatusRegistered,
			},
			Lines: split.Lines,
		})
		if err != nil {
			return err
		}
		txnID, err := tx.InsertTransaction(ctx, Transaction{
			Movement:       req.Movement,
			DocumentTypeID: req.DocumentTypeID,
			DocumentNumber: strings.TrimSpace(req.DocumentNumber),
			Date:           now,
			CustomerID:     req.CustomerID,
			Amount:         req.Amount,
			LedgerHeaderID: headerID,
		})
		if err != nil {
			return err
		}
		result = PostingResult{TransactionID: txnID, LedgerHeaderID: headerID, Message: ConfirmationMessage}
		return nil
	})
	if err != nil {
		return PostingResult{}, err
	}
	return result, nil
}

// CurrentBalance recomputes the customer's balance from every transaction.
func (s *Service) CurrentBalance(ctx context.Context, customerID int64) (decimal.Decimal, error) {
	if _, err := s.repo.GetCustomer(ctx, customerID); err != nil {
		return decimal.Zero, err
	}
	txns, err := s.repo.ListTransactions(ctx, customerID)
	if err != nil {
		return decimal.Zero, fmt.Errorf("receivables: current balance: %w", err)
	}
	return Balance(txns), nil
}

// History lists the customer's transactions by date then id with a running balance.
func (s *Service) History(ctx context.Context, customerID int64) ([]HistoryLine, error) {
	if _, err := s.repo.GetCustomer(ctx, customerID); err != nil {
		return nil, err
	}
	rows, err := s.repo.ListHistory(ctx, customerID)
	if err != nil {
		return nil, fmt.Errorf("receivables: history: %w", err)
	}
	return RunningHistory(rows), nil
}

// CustomerSummary reports the credit position of a customer.
func (s *Service) CustomerSummary(ctx context.Context, customerID int64) (Summary, error) {
	customer, err := s.repo.GetCustomer(ctx, customerID)
	if err != nil {
		return Summary{}, err
	}
	txns, err := s.repo.ListTransactions(ctx, customerID)
	if err != nil {
		return Summary{}, fmt.Errorf("receivables: summary: %w", err)
	}
	balance := Balance(txns)
	out := Summary{
		CustomerID:      customer.ID,
		Name:            customer.Name,
		CurrentBalance:  balance,
		CreditLimit:     customer.CreditLimit,
		AvailableCredit: customer.CreditLimit.Sub(balance),
	}
	for _, t := range txns {
		switch t.Movement {
		case ledger.Debit:
			out.InvoiceCount++
		case ledger.Credit:
			out.PaymentCount++
		}
	}
	return out, nil
}

func (s *Service) observe(side ledger.Side, err error, started time.Time) {
	if s.metrics == nil {
		return
	}
	outcome := "posted"
	if err != nil {
		outcome = string(shared.KindOf(err))
		if errors.Is(err, shared.ErrIdempotencyConflict) {
			outcome = "replay"
		}
		if outcome == "" {
			outcome = "error"
		}
	}
	s.metrics.ObservePosting(string(side), outcome, s.now().Sub(started))
}

func headerDescription(req PostingRequest, doc doctypes.DocumentType) string {
	if concept := strings.TrimSpace(req.Concept); concept != "" {
		return concept
	}
	return fmt.Sprintf("%s No. %s", doc.Description, strings.TrimSpace(req.DocumentNumber))
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
