package receivables

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/receivables/internal/chart"
	"github.com/odyssey-erp/receivables/internal/customers"
	"github.com/odyssey-erp/receivables/internal/doctypes"
	"github.com/odyssey-erp/receivables/internal/ledger"
	"github.com/odyssey-erp/receivables/internal/settings"
	"github.com/odyssey-erp/receivables/internal/shared"
)

const (
	auxiliaryID     int64 = 7
	testCustomerID  int64 = 1
	invoiceDoc      int64 = 10
	untaxedDoc      int64 = 11
	paymentDoc      int64 = 12
	receivableAcct  int64 = 1102
	revenueAcct     int64 = 4101
	cashAcct        int64 = 1101
	taxPayableAcct  int64 = 2105
	creditorAcct    int64 = 2101
	nonPostableAcct int64 = 11
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func origin(o chart.Origin) *chart.Origin { return &o }

func postable(id int64) *chart.Account {
	return &chart.Account{ID: id, Description: "Cuentas por cobrar clientes", PermitsPostings: true, Level: 3}
}

type fixture struct {
	repo    *memRepo
	service *Service
	audit   *recordingAudit
	metrics *recordingMetrics
	cache   *countingInvalidator
	now     time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	repo := newMemRepo()
	repo.customers[testCustomerID] = customers.Customer{ID: testCustomerID, Name: "Ferreteria Central", CreditLimit: dec("500.00"), Status: customers.StatusActive}
	repo.doctypes[invoiceDoc] = doctypes.DocumentType{ID: invoiceDoc, Description: "Factura", ExpectedMovement: ledger.Debit,
		AppliesTax: true, TaxRate: dec("18.00"), LinkedAccount: postable(receivableAcct), LinkedOrigin: origin(chart.OriginDebtor)}
	repo.doctypes[untaxedDoc] = doctypes.DocumentType{ID: untaxedDoc, Description: "Nota de debito", ExpectedMovement: ledger.Debit,
		AppliesTax: false, TaxRate: dec("18.00"), LinkedAccount: postable(receivableAcct), LinkedOrigin: origin(chart.OriginDebtor)}
	repo.doctypes[paymentDoc] = doctypes.DocumentType{ID: paymentDoc, Description: "Recibo de pago", ExpectedMovement: ledger.Credit,
		AppliesTax: true, TaxRate: dec("18.00"), LinkedAccount: postable(receivableAcct), LinkedOrigin: origin(chart.OriginDebtor)}
	repo.config[settings.KeySalesRevenueAccount] = "4101"
	repo.config[settings.KeyCashAccount] = "1101"
	repo.config[settings.KeyTaxPayableAccount] = "2105"

	f := &fixture{
		repo:    repo,
		audit:   &recordingAudit{},
		metrics: &recordingMetrics{},
		cache:   &countingInvalidator{},
		now:     time.Date(2026, 5, 4, 15, 30, 0, 0, time.UTC),
	}
	f.service = NewService(repo, f.audit, slog.New(slog.NewTextHandler(io.Discard, nil)))
	f.service.WithNow(func() time.Time { return f.now })
	f.service.WithMetrics(f.metrics)
	f.service.WithInvalidator(f.cache)
	return f
}

func (f *fixture) post(t *testing.T, doc int64, side ledger.Side, amount string) (PostingResult, error) {
	t.Helper()
	return f.service.Post(context.Background(), PostingRequest{
		CustomerID:     testCustomerID,
		DocumentTypeID: doc,
		DocumentNumber: "F-0001",
		Movement:       side,
		Amount:         dec(amount),
	}, auxiliaryID)
}

func (f *fixture) seedBalance(t *testing.T, amount string) {
	t.Helper()
	_, err := f.post(t, untaxedDoc, ledger.Debit, amount)
	require.NoError(t, err)
}

func (f *fixture) linesOf(headerID int64) []ledger.Line {
	var out []ledger.Line
	for _, l := range f.repo.committed().lines {
		if l.HeaderID == headerID {
			out = append(out, l)
		}
	}
	return out
}

type failingAudit struct{}

func (failingAudit) Record(context.Context, shared.AuditLog) error {
	return errors.New("audit store down")
}

type recordingAudit struct {
	mu   sync.Mutex
	logs []shared.AuditLog
}

func (a *recordingAudit) Record(_ context.Context, log shared.AuditLog) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.logs = append(a.logs, log)
	return nil
}

type recordingMetrics struct {
	mu       sync.Mutex
	outcomes []string
}

func (m *recordingMetrics) ObservePosting(side, outcome string, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.outcomes = append(m.outcomes, side+":"+outcome)
}

type countingInvalidator struct {
	mu    sync.Mutex
	calls int
}

func (c *countingInvalidator) Invalidate(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	return nil
}

func TestPostTaxedInvoiceSplitsIntoThreeLines(t *testing.T) {
	f := newFixture(t)

	res, err := f.post(t, invoiceDoc, ledger.Debit, "118.00")
	require.NoError(t, err)
	require.Equal(t, ConfirmationMessage, res.Message)

	lines := f.linesOf(res.LedgerHeaderID)
	require.Len(t, lines, 3)
	assert.Equal(t, receivableAcct, lines[0].AccountID)
	assert.Equal(t, ledger.Debit, lines[0].Side)
	assert.True(t, lines[0].Amount.Equal(dec("118.00")))
	assert.Equal(t, revenueAcct, lines[1].AccountID)
	assert.True(t, lines[1].Amount.Equal(dec("100.00")))
	assert.Equal(t, taxPayableAcct, lines[2].AccountID)
	assert.True(t, lines[2].Amount.Equal(dec("18.00")))

	debit, credit := ledger.Totals(lines)
	assert.True(t, debit.Equal(dec("118.00")))
	assert.True(t, credit.Equal(dec("118.00")))

	state := f.repo.committed()
	require.Len(t, state.headers, 1)
	require.Len(t, state.txns, 1)
	h := state.headers[0]
	assert.Equal(t, "Factura No. F-0001", h.Description)
	assert.Equal(t, auxiliaryID, h.AuxiliaryID)
	assert.Equal(t, time.Date(2026, 5, 4, 0, 0, 0, 0, time.UTC), h.PostingDate)
	assert.Equal(t, ledger.BaseCurrencyID, h.CurrencyID)
	assert.True(t, h.ExchangeRate.Equal(decimal.NewFromInt(1)))
	assert.Equal(t, ledger.StatusRegistered, h.Status)
	require.NotNil(t, h.CustomerID)
	assert.Equal(t, testCustomerID, *h.CustomerID)
	assert.Equal(t, res.LedgerHeaderID, state.txns[0].LedgerHeaderID)
	assert.Equal(t, []int64{testCustomerID}, f.repo.locked)

	require.Len(t, f.audit.logs, 1)
	assert.Equal(t, "receivable.post", f.audit.logs[0].Action)
	assert.Equal(t, 1, f.cache.calls)
	assert.Equal(t, []string{"DB:posted"}, f.metrics.outcomes)
}

func TestPostWithoutTaxNeverProducesTaxLine(t *testing.T) {
	f := newFixture(t)

	res, err := f.post(t, untaxedDoc, ledger.Debit, "118.00")
	require.NoError(t, err)
	lines := f.linesOf(res.LedgerHeaderID)
	require.Len(t, lines, 2)
	for _, l := range lines {
		assert.NotEqual(t, taxPayableAcct, l.AccountID)
	}

	res, err = f.post(t, paymentDoc, ledger.Credit, "50.00")
	require.NoError(t, err)
	lines = f.linesOf(res.LedgerHeaderID)
	require.Len(t, lines, 2)
	assert.Equal(t, cashAcct, lines[0].AccountID)
	assert.Equal(t, ledger.Debit, lines[0].Side)
	assert.Equal(t, receivableAcct, lines[1].AccountID)
	assert.Equal(t, ledger.Credit, lines[1].Side)
}

func TestPostUsesConceptWhenGiven(t *testing.T) {
	f := newFixture(t)
	_, err := f.service.Post(context.Background(), PostingRequest{
		CustomerID: testCustomerID, DocumentTypeID: untaxedDoc, DocumentNumber: "ND-9",
		Movement: ledger.Debit, Amount: dec("10"), Concept: "Cargo por flete",
	}, auxiliaryID)
	require.NoError(t, err)
	assert.Equal(t, "Cargo por flete", f.repo.committed().headers[0].Description)
}

func TestCreditLimitBoundary(t *testing.T) {
	f := newFixture(t)
	f.seedBalance(t, "480.00")

	_, err := f.post(t, untaxedDoc, ledger.Debit, "20.01")
	require.ErrorIs(t, err, shared.ErrRuleViolation)
	require.Contains(t, err.Error(), ReasonCreditLimit)

	_, err = f.post(t, untaxedDoc, ledger.Debit, "20.00")
	require.NoError(t, err)

	balance, err := f.service.CurrentBalance(context.Background(), testCustomerID)
	require.NoError(t, err)
	assert.True(t, balance.Equal(dec("500.00")), balance.String())
}

func TestOverpaymentBoundary(t *testing.T) {
	f := newFixture(t)
	f.seedBalance(t, "100.00")

	_, err := f.post(t, paymentDoc, ledger.Credit, "100.01")
	require.ErrorIs(t, err, shared.ErrRuleViolation)
	require.Contains(t, err.Error(), ReasonOverpayment)

	_, err = f.post(t, paymentDoc, ledger.Credit, "100.00")
	require.NoError(t, err)

	balance, err := f.service.CurrentBalance(context.Background(), testCustomerID)
	require.NoError(t, err)
	assert.True(t, balance.IsZero())
}

func TestMovementMustMatchDocumentType(t *testing.T) {
	f := newFixture(t)
	f.seedBalance(t, "100.00")

	for _, amount := range []string{"0.01", "50.00", "100000.00"} {
		_, err := f.post(t, invoiceDoc, ledger.Credit, amount)
		require.ErrorIs(t, err, shared.ErrRuleViolation)
		require.Contains(t, err.Error(), ReasonMovementMismatch)
	}

	inactive := f.repo.customers[testCustomerID]
	inactive.Status = customers.StatusInactive
	f.repo.customers[testCustomerID] = inactive
	_, err := f.post(t, invoiceDoc, ledger.Credit, "1.00")
	require.ErrorIs(t, err, shared.ErrInvalidState)
}

func TestPostValidationOrder(t *testing.T) {
	cases := map[string]struct {
		mutate func(f *fixture)
		doc    int64
		want   error
	}{
		"missing customer": {
			mutate: func(f *fixture) { delete(f.repo.customers, testCustomerID) },
			doc:    invoiceDoc, want: shared.ErrNotFound,
		},
		"inactive customer": {
			mutate: func(f *fixture) {
				c := f.repo.customers[testCustomerID]
				c.Status = customers.StatusInactive
				f.repo.customers[testCustomerID] = c
				delete(f.repo.doctypes, invoiceDoc)
			},
			doc: invoiceDoc, want: shared.ErrInvalidState,
		},
		"missing document type": {
			mutate: func(f *fixture) {},
			doc:    99, want: shared.ErrNotFound,
		},
		"document type without account": {
			mutate: func(f *fixture) {
				d := f.repo.doctypes[invoiceDoc]
				d.LinkedAccount = nil
				f.repo.doctypes[invoiceDoc] = d
			},
			doc: invoiceDoc, want: shared.ErrMisconfigured,
		},
		"non postable account": {
			mutate: func(f *fixture) {
				d := f.repo.doctypes[invoiceDoc]
				d.LinkedAccount = &chart.Account{ID: nonPostableAcct}
				f.repo.doctypes[invoiceDoc] = d
			},
			doc: invoiceDoc, want: shared.ErrMisconfigured,
		},
		"creditor polarity": {
			mutate: func(f *fixture) {
				d := f.repo.doctypes[invoiceDoc]
				d.LinkedAccount = postable(creditorAcct)
				d.LinkedOrigin = origin(chart.OriginCreditor)
				f.repo.doctypes[invoiceDoc] = d
			},
			doc: invoiceDoc, want: shared.ErrRuleViolation,
		},
		"missing configuration key": {
			mutate: func(f *fixture) { delete(f.repo.config, settings.KeyTaxPayableAccount) },
			doc:    invoiceDoc, want: shared.ErrMisconfigured,
		},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t)
			tc.mutate(f)
			_, err := f.post(t, tc.doc, ledger.Debit, "10.00")
			require.ErrorIs(t, err, tc.want)

			state := f.repo.committed()
			assert.Empty(t, state.headers)
			assert.Empty(t, state.lines)
			assert.Empty(t, state.txns)
			assert.Empty(t, f.audit.logs)
			assert.Zero(t, f.cache.calls)
		})
	}
}

func TestPostRejectsMalformedRequests(t *testing.T) {
	f := newFixture(t)
	base := PostingRequest{CustomerID: testCustomerID, DocumentTypeID: invoiceDoc, DocumentNumber: "F-1", Movement: ledger.Debit, Amount: dec("1")}
	cases := map[string]func(r *PostingRequest){
		"zero amount":     func(r *PostingRequest) { r.Amount = decimal.Zero },
		"negative amount": func(r *PostingRequest) { r.Amount = dec("-5") },
		"sub cent amount": func(r *PostingRequest) { r.Amount = dec("1.005") },
		"blank number":    func(r *PostingRequest) { r.DocumentNumber = "  " },
		"unknown side":    func(r *PostingRequest) { r.Movement = "XX" },
		"no customer":     func(r *PostingRequest) { r.CustomerID = 0 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			req := base
			mutate(&req)
			_, err := f.service.Post(context.Background(), req, auxiliaryID)
			require.ErrorIs(t, err, shared.ErrInvalidInput)
		})
	}

	_, err := f.service.Post(context.Background(), base, 0)
	require.ErrorIs(t, err, shared.ErrUnauthenticated)
	assert.Empty(t, f.repo.committed().headers)
}

func TestFailedFinalInsertLeavesNothingPersisted(t *testing.T) {
	f := newFixture(t)
	f.repo.failInsertTransaction = true

	_, err := f.post(t, invoiceDoc, ledger.Debit, "118.00")
	require.ErrorIs(t, err, errInjected)

	state := f.repo.committed()
	assert.Empty(t, state.headers)
	assert.Empty(t, state.lines)
	assert.Empty(t, state.txns)
	assert.Equal(t, []string{"DB:error"}, f.metrics.outcomes)
}

func TestIdempotencyKeyPreventsDoublePosting(t *testing.T) {
	f := newFixture(t)
	req := PostingRequest{
		CustomerID: testCustomerID, DocumentTypeID: untaxedDoc, DocumentNumber: "ND-7", Movement: ledger.Debit,
		Amount: dec("40.00"), IdempotencyKey: "retry-7",
	}

	_, err := f.service.Post(context.Background(), req, auxiliaryID)
	require.NoError(t, err)
	_, err = f.service.Post(context.Background(), req, auxiliaryID)
	require.ErrorIs(t, err, shared.ErrIdempotencyConflict)

	assert.Len(t, f.repo.committed().txns, 1)
	assert.Equal(t, []string{"DB:posted", "DB:replay"}, f.metrics.outcomes)
}

func TestRejectedPostingReleasesIdempotencyKey(t *testing.T) {
	f := newFixture(t)
	req := PostingRequest{
		CustomerID: testCustomerID, DocumentTypeID: untaxedDoc, DocumentNumber: "ND-8", Movement: ledger.Debit,
		Amount: dec("900.00"), IdempotencyKey: "retry-8",
	}

	_, err := f.service.Post(context.Background(), req, auxiliaryID)
	require.ErrorIs(t, err, shared.ErrRuleViolation)

	req.Amount = dec("90.00")
	_, err = f.service.Post(context.Background(), req, auxiliaryID)
	require.NoError(t, err)
}

func TestReplayedKeyReportsMissingCustomerFirst(t *testing.T) {
	f := newFixture(t)
	req := PostingRequest{
		CustomerID: testCustomerID, DocumentTypeID: untaxedDoc, DocumentNumber: "ND-9", Movement: ledger.Debit,
		Amount: dec("40.00"), IdempotencyKey: "retry-9",
	}
	_, err := f.service.Post(context.Background(), req, auxiliaryID)
	require.NoError(t, err)

	delete(f.repo.customers, testCustomerID)
	_, err = f.service.Post(context.Background(), req, auxiliaryID)
	require.ErrorIs(t, err, shared.ErrNotFound)
	assert.NotErrorIs(t, err, shared.ErrIdempotencyConflict)
}

func TestAuditFailureIsLogged(t *testing.T) {
	f := newFixture(t)
	var buf bytes.Buffer
	f.service = NewService(f.repo, failingAudit{}, slog.New(slog.NewTextHandler(&buf, nil)))
	f.service.WithNow(func() time.Time { return f.now })

	result, err := f.service.Post(context.Background(), PostingRequest{
		CustomerID: testCustomerID, DocumentTypeID: untaxedDoc, DocumentNumber: "ND-10", Movement: ledger.Debit, Amount: dec("10.00"),
	}, auxiliaryID)
	require.NoError(t, err)
	assert.Positive(t, result.TransactionID)
	assert.Contains(t, buf.String(), "record posting audit")
	assert.Contains(t, buf.String(), "audit store down")
	assert.Len(t, f.repo.committed().txns, 1)
}

func TestCanceledContextLeavesNothingPersisted(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.service.Post(ctx, PostingRequest{
		CustomerID: testCustomerID, DocumentTypeID: invoiceDoc, DocumentNumber: "F-2", Movement: ledger.Debit, Amount: dec("5"),
	}, auxiliaryID)
	require.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, f.repo.committed().headers)
}

func TestConcurrentPostingsRespectCreditLimit(t *testing.T) {
	f := newFixture(t)

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		accepted int
		rejected int
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.post(t, untaxedDoc, ledger.Debit, "100.00")
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				accepted++
				return
			}
			if assert.ErrorIs(t, err, shared.ErrRuleViolation) {
				rejected++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 5, accepted)
	assert.Equal(t, 15, rejected)
	balance, err := f.service.CurrentBalance(context.Background(), testCustomerID)
	require.NoError(t, err)
	assert.True(t, balance.Equal(dec("500.00")), balance.String())
}

func TestEveryCommittedHeaderBalances(t *testing.T) {
	f := newFixture(t)
	for _, amount := range []string{"118.00", "99.99", "0.01", "37.77", "1.19"} {
		_, err := f.post(t, invoiceDoc, ledger.Debit, amount)
		require.NoError(t, err)
		f.repo.customers[testCustomerID] = customers.Customer{ID: testCustomerID, CreditLimit: dec("100000"), Status: customers.StatusActive}
	}
	_, err := f.post(t, paymentDoc, ledger.Credit, "50.00")
	require.NoError(t, err)

	state := f.repo.committed()
	for _, h := range state.headers {
		lines := f.linesOf(h.ID)
		require.GreaterOrEqual(t, len(lines), 2)
		assert.True(t, ledger.Balanced(lines), "header %d", h.ID)
	}
}

func TestBalanceQueriesAreStable(t *testing.T) {
	f := newFixture(t)
	f.seedBalance(t, "200.00")
	_, err := f.post(t, paymentDoc, ledger.Credit, "75.50")
	require.NoError(t, err)

	first, err := f.service.CurrentBalance(context.Background(), testCustomerID)
	require.NoError(t, err)
	second, err := f.service.CurrentBalance(context.Background(), testCustomerID)
	require.NoError(t, err)
	assert.True(t, first.Equal(second))
	assert.True(t, first.Equal(dec("124.50")))

	_, err = f.service.CurrentBalance(context.Background(), 404)
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestHistoryAndSummary(t *testing.T) {
	f := newFixture(t)
	f.seedBalance(t, "200.00")
	f.now = f.now.Add(time.Hour)
	_, err := f.post(t, paymentDoc, ledger.Credit, "50.00")
	require.NoError(t, err)
	f.now = f.now.Add(time.Hour)
	_, err = f.post(t, invoiceDoc, ledger.Debit, "118.00")
	require.NoError(t, err)

	lines, err := f.service.History(context.Background(), testCustomerID)
	require.NoError(t, err)
	require.Len(t, lines, 3)
	assert.Equal(t, "Nota de debito", lines[0].DocumentType)
	assert.True(t, lines[0].RunningBalance.Equal(dec("200")))
	assert.True(t, lines[1].RunningBalance.Equal(dec("150")))
	assert.True(t, lines[2].RunningBalance.Equal(dec("268")))

	summary, err := f.service.CustomerSummary(context.Background(), testCustomerID)
	require.NoError(t, err)
	assert.Equal(t, "Ferreteria Central", summary.Name)
	assert.True(t, summary.CurrentBalance.Equal(dec("268")))
	assert.True(t, summary.CreditLimit.Equal(dec("500")))
	assert.True(t, summary.AvailableCredit.Equal(dec("232")))
	assert.Equal(t, 2, summary.InvoiceCount)
	assert.Equal(t, 1, summary.PaymentCount)

	_, err = f.service.History(context.Background(), 404)
	require.ErrorIs(t, err, shared.ErrNotFound)
}
