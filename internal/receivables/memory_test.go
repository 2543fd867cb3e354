package receivables

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/odyssey-erp/receivables/internal/customers"
	"github.com/odyssey-erp/receivables/internal/doctypes"
	"github.com/odyssey-erp/receivables/internal/ledger"
	"github.com/odyssey-erp/receivables/internal/shared"
)

var errInjected = errors.New("injected failure")

type memState struct {
	headers []ledger.Header
	lines   []ledger.Line
	txns    []Transaction
}

func (s memState) clone() memState {
	return memState{
		headers: append([]ledger.Header(nil), s.headers...),
		lines:   append([]ledger.Line(nil), s.lines...),
		txns:    append([]Transaction(nil), s.txns...),
	}
}

// memRepo keeps committed rows in state; a unit of work writes to a staged
// copy that replaces state only when fn succeeds.
type memRepo struct {
	mu        sync.Mutex
	state     memState
	customers map[int64]customers.Customer
	doctypes  map[int64]doctypes.DocumentType
	config    map[string]string
	locks     map[int64]*sync.Mutex
	keys      map[string]bool
	nextID    int64

	failInsertTransaction bool
	locked                []int64
}

func newMemRepo() *memRepo {
	return &memRepo{
		customers: map[int64]customers.Customer{},
		doctypes:  map[int64]doctypes.DocumentType{},
		config:    map[string]string{},
		locks:     map[int64]*sync.Mutex{},
		keys:      map[string]bool{},
	}
}

func (m *memRepo) customerLock(id int64) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.locks[id]
	if !ok {
		l = &sync.Mutex{}
		m.locks[id] = l
	}
	return l
}

func (m *memRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	m.mu.Lock()
	staged := m.state.clone()
	m.mu.Unlock()

	tx := &memTx{repo: m, staged: &staged}
	defer tx.release()
	if err := fn(ctx, tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	// Other customers may have committed meanwhile; append only what this unit staged.
	m.state.headers = append(m.state.headers, staged.headers[tx.baseHeaders:]...)
	m.state.lines = append(m.state.lines, staged.lines[tx.baseLines:]...)
	m.state.txns = append(m.state.txns, staged.txns[tx.baseTxns:]...)
	for _, key := range tx.claimed {
		m.keys[key] = true
	}
	return nil
}

func (m *memRepo) GetCustomer(_ context.Context, id int64) (customers.Customer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.customers[id]
	if !ok {
		return customers.Customer{}, shared.NotFound("customer")
	}
	return c, nil
}

func (m *memRepo) ListTransactions(_ context.Context, customerID int64) ([]Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return filterTxns(m.state.txns, customerID), nil
}

func (m *memRepo) ListHistory(_ context.Context, customerID int64) ([]HistoryRow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []HistoryRow
	for _, t := range filterTxns(m.state.txns, customerID) {
		out = append(out, HistoryRow{Transaction: t, DocumentType: m.doctypes[t.DocumentTypeID].Description})
	}
	return out, nil
}

func (m *memRepo) committed() memState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.clone()
}

func (m *memRepo) id() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	return m.nextID
}

func filterTxns(all []Transaction, customerID int64) []Transaction {
	var out []Transaction
	for _, t := range all {
		if t.CustomerID == customerID {
			out = append(out, t)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Date.Equal(out[j].Date) {
			return out[i].ID < out[j].ID
		}
		return out[i].Date.Before(out[j].Date)
	})
	return out
}

type memTx struct {
	repo    *memRepo
	staged  *memState
	held    *sync.Mutex
	claimed []string

	baseHeaders, baseLines, baseTxns int
}

func (t *memTx) release() {
	if t.held != nil {
		t.held.Unlock()
	}
}

func (t *memTx) LockCustomer(_ context.Context, customerID int64) error {
	l := t.repo.customerLock(customerID)
	l.Lock()
	t.held = l

	// Re-read committed rows now that the lock is held.
	t.repo.mu.Lock()
	*t.staged = t.repo.state.clone()
	t.repo.locked = append(t.repo.locked, customerID)
	t.repo.mu.Unlock()
	t.baseHeaders, t.baseLines, t.baseTxns = len(t.staged.headers), len(t.staged.lines), len(t.staged.txns)
	return nil
}

func (t *memTx) ClaimIdempotencyKey(_ context.Context, key string) error {
	t.repo.mu.Lock()
	defer t.repo.mu.Unlock()
	if t.repo.keys[key] {
		return shared.ErrIdempotencyConflict
	}
	t.claimed = append(t.claimed, key)
	return nil
}

func (t *memTx) GetCustomer(ctx context.Context, id int64) (customers.Customer, error) {
	return t.repo.GetCustomer(ctx, id)
}

func (t *memTx) GetDocumentType(_ context.Context, id int64) (doctypes.DocumentType, error) {
	t.repo.mu.Lock()
	defer t.repo.mu.Unlock()
	d, ok := t.repo.doctypes[id]
	if !ok {
		return doctypes.DocumentType{}, shared.NotFound("document type")
	}
	return d, nil
}

func (t *memTx) GetValue(_ context.Context, key string) (string, error) {
	t.repo.mu.Lock()
	defer t.repo.mu.Unlock()
	v, ok := t.repo.config[key]
	if !ok {
		return "", shared.Misconfigured(key, "configuration key missing")
	}
	return v, nil
}

func (t *memTx) ListTransactions(_ context.Context, customerID int64) ([]Transaction, error) {
	return filterTxns(t.staged.txns, customerID), nil
}

func (t *memTx) InsertEntry(_ context.Context, entry ledger.Entry) (int64, error) {
	h := entry.Header
	h.ID = t.repo.id()
	t.staged.headers = append(t.staged.headers, h)
	for _, l := range entry.Lines {
		l.ID = t.repo.id()
		l.HeaderID = h.ID
		t.staged.lines = append(t.staged.lines, l)
	}
	return h.ID, nil
}

func (t *memTx) InsertTransaction(_ context.Context, txn Transaction) (int64, error) {
	if t.repo.failInsertTransaction {
		return 0, errInjected
	}
	txn.ID = t.repo.id()
	t.staged.txns = append(t.staged.txns, txn)
	return txn.ID, nil
}
