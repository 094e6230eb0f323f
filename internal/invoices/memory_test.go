package invoices

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/coopledger/coopledger/internal/shared"
)

var errInjected = errors.New("check constraint invoice_items_quantity_check")

type memoryState struct {
	invoices map[int64]Invoice
	items    map[int64][]Item
	nextInv  int64
	nextItem int64
}

func (s memoryState) clone() memoryState {
	out := memoryState{
		invoices: make(map[int64]Invoice, len(s.invoices)),
		items:    make(map[int64][]Item, len(s.items)),
		nextInv:  s.nextInv,
		nextItem: s.nextItem,
	}
	for id, inv := range s.invoices {
		out.invoices[id] = inv
	}
	for id, items := range s.items {
		out.items[id] = append([]Item(nil), items...)
	}
	return out
}

// memoryRepo applies a unit of work to a copy of its state and only keeps the
// copy when fn succeeds.
type memoryRepo struct {
	mu    sync.Mutex
	state memoryState

	failOnItem     int
	insertedItems  int
	conflicts      int
	attempts       int
	corruptSum     bool
	beforeInsertFn func()
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{state: memoryState{invoices: map[int64]Invoice{}, items: map[int64][]Item{}}}
}

func (r *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.attempts++
	work := r.state.clone()
	if err := fn(ctx, &memoryTx{repo: r, state: &work}); err != nil {
		return err
	}
	r.state = work
	return nil
}

func (r *memoryRepo) LatestInvoiceNumber(ctx context.Context, prefix string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return latestIn(r.state, prefix), nil
}

func (r *memoryRepo) GetInvoice(ctx context.Context, id int64) (Invoice, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	inv, ok := r.state.invoices[id]
	if !ok {
		return Invoice{}, fmt.Errorf("invoices: %d: %w", id, shared.ErrNotFound)
	}
	inv.Items = append([]Item(nil), r.state.items[id]...)
	return inv, nil
}

func (r *memoryRepo) ListInvoices(ctx context.Context, filter ListFilter) ([]Invoice, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Invoice
	for _, inv := range r.state.invoices {
		if filter.Status != "" && inv.Status != filter.Status {
			continue
		}
		if filter.Period != nil && !filter.Period.Contains(inv.InvoiceDate) {
			continue
		}
		out = append(out, inv)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number > out[j].Number })
	if len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (r *memoryRepo) counts() (int, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	items := 0
	for _, list := range r.state.items {
		items += len(list)
	}
	return len(r.state.invoices), items
}

func latestIn(state memoryState, prefix string) string {
	latest := ""
	for _, inv := range state.invoices {
		if strings.HasPrefix(inv.Number, prefix) && inv.Number > latest {
			latest = inv.Number
		}
	}
	return latest
}

type memoryTx struct {
	repo  *memoryRepo
	state *memoryState
}

func (tx *memoryTx) LatestInvoiceNumber(ctx context.Context, prefix string) (string, error) {
	return latestIn(*tx.state, prefix), nil
}

func (tx *memoryTx) InsertInvoice(ctx context.Context, input NewInvoice) (Invoice, error) {
	if tx.repo.beforeInsertFn != nil {
		tx.repo.beforeInsertFn()
	}
	if tx.repo.conflicts > 0 {
		tx.repo.conflicts--
		return Invoice{}, fmt.Errorf("%w: %s", ErrNumberConflict, input.Number)
	}
	for _, inv := range tx.state.invoices {
		if inv.Number == input.Number {
			return Invoice{}, fmt.Errorf("%w: %s", ErrNumberConflict, input.Number)
		}
	}
	tx.state.nextInv++
	now := time.Now()
	inv := Invoice{
		ID:              tx.state.nextInv,
		Number:          input.Number,
		CustomerID:      input.Header.CustomerID,
		CustomerName:    input.Header.CustomerName,
		CustomerContact: input.Header.CustomerContact,
		InvoiceDate:     input.Header.InvoiceDate,
		DueDate:         input.Header.DueDate,
		Status:          StatusDraft,
		Notes:           input.Header.Notes,
		CreatedBy:       input.CreatedBy,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	tx.state.invoices[inv.ID] = inv
	return inv, nil
}

func (tx *memoryTx) InsertItem(ctx context.Context, invoiceID int64, item Item) (Item, error) {
	tx.repo.insertedItems++
	if tx.repo.failOnItem > 0 && tx.repo.insertedItems == tx.repo.failOnItem {
		return Item{}, shared.Store("invoices: insert item", errInjected)
	}
	if _, ok := tx.state.invoices[invoiceID]; !ok {
		return Item{}, shared.Store("invoices: insert item", errors.New("foreign key violation"))
	}
	tx.state.nextItem++
	item.ID = tx.state.nextItem
	item.InvoiceID = invoiceID
	tx.state.items[invoiceID] = append(tx.state.items[invoiceID], item)
	return item, nil
}

func (tx *memoryTx) DeleteItems(ctx context.Context, invoiceID int64) error {
	delete(tx.state.items, invoiceID)
	return nil
}

func (tx *memoryTx) UpdateTotal(ctx context.Context, invoiceID int64, total decimal.Decimal) error {
	inv := tx.state.invoices[invoiceID]
	inv.TotalAmount = total
	tx.state.invoices[invoiceID] = inv
	return nil
}

func (tx *memoryTx) SumItems(ctx context.Context, invoiceID int64) (decimal.Decimal, error) {
	sum := decimal.Zero
	for _, it := range tx.state.items[invoiceID] {
		sum = sum.Add(it.TotalPrice)
	}
	if tx.repo.corruptSum {
		sum = sum.Add(decimal.NewFromInt(1))
	}
	return sum, nil
}

func (tx *memoryTx) LockInvoice(ctx context.Context, id int64) (Invoice, error) {
	inv, ok := tx.state.invoices[id]
	if !ok {
		return Invoice{}, fmt.Errorf("invoices: %d: %w", id, shared.ErrNotFound)
	}
	return inv, nil
}

func (tx *memoryTx) UpdateStatus(ctx context.Context, id int64, status Status) error {
	inv := tx.state.invoices[id]
	inv.Status = status
	tx.state.invoices[id] = inv
	return nil
}

func (tx *memoryTx) UpdatePayment(ctx context.Context, id int64, paid decimal.Decimal, status Status) error {
	inv := tx.state.invoices[id]
	inv.PaidAmount = paid
	inv.Status = status
	tx.state.invoices[id] = inv
	return nil
}

func (tx *memoryTx) DeleteInvoice(ctx context.Context, id int64) error {
	if len(tx.state.items[id]) > 0 {
		return shared.Consistency("invoices: delete", "invoice %d still owns items", id)
	}
	delete(tx.state.invoices, id)
	return nil
}

func (tx *memoryTx) MarkOverdue(ctx context.Context, asOf time.Time) ([]int64, error) {
	var ids []int64
	for id, inv := range tx.state.invoices {
		if inv.Status == StatusSent && inv.DueDate.Before(asOf) {
			inv.Status = StatusOverdue
			tx.state.invoices[id] = inv
			ids = append(ids, id)
		}
	}
	return ids, nil
}

type memoryIdempotency struct {
	claims map[uuid.UUID]int64
}

func newMemoryIdempotency() *memoryIdempotency {
	return &memoryIdempotency{claims: map[uuid.UUID]int64{}}
}

func (m *memoryIdempotency) Claim(ctx context.Context, key uuid.UUID, scope string) (int64, bool, error) {
	id, ok := m.claims[key]
	if !ok {
		m.claims[key] = 0
		return 0, true, nil
	}
	if id == 0 {
		return 0, false, shared.ErrIdempotencyInFlight
	}
	return id, false, nil
}

func (m *memoryIdempotency) Complete(ctx context.Context, key uuid.UUID, resourceID int64) error {
	m.claims[key] = resourceID
	return nil
}

func (m *memoryIdempotency) Release(ctx context.Context, key uuid.UUID) error {
	if m.claims[key] == 0 {
		delete(m.claims, key)
	}
	return nil
}
