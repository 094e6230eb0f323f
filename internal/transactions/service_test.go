package transactions

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/coopledger/coopledger/internal/shared"
)

type memoryTxnRepo struct {
	mu       sync.Mutex
	accounts map[int64]bool
	rows     []Transaction
	failSums bool
}

func newMemoryTxnRepo(accountIDs ...int64) *memoryTxnRepo {
	repo := &memoryTxnRepo{accounts: map[int64]bool{}}
	for _, id := range accountIDs {
		repo.accounts[id] = true
	}
	return repo
}

func (r *memoryTxnRepo) AccountExists(ctx context.Context, id int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.accounts[id], nil
}

func (r *memoryTxnRepo) InsertTransaction(ctx context.Context, actorID int64, input RecordInput) (Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	txn := Transaction{
		ID:            int64(len(r.rows) + 1),
		Date:          input.Date,
		Type:          input.Type,
		Amount:        input.Amount,
		AccountID:     input.AccountID,
		Description:   input.Description,
		PaymentMethod: input.PaymentMethod,
		Status:        StatusCompleted,
		CreatedBy:     actorID,
		CreatedAt:     time.Now(),
	}
	r.rows = append(r.rows, txn)
	return txn, nil
}

func inRange(d, from, to time.Time) bool {
	return !d.Before(from) && !d.After(to.AddDate(0, 0, 1).Add(-time.Nanosecond))
}

func (r *memoryTxnRepo) SumByType(ctx context.Context, from, to time.Time) (map[Type]decimal.Decimal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failSums {
		return nil, shared.Store("transactions: sum by type", errors.New("connection refused"))
	}
	out := map[Type]decimal.Decimal{}
	for _, t := range r.rows {
		if inRange(t.Date, from, to) {
			out[t.Type] = out[t.Type].Add(t.Amount)
		}
	}
	return out, nil
}

func (r *memoryTxnRepo) SumByAccount(ctx context.Context, from, to time.Time, typ Type) (map[int64]decimal.Decimal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := map[int64]decimal.Decimal{}
	for _, t := range r.rows {
		if t.Type == typ && inRange(t.Date, from, to) {
			out[t.AccountID] = out[t.AccountID].Add(t.Amount)
		}
	}
	return out, nil
}

func (r *memoryTxnRepo) ListTransactions(ctx context.Context, filter ListFilter) ([]Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Transaction
	for _, t := range r.rows {
		if filter.Period != nil && !filter.Period.Contains(t.Date) {
			continue
		}
		if filter.Type != "" && t.Type != filter.Type {
			continue
		}
		if filter.AccountID > 0 && t.AccountID != filter.AccountID {
			continue
		}
		out = append(out, t)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	if filter.Offset >= len(out) {
		return nil, nil
	}
	out = out[filter.Offset:]
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

type countingInvalidator struct {
	bumps int
}

func (c *countingInvalidator) Bump(ctx context.Context) error {
	c.bumps++
	return nil
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestRecordTransactionRejectsNonPositiveAmount(t *testing.T) {
	repo := newMemoryTxnRepo(1)
	inv := &countingInvalidator{}
	svc := NewService(repo, nil, inv, nil)

	for _, amount := range []string{"0", "-0.01", "-250"} {
		_, err := svc.RecordTransaction(context.Background(), 1, RecordInput{
			Date: day(2024, time.March, 2), Type: TypeExpense, Amount: decimal.RequireFromString(amount), AccountID: 1,
		})
		require.ErrorIs(t, err, shared.ErrValidation, amount)
	}
	require.Empty(t, repo.rows)
	require.Zero(t, inv.bumps)
}

func TestRecordTransactionDefaults(t *testing.T) {
	repo := newMemoryTxnRepo(4)
	inv := &countingInvalidator{}
	svc := NewService(repo, nil, inv, nil)

	txn, err := svc.RecordTransaction(context.Background(), 2, RecordInput{
		Date: day(2024, time.March, 2), Type: "Income", Amount: decimal.RequireFromString("120.50"), AccountID: 4,
		Description: " egg sales ",
	})
	require.NoError(t, err)
	require.Equal(t, TypeIncome, txn.Type)
	require.Equal(t, DefaultPaymentMethod, txn.PaymentMethod)
	require.Equal(t, StatusCompleted, txn.Status)
	require.Equal(t, "egg sales", txn.Description)
	require.Equal(t, int64(2), txn.CreatedBy)
	require.Equal(t, 1, inv.bumps)

	_, err = svc.RecordTransaction(context.Background(), 2, RecordInput{
		Date: day(2024, time.March, 2), Type: TypeIncome, Amount: decimal.NewFromInt(1), AccountID: 99,
	})
	require.ErrorIs(t, err, shared.ErrValidation)

	_, err = svc.RecordTransaction(context.Background(), 2, RecordInput{
		Date: day(2024, time.March, 2), Type: "refund", Amount: decimal.NewFromInt(1), AccountID: 4,
	})
	require.ErrorIs(t, err, shared.ErrValidation)
	require.Len(t, repo.rows, 1)
}

func seed(t *testing.T, svc *Service) {
	t.Helper()
	rows := []RecordInput{
		{Date: day(2024, time.February, 29), Type: TypeIncome, Amount: decimal.RequireFromString("50.00"), AccountID: 1},
		{Date: day(2024, time.March, 1), Type: TypeIncome, Amount: decimal.RequireFromString("400.00"), AccountID: 1},
		{Date: day(2024, time.March, 31), Type: TypeIncome, Amount: decimal.RequireFromString("250.00"), AccountID: 1},
		{Date: day(2024, time.March, 15), Type: TypeExpense, Amount: decimal.RequireFromString("800.00"), AccountID: 2},
		{Date: day(2024, time.March, 16), Type: TypeTransfer, Amount: decimal.RequireFromString("999.00"), AccountID: 3},
		{Date: day(2024, time.April, 1), Type: TypeExpense, Amount: decimal.RequireFromString("75.00"), AccountID: 2},
	}
	for _, in := range rows {
		_, err := svc.RecordTransaction(context.Background(), 1, in)
		require.NoError(t, err)
	}
}

func TestPeriodSummaryInclusiveBoundaries(t *testing.T) {
	svc := NewService(newMemoryTxnRepo(1, 2, 3), nil, nil, nil)
	seed(t, svc)

	summary, err := svc.PeriodSummary(context.Background(), shared.Period{Year: 2024, Month: time.March})
	require.NoError(t, err)
	require.Equal(t, "2024-03", summary.Period)
	require.Equal(t, "650.00", summary.Income.StringFixed(2))
	require.Equal(t, "800.00", summary.Expense.StringFixed(2))
	require.Equal(t, "-150.00", summary.Net.StringFixed(2))

	totals, err := svc.AccountTotals(context.Background(), shared.Period{Year: 2024, Month: time.March}, TypeExpense)
	require.NoError(t, err)
	require.Equal(t, "800.00", totals[2].StringFixed(2))
	require.NotContains(t, totals, int64(1))
}

func TestListTransactionsLimitOffset(t *testing.T) {
	svc := NewService(newMemoryTxnRepo(1, 2, 3), nil, nil, nil)
	seed(t, svc)
	march := shared.Period{Year: 2024, Month: time.March}

	first, err := svc.ListTransactions(context.Background(), ListFilter{Period: &march, Limit: 3})
	require.NoError(t, err)
	require.Len(t, first, 3)
	require.Equal(t, day(2024, time.March, 31), first[0].Date)

	rest, err := svc.ListTransactions(context.Background(), ListFilter{Period: &march, Limit: 3, Offset: 3})
	require.NoError(t, err)
	require.Len(t, rest, 1)
	require.Equal(t, day(2024, time.March, 1), rest[0].Date)

	_, err = svc.ListTransactions(context.Background(), ListFilter{Type: "refund"})
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestTrendOrdersOldestFirst(t *testing.T) {
	svc := NewService(newMemoryTxnRepo(1, 2, 3), nil, nil, nil)
	seed(t, svc)

	trend, err := svc.Trend(context.Background(), shared.Period{Year: 2024, Month: time.April}, 3)
	require.NoError(t, err)
	require.Len(t, trend, 3)
	require.Equal(t, "2024-02", trend[0].Period)
	require.Equal(t, "50.00", trend[0].Income.StringFixed(2))
	require.Equal(t, "2024-04", trend[2].Period)
	require.Equal(t, "-75.00", trend[2].Net.StringFixed(2))

	_, err = svc.Trend(context.Background(), shared.Period{Year: 2024, Month: time.April}, 0)
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestTrendPropagatesStoreError(t *testing.T) {
	repo := newMemoryTxnRepo()
	repo.failSums = true
	svc := NewService(repo, nil, nil, nil)

	_, err := svc.Trend(context.Background(), shared.Period{Year: 2024, Month: time.April}, 6)
	require.ErrorIs(t, err, shared.ErrStore)
}

func TestHandlerRecordAndSummary(t *testing.T) {
	svc := NewService(newMemoryTxnRepo(1), nil, nil, nil)
	h := NewHandler(nil, svc)
	r := chi.NewRouter()
	r.Route("/transactions", h.MountRoutes)

	body := `{"date":"2024-03-05","type":"income","amount":"30.00","account_id":1}`
	req := httptest.NewRequest(http.MethodPost, "/transactions/", strings.NewReader(body))
	req = req.WithContext(shared.ContextWithActor(req.Context(), shared.Actor{ID: 5}))
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	neg := `{"date":"2024-03-05","type":"income","amount":"-3","account_id":1}`
	req = httptest.NewRequest(http.MethodPost, "/transactions/", strings.NewReader(neg))
	req = req.WithContext(shared.ContextWithActor(req.Context(), shared.Actor{ID: 5}))
	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	require.Equal(t, http.StatusBadRequest, rr.Code)

	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/transactions/summary?period=2024-03", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	require.Contains(t, rr.Body.String(), `"income":"30"`)
}
