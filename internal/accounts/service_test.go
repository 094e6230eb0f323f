package accounts

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/coopledger/coopledger/internal/shared"
)

type memoryAccountRepo struct {
	accounts map[int64]Account
	nextID   int64
}

func newMemoryAccountRepo() *memoryAccountRepo {
	return &memoryAccountRepo{accounts: make(map[int64]Account)}
}

func (r *memoryAccountRepo) InsertAccount(ctx context.Context, actorID int64, input CreateAccountInput) (Account, error) {
	for _, acc := range r.accounts {
		if acc.Code == input.Code {
			return Account{}, fmt.Errorf("accounts: duplicate: %w", shared.ErrConflict)
		}
	}
	r.nextID++
	acc := Account{ID: r.nextID, Code: input.Code, Name: input.Name, Category: input.Category, CreatedBy: actorID, CreatedAt: time.Now()}
	r.accounts[acc.ID] = acc
	return acc, nil
}

func (r *memoryAccountRepo) GetAccount(ctx context.Context, id int64) (Account, error) {
	acc, ok := r.accounts[id]
	if !ok {
		return Account{}, shared.ErrNotFound
	}
	return acc, nil
}

func (r *memoryAccountRepo) ListAccounts(ctx context.Context, category Category) ([]Account, error) {
	var out []Account
	for id := int64(1); id <= r.nextID; id++ {
		acc, ok := r.accounts[id]
		if !ok || (category != "" && acc.Category != category) {
			continue
		}
		out = append(out, acc)
	}
	return out, nil
}

type recordingAuditor struct {
	entries []shared.AuditEntry
}

func (a *recordingAuditor) Record(ctx context.Context, entry shared.AuditEntry) error {
	a.entries = append(a.entries, entry)
	return nil
}

func TestCreateAccountNormalisesInput(t *testing.T) {
	audit := &recordingAuditor{}
	svc := NewService(newMemoryAccountRepo(), audit, nil)

	acc, err := svc.CreateAccount(context.Background(), 7, CreateAccountInput{Code: " feed ", Name: " Feed ", Category: "Expense"})
	require.NoError(t, err)
	require.Equal(t, "FEED", acc.Code)
	require.Equal(t, "Feed", acc.Name)
	require.Equal(t, CategoryExpense, acc.Category)
	require.Equal(t, int64(7), acc.CreatedBy)

	require.Len(t, audit.entries, 1)
	require.Equal(t, shared.AuditAccountCreate, audit.entries[0].Action)
	require.Equal(t, acc.ID, audit.entries[0].EntityID)
}

func TestCreateAccountValidation(t *testing.T) {
	svc := NewService(newMemoryAccountRepo(), nil, nil)
	ctx := context.Background()

	_, err := svc.CreateAccount(ctx, 0, CreateAccountInput{Code: "X", Name: "X", Category: CategoryAsset})
	require.ErrorIs(t, err, shared.ErrValidation)

	_, err = svc.CreateAccount(ctx, 1, CreateAccountInput{Code: "X", Name: "X", Category: "income"})
	require.ErrorIs(t, err, shared.ErrValidation)

	_, err = svc.CreateAccount(ctx, 1, CreateAccountInput{Code: "", Name: "X", Category: CategoryAsset})
	require.ErrorIs(t, err, shared.ErrValidation)

	_, err = svc.CreateAccount(ctx, 1, CreateAccountInput{Code: "EGG", Name: "Egg Sales", Category: CategoryRevenue})
	require.NoError(t, err)
	_, err = svc.CreateAccount(ctx, 1, CreateAccountInput{Code: "egg", Name: "Egg Sales 2", Category: CategoryRevenue})
	require.ErrorIs(t, err, shared.ErrConflict)
}

func TestListAccountsFiltersCategory(t *testing.T) {
	svc := NewService(newMemoryAccountRepo(), nil, nil)
	ctx := context.Background()
	for _, in := range []CreateAccountInput{
		{Code: "CASH", Name: "Cash", Category: CategoryAsset},
		{Code: "EGG", Name: "Egg Sales", Category: CategoryRevenue},
		{Code: "FEED", Name: "Feed", Category: CategoryExpense},
	} {
		_, err := svc.CreateAccount(ctx, 1, in)
		require.NoError(t, err)
	}

	all, err := svc.ListAccounts(ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 3)

	expense, err := svc.ListAccounts(ctx, CategoryExpense)
	require.NoError(t, err)
	require.Len(t, expense, 1)
	require.Equal(t, "FEED", expense[0].Code)

	_, err = svc.ListAccounts(ctx, "bogus")
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestHandlerCreateRequiresActor(t *testing.T) {
	svc := NewService(newMemoryAccountRepo(), nil, nil)
	h := NewHandler(nil, svc)
	r := chi.NewRouter()
	r.Route("/accounts", h.MountRoutes)

	body := `{"code":"FEED","name":"Feed","category":"expense"}`
	req := httptest.NewRequest(http.MethodPost, "/accounts/", strings.NewReader(body))
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	require.Equal(t, http.StatusUnauthorized, rr.Code)

	req = httptest.NewRequest(http.MethodPost, "/accounts/", strings.NewReader(body))
	req = req.WithContext(shared.ContextWithActor(req.Context(), shared.Actor{ID: 3}))
	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	require.Equal(t, http.StatusCreated, rr.Code)
	require.Contains(t, rr.Body.String(), `"code":"FEED"`)

	req = httptest.NewRequest(http.MethodPost, "/accounts/", strings.NewReader(`{"code":"X","name":"X","category":"income"}`))
	req = req.WithContext(shared.ContextWithActor(req.Context(), shared.Actor{ID: 3}))
	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	require.Equal(t, http.StatusBadRequest, rr.Code)
}
