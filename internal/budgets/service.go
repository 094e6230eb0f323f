package budgets

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"

	"github.com/coopledger/coopledger/internal/shared"
	"github.com/coopledger/coopledger/internal/transactions"
)

// RepositoryPort defines data access methods for budgets.
type RepositoryPort interface {
	AccountsByCategory(ctx context.Context, category Category) ([]AccountRef, error)
	GetAccountRef(ctx context.Context, id int64) (AccountRef, error)
	BudgetAmounts(ctx context.Context, period shared.Period, category Category) (map[int64]decimal.Decimal, error)
	ListBudgets(ctx context.Context, period shared.Period) ([]Budget, error)
	UpsertBudget(ctx context.Context, actorID int64, input SetBudgetInput) (Budget, error)
}

// ActualsPort supplies posted figures. transactions.Service implements it so
// every report shares the same period convention.
type ActualsPort interface {
	AccountTotals(ctx context.Context, period shared.Period, typ transactions.Type) (map[int64]decimal.Decimal, error)
	PeriodSummary(ctx context.Context, period shared.Period) (transactions.Summary, error)
}

// Service computes budget variance reports.
type Service struct {
	repo    RepositoryPort
	actuals ActualsPort
	cache   *Cache
	audit   shared.Auditor
	logger  *slog.Logger
	group   singleflight.Group
	now     func() time.Time
}

// NewService builds Service instance. cache may be nil.
func NewService(repo RepositoryPort, actuals ActualsPort, cache *Cache, audit shared.Auditor, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, actuals: actuals, cache: cache, audit: audit, logger: logger, now: time.Now}
}

func actualType(category Category) transactions.Type {
	if category == CategoryRevenue {
		return transactions.TypeIncome
	}
	return transactions.TypeExpense
}

// ComputeVariance compares budgets with posted actuals for one category.
func (s *Service) ComputeVariance(ctx context.Context, period shared.Period, category Category) (Report, error) {
	if err := period.Validate(); err != nil {
		return Report{}, err
	}
	if !category.Valid() {
		return Report{}, shared.Validation("category", "must be revenue or expense")
	}
	var report Report
	err := s.cached(ctx, &report, func(ctx context.Context) (any, error) {
		return s.buildVariance(ctx, period, category)
	}, "variance", string(category), period.String())
	return report, err
}

func (s *Service) buildVariance(ctx context.Context, period shared.Period, category Category) (Report, error) {
	accounts, err := s.repo.AccountsByCategory(ctx, category)
	if err != nil {
		return Report{}, err
	}
	budgets, err := s.repo.BudgetAmounts(ctx, period, category)
	if err != nil {
		return Report{}, err
	}
	actuals, err := s.actuals.AccountTotals(ctx, period, actualType(category))
	if err != nil {
		return Report{}, err
	}
	return BuildReport(period.String(), category, accounts, budgets, actuals), nil
}

// NetVariance compares planned and actual net profit for the period.
func (s *Service) NetVariance(ctx context.Context, period shared.Period) (NetReport, error) {
	if err := period.Validate(); err != nil {
		return NetReport{}, err
	}
	var report NetReport
	err := s.cached(ctx, &report, func(ctx context.Context) (any, error) {
		return s.buildNet(ctx, period)
	}, "net", period.String())
	return report, err
}

func (s *Service) buildNet(ctx context.Context, period shared.Period) (NetReport, error) {
	revenue, err := s.repo.BudgetAmounts(ctx, period, CategoryRevenue)
	if err != nil {
		return NetReport{}, err
	}
	expense, err := s.repo.BudgetAmounts(ctx, period, CategoryExpense)
	if err != nil {
		return NetReport{}, err
	}
	summary, err := s.actuals.PeriodSummary(ctx, period)
	if err != nil {
		return NetReport{}, err
	}
	return ComputeNet(period.String(), sum(revenue), sum(expense), summary.Income, summary.Expense), nil
}

func sum(values map[int64]decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, v := range values {
		total = total.Add(v)
	}
	return total
}

// cached collapses concurrent builds of the same report and serves it from
// Redis when possible. A failing cache degrades to a direct build.
func (s *Service) cached(ctx context.Context, dest any, build func(context.Context) (any, error), parts ...string) error {
	key, err := s.cache.BuildKey(ctx, parts...)
	if err != nil {
		s.logger.Warn("report cache unavailable", slog.Any("error", err))
		return s.direct(ctx, dest, build)
	}
	raw, err, _ := s.group.Do(key, func() (any, error) {
		return s.cache.Fetch(ctx, key, build)
	})
	if err != nil {
		if shared.IsKind(err) {
			return err
		}
		s.logger.Warn("report cache fetch", slog.String("key", key), slog.Any("error", err))
		return s.direct(ctx, dest, build)
	}
	return json.Unmarshal(raw.([]byte), dest)
}

func (s *Service) direct(ctx context.Context, dest any, build func(context.Context) (any, error)) error {
	value, err := build(ctx)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, dest)
}

// Invalidate drops cached reports.
func (s *Service) Invalidate(ctx context.Context) error {
	return s.cache.Bump(ctx)
}

// SetBudget records the planned amount for an account and period, replacing
// any previous amount.
func (s *Service) SetBudget(ctx context.Context, actorID int64, input SetBudgetInput) (Budget, error) {
	if actorID <= 0 {
		return Budget{}, shared.Validation("actor", "required")
	}
	if err := input.Validate(); err != nil {
		return Budget{}, err
	}
	acc, err := s.repo.GetAccountRef(ctx, input.AccountID)
	if err != nil {
		return Budget{}, err
	}
	if !acc.Category.Valid() {
		return Budget{}, shared.Validation("account_id", fmt.Sprintf("%s is not a revenue or expense account", acc.Code))
	}
	budget, err := s.repo.UpsertBudget(ctx, actorID, input)
	if err != nil {
		return Budget{}, err
	}
	if err := s.cache.Bump(ctx); err != nil {
		s.logger.Warn("invalidate report cache", slog.Any("error", err))
	}
	if s.audit != nil {
		if err := s.audit.Record(ctx, shared.AuditEntry{
			ActorID:  actorID,
			Action:   shared.AuditBudgetSet,
			Entity:   "budget",
			EntityID: budget.ID,
			Meta:     map[string]any{"period": input.Period.String(), "account_id": input.AccountID, "amount": input.Amount.StringFixed(2)},
			At:       s.now(),
		}); err != nil {
			s.logger.Warn("audit budget", slog.Int64("budget_id", budget.ID), slog.Any("error", err))
		}
	}
	return budget, nil
}

// ListBudgets returns the budgets of a period.
func (s *Service) ListBudgets(ctx context.Context, period shared.Period) ([]Budget, error) {
	if err := period.Validate(); err != nil {
		return nil, err
	}
	return s.repo.ListBudgets(ctx, period)
}
