package transactions

import (
	"context"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/coopledger/coopledger/internal/shared"
)

// RepositoryPort defines data access methods for transactions.
type RepositoryPort interface {
	AccountExists(ctx context.Context, id int64) (bool, error)
	InsertTransaction(ctx context.Context, actorID int64, input RecordInput) (Transaction, error)
	SumByType(ctx context.Context, from, to time.Time) (map[Type]decimal.Decimal, error)
	SumByAccount(ctx context.Context, from, to time.Time, typ Type) (map[int64]decimal.Decimal, error)
	ListTransactions(ctx context.Context, filter ListFilter) ([]Transaction, error)
}

// Invalidator is notified when posted figures change.
type Invalidator interface {
	Bump(ctx context.Context) error
}

// Service records and aggregates cash movements.
type Service struct {
	repo        RepositoryPort
	audit       shared.Auditor
	invalidator Invalidator
	logger      *slog.Logger
	now         func() time.Time
}

// NewService builds Service instance.
func NewService(repo RepositoryPort, audit shared.Auditor, invalidator Invalidator, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, audit: audit, invalidator: invalidator, logger: logger, now: time.Now}
}

// RecordTransaction validates and posts a movement.
func (s *Service) RecordTransaction(ctx context.Context, actorID int64, input RecordInput) (Transaction, error) {
	if actorID <= 0 {
		return Transaction{}, shared.Validation("actor", "required")
	}
	if err := input.Validate(); err != nil {
		return Transaction{}, err
	}
	exists, err := s.repo.AccountExists(ctx, input.AccountID)
	if err != nil {
		return Transaction{}, err
	}
	if !exists {
		return Transaction{}, shared.Validation("account_id", "unknown account")
	}
	txn, err := s.repo.InsertTransaction(ctx, actorID, input)
	if err != nil {
		return Transaction{}, err
	}
	if s.invalidator != nil {
		if err := s.invalidator.Bump(ctx); err != nil {
			s.logger.Warn("invalidate report cache", slog.Any("error", err))
		}
	}
	if s.audit != nil {
		if err := s.audit.Record(ctx, shared.AuditEntry{
			ActorID:  actorID,
			Action:   shared.AuditTransactionPost,
			Entity:   "transaction",
			EntityID: txn.ID,
			Meta:     map[string]any{"type": txn.Type, "amount": txn.Amount.StringFixed(2), "account_id": txn.AccountID},
			At:       s.now(),
		}); err != nil {
			s.logger.Warn("audit transaction", slog.Int64("transaction_id", txn.ID), slog.Any("error", err))
		}
	}
	return txn, nil
}

// PeriodSummary sums income and expense over the calendar month.
func (s *Service) PeriodSummary(ctx context.Context, period shared.Period) (Summary, error) {
	if err := period.Validate(); err != nil {
		return Summary{}, err
	}
	sums, err := s.repo.SumByType(ctx, period.Start(), period.End())
	if err != nil {
		return Summary{}, err
	}
	income := sums[TypeIncome]
	expense := sums[TypeExpense]
	return Summary{
		Period:  period.String(),
		Income:  income,
		Expense: expense,
		Net:     income.Sub(expense),
	}, nil
}

// AccountTotals sums movements of typ per account over the period.
func (s *Service) AccountTotals(ctx context.Context, period shared.Period, typ Type) (map[int64]decimal.Decimal, error) {
	if err := period.Validate(); err != nil {
		return nil, err
	}
	if !typ.Valid() {
		return nil, shared.Validation("type", "unknown type")
	}
	return s.repo.SumByAccount(ctx, period.Start(), period.End(), typ)
}

// ListTransactions returns movements newest first.
func (s *Service) ListTransactions(ctx context.Context, filter ListFilter) ([]Transaction, error) {
	if filter.Type != "" && !filter.Type.Valid() {
		return nil, shared.Validation("type", "unknown type")
	}
	if filter.Period != nil {
		if err := filter.Period.Validate(); err != nil {
			return nil, err
		}
	}
	if filter.Limit <= 0 || filter.Limit > 500 {
		filter.Limit = 100
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	return s.repo.ListTransactions(ctx, filter)
}

// Trend returns the summaries of the months periods ending at end, oldest
// first.
func (s *Service) Trend(ctx context.Context, end shared.Period, months int) ([]Summary, error) {
	if months <= 0 || months > 24 {
		return nil, shared.Validation("months", "must be between 1 and 24")
	}
	periods := make([]shared.Period, months)
	p := end
	for i := months - 1; i >= 0; i-- {
		periods[i] = p
		p = p.Prev()
	}

	out := make([]Summary, months)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for i, period := range periods {
		i, period := i, period
		g.Go(func() error {
			summary, err := s.PeriodSummary(gctx, period)
			if err != nil {
				return err
			}
			out[i] = summary
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
