package accounts

import (
	"context"
	"log/slog"
	"time"

	"github.com/coopledger/coopledger/internal/shared"
)

// RepositoryPort defines data access methods for accounts.
type RepositoryPort interface {
	InsertAccount(ctx context.Context, actorID int64, input CreateAccountInput) (Account, error)
	GetAccount(ctx context.Context, id int64) (Account, error)
	ListAccounts(ctx context.Context, category Category) ([]Account, error)
}

// Service handles chart of accounts setup.
type Service struct {
	repo   RepositoryPort
	audit  shared.Auditor
	logger *slog.Logger
	now    func() time.Time
}

// NewService builds Service instance.
func NewService(repo RepositoryPort, audit shared.Auditor, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, audit: audit, logger: logger, now: time.Now}
}

// CreateAccount registers a new account.
func (s *Service) CreateAccount(ctx context.Context, actorID int64, input CreateAccountInput) (Account, error) {
	if actorID <= 0 {
		return Account{}, shared.Validation("actor", "required")
	}
	if err := input.Validate(); err != nil {
		return Account{}, err
	}
	acc, err := s.repo.InsertAccount(ctx, actorID, input)
	if err != nil {
		return Account{}, err
	}
	if s.audit != nil {
		if err := s.audit.Record(ctx, shared.AuditEntry{
			ActorID:  actorID,
			Action:   shared.AuditAccountCreate,
			Entity:   "account",
			EntityID: acc.ID,
			Meta:     map[string]any{"code": acc.Code, "category": acc.Category},
			At:       s.now(),
		}); err != nil {
			s.logger.Warn("audit account create", slog.Int64("account_id", acc.ID), slog.Any("error", err))
		}
	}
	return acc, nil
}

// GetAccount returns a single account.
func (s *Service) GetAccount(ctx context.Context, id int64) (Account, error) {
	if id <= 0 {
		return Account{}, shared.Validation("account_id", "required")
	}
	return s.repo.GetAccount(ctx, id)
}

// ListAccounts returns the chart of accounts.
func (s *Service) ListAccounts(ctx context.Context, category Category) ([]Account, error) {
	if category != "" && !category.Valid() {
		return nil, shared.Validation("category", "unknown category")
	}
	return s.repo.ListAccounts(ctx, category)
}
