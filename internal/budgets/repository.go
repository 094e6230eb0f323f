package budgets

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/coopledger/coopledger/internal/platform/db"
	"github.com/coopledger/coopledger/internal/shared"
)

// Repository provides PostgreSQL backed persistence for budgets.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

var _ RepositoryPort = (*Repository)(nil)

// AccountsByCategory lists the accounts a report may contain.
func (r *Repository) AccountsByCategory(ctx context.Context, category Category) ([]AccountRef, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, code, name, category FROM accounts WHERE category = $1 ORDER BY code`, category)
	if err != nil {
		return nil, shared.Store("budgets: accounts", err)
	}
	refs, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (AccountRef, error) {
		var ref AccountRef
		err := row.Scan(&ref.ID, &ref.Code, &ref.Name, &ref.Category)
		return ref, err
	})
	if err != nil {
		return nil, shared.Store("budgets: accounts", err)
	}
	return refs, nil
}

// GetAccountRef loads a single account reference.
func (r *Repository) GetAccountRef(ctx context.Context, id int64) (AccountRef, error) {
	var ref AccountRef
	err := r.pool.QueryRow(ctx, `SELECT id, code, name, category FROM accounts WHERE id = $1`, id).
		Scan(&ref.ID, &ref.Code, &ref.Name, &ref.Category)
	if errors.Is(err, pgx.ErrNoRows) {
		return AccountRef{}, fmt.Errorf("budgets: account %d: %w", id, shared.ErrNotFound)
	}
	if err != nil {
		return AccountRef{}, shared.Store("budgets: account", err)
	}
	return ref, nil
}

// BudgetAmounts returns the budgeted amount per account of category.
func (r *Repository) BudgetAmounts(ctx context.Context, period shared.Period, category Category) (map[int64]decimal.Decimal, error) {
	rows, err := r.pool.Query(ctx, `SELECT b.account_id, b.amount
FROM budgets b
JOIN accounts a ON a.id = b.account_id
WHERE b.year = $1 AND b.month = $2 AND a.category = $3`, period.Year, int(period.Month), category)
	if err != nil {
		return nil, shared.Store("budgets: amounts", err)
	}
	defer rows.Close()
	out := make(map[int64]decimal.Decimal)
	for rows.Next() {
		var (
			accountID int64
			amount    decimal.Decimal
		)
		if err := rows.Scan(&accountID, &amount); err != nil {
			return nil, shared.Store("budgets: scan amount", err)
		}
		out[accountID] = amount
	}
	if err := rows.Err(); err != nil {
		return nil, shared.Store("budgets: amounts", err)
	}
	return out, nil
}

const budgetSelect = `SELECT b.id, b.year, b.month, b.account_id, a.code, a.name, a.category, b.amount, b.created_by, b.updated_at
FROM budgets b
JOIN accounts a ON a.id = b.account_id`

func scanBudget(row pgx.Row) (Budget, error) {
	var b Budget
	err := row.Scan(&b.ID, &b.Year, &b.Month, &b.AccountID, &b.AccountCode, &b.AccountName, &b.Category, &b.Amount, &b.CreatedBy, &b.UpdatedAt)
	return b, err
}

// ListBudgets returns the budgets of a period ordered by account code.
func (r *Repository) ListBudgets(ctx context.Context, period shared.Period) ([]Budget, error) {
	rows, err := r.pool.Query(ctx, budgetSelect+` WHERE b.year = $1 AND b.month = $2 ORDER BY a.code`, period.Year, int(period.Month))
	if err != nil {
		return nil, shared.Store("budgets: list", err)
	}
	defer rows.Close()
	var out []Budget
	for rows.Next() {
		b, err := scanBudget(rows)
		if err != nil {
			return nil, shared.Store("budgets: scan", err)
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, shared.Store("budgets: list", err)
	}
	return out, nil
}

// UpsertBudget writes the single budget row of (period, account).
func (r *Repository) UpsertBudget(ctx context.Context, actorID int64, input SetBudgetInput) (Budget, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `INSERT INTO budgets (year, month, account_id, amount, created_by, updated_at)
VALUES ($1, $2, $3, $4, $5, NOW())
ON CONFLICT ON CONSTRAINT budgets_period_account_key
DO UPDATE SET amount = EXCLUDED.amount, created_by = EXCLUDED.created_by, updated_at = NOW()
RETURNING id`, input.Period.Year, int(input.Period.Month), input.AccountID, input.Amount, actorID).Scan(&id)
	if db.IsForeignKeyViolation(err) {
		return Budget{}, fmt.Errorf("budgets: account %d: %w", input.AccountID, shared.ErrNotFound)
	}
	if err != nil {
		return Budget{}, shared.Store("budgets: upsert", err)
	}
	b, err := scanBudget(r.pool.QueryRow(ctx, budgetSelect+` WHERE b.id = $1`, id))
	if err != nil {
		return Budget{}, shared.Store("budgets: reload", err)
	}
	return b, nil
}
