package accounts

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/coopledger/coopledger/internal/platform/db"
	"github.com/coopledger/coopledger/internal/shared"
)

// Repository provides PostgreSQL backed persistence for accounts.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const accountColumns = `id, code, name, category, COALESCE(created_by, 0), created_at`

// InsertAccount stores a new account.
func (r *Repository) InsertAccount(ctx context.Context, actorID int64, input CreateAccountInput) (Account, error) {
	acc := Account{Code: input.Code, Name: input.Name, Category: input.Category, CreatedBy: actorID}
	err := r.pool.QueryRow(ctx, `INSERT INTO accounts (code, name, category, created_by)
VALUES ($1, $2, $3, $4) RETURNING id, created_at`, input.Code, input.Name, input.Category, actorID).Scan(&acc.ID, &acc.CreatedAt)
	if db.IsUniqueViolation(err, "accounts_code_key") {
		return Account{}, fmt.Errorf("accounts: code %s already exists: %w", input.Code, shared.ErrConflict)
	}
	if err != nil {
		return Account{}, shared.Store("accounts: insert", err)
	}
	return acc, nil
}

// GetAccount loads one account.
func (r *Repository) GetAccount(ctx context.Context, id int64) (Account, error) {
	var acc Account
	err := r.pool.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = $1`, id).
		Scan(&acc.ID, &acc.Code, &acc.Name, &acc.Category, &acc.CreatedBy, &acc.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Account{}, fmt.Errorf("accounts: %d: %w", id, shared.ErrNotFound)
	}
	if err != nil {
		return Account{}, shared.Store("accounts: get", err)
	}
	return acc, nil
}

// ListAccounts returns accounts ordered by code, optionally filtered.
func (r *Repository) ListAccounts(ctx context.Context, category Category) ([]Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts`
	args := []any{}
	if category != "" {
		query += ` WHERE category = $1`
		args = append(args, category)
	}
	query += ` ORDER BY code`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, shared.Store("accounts: list", err)
	}
	defer rows.Close()

	var out []Account
	for rows.Next() {
		var acc Account
		if err := rows.Scan(&acc.ID, &acc.Code, &acc.Name, &acc.Category, &acc.CreatedBy, &acc.CreatedAt); err != nil {
			return nil, shared.Store("accounts: scan", err)
		}
		out = append(out, acc)
	}
	if err := rows.Err(); err != nil {
		return nil, shared.Store("accounts: list", err)
	}
	return out, nil
}
