package transactions

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/coopledger/coopledger/internal/platform/db"
	"github.com/coopledger/coopledger/internal/shared"
)

// Repository provides PostgreSQL backed persistence for transactions.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

var _ RepositoryPort = (*Repository)(nil)

// AccountExists reports whether the account id is known.
func (r *Repository) AccountExists(ctx context.Context, id int64) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM accounts WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return false, shared.Store("transactions: account lookup", err)
	}
	return exists, nil
}

// InsertTransaction posts a movement with status completed.
func (r *Repository) InsertTransaction(ctx context.Context, actorID int64, input RecordInput) (Transaction, error) {
	txn := Transaction{
		Date:          input.Date,
		Type:          input.Type,
		Amount:        input.Amount,
		AccountID:     input.AccountID,
		Description:   input.Description,
		PaymentMethod: input.PaymentMethod,
		Status:        StatusCompleted,
		CreatedBy:     actorID,
	}
	err := r.pool.QueryRow(ctx, `INSERT INTO transactions (txn_date, type, amount, account_id, description, payment_method, status, created_by)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id, created_at`,
		input.Date, input.Type, input.Amount, input.AccountID, input.Description, input.PaymentMethod, StatusCompleted, actorID,
	).Scan(&txn.ID, &txn.CreatedAt)
	switch {
	case db.IsCheckViolation(err):
		return Transaction{}, shared.Validation("amount", "must be greater than zero")
	case db.IsForeignKeyViolation(err):
		return Transaction{}, shared.Validation("account_id", "unknown account")
	case err != nil:
		return Transaction{}, shared.Store("transactions: insert", err)
	}
	return txn, nil
}

// SumByType totals completed movements per type between from and to
// inclusive.
func (r *Repository) SumByType(ctx context.Context, from, to time.Time) (map[Type]decimal.Decimal, error) {
	rows, err := r.pool.Query(ctx, `SELECT type, COALESCE(SUM(amount), 0)
FROM transactions
WHERE txn_date BETWEEN $1 AND $2 AND status = 'completed'
GROUP BY type`, from, to)
	if err != nil {
		return nil, shared.Store("transactions: sum by type", err)
	}
	defer rows.Close()
	out := make(map[Type]decimal.Decimal)
	for rows.Next() {
		var (
			typ Type
			sum decimal.Decimal
		)
		if err := rows.Scan(&typ, &sum); err != nil {
			return nil, shared.Store("transactions: scan sum", err)
		}
		out[typ] = sum
	}
	if err := rows.Err(); err != nil {
		return nil, shared.Store("transactions: sum by type", err)
	}
	return out, nil
}

// SumByAccount totals movements of typ per account between from and to
// inclusive.
func (r *Repository) SumByAccount(ctx context.Context, from, to time.Time, typ Type) (map[int64]decimal.Decimal, error) {
	rows, err := r.pool.Query(ctx, `SELECT account_id, COALESCE(SUM(amount), 0)
FROM transactions
WHERE txn_date BETWEEN $1 AND $2 AND type = $3 AND status = 'completed'
GROUP BY account_id`, from, to, typ)
	if err != nil {
		return nil, shared.Store("transactions: sum by account", err)
	}
	defer rows.Close()
	out := make(map[int64]decimal.Decimal)
	for rows.Next() {
		var (
			accountID int64
			sum       decimal.Decimal
		)
		if err := rows.Scan(&accountID, &sum); err != nil {
			return nil, shared.Store("transactions: scan sum", err)
		}
		out[accountID] = sum
	}
	if err := rows.Err(); err != nil {
		return nil, shared.Store("transactions: sum by account", err)
	}
	return out, nil
}

func filterClause(filter ListFilter) (string, []any) {
	var (
		where []string
		args  []any
	)
	if filter.Period != nil {
		args = append(args, filter.Period.Start(), filter.Period.End())
		where = append(where, fmt.Sprintf("txn_date BETWEEN $%d AND $%d", len(args)-1, len(args)))
	}
	if filter.Type != "" {
		args = append(args, filter.Type)
		where = append(where, fmt.Sprintf("type = $%d", len(args)))
	}
	if filter.AccountID > 0 {
		args = append(args, filter.AccountID)
		where = append(where, fmt.Sprintf("account_id = $%d", len(args)))
	}
	if len(where) == 0 {
		return "", args
	}
	return ` WHERE ` + strings.Join(where, " AND "), args
}

// ListTransactions returns movements matching filter, newest first.
func (r *Repository) ListTransactions(ctx context.Context, filter ListFilter) ([]Transaction, error) {
	where, args := filterClause(filter)
	query := `SELECT id, txn_date, type, amount, account_id, description, payment_method, status, created_by, created_at FROM transactions` + where
	args = append(args, filter.Limit, filter.Offset)
	query += fmt.Sprintf(` ORDER BY txn_date DESC, id DESC LIMIT $%d OFFSET $%d`, len(args)-1, len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, shared.Store("transactions: list", err)
	}
	defer rows.Close()
	var out []Transaction
	for rows.Next() {
		var t Transaction
		if err := rows.Scan(&t.ID, &t.Date, &t.Type, &t.Amount, &t.AccountID, &t.Description, &t.PaymentMethod, &t.Status, &t.CreatedBy, &t.CreatedAt); err != nil {
			return nil, shared.Store("transactions: scan", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, shared.Store("transactions: list", err)
	}
	return out, nil
}
