package invoices

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/coopledger/coopledger/internal/platform/db"
	"github.com/coopledger/coopledger/internal/shared"
)

type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repository provides PostgreSQL backed persistence for invoices.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

var _ RepositoryPort = (*Repository)(nil)
var _ TxRepository = (*txRepository)(nil)

// WithTx runs fn in a serializable transaction. Losing a numbering race is
// reported as ErrNumberConflict so the caller can replay the unit of work.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	err := db.WithTx(ctx, r.pool, pgx.Serializable, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{q: tx})
	})
	return classifyTxError(err)
}

// classifyTxError keeps ledger error kinds intact and turns numbering races
// into ErrNumberConflict. Anything else is a store failure.
func classifyTxError(err error) error {
	if err == nil || errors.Is(err, ErrNumberConflict) {
		return err
	}
	if db.IsUniqueViolation(err, "invoices_invoice_number_key") || db.IsSerializationFailure(err) {
		return fmt.Errorf("%w: %v", ErrNumberConflict, err)
	}
	return shared.Store("invoices: tx", err)
}

// LatestInvoiceNumber returns the highest number issued under prefix.
func (r *Repository) LatestInvoiceNumber(ctx context.Context, prefix string) (string, error) {
	return latestInvoiceNumber(ctx, r.pool, prefix)
}

// GetInvoice loads an invoice and its items.
func (r *Repository) GetInvoice(ctx context.Context, id int64) (Invoice, error) {
	inv, err := scanInvoice(r.pool.QueryRow(ctx, `SELECT `+invoiceColumns+` FROM invoices WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Invoice{}, fmt.Errorf("invoices: %d: %w", id, shared.ErrNotFound)
	}
	if err != nil {
		return Invoice{}, shared.Store("invoices: get", err)
	}
	items, err := r.listItems(ctx, id)
	if err != nil {
		return Invoice{}, err
	}
	inv.Items = items
	return inv, nil
}

// ListInvoices returns headers ordered by newest number first.
func (r *Repository) ListInvoices(ctx context.Context, filter ListFilter) ([]Invoice, error) {
	var (
		where []string
		args  []any
	)
	if filter.Status != "" {
		args = append(args, filter.Status)
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.Period != nil {
		args = append(args, filter.Period.Start(), filter.Period.End())
		where = append(where, fmt.Sprintf("invoice_date BETWEEN $%d AND $%d", len(args)-1, len(args)))
	}
	query := `SELECT ` + invoiceColumns + ` FROM invoices`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	args = append(args, filter.Limit)
	query += fmt.Sprintf(` ORDER BY invoice_number DESC LIMIT $%d`, len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, shared.Store("invoices: list", err)
	}
	defer rows.Close()
	var out []Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, shared.Store("invoices: scan", err)
		}
		out = append(out, inv)
	}
	if err := rows.Err(); err != nil {
		return nil, shared.Store("invoices: list", err)
	}
	return out, nil
}

func (r *Repository) listItems(ctx context.Context, invoiceID int64) ([]Item, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, invoice_id, item_type, description, quantity, unit_price, total_price
FROM invoice_items WHERE invoice_id = $1 ORDER BY id`, invoiceID)
	if err != nil {
		return nil, shared.Store("invoices: items", err)
	}
	defer rows.Close()
	var items []Item
	for rows.Next() {
		var it Item
		if err := rows.Scan(&it.ID, &it.InvoiceID, &it.ItemType, &it.Description, &it.Quantity, &it.UnitPrice, &it.TotalPrice); err != nil {
			return nil, shared.Store("invoices: scan item", err)
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, shared.Store("invoices: items", err)
	}
	return items, nil
}

type txRepository struct {
	q querier
}

func (tx *txRepository) LatestInvoiceNumber(ctx context.Context, prefix string) (string, error) {
	return latestInvoiceNumber(ctx, tx.q, prefix)
}

func (tx *txRepository) InsertInvoice(ctx context.Context, input NewInvoice) (Invoice, error) {
	h := input.Header
	inv := Invoice{
		Number:          input.Number,
		CustomerID:      h.CustomerID,
		CustomerName:    h.CustomerName,
		CustomerContact: h.CustomerContact,
		InvoiceDate:     h.InvoiceDate,
		DueDate:         h.DueDate,
		TotalAmount:     decimal.Zero,
		PaidAmount:      decimal.Zero,
		Status:          StatusDraft,
		Notes:           h.Notes,
		CreatedBy:       input.CreatedBy,
	}
	err := tx.q.QueryRow(ctx, `INSERT INTO invoices (invoice_number, customer_id, customer_name, customer_contact,
    invoice_date, due_date, total_amount, paid_amount, status, notes, created_by)
VALUES ($1, $2, $3, $4, $5, $6, 0, 0, 'draft', $7, $8)
RETURNING id, created_at, updated_at`,
		input.Number, h.CustomerID, h.CustomerName, h.CustomerContact, h.InvoiceDate, h.DueDate, h.Notes, input.CreatedBy,
	).Scan(&inv.ID, &inv.CreatedAt, &inv.UpdatedAt)
	if db.IsUniqueViolation(err, "invoices_invoice_number_key") {
		return Invoice{}, fmt.Errorf("%w: %s", ErrNumberConflict, input.Number)
	}
	if err != nil {
		return Invoice{}, shared.Store("invoices: insert", err)
	}
	return inv, nil
}

func (tx *txRepository) InsertItem(ctx context.Context, invoiceID int64, item Item) (Item, error) {
	item.InvoiceID = invoiceID
	err := tx.q.QueryRow(ctx, `INSERT INTO invoice_items (invoice_id, item_type, description, quantity, unit_price, total_price)
VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
		invoiceID, item.ItemType, item.Description, item.Quantity, item.UnitPrice, item.TotalPrice,
	).Scan(&item.ID)
	if err != nil {
		return Item{}, shared.Store("invoices: insert item", err)
	}
	return item, nil
}

func (tx *txRepository) DeleteItems(ctx context.Context, invoiceID int64) error {
	_, err := tx.q.Exec(ctx, `DELETE FROM invoice_items WHERE invoice_id = $1`, invoiceID)
	return shared.Store("invoices: delete items", err)
}

func (tx *txRepository) UpdateTotal(ctx context.Context, invoiceID int64, total decimal.Decimal) error {
	_, err := tx.q.Exec(ctx, `UPDATE invoices SET total_amount = $2, updated_at = NOW() WHERE id = $1`, invoiceID, total)
	return shared.Store("invoices: update total", err)
}

func (tx *txRepository) SumItems(ctx context.Context, invoiceID int64) (decimal.Decimal, error) {
	var sum decimal.Decimal
	err := tx.q.QueryRow(ctx, `SELECT COALESCE(SUM(total_price), 0) FROM invoice_items WHERE invoice_id = $1`, invoiceID).Scan(&sum)
	if err != nil {
		return decimal.Zero, shared.Store("invoices: sum items", err)
	}
	return sum, nil
}

func (tx *txRepository) LockInvoice(ctx context.Context, id int64) (Invoice, error) {
	inv, err := scanInvoice(tx.q.QueryRow(ctx, `SELECT `+invoiceColumns+` FROM invoices WHERE id = $1 FOR UPDATE`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Invoice{}, fmt.Errorf("invoices: %d: %w", id, shared.ErrNotFound)
	}
	if err != nil {
		return Invoice{}, shared.Store("invoices: lock", err)
	}
	return inv, nil
}

func (tx *txRepository) UpdateStatus(ctx context.Context, id int64, status Status) error {
	_, err := tx.q.Exec(ctx, `UPDATE invoices SET status = $2, updated_at = NOW() WHERE id = $1`, id, status)
	return shared.Store("invoices: update status", err)
}

func (tx *txRepository) UpdatePayment(ctx context.Context, id int64, paid decimal.Decimal, status Status) error {
	_, err := tx.q.Exec(ctx, `UPDATE invoices SET paid_amount = $2, status = $3, updated_at = NOW() WHERE id = $1`, id, paid, status)
	return shared.Store("invoices: update payment", err)
}

func (tx *txRepository) DeleteInvoice(ctx context.Context, id int64) error {
	_, err := tx.q.Exec(ctx, `DELETE FROM invoices WHERE id = $1`, id)
	if db.IsForeignKeyViolation(err) {
		return shared.Consistency("invoices: delete", "invoice %d still owns items", id)
	}
	return shared.Store("invoices: delete", err)
}

func (tx *txRepository) MarkOverdue(ctx context.Context, asOf time.Time) ([]int64, error) {
	rows, err := tx.q.Query(ctx, `UPDATE invoices SET status = 'overdue', updated_at = NOW()
WHERE status = 'sent' AND due_date < $1 RETURNING id`, asOf)
	if err != nil {
		return nil, shared.Store("invoices: mark overdue", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[int64])
	if err != nil {
		return nil, shared.Store("invoices: mark overdue", err)
	}
	return ids, nil
}

const invoiceColumns = `id, invoice_number, customer_id, customer_name, customer_contact, invoice_date, due_date,
    total_amount, paid_amount, status, notes, created_by, created_at, updated_at`

func scanInvoice(row pgx.Row) (Invoice, error) {
	var inv Invoice
	err := row.Scan(&inv.ID, &inv.Number, &inv.CustomerID, &inv.CustomerName, &inv.CustomerContact,
		&inv.InvoiceDate, &inv.DueDate, &inv.TotalAmount, &inv.PaidAmount, &inv.Status, &inv.Notes,
		&inv.CreatedBy, &inv.CreatedAt, &inv.UpdatedAt)
	return inv, err
}

// latestInvoiceNumber relies on the fixed-width suffix so lexical order
// matches sequence order within a prefix.
func latestInvoiceNumber(ctx context.Context, q querier, prefix string) (string, error) {
	var number string
	err := q.QueryRow(ctx, `SELECT invoice_number FROM invoices WHERE invoice_number LIKE $1
ORDER BY invoice_number DESC LIMIT 1`, prefix+"%").Scan(&number)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", shared.Store("invoices: latest number", err)
	}
	return number, nil
}
