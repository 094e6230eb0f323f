package invoices

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/coopledger/coopledger/internal/shared"
)

// ErrNumberConflict signals that the unit of work lost a race for an invoice
// number and can be replayed from the start.
var ErrNumberConflict = errors.New("invoices: invoice number taken concurrently")

// RepositoryPort defines data access methods for invoices.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	LatestInvoiceNumber(ctx context.Context, prefix string) (string, error)
	GetInvoice(ctx context.Context, id int64) (Invoice, error)
	ListInvoices(ctx context.Context, filter ListFilter) ([]Invoice, error)
}

// TxRepository defines operations within one unit of work.
type TxRepository interface {
	LatestInvoiceNumber(ctx context.Context, prefix string) (string, error)
	InsertInvoice(ctx context.Context, input NewInvoice) (Invoice, error)
	InsertItem(ctx context.Context, invoiceID int64, item Item) (Item, error)
	DeleteItems(ctx context.Context, invoiceID int64) error
	UpdateTotal(ctx context.Context, invoiceID int64, total decimal.Decimal) error
	SumItems(ctx context.Context, invoiceID int64) (decimal.Decimal, error)
	LockInvoice(ctx context.Context, id int64) (Invoice, error)
	UpdateStatus(ctx context.Context, id int64, status Status) error
	UpdatePayment(ctx context.Context, id int64, paid decimal.Decimal, status Status) error
	DeleteInvoice(ctx context.Context, id int64) error
	MarkOverdue(ctx context.Context, asOf time.Time) ([]int64, error)
}

// IdempotencyPort remembers invoices created for client supplied keys.
type IdempotencyPort interface {
	Claim(ctx context.Context, key uuid.UUID, scope string) (int64, bool, error)
	Complete(ctx context.Context, key uuid.UUID, resourceID int64) error
	Release(ctx context.Context, key uuid.UUID) error
}

// Config tunes invoice creation.
type Config struct {
	MaxAttempts int
	ItemPolicy  ItemPolicy
}

// Service handles invoice numbering, aggregation and lifecycle.
type Service struct {
	repo   RepositoryPort
	idem   IdempotencyPort
	audit  shared.Auditor
	logger *slog.Logger
	cfg    Config
	now    func() time.Time
}

// NewService builds Service instance.
func NewService(repo RepositoryPort, idem IdempotencyPort, audit shared.Auditor, logger *slog.Logger, cfg Config) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 5
	}
	if cfg.ItemPolicy != ItemPolicyReject {
		cfg.ItemPolicy = ItemPolicySkip
	}
	return &Service{repo: repo, idem: idem, audit: audit, logger: logger, cfg: cfg, now: time.Now}
}

// NextNumber previews the number the next invoice created now would get.
func (s *Service) NextNumber(ctx context.Context) (string, error) {
	period := shared.PeriodOf(s.now())
	latest, err := s.repo.LatestInvoiceNumber(ctx, NumberPrefix(period))
	if err != nil {
		return "", err
	}
	return NextNumber(latest, period)
}

// CreateInvoice numbers and stores a draft invoice with its items as one unit
// of work. Losing the race for a number replays the whole unit.
func (s *Service) CreateInvoice(ctx context.Context, actorID int64, header Header, inputs []ItemInput) (Invoice, error) {
	if actorID <= 0 {
		return Invoice{}, shared.Validation("actor", "required")
	}
	if err := header.normalise(); err != nil {
		return Invoice{}, err
	}
	items, total, err := PriceItems(inputs, s.cfg.ItemPolicy)
	if err != nil {
		return Invoice{}, err
	}

	var created Invoice
	var lastErr error
	for attempt := 1; attempt <= s.cfg.MaxAttempts; attempt++ {
		lastErr = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
			inv, err := s.createInTx(ctx, tx, actorID, header, items, total)
			if err != nil {
				return err
			}
			created = inv
			return nil
		})
		if lastErr == nil {
			break
		}
		if !errors.Is(lastErr, ErrNumberConflict) {
			return Invoice{}, lastErr
		}
		s.logger.Info("invoice number conflict, retrying", slog.Int("attempt", attempt))
	}
	if lastErr != nil {
		return Invoice{}, &shared.StoreError{
			Op:  "invoices: create",
			Err: fmt.Errorf("gave up after %d attempts: %w", s.cfg.MaxAttempts, lastErr),
		}
	}

	s.record(ctx, shared.AuditEntry{
		ActorID:  actorID,
		Action:   shared.AuditInvoiceCreate,
		Entity:   "invoice",
		EntityID: created.ID,
		Meta:     map[string]any{"invoice_number": created.Number, "total_amount": created.TotalAmount.StringFixed(moneyPlaces)},
	})
	return created, nil
}

func (s *Service) createInTx(ctx context.Context, tx TxRepository, actorID int64, header Header, items []Item, total decimal.Decimal) (Invoice, error) {
	period := shared.PeriodOf(s.now())
	latest, err := tx.LatestInvoiceNumber(ctx, NumberPrefix(period))
	if err != nil {
		return Invoice{}, err
	}
	number, err := NextNumber(latest, period)
	if err != nil {
		return Invoice{}, err
	}
	inv, err := tx.InsertInvoice(ctx, NewInvoice{Number: number, Header: header, CreatedBy: actorID})
	if err != nil {
		return Invoice{}, err
	}
	stored, err := s.writeItems(ctx, tx, inv.ID, items, total)
	if err != nil {
		return Invoice{}, err
	}
	inv.Items = stored
	inv.TotalAmount = total
	return inv, nil
}

// writeItems inserts items, stores the total and re-reads the item sum to
// confirm the header matches.
func (s *Service) writeItems(ctx context.Context, tx TxRepository, invoiceID int64, items []Item, total decimal.Decimal) ([]Item, error) {
	stored := make([]Item, 0, len(items))
	for _, item := range items {
		saved, err := tx.InsertItem(ctx, invoiceID, item)
		if err != nil {
			return nil, err
		}
		stored = append(stored, saved)
	}
	if err := tx.UpdateTotal(ctx, invoiceID, total); err != nil {
		return nil, err
	}
	sum, err := tx.SumItems(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	if !sum.Equal(total) {
		return nil, shared.Consistency("invoices: aggregate", "invoice %d total %s does not match item sum %s",
			invoiceID, total.StringFixed(moneyPlaces), sum.StringFixed(moneyPlaces))
	}
	return stored, nil
}

// CreateInvoiceOnce is CreateInvoice guarded by a client supplied key. A
// replayed key returns the invoice produced by the first request.
func (s *Service) CreateInvoiceOnce(ctx context.Context, key uuid.UUID, actorID int64, header Header, inputs []ItemInput) (Invoice, bool, error) {
	if s.idem == nil || key == uuid.Nil {
		inv, err := s.CreateInvoice(ctx, actorID, header, inputs)
		return inv, true, err
	}
	existingID, claimed, err := s.idem.Claim(ctx, key, "invoice.create")
	if err != nil {
		return Invoice{}, false, err
	}
	if !claimed {
		inv, err := s.repo.GetInvoice(ctx, existingID)
		return inv, false, err
	}
	inv, err := s.CreateInvoice(ctx, actorID, header, inputs)
	if err != nil {
		if relErr := s.idem.Release(ctx, key); relErr != nil {
			s.logger.Warn("release idempotency key", slog.String("key", key.String()), slog.Any("error", relErr))
		}
		return Invoice{}, false, err
	}
	if err := s.idem.Complete(ctx, key, inv.ID); err != nil {
		s.logger.Warn("complete idempotency key", slog.String("key", key.String()), slog.Any("error", err))
	}
	return inv, true, nil
}

// ReplaceItems swaps the items of a draft invoice and recomputes its total.
func (s *Service) ReplaceItems(ctx context.Context, actorID, invoiceID int64, inputs []ItemInput) (Invoice, error) {
	if actorID <= 0 {
		return Invoice{}, shared.Validation("actor", "required")
	}
	items, total, err := PriceItems(inputs, s.cfg.ItemPolicy)
	if err != nil {
		return Invoice{}, err
	}
	var updated Invoice
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		inv, err := tx.LockInvoice(ctx, invoiceID)
		if err != nil {
			return err
		}
		if inv.Status != StatusDraft {
			return fmt.Errorf("invoices: items of %s invoice %s are frozen: %w", inv.Status, inv.Number, shared.ErrConflict)
		}
		if err := tx.DeleteItems(ctx, invoiceID); err != nil {
			return err
		}
		stored, err := s.writeItems(ctx, tx, invoiceID, items, total)
		if err != nil {
			return err
		}
		inv.Items = stored
		inv.TotalAmount = total
		updated = inv
		return nil
	})
	if err != nil {
		return Invoice{}, err
	}
	s.record(ctx, shared.AuditEntry{
		ActorID:  actorID,
		Action:   shared.AuditInvoiceItems,
		Entity:   "invoice",
		EntityID: invoiceID,
		Meta:     map[string]any{"items": len(items), "total_amount": total.StringFixed(moneyPlaces)},
	})
	return updated, nil
}

// ChangeStatus moves an invoice along its lifecycle. Marking an invoice paid
// settles the outstanding balance.
func (s *Service) ChangeStatus(ctx context.Context, actorID, invoiceID int64, next Status) (Invoice, error) {
	if actorID <= 0 {
		return Invoice{}, shared.Validation("actor", "required")
	}
	if !next.Valid() {
		return Invoice{}, shared.Validation("status", "unknown status")
	}
	var updated Invoice
	var from Status
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		inv, err := tx.LockInvoice(ctx, invoiceID)
		if err != nil {
			return err
		}
		from = inv.Status
		if !inv.Status.CanTransition(next) {
			return fmt.Errorf("invoices: cannot move invoice %s from %s to %s: %w", inv.Number, inv.Status, next, shared.ErrConflict)
		}
		if next == StatusPaid {
			err = tx.UpdatePayment(ctx, invoiceID, inv.TotalAmount, next)
			inv.PaidAmount = inv.TotalAmount
		} else {
			err = tx.UpdateStatus(ctx, invoiceID, next)
		}
		if err != nil {
			return err
		}
		inv.Status = next
		updated = inv
		return nil
	})
	if err != nil {
		return Invoice{}, err
	}
	s.record(ctx, shared.AuditEntry{
		ActorID:  actorID,
		Action:   shared.AuditInvoiceStatus,
		Entity:   "invoice",
		EntityID: invoiceID,
		Meta:     map[string]any{"from": from, "to": next},
	})
	return updated, nil
}

// RegisterPayment adds a payment to a sent or overdue invoice.
func (s *Service) RegisterPayment(ctx context.Context, actorID, invoiceID int64, amount decimal.Decimal) (Invoice, error) {
	if actorID <= 0 {
		return Invoice{}, shared.Validation("actor", "required")
	}
	if !amount.IsPositive() {
		return Invoice{}, shared.Validation("amount", "must be greater than zero")
	}
	if !amount.Equal(amount.Round(moneyPlaces)) {
		return Invoice{}, shared.Validation("amount", "at most 2 decimal places")
	}
	var updated Invoice
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		inv, err := tx.LockInvoice(ctx, invoiceID)
		if err != nil {
			return err
		}
		if inv.Status != StatusSent && inv.Status != StatusOverdue {
			return fmt.Errorf("invoices: %s invoice %s does not accept payments: %w", inv.Status, inv.Number, shared.ErrConflict)
		}
		paid := inv.PaidAmount.Add(amount)
		if paid.GreaterThan(inv.TotalAmount) {
			return shared.Validation("amount", "exceeds outstanding balance "+inv.Outstanding().StringFixed(moneyPlaces))
		}
		status := inv.Status
		if paid.Equal(inv.TotalAmount) {
			status = StatusPaid
		}
		if err := tx.UpdatePayment(ctx, invoiceID, paid, status); err != nil {
			return err
		}
		inv.PaidAmount = paid
		inv.Status = status
		updated = inv
		return nil
	})
	if err != nil {
		return Invoice{}, err
	}
	s.record(ctx, shared.AuditEntry{
		ActorID:  actorID,
		Action:   shared.AuditInvoicePayment,
		Entity:   "invoice",
		EntityID: invoiceID,
		Meta:     map[string]any{"amount": amount.StringFixed(moneyPlaces), "status": updated.Status},
	})
	return updated, nil
}

// DeleteInvoice removes a draft or cancelled invoice together with its items.
func (s *Service) DeleteInvoice(ctx context.Context, actorID, invoiceID int64) error {
	if actorID <= 0 {
		return shared.Validation("actor", "required")
	}
	var number string
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		inv, err := tx.LockInvoice(ctx, invoiceID)
		if err != nil {
			return err
		}
		if !inv.Status.Deletable() {
			return fmt.Errorf("invoices: %s invoice %s cannot be deleted: %w", inv.Status, inv.Number, shared.ErrConflict)
		}
		number = inv.Number
		if err := tx.DeleteItems(ctx, invoiceID); err != nil {
			return err
		}
		return tx.DeleteInvoice(ctx, invoiceID)
	})
	if err != nil {
		return err
	}
	s.record(ctx, shared.AuditEntry{
		ActorID:  actorID,
		Action:   shared.AuditInvoiceDelete,
		Entity:   "invoice",
		EntityID: invoiceID,
		Meta:     map[string]any{"invoice_number": number},
	})
	return nil
}

// MarkOverdue flags sent invoices whose due date lies before the calendar
// date of asOf.
func (s *Service) MarkOverdue(ctx context.Context, asOf time.Time) (int, error) {
	if asOf.IsZero() {
		asOf = s.now()
	}
	y, m, d := asOf.Date()
	asOf = time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	var ids []int64
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		ids, err = tx.MarkOverdue(ctx, asOf)
		return err
	})
	if err != nil {
		return 0, err
	}
	if len(ids) > 0 {
		s.logger.Info("invoices marked overdue", slog.Int("count", len(ids)), slog.Time("as_of", asOf))
	}
	return len(ids), nil
}

// GetInvoice returns an invoice with its items.
func (s *Service) GetInvoice(ctx context.Context, id int64) (Invoice, error) {
	if id <= 0 {
		return Invoice{}, shared.Validation("invoice_id", "required")
	}
	return s.repo.GetInvoice(ctx, id)
}

// ListInvoices returns invoice headers matching filter.
func (s *Service) ListInvoices(ctx context.Context, filter ListFilter) ([]Invoice, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, shared.Validation("status", "unknown status")
	}
	if filter.Period != nil {
		if err := filter.Period.Validate(); err != nil {
			return nil, err
		}
	}
	if filter.Limit <= 0 || filter.Limit > 500 {
		filter.Limit = 100
	}
	return s.repo.ListInvoices(ctx, filter)
}

func (s *Service) record(ctx context.Context, entry shared.AuditEntry) {
	if s.audit == nil {
		return
	}
	entry.At = s.now()
	if err := s.audit.Record(ctx, entry); err != nil {
		s.logger.Warn("audit invoice", slog.String("action", entry.Action), slog.Int64("invoice_id", entry.EntityID), slog.Any("error", err))
	}
}
